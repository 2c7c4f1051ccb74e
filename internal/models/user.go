package models

import (
	"BPIApi/cmd/db"
	"BPIApi/pkg/logger"
	"crypto/rand"
	"errors"
	"math/big"
	"strings"
	"time"

	"gorm.io/gorm"
)

type Role string

const (
	RoleUser        Role = "USER"
	RoleAdmin       Role = "ADMIN"
	RolePickupStaff Role = "PICKUP_STAFF"
)

const referralCodeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
const referralCodeLength = 8

type User struct {
	ID             int64  `gorm:"primaryKey;autoIncrement" json:"id"`
	Email          string `gorm:"uniqueIndex;not null" json:"email"`
	Username       string `gorm:"uniqueIndex;not null" json:"username"`
	FullName       string `json:"full_name"`
	Phone          string `json:"phone"`
	Password       string `gorm:"not null" json:"-"`
	Role           Role   `gorm:"size:16;not null;default:USER" json:"role"`
	ReferralCode   string `gorm:"uniqueIndex;size:16" json:"referral_code"`
	SponsorID      *int64 `gorm:"index" json:"sponsor_id"`
	PickupCenterID *int64 `gorm:"index" json:"pickup_center_id,omitempty"`
	Activated      bool   `json:"activated"`

	CashBalance       float64 `json:"cash_balance"`
	TokenBalance      float64 `json:"token_balance"`
	PalliativeBalance float64 `json:"palliative_balance"`
	CarBalance        float64 `json:"car_balance"`
	LandBalance       float64 `json:"land_balance"`
	EducationBalance  float64 `json:"education_balance"`
	BusinessBalance   float64 `json:"business_balance"`
	SolarBalance      float64 `json:"solar_balance"`
	HealthBalance     float64 `json:"health_balance"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

func CheckIfUserExistsByID(tx *gorm.DB, userID int64) (bool, error) {
	if tx == nil {
		tx = db.DB
	}

	var exists bool
	err := tx.Model(&User{}).
		Select("count(*) > 0").
		Where("id = ?", userID).
		Scan(&exists).Error
	if err != nil {
		return true, logger.WrapError(err, "")
	}

	return exists, nil
}

func CheckIfUserExistsByEmailOrUsername(tx *gorm.DB, email, username string) (bool, error) {
	if tx == nil {
		tx = db.DB
	}

	var exists bool
	err := tx.Model(&User{}).
		Select("count(*) > 0").
		Where("lower(email) = ? OR lower(username) = ?",
			strings.ToLower(email), strings.ToLower(username)).
		Scan(&exists).Error
	if err != nil {
		return true, logger.WrapError(err, "")
	}

	return exists, nil
}

// GetUserRole returns gorm.ErrRecordNotFound (wrapped) for unknown ids.
func GetUserRole(tx *gorm.DB, userID int64) (Role, error) {
	if tx == nil {
		tx = db.DB
	}

	var user User
	if err := tx.Select("id", "role").First(&user, userID).Error; err != nil {
		return "", logger.WrapError(err, "")
	}

	return user.Role, nil
}

// GetUserByLogin finds a user by email or username, case-insensitively.
func GetUserByLogin(tx *gorm.DB, login string) (*User, error) {
	if tx == nil {
		tx = db.DB
	}

	var user User
	login = strings.ToLower(strings.TrimSpace(login))
	err := tx.Where("lower(email) = ? OR lower(username) = ?", login, login).
		First(&user).Error
	if err != nil {
		return nil, logger.WrapError(err, "")
	}

	return &user, nil
}

// GetUserByReferralCode resolves a sponsor code. Returns ErrSponsorNotFound
// when no user carries it.
func GetUserByReferralCode(tx *gorm.DB, code string) (*User, error) {
	if tx == nil {
		tx = db.DB
	}

	var user User
	err := tx.Where("referral_code = ?", strings.ToUpper(strings.TrimSpace(code))).
		First(&user).Error
	if err != nil && errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrSponsorNotFound
	} else if err != nil {
		return nil, logger.WrapError(err, "")
	}

	return &user, nil
}

// NewReferralCode returns a random code that is not yet taken.
func NewReferralCode(tx *gorm.DB) (string, error) {
	if tx == nil {
		tx = db.DB
	}

	for attempt := 0; attempt < 10; attempt++ {
		code, err := randomCode(referralCodeLength)
		if err != nil {
			return "", logger.WrapError(err, "")
		}

		var taken bool
		if err = tx.Model(&User{}).
			Select("count(*) > 0").
			Where("referral_code = ?", code).
			Scan(&taken).Error; err != nil {
			return "", logger.WrapError(err, "")
		}
		if !taken {
			return code, nil
		}
	}

	return "", logger.WrapError(errors.New("unable to allocate referral code"), "")
}

func randomCode(length int) (string, error) {
	var sb strings.Builder
	max := big.NewInt(int64(len(referralCodeAlphabet)))
	for i := 0; i < length; i++ {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		sb.WriteByte(referralCodeAlphabet[n.Int64()])
	}
	return sb.String(), nil
}
