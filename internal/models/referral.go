package models

import (
	"BPIApi/cmd/db"
	"BPIApi/pkg/logger"
	"errors"
	"time"

	"gorm.io/gorm"
)

// MaxReferralLevels bounds every walk up or down the sponsor tree.
const MaxReferralLevels = 4

type ReferralStatus string

const (
	ReferralPending ReferralStatus = "PENDING"
	ReferralActive  ReferralStatus = "ACTIVE"
)

type Referral struct {
	ID           int64          `gorm:"primaryKey;autoIncrement" json:"id"`
	ReferrerID   int64          `gorm:"index;not null" json:"referrer_id"`
	ReferredID   int64          `gorm:"uniqueIndex;not null" json:"referred_id"`
	Referred     *User          `gorm:"foreignKey:ReferredID" json:"referred,omitempty"`
	Status       ReferralStatus `gorm:"size:16;default:PENDING" json:"status"`
	RewardPaid   bool           `json:"reward_paid"`
	EarnedAmount float64        `json:"earned_amount"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
}

// Ancestor is one sponsor found while walking up from a user.
type Ancestor struct {
	Level int
	User  User
}

// GetSponsorChain walks up to MaxReferralLevels sponsors starting at userID.
// The first element is the direct sponsor (level 1). The walk stops at the
// first user without a sponsor or whose sponsor row no longer exists.
func GetSponsorChain(tx *gorm.DB, userID int64) ([]Ancestor, error) {
	if tx == nil {
		tx = db.DB
	}

	var current User
	if err := tx.Select("id", "sponsor_id").First(&current, userID).Error; err != nil {
		return nil, logger.WrapError(err, "")
	}

	chain := make([]Ancestor, 0, MaxReferralLevels)
	for level := 1; level <= MaxReferralLevels; level++ {
		if current.SponsorID == nil {
			break
		}

		var sponsor User
		err := tx.First(&sponsor, *current.SponsorID).Error
		if err != nil && errors.Is(err, gorm.ErrRecordNotFound) {
			break
		} else if err != nil {
			return nil, logger.WrapError(err, "")
		}

		chain = append(chain, Ancestor{Level: level, User: sponsor})
		current = sponsor
	}

	return chain, nil
}

// GetDirectReferrals lists the Referral rows where userID is the referrer.
func GetDirectReferrals(tx *gorm.DB, userID int64) ([]Referral, error) {
	if tx == nil {
		tx = db.DB
	}

	var referrals []Referral
	err := tx.Preload("Referred").
		Where("referrer_id = ?", userID).
		Order("created_at DESC").
		Find(&referrals).Error
	if err != nil {
		return nil, logger.WrapError(err, "")
	}

	return referrals, nil
}

// DownlineLevel holds the users sitting at one depth below a sponsor.
type DownlineLevel struct {
	Level int    `json:"level"`
	Count int    `json:"count"`
	Users []User `json:"users"`
}

// GetDownline returns up to MaxReferralLevels generations under userID.
func GetDownline(tx *gorm.DB, userID int64) ([]DownlineLevel, error) {
	if tx == nil {
		tx = db.DB
	}

	levels := make([]DownlineLevel, 0, MaxReferralLevels)
	parents := []int64{userID}
	for level := 1; level <= MaxReferralLevels && len(parents) > 0; level++ {
		var users []User
		if err := tx.Where("sponsor_id IN ?", parents).
			Order("id").
			Find(&users).Error; err != nil {
			return nil, logger.WrapError(err, "")
		}

		levels = append(levels, DownlineLevel{Level: level, Count: len(users), Users: users})

		parents = parents[:0]
		for _, u := range users {
			parents = append(parents, u.ID)
		}
	}

	return levels, nil
}
