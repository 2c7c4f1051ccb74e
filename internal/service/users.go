package service

import (
	"BPIApi/cmd/db"
	"BPIApi/internal/middleware"
	"BPIApi/internal/models"
	"BPIApi/pkg/logger"
	"errors"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

func GetUser(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var user models.User
	err := db.DB.First(&user, userID).Error
	if err != nil && errors.Is(err, gorm.ErrRecordNotFound) {
		c.JSON(404, gin.H{"error": "User not found"})
		return
	} else if err != nil {
		logger.Error("%v", err)
		c.Status(500)
		return
	}

	c.JSON(200, user)
}

type updateProfileInput struct {
	FullName string `json:"full_name" validate:"max=128"`
	Phone    string `json:"phone" validate:"omitempty,max=20"`
}

func UpdateProfile(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var input updateProfileInput
	if !bindJSON(c, &input) {
		return
	}

	if err := db.DB.Model(&models.User{}).
		Where("id = ?", userID).
		Updates(map[string]interface{}{"full_name": input.FullName, "phone": input.Phone}).Error; err != nil {
		logger.Error("%v", err)
		c.Status(500)
		return
	}

	c.Status(204)
}

type changePasswordInput struct {
	OldPassword string `json:"old_password" validate:"required"`
	NewPassword string `json:"new_password" validate:"required,min=8,max=72"`
}

func ChangePassword(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var input changePasswordInput
	if !bindJSON(c, &input) {
		return
	}

	var user models.User
	if err := db.DB.First(&user, userID).Error; err != nil {
		respondError(c, err)
		return
	}

	if !middleware.ComparePasswords(user.Password, input.OldPassword) {
		c.JSON(400, gin.H{"error": "Old password is incorrect"})
		return
	}

	hash, err := middleware.HashPassword(input.NewPassword)
	if err != nil {
		logger.Error("%v", err)
		c.Status(500)
		return
	}

	if err = db.DB.Model(&user).Update("password", hash).Error; err != nil {
		logger.Error("%v", err)
		c.Status(500)
		return
	}

	c.Status(204)
}

// GetUserReferrals lists the direct referrals of the current user.
func GetUserReferrals(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	referrals, err := models.GetDirectReferrals(nil, userID)
	if err != nil {
		logger.Error("%v", err)
		c.Status(500)
		return
	}

	c.JSON(200, referrals)
}

// GetReferralTree returns the L1-L4 downline of the current user.
func GetReferralTree(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	levels, err := models.GetDownline(nil, userID)
	if err != nil {
		logger.Error("%v", err)
		c.Status(500)
		return
	}

	total := 0
	for _, l := range levels {
		total += l.Count
	}

	c.JSON(200, gin.H{"total": total, "levels": levels})
}

type uplineEntry struct {
	Level    int    `json:"level"`
	UserID   int64  `json:"user_id"`
	Username string `json:"username"`
	FullName string `json:"full_name"`
}

// GetUpline returns the sponsors that would be paid for the current user.
func GetUpline(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	chain, err := models.GetSponsorChain(nil, userID)
	if err != nil {
		respondError(c, err)
		return
	}

	upline := make([]uplineEntry, 0, len(chain))
	for _, a := range chain {
		upline = append(upline, uplineEntry{
			Level:    a.Level,
			UserID:   a.User.ID,
			Username: a.User.Username,
			FullName: a.User.FullName,
		})
	}

	c.JSON(200, upline)
}
