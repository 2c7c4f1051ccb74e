package service

import (
	"BPIApi/cmd/db"
	"BPIApi/internal/middleware"
	"BPIApi/internal/models"
	"BPIApi/pkg/logger"
	"errors"
	"fmt"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type signUpInput struct {
	Email        string `json:"email" validate:"required,email,max=254"`
	Username     string `json:"username" validate:"required,alphanum,min=3,max=32"`
	FullName     string `json:"full_name" validate:"max=128"`
	Phone        string `json:"phone" validate:"omitempty,max=20"`
	Password     string `json:"password" validate:"required,min=8,max=72"`
	ReferralCode string `json:"referral_code" validate:"omitempty,max=16"`
}

type loginInput struct {
	Login    string `json:"login" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type refreshInput struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

type Token struct {
	AccessToken  string       `json:"access_token"`
	RefreshToken string       `json:"refresh_token"`
	User         *models.User `json:"user,omitempty"`
}

var errUserExists = errors.New("user with this email or username already exists")

// SignUp registers a user. The sponsor code comes from the body or the
// ?ref= query parameter of the invite link.
func SignUp(c *gin.Context) {
	var input signUpInput
	if !bindJSON(c, &input) {
		return
	}
	if input.ReferralCode == "" {
		input.ReferralCode = c.Query("ref")
	}

	hash, err := middleware.HashPassword(input.Password)
	if err != nil {
		logger.Error("%v", err)
		c.Status(500)
		return
	}

	user := models.User{
		Email:    strings.ToLower(strings.TrimSpace(input.Email)),
		Username: input.Username,
		FullName: input.FullName,
		Phone:    input.Phone,
		Password: hash,
		Role:     models.RoleUser,
	}

	err = db.DB.Transaction(func(tx *gorm.DB) error {
		exists, err := models.CheckIfUserExistsByEmailOrUsername(tx, user.Email, user.Username)
		if err != nil {
			return logger.WrapError(err, "")
		}
		if exists {
			return errUserExists
		}

		var sponsor *models.User
		if strings.TrimSpace(input.ReferralCode) != "" {
			if sponsor, err = models.GetUserByReferralCode(tx, input.ReferralCode); err != nil {
				return err
			}
			user.SponsorID = &sponsor.ID
		}

		if user.ReferralCode, err = models.NewReferralCode(tx); err != nil {
			return logger.WrapError(err, "")
		}

		if err = tx.Create(&user).Error; err != nil {
			return logger.WrapError(err, "")
		}

		if sponsor != nil {
			if err = tx.Create(&models.Referral{
				ReferrerID: sponsor.ID,
				ReferredID: user.ID,
				Status:     models.ReferralPending,
			}).Error; err != nil {
				return logger.WrapError(err, "")
			}

			if err = models.CreateNotification(tx, sponsor.ID, "New referral",
				fmt.Sprintf("%s joined with your referral code.", user.Username)); err != nil {
				return logger.WrapError(err, "")
			}
		}

		return nil
	})
	if err != nil && errors.Is(err, errUserExists) {
		c.JSON(409, gin.H{"error": err.Error()})
		return
	} else if err != nil {
		respondError(c, err)
		return
	}

	issueTokens(c, 201, &user)
}

func Login(c *gin.Context) {
	var input loginInput
	if !bindJSON(c, &input) {
		return
	}

	user, err := models.GetUserByLogin(nil, input.Login)
	if err != nil && errors.Is(err, gorm.ErrRecordNotFound) {
		c.JSON(401, gin.H{"error": "Invalid login or password"})
		return
	} else if err != nil {
		logger.Error("%v", err)
		c.Status(500)
		return
	}

	if !middleware.ComparePasswords(user.Password, input.Password) {
		c.JSON(401, gin.H{"error": "Invalid login or password"})
		return
	}

	issueTokens(c, 200, user)
}

// RefreshTokens trades a valid refresh token for a new pair.
func RefreshTokens(c *gin.Context) {
	var input refreshInput
	if !bindJSON(c, &input) {
		return
	}

	claims, err := middleware.ParseToken(input.RefreshToken, middleware.TokenRefresh)
	if err != nil {
		c.JSON(401, gin.H{"error": "Invalid refresh token"})
		return
	}

	exists, err := models.CheckIfUserExistsByID(nil, claims.UserID)
	if err != nil {
		logger.Error("%v", err)
		c.Status(500)
		return
	}
	if !exists {
		c.JSON(401, gin.H{"error": "User not authorized"})
		return
	}

	access, refresh, err := middleware.SignTokens(claims.UserID, authSettings.AccessTTL, authSettings.RefreshTTL)
	if err != nil {
		logger.Error("%v", err)
		c.Status(500)
		return
	}

	c.JSON(200, Token{AccessToken: access, RefreshToken: refresh})
}

func issueTokens(c *gin.Context, status int, user *models.User) {
	access, refresh, err := middleware.SignTokens(user.ID, authSettings.AccessTTL, authSettings.RefreshTTL)
	if err != nil {
		logger.Error("%v", err)
		c.Status(500)
		return
	}

	c.JSON(status, Token{AccessToken: access, RefreshToken: refresh, User: user})
}
