package service

import (
	"BPIApi/cmd/db"
	"BPIApi/internal/models"
	"BPIApi/pkg/logger"
	"fmt"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type withdrawalInput struct {
	Amount        float64 `json:"amount" validate:"required,gt=0"`
	BankName      string  `json:"bank_name" validate:"required,max=64"`
	AccountNumber string  `json:"account_number" validate:"required,numeric,len=10"`
	AccountName   string  `json:"account_name" validate:"required,max=128"`
}

// CreateWithdrawal holds the amount from the cash wallet and files a
// PENDING request for an admin to pay out.
func CreateWithdrawal(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var input withdrawalInput
	if !bindJSON(c, &input) {
		return
	}
	if input.Amount < settings.MinWithdrawal {
		c.JSON(400, gin.H{"error": fmt.Sprintf("%s: %v", models.ErrBelowMinWithdrawal, settings.MinWithdrawal)})
		return
	}

	withdrawal := models.Withdrawal{
		UserID:        userID,
		Amount:        input.Amount,
		BankName:      input.BankName,
		AccountNumber: input.AccountNumber,
		AccountName:   input.AccountName,
		Reference:     "WD-" + strings.ToUpper(uuid.NewString()),
		Status:        models.WithdrawalPending,
	}

	err := db.DB.Transaction(func(tx *gorm.DB) error {
		if _, err := models.DebitWallet(tx, models.LedgerEntry{
			UserID:      userID,
			Wallet:      models.WalletCash,
			Amount:      input.Amount,
			Type:        models.TxWithdrawal,
			Description: fmt.Sprintf("Withdrawal to %s %s", input.BankName, input.AccountNumber),
			Reference:   withdrawal.Reference,
		}); err != nil {
			return err
		}

		if err := tx.Create(&withdrawal).Error; err != nil {
			return logger.WrapError(err, "")
		}
		return nil
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(201, withdrawal)
}

func GetUserWithdrawals(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var withdrawals []models.Withdrawal
	if err := db.DB.Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&withdrawals).Error; err != nil {
		logger.Error("%v", err)
		c.Status(500)
		return
	}

	c.JSON(200, withdrawals)
}

// AdminListWithdrawals filters by ?status=, PENDING by default.
func AdminListWithdrawals(c *gin.Context) {
	status := strings.ToUpper(c.DefaultQuery("status", string(models.WithdrawalPending)))
	page, pageSize := pagination(c)

	var withdrawals []models.Withdrawal
	if err := db.DB.Where("status = ?", status).
		Order("created_at").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&withdrawals).Error; err != nil {
		logger.Error("%v", err)
		c.Status(500)
		return
	}

	c.JSON(200, withdrawals)
}

type reviewWithdrawalInput struct {
	Approve bool   `json:"approve"`
	Note    string `json:"note" validate:"max=255"`
}

// ReviewWithdrawal approves a pending withdrawal or rejects it, returning
// the held amount to the user's cash wallet.
func ReviewWithdrawal(c *gin.Context) {
	adminID, ok := currentUserID(c)
	if !ok {
		return
	}
	id, ok := idParam(c, "id")
	if !ok {
		return
	}

	var input reviewWithdrawalInput
	if !bindJSON(c, &input) {
		return
	}

	var withdrawal *models.Withdrawal
	err := db.DB.Transaction(func(tx *gorm.DB) error {
		var err error
		if withdrawal, err = models.LockPendingWithdrawal(tx, id); err != nil {
			return err
		}

		if input.Approve {
			err = withdrawal.Approve(tx, adminID, input.Note)
		} else {
			err = withdrawal.Rollback(tx, adminID, input.Note)
		}
		if err != nil {
			return err
		}

		title := "Withdrawal approved"
		if !input.Approve {
			title = "Withdrawal rejected"
		}
		return models.CreateNotification(tx, withdrawal.UserID, title,
			fmt.Sprintf("Your withdrawal %s of %v was %s.", withdrawal.Reference, withdrawal.Amount,
				strings.ToLower(string(withdrawal.Status))))
	})
	if err != nil {
		respondError(c, err)
		return
	}

	invalidateAdminStats(c.Request.Context())
	c.JSON(200, withdrawal)
}
