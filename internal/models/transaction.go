package models

import (
	"BPIApi/cmd/db"
	"BPIApi/pkg/logger"
	"time"

	"gorm.io/gorm"
)

type TransactionType string

const (
	TxDeposit            TransactionType = "DEPOSIT"
	TxPurchase           TransactionType = "PURCHASE"
	TxReferralReward     TransactionType = "REFERRAL_REWARD"
	TxExecutiveShare     TransactionType = "EXECUTIVE_SHARE"
	TxWithdrawal         TransactionType = "WITHDRAWAL"
	TxWithdrawalReversal TransactionType = "WITHDRAWAL_REVERSAL"
	TxStorePurchase      TransactionType = "STORE_PURCHASE"
	TxAdjustment         TransactionType = "ADJUSTMENT"
)

// Transaction is one ledger line. Amount is signed: credits are positive,
// debits negative.
type Transaction struct {
	ID          int64           `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID      int64           `gorm:"index;not null;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"user_id"`
	Type        TransactionType `gorm:"size:32;index" json:"type"`
	Wallet      Wallet          `gorm:"size:16;index" json:"wallet"`
	Amount      float64         `json:"amount"`
	Description string          `json:"description"`
	Reference   string          `gorm:"size:128;index" json:"reference"`
	Status      string          `gorm:"size:16;default:COMPLETED" json:"status"`
	CreatedAt   time.Time       `json:"created_at"`
}

// ListUserTransactions returns a page of ledger lines, newest first.
func ListUserTransactions(tx *gorm.DB, userID int64, wallet Wallet, page, pageSize int) ([]Transaction, int64, error) {
	if tx == nil {
		tx = db.DB
	}

	query := tx.Model(&Transaction{}).Where("user_id = ?", userID)
	if wallet != "" {
		query = query.Where("wallet = ?", wallet)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, logger.WrapError(err, "")
	}

	var txs []Transaction
	err := query.Order("created_at DESC, id DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&txs).Error
	if err != nil {
		return nil, 0, logger.WrapError(err, "")
	}

	return txs, total, nil
}
