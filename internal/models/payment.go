package models

import (
	"BPIApi/cmd/db"
	"BPIApi/pkg/logger"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type PaymentPurpose string

const (
	PurposePackage       PaymentPurpose = "PACKAGE"
	PurposeWalletFunding PaymentPurpose = "WALLET_FUNDING"
	PurposeStoreOrder    PaymentPurpose = "STORE_ORDER"
)

type PaymentStatus string

const (
	PaymentPending PaymentStatus = "PENDING"
	PaymentSuccess PaymentStatus = "SUCCESS"
	PaymentFailed  PaymentStatus = "FAILED"
)

// Payment tracks one gateway checkout from initialization to webhook.
type Payment struct {
	ID               int64          `gorm:"primaryKey;autoIncrement" json:"id"`
	Reference        string         `gorm:"uniqueIndex;size:128;not null" json:"reference"`
	Gateway          PaymentMethod  `gorm:"size:16;not null" json:"gateway"`
	Purpose          PaymentPurpose `gorm:"size:32;not null" json:"purpose"`
	TargetID         int64          `json:"target_id"`
	UserID           int64          `gorm:"index;not null;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"user_id"`
	Amount           float64        `json:"amount"`
	Currency         string         `gorm:"size:8;default:NGN" json:"currency"`
	Status           PaymentStatus  `gorm:"size:16;index;default:PENDING" json:"status"`
	AuthorizationURL string         `json:"authorization_url"`
	GatewayTxID      string         `gorm:"size:128" json:"gateway_tx_id"`
	PaidAt           *time.Time     `json:"paid_at"`
	CreatedAt        time.Time      `json:"created_at"`
	UpdatedAt        time.Time      `json:"updated_at"`
}

// LockPaymentByReference loads the payment row FOR UPDATE.
func LockPaymentByReference(tx *gorm.DB, reference string) (*Payment, error) {
	if tx == nil {
		tx = db.DB
	}

	var payment Payment
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&payment, "reference = ?", reference).Error
	if err != nil {
		return nil, err
	}

	return &payment, nil
}

func ListUserPayments(tx *gorm.DB, userID int64) ([]Payment, error) {
	if tx == nil {
		tx = db.DB
	}

	var payments []Payment
	if err := tx.Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&payments).Error; err != nil {
		return nil, logger.WrapError(err, "")
	}

	return payments, nil
}
