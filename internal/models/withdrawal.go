package models

import (
	"BPIApi/cmd/db"
	"BPIApi/pkg/logger"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type WithdrawalStatus string

const (
	WithdrawalPending  WithdrawalStatus = "PENDING"
	WithdrawalApproved WithdrawalStatus = "APPROVED"
	WithdrawalRejected WithdrawalStatus = "REJECTED"
)

type Withdrawal struct {
	ID            int64            `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID        int64            `gorm:"index;not null;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"user_id"`
	Amount        float64          `json:"amount"`
	BankName      string           `json:"bank_name"`
	AccountNumber string           `gorm:"size:20" json:"account_number"`
	AccountName   string           `json:"account_name"`
	Reference     string           `gorm:"uniqueIndex;size:64" json:"reference"`
	Status        WithdrawalStatus `gorm:"size:16;index" json:"status"`
	ReviewedBy    *int64           `json:"reviewed_by"`
	ReviewedAt    *time.Time       `json:"reviewed_at"`
	Note          string           `json:"note"`
	CreatedAt     time.Time        `json:"created_at"`
}

// LockPendingWithdrawal loads a withdrawal FOR UPDATE and checks it is still pending.
func LockPendingWithdrawal(tx *gorm.DB, id int64) (*Withdrawal, error) {
	if tx == nil {
		tx = db.DB
	}

	var w Withdrawal
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&w, id).Error; err != nil {
		return nil, err
	}
	if w.Status != WithdrawalPending {
		return nil, ErrWithdrawalNotPending
	}

	return &w, nil
}

// Rollback returns the held amount to the user's cash wallet and marks the
// withdrawal rejected. Must run inside the caller's transaction.
func (w *Withdrawal) Rollback(tx *gorm.DB, reviewerID int64, note string) error {
	if tx == nil {
		tx = db.DB
	}
	if w.Status != WithdrawalPending {
		return ErrWithdrawalNotPending
	}

	if _, err := CreditWallet(tx, LedgerEntry{
		UserID:      w.UserID,
		Wallet:      WalletCash,
		Amount:      w.Amount,
		Type:        TxWithdrawalReversal,
		Description: fmt.Sprintf("Withdrawal %s rejected", w.Reference),
		Reference:   w.Reference,
	}); err != nil {
		return logger.WrapError(err, "")
	}

	now := time.Now()
	w.Status = WithdrawalRejected
	w.ReviewedBy = &reviewerID
	w.ReviewedAt = &now
	w.Note = note
	if err := tx.Save(w).Error; err != nil {
		return logger.WrapError(err, "")
	}

	logger.Debug("Withdrawal rolled back. Reference: %s", w.Reference)

	return nil
}

// Approve marks the withdrawal as paid out. The balance was already held
// when the request was created.
func (w *Withdrawal) Approve(tx *gorm.DB, reviewerID int64, note string) error {
	if tx == nil {
		tx = db.DB
	}
	if w.Status != WithdrawalPending {
		return ErrWithdrawalNotPending
	}

	now := time.Now()
	w.Status = WithdrawalApproved
	w.ReviewedBy = &reviewerID
	w.ReviewedAt = &now
	w.Note = note
	if err := tx.Save(w).Error; err != nil {
		return logger.WrapError(err, "")
	}

	return nil
}
