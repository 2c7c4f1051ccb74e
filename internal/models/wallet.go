package models

import (
	"BPIApi/cmd/db"
	"BPIApi/pkg/logger"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type Wallet string

const (
	WalletCash       Wallet = "CASH"
	WalletToken      Wallet = "TOKEN"
	WalletPalliative Wallet = "PALLIATIVE"
	WalletCar        Wallet = "CAR"
	WalletLand       Wallet = "LAND"
	WalletEducation  Wallet = "EDUCATION"
	WalletBusiness   Wallet = "BUSINESS"
	WalletSolar      Wallet = "SOLAR"
	WalletHealth     Wallet = "HEALTH"
)

var walletColumns = map[Wallet]string{
	WalletCash:       "cash_balance",
	WalletToken:      "token_balance",
	WalletPalliative: "palliative_balance",
	WalletCar:        "car_balance",
	WalletLand:       "land_balance",
	WalletEducation:  "education_balance",
	WalletBusiness:   "business_balance",
	WalletSolar:      "solar_balance",
	WalletHealth:     "health_balance",
}

// Column maps a wallet to its balance column on users.
func (w Wallet) Column() (string, error) {
	col, ok := walletColumns[w]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownWallet, w)
	}
	return col, nil
}

func (w Wallet) Valid() bool {
	_, ok := walletColumns[w]
	return ok
}

// Balance reads the wallet's balance off a loaded user.
func (u *User) Balance(w Wallet) float64 {
	switch w {
	case WalletCash:
		return u.CashBalance
	case WalletToken:
		return u.TokenBalance
	case WalletPalliative:
		return u.PalliativeBalance
	case WalletCar:
		return u.CarBalance
	case WalletLand:
		return u.LandBalance
	case WalletEducation:
		return u.EducationBalance
	case WalletBusiness:
		return u.BusinessBalance
	case WalletSolar:
		return u.SolarBalance
	case WalletHealth:
		return u.HealthBalance
	}
	return 0
}

// LedgerEntry describes one balance movement.
type LedgerEntry struct {
	UserID      int64
	Wallet      Wallet
	Amount      float64
	Type        TransactionType
	Description string
	Reference   string
}

// CreditWallet adds entry.Amount to the user's wallet and records the ledger row.
func CreditWallet(tx *gorm.DB, entry LedgerEntry) (*Transaction, error) {
	if tx == nil {
		tx = db.DB
	}

	col, err := entry.Wallet.Column()
	if err != nil {
		return nil, err
	}

	if err = tx.Model(&User{}).
		Where("id = ?", entry.UserID).
		Update(col, gorm.Expr(col+" + ?", entry.Amount)).Error; err != nil {
		return nil, logger.WrapError(err, "")
	}

	row := Transaction{
		UserID:      entry.UserID,
		Type:        entry.Type,
		Wallet:      entry.Wallet,
		Amount:      entry.Amount,
		Description: entry.Description,
		Reference:   entry.Reference,
		Status:      "COMPLETED",
	}
	if err = tx.Create(&row).Error; err != nil {
		return nil, logger.WrapError(err, "")
	}

	return &row, nil
}

// DebitWallet locks the user row, checks the balance and subtracts entry.Amount.
// The ledger row carries a negative amount.
func DebitWallet(tx *gorm.DB, entry LedgerEntry) (*Transaction, error) {
	if tx == nil {
		tx = db.DB
	}

	col, err := entry.Wallet.Column()
	if err != nil {
		return nil, err
	}

	var user User
	if err = tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&user, entry.UserID).Error; err != nil {
		return nil, logger.WrapError(err, "")
	}

	if user.Balance(entry.Wallet) < entry.Amount {
		return nil, ErrInsufficientBalance
	}

	if err = tx.Model(&User{}).
		Where("id = ?", entry.UserID).
		Update(col, gorm.Expr(col+" - ?", entry.Amount)).Error; err != nil {
		return nil, logger.WrapError(err, "")
	}

	row := Transaction{
		UserID:      entry.UserID,
		Type:        entry.Type,
		Wallet:      entry.Wallet,
		Amount:      -entry.Amount,
		Description: entry.Description,
		Reference:   entry.Reference,
		Status:      "COMPLETED",
	}
	if err = tx.Create(&row).Error; err != nil {
		return nil, logger.WrapError(err, "")
	}

	return &row, nil
}
