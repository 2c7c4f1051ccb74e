package models

import (
	"BPIApi/cmd/db"
	"BPIApi/pkg/logger"
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Package is a membership tier users buy to activate their account.
type Package struct {
	ID          int64               `gorm:"primaryKey;autoIncrement" json:"id"`
	Name        string              `gorm:"uniqueIndex;not null" json:"name"`
	Description string              `json:"description"`
	Price       float64             `gorm:"not null" json:"price"`
	VATPercent  float64             `json:"vat_percent"`
	Active      bool                `json:"active"`
	RewardRules []PackageRewardRule `gorm:"foreignKey:PackageID" json:"reward_rules,omitempty"`
	CreatedAt   time.Time           `json:"created_at"`
	UpdatedAt   time.Time           `json:"updated_at"`
}

// TotalPrice is the price including VAT.
func (p *Package) TotalPrice() float64 {
	price := decimal.NewFromFloat(p.Price)
	vat := price.Mul(decimal.NewFromFloat(p.VATPercent)).Div(decimal.NewFromInt(100))
	return price.Add(vat).InexactFloat64()
}

// PackageRewardRule pays Percent of the package price into Wallet of the
// sponsor sitting Level steps above the buyer.
type PackageRewardRule struct {
	ID        int64   `gorm:"primaryKey;autoIncrement" json:"id"`
	PackageID int64   `gorm:"index;not null;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"package_id"`
	Level     int     `gorm:"not null" json:"level"`
	Wallet    Wallet  `gorm:"size:16;not null" json:"wallet"`
	Percent   float64 `gorm:"not null" json:"percent"`
}

type PaymentMethod string

const (
	PaymentMethodWallet      PaymentMethod = "WALLET"
	PaymentMethodPaystack    PaymentMethod = "PAYSTACK"
	PaymentMethodFlutterwave PaymentMethod = "FLUTTERWAVE"
)

// Membership is a package held by a user. A user holds each package once.
type Membership struct {
	ID            int64         `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID        int64         `gorm:"uniqueIndex:idx_membership_user_package;not null;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"user_id"`
	PackageID     int64         `gorm:"uniqueIndex:idx_membership_user_package;index;not null" json:"package_id"`
	Package       *Package      `gorm:"foreignKey:PackageID" json:"package,omitempty"`
	AmountPaid    float64       `json:"amount_paid"`
	PaymentMethod PaymentMethod `gorm:"size:16" json:"payment_method"`
	Reference     string        `gorm:"size:128;uniqueIndex" json:"reference"`
	ActivatedAt   time.Time     `json:"activated_at"`
}

func GetActivePackages(tx *gorm.DB) ([]Package, error) {
	if tx == nil {
		tx = db.DB
	}

	var packages []Package
	err := tx.Preload("RewardRules", func(q *gorm.DB) *gorm.DB {
		return q.Order("level, wallet")
	}).Where("active = ?", true).Order("price").Find(&packages).Error
	if err != nil {
		return nil, logger.WrapError(err, "")
	}

	return packages, nil
}

// GetPackageForPurchase loads an active package with its reward rules.
func GetPackageForPurchase(tx *gorm.DB, packageID int64) (*Package, error) {
	if tx == nil {
		tx = db.DB
	}

	var pkg Package
	err := tx.Preload("RewardRules").
		Where("active = ?", true).
		First(&pkg, packageID).Error
	if err != nil && errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrPackageUnavailable
	} else if err != nil {
		return nil, logger.WrapError(err, "")
	}

	return &pkg, nil
}

func HasMembership(tx *gorm.DB, userID, packageID int64) (bool, error) {
	if tx == nil {
		tx = db.DB
	}

	var exists bool
	err := tx.Model(&Membership{}).
		Select("count(*) > 0").
		Where("user_id = ? AND package_id = ?", userID, packageID).
		Scan(&exists).Error
	if err != nil {
		return true, logger.WrapError(err, "")
	}

	return exists, nil
}

// RulesForLevel filters the package rules paying out at level.
func (p *Package) RulesForLevel(level int) []PackageRewardRule {
	var rules []PackageRewardRule
	for _, r := range p.RewardRules {
		if r.Level == level {
			rules = append(rules, r)
		}
	}
	return rules
}
