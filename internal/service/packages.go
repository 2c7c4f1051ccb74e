package service

import (
	"BPIApi/cmd/db"
	"BPIApi/internal/models"
	"BPIApi/pkg/logger"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// ActivateMembership records the membership, pays the referral rewards and
// allocates the remaining revenue to the pools. It is the single activation
// path for wallet purchases and gateway webhooks and must run inside tx.
func ActivateMembership(tx *gorm.DB, userID int64, pkg *models.Package, method models.PaymentMethod,
	amountPaid float64, reference string) (*models.Membership, []Payout, error) {
	has, err := models.HasMembership(tx, userID, pkg.ID)
	if err != nil {
		return nil, nil, logger.WrapError(err, "")
	}
	if has {
		return nil, nil, models.ErrAlreadyMember
	}

	var buyer models.User
	if err = tx.First(&buyer, userID).Error; err != nil {
		return nil, nil, logger.WrapError(err, "")
	}

	membership := models.Membership{
		UserID:        userID,
		PackageID:     pkg.ID,
		AmountPaid:    amountPaid,
		PaymentMethod: method,
		Reference:     reference,
		ActivatedAt:   time.Now(),
	}
	if err = tx.Create(&membership).Error; err != nil {
		return nil, nil, logger.WrapError(err, "")
	}

	if !buyer.Activated {
		if err = tx.Model(&buyer).Update("activated", true).Error; err != nil {
			return nil, nil, logger.WrapError(err, "")
		}
	}

	payouts, err := DistributeReferralRewards(tx, &buyer, pkg, reference)
	if err != nil {
		return nil, nil, logger.WrapError(err, "")
	}

	base := decimal.NewFromFloat(pkg.Price).Sub(decimal.NewFromFloat(TotalShare(payouts)))
	if _, err = AllocateRevenue(tx, models.SourceMembership, membership.ID, base.InexactFloat64()); err != nil {
		return nil, nil, logger.WrapError(err, "")
	}

	if err = models.CreateNotification(tx, userID, "Membership activated",
		fmt.Sprintf("Your %s membership is now active.", pkg.Name)); err != nil {
		return nil, nil, logger.WrapError(err, "")
	}

	membership.Package = pkg
	return &membership, payouts, nil
}

func GetPackages(c *gin.Context) {
	packages, err := models.GetActivePackages(nil)
	if err != nil {
		logger.Error("%v", err)
		c.Status(500)
		return
	}
	c.JSON(200, packages)
}

func GetPackage(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}

	pkg, err := models.GetPackageForPurchase(nil, id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(200, pkg)
}

type purchasePackageInput struct {
	PackageID     int64                `json:"package_id" validate:"required,gt=0"`
	PaymentMethod models.PaymentMethod `json:"payment_method" validate:"required,oneof=WALLET PAYSTACK FLUTTERWAVE"`
}

// PurchasePackage pays from the cash wallet immediately or opens a gateway
// checkout whose webhook activates the membership.
func PurchasePackage(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var input purchasePackageInput
	if !bindJSON(c, &input) {
		return
	}

	pkg, err := models.GetPackageForPurchase(nil, input.PackageID)
	if err != nil {
		respondError(c, err)
		return
	}

	has, err := models.HasMembership(nil, userID, pkg.ID)
	if err != nil {
		logger.Error("%v", err)
		c.Status(500)
		return
	}
	if has {
		respondError(c, models.ErrAlreadyMember)
		return
	}

	if input.PaymentMethod != models.PaymentMethodWallet {
		payment, err := initCheckout(c, userID, input.PaymentMethod, models.PurposePackage, pkg.ID, pkg.TotalPrice())
		if err != nil {
			respondCheckoutError(c, err)
			return
		}
		c.JSON(201, payment)
		return
	}

	reference := "PKG-" + strings.ToUpper(uuid.NewString())
	var membership *models.Membership
	var payouts []Payout
	err = db.DB.Transaction(func(tx *gorm.DB) error {
		if _, err := models.DebitWallet(tx, models.LedgerEntry{
			UserID:      userID,
			Wallet:      models.WalletCash,
			Amount:      pkg.TotalPrice(),
			Type:        models.TxPurchase,
			Description: fmt.Sprintf("%s membership", pkg.Name),
			Reference:   reference,
		}); err != nil {
			return err
		}

		var err error
		membership, payouts, err = ActivateMembership(tx, userID, pkg, models.PaymentMethodWallet, pkg.TotalPrice(), reference)
		return err
	})
	if err != nil {
		respondError(c, err)
		return
	}

	reportPayouts(payouts, reference)
	c.JSON(201, membership)
}

func GetUserMemberships(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var memberships []models.Membership
	if err := db.DB.Preload("Package").
		Where("user_id = ?", userID).
		Order("activated_at DESC").
		Find(&memberships).Error; err != nil {
		logger.Error("%v", err)
		c.Status(500)
		return
	}

	c.JSON(200, memberships)
}

type rewardRuleInput struct {
	Level   int           `json:"level" validate:"required,min=1,max=4"`
	Wallet  models.Wallet `json:"wallet" validate:"required"`
	Percent float64       `json:"percent" validate:"gt=0,lte=100"`
}

type packageInput struct {
	Name        string            `json:"name" validate:"required,max=64"`
	Description string            `json:"description"`
	Price       float64           `json:"price" validate:"required,gt=0"`
	VATPercent  float64           `json:"vat_percent" validate:"gte=0,lte=100"`
	Active      *bool             `json:"active"`
	RewardRules []rewardRuleInput `json:"reward_rules" validate:"dive"`
}

var errRulesExceedPrice = errors.New("reward rules exceed 100% of the package price")

func (i *packageInput) checkRules() error {
	total := 0.0
	for _, r := range i.RewardRules {
		if !r.Wallet.Valid() {
			return models.ErrUnknownWallet
		}
		total += r.Percent
	}
	if total > 100 {
		return errRulesExceedPrice
	}
	return nil
}

func (i *packageInput) apply(pkg *models.Package) {
	pkg.Name = i.Name
	pkg.Description = i.Description
	pkg.Price = i.Price
	pkg.VATPercent = i.VATPercent
	if i.Active != nil {
		pkg.Active = *i.Active
	}
	pkg.RewardRules = make([]models.PackageRewardRule, 0, len(i.RewardRules))
	for _, r := range i.RewardRules {
		pkg.RewardRules = append(pkg.RewardRules, models.PackageRewardRule{
			Level: r.Level, Wallet: r.Wallet, Percent: r.Percent,
		})
	}
}

func AdminListPackages(c *gin.Context) {
	var packages []models.Package
	if err := db.DB.Preload("RewardRules").Order("price").Find(&packages).Error; err != nil {
		logger.Error("%v", err)
		c.Status(500)
		return
	}
	c.JSON(200, packages)
}

func AdminCreatePackage(c *gin.Context) {
	var input packageInput
	if !bindJSON(c, &input) {
		return
	}
	if err := input.checkRules(); err != nil {
		c.JSON(400, gin.H{"error": err.Error()})
		return
	}

	pkg := models.Package{Active: true}
	input.apply(&pkg)
	if err := db.DB.Create(&pkg).Error; err != nil {
		logger.Error("%v", err)
		c.Status(500)
		return
	}

	c.JSON(201, pkg)
}

// AdminUpdatePackage replaces the package fields and its whole rule set.
func AdminUpdatePackage(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}

	var input packageInput
	if !bindJSON(c, &input) {
		return
	}
	if err := input.checkRules(); err != nil {
		c.JSON(400, gin.H{"error": err.Error()})
		return
	}

	var pkg models.Package
	err := db.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&pkg, id).Error; err != nil {
			return err
		}
		if err := tx.Where("package_id = ?", pkg.ID).Delete(&models.PackageRewardRule{}).Error; err != nil {
			return logger.WrapError(err, "")
		}

		input.apply(&pkg)
		for i := range pkg.RewardRules {
			pkg.RewardRules[i].PackageID = pkg.ID
		}
		if err := tx.Save(&pkg).Error; err != nil {
			return logger.WrapError(err, "")
		}
		return nil
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(200, pkg)
}
