package service

import (
	"BPIApi/cmd/db"
	"BPIApi/internal/models"
	"BPIApi/pkg/logger"
	"BPIApi/pkg/mailer"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const claimCodeAttempts = 10

var errClaimCodeExhausted = errors.New("unable to allocate a unique claim code")

// ClaimView is what staff and customers see of a claim.
type ClaimView struct {
	Claim *models.Claim `json:"claim"`
	Order *models.Order `json:"order"`
}

func lockClaimOrder(tx *gorm.DB, orderID int64) (*models.Order, error) {
	var order models.Order
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&order, orderID).Error; err != nil {
		return nil, logger.WrapError(err, "")
	}
	return &order, nil
}

// IssueClaimCode assigns a fresh BPI-######-PC code to the claim of a paid
// pickup order and moves it to CODE_ISSUED.
func IssueClaimCode(tx *gorm.DB, orderID, adminID int64, now time.Time) (*models.Claim, *models.Order, error) {
	claim, err := models.LockClaimByOrderID(tx, orderID)
	if err != nil && errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil, models.ErrNotPickupOrder
	} else if err != nil {
		return nil, nil, logger.WrapError(err, "")
	}

	order, err := lockClaimOrder(tx, orderID)
	if err != nil {
		return nil, nil, err
	}
	if !order.Status.AllowsClaimVerification() {
		return nil, nil, fmt.Errorf("%w: order is %s", models.ErrOrderNotReady, order.Status)
	}
	if !claim.Status.CanAdvanceTo(models.ClaimCodeIssued) {
		return nil, nil, fmt.Errorf("%w: %s -> %s", models.ErrClaimTransition, claim.Status, models.ClaimCodeIssued)
	}

	code, err := uniqueClaimCode(tx)
	if err != nil {
		return nil, nil, err
	}

	claim.Code = &code
	if err = claim.Advance(models.ClaimCodeIssued, adminID, now); err != nil {
		return nil, nil, err
	}
	if err = tx.Save(claim).Error; err != nil {
		return nil, nil, logger.WrapError(err, "")
	}

	if err = models.CreateNotification(tx, order.UserID, "Your order is ready for pickup",
		fmt.Sprintf("Show claim code %s at the pickup center to collect order %s.", code, order.Reference)); err != nil {
		return nil, nil, err
	}

	return claim, order, nil
}

func uniqueClaimCode(tx *gorm.DB) (string, error) {
	for attempt := 0; attempt < claimCodeAttempts; attempt++ {
		code, err := models.GenerateClaimCode()
		if err != nil {
			return "", logger.WrapError(err, "")
		}
		taken, err := models.ClaimCodeTaken(tx, code)
		if err != nil {
			return "", err
		}
		if !taken {
			return code, nil
		}
	}
	return "", errClaimCodeExhausted
}

// checkStaffCenter allows admins everywhere and staff only at their own center.
func checkStaffCenter(staff *models.User, claim *models.Claim) error {
	if staff.IsAdmin() {
		return nil
	}
	if staff.PickupCenterID == nil || *staff.PickupCenterID != claim.PickupCenterID {
		return models.ErrWrongPickupCenter
	}
	return nil
}

func lockClaimForStaff(tx *gorm.DB, code string, staff *models.User) (*models.Claim, error) {
	if !models.ValidClaimCode(models.NormalizeClaimCode(code)) {
		return nil, models.ErrInvalidClaimCode
	}

	claim, err := models.LockClaimByCode(tx, code)
	if err != nil && errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, models.ErrInvalidClaimCode
	} else if err != nil {
		return nil, logger.WrapError(err, "")
	}

	if err = checkStaffCenter(staff, claim); err != nil {
		return nil, err
	}
	return claim, nil
}

// VerifyClaim checks a code presented at the pickup center: the claim must
// be CODE_ISSUED and its order PAID, PROCESSING or DELIVERED.
func VerifyClaim(tx *gorm.DB, code string, staff *models.User, now time.Time) (*models.Claim, *models.Order, error) {
	claim, err := lockClaimForStaff(tx, code, staff)
	if err != nil {
		return nil, nil, err
	}

	order, err := lockClaimOrder(tx, claim.OrderID)
	if err != nil {
		return nil, nil, err
	}
	if !order.Status.AllowsClaimVerification() {
		return nil, nil, fmt.Errorf("%w: order is %s", models.ErrOrderNotReady, order.Status)
	}

	if err = claim.Advance(models.ClaimVerified, staff.ID, now); err != nil {
		return nil, nil, err
	}
	if err = tx.Save(claim).Error; err != nil {
		return nil, nil, logger.WrapError(err, "")
	}

	return claim, order, nil
}

// CompleteClaim releases a VERIFIED claim and completes its order. The order
// must still be PAID, PROCESSING or DELIVERED.
func CompleteClaim(tx *gorm.DB, code string, staff *models.User, now time.Time) (*models.Claim, *models.Order, error) {
	claim, err := lockClaimForStaff(tx, code, staff)
	if err != nil {
		return nil, nil, err
	}

	order, err := lockClaimOrder(tx, claim.OrderID)
	if err != nil {
		return nil, nil, err
	}
	if claim.Status.CanAdvanceTo(models.ClaimCompleted) && !order.Status.AllowsClaimVerification() {
		return nil, nil, fmt.Errorf("%w: order is %s", models.ErrOrderNotReady, order.Status)
	}

	if err = claim.Advance(models.ClaimCompleted, staff.ID, now); err != nil {
		return nil, nil, err
	}
	if err = tx.Save(claim).Error; err != nil {
		return nil, nil, logger.WrapError(err, "")
	}
	if err = tx.Model(order).Update("status", models.OrderCompleted).Error; err != nil {
		return nil, nil, logger.WrapError(err, "")
	}

	if err = models.CreateNotification(tx, order.UserID, "Order collected",
		fmt.Sprintf("Order %s was collected. Thank you!", order.Reference)); err != nil {
		return nil, nil, err
	}

	return claim, order, nil
}

func AdminIssueClaimCode(c *gin.Context) {
	adminID, ok := currentUserID(c)
	if !ok {
		return
	}
	orderID, ok := idParam(c, "id")
	if !ok {
		return
	}

	var claim *models.Claim
	var order *models.Order
	err := db.DB.Transaction(func(tx *gorm.DB) error {
		var err error
		claim, order, err = IssueClaimCode(tx, orderID, adminID, time.Now())
		return err
	})
	if err != nil {
		bpiMetrics.ObserveClaimTransition(string(models.ClaimCodeIssued), "rejected")
		respondError(c, err)
		return
	}
	bpiMetrics.ObserveClaimTransition(string(models.ClaimCodeIssued), "ok")

	sendClaimCodeEmail(claim, order)
	c.JSON(200, ClaimView{Claim: claim, Order: order})
}

func sendClaimCodeEmail(claim *models.Claim, order *models.Order) {
	if mailSender == nil || claim.Code == nil {
		return
	}

	var user models.User
	if err := db.DB.First(&user, order.UserID).Error; err != nil {
		logger.Error("%v", logger.WrapError(err, ""))
		return
	}
	var center models.PickupCenter
	if err := db.DB.First(&center, claim.PickupCenterID).Error; err != nil {
		logger.Error("%v", logger.WrapError(err, ""))
		return
	}

	name := user.FullName
	if name == "" {
		name = user.Username
	}
	body := mailer.ClaimCodeBody(name, *claim.Code, center.Name, order.ID)
	if err := mailSender.Send(user.Email, "Your BPI claim code", body); err != nil {
		logger.Error("%v", err)
	}
}

type claimCodeInput struct {
	Code string `json:"code" validate:"required,max=32"`
}

// staffFromContext loads the authenticated pickup staff or admin.
func staffFromContext(c *gin.Context) (*models.User, bool) {
	staffID, ok := currentUserID(c)
	if !ok {
		return nil, false
	}

	var staff models.User
	if err := db.DB.First(&staff, staffID).Error; err != nil {
		respondError(c, err)
		return nil, false
	}
	return &staff, true
}

// isClaimRejection reports errors caused by the presented code rather than
// by the server.
func isClaimRejection(err error) bool {
	for _, e := range []error{
		models.ErrInvalidClaimCode,
		models.ErrClaimTransition,
		models.ErrOrderNotReady,
		models.ErrWrongPickupCenter,
	} {
		if errors.Is(err, e) {
			return true
		}
	}
	return false
}

type claimStep func(tx *gorm.DB, code string, staff *models.User, now time.Time) (*models.Claim, *models.Order, error)

// handleClaimStep runs a staff claim transition. Rejected attempts count
// against a per-staff budget; once it is spent the staff member must wait.
func handleClaimStep(c *gin.Context, target models.ClaimStatus, step claimStep) {
	staff, ok := staffFromContext(c)
	if !ok {
		return
	}

	limiterKey := strconv.FormatInt(staff.ID, 10)
	if verifyLimiter.Exhausted(limiterKey) {
		c.JSON(429, gin.H{"error": "Too many failed claim attempts, try again later"})
		return
	}

	var input claimCodeInput
	if !bindJSON(c, &input) {
		return
	}

	var claim *models.Claim
	var order *models.Order
	err := db.DB.Transaction(func(tx *gorm.DB) error {
		var err error
		claim, order, err = step(tx, input.Code, staff, time.Now())
		return err
	})
	if err != nil {
		if isClaimRejection(err) {
			verifyLimiter.Allow(limiterKey)
			logger.Warn("claim %s by staff %d rejected: %v", target, staff.ID, err)
		}
		bpiMetrics.ObserveClaimTransition(string(target), "rejected")
		respondError(c, err)
		return
	}

	bpiMetrics.ObserveClaimTransition(string(target), "ok")
	c.JSON(200, ClaimView{Claim: claim, Order: order})
}

func VerifyClaimCode(c *gin.Context) {
	handleClaimStep(c, models.ClaimVerified, VerifyClaim)
}

func CompleteClaimCode(c *gin.Context) {
	handleClaimStep(c, models.ClaimCompleted, CompleteClaim)
}

// LookupClaim shows staff the order behind a code without changing it.
func LookupClaim(c *gin.Context) {
	staff, ok := staffFromContext(c)
	if !ok {
		return
	}

	code := c.Param("code")
	if !models.ValidClaimCode(models.NormalizeClaimCode(code)) {
		respondError(c, models.ErrInvalidClaimCode)
		return
	}

	var claim models.Claim
	if err := db.DB.First(&claim, "code = ?", models.NormalizeClaimCode(code)).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			respondError(c, models.ErrInvalidClaimCode)
			return
		}
		respondError(c, err)
		return
	}
	if err := checkStaffCenter(staff, &claim); err != nil {
		respondError(c, err)
		return
	}

	var order models.Order
	if err := db.DB.Preload("Items").First(&order, claim.OrderID).Error; err != nil {
		respondError(c, err)
		return
	}

	c.JSON(200, ClaimView{Claim: &claim, Order: &order})
}

// GetCenterClaims lists the open claims of the staff member's center. Claims
// whose order was cancelled are left out.
func GetCenterClaims(c *gin.Context) {
	staff, ok := staffFromContext(c)
	if !ok {
		return
	}

	liveOrders := db.DB.Model(&models.Order{}).
		Select("id").
		Where("status IN ?", models.ClaimVerifiableOrderStatuses())
	query := db.DB.
		Where("status IN ?", []models.ClaimStatus{models.ClaimCodeIssued, models.ClaimVerified}).
		Where("order_id IN (?)", liveOrders)
	if !staff.IsAdmin() {
		if staff.PickupCenterID == nil {
			c.JSON(200, []models.Claim{})
			return
		}
		query = query.Where("pickup_center_id = ?", *staff.PickupCenterID)
	}

	var claims []models.Claim
	if err := query.Order("issued_at").Find(&claims).Error; err != nil {
		logger.Error("%v", err)
		c.Status(500)
		return
	}

	c.JSON(200, claims)
}

func GetPickupCenters(c *gin.Context) {
	centers, err := models.GetActivePickupCenters(nil)
	if err != nil {
		logger.Error("%v", err)
		c.Status(500)
		return
	}
	c.JSON(200, centers)
}
