package service

import (
	"strings"
	"testing"
	"time"

	"BPIApi/internal/models"
	"BPIApi/internal/testutil"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type claimFixture struct {
	conn     *gorm.DB
	customer *models.User
	admin    *models.User
	staff    *models.User
	outsider *models.User
	center   *models.PickupCenter
	order    *models.Order
}

// newClaimFixture places a pending pickup order paid by gateway.
func newClaimFixture(t *testing.T) *claimFixture {
	t.Helper()
	conn := testutil.SetupDB(t)
	useOptions(t, Options{})

	f := &claimFixture{conn: conn}
	f.center = createCenter(t, conn, "Ikeja")
	other := createCenter(t, conn, "Wuse")

	f.customer = testutil.CreateUser(t, conn, "customer", nil)
	f.admin = testutil.CreateUser(t, conn, "boss", nil)
	f.staff = testutil.CreateUser(t, conn, "clerk", nil)
	f.outsider = testutil.CreateUser(t, conn, "faraway", nil)
	require.NoError(t, conn.Model(f.admin).Update("role", models.RoleAdmin).Error)
	require.NoError(t, conn.Model(f.staff).Updates(map[string]interface{}{
		"role": models.RolePickupStaff, "pickup_center_id": f.center.ID,
	}).Error)
	require.NoError(t, conn.Model(f.outsider).Updates(map[string]interface{}{
		"role": models.RolePickupStaff, "pickup_center_id": other.ID,
	}).Error)
	f.admin.Role = models.RoleAdmin
	f.staff.Role, f.staff.PickupCenterID = models.RolePickupStaff, &f.center.ID
	f.outsider.Role, f.outsider.PickupCenterID = models.RolePickupStaff, &other.ID

	product := createProduct(t, conn, "Rice 50kg", 45000, 10)
	require.NoError(t, conn.Transaction(func(tx *gorm.DB) error {
		var err error
		f.order, err = PlaceOrder(tx, f.customer.ID, &checkoutInput{
			Items:          []checkoutItem{{ProductID: product.ID, Quantity: 1}},
			DeliveryMethod: models.DeliveryPickup,
			PickupCenterID: f.center.ID,
			PaymentMethod:  models.PaymentMethodPaystack,
		})
		return err
	}))
	return f
}

func (f *claimFixture) markPaid(t *testing.T) {
	t.Helper()
	require.NoError(t, f.conn.Transaction(func(tx *gorm.DB) error {
		return markOrderPaid(tx, f.order.ID, models.PaymentMethodPaystack)
	}))
}

func (f *claimFixture) issue(t *testing.T) (*models.Claim, error) {
	t.Helper()
	var claim *models.Claim
	err := f.conn.Transaction(func(tx *gorm.DB) error {
		var err error
		claim, _, err = IssueClaimCode(tx, f.order.ID, f.admin.ID, time.Now())
		return err
	})
	return claim, err
}

func (f *claimFixture) step(t *testing.T, step claimStep, code string, staff *models.User) (*models.Claim, error) {
	t.Helper()
	var claim *models.Claim
	err := f.conn.Transaction(func(tx *gorm.DB) error {
		var err error
		claim, _, err = step(tx, code, staff, time.Now())
		return err
	})
	return claim, err
}

func TestClaimLifecycle(t *testing.T) {
	f := newClaimFixture(t)
	require.NotNil(t, f.order.Claim)
	assert.Equal(t, models.ClaimNotReady, f.order.Claim.Status)

	_, err := f.issue(t)
	assert.ErrorIs(t, err, models.ErrOrderNotReady, "pending order")

	f.markPaid(t)
	claim, err := f.issue(t)
	require.NoError(t, err)
	require.NotNil(t, claim.Code)
	assert.True(t, models.ValidClaimCode(*claim.Code))
	assert.Equal(t, models.ClaimCodeIssued, claim.Status)
	assert.NotNil(t, claim.IssuedAt)

	_, err = f.issue(t)
	assert.ErrorIs(t, err, models.ErrClaimTransition, "code already issued")

	code := strings.ToLower(*claim.Code)

	_, err = f.step(t, CompleteClaim, code, f.staff)
	assert.ErrorIs(t, err, models.ErrClaimTransition, "complete before verify")

	_, err = f.step(t, VerifyClaim, code, f.outsider)
	assert.ErrorIs(t, err, models.ErrWrongPickupCenter)

	verified, err := f.step(t, VerifyClaim, code, f.staff)
	require.NoError(t, err)
	assert.Equal(t, models.ClaimVerified, verified.Status)
	assert.Equal(t, f.staff.ID, *verified.VerifiedBy)

	_, err = f.step(t, VerifyClaim, code, f.staff)
	assert.ErrorIs(t, err, models.ErrClaimTransition, "verify twice")

	completed, err := f.step(t, CompleteClaim, code, f.admin)
	require.NoError(t, err)
	assert.Equal(t, models.ClaimCompleted, completed.Status)
	assert.NotNil(t, completed.CompletedAt)

	var order models.Order
	require.NoError(t, f.conn.First(&order, f.order.ID).Error)
	assert.Equal(t, models.OrderCompleted, order.Status)

	_, err = f.step(t, CompleteClaim, code, f.staff)
	assert.ErrorIs(t, err, models.ErrClaimTransition, "already completed")
}

func TestVerifyRequiresPaidOrder(t *testing.T) {
	f := newClaimFixture(t)
	f.markPaid(t)
	claim, err := f.issue(t)
	require.NoError(t, err)

	require.NoError(t, f.conn.Transaction(func(tx *gorm.DB) error {
		return cancelOrder(tx, f.order.ID)
	}))

	_, err = f.step(t, VerifyClaim, *claim.Code, f.staff)
	assert.ErrorIs(t, err, models.ErrOrderNotReady)
}

func TestVerifyRejectsMalformedAndUnknownCodes(t *testing.T) {
	f := newClaimFixture(t)

	for _, code := range []string{"", "BPI-12345-PC", "BPI-1234567-PC", "XYZ-123456-PC", "BPI-123456-PX"} {
		_, err := f.step(t, VerifyClaim, code, f.staff)
		assert.ErrorIs(t, err, models.ErrInvalidClaimCode, code)
	}

	_, err := f.step(t, VerifyClaim, "BPI-000000-PC", f.staff)
	assert.ErrorIs(t, err, models.ErrInvalidClaimCode)
}

func TestIssueClaimCodeForDeliveryOrder(t *testing.T) {
	conn := testutil.SetupDB(t)
	useOptions(t, Options{})
	customer := testutil.CreateUser(t, conn, "home", nil)
	fund(t, customer, 10000)
	product := createProduct(t, conn, "Oil", 2500, 5)

	var order *models.Order
	require.NoError(t, conn.Transaction(func(tx *gorm.DB) error {
		var err error
		order, err = PlaceOrder(tx, customer.ID, &checkoutInput{
			Items:           []checkoutItem{{ProductID: product.ID, Quantity: 2}},
			DeliveryMethod:  models.DeliveryHome,
			DeliveryAddress: "12 Allen Avenue",
			PaymentMethod:   models.PaymentMethodWallet,
		})
		return err
	}))
	assert.Nil(t, order.Claim)

	err := conn.Transaction(func(tx *gorm.DB) error {
		_, _, err := IssueClaimCode(tx, order.ID, customer.ID, time.Now())
		return err
	})
	assert.ErrorIs(t, err, models.ErrNotPickupOrder)
}

func TestVerifyHandlerLimitsRejectedAttempts(t *testing.T) {
	f := newClaimFixture(t)

	r := gin.New()
	r.POST("/verify", asUser(f.staff), VerifyClaimCode)

	// VerifyBurst is 3 in tests
	for i := 0; i < 3; i++ {
		w := doJSON(r, "POST", "/verify", gin.H{"code": "BPI-999999-PC"})
		assert.Equal(t, 400, w.Code)
	}

	w := doJSON(r, "POST", "/verify", gin.H{"code": "BPI-999999-PC"})
	assert.Equal(t, 429, w.Code)
}

func TestVerifyHandlerSuccess(t *testing.T) {
	f := newClaimFixture(t)
	f.markPaid(t)
	claim, err := f.issue(t)
	require.NoError(t, err)

	r := gin.New()
	r.POST("/verify", asUser(f.staff), VerifyClaimCode)
	r.GET("/claims/:code", asUser(f.outsider), LookupClaim)

	w := doJSON(r, "POST", "/verify", gin.H{"code": *claim.Code})
	require.Equal(t, 200, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), `"status":"VERIFIED"`)

	w = doJSON(r, "GET", "/claims/"+*claim.Code, nil)
	assert.Equal(t, 403, w.Code)
}

func TestVerifiedClaimBlocksCancellation(t *testing.T) {
	f := newClaimFixture(t)
	f.markPaid(t)
	claim, err := f.issue(t)
	require.NoError(t, err)

	_, err = f.step(t, VerifyClaim, *claim.Code, f.staff)
	require.NoError(t, err)

	err = f.conn.Transaction(func(tx *gorm.DB) error {
		_, err := SetOrderStatus(tx, f.order.ID, models.OrderCancelled)
		return err
	})
	assert.ErrorIs(t, err, models.ErrClaimInProgress)

	var order models.Order
	require.NoError(t, f.conn.First(&order, f.order.ID).Error)
	assert.Equal(t, models.OrderPaid, order.Status)
	assert.InDelta(t, 0, reloadUser(t, f.conn, f.customer.ID).CashBalance, 0.0001, "no refund")

	// an order pulled out from under a verified claim
	require.NoError(t, f.conn.Model(&models.Order{}).
		Where("id = ?", f.order.ID).
		Update("status", models.OrderCancelled).Error)

	_, err = f.step(t, CompleteClaim, *claim.Code, f.staff)
	assert.ErrorIs(t, err, models.ErrOrderNotReady)

	var reloaded models.Claim
	require.NoError(t, f.conn.First(&reloaded, claim.ID).Error)
	assert.Equal(t, models.ClaimVerified, reloaded.Status)
}

func TestCenterClaimsSkipCancelledOrders(t *testing.T) {
	f := newClaimFixture(t)
	f.markPaid(t)
	_, err := f.issue(t)
	require.NoError(t, err)

	r := gin.New()
	r.GET("/claims", asUser(f.staff), GetCenterClaims)

	w := doJSON(r, "GET", "/claims", nil)
	require.Equal(t, 200, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"CODE_ISSUED"`)

	require.NoError(t, f.conn.Transaction(func(tx *gorm.DB) error {
		return cancelOrder(tx, f.order.ID)
	}))

	w = doJSON(r, "GET", "/claims", nil)
	require.Equal(t, 200, w.Code)
	assert.JSONEq(t, `[]`, w.Body.String())
}
