package service

import (
	"BPIApi/cmd/db"
	"BPIApi/internal/models"
	"BPIApi/pkg/logger"
	"errors"
	"fmt"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

func GetProducts(c *gin.Context) {
	products, err := models.GetActiveProducts(nil)
	if err != nil {
		logger.Error("%v", err)
		c.Status(500)
		return
	}
	c.JSON(200, products)
}

func GetProduct(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}

	var product models.Product
	if err := db.DB.Where("active = ?", true).First(&product, id).Error; err != nil {
		respondError(c, err)
		return
	}
	c.JSON(200, product)
}

type checkoutItem struct {
	ProductID int64 `json:"product_id" validate:"required,gt=0"`
	Quantity  int   `json:"quantity" validate:"required,min=1,max=100"`
}

type checkoutInput struct {
	Items           []checkoutItem        `json:"items" validate:"required,min=1,max=50,dive"`
	DeliveryMethod  models.DeliveryMethod `json:"delivery_method" validate:"required,oneof=PICKUP DELIVERY"`
	PickupCenterID  int64                 `json:"pickup_center_id"`
	DeliveryAddress string                `json:"delivery_address" validate:"max=255"`
	PaymentMethod   models.PaymentMethod  `json:"payment_method" validate:"required,oneof=WALLET PAYSTACK FLUTTERWAVE"`
}

var (
	errPickupCenterRequired = errors.New("pickup_center_id is required for pickup orders")
	errAddressRequired      = errors.New("delivery_address is required for delivery orders")
)

func (i *checkoutInput) check() error {
	if i.DeliveryMethod == models.DeliveryPickup && i.PickupCenterID < 1 {
		return errPickupCenterRequired
	}
	if i.DeliveryMethod == models.DeliveryHome && strings.TrimSpace(i.DeliveryAddress) == "" {
		return errAddressRequired
	}
	return nil
}

// quantities merges repeated products of the basket.
func (i *checkoutInput) quantities() ([]int64, map[int64]int) {
	var ids []int64
	qty := make(map[int64]int)
	for _, item := range i.Items {
		if _, seen := qty[item.ProductID]; !seen {
			ids = append(ids, item.ProductID)
		}
		qty[item.ProductID] += item.Quantity
	}
	return ids, qty
}

// PlaceOrder reserves stock and creates the order, with a NOT_READY claim
// for pickup orders. Wallet orders are paid inside the same transaction.
func PlaceOrder(tx *gorm.DB, userID int64, input *checkoutInput) (*models.Order, error) {
	if input.DeliveryMethod == models.DeliveryPickup {
		if err := models.EnsureActivePickupCenter(tx, input.PickupCenterID); err != nil {
			return nil, err
		}
	}

	ids, qty := input.quantities()
	order := models.Order{
		UserID:         userID,
		Status:         models.OrderPending,
		DeliveryMethod: input.DeliveryMethod,
		PaymentMethod:  input.PaymentMethod,
		Reference:      "ORD-" + strings.ToUpper(uuid.NewString()),
	}
	if input.DeliveryMethod == models.DeliveryPickup {
		order.PickupCenterID = &input.PickupCenterID
	} else {
		order.DeliveryAddress = strings.TrimSpace(input.DeliveryAddress)
	}

	total := decimal.Zero
	for _, id := range ids {
		var product models.Product
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("active = ?", true).
			First(&product, id).Error
		if err != nil && errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: product %d", models.ErrOutOfStock, id)
		} else if err != nil {
			return nil, logger.WrapError(err, "")
		}

		if product.Stock < qty[id] {
			return nil, fmt.Errorf("%w: %s", models.ErrOutOfStock, product.Name)
		}
		if err = tx.Model(&product).
			Update("stock", gorm.Expr("stock - ?", qty[id])).Error; err != nil {
			return nil, logger.WrapError(err, "")
		}

		order.Items = append(order.Items, models.OrderItem{
			ProductID: product.ID,
			Name:      product.Name,
			UnitPrice: product.Price,
			Quantity:  qty[id],
		})
		total = total.Add(decimal.NewFromFloat(product.Price).Mul(decimal.NewFromInt(int64(qty[id]))))
	}
	order.Total = total.InexactFloat64()

	if err := tx.Create(&order).Error; err != nil {
		return nil, logger.WrapError(err, "")
	}

	if order.PickupCenterID != nil {
		claim := models.Claim{
			OrderID:        order.ID,
			PickupCenterID: *order.PickupCenterID,
			Status:         models.ClaimNotReady,
		}
		if err := tx.Create(&claim).Error; err != nil {
			return nil, logger.WrapError(err, "")
		}
		order.Claim = &claim
	}

	if input.PaymentMethod == models.PaymentMethodWallet {
		if _, err := models.DebitWallet(tx, models.LedgerEntry{
			UserID:      userID,
			Wallet:      models.WalletCash,
			Amount:      order.Total,
			Type:        models.TxStorePurchase,
			Description: fmt.Sprintf("Store order %s", order.Reference),
			Reference:   order.Reference,
		}); err != nil {
			return nil, err
		}
		if err := markOrderPaid(tx, order.ID, models.PaymentMethodWallet); err != nil {
			return nil, err
		}
		order.Status = models.OrderPaid
	}

	return &order, nil
}

func Checkout(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var input checkoutInput
	if !bindJSON(c, &input) {
		return
	}
	if err := input.check(); err != nil {
		c.JSON(400, gin.H{"error": err.Error()})
		return
	}

	var order *models.Order
	err := db.DB.Transaction(func(tx *gorm.DB) error {
		var err error
		order, err = PlaceOrder(tx, userID, &input)
		return err
	})
	if err != nil {
		respondError(c, err)
		return
	}

	if input.PaymentMethod == models.PaymentMethodWallet {
		c.JSON(201, gin.H{"order": order})
		return
	}

	payment, err := initCheckout(c, userID, input.PaymentMethod, models.PurposeStoreOrder, order.ID, order.Total)
	if err != nil {
		// release the reserved stock
		if cancelErr := db.DB.Transaction(func(tx *gorm.DB) error {
			return cancelOrder(tx, order.ID)
		}); cancelErr != nil {
			logger.Error("%v", cancelErr)
		}
		respondCheckoutError(c, err)
		return
	}

	c.JSON(201, gin.H{"order": order, "payment": payment})
}

// markOrderPaid moves a PENDING order to PAID and allocates its revenue. An
// order cancelled before the payment arrived is credited back to the wallet.
func markOrderPaid(tx *gorm.DB, orderID int64, method models.PaymentMethod) error {
	var order models.Order
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&order, orderID).Error; err != nil {
		return logger.WrapError(err, "")
	}

	if order.Status == models.OrderCancelled {
		_, err := models.CreditWallet(tx, models.LedgerEntry{
			UserID:      order.UserID,
			Wallet:      models.WalletCash,
			Amount:      order.Total,
			Type:        models.TxAdjustment,
			Description: fmt.Sprintf("Payment for cancelled order %s credited", order.Reference),
			Reference:   order.Reference,
		})
		return err
	}
	if !order.Status.CanMoveTo(models.OrderPaid) {
		return fmt.Errorf("%w: %s -> %s", models.ErrOrderTransition, order.Status, models.OrderPaid)
	}

	if err := tx.Model(&order).Updates(map[string]interface{}{
		"status":         models.OrderPaid,
		"payment_method": method,
	}).Error; err != nil {
		return logger.WrapError(err, "")
	}

	if _, err := AllocateRevenue(tx, models.SourceStoreOrder, order.ID, order.Total); err != nil {
		return logger.WrapError(err, "")
	}

	return models.CreateNotification(tx, order.UserID, "Order paid",
		fmt.Sprintf("We received the payment for order %s.", order.Reference))
}

// cancelOrder cancels an order, restocks its items, refunds a paid order to
// the cash wallet and drops its undistributed revenue allocations. A pickup
// order whose claim was already verified at the counter cannot be cancelled.
func cancelOrder(tx *gorm.DB, orderID int64) error {
	var order models.Order
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Preload("Items").
		First(&order, orderID).Error; err != nil {
		return err
	}
	if !order.Status.CanMoveTo(models.OrderCancelled) {
		return fmt.Errorf("%w: %s -> %s", models.ErrOrderTransition, order.Status, models.OrderCancelled)
	}

	if order.DeliveryMethod == models.DeliveryPickup {
		claim, err := models.LockClaimByOrderID(tx, order.ID)
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return logger.WrapError(err, "")
		}
		if claim != nil && (claim.Status == models.ClaimVerified || claim.Status == models.ClaimCompleted) {
			return fmt.Errorf("%w: order %s", models.ErrClaimInProgress, order.Reference)
		}
	}

	for _, item := range order.Items {
		if err := tx.Model(&models.Product{}).
			Where("id = ?", item.ProductID).
			Update("stock", gorm.Expr("stock + ?", item.Quantity)).Error; err != nil {
			return logger.WrapError(err, "")
		}
	}

	if order.Status != models.OrderPending {
		if _, err := models.CreditWallet(tx, models.LedgerEntry{
			UserID:      order.UserID,
			Wallet:      models.WalletCash,
			Amount:      order.Total,
			Type:        models.TxAdjustment,
			Description: fmt.Sprintf("Refund for cancelled order %s", order.Reference),
			Reference:   order.Reference,
		}); err != nil {
			return logger.WrapError(err, "")
		}

		if err := tx.Where("source_type = ? AND source_id = ? AND status = ?",
			models.SourceStoreOrder, order.ID, models.AllocationPending).
			Delete(&models.RevenueAllocation{}).Error; err != nil {
			return logger.WrapError(err, "")
		}
	}

	if err := tx.Model(&order).Update("status", models.OrderCancelled).Error; err != nil {
		return logger.WrapError(err, "")
	}

	return models.CreateNotification(tx, order.UserID, "Order cancelled",
		fmt.Sprintf("Your order %s was cancelled.", order.Reference))
}

func GetUserOrders(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var orders []models.Order
	if err := db.DB.Preload("Items").Preload("Claim").
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&orders).Error; err != nil {
		logger.Error("%v", err)
		c.Status(500)
		return
	}

	c.JSON(200, orders)
}

func GetUserOrder(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	id, ok := idParam(c, "id")
	if !ok {
		return
	}

	order, err := models.GetUserOrder(nil, userID, id)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(200, order)
}

type productInput struct {
	Name        string  `json:"name" validate:"required,max=128"`
	Description string  `json:"description"`
	ImageURL    string  `json:"image_url" validate:"omitempty,url"`
	Price       float64 `json:"price" validate:"required,gt=0"`
	Stock       int     `json:"stock" validate:"gte=0"`
	Active      *bool   `json:"active"`
}

func (i *productInput) apply(p *models.Product) {
	p.Name = i.Name
	p.Description = i.Description
	p.ImageURL = i.ImageURL
	p.Price = i.Price
	p.Stock = i.Stock
	if i.Active != nil {
		p.Active = *i.Active
	}
}

func AdminListProducts(c *gin.Context) {
	var products []models.Product
	if err := db.DB.Order("name").Find(&products).Error; err != nil {
		logger.Error("%v", err)
		c.Status(500)
		return
	}
	c.JSON(200, products)
}

func AdminCreateProduct(c *gin.Context) {
	var input productInput
	if !bindJSON(c, &input) {
		return
	}

	product := models.Product{Active: true}
	input.apply(&product)
	if err := db.DB.Create(&product).Error; err != nil {
		logger.Error("%v", err)
		c.Status(500)
		return
	}
	c.JSON(201, product)
}

func AdminUpdateProduct(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}

	var input productInput
	if !bindJSON(c, &input) {
		return
	}

	var product models.Product
	if err := db.DB.First(&product, id).Error; err != nil {
		respondError(c, err)
		return
	}

	input.apply(&product)
	if err := db.DB.Save(&product).Error; err != nil {
		logger.Error("%v", err)
		c.Status(500)
		return
	}
	c.JSON(200, product)
}

// AdminDeleteProduct hides the product; order items keep referencing it.
func AdminDeleteProduct(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}

	res := db.DB.Model(&models.Product{}).Where("id = ?", id).Update("active", false)
	if res.Error != nil {
		logger.Error("%v", res.Error)
		c.Status(500)
		return
	}
	if res.RowsAffected == 0 {
		c.JSON(404, gin.H{"error": "Product not found"})
		return
	}
	c.Status(204)
}

func AdminListOrders(c *gin.Context) {
	page, pageSize := pagination(c)
	query := db.DB.Preload("Items").Preload("Claim")
	if status := strings.ToUpper(c.Query("status")); status != "" {
		query = query.Where("status = ?", status)
	}

	var orders []models.Order
	if err := query.Order("created_at DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&orders).Error; err != nil {
		logger.Error("%v", err)
		c.Status(500)
		return
	}
	c.JSON(200, orders)
}

type orderStatusInput struct {
	Status models.OrderStatus `json:"status" validate:"required,oneof=PROCESSING DELIVERED COMPLETED CANCELLED"`
}

var errPickupCompletesByClaim = errors.New("pickup orders complete through their claim code")

// SetOrderStatus moves an order forward on behalf of an admin.
func SetOrderStatus(tx *gorm.DB, orderID int64, next models.OrderStatus) (*models.Order, error) {
	if next == models.OrderCancelled {
		if err := cancelOrder(tx, orderID); err != nil {
			return nil, err
		}
	} else {
		var order models.Order
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&order, orderID).Error; err != nil {
			return nil, err
		}
		if next == models.OrderCompleted && order.DeliveryMethod == models.DeliveryPickup {
			return nil, errPickupCompletesByClaim
		}
		if !order.Status.CanMoveTo(next) {
			return nil, fmt.Errorf("%w: %s -> %s", models.ErrOrderTransition, order.Status, next)
		}
		if err := tx.Model(&order).Update("status", next).Error; err != nil {
			return nil, logger.WrapError(err, "")
		}
		if err := models.CreateNotification(tx, order.UserID, "Order update",
			fmt.Sprintf("Order %s is now %s.", order.Reference, strings.ToLower(string(next)))); err != nil {
			return nil, err
		}
	}

	var order models.Order
	if err := tx.Preload("Items").Preload("Claim").First(&order, orderID).Error; err != nil {
		return nil, logger.WrapError(err, "")
	}
	return &order, nil
}

func AdminUpdateOrderStatus(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}

	var input orderStatusInput
	if !bindJSON(c, &input) {
		return
	}

	var order *models.Order
	err := db.DB.Transaction(func(tx *gorm.DB) error {
		var err error
		order, err = SetOrderStatus(tx, id, input.Status)
		return err
	})
	if err != nil && errors.Is(err, errPickupCompletesByClaim) {
		c.JSON(409, gin.H{"error": err.Error()})
		return
	} else if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(200, order)
}
