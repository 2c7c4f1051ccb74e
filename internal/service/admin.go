package service

import (
	"BPIApi/cmd/db"
	"BPIApi/internal/models"
	"BPIApi/pkg/logger"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"gorm.io/gorm"
)

const (
	adminStatsKey = "bpi:admin:stats"
	adminStatsTTL = 60 * time.Second
)

var errShareholderPercent = errors.New("active shareholder percentages exceed 100")

type AdminStats struct {
	Users              int64                   `json:"users"`
	ActiveMembers      int64                   `json:"active_members"`
	MembershipRevenue  float64                 `json:"membership_revenue"`
	StoreRevenue       float64                 `json:"store_revenue"`
	Pools              map[models.Pool]float64 `json:"pools"`
	PendingPools       map[models.Pool]float64 `json:"pending_pools"`
	PendingWithdrawals int64                   `json:"pending_withdrawals"`
	PendingClaims      int64                   `json:"pending_claims"`
	GeneratedAt        time.Time               `json:"generated_at"`
}

func collectAdminStats(tx *gorm.DB) (*AdminStats, error) {
	if tx == nil {
		tx = db.DB
	}

	stats := AdminStats{GeneratedAt: time.Now()}

	if err := tx.Model(&models.User{}).Count(&stats.Users).Error; err != nil {
		return nil, logger.WrapError(err, "")
	}
	if err := tx.Model(&models.User{}).Where("activated = ?", true).
		Count(&stats.ActiveMembers).Error; err != nil {
		return nil, logger.WrapError(err, "")
	}

	var revenue sql.NullFloat64
	if err := tx.Model(&models.Membership{}).Select("SUM(amount_paid)").
		Scan(&revenue).Error; err != nil {
		return nil, logger.WrapError(err, "")
	}
	stats.MembershipRevenue = revenue.Float64

	revenue = sql.NullFloat64{}
	paid := []models.OrderStatus{models.OrderPaid, models.OrderProcessing, models.OrderDelivered, models.OrderCompleted}
	if err := tx.Model(&models.Order{}).Select("SUM(total)").
		Where("status IN ?", paid).Scan(&revenue).Error; err != nil {
		return nil, logger.WrapError(err, "")
	}
	stats.StoreRevenue = revenue.Float64

	var err error
	if stats.Pools, err = models.PoolTotals(tx, ""); err != nil {
		return nil, err
	}
	if stats.PendingPools, err = models.PoolTotals(tx, models.AllocationPending); err != nil {
		return nil, err
	}

	if err := tx.Model(&models.Withdrawal{}).Where("status = ?", models.WithdrawalPending).
		Count(&stats.PendingWithdrawals).Error; err != nil {
		return nil, logger.WrapError(err, "")
	}
	if err := tx.Model(&models.Claim{}).Where("status IN ?",
		[]models.ClaimStatus{models.ClaimCodeIssued, models.ClaimVerified}).
		Count(&stats.PendingClaims).Error; err != nil {
		return nil, logger.WrapError(err, "")
	}

	return &stats, nil
}

func GetAdminStats(c *gin.Context) {
	ctx := c.Request.Context()

	if cache != nil {
		cached, err := cache.GetKey(ctx, adminStatsKey)
		if err == nil {
			c.Data(200, "application/json; charset=utf-8", []byte(cached))
			return
		}
		if !errors.Is(err, redis.Nil) {
			logger.Warn("admin stats cache: %v", err)
		}
	}

	stats, err := collectAdminStats(nil)
	if err != nil {
		logger.Error("%v", err)
		c.Status(500)
		return
	}

	if cache != nil {
		if raw, err := json.Marshal(stats); err == nil {
			if err := cache.SetKey(ctx, adminStatsKey, raw, adminStatsTTL); err != nil {
				logger.Warn("admin stats cache: %v", err)
			}
		}
	}

	c.JSON(200, stats)
}

// invalidateAdminStats drops the cached stats after admin writes.
func invalidateAdminStats(ctx context.Context) {
	if cache == nil {
		return
	}
	if err := cache.DeleteKey(ctx, adminStatsKey); err != nil {
		logger.Warn("admin stats cache: %v", err)
	}
}

func AdminListUsers(c *gin.Context) {
	page, pageSize := pagination(c)

	query := db.DB.Model(&models.User{})
	if search := c.Query("search"); search != "" {
		like := "%" + search + "%"
		query = query.Where("username LIKE ? OR email LIKE ? OR full_name LIKE ?", like, like, like)
	}
	if role := c.Query("role"); role != "" {
		query = query.Where("role = ?", role)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		logger.Error("%v", err)
		c.Status(500)
		return
	}

	var users []models.User
	if err := query.Order("id DESC").Offset((page - 1) * pageSize).Limit(pageSize).
		Find(&users).Error; err != nil {
		logger.Error("%v", err)
		c.Status(500)
		return
	}

	c.JSON(200, gin.H{"items": users, "total": total, "page": page, "page_size": pageSize})
}

type roleInput struct {
	Role           models.Role `json:"role" validate:"required,oneof=USER ADMIN PICKUP_STAFF"`
	PickupCenterID *int64      `json:"pickup_center_id"`
}

// AdminSetUserRole changes a user's role. Pickup staff must be bound to an
// active center; other roles lose any center binding.
func AdminSetUserRole(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}

	var input roleInput
	if !bindJSON(c, &input) {
		return
	}

	var user models.User
	err := db.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&user, id).Error; err != nil {
			return logger.WrapError(err, "")
		}

		user.Role = input.Role
		user.PickupCenterID = nil
		if input.Role == models.RolePickupStaff {
			if input.PickupCenterID == nil {
				return models.ErrPickupCenterUnavailable
			}
			if err := models.EnsureActivePickupCenter(tx, *input.PickupCenterID); err != nil {
				return err
			}
			user.PickupCenterID = input.PickupCenterID
		}

		return tx.Model(&user).Select("role", "pickup_center_id").Updates(&user).Error
	})
	if err != nil {
		respondError(c, err)
		return
	}

	logger.Info("user %d role set to %s", user.ID, user.Role)
	c.JSON(200, user)
}

func AdminListPickupCenters(c *gin.Context) {
	var centers []models.PickupCenter
	if err := db.DB.Order("id").Find(&centers).Error; err != nil {
		logger.Error("%v", err)
		c.Status(500)
		return
	}
	c.JSON(200, centers)
}

type pickupCenterInput struct {
	Name    string `json:"name" validate:"required,max=120"`
	Address string `json:"address" validate:"required"`
	City    string `json:"city" validate:"required,max=64"`
	State   string `json:"state" validate:"required,max=64"`
	Phone   string `json:"phone" validate:"max=32"`
	Active  *bool  `json:"active"`
}

func (i *pickupCenterInput) apply(pc *models.PickupCenter) {
	pc.Name = i.Name
	pc.Address = i.Address
	pc.City = i.City
	pc.State = i.State
	pc.Phone = i.Phone
	if i.Active != nil {
		pc.Active = *i.Active
	}
}

func AdminCreatePickupCenter(c *gin.Context) {
	var input pickupCenterInput
	if !bindJSON(c, &input) {
		return
	}

	center := models.PickupCenter{Active: true}
	input.apply(&center)
	if err := db.DB.Create(&center).Error; err != nil {
		logger.Error("%v", err)
		c.Status(500)
		return
	}
	c.JSON(201, center)
}

func AdminUpdatePickupCenter(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}

	var input pickupCenterInput
	if !bindJSON(c, &input) {
		return
	}

	var center models.PickupCenter
	if err := db.DB.First(&center, id).Error; err != nil {
		respondError(c, err)
		return
	}

	input.apply(&center)
	if err := db.DB.Save(&center).Error; err != nil {
		logger.Error("%v", err)
		c.Status(500)
		return
	}
	c.JSON(200, center)
}

func AdminListShareholders(c *gin.Context) {
	var holders []models.ExecutiveShareholder
	if err := db.DB.Preload("User").Order("id").Find(&holders).Error; err != nil {
		logger.Error("%v", err)
		c.Status(500)
		return
	}
	c.JSON(200, holders)
}

type shareholderInput struct {
	UserID  int64   `json:"user_id" validate:"required,gt=0"`
	Title   string  `json:"title" validate:"max=120"`
	Percent float64 `json:"percent" validate:"gt=0,lte=100"`
	Active  *bool   `json:"active"`
}

// saveShareholder writes holder and rejects the change when the active
// percentages would sum above 100.
func saveShareholder(tx *gorm.DB, holder *models.ExecutiveShareholder) error {
	if err := tx.Save(holder).Error; err != nil {
		return logger.WrapError(err, "")
	}

	var sum sql.NullFloat64
	if err := tx.Model(&models.ExecutiveShareholder{}).Select("SUM(percent)").
		Where("active = ?", true).Scan(&sum).Error; err != nil {
		return logger.WrapError(err, "")
	}
	if sum.Float64 > 100+amountTolerance {
		return errShareholderPercent
	}

	return nil
}

func respondShareholderError(c *gin.Context, err error) {
	if errors.Is(err, errShareholderPercent) {
		c.JSON(400, gin.H{"error": err.Error()})
		return
	}
	respondError(c, err)
}

func AdminCreateShareholder(c *gin.Context) {
	var input shareholderInput
	if !bindJSON(c, &input) {
		return
	}

	holder := models.ExecutiveShareholder{
		UserID:  input.UserID,
		Title:   input.Title,
		Percent: input.Percent,
		Active:  input.Active == nil || *input.Active,
	}
	err := db.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Select("id").First(&models.User{}, input.UserID).Error; err != nil {
			return logger.WrapError(err, "")
		}
		return saveShareholder(tx, &holder)
	})
	if err != nil {
		respondShareholderError(c, err)
		return
	}
	c.JSON(201, holder)
}

func AdminUpdateShareholder(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}

	var input shareholderInput
	if !bindJSON(c, &input) {
		return
	}

	var holder models.ExecutiveShareholder
	err := db.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&holder, id).Error; err != nil {
			return logger.WrapError(err, "")
		}
		holder.Title = input.Title
		holder.Percent = input.Percent
		if input.Active != nil {
			holder.Active = *input.Active
		}
		return saveShareholder(tx, &holder)
	})
	if err != nil {
		respondShareholderError(c, err)
		return
	}
	c.JSON(200, holder)
}

// GetPoolTotals reports pending and distributed totals per pool plus the
// executive distribution history.
func GetPoolTotals(c *gin.Context) {
	all, err := models.PoolTotals(nil, "")
	if err != nil {
		logger.Error("%v", err)
		c.Status(500)
		return
	}
	pending, err := models.PoolTotals(nil, models.AllocationPending)
	if err != nil {
		logger.Error("%v", err)
		c.Status(500)
		return
	}

	var runs []models.ExecutiveDistribution
	if err := db.DB.Order("id DESC").Limit(100).Find(&runs).Error; err != nil {
		logger.Error("%v", err)
		c.Status(500)
		return
	}

	c.JSON(200, gin.H{"total": all, "pending": pending, "distributions": runs})
}
