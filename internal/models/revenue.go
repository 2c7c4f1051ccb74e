package models

import (
	"BPIApi/cmd/db"
	"BPIApi/pkg/logger"
	"database/sql"
	"time"

	"gorm.io/gorm"
)

type Pool string

const (
	PoolCompany   Pool = "COMPANY"
	PoolExecutive Pool = "EXECUTIVE"
	PoolStrategic Pool = "STRATEGIC"
)

type AllocationStatus string

const (
	AllocationPending     AllocationStatus = "PENDING"
	AllocationDistributed AllocationStatus = "DISTRIBUTED"
)

type RevenueSource string

const (
	SourceMembership RevenueSource = "MEMBERSHIP"
	SourceStoreOrder RevenueSource = "STORE_ORDER"
)

// RevenueAllocation is one pool's share of a revenue event.
type RevenueAllocation struct {
	ID            int64            `gorm:"primaryKey;autoIncrement" json:"id"`
	SourceType    RevenueSource    `gorm:"size:32;index:idx_alloc_source" json:"source_type"`
	SourceID      int64            `gorm:"index:idx_alloc_source" json:"source_id"`
	Pool          Pool             `gorm:"size:16;index" json:"pool"`
	Percent       float64          `json:"percent"`
	Amount        float64          `json:"amount"`
	Status        AllocationStatus `gorm:"size:16;index;default:PENDING" json:"status"`
	DistributedAt *time.Time       `json:"distributed_at,omitempty"`
	RunReference  string           `gorm:"size:64;index" json:"run_reference,omitempty"`
	CreatedAt     time.Time        `json:"created_at"`
}

// ExecutiveShareholder owns Percent of every executive pool distribution.
type ExecutiveShareholder struct {
	ID        int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID    int64     `gorm:"uniqueIndex;not null" json:"user_id"`
	User      *User     `gorm:"foreignKey:UserID" json:"user,omitempty"`
	Title     string    `json:"title"`
	Percent   float64   `gorm:"not null" json:"percent"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type ExecutiveDistribution struct {
	ID            int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	RunReference  string    `gorm:"size:64;index" json:"run_reference"`
	ShareholderID int64     `gorm:"index" json:"shareholder_id"`
	UserID        int64     `gorm:"index" json:"user_id"`
	PoolAmount    float64   `json:"pool_amount"`
	Percent       float64   `json:"percent"`
	Amount        float64   `json:"amount"`
	CreatedAt     time.Time `json:"created_at"`
}

// PoolTotals sums allocations per pool for the given status; an empty status
// means every allocation.
func PoolTotals(tx *gorm.DB, status AllocationStatus) (map[Pool]float64, error) {
	if tx == nil {
		tx = db.DB
	}

	type row struct {
		Pool  Pool
		Total sql.NullFloat64
	}

	query := tx.Model(&RevenueAllocation{}).Select("pool, SUM(amount) AS total")
	if status != "" {
		query = query.Where("status = ?", status)
	}

	var rows []row
	if err := query.Group("pool").Scan(&rows).Error; err != nil {
		return nil, logger.WrapError(err, "")
	}

	totals := map[Pool]float64{PoolCompany: 0, PoolExecutive: 0, PoolStrategic: 0}
	for _, r := range rows {
		if r.Total.Valid {
			totals[r.Pool] = r.Total.Float64
		}
	}

	return totals, nil
}

func GetActiveShareholders(tx *gorm.DB) ([]ExecutiveShareholder, error) {
	if tx == nil {
		tx = db.DB
	}

	var holders []ExecutiveShareholder
	if err := tx.Where("active = ?", true).Order("id").Find(&holders).Error; err != nil {
		return nil, logger.WrapError(err, "")
	}

	return holders, nil
}
