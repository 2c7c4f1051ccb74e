package service

import (
	"BPIApi/cmd/db"
	"BPIApi/internal/models"
	"BPIApi/pkg/logger"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// DistributionResult summarises one executive pool run.
type DistributionResult struct {
	RunReference string  `json:"run_reference"`
	PoolAmount   float64 `json:"pool_amount"`
	Distributed  float64 `json:"distributed"`
	Allocations  int     `json:"allocations"`
	Shareholders int     `json:"shareholders"`
}

// DistributeExecutivePool pays every PENDING executive allocation out to the
// active shareholders by their percent and marks the allocations
// DISTRIBUTED. Shares of a shareholder set summing below 100% leave the
// remainder with the company. Without active shareholders nothing changes.
func DistributeExecutivePool(tx *gorm.DB, now time.Time) (*DistributionResult, error) {
	var allocations []models.RevenueAllocation
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("pool = ? AND status = ?", models.PoolExecutive, models.AllocationPending).
		Order("id").
		Find(&allocations).Error; err != nil {
		return nil, logger.WrapError(err, "")
	}

	result := &DistributionResult{Allocations: len(allocations)}
	if len(allocations) == 0 {
		return result, nil
	}

	pool := decimal.Zero
	ids := make([]int64, 0, len(allocations))
	for _, a := range allocations {
		pool = pool.Add(decimal.NewFromFloat(a.Amount))
		ids = append(ids, a.ID)
	}
	result.PoolAmount = pool.InexactFloat64()

	holders, err := models.GetActiveShareholders(tx)
	if err != nil {
		return nil, logger.WrapError(err, "")
	}
	if len(holders) == 0 {
		logger.Warn("Executive pool of %v left pending: no active shareholders", result.PoolAmount)
		result.Allocations = 0
		return result, nil
	}

	result.RunReference = fmt.Sprintf("EXD-%s-%s", now.Format("20060102"),
		strings.ToUpper(uuid.NewString()[:8]))

	distributed := decimal.Zero
	for _, h := range holders {
		amount := SplitAmount(result.PoolAmount, h.Percent)
		if amount <= 0 {
			continue
		}

		if _, err = models.CreditWallet(tx, models.LedgerEntry{
			UserID:      h.UserID,
			Wallet:      models.WalletCash,
			Amount:      amount,
			Type:        models.TxExecutiveShare,
			Description: fmt.Sprintf("Executive pool share %v%% (%s)", h.Percent, h.Title),
			Reference:   result.RunReference,
		}); err != nil {
			return nil, logger.WrapError(err, "")
		}

		if err = tx.Create(&models.ExecutiveDistribution{
			RunReference:  result.RunReference,
			ShareholderID: h.ID,
			UserID:        h.UserID,
			PoolAmount:    result.PoolAmount,
			Percent:       h.Percent,
			Amount:        amount,
		}).Error; err != nil {
			return nil, logger.WrapError(err, "")
		}

		distributed = distributed.Add(decimal.NewFromFloat(amount))
		result.Shareholders++
	}
	result.Distributed = distributed.InexactFloat64()

	if err = tx.Model(&models.RevenueAllocation{}).
		Where("id IN ?", ids).
		Updates(map[string]interface{}{
			"status":         models.AllocationDistributed,
			"distributed_at": now,
			"run_reference":  result.RunReference,
		}).Error; err != nil {
		return nil, logger.WrapError(err, "")
	}

	return result, nil
}

// runDistribution wraps DistributeExecutivePool in its own transaction.
func runDistribution(trigger string) (*DistributionResult, error) {
	var result *DistributionResult
	err := db.DB.Transaction(func(tx *gorm.DB) error {
		var err error
		result, err = DistributeExecutivePool(tx, time.Now())
		return err
	})
	if err != nil {
		bpiMetrics.ObserveDistribution(trigger, "error", 0)
		return nil, err
	}

	bpiMetrics.ObserveDistribution(trigger, "ok", result.Distributed)
	logger.Info("Executive distribution (%s): run %q pool %v distributed %v to %d shareholders",
		trigger, result.RunReference, result.PoolAmount, result.Distributed, result.Shareholders)
	return result, nil
}

// nextDistributionAt returns the next local time at hour:00 strictly after now.
func nextDistributionAt(now time.Time, hour int) time.Time {
	next := time.Date(now.Year(), now.Month(), now.Day(), hour, 0, 0, 0, now.Location())
	if !next.After(now) {
		next = next.AddDate(0, 0, 1)
	}
	return next
}

// SuperviseExecutiveDistribution runs the daily distribution until ctx is
// cancelled, restarting the loop after a panic.
func SuperviseExecutiveDistribution(ctx context.Context) {
	for {
		logger.Info("Starting executive distribution loop")

		done := make(chan struct{})
		go func() {
			defer close(done)
			defer func() {
				if r := recover(); r != nil {
					logger.Error("Executive distribution loop panicked: %v", r)
				}
			}()

			executiveDistributionLoop(ctx)
		}()

		<-done
		if ctx.Err() != nil {
			return
		}

		time.Sleep(5 * time.Second)
	}
}

func executiveDistributionLoop(ctx context.Context) {
	for {
		next := nextDistributionAt(time.Now(), settings.DistributionHour)
		logger.Debug("Next executive distribution at %s", next.Format(time.RFC3339))

		timer := time.NewTimer(time.Until(next))
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}

		if _, err := runDistribution("cron"); err != nil {
			logger.Error("%v", err)
		}
	}
}

// TriggerExecutiveDistribution lets an admin run the distribution now.
func TriggerExecutiveDistribution(c *gin.Context) {
	result, err := runDistribution("admin")
	if err != nil {
		respondError(c, err)
		return
	}
	invalidateAdminStats(c.Request.Context())
	c.JSON(200, result)
}
