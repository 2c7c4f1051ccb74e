package service

import (
	"testing"
	"time"

	"BPIApi/internal/models"
	"BPIApi/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func distribute(t *testing.T, conn *gorm.DB, now time.Time) *DistributionResult {
	t.Helper()
	var result *DistributionResult
	require.NoError(t, conn.Transaction(func(tx *gorm.DB) error {
		var err error
		result, err = DistributeExecutivePool(tx, now)
		return err
	}))
	return result
}

func TestDistributeExecutivePoolOnce(t *testing.T) {
	conn := testutil.SetupDB(t)
	useOptions(t, Options{})

	ceo := testutil.CreateUser(t, conn, "ceo", nil)
	cfo := testutil.CreateUser(t, conn, "cfo", nil)
	require.NoError(t, conn.Create(&[]models.ExecutiveShareholder{
		{UserID: ceo.ID, Title: "CEO", Percent: 60, Active: true},
		{UserID: cfo.ID, Title: "CFO", Percent: 30, Active: true},
	}).Error)

	_, err := AllocateRevenue(conn, models.SourceMembership, 1, 10000)
	require.NoError(t, err)
	_, err = AllocateRevenue(conn, models.SourceStoreOrder, 2, 10000)
	require.NoError(t, err)

	now := time.Date(2026, 3, 14, 1, 0, 0, 0, time.UTC)
	result := distribute(t, conn, now)
	assert.Equal(t, 2, result.Allocations)
	assert.Equal(t, 2, result.Shareholders)
	assert.InDelta(t, 6000, result.PoolAmount, 0.0001)
	assert.InDelta(t, 5400, result.Distributed, 0.0001)
	assert.Regexp(t, `^EXD-20260314-[0-9A-F]{8}$`, result.RunReference)

	assert.InDelta(t, 3600, reloadUser(t, conn, ceo.ID).CashBalance, 0.0001)
	assert.InDelta(t, 1800, reloadUser(t, conn, cfo.ID).CashBalance, 0.0001)

	var executive []models.RevenueAllocation
	require.NoError(t, conn.Where("pool = ?", models.PoolExecutive).Find(&executive).Error)
	for _, a := range executive {
		assert.Equal(t, models.AllocationDistributed, a.Status)
		assert.Equal(t, result.RunReference, a.RunReference)
		assert.NotNil(t, a.DistributedAt)
	}

	var others int64
	require.NoError(t, conn.Model(&models.RevenueAllocation{}).
		Where("pool <> ? AND status = ?", models.PoolExecutive, models.AllocationPending).
		Count(&others).Error)
	assert.Equal(t, int64(4), others)

	var rows int64
	require.NoError(t, conn.Model(&models.ExecutiveDistribution{}).Count(&rows).Error)
	assert.Equal(t, int64(2), rows)

	again := distribute(t, conn, now.Add(24*time.Hour))
	assert.Zero(t, again.Allocations)
	assert.Zero(t, again.Distributed)
	assert.InDelta(t, 3600, reloadUser(t, conn, ceo.ID).CashBalance, 0.0001)
}

func TestDistributeExecutivePoolWithoutShareholders(t *testing.T) {
	conn := testutil.SetupDB(t)
	useOptions(t, Options{})

	_, err := AllocateRevenue(conn, models.SourceMembership, 1, 1000)
	require.NoError(t, err)

	result := distribute(t, conn, time.Now())
	assert.Empty(t, result.RunReference)
	assert.Zero(t, result.Distributed)
	assert.InDelta(t, 300, result.PoolAmount, 0.0001)

	totals, err := models.PoolTotals(nil, models.AllocationPending)
	require.NoError(t, err)
	assert.InDelta(t, 300, totals[models.PoolExecutive], 0.0001)
}

func TestInactiveShareholderSkipped(t *testing.T) {
	conn := testutil.SetupDB(t)
	useOptions(t, Options{})

	active := testutil.CreateUser(t, conn, "active", nil)
	retired := testutil.CreateUser(t, conn, "retired", nil)
	require.NoError(t, conn.Create(&models.ExecutiveShareholder{UserID: active.ID, Percent: 50, Active: true}).Error)
	require.NoError(t, conn.Create(&models.ExecutiveShareholder{UserID: retired.ID, Percent: 50, Active: false}).Error)

	_, err := AllocateRevenue(conn, models.SourceMembership, 1, 1000)
	require.NoError(t, err)

	result := distribute(t, conn, time.Now())
	assert.Equal(t, 1, result.Shareholders)
	assert.InDelta(t, 150, reloadUser(t, conn, active.ID).CashBalance, 0.0001)
	assert.Zero(t, reloadUser(t, conn, retired.ID).CashBalance)
}

func TestNextDistributionAt(t *testing.T) {
	loc := time.UTC
	before := time.Date(2026, 5, 1, 0, 30, 0, 0, loc)
	assert.Equal(t, time.Date(2026, 5, 1, 1, 0, 0, 0, loc), nextDistributionAt(before, 1))

	exact := time.Date(2026, 5, 1, 1, 0, 0, 0, loc)
	assert.Equal(t, time.Date(2026, 5, 2, 1, 0, 0, 0, loc), nextDistributionAt(exact, 1))

	after := time.Date(2026, 12, 31, 23, 0, 0, 0, loc)
	assert.Equal(t, time.Date(2027, 1, 1, 1, 0, 0, 0, loc), nextDistributionAt(after, 1))
}
