package models_test

import (
	"testing"
	"time"

	"BPIApi/internal/models"
	"BPIApi/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPackageTotalPrice(t *testing.T) {
	assert.Equal(t, 10750.0, (&models.Package{Price: 10000, VATPercent: 7.5}).TotalPrice())
	assert.Equal(t, 1.21, (&models.Package{Price: 1.1, VATPercent: 10}).TotalPrice())
	assert.Equal(t, 5000.0, (&models.Package{Price: 5000}).TotalPrice())
}

func TestMembershipUniquePerUserAndPackage(t *testing.T) {
	conn := testutil.SetupDB(t)
	user := testutil.CreateUser(t, conn, "member", nil)

	gold := models.Package{Name: "Gold", Price: 210000, Active: true}
	silver := models.Package{Name: "Silver", Price: 50000, Active: true}
	require.NoError(t, conn.Create(&gold).Error)
	require.NoError(t, conn.Create(&silver).Error)

	membership := func(pkg *models.Package, ref string) *models.Membership {
		return &models.Membership{
			UserID: user.ID, PackageID: pkg.ID, AmountPaid: pkg.Price,
			PaymentMethod: models.PaymentMethodPaystack, Reference: ref, ActivatedAt: time.Now(),
		}
	}

	require.NoError(t, conn.Create(membership(&gold, "pay-1")).Error)
	assert.Error(t, conn.Create(membership(&gold, "pay-2")).Error)
	require.NoError(t, conn.Create(membership(&silver, "pay-3")).Error)

	has, err := models.HasMembership(nil, user.ID, gold.ID)
	require.NoError(t, err)
	assert.True(t, has)

	var count int64
	require.NoError(t, conn.Model(&models.Membership{}).Where("package_id = ?", gold.ID).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}
