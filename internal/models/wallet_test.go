package models_test

import (
	"testing"

	"BPIApi/internal/models"
	"BPIApi/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestCreditAndDebitWallet(t *testing.T) {
	conn := testutil.SetupDB(t)
	user := testutil.CreateUser(t, conn, "wallet", nil)

	_, err := models.CreditWallet(nil, models.LedgerEntry{
		UserID: user.ID, Wallet: models.WalletCash, Amount: 5000,
		Type: models.TxDeposit, Reference: "dep-1",
	})
	require.NoError(t, err)

	_, err = models.CreditWallet(nil, models.LedgerEntry{
		UserID: user.ID, Wallet: models.WalletCar, Amount: 250,
		Type: models.TxReferralReward, Reference: "ref-1",
	})
	require.NoError(t, err)

	err = conn.Transaction(func(tx *gorm.DB) error {
		_, err := models.DebitWallet(tx, models.LedgerEntry{
			UserID: user.ID, Wallet: models.WalletCash, Amount: 1200,
			Type: models.TxPurchase, Reference: "buy-1",
		})
		return err
	})
	require.NoError(t, err)

	var reloaded models.User
	require.NoError(t, conn.First(&reloaded, user.ID).Error)
	assert.InDelta(t, 3800, reloaded.CashBalance, 0.0001)
	assert.InDelta(t, 250, reloaded.CarBalance, 0.0001)

	txs, total, err := models.ListUserTransactions(nil, user.ID, "", 1, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	require.Len(t, txs, 3)

	cashOnly, total, err := models.ListUserTransactions(nil, user.ID, models.WalletCash, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	for _, row := range cashOnly {
		assert.Equal(t, models.WalletCash, row.Wallet)
	}
}

func TestDebitWalletRejectsOverdraft(t *testing.T) {
	conn := testutil.SetupDB(t)
	user := testutil.CreateUser(t, conn, "broke", nil)

	_, err := models.DebitWallet(nil, models.LedgerEntry{
		UserID: user.ID, Wallet: models.WalletCash, Amount: 1,
		Type: models.TxPurchase,
	})
	assert.ErrorIs(t, err, models.ErrInsufficientBalance)

	var count int64
	require.NoError(t, conn.Model(&models.Transaction{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestUnknownWallet(t *testing.T) {
	_, err := models.Wallet("GOLD").Column()
	assert.ErrorIs(t, err, models.ErrUnknownWallet)
	assert.False(t, models.Wallet("GOLD").Valid())
	assert.True(t, models.WalletHealth.Valid())
}

func TestWithdrawalRollbackRefundsCash(t *testing.T) {
	conn := testutil.SetupDB(t)
	user := testutil.CreateUser(t, conn, "payout", nil)
	admin := testutil.CreateUser(t, conn, "admin", nil)

	w := models.Withdrawal{UserID: user.ID, Amount: 700, Reference: "wd-1", Status: models.WithdrawalPending}
	require.NoError(t, conn.Create(&w).Error)

	err := conn.Transaction(func(tx *gorm.DB) error {
		locked, err := models.LockPendingWithdrawal(tx, w.ID)
		if err != nil {
			return err
		}
		return locked.Rollback(tx, admin.ID, "bank details mismatch")
	})
	require.NoError(t, err)

	var reloaded models.User
	require.NoError(t, conn.First(&reloaded, user.ID).Error)
	assert.InDelta(t, 700, reloaded.CashBalance, 0.0001)

	_, err = models.LockPendingWithdrawal(nil, w.ID)
	assert.ErrorIs(t, err, models.ErrWithdrawalNotPending)
}
