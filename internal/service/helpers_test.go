package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"BPIApi/internal/config"
	"BPIApi/internal/middleware"
	"BPIApi/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func init() {
	gin.SetMode(gin.TestMode)
	middleware.InitAuth("test-secret")
}

// memoryCache is an in-process Cache used instead of Redis.
type memoryCache struct {
	mu    sync.Mutex
	keys  map[string]string
	lists map[string][]string
}

func newMemoryCache() *memoryCache {
	return &memoryCache{keys: map[string]string{}, lists: map[string][]string{}}
}

func (m *memoryCache) SetKey(_ context.Context, key string, value interface{}, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	switch v := value.(type) {
	case []byte:
		m.keys[key] = string(v)
	default:
		m.keys[key] = fmt.Sprint(v)
	}
	return nil
}

func (m *memoryCache) GetKey(_ context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.keys[key]
	if !ok {
		return "", redis.Nil
	}
	return v, nil
}

func (m *memoryCache) DeleteKey(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.keys, key)
	return nil
}

func (m *memoryCache) SetIfAbsent(_ context.Context, key string, value interface{}, _ time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.keys[key]; ok {
		return false, nil
	}
	m.keys[key] = fmt.Sprint(value)
	return true, nil
}

func (m *memoryCache) PushRecent(_ context.Context, key string, value string, keep int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	list := append([]string{value}, m.lists[key]...)
	if int64(len(list)) > keep {
		list = list[:keep]
	}
	m.lists[key] = list
	return nil
}

func (m *memoryCache) Recent(_ context.Context, key string, limit int64) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	list := m.lists[key]
	if int64(len(list)) > limit {
		list = list[:limit]
	}
	return append([]string(nil), list...), nil
}

// useOptions installs opts for one test and restores the defaults after it.
func useOptions(t *testing.T, opts Options) {
	t.Helper()
	if opts.Rewards.BPTPrice == 0 {
		opts.Rewards = config.RewardsConfig{
			BPTPrice:         10,
			CompanyPercent:   50,
			ExecutivePercent: 30,
			StrategicPercent: 20,
			DistributionHour: 1,
			MinWithdrawal:    1000,
			VerifyRatePerMin: 10,
			VerifyBurst:      3,
		}
	}
	if opts.Auth.AccessTTL == 0 {
		opts.Auth = config.AuthConfig{AccessTTL: time.Hour, RefreshTTL: 24 * time.Hour}
	}

	prevSettings, prevAuth, prevLimiter := settings, authSettings, verifyLimiter
	prevCache, prevMailer, prevPaystack, prevFlutter := cache, mailSender, paystackClient, flutterwaveClient
	InitService(opts)
	t.Cleanup(func() {
		settings, authSettings, verifyLimiter = prevSettings, prevAuth, prevLimiter
		cache, mailSender, paystackClient, flutterwaveClient = prevCache, prevMailer, prevPaystack, prevFlutter
	})
}

func createPackage(t *testing.T, conn *gorm.DB, name string, price float64, rules ...models.PackageRewardRule) *models.Package {
	t.Helper()
	pkg := models.Package{Name: name, Price: price, VATPercent: 7.5, Active: true, RewardRules: rules}
	require.NoError(t, conn.Create(&pkg).Error)
	return &pkg
}

func rule(level int, wallet models.Wallet, percent float64) models.PackageRewardRule {
	return models.PackageRewardRule{Level: level, Wallet: wallet, Percent: percent}
}

func createCenter(t *testing.T, conn *gorm.DB, name string) *models.PickupCenter {
	t.Helper()
	center := models.PickupCenter{Name: name, Address: "1 Market Road", City: "Lagos", State: "Lagos", Active: true}
	require.NoError(t, conn.Create(&center).Error)
	return &center
}

func createProduct(t *testing.T, conn *gorm.DB, name string, price float64, stock int) *models.Product {
	t.Helper()
	product := models.Product{Name: name, Price: price, Stock: stock, Active: true}
	require.NoError(t, conn.Create(&product).Error)
	return &product
}

func fund(t *testing.T, user *models.User, amount float64) {
	t.Helper()
	_, err := models.CreditWallet(nil, models.LedgerEntry{
		UserID: user.ID, Wallet: models.WalletCash, Amount: amount,
		Type: models.TxDeposit, Reference: "seed",
	})
	require.NoError(t, err)
}

func reloadUser(t *testing.T, conn *gorm.DB, id int64) models.User {
	t.Helper()
	var user models.User
	require.NoError(t, conn.First(&user, id).Error)
	return user
}

// asUser stands in for AuthMiddleware in handler tests.
func asUser(user *models.User) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(middleware.ContextUserIDKey, user.ID)
		c.Set(middleware.ContextRoleKey, user.Role)
		c.Next()
	}
}

func doJSON(r http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}
