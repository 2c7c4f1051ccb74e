package service

import (
	"BPIApi/internal/config"
	"BPIApi/internal/metrics"
	"BPIApi/internal/middleware"
	"BPIApi/internal/models"
	"BPIApi/pkg/flutterwave"
	"BPIApi/pkg/logger"
	"BPIApi/pkg/paystack"
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"gorm.io/gorm"
)

// Cache is the subset of the Redis service used by handlers. A nil Cache
// disables stats caching, the webhook replay guard and the activity feed.
type Cache interface {
	SetKey(ctx context.Context, key string, value interface{}, expiration time.Duration) error
	GetKey(ctx context.Context, key string) (string, error)
	DeleteKey(ctx context.Context, key string) error
	SetIfAbsent(ctx context.Context, key string, value interface{}, expiration time.Duration) (bool, error)
	PushRecent(ctx context.Context, key string, value string, keep int64) error
	Recent(ctx context.Context, key string, limit int64) ([]string, error)
}

type Mailer interface {
	Send(to, subject, body string) error
}

// Options carries everything InitService wires into the package.
type Options struct {
	Rewards     config.RewardsConfig
	Auth        config.AuthConfig
	FrontendURL string
	Cache       Cache
	Mailer      Mailer
	Paystack    *paystack.Client
	Flutterwave *flutterwave.Client
}

var validate = validator.New()

var (
	settings = config.RewardsConfig{
		BPTPrice:         10,
		CompanyPercent:   50,
		ExecutivePercent: 30,
		StrategicPercent: 20,
		DistributionHour: 1,
		MinWithdrawal:    1000,
		VerifyRatePerMin: 10,
		VerifyBurst:      5,
	}
	authSettings = config.AuthConfig{
		AccessTTL:  time.Hour,
		RefreshTTL: 7 * 24 * time.Hour,
	}
	frontendURL   = "http://localhost:3000"
	verifyLimiter = middleware.NewKeyedLimiter(settings.VerifyRatePerMin, settings.VerifyBurst)
	bpiMetrics    = metrics.BPI()
)

var (
	cache             Cache
	mailSender        Mailer
	paystackClient    *paystack.Client
	flutterwaveClient *flutterwave.Client
)

// InitService replaces the package defaults with the loaded configuration.
func InitService(opts Options) {
	settings = opts.Rewards
	authSettings = opts.Auth
	if opts.FrontendURL != "" {
		frontendURL = opts.FrontendURL
	}
	cache = opts.Cache
	mailSender = opts.Mailer
	paystackClient = opts.Paystack
	flutterwaveClient = opts.Flutterwave
	verifyLimiter = middleware.NewKeyedLimiter(settings.VerifyRatePerMin, settings.VerifyBurst)
}

var errorStatuses = []struct {
	err  error
	code int
}{
	{models.ErrInsufficientBalance, 402},
	{models.ErrUnknownWallet, 400},
	{models.ErrSponsorNotFound, 400},
	{models.ErrAlreadyMember, 409},
	{models.ErrPackageUnavailable, 404},
	{models.ErrOutOfStock, 409},
	{models.ErrInvalidClaimCode, 400},
	{models.ErrClaimTransition, 409},
	{models.ErrOrderNotReady, 409},
	{models.ErrOrderTransition, 409},
	{models.ErrNotPickupOrder, 400},
	{models.ErrWrongPickupCenter, 403},
	{models.ErrClaimInProgress, 409},
	{models.ErrWithdrawalNotPending, 409},
	{models.ErrBelowMinWithdrawal, 400},
	{models.ErrPickupCenterUnavailable, 400},
	{gorm.ErrRecordNotFound, 404},
}

// respondError maps domain errors to 4xx and logs everything else as a 500.
func respondError(c *gin.Context, err error) {
	for _, e := range errorStatuses {
		if errors.Is(err, e.err) {
			c.JSON(e.code, gin.H{"error": e.err.Error()})
			return
		}
	}
	logger.Error("%v", err)
	c.Status(500)
}

// bindJSON decodes the body into input and runs its validate tags.
func bindJSON(c *gin.Context, input interface{}) bool {
	if err := c.ShouldBindJSON(input); err != nil {
		c.JSON(400, gin.H{"error": "Unable to unmarshal body"})
		return false
	}
	if err := validate.Struct(input); err != nil {
		c.JSON(400, gin.H{"error": err.Error()})
		return false
	}
	return true
}

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

func pagination(c *gin.Context) (page, pageSize int) {
	page, err := strconv.Atoi(c.DefaultQuery("page", "1"))
	if err != nil || page < 1 {
		page = 1
	}
	pageSize, err = strconv.Atoi(c.DefaultQuery("page_size", strconv.Itoa(defaultPageSize)))
	if err != nil || pageSize < 1 {
		pageSize = defaultPageSize
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}
	return page, pageSize
}

// idParam parses a positive int64 path parameter, answering 400 otherwise.
func idParam(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id < 1 {
		c.JSON(400, gin.H{"error": "invalid " + name})
		return 0, false
	}
	return id, true
}

// currentUserID reads the authenticated user id, answering 500 when the
// middleware chain is misconfigured.
func currentUserID(c *gin.Context) (int64, bool) {
	userID, err := middleware.GetUserIDFromGinContext(c)
	if err != nil {
		logger.Error("%v", err)
		c.Status(500)
		return 0, false
	}
	return userID, true
}
