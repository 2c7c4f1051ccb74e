package app

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"BPIApi/internal/config"
	"BPIApi/internal/middleware"
	"BPIApi/internal/models"
	"BPIApi/internal/service"
	"BPIApi/pkg/flutterwave"
	"BPIApi/pkg/logger"
	"BPIApi/pkg/mailer"
	"BPIApi/pkg/paystack"
	"BPIApi/pkg/redis"
)

const apiPrefix = "api/"

// loginRatePerMin bounds sign-up and login attempts per client IP.
const loginRatePerMin = 20

func Start(cfg *config.Config) {
	gin.DisableConsoleColor()
	gin.SetMode(cfg.GinMode)

	opts := service.Options{
		Rewards:     cfg.Rewards,
		Auth:        cfg.Auth,
		FrontendURL: cfg.FrontendURL,
		Mailer:      mailer.New(cfg.SMTP.Host, cfg.SMTP.Port, cfg.SMTP.User, cfg.SMTP.Password, cfg.SMTP.Sender),
		Paystack:    paystack.NewClient(cfg.Paystack.BaseURL, cfg.Paystack.SecretKey),
		Flutterwave: flutterwave.NewClient(cfg.Flutter.BaseURL, cfg.Flutter.SecretKey, cfg.Flutter.SecretHash),
	}
	if cfg.Redis.Addr != "" {
		opts.Cache = redis.NewRedisService(cfg.Redis.Addr, cfg.Redis.Password)
	} else {
		logger.Warn("REDIS_ADDR not set: stats cache, webhook guard and activity feed disabled")
	}

	middleware.InitAuth(cfg.Auth.JWTSecret)
	service.InitService(opts)

	router := gin.Default()
	router.Use(middleware.CORSMiddleware(cfg.CORSOrigins))
	router.Use(middleware.BlockBadActorsMiddleware())

	authLimiter := middleware.NewKeyedLimiter(loginRatePerMin, 5)
	authorized := router.Group("/", middleware.AuthMiddleware())
	staff := authorized.Group("/", middleware.RequireRole(models.RolePickupStaff, models.RoleAdmin))
	admin := authorized.Group("/"+apiPrefix+"admin", middleware.RequireRole(models.RoleAdmin))

	// router
	{
		router.GET("/metrics", gin.WrapH(promhttp.Handler()))

		// auth
		router.POST(apiPrefix+"users/auth/signup", middleware.RateLimitMiddleware(authLimiter), service.SignUp)
		router.POST(apiPrefix+"users/auth/login", middleware.RateLimitMiddleware(authLimiter), service.Login)
		router.POST(apiPrefix+"users/auth/refresh", service.RefreshTokens)

		// payment gateways
		router.POST(apiPrefix+"payments/paystack/webhook", service.PaystackWebhook)
		router.POST(apiPrefix+"payments/flutterwave/webhook", service.FlutterwaveWebhook)

		// catalogue
		router.GET(apiPrefix+"packages", service.GetPackages)
		router.GET(apiPrefix+"packages/:id", service.GetPackage)
		router.GET(apiPrefix+"products", service.GetProducts)
		router.GET(apiPrefix+"products/:id", service.GetProduct)
		router.GET(apiPrefix+"pickup-centers", service.GetPickupCenters)

		// content
		router.GET(apiPrefix+"blog", service.GetBlogPosts)
		router.GET(apiPrefix+"blog/:slug", service.GetBlogPost)
		router.GET(apiPrefix+"help", service.GetHelpArticles)
		router.GET(apiPrefix+"help/:slug", service.GetHelpArticle)

		// live payouts
		router.GET(apiPrefix+"activity", service.GetRecentActivity)
		router.GET(apiPrefix+"ws/activity", service.LiveActivityWebsocketHandler)
	}

	// authorized
	{
		// users
		authorized.GET(apiPrefix+"users", service.GetUser)
		authorized.PUT(apiPrefix+"users", service.UpdateProfile)
		authorized.POST(apiPrefix+"users/password", service.ChangePassword)

		// referrals
		authorized.GET(apiPrefix+"users/referrals", service.GetUserReferrals)
		authorized.GET(apiPrefix+"users/referrals/tree", service.GetReferralTree)
		authorized.GET(apiPrefix+"users/upline", service.GetUpline)

		// wallet
		authorized.GET(apiPrefix+"wallet", service.GetWallet)
		authorized.GET(apiPrefix+"wallet/transactions", service.GetWalletTransactions)
		authorized.POST(apiPrefix+"wallet/fund", service.FundWallet)
		authorized.POST(apiPrefix+"wallet/withdrawals", service.CreateWithdrawal)
		authorized.GET(apiPrefix+"wallet/withdrawals", service.GetUserWithdrawals)

		// memberships
		authorized.POST(apiPrefix+"packages/:id/purchase", service.PurchasePackage)
		authorized.GET(apiPrefix+"memberships", service.GetUserMemberships)
		authorized.GET(apiPrefix+"payments", service.GetUserPayments)

		// store
		authorized.POST(apiPrefix+"orders", service.Checkout)
		authorized.GET(apiPrefix+"orders", service.GetUserOrders)
		authorized.GET(apiPrefix+"orders/:id", service.GetUserOrder)

		// notifications
		authorized.GET(apiPrefix+"notifications", service.GetNotifications)
		authorized.POST(apiPrefix+"notifications/read", service.MarkNotificationsRead)
	}

	// pickup staff
	{
		staff.GET(apiPrefix+"pickup/claims", service.GetCenterClaims)
		staff.GET(apiPrefix+"pickup/claims/:code", service.LookupClaim)
		staff.POST(apiPrefix+"pickup/claims/verify", service.VerifyClaimCode)
		staff.POST(apiPrefix+"pickup/claims/complete", service.CompleteClaimCode)
	}

	// admin
	{
		admin.GET("/stats", service.GetAdminStats)
		admin.GET("/users", service.AdminListUsers)
		admin.PUT("/users/:id/role", service.AdminSetUserRole)

		admin.GET("/packages", service.AdminListPackages)
		admin.POST("/packages", service.AdminCreatePackage)
		admin.PUT("/packages/:id", service.AdminUpdatePackage)

		admin.GET("/products", service.AdminListProducts)
		admin.POST("/products", service.AdminCreateProduct)
		admin.PUT("/products/:id", service.AdminUpdateProduct)
		admin.DELETE("/products/:id", service.AdminDeleteProduct)

		admin.GET("/orders", service.AdminListOrders)
		admin.PUT("/orders/:id/status", service.AdminUpdateOrderStatus)
		admin.POST("/orders/:id/claim-code", service.AdminIssueClaimCode)

		admin.GET("/pickup-centers", service.AdminListPickupCenters)
		admin.POST("/pickup-centers", service.AdminCreatePickupCenter)
		admin.PUT("/pickup-centers/:id", service.AdminUpdatePickupCenter)

		admin.GET("/withdrawals", service.AdminListWithdrawals)
		admin.POST("/withdrawals/:id/review", service.ReviewWithdrawal)

		admin.GET("/pools", service.GetPoolTotals)
		admin.GET("/shareholders", service.AdminListShareholders)
		admin.POST("/shareholders", service.AdminCreateShareholder)
		admin.PUT("/shareholders/:id", service.AdminUpdateShareholder)
		admin.POST("/distributions/executive", service.TriggerExecutiveDistribution)

		admin.POST("/blog", service.AdminCreateBlogPost)
		admin.PUT("/blog/:id", service.AdminUpdateBlogPost)
		admin.DELETE("/blog/:id", service.AdminDeleteBlogPost)
		admin.POST("/help", service.AdminCreateHelpArticle)
		admin.PUT("/help/:id", service.AdminUpdateHelpArticle)
		admin.DELETE("/help/:id", service.AdminDeleteHelpArticle)
	}

	// Start the daily executive pool distribution in a separate goroutine
	jobs, stopJobs := context.WithCancel(context.Background())
	defer stopJobs()
	go service.SuperviseExecutiveDistribution(jobs)

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router.Handler(),
	}

	go func() {
		// service connections
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("listen: %s\n", err)
		}
	}()
	logger.Info("Listening on :%s", cfg.Port)

	// Wait for interrupt signal to gracefully shutdown the server with
	// a timeout of 5 seconds.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutdown Server...")
	stopJobs()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("Server Shutdown: %v", err)
	}

	logger.Info("Server exiting")
}
