package api

import (
	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/veriflow/accounts-api/internal/api/cookies"
	"github.com/veriflow/accounts-api/internal/api/handler"
	"github.com/veriflow/accounts-api/internal/api/middleware"
	"github.com/veriflow/accounts-api/internal/core/domain"
	"github.com/veriflow/accounts-api/internal/core/ports"
	"github.com/veriflow/accounts-api/internal/core/service"
	mongorepo "github.com/veriflow/accounts-api/internal/infrastructure/db/mongo"
	redisinfra "github.com/veriflow/accounts-api/internal/infrastructure/db/redis"
	"github.com/veriflow/accounts-api/internal/pkg/config"
)

// NewRouter builds and returns the Echo instance with all routes registered.
// notifier is the (asynchronous) mail dispatcher; rdb may back the OTP send
// limiter and the readiness probe.
func NewRouter(cfg *config.Config, db *mongo.Database, rdb *redis.Client, notifier ports.Notifier, log zerolog.Logger) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = NewHTTPErrorHandler(log)

	// --- Global middleware ---
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestID())
	e.Use(echomiddleware.Logger())
	e.Use(echoprometheus.NewMiddleware("accounts"))

	// --- Dependencies ---
	accountRepo := mongorepo.NewAccountRepository(db)
	sessions := service.NewSessionService(cfg.JWTSecret, cfg.SessionTTL)
	verification := service.NewVerificationService(accountRepo, notifier, cfg.OTPTTL, log)
	limiter := redisinfra.NewOTPLimiter(rdb, cfg.OTPSendWindow, cfg.OTPSendMax)
	accountService := service.NewAccountService(accountRepo, verification, sessions, limiter, cfg.EqualizeDelay, log)

	cookieWriter := cookies.Writer{Secure: cfg.IsProduction(), MaxAge: cfg.SessionTTL}
	accountHandler := handler.NewAccountHandler(accountService, sessions, cookieWriter)
	authRequired := middleware.Auth(sessions, cookieWriter)

	// --- Auth routes ---
	auth := e.Group("/auth")
	auth.POST("/signup", accountHandler.SignUp)
	auth.POST("/signin", accountHandler.SignIn)
	auth.POST("/verify", accountHandler.Verify)
	auth.POST("/otp/resend", accountHandler.ResendOTP)
	auth.POST("/password/forgot", accountHandler.ForgotPassword)
	auth.POST("/password/verify", accountHandler.VerifyReset)
	auth.POST("/password/reset", accountHandler.ResetPassword)
	auth.GET("/me", accountHandler.Me)
	auth.DELETE("/account", accountHandler.DeleteAccount, authRequired)

	// --- Admin routes ---
	admin := e.Group("/admin", authRequired, middleware.RBAC(domain.RoleAdmin))
	admin.GET("/accounts", accountHandler.ListAccounts)

	// --- Health probes and metrics (no auth required) ---
	healthHandler := handler.NewHealthHandler()
	healthDepsHandler := handler.NewHealthDependenciesHandler(db, rdb)

	e.GET("/health", healthHandler.Liveness)            // liveness  – is the process alive?
	e.GET("/health/ready", healthDepsHandler.Readiness) // readiness – are dependencies up?
	e.GET("/metrics", echoprometheus.NewHandler())

	return e
}
