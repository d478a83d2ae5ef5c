package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"txguardian/internal/config"
	"txguardian/internal/db"
	"txguardian/internal/email"
	guardianhttp "txguardian/internal/http"
	"txguardian/internal/http/middleware"
	"txguardian/internal/logger"
	"txguardian/internal/oracle"
	"txguardian/internal/repository"
	"txguardian/internal/screening"
	"txguardian/internal/service"
	"txguardian/internal/ws"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var version = "dev"

func main() {
	logger.Init(os.Getenv("LOG_LEVEL"), os.Getenv("LOG_JSON") == "true")

	cfg := config.Load()
	service.InitJWT(cfg.JWTSecret)

	dbPool := db.Connect(cfg.DatabaseURL)
	defer dbPool.Close()

	txRepo := repository.NewTransactionRepository(dbPool)
	ledgerRepo := repository.NewLedgerRepository(dbPool)
	notificationRepo := repository.NewNotificationRepository(dbPool)
	userRepo := repository.NewUserRepository(dbPool)
	auditRepo := repository.NewAuditRepository(dbPool)

	hub := ws.NewHub()

	var mailer service.Mailer
	if cfg.SMTPAddr != "" && cfg.SMTPUsername != "" {
		mailer = email.NewSMTPSender(cfg.SMTPAddr, cfg.EmailFrom, cfg.SMTPUsername, cfg.SMTPPassword)
	} else {
		logger.Warn("SMTP not configured, email notifications disabled")
	}

	audit := service.NewAuditService(auditRepo)
	notifier := service.NewNotificationService(notificationRepo, hub)
	emails := service.NewEmailService(mailer, userRepo)
	ledger := service.NewLedgerService(ledgerRepo, notifier, emails, audit)
	orc := oracle.NewClient(cfg.OracleURL, cfg.OracleAPIKey, cfg.OracleTimeout)

	verifications := service.NewVerificationService(
		txRepo, userRepo, ledgerRepo, ledger, orc, notifier, emails, audit,
		service.VerificationConfig{
			Policy: screening.Policy{
				MaxAmountCents:  cfg.SuspiciousAmountCents,
				VendorBlocklist: cfg.VendorBlocklist,
			},
			MaxAnswerAttempts: cfg.MaxAnswerAttempts,
			OracleTimeout:     cfg.OracleTimeout,
		})

	r := gin.Default()

	// CORS for production (frontend on different domain)
	r.Use(func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		if origin != "" {
			c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
			c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
			c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
			c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		}
		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}
		c.Next()
	})

	middleware.InitRedisRateLimiter(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	guardianhttp.RegisterRoutes(r, dbPool, verifications, notifier, hub, version)

	srv := &http.Server{
		Addr:    ":" + cfg.AppPort,
		Handler: r,
	}

	go func() {
		logger.Info("server started", "port", cfg.AppPort, "version", version)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("listen failed", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Fatal("server forced to shutdown", "error", err)
	}

	logger.Info("server exited")
}
