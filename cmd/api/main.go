package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"edchain/internal/auth"
	"edchain/internal/config"
	"edchain/internal/directory"
	"edchain/internal/httpapi"
	"edchain/internal/httpmiddleware"
	"edchain/internal/ledger"
	"edchain/internal/pinning"
	"edchain/internal/queue"
	"edchain/internal/reconcile"
	"edchain/internal/store"
)

func main() {
	cfg := config.Load()

	// Set Gin mode based on environment
	if cfg.Env == "production" || cfg.Env == "prod" {
		gin.SetMode(gin.ReleaseMode)
	}

	if err := runHTTP(cfg); err != nil {
		log.Fatalf("http server failed: %v", err)
	}
}

func runHTTP(cfg config.App) error {
	mongo, err := store.NewMongo(cfg.MongoURI, cfg.MongoDatabase)
	if err != nil {
		log.Fatalf("mongo connect failed: %v", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = mongo.Close(ctx)
	}()

	redisClient := store.NewRedis(cfg.RedisAddr)

	var q queue.Queue
	if cfg.QueueBackend == "memory" {
		q = queue.NewInMemory(64)
	} else {
		q = queue.NewRedisQueue(redisClient.Client, "edchain:mirror")
	}

	repo := directory.NewRepository(mongo.Collection("students"))
	{
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		if err := repo.EnsureIndexes(ctx); err != nil {
			log.Printf("warning: directory index creation failed: %v", err)
		}
		cancel()
	}

	chain := ledger.New(cfg.RPCURL, cfg.ContractAddress, cfg.ChainSkip, cfg.ChainRetries)
	if cfg.ChainSkip {
		log.Println("Ledger in skip mode (CHAIN_SKIP set), serving canned chain data")
	} else {
		log.Println("Ledger RPC:", cfg.RPCURL, "contract:", cfg.ContractAddress)
	}

	gate := auth.NewGate(cfg.TeacherUsername, cfg.TeacherPassword, repo)
	rec := reconcile.NewService(chain, repo)
	sweeper := reconcile.NewSweeper(chain, repo, redisClient)

	// Pinning client (nil when not configured)
	var pinner httpapi.Pinner
	if cfg.PinataAPIKey != "" && cfg.PinataSecretKey != "" {
		pinner = pinning.New(cfg.PinataBaseURL, cfg.PinataAPIKey, cfg.PinataSecretKey)
		log.Println("Pinata configured")
	} else {
		log.Println("Pinata not configured (PINATA_API_KEY / PINATA_SECRET_KEY not set)")
	}

	h := httpapi.New(cfg, gate, repo, rec, pinner, sweeper, redisClient, q)

	r := gin.New()

	// Recovery middleware
	r.Use(gin.Recovery())

	// Custom logger
	r.Use(gin.LoggerWithConfig(gin.LoggerConfig{
		SkipPaths: []string{"/healthz", "/metrics"},
	}))

	// CORS restricted to the configured origin set
	r.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	// Security headers
	r.Use(securityHeaders())

	// Rate limiting
	r.Use(httpmiddleware.NewSimpleTokenBucket(cfg).GinMiddleware())

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	r.GET("/healthz", func(c *gin.Context) {
		redisHealthy := redisClient.Healthy(c.Request.Context())
		mongoHealthy := mongo.Healthy(c.Request.Context())
		status := http.StatusOK
		if !redisHealthy || !mongoHealthy {
			status = http.StatusServiceUnavailable
		}
		c.JSON(status, gin.H{"status": "ok", "redis": redisHealthy, "mongo": mongoHealthy})
	})

	h.Register(r)

	// Graceful shutdown
	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Printf("Starting server on :%s", cfg.HTTPPort)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	// Give outstanding requests 10 seconds to complete
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server forced shutdown: %v", err)
	}

	log.Println("Server exited")
	return nil
}

// Security headers middleware
func securityHeaders() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("X-Frame-Options", "DENY")
		c.Header("X-XSS-Protection", "1; mode=block")
		c.Header("Referrer-Policy", "strict-origin-when-cross-origin")

		// Only add HSTS in production
		if gin.Mode() == gin.ReleaseMode {
			c.Header("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		}

		c.Next()
	}
}
