package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/sublyy/sublyy-backend/handlers"
	"github.com/sublyy/sublyy-backend/internal/config"
	"github.com/sublyy/sublyy-backend/internal/database"
	"github.com/sublyy/sublyy-backend/internal/exchange"
	"github.com/sublyy/sublyy-backend/internal/oauth"
	"github.com/sublyy/sublyy-backend/internal/realtime"
	"github.com/sublyy/sublyy-backend/internal/storage"
	"github.com/sublyy/sublyy-backend/internal/subscriptions"
	"github.com/sublyy/sublyy-backend/internal/users"
	"github.com/sublyy/sublyy-backend/pkg/logger"
	"github.com/sublyy/sublyy-backend/pkg/metrics"
	"github.com/sublyy/sublyy-backend/pkg/middleware"
)

var startTime = time.Now()

func main() {
	// logging first (LOG_LEVEL env: debug|info|warn|error|fatal)
	logger.Init(os.Getenv("LOG_LEVEL"))

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Fatalf("failed to load config: %v", err)
	}
	logger.Infof("config loaded: mongo=%v redis=%v google=%v", cfg.MongoDB.URI != "", cfg.Redis.Host != "", cfg.Google.ClientID != "")

	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery())

	// CORS for the SPA origin; credentials are required for the refresh cookie
	r.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", cfg.Client.Origin)
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, Authorization")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	})

	ctx := context.Background()

	// Redis (optional): backs the OAuth exchange-code store and the
	// distributed rate limiter
	var redisClient *redis.Client
	if cfg.Redis.Host != "" {
		redisClient = redis.NewClient(&redis.Options{Addr: cfg.Redis.Host + ":" + cfg.Redis.Port, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
		if err := redisClient.Ping(ctx).Err(); err != nil {
			logger.Warnf("failed to connect to Redis (%s:%s): %v", cfg.Redis.Host, cfg.Redis.Port, err)
			redisClient = nil
		} else {
			logger.Infof("Connected to Redis: %s:%s", cfg.Redis.Host, cfg.Redis.Port)
		}
	}

	if cfg.RateLimit.Enabled {
		if cfg.RateLimit.UseRedis && redisClient != nil {
			win := time.Duration(cfg.RateLimit.WindowSeconds) * time.Second
			r.Use(middleware.RedisRateLimit(redisClient, cfg.RateLimit.RPS, cfg.RateLimit.Burst, win))
		} else {
			r.Use(middleware.RateLimit(cfg.RateLimit.RPS, cfg.RateLimit.Burst))
		}
	}

	// MongoDB with retry/backoff to tolerate startup races
	const maxAttempts = 5
	backoff := time.Second
	var client *mongo.Client
	var userSvc *users.Service
	var subSvc *subscriptions.Service
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		mc, errConn := database.ConnectMongo(ctx, cfg.MongoDB.URI, cfg.MongoDB.Timeout)
		if errConn == nil {
			db := mc.Database(cfg.MongoDB.Database)
			if err := database.EnsureIndexes(ctx, db); err != nil {
				logger.Warnf("index setup failed: %v", err)
			}
			userSvc = users.NewService(users.NewMongoRepository(db.Collection("users")))
			subSvc = subscriptions.NewService(subscriptions.NewMongoRepository(db.Collection("subscriptions")))
			client = mc
			break
		}
		logger.Warnf("attempt %d/%d: failed to connect to MongoDB: %v", attempt, maxAttempts, errConn)
		if attempt < maxAttempts {
			time.Sleep(backoff)
			backoff *= 2
		}
	}
	if client == nil {
		logger.Fatalf("could not connect to MongoDB after %d attempts", maxAttempts)
	}
	defer func() { _ = client.Disconnect(ctx) }()

	// OAuth exchange codes: Redis when available, in-process otherwise
	var codes exchange.Store
	if redisClient != nil {
		codes = exchange.NewRedisStore(redisClient, exchange.DefaultTTL)
	} else {
		codes = exchange.NewMemoryStore(exchange.DefaultTTL)
	}

	// Google OAuth is optional; without it the /google routes answer 503
	var google *oauth.Google
	if g, err := oauth.NewGoogle(ctx, cfg); err != nil {
		logger.Warnf("google oauth disabled: %v", err)
	} else {
		google = g
	}

	// Avatar storage is optional as well
	var avatars handlers.AvatarStore
	if mcfg := storage.LoadMinIOConfig(); mcfg.Endpoint != "" {
		st, err := storage.NewMinIOStorage(mcfg)
		if err != nil {
			logger.Warnf("minio storage disabled: %v", err)
		} else {
			avatars = st
			logger.Infof("avatar storage ready: bucket=%s", mcfg.Bucket)
		}
	}

	hub := realtime.NewHub(cfg)
	hub.Register(r)

	api := r.Group("/api")
	handlers.NewAuthHandler(cfg, userSvc, codes, google).Register(api)
	handlers.NewSubscriptionHandler(cfg, subSvc).Register(api)
	handlers.NewSettingsHandler(cfg, userSvc, hub, avatars).Register(api)

	r.GET("/health", func(c *gin.Context) {
		c.String(http.StatusOK, "healthy")
	})

	// readiness: 200 only when critical dependencies are available
	r.GET("/ready", func(c *gin.Context) {
		deps := map[string]bool{
			"mongo":  userSvc != nil,
			"redis":  cfg.Redis.Host == "" || redisClient != nil,
			"google": cfg.Google.ClientID == "" || google != nil,
		}
		for _, ok := range deps {
			if !ok {
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": "not_ready", "deps": deps, "uptime": time.Since(startTime).String()})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready", "deps": deps, "uptime": time.Since(startTime).String()})
	})

	metrics.RegisterCollectors(prometheus.DefaultRegisterer)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	addr := fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port)
	logger.Infof("Starting sublyy backend on %s", addr)
	if err := r.Run(addr); err != nil {
		logger.Fatalf("server failed: %v", err)
	}
}
