package main

import (
	"context"
	"net/http"
	"time"

	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"splitpay-backend/cache"
	"splitpay-backend/chain"
	"splitpay-backend/config"
	"splitpay-backend/handlers"
	"splitpay-backend/middleware"
	"splitpay-backend/services"
	"splitpay-backend/store"
)

func connectToDatabase(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, err
	}

	if err := pool.Ping(ctx); err != nil {
		return nil, err
	}

	logrus.Info("Successfully connected to the database")
	return pool, nil
}

// connectToRedis is optional: with no REDIS_ADDR configured the split list
// cache is simply disabled.
func connectToRedis(ctx context.Context, cfg *config.Config) *redis.Client {
	if cfg.RedisAddr == "" {
		logrus.Info("REDIS_ADDR not set, split list caching disabled")
		return nil
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPass,
		DB:       cfg.RedisDB,
	})
	if _, err := rdb.Ping(ctx).Result(); err != nil {
		logrus.Warnf("Redis unreachable, caching disabled: %v", err)
		return nil
	}

	logrus.Info("Successfully connected to Redis")
	return rdb
}

func buildRegistrar(cfg *config.Config) (chain.Registrar, error) {
	if cfg.ChainMode != "eth" {
		logrus.Info("Chain mode mock: on-chain fields will be synthesized")
		return chain.NewMockRegistrar(), nil
	}

	client, err := ethclient.Dial(cfg.RPCURL)
	if err != nil {
		return nil, err
	}
	logrus.Info("Successfully connected to Ethereum node")

	return chain.NewEthRegistrar(client, cfg.SplitContract, cfg.ChainKey, cfg.ChainID)
}

func main() {
	cfg := config.LoadConfig()

	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	if cfg.IsProd {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx := context.Background()

	pool, err := connectToDatabase(ctx, cfg.DatabaseURL)
	if err != nil {
		logrus.Fatalf("Unable to connect to database: %v", err)
	}
	defer pool.Close()

	if err := store.Migrate(ctx, pool); err != nil {
		logrus.Fatalf("Failed to run schema migration: %v", err)
	}

	rdb := connectToRedis(ctx, cfg)

	registrar, err := buildRegistrar(cfg)
	if err != nil {
		logrus.Fatalf("Unable to set up blockchain registrar: %v", err)
	}

	// Stores
	users := store.NewUsers(pool)
	splits := store.NewSplits(pool, cfg.StrictAmounts)
	txlogs := store.NewTxLogs(pool)
	notifications := store.NewNotifications(pool)

	// Services
	authService := services.NewAuthService(users, cfg.JWTSecret)
	splitService := services.NewSplitService(splits, users, txlogs, notifications, registrar)

	// Handlers
	authHandler := handlers.NewAuthHandler(authService)
	splitHandler := handlers.NewSplitHandler(splitService, cache.New(rdb))
	notificationHandler := handlers.NewNotificationHandler(notifications)

	// Setup Gin
	router := gin.Default()

	// CORS configuration
	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = []string{"http://localhost:3000", "http://localhost:3001", "http://localhost:3002"}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Authorization"}
	router.Use(cors.New(corsConfig))

	router.POST("/auth/hook", authHandler.Hook)

	// Bearer-protected routes
	protected := router.Group("/")
	protected.Use(middleware.JWTAuthMiddleware(cfg.JWTSecret))
	{
		// /split/create, /split/creator and /split/participant share their
		// segment with :splitId; gin's tree cannot hold a static and a param
		// sibling, so those dispatch inside the handlers.
		protected.GET("/split", splitHandler.List)
		protected.GET("/split/:splitId", splitHandler.Get)
		protected.POST("/split/:splitId", splitHandler.Post)
		protected.POST("/split/:splitId/pay", splitHandler.Pay)
		protected.POST("/split/:splitId/remind", splitHandler.Remind)

		protected.GET("/notifications", notificationHandler.List)
		protected.POST("/notifications/:id/read", notificationHandler.MarkRead)
	}

	// Health check
	router.GET("/health", func(c *gin.Context) {
		if err := pool.Ping(c.Request.Context()); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Database connection failed: " + err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"status":    "healthy",
			"timestamp": time.Now().Unix(),
		})
	})

	logrus.Infof("Server starting on port %s", cfg.AppPort)
	if err := router.Run(":" + cfg.AppPort); err != nil {
		logrus.Fatalf("Failed to start server: %v", err)
	}
}
