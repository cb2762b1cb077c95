package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/hibiken/asynq"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	httpHandler "github.com/simbo/paintCSS/internal/handler/http"
	wsHandler "github.com/simbo/paintCSS/internal/handler/websocket"
	"github.com/simbo/paintCSS/internal/hub"
	gormpersistence "github.com/simbo/paintCSS/internal/infra/persistence/gorm"
	"github.com/simbo/paintCSS/internal/infra/setup"
	redisstate "github.com/simbo/paintCSS/internal/infra/state/redis"
	"github.com/simbo/paintCSS/internal/middleware"
	"github.com/simbo/paintCSS/internal/repository"
	"github.com/simbo/paintCSS/internal/service"
	"github.com/simbo/paintCSS/internal/worker"
)

const reapInterval = 5 * time.Minute

// App holds every long-lived component of the server.
type App struct {
	Config      *Config
	Log         *logrus.Logger
	DB          *gorm.DB
	RedisClient *redis.Client
	AsynqClient *asynq.Client
	AsynqServer *worker.WorkerServer
	Hub         *hub.Hub
	HttpServer  *http.Server
}

// NewLogger builds the application logger for cfg.
func NewLogger(cfg *Config) *logrus.Logger {
	log := logrus.New()
	if cfg.AppEnv == "production" {
		log.SetFormatter(&logrus.JSONFormatter{TimestampFormat: time.RFC3339Nano})
	} else {
		log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true, ForceColors: true})
	}
	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = logrus.InfoLevel
	}
	log.SetLevel(level)
	log.SetOutput(os.Stdout)
	return log
}

// NewApp loads the configuration and wires every component.
func NewApp() (*App, error) {
	cfg, err := LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		return nil, err
	}

	log := NewLogger(cfg)
	// Services and handlers log through the standard logger.
	logrus.SetFormatter(log.Formatter)
	logrus.SetLevel(log.GetLevel())
	log.Infof("Logger initialized (Level: %s)", log.GetLevel())

	defaults, err := LoadSurfaceDefaults(cfg.DefaultsFile)
	if err != nil {
		return nil, err
	}
	if cfg.DefaultsFile != "" {
		log.WithField("file", cfg.DefaultsFile).Info("Surface defaults loaded")
	}

	log.Info("Initializing infrastructure...")
	db, err := setup.InitDB(cfg.DB)
	if err != nil {
		return nil, fmt.Errorf("failed to init DB: %w", err)
	}
	if err := setup.MigrateDB(db); err != nil {
		return nil, fmt.Errorf("failed to migrate DB: %w", err)
	}
	log.Info("Database initialized and migrated")

	redisClient, err := setup.InitRedis(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err != nil {
		return nil, fmt.Errorf("failed to init Redis: %w", err)
	}

	redisClientOpt := asynq.RedisClientOpt{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	}
	asynqClient := asynq.NewClient(redisClientOpt)

	userRepo := gormpersistence.NewGormUserRepository(db)
	surfaceRepo := gormpersistence.NewGormSurfaceRepository(db)
	stateRepo := redisstate.NewRedisStateRepository(redisClient, cfg.KeyPrefix)

	hubInstance := hub.NewHub(stateRepo, asynqClient, log)

	authService, err := service.NewAuthService(userRepo, cfg.JWTSecret, cfg.JWTExpiryHours)
	if err != nil {
		return nil, fmt.Errorf("failed to create AuthService: %w", err)
	}
	surfaceService := service.NewSurfaceService(surfaceRepo, hubInstance, defaults)

	workerServer := worker.NewWorkerServer(redisClientOpt, surfaceRepo, log)

	if cfg.AppEnv == "production" {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}
	router := NewRouter(cfg, log, stateRepo,
		httpHandler.NewAuthHandler(authService),
		httpHandler.NewSurfaceHandler(surfaceService),
		wsHandler.NewWebSocketHandler(hubInstance, surfaceService, cfg.AllowedOrigin),
	)

	httpServer := &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	log.Info("Application assembled successfully")
	return &App{
		Config:      cfg,
		Log:         log,
		DB:          db,
		RedisClient: redisClient,
		AsynqClient: asynqClient,
		AsynqServer: workerServer,
		Hub:         hubInstance,
		HttpServer:  httpServer,
	}, nil
}

// NewRouter registers the middleware chain and every route.
func NewRouter(cfg *Config, log *logrus.Logger, limiter repository.StateRepository,
	authHandler *httpHandler.AuthHandler, surfaceHandler *httpHandler.SurfaceHandler, ws *wsHandler.WebSocketHandler) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(LoggerMiddleware(log))
	router.Use(CORSMiddleware(cfg.AllowedOrigin))
	router.Use(middleware.RateLimit(limiter, cfg.RateLimitMax, cfg.RateLimitWindow))

	api := router.Group("/api")
	authRoutes := api.Group("/auth")
	{
		authRoutes.POST("/register", authHandler.Register)
		authRoutes.POST("/login", authHandler.Login)
	}
	surfaceRoutes := api.Group("/surfaces").Use(middleware.Auth(cfg.JWTSecret))
	{
		surfaceRoutes.POST("", surfaceHandler.CreateSurface)
		surfaceRoutes.GET("/:id", surfaceHandler.GetSurface)
		surfaceRoutes.PATCH("/:id/settings", surfaceHandler.UpdateSettings)
		surfaceRoutes.GET("/:id/description", surfaceHandler.GetDescription)
	}
	wsRoutes := router.Group("/ws").Use(middleware.Auth(cfg.JWTSecret))
	{
		wsRoutes.GET("/surfaces/:id", ws.HandleConnection)
	}
	router.GET("/ping", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"message": "pong"}) })
	return router
}

// Start launches the hub and its reaper, the worker and the HTTP server.
func (a *App) Start() {
	go a.Hub.Run()
	go a.AsynqServer.Start()
	go a.Hub.RunReaper(reapInterval, a.Config.SurfaceIdle)

	go func() {
		a.Log.Infof("HTTP server starting to listen on %s", a.HttpServer.Addr)
		if err := a.HttpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.Log.Fatalf("Failed to start HTTP server: %v", err)
		}
		a.Log.Info("HTTP server stopped listening.")
	}()
}

// Shutdown stops every component, HTTP first so no new clients arrive.
func (a *App) Shutdown() {
	a.Log.Info("Shutting down application...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := a.HttpServer.Shutdown(ctx); err != nil {
		a.Log.Errorf("Error shutting down HTTP server: %v", err)
	}

	if a.Hub != nil {
		a.Hub.Shutdown()
	}
	if a.AsynqServer != nil {
		a.AsynqServer.Shutdown()
	}
	if a.AsynqClient != nil {
		if err := a.AsynqClient.Close(); err != nil {
			a.Log.Errorf("Error closing Asynq client: %v", err)
		}
	}
	if a.RedisClient != nil {
		if err := a.RedisClient.Close(); err != nil {
			a.Log.Errorf("Error closing Redis connection: %v", err)
		}
	}
	if a.DB != nil {
		if sqlDB, err := a.DB.DB(); err == nil {
			if err := sqlDB.Close(); err != nil {
				a.Log.Errorf("Error closing database connection: %v", err)
			}
		}
	}

	a.Log.Info("Application shutdown complete.")
}
