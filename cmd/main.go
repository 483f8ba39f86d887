package main

import (
	"fmt"
	"os"

	"github.com/mverrett/ascend-backend/internal/clients/courier"
	"github.com/mverrett/ascend-backend/internal/clients/phrasing"
	redisclient "github.com/mverrett/ascend-backend/internal/clients/redis"
	"github.com/mverrett/ascend-backend/internal/data/db"
	"github.com/mverrett/ascend-backend/internal/data/repos"
	"github.com/mverrett/ascend-backend/internal/handlers"
	"github.com/mverrett/ascend-backend/internal/intervene"
	"github.com/mverrett/ascend-backend/internal/middleware"
	"github.com/mverrett/ascend-backend/internal/patterns"
	"github.com/mverrett/ascend-backend/internal/pkg/envutil"
	"github.com/mverrett/ascend-backend/internal/platform/logger"
	"github.com/mverrett/ascend-backend/internal/server"
	"github.com/mverrett/ascend-backend/internal/services"
)

func main() {
	// Logger
	logMode := os.Getenv("LOG_MODE")
	if logMode == "" {
		logMode = "development"
	}
	log, err := logger.New(logMode)
	if err != nil {
		fmt.Printf("Failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	// Env
	log.Info("Loading environment variables from main...")
	cutoffHour := envutil.Int("DAY_BOUNDARY_HOUR", 3)
	defaultTZ := envutil.Str("DEFAULT_TIMEZONE", "UTC")
	scanToken := os.Getenv("SCAN_TOKEN")
	detectorConfigPath := os.Getenv("DETECTOR_CONFIG_PATH")
	phrasingTimeout := envutil.Seconds("PHRASING_GUARD_TIMEOUT_SECONDS", 0)
	allowOrigins := []string{
		envutil.Str("CORS_ALLOW_ORIGIN", "http://localhost:3000"),
	}

	// Postgres
	postgresService, err := db.NewPostgresService(log)
	if err != nil {
		log.Error("Postgres init failed", "error", err)
		os.Exit(1)
	}
	if err = postgresService.AutoMigrateAll(); err != nil {
		log.Error("Postgres auto migration failed", "error", err)
		os.Exit(1)
	}
	thePG := postgresService.DB()

	// Repos
	log.Info("Setting up Repos from main...")
	userProfileRepo := repos.NewUserProfileRepo(thePG, log)
	checkInRepo := repos.NewCheckInRepo(thePG, log)
	streakRepo := repos.NewStreakRepo(thePG, log)
	interventionRepo := repos.NewInterventionRepo(thePG, log)

	// Clients
	log.Info("Setting up Clients from main...")
	courierClient, err := courier.NewFromEnv(log)
	if err != nil {
		log.Error("Could not init CourierClient", "error", err)
		os.Exit(1)
	}
	var composeStrategy intervene.Strategy
	phrasingClient, err := phrasing.NewFromEnv(log)
	if err != nil {
		log.Warn("Phrasing client unavailable, interventions use templates", "error", err)
	} else {
		composeStrategy = intervene.DelegatedStrategy{Client: phrasingClient}
	}
	locker, err := redisclient.NewLocker(log)
	if err != nil {
		log.Warn("Redis locker unavailable, scan skips per-user locking", "error", err)
		locker = nil
	}

	// Detector catalog
	detectorConfig, err := patterns.LoadConfig(detectorConfigPath)
	if err != nil {
		log.Error("Could not load detector config", "path", detectorConfigPath, "error", err)
		os.Exit(1)
	}

	// Services
	log.Info("Setting up Services from main...")
	engine := patterns.NewEngine(detectorConfig, log)
	guarded := intervene.NewGuardedStrategy(composeStrategy, phrasingTimeout, log)
	controller := intervene.NewController(log, interventionRepo, courierClient, guarded, detectorConfig.Cooldown)

	checkinService := services.NewCheckInService(thePG, log, services.CheckInConfig{
		CutoffHour:      cutoffHour,
		DefaultTimezone: defaultTZ,
	}, userProfileRepo, checkInRepo, streakRepo, courierClient)
	userService := services.NewUserService(log, userProfileRepo, defaultTZ)
	interventionService := services.NewInterventionService(log, interventionRepo)
	scanService := services.NewScanService(log, services.ScanConfig{
		Workers:         envutil.Int("SCAN_WORKERS", 8),
		UserTimeout:     envutil.Seconds("SCAN_USER_TIMEOUT_SECONDS", 0),
		ScanTimeout:     envutil.Seconds("SCAN_TIMEOUT_SECONDS", 0),
		LockTTL:         envutil.Seconds("SCAN_LOCK_TTL_SECONDS", 0),
		CutoffHour:      cutoffHour,
		DefaultTimezone: defaultTZ,
	}, userProfileRepo, checkInRepo, streakRepo, engine, controller, locker)

	// Handlers
	log.Info("Setting up handlers from main...")
	userHandler := handlers.NewUserHandler(log, userService)
	checkinHandler := handlers.NewCheckInHandler(log, checkinService)
	interventionHandler := handlers.NewInterventionHandler(log, interventionService)
	scanHandler := handlers.NewScanHandler(log, scanService)

	// Middleware
	log.Info("Setting up middleware from main...")
	scanTokenMiddleware := middleware.NewScanTokenMiddleware(log, scanToken)

	// Router
	log.Info("Setting up router from main...")
	router := server.NewRouter(server.RouterConfig{
		UserHandler:         userHandler,
		CheckInHandler:      checkinHandler,
		InterventionHandler: interventionHandler,
		ScanHandler:         scanHandler,
		ScanToken:           scanTokenMiddleware,
		AllowOrigins:        allowOrigins,
	})

	port := envutil.Str("PORT", "8080")
	fmt.Printf("Server listening on :%s\n", port)
	if err := router.Run(":" + port); err != nil {
		log.Warn("Server failed", "error", err)
	}
}
