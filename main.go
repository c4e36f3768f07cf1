package main

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"challenge-tracking-system/cache"
	"challenge-tracking-system/handlers"
	"challenge-tracking-system/middleware"
	"challenge-tracking-system/models"
	"challenge-tracking-system/services"
	"challenge-tracking-system/utils"
	"challenge-tracking-system/workers"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func main() {
	if err := godotenv.Load(); err != nil {
		logrus.Warn("no .env file found, reading environment variables directly")
	}

	logrus.SetFormatter(&logrus.JSONFormatter{})
	if level, err := logrus.ParseLevel(os.Getenv("LOG_LEVEL")); err == nil {
		logrus.SetLevel(level)
	}

	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		logrus.Fatal("DATABASE_URL environment variable not set")
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{TranslateError: true})
	if err != nil {
		logrus.WithError(err).Fatal("failed to connect to database")
	}

	if err := db.AutoMigrate(
		&models.User{},
		&models.LoginThrottle{},
		&models.PasswordResetToken{},
		&models.Exercise{},
		&models.Challenge{},
		&models.HabitChallenge{},
		&models.TargetChallenge{},
		&models.Participant{},
		&models.ProgressEntry{},
	); err != nil {
		logrus.WithError(err).Fatal("failed to migrate database")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var store cache.Cache
	if addr := os.Getenv("REDIS_URL"); addr != "" {
		redisCache, err := cache.NewRedisCache(ctx, addr)
		if err != nil {
			logrus.WithError(err).Fatal("failed to connect to redis")
		}
		store = redisCache
	} else {
		logrus.Warn("REDIS_URL not set, similarity cache falls back to in-process memory")
		store = cache.NewMemoryCache()
	}

	if os.Getenv("S3_BUCKET_NAME") != "" {
		if err := utils.InitS3(); err != nil {
			logrus.WithError(err).Fatal("failed to initialize object storage")
		}
	} else {
		logrus.Warn("S3_BUCKET_NAME not set, avatar uploads disabled")
	}

	authService := services.NewAuthService(db)
	exerciseService := services.NewExerciseService(db)
	challengeService := services.NewChallengeService(db, store)
	progressService := services.NewProgressService(db, challengeService)
	analyticsService := services.NewAnalyticsService(db)
	weatherService := services.NewWeatherService()

	scheduler, err := challengeService.StartPublishScheduler()
	if err != nil {
		logrus.WithError(err).Fatal("failed to start publish scheduler")
	}

	trendingWorker := workers.NewTrendingWorker(db, challengeService, 5*time.Minute)
	go trendingWorker.Run(ctx)
	go middleware.CleanupVisitors()

	app := fiber.New(fiber.Config{
		BodyLimit: 10 * 1024 * 1024,
	})

	allowedOrigins := os.Getenv("ALLOWED_ORIGINS")
	if allowedOrigins == "" {
		allowedOrigins = "http://localhost:3000"
	}
	origins := strings.Split(allowedOrigins, ",")
	for i := range origins {
		origins[i] = strings.TrimSpace(origins[i])
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins:     strings.Join(origins, ","),
		AllowMethods:     "GET,POST,PUT,DELETE,OPTIONS,PATCH",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		AllowCredentials: true,
		MaxAge:           86400,
	}))

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	handlers.SetupAuthRoutes(app, authService, weatherService)
	handlers.SetupExerciseRoutes(app, authService, exerciseService)
	handlers.SetupChallengeRoutes(app, authService, challengeService, analyticsService)
	handlers.SetupProgressRoutes(app, authService, progressService)
	handlers.SetupWeatherRoutes(app, authService, weatherService)

	addr := os.Getenv("LISTEN_ADDR")
	if addr == "" {
		addr = ":8080"
	}

	go func() {
		<-ctx.Done()
		logrus.Info("shutting down")
		_ = scheduler.Shutdown()
		_ = app.ShutdownWithTimeout(10 * time.Second)
	}()

	logrus.WithField("addr", addr).Info("starting server")
	if err := app.Listen(addr); err != nil {
		logrus.WithError(err).Fatal("server exited")
	}
}
