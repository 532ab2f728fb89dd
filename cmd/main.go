package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/coursehub/coursehub-backend/internal/db"
	"github.com/coursehub/coursehub-backend/internal/handlers"
	"github.com/coursehub/coursehub-backend/internal/middleware"
	"github.com/coursehub/coursehub-backend/internal/observability"
	"github.com/coursehub/coursehub-backend/internal/pkg/logger"
	"github.com/coursehub/coursehub-backend/internal/realtime"
	"github.com/coursehub/coursehub-backend/internal/realtime/bus"
	"github.com/coursehub/coursehub-backend/internal/render"
	"github.com/coursehub/coursehub-backend/internal/repos"
	"github.com/coursehub/coursehub-backend/internal/server"
	"github.com/coursehub/coursehub-backend/internal/services"
	"github.com/coursehub/coursehub-backend/internal/utils"
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
	jwtSecretKey := utils.GetEnv("JWT_SECRET_KEY", "defaultsecret", log)
	accessTokenTTL := utils.GetEnvAsInt("ACCESS_TOKEN_TTL", 3600, log)
	certOutputDir := utils.GetEnv("CERT_OUTPUT_DIR", "./certificates", log)
	certBaseURL := utils.GetEnv("CERT_PUBLIC_BASE_URL", "", log)
	organization := utils.GetEnv("ORGANIZATION_NAME", "CourseHub", log)

	// Tracing
	shutdownOtel := observability.InitOTel(context.Background(), log, observability.OtelConfig{
		ServiceName: "coursehub",
		Environment: os.Getenv("APP_ENV"),
		Version:     os.Getenv("APP_VERSION"),
	})

	// Postgres
	postgresService, err := db.NewPostgresService(log)
	if err != nil {
		log.Error("Postgres init failed", "error", err)
		os.Exit(1)
	}
	if err = postgresService.AutoMigrateAll(); err != nil {
		log.Warn("Postgres auto migration failed", "error", err)
	}
	thePG := postgresService.DB()

	// Repos
	log.Info("Setting up Repos from main...")
	userRepo := repos.NewUserRepo(thePG, log)
	courseRepo := repos.NewCourseRepo(thePG, log)
	courseModuleRepo := repos.NewCourseModuleRepo(thePG, log)
	lessonRepo := repos.NewLessonRepo(thePG, log)
	enrollmentRepo := repos.NewEnrollmentRepo(thePG, log)
	completedLessonRepo := repos.NewCompletedLessonRepo(thePG, log)
	certificateRepo := repos.NewCertificateRepo(thePG, log)
	notificationRepo := repos.NewNotificationRepo(thePG, log)

	// Realtime
	log.Info("Setting up realtime hub now...")
	hub := realtime.NewHub(log)
	var notificationBus bus.Bus
	if os.Getenv("REDIS_ADDR") != "" {
		notificationBus, err = bus.NewRedisBus(log)
		if err != nil {
			log.Warn("Redis bus init failed, running single-node", "error", err)
			notificationBus = nil
		}
	}
	fanout := bus.NewFanout(log, hub, notificationBus)
	if err := fanout.StartForwarding(context.Background()); err != nil {
		log.Warn("Bus forwarder failed to start", "error", err)
	}

	// Services
	log.Info("Setting up Services from main...")
	renderer, err := render.NewPNGRenderer(log, certOutputDir, certBaseURL)
	if err != nil {
		log.Error("Could not init certificate renderer", "error", err)
		os.Exit(1)
	}
	notifier := services.NewNotifier(log, notificationRepo, fanout)
	catalogService := services.NewCatalogService(thePG, log, courseRepo, courseModuleRepo, lessonRepo)
	authService := services.NewAuthService(thePG, log, userRepo, jwtSecretKey, time.Duration(accessTokenTTL)*time.Second)
	certificateService := services.NewCertificateService(thePG, log, certificateRepo, userRepo, courseRepo, renderer, notifier, organization)
	enrollmentService := services.NewEnrollmentService(thePG, log, catalogService, enrollmentRepo, courseRepo, notifier)
	progressService := services.NewProgressService(thePG, log, catalogService, enrollmentRepo, completedLessonRepo)
	completionService := services.NewCompletionService(thePG, log, catalogService, enrollmentRepo, completedLessonRepo, certificateService, notifier)
	reconcilerService := services.NewReconcilerService(thePG, log, catalogService, courseRepo, courseModuleRepo, lessonRepo, enrollmentRepo, completedLessonRepo, notifier)
	courseService := services.NewCourseService(thePG, log, courseRepo, catalogService)
	moduleService := services.NewModuleService(thePG, log, courseModuleRepo, courseService, catalogService)
	lessonService := services.NewLessonService(thePG, log, lessonRepo, courseModuleRepo, courseService, catalogService, reconcilerService)

	// Handlers
	log.Info("Setting up handlers from main...")
	authHandler := handlers.NewAuthHandler(log, authService)
	courseHandler := handlers.NewCourseHandler(log, courseService, moduleService)
	lessonHandler := handlers.NewLessonHandler(log, lessonService, completionService)
	enrollmentHandler := handlers.NewEnrollmentHandler(log, enrollmentService, progressService)
	certificateHandler := handlers.NewCertificateHandler(log, certificateService)
	notificationHandler := handlers.NewNotificationHandler(log, notificationRepo)
	streamHandler := handlers.NewStreamHandler(log, hub)
	adminHandler := handlers.NewAdminHandler(log, reconcilerService)

	// Middleware
	log.Info("Setting up middleware from main...")
	authMiddleware := middleware.NewAuthMiddleware(log, authService)

	// Router
	log.Info("Setting up router from main...")
	router := server.NewRouter(server.RouterConfig{
		AuthHandler:         authHandler,
		AuthMiddleware:      authMiddleware,
		CourseHandler:       courseHandler,
		LessonHandler:       lessonHandler,
		EnrollmentHandler:   enrollmentHandler,
		CertificateHandler:  certificateHandler,
		NotificationHandler: notificationHandler,
		StreamHandler:       streamHandler,
		AdminHandler:        adminHandler,
	})

	port := utils.GetEnv("PORT", "8080", log)
	fmt.Printf("Server listening on :%s\n", port)
	if err := router.Run(":" + port); err != nil {
		log.Error("Server failed", "error", err)
	}

	if shutdownOtel != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = shutdownOtel(ctx)
	}
	if notificationBus != nil {
		_ = notificationBus.Close()
	}
}
