package server

import (
	"os"
	"strings"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/coursehub/coursehub-backend/internal/handlers"
	"github.com/coursehub/coursehub-backend/internal/middleware"
)

type RouterConfig struct {
	AuthHandler         *handlers.AuthHandler
	AuthMiddleware      *middleware.AuthMiddleware
	CourseHandler       *handlers.CourseHandler
	LessonHandler       *handlers.LessonHandler
	EnrollmentHandler   *handlers.EnrollmentHandler
	CertificateHandler  *handlers.CertificateHandler
	NotificationHandler *handlers.NotificationHandler
	StreamHandler       *handlers.StreamHandler
	AdminHandler        *handlers.AdminHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.Default()
	router.Use(otelgin.Middleware("coursehub"))

	router.Use(cors.New(cors.Config{
		AllowOrigins:     corsOrigins(),
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type", "X-Requested-With"},
		AllowCredentials: true,
	}))

	// ===============
	// || Public    ||
	// ===============
	router.GET("/healthcheck", handlers.HealthCheck)
	api := router.Group("/api")
	{
		api.POST("/register", cfg.AuthHandler.Register)
		api.POST("/login", cfg.AuthHandler.Login)
		api.GET("/certificates/verify/:number", cfg.CertificateHandler.Verify)
	}

	// Catalog reads work anonymously; identity only widens what is visible.
	catalog := api.Group("/")
	catalog.Use(cfg.AuthMiddleware.OptionalAuth())
	{
		catalog.GET("/courses", cfg.CourseHandler.ListCourses)
		catalog.GET("/courses/:courseId", cfg.CourseHandler.GetCourse)
		catalog.GET("/courses/:courseId/modules", cfg.CourseHandler.ListModules)
		catalog.GET("/modules/:moduleId/lessons", cfg.LessonHandler.ListModuleLessons)
	}

	// ===============
	// || Protected ||
	// ===============
	protected := api.Group("/")
	protected.Use(cfg.AuthMiddleware.RequireAuth())
	// Learner
	protected.POST("/courses/:courseId/enroll", cfg.EnrollmentHandler.Enroll)
	protected.GET("/courses/:courseId/enrollment", cfg.EnrollmentHandler.GetEnrollment)
	protected.GET("/courses/:courseId/progress", cfg.EnrollmentHandler.GetCourseProgress)
	protected.GET("/enrollments", cfg.EnrollmentHandler.ListMyEnrollments)
	protected.POST("/lessons/:lessonId/complete", cfg.LessonHandler.CompleteLesson)
	// Certificates
	protected.GET("/certificates", cfg.CertificateHandler.ListMyCertificates)
	protected.GET("/certificates/:certificateId/download", cfg.CertificateHandler.Download)
	// Notifications
	protected.GET("/notifications", cfg.NotificationHandler.ListMyNotifications)
	protected.POST("/notifications/:notificationId/read", cfg.NotificationHandler.MarkRead)
	protected.GET("/notifications/stream", cfg.StreamHandler.Stream)
	// Authoring (course ownership enforced in the services)
	protected.POST("/courses", cfg.CourseHandler.CreateCourse)
	protected.POST("/courses/:courseId/modules", cfg.CourseHandler.CreateModule)
	protected.POST("/modules/:moduleId/lessons", cfg.LessonHandler.CreateLesson)
	protected.PUT("/lessons/:lessonId", cfg.LessonHandler.UpdateLesson)
	protected.DELETE("/lessons/:lessonId", cfg.LessonHandler.DeleteLesson)

	// ===============
	// || Admin     ||
	// ===============
	admin := api.Group("/admin")
	admin.Use(cfg.AuthMiddleware.RequireAuth(), cfg.AuthMiddleware.RequireAdmin())
	admin.POST("/courses/recalculate-durations", cfg.AdminHandler.RecalculateDurations)

	return router
}

func corsOrigins() []string {
	raw := strings.TrimSpace(os.Getenv("CORS_ALLOW_ORIGINS"))
	if raw == "" {
		return []string{"http://localhost:3000", "http://localhost:5173"}
	}
	parts := strings.Split(raw, ",")
	origins := make([]string, 0, len(parts))
	for _, part := range parts {
		if part = strings.TrimSpace(part); part != "" {
			origins = append(origins, part)
		}
	}
	return origins
}
