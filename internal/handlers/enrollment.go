package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/coursehub/coursehub-backend/internal/pkg/logger"
	"github.com/coursehub/coursehub-backend/internal/requestdata"
	"github.com/coursehub/coursehub-backend/internal/services"
)

type EnrollmentHandler struct {
	log               *logger.Logger
	enrollmentService services.EnrollmentService
	progressService   services.ProgressService
}

func NewEnrollmentHandler(log *logger.Logger, enrollmentService services.EnrollmentService, progressService services.ProgressService) *EnrollmentHandler {
	return &EnrollmentHandler{
		log:               log.With("handler", "EnrollmentHandler"),
		enrollmentService: enrollmentService,
		progressService:   progressService,
	}
}

func (h *EnrollmentHandler) Enroll(c *gin.Context) {
	rd := requestdata.GetRequestData(c.Request.Context())
	if rd == nil || rd.UserID == uuid.Nil {
		RespondError(c, http.StatusUnauthorized, "unauthorized", nil)
		return
	}
	enrollment, err := h.enrollmentService.Enroll(c.Request.Context(), rd.UserID, c.Param("courseId"))
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondCreated(c, gin.H{"enrollment": enrollment})
}

func (h *EnrollmentHandler) GetEnrollment(c *gin.Context) {
	rd := requestdata.GetRequestData(c.Request.Context())
	if rd == nil || rd.UserID == uuid.Nil {
		RespondError(c, http.StatusUnauthorized, "unauthorized", nil)
		return
	}
	enrollment, err := h.enrollmentService.GetForCourse(c.Request.Context(), rd.UserID, c.Param("courseId"))
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"enrollment": enrollment})
}

func (h *EnrollmentHandler) ListMyEnrollments(c *gin.Context) {
	rd := requestdata.GetRequestData(c.Request.Context())
	if rd == nil || rd.UserID == uuid.Nil {
		RespondError(c, http.StatusUnauthorized, "unauthorized", nil)
		return
	}
	enrollments, err := h.enrollmentService.ListForUser(c.Request.Context(), rd.UserID, c.Query("status"))
	if err != nil {
		h.log.Error("ListMyEnrollments failed", "error", err, "user_id", rd.UserID)
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"enrollments": enrollments})
}

func (h *EnrollmentHandler) GetCourseProgress(c *gin.Context) {
	rd := requestdata.GetRequestData(c.Request.Context())
	if rd == nil || rd.UserID == uuid.Nil {
		RespondError(c, http.StatusUnauthorized, "unauthorized", nil)
		return
	}
	report, err := h.progressService.GetCourseProgress(c.Request.Context(), rd.UserID, c.Param("courseId"))
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, report)
}
