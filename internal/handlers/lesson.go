package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/coursehub/coursehub-backend/internal/pkg/logger"
	"github.com/coursehub/coursehub-backend/internal/requestdata"
	"github.com/coursehub/coursehub-backend/internal/services"
)

type LessonHandler struct {
	log               *logger.Logger
	lessonService     services.LessonService
	completionService services.CompletionService
}

func NewLessonHandler(log *logger.Logger, lessonService services.LessonService, completionService services.CompletionService) *LessonHandler {
	return &LessonHandler{
		log:               log.With("handler", "LessonHandler"),
		lessonService:     lessonService,
		completionService: completionService,
	}
}

func (h *LessonHandler) ListModuleLessons(c *gin.Context) {
	moduleID, err := uuid.Parse(c.Param("moduleId"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_module_id", err)
		return
	}
	lessons, err := h.lessonService.ListLessonsForModule(c.Request.Context(), moduleID)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"lessons": lessons})
}

func (h *LessonHandler) CreateLesson(c *gin.Context) {
	moduleID, err := uuid.Parse(c.Param("moduleId"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_module_id", err)
		return
	}
	var input services.CreateLessonInput
	if err := c.ShouldBindJSON(&input); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_body", err)
		return
	}
	lesson, err := h.lessonService.CreateLesson(c.Request.Context(), moduleID, &input)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondCreated(c, gin.H{"lesson": lesson})
}

func (h *LessonHandler) UpdateLesson(c *gin.Context) {
	lessonID, err := uuid.Parse(c.Param("lessonId"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_lesson_id", err)
		return
	}
	var input services.UpdateLessonInput
	if err := c.ShouldBindJSON(&input); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_body", err)
		return
	}
	lesson, err := h.lessonService.UpdateLesson(c.Request.Context(), lessonID, &input)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"lesson": lesson})
}

func (h *LessonHandler) DeleteLesson(c *gin.Context) {
	lessonID, err := uuid.Parse(c.Param("lessonId"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_lesson_id", err)
		return
	}
	if err := h.lessonService.DeleteLesson(c.Request.Context(), lessonID); err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"deleted": true})
}

// CompleteLesson is the learner-facing completion entrypoint: it records the
// lesson, recomputes progress and, when the course tips over 100%, completes
// the enrollment and issues the certificate.
func (h *LessonHandler) CompleteLesson(c *gin.Context) {
	rd := requestdata.GetRequestData(c.Request.Context())
	if rd == nil || rd.UserID == uuid.Nil {
		RespondError(c, http.StatusUnauthorized, "unauthorized", nil)
		return
	}
	lessonID, err := uuid.Parse(c.Param("lessonId"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_lesson_id", err)
		return
	}
	result, err := h.completionService.MarkLessonComplete(c.Request.Context(), rd.UserID, rd.Role, lessonID)
	if err != nil {
		h.log.Error("CompleteLesson failed", "error", err, "user_id", rd.UserID, "lesson_id", lessonID)
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, result)
}
