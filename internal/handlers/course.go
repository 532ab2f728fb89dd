package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/coursehub/coursehub-backend/internal/pkg/logger"
	"github.com/coursehub/coursehub-backend/internal/services"
)

type CourseHandler struct {
	log           *logger.Logger
	courseService services.CourseService
	moduleService services.ModuleService
}

func NewCourseHandler(log *logger.Logger, courseService services.CourseService, moduleService services.ModuleService) *CourseHandler {
	return &CourseHandler{
		log:           log.With("handler", "CourseHandler"),
		courseService: courseService,
		moduleService: moduleService,
	}
}

func (h *CourseHandler) ListCourses(c *gin.Context) {
	courses, err := h.courseService.ListCourses(c.Request.Context())
	if err != nil {
		h.log.Error("ListCourses failed", "error", err)
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"courses": courses})
}

func (h *CourseHandler) GetCourse(c *gin.Context) {
	course, err := h.courseService.GetCourse(c.Request.Context(), c.Param("courseId"))
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"course": course})
}

func (h *CourseHandler) CreateCourse(c *gin.Context) {
	var input services.CreateCourseInput
	if err := c.ShouldBindJSON(&input); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_body", err)
		return
	}
	course, err := h.courseService.CreateCourse(c.Request.Context(), &input)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondCreated(c, gin.H{"course": course})
}

func (h *CourseHandler) ListModules(c *gin.Context) {
	course, err := h.courseService.GetCourse(c.Request.Context(), c.Param("courseId"))
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	modules, err := h.moduleService.ListModules(c.Request.Context(), course.ID)
	if err != nil {
		h.log.Error("ListModules failed", "error", err, "course_id", course.ID)
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"modules": modules})
}

func (h *CourseHandler) CreateModule(c *gin.Context) {
	course, err := h.courseService.GetCourse(c.Request.Context(), c.Param("courseId"))
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	var input services.CreateModuleInput
	if err := c.ShouldBindJSON(&input); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_body", err)
		return
	}
	module, err := h.moduleService.CreateModule(c.Request.Context(), course.ID, &input)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondCreated(c, gin.H{"module": module})
}
