package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/coursehub/coursehub-backend/internal/pkg/logger"
	"github.com/coursehub/coursehub-backend/internal/services"
)

type AdminHandler struct {
	log        *logger.Logger
	reconciler services.ReconcilerService
}

func NewAdminHandler(log *logger.Logger, reconciler services.ReconcilerService) *AdminHandler {
	return &AdminHandler{
		log:        log.With("handler", "AdminHandler"),
		reconciler: reconciler,
	}
}

// RecalculateDurations resyncs every course's cached duration from its
// lessons. Used after bulk imports or manual data fixes.
func (h *AdminHandler) RecalculateDurations(c *gin.Context) {
	results, err := h.reconciler.RecalculateAllCourseDurations(c.Request.Context())
	if err != nil {
		h.log.Error("RecalculateDurations failed", "error", err)
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"updated": len(results), "durations": results})
}
