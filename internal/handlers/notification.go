package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/coursehub/coursehub-backend/internal/pkg/logger"
	"github.com/coursehub/coursehub-backend/internal/repos"
	"github.com/coursehub/coursehub-backend/internal/requestdata"
)

type NotificationHandler struct {
	log              *logger.Logger
	notificationRepo repos.NotificationRepo
}

func NewNotificationHandler(log *logger.Logger, notificationRepo repos.NotificationRepo) *NotificationHandler {
	return &NotificationHandler{
		log:              log.With("handler", "NotificationHandler"),
		notificationRepo: notificationRepo,
	}
}

func (h *NotificationHandler) ListMyNotifications(c *gin.Context) {
	rd := requestdata.GetRequestData(c.Request.Context())
	if rd == nil || rd.UserID == uuid.Nil {
		RespondError(c, http.StatusUnauthorized, "unauthorized", nil)
		return
	}
	notifications, err := h.notificationRepo.GetByUserID(c.Request.Context(), nil, rd.UserID)
	if err != nil {
		h.log.Error("ListMyNotifications failed", "error", err, "user_id", rd.UserID)
		RespondError(c, http.StatusInternalServerError, "load_notifications_failed", err)
		return
	}
	RespondOK(c, gin.H{"notifications": notifications})
}

func (h *NotificationHandler) MarkRead(c *gin.Context) {
	rd := requestdata.GetRequestData(c.Request.Context())
	if rd == nil || rd.UserID == uuid.Nil {
		RespondError(c, http.StatusUnauthorized, "unauthorized", nil)
		return
	}
	notificationID, err := uuid.Parse(c.Param("notificationId"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_notification_id", err)
		return
	}
	if err := h.notificationRepo.MarkRead(c.Request.Context(), nil, notificationID, rd.UserID); err != nil {
		RespondError(c, http.StatusInternalServerError, "mark_read_failed", err)
		return
	}
	RespondOK(c, gin.H{"read": true})
}
