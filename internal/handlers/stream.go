package handlers

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/coursehub/coursehub-backend/internal/pkg/logger"
	"github.com/coursehub/coursehub-backend/internal/realtime"
	"github.com/coursehub/coursehub-backend/internal/requestdata"
)

type StreamHandler struct {
	log *logger.Logger
	hub *realtime.Hub
}

func NewStreamHandler(log *logger.Logger, hub *realtime.Hub) *StreamHandler {
	return &StreamHandler{
		log: log.With("handler", "StreamHandler"),
		hub: hub,
	}
}

// Stream is the SSE feed of the caller's notifications. Each user is
// subscribed to their own channel; the connection drains until the client
// goes away.
func (h *StreamHandler) Stream(c *gin.Context) {
	rd := requestdata.GetRequestData(c.Request.Context())
	if rd == nil || rd.UserID == uuid.Nil {
		RespondError(c, http.StatusUnauthorized, "unauthorized", nil)
		return
	}

	client := h.hub.NewClient(rd.UserID)
	h.hub.AddChannel(client, rd.UserID.String())
	defer h.hub.RemoveClient(client)

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")

	c.Stream(func(w io.Writer) bool {
		select {
		case msg, ok := <-client.Outbound:
			if !ok {
				return false
			}
			c.SSEvent(string(msg.Event), msg)
			return true
		case <-c.Request.Context().Done():
			return false
		}
	})
}
