package handlers

import (
	"io"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/beboard/backend/internal/notify"
)

const heartbeatInterval = 30 * time.Second

type NotificationHandler struct {
	hub *notify.Hub
}

func NewNotificationHandler(hub *notify.Hub) *NotificationHandler {
	return &NotificationHandler{hub: hub}
}

// Stream serves the current user's notifications over Server-Sent Events.
// The connection stays open until the client disconnects; periodic
// heartbeats keep intermediaries from closing an idle stream.
func (h *NotificationHandler) Stream(c *gin.Context) {
	ch, cancel := h.hub.Subscribe(currentUserID(c))
	defer cancel()

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")
	c.Writer.Header().Set("X-Accel-Buffering", "no")

	heartbeat := time.NewTicker(heartbeatInterval)
	defer heartbeat.Stop()

	c.Stream(func(w io.Writer) bool {
		select {
		case msg, ok := <-ch:
			if !ok {
				return false
			}
			c.SSEvent("notification", msg)
			return true
		case <-heartbeat.C:
			c.SSEvent("ping", time.Now().Unix())
			return true
		case <-c.Request.Context().Done():
			return false
		}
	})
}
