package handler

import (
	"io"
	"time"

	"github.com/bitfantasy/itportal/internal/portal/sse"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	heartbeatInterval = 30 * time.Second
	clientBuffer      = 64
)

// SSEHandler 向登录用户推送其服务请求的创建与状态变化
type SSEHandler struct {
	hub       *sse.Hub
	heartbeat time.Duration
}

func NewSSEHandler(hub *sse.Hub) *SSEHandler {
	return &SSEHandler{hub: hub, heartbeat: heartbeatInterval}
}

// Stream GET /events?token=xxx
func (h *SSEHandler) Stream(c *gin.Context) {
	userID := GetUserID(c)
	client := &sse.Client{
		ID:     uuid.NewString(),
		UserID: userID,
		Events: make(chan sse.Event, clientBuffer),
	}
	h.hub.Register(client)
	defer h.hub.Unregister(client.ID)

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("X-Accel-Buffering", "no")
	c.SSEvent("connected", gin.H{"client_id": client.ID, "user_id": userID})
	c.Writer.Flush()

	heartbeat := time.NewTicker(h.heartbeat)
	defer heartbeat.Stop()

	c.Stream(func(w io.Writer) bool {
		select {
		case <-c.Request.Context().Done():
			return false
		case event, ok := <-client.Events:
			if !ok {
				return false
			}
			c.SSEvent(event.EventType, event.Data)
			return true
		case <-heartbeat.C:
			_, err := io.WriteString(w, ": keepalive\n\n")
			return err == nil
		}
	})
}
