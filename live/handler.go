package live

import (
	"io"
	"time"

	"github.com/gin-gonic/gin"

	"uploadgate/internal/appErrors"
	"uploadgate/internal/services"
)

// Handler serves the live progress channel over SSE (primary) and websocket.
type Handler struct {
	manager *Manager
	service services.UploadService
}

func NewHandler(manager *Manager, service services.UploadService) *Handler {
	return &Handler{manager: manager, service: service}
}

// subscription resolves the query parameters into a topic and the snapshot
// updates a fresh subscriber receives before any delta.
func (h *Handler) subscription(c *gin.Context) (string, []Update, error) {
	now := time.Now().UTC()

	if groupID := c.Query("group_id"); groupID != "" {
		group, sessions, err := h.service.GroupSnapshot(c.Request.Context(), groupID)
		if err != nil {
			return "", nil, err
		}
		return GroupTopic(groupID), []Update{{
			Type:      TypeGroupUpdate,
			Group:     group,
			Sessions:  sessions,
			Timestamp: now,
		}}, nil
	}

	if sessionID := c.Query("session_id"); sessionID != "" {
		session, err := h.service.SessionSnapshot(c.Request.Context(), sessionID)
		if err != nil {
			return "", nil, err
		}
		return SessionTopic(sessionID), []Update{{
			Type:      TypeSessionUpdate,
			Session:   session,
			Timestamp: now,
		}}, nil
	}

	if userID := c.Query("user_id"); userID != "" {
		sessions, err := h.service.CallerSessions(c.Request.Context(), userID)
		if err != nil {
			return "", nil, err
		}
		return UserTopic(userID), []Update{{
			Type:      TypeUserUpdate,
			Sessions:  sessions,
			Timestamp: now,
		}}, nil
	}

	return "", nil, appErrors.ValidationError("one of group_id, session_id or user_id is required")
}

// ServeSSE streams updates as a text event stream. The first frames are
// always `connected` plus a full snapshot, so a late or reconnecting
// subscriber never waits for a delta to learn the current state.
func (h *Handler) ServeSSE(c *gin.Context) {
	topic, snapshot, err := h.subscription(c)
	if err != nil {
		appErrors.HandleError(c, err)
		return
	}

	client := h.manager.Subscribe(topic)
	defer h.manager.Unsubscribe(client)

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")

	c.SSEvent("message", Update{Type: TypeConnected, Timestamp: time.Now().UTC()})
	for _, update := range snapshot {
		c.SSEvent("message", update)
	}
	c.Writer.Flush()

	c.Stream(func(w io.Writer) bool {
		select {
		case update, ok := <-client.Send:
			if !ok {
				return false
			}
			c.SSEvent("message", update)
			return true
		case <-c.Request.Context().Done():
			return false
		}
	})
}

func connectedFrame() Update {
	return Update{Type: TypeConnected, Timestamp: time.Now().UTC()}
}

// ServeWS is the websocket variant of the live channel, one JSON message per
// update, same frame shapes as SSE.
func (h *Handler) ServeWS(c *gin.Context) {
	topic, snapshot, err := h.subscription(c)
	if err != nil {
		appErrors.HandleError(c, err)
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade already wrote the HTTP error
		return
	}

	client := h.manager.Subscribe(topic)
	serveClient(h.manager, client, conn, append([]Update{connectedFrame()}, snapshot...))
}
