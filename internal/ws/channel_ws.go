package ws

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.opentelemetry.io/otel"

	"alumni-chat/internal/authclient"
	"alumni-chat/internal/observability"
)

// ChannelWebSocketHandler upgrades surface clients onto the community
// channel's snapshot feed.
type ChannelWebSocketHandler struct {
	hub        *Hub
	channelID  string
	authClient authclient.Client
}

// NewChannelWebSocketHandler constructs a ChannelWebSocketHandler.
func NewChannelWebSocketHandler(hub *Hub, channelID string, authClient authclient.Client) *ChannelWebSocketHandler {
	return &ChannelWebSocketHandler{hub: hub, channelID: channelID, authClient: authClient}
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Handle upgrades the connection and registers the client. The registration
// lives exactly as long as the connection: the read loop's deferred cleanup
// releases it, so no listener outlives its surface.
func (h *ChannelWebSocketHandler) Handle(c *gin.Context) {
	ctx, span := otel.Tracer("alumni-chat/ws").Start(c.Request.Context(), "ws.handshake")
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	token := c.GetHeader("Authorization")
	if token == "" {
		token = c.Query("token")
		if token != "" {
			token = "Bearer " + token
		}
	}

	identity, err := h.validateToken(c, token)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}
	traceID := span.SpanContext().TraceID().String()
	requestID := observability.RequestIDFromRequest(c.Request)
	info := ConnInfo{
		ConnID:      newConnID(),
		UserID:      identity.ID,
		DeviceID:    observability.DeviceIDFromRequest(c.Request),
		IP:          observability.IPFromRequest(c.Request),
		RequestID:   requestID,
		TraceID:     traceID,
		ConnectedAt: time.Now(),
	}
	h.hub.AddClient(h.channelID, conn, info)

	observability.IncWSActive("channel")
	observability.IncWSEvent("channel", "ws_connect")
	_ = observability.PublishEvent(ctx, "ws_events.channel", observability.EventEnvelope{
		EventType: "ws_events",
		EventName: "ws_connect",
		Payload:   h.eventPayload(info, "ws_connect", 0, ""),
	}, observability.BuildHeaders(requestID, traceID))

	// Keep connection alive and clean on close
	go func() {
		var closeReason string
		defer func() {
			h.hub.RemoveClient(h.channelID, conn)
			observability.DecWSActive("channel")
			observability.IncWSEvent("channel", "ws_disconnect")
			_ = observability.PublishEvent(ctx, "ws_events.channel", observability.EventEnvelope{
				EventType: "ws_events",
				EventName: "ws_disconnect",
				Payload:   h.eventPayload(info, "ws_disconnect", time.Since(info.ConnectedAt).Milliseconds(), closeReason),
			}, observability.BuildHeaders(requestID, traceID))
			conn.Close()
		}()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				closeReason = err.Error()
				if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					observability.IncWSEvent("channel", "ws_error")
					_ = observability.PublishEvent(ctx, "ws_events.channel", observability.EventEnvelope{
						EventType: "ws_events",
						EventName: "ws_error",
						Payload:   h.eventPayload(info, "ws_error", time.Since(info.ConnectedAt).Milliseconds(), closeReason),
					}, observability.BuildHeaders(requestID, traceID))
				}
				return
			}
		}
	}()
}

func (h *ChannelWebSocketHandler) eventPayload(info ConnInfo, event string, durationMS int64, reason string) map[string]interface{} {
	return map[string]interface{}{
		"ws": map[string]interface{}{
			"channel_id":  h.channelID,
			"event":       event,
			"conn_id":     info.ConnID,
			"duration_ms": durationMS,
			"reason":      reason,
		},
		"identity": map[string]interface{}{
			"user_id":   info.UserID,
			"device_id": info.DeviceID,
			"ip":        info.IP,
		},
	}
}

func (h *ChannelWebSocketHandler) validateToken(c *gin.Context, header string) (authclient.Identity, error) {
	parts := strings.Split(header, " ")
	if len(parts) == 2 {
		return h.authClient.ValidateToken(c.Request.Context(), parts[1])
	}
	return authclient.Identity{}, fmt.Errorf("invalid token")
}
