package ws

import (
	"context"
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"alumni-chat/internal/models"
	"alumni-chat/internal/observability"
)

// Hub maintains the active websocket connections per channel.
type Hub struct {
	rooms    map[string]map[*websocket.Conn]bool
	connInfo map[string]map[*websocket.Conn]ConnInfo
	mu       sync.RWMutex
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{
		rooms:    make(map[string]map[*websocket.Conn]bool),
		connInfo: make(map[string]map[*websocket.Conn]ConnInfo),
	}
}

// AddClient registers a websocket connection to a channel.
func (h *Hub) AddClient(channelID string, conn *websocket.Conn, info ConnInfo) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.rooms[channelID]; !ok {
		h.rooms[channelID] = make(map[*websocket.Conn]bool)
	}
	h.rooms[channelID][conn] = true
	if _, ok := h.connInfo[channelID]; !ok {
		h.connInfo[channelID] = make(map[*websocket.Conn]ConnInfo)
	}
	h.connInfo[channelID][conn] = info
}

// RemoveClient removes a websocket connection.
func (h *Hub) RemoveClient(channelID string, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if conns, ok := h.rooms[channelID]; ok {
		delete(conns, conn)
		if len(conns) == 0 {
			delete(h.rooms, channelID)
		}
	}
	if infos, ok := h.connInfo[channelID]; ok {
		delete(infos, conn)
		if len(infos) == 0 {
			delete(h.connInfo, channelID)
		}
	}
}

// BroadcastView pushes the freshly derived channel view to every surface
// client of the channel.
func (h *Hub) BroadcastView(channelID string, viewModel models.ChannelView) {
	h.mu.RLock()
	conns := make([]*websocket.Conn, 0, len(h.rooms[channelID]))
	for conn := range h.rooms[channelID] {
		conns = append(conns, conn)
	}
	h.mu.RUnlock()

	event := models.ChatEvent{Type: "snapshot", View: &viewModel}
	payload, _ := json.Marshal(event)
	for _, conn := range conns {
		if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			log.Printf("websocket write error: %v", err)
			conn.Close()
			h.RemoveClient(channelID, conn)
			h.publishWSError(channelID, conn, err)
		}
	}
}

func (h *Hub) publishWSError(channelID string, conn *websocket.Conn, err error) {
	info, ok := h.getConnInfo(channelID, conn)
	if !ok {
		return
	}

	payload := map[string]interface{}{
		"ws": map[string]interface{}{
			"channel_id":  channelID,
			"event":       "ws_error",
			"conn_id":     info.ConnID,
			"duration_ms": time.Since(info.ConnectedAt).Milliseconds(),
			"reason":      err.Error(),
		},
		"identity": map[string]interface{}{
			"user_id":   info.UserID,
			"device_id": info.DeviceID,
			"ip":        info.IP,
		},
	}

	headers := observability.BuildHeaders(info.RequestID, info.TraceID)
	_ = observability.PublishEvent(context.Background(), "ws_events.channel", observability.EventEnvelope{
		EventType: "ws_events",
		EventName: "ws_error",
		Payload:   payload,
	}, headers)
	observability.IncWSEvent("channel", "ws_error")
}

func (h *Hub) getConnInfo(channelID string, conn *websocket.Conn) (ConnInfo, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if infos, ok := h.connInfo[channelID]; ok {
		info, exists := infos[conn]
		return info, exists
	}
	return ConnInfo{}, false
}
