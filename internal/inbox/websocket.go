package inbox

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/ashureev/socialdash/internal/identity"
	"github.com/coder/websocket"
)

const maxFrameSize = 16 << 10

// WebSocketHandler serves the live inbox channel.
type WebSocketHandler struct {
	hub           *Hub
	convos        *Conversations
	allowedOrigin string
	isDev         bool
}

// NewWebSocketHandler creates a new WebSocket handler.
func NewWebSocketHandler(hub *Hub, convos *Conversations, allowedOrigin string, isDev bool) *WebSocketHandler {
	return &WebSocketHandler{
		hub:           hub,
		convos:        convos,
		allowedOrigin: allowedOrigin,
		isDev:         isDev,
	}
}

// inbound is a client frame.
type inbound struct {
	Type   string `json:"type"`
	Thread string `json:"thread,omitempty"`
	Text   string `json:"text,omitempty"`
}

// Outbound is a server frame.
type Outbound struct {
	Type    string   `json:"type"`
	Thread  string   `json:"thread,omitempty"`
	Message *Message `json:"message,omitempty"`
	Error   string   `json:"error,omitempty"`
}

// Send appends a message and pushes it to every tab of the device.
// The no-script form post goes through here too.
func (h *WebSocketHandler) Send(ctx context.Context, deviceID, threadID, text string) (Message, error) {
	msg, err := h.convos.Append(deviceID, threadID, text)
	if err != nil {
		return Message{}, err
	}
	if _, err := h.hub.Broadcast(ctx, deviceID, Outbound{Type: "message", Thread: threadID, Message: &msg}); err != nil {
		slog.Warn("Failed to broadcast message", "device_id", deviceID, "error", err)
	}
	return msg, nil
}

// ServeHTTP implements http.Handler for WebSocket upgrade.
func (h *WebSocketHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	deviceID := identity.DeviceIDFromContext(r.Context())
	tabID := identity.TabIDFromContext(r.Context())
	if deviceID == "" {
		http.Error(w, "missing device identity", http.StatusBadRequest)
		return
	}
	slog.Info("Inbox connection request", "device_id", deviceID, "tab_id", tabID, "ip", identity.IPFromRequest(r))

	if !h.checkOrigin(r) {
		http.Error(w, "origin not allowed", http.StatusForbidden)
		return
	}

	ws, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		slog.Error("Failed to accept WebSocket", "error", err, "device_id", deviceID)
		return
	}
	ws.SetReadLimit(maxFrameSize)
	defer func() {
		if closeErr := ws.Close(websocket.StatusNormalClosure, "inbox closed"); closeErr != nil {
			slog.Debug("Failed to close websocket", "error", closeErr, "device_id", deviceID)
		}
	}()

	h.hub.Register(deviceID, tabID, ws)
	defer h.hub.Unregister(deviceID, tabID, ws)

	h.readLoop(r.Context(), ws, deviceID, tabID)
}

func (h *WebSocketHandler) checkOrigin(r *http.Request) bool {
	if h.isDev {
		return true
	}
	origin := r.Header.Get("Origin")
	if origin == "" || h.allowedOrigin == "" || h.allowedOrigin == "*" {
		return true
	}
	if origin == h.allowedOrigin {
		return true
	}
	slog.Warn("WebSocket origin rejected", "origin", origin, "allowed", h.allowedOrigin)
	return false
}

func (h *WebSocketHandler) readLoop(ctx context.Context, ws *websocket.Conn, deviceID, tabID string) {
	for {
		_, data, err := ws.Read(ctx)
		if err != nil {
			if websocket.CloseStatus(err) != -1 || errors.Is(err, context.Canceled) {
				slog.Debug("WebSocket closed by client", "device_id", deviceID, "tab_id", tabID)
			} else {
				slog.Warn("WebSocket read error", "error", err, "device_id", deviceID)
			}
			return
		}

		var msg inbound
		if err := json.Unmarshal(data, &msg); err != nil {
			h.reply(ctx, ws, Outbound{Type: "error", Error: "invalid_message"})
			continue
		}

		switch msg.Type {
		case "send":
			if _, err := h.Send(ctx, deviceID, msg.Thread, msg.Text); err != nil {
				h.reply(ctx, ws, Outbound{Type: "error", Thread: msg.Thread, Error: err.Error()})
			}
		case "ping":
			h.reply(ctx, ws, Outbound{Type: "pong"})
		default:
			h.reply(ctx, ws, Outbound{Type: "error", Error: "unknown_type"})
		}
	}
}

func (h *WebSocketHandler) reply(ctx context.Context, ws *websocket.Conn, v Outbound) {
	data, err := json.Marshal(v)
	if err != nil {
		slog.Debug("Failed to encode reply", "error", err)
		return
	}
	wctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	if err := ws.Write(wctx, websocket.MessageText, data); err != nil {
		slog.Debug("Failed to send reply", "type", v.Type, "error", err)
	}
}
