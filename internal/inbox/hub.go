// Package inbox provides the live direct-message channel.
package inbox

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/coder/websocket"
)

const writeTimeout = 5 * time.Second

// Conn is the part of a websocket connection the hub needs.
type Conn interface {
	Write(ctx context.Context, typ websocket.MessageType, p []byte) error
	Close(code websocket.StatusCode, reason string) error
}

// Hub tracks live connections per device and browser tab.
type Hub struct {
	mu     sync.RWMutex
	active map[string]map[string]Conn
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{
		active: make(map[string]map[string]Conn),
	}
}

// Active returns the connection for a device and tab.
func (h *Hub) Active(deviceID, tabID string) Conn {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if tabs, ok := h.active[deviceID]; ok {
		return tabs[tabID]
	}
	return nil
}

// Tabs returns the number of connected tabs for a device.
func (h *Hub) Tabs(deviceID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.active[deviceID])
}

// Register adds a connection for a device/tab. An older connection from the
// same tab is closed after the hub is unlocked.
func (h *Hub) Register(deviceID, tabID string, conn Conn) {
	h.mu.Lock()
	if _, exists := h.active[deviceID]; !exists {
		h.active[deviceID] = make(map[string]Conn)
	}
	replaced := h.active[deviceID][tabID]
	h.active[deviceID][tabID] = conn
	h.mu.Unlock()

	if replaced != nil && replaced != conn {
		_ = replaced.Close(websocket.StatusNormalClosure, "tab replaced")
	}
	slog.Info("Inbox connection registered", "device_id", deviceID, "tab_id", tabID)
}

// Unregister removes a connection if it is still the current one for the tab.
func (h *Hub) Unregister(deviceID, tabID string, conn Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if tabs, ok := h.active[deviceID]; ok {
		if current, exists := tabs[tabID]; exists && current == conn {
			delete(tabs, tabID)
			if len(tabs) == 0 {
				delete(h.active, deviceID)
			}
			slog.Info("Inbox connection unregistered", "device_id", deviceID, "tab_id", tabID)
		}
	}
}

// CloseDevice terminates every connection for a device.
func (h *Hub) CloseDevice(deviceID string) {
	h.mu.Lock()
	tabs := h.active[deviceID]
	delete(h.active, deviceID)
	h.mu.Unlock()

	for tid, conn := range tabs {
		_ = conn.Close(websocket.StatusNormalClosure, "signed out")
		slog.Info("Inbox connection closed", "device_id", deviceID, "tab_id", tid)
	}
}

// Broadcast sends v as JSON to every tab of the device and returns how many
// writes succeeded. Writes happen outside the lock.
func (h *Hub) Broadcast(ctx context.Context, deviceID string, v any) (int, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return 0, fmt.Errorf("encode broadcast: %w", err)
	}

	h.mu.RLock()
	conns := make([]Conn, 0, len(h.active[deviceID]))
	for _, c := range h.active[deviceID] {
		conns = append(conns, c)
	}
	h.mu.RUnlock()

	sent := 0
	for _, c := range conns {
		wctx, cancel := context.WithTimeout(ctx, writeTimeout)
		err := c.Write(wctx, websocket.MessageText, data)
		cancel()
		if err != nil {
			slog.Debug("Inbox broadcast write failed", "device_id", deviceID, "error", err)
			continue
		}
		sent++
	}
	return sent, nil
}
