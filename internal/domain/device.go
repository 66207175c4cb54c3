// Package domain contains core domain types shared across the dashboard.
package domain

import (
	"time"
)

// Device is a browser identified by the long-lived device cookie.
// It owns durable key/value items that outlive browser sessions.
type Device struct {
	DeviceID   string    `json:"device_id"`
	LastSeenAt time.Time `json:"last_seen_at"`
	CreatedAt  time.Time `json:"created_at"`
}

// IdleFor returns how long the device has been unseen at now.
func (d *Device) IdleFor(now time.Time) time.Duration {
	if now.Before(d.LastSeenAt) {
		return 0
	}
	return now.Sub(d.LastSeenAt)
}

// RefreshTokenKey is the device item holding the backend refresh token.
const RefreshTokenKey = "refresh_token"
