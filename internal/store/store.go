// Package store provides data persistence interfaces and implementations.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/alexedwards/scs/v2"
	"github.com/ashureev/socialdash/internal/domain"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("not found")

// Repository persists browser sessions and per-device items.
//
// It doubles as the scs session store so session data survives restarts.
type Repository interface {
	scs.Store
	scs.CtxStore

	// TouchDevice creates the device if missing and bumps last_seen_at.
	TouchDevice(ctx context.Context, deviceID string, seen time.Time) error

	// GetDevice retrieves a device by id. Returns ErrNotFound when absent.
	GetDevice(ctx context.Context, deviceID string) (*domain.Device, error)

	// GetDeviceItem returns the value stored under key. Returns ErrNotFound when absent.
	GetDeviceItem(ctx context.Context, deviceID, key string) (string, error)

	// SetDeviceItem overwrites the value stored under key.
	SetDeviceItem(ctx context.Context, deviceID, key, value string) error

	// RemoveDeviceItem deletes key. Removing a missing key is not an error.
	RemoveDeviceItem(ctx context.Context, deviceID, key string) error

	// CleanupExpiredSessions removes sessions past their expiry.
	CleanupExpiredSessions(ctx context.Context) (int64, error)

	// DeleteIdleDevices removes devices unseen for longer than idle, with their items.
	DeleteIdleDevices(ctx context.Context, idle time.Duration) (int64, error)

	// Ping verifies database connectivity.
	Ping(ctx context.Context) error

	// Close closes the database connection.
	Close() error
}
