package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/ashureev/socialdash/internal/domain"
	"github.com/ashureev/socialdash/internal/shared"
	_ "modernc.org/sqlite"
)

const (
	commitAttempts  = 3
	commitBaseDelay = 50 * time.Millisecond
)

// SQLiteStore implements Repository using SQLite.
type SQLiteStore struct {
	db  *sql.DB
	now func() time.Time
}

var _ Repository = (*SQLiteStore)(nil)

// NewSQLite creates a new SQLite-backed repository.
func NewSQLite(dbPath string) (*SQLiteStore, error) {
	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	// WAL lets page reads proceed while a session commit is in flight.
	dsn := dbPath + "?_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	s := &SQLiteStore{db: db, now: time.Now}
	if err := s.initSchema(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initialize schema: %w", err)
	}

	return s, nil
}

func (s *SQLiteStore) initSchema() error {
	query := `
	CREATE TABLE IF NOT EXISTS sessions (
		token TEXT PRIMARY KEY,
		data BLOB NOT NULL,
		expiry INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_sessions_expiry ON sessions(expiry);

	CREATE TABLE IF NOT EXISTS devices (
		device_id TEXT PRIMARY KEY,
		last_seen_at INTEGER NOT NULL,
		created_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_devices_last_seen ON devices(last_seen_at);

	CREATE TABLE IF NOT EXISTS device_items (
		device_id TEXT NOT NULL REFERENCES devices(device_id) ON DELETE CASCADE,
		key TEXT NOT NULL,
		value TEXT NOT NULL,
		updated_at INTEGER NOT NULL,
		PRIMARY KEY (device_id, key)
	);
	`
	if _, err := s.db.Exec(query); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// Ping verifies database connectivity.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("close database: %w", err)
	}
	return nil
}

// Find implements scs.Store.
func (s *SQLiteStore) Find(token string) ([]byte, bool, error) {
	return s.FindCtx(context.Background(), token)
}

// Commit implements scs.Store.
func (s *SQLiteStore) Commit(token string, b []byte, expiry time.Time) error {
	return s.CommitCtx(context.Background(), token, b, expiry)
}

// Delete implements scs.Store.
func (s *SQLiteStore) Delete(token string) error {
	return s.DeleteCtx(context.Background(), token)
}

// FindCtx returns the session data for token when it has not expired.
func (s *SQLiteStore) FindCtx(ctx context.Context, token string) ([]byte, bool, error) {
	var data []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT data FROM sessions WHERE token = ? AND expiry > ?`,
		token, s.now().UnixMilli(),
	).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("find session: %w", err)
	}
	return data, true, nil
}

// CommitCtx stores session data, replacing any previous value for token.
func (s *SQLiteStore) CommitCtx(ctx context.Context, token string, b []byte, expiry time.Time) error {
	query := `
	INSERT INTO sessions (token, data, expiry) VALUES (?, ?, ?)
	ON CONFLICT(token) DO UPDATE SET
		data = excluded.data,
		expiry = excluded.expiry`

	err := shared.RetryOnConflict(ctx, "commit session", commitAttempts, commitBaseDelay, func() error {
		_, err := s.db.ExecContext(ctx, query, token, b, expiry.UnixMilli())
		return err
	})
	if err != nil {
		return fmt.Errorf("commit session: %w", err)
	}
	return nil
}

// DeleteCtx removes the session for token.
func (s *SQLiteStore) DeleteCtx(ctx context.Context, token string) error {
	err := shared.RetryOnConflict(ctx, "delete session", commitAttempts, commitBaseDelay, func() error {
		_, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE token = ?`, token)
		return err
	})
	if err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// CleanupExpiredSessions removes sessions past their expiry.
func (s *SQLiteStore) CleanupExpiredSessions(ctx context.Context) (int64, error) {
	result, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE expiry <= ?`, s.now().UnixMilli())
	if err != nil {
		return 0, fmt.Errorf("cleanup expired sessions: %w", err)
	}
	return result.RowsAffected()
}

// TouchDevice creates the device if missing and bumps last_seen_at.
func (s *SQLiteStore) TouchDevice(ctx context.Context, deviceID string, seen time.Time) error {
	query := `
	INSERT INTO devices (device_id, last_seen_at, created_at) VALUES (?, ?, ?)
	ON CONFLICT(device_id) DO UPDATE SET
		last_seen_at = excluded.last_seen_at`

	err := shared.RetryOnConflict(ctx, "touch device", commitAttempts, commitBaseDelay, func() error {
		_, err := s.db.ExecContext(ctx, query, deviceID, seen.Unix(), seen.Unix())
		return err
	})
	if err != nil {
		return fmt.Errorf("touch device: %w", err)
	}
	return nil
}

// GetDevice retrieves a device by id.
func (s *SQLiteStore) GetDevice(ctx context.Context, deviceID string) (*domain.Device, error) {
	var lastSeen, createdAt int64
	device := domain.Device{DeviceID: deviceID}

	err := s.db.QueryRowContext(ctx,
		`SELECT last_seen_at, created_at FROM devices WHERE device_id = ?`, deviceID,
	).Scan(&lastSeen, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan device row: %w", err)
	}

	device.LastSeenAt = time.Unix(lastSeen, 0)
	device.CreatedAt = time.Unix(createdAt, 0)
	return &device, nil
}

// GetDeviceItem returns the value stored under key.
func (s *SQLiteStore) GetDeviceItem(ctx context.Context, deviceID, key string) (string, error) {
	var value string
	err := s.db.QueryRowContext(ctx,
		`SELECT value FROM device_items WHERE device_id = ? AND key = ?`, deviceID, key,
	).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("get device item: %w", err)
	}
	return value, nil
}

// SetDeviceItem overwrites the value stored under key.
// The device row is created when missing.
func (s *SQLiteStore) SetDeviceItem(ctx context.Context, deviceID, key, value string) error {
	now := s.now()
	if err := s.TouchDevice(ctx, deviceID, now); err != nil {
		return err
	}

	query := `
	INSERT INTO device_items (device_id, key, value, updated_at) VALUES (?, ?, ?, ?)
	ON CONFLICT(device_id, key) DO UPDATE SET
		value = excluded.value,
		updated_at = excluded.updated_at`

	err := shared.RetryOnConflict(ctx, "set device item", commitAttempts, commitBaseDelay, func() error {
		_, err := s.db.ExecContext(ctx, query, deviceID, key, value, now.Unix())
		return err
	})
	if err != nil {
		return fmt.Errorf("set device item: %w", err)
	}
	return nil
}

// RemoveDeviceItem deletes key for the device.
func (s *SQLiteStore) RemoveDeviceItem(ctx context.Context, deviceID, key string) error {
	if _, err := s.db.ExecContext(ctx,
		`DELETE FROM device_items WHERE device_id = ? AND key = ?`, deviceID, key,
	); err != nil {
		return fmt.Errorf("remove device item: %w", err)
	}
	return nil
}

// DeleteIdleDevices removes devices unseen for longer than idle.
func (s *SQLiteStore) DeleteIdleDevices(ctx context.Context, idle time.Duration) (int64, error) {
	threshold := s.now().Add(-idle).Unix()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			slog.Warn("failed to rollback idle device cleanup", "error", rbErr)
		}
	}()

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM device_items WHERE device_id IN (SELECT device_id FROM devices WHERE last_seen_at < ?)`,
		threshold,
	); err != nil {
		return 0, fmt.Errorf("delete idle device items: %w", err)
	}

	result, err := tx.ExecContext(ctx, `DELETE FROM devices WHERE last_seen_at < ?`, threshold)
	if err != nil {
		return 0, fmt.Errorf("delete idle devices: %w", err)
	}
	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("get rows affected: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit idle device cleanup: %w", err)
	}
	return deleted, nil
}
