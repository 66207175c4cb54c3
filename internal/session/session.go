// Package session holds the per-browser authentication session.
//
// Handlers read an immutable Session snapshot and change it only through
// Store, which replaces every field at once.
package session

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/alexedwards/scs/v2"
)

const (
	keyToken         = "auth.token"
	keyAuthenticated = "auth.authenticated"
	keyUserID        = "auth.user_id"
	keyBusinessID    = "auth.business_id"
	keyFlash         = "flash"
	viewKeyPrefix    = "view:"
)

// CookieName is the browser session cookie.
const CookieName = "socialdash_session"

// Session is a snapshot of one browser's authentication state.
type Session struct {
	Token           string
	IsAuthenticated bool
	UserID          string
	BusinessID      string
}

// HasToken reports whether requests should carry a bearer token.
func (s Session) HasToken() bool { return s.Token != "" }

// HasBusiness reports whether business setup has completed.
func (s Session) HasBusiness() bool { return s.BusinessID != "" }

// Identifiers are the optional ids stored next to the token.
type Identifiers struct {
	UserID     string
	BusinessID string
}

// Store exposes the session snapshot and its two mutations.
type Store interface {
	Snapshot(ctx context.Context) Session
	SetAuthenticated(ctx context.Context, token string, ids Identifiers) (Session, error)
	Clear(ctx context.Context) error
}

// Options configures the scs session manager.
type Options struct {
	Lifetime    time.Duration
	IdleTimeout time.Duration
	Secure      bool
}

// NewSCS builds an scs session manager backed by store.
func NewSCS(store scs.Store, opts Options) *scs.SessionManager {
	sm := scs.New()
	sm.Store = store
	if opts.Lifetime > 0 {
		sm.Lifetime = opts.Lifetime
	}
	sm.IdleTimeout = opts.IdleTimeout
	sm.Cookie.Name = CookieName
	sm.Cookie.HttpOnly = true
	sm.Cookie.Path = "/"
	sm.Cookie.SameSite = http.SameSiteLaxMode
	sm.Cookie.Secure = opts.Secure
	return sm
}

// Manager implements Store on top of an scs session manager.
type Manager struct {
	sm *scs.SessionManager
}

var _ Store = (*Manager)(nil)

// NewManager wraps sm.
func NewManager(sm *scs.SessionManager) *Manager {
	return &Manager{sm: sm}
}

// LoadAndSave binds a session to every request passing through next.
func (m *Manager) LoadAndSave(next http.Handler) http.Handler {
	return m.sm.LoadAndSave(next)
}

// Snapshot returns the current session. A request without a session yields
// the zero Session.
func (m *Manager) Snapshot(ctx context.Context) Session {
	return Session{
		Token:           m.sm.GetString(ctx, keyToken),
		IsAuthenticated: m.sm.GetBool(ctx, keyAuthenticated),
		UserID:          m.sm.GetString(ctx, keyUserID),
		BusinessID:      m.sm.GetString(ctx, keyBusinessID),
	}
}

// SetAuthenticated replaces the whole session with token and ids.
// The session token is rotated first so a pre-login cookie cannot be fixed.
func (m *Manager) SetAuthenticated(ctx context.Context, token string, ids Identifiers) (Session, error) {
	if err := m.sm.RenewToken(ctx); err != nil {
		return Session{}, fmt.Errorf("renew session token: %w", err)
	}

	next := Session{
		Token:           token,
		IsAuthenticated: true,
		UserID:          ids.UserID,
		BusinessID:      ids.BusinessID,
	}
	m.sm.Put(ctx, keyToken, next.Token)
	m.sm.Put(ctx, keyAuthenticated, next.IsAuthenticated)
	m.sm.Put(ctx, keyUserID, next.UserID)
	m.sm.Put(ctx, keyBusinessID, next.BusinessID)
	return next, nil
}

// Clear destroys the session. Every field, including page state, is dropped.
func (m *Manager) Clear(ctx context.Context) error {
	if err := m.sm.Destroy(ctx); err != nil {
		return fmt.Errorf("destroy session: %w", err)
	}
	return nil
}

// PutFlash stores a one-shot notice shown on the next rendered page.
func (m *Manager) PutFlash(ctx context.Context, msg string) {
	m.sm.Put(ctx, keyFlash, msg)
}

// PopFlash returns and removes the pending notice.
func (m *Manager) PopFlash(ctx context.Context) string {
	return m.sm.PopString(ctx, keyFlash)
}

// SaveView stores page-scoped state as JSON under page.
func (m *Manager) SaveView(ctx context.Context, page string, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s view: %w", page, err)
	}
	m.sm.Put(ctx, viewKeyPrefix+page, b)
	return nil
}

// LoadView decodes page-scoped state into v. It reports false when none is stored.
func (m *Manager) LoadView(ctx context.Context, page string, v any) (bool, error) {
	b := m.sm.GetBytes(ctx, viewKeyPrefix+page)
	if len(b) == 0 {
		return false, nil
	}
	if err := json.Unmarshal(b, v); err != nil {
		return false, fmt.Errorf("decode %s view: %w", page, err)
	}
	return true, nil
}

// DropView removes page-scoped state.
func (m *Manager) DropView(ctx context.Context, page string) {
	m.sm.Remove(ctx, viewKeyPrefix+page)
}
