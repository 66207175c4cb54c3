package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/ashureev/socialdash/internal/backend"
	"github.com/ashureev/socialdash/internal/domain"
	"github.com/ashureev/socialdash/internal/identity"
	"github.com/ashureev/socialdash/internal/logging"
	"github.com/ashureev/socialdash/internal/pagestate"
	"github.com/ashureev/socialdash/internal/session"
	"github.com/ashureev/socialdash/internal/store"
	"github.com/ashureev/socialdash/internal/view"
)

// Settings renders the session summary and profile.
func (h *Handler) Settings(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	s := h.sessions.Snapshot(ctx)

	var profile pagestate.State[backend.Profile]
	if s.HasToken() {
		profile = pagestate.Apply(ctx, profile, func(ctx context.Context) (backend.Profile, error) {
			p, err := h.backend.InstagramProfile(ctx, s.Token)
			logFetchFailure(r, "profile", err)
			return p, err
		}, nil)
		if ctx.Err() != nil {
			return
		}
	}

	_, hasRefresh := h.refreshToken(r)
	var since time.Time
	if d, err := h.devices.GetDevice(ctx, identity.DeviceIDFromContext(ctx)); err == nil {
		since = d.CreatedAt
	}
	h.render(w, r, http.StatusOK, "settings", "Settings", view.RenderSettings(view.SettingsInput{
		Authenticated:   s.IsAuthenticated,
		Token:           s.Token,
		UserID:          s.UserID,
		BusinessID:      s.BusinessID,
		HasRefreshToken: hasRefresh,
		DeviceSince:     since,
		Profile:         profile,
		Fixtures:        h.fixtures,
	}))
}

// RefreshSession trades the device's refresh token for a new access token.
// The user and business ids are kept.
func (h *Handler) RefreshSession(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logging.FromRequest(r)

	refresh, ok := h.refreshToken(r)
	if !ok {
		h.flashRedirect(w, r, "/settings", "No refresh token is stored on this device")
		return
	}

	pair, err := h.backend.RefreshToken(ctx, refresh)
	if ctx.Err() != nil {
		return
	}
	if err != nil {
		logFetchFailure(r, "refresh token", err)
		h.flashRedirect(w, r, "/settings", errMessage("Could not refresh your session")(err))
		return
	}

	s := h.sessions.Snapshot(ctx)
	ids := session.Identifiers{UserID: s.UserID, BusinessID: s.BusinessID}
	if ids.UserID == "" {
		ids.UserID = backend.UserIDFromToken(pair.Access)
	}
	if _, err := h.sessions.SetAuthenticated(ctx, pair.Access, ids); err != nil {
		h.serverError(w, r, "Failed to update session", err)
		return
	}

	if pair.Refresh != refresh {
		deviceID := identity.DeviceIDFromContext(ctx)
		if err := h.devices.SetDeviceItem(ctx, deviceID, domain.RefreshTokenKey, pair.Refresh); err != nil {
			log.Warn("Failed to store rotated refresh token", "device_id", deviceID, "error", err)
		}
	}
	log.Info("Session refreshed", "user_id", ids.UserID)
	h.flashRedirect(w, r, "/settings", "Session refreshed")
}

func (h *Handler) refreshToken(r *http.Request) (string, bool) {
	deviceID := identity.DeviceIDFromContext(r.Context())
	if deviceID == "" {
		return "", false
	}
	v, err := h.devices.GetDeviceItem(r.Context(), deviceID, domain.RefreshTokenKey)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			logging.FromRequest(r).Warn("Failed to read refresh token", "device_id", deviceID, "error", err)
		}
		return "", false
	}
	return v, v != ""
}
