// Package api provides the HTTP handlers for the dashboard pages.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/ashureev/socialdash/internal/backend"
	"github.com/ashureev/socialdash/internal/domain"
	"github.com/ashureev/socialdash/internal/fixtures"
	"github.com/ashureev/socialdash/internal/identity"
	"github.com/ashureev/socialdash/internal/inbox"
	"github.com/ashureev/socialdash/internal/logging"
	"github.com/ashureev/socialdash/internal/session"
	"github.com/ashureev/socialdash/internal/view"
)

// Backend is the part of the backend client the handlers use.
type Backend interface {
	ObtainToken(ctx context.Context, creds backend.Credentials) (backend.TokenPair, error)
	Register(ctx context.Context, reg backend.Registration) (backend.TokenPair, error)
	RefreshToken(ctx context.Context, refresh string) (backend.TokenPair, error)
	CreateBusinessAccount(ctx context.Context, token string, in backend.BusinessAccountInput) (backend.BusinessAccount, error)
	GetBusinessAccount(ctx context.Context, token, id string) (backend.BusinessAccount, error)
	InstagramInsights(ctx context.Context, token string) (backend.Insights, error)
	InstagramPosts(ctx context.Context, token string) ([]backend.Post, error)
	InstagramProfile(ctx context.Context, token string) (backend.Profile, error)
	PostComments(ctx context.Context, token, mediaID string) ([]backend.Comment, error)
	GeneratePost(ctx context.Context, token, prompt string) (backend.GeneratedPost, error)
	GenerateCaption(ctx context.Context, token string, in backend.CaptionRequest) (string, error)
	SentimentAnalysis(ctx context.Context, token, text string) (backend.Sentiment, error)
	PublishPost(ctx context.Context, token string, in backend.PublishInput) (backend.PublishResult, error)
	ResolveURL(ref string) string
}

// DeviceItems stores durable per-device values.
type DeviceItems interface {
	GetDeviceItem(ctx context.Context, deviceID, key string) (string, error)
	SetDeviceItem(ctx context.Context, deviceID, key, value string) error
	RemoveDeviceItem(ctx context.Context, deviceID, key string) error
	GetDevice(ctx context.Context, deviceID string) (*domain.Device, error)
}

// Handler provides common handler utilities.
type Handler struct {
	backend  Backend
	sessions *session.Manager
	devices  DeviceItems
	views    *view.Renderer
	fixtures *fixtures.Set
	inbox    *inbox.Conversations
	live     *inbox.WebSocketHandler
	hub      *inbox.Hub
	now      func() time.Time
}

// Deps are the collaborators of Handler.
type Deps struct {
	Backend       Backend
	Sessions      *session.Manager
	Devices       DeviceItems
	Views         *view.Renderer
	Fixtures      *fixtures.Set
	Conversations *inbox.Conversations
	Live          *inbox.WebSocketHandler
	Hub           *inbox.Hub
}

// NewHandler creates a new Handler with common dependencies.
func NewHandler(d Deps) *Handler {
	return &Handler{
		backend:  d.Backend,
		sessions: d.Sessions,
		devices:  d.Devices,
		views:    d.Views,
		fixtures: d.Fixtures,
		inbox:    d.Conversations,
		live:     d.Live,
		hub:      d.Hub,
		now:      time.Now,
	}
}

// JSON writes a JSON response with the given status code.
func JSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, `{"error": "failed to encode response"}`, http.StatusInternalServerError)
	}
}

// Error writes a JSON error response.
func Error(w http.ResponseWriter, status int, message string) {
	JSON(w, status, map[string]string{"error": message})
}

// render writes a page inside the sidebar shell.
func (h *Handler) render(w http.ResponseWriter, r *http.Request, status int, page, title string, content any) {
	s := h.sessions.Snapshot(r.Context())
	shell := view.NewShell(title, r.URL.Path, s.IsAuthenticated, s.UserID, h.sessions.PopFlash(r.Context()))
	h.write(w, r, status, page, view.Page{Shell: shell, Content: content})
}

// renderPublic writes a page without the sidebar.
func (h *Handler) renderPublic(w http.ResponseWriter, r *http.Request, status int, page, title string, content any) {
	s := h.sessions.Snapshot(r.Context())
	shell := view.PublicShell(title, r.URL.Path, s.IsAuthenticated, h.sessions.PopFlash(r.Context()))
	h.write(w, r, status, page, view.Page{Shell: shell, Content: content})
}

func (h *Handler) write(w http.ResponseWriter, r *http.Request, status int, page string, data view.Page) {
	if err := h.views.Write(w, r, status, page, data); err != nil {
		logging.FromRequest(r).Error("Failed to write page", "page", page, "error", err)
	}
}

// redirect sends a see-other redirect so the browser follows with GET.
func redirect(w http.ResponseWriter, r *http.Request, to string) {
	http.Redirect(w, r, to, http.StatusSeeOther)
}

// flashRedirect stores a notice and redirects.
func (h *Handler) flashRedirect(w http.ResponseWriter, r *http.Request, to, msg string) {
	h.sessions.PutFlash(r.Context(), msg)
	redirect(w, r, to)
}

// NotFound renders the error page with 404.
func (h *Handler) NotFound(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, http.StatusNotFound, "error", "Not found", view.ErrorView{
		Title:   "Page not found",
		Message: "The page you are looking for does not exist.",
	})
}

// serverError renders the error page with 500.
func (h *Handler) serverError(w http.ResponseWriter, r *http.Request, msg string, err error) {
	logging.FromRequest(r).Error(msg, "error", err)
	h.render(w, r, http.StatusInternalServerError, "error", "Error", view.ErrorView{
		Title:   "Something went wrong",
		Message: "Please try again.",
	})
}

// logFetchFailure logs a backend failure at the call site.
func logFetchFailure(r *http.Request, what string, err error) {
	if err == nil {
		return
	}
	log := logging.FromRequest(r)
	if r.Context().Err() != nil {
		log.Debug("Fetch abandoned", "fetch", what, "error", err)
		return
	}
	log.Warn("Fetch failed", "fetch", what, "error", err, "device_id", identity.DeviceIDFromContext(r.Context()))
}

// errMessage uses the backend's message when present, else fallback.
func errMessage(fallback string) func(error) string {
	return func(err error) string {
		if msg := backend.ErrorMessage(err); msg != "" {
			return msg
		}
		return fallback
	}
}

// fixedMessage always shows msg.
func fixedMessage(msg string) func(error) string {
	return func(error) string { return msg }
}
