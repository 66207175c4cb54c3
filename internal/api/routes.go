package api

import (
	"net/http"

	"github.com/ashureev/socialdash/internal/identity"
	"github.com/ashureev/socialdash/internal/middleware"
	"github.com/ashureev/socialdash/internal/session"
	"github.com/ashureev/socialdash/internal/telemetry"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
)

// RouterConfig assembles the HTTP surface.
type RouterConfig struct {
	Handler        *Handler
	Health         *HealthHandler
	Sessions       *session.Manager
	Devices        identity.DeviceToucher
	Inbox          http.Handler
	Static         http.Handler
	AllowedOrigins []string
	IsDev          bool
}

// NewRouter wires middleware and every route.
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.RequestLogger)
	r.Use(chimw.Recoverer)
	r.Use(middleware.SecurityHeaders)

	cfg.Health.RegisterHealth(r)
	if cfg.Static != nil {
		r.Handle("/static/*", http.StripPrefix("/static", cfg.Static))
	}

	// The live channel needs the device but not the session.
	r.With(identity.Middleware(cfg.Devices, cfg.IsDev)).Get("/ws/dms", cfg.Inbox.ServeHTTP)

	pages := chi.Chain(
		cfg.Sessions.LoadAndSave,
		identity.Middleware(cfg.Devices, cfg.IsDev),
		middleware.SameOrigin(cfg.AllowedOrigins),
	)
	r.Group(func(r chi.Router) {
		r.Use(pages...)
		cfg.Handler.RegisterRoutes(r)
	})
	r.NotFound(pages.HandlerFunc(cfg.Handler.NotFound).ServeHTTP)

	return telemetry.Handler(r, "socialdash")
}

// RegisterRoutes registers the page routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.Landing)
	r.Get("/login", h.LoginPage)
	r.Post("/login", h.Login)
	r.Get("/signup", h.SignupPage)
	r.Post("/signup", h.Signup)
	r.Get("/business-setup", h.BusinessSetupPage)
	r.Post("/business-setup", h.BusinessSetup)
	r.Post("/logout", h.Logout)

	r.Get("/dashboard", h.Dashboard)

	r.Route("/create", func(r chi.Router) {
		r.Get("/", h.Creator)
		r.Post("/generate", h.GeneratePost)
		r.Post("/caption", h.GenerateCaption)
		r.Post("/publish", h.PublishPost)
		r.Post("/schedule", h.SchedulePost)
	})

	r.Get("/schedule", h.Schedule)
	r.Get("/analytics", h.Analytics)
	r.Get("/comments", h.Comments)

	r.Get("/sentiment", h.Sentiment)
	r.Post("/sentiment", h.AnalyzeSentiment)
	r.Post("/sentiment/clear", h.ClearSentiment)

	r.Get("/insights", h.Insights)

	r.Get("/settings", h.Settings)
	r.Post("/settings/refresh", h.RefreshSession)

	r.Get("/dms", h.DMs)
	r.Post("/dms/send", h.SendDM)
}
