package api

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/ashureev/socialdash/internal/backend"
	"github.com/ashureev/socialdash/internal/pagestate"
	"github.com/ashureev/socialdash/internal/view"
)

// Landing renders the public landing page.
func (h *Handler) Landing(w http.ResponseWriter, r *http.Request) {
	s := h.sessions.Snapshot(r.Context())
	h.renderPublic(w, r, http.StatusOK, "landing", "", view.RenderLanding(h.fixtures.Landing, s.IsAuthenticated))
}

// Schedule renders the content calendar for ?date=YYYY-MM-DD, default today.
func (h *Handler) Schedule(w http.ResponseWriter, r *http.Request) {
	selected := h.now()
	if raw := r.URL.Query().Get("date"); raw != "" {
		if d, err := time.Parse("2006-01-02", raw); err == nil {
			selected = d
		}
	}
	h.render(w, r, http.StatusOK, "scheduler", "Scheduler", view.RenderScheduler(h.fixtures.ScheduledPosts, selected))
}

// Analytics renders the analytics tabs.
func (h *Handler) Analytics(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, http.StatusOK, "analytics", "Analytics", view.RenderAnalytics(r.URL.Query().Get("tab"), h.fixtures))
}

// Comments renders mock comments, plus live comments for ?media=<id>.
func (h *Handler) Comments(w http.ResponseWriter, r *http.Request) {
	mediaID := strings.TrimSpace(r.URL.Query().Get("media"))

	var live pagestate.State[[]backend.Comment]
	if mediaID != "" {
		s := h.sessions.Snapshot(r.Context())
		live = pagestate.Apply(r.Context(), live, func(ctx context.Context) ([]backend.Comment, error) {
			c, err := h.backend.PostComments(ctx, s.Token, mediaID)
			logFetchFailure(r, "post comments", err)
			return c, err
		}, nil)
		if r.Context().Err() != nil {
			return
		}
	}

	h.render(w, r, http.StatusOK, "comments", "Comments", view.RenderComments(h.fixtures.Comments, mediaID, live, h.now()))
}

// Insights renders trending tags and content ideas.
func (h *Handler) Insights(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, http.StatusOK, "insights", "Weekly Insights", view.RenderInsights(h.fixtures))
}
