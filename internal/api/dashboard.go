package api

import (
	"context"
	"net/http"

	"github.com/ashureev/socialdash/internal/backend"
	"github.com/ashureev/socialdash/internal/pagestate"
	"github.com/ashureev/socialdash/internal/view"
	"golang.org/x/sync/errgroup"
)

// Dashboard fetches the business account, insights and posts concurrently.
// Each fetch folds into its own state; one failing does not affect the others.
func (h *Handler) Dashboard(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	s := h.sessions.Snapshot(ctx)

	var (
		business pagestate.State[backend.BusinessAccount]
		insights pagestate.State[backend.Insights]
		posts    pagestate.State[[]backend.Post]
	)

	var g errgroup.Group
	if s.HasBusiness() {
		g.Go(func() error {
			business = pagestate.Apply(ctx, business, func(ctx context.Context) (backend.BusinessAccount, error) {
				acct, err := h.backend.GetBusinessAccount(ctx, s.Token, s.BusinessID)
				logFetchFailure(r, "business account", err)
				return acct, err
			}, nil)
			return nil
		})
	}
	g.Go(func() error {
		insights = pagestate.Apply(ctx, insights, func(ctx context.Context) (backend.Insights, error) {
			in, err := h.backend.InstagramInsights(ctx, s.Token)
			logFetchFailure(r, "insights", err)
			return in, err
		}, nil)
		return nil
	})
	g.Go(func() error {
		posts = pagestate.Apply(ctx, posts, func(ctx context.Context) ([]backend.Post, error) {
			p, err := h.backend.InstagramPosts(ctx, s.Token)
			logFetchFailure(r, "posts", err)
			return p, err
		}, nil)
		return nil
	})
	_ = g.Wait()

	if ctx.Err() != nil {
		return
	}

	h.render(w, r, http.StatusOK, "dashboard", "Dashboard", view.RenderDashboard(view.DashboardInput{
		Business:   business,
		Insights:   insights,
		Posts:      posts,
		Fixtures:   h.fixtures,
		Now:        h.now(),
		ResolveURL: h.backend.ResolveURL,
	}))
}
