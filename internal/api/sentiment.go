package api

import (
	"context"
	"net/http"
	"strings"

	"github.com/ashureev/socialdash/internal/backend"
	"github.com/ashureev/socialdash/internal/logging"
	"github.com/ashureev/socialdash/internal/pagestate"
	"github.com/ashureev/socialdash/internal/view"
)

const sentimentView = "sentiment"

// Sentiment renders the sentiment analyzer.
func (h *Handler) Sentiment(w http.ResponseWriter, r *http.Request) {
	var st view.SentimentState
	if _, err := h.sessions.LoadView(r.Context(), sentimentView, &st); err != nil {
		logging.FromRequest(r).Warn("Discarding unreadable sentiment state", "error", err)
		h.sessions.DropView(r.Context(), sentimentView)
		st = view.SentimentState{}
	}
	h.render(w, r, http.StatusOK, "sentiment", "Sentiment Analysis", view.RenderSentiment(st))
}

// AnalyzeSentiment scores the submitted text. Empty text fails locally
// without a call. A remote failure clears the previous result.
func (h *Handler) AnalyzeSentiment(w http.ResponseWriter, r *http.Request) {
	var st view.SentimentState
	if _, err := h.sessions.LoadView(r.Context(), sentimentView, &st); err != nil {
		st = view.SentimentState{}
	}
	st.Text = r.PostFormValue("text")

	if strings.TrimSpace(st.Text) == "" {
		st.Result = pagestate.Fail(st.Result, "Please enter some text to analyze")
	} else {
		s := h.sessions.Snapshot(r.Context())
		st.Result = pagestate.Apply(r.Context(), pagestate.State[backend.Sentiment]{}, func(ctx context.Context) (backend.Sentiment, error) {
			res, err := h.backend.SentimentAnalysis(ctx, s.Token, st.Text)
			logFetchFailure(r, "sentiment analysis", err)
			return res, err
		}, errMessage("Failed to analyze sentiment"))
		if r.Context().Err() != nil {
			return
		}
	}

	if err := h.sessions.SaveView(r.Context(), sentimentView, st); err != nil {
		h.serverError(w, r, "Failed to save sentiment state", err)
		return
	}
	redirect(w, r, "/sentiment")
}

// ClearSentiment resets the analyzer.
func (h *Handler) ClearSentiment(w http.ResponseWriter, r *http.Request) {
	h.sessions.DropView(r.Context(), sentimentView)
	redirect(w, r, "/sentiment")
}
