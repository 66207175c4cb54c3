package api

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/ashureev/socialdash/internal/backend"
	"github.com/ashureev/socialdash/internal/logging"
	"github.com/ashureev/socialdash/internal/pagestate"
	"github.com/ashureev/socialdash/internal/view"
)

const creatorView = "creator"

func (h *Handler) loadCreator(r *http.Request) view.CreatorState {
	var st view.CreatorState
	if _, err := h.sessions.LoadView(r.Context(), creatorView, &st); err != nil {
		logging.FromRequest(r).Warn("Discarding unreadable creator state", "error", err)
		h.sessions.DropView(r.Context(), creatorView)
		return view.CreatorState{}
	}
	return st
}

func (h *Handler) saveCreator(w http.ResponseWriter, r *http.Request, st view.CreatorState) {
	if err := h.sessions.SaveView(r.Context(), creatorView, st); err != nil {
		h.serverError(w, r, "Failed to save creator state", err)
		return
	}
	redirect(w, r, "/create")
}

// Creator renders the AI content creator.
func (h *Handler) Creator(w http.ResponseWriter, r *http.Request) {
	st := h.loadCreator(r)
	h.render(w, r, http.StatusOK, "creator", "AI Creator", view.RenderCreator(st, h.backend.ResolveURL))
}

// GeneratePost asks the backend for an image and caption. An empty prompt
// makes no call.
func (h *Handler) GeneratePost(w http.ResponseWriter, r *http.Request) {
	st := h.loadCreator(r)
	st.Prompt = strings.TrimSpace(r.PostFormValue("prompt"))
	if st.Prompt == "" {
		h.saveCreator(w, r, st)
		return
	}

	s := h.sessions.Snapshot(r.Context())
	st.Post = pagestate.Apply(r.Context(), st.Post, func(ctx context.Context) (backend.GeneratedPost, error) {
		post, err := h.backend.GeneratePost(ctx, s.Token, st.Prompt)
		logFetchFailure(r, "generate post", err)
		return post, err
	}, fixedMessage("Failed to generate content"))
	if r.Context().Err() != nil {
		return
	}

	if st.Post.Loaded && !st.Post.Failed {
		st.Caption = st.Post.Data.Caption
		st.Published = nil
	}
	h.saveCreator(w, r, st)
}

// GenerateCaption asks for a caption in the selected language. An empty prompt
// is a no-op; a failure is only logged.
func (h *Handler) GenerateCaption(w http.ResponseWriter, r *http.Request) {
	st := h.loadCreator(r)
	if p := strings.TrimSpace(r.PostFormValue("prompt")); p != "" {
		st.Prompt = p
	}
	st.Language = r.PostFormValue("language")
	if st.Prompt == "" {
		h.saveCreator(w, r, st)
		return
	}

	s := h.sessions.Snapshot(r.Context())
	caption, err := h.backend.GenerateCaption(r.Context(), s.Token, backend.CaptionRequest{
		ShortPrompt:    st.Prompt,
		ExpandedPrompt: fmt.Sprintf("Generate a caption in %s for: %s", st.SelectedLanguage(), st.Prompt),
	})
	if r.Context().Err() != nil {
		return
	}
	if err != nil {
		logFetchFailure(r, "generate caption", err)
	} else {
		st.Caption = caption
	}
	h.saveCreator(w, r, st)
}

// PublishPost publishes the caption and generated image.
func (h *Handler) PublishPost(w http.ResponseWriter, r *http.Request) {
	st := h.loadCreator(r)
	st.Caption = strings.TrimSpace(r.PostFormValue("caption"))

	imageURL := ""
	if st.Post.Loaded {
		imageURL = h.backend.ResolveURL(st.Post.Data.ImageURL)
	}
	if st.Caption == "" && imageURL == "" {
		h.sessions.PutFlash(r.Context(), "Nothing to post yet")
		h.saveCreator(w, r, st)
		return
	}

	s := h.sessions.Snapshot(r.Context())
	result, err := h.backend.PublishPost(r.Context(), s.Token, backend.PublishInput{Caption: st.Caption, ImageURL: imageURL})
	if r.Context().Err() != nil {
		return
	}
	if err != nil {
		logFetchFailure(r, "publish post", err)
		h.sessions.PutFlash(r.Context(), errMessage("Failed to publish post")(err))
		h.saveCreator(w, r, st)
		return
	}

	st.Published = &result
	h.sessions.PutFlash(r.Context(), "Posted successfully!")
	h.saveCreator(w, r, st)
}

// SchedulePost records the chosen date. A missing date is a no-op.
func (h *Handler) SchedulePost(w http.ResponseWriter, r *http.Request) {
	st := h.loadCreator(r)
	raw := strings.TrimSpace(r.PostFormValue("date"))
	if raw == "" {
		h.saveCreator(w, r, st)
		return
	}
	date, err := time.Parse("2006-01-02", raw)
	if err != nil {
		h.sessions.PutFlash(r.Context(), "Pick a valid date")
		h.saveCreator(w, r, st)
		return
	}

	st.ScheduleDate = raw
	h.sessions.PutFlash(r.Context(), "Scheduled for "+view.LongDate(date))
	h.saveCreator(w, r, st)
}
