package api

import (
	"errors"
	"net/http"
	"net/url"

	"github.com/ashureev/socialdash/internal/identity"
	"github.com/ashureev/socialdash/internal/inbox"
	"github.com/ashureev/socialdash/internal/logging"
	"github.com/ashureev/socialdash/internal/view"
)

// DMs renders the inbox with the selected thread's history.
func (h *Handler) DMs(w http.ResponseWriter, r *http.Request) {
	deviceID := identity.DeviceIDFromContext(r.Context())
	dm := view.RenderDMs(h.fixtures.Threads, r.URL.Query().Get("thread"), nil)

	if dm.Active.ID != "" {
		history, err := h.inbox.Messages(deviceID, dm.Active.ID)
		if err != nil {
			logging.FromRequest(r).Warn("Failed to load thread", "thread", dm.Active.ID, "error", err)
		}
		now := h.now()
		for _, m := range history {
			dm.Messages = append(dm.Messages, view.MessageLine{
				ID:   m.ID,
				Text: m.Text,
				Mine: m.Mine,
				When: view.Ago(m.SentAt, now),
			})
		}
	}
	h.render(w, r, http.StatusOK, "dms", "DM Assistant", dm)
}

// SendDM is the form fallback for the live channel.
func (h *Handler) SendDM(w http.ResponseWriter, r *http.Request) {
	deviceID := identity.DeviceIDFromContext(r.Context())
	thread := r.PostFormValue("thread")

	if _, err := h.live.Send(r.Context(), deviceID, thread, r.PostFormValue("text")); err != nil {
		switch {
		case errors.Is(err, inbox.ErrUnknownThread):
			h.NotFound(w, r)
			return
		case errors.Is(err, inbox.ErrEmptyMessage), errors.Is(err, inbox.ErrMessageTooLong):
			h.sessions.PutFlash(r.Context(), "Message was not sent: "+err.Error())
		default:
			h.serverError(w, r, "Failed to send message", err)
			return
		}
	}
	redirect(w, r, "/dms?thread="+url.QueryEscape(thread))
}
