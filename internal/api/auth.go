package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/ashureev/socialdash/internal/backend"
	"github.com/ashureev/socialdash/internal/domain"
	"github.com/ashureev/socialdash/internal/identity"
	"github.com/ashureev/socialdash/internal/logging"
	"github.com/ashureev/socialdash/internal/session"
	"github.com/ashureev/socialdash/internal/view"
)

var errMissingFields = errors.New("missing required fields")

// formValues collects the named fields from a parsed form.
func formValues(r *http.Request, names ...string) map[string]string {
	out := make(map[string]string, len(names))
	for _, n := range names {
		out[n] = strings.TrimSpace(r.PostFormValue(n))
	}
	return out
}

func requireFields(values map[string]string, names ...string) error {
	for _, n := range names {
		if values[n] == "" {
			return errMissingFields
		}
	}
	return nil
}

// LoginPage renders the login form.
func (h *Handler) LoginPage(w http.ResponseWriter, r *http.Request) {
	if h.sessions.Snapshot(r.Context()).IsAuthenticated {
		redirect(w, r, "/dashboard")
		return
	}
	h.renderPublic(w, r, http.StatusOK, "login", "Log in", view.RenderForm(nil, ""))
}

// Login exchanges credentials for tokens.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	if h.sessions.Snapshot(r.Context()).IsAuthenticated {
		redirect(w, r, "/dashboard")
		return
	}
	if err := r.ParseForm(); err != nil {
		h.renderPublic(w, r, http.StatusBadRequest, "login", "Log in", view.RenderForm(nil, "Invalid form submission"))
		return
	}

	values := formValues(r, "username", "password")
	if err := requireFields(values, "username", "password"); err != nil {
		h.renderPublic(w, r, http.StatusUnprocessableEntity, "login", "Log in", view.RenderForm(values, "Username and password are required"))
		return
	}

	pair, err := h.backend.ObtainToken(r.Context(), backend.Credentials{
		Username: values["username"],
		Password: r.PostFormValue("password"),
	})
	if err != nil {
		logFetchFailure(r, "obtain token", err)
		msg := errMessage("Invalid username or password")(err)
		h.renderPublic(w, r, http.StatusUnprocessableEntity, "login", "Log in", view.RenderForm(values, msg))
		return
	}

	h.signIn(w, r, pair)
}

// SignupPage renders the signup form.
func (h *Handler) SignupPage(w http.ResponseWriter, r *http.Request) {
	if h.sessions.Snapshot(r.Context()).IsAuthenticated {
		redirect(w, r, "/dashboard")
		return
	}
	h.renderPublic(w, r, http.StatusOK, "signup", "Sign up", view.RenderForm(nil, ""))
}

// Signup registers an account.
func (h *Handler) Signup(w http.ResponseWriter, r *http.Request) {
	if h.sessions.Snapshot(r.Context()).IsAuthenticated {
		redirect(w, r, "/dashboard")
		return
	}
	if err := r.ParseForm(); err != nil {
		h.renderPublic(w, r, http.StatusBadRequest, "signup", "Sign up", view.RenderForm(nil, "Invalid form submission"))
		return
	}

	values := formValues(r, "first_name", "last_name", "username", "email")
	if err := requireFields(values, "username", "email"); err != nil || r.PostFormValue("password") == "" {
		h.renderPublic(w, r, http.StatusUnprocessableEntity, "signup", "Sign up", view.RenderForm(values, "Please fill in every field"))
		return
	}

	pair, err := h.backend.Register(r.Context(), backend.Registration{
		FirstName: values["first_name"],
		LastName:  values["last_name"],
		Username:  values["username"],
		Email:     values["email"],
		Password:  r.PostFormValue("password"),
	})
	if err != nil {
		logFetchFailure(r, "register", err)
		msg := errMessage("Could not create your account")(err)
		h.renderPublic(w, r, http.StatusUnprocessableEntity, "signup", "Sign up", view.RenderForm(values, msg))
		return
	}

	h.signIn(w, r, pair)
}

// signIn stores the access token in the session and the refresh token on the
// device, then continues to business setup.
func (h *Handler) signIn(w http.ResponseWriter, r *http.Request, pair backend.TokenPair) {
	ctx := r.Context()
	log := logging.FromRequest(r)

	if deviceID := identity.DeviceIDFromContext(ctx); deviceID != "" && pair.Refresh != "" {
		if err := h.devices.SetDeviceItem(ctx, deviceID, domain.RefreshTokenKey, pair.Refresh); err != nil {
			log.Warn("Failed to store refresh token", "device_id", deviceID, "error", err)
		}
	}

	ids := session.Identifiers{UserID: backend.UserIDFromToken(pair.Access)}
	if _, err := h.sessions.SetAuthenticated(ctx, pair.Access, ids); err != nil {
		h.serverError(w, r, "Failed to start session", err)
		return
	}
	log.Info("Signed in", "user_id", ids.UserID)
	redirect(w, r, "/business-setup")
}

// BusinessSetupPage renders the business profile form.
func (h *Handler) BusinessSetupPage(w http.ResponseWriter, r *http.Request) {
	if h.sessions.Snapshot(r.Context()).HasBusiness() {
		redirect(w, r, "/dashboard")
		return
	}
	h.renderPublic(w, r, http.StatusOK, "business_setup", "Business setup",
		view.RenderForm(map[string]string{"auto_reply_enabled": "on"}, ""))
}

// BusinessSetup links a business profile to the account.
func (h *Handler) BusinessSetup(w http.ResponseWriter, r *http.Request) {
	s := h.sessions.Snapshot(r.Context())
	if s.HasBusiness() {
		redirect(w, r, "/dashboard")
		return
	}
	if err := r.ParseForm(); err != nil {
		h.renderPublic(w, r, http.StatusBadRequest, "business_setup", "Business setup", view.RenderForm(nil, "Invalid form submission"))
		return
	}

	values := formValues(r, "name", "description", "access_token", "auto_reply_enabled")
	if err := requireFields(values, "name", "access_token"); err != nil {
		h.renderPublic(w, r, http.StatusUnprocessableEntity, "business_setup", "Business setup",
			view.RenderForm(values, "Business name and access token are required"))
		return
	}

	acct, err := h.backend.CreateBusinessAccount(r.Context(), s.Token, backend.BusinessAccountInput{
		Name:             values["name"],
		Description:      values["description"],
		AccessToken:      values["access_token"],
		AutoReplyEnabled: values["auto_reply_enabled"] == "on",
	})
	if err != nil {
		logFetchFailure(r, "create business account", err)
		msg := errMessage("Could not link your business account")(err)
		h.renderPublic(w, r, http.StatusUnprocessableEntity, "business_setup", "Business setup", view.RenderForm(values, msg))
		return
	}

	ids := session.Identifiers{UserID: s.UserID, BusinessID: acct.ID.String()}
	if _, err := h.sessions.SetAuthenticated(r.Context(), s.Token, ids); err != nil {
		h.serverError(w, r, "Failed to update session", err)
		return
	}
	logging.FromRequest(r).Info("Business account linked", "business_id", ids.BusinessID)
	redirect(w, r, "/dashboard")
}

// Logout clears the session and the device's refresh token.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logging.FromRequest(r)

	if err := h.sessions.Clear(ctx); err != nil {
		log.Error("Failed to clear session", "error", err)
	}
	if deviceID := identity.DeviceIDFromContext(ctx); deviceID != "" {
		if err := h.devices.RemoveDeviceItem(ctx, deviceID, domain.RefreshTokenKey); err != nil {
			log.Warn("Failed to remove refresh token", "device_id", deviceID, "error", err)
		}
		if h.hub != nil {
			h.hub.CloseDevice(deviceID)
		}
		if h.inbox != nil {
			h.inbox.Forget(deviceID)
		}
	}
	redirect(w, r, "/login")
}
