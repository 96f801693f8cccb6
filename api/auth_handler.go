package api

import (
	"net/http"
	"strings"

	"github.com/rpupo63/round/auth"
	"github.com/rpupo63/round/database"
	"github.com/rpupo63/round/errs"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

type authHandler struct {
	responder Responder
	logger    zerolog.Logger
	users     *database.UserRepo
	sessions  *auth.SessionManager
	github    *auth.GitHub
	appURL    string
}

func newAuthHandler(users *database.UserRepo, sessions *auth.SessionManager, github *auth.GitHub, appURL string) authHandler {
	logger := log.With().Str("handlerName", "authHandler").Logger()

	return authHandler{
		responder: NewResponder(logger),
		logger:    logger,
		users:     users,
		sessions:  sessions,
		github:    github,
		appURL:    strings.TrimRight(appURL, "/"),
	}
}

// githubLogin redirects to GitHub's consent page.
func (h authHandler) githubLogin() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if h.github == nil || !h.github.Enabled() {
			h.responder.WriteError(w, errs.NewApiErr(http.StatusServiceUnavailable, "github login is not configured"))
			return
		}
		loginURL, err := h.github.LoginURL(safeRedirect(r.URL.Query().Get("redirect")))
		if err != nil {
			h.responder.WriteError(w, err)
			return
		}
		http.Redirect(w, r, loginURL, http.StatusFound)
	}
}

// githubCallback finishes the login: it links the GitHub account to a user,
// starts a session and sends the browser back to the app.
func (h authHandler) githubCallback() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if h.github == nil || !h.github.Enabled() {
			h.responder.WriteError(w, errs.NewApiErr(http.StatusServiceUnavailable, "github login is not configured"))
			return
		}
		query := r.URL.Query()
		if reason := query.Get("error"); reason != "" {
			h.responder.WriteError(w, errs.NewUnauthorizedError("github login denied: "+reason))
			return
		}
		redirect, err := h.github.VerifyState(query.Get("state"))
		if err != nil {
			h.responder.WriteError(w, err)
			return
		}
		code := query.Get("code")
		if code == "" {
			h.responder.WriteError(w, errs.NewMissingRequiredFieldError("code"))
			return
		}

		profile, account, err := h.github.Complete(r.Context(), code)
		if err != nil {
			h.logger.Warn().Err(err).Msg("GitHub login failed")
			h.responder.WriteError(w, err)
			return
		}
		user, err := h.users.UpsertFromProvider(r.Context(), profile, account)
		if err != nil {
			h.responder.WriteError(w, err)
			return
		}

		token, session, err := h.sessions.Issue(r.Context(), user.ID, auth.RequestMeta{
			IPAddress: r.RemoteAddr,
			UserAgent: r.UserAgent(),
		})
		if err != nil {
			h.responder.WriteError(w, err)
			return
		}
		http.SetCookie(w, h.sessions.Cookie(token, session.ExpiresAt, strings.HasPrefix(h.appURL, "https://")))
		h.logger.Info().Str("userId", user.ID).Msg("User signed in")
		http.Redirect(w, r, h.appURL+safeRedirect(redirect), http.StatusFound)
	}
}

func (h authHandler) getSession() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		session := ctxGetSession(r.Context())
		h.responder.WriteJSON(w, SessionResponse{User: session.User, ExpiresAt: session.ExpiresAt})
	}
}

func (h authHandler) logout() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if token := auth.TokenFromRequest(r); token != "" {
			if err := h.sessions.Revoke(r.Context(), token); err != nil {
				h.responder.WriteError(w, err)
				return
			}
		}
		http.SetCookie(w, auth.ClearCookie())
		h.responder.WriteJSON(w, Result{Success: true})
	}
}

// safeRedirect keeps post-login redirects on the app's own origin.
func safeRedirect(path string) string {
	if !strings.HasPrefix(path, "/") || strings.HasPrefix(path, "//") || strings.Contains(path, `\`) {
		return "/"
	}
	return path
}
