package http

import (
	"log/slog"
	"net/http"
	"time"

	"mamon/internal/auth"
)

// stateCookie guards the OAuth round trip against forged callbacks.
const stateCookie = "mamon_oauth_state"

func (s *Server) handleSignIn(w http.ResponseWriter, r *http.Request) {
	// Signed-in users have nothing to do here.
	if _, err := s.sessions.FromRequest(r); err == nil {
		http.Redirect(w, r, "/", http.StatusFound)
		return
	}

	if s.templates == nil {
		slog.ErrorContext(r.Context(), "Templates not loaded", "url", r.URL.Path)
		http.Error(w, "templates not loaded", http.StatusInternalServerError)
		return
	}
	if err := s.templates.ExecuteTemplate(w, "signin.html", nil); err != nil {
		slog.ErrorContext(r.Context(), "Sign-in template execution failed", "error", err, "template", "signin.html")
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func (s *Server) handleGoogleRedirect(w http.ResponseWriter, r *http.Request) {
	state, err := auth.NewState()
	if err != nil {
		slog.ErrorContext(r.Context(), "Failed to generate oauth state", "error", err)
		http.Error(w, "sign-in unavailable", http.StatusInternalServerError)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     stateCookie,
		Value:    state,
		Path:     "/auth",
		MaxAge:   int((10 * time.Minute).Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	http.Redirect(w, r, s.identity.AuthCodeURL(state), http.StatusFound)
}

func (s *Server) handleGoogleCallback(w http.ResponseWriter, r *http.Request) {
	cookie, err := r.Cookie(stateCookie)
	if err != nil || cookie.Value == "" || cookie.Value != r.URL.Query().Get("state") {
		slog.WarnContext(r.Context(), "OAuth state mismatch", "client_ip", extractClientIP(r))
		http.Error(w, "invalid oauth state", http.StatusBadRequest)
		return
	}
	// State is single use.
	http.SetCookie(w, &http.Cookie{Name: stateCookie, Value: "", Path: "/auth", MaxAge: -1})

	code := r.URL.Query().Get("code")
	if code == "" {
		http.Error(w, "missing authorization code", http.StatusBadRequest)
		return
	}

	principal, err := s.identity.Exchange(r.Context(), code)
	if err != nil {
		slog.ErrorContext(r.Context(), "OAuth code exchange failed", "error", err)
		http.Error(w, "sign-in failed", http.StatusBadGateway)
		return
	}

	token, err := s.sessions.Issue(principal)
	if err != nil {
		slog.ErrorContext(r.Context(), "Failed to issue session", "error", err, "user", principal.Email)
		http.Error(w, "sign-in failed", http.StatusInternalServerError)
		return
	}

	s.sessions.SetCookie(w, token)
	slog.InfoContext(r.Context(), "User signed in", "user", principal.Email)
	http.Redirect(w, r, "/", http.StatusFound)
}

func (s *Server) handleSignOut(w http.ResponseWriter, r *http.Request) {
	if principal, err := s.sessions.FromRequest(r); err == nil {
		slog.InfoContext(r.Context(), "User signed out", "user", principal.Email)
	}
	s.sessions.ClearCookie(w)
	http.Redirect(w, r, "/auth/signin", http.StatusFound)
}
