package middleware

import (
	"errors"
	"net/http"

	"github.com/hetaoshu/hetaoshu-web/internal/logger"
	"github.com/hetaoshu/hetaoshu-web/internal/session"
)

const (
	loginPath       = "/login"
	msgLoginNeeded  = "Please log in to continue"
	msgSessionEnded = "Your session has expired, please log in again"
)

// Auth resolves browser sessions and turns expired API credentials into a
// logout plus a redirect to the login page.
type Auth struct {
	sessions      *session.Manager
	secureCookies bool
}

func NewAuth(sessions *session.Manager, secureCookies bool) *Auth {
	return &Auth{
		sessions:      sessions,
		secureCookies: secureCookies,
	}
}

// LoadSession puts the session of the request, if any, into the request
// context. Requests that carry a session get their 401 answers intercepted.
func (a *Auth) LoadSession() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			s, err := a.sessions.Load(r)
			if err != nil {
				switch {
				case errors.Is(err, session.ErrInvalidCookie),
					errors.Is(err, session.ErrNotFound) && hasSessionCookie(r):
					logger.FromRequest(r).Debug("dropping unusable session cookie", "error", err)
					a.sessions.ClearCookie(w)
				case !errors.Is(err, session.ErrNotFound):
					// store failure; serve as guest without ending the session
					logger.FromRequest(r).Error("failed to load session", "error", err)
				}
				next.ServeHTTP(w, r)
				return
			}

			r = r.WithContext(session.WithSession(r.Context(), s))
			wrapper := &authRedirectWriter{
				ResponseWriter: w,
				request:        r,
				auth:           a,
			}
			next.ServeHTTP(wrapper, r)
		})
	}
}

// NeedAuth sends guests to the login page.
func (a *Auth) NeedAuth() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if session.FromContext(r.Context()) == nil {
				RedirectWithFlash(w, r, loginPath, FlashError, msgLoginNeeded, a.secureCookies)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// GuestOnly sends logged-in users away from the auth pages.
func (a *Auth) GuestOnly() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if session.FromContext(r.Context()) != nil {
				http.Redirect(w, r, "/", http.StatusSeeOther)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func hasSessionCookie(r *http.Request) bool {
	_, err := r.Cookie(session.CookieName)
	return err == nil
}

// authRedirectWriter intercepts 401 errors, ends the session and redirects
// to login. Only the first 401 is acted on.
type authRedirectWriter struct {
	http.ResponseWriter
	request    *http.Request
	auth       *Auth
	redirected bool // Single flag: true if we've handled a redirect
}

func (w *authRedirectWriter) WriteHeader(statusCode int) {
	if w.redirected {
		return // Already handled
	}

	if statusCode == http.StatusUnauthorized {
		w.redirected = true
		if err := w.auth.sessions.Logout(w.ResponseWriter, w.request); err != nil {
			logger.FromRequest(w.request).Error("failed to end expired session", "error", err)
		}
		RedirectWithFlash(w.ResponseWriter, w.request, loginPath, FlashError, msgSessionEnded, w.auth.secureCookies)
		return
	}

	w.ResponseWriter.WriteHeader(statusCode)
}

func (w *authRedirectWriter) Write(data []byte) (int, error) {
	if w.redirected {
		return len(data), nil // Discard body after redirect
	}
	return w.ResponseWriter.Write(data)
}

func (w *authRedirectWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}
