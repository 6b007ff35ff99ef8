package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/hetaoshu/hetaoshu-web/internal/apiclient"
	"github.com/hetaoshu/hetaoshu-web/internal/domain"
	internal_errors "github.com/hetaoshu/hetaoshu-web/internal/errors"
	"github.com/hetaoshu/hetaoshu-web/internal/logger"
	"github.com/hetaoshu/hetaoshu-web/internal/middleware"
	"github.com/hetaoshu/hetaoshu-web/internal/session"
)

const (
	msgBackendUnavailable = "Internal error: backend unavailable."
	msgLoginNeeded        = "Please log in to continue"
)

// userMessage is the text shown for a failed API call.
func userMessage(err error) string {
	var e *internal_errors.ErrorWithStatusCode
	if errors.As(err, &e) && e.Message != "" {
		return e.Message
	}
	return msgBackendUnavailable
}

func (h *Handler) setFlash(w http.ResponseWriter, name, message string) {
	middleware.SetFlash(w, name, message, h.Public.SecureCookies)
}

func (h *Handler) redirectWithFlash(w http.ResponseWriter, r *http.Request, target, name, message string) {
	middleware.RedirectWithFlash(w, r, target, name, message, h.Public.SecureCookies)
}

// unauthorized answers a rejected credential. With a session the 401 is left
// to the auth middleware, which ends the session and redirects once; guests
// are sent to the login page directly.
func (h *Handler) unauthorized(w http.ResponseWriter, r *http.Request) {
	if session.FromContext(r.Context()) != nil {
		http.Error(w, apiclient.ErrUnauthorized.Message, http.StatusUnauthorized)
		return
	}
	h.redirectWithFlash(w, r, "/login", middleware.FlashError, msgLoginNeeded)
}

// redirectWithError sends the browser back to target with the error as a
// notice. Nothing is retried.
func (h *Handler) redirectWithError(w http.ResponseWriter, r *http.Request, target string, err error) {
	if errors.Is(err, apiclient.ErrUnauthorized) {
		h.unauthorized(w, r)
		return
	}
	logger.FromRequest(r).Warn("API call failed", "error", err)
	h.redirectWithFlash(w, r, target, middleware.FlashError, userMessage(err))
}

// renderLoadError answers a page whose main resource could not be loaded.
func (h *Handler) renderLoadError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, apiclient.ErrUnauthorized):
		h.unauthorized(w, r)
	case errors.Is(err, apiclient.ErrNotFound):
		h.renderTemplateStatus(w, r, http.StatusNotFound, "not_found.html", nil, "")
	default:
		logger.FromRequest(r).Error("failed to load page", "error", err)
		h.renderTemplateStatus(w, r, http.StatusBadGateway, "error.html", nil, userMessage(err))
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Log.Error("failed to encode JSON response", "error", err)
	}
}

func writeJSONError(w http.ResponseWriter, err error) {
	status := internal_errors.StatusCode(err)
	if status == http.StatusInternalServerError {
		status = http.StatusBadGateway
	}
	writeJSON(w, status, map[string]string{"error": userMessage(err)})
}

func idParam(r *http.Request, name string) domain.ID {
	return domain.ID(chi.URLParam(r, name))
}

// queryInt reads a non-negative integer query parameter, def when missing
// or malformed.
func queryInt(r *http.Request, name string, def int) int {
	v, err := strconv.Atoi(r.URL.Query().Get(name))
	if err != nil || v < 0 {
		return def
	}
	return v
}

// clientKey identifies the browser: its session when logged in, else its IP.
func clientKey(r *http.Request) string {
	if s := session.FromContext(r.Context()); s != nil {
		return "session:" + s.ID
	}
	ip, err := middleware.GetIP(r)
	if err != nil {
		return "addr:" + r.RemoteAddr
	}
	return "ip:" + ip
}

// withQuery returns path with query values set, dropping empty ones.
func withQuery(path string, values map[string]string) string {
	q := url.Values{}
	for k, v := range values {
		if v != "" {
			q.Set(k, v)
		}
	}
	if len(q) == 0 {
		return path
	}
	return path + "?" + q.Encode()
}
