package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/hetaoshu/hetaoshu-web/internal/api"
	"github.com/hetaoshu/hetaoshu-web/internal/apiclient"
	"github.com/hetaoshu/hetaoshu-web/internal/domain"
	"github.com/hetaoshu/hetaoshu-web/internal/feed"
	"github.com/hetaoshu/hetaoshu-web/internal/logger"
	"github.com/hetaoshu/hetaoshu-web/internal/middleware"
	"github.com/hetaoshu/hetaoshu-web/internal/session"
	"github.com/hetaoshu/hetaoshu-web/internal/validation"
)

const (
	profilePath = "/profile"

	tabInfo     = "info"
	tabPosts    = "posts"
	tabPassword = "password"
)

type profilePage struct {
	Tab   string
	User  domain.User
	Posts []feed.Card
}

func profileTab(raw string) string {
	switch raw {
	case tabPosts, tabPassword:
		return raw
	}
	return tabInfo
}

func (h *Handler) ProfileGetHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	s := session.FromContext(ctx)
	page := profilePage{Tab: profileTab(r.URL.Query().Get("tab")), User: s.User}

	user, err := h.APIClient.Profile(ctx)
	if err != nil {
		if errors.Is(err, apiclient.ErrUnauthorized) {
			h.unauthorized(w, r)
			return
		}
		logger.FromRequest(r).Warn("failed to load profile, showing cached user", "error", err)
		h.renderTemplateWithError(w, r, "profile.html", page, userMessage(err))
		return
	}
	if user.ID.IsZero() {
		user.ID = s.User.ID
	}
	if user.Name != s.User.Name || user.Email != s.User.Email || user.StudentID != s.User.StudentID {
		if err := h.Sessions.UpdateUser(ctx, s, user); err != nil {
			logger.FromRequest(r).Warn("failed to refresh session user", "error", err)
		}
	}
	page.User = user

	if page.Tab == tabPosts {
		posts, err := h.APIClient.UserPosts(ctx, user.ID)
		if err != nil {
			if errors.Is(err, apiclient.ErrUnauthorized) {
				h.unauthorized(w, r)
				return
			}
			logger.FromRequest(r).Warn("failed to load user posts", "error", err)
			h.renderTemplateWithError(w, r, "profile.html", page, userMessage(err))
			return
		}
		for _, p := range posts {
			page.Posts = append(page.Posts, feed.PostCard(p, h.feedOptions()))
		}
	}

	h.renderTemplate(w, r, "profile.html", page)
}

// ProfilePostHandler changes the display name.
func (h *Handler) ProfilePostHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	s := session.FromContext(ctx)
	name := strings.TrimSpace(r.FormValue("name"))

	if err := validation.Required(name); err != nil {
		h.redirectWithFlash(w, r, profilePath, middleware.FlashError, err.Error())
		return
	}

	user, err := h.APIClient.UpdateProfile(ctx, api.UpdateProfileRequest{Name: name})
	if err != nil {
		h.redirectWithError(w, r, profilePath, err)
		return
	}
	if user.ID.IsZero() {
		user.ID = s.User.ID
	}
	if err := h.Sessions.UpdateUser(ctx, s, user); err != nil {
		logger.FromRequest(r).Error("failed to update session user", "error", err)
	}
	h.redirectWithFlash(w, r, profilePath, middleware.FlashSuccess, "Profile updated")
}

func (h *Handler) ProfilePasswordPostHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	s := session.FromContext(ctx)
	target := withQuery(profilePath, map[string]string{"tab": tabPassword})

	req := api.ChangePasswordRequest{
		CurrentPassword: r.FormValue("current_password"),
		NewPassword:     r.FormValue("new_password"),
	}
	if err := validation.Required(req.CurrentPassword, req.NewPassword); err != nil {
		h.redirectWithFlash(w, r, target, middleware.FlashError, err.Error())
		return
	}
	if confirm := r.FormValue("confirm_password"); confirm != "" && confirm != req.NewPassword {
		h.redirectWithFlash(w, r, target, middleware.FlashError, "Passwords do not match")
		return
	}

	token, err := h.APIClient.ChangePassword(ctx, req)
	if err != nil {
		h.redirectWithError(w, r, target, err)
		return
	}
	if token != "" {
		if err := h.Sessions.UpdateToken(ctx, s, token); err != nil {
			logger.FromRequest(r).Error("failed to store new token", "error", err)
		}
	}
	h.redirectWithFlash(w, r, target, middleware.FlashSuccess, "Password changed")
}
