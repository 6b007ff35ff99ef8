package handler

import (
	"context"
	"errors"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/hetaoshu/hetaoshu-web/internal/api"
	"github.com/hetaoshu/hetaoshu-web/internal/apiclient"
	"github.com/hetaoshu/hetaoshu-web/internal/domain"
	"github.com/hetaoshu/hetaoshu-web/internal/logger"
	"github.com/hetaoshu/hetaoshu-web/internal/middleware"
	"github.com/hetaoshu/hetaoshu-web/internal/session"
	"github.com/hetaoshu/hetaoshu-web/internal/validation"
)

// Form field names of the post form.
const (
	formImages       = "images"
	formOrder        = "order"
	formKeepImageIDs = "keep_image_ids"
	formKeepImageURL = "keep_image_urls"
	formSelected     = "selected"
	formAction       = "action"
)

// Edit form actions. select, move and remove carry an index: "move-2".
const (
	actionSave   = "save"
	actionSelect = "select"
	actionMove   = "move"
	actionRemove = "remove"
)

const msgEditNotAllowed = "Only the author can edit this post"

// postForm is the state of the create and edit forms. On edit, Kept are the
// existing images in their new order and Selected is the image picked for a
// move, -1 when none is.
type postForm struct {
	Action    string
	Editing   bool
	PostID    domain.ID
	Title     string
	Content   string
	ThemeType domain.ThemeType
	Kept      []domain.Image
	Selected  int
}

func (f postForm) HasSelection() bool {
	return f.Selected >= 0 && f.Selected < len(f.Kept)
}

// Gutters are the insertion points around the kept images.
func (f postForm) Gutters() []int {
	out := make([]int, len(f.Kept)+1)
	for i := range out {
		out[i] = i
	}
	return out
}

func postHref(id domain.ID) string {
	return "/posts/" + id.String()
}

func parseThemeType(raw string) domain.ThemeType {
	t := domain.ThemeType(strings.TrimSpace(raw))
	if !t.Known() {
		return domain.ThemeShare
	}
	return t
}

// parseAction splits "move-2" into ("move", 2). Anything else saves.
func parseAction(raw string) (string, int) {
	name, arg, found := strings.Cut(raw, "-")
	if !found {
		return actionSave, -1
	}
	idx, err := strconv.Atoi(arg)
	if err != nil || idx < 0 {
		return actionSave, -1
	}
	switch name {
	case actionSelect, actionMove, actionRemove:
		return name, idx
	}
	return actionSave, -1
}

func (h *Handler) postImages(ctx context.Context, post domain.Post) ([]domain.Image, error) {
	if post.Images != nil {
		return post.Images, nil
	}
	images, err := h.APIClient.PostImages(ctx, post.ID)
	if err != nil {
		if errors.Is(err, apiclient.ErrUnauthorized) {
			return nil, err
		}
		logger.Log.Warn("failed to load post images", "post_id", post.ID, "error", err)
		return nil, nil
	}
	return images, nil
}

// validatePost runs every check that does not need the API. kept is the
// number of existing images the post keeps.
func (h *Handler) validatePost(form postForm, files []*multipart.FileHeader, kept int) error {
	if err := (validation.PostForm{Title: form.Title, Content: form.Content, ThemeType: form.ThemeType}).Validate(); err != nil {
		return err
	}
	return validation.ValidateImages(files, kept, h.imageLimits())
}

func (h *Handler) PostGetHandler(w http.ResponseWriter, r *http.Request) {
	id := idParam(r, "id")
	view, err := h.loadPost(r.Context(), id, queryInt(r, "img", 0), postHref(id))
	if err != nil {
		h.renderLoadError(w, r, err)
		return
	}
	h.renderTemplate(w, r, "post.html", view)
}

func (h *Handler) PostCreateGetHandler(w http.ResponseWriter, r *http.Request) {
	form := postForm{
		Action:    "/posts/create",
		ThemeType: parseThemeType(r.URL.Query().Get("type")),
		Selected:  -1,
	}
	h.renderTemplate(w, r, "post_form.html", form)
}

func (h *Handler) PostCreatePostHandler(w http.ResponseWriter, r *http.Request) {
	targetURL := "/posts/create"
	if err := validation.ValidateAndParseMultipart(r, w, validation.CalculateMaxRequestSize(h.imageLimits())); err != nil {
		h.redirectWithFlash(w, r, targetURL, middleware.FlashError, err.Error())
		return
	}

	form := postForm{
		Action:    targetURL,
		Title:     r.FormValue("title"),
		Content:   r.FormValue("content"),
		ThemeType: parseThemeType(r.FormValue("theme_type")),
		Selected:  -1,
	}
	files := r.MultipartForm.File[formImages]

	if err := h.validatePost(form, files, 0); err != nil {
		h.renderTemplateStatus(w, r, http.StatusBadRequest, "post_form.html", form, err.Error())
		return
	}
	order, err := validation.ParseOrder(r.FormValue(formOrder), len(files))
	if err != nil {
		h.renderTemplateStatus(w, r, http.StatusBadRequest, "post_form.html", form, err.Error())
		return
	}
	files = validation.ApplyOrder(files, order)

	post, err := h.APIClient.CreatePost(r.Context(), api.CreatePostRequest{
		Title:     strings.TrimSpace(form.Title),
		Content:   form.Content,
		ThemeType: form.ThemeType,
	}, files)
	if err != nil {
		if errors.Is(err, apiclient.ErrUnauthorized) {
			h.unauthorized(w, r)
			return
		}
		logger.FromRequest(r).Warn("failed to create post", "error", err)
		h.renderTemplateStatus(w, r, http.StatusBadGateway, "post_form.html", form, userMessage(err))
		return
	}

	target := postHref(post.ID)
	if !post.Theme.IsZero() {
		target = themeHref(post.Theme)
	}
	h.redirectWithFlash(w, r, target, middleware.FlashSuccess, "Post published")
}

func (h *Handler) PostEditGetHandler(w http.ResponseWriter, r *http.Request) {
	id := idParam(r, "id")
	post, err := h.APIClient.Post(r.Context(), id)
	if err != nil {
		h.renderLoadError(w, r, err)
		return
	}
	if !post.CanEdit(session.User(r.Context())) {
		h.redirectWithFlash(w, r, postHref(id), middleware.FlashError, msgEditNotAllowed)
		return
	}
	images, err := h.postImages(r.Context(), post)
	if err != nil {
		h.unauthorized(w, r)
		return
	}

	form := postForm{
		Action:    postHref(id) + "/edit",
		Editing:   true,
		PostID:    id,
		Title:     post.Title,
		Content:   post.Content,
		ThemeType: post.ThemeType,
		Kept:      images,
		Selected:  -1,
	}
	h.renderTemplate(w, r, "post_form.html", form)
}

// keptImages reads the existing images the form still carries, in order.
func keptImages(r *http.Request) []domain.Image {
	ids := r.PostForm[formKeepImageIDs]
	urls := r.PostForm[formKeepImageURL]
	n := min(len(ids), len(urls))
	images := make([]domain.Image, 0, n)
	for i := 0; i < n; i++ {
		images = append(images, domain.Image{ID: domain.ID(ids[i]), URL: urls[i], Order: i})
	}
	return images
}

// PostEditPostHandler either saves the post or applies one step of the
// select-then-gutter reordering and shows the form again. Reordering never
// calls the API.
func (h *Handler) PostEditPostHandler(w http.ResponseWriter, r *http.Request) {
	id := idParam(r, "id")
	targetURL := postHref(id) + "/edit"
	if err := validation.ValidateAndParseMultipart(r, w, validation.CalculateMaxRequestSize(h.imageLimits())); err != nil {
		h.redirectWithFlash(w, r, targetURL, middleware.FlashError, err.Error())
		return
	}

	form := postForm{
		Action:    targetURL,
		Editing:   true,
		PostID:    id,
		Title:     r.FormValue("title"),
		Content:   r.FormValue("content"),
		ThemeType: parseThemeType(r.FormValue("theme_type")),
		Kept:      keptImages(r),
		Selected:  -1,
	}
	if selected, err := strconv.Atoi(r.FormValue(formSelected)); err == nil && selected >= 0 && selected < len(form.Kept) {
		form.Selected = selected
	}

	action, idx := parseAction(r.FormValue(formAction))
	switch action {
	case actionSelect:
		if idx < len(form.Kept) && idx != form.Selected {
			form.Selected = idx
		} else {
			form.Selected = -1
		}
		h.renderTemplate(w, r, "post_form.html", form)
		return

	case actionMove:
		if !form.HasSelection() {
			h.renderTemplateWithError(w, r, "post_form.html", form, "Select an image first")
			return
		}
		moved, err := validation.Move(form.Kept, form.Selected, idx)
		if err != nil {
			h.renderTemplateWithError(w, r, "post_form.html", form, err.Error())
			return
		}
		form.Kept = moved
		form.Selected = -1
		h.renderTemplate(w, r, "post_form.html", form)
		return

	case actionRemove:
		if idx < len(form.Kept) {
			form.Kept = append(form.Kept[:idx:idx], form.Kept[idx+1:]...)
		}
		form.Selected = -1
		h.renderTemplate(w, r, "post_form.html", form)
		return
	}

	files := r.MultipartForm.File[formImages]
	if err := h.validatePost(form, files, len(form.Kept)); err != nil {
		h.renderTemplateStatus(w, r, http.StatusBadRequest, "post_form.html", form, err.Error())
		return
	}

	keep := make([]domain.ID, len(form.Kept))
	for i, img := range form.Kept {
		keep[i] = img.ID
	}
	_, err := h.APIClient.UpdatePost(r.Context(), id, api.UpdatePostRequest{
		Title:        strings.TrimSpace(form.Title),
		Content:      form.Content,
		ThemeType:    form.ThemeType,
		KeepImageIDs: keep,
	}, files)
	if err != nil {
		if errors.Is(err, apiclient.ErrUnauthorized) {
			h.unauthorized(w, r)
			return
		}
		logger.FromRequest(r).Warn("failed to update post", "post_id", id, "error", err)
		h.renderTemplateStatus(w, r, http.StatusBadGateway, "post_form.html", form, userMessage(err))
		return
	}

	h.redirectWithFlash(w, r, postHref(id), middleware.FlashSuccess, "Post updated")
}

func (h *Handler) PostDeleteHandler(w http.ResponseWriter, r *http.Request) {
	id := idParam(r, "id")
	if err := h.APIClient.DeletePost(r.Context(), id); err != nil {
		h.redirectWithError(w, r, postHref(id), err)
		return
	}
	h.redirectWithFlash(w, r, "/", middleware.FlashSuccess, "Post deleted")
}
