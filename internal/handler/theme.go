package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/hetaoshu/hetaoshu-web/internal/api"
	"github.com/hetaoshu/hetaoshu-web/internal/apiclient"
	"github.com/hetaoshu/hetaoshu-web/internal/carousel"
	"github.com/hetaoshu/hetaoshu-web/internal/domain"
	"github.com/hetaoshu/hetaoshu-web/internal/logger"
	"github.com/hetaoshu/hetaoshu-web/internal/middleware"
	"github.com/hetaoshu/hetaoshu-web/internal/replytree"
	"github.com/hetaoshu/hetaoshu-web/internal/session"
	"github.com/hetaoshu/hetaoshu-web/internal/validation"
)

// replyToRoot opens the composer for a comment on the theme's post itself.
const replyToRoot = "root"

const msgCommentsUnavailable = "Comments could not be loaded"

// postView is a post ready for rendering.
type postView struct {
	Post      domain.Post
	Carousel  carousel.View
	CanEdit   bool
	CanDelete bool
	// Href is the page the carousel links point at.
	Href string
}

func (p postView) ImageHref(i int) string {
	return withQuery(p.Href, map[string]string{"img": strconv.Itoa(i)})
}

type flatComment struct {
	Comment     domain.CommentNode
	CanDelete   bool
	ReplyToName string
}

// composer is the reply form, scoped to one target.
type composer struct {
	ThemeID domain.ID
	Parent  domain.ID
	Title   string
	// ReplyingTo is the author being answered, empty for comments on the post.
	ReplyingTo string
}

type themePage struct {
	Theme        domain.Theme
	Style        domain.ThemeStyle
	Post         *postView
	IsDiscussion bool
	Tree         []*replytree.Node
	Flat         []flatComment
	CommentCount int
	Composer     *composer
	CommentsErr  bool
}

func themeHref(id domain.ID) string {
	return "/themes/" + id.String()
}

// loadPost fetches a post and prepares its carousel. Missing image metadata
// is completed from the images endpoint and by probing the files.
func (h *Handler) loadPost(ctx context.Context, id domain.ID, img int, href string) (*postView, error) {
	post, err := h.APIClient.Post(ctx, id)
	if err != nil {
		return nil, err
	}

	images, err := h.postImages(ctx, post)
	if err != nil {
		return nil, err
	}
	images = h.Prober.Fill(ctx, images)
	post.Images = images

	ratio := carousel.HeightRatio(images, h.Public.CarouselMaxAspect, h.Public.CarouselDefaultAspect)
	viewer := session.User(ctx)
	return &postView{
		Post:      post,
		Carousel:  carousel.NewView(images, img, ratio),
		CanEdit:   post.CanEdit(viewer),
		CanDelete: post.IsAuthor(viewer),
		Href:      href,
	}, nil
}

// composerFor resolves ?reply_to. Targets missing from the tree or too deep
// to answer are ignored. Discussion themes always show the form.
func (h *Handler) composerFor(page *themePage, nodes []domain.CommentNode, replyTo string) *composer {
	if page.Theme.FirstPost.IsZero() {
		return nil
	}
	root := &composer{ThemeID: page.Theme.ID, Parent: page.Theme.FirstPost, Title: page.Theme.Title}
	if page.Post != nil && page.Post.Post.Title != "" {
		root.Title = page.Post.Post.Title
	}

	var fallback *composer
	if page.IsDiscussion {
		fallback = root
	}

	switch {
	case replyTo == "":
		return fallback
	case replyTo == replyToRoot || domain.ID(replyTo) == page.Theme.FirstPost:
		return root
	}

	node, depth, ok := replytree.Find(nodes, domain.ID(replyTo))
	if !ok || depth >= h.Public.CommentMaxDepth {
		return fallback
	}
	target := *root
	target.Parent = node.ID
	target.ReplyingTo = node.Author.DisplayName()
	if node.Title != "" {
		target.Title = node.Title
	}
	return &target
}

func (h *Handler) ThemeGetHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := idParam(r, "id")

	theme, err := h.APIClient.Theme(ctx, id)
	if err != nil {
		h.renderLoadError(w, r, err)
		return
	}

	page := themePage{
		Theme:        theme,
		Style:        theme.ThemeType.Style(),
		IsDiscussion: theme.ThemeType == domain.ThemeDiscussion,
	}
	var notices []string

	if !theme.FirstPost.IsZero() {
		post, err := h.loadPost(ctx, theme.FirstPost, queryInt(r, "img", 0), themeHref(id))
		switch {
		case err == nil:
			page.Post = post
		case errors.Is(err, apiclient.ErrUnauthorized):
			h.unauthorized(w, r)
			return
		default:
			logger.FromRequest(r).Warn("failed to load theme post", "theme_id", id, "error", err)
			notices = append(notices, userMessage(err))
		}
	}

	nodes, err := h.APIClient.ReplyTree(ctx, id)
	if err != nil {
		if errors.Is(err, apiclient.ErrUnauthorized) {
			h.unauthorized(w, r)
			return
		}
		logger.FromRequest(r).Warn("failed to load reply tree", "theme_id", id, "error", err)
		notices = append(notices, msgCommentsUnavailable)
		page.CommentsErr = true
		nodes = nil
	}

	viewer := session.User(ctx)
	if page.IsDiscussion {
		for _, c := range replytree.Flatten(nodes) {
			fc := flatComment{Comment: c, CanDelete: viewer.Same(c.Author)}
			if c.ReplyTo != nil {
				fc.ReplyToName = c.ReplyTo.Author.DisplayName()
			}
			page.Flat = append(page.Flat, fc)
		}
	} else {
		page.Tree = replytree.Build(nodes, replytree.Policy{MaxDepth: h.Public.CommentMaxDepth, Viewer: viewer})
	}
	page.CommentCount = replytree.Count(nodes)
	page.Composer = h.composerFor(&page, nodes, r.URL.Query().Get("reply_to"))

	h.renderTemplateWithError(w, r, "theme.html", page, strings.Join(notices, ". "))
}

// ReplyTreeJSONHandler re-serves the comment tree for scripts that refresh
// the comments in place.
func (h *Handler) ReplyTreeJSONHandler(w http.ResponseWriter, r *http.Request) {
	id := idParam(r, "id")
	nodes, err := h.APIClient.ReplyTree(r.Context(), id)
	if err != nil {
		writeJSONError(w, err)
		return
	}
	if nodes == nil {
		nodes = []domain.CommentNode{}
	}
	writeJSON(w, http.StatusOK, struct {
		ThemeID domain.ID            `json:"theme_id"`
		Count   int                  `json:"count"`
		Replies []domain.CommentNode `json:"replies"`
	}{id, replytree.Count(nodes), nodes})
}

func (h *Handler) CommentPostHandler(w http.ResponseWriter, r *http.Request) {
	themeID := idParam(r, "id")
	target := themeHref(themeID)

	content := r.FormValue("content")
	parent := domain.ID(strings.TrimSpace(r.FormValue("parent")))
	title := strings.TrimSpace(r.FormValue("title"))

	back := withQuery(target, map[string]string{"reply_to": parent.String()})
	if err := validation.ValidateComment(content); err != nil {
		h.redirectWithFlash(w, r, back, middleware.FlashError, err.Error())
		return
	}
	if parent.IsZero() {
		h.redirectWithFlash(w, r, target, middleware.FlashError, "Choose what to reply to")
		return
	}
	if title == "" {
		title = "Reply"
	}

	comment, err := h.APIClient.CreatePost(r.Context(), api.CreatePostRequest{
		Title:   title,
		Content: content,
		Parent:  parent,
	}, nil)
	if err != nil {
		h.redirectWithError(w, r, back, err)
		return
	}

	h.setFlash(w, middleware.FlashSuccess, "Comment posted")
	http.Redirect(w, r, target+"#comment-"+comment.ID.String(), http.StatusSeeOther)
}

func (h *Handler) CommentDeleteHandler(w http.ResponseWriter, r *http.Request) {
	themeID := idParam(r, "id")
	commentID := idParam(r, "cid")
	target := themeHref(themeID)

	if err := h.APIClient.DeletePost(r.Context(), commentID); err != nil {
		h.redirectWithError(w, r, target, err)
		return
	}
	h.redirectWithFlash(w, r, target+"#comments", middleware.FlashSuccess, "Comment deleted")
}
