package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/hetaoshu/hetaoshu-web/internal/apiclient"
	"github.com/hetaoshu/hetaoshu-web/internal/domain"
	"github.com/hetaoshu/hetaoshu-web/internal/feed"
	"github.com/hetaoshu/hetaoshu-web/internal/logger"
	"github.com/hetaoshu/hetaoshu-web/internal/session"
)

const (
	// viewPosts switches the feed from themes to the latest posts.
	viewPosts = "posts"
	// maxFilteredPages bounds the API pages one feed request reads while a
	// type filter leaves them empty.
	maxFilteredPages = 5
)

type feedTab struct {
	Label  string
	Href   string
	Active bool
}

type feedPage struct {
	Columns      [][]feed.Card
	Count        int
	Page         int
	Type         domain.ThemeType
	View         string
	Tabs         []feedTab
	HasMore      bool
	NextHref     string // full page, works without scripts
	FragmentHref string // /feed fragment for the scroll loader
	Unread       int
}

func feedQuery(page int, t domain.ThemeType, view string) map[string]string {
	q := map[string]string{"type": string(t), "view": view}
	if page > 1 {
		q["page"] = strconv.Itoa(page)
	}
	return q
}

func feedTabs(current domain.ThemeType, view string) []feedTab {
	tabs := []feedTab{{Label: "All", Href: withQuery("/", feedQuery(1, "", view)), Active: current == ""}}
	for _, t := range domain.ThemeTypes() {
		tabs = append(tabs, feedTab{
			Label:  t.Style().Label,
			Href:   withQuery("/", feedQuery(1, t, view)),
			Active: current == t,
		})
	}
	return tabs
}

// loadFeed fetches one page of the feed described by the query string. Page
// in the result is the last API page read, so the next link continues after
// any skipped pages.
func (h *Handler) loadFeed(r *http.Request) (feedPage, error) {
	q := r.URL.Query()
	p := feedPage{
		Page: feed.ParsePage(q.Get("page")),
		Type: feed.ParseType(q.Get("type")),
	}
	if q.Get("view") == viewPosts {
		p.View = viewPosts
	}
	p.Tabs = feedTabs(p.Type, p.View)

	var cards []feed.Card
	var next *string
	for i := range maxFilteredPages {
		if i > 0 {
			p.Page++
		}
		var err error
		cards, next, err = h.feedCards(r, p)
		if err != nil {
			return p, err
		}
		// pages the type filter empties are skipped while more remain
		if p.Type == "" || len(cards) > 0 || !feed.HasMore(next) {
			break
		}
	}

	p.Count = len(cards)
	p.Columns = feed.Columns(cards, h.Public.FeedColumns)
	p.HasMore = feed.HasMore(next)
	if p.HasMore {
		nextQuery := feedQuery(p.Page+1, p.Type, p.View)
		p.NextHref = withQuery("/", nextQuery)
		p.FragmentHref = withQuery("/feed", nextQuery)
	}
	return p, nil
}

func (h *Handler) feedCards(r *http.Request, p feedPage) ([]feed.Card, *string, error) {
	opts := h.feedOptions()
	var cards []feed.Card
	if p.View == viewPosts {
		resp, err := h.APIClient.Posts(r.Context(), p.Page)
		if err != nil {
			return nil, nil, err
		}
		for _, post := range resp.Results {
			if p.Type != "" && post.ThemeType != p.Type {
				continue
			}
			cards = append(cards, feed.PostCard(post, opts))
		}
		return cards, resp.Next, nil
	}

	resp, err := h.APIClient.Themes(r.Context(), p.Page)
	if err != nil {
		return nil, nil, err
	}
	for _, theme := range feed.Filter(resp.Results, p.Type) {
		cards = append(cards, feed.ThemeCard(theme, opts))
	}
	return cards, resp.Next, nil
}

func (h *Handler) IndexGetHandler(w http.ResponseWriter, r *http.Request) {
	p, err := h.loadFeed(r)
	if err != nil {
		if errors.Is(err, apiclient.ErrUnauthorized) {
			h.unauthorized(w, r)
			return
		}
		logger.FromRequest(r).Error("failed to load feed", "error", err)
		h.renderTemplateWithError(w, r, "index.html", p, userMessage(err))
		return
	}

	if s := session.FromContext(r.Context()); s != nil {
		msgs, err := h.APIClient.Messages(r.Context(), s.MessagesSeenAt)
		switch {
		case err == nil:
			p.Unread = max(msgs.Count, len(msgs.Results))
		case errors.Is(err, apiclient.ErrUnauthorized):
			h.unauthorized(w, r)
			return
		default:
			logger.FromRequest(r).Warn("failed to load unread messages", "error", err)
		}
	}

	h.renderTemplate(w, r, "index.html", p)
}

// FeedGetHandler serves the next page of the feed for the scroll loader. A
// client gets one page at a time; a request that overlaps a running one is
// refused before any API call.
func (h *Handler) FeedGetHandler(w http.ResponseWriter, r *http.Request) {
	release, ok := h.FeedGate.Acquire(clientKey(r))
	if !ok {
		http.Error(w, "A page is already loading", http.StatusTooManyRequests)
		return
	}
	defer release()

	p, err := h.loadFeed(r)
	if err != nil {
		if errors.Is(err, apiclient.ErrUnauthorized) {
			h.unauthorized(w, r)
			return
		}
		logger.FromRequest(r).Error("failed to load feed page", "error", err)
		http.Error(w, userMessage(err), http.StatusBadGateway)
		return
	}

	h.renderFragment(w, r, "feed_fragment.html", p)
}
