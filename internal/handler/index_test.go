package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hetaoshu/hetaoshu-web/internal/domain"
)

const themesPage = `{"count": 3, "next": "http://api/themes/?page=2", "results": [
	{"id": 1, "title": "Lost cat", "theme_type": "share", "author": {"id": 1, "name": "Alice"}, "post_count": 3,
	 "first_image": {"id": 5, "image": "https://cdn.example/cat.jpg", "width": 400, "height": 300}},
	{"id": 2, "title": "Exam tips", "theme_type": "discussion", "content": "Share what worked for you", "author": {"id": 2}},
	{"id": 3, "title": "Bikes for sale", "theme_type": "ad", "author": {"id": 3}}
]}`

func TestIndexGetHandler(t *testing.T) {
	fake := newFakeAPI(t)
	fake.handle(http.MethodGet, "/themes/", http.StatusOK, themesPage)
	h, _ := newTestHandler(t, fake)

	t.Run("all themes in columns", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.IndexGetHandler(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		require.Equal(t, http.StatusOK, rec.Code)

		doc := parseHTML(t, rec)
		assert.Equal(t, 3, doc.Find("article.card").Length())
		assert.Equal(t, 2, doc.Find(".masonry-column").Length())
		assert.Equal(t, 1, doc.Find(".card-cover img").Length())
		assert.Contains(t, doc.Find(".card-summary").Text(), "Share what worked")

		next, ok := doc.Find("#feed-more").Attr("data-next")
		require.True(t, ok)
		assert.Equal(t, "/feed?page=2", next)
	})

	t.Run("type filter", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.IndexGetHandler(rec, httptest.NewRequest(http.MethodGet, "/?type=ad", nil))
		require.Equal(t, http.StatusOK, rec.Code)

		doc := parseHTML(t, rec)
		assert.Equal(t, 1, doc.Find("article.card").Length())
		assert.Equal(t, "Ad", doc.Find(".tab.active").Text())
	})
}

func TestFeed_TypeFilterSkipsEmptyPages(t *testing.T) {
	const adsOnly = `{"count": 9, "next": "http://api/themes/?page=2", "results": [
		{"id": 3, "title": "Bikes for sale", "theme_type": "ad", "author": {"id": 3}}
	]}`

	t.Run("continues to the first matching page", func(t *testing.T) {
		fake := newFakeAPI(t)
		fake.handleOnce(http.MethodGet, "/themes/", http.StatusOK, adsOnly)
		fake.handle(http.MethodGet, "/themes/", http.StatusOK, `{"count": 9, "next": null, "results": [
			{"id": 8, "title": "Exam tips", "theme_type": "discussion", "author": {"id": 2}}
		]}`)
		h, _ := newTestHandler(t, fake)

		rec := httptest.NewRecorder()
		h.FeedGetHandler(rec, httptest.NewRequest(http.MethodGet, "/feed?type=discussion", nil))
		require.Equal(t, http.StatusOK, rec.Code)

		doc := parseHTML(t, rec)
		assert.Equal(t, 1, doc.Find(".feed-page article.card").Length())
		page, _ := doc.Find(".feed-page").Attr("data-page")
		assert.Equal(t, "2", page)
		_, hasNext := doc.Find(".feed-page").Attr("data-next")
		assert.False(t, hasNext)
		assert.Equal(t, 2, countCalls(fake.Calls(), "GET /themes/"))
	})

	t.Run("gives up after a bounded number of pages", func(t *testing.T) {
		fake := newFakeAPI(t)
		fake.handle(http.MethodGet, "/themes/", http.StatusOK, adsOnly)
		h, _ := newTestHandler(t, fake)

		rec := httptest.NewRecorder()
		h.IndexGetHandler(rec, httptest.NewRequest(http.MethodGet, "/?type=discussion", nil))
		require.Equal(t, http.StatusOK, rec.Code)

		doc := parseHTML(t, rec)
		assert.Equal(t, 0, doc.Find("article.card").Length())
		assert.Equal(t, maxFilteredPages, countCalls(fake.Calls(), "GET /themes/"))
		href, ok := doc.Find("#feed-more a").Attr("href")
		require.True(t, ok, "load more link stays while pages remain")
		assert.Equal(t, "/?page=6&type=discussion", href)
	})
}

func TestIndexGetHandler_EmptyFeed(t *testing.T) {
	fake := newFakeAPI(t)
	fake.handle(http.MethodGet, "/themes/", http.StatusOK, `{"count": 0, "next": null, "results": []}`)
	h, _ := newTestHandler(t, fake)

	rec := httptest.NewRecorder()
	h.IndexGetHandler(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	doc := parseHTML(t, rec)
	assert.Equal(t, 0, doc.Find("article.card").Length())
	assert.Equal(t, 1, doc.Find(".empty-state").Length())
	_, hasNext := doc.Find("#feed-more").Attr("data-next")
	assert.False(t, hasNext)
}

func TestIndexGetHandler_UnreadMessages(t *testing.T) {
	fake := newFakeAPI(t)
	fake.handle(http.MethodGet, "/themes/", http.StatusOK, themesPage)
	fake.handle(http.MethodGet, "/messages/", http.StatusOK, `{"count": 2, "results": [{"id": 1, "theme": 1}, {"id": 2, "theme": 1}]}`)
	h, manager := newTestHandler(t, fake)
	s := newSession(t, manager, domain.User{ID: "1", Name: "Alice"})

	rec := httptest.NewRecorder()
	h.IndexGetHandler(rec, asUser(httptest.NewRequest(http.MethodGet, "/", nil), s))
	require.Equal(t, http.StatusOK, rec.Code)

	doc := parseHTML(t, rec)
	assert.Equal(t, "2", doc.Find(".unread .badge").Text())
	assert.Equal(t, "Alice", doc.Find(".user-name").Text())
}

func TestFeedGetHandler(t *testing.T) {
	fake := newFakeAPI(t)
	fake.handle(http.MethodGet, "/themes/", http.StatusOK, themesPage)
	h, _ := newTestHandler(t, fake)

	newReq := func() *http.Request {
		req := httptest.NewRequest(http.MethodGet, "/feed?page=2", nil)
		req.RemoteAddr = "192.0.2.10:5555"
		return req
	}

	t.Run("fragment without layout", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.FeedGetHandler(rec, newReq())
		require.Equal(t, http.StatusOK, rec.Code)

		doc := parseHTML(t, rec)
		assert.Equal(t, 0, doc.Find("header.site-header").Length())
		assert.Equal(t, 3, doc.Find(".feed-page article.card").Length())
		next, _ := doc.Find(".feed-page").Attr("data-next")
		assert.Equal(t, "/feed?page=3", next)
	})

	t.Run("overlapping load is refused", func(t *testing.T) {
		release, ok := h.FeedGate.Acquire(clientKey(newReq()))
		require.True(t, ok)
		defer release()

		calls := len(fake.Calls())
		rec := httptest.NewRecorder()
		h.FeedGetHandler(rec, newReq())

		assert.Equal(t, http.StatusTooManyRequests, rec.Code)
		assert.Len(t, fake.Calls(), calls)
	})
}

func TestMessagesGetHandler_AdvancesWatermark(t *testing.T) {
	fake := newFakeAPI(t)
	fake.handle(http.MethodGet, "/messages/", http.StatusOK, `{"count": 1, "results": [{"id": 3, "content": "me too", "theme": 42, "post": 9, "author": {"id": 2, "name": "Bob"}}]}`)
	h, manager := newTestHandler(t, fake)
	s := newSession(t, manager, domain.User{ID: "1"})
	before := time.Now().UTC()

	rec := httptest.NewRecorder()
	h.MessagesGetHandler(rec, asUser(httptest.NewRequest(http.MethodGet, "/messages", nil), s))
	require.Equal(t, http.StatusOK, rec.Code)

	doc := parseHTML(t, rec)
	assert.Equal(t, 1, doc.Find("li.message").Length())
	href, _ := doc.Find("li.message a").Attr("href")
	assert.Equal(t, "/themes/42#comment-9", href)
	assert.False(t, s.MessagesSeenAt.Before(before))
}

func TestProfilePostHandler(t *testing.T) {
	t.Run("blank name makes no API call", func(t *testing.T) {
		fake := newFakeAPI(t)
		h, manager := newTestHandler(t, fake)
		s := newSession(t, manager, domain.User{ID: "1"})

		rec := httptest.NewRecorder()
		h.ProfilePostHandler(rec, asUser(formRequest("/profile", url.Values{"name": {" "}}), s))

		assert.Equal(t, "/profile", rec.Header().Get("Location"))
		assert.Empty(t, fake.Calls())
	})

	t.Run("updates the cached user", func(t *testing.T) {
		fake := newFakeAPI(t)
		fake.handle(http.MethodPut, "/users/profile/", http.StatusOK, `{"id": 1, "student_id": "20210001", "name": "Alice"}`)
		h, manager := newTestHandler(t, fake)
		s := newSession(t, manager, domain.User{ID: "1", StudentID: "20210001"})

		rec := httptest.NewRecorder()
		h.ProfilePostHandler(rec, asUser(formRequest("/profile", url.Values{"name": {"Alice"}}), s))

		assert.Equal(t, http.StatusSeeOther, rec.Code)
		assert.Equal(t, "Alice", s.User.Name)
		assert.Equal(t, "Alice", manager.DisplayName(context.Background(), s.User))
	})
}

func TestProfilePasswordPostHandler_StoresNewToken(t *testing.T) {
	fake := newFakeAPI(t)
	fake.handle(http.MethodPut, "/users/change-password/", http.StatusOK, `{"message": "ok", "token": "t9"}`)
	h, manager := newTestHandler(t, fake)
	s := newSession(t, manager, domain.User{ID: "1"})

	rec := httptest.NewRecorder()
	h.ProfilePasswordPostHandler(rec, asUser(formRequest("/profile/password", url.Values{
		"current_password": {"old-password"}, "new_password": {"new-password"},
	}), s))

	assert.Equal(t, "/profile?tab=password", rec.Header().Get("Location"))
	assert.Equal(t, "t9", s.Token)
}
