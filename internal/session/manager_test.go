package session

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hetaoshu/hetaoshu-web/internal/domain"
)

func newTestManager(t *testing.T) (*Manager, *MemoryStore) {
	t.Helper()
	signer, err := NewSigner("a-long-enough-test-secret")
	require.NoError(t, err)
	store := NewMemoryStore()
	return NewManager(store, signer, 24*time.Hour, false), store
}

func sessionCookie(t *testing.T, rec *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, c := range rec.Result().Cookies() {
		if c.Name == CookieName {
			return c
		}
	}
	t.Fatalf("no %s cookie set", CookieName)
	return nil
}

func TestManager_LoginThenLoad(t *testing.T) {
	m, store := newTestManager(t)
	user := domain.User{ID: "1", StudentID: "20210001"}

	rec := httptest.NewRecorder()
	s, err := m.Login(rec, httptest.NewRequest(http.MethodPost, "/login", nil), "t1", user)
	require.NoError(t, err)

	cookie := sessionCookie(t, rec)
	assert.True(t, cookie.HttpOnly)
	assert.Equal(t, 24*60*60, cookie.MaxAge)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(cookie)
	loaded, err := m.Load(req)
	require.NoError(t, err)
	assert.Equal(t, s.ID, loaded.ID)
	assert.Equal(t, "t1", loaded.Token)
	assert.Equal(t, domain.ID("1"), loaded.User.ID)

	name, err := store.DisplayName(context.Background(), "1")
	require.NoError(t, err)
	assert.Equal(t, "20210001", name)
}

func TestManager_LoadGuestAndTamperedCookie(t *testing.T) {
	m, _ := newTestManager(t)

	_, err := m.Load(httptest.NewRequest(http.MethodGet, "/", nil))
	assert.ErrorIs(t, err, ErrNotFound)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: CookieName, Value: "forged"})
	_, err = m.Load(req)
	assert.ErrorIs(t, err, ErrInvalidCookie)

	other, err := NewSigner("a-different-secret-value")
	require.NoError(t, err)
	value, err := other.Sign("some-id")
	require.NoError(t, err)
	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: CookieName, Value: value})
	_, err = m.Load(req)
	assert.ErrorIs(t, err, ErrInvalidCookie)
}

func TestManager_LoginDropsPreviousSession(t *testing.T) {
	m, store := newTestManager(t)

	rec := httptest.NewRecorder()
	first, err := m.Login(rec, httptest.NewRequest(http.MethodPost, "/login", nil), "t1", domain.User{ID: "1"})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/login", nil)
	req.AddCookie(sessionCookie(t, rec))
	second, err := m.Login(httptest.NewRecorder(), req, "t2", domain.User{ID: "1"})
	require.NoError(t, err)

	assert.NotEqual(t, first.ID, second.ID)
	_, err = store.Get(context.Background(), first.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestManager_Logout(t *testing.T) {
	m, store := newTestManager(t)

	rec := httptest.NewRecorder()
	s, err := m.Login(rec, httptest.NewRequest(http.MethodPost, "/login", nil), "t1", domain.User{ID: "1"})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/logout", nil)
	req.AddCookie(sessionCookie(t, rec))
	out := httptest.NewRecorder()
	require.NoError(t, m.Logout(out, req))

	_, err = store.Get(context.Background(), s.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Less(t, sessionCookie(t, out).MaxAge, 0)

	// logging out without a session only clears the cookie
	guest := httptest.NewRecorder()
	require.NoError(t, m.Logout(guest, httptest.NewRequest(http.MethodPost, "/logout", nil)))
	assert.Less(t, sessionCookie(t, guest).MaxAge, 0)
}

func TestManager_Updates(t *testing.T) {
	m, store := newTestManager(t)
	ctx := context.Background()

	s, err := m.Login(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/login", nil), "t1", domain.User{ID: "1", StudentID: "20210001"})
	require.NoError(t, err)

	require.NoError(t, m.UpdateUser(ctx, s, domain.User{ID: "1", StudentID: "20210001", Name: "Alice"}))
	assert.Equal(t, "Alice", m.DisplayName(ctx, domain.User{ID: "1", StudentID: "20210001"}))

	require.NoError(t, m.UpdateToken(ctx, s, "t2"))
	stored, err := store.Get(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, "t2", stored.Token)
	assert.Equal(t, "Alice", stored.User.Name)

	later := time.Date(2024, 5, 2, 0, 0, 0, 0, time.UTC)
	earlier := later.Add(-time.Hour)
	require.NoError(t, m.MarkMessagesSeen(ctx, s, later))
	require.NoError(t, m.MarkMessagesSeen(ctx, s, earlier))
	stored, err = store.Get(ctx, s.ID)
	require.NoError(t, err)
	assert.True(t, later.Equal(stored.MessagesSeenAt))
}

func TestManager_ExpiredSessionFailsToLoad(t *testing.T) {
	m, store := newTestManager(t)
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return now }

	rec := httptest.NewRecorder()
	s, err := m.Login(rec, httptest.NewRequest(http.MethodPost, "/login", nil), "t1", domain.User{ID: "1"})
	require.NoError(t, err)
	cookie := sessionCookie(t, rec)

	load := func() error {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.AddCookie(cookie)
		_, err := m.Load(req)
		return err
	}

	now = now.Add(23 * time.Hour)
	require.NoError(t, load())

	now = now.Add(2 * time.Hour)
	assert.ErrorIs(t, load(), ErrNotFound)
	_, err = store.Get(context.Background(), s.ID)
	assert.ErrorIs(t, err, ErrNotFound, "expired record is removed")
}

func TestManager_Sweep(t *testing.T) {
	m, store := newTestManager(t)
	ctx := context.Background()
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return now }

	require.NoError(t, store.Save(ctx, &Session{ID: "abandoned", Token: "t", CreatedAt: now.Add(-48 * time.Hour)}))
	require.NoError(t, store.Save(ctx, &Session{ID: "active", Token: "t", CreatedAt: now.Add(-time.Hour)}))

	n, err := m.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	_, err = store.Get(ctx, "abandoned")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = store.Get(ctx, "active")
	assert.NoError(t, err)
}

func TestManager_DisplayNameFallback(t *testing.T) {
	m, _ := newTestManager(t)
	assert.Equal(t, "20219999", m.DisplayName(context.Background(), domain.User{ID: "99", StudentID: "20219999"}))
}

func TestContextHelpers(t *testing.T) {
	ctx := context.Background()
	assert.Nil(t, FromContext(ctx))
	assert.Nil(t, User(ctx))
	assert.Empty(t, Token(ctx))

	ctx = WithSession(ctx, &Session{Token: "t1", User: domain.User{ID: "1"}})
	assert.Equal(t, "t1", Token(ctx))
	assert.Equal(t, domain.ID("1"), User(ctx).ID)
}
