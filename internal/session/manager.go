package session

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/hetaoshu/hetaoshu-web/internal/domain"
	"github.com/hetaoshu/hetaoshu-web/internal/logger"
)

const CookieName = "hetaoshu_session"

// Manager is the single gateway for creating, changing and ending sessions.
type Manager struct {
	store  Store
	signer *Signer
	maxAge time.Duration
	secure bool
	now    func() time.Time
}

func NewManager(store Store, signer *Signer, maxAge time.Duration, secure bool) *Manager {
	return &Manager{store: store, signer: signer, maxAge: maxAge, secure: secure, now: time.Now}
}

// expired reports whether s outlived the cookie that referenced it.
func (m *Manager) expired(s *Session) bool {
	return m.maxAge > 0 && !s.CreatedAt.IsZero() && m.now().After(s.CreatedAt.Add(m.maxAge))
}

func (m *Manager) setCookie(w http.ResponseWriter, value string, maxAge int) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// ClearCookie expires the session cookie in the browser.
func (m *Manager) ClearCookie(w http.ResponseWriter) {
	m.setCookie(w, "", -1)
}

func (m *Manager) sessionID(r *http.Request) (string, error) {
	cookie, err := r.Cookie(CookieName)
	if err != nil {
		return "", ErrNotFound
	}
	return m.signer.Parse(cookie.Value)
}

// Load resolves the request's cookie to its session. Guests and expired
// sessions get ErrNotFound; a tampered cookie gets ErrInvalidCookie.
func (m *Manager) Load(r *http.Request) (*Session, error) {
	id, err := m.sessionID(r)
	if err != nil {
		return nil, err
	}
	s, err := m.store.Get(r.Context(), id)
	if err != nil {
		return nil, err
	}
	if m.expired(s) {
		if err := m.store.Delete(r.Context(), id); err != nil {
			logger.FromRequest(r).Warn("failed to delete expired session", "error", err)
		}
		return nil, ErrNotFound
	}
	return s, nil
}

// Sweep deletes every session older than the cookie max age.
func (m *Manager) Sweep(ctx context.Context) (int64, error) {
	if m.maxAge <= 0 {
		return 0, nil
	}
	return m.store.DeleteCreatedBefore(ctx, m.now().Add(-m.maxAge))
}

// StartSweeper runs Sweep every interval until ctx is done.
func (m *Manager) StartSweeper(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				n, err := m.Sweep(ctx)
				if err != nil {
					logger.Log.Error("session sweep failed", "error", err)
					continue
				}
				if n > 0 {
					logger.Log.Info("expired sessions removed", "count", n)
				}
			}
		}
	}()
}

// Login starts a new session for token and user. Any session the browser
// already had is discarded first.
func (m *Manager) Login(w http.ResponseWriter, r *http.Request, token string, user domain.User) (*Session, error) {
	if oldID, err := m.sessionID(r); err == nil {
		if err := m.store.Delete(r.Context(), oldID); err != nil {
			logger.FromRequest(r).Warn("failed to drop previous session", "error", err)
		}
	}

	s := &Session{
		ID:        uuid.NewString(),
		Token:     token,
		User:      user,
		CreatedAt: m.now().UTC(),
	}
	if err := m.store.Save(r.Context(), s); err != nil {
		return nil, fmt.Errorf("failed to save session: %w", err)
	}
	value, err := m.signer.Sign(s.ID)
	if err != nil {
		return nil, err
	}
	m.setCookie(w, value, int(m.maxAge.Seconds()))
	m.rememberDisplayName(r.Context(), user)
	return s, nil
}

// Logout removes the session of the request, if any, and expires the cookie.
func (m *Manager) Logout(w http.ResponseWriter, r *http.Request) error {
	defer m.ClearCookie(w)

	id, err := m.sessionID(r)
	if err != nil {
		return nil
	}
	if err := m.store.Delete(r.Context(), id); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

// UpdateUser replaces the cached user, e.g. after a profile change.
func (m *Manager) UpdateUser(ctx context.Context, s *Session, user domain.User) error {
	s.User = user
	if err := m.store.Save(ctx, s); err != nil {
		return err
	}
	m.rememberDisplayName(ctx, user)
	return nil
}

// UpdateToken stores a token the API reissued, e.g. after a password change.
func (m *Manager) UpdateToken(ctx context.Context, s *Session, token string) error {
	s.Token = token
	return m.store.Save(ctx, s)
}

// MarkMessagesSeen moves the unread-messages watermark forward. It never
// moves it back.
func (m *Manager) MarkMessagesSeen(ctx context.Context, s *Session, at time.Time) error {
	if !at.After(s.MessagesSeenAt) {
		return nil
	}
	s.MessagesSeenAt = at
	return m.store.Save(ctx, s)
}

// DisplayName returns the cached display name of user, falling back to the
// name the API sent.
func (m *Manager) DisplayName(ctx context.Context, user domain.User) string {
	name, err := m.store.DisplayName(ctx, user.ID)
	if err == nil && name != "" {
		return name
	}
	if err != nil && !errors.Is(err, ErrNotFound) {
		logger.Log.Warn("display name cache lookup failed", "user_id", user.ID, "error", err)
	}
	return user.DisplayName()
}

func (m *Manager) rememberDisplayName(ctx context.Context, user domain.User) {
	if user.ID.IsZero() {
		return
	}
	if err := m.store.SetDisplayName(ctx, user.ID, user.DisplayName()); err != nil {
		logger.Log.Warn("failed to cache display name", "user_id", user.ID, "error", err)
	}
}
