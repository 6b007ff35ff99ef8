// Package session keeps the logged-in state of browser clients: the API
// token and the cached user, stored server-side and referenced by a signed
// cookie. Manager is the only writer.
package session

import (
	"context"
	"errors"
	"time"

	"github.com/hetaoshu/hetaoshu-web/internal/domain"
)

var ErrNotFound = errors.New("session not found")

type Session struct {
	ID             string      `json:"id"`
	Token          string      `json:"token"`
	User           domain.User `json:"user"`
	CreatedAt      time.Time   `json:"created_at"`
	MessagesSeenAt time.Time   `json:"messages_seen_at"`
}

// Store persists sessions and the per-user display-name cache.
type Store interface {
	Get(ctx context.Context, id string) (*Session, error)
	Save(ctx context.Context, s *Session) error
	Delete(ctx context.Context, id string) error
	// DeleteCreatedBefore removes sessions created before cutoff and reports
	// how many were removed.
	DeleteCreatedBefore(ctx context.Context, cutoff time.Time) (int64, error)
	SetDisplayName(ctx context.Context, userID domain.ID, name string) error
	DisplayName(ctx context.Context, userID domain.ID) (string, error)
}

type ctxKey struct{}

func WithSession(ctx context.Context, s *Session) context.Context {
	return context.WithValue(ctx, ctxKey{}, s)
}

// FromContext returns the session of the current request, nil for guests.
func FromContext(ctx context.Context) *Session {
	s, _ := ctx.Value(ctxKey{}).(*Session)
	return s
}

// User returns the logged-in user, nil for guests.
func User(ctx context.Context) *domain.User {
	if s := FromContext(ctx); s != nil {
		return &s.User
	}
	return nil
}

// Token is an apiclient.TokenSource.
func Token(ctx context.Context) string {
	if s := FromContext(ctx); s != nil {
		return s.Token
	}
	return ""
}
