package session

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/hetaoshu/hetaoshu-web/internal/domain"
	"github.com/hetaoshu/hetaoshu-web/internal/storage/pg"
)

const postgresSchema = `
CREATE TABLE IF NOT EXISTS web_sessions (
    id               TEXT PRIMARY KEY,
    token            TEXT NOT NULL,
    user_data        JSONB NOT NULL,
    created_at       TIMESTAMPTZ NOT NULL,
    messages_seen_at TIMESTAMPTZ
);
CREATE INDEX IF NOT EXISTS web_sessions_created_at_idx ON web_sessions (created_at);
CREATE TABLE IF NOT EXISTS web_display_names (
    user_id    TEXT PRIMARY KEY,
    name       TEXT NOT NULL,
    updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);`

type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates the session tables when they are missing.
func NewPostgresStore(ctx context.Context, db *sql.DB) (*PostgresStore, error) {
	if _, err := db.ExecContext(ctx, postgresSchema); err != nil {
		return nil, fmt.Errorf("failed to create session tables: %w", err)
	}
	return &PostgresStore{db: db}, nil
}

func (p *PostgresStore) Get(ctx context.Context, id string) (*Session, error) {
	var (
		s        Session
		userData []byte
		seenAt   sql.NullTime
	)
	err := p.db.QueryRowContext(ctx,
		`SELECT id, token, user_data, created_at, messages_seen_at FROM web_sessions WHERE id = $1`, id,
	).Scan(&s.ID, &s.Token, &userData, &s.CreatedAt, &seenAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}
	if err := json.Unmarshal(userData, &s.User); err != nil {
		return nil, fmt.Errorf("failed to decode session user: %w", err)
	}
	if seenAt.Valid {
		s.MessagesSeenAt = seenAt.Time
	}
	return &s, nil
}

func (p *PostgresStore) Save(ctx context.Context, s *Session) error {
	userData, err := json.Marshal(s.User)
	if err != nil {
		return fmt.Errorf("failed to encode session user: %w", err)
	}
	seenAt := sql.NullTime{Time: s.MessagesSeenAt, Valid: !s.MessagesSeenAt.IsZero()}

	return pg.WithTx(ctx, p.db, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO web_sessions (id, token, user_data, created_at, messages_seen_at)
			VALUES ($1, $2, $3, $4, $5)
			ON CONFLICT (id) DO UPDATE SET
				token = EXCLUDED.token,
				user_data = EXCLUDED.user_data,
				messages_seen_at = EXCLUDED.messages_seen_at`,
			s.ID, s.Token, userData, s.CreatedAt, seenAt)
		if err != nil {
			return fmt.Errorf("failed to save session: %w", err)
		}
		return nil
	})
}

func (p *PostgresStore) Delete(ctx context.Context, id string) error {
	if _, err := p.db.ExecContext(ctx, `DELETE FROM web_sessions WHERE id = $1`, id); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

func (p *PostgresStore) DeleteCreatedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := p.db.ExecContext(ctx, `DELETE FROM web_sessions WHERE created_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired sessions: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count expired sessions: %w", err)
	}
	return n, nil
}

func (p *PostgresStore) SetDisplayName(ctx context.Context, userID domain.ID, name string) error {
	_, err := p.db.ExecContext(ctx, `
		INSERT INTO web_display_names (user_id, name) VALUES ($1, $2)
		ON CONFLICT (user_id) DO UPDATE SET name = EXCLUDED.name, updated_at = now()`,
		userID.String(), name)
	if err != nil {
		return fmt.Errorf("failed to save display name: %w", err)
	}
	return nil
}

func (p *PostgresStore) DisplayName(ctx context.Context, userID domain.ID) (string, error) {
	var name string
	err := p.db.QueryRowContext(ctx, `SELECT name FROM web_display_names WHERE user_id = $1`, userID.String()).Scan(&name)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("failed to load display name: %w", err)
	}
	return name, nil
}
