package api

import (
	"bytes"
	"encoding/json"

	"github.com/hetaoshu/hetaoshu-web/internal/domain"
)

// CreatePostRequest is sent as multipart form fields; images travel as
// separate file parts.
type CreatePostRequest struct {
	Title     string           `validate:"required"`
	Content   string           `validate:"required"`
	ThemeType domain.ThemeType `validate:"omitempty,oneof=share discussion ad notice"`
	Parent    domain.ID
}

type UpdatePostRequest struct {
	Title        string           `validate:"required"`
	Content      string           `validate:"required"`
	ThemeType    domain.ThemeType `validate:"omitempty,oneof=share discussion ad notice"`
	KeepImageIDs []domain.ID
}

type ThemePage struct {
	Count   int            `json:"count"`
	Next    *string        `json:"next"`
	Results []domain.Theme `json:"results" validate:"dive"`
}

type PostPage struct {
	Count   int           `json:"count"`
	Next    *string       `json:"next"`
	Results []domain.Post `json:"results" validate:"dive"`
}

// ReplyTreeResponse wraps the comment tree of one theme; the root is the
// theme's first post.
type ReplyTreeResponse struct {
	ReplyTree ReplyTreeRoot `json:"reply_tree"`
}

type ReplyTreeRoot struct {
	ID      domain.ID            `json:"id"`
	Replies []domain.CommentNode `json:"replies" validate:"dive"`
}

type MessagesResponse struct {
	Count   int              `json:"count"`
	Results []domain.Message `json:"results" validate:"dive"`
}

// PostList accepts either a bare JSON array or a paginated page, so list
// endpoints work with and without pagination enabled upstream.
type PostList []domain.Post

func (l *PostList) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '[' {
		var posts []domain.Post
		if err := json.Unmarshal(b, &posts); err != nil {
			return err
		}
		*l = posts
		return nil
	}
	var page PostPage
	if err := json.Unmarshal(b, &page); err != nil {
		return err
	}
	*l = page.Results
	return nil
}
