package domain

type Image struct {
	ID     ID     `json:"id"`
	URL    string `json:"image" validate:"required"`
	Order  int    `json:"order"`
	Width  int    `json:"width,omitempty"`
	Height int    `json:"height,omitempty"`
}

func (i Image) HasSize() bool {
	return i.Width > 0 && i.Height > 0
}

type Post struct {
	ID        ID        `json:"id" validate:"required"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	ThemeType ThemeType `json:"theme_type"`
	Author    User      `json:"author"`
	CreatedAt Timestamp `json:"created_at"`
	UpdatedAt Timestamp `json:"updated_at"`
	Images    []Image   `json:"images"`
	Parent    ID        `json:"parent,omitempty"`
	Theme     ID        `json:"theme,omitempty"`
}

func (p Post) IsAuthor(u *User) bool {
	return u.Same(p.Author)
}

func (p Post) CanEdit(u *User) bool {
	return p.IsAuthor(u) && p.ThemeType.Editable()
}

// ReplyRef is the node a comment answers. It is a back reference into the
// same tree, not ownership.
type ReplyRef struct {
	ID     ID   `json:"id,omitempty"`
	Author User `json:"author" validate:"-"`
}

type CommentNode struct {
	ID        ID            `json:"id" validate:"required"`
	Title     string        `json:"title,omitempty"`
	Author    User          `json:"author"`
	Content   string        `json:"content"`
	CreatedAt Timestamp     `json:"created_at"`
	UpdatedAt Timestamp     `json:"updated_at"`
	ReplyTo   *ReplyRef     `json:"reply_to,omitempty"`
	Replies   []CommentNode `json:"replies" validate:"dive"`
}
