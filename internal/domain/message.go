package domain

// Message notifies a user about a reply to one of their posts.
type Message struct {
	ID        ID        `json:"id" validate:"required"`
	Author    User      `json:"author"`
	Content   string    `json:"content"`
	Theme     ID        `json:"theme"`
	Post      ID        `json:"post,omitempty"`
	CreatedAt Timestamp `json:"created_at"`
}
