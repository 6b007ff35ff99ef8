package domain

type User struct {
	ID         ID        `json:"id"`
	StudentID  string    `json:"student_id"`
	Name       string    `json:"name"`
	Email      string    `json:"email"`
	DateJoined Timestamp `json:"date_joined"`
	IsStaff    bool      `json:"is_staff"`
}

// DisplayName is the name shown next to content: the chosen name, falling
// back to the student id.
func (u User) DisplayName() string {
	if u.Name != "" {
		return u.Name
	}
	return u.StudentID
}

// Same reports whether two users are the same account. A nil or anonymous
// user is never the same as anyone.
func (u *User) Same(other User) bool {
	return u != nil && !u.ID.IsZero() && u.ID == other.ID
}
