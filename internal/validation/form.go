package validation

import (
	"strings"

	"github.com/hetaoshu/hetaoshu-web/internal/domain"
)

// PostForm is the text part of the create and edit forms.
type PostForm struct {
	Title     string
	Content   string
	ThemeType domain.ThemeType
}

// Validate checks required fields after trimming whitespace. It runs before
// any API call.
func (f PostForm) Validate() error {
	if strings.TrimSpace(f.Title) == "" {
		return ErrTitleRequired
	}
	if strings.TrimSpace(f.Content) == "" {
		return ErrContentRequired
	}
	return nil
}

func ValidateComment(content string) error {
	if strings.TrimSpace(content) == "" {
		return ErrContentRequired
	}
	return nil
}

// Required fails when any of values is blank.
func Required(values ...string) error {
	for _, v := range values {
		if strings.TrimSpace(v) == "" {
			return ErrFieldRequired
		}
	}
	return nil
}
