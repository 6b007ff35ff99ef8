package apiclient

import (
	"context"
	"fmt"
	"net/url"

	"github.com/hetaoshu/hetaoshu-web/internal/api"
	"github.com/hetaoshu/hetaoshu-web/internal/domain"
)

func pagePath(base string, page int) string {
	if page > 1 {
		return fmt.Sprintf("%s?page=%d", base, page)
	}
	return base
}

func (c *APIClient) Themes(ctx context.Context, page int) (api.ThemePage, error) {
	var resp api.ThemePage
	err := c.getJSON(ctx, pagePath("/themes/", page), &resp)
	return resp, err
}

func (c *APIClient) Theme(ctx context.Context, id domain.ID) (domain.Theme, error) {
	var theme domain.Theme
	err := c.getJSON(ctx, fmt.Sprintf("/themes/%s/", url.PathEscape(id.String())), &theme)
	return theme, err
}

// ReplyTree fetches every comment of a theme in one call.
func (c *APIClient) ReplyTree(ctx context.Context, themeID domain.ID) ([]domain.CommentNode, error) {
	var resp api.ReplyTreeResponse
	if err := c.getJSON(ctx, fmt.Sprintf("/themes/%s/reply_tree/", url.PathEscape(themeID.String())), &resp); err != nil {
		return nil, err
	}
	return resp.ReplyTree.Replies, nil
}
