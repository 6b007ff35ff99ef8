package apiclient

import (
	"context"
	"net/url"
	"time"

	"github.com/hetaoshu/hetaoshu-web/internal/api"
)

// Messages returns reply notifications newer than since. A zero since
// returns everything the API keeps.
func (c *APIClient) Messages(ctx context.Context, since time.Time) (api.MessagesResponse, error) {
	var resp api.MessagesResponse
	path := "/messages/"
	if !since.IsZero() {
		path += "?since=" + url.QueryEscape(since.UTC().Format(time.RFC3339))
	}
	err := c.getJSON(ctx, path, &resp)
	return resp, err
}
