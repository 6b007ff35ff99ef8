package apiclient

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/hetaoshu/hetaoshu-web/internal/api"
	"github.com/hetaoshu/hetaoshu-web/internal/domain"
)

func (c *APIClient) Profile(ctx context.Context) (domain.User, error) {
	var user domain.User
	err := c.getJSON(ctx, "/users/profile/", &user)
	return user, err
}

func (c *APIClient) UpdateProfile(ctx context.Context, data api.UpdateProfileRequest) (domain.User, error) {
	var user domain.User
	err := c.sendJSON(ctx, http.MethodPut, "/users/profile/", data, &user)
	return user, err
}

// ChangePassword returns the new token issued by the API; the old one is
// revoked.
func (c *APIClient) ChangePassword(ctx context.Context, data api.ChangePasswordRequest) (string, error) {
	var resp api.TokenResponse
	err := c.sendJSON(ctx, http.MethodPut, "/users/change-password/", data, &resp)
	return resp.Token, err
}

func (c *APIClient) UserPosts(ctx context.Context, userID domain.ID) ([]domain.Post, error) {
	var posts api.PostList
	err := c.getJSON(ctx, fmt.Sprintf("/users/%s/posts/", url.PathEscape(userID.String())), &posts)
	return posts, err
}
