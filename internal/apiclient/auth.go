package apiclient

import (
	"context"
	"net/http"

	"github.com/hetaoshu/hetaoshu-web/internal/api"
)

// Login exchanges credentials for a token. It is sent without a credential,
// so a 401 here means wrong student id or password rather than an expired
// session.
func (c *APIClient) Login(ctx context.Context, data api.LoginRequest) (api.AuthResponse, error) {
	var resp api.AuthResponse
	req, err := c.jsonRequest(http.MethodPost, "/users/login/", data)
	if err != nil {
		return resp, err
	}
	req.anonymous = true
	err = c.roundTrip(ctx, req, &resp)
	return resp, err
}

// Logout revokes the token server-side.
func (c *APIClient) Logout(ctx context.Context) error {
	return c.roundTrip(ctx, request{method: http.MethodPost, path: "/users/logout/"}, nil)
}

func (c *APIClient) SendCode(ctx context.Context, data api.SendCodeRequest) (api.MessageResponse, error) {
	var resp api.MessageResponse
	req, err := c.jsonRequest(http.MethodPost, "/users/send-code/", data)
	if err != nil {
		return resp, err
	}
	req.anonymous = true
	err = c.roundTrip(ctx, req, &resp)
	return resp, err
}

func (c *APIClient) SetPassword(ctx context.Context, data api.SetPasswordRequest) (api.AuthResponse, error) {
	var resp api.AuthResponse
	req, err := c.jsonRequest(http.MethodPost, "/users/set-password/", data)
	if err != nil {
		return resp, err
	}
	req.anonymous = true
	err = c.roundTrip(ctx, req, &resp)
	return resp, err
}

// PublicKey fetches the PEM encoded RSA key used to encrypt passwords.
func (c *APIClient) PublicKey(ctx context.Context) (string, error) {
	var resp api.PublicKeyResponse
	err := c.roundTrip(ctx, request{method: http.MethodGet, path: "/users/public-key/", anonymous: true}, &resp)
	return resp.PublicKey, err
}
