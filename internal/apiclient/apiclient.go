package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/hetaoshu/hetaoshu-web/internal/api"
	internal_errors "github.com/hetaoshu/hetaoshu-web/internal/errors"
	"github.com/hetaoshu/hetaoshu-web/internal/logger"
)

var (
	// ErrUnauthorized is returned for any 401 on an authenticated call. The
	// auth middleware turns it into a logout and a redirect to /login.
	ErrUnauthorized = &internal_errors.ErrorWithStatusCode{Message: "Your session has expired, please log in again", StatusCode: http.StatusUnauthorized}
	ErrNotFound     = &internal_errors.ErrorWithStatusCode{Message: "Not found", StatusCode: http.StatusNotFound}
	errBadResponse  = &internal_errors.ErrorWithStatusCode{Message: "Unexpected response from the forum, please try again later", StatusCode: http.StatusBadGateway}
	ErrBadRequest   = &internal_errors.ErrorWithStatusCode{Message: "The request is incomplete", StatusCode: http.StatusBadRequest}
)

// TokenSource returns the credential of the request that ctx belongs to, or
// an empty string for guests.
type TokenSource func(ctx context.Context) string

// APIClient struct handles all communication with the forum API.
type APIClient struct {
	BaseURL    string
	AuthScheme string
	HttpClient *http.Client

	tokens   TokenSource
	validate *validator.Validate
}

// New creates a client for the forum API. Every call is bounded by timeout
// in addition to the caller's context.
func New(baseURL, authScheme string, timeout time.Duration, tokens TokenSource) *APIClient {
	return &APIClient{
		BaseURL:    baseURL,
		AuthScheme: authScheme,
		HttpClient: &http.Client{Timeout: timeout},
		tokens:     tokens,
		validate:   validator.New(validator.WithRequiredStructEnabled()),
	}
}

type request struct {
	method      string
	path        string
	body        io.Reader
	contentType string
	// anonymous requests carry no credential and a 401 is an ordinary failure
	anonymous bool
}

// validateRequest checks a request DTO before anything is sent, so an
// incomplete payload never reaches the API.
func (c *APIClient) validateRequest(payload any) error {
	if err := c.validate.Struct(payload); err != nil {
		return fmt.Errorf("%w: %w", ErrBadRequest, err)
	}
	return nil
}

func (c *APIClient) jsonRequest(method, path string, payload any) (request, error) {
	if err := c.validateRequest(payload); err != nil {
		return request{}, err
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return request{}, fmt.Errorf("failed to marshal request body: %w", err)
	}
	return request{method: method, path: path, body: bytes.NewReader(body), contentType: "application/json"}, nil
}

// do is the single helper every API call goes through.
func (c *APIClient) do(ctx context.Context, req request) (*http.Response, error) {
	httpReq, err := http.NewRequestWithContext(ctx, req.method, c.BaseURL+req.path, req.body)
	if err != nil {
		return nil, fmt.Errorf("failed to create API request: %w", err)
	}
	if req.contentType != "" {
		httpReq.Header.Set("Content-Type", req.contentType)
	}
	httpReq.Header.Set("Accept", "application/json")
	requestID := middleware.GetReqID(ctx)
	if requestID == "" {
		requestID = uuid.NewString()
	}
	httpReq.Header.Set("X-Request-ID", requestID)
	if !req.anonymous && c.tokens != nil {
		if token := c.tokens(ctx); token != "" {
			httpReq.Header.Set("Authorization", c.AuthScheme+" "+token)
		}
	}

	start := time.Now()
	resp, err := c.HttpClient.Do(httpReq)
	endpoint := endpointLabel(req.path)
	if err != nil {
		observeUpstream(req.method, endpoint, "error", start)
		return nil, fmt.Errorf("backend unavailable: %w", err)
	}
	observeUpstream(req.method, endpoint, statusLabel(resp.StatusCode), start)

	if resp.StatusCode == http.StatusUnauthorized && !req.anonymous {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		resp.Body.Close()
		return nil, ErrUnauthorized
	}
	return resp, nil
}

// roundTrip performs req, turns non-2xx answers into ErrorWithStatusCode and
// decodes a successful body into out when out is not nil.
func (c *APIClient) roundTrip(ctx context.Context, req request, out any) error {
	resp, err := c.do(ctx, req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := checkStatus(resp); err != nil {
		var statusErr *internal_errors.ErrorWithStatusCode
		if req.anonymous && errors.As(err, &statusErr) && statusErr.StatusCode == http.StatusUnauthorized {
			// rejected credentials on a guest call, not an expired session
			statusErr.StatusCode = http.StatusBadRequest
		}
		return err
	}
	if out == nil {
		return nil
	}
	return c.decode(resp.Body, out, req.path)
}

func (c *APIClient) getJSON(ctx context.Context, path string, out any) error {
	return c.roundTrip(ctx, request{method: http.MethodGet, path: path}, out)
}

func (c *APIClient) sendJSON(ctx context.Context, method, path string, payload, out any) error {
	req, err := c.jsonRequest(method, path, payload)
	if err != nil {
		return err
	}
	return c.roundTrip(ctx, req, out)
}

func checkStatus(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	bodyBytes, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))

	var apiErr api.ErrorResponse
	message := ""
	if json.Unmarshal(bodyBytes, &apiErr) == nil {
		message = apiErr.Text()
	}
	if message == "" {
		switch resp.StatusCode {
		case http.StatusNotFound:
			message = ErrNotFound.Message
		default:
			message = fmt.Sprintf("Request failed (%d), please try again later", resp.StatusCode)
		}
	}
	return &internal_errors.ErrorWithStatusCode{Message: message, StatusCode: resp.StatusCode}
}

// decode parses and validates a response body. Malformed or incomplete
// responses are request failures, never partially trusted.
func (c *APIClient) decode(body io.Reader, out any, path string) error {
	if err := json.NewDecoder(body).Decode(out); err != nil {
		logger.Log.Error("cannot decode API response", "path", path, "error", err)
		return fmt.Errorf("%w: %w", errBadResponse, err)
	}
	if err := c.validateResponse(out); err != nil {
		logger.Log.Error("API response failed validation", "path", path, "error", err)
		return fmt.Errorf("%w: %w", errBadResponse, err)
	}
	return nil
}

func (c *APIClient) validateResponse(out any) error {
	v := reflect.Indirect(reflect.ValueOf(out))
	switch v.Kind() {
	case reflect.Struct:
		return c.validate.Struct(out)
	case reflect.Slice:
		return c.validate.Var(v.Interface(), "dive")
	}
	return nil
}
