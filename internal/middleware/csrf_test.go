package middleware

import (
	"bytes"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCSRFMiddleware(t *testing.T) {
	t.Run("GenerateCSRFToken", func(t *testing.T) {
		var token string
		handler := GenerateCSRFToken(CSRFConfig{SecureCookies: false})(
			http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				token = GetCSRFTokenFromContext(r)
				w.WriteHeader(http.StatusOK)
			}),
		)

		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest("GET", "/", nil))

		cookie := findCookie(rec, csrfCookieName)
		require.NotNil(t, cookie)
		assert.NotEmpty(t, token)
		assert.Equal(t, cookie.Value, token)
	})

	t.Run("GenerateCSRFToken keeps existing cookie", func(t *testing.T) {
		var token string
		handler := GenerateCSRFToken(CSRFConfig{})(
			http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				token = GetCSRFTokenFromContext(r)
			}),
		)

		req := httptest.NewRequest("GET", "/", nil)
		req.AddCookie(&http.Cookie{Name: csrfCookieName, Value: "existing"})
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		assert.Equal(t, "existing", token)
		assert.Nil(t, findCookie(rec, csrfCookieName))
	})

	t.Run("ValidateCSRFToken", func(t *testing.T) {
		token := "test-token-123"

		tests := []struct {
			name           string
			method         string
			cookie         *http.Cookie
			formToken      string
			expectedStatus int
		}{
			{
				name:           "valid POST request",
				method:         "POST",
				cookie:         &http.Cookie{Name: csrfCookieName, Value: token},
				formToken:      token,
				expectedStatus: http.StatusOK,
			},
			{
				name:           "GET request (no validation)",
				method:         "GET",
				expectedStatus: http.StatusOK,
			},
			{
				name:           "missing cookie",
				method:         "POST",
				formToken:      token,
				expectedStatus: http.StatusForbidden,
			},
			{
				name:           "missing form token",
				method:         "POST",
				cookie:         &http.Cookie{Name: csrfCookieName, Value: token},
				expectedStatus: http.StatusForbidden,
			},
			{
				name:           "mismatched token",
				method:         "POST",
				cookie:         &http.Cookie{Name: csrfCookieName, Value: token},
				formToken:      "other-token",
				expectedStatus: http.StatusForbidden,
			},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				handler := ValidateCSRFToken(CSRFConfig{})(
					http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
						w.WriteHeader(http.StatusOK)
					}),
				)

				form := url.Values{}
				if tt.formToken != "" {
					form.Set(CSRFFormField, tt.formToken)
				}
				req := httptest.NewRequest(tt.method, "/", strings.NewReader(form.Encode()))
				req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
				if tt.cookie != nil {
					req.AddCookie(tt.cookie)
				}

				rec := httptest.NewRecorder()
				handler.ServeHTTP(rec, req)
				assert.Equal(t, tt.expectedStatus, rec.Code)
			})
		}
	})

	t.Run("ValidateCSRFToken multipart", func(t *testing.T) {
		var body bytes.Buffer
		mw := multipart.NewWriter(&body)
		require.NoError(t, mw.WriteField(CSRFFormField, "tok"))
		require.NoError(t, mw.WriteField("title", "hello"))
		part, err := mw.CreateFormFile("images", "a.png")
		require.NoError(t, err)
		_, err = part.Write([]byte("png-bytes"))
		require.NoError(t, err)
		require.NoError(t, mw.Close())

		var title string
		handler := ValidateCSRFToken(CSRFConfig{MaxMultipartSize: 1 << 20})(
			http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				title = r.FormValue("title")
				w.WriteHeader(http.StatusOK)
			}),
		)

		req := httptest.NewRequest("POST", "/posts/create", &body)
		req.Header.Set("Content-Type", mw.FormDataContentType())
		req.AddCookie(&http.Cookie{Name: csrfCookieName, Value: "tok"})
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "hello", title)
	})
}
