package validation

import (
	"fmt"
	"net/http"
)

// multipartOverhead is room for form fields and part headers on top of the
// file payload.
const multipartOverhead = 1 << 20

// ValidateAndParseMultipart caps the request body and parses the multipart
// form. When the cap is hit the server stops reading and the browser sees a
// reset connection; the page script checks sizes before upload, so only
// clients that bypass it get there.
func ValidateAndParseMultipart(r *http.Request, w http.ResponseWriter, maxSize int64) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxSize)

	if err := r.ParseMultipartForm(32 << 20); err != nil {
		return fmt.Errorf("%w: failed to parse multipart form", ErrPayloadTooLarge)
	}

	return nil
}

// CalculateMaxRequestSize returns the body limit for a post with limits.
func CalculateMaxRequestSize(limits Limits) int64 {
	return int64(limits.MaxImages)*limits.MaxImageSize + multipartOverhead
}

// FormatSizeMB converts bytes to megabytes for user-friendly error messages.
func FormatSizeMB(bytes int64) float64 {
	return float64(bytes) / (1024 * 1024)
}
