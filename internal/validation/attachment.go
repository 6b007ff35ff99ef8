package validation

import (
	"fmt"
	"mime"
	"mime/multipart"
	"path/filepath"
	"strings"
)

// Limits bounds the images of one post.
type Limits struct {
	MaxImages    int
	MaxImageSize int64
}

// ValidateImages checks new uploads against limits. kept is the number of
// images the post already has and keeps, which count towards MaxImages.
func ValidateImages(fileHeaders []*multipart.FileHeader, kept int, limits Limits) error {
	if total := kept + len(fileHeaders); total > limits.MaxImages {
		return fmt.Errorf("%w: at most %d images per post, got %d", ErrTooManyAttachments, limits.MaxImages, total)
	}

	for _, fileHeader := range fileHeaders {
		if fileHeader.Size > limits.MaxImageSize {
			return fmt.Errorf("%w: %s is %.1f MB, the limit is %.0f MB",
				ErrFileTooLarge, fileHeader.Filename, FormatSizeMB(fileHeader.Size), FormatSizeMB(limits.MaxImageSize))
		}

		mimeType, err := DetectMimeType(fileHeader)
		if err != nil {
			return err
		}
		if !strings.HasPrefix(mimeType, "image/") {
			return fmt.Errorf("%w: %s (file: %s)", ErrInvalidMimeType, mimeType, fileHeader.Filename)
		}
	}
	return nil
}

func DetectMimeType(fileHeader *multipart.FileHeader) (string, error) {
	mimeType := fileHeader.Header.Get("Content-Type")

	// If no Content-Type or it's generic, detect from extension
	if mimeType == "" || mimeType == "application/octet-stream" {
		if detected := mime.TypeByExtension(strings.ToLower(filepath.Ext(fileHeader.Filename))); detected != "" {
			mimeType = detected
		}
	}

	if mimeType == "" {
		return "", fmt.Errorf("%w: could not detect the type of %s", ErrInvalidMimeType, fileHeader.Filename)
	}
	if mediaType, _, err := mime.ParseMediaType(mimeType); err == nil {
		mimeType = mediaType
	}
	return mimeType, nil
}
