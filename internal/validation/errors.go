package validation

import "errors"

// ErrPayloadTooLarge is returned when the request body exceeds size limits
var ErrPayloadTooLarge = errors.New("upload is too large")

// ErrInvalidMimeType is returned when an uploaded file is not an image
var ErrInvalidMimeType = errors.New("only image files can be attached")

// ErrTooManyAttachments is returned when too many files are uploaded
var ErrTooManyAttachments = errors.New("too many images")

// ErrFileTooLarge is returned when a single file exceeds the per-file limit
var ErrFileTooLarge = errors.New("image is too large")

var (
	ErrTitleRequired   = errors.New("Please enter a title")
	ErrContentRequired = errors.New("Please enter some content")
	ErrFieldRequired   = errors.New("Please fill in all fields")
	ErrInvalidOrder    = errors.New("invalid image order")
)
