package apiclient

import (
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strings"

	"github.com/google/uuid"

	"github.com/hetaoshu/hetaoshu-web/internal/api"
	"github.com/hetaoshu/hetaoshu-web/internal/domain"
)

// Multipart field names as the forum API reads them.
const (
	fieldTitle       = "title"
	fieldContent     = "content"
	fieldThemeType   = "theme_type"
	fieldParent      = "parent"
	fieldImages      = "images"
	fieldEditImages  = "images[]"
	fieldKeepImageID = "keep_image_ids[]"
)

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

func escapeQuotes(s string) string {
	return quoteEscaper.Replace(s)
}

type formField struct {
	name  string
	value string
}

// multipartRequest streams fields and files to the API through a pipe, so
// uploads are never buffered in memory a second time.
func multipartRequest(method, path string, fields []formField, fileField string, files []*multipart.FileHeader) request {
	pipeReader, pipeWriter := io.Pipe()
	writer := multipart.NewWriter(pipeWriter)
	_ = writer.SetBoundary("hetaoshu-" + strings.ReplaceAll(uuid.NewString(), "-", ""))

	go func() {
		defer pipeWriter.Close()
		defer writer.Close()

		for _, f := range fields {
			if err := writer.WriteField(f.name, f.value); err != nil {
				pipeWriter.CloseWithError(err)
				return
			}
		}

		for _, fileHeader := range files {
			file, err := fileHeader.Open()
			if err != nil {
				pipeWriter.CloseWithError(err)
				return
			}

			h := make(textproto.MIMEHeader)
			h.Set("Content-Disposition",
				fmt.Sprintf(`form-data; name="%s"; filename="%s"`,
					escapeQuotes(fileField), escapeQuotes(fileHeader.Filename)))
			if contentType := fileHeader.Header.Get("Content-Type"); contentType != "" {
				h.Set("Content-Type", contentType)
			}

			part, err := writer.CreatePart(h)
			if err != nil {
				file.Close()
				pipeWriter.CloseWithError(err)
				return
			}
			if _, err := io.Copy(part, file); err != nil {
				file.Close()
				pipeWriter.CloseWithError(err)
				return
			}
			file.Close()
		}
	}()

	return request{method: method, path: path, body: pipeReader, contentType: writer.FormDataContentType()}
}

func (c *APIClient) Post(ctx context.Context, id domain.ID) (domain.Post, error) {
	var post domain.Post
	err := c.getJSON(ctx, postPath(id), &post)
	return post, err
}

// PostImages lists the images of a post in display order.
func (c *APIClient) PostImages(ctx context.Context, id domain.ID) ([]domain.Image, error) {
	var images []domain.Image
	err := c.getJSON(ctx, postPath(id)+"images/", &images)
	return images, err
}

// Posts lists the latest posts, newest first.
func (c *APIClient) Posts(ctx context.Context, page int) (api.PostPage, error) {
	var resp api.PostPage
	err := c.getJSON(ctx, pagePath("/posts/", page), &resp)
	return resp, err
}

// CreatePost creates a post, or a comment when data.Parent is set. images
// are sent in the given order.
func (c *APIClient) CreatePost(ctx context.Context, data api.CreatePostRequest, images []*multipart.FileHeader) (domain.Post, error) {
	if err := c.validateRequest(data); err != nil {
		return domain.Post{}, err
	}
	fields := []formField{
		{fieldTitle, data.Title},
		{fieldContent, data.Content},
	}
	if data.ThemeType != "" {
		fields = append(fields, formField{fieldThemeType, string(data.ThemeType)})
	}
	if !data.Parent.IsZero() {
		fields = append(fields, formField{fieldParent, data.Parent.String()})
	}

	var post domain.Post
	err := c.roundTrip(ctx, multipartRequest(http.MethodPost, "/posts/", fields, fieldImages, images), &post)
	return post, err
}

// UpdatePost replaces a post's text and images. Existing images survive only
// when listed in KeepImageIDs, in that order; new images follow.
func (c *APIClient) UpdatePost(ctx context.Context, id domain.ID, data api.UpdatePostRequest, images []*multipart.FileHeader) (domain.Post, error) {
	if err := c.validateRequest(data); err != nil {
		return domain.Post{}, err
	}
	fields := []formField{
		{fieldTitle, data.Title},
		{fieldContent, data.Content},
	}
	if data.ThemeType != "" {
		fields = append(fields, formField{fieldThemeType, string(data.ThemeType)})
	}
	for _, keep := range data.KeepImageIDs {
		fields = append(fields, formField{fieldKeepImageID, keep.String()})
	}

	var post domain.Post
	err := c.roundTrip(ctx, multipartRequest(http.MethodPut, postPath(id), fields, fieldEditImages, images), &post)
	return post, err
}

// DeletePost deletes a post or a comment.
func (c *APIClient) DeletePost(ctx context.Context, id domain.ID) error {
	return c.roundTrip(ctx, request{method: http.MethodDelete, path: postPath(id)}, nil)
}

func postPath(id domain.ID) string {
	return fmt.Sprintf("/posts/%s/", url.PathEscape(id.String()))
}
