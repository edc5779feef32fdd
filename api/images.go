package api

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
)

// MaxImageSize bounds a single upload.
const MaxImageSize = 10 << 20

// ImageService uploads images for posts and profiles.
type ImageService struct{ c *Client }

// Upload sends one image as multipart field "file".
func (s ImageService) Upload(ctx context.Context, filename string, r io.Reader) Result[Image] {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", filename)
	if err != nil {
		return fail[Image](&Error{Failure: FailureValidation, Err: err})
	}
	n, err := io.Copy(part, io.LimitReader(r, MaxImageSize+1))
	if err != nil {
		return fail[Image](&Error{Failure: FailureValidation, Err: fmt.Errorf("read image: %w", err)})
	}
	if n > MaxImageSize {
		return fail[Image](&Error{Failure: FailureValidation, Err: errors.New("image too large")})
	}
	if err := mw.Close(); err != nil {
		return fail[Image](&Error{Failure: FailureValidation, Err: err})
	}

	return call[Image](ctx, s.c, request{
		method:      http.MethodPost,
		path:        "/images",
		rawBody:     &buf,
		contentType: mw.FormDataContentType(),
	})
}
