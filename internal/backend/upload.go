package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
)

const defaultUploadMessage = "Upload successful!"

// UploadRequest is an image plus the metadata stored alongside it.
type UploadRequest struct {
	Title       string
	Description string
	FileName    string
	Image       io.Reader
}

type UploadResponse struct {
	Message string `json:"message"`
}

// Upload posts the image as multipart/form-data with fields title, description and image.
func (c *HTTPClient) Upload(ctx context.Context, req UploadRequest) (*UploadResponse, error) {
	if req.Image == nil {
		return nil, fmt.Errorf("upload: image is required")
	}

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	if err := w.WriteField("title", req.Title); err != nil {
		return nil, fmt.Errorf("writing title: %w", err)
	}
	if err := w.WriteField("description", req.Description); err != nil {
		return nil, fmt.Errorf("writing description: %w", err)
	}
	part, err := w.CreateFormFile("image", req.FileName)
	if err != nil {
		return nil, fmt.Errorf("creating image part: %w", err)
	}
	if _, err := io.Copy(part, req.Image); err != nil {
		return nil, fmt.Errorf("copying image: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("closing multipart body: %w", err)
	}

	u := c.baseURL + c.uploadPath
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, u, &buf)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	httpReq.Header.Set("Content-Type", w.FormDataContentType())
	if err := c.setHeaders(ctx, httpReq); err != nil {
		return nil, err
	}

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, classifyError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, statusError(resp)
	}

	var out UploadResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil && err != io.EOF {
		return nil, fmt.Errorf("%w: decoding upload response: %v", ErrInvalidResponse, err)
	}
	if out.Message == "" {
		out.Message = defaultUploadMessage
	}
	return &out, nil
}
