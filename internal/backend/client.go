package backend

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"

	"github.com/kiranshivaraju/eveview/internal/config"
	"github.com/kiranshivaraju/eveview/internal/credential"
	"github.com/kiranshivaraju/eveview/internal/query"
	"github.com/kiranshivaraju/eveview/pkg/models"
)

// Sentinel errors for results service failures.
var (
	ErrUnreachable     = errors.New("results service unreachable")
	ErrTimeout         = errors.New("results service timeout")
	ErrCancelled       = errors.New("results request cancelled")
	ErrInvalidResponse = errors.New("results service returned invalid response")
)

// maxErrorBody bounds how much of an error response is read for its message.
const maxErrorBody = 64 << 10

// StatusError is returned when the service answers with a non-2xx status.
type StatusError struct {
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("results service status %d: %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("results service status %d", e.StatusCode)
}

// Lister issues result list requests.
type Lister interface {
	ListResults(ctx context.Context, q query.State) (*ListResponse, error)
}

// Client is the full results service API.
type Client interface {
	Lister
	Upload(ctx context.Context, req UploadRequest) (*UploadResponse, error)
}

// ListResponse is a transport-successful list response.
type ListResponse struct {
	StatusCode int
	Message    string
	Page       models.ResultPage
}

// HTTPClient implements Client over the service's HTTP API.
type HTTPClient struct {
	baseURL     string
	resultsPath string
	uploadPath  string
	creds       credential.Provider
	client      *http.Client
}

// NewHTTPClient creates a new results service client.
func NewHTTPClient(cfg config.BackendConfig, creds credential.Provider) *HTTPClient {
	return &HTTPClient{
		baseURL:     strings.TrimRight(cfg.BaseURL, "/"),
		resultsPath: cfg.ResultsPath,
		uploadPath:  cfg.UploadPath,
		creds:       creds,
		client:      &http.Client{Timeout: cfg.Timeout},
	}
}

func (c *HTTPClient) ListResults(ctx context.Context, q query.State) (*ListResponse, error) {
	u := fmt.Sprintf("%s%s?%s", c.baseURL, c.resultsPath, q.Params().Encode())

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	httpReq.Header.Set("Accept", "application/json")
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

	var body resultsResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, classifyError(ctxErr)
		}
		return nil, fmt.Errorf("%w: decoding results: %v", ErrInvalidResponse, err)
	}

	items := body.Data.Images
	if items == nil {
		items = []models.ResultRecord{}
	}

	return &ListResponse{
		StatusCode: resp.StatusCode,
		Message:    body.Message,
		Page: models.ResultPage{
			Items:      items,
			TotalCount: int(body.Data.Pagination.TotalCount),
		},
	}, nil
}

func (c *HTTPClient) setHeaders(ctx context.Context, req *http.Request) error {
	token, err := c.creds.Token(ctx)
	switch {
	case errors.Is(err, credential.ErrNoCredential):
	case err != nil:
		return fmt.Errorf("reading credential: %w", err)
	default:
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if id, ok := RequestIDFromContext(ctx); ok {
		req.Header.Set("X-Request-ID", id)
	}
	return nil
}

// classifyError maps transport-level errors to sentinel errors.
func classifyError(err error) error {
	if errors.Is(err, context.Canceled) {
		return fmt.Errorf("%w: %v", ErrCancelled, err)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	}

	return fmt.Errorf("%w: %v", ErrUnreachable, err)
}

// statusError builds a StatusError, taking the message from the body when it has one.
func statusError(resp *http.Response) error {
	se := &StatusError{StatusCode: resp.StatusCode}
	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	if err == nil {
		var body struct {
			Message string `json:"message"`
		}
		if json.Unmarshal(raw, &body) == nil {
			se.Message = body.Message
		}
	}
	return se
}

// --- results service response types ---

type resultsResponse struct {
	Message string      `json:"message"`
	Data    resultsData `json:"data"`
}

type resultsData struct {
	Images     []models.ResultRecord `json:"images"`
	Pagination pagination            `json:"pagination"`
}

type pagination struct {
	TotalCount count `json:"totalCount"`
}

// count decodes the string-encoded totalCount. Plain numbers are accepted too.
type count int

func (c *count) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "" || s == "null" {
		*c = 0
		return nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return fmt.Errorf("totalCount %q: %w", s, err)
	}
	if n < 0 {
		return fmt.Errorf("totalCount %d is negative", n)
	}
	*c = count(n)
	return nil
}

// Compile-time check that HTTPClient implements Client.
var _ Client = (*HTTPClient)(nil)
