package recognition

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/dealdesk/intake-backend/internal/platform/config"
	"github.com/dealdesk/intake-backend/internal/platform/logger"
)

// Submission describes one document handed to the recognition backend. The
// backend fetches the file itself from FileURL.
type Submission struct {
	DocumentID string `json:"document_id"`
	DealID     string `json:"deal_id"`
	PartyID    string `json:"party_id,omitempty"`
	Type       string `json:"type"`
	Category   string `json:"category"`
	FileURL    string `json:"file_url"`
	MimeType   string `json:"mime_type,omitempty"`
}

// Result is a terminal or in-progress recognition outcome, shared by the
// push channel and the poll fallback.
type Result struct {
	RemoteID  string          `json:"remote_id"`
	Done      bool            `json:"done"`
	Failed    bool            `json:"failed"`
	Error     string          `json:"error,omitempty"`
	Validated *bool           `json:"validated,omitempty"`
	Extracted json.RawMessage `json:"extracted,omitempty"`
}

// SubmissionClient starts recognition for one document and returns the
// backend's correlation id.
type SubmissionClient interface {
	Submit(ctx context.Context, sub Submission) (remoteID string, err error)
}

// StatusClient polls one recognition by remote id.
type StatusClient interface {
	Status(ctx context.Context, remoteID string) (*Result, error)
}

// LinkClient registers an already-recognized document against an additional
// document type, so one artifact can satisfy several requirements. The
// backend answers with a fresh remote id for the linked recognition.
type LinkClient interface {
	Link(ctx context.Context, remoteID, docType string) (*Result, error)
}

// RemovalClient tells the backend to discard a recognition.
type RemovalClient interface {
	Remove(ctx context.Context, remoteID string) error
}

// RefreshClient asks the backend to re-emit push events for every pending
// recognition. Fire-and-forget; failures are logged and swallowed.
type RefreshClient interface {
	RequestRefresh(ctx context.Context) error
}

// Client is the full recognition-backend surface.
type Client interface {
	SubmissionClient
	StatusClient
	LinkClient
	RemovalClient
	RefreshClient
}

// ErrStillProcessing is returned by Status when the backend has not finished
// yet, including when the poll itself timed out: a slow poll is evidence of
// nothing.
var ErrStillProcessing = errors.New("recognition still processing")

type httpClient struct {
	log     *logger.Logger
	client  *http.Client
	baseURL string
	apiKey  string
}

func NewHTTPClient(baseLog *logger.Logger, cfg config.RecognitionConfig) (Client, error) {
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		return nil, fmt.Errorf("missing recognition base URL")
	}
	return &httpClient{
		log:     baseLog.With("service", "RecognitionClient"),
		client:  &http.Client{Timeout: 30 * time.Second},
		baseURL: baseURL,
		apiKey:  cfg.APIKey,
	}, nil
}

func (c *httpClient) Submit(ctx context.Context, sub Submission) (string, error) {
	var out struct {
		RemoteID string `json:"remote_id"`
	}
	if err := c.do(ctx, http.MethodPost, "/v1/recognitions", sub, &out); err != nil {
		return "", err
	}
	if out.RemoteID == "" {
		return "", fmt.Errorf("recognition backend returned no remote id")
	}
	return out.RemoteID, nil
}

func (c *httpClient) Status(ctx context.Context, remoteID string) (*Result, error) {
	var out Result
	err := c.do(ctx, http.MethodGet, "/v1/recognitions/"+remoteID, nil, &out)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, ErrStillProcessing
		}
		return nil, err
	}
	if !out.Done && !out.Failed {
		return nil, ErrStillProcessing
	}
	out.RemoteID = remoteID
	return &out, nil
}

func (c *httpClient) Link(ctx context.Context, remoteID, docType string) (*Result, error) {
	body := map[string]string{"type": docType}
	var out Result
	if err := c.do(ctx, http.MethodPost, "/v1/recognitions/"+remoteID+"/links", body, &out); err != nil {
		return nil, err
	}
	// The linked recognition gets its own id; the source's id must not leak
	// onto it or later removal calls hit the wrong recognition.
	if out.RemoteID == "" {
		return nil, fmt.Errorf("recognition backend returned no remote id for link")
	}
	return &out, nil
}

func (c *httpClient) Remove(ctx context.Context, remoteID string) error {
	return c.do(ctx, http.MethodDelete, "/v1/recognitions/"+remoteID, nil, nil)
}

func (c *httpClient) RequestRefresh(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/v1/recognitions/refresh", nil, nil)
}

func (c *httpClient) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("recognition request %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("recognition request %s %s: unexpected status %d", method, path, resp.StatusCode)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode recognition response: %w", err)
	}
	return nil
}
