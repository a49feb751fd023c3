package notion

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/rebeliceyang/lazynotion/internal/models"
)

const (
	DefaultBaseURL  = "https://api.notion.com"
	DefaultVersion  = "2022-06-28"
	DefaultPageSize = 100
	DefaultMaxPages = 10
)

// Querier runs a filtered, sorted query and returns the matching records
type Querier interface {
	Query(ctx context.Context, params models.QueryParams) ([]models.Record, error)
}

// Config holds the client settings
type Config struct {
	BaseURL    string
	Token      string
	DatabaseID string
	Version    string
	PageSize   int
	MaxPages   int
	Timeout    time.Duration
}

// Client queries one database of the document service over HTTP
type Client struct {
	BaseURL    string
	HTTPClient *http.Client

	token      string
	databaseID string
	version    string
	pageSize   int
	maxPages   int
	logger     *slog.Logger
}

// NewClient creates a client, filling unset config with defaults
func NewClient(cfg Config, logger *slog.Logger) (*Client, error) {
	if cfg.Token == "" {
		return nil, errors.New("notion token is required")
	}
	if cfg.DatabaseID == "" {
		return nil, errors.New("notion database id is required")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Version == "" {
		cfg.Version = DefaultVersion
	}
	if cfg.PageSize <= 0 || cfg.PageSize > DefaultPageSize {
		cfg.PageSize = DefaultPageSize
	}
	if cfg.MaxPages <= 0 {
		cfg.MaxPages = DefaultMaxPages
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	return &Client{
		BaseURL: strings.TrimRight(cfg.BaseURL, "/"),
		HTTPClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		token:      cfg.Token,
		databaseID: cfg.DatabaseID,
		version:    cfg.Version,
		pageSize:   cfg.PageSize,
		maxPages:   cfg.MaxPages,
		logger:     logger,
	}, nil
}

// DatabaseID returns the id of the queried database
func (c *Client) DatabaseID() string {
	return c.databaseID
}

// queryRequest is the body of a database query
type queryRequest struct {
	Filter      *models.WireFilter `json:"filter,omitempty"`
	Sorts       []models.SortEntry `json:"sorts,omitempty"`
	PageSize    int                `json:"page_size,omitempty"`
	StartCursor string             `json:"start_cursor,omitempty"`
}

// queryResponse is one page of query results
type queryResponse struct {
	Results    []models.Record `json:"results"`
	HasMore    bool            `json:"has_more"`
	NextCursor *string         `json:"next_cursor"`
}

// Query calls POST /v1/databases/{id}/query, following pagination until the
// last page or the configured page limit
func (c *Client) Query(ctx context.Context, params models.QueryParams) ([]models.Record, error) {
	body := queryRequest{
		Filter:   params.Filter,
		Sorts:    params.Sorts,
		PageSize: c.pageSize,
	}
	// an empty top-level group is the same as no filter
	if body.Filter != nil && body.Filter.IsGroup() && len(body.Filter.Children) == 0 {
		body.Filter = nil
	}

	path := fmt.Sprintf("/v1/databases/%s/query", c.databaseID)
	var records []models.Record

	for page := 0; page < c.maxPages; page++ {
		var resp queryResponse
		if err := c.doRequest(ctx, http.MethodPost, path, body, &resp); err != nil {
			return nil, errors.Wrapf(err, "failed to query database %s", c.databaseID)
		}
		records = append(records, resp.Results...)

		if !resp.HasMore || resp.NextCursor == nil || *resp.NextCursor == "" {
			return records, nil
		}
		body.StartCursor = *resp.NextCursor
	}

	c.logger.Warn("query truncated", "database", c.databaseID, "pages", c.maxPages, "records", len(records))
	return records, nil
}

func (c *Client) doRequest(ctx context.Context, method, path string, body, result any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return errors.Wrap(err, "failed to encode request")
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, reader)
	if err != nil {
		return errors.Wrap(err, "failed to create request")
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Notion-Version", c.version)
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return errors.Wrap(err, "request failed")
	}
	defer func() { _ = resp.Body.Close() }()

	c.logger.Debug("notion request", "method", method, "path", path, "status", resp.StatusCode, "duration", time.Since(start))

	if resp.StatusCode >= 400 {
		return decodeAPIError(resp)
	}

	if result != nil {
		if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
			return errors.Wrap(err, "failed to decode response")
		}
	}
	return nil
}

// APIError is an error response from the service
type APIError struct {
	Status  int    `json:"status"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *APIError) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("notion api error: status %d", e.Status)
	}
	return fmt.Sprintf("notion api error: %s (%d): %s", e.Code, e.Status, e.Message)
}

func decodeAPIError(resp *http.Response) error {
	apiErr := &APIError{}
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	_ = json.Unmarshal(data, apiErr)
	apiErr.Status = resp.StatusCode
	return apiErr
}
