package groceryapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/dukerupert/pantry/internal/model"
)

// Endpoint templates of the inventory REST API.
const (
	CollectionPath = "/api/groceries/"
	ItemPath       = "/api/groceries/:id"
)

const (
	defaultTimeout = 5 * time.Second
	maxErrorBody   = 64 << 10
)

// Config holds the REST collaborator settings.
type Config struct {
	BaseURL    string
	Timeout    time.Duration
	HTTPClient *http.Client
	Logger     *slog.Logger
}

// Client issues the four inventory requests against a fixed set of endpoints.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient creates a client. BaseURL is required; everything else has a default.
func NewClient(cfg Config) *Client {
	if cfg.Timeout == 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: cfg.Timeout}
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		httpClient: cfg.HTTPClient,
		logger:     cfg.Logger,
	}
}

func itemPath(id string) string {
	return strings.Replace(ItemPath, ":id", url.PathEscape(id), 1)
}

// ListItems fetches the whole inventory list.
func (c *Client) ListItems(ctx context.Context) ([]model.GroceryItem, error) {
	var raw []model.GroceryItem
	if err := c.do(ctx, http.MethodGet, CollectionPath, nil, &raw); err != nil {
		return nil, err
	}

	items := make([]model.GroceryItem, len(raw))
	copy(items, raw)
	c.logger.Debug("fetched groceries", "count", len(items))
	return items, nil
}

// CreateItem adds an item. The response body is not read.
func (c *Client) CreateItem(ctx context.Context, req model.GroceryCreateRequest) error {
	return c.do(ctx, http.MethodPost, CollectionPath, req, nil)
}

// GetItemDetail fetches a single item.
func (c *Client) GetItemDetail(ctx context.Context, id string) (*model.GroceryDetail, error) {
	var d model.GroceryDetail
	if err := c.do(ctx, http.MethodGet, itemPath(id), nil, &d); err != nil {
		return nil, err
	}
	return &d, nil
}

// UpdateItem replaces the mutable fields of an item.
func (c *Client) UpdateItem(ctx context.Context, id string, req model.GroceryUpdateRequest) error {
	return c.do(ctx, http.MethodPut, itemPath(id), req, nil)
}

// do performs one request. Every failure comes back as *APIError.
func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return transportError(fmt.Errorf("marshal request: %w", err))
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return transportError(fmt.Errorf("create request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	requestID := requestIDFrom(ctx)
	if requestID == "" {
		requestID = uuid.NewString()
	}
	req.Header.Set("X-Request-ID", requestID)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Debug("request failed", "method", method, "path", path, "request_id", requestID, "error", err)
		return transportError(fmt.Errorf("%s %s: %w", method, path, err))
	}
	defer resp.Body.Close()

	c.logger.Debug("request",
		"method", method,
		"path", path,
		"status", resp.StatusCode,
		"duration", time.Since(start),
		"request_id", requestID,
	)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return parseErrorBody(resp.StatusCode, data)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		apiErr := transportError(fmt.Errorf("decode response: %w", err))
		apiErr.HTTPStatus = resp.StatusCode
		return apiErr
	}
	return nil
}
