package erp

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/bookstore/backend/internal/domain/integration"
)

// maxResponseSize is the maximum allowed response size from the ERP API (10MB)
const maxResponseSize = 10 * 1024 * 1024

const (
	minPageSize = 1
	maxPageSize = 1000
)

// Client implements integration.ERPClient over the ERP REST API
type Client struct {
	config     ClientConfig
	baseURL    *url.URL
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     *zap.Logger
}

var _ integration.ERPClient = (*Client)(nil)

// ClientOption configures a Client
type ClientOption func(*Client)

// WithHTTPClient replaces the underlying HTTP client
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithLogger sets the client logger
func WithLogger(logger *zap.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// NewClient creates a new ERP client. It fails with an error matching
// integration.ErrERPNotConfigured when the configuration is incomplete.
func NewClient(config ClientConfig, opts ...ClientOption) (*Client, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	base, err := url.Parse(config.BaseURL)
	if err != nil {
		return nil, ErrConfigInvalidBaseURL
	}

	c := &Client{
		config:  config,
		baseURL: base,
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
		logger: zap.NewNop(),
	}
	if config.RateLimit > 0 {
		c.limiter = rate.NewLimiter(rate.Limit(config.RateLimit), config.RateBurst)
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// ListProducts pages through GET products/ and hands every page to fn
func (c *Client) ListProducts(ctx context.Context, query integration.ProductListQuery, fn integration.PageFunc) error {
	pageSize := min(max(query.PageSize, minPageSize), maxPageSize)

	for page := 1; ; page++ {
		params := url.Values{}
		params.Set("page", strconv.Itoa(page))
		params.Set("page_size", strconv.Itoa(pageSize))
		params.Set("is_active", "true")
		params.Set("in_stock", "true")
		if query.UpdatedSince != "" {
			params.Set("updated_since", query.UpdatedSince)
		}

		data, err := c.doRequest(ctx, http.MethodGet, "products/", params, nil)
		if err != nil {
			return err
		}

		var results []any
		switch raw := data["results"].(type) {
		case nil:
		case []any:
			results = raw
		default:
			return fmt.Errorf("%w: results is not a list", integration.ErrERPInvalidResponse)
		}

		c.logger.Debug("ERP product page received",
			zap.Int("page", page),
			zap.Int("count", len(results)),
		)
		if err := fn(results); err != nil {
			if errors.Is(err, integration.ErrStopPaging) {
				return nil
			}
			return err
		}

		if !hasNext(data["next"]) {
			return nil
		}
	}
}

// CreateOrder posts payload to orders/
func (c *Client) CreateOrder(ctx context.Context, payload *integration.OrderPayload) (*integration.OrderAck, error) {
	data, err := c.doRequest(ctx, http.MethodPost, "orders/", nil, payload)
	if err != nil {
		return nil, err
	}
	return &integration.OrderAck{
		OrderID: stringValue(data["order_id"]),
		Status:  stringValue(data["status"]),
		Raw:     data,
	}, nil
}

// doRequest performs an API call and decodes a JSON object response. An empty
// body decodes as an empty object.
func (c *Client) doRequest(ctx context.Context, method, path string, params url.Values, body any) (map[string]any, error) {
	endpoint := c.baseURL.ResolveReference(&url.URL{Path: path})
	if len(params) > 0 {
		endpoint.RawQuery = params.Encode()
	}

	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("erp: failed to encode request: %w", err)
		}
		reader = bytes.NewReader(encoded)
	}

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("erp: rate limiter: %w", err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint.String(), reader)
	if err != nil {
		return nil, fmt.Errorf("erp: failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Api-Key "+c.config.APIKey)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", integration.ErrERPUnavailable, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", integration.ErrERPUnavailable, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.logger.Warn("ERP API request failed",
			zap.String("method", method),
			zap.String("path", path),
			zap.Int("status_code", resp.StatusCode),
		)
		return nil, &integration.RemoteError{StatusCode: resp.StatusCode, Body: string(raw)}
	}

	if len(bytes.TrimSpace(raw)) == 0 {
		return map[string]any{}, nil
	}
	decoder := json.NewDecoder(bytes.NewReader(raw))
	decoder.UseNumber()
	var data map[string]any
	if err := decoder.Decode(&data); err != nil || data == nil {
		return nil, fmt.Errorf("%w: %s %s", integration.ErrERPInvalidResponse, method, path)
	}
	return data, nil
}

func hasNext(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case string:
		return t != ""
	case bool:
		return t
	}
	return true
}

func stringValue(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(t)
	case json.Number:
		return t.String()
	case bool:
		if !t {
			return ""
		}
	}
	return strings.TrimSpace(fmt.Sprint(v))
}
