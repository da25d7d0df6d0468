package erp

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/bookstore/backend/internal/domain/integration"
)

// DefaultTimeout is the per-request timeout when none is configured
const DefaultTimeout = 15 * time.Second

// Errors for ERP client configuration. All of them match
// integration.ErrERPNotConfigured.
var (
	ErrConfigDisabled       = fmt.Errorf("%w: integration is disabled", integration.ErrERPNotConfigured)
	ErrConfigMissingBaseURL = fmt.Errorf("%w: base URL is required", integration.ErrERPNotConfigured)
	ErrConfigMissingAPIKey  = fmt.Errorf("%w: API key is required", integration.ErrERPNotConfigured)
	ErrConfigInvalidBaseURL = fmt.Errorf("%w: base URL is invalid", integration.ErrERPNotConfigured)
)

// ClientConfig holds configuration for the ERP HTTP API
type ClientConfig struct {
	// Enabled switches the integration on
	Enabled bool
	// BaseURL is the API root, e.g. https://erp.example.com/api/v1/
	BaseURL string
	// APIKey is sent as "Authorization: Api-Key <key>"
	APIKey string
	// Timeout bounds every request
	Timeout time.Duration
	// RateLimit caps requests per second; zero disables throttling
	RateLimit float64
	// RateBurst is the token bucket size, at least 1
	RateBurst int
}

// Validate checks the configuration and fills defaults
func (c *ClientConfig) Validate() error {
	if !c.Enabled {
		return ErrConfigDisabled
	}
	c.BaseURL = strings.TrimSpace(c.BaseURL)
	if c.BaseURL == "" {
		return ErrConfigMissingBaseURL
	}
	if strings.TrimSpace(c.APIKey) == "" {
		return ErrConfigMissingAPIKey
	}
	u, err := url.Parse(c.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return ErrConfigInvalidBaseURL
	}
	if !strings.HasSuffix(c.BaseURL, "/") {
		c.BaseURL += "/"
	}
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	if c.RateLimit < 0 {
		c.RateLimit = 0
	}
	if c.RateBurst <= 0 {
		c.RateBurst = max(1, int(c.RateLimit))
	}
	return nil
}
