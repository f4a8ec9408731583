package uniqueness

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"go.uber.org/zap"
)

// HTTPChecker asks an endpoint `GET <url>?field=<id>&value=<v>` which
// answers `{"available": true|false}`.
type HTTPChecker struct {
	endpoint *url.URL
	client   *http.Client
	logger   *zap.Logger
}

var _ Checker = (*HTTPChecker)(nil)

// HTTPOption configures an HTTPChecker.
type HTTPOption func(*HTTPChecker)

// WithHTTPClient injects the client used for lookups.
func WithHTTPClient(client *http.Client) HTTPOption {
	return func(c *HTTPChecker) {
		if client != nil {
			c.client = client
		}
	}
}

// WithHTTPLogger attaches a logger.
func WithHTTPLogger(logger *zap.Logger) HTTPOption {
	return func(c *HTTPChecker) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// NewHTTP parses endpoint and returns a checker for it.
func NewHTTP(endpoint string, options ...HTTPOption) (*HTTPChecker, error) {
	parsed, err := url.Parse(strings.TrimSpace(endpoint))
	if err != nil {
		return nil, fmt.Errorf("uniqueness: parse endpoint: %w", err)
	}
	if parsed.Scheme == "" || parsed.Host == "" {
		return nil, fmt.Errorf("uniqueness: endpoint %q must be absolute", endpoint)
	}
	c := &HTTPChecker{
		endpoint: parsed,
		client:   http.DefaultClient,
		logger:   zap.NewNop(),
	}
	for _, opt := range options {
		if opt != nil {
			opt(c)
		}
	}
	return c, nil
}

type availability struct {
	Available *bool `json:"available"`
}

// Available implements Checker.
func (c *HTTPChecker) Available(ctx context.Context, field, value string) (bool, error) {
	if strings.TrimSpace(value) == "" {
		return false, ErrEmptyValue
	}

	target := *c.endpoint
	query := target.Query()
	query.Set("field", field)
	query.Set("value", value)
	target.RawQuery = query.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target.String(), nil)
	if err != nil {
		return false, fmt.Errorf("uniqueness: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return false, ctxErr
		}
		return false, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.logger.Debug("uniqueness endpoint error", zap.String("field", field), zap.Int("status", resp.StatusCode))
		return false, fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode)
	}

	var body availability
	if err := json.NewDecoder(io.LimitReader(resp.Body, 64<<10)).Decode(&body); err != nil {
		return false, fmt.Errorf("%w: decode response: %v", ErrUnavailable, err)
	}
	if body.Available == nil {
		return false, fmt.Errorf("%w: response missing \"available\"", ErrUnavailable)
	}
	return *body.Available, nil
}
