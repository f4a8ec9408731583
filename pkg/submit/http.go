package submit

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/mitchellh/mapstructure"
	"go.uber.org/zap"
)

// RequestIDHeader carries the per-attempt correlation id.
const RequestIDHeader = "X-Request-ID"

const maxResponseBody = 1 << 20

// HTTPSubmitter posts JSON payloads to an endpoint.
type HTTPSubmitter struct {
	endpoint string
	method   string
	client   *http.Client
	headers  http.Header
	logger   *zap.Logger
	newID    func() string
}

var _ Submitter = (*HTTPSubmitter)(nil)

// HTTPOption configures an HTTPSubmitter.
type HTTPOption func(*HTTPSubmitter)

// WithHTTPClient injects a client (proxies, transports, test servers).
func WithHTTPClient(client *http.Client) HTTPOption {
	return func(s *HTTPSubmitter) {
		if client != nil {
			s.client = client
		}
	}
}

// WithMethod overrides POST.
func WithMethod(method string) HTTPOption {
	return func(s *HTTPSubmitter) {
		if m := strings.ToUpper(strings.TrimSpace(method)); m != "" {
			s.method = m
		}
	}
}

// WithTimeout caps each attempt. It applies on top of the caller's context.
func WithTimeout(timeout time.Duration) HTTPOption {
	return func(s *HTTPSubmitter) {
		if timeout <= 0 {
			return
		}
		clone := *s.client
		clone.Timeout = timeout
		s.client = &clone
	}
}

// WithHeader adds a static header (auth tokens, CSRF).
func WithHeader(name, value string) HTTPOption {
	return func(s *HTTPSubmitter) {
		s.headers.Add(name, value)
	}
}

// WithLogger attaches a logger.
func WithLogger(logger *zap.Logger) HTTPOption {
	return func(s *HTTPSubmitter) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewHTTP constructs a submitter for endpoint.
func NewHTTP(endpoint string, options ...HTTPOption) (*HTTPSubmitter, error) {
	endpoint = strings.TrimSpace(endpoint)
	if endpoint == "" {
		return nil, ErrEndpointMissing
	}
	s := &HTTPSubmitter{
		endpoint: endpoint,
		method:   http.MethodPost,
		client:   &http.Client{},
		headers:  make(http.Header),
		logger:   zap.NewNop(),
		newID:    uuid.NewString,
	}
	for _, opt := range options {
		if opt != nil {
			opt(s)
		}
	}
	return s, nil
}

type responseBody struct {
	Success *bool               `mapstructure:"success"`
	OK      *bool               `mapstructure:"ok"`
	Message string              `mapstructure:"message"`
	Error   string              `mapstructure:"error"`
	Errors  map[string][]string `mapstructure:"errors"`
	Data    map[string]any      `mapstructure:"data"`
}

// Submit sends payload as JSON. Non-2xx responses and 2xx responses with
// `"success": false` are returned as *Error wrapping ErrRejected; network
// failures wrap ErrTransport.
func (s *HTTPSubmitter) Submit(ctx context.Context, payload Payload) (Response, error) {
	requestID := s.newID()

	body, err := json.Marshal(payload)
	if err != nil {
		return Response{}, fmt.Errorf("submit: encode payload: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, s.method, s.endpoint, bytes.NewReader(body))
	if err != nil {
		return Response{}, fmt.Errorf("submit: build request: %w", err)
	}
	for name, values := range s.headers {
		for _, v := range values {
			req.Header.Add(name, v)
		}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set(RequestIDHeader, requestID)

	resp, err := s.client.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return Response{}, &Error{RequestID: requestID, Err: ctxErr}
		}
		s.logger.Warn("submission transport failure", zap.String("request_id", requestID), zap.Error(err))
		return Response{}, &Error{RequestID: requestID, Err: fmt.Errorf("%w: %v", ErrTransport, err)}
	}
	defer resp.Body.Close()

	decoded, decodeErr := decodeBody(resp.Body)
	if decodeErr != nil {
		s.logger.Debug("submission response not decodable", zap.String("request_id", requestID), zap.Error(decodeErr))
	}

	message := strings.TrimSpace(decoded.Message)
	if message == "" {
		message = strings.TrimSpace(decoded.Error)
	}

	rejected := resp.StatusCode < 200 || resp.StatusCode >= 300
	if decoded.Success != nil && !*decoded.Success {
		rejected = true
	}
	if decoded.OK != nil && !*decoded.OK {
		rejected = true
	}
	if rejected {
		if message == "" {
			message = http.StatusText(resp.StatusCode)
		}
		s.logger.Info("submission rejected",
			zap.String("request_id", requestID),
			zap.Int("status", resp.StatusCode),
			zap.String("message", message))
		return Response{}, &Error{
			Status:    resp.StatusCode,
			Message:   message,
			Fields:    decoded.Errors,
			RequestID: requestID,
			Err:       ErrRejected,
		}
	}

	return Response{
		Status:    resp.StatusCode,
		Message:   message,
		RequestID: requestID,
		Data:      decoded.Data,
	}, nil
}

func decodeBody(r io.Reader) (responseBody, error) {
	var out responseBody
	raw, err := io.ReadAll(io.LimitReader(r, maxResponseBody))
	if err != nil {
		return out, err
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		return out, nil
	}

	var generic map[string]any
	if err := json.Unmarshal(raw, &generic); err != nil {
		return out, err
	}

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           &out,
	})
	if err != nil {
		return out, err
	}
	if err := decoder.Decode(generic); err != nil {
		return out, errors.Join(errors.New("submit: decode response"), err)
	}
	return out, nil
}
