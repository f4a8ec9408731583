// Package submit hands a completed form payload to the submission endpoint.
// The endpoint is an external collaborator: it answers with a success
// indicator or an error payload carrying a message and optional per-field
// errors. Failures are returned to the caller and never retried here.
package submit

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrTransport wraps network level failures (DNS, refused, timeouts).
	ErrTransport = errors.New("submit: transport failure")
	// ErrRejected marks responses where the endpoint refused the payload.
	ErrRejected = errors.New("submit: rejected by endpoint")
	// ErrEndpointMissing is returned when no endpoint URL is configured.
	ErrEndpointMissing = errors.New("submit: endpoint is required")
)

// Payload is the flat key/value body built from the form.
type Payload map[string]string

// Response is a successful submission.
type Response struct {
	Status    int            `json:"status"`
	Message   string         `json:"message,omitempty"`
	RequestID string         `json:"requestId,omitempty"`
	Data      map[string]any `json:"data,omitempty"`
}

// Error describes a failed submission. Fields holds messages the endpoint
// attached to specific inputs, keyed by the raw path it used.
type Error struct {
	Status    int
	Message   string
	Fields    map[string][]string
	RequestID string
	Err       error
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString("submit: ")
	if e.Status > 0 {
		fmt.Fprintf(&b, "status %d", e.Status)
	} else {
		b.WriteString("request failed")
	}
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	if e.Err != nil && e.Message == "" {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Submitter delivers payloads.
type Submitter interface {
	Submit(ctx context.Context, payload Payload) (Response, error)
}

// SubmitterFunc adapts a function into a Submitter.
type SubmitterFunc func(ctx context.Context, payload Payload) (Response, error)

// Submit calls the underlying function.
func (fn SubmitterFunc) Submit(ctx context.Context, payload Payload) (Response, error) {
	return fn(ctx, payload)
}
