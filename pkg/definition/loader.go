package definition

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/goliatone/go-formwizard/pkg/model"
)

var (
	// ErrUnsupportedSource is returned for kinds the loader cannot fetch.
	ErrUnsupportedSource = errors.New("definition: unsupported source")
	// ErrEmptyDocument is returned for blank documents.
	ErrEmptyDocument = errors.New("definition: document is empty")
)

const maxDocumentSize = 4 << 20

// Loader fetches and parses definitions.
type Loader struct {
	fsys        fs.FS
	client      *http.Client
	timeout     time.Duration
	operationID string
	logger      *zap.Logger
}

// Option configures a Loader.
type Option func(*Loader)

// WithFS enables FromFS sources.
func WithFS(fsys fs.FS) Option {
	return func(l *Loader) {
		l.fsys = fsys
	}
}

// WithHTTPClient overrides the client used for URL sources.
func WithHTTPClient(client *http.Client) Option {
	return func(l *Loader) {
		if client != nil {
			l.client = client
		}
	}
}

// WithTimeout bounds URL fetches.
func WithTimeout(timeout time.Duration) Option {
	return func(l *Loader) {
		l.timeout = timeout
	}
}

// WithOperation selects the OpenAPI operation describing the form. Without
// it the document must contain exactly one operation with a request body.
func WithOperation(operationID string) Option {
	return func(l *Loader) {
		l.operationID = strings.TrimSpace(operationID)
	}
}

// WithLogger attaches a logger.
func WithLogger(logger *zap.Logger) Option {
	return func(l *Loader) {
		if logger != nil {
			l.logger = logger
		}
	}
}

// NewLoader constructs a Loader.
func NewLoader(options ...Option) *Loader {
	l := &Loader{
		client:  http.DefaultClient,
		timeout: 10 * time.Second,
		logger:  zap.NewNop(),
	}
	for _, opt := range options {
		if opt != nil {
			opt(l)
		}
	}
	return l
}

// Load fetches src and returns a validated, normalised form.
func (l *Loader) Load(ctx context.Context, src Source) (model.Form, error) {
	data, err := l.fetch(ctx, src)
	if err != nil {
		return model.Form{}, err
	}
	form, err := l.Parse(ctx, data, src.Location)
	if err != nil {
		return model.Form{}, err
	}
	l.logger.Debug("definition loaded",
		zap.String("source", src.String()),
		zap.String("form", form.ID),
		zap.Int("steps", len(form.Steps)))
	return form, nil
}

// Parse detects the document shape and parses it. name is used in errors.
func (l *Loader) Parse(ctx context.Context, data []byte, name string) (model.Form, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return model.Form{}, fmt.Errorf("%w: %s", ErrEmptyDocument, name)
	}

	var (
		form model.Form
		err  error
	)
	if IsOpenAPI(data) {
		form, err = ParseOpenAPI(ctx, data, l.operationID)
	} else {
		form, err = ParseYAML(data)
	}
	if err != nil {
		return model.Form{}, fmt.Errorf("definition: %s: %w", name, err)
	}
	return form, nil
}

func (l *Loader) fetch(ctx context.Context, src Source) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	switch src.Kind {
	case SourceKindFile:
		data, err := os.ReadFile(src.Location)
		if err != nil {
			return nil, fmt.Errorf("definition: read %s: %w", src.Location, err)
		}
		return data, nil
	case SourceKindFS:
		if l.fsys == nil {
			return nil, fmt.Errorf("%w: no filesystem configured for %s", ErrUnsupportedSource, src.Location)
		}
		data, err := fs.ReadFile(l.fsys, src.Location)
		if err != nil {
			return nil, fmt.Errorf("definition: read %s: %w", src.Location, err)
		}
		return data, nil
	case SourceKindURL:
		return l.fetchURL(ctx, src.Location)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedSource, src.Kind)
	}
}

func (l *Loader) fetchURL(ctx context.Context, location string) ([]byte, error) {
	if l.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, l.timeout)
		defer cancel()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, location, nil)
	if err != nil {
		return nil, fmt.Errorf("definition: build request: %w", err)
	}
	resp, err := l.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("definition: fetch %s: %w", location, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("definition: fetch %s: unexpected status %d", location, resp.StatusCode)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxDocumentSize))
	if err != nil {
		return nil, fmt.Errorf("definition: read %s: %w", location, err)
	}
	return data, nil
}

// IsOpenAPI reports whether data has a top-level `openapi` key. JSON is read
// as YAML.
func IsOpenAPI(data []byte) bool {
	var head struct {
		OpenAPI string `yaml:"openapi"`
	}
	if err := yaml.Unmarshal(data, &head); err != nil {
		return false
	}
	return strings.TrimSpace(head.OpenAPI) != ""
}

// normalize canonicalises kinds, fills labels and validates the result.
func normalize(form model.Form) (model.Form, error) {
	for si := range form.Steps {
		step := &form.Steps[si]
		if step.Title == "" {
			step.Title = model.DefaultLabeler(step.ID)
		}
		for fi := range step.Fields {
			field := &step.Fields[fi]
			kind, ok := model.ParseKind(string(field.Kind))
			if !ok {
				return model.Form{}, fmt.Errorf("field %q: unknown kind %q", field.ID, field.Kind)
			}
			field.Kind = kind
			if strings.TrimSpace(field.Label) == "" {
				field.Label = model.DefaultLabeler(field.ID)
			}
			field.Valid = true
		}
	}
	if err := form.Validate(); err != nil {
		return model.Form{}, err
	}
	return form, nil
}
