package definition

import (
	"fmt"
	"net/url"
	"path/filepath"
	"strings"
)

// SourceKind identifies where a definition lives.
type SourceKind string

const (
	SourceKindFile SourceKind = "file"
	SourceKindFS   SourceKind = "fs"
	SourceKindURL  SourceKind = "url"
)

// Source points at a definition document.
type Source struct {
	Kind     SourceKind
	Location string
}

func (s Source) String() string {
	return string(s.Kind) + ":" + s.Location
}

// FromFile references a file on disk.
func FromFile(path string) Source {
	return Source{Kind: SourceKindFile, Location: filepath.Clean(path)}
}

// FromFS references a path inside the loader's fs.FS.
func FromFS(name string) Source {
	return Source{Kind: SourceKindFS, Location: name}
}

// FromURL references an HTTP(S) document.
func FromURL(raw string) (Source, error) {
	parsed, err := url.ParseRequestURI(strings.TrimSpace(raw))
	if err != nil {
		return Source{}, fmt.Errorf("definition: invalid url %q: %w", raw, err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return Source{}, fmt.Errorf("definition: unsupported url scheme %q", parsed.Scheme)
	}
	return Source{Kind: SourceKindURL, Location: parsed.String()}, nil
}

// Parse guesses the source kind from a CLI argument.
func Parse(raw string) (Source, error) {
	if strings.HasPrefix(raw, "http://") || strings.HasPrefix(raw, "https://") {
		return FromURL(raw)
	}
	return FromFile(raw), nil
}
