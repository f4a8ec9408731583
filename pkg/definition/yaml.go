package definition

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"path/filepath"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/goliatone/go-formwizard/pkg/model"
)

// ParseYAML decodes a native form document. Unknown keys are rejected so
// typos in constraint names surface at load time.
func ParseYAML(data []byte) (model.Form, error) {
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)

	var form model.Form
	if err := decoder.Decode(&form); err != nil {
		if errors.Is(err, io.EOF) {
			return model.Form{}, ErrEmptyDocument
		}
		return model.Form{}, fmt.Errorf("parse yaml: %w", err)
	}
	return normalize(form)
}

// Store indexes forms by id.
type Store struct {
	forms map[string]model.Form
}

// LoadFS walks fsys and parses every .yaml/.yml/.json form document.
// OpenAPI documents found on the way are skipped; load them through a
// Loader with an operation id instead.
func LoadFS(fsys fs.FS) (*Store, error) {
	store := &Store{forms: make(map[string]model.Form)}
	if fsys == nil {
		return store, nil
	}

	err := fs.WalkDir(fsys, ".", func(path string, entry fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if entry.IsDir() || !isDefinitionFile(path) {
			return nil
		}
		data, err := fs.ReadFile(fsys, path)
		if err != nil {
			return fmt.Errorf("definition: read %s: %w", path, err)
		}
		if IsOpenAPI(data) {
			return nil
		}
		form, err := ParseYAML(data)
		if err != nil {
			return fmt.Errorf("definition: %s: %w", path, err)
		}
		if _, exists := store.forms[form.ID]; exists {
			return fmt.Errorf("definition: duplicate form %q (file %s)", form.ID, path)
		}
		store.forms[form.ID] = form
		return nil
	})
	if err != nil {
		return nil, err
	}
	return store, nil
}

// Form returns a copy of the form with id.
func (s *Store) Form(id string) (model.Form, bool) {
	if s == nil {
		return model.Form{}, false
	}
	form, ok := s.forms[id]
	if !ok {
		return model.Form{}, false
	}
	return form.Clone(), true
}

// IDs lists the stored form ids, sorted.
func (s *Store) IDs() []string {
	if s == nil {
		return nil
	}
	ids := make([]string, 0, len(s.forms))
	for id := range s.forms {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

func isDefinitionFile(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml", ".json":
		return true
	default:
		return false
	}
}
