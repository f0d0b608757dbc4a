// Package schemas loads the JSON schemas that gate every write of the
// backlog tracker and validates payloads against them.
//
// Schemas live in files named *.schema.json. A schema's id is derived from
// its path relative to the registry root, so "user/index.schema.json" is
// registered as PrefixSchemaID("user/index.schema.json"). References between
// schemas are relative to that id:
//
//	{ "$ref": "signIn.schema.json" }   // from user/index.schema.json
package schemas

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"path"
	"sort"
	"strings"
	"sync"

	json "github.com/goccy/go-json"
	"github.com/google/jsonschema-go/jsonschema"
)

// SchemaIDPrefix is prepended to every schema id.
const SchemaIDPrefix = "https://schemas.backlogger.local/"

const schemaSuffix = ".schema.json"

//go:embed data
var embedded embed.FS

// PrefixSchemaID turns a path relative to the registry root into a schema id.
// Ids that already carry the prefix are returned unchanged.
func PrefixSchemaID(id string) string {
	if strings.HasPrefix(id, SchemaIDPrefix) {
		return id
	}
	return SchemaIDPrefix + strings.TrimPrefix(id, "/")
}

// ValidationError reports why an instance does not match a schema.
type ValidationError struct {
	SchemaID string
	Errors   []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("instance does not match schema %s: %s", e.SchemaID, strings.Join(e.Errors, "; "))
}

// Registry holds every schema found under a file system root.
type Registry struct {
	fsys fs.FS

	mu       sync.RWMutex
	files    []string
	raw      map[string][]byte
	resolved map[string]*jsonschema.Resolved
}

// New creates a registry reading schemas from fsys. Nothing is read until
// Load is called.
func New(fsys fs.FS) *Registry {
	return &Registry{
		fsys:     fsys,
		raw:      map[string][]byte{},
		resolved: map[string]*jsonschema.Resolved{},
	}
}

// NewEmbedded creates and loads a registry over the schemas compiled into the
// binary.
func NewEmbedded() (*Registry, error) {
	sub, err := fs.Sub(embedded, "data")
	if err != nil {
		return nil, err
	}
	r := New(sub)
	if err := r.Load(); err != nil {
		return nil, err
	}
	return r, nil
}

// ListSchemaFiles walks the registry root and returns the path of every
// *.schema.json file, sorted.
func (r *Registry) ListSchemaFiles() ([]string, error) {
	var files []string
	err := fs.WalkDir(r.fsys, ".", func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && strings.HasSuffix(p, schemaSuffix) {
			files = append(files, p)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list schema files: %w", err)
	}
	sort.Strings(files)
	return files, nil
}

// Load (re)reads every schema file. Each schema's $id is replaced by the id
// derived from its path. Previously compiled validators are discarded.
func (r *Registry) Load() error {
	files, err := r.ListSchemaFiles()
	if err != nil {
		return err
	}

	raw := make(map[string][]byte, len(files))
	for _, file := range files {
		data, err := fs.ReadFile(r.fsys, file)
		if err != nil {
			return fmt.Errorf("read schema %s: %w", file, err)
		}

		var doc map[string]any
		if err := json.Unmarshal(data, &doc); err != nil {
			return fmt.Errorf("parse schema %s: %w", file, err)
		}
		id := PrefixSchemaID(file)
		doc["$id"] = id

		rewritten, err := json.Marshal(doc)
		if err != nil {
			return fmt.Errorf("encode schema %s: %w", file, err)
		}
		raw[id] = rewritten
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.files = files
	r.raw = raw
	r.resolved = map[string]*jsonschema.Resolved{}
	return nil
}

// SchemaIDs returns the ids of every loaded schema, sorted.
func (r *Registry) SchemaIDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]string, 0, len(r.raw))
	for id := range r.raw {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// SchemaByID returns a fresh copy of a loaded schema. id may be given with or
// without SchemaIDPrefix.
func (r *Registry) SchemaByID(id string) (*jsonschema.Schema, error) {
	r.mu.RLock()
	data, ok := r.raw[PrefixSchemaID(id)]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unknown schema %q", id)
	}

	var s jsonschema.Schema
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("decode schema %q: %w", id, err)
	}
	return &s, nil
}

// Resolved returns the compiled validator for a schema, with every loaded
// schema available to $ref. Validators are compiled on first use and cached
// until the next Load.
func (r *Registry) Resolved(id string) (*jsonschema.Resolved, error) {
	id = PrefixSchemaID(id)

	r.mu.RLock()
	cached, ok := r.resolved[id]
	r.mu.RUnlock()
	if ok {
		return cached, nil
	}

	root, err := r.SchemaByID(id)
	if err != nil {
		return nil, err
	}
	resolved, err := root.Resolve(&jsonschema.ResolveOptions{
		BaseURI: id,
		Loader:  r.load,
	})
	if err != nil {
		return nil, fmt.Errorf("resolve schema %q: %w", id, err)
	}

	r.mu.Lock()
	r.resolved[id] = resolved
	r.mu.Unlock()
	return resolved, nil
}

// load serves $ref targets from the registry.
func (r *Registry) load(uri *url.URL) (*jsonschema.Schema, error) {
	u := *uri
	u.Fragment = ""
	id := u.String()
	if !strings.HasPrefix(id, SchemaIDPrefix) {
		return nil, fmt.Errorf("schema %q is outside the registry", id)
	}
	return r.SchemaByID(path.Clean(strings.TrimPrefix(id, SchemaIDPrefix)))
}

// Validate checks instance against the schema with the given id. instance
// may be a struct or any JSON-shaped value; it is normalised to plain JSON
// values first.
//
// Returns:
//
//	nil when the instance matches, a *ValidationError when it does not, or
//	another error if the schema is unknown or cannot be compiled.
func (r *Registry) Validate(id string, instance any) error {
	resolved, err := r.Resolved(id)
	if err != nil {
		return err
	}

	normalised, err := normalise(instance)
	if err != nil {
		return &ValidationError{SchemaID: PrefixSchemaID(id), Errors: []string{err.Error()}}
	}

	if err := resolved.Validate(normalised); err != nil {
		return &ValidationError{SchemaID: PrefixSchemaID(id), Errors: messages(err)}
	}
	return nil
}

func normalise(instance any) (any, error) {
	data, err := json.Marshal(instance)
	if err != nil {
		return nil, fmt.Errorf("instance is not JSON encodable: %w", err)
	}
	var out any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// messages splits joined validation errors into one message per failure.
func messages(err error) []string {
	var joined interface{ Unwrap() []error }
	if errors.As(err, &joined) {
		var out []string
		for _, e := range joined.Unwrap() {
			out = append(out, messages(e)...)
		}
		if len(out) > 0 {
			return out
		}
	}
	var lines []string
	for _, line := range strings.Split(err.Error(), "\n") {
		if line = strings.TrimSpace(line); line != "" {
			lines = append(lines, line)
		}
	}
	return lines
}
