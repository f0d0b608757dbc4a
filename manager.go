package backlogdb

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/saulfrancisco-ruizacevedo/go-backlogdb/logging"
	"github.com/saulfrancisco-ruizacevedo/gocypher"
)

// Store is the central orchestrator for the graph access layer. It owns the
// query runner, one Repository per vertex collection, and provides the
// traversals and edge operations that span collections.
type Store struct {
	runner DBRunner
	repos  map[string]*Repository
	log    zerolog.Logger
}

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithLogger sets the logger used for per-query debug output.
func WithLogger(l zerolog.Logger) StoreOption {
	return func(s *Store) { s.log = l }
}

// NewStore creates a new Store on top of runner. Every query the store issues
// is timed and counted in the backlogdb_store_* metrics.
func NewStore(runner DBRunner, opts ...StoreOption) *Store {
	s := &Store{log: logging.Component("store")}
	for _, opt := range opts {
		opt(s)
	}
	s.runner = instrumentedRunner{next: runner, log: s.log}

	s.repos = make(map[string]*Repository, len(VertexCollections))
	for _, c := range VertexCollections {
		// VertexCollections only holds vertex collections, so this cannot fail.
		repo, _ := NewRepository(s.runner, c)
		s.repos[c.Name] = repo
	}
	return s
}

// RepositoryFor returns the repository of a vertex collection.
func (s *Store) RepositoryFor(c Collection) (*Repository, error) {
	repo, ok := s.repos[c.Name]
	if !ok {
		return nil, fmt.Errorf("no repository for collection %s", c.Name)
	}
	return repo, nil
}

// FindVertices returns every vertex of c whose field equals value.
func (s *Store) FindVertices(ctx context.Context, c Collection, field string, value any) ([]Document, error) {
	repo, err := s.RepositoryFor(c)
	if err != nil {
		return nil, err
	}
	return repo.FindByProperty(ctx, field, value)
}

// ExistsByField reports whether at least one vertex of c has field == value.
// Absence is never an error.
func (s *Store) ExistsByField(ctx context.Context, c Collection, field string, value any) (bool, error) {
	repo, err := s.RepositoryFor(c)
	if err != nil {
		return false, err
	}
	n, err := repo.CountByProperty(ctx, field, value)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// LookupID returns the `_id` of the first vertex of c with field == value.
// found is false, with a nil error, when there is none.
func (s *Store) LookupID(ctx context.Context, c Collection, field string, value any) (id string, found bool, err error) {
	docs, err := s.FindVertices(ctx, c, field, value)
	if err != nil {
		return "", false, err
	}
	if len(docs) == 0 {
		return "", false, nil
	}
	return docs[0].RecordID(), true, nil
}

// InsertVertex stores a new vertex in c and returns it with its storage
// identity fields.
func (s *Store) InsertVertex(ctx context.Context, c Collection, data Document) (Document, error) {
	repo, err := s.RepositoryFor(c)
	if err != nil {
		return nil, err
	}
	return repo.Create(ctx, data)
}

// UpdateVertices sets updates on every vertex of c matching filter and
// returns how many were changed.
func (s *Store) UpdateVertices(ctx context.Context, c Collection, filter, updates Document) (int, error) {
	repo, err := s.RepositoryFor(c)
	if err != nil {
		return 0, err
	}
	return repo.Update(ctx, filter, updates)
}

// DeleteVertex removes the vertex with the given `_id` together with its
// edges.
func (s *Store) DeleteVertex(ctx context.Context, id string) error {
	c, err := CollectionOf(id)
	if err != nil {
		return err
	}
	repo, err := s.RepositoryFor(c)
	if err != nil {
		return err
	}
	return repo.Delete(ctx, id)
}

// InsertEdge creates a directed edge of collection c between two existing
// vertices, identified by their `_id`. The vertex labels are derived from the
// ids.
//
// Parameters:
//   - ctx: The context for the query execution.
//   - c: The edge collection.
//   - fromID, toID: The `_id` of the source and target vertices.
//   - extra: Additional edge properties; may be nil.
//
// Returns:
//
//	The stored edge properties, ErrNotFound if either endpoint does not exist,
//	or another error if the query building or execution fails.
func (s *Store) InsertEdge(ctx context.Context, c Collection, fromID, toID string, extra Document) (Document, error) {
	if c.Kind != EdgeCollection {
		return nil, fmt.Errorf("collection %s is not an edge collection", c.Name)
	}
	from, err := CollectionOf(fromID)
	if err != nil {
		return nil, err
	}
	to, err := CollectionOf(toID)
	if err != nil {
		return nil, err
	}

	props := withIdentity(c, extra)
	qb := gocypher.NewQueryBuilder().
		Match(gocypher.N("a", from.Label).WithProperties(map[string]any{IDField: fromID})).
		Match(gocypher.N("b", to.Label).WithProperties(map[string]any{IDField: toID})).
		Create(
			gocypher.N("a", ""), // Reference the 'a' alias without its label
			gocypher.R("r", c.Label).To().WithProperties(props),
			gocypher.N("b", ""),
		).
		Return("r")

	query, params, err := qb.Build()
	if err != nil {
		return nil, err
	}

	result, err := s.runner.Run(withQueryName(ctx, "create_"+c.Name), query, params)
	if err != nil {
		return nil, fmt.Errorf("insert %s edge %s -> %s: %w", c.Name, fromID, toID, err)
	}
	if len(result.Records) == 0 {
		return nil, fmt.Errorf("insert %s edge %s -> %s: %w", c.Name, fromID, toID, ErrNotFound)
	}
	return props, nil
}

// UpdateEdge sets updates on the edge of collection c with the given `_id`.
// It returns ErrNotFound when no such edge exists.
func (s *Store) UpdateEdge(ctx context.Context, c Collection, id string, updates Document) error {
	if c.Kind != EdgeCollection {
		return fmt.Errorf("collection %s is not an edge collection", c.Name)
	}
	set := make(map[string]any, len(updates))
	for k, v := range updates {
		if IsStorageField(k) {
			return fmt.Errorf("refusing to update storage field %q", k)
		}
		set["r."+k] = v
	}
	if len(set) == 0 {
		return errors.New("update edge: no fields to set")
	}

	stmt, params, err := gocypher.NewQueryBuilder().
		Match(
			gocypher.N("a", ""),
			gocypher.R("r", c.Label).To().WithProperties(map[string]any{IDField: id}),
			gocypher.N("b", ""),
		).
		Set(set).
		Build()
	if err != nil {
		return err
	}

	result, err := s.runner.Run(withQueryName(ctx, "update_"+c.Name), stmt+"\nRETURN count(r) AS affected", params)
	if err != nil {
		return fmt.Errorf("update %s: %w", id, err)
	}
	if len(result.Records) == 0 {
		return fmt.Errorf("update %s: %w", id, ErrNotFound)
	}
	n, err := recordInt(result.Records[0], "affected")
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("update %s: %w", id, ErrNotFound)
	}
	return nil
}
