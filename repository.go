package backlogdb

import (
	"context"
	"fmt"

	"github.com/saulfrancisco-ruizacevedo/gocypher"
)

// Repository provides CRUD operations over one vertex collection. Records are
// plain Documents; every record created through a Repository carries the
// storage identity fields `_key` and `_id`.
type Repository struct {
	runner     DBRunner
	collection Collection
}

// NewRepository creates a repository for the given vertex collection.
//
// Parameters:
//   - runner: An instance of DBRunner, used to execute all Cypher queries.
//   - c: The vertex collection the repository manages.
//
// Returns:
//
//	A new Repository instance or an error if c is an edge collection.
func NewRepository(runner DBRunner, c Collection) (*Repository, error) {
	if c.Kind != VertexCollection {
		return nil, fmt.Errorf("collection %s is not a vertex collection", c.Name)
	}
	return &Repository{runner: runner, collection: c}, nil
}

// Collection returns the collection this repository manages.
func (r *Repository) Collection() Collection { return r.collection }

// Create inserts a new vertex with the given properties plus fresh storage
// identity fields.
//
// Parameters:
//   - ctx: The context for the query execution.
//   - data: The vertex properties. Keys starting with "_" are discarded.
//
// Returns:
//
//	The stored properties, including `_key` and `_id`, or an error if the query
//	building or execution fails. A uniqueness constraint failure matches
//	ErrConstraintViolation.
func (r *Repository) Create(ctx context.Context, data Document) (Document, error) {
	props := withIdentity(r.collection, data)
	query, params, err := gocypher.NewQueryBuilder().
		Create(gocypher.N("n", r.collection.Label).WithProperties(props)).
		Return("n").
		Build()
	if err != nil {
		return nil, err
	}

	result, err := r.runner.Run(withQueryName(ctx, "create_"+r.collection.Name), query, params)
	if err != nil {
		return nil, fmt.Errorf("insert into %s: %w", r.collection.Name, err)
	}
	if len(result.Records) != 1 {
		return nil, fmt.Errorf("insert into %s: expected 1 record but found %d", r.collection.Name, len(result.Records))
	}
	return props, nil
}

// FindByProperty returns every vertex whose property equals value.
func (r *Repository) FindByProperty(ctx context.Context, property string, value any) ([]Document, error) {
	query, params, err := gocypher.NewQueryBuilder().
		Match(gocypher.N("n", r.collection.Label).WithProperties(map[string]any{property: value})).
		Return("n").
		Build()
	if err != nil {
		return nil, err
	}

	result, err := r.runner.Run(withQueryName(ctx, "find_"+r.collection.Name), query, params)
	if err != nil {
		return nil, err
	}

	docs := make([]Document, 0, len(result.Records))
	for _, record := range result.Records {
		doc, err := recordDocument(record, "n")
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

// FindOne retrieves exactly one vertex whose property equals value.
//
// Returns:
//
//	The vertex properties, ErrNotFound if no record is found, ErrNotUnique if
//	several are, or another error if the query fails.
func (r *Repository) FindOne(ctx context.Context, property string, value any) (Document, error) {
	docs, err := r.FindByProperty(ctx, property, value)
	if err != nil {
		return nil, err
	}
	switch len(docs) {
	case 0:
		return nil, ErrNotFound
	case 1:
		return docs[0], nil
	default:
		return nil, fmt.Errorf("%w: %d %s with %s=%v", ErrNotUnique, len(docs), r.collection.Name, property, value)
	}
}

// CountByProperty counts the vertices whose property equals value.
func (r *Repository) CountByProperty(ctx context.Context, property string, value any) (int64, error) {
	match, params, err := gocypher.NewQueryBuilder().
		Match(gocypher.N("n", r.collection.Label).WithProperties(map[string]any{property: value})).
		Build()
	if err != nil {
		return 0, err
	}

	result, err := r.runner.Run(withQueryName(ctx, "count_"+r.collection.Name), match+"\nRETURN count(n) AS total", params)
	if err != nil {
		return 0, err
	}
	if len(result.Records) == 0 {
		return 0, nil
	}
	return recordInt(result.Records[0], "total")
}

// Update sets the given fields on every vertex matching all filter
// properties.
//
// Returns:
//
//	The number of vertices updated.
func (r *Repository) Update(ctx context.Context, filter Document, updates Document) (int, error) {
	set := make(map[string]any, len(updates))
	for k, v := range updates {
		if IsStorageField(k) {
			return 0, fmt.Errorf("refusing to update storage field %q", k)
		}
		set["n."+k] = v
	}
	if len(set) == 0 {
		return 0, fmt.Errorf("update on %s: no fields to set", r.collection.Name)
	}

	stmt, params, err := gocypher.NewQueryBuilder().
		Match(gocypher.N("n", r.collection.Label).WithProperties(map[string]any(filter))).
		Set(set).
		Build()
	if err != nil {
		return 0, err
	}

	result, err := r.runner.Run(withQueryName(ctx, "update_"+r.collection.Name), stmt+"\nRETURN count(n) AS affected", params)
	if err != nil {
		return 0, fmt.Errorf("update %s: %w", r.collection.Name, err)
	}
	if len(result.Records) == 0 {
		return 0, nil
	}
	n, err := recordInt(result.Records[0], "affected")
	return int(n), err
}

// Delete removes a vertex by its `_id`.
// It uses a DETACH DELETE query to also remove any relationships connected to the node.
func (r *Repository) Delete(ctx context.Context, id string) error {
	query, params, err := gocypher.NewQueryBuilder().
		Match(gocypher.N("n", r.collection.Label).WithProperties(map[string]any{IDField: id})).
		DetachDelete("n").
		Build()
	if err != nil {
		return err
	}
	if _, err := r.runner.Run(withQueryName(ctx, "delete_"+r.collection.Name), query, params); err != nil {
		return fmt.Errorf("delete %s: %w", id, err)
	}
	return nil
}
