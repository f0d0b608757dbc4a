// Package shows implements the show catalogue: lookups by name or
// MyAnimeList id and validated inserts.
package shows

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	backlogdb "github.com/saulfrancisco-ruizacevedo/go-backlogdb"
	"github.com/saulfrancisco-ruizacevedo/go-backlogdb/apperror"
	"github.com/saulfrancisco-ruizacevedo/go-backlogdb/flatten"
	"github.com/saulfrancisco-ruizacevedo/go-backlogdb/logging"
	"github.com/saulfrancisco-ruizacevedo/go-backlogdb/models"
)

const showSchema = "anime/index.schema.json"

// Graph is the part of *backlogdb.Store the show operations need.
type Graph interface {
	FindVertices(ctx context.Context, c backlogdb.Collection, field string, value any) ([]backlogdb.Document, error)
	ExistsByField(ctx context.Context, c backlogdb.Collection, field string, value any) (bool, error)
	LookupID(ctx context.Context, c backlogdb.Collection, field string, value any) (string, bool, error)
	InsertVertex(ctx context.Context, c backlogdb.Collection, data backlogdb.Document) (backlogdb.Document, error)
}

// Validator checks a payload against a schema.
type Validator interface {
	Validate(id string, instance any) error
}

// Service implements the show operations.
type Service struct {
	graph   Graph
	schemas Validator
	log     zerolog.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the service logger.
func WithLogger(l zerolog.Logger) Option {
	return func(s *Service) { s.log = l }
}

// New creates a show service.
func New(graph Graph, schemas Validator, opts ...Option) *Service {
	s := &Service{graph: graph, schemas: schemas, log: logging.Component("shows")}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CheckIfShowExistsByName reports whether a show with exactly this name is
// stored.
func (s *Service) CheckIfShowExistsByName(ctx context.Context, name string) (bool, error) {
	return s.graph.ExistsByField(ctx, backlogdb.Shows, "name", name)
}

// ShowIDByName returns the record id of the first show with this name.
// found is false when there is none.
func (s *Service) ShowIDByName(ctx context.Context, name string) (id string, found bool, err error) {
	return s.graph.LookupID(ctx, backlogdb.Shows, "name", name)
}

// AddShowToDatabase stores a new show.
//
// Returns:
//
//	The stored show, INVALID_PAYLOAD when show does not match
//	anime/index.schema.json, NON_UNIQUE_SHOW when the name is taken, or a
//	store error.
func (s *Service) AddShowToDatabase(ctx context.Context, show models.Show) (models.Show, error) {
	if err := s.schemas.Validate(showSchema, show); err != nil {
		invalid := apperror.InvalidPayload("Show data was invalid", err)
		s.log.Info().Str("show", show.Name).Msg("Data format error in show data")
		s.log.Debug().Strs("errors", apperror.DetailsOf(invalid)).Msg("show schema errors")
		return models.Show{}, invalid
	}

	exists, err := s.CheckIfShowExistsByName(ctx, show.Name)
	if err != nil {
		return models.Show{}, err
	}
	if exists {
		return models.Show{}, showExists(show.Name, nil)
	}

	stored, err := s.graph.InsertVertex(ctx, backlogdb.Shows, toDocument(show))
	if err != nil {
		if backlogdb.IsConstraintViolation(err) {
			return models.Show{}, showExists(show.Name, err)
		}
		return models.Show{}, fmt.Errorf("insert show %q: %w", show.Name, err)
	}
	s.log.Debug().Str("show", show.Name).Str("id", stored.RecordID()).Msg("inserted show vertex")
	return flatten.Decode[models.Show](flatten.StripStorageFields(stored))
}

// FindShowsByMALID returns every show with the given MyAnimeList id.
func (s *Service) FindShowsByMALID(ctx context.Context, malAnimeID int64) ([]models.Show, error) {
	docs, err := s.graph.FindVertices(ctx, backlogdb.Shows, "malAnimeId", malAnimeID)
	if err != nil {
		return nil, fmt.Errorf("find shows with malAnimeId %d: %w", malAnimeID, err)
	}
	return flatten.Decode[[]models.Show](flatten.StripStorageFields(docs))
}

func showExists(name string, cause error) error {
	return apperror.Wrap(apperror.CodeNonUniqueShow, fmt.Sprintf("Show '%s' already exists on database", name), cause)
}

// toDocument keeps only the fields that are set.
func toDocument(show models.Show) backlogdb.Document {
	doc := backlogdb.Document{"name": show.Name}
	if show.MalAnimeID != 0 {
		doc["malAnimeId"] = show.MalAnimeID
	}
	if show.MalURL != nil {
		doc["malUrl"] = *show.MalURL
	}
	if len(show.AltNames) > 0 {
		doc["altNames"] = show.AltNames
	}
	return doc
}
