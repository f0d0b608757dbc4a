// Package users implements the user operations of the backlog tracker:
// profiles, login, passwords, backlogs, friends and recommendations.
//
// Every lookup by name follows the same counting rule: no user is
// USER_NOT_FOUND, several users are NON_UNIQUE_USER. Writes that touch more
// than one record remove what they created if a later step fails.
package users

import (
	"context"

	"github.com/rs/zerolog"

	backlogdb "github.com/saulfrancisco-ruizacevedo/go-backlogdb"
	"github.com/saulfrancisco-ruizacevedo/go-backlogdb/apperror"
	"github.com/saulfrancisco-ruizacevedo/go-backlogdb/logging"
	"github.com/saulfrancisco-ruizacevedo/go-backlogdb/password"
)

// Schema ids of the payloads this package accepts.
const (
	userSchema           = "user/index.schema.json"
	recommendationSchema = "recommendation/index.schema.json"
	backlogSchema        = "backlog/basic.schema.json"
)

// Graph is the part of *backlogdb.Store the user operations need.
type Graph interface {
	FindUserFull(ctx context.Context, name string) ([]backlogdb.UserFullRow, error)
	FindAuthByUserName(ctx context.Context, name string) ([]backlogdb.AuthRow, error)
	FindBacklogByUserName(ctx context.Context, name string) ([]backlogdb.BacklogRow, error)
	FindRecommendationsFromUser(ctx context.Context, name string) ([]backlogdb.SentRecommendationsRow, error)

	ExistsByField(ctx context.Context, c backlogdb.Collection, field string, value any) (bool, error)
	LookupID(ctx context.Context, c backlogdb.Collection, field string, value any) (string, bool, error)

	InsertVertex(ctx context.Context, c backlogdb.Collection, data backlogdb.Document) (backlogdb.Document, error)
	UpdateVertices(ctx context.Context, c backlogdb.Collection, filter, updates backlogdb.Document) (int, error)
	DeleteVertex(ctx context.Context, id string) error
	InsertEdge(ctx context.Context, c backlogdb.Collection, fromID, toID string, extra backlogdb.Document) (backlogdb.Document, error)
	UpdateEdge(ctx context.Context, c backlogdb.Collection, id string, updates backlogdb.Document) error
}

// Validator checks a payload against a schema. *schemas.Registry satisfies it.
type Validator interface {
	Validate(id string, instance any) error
}

// Service implements the user operations.
type Service struct {
	graph   Graph
	schemas Validator
	hasher  password.Hasher
	log     zerolog.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the service logger.
func WithLogger(l zerolog.Logger) Option {
	return func(s *Service) { s.log = l }
}

// New creates a user service.
//
// Parameters:
//   - graph: The graph store, usually a *backlogdb.Store.
//   - schemas: Validates user and recommendation payloads.
//   - hasher: Hashes and checks passwords.
//   - opts: Optional settings.
func New(graph Graph, schemas Validator, hasher password.Hasher, opts ...Option) *Service {
	s := &Service{
		graph:   graph,
		schemas: schemas,
		hasher:  hasher,
		log:     logging.Component("users"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// oneUser applies the counting rule to rows found for a user name.
func oneUser[T any](rows []T, name string, idOf func(T) string) (T, error) {
	return apperror.ExactlyOne(rows, name, apperror.CodeUserNotFound, apperror.CodeNonUniqueUser, idOf)
}

// userID looks a user up by name. A missing user is USER_NOT_FOUND.
func (s *Service) userID(ctx context.Context, name string) (string, error) {
	id, found, err := s.graph.LookupID(ctx, backlogdb.Users, "name", name)
	if err != nil {
		return "", err
	}
	if !found {
		return "", apperror.Newf(apperror.CodeUserNotFound, "User '%s' not found", name)
	}
	return id, nil
}

// showID looks a show up by name. A missing show is SHOW_NOT_FOUND.
func (s *Service) showID(ctx context.Context, name string) (string, error) {
	id, found, err := s.graph.LookupID(ctx, backlogdb.Shows, "name", name)
	if err != nil {
		return "", err
	}
	if !found {
		return "", apperror.Newf(apperror.CodeShowNotFound, "Show '%s' not found.", name)
	}
	return id, nil
}

// rollback removes the vertices a failed multi-step write created, newest
// first. Their edges go with them. Failures are logged, not returned: the
// caller already has an error to report.
func (s *Service) rollback(ctx context.Context, op string, cause error, ids ...string) {
	ctx = context.WithoutCancel(ctx)
	s.log.Warn().Err(cause).Str("op", op).Strs("vertices", ids).Msg("write failed part way, removing partial records")
	for i := len(ids) - 1; i >= 0; i-- {
		if err := s.graph.DeleteVertex(ctx, ids[i]); err != nil {
			s.log.Error().Err(err).Str("op", op).Str("vertex", ids[i]).Msg("cleanup failed, record left behind")
		}
	}
}
