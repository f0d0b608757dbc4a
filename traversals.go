package backlogdb

import (
	"context"
	"fmt"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

// The traversals are written as raw Cypher: each one resolves every hop in a
// single round trip with pattern comprehensions. The user name is always a
// query parameter.
const (
	userFullQuery = `MATCH (u:User {name: $name})
RETURN u AS user,
  [(u)-[e:FRIENDS_WITH]-(f:User) | {friendInfo: f, edge: e}] AS friends,
  [(u)-[e:HAS_IN_BACKLOG]->(s:Show) | {show: s, edge: e}] AS backlog,
  [(r:Recommendation)-[e:RECOMMENDATION_TO]->(u) | {
    rec: r,
    edge: e,
    show: head([(r)-[:RECOMMENDATION_FOR]->(s:Show) | s]),
    user: head([(r)-[:RECOMMENDATION_FROM]->(src:User) | src])
  }] AS recommendations`

	authByUserNameQuery = `MATCH (u:User {name: $name})
RETURN u.name AS user, u._id AS userId,
  [(u)-[:HAS_AUTH]->(a:AuthInformation) | a] AS auth`

	backlogByUserNameQuery = `MATCH (u:User {name: $name})
RETURN u.name AS name, u._id AS userId,
  [(u)-[e:HAS_IN_BACKLOG]->(s:Show) | {show: s, edge: e}] AS backlog`

	recommendationsFromUserQuery = `MATCH (u:User {name: $name})
RETURN u.name AS name, u._id AS userId,
  [(r:Recommendation)-[:RECOMMENDATION_FROM]->(u) | {
    rec: r,
    show: head([(r)-[:RECOMMENDATION_FOR]->(s:Show) | s]),
    to: head([(r)-[:RECOMMENDATION_TO]->(t:User) | t])
  }] AS recs`
)

// FindUserFull returns, for every user named name, the user vertex with its
// friends (one hop in either direction along friendsWith), its backlog (one
// hop outbound along hasInBacklog) and the recommendations it received (one
// hop inbound along recommendationTo), each recommendation carrying the show
// it is for and the user who made it.
//
// Parameters:
//   - ctx: The context for the query execution.
//   - name: The exact, case-sensitive user name.
//
// Returns:
//
//	One row per matching user. No match is an empty slice, not an error.
func (s *Store) FindUserFull(ctx context.Context, name string) ([]UserFullRow, error) {
	return runTraversal(ctx, s, "find_user_full", userFullQuery, name, decodeUserFullRow)
}

// FindAuthByUserName returns the auth vertices linked to every user named name.
func (s *Store) FindAuthByUserName(ctx context.Context, name string) ([]AuthRow, error) {
	return runTraversal(ctx, s, "find_auth_by_user_name", authByUserNameQuery, name, decodeAuthRow)
}

// FindBacklogByUserName returns the backlog of every user named name.
func (s *Store) FindBacklogByUserName(ctx context.Context, name string) ([]BacklogRow, error) {
	return runTraversal(ctx, s, "find_backlog_by_user_name", backlogByUserNameQuery, name, decodeBacklogRow)
}

// FindRecommendationsFromUser returns the recommendations made by every user
// named name, each with the show it is for and the user it was sent to.
func (s *Store) FindRecommendationsFromUser(ctx context.Context, name string) ([]SentRecommendationsRow, error) {
	return runTraversal(ctx, s, "find_recommendations_from_user", recommendationsFromUserQuery, name, decodeSentRecommendationsRow)
}

func runTraversal[T any](ctx context.Context, s *Store, queryName, query, name string, decode func(*neo4j.Record) (T, error)) ([]T, error) {
	result, err := s.runner.Run(withQueryName(ctx, queryName), query, map[string]any{"name": name})
	if err != nil {
		return nil, err
	}

	rows := make([]T, 0, len(result.Records))
	for _, record := range result.Records {
		row, err := decode(record)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", queryName, err)
		}
		rows = append(rows, row)
	}
	return rows, nil
}
