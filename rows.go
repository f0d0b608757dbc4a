package backlogdb

import (
	"fmt"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

// FriendEdge is one hop from a user to a friend, in either direction.
type FriendEdge struct {
	FriendInfo Document
	Edge       Document
}

// ShowEdge is a backlog membership: the show and the hasInBacklog edge.
type ShowEdge struct {
	Show Document
	Edge Document
}

// ReceivedRecommendationRow is a recommendation pointing at a user, with the
// show it is for and the user who made it resolved.
type ReceivedRecommendationRow struct {
	Rec  Document
	Edge Document
	Show Document
	User Document
}

// UserFullRow is everything reachable in one hop from a user vertex.
type UserFullRow struct {
	User            Document
	Friends         []FriendEdge
	Backlog         []ShowEdge
	Recommendations []ReceivedRecommendationRow
}

// AuthRow pairs a user with the auth vertices linked to it.
type AuthRow struct {
	User   string
	UserID string
	Auth   []Document
}

// BacklogRow is a user's backlog.
type BacklogRow struct {
	Name    string
	UserID  string
	Backlog []ShowEdge
}

// SentRecommendationRow is one recommendation a user made.
type SentRecommendationRow struct {
	Rec  Document
	Show Document
	To   Document
}

// SentRecommendationsRow groups the recommendations one user made.
type SentRecommendationsRow struct {
	Name   string
	UserID string
	Recs   []SentRecommendationRow
}

// toDocument converts a value returned by the driver into a Document.
// Nodes and relationships yield a copy of their properties; nil yields nil.
func toDocument(v any) (Document, error) {
	switch t := v.(type) {
	case nil:
		return nil, nil
	case neo4j.Node:
		return copyProps(t.Props), nil
	case *neo4j.Node:
		return copyProps(t.Props), nil
	case neo4j.Relationship:
		return copyProps(t.Props), nil
	case *neo4j.Relationship:
		return copyProps(t.Props), nil
	case map[string]any:
		return copyProps(t), nil
	case Document:
		return t.Clone(), nil
	default:
		return nil, fmt.Errorf("unexpected graph value of type %T", v)
	}
}

func copyProps(props map[string]any) Document {
	out := make(Document, len(props))
	for k, v := range props {
		out[k] = v
	}
	return out
}

// recordDocument reads a node, relationship or map column from a record.
func recordDocument(record *neo4j.Record, key string) (Document, error) {
	raw, ok := record.Get(key)
	if !ok {
		return nil, fmt.Errorf("could not find return value '%s' in query result", key)
	}
	doc, err := toDocument(raw)
	if err != nil {
		return nil, fmt.Errorf("column '%s': %w", key, err)
	}
	return doc, nil
}

// recordString reads a string column; a null column yields "".
func recordString(record *neo4j.Record, key string) (string, error) {
	raw, ok := record.Get(key)
	if !ok {
		return "", fmt.Errorf("could not find return value '%s' in query result", key)
	}
	if raw == nil {
		return "", nil
	}
	s, ok := raw.(string)
	if !ok {
		return "", fmt.Errorf("return value '%s' is not a string but %T", key, raw)
	}
	return s, nil
}

// recordInt reads an integer column. The driver returns every Cypher
// integer as int64.
func recordInt(record *neo4j.Record, key string) (int64, error) {
	raw, ok := record.Get(key)
	if !ok {
		return 0, fmt.Errorf("could not find return value '%s' in query result", key)
	}
	n, ok := raw.(int64)
	if !ok {
		return 0, fmt.Errorf("return value '%s' is not an integer but %T", key, raw)
	}
	return n, nil
}

// recordMaps reads a list-of-maps column, as produced by a pattern
// comprehension projecting map literals.
func recordMaps(record *neo4j.Record, key string) ([]map[string]any, error) {
	raw, ok := record.Get(key)
	if !ok {
		return nil, fmt.Errorf("could not find return value '%s' in query result", key)
	}
	if raw == nil {
		return nil, nil
	}
	list, ok := raw.([]any)
	if !ok {
		return nil, fmt.Errorf("return value '%s' is not a list but %T", key, raw)
	}
	out := make([]map[string]any, 0, len(list))
	for i, item := range list {
		m, ok := item.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("%s[%d] is not a map but %T", key, i, item)
		}
		out = append(out, m)
	}
	return out, nil
}

// recordDocuments reads a list-of-nodes column.
func recordDocuments(record *neo4j.Record, key string) ([]Document, error) {
	raw, ok := record.Get(key)
	if !ok {
		return nil, fmt.Errorf("could not find return value '%s' in query result", key)
	}
	if raw == nil {
		return nil, nil
	}
	list, ok := raw.([]any)
	if !ok {
		return nil, fmt.Errorf("return value '%s' is not a list but %T", key, raw)
	}
	out := make([]Document, 0, len(list))
	for i, item := range list {
		doc, err := toDocument(item)
		if err != nil {
			return nil, fmt.Errorf("%s[%d]: %w", key, i, err)
		}
		out = append(out, doc)
	}
	return out, nil
}

// mapDocument reads one entry of a projected map as a Document.
func mapDocument(m map[string]any, key string) (Document, error) {
	doc, err := toDocument(m[key])
	if err != nil {
		return nil, fmt.Errorf("entry '%s': %w", key, err)
	}
	return doc, nil
}

func decodeShowEdges(record *neo4j.Record, key string) ([]ShowEdge, error) {
	items, err := recordMaps(record, key)
	if err != nil {
		return nil, err
	}
	out := make([]ShowEdge, 0, len(items))
	for _, item := range items {
		show, err := mapDocument(item, "show")
		if err != nil {
			return nil, err
		}
		edge, err := mapDocument(item, "edge")
		if err != nil {
			return nil, err
		}
		out = append(out, ShowEdge{Show: show, Edge: edge})
	}
	return out, nil
}

func decodeUserFullRow(record *neo4j.Record) (UserFullRow, error) {
	var row UserFullRow
	var err error
	if row.User, err = recordDocument(record, "user"); err != nil {
		return row, err
	}

	friends, err := recordMaps(record, "friends")
	if err != nil {
		return row, err
	}
	row.Friends = make([]FriendEdge, 0, len(friends))
	for _, item := range friends {
		var f FriendEdge
		if f.FriendInfo, err = mapDocument(item, "friendInfo"); err != nil {
			return row, err
		}
		if f.Edge, err = mapDocument(item, "edge"); err != nil {
			return row, err
		}
		row.Friends = append(row.Friends, f)
	}

	if row.Backlog, err = decodeShowEdges(record, "backlog"); err != nil {
		return row, err
	}

	recs, err := recordMaps(record, "recommendations")
	if err != nil {
		return row, err
	}
	row.Recommendations = make([]ReceivedRecommendationRow, 0, len(recs))
	for _, item := range recs {
		var r ReceivedRecommendationRow
		if r.Rec, err = mapDocument(item, "rec"); err != nil {
			return row, err
		}
		if r.Edge, err = mapDocument(item, "edge"); err != nil {
			return row, err
		}
		if r.Show, err = mapDocument(item, "show"); err != nil {
			return row, err
		}
		if r.User, err = mapDocument(item, "user"); err != nil {
			return row, err
		}
		row.Recommendations = append(row.Recommendations, r)
	}
	return row, nil
}

func decodeAuthRow(record *neo4j.Record) (AuthRow, error) {
	var row AuthRow
	var err error
	if row.User, err = recordString(record, "user"); err != nil {
		return row, err
	}
	if row.UserID, err = recordString(record, "userId"); err != nil {
		return row, err
	}
	row.Auth, err = recordDocuments(record, "auth")
	return row, err
}

func decodeBacklogRow(record *neo4j.Record) (BacklogRow, error) {
	var row BacklogRow
	var err error
	if row.Name, err = recordString(record, "name"); err != nil {
		return row, err
	}
	if row.UserID, err = recordString(record, "userId"); err != nil {
		return row, err
	}
	row.Backlog, err = decodeShowEdges(record, "backlog")
	return row, err
}

func decodeSentRecommendationsRow(record *neo4j.Record) (SentRecommendationsRow, error) {
	var row SentRecommendationsRow
	var err error
	if row.Name, err = recordString(record, "name"); err != nil {
		return row, err
	}
	if row.UserID, err = recordString(record, "userId"); err != nil {
		return row, err
	}
	items, err := recordMaps(record, "recs")
	if err != nil {
		return row, err
	}
	row.Recs = make([]SentRecommendationRow, 0, len(items))
	for _, item := range items {
		var r SentRecommendationRow
		if r.Rec, err = mapDocument(item, "rec"); err != nil {
			return row, err
		}
		if r.Show, err = mapDocument(item, "show"); err != nil {
			return row, err
		}
		if r.To, err = mapDocument(item, "to"); err != nil {
			return row, err
		}
		row.Recs = append(row.Recs, r)
	}
	return row, nil
}
