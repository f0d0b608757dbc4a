package backlogdb

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// Document is the language-native shape of a vertex's or edge's properties
// as they come back from the store.
type Document map[string]any

// Storage-private property names. Every record written through this package
// carries both.
const (
	// KeyField holds the record's UUID.
	KeyField = "_key"
	// IDField holds "<collection>/<_key>", from which the collection is recoverable.
	IDField = "_id"
)

// IsStorageField reports whether a property is private to the storage layer
// and must not reach callers.
func IsStorageField(key string) bool {
	return strings.HasPrefix(key, "_")
}

// CollectionKind separates vertex collections from edge collections.
type CollectionKind int

const (
	// VertexCollection records are Neo4j nodes.
	VertexCollection CollectionKind = iota
	// EdgeCollection records are Neo4j relationships.
	EdgeCollection
)

// Collection holds the mapping of one logical collection onto the graph.
type Collection struct {
	// Name is the logical collection name, also used as the `_id` prefix.
	Name string
	// Label is the node label (vertices) or relationship type (edges).
	Label string
	Kind  CollectionKind
}

func (c Collection) String() string { return c.Name }

// Vertex collections.
var (
	Users           = Collection{Name: "users", Label: "User", Kind: VertexCollection}
	Shows           = Collection{Name: "shows", Label: "Show", Kind: VertexCollection}
	Recommendations = Collection{Name: "recommendations", Label: "Recommendation", Kind: VertexCollection}
	AuthInformation = Collection{Name: "authInformation", Label: "AuthInformation", Kind: VertexCollection}
)

// Edge collections.
var (
	FriendsWith        = Collection{Name: "friendsWith", Label: "FRIENDS_WITH", Kind: EdgeCollection}
	HasInBacklog       = Collection{Name: "hasInBacklog", Label: "HAS_IN_BACKLOG", Kind: EdgeCollection}
	RecommendationTo   = Collection{Name: "recommendationTo", Label: "RECOMMENDATION_TO", Kind: EdgeCollection}
	RecommendationFrom = Collection{Name: "recommendationFrom", Label: "RECOMMENDATION_FROM", Kind: EdgeCollection}
	RecommendationFor  = Collection{Name: "recommendationFor", Label: "RECOMMENDATION_FOR", Kind: EdgeCollection}
	UserAuth           = Collection{Name: "userAuth", Label: "HAS_AUTH", Kind: EdgeCollection}
)

// VertexCollections lists every vertex collection.
var VertexCollections = []Collection{Users, Recommendations, Shows, AuthInformation}

// EdgeCollections lists every edge collection.
var EdgeCollections = []Collection{RecommendationTo, RecommendationFrom, RecommendationFor, FriendsWith, HasInBacklog, UserAuth}

var collectionsByName = func() map[string]Collection {
	m := make(map[string]Collection, len(VertexCollections)+len(EdgeCollections))
	for _, c := range VertexCollections {
		m[c.Name] = c
	}
	for _, c := range EdgeCollections {
		m[c.Name] = c
	}
	return m
}()

// CollectionByName returns the collection registered under name.
func CollectionByName(name string) (Collection, error) {
	c, ok := collectionsByName[name]
	if !ok {
		return Collection{}, fmt.Errorf("unknown collection %q", name)
	}
	return c, nil
}

// CollectionOf returns the collection a record id ("<collection>/<key>") belongs to.
func CollectionOf(id string) (Collection, error) {
	name, key, ok := strings.Cut(id, "/")
	if !ok || name == "" || key == "" {
		return Collection{}, fmt.Errorf("malformed record id %q", id)
	}
	return CollectionByName(name)
}

// newIdentity allocates the storage-private fields for a new record in c.
func newIdentity(c Collection) (key, id string) {
	key = uuid.NewString()
	return key, c.Name + "/" + key
}

// withIdentity returns a copy of data carrying fresh storage identity
// fields. Caller-supplied storage fields are discarded.
func withIdentity(c Collection, data Document) Document {
	out := make(Document, len(data)+2)
	for k, v := range data {
		if IsStorageField(k) {
			continue
		}
		out[k] = v
	}
	out[KeyField], out[IDField] = newIdentity(c)
	return out
}

// RecordID returns the `_id` of a stored record, or "" if it has none.
func (d Document) RecordID() string {
	id, _ := d[IDField].(string)
	return id
}

// Clone returns a shallow copy of d.
func (d Document) Clone() Document {
	if d == nil {
		return nil
	}
	out := make(Document, len(d))
	for k, v := range d {
		out[k] = v
	}
	return out
}
