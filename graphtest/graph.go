// Package graphtest provides an in-memory graph with the same read and write
// surface as backlogdb.Store, for testing the domain services without Neo4j.
//
// The graph records every call it receives and can be told to fail a given
// operation, which is how tests drive the services' error and cleanup paths:
//
//	g := graphtest.New()
//	g.FailOn("InsertEdge:userAuth", errors.New("boom"))
package graphtest

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"sync"

	"github.com/google/uuid"

	backlogdb "github.com/saulfrancisco-ruizacevedo/go-backlogdb"
)

// Edge is a stored edge.
type Edge struct {
	Collection backlogdb.Collection
	From       string
	To         string
	Props      backlogdb.Document
}

type uniqueKey struct {
	collection string
	field      string
}

// Graph is an in-memory property graph. The zero value is not usable; call New.
type Graph struct {
	mu       sync.Mutex
	vertices map[string]backlogdb.Document
	order    []string
	edges    []*Edge
	unique   map[uniqueKey]bool
	failures map[string]error
	calls    []string
}

// New returns an empty graph.
func New() *Graph {
	return &Graph{
		vertices: map[string]backlogdb.Document{},
		unique:   map[uniqueKey]bool{},
		failures: map[string]error{},
	}
}

// RequireUnique makes inserts into c fail with backlogdb.ErrConstraintViolation
// when another vertex already has the same value for field.
func (g *Graph) RequireUnique(c backlogdb.Collection, field string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.unique[uniqueKey{c.Name, field}] = true
}

// FailOn makes the operation named op return err. Names are the method name,
// optionally suffixed with ":" and the collection, e.g. "InsertVertex:users".
// A nil err clears the failure.
func (g *Graph) FailOn(op string, err error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if err == nil {
		delete(g.failures, op)
		return
	}
	g.failures[op] = err
}

// Calls returns the operations received so far, in order, named as for FailOn.
func (g *Graph) Calls() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]string(nil), g.calls...)
}

// enter records a call and returns the injected failure, if any. Must be
// called with mu held.
func (g *Graph) enter(op, collection string) error {
	name := op
	if collection != "" {
		name = op + ":" + collection
	}
	g.calls = append(g.calls, name)
	if err, ok := g.failures[name]; ok {
		return err
	}
	return g.failures[op]
}

// AddVertex stores a vertex directly, bypassing failure injection and
// uniqueness checks, and returns its `_id`.
func (g *Graph) AddVertex(c backlogdb.Collection, data backlogdb.Document) string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.addVertex(c, data)
}

func (g *Graph) addVertex(c backlogdb.Collection, data backlogdb.Document) string {
	doc := withIdentity(c, data)
	id := doc.RecordID()
	g.vertices[id] = doc
	g.order = append(g.order, id)
	return id
}

// AddEdge stores an edge directly and returns its `_id`.
func (g *Graph) AddEdge(c backlogdb.Collection, from, to string, data backlogdb.Document) string {
	g.mu.Lock()
	defer g.mu.Unlock()
	doc := withIdentity(c, data)
	g.edges = append(g.edges, &Edge{Collection: c, From: from, To: to, Props: doc})
	return doc.RecordID()
}

// Vertex returns a copy of the vertex with the given `_id`.
func (g *Graph) Vertex(id string) (backlogdb.Document, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	v, ok := g.vertices[id]
	return v.Clone(), ok
}

// Vertices returns copies of every vertex of c, in insertion order.
func (g *Graph) Vertices(c backlogdb.Collection) []backlogdb.Document {
	g.mu.Lock()
	defer g.mu.Unlock()
	var out []backlogdb.Document
	for _, id := range g.order {
		if inCollection(id, c) {
			out = append(out, g.vertices[id].Clone())
		}
	}
	return out
}

// Edges returns copies of every edge of c, in insertion order.
func (g *Graph) Edges(c backlogdb.Collection) []Edge {
	g.mu.Lock()
	defer g.mu.Unlock()
	var out []Edge
	for _, e := range g.edges {
		if e.Collection.Name == c.Name {
			out = append(out, Edge{Collection: e.Collection, From: e.From, To: e.To, Props: e.Props.Clone()})
		}
	}
	return out
}

// FindVertices implements the store lookup by field.
func (g *Graph) FindVertices(_ context.Context, c backlogdb.Collection, field string, value any) ([]backlogdb.Document, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if err := g.enter("FindVertices", c.Name); err != nil {
		return nil, err
	}
	out := []backlogdb.Document{}
	for _, v := range g.matching(c, backlogdb.Document{field: value}) {
		out = append(out, v.Clone())
	}
	return out, nil
}

// ExistsByField implements the store existence check.
func (g *Graph) ExistsByField(_ context.Context, c backlogdb.Collection, field string, value any) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if err := g.enter("ExistsByField", c.Name); err != nil {
		return false, err
	}
	return len(g.matching(c, backlogdb.Document{field: value})) > 0, nil
}

// LookupID implements the store id lookup.
func (g *Graph) LookupID(_ context.Context, c backlogdb.Collection, field string, value any) (string, bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if err := g.enter("LookupID", c.Name); err != nil {
		return "", false, err
	}
	found := g.matching(c, backlogdb.Document{field: value})
	if len(found) == 0 {
		return "", false, nil
	}
	return found[0].RecordID(), true, nil
}

// InsertVertex implements the store vertex insert.
func (g *Graph) InsertVertex(_ context.Context, c backlogdb.Collection, data backlogdb.Document) (backlogdb.Document, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if err := g.enter("InsertVertex", c.Name); err != nil {
		return nil, err
	}
	if c.Kind != backlogdb.VertexCollection {
		return nil, fmt.Errorf("collection %s is not a vertex collection", c.Name)
	}
	for key := range g.unique {
		if key.collection != c.Name {
			continue
		}
		value, ok := data[key.field]
		if ok && len(g.matching(c, backlogdb.Document{key.field: value})) > 0 {
			return nil, fmt.Errorf("insert into %s: %w: %s=%v already exists", c.Name, backlogdb.ErrConstraintViolation, key.field, value)
		}
	}
	id := g.addVertex(c, data)
	return g.vertices[id].Clone(), nil
}

// UpdateVertices implements the store vertex update.
func (g *Graph) UpdateVertices(_ context.Context, c backlogdb.Collection, filter, updates backlogdb.Document) (int, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if err := g.enter("UpdateVertices", c.Name); err != nil {
		return 0, err
	}
	for k := range updates {
		if backlogdb.IsStorageField(k) {
			return 0, fmt.Errorf("refusing to update storage field %q", k)
		}
	}
	matched := g.matching(c, filter)
	for _, v := range matched {
		for k, val := range updates {
			v[k] = val
		}
	}
	return len(matched), nil
}

// DeleteVertex implements the store vertex delete. Edges touching the vertex
// go with it.
func (g *Graph) DeleteVertex(_ context.Context, id string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	c, err := backlogdb.CollectionOf(id)
	if err != nil {
		return err
	}
	if err := g.enter("DeleteVertex", c.Name); err != nil {
		return err
	}
	delete(g.vertices, id)
	order := g.order[:0]
	for _, v := range g.order {
		if v != id {
			order = append(order, v)
		}
	}
	g.order = order
	edges := g.edges[:0]
	for _, e := range g.edges {
		if e.From != id && e.To != id {
			edges = append(edges, e)
		}
	}
	g.edges = edges
	return nil
}

// InsertEdge implements the store edge insert.
func (g *Graph) InsertEdge(_ context.Context, c backlogdb.Collection, fromID, toID string, extra backlogdb.Document) (backlogdb.Document, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if err := g.enter("InsertEdge", c.Name); err != nil {
		return nil, err
	}
	if c.Kind != backlogdb.EdgeCollection {
		return nil, fmt.Errorf("collection %s is not an edge collection", c.Name)
	}
	_, okFrom := g.vertices[fromID]
	_, okTo := g.vertices[toID]
	if !okFrom || !okTo {
		return nil, fmt.Errorf("insert %s edge %s -> %s: %w", c.Name, fromID, toID, backlogdb.ErrNotFound)
	}
	doc := withIdentity(c, extra)
	g.edges = append(g.edges, &Edge{Collection: c, From: fromID, To: toID, Props: doc})
	return doc.Clone(), nil
}

// UpdateEdge implements the store edge update.
func (g *Graph) UpdateEdge(_ context.Context, c backlogdb.Collection, id string, updates backlogdb.Document) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if err := g.enter("UpdateEdge", c.Name); err != nil {
		return err
	}
	for k := range updates {
		if backlogdb.IsStorageField(k) {
			return fmt.Errorf("refusing to update storage field %q", k)
		}
	}
	for _, e := range g.edges {
		if e.Collection.Name == c.Name && e.Props.RecordID() == id {
			for k, v := range updates {
				e.Props[k] = v
			}
			return nil
		}
	}
	return fmt.Errorf("update %s: %w", id, backlogdb.ErrNotFound)
}

// FindUserFull implements the store traversal of the same name.
func (g *Graph) FindUserFull(_ context.Context, name string) ([]backlogdb.UserFullRow, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if err := g.enter("FindUserFull", ""); err != nil {
		return nil, err
	}
	rows := []backlogdb.UserFullRow{}
	for _, u := range g.usersNamed(name) {
		id := u.RecordID()
		row := backlogdb.UserFullRow{User: u.Clone()}
		for _, e := range g.edgesOf(backlogdb.FriendsWith) {
			switch id {
			case e.From:
				row.Friends = append(row.Friends, backlogdb.FriendEdge{FriendInfo: g.vertices[e.To].Clone(), Edge: e.Props.Clone()})
			case e.To:
				row.Friends = append(row.Friends, backlogdb.FriendEdge{FriendInfo: g.vertices[e.From].Clone(), Edge: e.Props.Clone()})
			}
		}
		row.Backlog = g.backlogOf(id)
		for _, e := range g.edgesOf(backlogdb.RecommendationTo) {
			if e.To != id {
				continue
			}
			row.Recommendations = append(row.Recommendations, backlogdb.ReceivedRecommendationRow{
				Rec:  g.vertices[e.From].Clone(),
				Edge: e.Props.Clone(),
				Show: g.firstOutbound(e.From, backlogdb.RecommendationFor),
				User: g.firstOutbound(e.From, backlogdb.RecommendationFrom),
			})
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// FindAuthByUserName implements the store traversal of the same name.
func (g *Graph) FindAuthByUserName(_ context.Context, name string) ([]backlogdb.AuthRow, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if err := g.enter("FindAuthByUserName", ""); err != nil {
		return nil, err
	}
	rows := []backlogdb.AuthRow{}
	for _, u := range g.usersNamed(name) {
		row := backlogdb.AuthRow{User: name, UserID: u.RecordID(), Auth: []backlogdb.Document{}}
		for _, e := range g.edgesOf(backlogdb.UserAuth) {
			if e.From == u.RecordID() {
				row.Auth = append(row.Auth, g.vertices[e.To].Clone())
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// FindBacklogByUserName implements the store traversal of the same name.
func (g *Graph) FindBacklogByUserName(_ context.Context, name string) ([]backlogdb.BacklogRow, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if err := g.enter("FindBacklogByUserName", ""); err != nil {
		return nil, err
	}
	rows := []backlogdb.BacklogRow{}
	for _, u := range g.usersNamed(name) {
		rows = append(rows, backlogdb.BacklogRow{Name: name, UserID: u.RecordID(), Backlog: g.backlogOf(u.RecordID())})
	}
	return rows, nil
}

// FindRecommendationsFromUser implements the store traversal of the same name.
func (g *Graph) FindRecommendationsFromUser(_ context.Context, name string) ([]backlogdb.SentRecommendationsRow, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if err := g.enter("FindRecommendationsFromUser", ""); err != nil {
		return nil, err
	}
	rows := []backlogdb.SentRecommendationsRow{}
	for _, u := range g.usersNamed(name) {
		row := backlogdb.SentRecommendationsRow{Name: name, UserID: u.RecordID()}
		for _, e := range g.edgesOf(backlogdb.RecommendationFrom) {
			if e.To != u.RecordID() {
				continue
			}
			row.Recs = append(row.Recs, backlogdb.SentRecommendationRow{
				Rec:  g.vertices[e.From].Clone(),
				Show: g.firstOutbound(e.From, backlogdb.RecommendationFor),
				To:   g.firstOutbound(e.From, backlogdb.RecommendationTo),
			})
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func (g *Graph) usersNamed(name string) []backlogdb.Document {
	return g.matching(backlogdb.Users, backlogdb.Document{"name": name})
}

func (g *Graph) backlogOf(userID string) []backlogdb.ShowEdge {
	var out []backlogdb.ShowEdge
	for _, e := range g.edgesOf(backlogdb.HasInBacklog) {
		if e.From == userID {
			out = append(out, backlogdb.ShowEdge{Show: g.vertices[e.To].Clone(), Edge: e.Props.Clone()})
		}
	}
	return out
}

func (g *Graph) firstOutbound(from string, c backlogdb.Collection) backlogdb.Document {
	for _, e := range g.edgesOf(c) {
		if e.From == from {
			return g.vertices[e.To].Clone()
		}
	}
	return nil
}

func (g *Graph) edgesOf(c backlogdb.Collection) []*Edge {
	var out []*Edge
	for _, e := range g.edges {
		if e.Collection.Name == c.Name {
			out = append(out, e)
		}
	}
	return out
}

// matching returns the live vertices of c whose properties include filter.
func (g *Graph) matching(c backlogdb.Collection, filter backlogdb.Document) []backlogdb.Document {
	var out []backlogdb.Document
	for _, id := range g.order {
		if !inCollection(id, c) {
			continue
		}
		v := g.vertices[id]
		if matches(v, filter) {
			out = append(out, v)
		}
	}
	return out
}

func matches(v, filter backlogdb.Document) bool {
	for k, want := range filter {
		got, ok := v[k]
		if !ok || !sameValue(got, want) {
			return false
		}
	}
	return true
}

// sameValue compares like Cypher equality: numbers compare by value whatever
// their Go type.
func sameValue(a, b any) bool {
	fa, okA := number(a)
	fb, okB := number(b)
	if okA && okB {
		return fa == fb
	}
	return reflect.DeepEqual(a, b)
}

func number(v any) (float64, bool) {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(rv.Int()), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return float64(rv.Uint()), true
	case reflect.Float32, reflect.Float64:
		return rv.Float(), true
	default:
		return 0, false
	}
}

func inCollection(id string, c backlogdb.Collection) bool {
	got, err := backlogdb.CollectionOf(id)
	return err == nil && got.Name == c.Name
}

func withIdentity(c backlogdb.Collection, data backlogdb.Document) backlogdb.Document {
	out := make(backlogdb.Document, len(data)+2)
	for k, v := range data {
		if !backlogdb.IsStorageField(k) {
			out[k] = v
		}
	}
	key := uuid.NewString()
	out[backlogdb.KeyField] = key
	out[backlogdb.IDField] = c.Name + "/" + key
	return out
}

// ErrInjected is a ready-made error for FailOn.
var ErrInjected = errors.New("graphtest: injected failure")
