// Package flatten turns the raw vertex/edge rows returned by the graph
// traversals into the flat, storage-agnostic documents the services return.
//
// Every function is pure: inputs are never mutated and results never share
// maps with them. Storage-private fields (keys starting with "_") never
// survive a flatten.
package flatten

import (
	"fmt"
	"math"
	"reflect"

	json "github.com/goccy/go-json"

	backlogdb "github.com/saulfrancisco-ruizacevedo/go-backlogdb"
)

// Document is the flat record shape produced by this package.
type Document = backlogdb.Document

// StripFields returns a deep copy of v without the map keys for which drop
// returns true. Maps and slices are walked recursively; any other value is
// returned unchanged. A map left without keys stays an empty map.
func StripFields(v any, drop func(key string) bool) any {
	switch t := v.(type) {
	case Document:
		return stripMap(t, drop)
	case map[string]any:
		return map[string]any(stripMap(t, drop))
	case []Document:
		out := make([]Document, len(t))
		for i, item := range t {
			out[i] = stripMap(item, drop)
		}
		return out
	case []map[string]any:
		out := make([]map[string]any, len(t))
		for i, item := range t {
			out[i] = map[string]any(stripMap(item, drop))
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, item := range t {
			out[i] = StripFields(item, drop)
		}
		return out
	default:
		return v
	}
}

func stripMap(m map[string]any, drop func(key string) bool) Document {
	if m == nil {
		return nil
	}
	out := make(Document, len(m))
	for k, v := range m {
		if drop(k) {
			continue
		}
		out[k] = StripFields(v, drop)
	}
	return out
}

// StripStorageFields removes every storage-private key from v, at any depth.
// Applying it twice gives the same result as applying it once.
func StripStorageFields(v any) any {
	return StripFields(v, backlogdb.IsStorageField)
}

func stripDocument(d Document) Document {
	return stripMap(d, backlogdb.IsStorageField)
}

// ShowVertexToDomainShow maps a show vertex to the domain show shape: the
// storage field `name` becomes `animeName`, storage-private fields are
// dropped and everything else is kept.
func ShowVertexToDomainShow(vertex Document) Document {
	out := stripDocument(vertex)
	if out == nil {
		out = Document{}
	}
	if name, ok := out["name"]; ok {
		out["animeName"] = name
		delete(out, "name")
	}
	return out
}

// Backlog flattens backlog rows into domain shows. Each entry gets the edge's
// personalScore only when it is truthy, the edge's order when present, and an
// empty recommendations list.
func Backlog(rows []backlogdb.ShowEdge) []Document {
	out := make([]Document, 0, len(rows))
	for _, row := range rows {
		entry := ShowVertexToDomainShow(row.Show)
		if score, ok := row.Edge["personalScore"]; ok && truthy(score) {
			entry["personalScore"] = score
		}
		if order, ok := row.Edge["order"]; ok && order != nil {
			entry["order"] = order
		}
		entry["recommendations"] = []Document{}
		out = append(out, entry)
	}
	return out
}

// BacklogAndRecommendations merges a user's backlog with the recommendations
// the user received.
//
// Shows are matched by malAnimeId, or by name when they have none. A
// recommended show that is not in the
// backlog is appended as an entry of its own, without personalScore. Each
// recommendation is attached to its show as the recommender's fields merged
// with the recommendation's fields; on a key collision the recommendation
// wins. Every entry has a recommendations list, and the whole result is free
// of storage-private fields.
func BacklogAndRecommendations(shows []backlogdb.ShowEdge, recs []backlogdb.ReceivedRecommendationRow) []Document {
	acc := Backlog(shows)
	index := make(map[string]int, len(acc))
	for i, entry := range acc {
		key := showKey(entry["malAnimeId"], entry["animeName"])
		if _, seen := index[key]; !seen {
			index[key] = i
		}
	}

	for _, rec := range recs {
		key := showKey(rec.Show["malAnimeId"], rec.Show["name"])
		i, ok := index[key]
		if !ok {
			acc = append(acc, ShowVertexToDomainShow(rec.Show))
			i = len(acc) - 1
			index[key] = i
		}

		list, _ := acc[i]["recommendations"].([]Document)
		acc[i]["recommendations"] = append(list, mergeRecommendation(rec.User, rec.Rec))
	}

	for i := range acc {
		if _, ok := acc[i]["recommendations"]; !ok {
			acc[i]["recommendations"] = []Document{}
		}
	}
	return StripStorageFields(acc).([]Document)
}

// mergeRecommendation shallow-merges the recommender and the recommendation,
// in that order.
func mergeRecommendation(user, rec Document) Document {
	out := make(Document, len(user)+len(rec))
	for k, v := range user {
		out[k] = v
	}
	for k, v := range rec {
		out[k] = v
	}
	return out
}

// Friends flattens friend rows into {name, malImport}. Absent values are
// omitted rather than set to nil.
func Friends(rows []backlogdb.FriendEdge) []Document {
	out := make([]Document, 0, len(rows))
	for _, row := range rows {
		entry := Document{}
		setIfPresent(entry, "name", row.FriendInfo["name"])
		setIfPresent(entry, "malImport", row.Edge["malImport"])
		out = append(out, entry)
	}
	return out
}

// UsersRecommendations projects each sent recommendation row onto
// {animeName, malAnimeId, score, comment, to}. No grouping is done.
func UsersRecommendations(rows []backlogdb.SentRecommendationRow) []Document {
	out := make([]Document, 0, len(rows))
	for _, row := range rows {
		entry := Document{}
		setIfPresent(entry, "animeName", row.Show["name"])
		setIfPresent(entry, "malAnimeId", row.Show["malAnimeId"])
		setIfPresent(entry, "score", row.Rec["score"])
		setIfPresent(entry, "comment", row.Rec["comment"])
		setIfPresent(entry, "to", row.To["name"])
		out = append(out, entry)
	}
	return out
}

// Decode converts flattened documents into a typed value through a JSON
// round trip.
func Decode[T any](v any) (T, error) {
	var out T
	raw, err := json.Marshal(v)
	if err != nil {
		return out, fmt.Errorf("encode flattened data: %w", err)
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return out, fmt.Errorf("decode flattened data into %T: %w", out, err)
	}
	return out, nil
}

func setIfPresent(d Document, key string, v any) {
	if v != nil {
		d[key] = v
	}
}

// truthy reports whether v would count as set: non-zero numbers, non-empty
// strings and true.
func truthy(v any) bool {
	if v == nil {
		return false
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Bool:
		return rv.Bool()
	case reflect.String:
		return rv.Len() > 0
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int() != 0
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return rv.Uint() != 0
	case reflect.Float32, reflect.Float64:
		f := rv.Float()
		return f != 0 && !math.IsNaN(f)
	default:
		return true
	}
}

// showKey normalises a malAnimeId so that the same id read as int64, int or
// float64 lands on the same key. A show without an id is keyed by its name.
func showKey(malID, name any) string {
	if malID == nil {
		return fmt.Sprintf("name:%v", name)
	}
	v := malID
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return fmt.Sprintf("n:%d", rv.Int())
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return fmt.Sprintf("n:%d", rv.Uint())
	case reflect.Float32, reflect.Float64:
		f := rv.Float()
		if f == float64(int64(f)) {
			return fmt.Sprintf("n:%d", int64(f))
		}
		return fmt.Sprintf("f:%g", f)
	default:
		return fmt.Sprintf("%T:%v", v, v)
	}
}
