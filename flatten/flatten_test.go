package flatten

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	backlogdb "github.com/saulfrancisco-ruizacevedo/go-backlogdb"
)

func showsResult() []backlogdb.ShowEdge {
	return []backlogdb.ShowEdge{
		{
			Show: Document{
				"_key":       "21043",
				"_id":        "shows/21043",
				"_rev":       "_W2huzfS--_",
				"name":       "Nichijou",
				"malAnimeId": int64(10165),
				"malUrl":     "https://myanimelist.net/anime/10165/Nichijou",
			},
			Edge: Document{
				"_key":          "21163",
				"_id":           "hasInBacklog/21163",
				"personalScore": int64(10),
			},
		},
		{
			Show: Document{
				"_key":       "21047",
				"_id":        "shows/21047",
				"name":       "Punch Line",
				"malAnimeId": int64(28617),
				"malUrl":     "",
			},
			Edge: Document{
				"_key": "21166",
				"_id":  "hasInBacklog/21166",
			},
		},
	}
}

func recommendationsResult() []backlogdb.ReceivedRecommendationRow {
	return []backlogdb.ReceivedRecommendationRow{
		{
			Rec:  Document{"_key": "21077", "_id": "recommendations/21077", "score": int64(10), "comment": "It's really sugoi Oniichan"},
			Edge: Document{"_id": "recommendationTo/21143"},
			Show: Document{
				"_id":        "shows/21043",
				"name":       "Nichijou",
				"malAnimeId": int64(10165),
				"malUrl":     "https://myanimelist.net/anime/10165/Nichijou",
			},
			User: Document{"_key": "21063", "_id": "users/21063", "name": "Chrolo"},
		},
		{
			Rec:  Document{"_key": "21080", "_id": "recommendations/21080", "score": int64(8), "comment": "I want someone else to think it's good"},
			Edge: Document{"_id": "recommendationTo/21146"},
			Show: Document{"_id": "shows/21053", "name": "Darling in the FranXX", "malAnimeId": int64(35849)},
			User: Document{"_key": "21067", "_id": "users/21067", "name": "Begna112"},
		},
	}
}

func TestBacklog(t *testing.T) {
	expected := []Document{
		{
			"animeName":       "Nichijou",
			"malAnimeId":      int64(10165),
			"malUrl":          "https://myanimelist.net/anime/10165/Nichijou",
			"personalScore":   int64(10),
			"recommendations": []Document{},
		},
		{
			"animeName":       "Punch Line",
			"malAnimeId":      int64(28617),
			"malUrl":          "",
			"recommendations": []Document{},
		},
	}

	assert.ElementsMatch(t, expected, Backlog(showsResult()))
}

func TestBacklog_FalsyScoreIsOmitted(t *testing.T) {
	tests := []struct {
		name  string
		score any
	}{
		{name: "zero", score: int64(0)},
		{name: "zero float", score: 0.0},
		{name: "empty string", score: ""},
		{name: "nil", score: nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rows := []backlogdb.ShowEdge{{
				Show: Document{"name": "Nichijou"},
				Edge: Document{"personalScore": tt.score},
			}}
			out := Backlog(rows)
			require.Len(t, out, 1)
			assert.NotContains(t, out[0], "personalScore")
		})
	}
}

func TestBacklog_CopiesOrder(t *testing.T) {
	rows := []backlogdb.ShowEdge{{
		Show: Document{"name": "Nichijou"},
		Edge: Document{"order": int64(2)},
	}}
	assert.Equal(t, int64(2), Backlog(rows)[0]["order"])
}

func TestBacklogAndRecommendations(t *testing.T) {
	expected := []Document{
		{
			"animeName":       "Punch Line",
			"malAnimeId":      int64(28617),
			"malUrl":          "",
			"recommendations": []Document{},
		},
		{
			"animeName":     "Nichijou",
			"malAnimeId":    int64(10165),
			"malUrl":        "https://myanimelist.net/anime/10165/Nichijou",
			"personalScore": int64(10),
			"recommendations": []Document{
				{"name": "Chrolo", "score": int64(10), "comment": "It's really sugoi Oniichan"},
			},
		},
		{
			"animeName":  "Darling in the FranXX",
			"malAnimeId": int64(35849),
			"recommendations": []Document{
				{"name": "Begna112", "score": int64(8), "comment": "I want someone else to think it's good"},
			},
		},
	}

	actual := BacklogAndRecommendations(showsResult(), recommendationsResult())
	assert.ElementsMatch(t, expected, actual)
}

func TestBacklogAndRecommendations_Invariants(t *testing.T) {
	tests := []struct {
		name  string
		shows []backlogdb.ShowEdge
		recs  []backlogdb.ReceivedRecommendationRow
	}{
		{name: "both", shows: showsResult(), recs: recommendationsResult()},
		{name: "no recommendations", shows: showsResult()},
		{name: "only recommendations", recs: recommendationsResult()},
		{name: "nothing"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for _, entry := range BacklogAndRecommendations(tt.shows, tt.recs) {
				assert.Contains(t, entry, "recommendations")
				assertNoStorageKeys(t, entry)
			}
		})
	}
}

func TestBacklogAndRecommendations_MatchesAcrossNumericTypes(t *testing.T) {
	shows := []backlogdb.ShowEdge{{Show: Document{"name": "Nichijou", "malAnimeId": int64(10165)}, Edge: Document{}}}
	recs := []backlogdb.ReceivedRecommendationRow{{
		Rec:  Document{"score": 9.0},
		Show: Document{"name": "Nichijou", "malAnimeId": 10165.0},
		User: Document{"name": "Goshi"},
	}}

	out := BacklogAndRecommendations(shows, recs)
	require.Len(t, out, 1)
	assert.Len(t, out[0]["recommendations"], 1)
}

func TestBacklogAndRecommendations_ShowsWithoutMALIDMatchByName(t *testing.T) {
	shows := []backlogdb.ShowEdge{
		{Show: Document{"name": "Homebrew A"}, Edge: Document{}},
		{Show: Document{"name": "Homebrew C"}, Edge: Document{}},
	}
	recs := []backlogdb.ReceivedRecommendationRow{
		{Rec: Document{"score": int64(9)}, Show: Document{"name": "Homebrew B"}, User: Document{"name": "Begna112"}},
		{Rec: Document{"score": int64(6)}, Show: Document{"name": "Homebrew C"}, User: Document{"name": "Goshi"}},
	}

	out := BacklogAndRecommendations(shows, recs)
	byName := map[string][]Document{}
	for _, entry := range out {
		byName[entry["animeName"].(string)] = entry["recommendations"].([]Document)
	}
	assert.Equal(t, map[string][]Document{
		"Homebrew A": {},
		"Homebrew B": {{"name": "Begna112", "score": int64(9)}},
		"Homebrew C": {{"name": "Goshi", "score": int64(6)}},
	}, byName)
}

func TestBacklogAndRecommendations_RecommendationWinsOnCollision(t *testing.T) {
	recs := []backlogdb.ReceivedRecommendationRow{{
		Rec:  Document{"score": int64(7), "name": "from rec"},
		Show: Document{"name": "Nichijou", "malAnimeId": int64(1)},
		User: Document{"name": "Goshi"},
	}}

	out := BacklogAndRecommendations(nil, recs)
	require.Len(t, out, 1)
	list := out[0]["recommendations"].([]Document)
	require.Len(t, list, 1)
	assert.Equal(t, "from rec", list[0]["name"])
}

func TestBacklogAndRecommendations_DoesNotMutateInput(t *testing.T) {
	shows := showsResult()
	recs := recommendationsResult()
	BacklogAndRecommendations(shows, recs)

	assert.Equal(t, showsResult(), shows)
	assert.Equal(t, recommendationsResult(), recs)
}

func TestStripStorageFields(t *testing.T) {
	t.Run("top level", func(t *testing.T) {
		input := map[string]any{
			"test": []any{"array", 3, map[string]any{"bob": 4}},
			"_id":  3,
			"data": "this is a string",
		}
		expected := map[string]any{
			"test": []any{"array", 3, map[string]any{"bob": 4}},
			"data": "this is a string",
		}
		assert.Equal(t, expected, StripStorageFields(input))
	})

	t.Run("deep objects", func(t *testing.T) {
		input := map[string]any{
			"test":  []any{"array", 3, map[string]any{"bob": 4}, map[string]any{"_remove": "test"}},
			"_id":   3,
			"data":  "this is a string",
			"extra": map[string]any{"_class": "remove", "pop": 3},
		}
		expected := map[string]any{
			"test":  []any{"array", 3, map[string]any{"bob": 4}, map[string]any{}},
			"data":  "this is a string",
			"extra": map[string]any{"pop": 3},
		}
		assert.Equal(t, expected, StripStorageFields(input))
	})

	t.Run("deep arrays", func(t *testing.T) {
		input := []any{
			3,
			map[string]any{"bob": "test", "show": "Nichijou", "_id": 321},
			"_test",
			[]any{
				map[string]any{"_id": 987},
				map[string]any{"_key": 987, "data": "bob"},
			},
		}
		expected := []any{
			3,
			map[string]any{"bob": "test", "show": "Nichijou"},
			"_test",
			[]any{map[string]any{}, map[string]any{"data": "bob"}},
		}
		assert.Equal(t, expected, StripStorageFields(input))
	})

	t.Run("documents keep their type", func(t *testing.T) {
		input := []Document{{"_id": "users/1", "name": "Chrolo", "backlog": []Document{{"_key": "1", "name": "Nichijou"}}}}
		expected := []Document{{"name": "Chrolo", "backlog": []Document{{"name": "Nichijou"}}}}
		assert.Equal(t, expected, StripStorageFields(input))
	})

	t.Run("primitives pass through", func(t *testing.T) {
		for _, v := range []any{3, "string", true} {
			assert.Equal(t, v, StripStorageFields(v))
		}
	})

	t.Run("idempotent", func(t *testing.T) {
		once := StripStorageFields(map[string]any{"a": []any{map[string]any{"_b": 1, "c": 2}}, "_d": 4})
		assert.Equal(t, once, StripStorageFields(once))
	})
}

func TestShowVertexToDomainShow(t *testing.T) {
	in := Document{"_id": "shows/1", "name": "Nichijou", "malAnimeId": int64(10165), "altNames": []any{"My Ordinary Life"}}
	out := ShowVertexToDomainShow(in)

	assert.Equal(t, Document{"animeName": "Nichijou", "malAnimeId": int64(10165), "altNames": []any{"My Ordinary Life"}}, out)
	assert.Equal(t, "Nichijou", in["name"])
}

func TestFriends(t *testing.T) {
	rows := []backlogdb.FriendEdge{
		{FriendInfo: Document{"_id": "users/2", "name": "Begna112"}, Edge: Document{"_id": "friendsWith/1"}},
		{FriendInfo: Document{"name": "Goshi"}, Edge: Document{"malImport": true}},
	}

	assert.Equal(t, []Document{
		{"name": "Begna112"},
		{"name": "Goshi", "malImport": true},
	}, Friends(rows))
}

func TestUsersRecommendations(t *testing.T) {
	rows := []backlogdb.SentRecommendationRow{
		{
			Rec:  Document{"_id": "recommendations/1", "score": int64(10), "comment": "It's really sugoi Oniichan"},
			Show: Document{"name": "Nichijou", "malAnimeId": int64(10165)},
			To:   Document{"name": "Begna112"},
		},
		{
			Rec:  Document{"score": int64(10), "comment": "It's really sugoi Oniichan"},
			Show: Document{"name": "Nichijou", "malAnimeId": int64(10165)},
			To:   Document{"name": "Goshi"},
		},
	}

	assert.Equal(t, []Document{
		{"animeName": "Nichijou", "malAnimeId": int64(10165), "score": int64(10), "comment": "It's really sugoi Oniichan", "to": "Begna112"},
		{"animeName": "Nichijou", "malAnimeId": int64(10165), "score": int64(10), "comment": "It's really sugoi Oniichan", "to": "Goshi"},
	}, UsersRecommendations(rows))
}

func TestDecode(t *testing.T) {
	type show struct {
		AnimeName  string `json:"animeName"`
		MalAnimeID int64  `json:"malAnimeId"`
	}
	got, err := Decode[[]show](Backlog(showsResult()))
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, show{AnimeName: "Nichijou", MalAnimeID: 10165}, got[0])
}

func assertNoStorageKeys(t *testing.T, v any) {
	t.Helper()
	switch x := v.(type) {
	case Document:
		for k, item := range x {
			assert.False(t, strings.HasPrefix(k, "_"), "storage key %q leaked", k)
			assertNoStorageKeys(t, item)
		}
	case []Document:
		for _, item := range x {
			assertNoStorageKeys(t, item)
		}
	case []any:
		for _, item := range x {
			assertNoStorageKeys(t, item)
		}
	}
}
