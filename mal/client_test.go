package mal

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/goccy/go-json"
	gobreaker "github.com/sony/gobreaker/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
)

func newTestClient(srv *httptest.Server, opts ...Option) *Client {
	opts = append([]Option{
		WithBaseURL(srv.URL),
		WithHTTPClient(srv.Client()),
		WithRateLimit(rate.Inf, 1),
	}, opts...)
	return NewClient(opts...)
}

func TestScrapeUserAnimeList_PagesUntilEmpty(t *testing.T) {
	pages := map[string]string{
		"0": `[{"anime_id":10165,"anime_title":"Nichijou","anime_url":"/anime/10165/Nichijou","status":6,"score":0},
		       {"anime_id":28617,"anime_title":"Punch Line","anime_url":"/anime/28617/Punch_Line","status":2,"score":8}]`,
		"2": `[{"anime_id":41084,"anime_title":86,"anime_url":"/anime/41084/86","status":6,"score":0}]`,
		"3": `[]`,
	}
	var (
		mu      sync.Mutex
		offsets []string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/animelist/Chrolo/load.json", r.URL.Path)
		offset := r.URL.Query().Get("offset")
		mu.Lock()
		offsets = append(offsets, offset)
		mu.Unlock()
		fmt.Fprint(w, pages[offset])
	}))
	defer srv.Close()

	list, err := newTestClient(srv).ScrapeUserAnimeList(context.Background(), "Chrolo")
	require.NoError(t, err)
	mu.Lock()
	assert.Equal(t, []string{"0", "2", "3"}, offsets)
	mu.Unlock()
	require.Len(t, list, 3)
	assert.Equal(t, Entry{
		AnimeID: 10165,
		Title:   "Nichijou",
		URL:     "/anime/10165/Nichijou",
		Status:  PlanToWatch,
		ShowURL: srv.URL + "/anime/10165/Nichijou",
	}, list[0])
	assert.Equal(t, 8, list[1].Score)
	assert.Equal(t, Title("86"), list[2].Title)
	assert.Equal(t, srv.URL+"/anime/41084/86", list[2].ShowURL)
}

func TestScrapeUserAnimeList_StopsAtPageLimit(t *testing.T) {
	var requests atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := requests.Add(1)
		fmt.Fprintf(w, `[{"anime_id":%d,"anime_title":"Show %d","status":6}]`, n, n)
	}))
	defer srv.Close()

	list, err := newTestClient(srv).ScrapeUserAnimeList(context.Background(), "Chrolo")
	require.NoError(t, err)
	assert.Len(t, list, defaultMaxPages)
	assert.Equal(t, int32(defaultMaxPages), requests.Load())
}

func TestScrapeUserAnimeList_EscapesUserName(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/animelist/a%2Fb/load.json", r.URL.EscapedPath())
		fmt.Fprint(w, `[]`)
	}))
	defer srv.Close()

	list, err := newTestClient(srv).ScrapeUserAnimeList(context.Background(), "a/b")
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestScrapeUserAnimeList_ErrorsPropagate(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
		check   func(t *testing.T, err error)
	}{
		{
			name: "server error",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusBadGateway)
			},
			check: func(t *testing.T, err error) {
				var se *StatusError
				require.True(t, errors.As(err, &se))
				assert.Equal(t, http.StatusBadGateway, se.StatusCode)
			},
		},
		{
			name: "malformed body",
			handler: func(w http.ResponseWriter, r *http.Request) {
				fmt.Fprint(w, `{"not":"a list"}`)
			},
			check: func(t *testing.T, err error) {
				assert.Contains(t, err.Error(), "failed to decode")
			},
		},
		{
			name: "second page fails",
			handler: func(w http.ResponseWriter, r *http.Request) {
				if r.URL.Query().Get("offset") != "0" {
					w.WriteHeader(http.StatusInternalServerError)
					return
				}
				fmt.Fprint(w, `[{"anime_id":1,"anime_title":"A","status":6}]`)
			},
			check: func(t *testing.T, err error) {
				var se *StatusError
				require.True(t, errors.As(err, &se))
				assert.Equal(t, http.StatusInternalServerError, se.StatusCode)
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(tt.handler)
			defer srv.Close()

			list, err := newTestClient(srv).ScrapeUserAnimeList(context.Background(), "Chrolo")
			require.Error(t, err)
			assert.Nil(t, list)
			tt.check(t, err)
		})
	}
}

func TestCircuitBreakerOpensOnServerErrors(t *testing.T) {
	var requests atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := newTestClient(srv, WithBreaker(2, time.Minute))
	for i := 0; i < 2; i++ {
		_, err := c.ScrapeUserAnimeList(context.Background(), "Chrolo")
		require.Error(t, err)
	}
	assert.Equal(t, gobreaker.StateOpen.String(), c.BreakerState())

	_, err := c.ScrapeUserAnimeList(context.Background(), "Chrolo")
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)
	assert.Equal(t, int32(2), requests.Load())
}

func TestCircuitBreakerIgnoresMissingLists(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	c := newTestClient(srv, WithBreaker(1, time.Minute))
	for i := 0; i < 3; i++ {
		_, err := c.ScrapeUserAnimeList(context.Background(), "Nobody")
		var se *StatusError
		require.True(t, errors.As(err, &se))
		assert.Equal(t, http.StatusNotFound, se.StatusCode)
	}
	assert.Equal(t, gobreaker.StateClosed.String(), c.BreakerState())
}

func TestScrapeUserAnimeList_RespectsContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `[]`)
	}))
	defer srv.Close()

	c := newTestClient(srv, WithRateLimit(rate.Every(time.Hour), 1))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.ScrapeUserAnimeList(ctx, "Chrolo")
	assert.Error(t, err)
}

func TestTitleUnmarshal(t *testing.T) {
	tests := []struct {
		in      string
		want    Title
		wantErr bool
	}{
		{in: `"Nichijou"`, want: "Nichijou"},
		{in: `86`, want: "86"},
		{in: `"86"`, want: "86"},
		{in: `true`, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			var got Title
			err := json.Unmarshal([]byte(tt.in), &got)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestScrapeUserAnimeList_ShowURLFollowsBaseURL(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("offset") != "0" {
			fmt.Fprint(w, `[]`)
			return
		}
		fmt.Fprint(w, `[{"anime_id":1,"anime_title":"A","anime_url":"/anime/1/A","status":6},
		               {"anime_id":2,"anime_title":"B","status":6}]`)
	}))
	defer srv.Close()

	list, err := newTestClient(srv).ScrapeUserAnimeList(context.Background(), "Chrolo")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, srv.URL+"/anime/1/A", list[0].ShowURL)
	assert.NotContains(t, list[0].ShowURL, DefaultBaseURL)
	assert.Empty(t, list[1].ShowURL)
}
