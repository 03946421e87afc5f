package tmdb

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus/hooks/test"

	"streampresence/pkg/media"
)

type fakeTMDB struct {
	mu       sync.Mutex
	requests []string
	status   int
	search   map[string]string
	seasons  map[string]string
}

func (f *fakeTMDB) handler(t *testing.T) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("api_key") != "key" {
			t.Errorf("missing api_key in %q", r.URL.RawQuery)
		}
		f.mu.Lock()
		defer f.mu.Unlock()
		f.requests = append(f.requests, r.URL.Path+"?"+r.URL.Query().Get("query"))

		if f.status != 0 {
			w.WriteHeader(f.status)
			return
		}
		w.Header().Set("Content-Type", "application/json")

		if strings.HasPrefix(r.URL.Path, "/tv/") && strings.Contains(r.URL.Path, "/season/") {
			body, ok := f.seasons[r.URL.Path]
			if !ok {
				w.WriteHeader(http.StatusNotFound)
				return
			}
			_, _ = w.Write([]byte(body))
			return
		}

		body, ok := f.search[r.URL.Path+"?"+r.URL.Query().Get("query")]
		if !ok {
			body = `{"page":1,"results":[]}`
		}
		_, _ = w.Write([]byte(body))
	})
}

func newFinder(t *testing.T, f *fakeTMDB) *Finder {
	t.Helper()
	server := httptest.NewServer(f.handler(t))
	t.Cleanup(server.Close)

	client, err := New("key", WithBaseURL(server.URL), WithHTTPClient(server.Client()))
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	log, _ := test.NewNullLogger()
	finder := NewFinder(client, log, time.Hour)
	finder.now = func() time.Time { return time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC) }
	return finder
}

func TestNewRequiresAPIKey(t *testing.T) {
	if _, err := New(" "); err == nil {
		t.Fatal("expected error when api key missing")
	}
}

func TestSearchImageSeasonPoster(t *testing.T) {
	f := &fakeTMDB{
		search: map[string]string{
			"/search/tv?Stranger Things": `{"results":[{"id":66732,"name":"Stranger Things","poster_path":"/series.jpg"}]}`,
		},
		seasons: map[string]string{
			"/tv/66732/season/2": `{"id":1,"season_number":2,"poster_path":"/season2.jpg"}`,
			"/tv/66732/season/9": `{"id":2,"season_number":9,"poster_path":""}`,
		},
	}
	finder := newFinder(t, f)

	got, err := finder.SearchImage(context.Background(), "Stranger Things", media.TypeShow, 2)
	if err != nil || got != "/season2.jpg" {
		t.Fatalf("SearchImage() = %q, %v; want /season2.jpg", got, err)
	}

	got, err = finder.SearchImage(context.Background(), "Stranger Things", media.TypeShow, 9)
	if err != nil || got != "/series.jpg" {
		t.Fatalf("SearchImage() without season poster = %q, %v; want /series.jpg", got, err)
	}
}

func TestSearchImageScoresResults(t *testing.T) {
	f := &fakeTMDB{
		search: map[string]string{
			"/search/movie?Encanto": `{"results":[
				{"id":1,"title":"Encanto at the Hollywood Bowl","popularity":20,"release_date":"2022-01-01","poster_path":"/bowl.jpg"},
				{"id":2,"title":"Encanto","popularity":100,"release_date":"2021-11-24","poster_path":"/encanto.jpg"},
				{"id":3,"title":"Encanto","popularity":900,"release_date":"2021-11-24"}
			]}`,
		},
	}
	finder := newFinder(t, f)

	got, err := finder.SearchImage(context.Background(), "Encanto", media.TypeMovie, 0)
	if err != nil || got != "/encanto.jpg" {
		t.Fatalf("SearchImage() = %q, %v; want /encanto.jpg", got, err)
	}
	if f.requests[0] != "/search/movie?Encanto" {
		t.Errorf("first request = %q, want movie search", f.requests[0])
	}
}

func TestSearchImageFallbacks(t *testing.T) {
	f := &fakeTMDB{
		search: map[string]string{
			"/search/movie?Glass Onion": `{"results":[{"id":5,"title":"Glass Onion: A Knives Out Mystery","poster_path":"/onion.jpg"}]}`,
		},
	}
	finder := newFinder(t, f)

	got, err := finder.SearchImage(context.Background(), "Glass Onion: A Knives Out Mystery (Extended)", media.TypeMovie, 0)
	if err != nil || got != "/onion.jpg" {
		t.Fatalf("SearchImage() = %q, %v; want /onion.jpg via two-word fallback", got, err)
	}
}

func TestSearchImageCachesMisses(t *testing.T) {
	f := &fakeTMDB{}
	finder := newFinder(t, f)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		got, err := finder.SearchImage(ctx, "Unknown Thing", media.TypeMovie, 0)
		if err != nil || got != "" {
			t.Fatalf("SearchImage() = %q, %v; want miss", got, err)
		}
	}
	if len(f.requests) != 2 {
		t.Errorf("requests = %v, want one movie and one tv search", f.requests)
	}
}

func TestSearchImageHTTPErrorNotCached(t *testing.T) {
	f := &fakeTMDB{status: http.StatusInternalServerError}
	finder := newFinder(t, f)

	if _, err := finder.SearchImage(context.Background(), "Dark", media.TypeMovie, 0); err == nil {
		t.Fatal("expected error when TMDB returns non-200")
	}
	f.mu.Lock()
	f.status = 0
	f.search = map[string]string{"/search/movie?Dark": `{"results":[{"id":9,"title":"Dark","poster_path":"/dark.jpg"}]}`}
	f.mu.Unlock()
	got, err := finder.SearchImage(context.Background(), "Dark", media.TypeMovie, 0)
	if err != nil || got != "/dark.jpg" {
		t.Errorf("SearchImage() after recovery = %q, %v", got, err)
	}
}

func TestSimplify(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"Grey's Anatomy", "Grey's Anatomy"},
		{"Glass Onion: A Knives Out Mystery", "Glass Onion A Knives Out Mystery"},
		{"Ocean's 11 Heist", "Ocean's Heist"},
	}
	for _, tt := range tests {
		if got := Simplify(tt.in); got != tt.want {
			t.Errorf("Simplify(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
