package github

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func newAPIServer(t *testing.T) (*httptest.Server, *http.Request) {
	t.Helper()
	var last http.Request
	mux := http.NewServeMux()
	mux.HandleFunc("/users/octocat", func(w http.ResponseWriter, r *http.Request) {
		last = *r
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"login":        "octocat",
			"name":         "The Octocat",
			"avatar_url":   "https://avatars.githubusercontent.com/u/583231",
			"html_url":     "https://github.com/octocat",
			"public_repos": 8,
			"followers":    100,
			"following":    9,
		})
	})
	mux.HandleFunc("/users/octocat/repos", func(w http.ResponseWriter, r *http.Request) {
		last = *r
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode([]map[string]any{
			{"name": "hello-world", "full_name": "octocat/hello-world", "stargazers_count": 5, "forks_count": 2, "language": "Go"},
			{"name": "Spoon-Knife", "full_name": "octocat/Spoon-Knife", "stargazers_count": 12, "forks_count": 40},
		})
	})
	mux.HandleFunc("/users/ghost", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"message":"Not Found"}`))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv, &last
}

func TestValidUsername(t *testing.T) {
	valid := []string{"octocat", "a", "my-name-1", "A1b2"}
	invalid := []string{
		"",
		"-leading",
		"trailing-",
		"double--hyphen",
		"with space",
		"under_score",
		"a234567890123456789012345678901234567890",
	}
	for _, name := range valid {
		if !ValidUsername(name) {
			t.Errorf("ValidUsername(%q) = false, want true", name)
		}
	}
	for _, name := range invalid {
		if ValidUsername(name) {
			t.Errorf("ValidUsername(%q) = true, want false", name)
		}
	}
}

func TestClient_Profile(t *testing.T) {
	srv, last := newAPIServer(t)
	c, err := NewClient(Config{Token: "tok", APIBaseURL: srv.URL}, nil)
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}

	p, err := c.Profile(context.Background(), "octocat")
	if err != nil {
		t.Fatalf("Profile: %v", err)
	}
	if p.Login != "octocat" || p.Name != "The Octocat" || p.PublicRepos != 8 || p.Followers != 100 {
		t.Errorf("profile = %+v", p)
	}
	if got := last.Header.Get("Authorization"); got != "Bearer tok" {
		t.Errorf("Authorization = %q, want static token", got)
	}

	missing, err := c.Profile(context.Background(), "ghost")
	if err != nil || missing != nil {
		t.Errorf("missing user = %+v, err = %v", missing, err)
	}

	if _, err := c.Profile(context.Background(), "bad name"); err == nil {
		t.Error("expected error for invalid username")
	}
}

func TestClient_Repositories(t *testing.T) {
	srv, last := newAPIServer(t)
	c, err := NewClient(Config{APIBaseURL: srv.URL}, nil)
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}

	tests := []struct {
		sort     string
		wantSort string
	}{
		{sort: "", wantSort: "updated"},
		{sort: "pushed", wantSort: "pushed"},
		{sort: "full_name", wantSort: "full_name"},
		{sort: "stars", wantSort: "updated"},
	}
	for _, tt := range tests {
		t.Run(tt.wantSort+"/"+tt.sort, func(t *testing.T) {
			repos, err := c.Repositories(context.Background(), "octocat", tt.sort)
			if err != nil {
				t.Fatalf("Repositories: %v", err)
			}
			if len(repos) != 2 || repos[0].Stars != 5 || repos[1].Forks != 40 {
				t.Errorf("repos = %+v", repos)
			}
			q := last.URL.Query()
			if q.Get("sort") != tt.wantSort || q.Get("per_page") != "100" {
				t.Errorf("query = %v", q)
			}
			if got := last.Header.Get("Authorization"); got != "" {
				t.Errorf("unauthenticated client sent Authorization = %q", got)
			}
		})
	}
}

const atomFeed = `<?xml version="1.0" encoding="UTF-8"?>
<feed xmlns="http://www.w3.org/2005/Atom">
  <id>tag:github.com,2008:/octocat</id>
  <title>GitHub Public Timeline Feed</title>
  <updated>2026-03-01T10:00:00Z</updated>
  <entry>
    <id>tag:github.com,2008:PushEvent/2</id>
    <title>octocat pushed to main in octocat/hello-world</title>
    <link type="text/html" rel="alternate" href="https://github.com/octocat/hello-world/compare/a...b"/>
    <updated>2026-03-01T10:00:00Z</updated>
  </entry>
  <entry>
    <id>tag:github.com,2008:WatchEvent/1</id>
    <title>octocat starred golang/go</title>
    <link type="text/html" rel="alternate" href="https://github.com/golang/go"/>
    <updated>2026-02-28T08:00:00Z</updated>
  </entry>
</feed>`

func TestClient_ActivityFeed(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		if r.URL.Path == "/ghost.atom" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "application/atom+xml")
		_, _ = w.Write([]byte(atomFeed))
	}))
	defer srv.Close()

	c, err := NewClient(Config{FeedBaseURL: srv.URL}, srv.Client())
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}

	activities, err := c.ActivityFeed(context.Background(), "octocat")
	if err != nil {
		t.Fatalf("ActivityFeed: %v", err)
	}
	if gotPath != "/octocat.atom" {
		t.Errorf("path = %q", gotPath)
	}
	want := []Activity{
		{
			ID:        "tag:github.com,2008:PushEvent/2",
			Title:     "octocat pushed to main in octocat/hello-world",
			Link:      "https://github.com/octocat/hello-world/compare/a...b",
			UpdatedAt: time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC),
		},
		{
			ID:        "tag:github.com,2008:WatchEvent/1",
			Title:     "octocat starred golang/go",
			Link:      "https://github.com/golang/go",
			UpdatedAt: time.Date(2026, 2, 28, 8, 0, 0, 0, time.UTC),
		},
	}
	if diff := cmp.Diff(want, activities); diff != "" {
		t.Errorf("activities (-want +got):\n%s", diff)
	}

	missing, err := c.ActivityFeed(context.Background(), "ghost")
	if err != nil || missing != nil {
		t.Errorf("missing feed = %+v, err = %v", missing, err)
	}
}

func TestFilterRepositories(t *testing.T) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	repos := []Repository{
		{Name: "beta", Description: "CLI tool", Stars: 3, Forks: 1, UpdatedAt: base},
		{Name: "Alpha", Description: "web server", Stars: 10, Forks: 1, UpdatedAt: base.Add(2 * time.Hour)},
		{Name: "gamma", Description: "Web scraper", Stars: 3, Forks: 7, UpdatedAt: base.Add(time.Hour)},
	}
	names := func(rs []Repository) []string {
		out := make([]string, 0, len(rs))
		for _, r := range rs {
			out = append(out, r.Name)
		}
		return out
	}

	tests := []struct {
		name   string
		search string
		sort   string
		want   []string
	}{
		{name: "更新日時順", sort: SortUpdated, want: []string{"Alpha", "gamma", "beta"}},
		{name: "スター順は安定", sort: SortStars, want: []string{"Alpha", "beta", "gamma"}},
		{name: "フォーク順", sort: SortForks, want: []string{"gamma", "beta", "Alpha"}},
		{name: "名前順は大文字小文字を区別しない", sort: SortName, want: []string{"Alpha", "beta", "gamma"}},
		{name: "説明の検索", search: "WEB", sort: SortName, want: []string{"Alpha", "gamma"}},
		{name: "名前の検索", search: "bet", want: []string{"beta"}},
		{name: "該当なし", search: "rust", want: []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FilterRepositories(repos, tt.search, tt.sort)
			if diff := cmp.Diff(tt.want, names(got)); diff != "" {
				t.Errorf("(-want +got):\n%s", diff)
			}
		})
	}

	if repos[0].Name != "beta" {
		t.Error("input slice was modified")
	}
}
