package wordpress

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/presslane/pressgang/internal/press"
)

func newTestClient(t *testing.T, handler http.Handler) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	client, err := New(Config{
		BaseURL:     srv.URL,
		Username:    "alice",
		AppPassword: "xxxx yyyy",
		Timeout:     time.Second,
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return client, srv
}

func TestNewMissingConfig(t *testing.T) {
	_, err := New(Config{BaseURL: "https://example.com"})
	var missing press.MissingConfigError
	if !errors.As(err, &missing) {
		t.Fatalf("error %v, want MissingConfigError", err)
	}
	if len(missing.Fields) != 2 {
		t.Fatalf("fields %v, want username and app_password", missing.Fields)
	}
}

func TestCreatePostPayload(t *testing.T) {
	var payload map[string]any
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		if err := json.Unmarshal(body, &payload); err != nil {
			t.Errorf("decode payload: %v", err)
		}
		w.Write([]byte(`{"id":7,"status":"draft","link":"https://example.com/?p=7"}`))
	}))

	res, err := client.CreatePost(context.Background(), press.Draft{
		Title:           "Hello",
		BodyHTML:        "<p>hi</p>",
		Slug:            "hello",
		CategoryIDs:     []int{3},
		FeaturedAssetID: "12",
		Status:          press.StatusDraft,
	})
	if err != nil {
		t.Fatalf("CreatePost: %v", err)
	}
	if res.ID != "7" || res.Status != press.StatusDraft || res.URL != "https://example.com/?p=7" {
		t.Fatalf("result %+v", res)
	}
	if payload["title"] != "Hello" || payload["content"] != "<p>hi</p>" || payload["status"] != "draft" {
		t.Fatalf("payload %v", payload)
	}
	if payload["slug"] != "hello" || payload["featured_media"] != float64(12) {
		t.Fatalf("payload %v", payload)
	}
	if _, ok := payload["date_gmt"]; ok {
		t.Fatalf("date_gmt must be absent without a schedule")
	}
}

func TestCreatePostScheduledForcesFuture(t *testing.T) {
	var payload map[string]any
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		json.Unmarshal(body, &payload)
		w.Write([]byte(`{"id":8,"status":"future"}`))
	}))

	publishAt := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	_, err := client.CreatePost(context.Background(), press.Draft{
		Title:     "Later",
		BodyHTML:  "<p>later</p>",
		Status:    press.StatusPublish, // overridden by the schedule
		PublishAt: publishAt,
	})
	if err != nil {
		t.Fatalf("CreatePost: %v", err)
	}
	if payload["status"] != "future" {
		t.Fatalf("status %v, want future when date_gmt is set", payload["status"])
	}
	if payload["date_gmt"] != "2024-06-01T00:00:00" {
		t.Fatalf("date_gmt %v", payload["date_gmt"])
	}
}

func TestEndpointFallbackToWPJSON(t *testing.T) {
	var paths []string
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.URL.RequestURI())
		if r.URL.Query().Get("rest_route") != "" {
			// Site without query routing.
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Write([]byte(`{"id":9,"status":"draft"}`))
	}))

	res, err := client.CreatePost(context.Background(), press.Draft{
		Title: "T", BodyHTML: "B", Status: press.StatusDraft,
	})
	if err != nil {
		t.Fatalf("CreatePost: %v", err)
	}
	if res.ID != "9" {
		t.Fatalf("result %+v", res)
	}
	if len(paths) != 2 {
		t.Fatalf("paths %v, want rest_route tried first then /wp-json", paths)
	}
	if paths[0] != "/?rest_route=/wp/v2/posts" || paths[1] != "/wp-json/wp/v2/posts" {
		t.Fatalf("paths %v, wrong candidate order", paths)
	}
}

func TestUploadAssetHeaders(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if cd := r.Header.Get("Content-Disposition"); cd != "attachment; filename=eyecatch.jpg" {
			t.Errorf("content disposition %q", cd)
		}
		if ct := r.Header.Get("Content-Type"); ct != "image/jpeg" {
			t.Errorf("content type %q", ct)
		}
		user, pass, _ := r.BasicAuth()
		if user != "alice" || pass != "xxxx yyyy" {
			t.Errorf("auth %q/%q", user, pass)
		}
		w.Write([]byte(`{"id":55}`))
	}))

	id, err := client.UploadAsset(context.Background(), []byte{0xff, 0xd8}, "eyecatch.jpg", "image/jpeg")
	if err != nil {
		t.Fatalf("UploadAsset: %v", err)
	}
	if id != "55" {
		t.Fatalf("id %q, want 55", id)
	}
}

func TestRecentPostsPrefersRawFields(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("context") != "edit" || q.Get("per_page") != "10" {
			t.Errorf("query %v", q)
		}
		w.Write([]byte(`[
			{"id":1,"status":"draft","title":{"raw":"[2024-06-01 09:00] Raw","rendered":"rendered"},"content":{"raw":"raw body"}},
			{"id":2,"status":"publish","title":{"rendered":"Rendered only"},"content":{"rendered":"body"}}
		]`))
	}))

	records, err := client.RecentPosts(context.Background(), 10)
	if err != nil {
		t.Fatalf("RecentPosts: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("records %v", records)
	}
	if records[0].Title != "[2024-06-01 09:00] Raw" || records[0].Body != "raw body" {
		t.Fatalf("record %+v, want raw fields preferred", records[0])
	}
	if records[1].Title != "Rendered only" || records[1].Status != press.StatusPublish {
		t.Fatalf("record %+v, want rendered fallback", records[1])
	}
}

func TestEditPost(t *testing.T) {
	var gotPath string
	var payload map[string]any
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Query().Get("rest_route")
		body, _ := io.ReadAll(r.Body)
		json.Unmarshal(body, &payload)
		w.Write([]byte(`{"id":42,"status":"publish"}`))
	}))

	err := client.EditPost(context.Background(), "42", "Hello", "<p>body</p>", press.StatusPublish)
	if err != nil {
		t.Fatalf("EditPost: %v", err)
	}
	if gotPath != "/wp/v2/posts/42" {
		t.Fatalf("rest_route %q", gotPath)
	}
	if payload["title"] != "Hello" || payload["status"] != "publish" {
		t.Fatalf("payload %v", payload)
	}
}

func TestSurfacesLastFailure(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("rest_route") != "" {
			w.WriteHeader(http.StatusNotFound)
			w.Write([]byte("no query routing"))
			return
		}
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte("bad app password"))
	}))

	_, err := client.CreatePost(context.Background(), press.Draft{Title: "T", Status: press.StatusDraft})
	if err == nil {
		t.Fatalf("expected error")
	}
	if got := err.Error(); got != "create post: 401: bad app password" {
		t.Fatalf("error %q, want the last candidate's status and body", got)
	}
}
