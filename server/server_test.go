package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"

	"vidvault/catalog"
	"vidvault/store"
)

func seedItem(t *testing.T, layout store.Layout, channel, category, title, videoID string, comments int) {
	t.Helper()
	dir := layout.MediaDir(channel, category)
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatal(err)
	}
	stem := store.MediaFileName(title, videoID)
	if err := os.WriteFile(filepath.Join(dir, stem+".mp4"), []byte("media-"+videoID), 0644); err != nil {
		t.Fatal(err)
	}
	th := store.OpenThread(layout.ThreadDir(channel, videoID))
	if err := th.InitDirs(); err != nil {
		t.Fatal(err)
	}
	meta := &store.Meta{VideoID: videoID, Title: title, Channel: channel, Duration: 60}
	if err := th.WriteMeta(meta); err != nil {
		t.Fatal(err)
	}
	for i := 0; i < comments; i++ {
		c := &store.Comment{ID: fmt.Sprintf("c%d", i), Author: "a", Text: "hi", Likes: 10 - i}
		if err := th.WriteComment(i, c); err != nil {
			t.Fatal(err)
		}
	}
}

func newTestServer(t *testing.T) (*Server, store.Layout) {
	t.Helper()
	layout := store.Layout{Root: t.TempDir()}
	sc := catalog.NewScanner(layout)
	return New("127.0.0.1:0", sc, layout, t.TempDir(), zerolog.Nop()), layout
}

func doGet(t *testing.T, s *Server, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	s.routes().ServeHTTP(rec, req)
	return rec
}

func decodeList(t *testing.T, rec *httptest.ResponseRecorder) []listItem {
	t.Helper()
	var items []listItem
	if err := json.Unmarshal(rec.Body.Bytes(), &items); err != nil {
		t.Fatalf("decode: %v (body %s)", err, rec.Body.String())
	}
	return items
}

func TestVideosFiltersByType(t *testing.T) {
	s, layout := newTestServer(t)
	seedItem(t, layout, "chan", store.CategoryVideo, "a video", "v1", 0)
	seedItem(t, layout, "chan", store.CategoryShorts, "a short", "s1", 0)

	rec := doGet(t, s, "/api/videos")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	items := decodeList(t, rec)
	if len(items) != 1 || items[0].VideoID != "v1" {
		t.Fatalf("items = %+v, want only v1", items)
	}
	if items[0].Type != store.CategoryVideo {
		t.Errorf("type = %q", items[0].Type)
	}

	rec = doGet(t, s, "/api/shorts")
	items = decodeList(t, rec)
	if len(items) != 1 || items[0].VideoID != "s1" {
		t.Fatalf("shorts = %+v, want only s1", items)
	}
}

func TestVideosPaginationIsStable(t *testing.T) {
	s, layout := newTestServer(t)
	for i := 0; i < 6; i++ {
		id := fmt.Sprintf("vid%d", i)
		seedItem(t, layout, "chan", store.CategoryVideo, "clip "+id, id, 0)
	}

	first := decodeList(t, doGet(t, s, "/api/videos?skip=0&limit=3"))
	second := decodeList(t, doGet(t, s, "/api/videos?skip=3&limit=3"))
	if len(first) != 3 || len(second) != 3 {
		t.Fatalf("pages = %d/%d, want 3/3", len(first), len(second))
	}

	seen := make(map[string]bool)
	for _, it := range append(first, second...) {
		if seen[it.VideoID] {
			t.Fatalf("id %s appeared on both pages", it.VideoID)
		}
		seen[it.VideoID] = true
	}

	// Same request, same order.
	again := decodeList(t, doGet(t, s, "/api/videos?skip=0&limit=3"))
	for i := range first {
		if first[i].VideoID != again[i].VideoID {
			t.Fatalf("ordering not stable: %v vs %v", first, again)
		}
	}
}

func TestSearchMatchesTitleAndChannel(t *testing.T) {
	s, layout := newTestServer(t)
	seedItem(t, layout, "CookingChannel", store.CategoryVideo, "Pasta Night", "p1", 0)
	seedItem(t, layout, "gaming", store.CategoryVideo, "speedrun", "g1", 0)
	seedItem(t, layout, "gaming", store.CategoryShorts, "quick pasta tip", "g2", 0)

	items := decodeList(t, doGet(t, s, "/api/videos/search?query=PASTA"))
	if len(items) != 2 {
		t.Fatalf("results = %+v, want 2 pasta matches", items)
	}

	items = decodeList(t, doGet(t, s, "/api/videos/search?query=cooking"))
	if len(items) != 1 || items[0].VideoID != "p1" {
		t.Fatalf("channel search = %+v, want p1", items)
	}
}

func TestVideoFileStreams(t *testing.T) {
	s, layout := newTestServer(t)
	seedItem(t, layout, "chan", store.CategoryVideo, "clip", "v1", 0)

	rec := doGet(t, s, "/api/video/v1")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if got := rec.Body.String(); got != "media-v1" {
		t.Errorf("body = %q", got)
	}

	rec = doGet(t, s, "/api/video/unknown")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("unknown id status = %d, want 404", rec.Code)
	}
}

func TestCommentsJoinAndNormalize(t *testing.T) {
	s, layout := newTestServer(t)
	seedItem(t, layout, "chan", store.CategoryVideo, "clip", "v1", 2)

	rec := doGet(t, s, "/api/comments/v1")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var body struct {
		VideoID  string              `json:"video_id"`
		Comments []store.ReadComment `json:"comments"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if body.VideoID != "v1" || len(body.Comments) != 2 {
		t.Fatalf("body = %+v", body)
	}
	if body.Comments[0].LikeCount != body.Comments[0].Likes {
		t.Errorf("like_count = %d, likes = %d", body.Comments[0].LikeCount, body.Comments[0].Likes)
	}
	if body.Comments[0].Replies == nil {
		t.Error("replies should be an empty array, not null")
	}

	rec = doGet(t, s, "/api/comments/unknown")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("unknown id status = %d, want 404", rec.Code)
	}
}

func TestVideoInfo(t *testing.T) {
	s, layout := newTestServer(t)
	seedItem(t, layout, "chan", store.CategoryVideo, "clip", "v1", 0)

	rec := doGet(t, s, "/api/video-info/v1")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var item catalog.Item
	if err := json.Unmarshal(rec.Body.Bytes(), &item); err != nil {
		t.Fatal(err)
	}
	if item.VideoID != "v1" || item.Channel != "chan" || item.Type != store.CategoryVideo {
		t.Errorf("item = %+v", item)
	}

	rec = doGet(t, s, "/api/video-info/unknown")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("unknown id status = %d, want 404", rec.Code)
	}
}

func TestEmptyArchiveListsEmpty(t *testing.T) {
	s, _ := newTestServer(t)
	rec := doGet(t, s, "/api/videos")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if got := len(decodeList(t, rec)); got != 0 {
		t.Fatalf("items = %d, want 0", got)
	}
}
