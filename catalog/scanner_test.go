package catalog

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"vidvault/store"
)

func seedItem(t *testing.T, layout store.Layout, channel, category, title, videoID string) {
	t.Helper()
	dir := layout.MediaDir(channel, category)
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatal(err)
	}
	stem := store.MediaFileName(title, videoID)
	if err := os.WriteFile(filepath.Join(dir, stem+".mp4"), []byte("media"), 0644); err != nil {
		t.Fatal(err)
	}
	th := store.OpenThread(layout.ThreadDir(channel, videoID))
	if err := th.InitDirs(); err != nil {
		t.Fatal(err)
	}
	meta := &store.Meta{
		VideoID: videoID, Title: title, Channel: channel,
		UploadDate: "20260115", Duration: 90,
	}
	if err := th.WriteMeta(meta); err != nil {
		t.Fatal(err)
	}
}

func TestScanJoinsMediaToMeta(t *testing.T) {
	layout := store.Layout{Root: t.TempDir()}
	seedItem(t, layout, "chan-a", store.CategoryVideo, "first video", "vid1")
	seedItem(t, layout, "chan-a", store.CategoryShorts, "a short", "sh1")
	seedItem(t, layout, "chan-b", store.CategoryVideo, "other channel", "vid2")

	items, err := NewScanner(layout).Scan()
	if err != nil {
		t.Fatal(err)
	}
	if len(items) != 3 {
		t.Fatalf("items = %d, want 3", len(items))
	}

	byID := make(map[string]Item)
	for _, it := range items {
		byID[it.VideoID] = it
	}
	short, ok := byID["sh1"]
	if !ok {
		t.Fatal("short missing from catalog")
	}
	if short.Type != store.CategoryShorts {
		t.Errorf("short type = %q, want %q", short.Type, store.CategoryShorts)
	}
	if short.Title != "a short" || short.Channel != "chan-a" {
		t.Errorf("short = %+v", short)
	}
	if _, err := os.Stat(short.FilePath); err != nil {
		t.Errorf("file_path does not resolve: %v", err)
	}
}

func TestScanExcludesItemsWithoutMeta(t *testing.T) {
	layout := store.Layout{Root: t.TempDir()}
	seedItem(t, layout, "chan", store.CategoryVideo, "complete", "good")

	// Media with no metadata record: mid-ingestion or orphaned.
	dir := layout.VideosDir("chan")
	orphan := store.MediaFileName("orphan", "bad") + ".mp4"
	if err := os.WriteFile(filepath.Join(dir, orphan), []byte("media"), 0644); err != nil {
		t.Fatal(err)
	}

	items, err := NewScanner(layout).Scan()
	if err != nil {
		t.Fatal(err)
	}
	if len(items) != 1 || items[0].VideoID != "good" {
		t.Fatalf("items = %+v, want only good", items)
	}
}

func TestScanEmptyRoot(t *testing.T) {
	layout := store.Layout{Root: filepath.Join(t.TempDir(), "missing")}
	items, err := NewScanner(layout).Scan()
	if err != nil {
		t.Fatal(err)
	}
	if len(items) != 0 {
		t.Fatalf("items = %d, want 0", len(items))
	}
}

func TestFindByID(t *testing.T) {
	layout := store.Layout{Root: t.TempDir()}
	seedItem(t, layout, "chan", store.CategoryVideo, "findable", "target")

	sc := NewScanner(layout)
	item, err := sc.FindByID("target")
	if err != nil {
		t.Fatal(err)
	}
	if item.Title != "findable" {
		t.Errorf("title = %q, want findable", item.Title)
	}

	if _, err := sc.FindByID("nope"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}
