// Package catalog builds a flat view of the archive for the read API. It
// scans the on-disk layout on every call; the archive is small enough that
// a linear walk beats cache invalidation.
package catalog

import (
	"os"
	"path/filepath"

	"vidvault/store"
)

// Item is one archived piece of media joined to its metadata record.
type Item struct {
	VideoID      string `json:"video_id"`
	Title        string `json:"title"`
	Channel      string `json:"channel"`
	UploadDate   string `json:"upload_date"`
	Duration     int    `json:"duration"`
	Type         string `json:"type"` // "video" or "shorts"
	FilePath     string `json:"file_path"`
	CommentsPath string `json:"comments_path"`
}

// Scanner enumerates the archive.
type Scanner struct {
	layout store.Layout
}

func NewScanner(layout store.Layout) *Scanner {
	return &Scanner{layout: layout}
}

// Scan lists every item across all channels and both categories. Media files
// whose metadata record is missing or unreadable are excluded; a half-written
// item simply does not exist yet from the catalog's point of view.
func (s *Scanner) Scan() ([]Item, error) {
	channels, err := os.ReadDir(s.layout.Root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var items []Item
	for _, ch := range channels {
		if !ch.IsDir() {
			continue
		}
		for _, category := range []string{store.CategoryVideo, store.CategoryShorts} {
			items = append(items, s.scanDir(ch.Name(), category)...)
		}
	}
	return items, nil
}

// FindByID returns the catalog entry for one external id, or
// store.ErrNotFound.
func (s *Scanner) FindByID(videoID string) (*Item, error) {
	items, err := s.Scan()
	if err != nil {
		return nil, err
	}
	for i := range items {
		if items[i].VideoID == videoID {
			return &items[i], nil
		}
	}
	return nil, store.ErrNotFound
}

func (s *Scanner) scanDir(channel, category string) []Item {
	dir := s.layout.MediaDir(channel, category)
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil
	}

	var items []Item
	for _, entry := range entries {
		if entry.IsDir() || !store.IsMediaFile(entry.Name()) {
			continue
		}
		videoID := store.ParseVideoID(entry.Name())
		threadDir := s.layout.ThreadDir(channel, videoID)
		meta, err := store.OpenThread(threadDir).ReadMeta()
		if err != nil {
			continue
		}
		items = append(items, Item{
			VideoID:      meta.VideoID,
			Title:        meta.Title,
			Channel:      meta.Channel,
			UploadDate:   meta.UploadDate,
			Duration:     meta.Duration,
			Type:         category,
			FilePath:     filepath.Join(dir, entry.Name()),
			CommentsPath: threadDir,
		})
	}
	return items
}
