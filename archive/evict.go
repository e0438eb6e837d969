// Package archive runs the per-channel ingestion pipeline and enforces the
// channel's item ceiling through oldest-first eviction.
package archive

import (
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"vidvault/internal/metrics"
	"vidvault/store"
)

// mediaFile is one on-disk media file with its modification time, the
// ordering key for eviction.
type mediaFile struct {
	path  string
	mtime time.Time
}

// Evictor removes the oldest items of a channel, media file and comment
// subtree together, until the channel's ceiling holds.
type Evictor struct {
	layout store.Layout
	log    zerolog.Logger
}

// NewEvictor creates an eviction manager over the given content layout.
func NewEvictor(layout store.Layout, log zerolog.Logger) *Evictor {
	return &Evictor{layout: layout, log: log}
}

// Evict enforces ceiling on the channel's total item count across both
// categories. The excess oldest files (by mtime, ascending) are removed
// along with their comment subtrees; the subtree goes first so no media
// file ever outlives its own comments mid-pass. Eviction is best effort:
// a failure on one item is logged and the pass moves on.
//
// It returns the number of media files removed.
func (e *Evictor) Evict(channel string, ceiling int) int {
	log := e.log.With().Str("channel", channel).Logger()

	files := e.listMedia(channel)
	sort.Slice(files, func(i, j int) bool {
		return files[i].mtime.Before(files[j].mtime)
	})

	if len(files) <= ceiling {
		log.Debug().Int("count", len(files)).Int("ceiling", ceiling).
			Msg("evict: under ceiling, nothing to do")
		return 0
	}

	excess := len(files) - ceiling
	log.Info().Int("count", len(files)).Int("ceiling", ceiling).Int("excess", excess).
		Msg("evict: removing oldest items")

	threads := e.threadsByID(channel)

	removed := 0
	for _, f := range files[:excess] {
		videoID := store.ParseVideoID(f.path)

		if dir, ok := threads[videoID]; ok {
			if err := os.RemoveAll(dir); err != nil {
				log.Warn().Err(err).Str("video_id", videoID).
					Msg("evict: delete comment subtree failed")
			} else {
				log.Info().Str("video_id", videoID).Msg("evict: deleted comments")
			}
		}

		if err := os.Remove(f.path); err != nil {
			log.Warn().Err(err).Str("path", f.path).Msg("evict: delete media failed")
			continue
		}
		removed++
		metrics.M.ItemsEvicted.WithLabelValues(channel).Inc()
		log.Info().Str("video_id", videoID).Str("path", filepath.Base(f.path)).
			Msg("evict: deleted media")
	}
	return removed
}

// listMedia enumerates all media files across both category directories.
func (e *Evictor) listMedia(channel string) []mediaFile {
	var files []mediaFile
	for _, dir := range []string{e.layout.VideosDir(channel), e.layout.ShortsDir(channel)} {
		entries, err := os.ReadDir(dir)
		if err != nil {
			continue
		}
		for _, entry := range entries {
			if entry.IsDir() || !store.IsMediaFile(entry.Name()) {
				continue
			}
			info, err := entry.Info()
			if err != nil {
				continue
			}
			files = append(files, mediaFile{
				path:  filepath.Join(dir, entry.Name()),
				mtime: info.ModTime(),
			})
		}
	}
	return files
}

// threadsByID builds the reverse index from external video id to comment
// subtree directory. The id from each persisted meta.json is preferred; a
// directory whose metadata is unreadable falls back to its own name, which
// the layout keys by id anyway.
func (e *Evictor) threadsByID(channel string) map[string]string {
	index := make(map[string]string)
	commentsDir := e.layout.CommentsDir(channel)
	entries, err := os.ReadDir(commentsDir)
	if err != nil {
		return index
	}
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		dir := filepath.Join(commentsDir, entry.Name())
		id := entry.Name()
		if meta, err := store.OpenThread(dir).ReadMeta(); err == nil && meta.VideoID != "" {
			id = meta.VideoID
		}
		index[id] = dir
	}
	return index
}
