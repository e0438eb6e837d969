package archive

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"vidvault/comments"
	"vidvault/config"
	"vidvault/internal/metrics"
	"vidvault/store"
	"vidvault/youtube"
)

// DefaultOverFetch is the listing multiplier that absorbs skip and failure
// attrition: fetching ceiling*5 candidates usually yields enough downloads.
const DefaultOverFetch = 5

// Pipeline runs one full ingestion pass: per channel, discover candidates,
// download into the bounded store, ingest each item's comments, then evict
// down to the ceiling. Processing is strictly sequential; the upstream is
// rate sensitive and concurrent extraction risks throttling.
type Pipeline struct {
	source    youtube.Source
	engine    *comments.Engine
	evictor   *Evictor
	layout    store.Layout
	overFetch int
	log       zerolog.Logger
}

// NewPipeline creates an ingestion pipeline over the given layout.
// overFetch values below 1 fall back to the default.
func NewPipeline(source youtube.Source, engine *comments.Engine, layout store.Layout, overFetch int, log zerolog.Logger) *Pipeline {
	if overFetch < 1 {
		overFetch = DefaultOverFetch
	}
	return &Pipeline{
		source:    source,
		engine:    engine,
		evictor:   NewEvictor(layout, log),
		layout:    layout,
		overFetch: overFetch,
		log:       log,
	}
}

// Run processes every configured channel in order. Failures at item
// granularity never propagate to channel granularity, and channel failures
// never propagate to the run: the pipeline always makes maximal forward
// progress through the catalog.
func (p *Pipeline) Run(ctx context.Context, channels []config.Channel) {
	runID := uuid.NewString()
	log := p.log.With().Str("run_id", runID).Logger()
	log.Info().Int("channels", len(channels)).Msg("sync: run started")

	for _, ch := range channels {
		if ctx.Err() != nil {
			log.Warn().Err(ctx.Err()).Msg("sync: run canceled")
			return
		}
		p.syncChannel(ctx, log, ch)
	}
	log.Info().Msg("sync: run finished")
}

// syncChannel archives one channel up to its ceiling and restores the
// ceiling afterwards. Eviction always runs after all of the channel's
// items, never interleaved with ingestion.
func (p *Pipeline) syncChannel(ctx context.Context, log zerolog.Logger, ch config.Channel) {
	log = log.With().Str("channel", ch.Name).Logger()

	for _, dir := range []string{
		p.layout.VideosDir(ch.Name),
		p.layout.ShortsDir(ch.Name),
		p.layout.CommentsDir(ch.Name),
	} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			log.Error().Err(err).Str("dir", dir).Msg("sync: create channel directory failed")
			return
		}
	}

	downloaded := p.downloadedIDs(ch.Name)
	log.Info().Int("existing", len(downloaded)).Int("ceiling", ch.VideoCount).
		Msg("sync: channel started")

	entries, err := p.source.ListUploads(ctx, ch.Name, ch.VideoCount*p.overFetch)
	if err != nil {
		// A failed listing still lets eviction restore the ceiling.
		log.Warn().Err(err).Msg("sync: channel listing failed, continuing with none")
	}

	count := 0
	for _, entry := range entries {
		if count >= ch.VideoCount {
			break
		}
		if ctx.Err() != nil {
			log.Warn().Err(ctx.Err()).Msg("sync: channel canceled")
			break
		}
		if entry.ID == "" {
			continue
		}
		if downloaded[entry.ID] {
			log.Debug().Str("video_id", entry.ID).Msg("sync: already downloaded")
			continue
		}
		if p.processItem(ctx, log, ch, entry) {
			count++
		}
	}

	evicted := p.evictor.Evict(ch.Name, ch.VideoCount)
	log.Info().Int("downloaded", count).Int("evicted", evicted).
		Msg("sync: channel finished")
}

// processItem downloads one item and ingests its comments. It reports
// whether a verified media file landed on disk; any failure is contained
// to this item.
func (p *Pipeline) processItem(ctx context.Context, log zerolog.Logger, ch config.Channel, entry youtube.VideoEntry) bool {
	log = log.With().Str("video_id", entry.ID).Logger()

	details, err := p.source.Probe(ctx, entry.ID)
	if err != nil {
		if errors.Is(err, youtube.ErrVideoUnavailable) {
			log.Info().Msg("sync: skipping private or unavailable item")
		} else {
			log.Warn().Err(err).Msg("sync: probe failed, skipping item")
		}
		return false
	}

	if details.IsLiveOrUpcoming() {
		log.Info().Msg("sync: skipping live item")
		return false
	}

	category := store.CategoryVideo
	if details.IsShort() {
		category = store.CategoryShorts
	}
	destDir := p.layout.MediaDir(ch.Name, category)
	stem := store.MediaFileName(details.Title, details.ID)

	path, err := p.source.Download(ctx, details.ID, destDir, stem)
	if err != nil {
		if errors.Is(err, youtube.ErrVideoUnavailable) {
			log.Info().Msg("sync: skipping private or unavailable item")
		} else {
			log.Warn().Err(err).Msg("sync: download failed, skipping item")
		}
		return false
	}

	// Integrity gate: the file must exist and be non-empty before the item
	// becomes part of the archive.
	info, err := os.Stat(path)
	if err != nil {
		log.Warn().Str("path", path).Msg("sync: download finished but file missing")
		return false
	}
	if info.Size() == 0 {
		log.Warn().Str("path", path).Msg("sync: downloaded file empty, discarding")
		os.Remove(path)
		return false
	}

	metrics.M.VideosDownloaded.WithLabelValues(ch.Name).Inc()
	log.Info().Str("category", category).Str("file", filepath.Base(path)).
		Msg("sync: downloaded")

	meta := &store.Meta{
		VideoID:               details.ID,
		Title:                 details.Title,
		Channel:               firstNonEmpty(details.Channel, ch.Name),
		UploadDate:            details.UploadDate,
		Duration:              details.Duration,
		CommentCountEstimated: details.CommentCount,
		DownloadedAt:          time.Now().Unix(),
	}
	threadDir := p.layout.ThreadDir(ch.Name, details.ID)
	if err := p.engine.Ingest(ctx, details.ID, meta, threadDir); err != nil {
		log.Warn().Err(err).Msg("sync: comment ingestion failed")
	}
	return true
}

// downloadedIDs returns the set of external ids already present in the
// channel's media directories.
func (p *Pipeline) downloadedIDs(channel string) map[string]bool {
	ids := make(map[string]bool)
	for _, dir := range []string{p.layout.VideosDir(channel), p.layout.ShortsDir(channel)} {
		entries, err := os.ReadDir(dir)
		if err != nil {
			continue
		}
		for _, entry := range entries {
			if entry.IsDir() || !store.IsMediaFile(entry.Name()) {
				continue
			}
			ids[store.ParseVideoID(entry.Name())] = true
		}
	}
	return ids
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
