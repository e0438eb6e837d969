// Package vidvault archives a bounded number of videos per YouTube channel
// on plain disk and serves them back over a small HTTP API.
//
// Overview
//
// Each configured channel gets a capacity ceiling. An ingestion pass
// downloads recent uploads until the ceiling is met, persists each item's
// top comments and replies as individual JSON files, and then evicts the
// oldest items so the channel never exceeds its ceiling. A separate serve
// mode exposes the resulting directory tree read-only.
//
// The on-disk layout is the database. Every record is a JSON file written
// atomically, so a crashed run leaves at worst a missing item, never a
// corrupt one, and a re-run picks up where it stopped.
//
// Quick Start
//
// Run one ingestion pass over the channels in channels.json:
//
//	vidvault sync
//
// Serve the archive:
//
//	vidvault serve
//
// Programmatic use mirrors the CLI:
//
//	layout := store.Layout{Root: "content"}
//	source := youtube.NewYtdlp(720, 1)
//	engine := comments.NewEngine(source, comments.Config{Enabled: true}, log)
//	pipeline := archive.NewPipeline(source, engine, layout, 0, log)
//	pipeline.Run(ctx, channels)
//
// Configuration
//
// Settings are layered: defaults, then an optional YAML file, then
// VIDVAULT_* environment variables (highest priority). See the config
// package for the full list.
//
// Error Handling
//
// All operations return errors that work with errors.Is and errors.As:
//
//	if errors.Is(err, vidvault.ErrVideoUnavailable) {
//		// skip the item
//	}
//
// Sub-packages:
//
//   - store: on-disk layout, metadata and comment records
//   - catalog: read-side scanner over the layout
//   - youtube: extractor boundary (yt-dlp subprocess, Data API comments)
//   - comments: resumable comment-ingestion engine
//   - archive: per-channel pipeline and eviction manager
//   - server: HTTP read API
package vidvault
