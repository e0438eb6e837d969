// Package comments implements the comment ingestion engine: it downloads a
// ranked, size-bounded subset of a video's discussion thread into the
// item's comment subtree, tracks resumable progress in index.json, and
// degrades gracefully when the upstream source is unreliable.
package comments

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"vidvault/internal/metrics"
	"vidvault/internal/retry"
	"vidvault/store"
	"vidvault/youtube"
)

// Defaults for the ingestion caps and retry budget.
const (
	DefaultMaxComments = 50
	DefaultMaxReplies  = 120
	DefaultRetryBudget = 5
	DefaultRetryGap    = 1 * time.Second
)

// Config bounds one engine's ingestion behavior.
type Config struct {
	// Enabled toggles comment ingestion entirely. When false, Ingest
	// leaves the destination untouched.
	Enabled bool
	// MaxComments caps persisted top-level comments per item.
	MaxComments int
	// MaxReplies caps persisted replies per comment.
	MaxReplies int
	// RetryBudget is the total number of fetch-and-persist attempts.
	RetryBudget int
	// RetryGap is the pause between attempts.
	RetryGap time.Duration
}

// DefaultConfig returns the standard ingestion configuration.
func DefaultConfig() Config {
	return Config{
		Enabled:     true,
		MaxComments: DefaultMaxComments,
		MaxReplies:  DefaultMaxReplies,
		RetryBudget: DefaultRetryBudget,
		RetryGap:    DefaultRetryGap,
	}
}

// Engine ingests one item's comment thread at a time. It holds no
// per-item state; ordinal numbering lives in the item's index record.
type Engine struct {
	source youtube.CommentSource
	cfg    Config
	log    zerolog.Logger
}

// NewEngine creates an ingestion engine backed by the given comment source.
func NewEngine(source youtube.CommentSource, cfg Config, log zerolog.Logger) *Engine {
	if cfg.MaxComments <= 0 {
		cfg.MaxComments = DefaultMaxComments
	}
	if cfg.MaxReplies <= 0 {
		cfg.MaxReplies = DefaultMaxReplies
	}
	if cfg.RetryBudget <= 0 {
		cfg.RetryBudget = DefaultRetryBudget
	}
	if cfg.RetryGap <= 0 {
		cfg.RetryGap = DefaultRetryGap
	}
	return &Engine{source: source, cfg: cfg, log: log}
}

// Ingest populates dir with the item's comment thread and ingestion index,
// or returns immediately if ingestion is disabled or already complete.
// Failures never propagate beyond the item: exhausting the retry budget
// logs and returns nil so one bad thread cannot abort a channel run.
//
// Metadata is persisted before any comment fetch so it survives even if
// the fetch fails entirely.
func (e *Engine) Ingest(ctx context.Context, videoID string, meta *store.Meta, dir string) error {
	if !e.cfg.Enabled {
		return nil
	}

	log := e.log.With().Str("video_id", videoID).Logger()
	thread := store.OpenThread(dir)

	idx, err := thread.LoadIndex(e.cfg.MaxComments, e.cfg.MaxReplies)
	if err != nil {
		// A corrupt index is rebuilt from scratch; the comment files on
		// disk still gate the idempotency check below.
		log.Warn().Err(err).Msg("comments: index unreadable, reinitializing")
		idx = &store.Index{
			MaxTopComments:       e.cfg.MaxComments,
			MaxRepliesPerComment: e.cfg.MaxReplies,
			HasMoreComments:      true,
		}
	}

	if idx.Complete() {
		log.Debug().Msg("comments: already complete, skipping")
		return nil
	}

	// Resume only when the source left a continuation token and the cap
	// still has headroom; otherwise any persisted top-level comment makes
	// re-invocation a no-op.
	resume := idx.NextPageToken != "" && idx.TopCommentsDownloaded < idx.MaxTopComments
	if thread.TopCount() > 0 && !resume {
		log.Debug().Msg("comments: already downloaded, skipping")
		return nil
	}

	if err := thread.InitDirs(); err != nil {
		log.Error().Err(err).Msg("comments: init directories failed")
		return err
	}
	if err := thread.WriteMeta(meta); err != nil {
		log.Error().Err(err).Msg("comments: persist metadata failed")
		return err
	}

	cfg := retry.FixedConfig(e.cfg.RetryBudget, e.cfg.RetryGap)
	err = retry.Do(ctx, cfg, youtube.IsRetryable, func(ctx context.Context) error {
		return e.fetchAndPersist(ctx, videoID, thread, idx)
	})
	if err != nil {
		if errors.Is(err, youtube.ErrVideoUnavailable) {
			log.Info().Msg("comments: content unavailable, skipping")
			return nil
		}
		log.Warn().Err(err).Int("budget", e.cfg.RetryBudget).
			Msg("comments: giving up after failed attempts")
		return nil
	}
	return nil
}

// fetchAndPersist is one attempt at steps fetch, partition, rank, truncate,
// persist, and index update. It is safe to re-run: ordinals derive from the
// index counts, which are only advanced after a full attempt.
func (e *Engine) fetchAndPersist(ctx context.Context, videoID string, thread *store.Thread, idx *store.Index) error {
	page, err := e.source.Comments(ctx, videoID, youtube.CommentOptions{
		MaxTop:     idx.MaxTopComments,
		MaxReplies: idx.MaxRepliesPerComment,
		PageToken:  idx.NextPageToken,
	})
	if err != nil {
		return err
	}

	if len(page.Comments) == 0 {
		// Zero comments is a completed attempt: persist the index with
		// zero counts so re-runs recognize the item and skip it.
		idx.HasMoreComments = false
		idx.NextPageToken = ""
		idx.CompletedAt = time.Now().Unix()
		e.log.Info().Str("video_id", videoID).Msg("comments: none available")
		return thread.SaveIndex(idx)
	}

	// Partition into top-level comments and replies grouped by parent id.
	// Association is by the parent's external id, never file order, so it
	// holds even if comments arrive out of order or are truncated away.
	var top []youtube.RawComment
	repliesByParent := make(map[string][]youtube.RawComment)
	for _, c := range page.Comments {
		if c.IsTopLevel() {
			top = append(top, c)
		} else {
			repliesByParent[c.Parent] = append(repliesByParent[c.Parent], c)
		}
	}

	// Most liked first.
	sort.SliceStable(top, func(i, j int) bool {
		return top[i].LikeCount > top[j].LikeCount
	})

	remaining := idx.MaxTopComments - idx.TopCommentsDownloaded
	if remaining < 0 {
		remaining = 0
	}
	if len(top) > remaining {
		top = top[:remaining]
	}

	ordinal := idx.TopCommentsDownloaded
	replies := idx.RepliesDownloaded
	startReplies := replies
	for _, c := range top {
		ordinal++
		if err := thread.WriteComment(ordinal, &store.Comment{
			ID:        c.ID,
			Author:    c.Author,
			Timestamp: c.Timestamp,
			Text:      c.Text,
			Likes:     c.LikeCount,
		}); err != nil {
			return err
		}
		metrics.M.CommentsPersisted.Inc()

		group := repliesByParent[c.ID]
		if len(group) > idx.MaxRepliesPerComment {
			group = group[:idx.MaxRepliesPerComment]
		}
		for i, r := range group {
			if err := thread.WriteReply(ordinal, i+1, &store.Comment{
				ID:        r.ID,
				Author:    r.Author,
				Timestamp: r.Timestamp,
				Text:      r.Text,
				Likes:     r.LikeCount,
			}); err != nil {
				return err
			}
			replies++
			metrics.M.RepliesPersisted.Inc()
		}
	}

	persistedTop := ordinal - idx.TopCommentsDownloaded
	idx.TopCommentsDownloaded = ordinal
	idx.RepliesDownloaded = replies
	// Cap reached implies more may exist upstream; a continuation token
	// says so outright.
	idx.HasMoreComments = idx.TopCommentsDownloaded >= idx.MaxTopComments || page.NextPageToken != ""
	idx.NextPageToken = page.NextPageToken
	if page.NextPageToken == "" || idx.TopCommentsDownloaded >= idx.MaxTopComments {
		idx.CompletedAt = time.Now().Unix()
	}

	if err := thread.SaveIndex(idx); err != nil {
		return err
	}

	e.log.Info().Str("video_id", videoID).
		Int("top_comments", persistedTop).
		Int("replies", replies-startReplies).
		Msg("comments: downloaded")
	return nil
}
