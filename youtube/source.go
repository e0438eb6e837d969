// Package youtube is the boundary to the external extractor. The archiver
// treats this collaborator as fallible and slow: every call site upstream
// wraps it in retry and error containment.
package youtube

import "context"

// VideoEntry is one item from a channel's uploads listing.
type VideoEntry struct {
	ID    string
	Title string
	URL   string
}

// VideoDetails is the full per-item metadata needed before downloading.
// The frame dimensions decide the item's category once, at download time.
type VideoDetails struct {
	ID           string
	Title        string
	Channel      string
	UploadDate   string // YYYYMMDD
	Duration     int    // seconds
	Width        int
	Height       int
	IsLive       bool
	LiveStatus   string // "is_live", "upcoming", "was_live", ...
	CommentCount int64
	WebpageURL   string
}

// IsShort reports whether the item is a short (portrait aspect ratio).
func (d *VideoDetails) IsShort() bool {
	return d.Width > 0 && d.Height > 0 && d.Height > d.Width
}

// IsLiveOrUpcoming reports whether the item should be skipped as live content.
func (d *VideoDetails) IsLiveOrUpcoming() bool {
	return d.IsLive || d.LiveStatus == "is_live" || d.LiveStatus == "upcoming"
}

// RawComment is one comment as returned by a comment source, before
// partitioning. Parent is the external id of the parent comment, or "root"
// (or empty) for top-level comments.
type RawComment struct {
	ID        string
	Parent    string
	Author    string
	Text      string
	Timestamp int64
	LikeCount int
}

// IsTopLevel reports whether the comment has no parent.
func (c *RawComment) IsTopLevel() bool {
	return c.Parent == "" || c.Parent == "root"
}

// CommentOptions bounds a comment fetch.
type CommentOptions struct {
	// MaxTop caps the number of top-level comments requested.
	MaxTop int
	// MaxReplies caps the replies requested per comment.
	MaxReplies int
	// PageToken resumes a previous fetch. Sources that cannot paginate
	// ignore it and return everything in one page.
	PageToken string
}

// CommentPage is one page of a ranked comment fetch. NextPageToken is empty
// when the source cannot paginate or the thread is exhausted.
type CommentPage struct {
	Comments      []RawComment
	NextPageToken string
}

// CommentSource fetches a ranked, capped comment set for one video.
type CommentSource interface {
	Comments(ctx context.Context, videoID string, opts CommentOptions) (*CommentPage, error)
}

// Source is the full extractor contract the ingestion pipeline depends on.
type Source interface {
	CommentSource

	// ListUploads returns up to limit recent items from the channel's
	// uploads, newest first.
	ListUploads(ctx context.Context, channelName string, limit int) ([]VideoEntry, error)

	// Probe extracts full metadata for one item.
	Probe(ctx context.Context, videoID string) (*VideoDetails, error)

	// Download fetches the item's media into destDir using the given
	// filename stem; the extractor picks the extension. It returns the
	// final file path.
	Download(ctx context.Context, videoID, destDir, stem string) (string, error)
}
