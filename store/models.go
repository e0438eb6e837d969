package store

// Meta is the canonical per-item metadata record (meta.json). The video id
// is stored redundantly here so joins between media files and comment
// subtrees never depend on title strings.
type Meta struct {
	VideoID               string `json:"video_id"`
	Title                 string `json:"title"`
	Channel               string `json:"channel"`
	UploadDate            string `json:"upload_date"` // YYYYMMDD
	Duration              int    `json:"duration"`    // seconds
	CommentCountEstimated int64  `json:"comment_count_estimated"`
	DownloadedAt          int64  `json:"downloaded_at"` // unix seconds
}

// Index is the ingestion progress record (index.json). It is the single
// source of truth for whether comment ingestion for an item is complete or
// should be skipped on re-run. Downloaded counts are monotonically
// non-decreasing across runs.
type Index struct {
	MaxTopComments        int    `json:"max_top_comments"`
	MaxRepliesPerComment  int    `json:"max_replies_per_comment"`
	TopCommentsDownloaded int    `json:"top_comments_downloaded"`
	RepliesDownloaded     int    `json:"replies_downloaded"`
	HasMoreComments       bool   `json:"has_more_comments"`
	NextPageToken         string `json:"next_page_token,omitempty"`
	SizeBytes             int64  `json:"size_bytes"`
	LastUpdated           int64  `json:"last_updated"` // unix seconds

	// CompletedAt is non-zero once an ingestion attempt finished, even when
	// the source reported zero comments. Without it, a legitimately
	// zero-comment item would be re-fetched on every run.
	CompletedAt int64 `json:"completed_at,omitempty"`
}

// Complete reports whether ingestion for this item has finished.
func (x *Index) Complete() bool {
	return x.CompletedAt != 0
}

// Comment is a persisted top-level comment or reply record.
type Comment struct {
	ID        string `json:"id"`
	Author    string `json:"author"`
	Timestamp int64  `json:"timestamp"`
	Text      string `json:"text"`
	Likes     int    `json:"likes"`
}

// ReadReply is the reader-facing projection of a persisted reply.
// Consumers expect like_count alongside the persisted likes field.
type ReadReply struct {
	ID        string `json:"id"`
	Author    string `json:"author"`
	Timestamp int64  `json:"timestamp"`
	Text      string `json:"text"`
	Likes     int    `json:"likes"`
	LikeCount int    `json:"like_count"`
}

// ReadComment is the reader-facing projection of a persisted top-level
// comment. Replies are persisted as sibling files and joined at read time;
// the replies array exists only on this in-memory form, never on disk.
type ReadComment struct {
	ID        string      `json:"id"`
	Author    string      `json:"author"`
	Timestamp int64       `json:"timestamp"`
	Text      string      `json:"text"`
	Likes     int         `json:"likes"`
	LikeCount int         `json:"like_count"`
	Replies   []ReadReply `json:"replies"`
}
