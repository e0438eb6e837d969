package store

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"vidvault/internal/fsutil"
)

// Thread provides access to one item's persisted comment subtree: its
// meta.json, index.json, and the numbered comment and reply records.
// All writes go through the atomic writer so a crash mid-write never leaves
// a half-written record that the idempotency check misreads as complete.
type Thread struct {
	dir string
}

// OpenThread returns a Thread rooted at dir. The directory need not exist
// yet; InitDirs creates the structure.
func OpenThread(dir string) *Thread {
	return &Thread{dir: dir}
}

// Dir returns the thread's root directory.
func (t *Thread) Dir() string { return t.dir }

// Exists reports whether the thread directory is present on disk.
func (t *Thread) Exists() bool {
	info, err := os.Stat(t.dir)
	return err == nil && info.IsDir()
}

// InitDirs creates the top-level comments area and the replies area.
func (t *Thread) InitDirs() error {
	for _, sub := range []string{"top", "replies"} {
		if err := os.MkdirAll(filepath.Join(t.dir, sub), 0755); err != nil {
			return &StorageError{Op: "write", Entity: "thread", Path: t.dir, Err: err}
		}
	}
	return nil
}

// WriteMeta persists the item metadata record.
func (t *Thread) WriteMeta(m *Meta) error {
	path := filepath.Join(t.dir, "meta.json")
	if err := fsutil.WriteJSON(path, m); err != nil {
		return &StorageError{Op: "write", Entity: "meta", Path: path, Err: err}
	}
	return nil
}

// ReadMeta loads the item metadata record.
func (t *Thread) ReadMeta() (*Meta, error) {
	path := filepath.Join(t.dir, "meta.json")
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, &StorageError{Op: "read", Entity: "meta", Path: path, Err: ErrNotFound}
		}
		return nil, &StorageError{Op: "read", Entity: "meta", Path: path, Err: err}
	}
	meta := &Meta{}
	if err := json.Unmarshal(data, meta); err != nil {
		return nil, &StorageError{Op: "read", Entity: "meta", Path: path, Err: ErrCorrupt}
	}
	return meta, nil
}

// LoadIndex loads the ingestion index, or returns a fresh one with the
// configured caps if no index has been persisted yet.
func (t *Thread) LoadIndex(maxTop, maxReplies int) (*Index, error) {
	path := filepath.Join(t.dir, "index.json")
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &Index{
				MaxTopComments:       maxTop,
				MaxRepliesPerComment: maxReplies,
				HasMoreComments:      true,
				LastUpdated:          time.Now().Unix(),
			}, nil
		}
		return nil, &StorageError{Op: "read", Entity: "index", Path: path, Err: err}
	}
	idx := &Index{}
	if err := json.Unmarshal(data, idx); err != nil {
		return nil, &StorageError{Op: "read", Entity: "index", Path: path, Err: ErrCorrupt}
	}
	return idx, nil
}

// SaveIndex recomputes the thread's total on-disk size, stamps the update
// time, and persists the index.
func (t *Thread) SaveIndex(idx *Index) error {
	size, err := fsutil.DirSize(t.dir)
	if err == nil {
		idx.SizeBytes = size
	}
	idx.LastUpdated = time.Now().Unix()

	path := filepath.Join(t.dir, "index.json")
	if err := fsutil.WriteJSON(path, idx); err != nil {
		return &StorageError{Op: "write", Entity: "index", Path: path, Err: err}
	}
	return nil
}

// WriteComment persists a top-level comment under its 1-based ordinal.
func (t *Thread) WriteComment(ordinal int, c *Comment) error {
	path := filepath.Join(t.dir, "top", CommentFileName(ordinal))
	if err := fsutil.WriteJSON(path, c); err != nil {
		return &StorageError{Op: "write", Entity: "comment", Path: path, Err: err}
	}
	return nil
}

// WriteReply persists a reply under its parent comment's ordinal group.
func (t *Thread) WriteReply(commentOrdinal, replyOrdinal int, c *Comment) error {
	path := filepath.Join(t.dir, "replies", ReplyGroupName(commentOrdinal), ReplyFileName(replyOrdinal))
	if err := fsutil.WriteJSON(path, c); err != nil {
		return &StorageError{Op: "write", Entity: "reply", Path: path, Err: err}
	}
	return nil
}

// TopCount returns the number of persisted top-level comment records.
// A missing top directory counts as zero.
func (t *Thread) TopCount() int {
	entries, err := os.ReadDir(filepath.Join(t.dir, "top"))
	if err != nil {
		return 0
	}
	n := 0
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".json") {
			n++
		}
	}
	return n
}

// ReplyCount returns the number of persisted reply records across all groups.
func (t *Thread) ReplyCount() int {
	n := 0
	groups, err := os.ReadDir(filepath.Join(t.dir, "replies"))
	if err != nil {
		return 0
	}
	for _, g := range groups {
		if !g.IsDir() {
			continue
		}
		replies, err := os.ReadDir(filepath.Join(t.dir, "replies", g.Name()))
		if err != nil {
			continue
		}
		for _, r := range replies {
			if !r.IsDir() && strings.HasSuffix(r.Name(), ".json") {
				n++
			}
		}
	}
	return n
}

// ReadThread loads all persisted top-level comments in ordinal order and
// joins each one's replies from its sibling reply group. The likes field is
// mirrored into like_count for consumers.
func (t *Thread) ReadThread() ([]ReadComment, error) {
	topDir := filepath.Join(t.dir, "top")
	entries, err := os.ReadDir(topDir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return []ReadComment{}, nil
		}
		return nil, &StorageError{Op: "read", Entity: "comment", Path: topDir, Err: err}
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".json") {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	comments := make([]ReadComment, 0, len(names))
	for _, name := range names {
		var c Comment
		if err := readJSON(filepath.Join(topDir, name), &c); err != nil {
			// Skip unreadable records; the read side reflects what disk holds.
			continue
		}
		rc := ReadComment{
			ID:        c.ID,
			Author:    c.Author,
			Timestamp: c.Timestamp,
			Text:      c.Text,
			Likes:     c.Likes,
			LikeCount: c.Likes,
			Replies:   []ReadReply{},
		}

		group := strings.TrimSuffix(name, ".json")
		rc.Replies = t.readReplies(group)
		comments = append(comments, rc)
	}
	return comments, nil
}

func (t *Thread) readReplies(group string) []ReadReply {
	dir := filepath.Join(t.dir, "replies", group)
	entries, err := os.ReadDir(dir)
	if err != nil {
		return []ReadReply{}
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".json") {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	replies := make([]ReadReply, 0, len(names))
	for _, name := range names {
		var c Comment
		if err := readJSON(filepath.Join(dir, name), &c); err != nil {
			continue
		}
		replies = append(replies, ReadReply{
			ID:        c.ID,
			Author:    c.Author,
			Timestamp: c.Timestamp,
			Text:      c.Text,
			Likes:     c.Likes,
			LikeCount: c.Likes,
		})
	}
	return replies
}

func readJSON(path string, v interface{}) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, v)
}
