// Package store defines the on-disk layout of the archive and the JSON
// records persisted inside it. The filesystem is the database: directories
// are collections, JSON files are records, and file presence is the
// existence check.
//
// Per-channel layout under the content root:
//
//	<channel>/videos/<title> [<video_id>].<ext>
//	<channel>/shorts/<title> [<video_id>].<ext>
//	<channel>/comments/<video_id>/meta.json
//	<channel>/comments/<video_id>/index.json
//	<channel>/comments/<video_id>/top/c_00001.json ...
//	<channel>/comments/<video_id>/replies/c_00001/r_00001.json ...
package store

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Item categories. The category is decided once at download time from frame
// aspect ratio and never changes afterwards.
const (
	CategoryVideo  = "video"
	CategoryShorts = "shorts"
)

// Media file extensions the archive recognizes.
var mediaExts = map[string]bool{
	".mp4":  true,
	".mkv":  true,
	".webm": true,
	".mov":  true,
	".flv":  true,
	".m4a":  true,
}

// IsMediaFile reports whether name has a recognized media extension.
func IsMediaFile(name string) bool {
	return mediaExts[strings.ToLower(filepath.Ext(name))]
}

// Layout resolves paths inside a content root directory.
type Layout struct {
	Root string
}

// ChannelDir returns the directory owning all of a channel's content.
func (l Layout) ChannelDir(channel string) string {
	return filepath.Join(l.Root, channel)
}

// VideosDir returns the channel's regular-video media directory.
func (l Layout) VideosDir(channel string) string {
	return filepath.Join(l.Root, channel, "videos")
}

// ShortsDir returns the channel's shorts media directory.
func (l Layout) ShortsDir(channel string) string {
	return filepath.Join(l.Root, channel, "shorts")
}

// MediaDir returns the media directory for the given category.
func (l Layout) MediaDir(channel, category string) string {
	if category == CategoryShorts {
		return l.ShortsDir(channel)
	}
	return l.VideosDir(channel)
}

// CommentsDir returns the channel's comment-subtree root.
func (l Layout) CommentsDir(channel string) string {
	return filepath.Join(l.Root, channel, "comments")
}

// ThreadDir returns the comment subtree for one item.
func (l Layout) ThreadDir(channel, videoID string) string {
	return filepath.Join(l.Root, channel, "comments", videoID)
}

// MediaFileName builds the canonical media file stem "<title> [<id>]".
// The extension is chosen by the downloader.
func MediaFileName(title, videoID string) string {
	return fmt.Sprintf("%s [%s]", SanitizeTitle(title), videoID)
}

// SanitizeTitle replaces characters that are invalid in filenames.
func SanitizeTitle(s string) string {
	replacements := []string{"/", "\\", ":", "*", "?", "\"", "<", ">", "|"}
	result := s
	for _, char := range replacements {
		result = strings.ReplaceAll(result, char, "_")
	}
	return result
}

// ParseVideoID extracts the external video id from a media filename.
// The id is the content of the last matching square brackets in the stem
// ("Title [dQw4w9WgXcQ].mp4" -> "dQw4w9WgXcQ"). If no brackets are present
// the full stem is used as a fallback id.
func ParseVideoID(filename string) string {
	stem := strings.TrimSuffix(filepath.Base(filename), filepath.Ext(filename))

	open := strings.LastIndex(stem, "[")
	if open < 0 {
		return stem
	}
	rest := stem[open+1:]
	close := strings.Index(rest, "]")
	if close < 0 {
		return stem
	}
	id := strings.TrimSpace(rest[:close])
	if id == "" {
		return stem
	}
	return id
}

// CommentFileName returns the 1-based zero-padded top-level record name,
// e.g. ordinal 1 -> "c_00001.json".
func CommentFileName(ordinal int) string {
	return fmt.Sprintf("c_%05d.json", ordinal)
}

// ReplyGroupName returns the per-comment reply directory name keyed by the
// parent comment's ordinal, e.g. ordinal 1 -> "c_00001".
func ReplyGroupName(ordinal int) string {
	return fmt.Sprintf("c_%05d", ordinal)
}

// ReplyFileName returns the 1-based zero-padded reply record name.
func ReplyFileName(ordinal int) string {
	return fmt.Sprintf("r_%05d.json", ordinal)
}
