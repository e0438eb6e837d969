package youtube

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"vidvault/internal/metrics"
	"vidvault/store"
)

const (
	defaultYtdlpPath    = "yt-dlp"
	defaultYtdlpTimeout = 10 * time.Minute
)

// Ytdlp implements Source using yt-dlp as a subprocess. Invocations are
// paced through a token bucket because the upstream is rate sensitive and
// the whole pipeline is deliberately sequential.
type Ytdlp struct {
	// Path is the path to the yt-dlp executable. Defaults to "yt-dlp".
	Path string

	// Timeout is the maximum time to wait for one yt-dlp invocation.
	// Defaults to 10 minutes.
	Timeout time.Duration

	// Quality is the resolution ceiling for downloads (e.g. 720).
	Quality int

	// ExtraArgs are additional arguments passed to every invocation.
	ExtraArgs []string

	limiter *rate.Limiter
}

// NewYtdlp creates a yt-dlp source with the given download resolution
// ceiling, pacing invocations at rps requests per second.
func NewYtdlp(quality int, rps float64) *Ytdlp {
	if rps <= 0 {
		rps = 1
	}
	return &Ytdlp{
		Path:    defaultYtdlpPath,
		Timeout: defaultYtdlpTimeout,
		Quality: quality,
		limiter: rate.NewLimiter(rate.Limit(rps), 1),
	}
}

// CheckInstalled verifies that yt-dlp is available.
func (y *Ytdlp) CheckInstalled(ctx context.Context) error {
	cmd := exec.CommandContext(ctx, y.path(), "--version")
	if err := cmd.Run(); err != nil {
		return &ExtractorError{Op: "version", Target: "", Err: ErrYtdlpNotInstalled}
	}
	return nil
}

// ListUploads fetches up to limit entries from the channel's videos tab,
// newest first, using a flat playlist extraction.
func (y *Ytdlp) ListUploads(ctx context.Context, channelName string, limit int) ([]VideoEntry, error) {
	url := fmt.Sprintf("https://www.youtube.com/@%s/videos", channelName)
	args := []string{
		"--flat-playlist",
		"-J",
		"--no-warnings",
	}
	if limit > 0 {
		args = append(args, "--playlist-end", fmt.Sprintf("%d", limit))
	}
	args = append(args, url)

	out, err := y.run(ctx, "list", channelName, args)
	if err != nil {
		return nil, err
	}

	var playlist ytdlpPlaylist
	if err := json.Unmarshal(out, &playlist); err != nil {
		return nil, &ExtractorError{Op: "list", Target: channelName,
			Err: fmt.Errorf("parse yt-dlp output: %w", err)}
	}

	entries := make([]VideoEntry, 0, len(playlist.Entries))
	for _, e := range playlist.Entries {
		if e.ID == "" {
			// Unavailable entries come back as null/empty; skip them.
			continue
		}
		url := e.URL
		if url == "" {
			url = "https://www.youtube.com/watch?v=" + e.ID
		}
		entries = append(entries, VideoEntry{ID: e.ID, Title: e.Title, URL: url})
	}
	return entries, nil
}

// Probe extracts full metadata for one item, including frame dimensions.
func (y *Ytdlp) Probe(ctx context.Context, videoID string) (*VideoDetails, error) {
	args := []string{"-J", "--no-warnings", videoID}

	out, err := y.run(ctx, "probe", videoID, args)
	if err != nil {
		return nil, err
	}

	var info ytdlpInfo
	if err := json.Unmarshal(out, &info); err != nil {
		return nil, &ExtractorError{Op: "probe", Target: videoID,
			Err: fmt.Errorf("parse yt-dlp output: %w", err)}
	}
	if info.ID == "" || info.Title == "" {
		return nil, &ExtractorError{Op: "probe", Target: videoID,
			Err: fmt.Errorf("invalid metadata: missing id or title")}
	}

	return &VideoDetails{
		ID:           info.ID,
		Title:        info.Title,
		Channel:      firstNonEmpty(info.Channel, info.Uploader),
		UploadDate:   info.UploadDate,
		Duration:     int(info.Duration),
		Width:        info.Width,
		Height:       info.Height,
		IsLive:       info.IsLive,
		LiveStatus:   info.LiveStatus,
		CommentCount: info.CommentCount,
		WebpageURL:   info.WebpageURL,
	}, nil
}

// Download fetches the item's media into destDir at the configured
// resolution ceiling and returns the final file path.
func (y *Ytdlp) Download(ctx context.Context, videoID, destDir, stem string) (string, error) {
	if err := os.MkdirAll(destDir, 0755); err != nil {
		return "", &ExtractorError{Op: "download", Target: videoID,
			Err: fmt.Errorf("create output directory: %w", err)}
	}

	quality := y.Quality
	if quality <= 0 {
		quality = 720
	}
	template := filepath.Join(destDir, stem+".%(ext)s")
	args := []string{
		"-f", fmt.Sprintf("bestvideo[height<=%d]+bestaudio/best[height<=%d]", quality, quality),
		"-o", template,
		"--no-warnings",
		"--print", "after_move:filepath",
		videoID,
	}

	out, err := y.run(ctx, "download", videoID, args)
	if err != nil {
		return "", err
	}

	// yt-dlp prints the final path; it is the last non-empty line.
	lines := strings.Split(strings.TrimSpace(string(out)), "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		line := strings.TrimSpace(lines[i])
		if line != "" && strings.Contains(line, string(os.PathSeparator)) {
			return line, nil
		}
	}

	// Fall back to probing the destination for the expected stem.
	if path := findDownloaded(destDir, stem); path != "" {
		return path, nil
	}
	return "", &ExtractorError{Op: "download", Target: videoID,
		Err: fmt.Errorf("downloaded file not found for %q", stem)}
}

// Comments fetches a ranked, capped comment set for one video. yt-dlp
// extraction is single-shot: the returned page never carries a
// continuation token.
func (y *Ytdlp) Comments(ctx context.Context, videoID string, opts CommentOptions) (*CommentPage, error) {
	// max-comments format: total,max-parents,max-replies,max-replies-per-thread.
	// comment-sort=top ranks by popularity instead of recency.
	extractorArgs := fmt.Sprintf("youtube:max-comments=%d,all,%d,10;comment-sort=top",
		opts.MaxTop, opts.MaxReplies)
	args := []string{
		"--skip-download",
		"-J",
		"--no-warnings",
		"--write-comments",
		"--extractor-args", extractorArgs,
		videoID,
	}

	out, err := y.run(ctx, "comments", videoID, args)
	if err != nil {
		return nil, err
	}

	var info struct {
		Comments []ytdlpComment `json:"comments"`
	}
	if err := json.Unmarshal(out, &info); err != nil {
		return nil, &ExtractorError{Op: "comments", Target: videoID,
			Err: fmt.Errorf("parse yt-dlp output: %w", err)}
	}

	comments := make([]RawComment, 0, len(info.Comments))
	for _, c := range info.Comments {
		comments = append(comments, RawComment{
			ID:        c.ID,
			Parent:    c.Parent,
			Author:    c.Author,
			Text:      c.Text,
			Timestamp: c.Timestamp,
			LikeCount: c.LikeCount,
		})
	}
	return &CommentPage{Comments: comments}, nil
}

// run executes one paced yt-dlp invocation and classifies failures.
func (y *Ytdlp) run(ctx context.Context, op, target string, args []string) ([]byte, error) {
	if y.limiter != nil {
		if err := y.limiter.Wait(ctx); err != nil {
			return nil, &ExtractorError{Op: op, Target: target, Err: err}
		}
	}

	timeout := y.Timeout
	if timeout == 0 {
		timeout = defaultYtdlpTimeout
	}
	cmdCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	full := append(append([]string{}, y.ExtraArgs...), args...)
	cmd := exec.CommandContext(cmdCtx, y.path(), full...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		metrics.M.ExtractorFailures.Inc()

		if cmdCtx.Err() == context.DeadlineExceeded {
			return nil, &ExtractorError{Op: op, Target: target, Err: ErrNetworkTimeout}
		}
		if cmdCtx.Err() == context.Canceled {
			return nil, &ExtractorError{Op: op, Target: target, Err: context.Canceled}
		}
		return nil, &ExtractorError{Op: op, Target: target,
			Err: classifyStderr(stderr.String(), err)}
	}
	return stdout.Bytes(), nil
}

func (y *Ytdlp) path() string {
	if y.Path != "" {
		return y.Path
	}
	return defaultYtdlpPath
}

// classifyStderr maps yt-dlp stderr patterns onto the error taxonomy.
func classifyStderr(stderr string, err error) error {
	msg := strings.ToLower(stderr)
	switch {
	case strings.Contains(msg, "private") ||
		strings.Contains(msg, "unavailable") ||
		strings.Contains(msg, "sign in") ||
		strings.Contains(msg, "members-only") ||
		strings.Contains(msg, "live event"):
		return ErrVideoUnavailable
	case strings.Contains(msg, "not found") || strings.Contains(msg, "does not exist"):
		return ErrChannelNotFound
	case strings.Contains(msg, "429") || strings.Contains(msg, "rate"):
		return ErrRateLimited
	}
	if stderr != "" {
		return fmt.Errorf("yt-dlp failed: %w: %s", err, strings.TrimSpace(stderr))
	}
	return fmt.Errorf("yt-dlp failed: %w", err)
}

// findDownloaded looks for a media file with the expected stem in dir.
func findDownloaded(dir, stem string) string {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return ""
	}
	for _, e := range entries {
		if e.IsDir() || !store.IsMediaFile(e.Name()) {
			continue
		}
		name := e.Name()
		if strings.TrimSuffix(name, filepath.Ext(name)) == stem {
			return filepath.Join(dir, name)
		}
	}
	return ""
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// ytdlpPlaylist is yt-dlp's JSON output for a flat playlist extraction.
type ytdlpPlaylist struct {
	ID      string       `json:"id"`
	Title   string       `json:"title"`
	Entries []ytdlpEntry `json:"entries"`
}

type ytdlpEntry struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	URL   string `json:"url"`
}

// ytdlpInfo is yt-dlp's JSON output for a single-video extraction.
type ytdlpInfo struct {
	ID           string  `json:"id"`
	Title        string  `json:"title"`
	Channel      string  `json:"channel"`
	Uploader     string  `json:"uploader"`
	UploadDate   string  `json:"upload_date"`
	Duration     float64 `json:"duration"`
	Width        int     `json:"width"`
	Height       int     `json:"height"`
	IsLive       bool    `json:"is_live"`
	LiveStatus   string  `json:"live_status"`
	CommentCount int64   `json:"comment_count"`
	WebpageURL   string  `json:"webpage_url"`
}

// ytdlpComment is one comment record in yt-dlp's JSON output.
type ytdlpComment struct {
	ID        string `json:"id"`
	Parent    string `json:"parent"`
	Author    string `json:"author"`
	Text      string `json:"text"`
	Timestamp int64  `json:"timestamp"`
	LikeCount int    `json:"like_count"`
}
