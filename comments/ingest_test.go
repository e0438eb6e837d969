package comments

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"vidvault/store"
	"vidvault/youtube"
)

// fakeSource returns scripted pages and counts calls.
type fakeSource struct {
	pages    []*youtube.CommentPage
	failures int // errors returned before the first success
	calls    int
}

func (f *fakeSource) Comments(ctx context.Context, videoID string, opts youtube.CommentOptions) (*youtube.CommentPage, error) {
	f.calls++
	if f.failures > 0 {
		f.failures--
		return nil, &youtube.ExtractorError{Op: "comments", Target: videoID, Err: errors.New("upstream flake")}
	}
	if len(f.pages) == 0 {
		return &youtube.CommentPage{}, nil
	}
	page := f.pages[0]
	f.pages = f.pages[1:]
	return page, nil
}

func testEngine(t *testing.T, src youtube.CommentSource, cfg Config) *Engine {
	t.Helper()
	cfg.RetryGap = time.Millisecond
	return NewEngine(src, cfg, zerolog.Nop())
}

func testMeta() *store.Meta {
	return &store.Meta{VideoID: "vid1", Title: "Test", Channel: "ch", Duration: 60}
}

func comment(id string, likes int) youtube.RawComment {
	return youtube.RawComment{ID: id, Parent: "root", Author: "a", Text: "t", LikeCount: likes}
}

func reply(id, parent string) youtube.RawComment {
	return youtube.RawComment{ID: id, Parent: parent, Author: "a", Text: "t"}
}

func TestIngest_PersistsSortedAndCapped(t *testing.T) {
	src := &fakeSource{pages: []*youtube.CommentPage{{
		Comments: []youtube.RawComment{
			comment("low", 1),
			comment("high", 100),
			comment("mid", 50),
		},
	}}}
	e := testEngine(t, src, Config{Enabled: true, MaxComments: 2, MaxReplies: 5})
	dir := filepath.Join(t.TempDir(), "vid1")

	if err := e.Ingest(context.Background(), "vid1", testMeta(), dir); err != nil {
		t.Fatalf("Ingest() error = %v", err)
	}

	th := store.OpenThread(dir)
	if got := th.TopCount(); got != 2 {
		t.Fatalf("TopCount() = %d, want 2 (capped)", got)
	}

	// Most liked first, 1-based zero-padded ordinals.
	read, err := th.ReadThread()
	if err != nil {
		t.Fatalf("ReadThread() error = %v", err)
	}
	if read[0].ID != "high" || read[1].ID != "mid" {
		t.Errorf("persisted order = %s,%s, want high,mid", read[0].ID, read[1].ID)
	}

	idx, _ := th.LoadIndex(2, 5)
	if idx.TopCommentsDownloaded != 2 {
		t.Errorf("top_comments_downloaded = %d, want 2", idx.TopCommentsDownloaded)
	}
	if !idx.HasMoreComments {
		t.Error("has_more_comments = false, want true when cap reached")
	}
	if !idx.Complete() {
		t.Error("index not marked complete after successful run")
	}
	if idx.SizeBytes == 0 {
		t.Error("size_bytes = 0, want measured directory size")
	}
}

func TestIngest_MetaPersistedBeforeFetch(t *testing.T) {
	// Source that always fails: meta.json must still exist afterwards.
	src := &fakeSource{failures: 99}
	e := testEngine(t, src, Config{Enabled: true, RetryBudget: 2})
	dir := filepath.Join(t.TempDir(), "vid1")

	if err := e.Ingest(context.Background(), "vid1", testMeta(), dir); err != nil {
		t.Fatalf("Ingest() error = %v, want nil (failures absorbed)", err)
	}

	th := store.OpenThread(dir)
	meta, err := th.ReadMeta()
	if err != nil {
		t.Fatalf("ReadMeta() error = %v, want metadata to survive fetch failure", err)
	}
	if meta.VideoID != "vid1" {
		t.Errorf("meta video_id = %q, want vid1", meta.VideoID)
	}
	if got := th.TopCount(); got != 0 {
		t.Errorf("TopCount() = %d, want 0 after exhausted retries", got)
	}
}

func TestIngest_Idempotent(t *testing.T) {
	src := &fakeSource{pages: []*youtube.CommentPage{{
		Comments: []youtube.RawComment{comment("c1", 10)},
	}}}
	e := testEngine(t, src, Config{Enabled: true})
	dir := filepath.Join(t.TempDir(), "vid1")
	ctx := context.Background()

	if err := e.Ingest(ctx, "vid1", testMeta(), dir); err != nil {
		t.Fatalf("first Ingest() error = %v", err)
	}
	callsAfterFirst := src.calls

	// Snapshot mtimes to prove zero file mutations on re-run.
	mtimes := map[string]time.Time{}
	filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err == nil && !info.IsDir() {
			mtimes[path] = info.ModTime()
		}
		return nil
	})

	if err := e.Ingest(ctx, "vid1", testMeta(), dir); err != nil {
		t.Fatalf("second Ingest() error = %v", err)
	}

	if src.calls != callsAfterFirst {
		t.Errorf("re-run made %d extra network calls, want 0", src.calls-callsAfterFirst)
	}
	filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err == nil && !info.IsDir() {
			if got, ok := mtimes[path]; !ok || !info.ModTime().Equal(got) {
				t.Errorf("file %s was mutated on re-run", path)
			}
		}
		return nil
	})
}

func TestIngest_ZeroComments(t *testing.T) {
	src := &fakeSource{pages: []*youtube.CommentPage{{}}}
	e := testEngine(t, src, Config{Enabled: true, MaxComments: 50, MaxReplies: 120})
	dir := filepath.Join(t.TempDir(), "vid1")
	ctx := context.Background()

	if err := e.Ingest(ctx, "vid1", testMeta(), dir); err != nil {
		t.Fatalf("Ingest() error = %v", err)
	}

	th := store.OpenThread(dir)
	if _, err := th.ReadMeta(); err != nil {
		t.Errorf("meta.json missing after zero-comment run: %v", err)
	}
	idx, err := th.LoadIndex(50, 120)
	if err != nil {
		t.Fatalf("LoadIndex() error = %v", err)
	}
	if idx.TopCommentsDownloaded != 0 {
		t.Errorf("top_comments_downloaded = %d, want 0", idx.TopCommentsDownloaded)
	}
	if got := th.TopCount(); got != 0 {
		t.Errorf("TopCount() = %d, want 0", got)
	}
	if !idx.Complete() {
		t.Error("zero-comment index not marked complete")
	}

	// Re-run skips via the completion flag, without touching the network.
	calls := src.calls
	if err := e.Ingest(ctx, "vid1", testMeta(), dir); err != nil {
		t.Fatalf("re-run Ingest() error = %v", err)
	}
	if src.calls != calls {
		t.Errorf("zero-comment re-run made %d extra calls, want 0", src.calls-calls)
	}
}

func TestIngest_OrphanReplyDropped(t *testing.T) {
	src := &fakeSource{pages: []*youtube.CommentPage{{
		Comments: []youtube.RawComment{
			comment("c1", 10),
			reply("r1", "c1"),
			reply("r2", "c1"),
			reply("orphan", "unknown-parent"),
		},
	}}}
	e := testEngine(t, src, Config{Enabled: true})
	dir := filepath.Join(t.TempDir(), "vid1")

	if err := e.Ingest(context.Background(), "vid1", testMeta(), dir); err != nil {
		t.Fatalf("Ingest() error = %v", err)
	}

	th := store.OpenThread(dir)
	if got := th.TopCount(); got != 1 {
		t.Errorf("TopCount() = %d, want 1", got)
	}
	if got := th.ReplyCount(); got != 2 {
		t.Errorf("ReplyCount() = %d, want 2 (orphan dropped)", got)
	}

	idx, _ := th.LoadIndex(0, 0)
	if idx.TopCommentsDownloaded != 1 || idx.RepliesDownloaded != 2 {
		t.Errorf("index counts = %d/%d, want 1/2 matching files on disk",
			idx.TopCommentsDownloaded, idx.RepliesDownloaded)
	}
}

func TestIngest_RepliesCapped(t *testing.T) {
	page := &youtube.CommentPage{Comments: []youtube.RawComment{comment("c1", 10)}}
	for i := 0; i < 10; i++ {
		page.Comments = append(page.Comments, reply("r", "c1"))
	}
	src := &fakeSource{pages: []*youtube.CommentPage{page}}
	e := testEngine(t, src, Config{Enabled: true, MaxReplies: 3})
	dir := filepath.Join(t.TempDir(), "vid1")

	if err := e.Ingest(context.Background(), "vid1", testMeta(), dir); err != nil {
		t.Fatalf("Ingest() error = %v", err)
	}
	if got := store.OpenThread(dir).ReplyCount(); got != 3 {
		t.Errorf("ReplyCount() = %d, want cap of 3", got)
	}
}

func TestIngest_RetriesUntilSuccess(t *testing.T) {
	src := &fakeSource{
		failures: 3,
		pages:    []*youtube.CommentPage{{Comments: []youtube.RawComment{comment("c1", 1)}}},
	}
	e := testEngine(t, src, Config{Enabled: true, RetryBudget: 5})
	dir := filepath.Join(t.TempDir(), "vid1")

	if err := e.Ingest(context.Background(), "vid1", testMeta(), dir); err != nil {
		t.Fatalf("Ingest() error = %v", err)
	}
	if got := store.OpenThread(dir).TopCount(); got != 1 {
		t.Errorf("TopCount() = %d, want 1 after retried success", got)
	}
	if src.calls != 4 {
		t.Errorf("source called %d times, want 4 (3 failures + success)", src.calls)
	}
}

func TestIngest_ExhaustedBudgetLeavesNoComments(t *testing.T) {
	src := &fakeSource{
		failures: 3,
		pages:    []*youtube.CommentPage{{Comments: []youtube.RawComment{comment("c1", 1)}}},
	}
	e := testEngine(t, src, Config{Enabled: true, RetryBudget: 2})
	dir := filepath.Join(t.TempDir(), "vid1")

	if err := e.Ingest(context.Background(), "vid1", testMeta(), dir); err != nil {
		t.Fatalf("Ingest() error = %v, want nil (failure absorbed)", err)
	}
	if got := store.OpenThread(dir).TopCount(); got != 0 {
		t.Errorf("TopCount() = %d, want 0 after exhausted budget", got)
	}
	if src.calls != 2 {
		t.Errorf("source called %d times, want budget of 2", src.calls)
	}
}

func TestIngest_Disabled(t *testing.T) {
	src := &fakeSource{}
	e := testEngine(t, src, Config{Enabled: false})
	dir := filepath.Join(t.TempDir(), "vid1")

	if err := e.Ingest(context.Background(), "vid1", testMeta(), dir); err != nil {
		t.Fatalf("Ingest() error = %v", err)
	}
	if src.calls != 0 {
		t.Errorf("disabled engine made %d calls, want 0", src.calls)
	}
	if _, err := os.Stat(dir); !os.IsNotExist(err) {
		t.Error("disabled engine touched the destination directory")
	}
}

func TestIngest_ResumesFromToken(t *testing.T) {
	src := &fakeSource{pages: []*youtube.CommentPage{
		{
			Comments:      []youtube.RawComment{comment("p1a", 9), comment("p1b", 8)},
			NextPageToken: "tok-2",
		},
		{
			Comments: []youtube.RawComment{comment("p2a", 7)},
		},
	}}
	e := testEngine(t, src, Config{Enabled: true, MaxComments: 10})
	dir := filepath.Join(t.TempDir(), "vid1")
	ctx := context.Background()

	if err := e.Ingest(ctx, "vid1", testMeta(), dir); err != nil {
		t.Fatalf("first Ingest() error = %v", err)
	}

	th := store.OpenThread(dir)
	idx, _ := th.LoadIndex(10, 120)
	if idx.NextPageToken != "tok-2" {
		t.Fatalf("next_page_token = %q, want tok-2", idx.NextPageToken)
	}
	if idx.Complete() {
		t.Fatal("index marked complete with a pending continuation token")
	}
	if !idx.HasMoreComments {
		t.Error("has_more_comments = false with a pending continuation token")
	}

	// Re-run resumes from the token and appends with continuing ordinals.
	if err := e.Ingest(ctx, "vid1", testMeta(), dir); err != nil {
		t.Fatalf("resume Ingest() error = %v", err)
	}

	idx, _ = th.LoadIndex(10, 120)
	if idx.TopCommentsDownloaded != 3 {
		t.Errorf("top_comments_downloaded = %d, want 3 (monotonic accumulation)", idx.TopCommentsDownloaded)
	}
	if idx.NextPageToken != "" {
		t.Errorf("next_page_token = %q, want cleared after final page", idx.NextPageToken)
	}
	if !idx.Complete() {
		t.Error("index not complete after final page")
	}

	read, err := th.ReadThread()
	if err != nil {
		t.Fatalf("ReadThread() error = %v", err)
	}
	if len(read) != 3 || read[2].ID != "p2a" {
		t.Errorf("resumed thread = %d comments ending %q, want 3 ending p2a", len(read), read[len(read)-1].ID)
	}
}
