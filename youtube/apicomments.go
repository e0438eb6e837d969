package youtube

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	youtubeapi "google.golang.org/api/youtube/v3"
)

// APIComments fetches ranked comment threads through the YouTube Data API
// v3. Unlike the yt-dlp source it paginates with real continuation tokens,
// so an interrupted ingestion can resume from where it stopped instead of
// refetching page one.
type APIComments struct {
	service *youtubeapi.Service
}

// NewAPIComments creates a Data API comment source using an API key.
func NewAPIComments(ctx context.Context, apiKey string) (*APIComments, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("youtube: api key required")
	}
	service, err := youtubeapi.NewService(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("youtube: create api service: %w", err)
	}
	return &APIComments{service: service}, nil
}

// Comments fetches one page of top-level comments with their replies,
// ordered by relevance (most engaged first). The page size is bounded by
// opts.MaxTop up to the API's limit of 100 threads per page.
func (a *APIComments) Comments(ctx context.Context, videoID string, opts CommentOptions) (*CommentPage, error) {
	pageSize := int64(opts.MaxTop)
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 100
	}

	call := a.service.CommentThreads.List([]string{"snippet", "replies"}).
		VideoId(videoID).
		Order("relevance").
		TextFormat("plainText").
		MaxResults(pageSize).
		Context(ctx)
	if opts.PageToken != "" {
		call = call.PageToken(opts.PageToken)
	}

	resp, err := call.Do()
	if err != nil {
		return nil, &ExtractorError{Op: "comments", Target: videoID, Err: classifyAPIError(err)}
	}

	var comments []RawComment
	for _, thread := range resp.Items {
		if thread.Snippet == nil || thread.Snippet.TopLevelComment == nil {
			continue
		}
		top := thread.Snippet.TopLevelComment
		comments = append(comments, rawFromAPI(top, "root"))

		if thread.Replies == nil {
			continue
		}
		max := opts.MaxReplies
		for i, reply := range thread.Replies.Comments {
			if max > 0 && i >= max {
				break
			}
			comments = append(comments, rawFromAPI(reply, top.Id))
		}
	}

	return &CommentPage{
		Comments:      comments,
		NextPageToken: resp.NextPageToken,
	}, nil
}

func rawFromAPI(c *youtubeapi.Comment, parent string) RawComment {
	raw := RawComment{
		ID:     c.Id,
		Parent: parent,
	}
	if c.Snippet != nil {
		raw.Author = c.Snippet.AuthorDisplayName
		raw.Text = c.Snippet.TextDisplay
		raw.LikeCount = int(c.Snippet.LikeCount)
		if t, err := time.Parse(time.RFC3339, c.Snippet.PublishedAt); err == nil {
			raw.Timestamp = t.Unix()
		}
	}
	return raw
}

// classifyAPIError maps Data API failures onto the shared error taxonomy.
func classifyAPIError(err error) error {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		switch {
		case gerr.Code == 403 && containsReason(gerr, "commentsDisabled"):
			// Disabled comments behave like an empty thread upstream;
			// treat as unavailable so the caller skips without retrying.
			return ErrVideoUnavailable
		case gerr.Code == 403 && (containsReason(gerr, "quotaExceeded") || containsReason(gerr, "rateLimitExceeded")):
			return ErrRateLimited
		case gerr.Code == 404:
			return ErrVideoUnavailable
		case gerr.Code == 429:
			return ErrRateLimited
		}
	}
	if strings.Contains(err.Error(), "timeout") {
		return ErrNetworkTimeout
	}
	return err
}

func containsReason(err *googleapi.Error, reason string) bool {
	for _, e := range err.Errors {
		if e.Reason == reason {
			return true
		}
	}
	return false
}
