// Package server exposes the archive over a thin HTTP read API. Every
// endpoint re-derives its answer from the on-disk layout; the server holds
// no state of its own and tolerates the archive changing under it.
package server

import (
	"context"
	"hash/fnv"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"vidvault/catalog"
	"vidvault/internal/metrics"
	"vidvault/store"
)

const (
	defaultVideosLimit = 20
	defaultShortsLimit = 10
	defaultSearchLimit = 20
)

// Server is the read API over a scanned archive.
type Server struct {
	scanner   *catalog.Scanner
	layout    store.Layout
	staticDir string
	log       zerolog.Logger
	http      *http.Server
}

// New builds the server and its router.
func New(addr string, scanner *catalog.Scanner, layout store.Layout, staticDir string, log zerolog.Logger) *Server {
	s := &Server{
		scanner:   scanner,
		layout:    layout,
		staticDir: staticDir,
		log:       log,
	}
	s.http = &http.Server{
		Addr:    addr,
		Handler: s.routes(),
	}
	return s
}

// ListenAndServe runs the server until Shutdown.
func (s *Server) ListenAndServe() error {
	s.log.Info().Str("addr", s.http.Addr).Msg("server: listening")
	return s.http.ListenAndServe()
}

// Shutdown stops the server gracefully.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}

// SetTimeouts applies HTTP server timeouts before ListenAndServe.
func (s *Server) SetTimeouts(read, write, idle time.Duration) {
	s.http.ReadTimeout = read
	s.http.WriteTimeout = write
	s.http.IdleTimeout = idle
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(s.observe)

	r.Route("/api", func(r chi.Router) {
		r.Get("/videos", s.handleVideos)
		r.Get("/shorts", s.handleShorts)
		r.Get("/videos/search", s.handleSearch)
		r.Get("/video/{videoID}", s.handleVideoFile)
		r.Get("/comments/{videoID}", s.handleComments)
		r.Get("/video-info/{videoID}", s.handleVideoInfo)
	})

	r.Handle("/metrics", promhttp.Handler())
	r.Handle("/static/*", http.StripPrefix("/static/", http.FileServer(http.Dir(s.staticDir))))
	r.Get("/", func(w http.ResponseWriter, req *http.Request) {
		http.ServeFile(w, req, filepath.Join(s.staticDir, "index.html"))
	})

	return r
}

// observe logs each request and records its duration.
func (s *Server) observe(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		elapsed := time.Since(start)
		endpoint := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			endpoint = rctx.RoutePattern()
		}
		metrics.M.RequestDuration.
			WithLabelValues(endpoint, r.Method, strconv.Itoa(ww.Status())).
			Observe(elapsed.Seconds())
		s.log.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Dur("elapsed", elapsed).
			Msg("server: request")
	})
}

// listItem is the wire form for list and search endpoints.
type listItem struct {
	VideoID       string `json:"video_id"`
	Title         string `json:"title"`
	Channel       string `json:"channel"`
	Duration      int    `json:"duration"`
	ThumbnailPath string `json:"thumbnail_path"`
	Type          string `json:"type"`
}

func toListItems(items []catalog.Item) []listItem {
	out := make([]listItem, 0, len(items))
	for _, it := range items {
		out = append(out, listItem{
			VideoID:       it.VideoID,
			Title:         it.Title,
			Channel:       it.Channel,
			Duration:      it.Duration,
			ThumbnailPath: "/static/placeholder.jpg",
			Type:          it.Type,
		})
	}
	return out
}

func (s *Server) handleVideos(w http.ResponseWriter, r *http.Request) {
	s.listByType(w, r, store.CategoryVideo, defaultVideosLimit)
}

func (s *Server) handleShorts(w http.ResponseWriter, r *http.Request) {
	s.listByType(w, r, store.CategoryShorts, defaultShortsLimit)
}

func (s *Server) listByType(w http.ResponseWriter, r *http.Request, typ string, defaultLimit int) {
	items, err := s.scanner.Scan()
	if err != nil {
		s.log.Error().Err(err).Msg("server: scan failed")
		internalError(w, "internal server error")
		return
	}
	filtered := items[:0:0]
	for _, it := range items {
		if it.Type == typ {
			filtered = append(filtered, it)
		}
	}
	shuffleStable(filtered)
	ok(w, toListItems(paginate(filtered, r, defaultLimit)))
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	items, err := s.scanner.Scan()
	if err != nil {
		s.log.Error().Err(err).Msg("server: scan failed")
		internalError(w, "internal server error")
		return
	}
	query := strings.ToLower(r.URL.Query().Get("query"))
	results := items[:0:0]
	for _, it := range items {
		if strings.Contains(strings.ToLower(it.Title), query) ||
			strings.Contains(strings.ToLower(it.Channel), query) {
			results = append(results, it)
		}
	}
	shuffleStable(results)
	ok(w, toListItems(paginate(results, r, defaultSearchLimit)))
}

func (s *Server) handleVideoFile(w http.ResponseWriter, r *http.Request) {
	videoID := chi.URLParam(r, "videoID")
	item, err := s.scanner.FindByID(videoID)
	if err != nil {
		notFound(w, "Video not found")
		return
	}
	if _, err := os.Stat(item.FilePath); err != nil {
		notFound(w, "Video not found")
		return
	}
	// ServeFile handles Range requests, which video players rely on.
	http.ServeFile(w, r, item.FilePath)
}

func (s *Server) handleComments(w http.ResponseWriter, r *http.Request) {
	videoID := chi.URLParam(r, "videoID")
	item, err := s.scanner.FindByID(videoID)
	if err != nil {
		notFound(w, "Comments not found")
		return
	}

	thread := store.OpenThread(item.CommentsPath)
	if !thread.Exists() {
		notFound(w, "Comments not found")
		return
	}
	comments, err := thread.ReadThread()
	if err != nil {
		s.log.Error().Err(err).Str("video_id", videoID).Msg("server: read thread failed")
		internalError(w, "internal server error")
		return
	}
	if comments == nil {
		comments = []store.ReadComment{}
	}
	ok(w, map[string]interface{}{
		"video_id": videoID,
		"comments": comments,
	})
}

func (s *Server) handleVideoInfo(w http.ResponseWriter, r *http.Request) {
	videoID := chi.URLParam(r, "videoID")
	item, err := s.scanner.FindByID(videoID)
	if err != nil {
		notFound(w, "Video not found")
		return
	}
	ok(w, item)
}

// paginate applies skip and limit query parameters.
func paginate(items []catalog.Item, r *http.Request, defaultLimit int) []catalog.Item {
	skip := queryInt(r, "skip", 0)
	limit := queryInt(r, "limit", defaultLimit)
	if skip < 0 {
		skip = 0
	}
	if limit < 0 {
		limit = defaultLimit
	}
	if skip >= len(items) {
		return nil
	}
	end := skip + limit
	if end > len(items) {
		end = len(items)
	}
	return items[skip:end]
}

func queryInt(r *http.Request, key string, fallback int) int {
	v := r.URL.Query().Get(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

// shuffleStable orders items by a hash of their id. The order looks shuffled
// but is identical across requests and processes, so pagination never shows
// duplicates or gaps between pages.
func shuffleStable(items []catalog.Item) {
	sort.Slice(items, func(i, j int) bool {
		hi, hj := idHash(items[i].VideoID), idHash(items[j].VideoID)
		if hi != hj {
			return hi < hj
		}
		return items[i].VideoID < items[j].VideoID
	})
}

func idHash(id string) uint64 {
	h := fnv.New64a()
	h.Write([]byte(id))
	return h.Sum64()
}
