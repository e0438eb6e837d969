// Package config manages application configuration. Values are layered:
// built-in defaults, then an optional YAML file, then environment variables,
// with the environment winning.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

// Config holds all application configuration for archiving and serving.
type Config struct {
	// ContentDir is the root of the on-disk archive.
	ContentDir string `yaml:"content_dir" env:"VIDVAULT_CONTENT_DIR" env-default:"content"`
	// ChannelsFile lists the channels to archive and their ceilings.
	ChannelsFile string `yaml:"channels_file" env:"VIDVAULT_CHANNELS_FILE" env-default:"channels.json"`
	// StaticDir holds the files served under /static and the index page.
	StaticDir string `yaml:"static_dir" env:"VIDVAULT_STATIC_DIR" env-default:"static"`

	// Quality caps the downloaded video height in pixels.
	Quality int `yaml:"quality" env:"VIDVAULT_QUALITY" env-default:"720"`
	// OverFetch is the listing multiplier over the channel ceiling.
	OverFetch int `yaml:"over_fetch" env:"VIDVAULT_OVER_FETCH" env-default:"5"`

	// YtdlpPath is the path to the yt-dlp executable.
	YtdlpPath string `yaml:"ytdlp_path" env:"VIDVAULT_YTDLP_PATH" env-default:"yt-dlp"`
	// YtdlpTimeout is the maximum time to wait for one extractor call.
	YtdlpTimeout time.Duration `yaml:"ytdlp_timeout" env:"VIDVAULT_YTDLP_TIMEOUT" env-default:"10m"`
	// ExtractorRPS paces extractor subprocess launches per second.
	ExtractorRPS float64 `yaml:"extractor_rps" env:"VIDVAULT_EXTRACTOR_RPS" env-default:"1"`

	// APIKey enables the Data API comment source with real pagination.
	// When empty, comments come from the extractor in a single shot.
	APIKey string `yaml:"api_key" env:"VIDVAULT_YOUTUBE_API_KEY"`

	Comments Comments `yaml:"comments"`
	Server   Server   `yaml:"server"`

	// LogLevel is one of trace, debug, info, warn, error.
	LogLevel string `yaml:"log_level" env:"VIDVAULT_LOG_LEVEL" env-default:"info"`
}

// Comments holds comment-ingestion configuration.
type Comments struct {
	Enabled     bool          `yaml:"enabled" env:"VIDVAULT_DOWNLOAD_COMMENTS" env-default:"true"`
	MaxComments int           `yaml:"max_comments" env:"VIDVAULT_MAX_COMMENTS" env-default:"50"`
	MaxReplies  int           `yaml:"max_replies" env:"VIDVAULT_MAX_REPLIES" env-default:"120"`
	Attempts    int           `yaml:"attempts" env:"VIDVAULT_COMMENT_ATTEMPTS" env-default:"5"`
	RetryGap    time.Duration `yaml:"retry_gap" env:"VIDVAULT_COMMENT_RETRY_GAP" env-default:"1s"`
}

// Server holds HTTP server configuration.
type Server struct {
	Host         string        `yaml:"host" env:"VIDVAULT_SERVER_HOST" env-default:"0.0.0.0"`
	Port         string        `yaml:"port" env:"VIDVAULT_SERVER_PORT" env-default:"8000"`
	ReadTimeout  time.Duration `yaml:"read_timeout" env:"VIDVAULT_SERVER_READ_TIMEOUT" env-default:"15s"`
	WriteTimeout time.Duration `yaml:"write_timeout" env:"VIDVAULT_SERVER_WRITE_TIMEOUT" env-default:"60s"`
	IdleTimeout  time.Duration `yaml:"idle_timeout" env:"VIDVAULT_SERVER_IDLE_TIMEOUT" env-default:"60s"`
}

// Address returns the full listen address.
func (s Server) Address() string {
	return s.Host + ":" + s.Port
}

// Load loads configuration from an optional YAML file and the environment.
// path may be empty; a missing file is not an error.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if path != "" {
		if _, err := os.Stat(path); err == nil {
			if err := cleanenv.ReadConfig(path, &cfg); err != nil {
				return nil, fmt.Errorf("read config %s: %w", path, err)
			}
		} else if !os.IsNotExist(err) {
			return nil, fmt.Errorf("stat config %s: %w", path, err)
		}
	}
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("read env: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks that configuration values are valid and consistent.
func (c *Config) Validate() error {
	if c.ContentDir == "" {
		return fmt.Errorf("content_dir must not be empty")
	}
	if c.Quality <= 0 {
		return fmt.Errorf("quality must be positive")
	}
	if c.OverFetch <= 0 {
		return fmt.Errorf("over_fetch must be positive")
	}
	if c.YtdlpTimeout <= 0 {
		return fmt.Errorf("ytdlp_timeout must be positive")
	}
	if c.ExtractorRPS <= 0 {
		return fmt.Errorf("extractor_rps must be positive")
	}
	if c.Comments.MaxComments <= 0 {
		return fmt.Errorf("max_comments must be positive")
	}
	if c.Comments.MaxReplies < 0 {
		return fmt.Errorf("max_replies must be non-negative")
	}
	if c.Comments.Attempts <= 0 {
		return fmt.Errorf("comment attempts must be positive")
	}
	if c.Comments.RetryGap <= 0 {
		return fmt.Errorf("comment retry_gap must be positive")
	}
	return nil
}
