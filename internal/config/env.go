package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// LoggingConfig holds logging-related configuration.
type LoggingConfig struct {
	Level      string
	Pretty     bool
	File       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool
}

// AxiomConfig holds Axiom log forwarding configuration.
type AxiomConfig struct {
	Send          bool
	APIKey        string
	OrgID         string
	Dataset       string
	FlushInterval time.Duration
}

// BookConfig fixes the simulated page geometry the layout compiler measures
// against. Per deployment, never per story: the compiled layout is cached and
// must not drift between runs.
type BookConfig struct {
	PageWidth     float64
	PageHeight    float64
	Padding       float64
	ImageFraction float64
	ImageTextGap  float64
	LineSpacing   float64
	FontSize      float64
	ParagraphGap  float64
	DropCapExtra  float64
}

// QueueConfig defines queue connectivity and names.
type QueueConfig struct {
	RedisURL     string
	Stream       string
	Group        string
	DequeueBlock time.Duration
}

// WorkerConfig defines compile worker behavior.
type WorkerConfig struct {
	Concurrency int
	LockTTL     time.Duration
}

// ServerConfig defines the HTTP surface.
type ServerConfig struct {
	Port           string
	AdminTokenHash string // bcrypt hash of the admin token
	ViewRatePerSec float64
	ViewBurst      int
}

// ArchiveConfig defines the optional S3 archive of compiled layouts.
type ArchiveConfig struct {
	Enabled bool
	Bucket  string
	Prefix  string
}

// Config is the top-level configuration.
type Config struct {
	Logging LoggingConfig
	Axiom   AxiomConfig
	Book    BookConfig
	Queue   QueueConfig
	Worker  WorkerConfig
	Server  ServerConfig
	Archive ArchiveConfig
}

// FromEnv loads configuration from environment with sensible defaults.
func FromEnv() Config {
	cfg := Config{}

	cfg.Logging = LoggingConfig{
		Level:      getEnv("LOG_LEVEL", "info"),
		Pretty:     parseBool(getEnv("LOG_PRETTY", devDefaultPretty())),
		File:       getEnv("LOG_FILE", "logs/storypath.log"),
		MaxSizeMB:  parseInt(getEnv("LOG_MAX_SIZE_MB", "100"), 100),
		MaxBackups: parseInt(getEnv("LOG_MAX_BACKUPS", "10"), 10),
		MaxAgeDays: parseInt(getEnv("LOG_MAX_AGE_DAYS", "30"), 30),
		Compress:   parseBool(getEnv("LOG_COMPRESS", "true")),
	}

	baseDataset := getEnv("AXIOM_DATASET", "dev")
	cfg.Axiom = AxiomConfig{
		Send:          parseBool(getEnv("SEND_LOGS_TO_AXIOM", "0")),
		APIKey:        getEnv("AXIOM_API_KEY", ""),
		OrgID:         getEnv("AXIOM_ORG_ID", ""),
		Dataset:       baseDataset + "_storypath",
		FlushInterval: parseDuration(getEnv("AXIOM_FLUSH_INTERVAL", "10s"), 10*time.Second),
	}

	cfg.Book = BookConfig{
		PageWidth:     parseFloat(getEnv("BOOK_PAGE_WIDTH", "400"), 400),
		PageHeight:    parseFloat(getEnv("BOOK_PAGE_HEIGHT", "600"), 600),
		Padding:       parseFloat(getEnv("BOOK_PADDING", "24"), 24),
		ImageFraction: parseFloat(getEnv("BOOK_IMAGE_FRACTION", "0.45"), 0.45),
		ImageTextGap:  parseFloat(getEnv("BOOK_IMAGE_TEXT_GAP", "16"), 16),
		LineSpacing:   parseFloat(getEnv("BOOK_LINE_SPACING", "1.6"), 1.6),
		FontSize:      parseFloat(getEnv("BOOK_FONT_SIZE", "16"), 16),
		ParagraphGap:  parseFloat(getEnv("BOOK_PARAGRAPH_GAP", "10"), 10),
		DropCapExtra:  parseFloat(getEnv("BOOK_DROPCAP_EXTRA", "28"), 28),
	}

	cfg.Queue = QueueConfig{
		RedisURL:     getEnv("REDIS_URL", "redis://localhost:6379"),
		Stream:       getEnv("QUEUE_STREAM", "jobs:compile:layouts"),
		Group:        getEnv("QUEUE_GROUP", "workers:compile"),
		DequeueBlock: parseDuration(getEnv("QUEUE_DEQUEUE_BLOCK", "2s"), 2*time.Second),
	}

	cfg.Worker = WorkerConfig{
		Concurrency: parseInt(getEnv("WORKER_CONCURRENCY", "2"), 2),
		LockTTL:     parseDuration(getEnv("COMPILE_LOCK_TTL", "10m"), 10*time.Minute),
	}

	cfg.Server = ServerConfig{
		Port:           getEnv("PORT", "8080"),
		AdminTokenHash: getEnv("ADMIN_TOKEN_HASH", ""),
		ViewRatePerSec: parseFloat(getEnv("VIEW_RATE_PER_SEC", "5"), 5),
		ViewBurst:      parseInt(getEnv("VIEW_RATE_BURST", "10"), 10),
	}

	cfg.Archive = ArchiveConfig{
		Enabled: parseBool(getEnv("ARCHIVE_LAYOUTS", "0")),
		Bucket:  getEnv("ARCHIVE_S3_BUCKET", "storypath-layouts-dev"),
		Prefix:  getEnv("ARCHIVE_S3_PREFIX", "layouts"),
	}

	return cfg
}

// Helpers
func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func parseInt(s string, def int) int {
	if s == "" {
		return def
	}
	if n, err := strconv.Atoi(s); err == nil {
		return n
	}
	return def
}

func parseFloat(s string, def float64) float64 {
	if s == "" {
		return def
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f
	}
	return def
}

func parseBool(s string) bool {
	v := strings.ToLower(strings.TrimSpace(s))
	return v == "1" || v == "true" || v == "yes" || v == "on"
}

func parseDuration(s string, def time.Duration) time.Duration {
	if s == "" {
		return def
	}
	if d, err := time.ParseDuration(s); err == nil {
		return d
	}
	return def
}

func devDefaultPretty() string {
	env := strings.ToLower(os.Getenv("ENVIRONMENT"))
	if env == "dev" || env == "development" || env == "local" {
		return "true"
	}
	return "false"
}
