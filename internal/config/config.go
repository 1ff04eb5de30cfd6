// Package config provides application configuration loaded from environment
// variables with defaults and validation. It centralizes application settings
// such as server timeouts, logging, chat-backend credentials, store
// selection, tracker mirroring, and observability.
package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"
)

// Store drivers.
const (
	StoreSQLite = "sqlite"
	StoreFile   = "file"
	StoreOff    = "off"
)

// CORSConfig defines Cross-Origin Resource Sharing settings for the admin API.
type CORSConfig struct {
	AllowedOrigins []string
}

// SecurityConfig defines security-related settings such as HSTS.
type SecurityConfig struct {
	EnableHSTS bool
	HSTSMaxAge time.Duration
}

// OTELConfig defines OpenTelemetry observability settings.
type OTELConfig struct {
	Enabled     bool    // OTEL_ENABLED
	Endpoint    string  // OTEL_EXPORTER_OTLP_ENDPOINT (e.g. "otel:4317")
	Insecure    bool    // OTEL_EXPORTER_OTLP_INSECURE (true if no TLS)
	ServiceName string  // OTEL_SERVICE_NAME (e.g. "meetings-dify-bot")
	SampleRatio float64 // OTEL_TRACES_SAMPLER_ARG in [0..1]
}

// TelegramConfig holds bot credentials and webhook protection.
type TelegramConfig struct {
	Token         string        // TELEGRAM_TOKEN (required)
	WebhookSecret string        // TELEGRAM_WEBHOOK_SECRET (required)
	ChunkSize     int           // TELEGRAM_CHUNK_SIZE (bytes per message part)
	ChunkPause    time.Duration // TELEGRAM_CHUNK_PAUSE between parts
}

// ChatBackendConfig holds the chat-completion collaborator settings.
type ChatBackendConfig struct {
	BaseURL string        // DIFY_API_URL (required)
	APIKey  string        // DIFY_API_KEY (required)
	Timeout time.Duration // DIFY_TIMEOUT per-call bound
}

// TrackerConfig holds the task-tracker mirror settings. The mirror is
// enabled only when every value is present; otherwise the feature is
// disabled at startup (logged, not fatal).
type TrackerConfig struct {
	BaseURL string        // TRACKER_BASE_URL
	Token   string        // TRACKER_ACCESS_TOKEN
	FormID  int           // TRACKER_FORM_ID
	Timeout time.Duration // TRACKER_TIMEOUT

	// Numeric form-field ids of the tracker form.
	FieldChatID         int // TRACKER_FIELD_CHAT_ID
	FieldFullName       int // TRACKER_FIELD_FULL_NAME
	FieldTeamID         int // TRACKER_FIELD_TEAM_ID
	FieldConversationID int // TRACKER_FIELD_CONVERSATION_ID
	FieldLastSummary    int // TRACKER_FIELD_LAST_SUMMARY
}

// Enabled reports whether the mirror is fully configured.
func (t TrackerConfig) Enabled() bool {
	return t.BaseURL != "" && t.Token != "" && t.FormID != 0 &&
		t.FieldChatID != 0 && t.FieldFullName != 0 && t.FieldTeamID != 0 &&
		t.FieldConversationID != 0 && t.FieldLastSummary != 0
}

// StoreConfig selects and parameterizes the summary store.
type StoreConfig struct {
	Driver   string // STORE_DRIVER: sqlite | file | off
	DBPath   string // DB_PATH (sqlite driver)
	FilePath string // ANSWERS_PATH (file driver)
}

// Config holds all configuration values for the application.
type Config struct {
	// Server
	Port              string        // just the number
	ReadTimeout       time.Duration // e.g. 15s
	ReadHeaderTimeout time.Duration // e.g. 10s
	WriteTimeout      time.Duration // e.g. 90s (webhook turns block on the backend)
	IdleTimeout       time.Duration // e.g. 60s
	MaxHeaderBytes    int           // bytes
	GinMode           string        // debug|release|test

	// Logging
	LogLevel    string // debug|info|warn|error|fatal|panic
	LogPretty   bool   // pretty console logs in dev
	APIBasePath string // base path for admin API routes

	// Conversation flow
	ConfirmationPhrases []string      // CONFIRM_PHRASES (CSV; empty = defaults)
	SummaryMarker       string        // SUMMARY_MARKER
	AckText             string        // ACK_TEXT
	ApologyText         string        // APOLOGY_TEXT
	TurnTimeout         time.Duration // TURN_TIMEOUT

	// Roster / schedule
	TeamsPath        string        // TEAMS_PATH (YAML roster file)
	ScheduleLocation string        // SCHEDULE_LOCATION (IANA name)
	ScheduleTick     time.Duration // SCHEDULE_TICK

	// Webhook dedup
	UpdateDedupTTL time.Duration // UPDATE_DEDUP_TTL

	// Rate limiting
	RateRPS   float64 // tokens per second (>= 0)
	RateBurst int     // bucket size (>= 1)

	// Components
	Telegram TelegramConfig
	Chat     ChatBackendConfig
	Tracker  TrackerConfig
	Store    StoreConfig

	// Web protection
	CORS     CORSConfig
	Security SecurityConfig

	// Observability
	OTEL OTELConfig
}

// MustLoad loads the configuration and panics if validation fails.
func MustLoad() Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

// Load reads configuration from environment variables,
// applies defaults, normalizes values, and validates the result.
func Load() (Config, error) {
	cfg := Config{
		// Server
		Port:              getenv("PORT", "8080"),
		ReadTimeout:       getdur("READ_TIMEOUT", 15*time.Second),
		ReadHeaderTimeout: getdur("READ_HEADER_TIMEOUT", 10*time.Second),
		WriteTimeout:      getdur("WRITE_TIMEOUT", 90*time.Second),
		IdleTimeout:       getdur("IDLE_TIMEOUT", 60*time.Second),
		MaxHeaderBytes:    getint("MAX_HEADER_BYTES", 1<<20),
		GinMode:           strings.ToLower(getenv("GIN_MODE", "release")),

		// Logging
		LogLevel:    strings.ToLower(getenv("LOG_LEVEL", "info")),
		LogPretty:   getbool("LOG_PRETTY", false),
		APIBasePath: normalizeBasePath(getenv("API_BASE_PATH", "/api/v1")),

		// Conversation flow
		ConfirmationPhrases: splitCSV(getenv("CONFIRM_PHRASES", "")),
		SummaryMarker:       getenv("SUMMARY_MARKER", "sum"),
		AckText:             getenv("ACK_TEXT", ""),
		ApologyText:         getenv("APOLOGY_TEXT", ""),
		TurnTimeout:         getdur("TURN_TIMEOUT", 75*time.Second),

		// Roster / schedule
		TeamsPath:        getenv("TEAMS_PATH", "teams.yaml"),
		ScheduleLocation: getenv("SCHEDULE_LOCATION", "Europe/Moscow"),
		ScheduleTick:     getdur("SCHEDULE_TICK", 30*time.Second),

		// Webhook dedup
		UpdateDedupTTL: getdur("UPDATE_DEDUP_TTL", 24*time.Hour),

		// Rate limiting
		RateRPS:   getfloat("RATE_RPS", 5.0),
		RateBurst: getint("RATE_BURST", 10),

		Telegram: TelegramConfig{
			Token:         getenv("TELEGRAM_TOKEN", ""),
			WebhookSecret: getenv("TELEGRAM_WEBHOOK_SECRET", ""),
			ChunkSize:     getint("TELEGRAM_CHUNK_SIZE", 1000),
			ChunkPause:    getdur("TELEGRAM_CHUNK_PAUSE", time.Second),
		},
		Chat: ChatBackendConfig{
			BaseURL: strings.TrimRight(getenv("DIFY_API_URL", ""), "/"),
			APIKey:  getenv("DIFY_API_KEY", ""),
			Timeout: getdur("DIFY_TIMEOUT", 60*time.Second),
		},
		Tracker: TrackerConfig{
			BaseURL:             strings.TrimRight(getenv("TRACKER_BASE_URL", ""), "/"),
			Token:               getenv("TRACKER_ACCESS_TOKEN", ""),
			FormID:              getint("TRACKER_FORM_ID", 0),
			Timeout:             getdur("TRACKER_TIMEOUT", 30*time.Second),
			FieldChatID:         getint("TRACKER_FIELD_CHAT_ID", 0),
			FieldFullName:       getint("TRACKER_FIELD_FULL_NAME", 0),
			FieldTeamID:         getint("TRACKER_FIELD_TEAM_ID", 0),
			FieldConversationID: getint("TRACKER_FIELD_CONVERSATION_ID", 0),
			FieldLastSummary:    getint("TRACKER_FIELD_LAST_SUMMARY", 0),
		},
		Store: StoreConfig{
			Driver:   strings.ToLower(getenv("STORE_DRIVER", StoreSQLite)),
			DBPath:   getenv("DB_PATH", "bot.db"),
			FilePath: getenv("ANSWERS_PATH", "answers.json"),
		},

		// Web protection
		CORS: CORSConfig{
			AllowedOrigins: splitCSV(getenv("CORS_ALLOWED_ORIGINS", "")),
		},
		Security: SecurityConfig{
			EnableHSTS: getbool("ENABLE_HSTS", false),
			HSTSMaxAge: getdur("HSTS_MAX_AGE", 180*24*time.Hour),
		},

		// Observability (OpenTelemetry)
		OTEL: OTELConfig{
			Enabled:     getbool("OTEL_ENABLED", false),
			Endpoint:    getenv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
			Insecure:    getbool("OTEL_EXPORTER_OTLP_INSECURE", true),
			ServiceName: getenv("OTEL_SERVICE_NAME", "meetings-dify-bot"),
			SampleRatio: getfloat("OTEL_TRACES_SAMPLER_ARG", 1.0),
		},
	}

	// --- normalization ---
	if cfg.LogLevel == "warning" {
		cfg.LogLevel = "warn"
	}
	switch cfg.GinMode {
	case "debug", "release", "test":
	default:
		cfg.GinMode = "release"
	}

	// --- validation ---
	switch cfg.LogLevel {
	case "debug", "info", "warn", "error", "fatal", "panic":
	default:
		return cfg, errors.New("LOG_LEVEL must be one of: debug, info, warn, error, fatal, panic")
	}
	if strings.TrimSpace(cfg.Port) == "" {
		return cfg, errors.New("PORT must not be empty")
	}
	if cfg.ReadTimeout <= 0 || cfg.ReadHeaderTimeout <= 0 || cfg.WriteTimeout <= 0 || cfg.IdleTimeout <= 0 {
		return cfg, errors.New("timeouts must be positive durations")
	}
	if cfg.MaxHeaderBytes <= 0 {
		return cfg, errors.New("MAX_HEADER_BYTES must be > 0")
	}
	if strings.TrimSpace(cfg.Telegram.Token) == "" {
		return cfg, errors.New("TELEGRAM_TOKEN must not be empty")
	}
	if strings.TrimSpace(cfg.Chat.BaseURL) == "" {
		return cfg, errors.New("DIFY_API_URL must not be empty")
	}
	if strings.TrimSpace(cfg.Chat.APIKey) == "" {
		return cfg, errors.New("DIFY_API_KEY must not be empty")
	}
	if cfg.Chat.Timeout <= 0 || cfg.TurnTimeout <= 0 {
		return cfg, errors.New("DIFY_TIMEOUT and TURN_TIMEOUT must be > 0")
	}
	switch cfg.Store.Driver {
	case StoreSQLite:
		if strings.TrimSpace(cfg.Store.DBPath) == "" {
			return cfg, errors.New("DB_PATH must not be empty for the sqlite store")
		}
	case StoreFile:
		if strings.TrimSpace(cfg.Store.FilePath) == "" {
			return cfg, errors.New("ANSWERS_PATH must not be empty for the file store")
		}
	case StoreOff:
	default:
		return cfg, errors.New("STORE_DRIVER must be one of: sqlite, file, off")
	}
	if strings.TrimSpace(cfg.TeamsPath) == "" {
		return cfg, errors.New("TEAMS_PATH must not be empty")
	}
	if cfg.ScheduleTick <= 0 {
		return cfg, errors.New("SCHEDULE_TICK must be > 0")
	}
	if cfg.UpdateDedupTTL <= 0 {
		return cfg, errors.New("UPDATE_DEDUP_TTL must be > 0")
	}
	if cfg.RateRPS < 0 {
		return cfg, errors.New("RATE_RPS must be >= 0")
	}
	if cfg.RateBurst < 1 {
		return cfg, errors.New("RATE_BURST must be >= 1")
	}
	if cfg.Security.HSTSMaxAge < 0 {
		return cfg, errors.New("HSTS_MAX_AGE must be >= 0")
	}
	if cfg.OTEL.SampleRatio < 0 || cfg.OTEL.SampleRatio > 1 {
		return cfg, errors.New("OTEL_TRACES_SAMPLER_ARG must be in [0,1]")
	}

	return cfg, nil
}

// ---- helpers (no external deps) ----

func getenv(k, def string) string {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		return v
	}
	return def
}

func getfloat(k string, def float64) float64 {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func getint(k string, def int) int {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func getbool(k string, def bool) bool {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "1", "true", "yes", "y", "on":
			return true
		case "0", "false", "no", "n", "off":
			return false
		}
	}
	return def
}

func getdur(k string, def time.Duration) time.Duration {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func splitCSV(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		t := strings.TrimSpace(p)
		if t != "" {
			out = append(out, t)
		}
	}
	return out
}

// normalizeBasePath ensures leading '/' and strips trailing '/' (except root).
func normalizeBasePath(p string) string {
	p = strings.TrimSpace(p)
	if p == "" {
		return "/"
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	if len(p) > 1 && strings.HasSuffix(p, "/") {
		p = strings.TrimRight(p, "/")
	}
	return p
}
