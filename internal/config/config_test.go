package config

import (
	"strings"
	"testing"
	"time"
)

// setRequired sets the minimum environment for Load to succeed.
func setRequired(t *testing.T) {
	t.Helper()
	t.Setenv("TELEGRAM_TOKEN", "123:abc")
	t.Setenv("DIFY_API_URL", "https://dify.example.com/v1")
	t.Setenv("DIFY_API_KEY", "app-key")
}

func TestLoad_Defaults(t *testing.T) {
	setRequired(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Port != "8080" {
		t.Errorf("Port = %q, want 8080", cfg.Port)
	}
	if cfg.GinMode != "release" {
		t.Errorf("GinMode = %q, want release", cfg.GinMode)
	}
	if cfg.LogLevel != "info" {
		t.Errorf("LogLevel = %q, want info", cfg.LogLevel)
	}
	if cfg.APIBasePath != "/api/v1" {
		t.Errorf("APIBasePath = %q, want /api/v1", cfg.APIBasePath)
	}
	if cfg.SummaryMarker != "sum" {
		t.Errorf("SummaryMarker = %q, want sum", cfg.SummaryMarker)
	}
	if cfg.Store.Driver != StoreSQLite || cfg.Store.DBPath != "bot.db" {
		t.Errorf("Store = %+v, want sqlite/bot.db", cfg.Store)
	}
	if cfg.TurnTimeout != 75*time.Second {
		t.Errorf("TurnTimeout = %v, want 75s", cfg.TurnTimeout)
	}
	if cfg.Tracker.Enabled() {
		t.Errorf("Tracker.Enabled() = true with empty tracker config")
	}
	if cfg.OTEL.Enabled {
		t.Errorf("OTEL.Enabled = true, want false by default")
	}
}

func TestLoad_Normalization(t *testing.T) {
	setRequired(t)
	t.Setenv("LOG_LEVEL", "WARNING")
	t.Setenv("GIN_MODE", "banana")
	t.Setenv("API_BASE_PATH", "api/v2/")
	t.Setenv("DIFY_API_URL", "https://dify.example.com/v1/")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.LogLevel != "warn" {
		t.Errorf("LogLevel = %q, want warn", cfg.LogLevel)
	}
	if cfg.GinMode != "release" {
		t.Errorf("GinMode = %q, want release fallback", cfg.GinMode)
	}
	if cfg.APIBasePath != "/api/v2" {
		t.Errorf("APIBasePath = %q, want /api/v2", cfg.APIBasePath)
	}
	if strings.HasSuffix(cfg.Chat.BaseURL, "/") {
		t.Errorf("Chat.BaseURL = %q, want trailing slash trimmed", cfg.Chat.BaseURL)
	}
}

func TestLoad_ValidationErrors(t *testing.T) {
	cases := []struct {
		name string
		env  map[string]string
		want string
	}{
		{"missing token", map[string]string{"TELEGRAM_TOKEN": " "}, "TELEGRAM_TOKEN"},
		{"missing dify url", map[string]string{"DIFY_API_URL": ""}, "DIFY_API_URL"},
		{"bad log level", map[string]string{"LOG_LEVEL": "verbose"}, "LOG_LEVEL"},
		{"bad store driver", map[string]string{"STORE_DRIVER": "postgres"}, "STORE_DRIVER"},
		{"zero burst", map[string]string{"RATE_BURST": "0"}, "RATE_BURST"},
		{"sampler out of range", map[string]string{"OTEL_TRACES_SAMPLER_ARG": "1.5"}, "OTEL_TRACES_SAMPLER_ARG"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			setRequired(t)
			for k, v := range tc.env {
				t.Setenv(k, v)
			}
			_, err := Load()
			if err == nil {
				t.Fatalf("Load: want error mentioning %q, got nil", tc.want)
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Errorf("error = %q, want mention of %q", err, tc.want)
			}
		})
	}
}

func TestTrackerEnabled(t *testing.T) {
	tr := TrackerConfig{
		BaseURL: "https://tracker.example.com/v4", Token: "tok", FormID: 10,
		FieldChatID: 1, FieldFullName: 2, FieldTeamID: 3,
		FieldConversationID: 4, FieldLastSummary: 5,
	}
	if !tr.Enabled() {
		t.Errorf("Enabled() = false for complete config")
	}
	tr.FieldLastSummary = 0
	if tr.Enabled() {
		t.Errorf("Enabled() = true with missing field id")
	}
}

func TestHelpers(t *testing.T) {
	t.Setenv("X_DUR", "90s")
	if got := getdur("X_DUR", time.Second); got != 90*time.Second {
		t.Errorf("getdur = %v, want 90s", got)
	}
	t.Setenv("X_BOOL", "On")
	if !getbool("X_BOOL", false) {
		t.Errorf("getbool(On) = false, want true")
	}
	if got := splitCSV(" a , ,b ,"); len(got) != 2 || got[0] != "a" || got[1] != "b" {
		t.Errorf("splitCSV = %v, want [a b]", got)
	}
	if got := normalizeBasePath(""); got != "/" {
		t.Errorf("normalizeBasePath(\"\") = %q, want /", got)
	}
}
