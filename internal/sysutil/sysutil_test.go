package sysutil

import (
	"testing"

	"github.com/rs/zerolog"
)

func TestSetLogLevel(t *testing.T) {
	cases := []struct {
		in   string
		want zerolog.Level
	}{
		{"debug", zerolog.DebugLevel},
		{"INFO", zerolog.InfoLevel},
		{"warn", zerolog.WarnLevel},
		{"warning", zerolog.WarnLevel},
		{"error", zerolog.ErrorLevel},
		{"fatal", zerolog.FatalLevel},
		{"panic", zerolog.PanicLevel},
		{"", zerolog.InfoLevel},
		{"verbose", zerolog.InfoLevel},
		{"  Debug  ", zerolog.DebugLevel},
	}
	for _, tc := range cases {
		SetLogLevel(tc.in)
		if got := zerolog.GlobalLevel(); got != tc.want {
			t.Errorf("SetLogLevel(%q): level = %v, want %v", tc.in, got, tc.want)
		}
	}
}

func TestSetupLogging_Pretty(t *testing.T) {
	// Exercises the console-writer branch; behavior is level-setting only.
	SetupLogging("warn", true)
	if got := zerolog.GlobalLevel(); got != zerolog.WarnLevel {
		t.Errorf("level = %v, want warn", got)
	}
	SetupLogging("info", false)
}
