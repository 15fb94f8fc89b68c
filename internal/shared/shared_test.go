package shared

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/charmbracelet/log"
)

func TestParseDuration(t *testing.T) {
	tc := []struct {
		name  string
		input string
		want  int
	}{
		{name: "full", input: "PT1H2M3S", want: 3723},
		{name: "minutes and seconds", input: "PT4M13S", want: 253},
		{name: "seconds only", input: "PT45S", want: 45},
		{name: "hours only", input: "PT2H", want: 7200},
		{name: "bare PT", input: "PT", want: 0},
		{name: "day component", input: "P1DT2H", want: 0},
		{name: "garbage", input: "four minutes", want: 0},
		{name: "empty", input: "", want: 0},
	}

	for _, tt := range tc {
		t.Run(tt.name, func(t *testing.T) {
			if got := ParseDuration(tt.input); got != tt.want {
				t.Errorf("ParseDuration(%q) = %d, want %d", tt.input, got, tt.want)
			}
		})
	}
}

func TestIsCancelled(t *testing.T) {
	if !IsCancelled(fmt.Errorf("%w: by user", ErrCancelled)) {
		t.Error("wrapped ErrCancelled should be cancelled")
	}
	if !IsCancelled(context.Canceled) {
		t.Error("context.Canceled should be cancelled")
	}
	if IsCancelled(ErrNoVideos) {
		t.Error("ErrNoVideos is not a cancellation")
	}
	if IsCancelled(errors.New("boom")) {
		t.Error("plain error is not a cancellation")
	}
}

func TestLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := WithLogger(NewLogger(&buf), "run", "abc")
	SetLogLevel(logger, log.WarnLevel)

	logger.Info("hidden")
	logger.Warn("shown")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Error("info line should be filtered at warn level")
	}
	if !strings.Contains(out, "shown") || !strings.Contains(out, "run=abc") {
		t.Errorf("unexpected log output %q", out)
	}
}

func TestIDs(t *testing.T) {
	if GenerateID() == GenerateID() {
		t.Error("generated IDs should differ")
	}
	if len(ShortID()) != 8 {
		t.Error("short ID should be 8 characters")
	}
}

func TestBrowserCommand(t *testing.T) {
	orig := getRuntime
	defer func() { getRuntime = orig }()

	getRuntime = func() string { return "linux" }
	cmd, err := browserCommand("http://example.com")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cmd.Args[0] != "xdg-open" || cmd.Args[len(cmd.Args)-1] != "http://example.com" {
		t.Errorf("unexpected args %v", cmd.Args)
	}

	getRuntime = func() string { return "plan9" }
	if _, err := browserCommand("http://example.com"); err == nil {
		t.Error("expected error for unsupported platform")
	}
}
