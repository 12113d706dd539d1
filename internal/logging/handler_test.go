package logging

import (
	"bytes"
	"fmt"
	"log/slog"
	"strings"
	"testing"
)

func TestHandlerPlain(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(NewHandler(&buf, &Options{Level: slog.LevelInfo}))

	log.Debug("Audit: hidden")
	log.Info("Region: pruned", "dir", "world", "deleted", 2)
	log.With("world", "alpha").Warn("Audit: missing", "files", "r.5.5.mca\nr.-3.2.mca")

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	if len(lines) != 4 {
		t.Fatalf("lines = %q", lines)
	}
	if !strings.HasSuffix(lines[0], "INF Region: pruned dir=world deleted=2") {
		t.Errorf("line 0 = %q", lines[0])
	}
	if !strings.HasSuffix(lines[1], "WRN Audit: missing world=alpha") {
		t.Errorf("line 1 = %q", lines[1])
	}
	if lines[2] != "    | r.5.5.mca" || lines[3] != "    | r.-3.2.mca" {
		t.Errorf("block = %q", lines[2:])
	}
}

func TestHandlerFileList(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(NewHandler(&buf, &Options{Level: slog.LevelDebug}))

	files := make([]string, 25)
	for i := range files {
		files[i] = fmt.Sprintf("r.%d.9.mca", i)
	}
	log.Debug("Region: deleted files", "dir", "alpha", "files", files)

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	if !strings.HasSuffix(lines[0], "DBG Region: deleted files dir=alpha files=25") {
		t.Errorf("line 0 = %q", lines[0])
	}
	if len(lines) != 1+maxBlockLines+1 {
		t.Fatalf("got %d lines, want the header, %d files and a summary", len(lines), maxBlockLines)
	}
	if lines[1] != "    | r.0.9.mca" {
		t.Errorf("first file = %q", lines[1])
	}
	if last := lines[len(lines)-1]; last != "    | ... 5 more" {
		t.Errorf("summary = %q", last)
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    slog.Level
		wantErr bool
	}{
		{"debug", slog.LevelDebug, false},
		{"", slog.LevelInfo, false},
		{"WARNING", slog.LevelWarn, false},
		{"error", slog.LevelError, false},
		{"loud", slog.LevelInfo, true},
	}
	for _, tt := range tests {
		got, err := ParseLevel(tt.in)
		if got != tt.want || (err != nil) != tt.wantErr {
			t.Errorf("ParseLevel(%q) = %v, %v", tt.in, got, err)
		}
	}
}
