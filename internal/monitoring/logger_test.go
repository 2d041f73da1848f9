package monitoring

import (
	"fmt"
	"strings"
	"testing"
)

func TestSetLogger(t *testing.T) {
	// Save original logger
	original := Logf
	defer func() { Logf = original }()

	var got []string
	SetLogger(func(format string, v ...interface{}) {
		got = append(got, fmt.Sprintf(format, v...))
	})
	Logf("rendered %d frames", 3)

	if len(got) != 1 || got[0] != "rendered 3 frames" {
		t.Errorf("custom logger got %q", got)
	}

	// Now set to nil and verify it doesn't call our logger
	SetLogger(nil)
	Logf("muted")
	if len(got) != 1 {
		t.Error("No-op logger should not have triggered callback")
	}
}

func TestLogf_Default(t *testing.T) {
	if Logf == nil {
		t.Error("Logf should not be nil by default")
	}
}

func TestProgress_RewritesLine(t *testing.T) {
	var b strings.Builder
	p := NewProgress(&b, "generating snapshot images")

	p.Update("1.00 of [begin: 0 end: 3]")
	p.Update("2.00")
	p.Done()

	out := b.String()
	lines := strings.Split(out, "\r")
	if len(lines) != 4 {
		t.Fatalf("expected 3 carriage-return updates, got %q", out)
	}
	// The shorter update is padded to erase the previous text.
	if len(lines[2]) != len(lines[1]) {
		t.Errorf("expected padded update, got %q vs %q", lines[2], lines[1])
	}
	if !strings.HasSuffix(out, "\n") || !strings.Contains(lines[3], "generating snapshot images... done.") {
		t.Errorf("unexpected final line %q", lines[3])
	}
}

func TestProgress_NilSafe(t *testing.T) {
	var p *Progress
	p.Update("x")
	p.Done()

	NewProgress(nil, "quiet").Update("x")
}
