package display

import (
	"bytes"
	"strings"
	"testing"

	"github.com/davidahmann/trail/core/event"
)

func TestDuration(t *testing.T) {
	tests := []struct {
		milliseconds int64
		want         string
	}{
		{milliseconds: 0, want: "0ms"},
		{milliseconds: 850, want: "850ms"},
		{milliseconds: 1000, want: "1.0s"},
		{milliseconds: 1500, want: "1.5s"},
		{milliseconds: 61_500, want: "1m 1.5s"},
		{milliseconds: 3_605_000, want: "1h 0m 5.0s"},
		{milliseconds: -1500, want: "-1.5s"},
	}
	for _, test := range tests {
		if got := Duration(test.milliseconds); got != test.want {
			t.Fatalf("Duration(%d): got %q want %q", test.milliseconds, got, test.want)
		}
	}
}

func TestFormatWithoutANSIIsPlain(t *testing.T) {
	formatter := New(false)
	if got := formatter.Format(KindStart, "fund", "account"); got != "fund account" {
		t.Fatalf("unexpected plain output %q", got)
	}
	if got := formatter.Bold("x") + formatter.URL("y") + formatter.Italic("z") + formatter.Highlight("w"); got != "xyzw" {
		t.Fatalf("helpers must pass through without ANSI, got %q", got)
	}
	if formatter.ClearPreviousLine() != "" {
		t.Fatalf("clear sequence must be empty without ANSI")
	}
}

func TestFormatWithANSI(t *testing.T) {
	formatter := New(true)
	got := formatter.Format(KindStart, "fund")
	if !strings.HasPrefix(got, "🏁 ") || !strings.HasSuffix(got, " …") {
		t.Fatalf("expected marker and ellipsis, got %q", got)
	}
	if !strings.Contains(got, "\x1b[") || !strings.Contains(got, "fund") {
		t.Fatalf("expected ANSI styled text, got %q", got)
	}
	bold := formatter.Bold("x")
	if bold == "x" || strings.Contains(bold, "…") {
		t.Fatalf("bold must be styled without a marker, got %q", bold)
	}
	if formatter.ClearPreviousLine() != "\x1b[1A\x1b[2K\x1b[9999D" {
		t.Fatalf("unexpected clear sequence %q", formatter.ClearPreviousLine())
	}
}

func TestKindFor(t *testing.T) {
	tests := map[event.Category]Kind{
		event.CategoryScriptBegin:        KindStart,
		event.CategorySetupBegin:         KindStart,
		event.CategoryScriptEnd:          KindComplete,
		event.CategorySectionWithoutWait: KindSection,
		event.CategoryReminder:           KindReminder,
		event.CategoryError:              KindError,
		event.CategorySummary:            KindSummary,
		event.CategoryLog:                KindPlain,
		event.CategoryWaitBegin:          KindPlain,
	}
	for category, want := range tests {
		if got := KindFor(category); got != want {
			t.Fatalf("KindFor(%s): got %d want %d", category, got, want)
		}
	}
}

func TestEventRendering(t *testing.T) {
	formatter := New(false)
	if got := formatter.Event(event.CategoryWaitBegin); got != "" {
		t.Fatalf("control events render nothing, got %q", got)
	}
	if got := formatter.Event(event.CategoryError, "boom"); got != "boom" {
		t.Fatalf("unexpected error line %q", got)
	}
	box := formatter.Event(event.CategoryInfoBox, "Heads up", "first\nsecond")
	lines := strings.Split(box, "\n")
	if len(lines) != 5 {
		t.Fatalf("expected 5 box lines, got %d: %q", len(lines), box)
	}
	if lines[1] != "│ Heads up" || lines[3] != "│ second" {
		t.Fatalf("unexpected box body %q", box)
	}
}

func TestIsTerminalForBuffer(t *testing.T) {
	if IsTerminal(&bytes.Buffer{}) {
		t.Fatalf("a buffer is never a terminal")
	}
}
