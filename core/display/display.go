// Package display renders console lines for recorded events.
package display

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"golang.org/x/term"

	"github.com/davidahmann/trail/core/event"
)

type Kind int

const (
	KindPlain Kind = iota
	KindStart
	KindSection
	KindReminder
	KindComplete
	KindError
	KindSummary
	KindBold
	KindURL
	KindItalic
	KindHighlight
)

const (
	hellip = "…"

	cursorUp1     = "\x1b[1A"
	clearLine     = "\x1b[2K"
	cursorLeftMax = "\x1b[9999D"

	boxWidth = 48
)

type style struct {
	marker string
	color  *color.Color
}

type Formatter struct {
	ansi   bool
	styles map[Kind]style
}

// New builds a formatter. With ansi false every helper returns its input
// unchanged and markers are dropped.
func New(ansi bool) *Formatter {
	formatter := &Formatter{
		ansi: ansi,
		styles: map[Kind]style{
			KindStart:     {marker: "🏁", color: color.New(color.Bold, color.FgGreen)},
			KindSection:   {marker: "🟣", color: color.New(color.Bold, color.FgMagenta)},
			KindReminder:  {marker: "🧐", color: color.New(color.Bold, color.FgCyan)},
			KindComplete:  {marker: "🎉", color: color.New(color.Bold, color.FgGreen)},
			KindError:     {marker: "❌", color: color.New(color.Bold, color.FgRed)},
			KindSummary:   {marker: "🔢", color: color.New(color.Bold, color.FgYellow)},
			KindBold:      {color: color.New(color.Bold)},
			KindURL:       {color: color.New(color.Underline, color.FgCyan)},
			KindItalic:    {color: color.New(color.Italic)},
			KindHighlight: {color: color.New(color.BgYellow, color.FgBlack)},
		},
	}
	for _, configured := range formatter.styles {
		if ansi {
			configured.color.EnableColor()
		} else {
			configured.color.DisableColor()
		}
	}
	return formatter
}

func (formatter *Formatter) ANSI() bool {
	return formatter.ansi
}

// KindFor maps an event category to its console style.
func KindFor(category event.Category) Kind {
	switch category {
	case event.CategorySetupBegin, event.CategoryScriptBegin:
		return KindStart
	case event.CategorySetupEnd, event.CategoryScriptEnd:
		return KindComplete
	case event.CategorySection, event.CategorySectionWithoutWait:
		return KindSection
	case event.CategoryReminder:
		return KindReminder
	case event.CategoryError:
		return KindError
	case event.CategorySummary:
		return KindSummary
	default:
		return KindPlain
	}
}

// Format joins parts with spaces and applies the kind's style. Marked kinds
// get their emoji prefix and a trailing ellipsis.
func (formatter *Formatter) Format(kind Kind, parts ...string) string {
	text := strings.Join(parts, " ")
	configured, ok := formatter.styles[kind]
	if !ok || !formatter.ansi {
		return text
	}
	styled := configured.color.Sprint(text)
	if configured.marker == "" {
		return styled
	}
	return configured.marker + " " + styled + " " + hellip
}

// Event renders the console line for a recorded event. Events without a
// message render nothing.
func (formatter *Formatter) Event(category event.Category, parts ...string) string {
	if len(parts) == 0 || parts[0] == "" {
		return ""
	}
	if category == event.CategoryInfoBox || category == event.CategoryInfoBoxWithoutWait {
		return formatter.InfoBox(parts[0], parts[1:]...)
	}
	return formatter.Format(KindFor(category), parts...)
}

// InfoBox renders a highlighted multi-line block.
func (formatter *Formatter) InfoBox(title string, lines ...string) string {
	var builder strings.Builder
	rule := strings.Repeat("─", boxWidth)
	builder.WriteString("┌" + rule + "\n")
	builder.WriteString("│ " + formatter.Highlight(title) + "\n")
	for _, line := range lines {
		for _, split := range strings.Split(line, "\n") {
			builder.WriteString("│ " + split + "\n")
		}
	}
	builder.WriteString("└" + rule)
	return builder.String()
}

func (formatter *Formatter) Bold(text string) string {
	return formatter.Format(KindBold, text)
}

func (formatter *Formatter) Italic(text string) string {
	return formatter.Format(KindItalic, text)
}

func (formatter *Formatter) URL(text string) string {
	return formatter.Format(KindURL, text)
}

func (formatter *Formatter) Highlight(text string) string {
	return formatter.Format(KindHighlight, text)
}

// ClearPreviousLine moves up one line and erases it. Empty without ANSI.
func (formatter *Formatter) ClearPreviousLine() string {
	if !formatter.ansi {
		return ""
	}
	return cursorUp1 + clearLine + cursorLeftMax
}

// IsTerminal reports whether writer is an interactive terminal.
func IsTerminal(writer io.Writer) bool {
	file, ok := writer.(interface{ Fd() uintptr })
	if !ok {
		return false
	}
	return term.IsTerminal(int(file.Fd())) // #nosec G115 -- file descriptors fit in int.
}

// Duration renders milliseconds for the summary report: "850ms", "1.5s",
// "2m 3.0s", "1h 0m 5.0s".
func Duration(milliseconds int64) string {
	if milliseconds < 0 {
		return "-" + Duration(-milliseconds)
	}
	if milliseconds < 1000 {
		return fmt.Sprintf("%dms", milliseconds)
	}
	hours := milliseconds / 3_600_000
	minutes := (milliseconds % 3_600_000) / 60_000
	seconds := float64(milliseconds%60_000) / 1000
	switch {
	case hours > 0:
		return fmt.Sprintf("%dh %dm %.1fs", hours, minutes, seconds)
	case minutes > 0:
		return fmt.Sprintf("%dm %.1fs", minutes, seconds)
	default:
		return fmt.Sprintf("%.1fs", seconds)
	}
}
