package summary

import (
	"encoding/json"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/davidahmann/trail/core/event"
)

func at(timestamp int64, category event.Category, message string) event.Event {
	return event.Event{Timestamp: timestamp, Category: category, VersionStamp: "0.4.1-3f9a2c1", AnonID: "0a1b2c3", Message: message}
}

func TestSingleCompletedStep(t *testing.T) {
	result := Summarize([]event.Event{
		at(0, event.CategoryScriptBegin, "fund"),
		at(1500, event.CategoryScriptEnd, "fund"),
	})
	if result.TotalDuration != 1500 || result.ScriptCount != 1 {
		t.Fatalf("unexpected totals: %#v", result)
	}
	if result.CompletionRate != 1 {
		t.Fatalf("unexpected completion rate %v", result.CompletionRate)
	}
	text := result.Text()
	for _, want := range []string{
		"- Duration for steps: 1.5s\n",
		"- Steps attempted   : fund (1/1)\n",
		"- Total attempts    : 1\n",
		"- Completion rate   : 100.0%\n",
	} {
		if !strings.Contains(text, want) {
			t.Fatalf("report missing %q:\n%s", want, text)
		}
	}
}

func TestRepeatedBeginUsesLatest(t *testing.T) {
	result := Summarize([]event.Event{
		at(0, event.CategoryScriptBegin, "deploy"),
		at(0, event.CategoryScriptBegin, "deploy"),
		at(1000, event.CategoryScriptEnd, "deploy"),
	})
	if len(result.Steps) != 1 {
		t.Fatalf("expected one step, got %d", len(result.Steps))
	}
	step := result.Steps[0]
	if step.CompleteDuration != 1000 || step.BeginCount != 2 || step.EndCount != 1 {
		t.Fatalf("unexpected step: %#v", step)
	}
	if result.CompletionRate != 0.5 {
		t.Fatalf("unexpected completion rate %v", result.CompletionRate)
	}

	if !strings.Contains(result.Text(), "- Total attempts    : 1\n") {
		t.Fatalf("expected a step begun twice to count as one attempt:\n%s", result.Text())
	}

	laterBegin := Summarize([]event.Event{
		at(0, event.CategoryScriptBegin, "deploy"),
		at(400, event.CategoryScriptBegin, "deploy"),
		at(1000, event.CategoryScriptEnd, "deploy"),
	})
	if laterBegin.Steps[0].CompleteDuration != 600 {
		t.Fatalf("expected duration from the latest begin, got %d", laterBegin.Steps[0].CompleteDuration)
	}
}

func TestReservedStepsAndOrdering(t *testing.T) {
	result := Summarize([]event.Event{
		at(0, event.CategorySetupBegin, "setup"),
		at(2000, event.CategorySetupEnd, "setup"),
		at(3000, event.CategoryScriptBegin, "fund"),
		at(3100, event.CategoryLog, "fund"),
		at(4000, event.CategoryScriptEnd, "fund"),
		at(5000, event.CategoryScriptBegin, "compile"),
		at(5500, event.CategoryError, "compile"),
		at(6000, event.CategoryScriptBegin, "stats"),
		at(6100, event.CategoryScriptEnd, "stats"),
		at(7000, event.CategoryWaitBegin, ""),
	})
	if result.SetupDuration != 2000 {
		t.Fatalf("unexpected setup duration %d", result.SetupDuration)
	}
	if result.ScriptCount != 2 || len(result.Steps) != 2 {
		t.Fatalf("expected fund and compile only, got %#v", result.Steps)
	}
	if result.Steps[0].Name != "fund" || result.Steps[1].Name != "compile" {
		t.Fatalf("unexpected order: %s, %s", result.Steps[0].Name, result.Steps[1].Name)
	}
	if result.TotalDuration != 1500 {
		t.Fatalf("expected 1000ms complete + 500ms error, got %d", result.TotalDuration)
	}
	if result.BeginCount != 2 || result.EndCount != 1 || result.ErrorCount != 1 {
		t.Fatalf("unexpected counts: %#v", result)
	}
	if result.FirstBeginAt != 0 || result.LastEndAt != 6100 {
		t.Fatalf("unexpected first/last: %d %d", result.FirstBeginAt, result.LastEndAt)
	}

	expected := "Summary stats:\n" +
		"- Setup duration    : 2.0s\n" +
		"- Duration for steps: 1.5s\n" +
		"- Steps attempted   : fund (1/1), compile (0/1)\n" +
		"- Total attempts    : 2\n" +
		"- Completion rate   : 50.0%\n"
	if got := result.Text(); got != expected {
		t.Fatalf("unexpected report:\n%s\nwant:\n%s", got, expected)
	}
}

func TestTotalAttemptsCountsDistinctSteps(t *testing.T) {
	result := Summarize([]event.Event{
		at(0, event.CategoryScriptBegin, "fund"),
		at(100, event.CategoryError, "fund"),
		at(200, event.CategoryScriptBegin, "fund"),
		at(300, event.CategoryScriptEnd, "fund"),
		at(400, event.CategoryScriptBegin, "deploy"),
	})
	if result.ScriptCount != 2 || result.BeginCount != 3 {
		t.Fatalf("unexpected counts: scripts=%d begins=%d", result.ScriptCount, result.BeginCount)
	}
	text := result.Text()
	for _, want := range []string{
		"- Steps attempted   : fund (1/2), deploy (0/1)\n",
		"- Total attempts    : 2\n",
		"- Completion rate   : 33.3%\n",
	} {
		if !strings.Contains(text, want) {
			t.Fatalf("report missing %q:\n%s", want, text)
		}
	}
}

func TestEndWithoutBeginContributesNoDuration(t *testing.T) {
	result := Summarize([]event.Event{
		at(500, event.CategoryScriptEnd, "orphan"),
		at(900, event.CategoryError, "orphan"),
	})
	if result.TotalDuration != 0 {
		t.Fatalf("expected zero duration, got %d", result.TotalDuration)
	}
	if !math.IsNaN(result.CompletionRate) {
		t.Fatalf("expected NaN completion rate, got %v", result.CompletionRate)
	}
	if !strings.Contains(result.Text(), "- Completion rate   : n/a\n") {
		t.Fatalf("expected n/a marker:\n%s", result.Text())
	}
}

func TestEmptySummary(t *testing.T) {
	result := Summarize(nil)
	if result.ScriptCount != 0 || !math.IsNaN(result.CompletionRate) {
		t.Fatalf("unexpected empty summary: %#v", result)
	}
	if !strings.Contains(result.Text(), "- Steps attempted   : \n") {
		t.Fatalf("unexpected empty report:\n%s", result.Text())
	}
}

func TestCompletionRateRounding(t *testing.T) {
	events := make([]event.Event, 0)
	for index := int64(0); index < 3; index++ {
		events = append(events, at(index*10, event.CategoryScriptBegin, "step"))
	}
	events = append(events, at(100, event.CategoryScriptEnd, "step"))
	result := Summarize(events)
	if result.CompletionRate != 0.333 {
		t.Fatalf("expected 0.333, got %v", result.CompletionRate)
	}
	if !strings.Contains(result.Text(), "33.3%") {
		t.Fatalf("unexpected rate rendering:\n%s", result.Text())
	}
}

func TestReportJSON(t *testing.T) {
	createdAt := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	result := Summarize([]event.Event{
		at(0, event.CategoryScriptBegin, "fund"),
		at(1000, event.CategoryScriptEnd, "fund"),
		at(2000, event.CategoryScriptBegin, "fund"),
		at(5000, event.CategoryScriptEnd, "fund"),
	})
	report := result.Report(createdAt, "0.4.1-3f9a2c1")
	if report.CompletionRate == nil || *report.CompletionRate != 1 {
		t.Fatalf("unexpected completion rate %v", report.CompletionRate)
	}
	if len(report.Steps) != 1 || report.Steps[0].AvgCompleteMS != 2000 || report.Steps[0].LastEndAt != 5000 {
		t.Fatalf("unexpected step stats: %#v", report.Steps)
	}

	empty, err := json.Marshal(Summarize(nil).Report(createdAt, "dev"))
	if err != nil {
		t.Fatalf("marshal report: %v", err)
	}
	if !strings.Contains(string(empty), `"completion_rate":null`) {
		t.Fatalf("expected null completion rate, got %s", empty)
	}
}
