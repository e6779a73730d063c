// Package summary replays a run's events into per-step statistics.
package summary

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/davidahmann/trail/core/display"
	"github.com/davidahmann/trail/core/event"
	"github.com/davidahmann/trail/core/schema/v1/trail"
)

const (
	SetupStep = "setup"
	StatsStep = "stats"

	reportSchemaID = "trail.stats"
	reportSchemaV1 = "1.0.0"
)

// Step aggregates the begin, end and error events that share a message.
// Durations are in milliseconds and measured from the latest begin.
type Step struct {
	Name             string
	BeginCount       int
	EndCount         int
	ErrorCount       int
	CompleteDuration int64
	ErrorDuration    int64
	FirstBeginAt     int64
	LastEndAt        int64

	currentBegin int64
	begun        bool
	ended        bool
}

func (step Step) TotalDuration() int64 {
	return step.CompleteDuration + step.ErrorDuration
}

func (step Step) AverageCompleteDuration() float64 {
	if step.EndCount == 0 {
		return 0
	}
	return float64(step.CompleteDuration) / float64(step.EndCount)
}

func (step Step) AverageErrorDuration() float64 {
	if step.ErrorCount == 0 {
		return 0
	}
	return float64(step.ErrorDuration) / float64(step.ErrorCount)
}

func (step Step) elapsed(at int64) int64 {
	if !step.begun {
		return 0
	}
	return at - step.currentBegin
}

type Summary struct {
	// Steps excludes the setup and stats steps and keeps first-seen order.
	Steps         []Step
	SetupDuration int64
	ScriptCount   int
	TotalDuration int64
	BeginCount    int
	EndCount      int
	ErrorCount    int
	// CompletionRate is EndCount/BeginCount rounded to 3 decimals, NaN when
	// nothing began.
	CompletionRate float64
	FirstBeginAt   int64
	LastEndAt      int64
}

// Summarize groups begin, end and error events by message. Events without a
// message belong to no step.
func Summarize(events []event.Event) Summary {
	steps := map[string]*Step{}
	order := make([]string, 0)
	result := Summary{}
	sawBegin := false
	sawEnd := false

	for _, recorded := range events {
		if !recorded.HasMessage() {
			continue
		}
		category := recorded.Category
		if !category.IsBegin() && !category.IsEnd() && category != event.CategoryError {
			continue
		}
		step, ok := steps[recorded.Message]
		if !ok {
			step = &Step{Name: recorded.Message}
			steps[recorded.Message] = step
			order = append(order, recorded.Message)
		}

		at := recorded.Timestamp
		switch {
		case category.IsBegin():
			step.BeginCount++
			if !step.begun || at < step.FirstBeginAt {
				step.FirstBeginAt = at
			}
			step.currentBegin = at
			step.begun = true
			if !sawBegin || at < result.FirstBeginAt {
				result.FirstBeginAt = at
			}
			sawBegin = true
		case category.IsEnd():
			step.EndCount++
			step.CompleteDuration += step.elapsed(at)
			if !step.ended || at > step.LastEndAt {
				step.LastEndAt = at
			}
			step.ended = true
			if !sawEnd || at > result.LastEndAt {
				result.LastEndAt = at
			}
			sawEnd = true
		default:
			step.ErrorCount++
			step.ErrorDuration += step.elapsed(at)
		}
	}

	result.Steps = make([]Step, 0, len(order))
	for _, name := range order {
		step := steps[name]
		if name == SetupStep || name == StatsStep {
			continue
		}
		result.Steps = append(result.Steps, *step)
		result.ScriptCount++
		result.TotalDuration += step.TotalDuration()
		result.BeginCount += step.BeginCount
		result.EndCount += step.EndCount
		result.ErrorCount += step.ErrorCount
	}
	if setup, ok := steps[SetupStep]; ok {
		result.SetupDuration = setup.TotalDuration()
	}
	result.CompletionRate = completionRate(result.EndCount, result.BeginCount)
	return result
}

func completionRate(ended, begun int) float64 {
	if begun == 0 {
		return math.NaN()
	}
	return math.Round(float64(ended)/float64(begun)*1000) / 1000
}

// Text renders the fixed report shown at the end of a session.
func (result Summary) Text() string {
	attempted := make([]string, 0, len(result.Steps))
	for _, step := range result.Steps {
		attempted = append(attempted, fmt.Sprintf("%s (%d/%d)", step.Name, step.EndCount, step.BeginCount))
	}
	rate := "n/a"
	if !math.IsNaN(result.CompletionRate) {
		rate = fmt.Sprintf("%.1f%%", result.CompletionRate*100)
	}

	var builder strings.Builder
	builder.WriteString("Summary stats:\n")
	fmt.Fprintf(&builder, "- Setup duration    : %s\n", display.Duration(result.SetupDuration))
	fmt.Fprintf(&builder, "- Duration for steps: %s\n", display.Duration(result.TotalDuration))
	fmt.Fprintf(&builder, "- Steps attempted   : %s\n", strings.Join(attempted, ", "))
	fmt.Fprintf(&builder, "- Total attempts    : %d\n", result.ScriptCount)
	fmt.Fprintf(&builder, "- Completion rate   : %s\n", rate)
	return builder.String()
}

// Report is the JSON form of the summary. A NaN completion rate becomes null.
func (result Summary) Report(createdAt time.Time, producerVersion string) trail.StatsReport {
	report := trail.StatsReport{
		SchemaID:        reportSchemaID,
		SchemaVersion:   reportSchemaV1,
		CreatedAt:       createdAt.UTC(),
		ProducerVersion: producerVersion,
		SetupDurationMS: result.SetupDuration,
		TotalDurationMS: result.TotalDuration,
		ScriptCount:     result.ScriptCount,
		BeginCount:      result.BeginCount,
		EndCount:        result.EndCount,
		ErrorCount:      result.ErrorCount,
		Steps:           make([]trail.StepStats, 0, len(result.Steps)),
	}
	if !math.IsNaN(result.CompletionRate) {
		rate := result.CompletionRate
		report.CompletionRate = &rate
	}
	for _, step := range result.Steps {
		report.Steps = append(report.Steps, trail.StepStats{
			Name:               step.Name,
			BeginCount:         step.BeginCount,
			EndCount:           step.EndCount,
			ErrorCount:         step.ErrorCount,
			CompleteDurationMS: step.CompleteDuration,
			ErrorDurationMS:    step.ErrorDuration,
			AvgCompleteMS:      int64(math.Round(step.AverageCompleteDuration())),
			AvgErrorMS:         int64(math.Round(step.AverageErrorDuration())),
			FirstBeginAt:       step.FirstBeginAt,
			LastEndAt:          step.LastEndAt,
		})
	}
	return report
}
