// Package telemetry posts batches of session events to a metrics endpoint.
// Delivery is best-effort: callers log failures and move on.
package telemetry

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	coreerrors "github.com/davidahmann/trail/core/errors"
	"github.com/davidahmann/trail/core/event"
	"github.com/davidahmann/trail/core/jcs"
	"github.com/davidahmann/trail/core/schema/v1/trail"
)

const (
	RunHeader    = "X-Trail-Run"
	DigestHeader = "X-Trail-Batch-Digest"

	defaultTimeout = 10 * time.Second
	tracerName     = "github.com/davidahmann/trail/core/telemetry"
)

// Sink receives event batches. Implementations must be safe for concurrent
// use since sends are not serialised.
type Sink interface {
	Send(ctx context.Context, events []event.Event) error
}

type Option func(*HTTPSink)

func WithHTTPClient(client *http.Client) Option {
	return func(sink *HTTPSink) {
		if client != nil {
			sink.client = client
		}
	}
}

func WithTracerProvider(provider trace.TracerProvider) Option {
	return func(sink *HTTPSink) {
		if provider != nil {
			sink.tracer = provider.Tracer(tracerName)
		}
	}
}

// WithRunID sets the correlation id sent with every batch from this process.
func WithRunID(runID string) Option {
	return func(sink *HTTPSink) {
		if strings.TrimSpace(runID) != "" {
			sink.runID = strings.TrimSpace(runID)
		}
	}
}

type HTTPSink struct {
	endpoint string
	client   *http.Client
	tracer   trace.Tracer
	runID    string
}

func NewHTTPSink(endpoint string, opts ...Option) (*HTTPSink, error) {
	trimmed := strings.TrimSpace(endpoint)
	parsed, err := url.Parse(trimmed)
	if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
		return nil, coreerrors.Wrap(fmt.Errorf("metrics url %q must be an absolute http(s) url", trimmed), coreerrors.CategoryInvalidInput, "metrics_url_invalid", "fix metricsUrl in config.json or TRAIL_METRICS_URL", false)
	}
	sink := &HTTPSink{
		endpoint: trimmed,
		client:   &http.Client{Timeout: defaultTimeout},
		tracer:   otel.Tracer(tracerName),
		runID:    uuid.NewString(),
	}
	for _, opt := range opts {
		opt(sink)
	}
	return sink, nil
}

func (sink *HTTPSink) Endpoint() string {
	return sink.endpoint
}

func (sink *HTTPSink) RunID() string {
	return sink.runID
}

// BuildBatch attaches each event's hash for the wire.
func BuildBatch(events []event.Event) trail.TelemetryBatch {
	batch := trail.TelemetryBatch{Events: make([]trail.TelemetryEvent, 0, len(events))}
	for _, recorded := range events {
		batch.Events = append(batch.Events, trail.TelemetryEvent{
			Timestamp:    recorded.Timestamp,
			Category:     recorded.Category.ShortForm(),
			VersionStamp: recorded.VersionStamp,
			AnonID:       recorded.AnonID,
			Message:      recorded.Message,
			Hash:         recorded.Hash(),
		})
	}
	return batch
}

// Send posts one batch. There is no retry; an error means the batch is lost.
func (sink *HTTPSink) Send(ctx context.Context, events []event.Event) (err error) {
	if len(events) == 0 {
		return nil
	}
	ctx, span := sink.tracer.Start(ctx, "telemetry.send",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.Int("trail.events", len(events)),
			attribute.String("trail.run_id", sink.runID),
		),
	)
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	body, err := json.Marshal(BuildBatch(events))
	if err != nil {
		return coreerrors.Wrap(fmt.Errorf("marshal telemetry batch: %w", err), coreerrors.CategoryInternalFailure, "telemetry_encode", "", false)
	}
	digest, err := jcs.DigestJCS(body)
	if err != nil {
		return coreerrors.Wrap(fmt.Errorf("digest telemetry batch: %w", err), coreerrors.CategoryInternalFailure, "telemetry_digest", "", false)
	}

	request, err := http.NewRequestWithContext(ctx, http.MethodPost, sink.endpoint, bytes.NewReader(body))
	if err != nil {
		return coreerrors.Wrap(fmt.Errorf("build telemetry request: %w", err), coreerrors.CategoryInvalidInput, "telemetry_request", "", false)
	}
	request.Header.Set("Content-Type", "application/json")
	request.Header.Set(RunHeader, sink.runID)
	request.Header.Set(DigestHeader, "sha256:"+digest)

	response, err := sink.client.Do(request)
	if err != nil {
		return coreerrors.Wrap(fmt.Errorf("post telemetry: %w", err), coreerrors.CategoryNetworkTransient, "telemetry_unreachable", "check network access to metricsUrl", true)
	}
	_, _ = io.Copy(io.Discard, response.Body)
	_ = response.Body.Close()
	span.SetAttributes(attribute.Int("http.response.status_code", response.StatusCode))

	switch {
	case response.StatusCode >= 200 && response.StatusCode < 300:
		return nil
	case response.StatusCode >= 500:
		return coreerrors.Wrap(fmt.Errorf("post telemetry: HTTP %d", response.StatusCode), coreerrors.CategoryNetworkTransient, "telemetry_server_error", "", true)
	default:
		return coreerrors.Wrap(fmt.Errorf("post telemetry: HTTP %d", response.StatusCode), coreerrors.CategoryNetworkPermanent, "telemetry_rejected", "check metricsUrl", false)
	}
}
