// Package telemetry records calcore metrics with OpenTelemetry.
package telemetry

import (
	"context"
	"log/slog"
	"strings"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	apperrors "github.com/ersonp/calcore/internal/domain/errors"
	"github.com/ersonp/calcore/internal/domain/ports"
)

// Metric names.
const (
	MutationsMetric = "calcore.event.mutations"
	ConflictsMetric = "calcore.schedule.conflicts"
)

// OutcomeSuccess is the outcome attribute of a mutation that returned no error.
const OutcomeSuccess = "success"

type otelMetrics struct {
	mutations metric.Int64Counter
	conflicts metric.Int64Counter
}

var _ ports.MetricsRecorder = (*otelMetrics)(nil)

var (
	defaultMetrics     *otelMetrics
	defaultMetricsOnce sync.Once
	defaultMetricsErr  error
)

func getDefaultMetrics() (*otelMetrics, error) {
	defaultMetricsOnce.Do(func() {
		defaultMetrics, defaultMetricsErr = newOtelMetrics()
	})
	return defaultMetrics, defaultMetricsErr
}

func newOtelMetrics() (*otelMetrics, error) {
	meter := otel.Meter("calcore")

	mutations, err := meter.Int64Counter(MutationsMetric,
		metric.WithDescription("Number of event and permission mutations by outcome"),
	)
	if err != nil {
		return nil, err
	}

	conflicts, err := meter.Int64Counter(ConflictsMetric,
		metric.WithDescription("Number of writes rejected for overlapping an existing event"),
	)
	if err != nil {
		return nil, err
	}

	return &otelMetrics{mutations: mutations, conflicts: conflicts}, nil
}

// NewRecorder returns a MetricsRecorder backed by the global OTel meter
// provider. If the instruments cannot be created it returns NoopRecorder.
func NewRecorder() ports.MetricsRecorder {
	m, err := getDefaultMetrics()
	if err != nil {
		slog.Warn("metrics initialization failed, using no-op recorder",
			slog.String("error", err.Error()))
		return NoopRecorder{}
	}
	return m
}

// RecordMutation counts one operation, labelled with its outcome.
func (m *otelMetrics) RecordMutation(ctx context.Context, operation string, err error) {
	m.mutations.Add(ctx, 1, metric.WithAttributes(
		attribute.String("operation", operation),
		attribute.String("outcome", Outcome(err)),
	))
}

// RecordConflict counts one rejected scheduling attempt.
func (m *otelMetrics) RecordConflict(ctx context.Context, operation string) {
	m.conflicts.Add(ctx, 1, metric.WithAttributes(attribute.String("operation", operation)))
}

// Outcome returns the outcome attribute for err: "success" or the
// lower-cased error code.
func Outcome(err error) string {
	if err == nil {
		return OutcomeSuccess
	}
	return strings.ToLower(string(apperrors.CodeOf(err)))
}

// NoopRecorder is a MetricsRecorder that does nothing.
type NoopRecorder struct{}

var _ ports.MetricsRecorder = NoopRecorder{}

// RecordMutation does nothing.
func (NoopRecorder) RecordMutation(context.Context, string, error) {}

// RecordConflict does nothing.
func (NoopRecorder) RecordConflict(context.Context, string) {}
