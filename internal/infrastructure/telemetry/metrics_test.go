package telemetry

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	apperrors "github.com/ersonp/calcore/internal/domain/errors"
)

func setupMetricsTest(t *testing.T) *sdkmetric.ManualReader {
	t.Helper()
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))

	original := otel.GetMeterProvider()
	otel.SetMeterProvider(provider)
	t.Cleanup(func() {
		otel.SetMeterProvider(original)
		if err := provider.Shutdown(context.Background()); err != nil {
			t.Logf("shutting down meter provider: %v", err)
		}
	})
	return reader
}

// sumByAttrs collects the named counter and returns its points keyed by the
// given attribute values joined with "/".
func sumByAttrs(t *testing.T, reader *sdkmetric.ManualReader, name string, keys ...attribute.Key) map[string]int64 {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	points := make(map[string]int64)
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != name {
				continue
			}
			sum, ok := m.Data.(metricdata.Sum[int64])
			require.True(t, ok, "expected Sum type for %s", name)
			for _, dp := range sum.DataPoints {
				label := ""
				for i, k := range keys {
					v, _ := dp.Attributes.Value(k)
					if i > 0 {
						label += "/"
					}
					label += v.AsString()
				}
				points[label] += dp.Value
			}
		}
	}
	return points
}

func TestRecordMutation(t *testing.T) {
	reader := setupMetricsTest(t)
	m, err := newOtelMetrics()
	require.NoError(t, err)
	ctx := context.Background()

	m.RecordMutation(ctx, "create", nil)
	m.RecordMutation(ctx, "create", nil)
	m.RecordMutation(ctx, "create", apperrors.New(apperrors.CodeScheduleConflict, "overlap"))
	m.RecordMutation(ctx, "share", apperrors.NotAuthorized("share", "e1", "bob"))
	m.RecordMutation(ctx, "delete", errors.New("disk full"))

	points := sumByAttrs(t, reader, MutationsMetric, "operation", "outcome")
	assert.Equal(t, map[string]int64{
		"create/success":           2,
		"create/schedule_conflict": 1,
		"share/not_authorized":     1,
		"delete/unknown":           1,
	}, points)
}

func TestRecordConflict(t *testing.T) {
	reader := setupMetricsTest(t)
	m, err := newOtelMetrics()
	require.NoError(t, err)
	ctx := context.Background()

	m.RecordConflict(ctx, "create")
	m.RecordConflict(ctx, "update")
	m.RecordConflict(ctx, "update")

	points := sumByAttrs(t, reader, ConflictsMetric, "operation")
	assert.Equal(t, map[string]int64{"create": 1, "update": 2}, points)
}

func TestNewRecorder(t *testing.T) {
	setupMetricsTest(t)

	recorder := NewRecorder()
	require.NotNil(t, recorder)
	_, isNoop := recorder.(NoopRecorder)
	assert.False(t, isNoop)
}

func TestNoopRecorder(t *testing.T) {
	var r NoopRecorder
	assert.NotPanics(t, func() {
		r.RecordMutation(context.Background(), "create", nil)
		r.RecordConflict(context.Background(), "create")
	})
}
