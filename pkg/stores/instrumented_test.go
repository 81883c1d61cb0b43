package stores

import (
	"bytes"
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/openfroyo/recordstore/pkg/telemetry"
)

type instrumentedFixture struct {
	store  *InstrumentedStore
	tel    *telemetry.Telemetry
	spans  *tracetest.SpanRecorder
	events []telemetry.Event
	logs   *bytes.Buffer
}

func newInstrumentedFixture(t *testing.T) *instrumentedFixture {
	t.Helper()

	cfg := telemetry.DefaultConfig()
	cfg.Metrics.Enabled = true
	cfg.Metrics.Namespace = "test"

	metrics, err := telemetry.NewMetrics(cfg.Metrics)
	require.NoError(t, err)
	events, err := telemetry.NewEventPublisher(cfg.Events)
	require.NoError(t, err)

	spans := tracetest.NewSpanRecorder()
	provider := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(spans))
	t.Cleanup(func() { _ = provider.Shutdown(context.Background()) })

	logs := &bytes.Buffer{}
	tel := &telemetry.Telemetry{
		Logger:  telemetry.NewLoggerWithWriter(telemetry.LoggingConfig{Level: "debug", Format: "json"}, logs),
		Tracer:  telemetry.NewTracerFromProvider(provider, "test", cfg.Tracing),
		Metrics: metrics,
		Events:  events,
		Config:  cfg,
	}

	f := &instrumentedFixture{tel: tel, spans: spans, logs: logs}
	events.Subscribe(func(e telemetry.Event) { f.events = append(f.events, e) }, nil)
	f.store = Instrument(openTestStore(t, Config{}), tel, "sqlite")
	return f
}

func TestInstrumentedStoreRecordsOutcomes(t *testing.T) {
	f := newInstrumentedFixture(t)
	ctx := context.Background()

	require.NoError(t, f.store.Insert(ctx, 1, "test_value"))
	assert.ErrorIs(t, f.store.Insert(ctx, 1, "again"), ErrDuplicateID)

	_, found, err := f.store.Read(ctx, 1)
	require.NoError(t, err)
	assert.True(t, found)

	_, found, err = f.store.Read(ctx, 2)
	require.NoError(t, err)
	assert.False(t, found)

	updated, err := f.store.Update(ctx, 2, "nobody")
	require.NoError(t, err)
	assert.False(t, updated)

	n, err := f.store.Count(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	expected := `
# HELP test_store_operations_total Total number of record store operations
# TYPE test_store_operations_total counter
test_store_operations_total{backend="sqlite",operation="count",outcome="ok"} 1
test_store_operations_total{backend="sqlite",operation="insert",outcome="duplicate"} 1
test_store_operations_total{backend="sqlite",operation="insert",outcome="ok"} 1
test_store_operations_total{backend="sqlite",operation="read",outcome="not_found"} 1
test_store_operations_total{backend="sqlite",operation="read",outcome="ok"} 1
test_store_operations_total{backend="sqlite",operation="update",outcome="not_found"} 1
# HELP test_records Number of records last observed in the store
# TYPE test_records gauge
test_records{backend="sqlite"} 1
# HELP test_store_errors_total Total number of record store errors by kind
# TYPE test_store_errors_total counter
test_store_errors_total{kind="duplicate_id"} 1
`
	require.NoError(t, testutil.GatherAndCompare(f.tel.Metrics.Registry(), bytes.NewBufferString(expected),
		"test_store_operations_total", "test_records", "test_store_errors_total"))
}

func TestInstrumentedStorePublishesChangesOnly(t *testing.T) {
	f := newInstrumentedFixture(t)
	ctx := context.Background()

	require.NoError(t, f.store.Insert(ctx, 1, "initial_value"))
	_, err := f.store.Update(ctx, 1, "updated_value")
	require.NoError(t, err)
	_, err = f.store.Update(ctx, 2, "missing")
	require.NoError(t, err)
	_, err = f.store.Delete(ctx, 1)
	require.NoError(t, err)
	_, err = f.store.Delete(ctx, 1)
	require.NoError(t, err)

	types := make([]string, 0, len(f.events))
	for _, e := range f.events {
		types = append(types, e.Type)
		assert.Equal(t, "sqlite", e.Backend)
		assert.EqualValues(t, 1, e.RecordID)
	}
	assert.Equal(t, []string{
		telemetry.EventTypeRecordInserted,
		telemetry.EventTypeRecordUpdated,
		telemetry.EventTypeRecordDeleted,
	}, types)
}

func TestInstrumentedStoreSpans(t *testing.T) {
	f := newInstrumentedFixture(t)
	ctx := context.Background()

	require.NoError(t, f.store.Insert(ctx, 1, "v"))
	_ = f.store.Insert(ctx, 1, "v")

	require.NoError(t, f.store.Close())
	_, _, err := f.store.Read(ctx, 1)
	require.ErrorIs(t, err, ErrStoreUnavailable)

	ended := f.spans.Ended()
	require.Len(t, ended, 3)

	assert.Equal(t, "record.insert", ended[0].Name())
	assert.Equal(t, codes.Ok, ended[0].Status().Code)
	assert.Contains(t, ended[0].Attributes(), telemetry.AttrRecordID.Int64(1))
	assert.Contains(t, ended[0].Attributes(), telemetry.AttrOutcome.String(telemetry.OutcomeOK))

	assert.Equal(t, "record.insert", ended[1].Name())
	assert.Equal(t, codes.Ok, ended[1].Status().Code, "duplicate id is a caller error, not an engine failure")
	assert.Contains(t, ended[1].Attributes(), telemetry.AttrOutcome.String(telemetry.OutcomeDuplicate))

	assert.Equal(t, "record.read", ended[2].Name())
	assert.Equal(t, codes.Error, ended[2].Status().Code)
	assert.Contains(t, ended[2].Attributes(), telemetry.AttrErrorKind.String(string(KindUnavailable)))

	assert.Contains(t, f.logs.String(), "record store failure")
	require.NotEmpty(t, f.events)
	assert.Equal(t, telemetry.EventTypeStoreError, f.events[len(f.events)-1].Type)
}

func TestInstrumentWithNilTelemetry(t *testing.T) {
	store := Instrument(openTestStore(t, Config{}), nil, "")
	ctx := context.Background()

	assert.Equal(t, "sqlite", store.Backend())
	require.NoError(t, store.Insert(ctx, 1, "test_value"))

	rec, err := store.Get(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, &Record{ID: 1, Value: "test_value"}, rec)
}
