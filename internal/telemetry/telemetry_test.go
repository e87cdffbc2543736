package telemetry

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zfogg/plaza/internal/models"
	"github.com/zfogg/plaza/internal/testutil"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func installRecorder(t *testing.T) *tracetest.SpanRecorder {
	t.Helper()
	rec := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec))
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() { otel.SetTracerProvider(prev) })
	return rec
}

func TestInitTracerDisabled(t *testing.T) {
	tp, err := InitTracer(Config{Enabled: false})
	require.NoError(t, err)
	assert.Nil(t, tp)
}

func TestStartSpanRecordsError(t *testing.T) {
	rec := installRecorder(t)

	_, span := StartSpan(context.Background(), "feed.fetch")
	RecordError(span, errors.New("boom"))
	RecordError(span, nil)
	span.End()

	ended := rec.Ended()
	require.Len(t, ended, 1)
	assert.Equal(t, "feed.fetch", ended[0].Name())
	assert.Len(t, ended[0].Events(), 1)
}

func TestGORMTracingPlugin(t *testing.T) {
	rec := installRecorder(t)
	db := testutil.NewDB(t)
	require.NoError(t, db.Use(GORMTracingPlugin("sqlite")))

	var users []models.User
	require.NoError(t, db.WithContext(context.Background()).Find(&users).Error)

	var found bool
	for _, s := range rec.Ended() {
		if s.Name() == "db.select" {
			found = true
		}
	}
	assert.True(t, found)
}

func TestGORMTracingPluginSpanDetails(t *testing.T) {
	rec := installRecorder(t)
	db := testutil.NewDB(t)
	require.NoError(t, db.Use(GORMTracingPlugin("sqlite")))
	ctx := context.Background()

	testutil.CreateUser(t, db.WithContext(ctx), "traced")
	var missing models.User
	err := db.WithContext(ctx).First(&missing, "id = ?", "nope").Error
	require.Error(t, err)

	spans := map[string]sdktrace.ReadOnlySpan{}
	for _, s := range rec.Ended() {
		spans[s.Name()] = s
	}
	require.Contains(t, spans, "db.insert")
	require.Contains(t, spans, "db.select")

	attrs := map[string]string{}
	for _, kv := range spans["db.insert"].Attributes() {
		attrs[string(kv.Key)] = kv.Value.Emit()
	}
	assert.Equal(t, "sqlite", attrs["db.system"])
	assert.Equal(t, "users", attrs["db.table"])
	assert.Contains(t, attrs["db.statement"], "INSERT INTO")

	assert.Equal(t, codes.Unset, spans["db.select"].Status().Code)
}

func TestTruncateStatement(t *testing.T) {
	long := strings.Repeat("x", maxStatementLen+10)
	assert.True(t, strings.HasSuffix(truncateStatement(long), "(truncated)"))
	assert.Equal(t, "SELECT 1", truncateStatement("SELECT 1"))
}
