package telemetry

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

type widget struct {
	ID    uint
	Name  string
	Likes int
}

func withRecorder(t *testing.T) *tracetest.SpanRecorder {
	t.Helper()
	recorder := tracetest.NewSpanRecorder()
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder)))
	t.Cleanup(func() { otel.SetTracerProvider(prev) })
	return recorder
}

func TestInitTracerDisabled(t *testing.T) {
	tp, err := InitTracer(context.Background(), Config{Enabled: false})
	require.NoError(t, err)
	assert.Nil(t, tp)
	assert.NoError(t, Shutdown(nil))
}

func openTraced(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.Use(GORMTracingPlugin()))
	require.NoError(t, db.AutoMigrate(&widget{}))
	return db
}

func spansNamed(recorder *tracetest.SpanRecorder, name string) []sdktrace.ReadOnlySpan {
	var out []sdktrace.ReadOnlySpan
	for _, s := range recorder.Ended() {
		if s.Name() == name {
			out = append(out, s)
		}
	}
	return out
}

func attrs(s sdktrace.ReadOnlySpan) map[attribute.Key]attribute.Value {
	m := make(map[attribute.Key]attribute.Value)
	for _, kv := range s.Attributes() {
		m[kv.Key] = kv.Value
	}
	return m
}

func TestGORMTracingPlugin(t *testing.T) {
	recorder := withRecorder(t)
	db := openTraced(t)

	require.NoError(t, db.Create(&widget{Name: "a"}).Error)
	var got widget
	require.NoError(t, db.First(&got).Error)

	inserts := spansNamed(recorder, "INSERT widgets")
	require.NotEmpty(t, inserts)
	a := attrs(inserts[len(inserts)-1])
	assert.Equal(t, "sqlite", a["db.system"].AsString())
	assert.Equal(t, int64(1), a[AttrRowsAffected].AsInt64())
	assert.Contains(t, a["db.statement"].AsString(), "INSERT INTO")

	selects := spansNamed(recorder, "SELECT widgets")
	require.NotEmpty(t, selects)
	_, tagged := attrs(selects[len(selects)-1])[AttrDBOperation]
	assert.False(t, tagged)
}

func TestGORMTracingPluginTagsCounterUpdates(t *testing.T) {
	recorder := withRecorder(t)
	db := openTraced(t)
	require.NoError(t, db.Create(&widget{ID: 1, Name: "a"}).Error)

	ctx := WithDBOperation(context.Background(), "widgets.like")
	require.NoError(t, db.WithContext(ctx).Model(&widget{}).Where("id = ?", 1).
		UpdateColumn("likes", gorm.Expr("likes + 1")).Error)
	// A missing row still produces a span, with zero rows affected.
	require.NoError(t, db.WithContext(ctx).Model(&widget{}).Where("id = ?", 99).
		UpdateColumn("likes", gorm.Expr("likes + 1")).Error)
	require.NoError(t, db.Model(&widget{}).Where("id = ?", 1).Update("name", "b").Error)

	updates := spansNamed(recorder, "UPDATE widgets")
	require.Len(t, updates, 3)

	hit := attrs(updates[0])
	assert.Equal(t, "widgets.like", hit[AttrDBOperation].AsString())
	assert.Equal(t, "likes", hit[AttrCounter].AsString())
	assert.Equal(t, int64(1), hit[AttrRowsAffected].AsInt64())

	miss := attrs(updates[1])
	assert.Equal(t, "likes", miss[AttrCounter].AsString())
	require.Contains(t, miss, AttrRowsAffected)
	assert.Equal(t, int64(0), miss[AttrRowsAffected].AsInt64())

	plain := attrs(updates[2])
	assert.NotContains(t, plain, AttrCounter)
	assert.NotContains(t, plain, AttrDBOperation)
}

func TestGORMTracingPluginTransactionsKeepOperation(t *testing.T) {
	recorder := withRecorder(t)
	db := openTraced(t)

	ctx := WithDBOperation(context.Background(), "widgets.create")
	require.NoError(t, db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&widget{ID: 7, Name: "x"}).Error; err != nil {
			return err
		}
		return tx.Model(&widget{}).Where("id = ?", 7).UpdateColumn("likes", gorm.Expr("likes + 2")).Error
	}))

	for _, name := range []string{"INSERT widgets", "UPDATE widgets"} {
		spans := spansNamed(recorder, name)
		require.Len(t, spans, 1, name)
		assert.Equal(t, "widgets.create", attrs(spans[0])[AttrDBOperation].AsString(), name)
	}
}

func TestDBOperation(t *testing.T) {
	assert.Equal(t, "", DBOperation(context.Background()))
	assert.Equal(t, "feed.trending", DBOperation(WithDBOperation(context.Background(), "feed.trending")))
}

func TestInitTracerWithExporter(t *testing.T) {
	prevTP := otel.GetTracerProvider()
	prevProp := otel.GetTextMapPropagator()
	t.Cleanup(func() {
		otel.SetTracerProvider(prevTP)
		otel.SetTextMapPropagator(prevProp)
	})

	exporter := tracetest.NewInMemoryExporter()
	tp, err := InitTracer(context.Background(), Config{
		Enabled:        true,
		ServiceVersion: "1.2.3",
		Environment:    "test",
		SamplingRate:   1,
		Exporter:       exporter,
	})
	require.NoError(t, err)
	require.NotNil(t, tp)

	_, span := otel.Tracer("test").Start(context.Background(), "feed.latest")
	span.End()
	require.NoError(t, tp.ForceFlush(context.Background()))
	t.Cleanup(func() { _ = Shutdown(tp) })

	spans := exporter.GetSpans()
	require.Len(t, spans, 1)
	res := map[attribute.Key]string{}
	for _, kv := range spans[0].Resource.Attributes() {
		res[kv.Key] = kv.Value.Emit()
	}
	assert.Equal(t, "mini-social", res["service.name"])
	assert.Equal(t, "1.2.3", res["service.version"])
	assert.Equal(t, "test", res["deployment.environment"])
}

func TestExporterOptions(t *testing.T) {
	opts, err := exporterOptions("localhost:4318")
	require.NoError(t, err)
	assert.Len(t, opts, 2)

	opts, err = exporterOptions("https://collector.example.com/otlp/")
	require.NoError(t, err)
	assert.Len(t, opts, 2)

	opts, err = exporterOptions("http://tempo:4318")
	require.NoError(t, err)
	assert.Len(t, opts, 2)

	for _, bad := range []string{"", "ftp://collector:21", "https://"} {
		_, err = exporterOptions(bad)
		assert.Error(t, err, bad)
	}
}

func TestSampler(t *testing.T) {
	assert.Contains(t, sampler(1).Description(), "root:AlwaysOnSampler")
	assert.Contains(t, sampler(0).Description(), "root:AlwaysOffSampler")
	assert.Contains(t, sampler(0.25).Description(), "root:TraceIDRatioBased{0.25}")
}

func TestNewTransportNamesSpans(t *testing.T) {
	recorder := withRecorder(t)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	client := &http.Client{Transport: NewTransport("defillama")}
	resp, err := client.Get(srv.URL)
	require.NoError(t, err)
	resp.Body.Close()

	spans := recorder.Ended()
	require.NotEmpty(t, spans)
	assert.Equal(t, "defillama GET", spans[len(spans)-1].Name())
}
