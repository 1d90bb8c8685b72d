package testing

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
)

const (
	testCounter   = "test.counter"
	testHistogram = "test.histogram"
	testSpanName  = "span-1"
	outcomeAttr   = "outcome"
)

func TestNewTestTraceProvider(t *testing.T) {
	tp := NewTestTraceProvider()
	require.NotNil(t, tp.Exporter)

	_, span := tp.Tracer("test").Start(context.Background(), testSpanName)
	span.End()

	spans := tp.Exporter.GetSpans()
	require.Len(t, spans, 1)
	assert.Equal(t, testSpanName, spans[0].Name)
	assert.NoError(t, tp.Shutdown(context.Background()))
}

func TestSpanCollector(t *testing.T) {
	tp := NewTestTraceProvider()
	tracer := tp.Tracer("test")

	_, first := tracer.Start(context.Background(), testSpanName)
	first.SetAttributes(
		attribute.String("host", "127.0.0.1"),
		attribute.Int("attempt", 2),
		attribute.Bool("retried", true),
	)
	first.SetStatus(codes.Error, "boom")
	first.RecordError(errors.New("boom"))
	first.End()

	_, second := tracer.Start(context.Background(), "span-2")
	second.End()

	collector := NewSpanCollector(t, tp.Exporter)
	assert.Equal(t, 2, collector.Len())

	named := collector.WithName(testSpanName).AssertCount(1)
	span := named.First()
	AssertSpanAttribute(t, &span, "host", "127.0.0.1")
	AssertSpanAttribute(t, &span, "attempt", 2)
	AssertSpanAttribute(t, &span, "retried", true)
	AssertSpanError(t, &span, "boom")

	collector.WithName("absent").AssertCount(0)
}

func TestSumInt64(t *testing.T) {
	mp := NewTestMeterProvider()
	counter, err := mp.Meter("test").Int64Counter(testCounter)
	require.NoError(t, err)

	ctx := context.Background()
	counter.Add(ctx, 2, metric.WithAttributes(attribute.String(outcomeAttr, "success")))
	counter.Add(ctx, 3, metric.WithAttributes(attribute.String(outcomeAttr, "receive failure")))

	rm := mp.Collect(t)
	assert.Equal(t, int64(5), SumInt64(rm, testCounter))
	assert.Equal(t, int64(3), SumInt64(rm, testCounter, attribute.String(outcomeAttr, "receive failure")))
	assert.Equal(t, int64(0), SumInt64(rm, testCounter, attribute.String(outcomeAttr, "other")))
	assert.Equal(t, int64(0), SumInt64(rm, "does.not.exist"))
}

func TestHistogramCount(t *testing.T) {
	mp := NewTestMeterProvider()
	meter := mp.Meter("test")
	floats, err := meter.Float64Histogram(testHistogram)
	require.NoError(t, err)
	ints, err := meter.Int64Histogram("test.size")
	require.NoError(t, err)

	ctx := context.Background()
	floats.Record(ctx, 1.5)
	floats.Record(ctx, 2.5)
	ints.Record(ctx, 42, metric.WithAttributes(attribute.String(outcomeAttr, "success")))

	rm := mp.Collect(t)
	require.NotNil(t, FindMetric(rm, testHistogram))
	assert.Equal(t, uint64(2), HistogramCount(rm, testHistogram))
	assert.Equal(t, uint64(1), HistogramCount(rm, "test.size", attribute.String(outcomeAttr, "success")))
	assert.Equal(t, uint64(0), HistogramCount(rm, "test.size", attribute.String(outcomeAttr, "failure")))
	assert.Nil(t, FindMetric(rm, "does.not.exist"))
}
