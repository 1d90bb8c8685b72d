package exchange

import (
	"context"
	"fmt"
	"os"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	// instrumentationName scopes the tracer and meter of this package
	instrumentationName = "github.com/gaborage/nodeclient/exchange"

	metricAttempts     = "nodeclient.exchange.attempts"
	metricDuration     = "nodeclient.exchange.duration"
	metricResponseSize = "nodeclient.exchange.response.size"

	attrOutcome = "nodeclient.outcome"
	attrAttempt = "nodeclient.attempt"
	attrStatus  = "nodeclient.read.status"

	outcomeSuccess = "success"
)

// logMetricError logs a metric initialization error to stderr.
// Metrics failures never fail an exchange.
func logMetricError(metricName string, err error) {
	if err != nil {
		fmt.Fprintf(os.Stderr, "WARNING: Failed to initialize metric %s: %v\n", metricName, err)
	}
}

type exchangeMetrics struct {
	attempts     metric.Int64Counter
	duration     metric.Float64Histogram
	responseSize metric.Int64Histogram
}

func newExchangeMetrics(mp metric.MeterProvider) *exchangeMetrics {
	meter := mp.Meter(instrumentationName)
	m := &exchangeMetrics{}

	var err error
	m.attempts, err = meter.Int64Counter(
		metricAttempts,
		metric.WithDescription("Number of exchange attempts, including retries"),
	)
	logMetricError(metricAttempts, err)

	m.duration, err = meter.Float64Histogram(
		metricDuration,
		metric.WithDescription("Duration of complete exchanges in milliseconds, including retries"),
		metric.WithUnit("ms"),
	)
	logMetricError(metricDuration, err)

	m.responseSize, err = meter.Int64Histogram(
		metricResponseSize,
		metric.WithDescription("Size of successfully received response bodies"),
		metric.WithUnit("By"),
	)
	logMetricError(metricResponseSize, err)

	return m
}

// outcome names the result of an attempt or exchange for metric attributes.
func outcome(err error) string {
	if err == nil {
		return outcomeSuccess
	}
	if kind := KindOf(err); kind != 0 {
		return kind.String()
	}
	return "canceled"
}

func (m *exchangeMetrics) recordAttempt(ctx context.Context, base []attribute.KeyValue, err error) {
	if m.attempts == nil {
		return
	}
	attrs := make([]attribute.KeyValue, 0, len(base)+1)
	attrs = append(attrs, base...)
	attrs = append(attrs, attribute.String(attrOutcome, outcome(err)))
	m.attempts.Add(ctx, 1, metric.WithAttributes(attrs...))
}

func (m *exchangeMetrics) recordExchange(ctx context.Context, base []attribute.KeyValue, elapsed time.Duration, size int, err error) {
	attrs := make([]attribute.KeyValue, 0, len(base)+1)
	attrs = append(attrs, base...)
	attrs = append(attrs, attribute.String(attrOutcome, outcome(err)))

	if m.duration != nil {
		m.duration.Record(ctx, float64(elapsed.Nanoseconds())/1e6, metric.WithAttributes(attrs...))
	}
	if m.responseSize != nil && err == nil {
		m.responseSize.Record(ctx, int64(size), metric.WithAttributes(base...))
	}
}
