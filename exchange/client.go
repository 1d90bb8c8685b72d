// Package exchange performs request/response exchanges with a node's HTTP API:
// one POST per attempt over a fresh transport session, the response body
// collected into a Buffer sized by its declared Content-Length, and bounded
// retries on transient receive failures.
package exchange

import (
	"context"
	"time"
	"unicode/utf8"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	semconv "go.opentelemetry.io/otel/semconv/v1.32.0"
	oteltrace "go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"

	"github.com/gaborage/nodeclient/logger"
	"github.com/gaborage/nodeclient/trace"
	"github.com/gaborage/nodeclient/transport"
)

const (
	spanQuery   = "nodeclient.exchange.query"
	spanAttempt = "nodeclient.exchange.attempt"

	// DefaultMaxBodySize bounds the body allocation a response header can request.
	DefaultMaxBodySize = 16 << 20
	// DefaultMaxPayloadLogBytes caps payload bytes logged when payload logging is on.
	DefaultMaxPayloadLogBytes = 1024
)

// Client runs exchanges against a single node endpoint. It is safe for
// concurrent use: every attempt gets its own session and every Query call
// writes only to the Buffer it was given.
type Client struct {
	cfg   RequestConfig
	dial  transport.Dialer
	retry RetryPolicy
	log   logger.Logger

	limiter            *rate.Limiter
	receiveWindow      int
	headerBudget       int
	maxBodySize        int
	logPayloads        bool
	maxPayloadLogBytes int

	tracerProvider oteltrace.TracerProvider
	meterProvider  metric.MeterProvider
	tracer         oteltrace.Tracer
	metrics        *exchangeMetrics
}

// Option configures a Client.
type Option func(*Client)

// WithDialer sets the factory for per-attempt transport sessions.
func WithDialer(d transport.Dialer) Option {
	return func(c *Client) {
		if d != nil {
			c.dial = d
		}
	}
}

// WithRetryPolicy replaces the default retry policy.
func WithRetryPolicy(p RetryPolicy) Option {
	return func(c *Client) {
		c.retry = p
	}
}

// WithLogger sets the logger. The default discards output.
func WithLogger(l logger.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.log = l
		}
	}
}

// WithRateLimit limits how often Query may start an exchange. A limit <= 0
// disables limiting.
func WithRateLimit(limit float64, burst int) Option {
	return func(c *Client) {
		if limit <= 0 {
			c.limiter = nil
			return
		}
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(limit), burst)
	}
}

// WithReceiveWindow sets the largest chunk requested per Receive call.
func WithReceiveWindow(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.receiveWindow = n
		}
	}
}

// WithHeaderBudget sets the largest request header the client will send.
func WithHeaderBudget(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.headerBudget = n
		}
	}
}

// WithMaxBodySize sets the largest Content-Length the client will allocate for.
func WithMaxBodySize(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.maxBodySize = n
		}
	}
}

// WithPayloadLogging enables debug-level logging of request and response
// bodies, truncated to maxBytes.
func WithPayloadLogging(enabled bool, maxBytes int) Option {
	return func(c *Client) {
		c.logPayloads = enabled
		if maxBytes > 0 {
			c.maxPayloadLogBytes = maxBytes
		}
	}
}

// WithTracerProvider sets the tracer provider. The default is the global one.
func WithTracerProvider(tp oteltrace.TracerProvider) Option {
	return func(c *Client) {
		if tp != nil {
			c.tracerProvider = tp
		}
	}
}

// WithMeterProvider sets the meter provider. The default is the global one.
func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(c *Client) {
		if mp != nil {
			c.meterProvider = mp
		}
	}
}

// NewClient validates cfg and returns a client for that endpoint.
func NewClient(cfg RequestConfig, opts ...Option) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	c := &Client{
		cfg:                cfg,
		dial:               transport.NewDialer(transport.DefaultConfig()),
		retry:              DefaultRetryPolicy(),
		log:                logger.Nop(),
		receiveWindow:      DefaultReceiveWindow,
		headerBudget:       DefaultHeaderBudget,
		maxBodySize:        DefaultMaxBodySize,
		maxPayloadLogBytes: DefaultMaxPayloadLogBytes,
	}
	for _, opt := range opts {
		opt(c)
	}

	if c.tracerProvider == nil {
		c.tracerProvider = otel.GetTracerProvider()
	}
	if c.meterProvider == nil {
		c.meterProvider = otel.GetMeterProvider()
	}
	c.tracer = c.tracerProvider.Tracer(instrumentationName)
	c.metrics = newExchangeMetrics(c.meterProvider)

	return c, nil
}

// Config returns the endpoint configuration.
func (c *Client) Config() RequestConfig {
	return c.cfg
}

// Query performs an exchange with the client's node. It is equivalent to
// c.Query(ctx, request, response) but also rejects a nil client.
func Query(ctx context.Context, c *Client, request []byte, response *Buffer) error {
	if c == nil {
		return NewNullParameterError("client")
	}
	return c.Query(ctx, request, response)
}

// Query sends request as the body of a POST and collects the response body
// into response. Receive failures are retried per the client's policy; after
// the last attempt its error is returned. On failure the contents of response
// are unspecified.
func (c *Client) Query(ctx context.Context, request []byte, response *Buffer) error {
	if len(request) == 0 {
		return NewNullParameterError("request")
	}
	if response == nil {
		return NewNullParameterError("response")
	}

	ctx, requestID := trace.EnsureRequestID(ctx)
	log := c.log.WithContext(ctx).WithFields(map[string]any{
		"host": c.cfg.Host,
		"port": c.cfg.Port,
		"path": c.cfg.Path,
	})

	header, err := BuildHeader(&c.cfg, len(request), c.headerBudget)
	if err != nil {
		log.Error().Err(err).Msg("Failed to build request header")
		return err
	}

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			log.Warn().Err(err).Msg("Exchange cancelled while waiting for rate limiter")
			return err
		}
	}

	base := []attribute.KeyValue{
		semconv.ServerAddress(c.cfg.Host),
		semconv.ServerPort(c.cfg.Port),
	}
	ctx, span := c.tracer.Start(ctx, spanQuery,
		oteltrace.WithSpanKind(oteltrace.SpanKindClient),
		oteltrace.WithAttributes(base...),
		oteltrace.WithAttributes(
			semconv.HTTPRequestMethodPost,
			semconv.URLPath(c.cfg.Path),
			attribute.String(trace.LogField, requestID),
		),
	)
	defer span.End()

	if c.logPayloads {
		log.Debug().Str("request_body", truncatePayload(request, c.maxPayloadLogBytes)).Msg("Request payload")
	}

	start := time.Now()
	attempts := 0
	err = c.retry.Do(ctx, func(ctx context.Context, n int) error {
		attempts = n
		return c.attempt(ctx, log, base, n, header, request, response)
	}, func(n int, cause error) {
		log.Warn().Err(cause).Int("attempt", n).Msg("Retrying exchange after receive failure")
	})
	elapsed := time.Since(start)

	c.metrics.recordExchange(ctx, base, elapsed, response.Len(), err)
	span.SetAttributes(attribute.Int("nodeclient.attempts", attempts))

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		log.Error().Err(err).
			Int("attempts", attempts).
			Dur("elapsed", elapsed).
			Msg("Exchange failed")
		return err
	}

	span.SetAttributes(
		semconv.HTTPResponseStatusCode(response.StatusCode()),
		semconv.HTTPResponseBodySize(response.Len()),
	)
	log.Debug().
		Int("attempts", attempts).
		Int("status", response.StatusCode()).
		Int("content_length", response.Len()).
		Dur("elapsed", elapsed).
		Msg("Exchange completed")
	if c.logPayloads {
		log.Debug().Str("response_body", truncatePayload(response.Bytes(), c.maxPayloadLogBytes)).Msg("Response payload")
	}
	return nil
}

// attempt runs one connect/write/read cycle on a fresh session. The session is
// closed before attempt returns, whatever the outcome.
func (c *Client) attempt(ctx context.Context, log logger.Logger, base []attribute.KeyValue, n int, header, body []byte, response *Buffer) (err error) {
	ctx, span := c.tracer.Start(ctx, spanAttempt,
		oteltrace.WithSpanKind(oteltrace.SpanKindClient),
		oteltrace.WithAttributes(attribute.Int(attrAttempt, n)),
	)
	defer func() {
		c.metrics.recordAttempt(ctx, base, err)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	response.Reset()
	log.Debug().Int("attempt", n).Int("body_size", len(body)).Msg("Starting exchange attempt")

	sess := c.dial()
	defer func() {
		if cerr := sess.Close(); cerr != nil {
			log.Debug().Err(cerr).Int("attempt", n).Msg("Failed to close session")
		}
	}()

	if err := sess.Connect(ctx, c.cfg.Host, c.cfg.Port, c.cfg.CACertificate); err != nil {
		return NewConnectError(err)
	}
	if err := writeHeader(sess, header); err != nil {
		return err
	}
	if err := writeBody(sess, body); err != nil {
		return err
	}

	status, err := readResponse(sess, response, c.receiveWindow, c.maxBodySize)
	span.SetAttributes(attribute.String(attrStatus, status.String()))
	return err
}

func truncatePayload(p []byte, limit int) string {
	if limit <= 0 || len(p) <= limit {
		return string(p)
	}
	cut := limit
	for cut > 0 && !utf8.RuneStart(p[cut]) {
		cut--
	}
	return string(p[:cut]) + "...(truncated)"
}
