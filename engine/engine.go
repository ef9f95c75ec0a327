package engine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/kbukum/clientengine/logger"
	"github.com/kbukum/clientengine/observability"
	"github.com/kbukum/clientengine/transport"
)

// Engine issues HTTP exchanges over exactly one started transport client.
// It is safe for concurrent use.
type Engine struct {
	id            string
	client        *transport.Client
	readTimeout   int64
	connectionTTL int64

	log     *logger.Logger
	tracer  trace.Tracer
	metrics *observability.EngineMetrics
	now     func() time.Time

	mu     sync.Mutex
	epoch  time.Time
	closed bool
}

// ID returns the unique engine identifier.
func (e *Engine) ID() string { return e.id }

// Client returns the transport client the engine was built around.
func (e *Engine) Client() *transport.Client { return e.client }

// ReadTimeout returns the configured read timeout in milliseconds.
func (e *Engine) ReadTimeout() int64 { return e.readTimeout }

// ConnectionTTL returns the configured connection TTL in milliseconds.
func (e *Engine) ConnectionTTL() int64 { return e.connectionTTL }

// Submit starts the exchange for req on the client executor. cb, when not
// nil, runs on the executor once the exchange completes. If the executor
// rejects the task, the rejection is delivered through both the Future and cb.
func (e *Engine) Submit(ctx context.Context, req *http.Request, cb Callback) *Future {
	f := newFuture()
	finish := func(resp *Response, err error) {
		f.complete(resp, err)
		if cb != nil {
			cb(resp, err)
		}
	}

	if req == nil {
		finish(nil, transport.ErrNilRequest)
		return f
	}
	if e.isClosed() {
		finish(nil, ErrEngineClosed)
		return f
	}

	task := func() {
		finish(e.exchange(ctx, req))
	}
	if err := e.client.Executor().Execute(task); err != nil {
		finish(nil, err)
	}
	return f
}

// Do runs the exchange and waits for its outcome.
func (e *Engine) Do(ctx context.Context, req *http.Request) (*Response, error) {
	return e.Submit(ctx, req, nil).Wait(ctx)
}

func (e *Engine) exchange(ctx context.Context, req *http.Request) (*Response, error) {
	e.retireExpiredConnections(ctx)

	if e.readTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, millis(e.readTimeout))
		defer cancel()
	}

	ctx, span := e.tracer.Start(ctx, observability.SpanEngineRequest,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String(observability.AttrEngineID, e.id),
			attribute.String(observability.AttrHTTPMethod, req.Method),
			attribute.String(observability.AttrHTTPURL, req.URL.Redacted()),
		),
	)
	defer span.End()

	start := time.Now()
	e.metrics.RecordRequestStart(ctx)

	resp, err := e.roundTrip(ctx, req)
	duration := time.Since(start)

	status, statusCode := "ok", 0
	if err != nil {
		status = "error"
		var exErr *Error
		if errors.As(err, &exErr) {
			status = exErr.Code.String()
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		span.SetAttributes(attribute.String(observability.AttrErrorCode, status))
		e.log.Debug("Request failed", logger.Fields(
			logger.FieldMethod, req.Method,
			logger.FieldURL, req.URL.Redacted(),
			logger.FieldError, err.Error(),
			logger.FieldDuration, duration.Milliseconds(),
		))
	} else {
		statusCode = resp.StatusCode
		span.SetAttributes(attribute.Int(observability.AttrHTTPStatusCode, statusCode))
	}
	e.metrics.RecordRequestEnd(ctx, req.Method, statusCode, status, duration)

	return resp, err
}

func (e *Engine) roundTrip(ctx context.Context, req *http.Request) (*Response, error) {
	hresp, err := e.client.HTTPClient().Do(req.WithContext(ctx))
	if err != nil {
		return nil, classifyError(err)
	}
	defer func() { _ = hresp.Body.Close() }()

	body, err := io.ReadAll(hresp.Body)
	if err != nil {
		return nil, classifyError(fmt.Errorf("read response body: %w", err))
	}

	return &Response{
		StatusCode: hresp.StatusCode,
		Proto:      hresp.Proto,
		Header:     hresp.Header,
		Body:       body,
	}, nil
}

// retireExpiredConnections closes idle pooled connections once the pool
// epoch is older than the connection TTL, then starts a new epoch.
func (e *Engine) retireExpiredConnections(ctx context.Context) {
	if e.connectionTTL <= 0 {
		return
	}
	ttl := millis(e.connectionTTL)

	e.mu.Lock()
	now := e.now()
	expired := now.Sub(e.epoch) > ttl
	if expired {
		e.epoch = now
	}
	e.mu.Unlock()

	if expired {
		e.client.CloseIdleConnections()
		e.metrics.RecordConnectionsRetired(ctx)
		e.log.Debug("Pooled connections retired", logger.Fields("connection_ttl_ms", e.connectionTTL))
	}
}

func (e *Engine) isClosed() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.closed
}

// Close stops the transport client and, when it can be closed, the executor
// handed to the engine through its configuration. Close is idempotent.
//
// Shutting down a pool waits for its workers, so a callback running on that
// pool must not call Close with a context that never ends.
func (e *Engine) Close(ctx context.Context) error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return nil
	}
	e.closed = true
	e.mu.Unlock()

	err := e.client.Stop(ctx)

	switch exec := e.client.Executor().(type) {
	case interface{ Shutdown(context.Context) error }:
		err = errors.Join(err, exec.Shutdown(ctx))
	case io.Closer:
		err = errors.Join(err, exec.Close())
	}

	e.log.Debug("Engine closed")
	return err
}
