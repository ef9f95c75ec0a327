package engine

import (
	"context"
	"net/http"
	"sync"
)

// Response is a fully buffered HTTP response.
type Response struct {
	// StatusCode is the HTTP status code.
	StatusCode int
	// Proto is the protocol the response was received over, e.g. "HTTP/2.0".
	Proto string
	// Header holds the response headers.
	Header http.Header
	// Body is the raw response body.
	Body []byte
}

// IsSuccess returns true if the status code is 2xx.
func (r *Response) IsSuccess() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// IsError returns true if the status code is 4xx or 5xx.
func (r *Response) IsError() bool {
	return r.StatusCode >= 400
}

// Callback receives the outcome of a submitted exchange on the executor.
type Callback func(*Response, error)

// Future is the pending outcome of a submitted exchange.
type Future struct {
	done chan struct{}
	once sync.Once
	resp *Response
	err  error
}

func newFuture() *Future {
	return &Future{done: make(chan struct{})}
}

func (f *Future) complete(resp *Response, err error) {
	f.once.Do(func() {
		f.resp, f.err = resp, err
		close(f.done)
	})
}

// Done is closed once the exchange has completed.
func (f *Future) Done() <-chan struct{} {
	return f.done
}

// Wait blocks until the exchange completes or ctx is done.
func (f *Future) Wait(ctx context.Context) (*Response, error) {
	select {
	case <-f.done:
		return f.resp, f.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
