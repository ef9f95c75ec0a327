package executor

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/kbukum/clientengine/errors"
	"github.com/kbukum/clientengine/transport"
)

var _ transport.Executor = (*Pool)(nil)

func TestPool_RunsTasks(t *testing.T) {
	p := NewPool(Config{Name: "test", MaxConcurrent: 3, QueueSize: 10})
	defer p.Close()

	var count atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		if err := p.Execute(func() {
			defer wg.Done()
			count.Add(1)
		}); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
	}
	wg.Wait()

	if count.Load() != 10 {
		t.Errorf("expected 10 tasks, got %d", count.Load())
	}
}

func TestPool_LimitsConcurrency(t *testing.T) {
	p := NewPool(Config{Name: "test", MaxConcurrent: 2, QueueSize: 10})
	defer p.Close()

	var current, peak atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		_ = p.Execute(func() {
			defer wg.Done()
			n := current.Add(1)
			for {
				old := peak.Load()
				if n <= old || peak.CompareAndSwap(old, n) {
					break
				}
			}
			time.Sleep(5 * time.Millisecond)
			current.Add(-1)
		})
	}
	wg.Wait()

	if peak.Load() > 2 {
		t.Errorf("expected at most 2 concurrent tasks, got %d", peak.Load())
	}
}

func TestPool_RejectsWhenFull(t *testing.T) {
	var rejected atomic.Int32
	p := NewPool(Config{
		Name:          "test",
		MaxConcurrent: 1,
		QueueSize:     1,
		MaxWait:       -1,
		OnReject:      func(string) { rejected.Add(1) },
	})

	started := make(chan struct{})
	release := make(chan struct{})
	if err := p.Execute(func() {
		close(started)
		<-release
	}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	<-started
	if err := p.Execute(func() {}); err != nil {
		t.Fatalf("expected queued task, got %v", err)
	}

	err := p.Execute(func() {})
	if err != ErrPoolFull {
		t.Errorf("expected ErrPoolFull, got %v", err)
	}
	if rejected.Load() != 1 {
		t.Errorf("expected OnReject to be called once, got %d", rejected.Load())
	}
	if p.InUse() != 1 || p.Queued() != 1 {
		t.Errorf("expected 1 running and 1 queued, got %d and %d", p.InUse(), p.Queued())
	}

	close(release)
	_ = p.Close()
}

func TestPool_MaxWaitTimesOut(t *testing.T) {
	p := NewPool(Config{Name: "test", MaxConcurrent: 1, QueueSize: 1, MaxWait: 20 * time.Millisecond})

	started := make(chan struct{})
	release := make(chan struct{})
	_ = p.Execute(func() {
		close(started)
		<-release
	})
	<-started
	_ = p.Execute(func() {})

	begin := time.Now()
	if err := p.Execute(func() {}); err != ErrPoolFull {
		t.Errorf("expected ErrPoolFull, got %v", err)
	}
	if time.Since(begin) < 20*time.Millisecond {
		t.Error("expected Execute to wait for MaxWait")
	}

	close(release)
	_ = p.Close()
}

func TestPool_CloseDrainsQueue(t *testing.T) {
	p := NewPool(Config{Name: "test", MaxConcurrent: 1, QueueSize: 5})

	var count atomic.Int32
	for i := 0; i < 5; i++ {
		_ = p.Execute(func() {
			time.Sleep(time.Millisecond)
			count.Add(1)
		})
	}
	if err := p.Close(); err != nil {
		t.Fatalf("unexpected close error: %v", err)
	}
	if count.Load() != 5 {
		t.Errorf("expected queued tasks to drain, got %d", count.Load())
	}

	err := p.Execute(func() {})
	if !errors.HasCode(err, errors.ErrCodeClosed) {
		t.Errorf("expected CLOSED after Close, got %v", err)
	}
	if err := p.Close(); err != nil {
		t.Errorf("second Close should be a no-op, got %v", err)
	}
}

func TestPool_ShutdownRespectsContext(t *testing.T) {
	p := NewPool(Config{Name: "test", MaxConcurrent: 1})
	release := make(chan struct{})
	_ = p.Execute(func() { <-release })

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if err := p.Shutdown(ctx); err != context.DeadlineExceeded {
		t.Errorf("expected deadline exceeded, got %v", err)
	}
	close(release)
	_ = p.Close()
}

func TestPool_ShutdownReleasesBlockedExecute(t *testing.T) {
	p := NewPool(Config{Name: "test", MaxConcurrent: 1, QueueSize: 1})

	started := make(chan struct{})
	release := make(chan struct{})
	_ = p.Execute(func() {
		close(started)
		<-release
	})
	<-started

	var queuedRan atomic.Bool
	if err := p.Execute(func() { queuedRan.Store(true) }); err != nil {
		t.Fatalf("expected queued task to be accepted, got %v", err)
	}

	blocked := make(chan error, 1)
	go func() { blocked <- p.Execute(func() {}) }()

	// Let the third Execute reach the full queue before shutting down.
	time.Sleep(20 * time.Millisecond)

	shutdown := make(chan error, 1)
	go func() { shutdown <- p.Shutdown(context.Background()) }()

	select {
	case err := <-blocked:
		if !errors.HasCode(err, errors.ErrCodeClosed) {
			t.Errorf("expected CLOSED for blocked Execute, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Shutdown did not release a blocked Execute")
	}

	close(release)
	select {
	case err := <-shutdown:
		if err != nil {
			t.Errorf("unexpected shutdown error: %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Shutdown did not complete after workers were released")
	}
	if !queuedRan.Load() {
		t.Error("expected the task queued before Shutdown to run")
	}
}

func TestPool_SurvivesPanics(t *testing.T) {
	p := NewPool(Config{Name: "test", MaxConcurrent: 1, QueueSize: 2})
	defer p.Close()

	done := make(chan struct{})
	_ = p.Execute(func() { panic("boom") })
	_ = p.Execute(func() { close(done) })

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("worker did not survive panic")
	}
}

func TestPool_NilTask(t *testing.T) {
	p := NewPool(DefaultConfig("test"))
	defer p.Close()
	if err := p.Execute(nil); !errors.HasCode(err, errors.ErrCodeMissingField) {
		t.Errorf("expected MISSING_FIELD, got %v", err)
	}
}

func TestNewPool_Defaults(t *testing.T) {
	p := NewPool(Config{})
	defer p.Close()
	if p.MaxConcurrent() != 10 {
		t.Errorf("expected 10 workers, got %d", p.MaxConcurrent())
	}
	if p.Name() != "executor" {
		t.Errorf("expected default name, got %q", p.Name())
	}
}
