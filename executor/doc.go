// Package executor provides a bounded worker pool that satisfies
// transport.Executor.
//
// A Pool runs at most MaxConcurrent tasks at a time and buffers up to
// QueueSize pending tasks. Execute blocks while the queue is full unless
// MaxWait bounds the wait.
//
//	pool := executor.NewPool(executor.Config{Name: "engine", MaxConcurrent: 8})
//	defer pool.Close()
//	cfg.Executor = pool
package executor
