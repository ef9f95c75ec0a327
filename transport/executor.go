package transport

// Executor runs tasks submitted by the client and the engine built on it.
// Execute returns an error when the task is rejected; it never runs the
// task in that case.
type Executor interface {
	Execute(task func()) error
}

// GoExecutor runs every task on its own goroutine. It is the default.
type GoExecutor struct{}

// Execute starts task on a new goroutine.
func (GoExecutor) Execute(task func()) error {
	go task()
	return nil
}

// ExecutorFunc adapts a function to the Executor interface.
type ExecutorFunc func(task func()) error

// Execute calls f(task).
func (f ExecutorFunc) Execute(task func()) error { return f(task) }
