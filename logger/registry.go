package logger

import "sync"

// Named loggers let a host program hand preconfigured loggers to packages
// that only know a component name, such as engine factories and executor
// pools.
var (
	namedMu sync.RWMutex
	named   = map[string]*Logger{}
)

// Register stores l under name. A nil l removes the entry.
func Register(name string, l *Logger) {
	namedMu.Lock()
	defer namedMu.Unlock()
	if l == nil {
		delete(named, name)
		return
	}
	named[name] = l
}

// RegisterComponents registers a component-tagged child of the global
// logger for each name. Call it after Init so the children share its output.
func RegisterComponents(names ...string) {
	base := GetGlobalLogger()
	for _, name := range names {
		Register(name, base.WithComponent(name))
	}
}

// Get returns the logger registered under name, or the global logger tagged
// with name as its component.
func Get(name string) *Logger {
	namedMu.RLock()
	l, ok := named[name]
	namedMu.RUnlock()
	if ok {
		return l
	}
	return GetGlobalLogger().WithComponent(name)
}
