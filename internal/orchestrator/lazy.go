package orchestrator

import "sync"

// Lazy builds one Orchestrator on first use, even under concurrent first access
type Lazy struct {
	once  sync.Once
	build func() *Orchestrator
	o     *Orchestrator
}

// NewLazy creates a Lazy that calls build at most once
func NewLazy(build func() *Orchestrator) *Lazy {
	return &Lazy{build: build}
}

// Get returns the Orchestrator, building it if needed
func (l *Lazy) Get() *Orchestrator {
	l.once.Do(func() {
		l.o = l.build()
	})
	return l.o
}
