package control

import (
	"fmt"
	"sort"
	"sync"
)

// Logger defines the logging interface used by the Registry.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Registry holds the active definitions and their observable set.
//
// Readers get copies; Reload swaps both together only when the new file
// is valid, so a bad edit never leaves the controller half-configured.
//
// All public methods are thread-safe.
type Registry struct {
	mu          sync.RWMutex
	defs        []Definition
	observables ObservableSet
	logger      Logger
}

// NewRegistry creates a registry seeded with defs.
func NewRegistry(defs []Definition) *Registry {
	r := &Registry{logger: noopLogger{}}
	r.set(defs)
	return r
}

// LoadRegistry loads path and returns a registry holding its definitions.
func LoadRegistry(path string) (*Registry, error) {
	defs, err := Load(path)
	if err != nil {
		return nil, err
	}
	return NewRegistry(defs), nil
}

// SetLogger sets the logger for the registry.
func (r *Registry) SetLogger(logger Logger) {
	r.mu.Lock()
	r.logger = logger
	r.mu.Unlock()
}

func (r *Registry) set(defs []Definition) {
	copied := make([]Definition, len(defs))
	for i, d := range defs {
		copied[i] = d.Clone()
	}
	observables := DeriveObservables(copied)

	r.mu.Lock()
	r.defs = copied
	r.observables = observables
	r.mu.Unlock()
}

// Reload re-reads path. On error the current definitions stay in place.
func (r *Registry) Reload(path string) error {
	defs, err := Load(path)
	if err != nil {
		r.mu.RLock()
		logger := r.logger
		r.mu.RUnlock()
		logger.Error("control definitions reload rejected", "path", path, "error", err)
		return fmt.Errorf("reloading definitions: %w", err)
	}

	r.set(defs)

	r.mu.RLock()
	logger, pairs := r.logger, r.observables.Pairs()
	r.mu.RUnlock()
	logger.Info("control definitions reloaded", "path", path, "definitions", len(defs), "observed_pairs", pairs)
	return nil
}

// Definitions returns deep copies of the active definitions in file order.
func (r *Registry) Definitions() []Definition {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Definition, len(r.defs))
	for i, d := range r.defs {
		out[i] = d.Clone()
	}
	return out
}

// Observables returns a copy of the current observable set.
func (r *Registry) Observables() ObservableSet {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.observables.clone()
}

// Channels returns the distinct relay channels referenced by any rule, ascending.
func (r *Registry) Channels() []int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	seen := make(map[int]struct{}, len(r.defs))
	channels := make([]int, 0, len(r.defs))
	for _, d := range r.defs {
		if _, ok := seen[d.Channel]; ok {
			continue
		}
		seen[d.Channel] = struct{}{}
		channels = append(channels, d.Channel)
	}
	sort.Ints(channels)
	return channels
}
