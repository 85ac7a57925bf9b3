// Package route maps exact paths to view-render callbacks.
package route

import (
	"context"
	"log/slog"
	"sort"
)

// RenderFunc repaints the single application view. It may start
// asynchronous loading internally; the router does not wait for it.
type RenderFunc func(ctx context.Context)

// Table is the path to render-callback mapping, populated at startup.
// Lookups are exact-match only: no wildcards, prefixes or parameters.
type Table struct {
	routes map[string]RenderFunc
	logger *slog.Logger
}

// NewTable creates an empty route table. A nil logger uses slog.Default.
func NewTable(logger *slog.Logger) *Table {
	if logger == nil {
		logger = slog.Default()
	}
	return &Table{
		routes: make(map[string]RenderFunc),
		logger: logger.With("component", "route"),
	}
}

// Register associates fn with path. Registering a path twice replaces the
// earlier callback; the replacement is logged.
func (t *Table) Register(path string, fn RenderFunc) {
	if _, exists := t.routes[path]; exists {
		t.logger.Warn("route replaced", slog.String("path", path))
	}
	t.routes[path] = fn
}

// Resolve returns the callback registered for path. Absence is a normal
// outcome, not an error.
func (t *Table) Resolve(path string) (RenderFunc, bool) {
	fn, ok := t.routes[path]
	if !ok || fn == nil {
		return nil, false
	}
	return fn, true
}

// Paths returns the registered paths in sorted order.
func (t *Table) Paths() []string {
	paths := make([]string, 0, len(t.routes))
	for p := range t.routes {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}
