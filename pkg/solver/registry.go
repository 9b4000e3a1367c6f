package solver

import (
	"context"
	"io"
	"maps"
	"slices"

	"github.com/charmbracelet/log"
)

// Options configures a registry.
type Options struct {
	// Disabled marks back-ends unavailable regardless of their probe.
	// Heuristic and fallback cannot be disabled.
	Disabled []Kind
	Logger   *log.Logger
}

// Registry holds one back-end per kind and the availability map probed
// once at construction.
//
// A Registry is immutable after construction and safe for concurrent use.
type Registry struct {
	backends  map[Kind]Backend
	available map[Kind]bool
}

// NewRegistry builds the standard six back-ends and probes them.
func NewRegistry(ctx context.Context, opts Options) *Registry {
	smt, sym := NewSMT(), NewSymbolic()
	return NewRegistryWith(opts,
		NewHeuristic(),
		smt,
		sym,
		NewGeometry(ctx),
		NewHybrid(smt, sym),
		NewFallback(),
	)
}

// NewRegistryWith builds a registry from explicit back-ends. Missing
// heuristic or fallback back-ends are added, since the fallback chain
// depends on them.
func NewRegistryWith(opts Options, backends ...Backend) *Registry {
	logger := opts.Logger
	if logger == nil {
		logger = log.New(io.Discard)
	}
	r := &Registry{
		backends:  make(map[Kind]Backend, len(Kinds)),
		available: make(map[Kind]bool, len(Kinds)),
	}
	for _, b := range backends {
		r.backends[b.Kind()] = b
	}
	if _, ok := r.backends[KindHeuristic]; !ok {
		r.backends[KindHeuristic] = NewHeuristic()
	}
	if _, ok := r.backends[KindFallback]; !ok {
		r.backends[KindFallback] = NewFallback()
	}

	for _, k := range Kinds {
		b, ok := r.backends[k]
		if !ok {
			r.available[k] = false
			continue
		}
		avail := b.Available()
		if slices.Contains(opts.Disabled, k) && k != KindHeuristic && k != KindFallback {
			avail = false
		}
		r.available[k] = avail
	}
	// A built-in hybrid never runs a disabled part.
	if h, ok := r.backends[KindHybrid].(*Hybrid); ok {
		h = &Hybrid{SMT: h.SMT, Symbolic: h.Symbolic}
		if slices.Contains(opts.Disabled, KindSMT) {
			h.SMT = nil
		}
		if slices.Contains(opts.Disabled, KindSymbolic) {
			h.Symbolic = nil
		}
		r.backends[KindHybrid] = h
		if !h.Available() {
			r.available[KindHybrid] = false
		}
	}
	for _, k := range Kinds {
		logger.Debug("probed solver back-end", "kind", k, "available", r.available[k])
	}
	return r
}

// Get returns the back-end for k.
func (r *Registry) Get(k Kind) (Backend, bool) {
	b, ok := r.backends[k]
	return b, ok
}

// Available reports the cached availability of k.
func (r *Registry) Available(k Kind) bool { return r.available[k] }

// AnyAdvanced reports whether SMT, symbolic or geometry is available.
func (r *Registry) AnyAdvanced() bool {
	return r.available[KindSMT] || r.available[KindSymbolic] || r.available[KindGeometry]
}

// Availability returns a copy of the availability map.
func (r *Registry) Availability() map[Kind]bool {
	return maps.Clone(r.available)
}
