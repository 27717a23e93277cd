// Package registry implements the process-wide runtime mutation registry
// (C1): the compile-time/runtime bridge that discovers mutation points as
// the instrumented program executes and activates at most one variant per
// run.
//
// The design mirrors the teacher's state.FileManager (internal/state/state.go):
// one mutex guarding one struct, no lock-free cleverness. Here the guarded
// struct is an in-memory session slot instead of a JSON file on disk, and a
// second, outer mutex serializes whole-session acquisition the way a file
// lock would serialize concurrent writers to the same state file.
package registry

import (
	"context"
	"sync"

	"github.com/anschnapp/mutflow/internal/ir"
)

// DiscoveredPoint is the descriptive record captured the first time Check
// observes a given point id within a session.
type DiscoveredPoint struct {
	PointID          string
	VariantCount     int
	Location         ir.SourceLocation
	OriginalOperator string
	VariantOperators []string
	OccurrenceOnLine int
}

// ActiveMutation names the single variant active during a mutation run.
type ActiveMutation struct {
	PointID      string
	VariantIndex int
}

// Discoveries is the accumulated result of one withSession scope: every
// point observed and, for a baseline run, how many distinct tests touched
// it.
type Discoveries struct {
	Points      map[string]DiscoveredPoint
	TouchCounts map[string]int
}

// Registry is the single process-wide coordinator. Create one with New and
// share it across the process; it has no exported fields to copy.
type Registry struct {
	sessionMu sync.Mutex // held for the full withSession scope

	mu             sync.Mutex // guards everything below, held only briefly
	held           bool
	activeMutation *ActiveMutation
	points         map[string]DiscoveredPoint
	touchedBy      map[string]map[string]struct{}
}

// New builds an empty, session-free Registry.
func New() *Registry {
	return &Registry{}
}

// SessionHandle is returned by WithSession. Exactly one may exist at a time;
// call Release to end the scope and retrieve what was discovered.
type SessionHandle struct {
	r *Registry
}

// WithSession acquires the single process-wide session slot, blocking until
// any concurrently held session is released. active is nil for a baseline
// run (no variant active) or the mutation to activate for a mutation run.
func (r *Registry) WithSession(active *ActiveMutation) *SessionHandle {
	r.sessionMu.Lock()

	r.mu.Lock()
	r.held = true
	r.activeMutation = active
	r.points = make(map[string]DiscoveredPoint)
	r.touchedBy = make(map[string]map[string]struct{})
	r.mu.Unlock()

	return &SessionHandle{r: r}
}

// Release ends the session scope and returns everything discovered during
// it. Calling Release more than once is a programmer error and panics.
func (h *SessionHandle) Release() Discoveries {
	r := h.r
	r.mu.Lock()
	if !r.held {
		r.mu.Unlock()
		panic("registry: Release called with no session held")
	}
	touchCounts := make(map[string]int, len(r.touchedBy))
	for pointID, testers := range r.touchedBy {
		touchCounts[pointID] = len(testers)
	}
	out := Discoveries{Points: r.points, TouchCounts: touchCounts}
	r.held = false
	r.activeMutation = nil
	r.points = nil
	r.touchedBy = nil
	r.mu.Unlock()

	r.sessionMu.Unlock()
	return out
}

type testIDKey struct{}

// WithTestID attaches a test identifier to ctx so concurrent Check calls
// from different test workers can be attributed to distinct tests for
// touch-count purposes.
func WithTestID(ctx context.Context, testID string) context.Context {
	return context.WithValue(ctx, testIDKey{}, testID)
}

// TestIDFromContext retrieves the identifier set by WithTestID, if any.
func TestIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(testIDKey{}).(string)
	return id, ok
}

// Check implements ir.Checker. It is idempotent for a given pointId within a
// session: the first call records the discovered point, later calls only
// update touch attribution. Outside any session it always reports "use
// original".
func (r *Registry) Check(ctx context.Context, pointID string, variantCount int, loc ir.SourceLocation, originalOperator string, variantOperators []string, occurrenceOnLine int) (int, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.held {
		return 0, false
	}

	if _, seen := r.points[pointID]; !seen {
		r.points[pointID] = DiscoveredPoint{
			PointID:          pointID,
			VariantCount:     variantCount,
			Location:         loc,
			OriginalOperator: originalOperator,
			VariantOperators: append([]string(nil), variantOperators...),
			OccurrenceOnLine: occurrenceOnLine,
		}
		r.touchedBy[pointID] = make(map[string]struct{})
	}

	if testID, ok := TestIDFromContext(ctx); ok {
		r.touchedBy[pointID][testID] = struct{}{}
	}

	if r.activeMutation != nil && r.activeMutation.PointID == pointID {
		return r.activeMutation.VariantIndex, true
	}
	return 0, false
}

// Reset clears all state unconditionally. It exists only for tests that need
// a clean Registry between cases without constructing a new one; production
// callers should never need it.
func (r *Registry) Reset() {
	r.mu.Lock()
	r.held = false
	r.activeMutation = nil
	r.points = nil
	r.touchedBy = nil
	r.mu.Unlock()
}
