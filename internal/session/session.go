package session

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/anschnapp/mutflow/internal/logger"
	"github.com/anschnapp/mutflow/internal/registry"
)

// Session is the per-test-class state machine of spec.md §4.4. Create one
// per test class with New; it is not reused across classes.
type Session struct {
	reg *registry.Registry
	cfg Config

	mu sync.Mutex

	status Status

	discoveredPoints map[string]int // pointId -> variantCount
	pointMetadata    map[string]registry.DiscoveredPoint
	touchCounts      map[string]int
	executedTestIds  map[string]bool

	testedMutations map[registry.ActiveMutation]bool
	mutationResults map[registry.ActiveMutation]MutationResult
	trappedMutations []registry.ActiveMutation

	currentRun             int
	activeMutation         *registry.ActiveMutation
	testFailedInCurrentRun bool
	killedByTest           string
	timedOutInCurrentRun   bool

	handle *registry.SessionHandle
}

// New creates a session bound to reg with the given configuration. Negative
// MaxRuns or ExpectedTestCount are programmer errors and panic immediately,
// matching the fail-fast discipline for bad configuration.
func New(reg *registry.Registry, cfg Config) *Session {
	if cfg.MaxRuns < 0 || cfg.ExpectedTestCount < 0 {
		panic("session: negative MaxRuns or ExpectedTestCount")
	}
	return &Session{
		reg:              reg,
		cfg:              cfg,
		discoveredPoints: make(map[string]int),
		pointMetadata:    make(map[string]registry.DiscoveredPoint),
		touchCounts:      make(map[string]int),
		executedTestIds:  make(map[string]bool),
		testedMutations:  make(map[registry.ActiveMutation]bool),
		mutationResults:  make(map[registry.ActiveMutation]MutationResult),
	}
}

// StartRun begins run. run 0 is the baseline (mutation must be nil); run ≥ 1
// activates mutation. A negative run index is a programmer error.
func (s *Session) StartRun(run int, mutation *registry.ActiveMutation) {
	if run < 0 {
		panic("session: negative run index")
	}
	s.mu.Lock()
	s.currentRun = run
	s.activeMutation = mutation
	s.testFailedInCurrentRun = false
	s.timedOutInCurrentRun = false
	s.killedByTest = ""
	if run == 0 {
		s.status = StatusBaseline
	} else {
		s.status = StatusMutationRun
	}
	s.mu.Unlock()

	var active *registry.ActiveMutation
	if mutation != nil {
		copied := *mutation
		active = &copied
	}
	s.handle = s.reg.WithSession(active)
}

// TrackTestExecution records that testId executed during the current run.
func (s *Session) TrackTestExecution(testId string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.executedTestIds[testId] = true
}

// MarkTestFailed routes a failed test execution into the current run's
// bookkeeping. Outside a mutation run (i.e. during baseline) the call is
// ignored: nothing is recorded.
func (s *Session) MarkTestFailed(testName string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.currentRun == 0 {
		return
	}
	s.testFailedInCurrentRun = true
	if s.killedByTest == "" {
		s.killedByTest = testName
	}
}

// RecordTimeout marks the current mutation run as timed out. The offending
// test name only appears in the logged diagnostic; it is not stored in the
// recorded result.
func (s *Session) RecordTimeout(testName string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.currentRun == 0 {
		return
	}
	s.timedOutInCurrentRun = true
	logger.Warn("session: run %d timed out in %s; consider a mutflow:ignore pragma on the offending line", s.currentRun, testName)
}

// EndRun releases the registry session slot and, for the baseline run,
// merges discoveries and performs partial-run detection and trap
// resolution. Calling EndRun without a matching StartRun is a programmer
// error.
func (s *Session) EndRun() {
	if s.handle == nil {
		panic("session: EndRun called with no run started")
	}
	discoveries := s.handle.Release()
	s.handle = nil

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.currentRun != 0 {
		return
	}

	for id, meta := range discoveries.Points {
		s.discoveredPoints[id] = meta.VariantCount
		s.pointMetadata[id] = meta
	}
	for id, count := range discoveries.TouchCounts {
		s.touchCounts[id] = count
	}

	if len(s.executedTestIds) < s.cfg.ExpectedTestCount {
		s.status = StatusPartialRun
		logger.Warn("session: partial run detected (%d/%d tests executed); skipping mutation runs", len(s.executedTestIds), s.cfg.ExpectedTestCount)
		return
	}

	s.resolveTraps()
	s.status = StatusReady
}

// resolveTraps enumerates (pointId, variantIndex) for every discovered point
// and variant, renders its display name, and matches it against each
// configured trap string in order. Unmatched traps are diagnosed and
// skipped. Must be called with s.mu held.
func (s *Session) resolveTraps() {
	for _, trap := range s.cfg.Traps {
		found := false
		for _, pointID := range sortedKeys(s.discoveredPoints) {
			variantCount := s.discoveredPoints[pointID]
			for v := 0; v < variantCount; v++ {
				m := registry.ActiveMutation{PointID: pointID, VariantIndex: v}
				if s.displayNameLocked(m) == trap {
					s.trappedMutations = append(s.trappedMutations, m)
					found = true
					break
				}
			}
			if found {
				break
			}
		}
		if !found {
			logger.Warn("session: trap %q matched no discovered mutation; candidates: %s", trap, strings.Join(s.candidateDisplayNames(), ", "))
		}
	}
}

func (s *Session) candidateDisplayNames() []string {
	var names []string
	for _, pointID := range sortedKeys(s.discoveredPoints) {
		variantCount := s.discoveredPoints[pointID]
		for v := 0; v < variantCount; v++ {
			names = append(names, s.displayNameLocked(registry.ActiveMutation{PointID: pointID, VariantIndex: v}))
		}
	}
	return names
}

// RecordMutationResult freezes the outcome of the current mutation run. It
// is a no-op for the baseline run, which has no ActiveMutation to record
// against.
func (s *Session) RecordMutationResult() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.currentRun == 0 || s.activeMutation == nil {
		return
	}
	m := *s.activeMutation
	var result MutationResult
	switch {
	case s.timedOutInCurrentRun:
		result = MutationResult{Kind: TimedOut}
	case s.testFailedInCurrentRun:
		result = MutationResult{Kind: Killed, KilledBy: s.killedByTest}
	default:
		result = MutationResult{Kind: Survived}
	}
	s.mutationResults[m] = result
	s.testedMutations[m] = true
}

// DidMutationSurvive reports whether the most recently recorded result for
// the current mutation is Survived.
func (s *Session) DidMutationSurvive() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.activeMutation == nil {
		return false
	}
	return s.mutationResults[*s.activeMutation].Kind == Survived
}

// GetActiveMutation returns the mutation active in the current run, or nil
// during baseline.
func (s *Session) GetActiveMutation() *registry.ActiveMutation {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.activeMutation == nil {
		return nil
	}
	copied := *s.activeMutation
	return &copied
}

// GetDisplayName renders m using the canonical
// "(file:line) original → variant[ #occurrence]" form.
func (s *Session) GetDisplayName(m registry.ActiveMutation) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.displayNameLocked(m)
}

func (s *Session) displayNameLocked(m registry.ActiveMutation) string {
	meta, ok := s.pointMetadata[m.PointID]
	if !ok || m.VariantIndex < 0 || m.VariantIndex >= len(meta.VariantOperators) {
		return fmt.Sprintf("<unknown mutation %s#%d>", m.PointID, m.VariantIndex)
	}
	base := fmt.Sprintf("(%s:%d) %s → %s", meta.Location.File, meta.Location.Line, meta.OriginalOperator, meta.VariantOperators[m.VariantIndex])
	if meta.OccurrenceOnLine > 1 {
		base = fmt.Sprintf("%s #%d", base, meta.OccurrenceOnLine)
	}
	return base
}

func ownerOf(pointID string) string {
	idx := strings.LastIndex(pointID, "_")
	if idx < 0 {
		return pointID
	}
	return pointID[:idx]
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
