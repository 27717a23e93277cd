package session

import (
	"hash/fnv"
	"math/rand/v2"
	"sort"

	"github.com/anschnapp/mutflow/internal/registry"
)

// candidate is one untested (mutation, owner) pair eligible for selection.
type candidate struct {
	Mutation registry.ActiveMutation
	Owner    string
}

// SelectMutationForRun computes the mutation to activate for run (which must
// be ≥ 1). It returns ok=false when the session is in a partial-run state,
// when the run budget is exhausted, or when every filtered mutation has
// already been tested, in which case the session is marked Exhausted.
//
// The baseline occupies the first unit of cfg.MaxRuns: spec.md's FSM sends
// Baseline straight to Exhausted when maxRuns=1, so a MaxRuns of 1 allows
// zero mutation runs, a MaxRuns of 2 allows exactly one, and so on.
// MaxRuns=0 means unbounded, matching session.Config's documented default.
func (s *Session) SelectMutationForRun(run int) (registry.ActiveMutation, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.status == StatusPartialRun {
		return registry.ActiveMutation{}, false
	}

	if s.cfg.MaxRuns > 0 && run >= s.cfg.MaxRuns {
		s.status = StatusExhausted
		return registry.ActiveMutation{}, false
	}

	untested := s.untestedLocked()
	if len(untested) == 0 {
		s.status = StatusExhausted
		return registry.ActiveMutation{}, false
	}

	untestedSet := make(map[registry.ActiveMutation]bool, len(untested))
	for _, c := range untested {
		untestedSet[c.Mutation] = true
	}
	for _, trap := range s.trappedMutations {
		if untestedSet[trap] {
			return trap, true
		}
	}

	seed := s.deriveSeed(run)
	switch s.cfg.Selection {
	case PureRandom:
		return s.selectPureRandom(untested, seed), true
	case MostLikelyRandom:
		return s.selectMostLikelyRandom(untested, seed), true
	case MostLikelyStable:
		return s.selectMostLikelyStable(untested), true
	default:
		panic("session: unknown selection strategy")
	}
}

// untestedLocked builds the target-filtered untested set. Must be called
// with s.mu held.
func (s *Session) untestedLocked() []candidate {
	var out []candidate
	for _, pointID := range sortedKeys(s.discoveredPoints) {
		owner := ownerOf(pointID)
		if !s.passesFilter(owner) {
			continue
		}
		variantCount := s.discoveredPoints[pointID]
		for v := 0; v < variantCount; v++ {
			m := registry.ActiveMutation{PointID: pointID, VariantIndex: v}
			if s.testedMutations[m] {
				continue
			}
			out = append(out, candidate{Mutation: m, Owner: owner})
		}
	}
	return out
}

func (s *Session) passesFilter(owner string) bool {
	if len(s.cfg.IncludeTargets) > 0 {
		included := false
		for _, t := range s.cfg.IncludeTargets {
			if t == owner {
				included = true
				break
			}
		}
		if !included {
			return false
		}
	}
	for _, t := range s.cfg.ExcludeTargets {
		if t == owner {
			return false
		}
	}
	return true
}

func (s *Session) deriveSeed(run int) int64 {
	switch s.cfg.Shuffle {
	case PerRun:
		return s.cfg.SessionSeed + int64(run)
	case PerChange:
		return hashDiscoveredPoints(s.discoveredPoints) + int64(run)
	default:
		panic("session: unknown shuffle policy")
	}
}

func hashDiscoveredPoints(points map[string]int) int64 {
	h := fnv.New64a()
	for _, id := range sortedKeys(points) {
		h.Write([]byte(id))
		h.Write([]byte{byte(points[id])})
	}
	return int64(h.Sum64())
}

func newSeededRand(seed int64) *rand.Rand {
	return rand.New(rand.NewPCG(uint64(seed), uint64(seed)>>1|1))
}

func (s *Session) selectPureRandom(untested []candidate, seed int64) registry.ActiveMutation {
	sorted := sortCandidates(untested)
	r := newSeededRand(seed)
	return sorted[r.IntN(len(sorted))].Mutation
}

func (s *Session) selectMostLikelyRandom(untested []candidate, seed int64) registry.ActiveMutation {
	sorted := sortCandidates(untested)
	weights := make([]float64, len(sorted))
	var total float64
	for i, c := range sorted {
		touch := s.touchCounts[c.Mutation.PointID]
		if touch < 1 {
			touch = 1
		}
		weights[i] = 1.0 / float64(touch)
		total += weights[i]
	}
	r := newSeededRand(seed)
	target := r.Float64() * total
	var cumulative float64
	for i, w := range weights {
		cumulative += w
		if target <= cumulative {
			return sorted[i].Mutation
		}
	}
	return sorted[len(sorted)-1].Mutation
}

func (s *Session) selectMostLikelyStable(untested []candidate) registry.ActiveMutation {
	sorted := append([]candidate(nil), untested...)
	sort.Slice(sorted, func(i, j int) bool {
		ti, tj := s.touchCounts[sorted[i].Mutation.PointID], s.touchCounts[sorted[j].Mutation.PointID]
		if ti != tj {
			return ti < tj
		}
		if sorted[i].Mutation.PointID != sorted[j].Mutation.PointID {
			return sorted[i].Mutation.PointID < sorted[j].Mutation.PointID
		}
		return sorted[i].Mutation.VariantIndex < sorted[j].Mutation.VariantIndex
	})
	return sorted[0].Mutation
}

func sortCandidates(cs []candidate) []candidate {
	sorted := append([]candidate(nil), cs...)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].Mutation.PointID != sorted[j].Mutation.PointID {
			return sorted[i].Mutation.PointID < sorted[j].Mutation.PointID
		}
		return sorted[i].Mutation.VariantIndex < sorted[j].Mutation.VariantIndex
	})
	return sorted
}
