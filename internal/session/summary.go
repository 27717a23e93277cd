package session

import "github.com/anschnapp/mutflow/internal/registry"

// Close finalizes the session and returns its summary. It does not release
// any registry resources — those are already released by the EndRun of the
// session's last run.
func (s *Session) Close() Summary {
	return s.Summary()
}

// Summary assembles the filter-aware report spec.md §4.4 requires: total
// mutations in scope, how many were tested, killed, survived, and
// remaining, plus per-tested-mutation detail and copy-pastable trap lines
// for every survivor.
func (s *Session) Summary() Summary {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out Summary
	for _, pointID := range sortedKeys(s.discoveredPoints) {
		owner := ownerOf(pointID)
		if !s.passesFilter(owner) {
			continue
		}
		variantCount := s.discoveredPoints[pointID]
		out.Total += variantCount
		for v := 0; v < variantCount; v++ {
			m := registry.ActiveMutation{PointID: pointID, VariantIndex: v}
			result, tested := s.mutationResults[m]
			if !tested {
				continue
			}
			out.Tested++
			name := s.displayNameLocked(m)
			switch result.Kind {
			case Killed:
				out.Killed++
				out.Entries = append(out.Entries, SummaryEntry{DisplayName: name, Mutation: m, Result: result.KilledBy})
			case Survived:
				out.Survived++
				out.Entries = append(out.Entries, SummaryEntry{DisplayName: name, Mutation: m, Result: "SURVIVED"})
				out.TrapLines = append(out.TrapLines, name)
			case TimedOut:
				out.Entries = append(out.Entries, SummaryEntry{DisplayName: name, Mutation: m, Result: "TIMED_OUT"})
			}
		}
	}
	out.Remaining = out.Total - out.Tested
	return out
}
