package topology

import "maps"

// DefaultBranch is checked out for stage labels with no entry.
const DefaultBranch = "master"

// BranchMap maps stage labels to the branch their pipeline checks out.
type BranchMap struct {
	entries  map[string]string
	fallback string
}

// DefaultBranches maps "dev" to "dev"; everything else builds master.
func DefaultBranches() BranchMap {
	return BranchMap{entries: map[string]string{"dev": "dev"}, fallback: DefaultBranch}
}

// With returns a copy extended by overrides. Empty values are ignored.
func (m BranchMap) With(overrides map[string]string) BranchMap {
	out := BranchMap{entries: maps.Clone(m.entries), fallback: m.fallback}
	if out.entries == nil {
		out.entries = make(map[string]string)
	}
	for label, branch := range overrides {
		if branch != "" {
			out.entries[label] = branch
		}
	}
	return out
}

// Resolve returns the branch for label.
func (m BranchMap) Resolve(label string) string {
	if b, ok := m.entries[label]; ok {
		return b
	}
	if m.fallback == "" {
		return DefaultBranch
	}
	return m.fallback
}
