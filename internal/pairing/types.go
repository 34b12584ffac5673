package pairing

import (
	"time"

	id "aroundtable/pkg/domain"
)

// Group is an ordered list of participants.
type Group []id.FamilyID

// Groups is a partition: an ordered list of groups.
type Groups []Group

// Record is one saved session as seen by the engine.
type Record struct {
	CreatedAt time.Time
	Groups    Groups
}

// Frequency counts prior co-occurrences per ordered pair. It is symmetric and
// only holds entries for current roster members.
type Frequency map[id.FamilyID]map[id.FamilyID]int

// Count returns how often a and b shared a group. Unknown ids count as 0.
func (f Frequency) Count(a, b id.FamilyID) int {
	return f[a][b]
}

// Members returns the flattened participants in group order.
func (g Groups) Members() []id.FamilyID {
	var n int
	for _, group := range g {
		n += len(group)
	}
	out := make([]id.FamilyID, 0, n)
	for _, group := range g {
		out = append(out, group...)
	}
	return out
}

// Sizes returns the length of each group.
func (g Groups) Sizes() []int {
	sizes := make([]int, len(g))
	for i, group := range g {
		sizes[i] = len(group)
	}
	return sizes
}

// Clone returns a deep copy.
func (g Groups) Clone() Groups {
	if g == nil {
		return nil
	}
	out := make(Groups, len(g))
	for i, group := range g {
		out[i] = append(Group{}, group...)
	}
	return out
}
