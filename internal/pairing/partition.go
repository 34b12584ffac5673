package pairing

import (
	id "aroundtable/pkg/domain"
)

// PlanSizes returns the target size of each group for total participants.
//
// Groups are planned at groupSize and the remainder is spread one member at a
// time over the earliest groups, so no group exceeds groupSize+1 (7 by 3 is
// [4 3]). When the remainder is larger than the number of full groups it
// cannot be spread that way; one more group is opened and total is divided
// evenly instead: 11 by 4 is [4 4 3] and 5 by 3 is [3 2], where topping up
// only the last group would give [5 5 1] and [4 1]. Fewer participants than
// groupSize form a single group.
//
// Returns nil for total <= 0 or groupSize < 1. The sizes always sum to total
// and differ by at most one.
func PlanSizes(total, groupSize int) []int {
	if total <= 0 || groupSize < 1 {
		return nil
	}
	base := total / groupSize
	remainder := total % groupSize
	if base == 0 {
		return []int{total}
	}

	if remainder <= base {
		sizes := make([]int, base)
		for i := range sizes {
			sizes[i] = groupSize
		}
		for i := 0; i < remainder; i++ {
			sizes[i]++
		}
		return sizes
	}

	count := base + 1
	sizes := make([]int, count)
	for i := range sizes {
		sizes[i] = total / count
		if i < total%count {
			sizes[i]++
		}
	}
	return sizes
}

// Partition splits roster into groups of about groupSize members, preferring
// members that have shared a group least often.
//
// For each planned size, a seed member is drawn uniformly from the unassigned
// pool. The group then grows by the candidate whose summed Count against the
// current members is strictly lowest; ties go to the candidate that comes
// first in the pool, and the pool keeps roster order as members leave it.
//
// Errors: ErrInvalidGroupSize for groupSize < 1, ErrDuplicateParticipant when
// the roster repeats an id. An empty roster yields no groups.
//
// Complexity: O(R² · groupSize) score evaluations.
func Partition(roster []id.FamilyID, groupSize int, freq Frequency, opts ...Option) (Groups, error) {
	if groupSize < 1 {
		return nil, ErrInvalidGroupSize
	}
	if err := checkUnique(roster); err != nil {
		return nil, err
	}
	return fill(roster, PlanSizes(len(roster), groupSize), freq, newConfig(opts...)), nil
}

// fill builds one group per planned size from roster. A plan that asks for
// more members than remain yields short groups and skips sizes once the pool
// is empty, so it never produces an empty group.
func fill(roster []id.FamilyID, sizes []int, freq Frequency, cfg *config) Groups {
	pool := append([]id.FamilyID(nil), roster...)
	groups := make(Groups, 0, len(sizes))

	for _, size := range sizes {
		if len(pool) == 0 || size < 1 {
			continue
		}

		seed := cfg.rng.Intn(len(pool))
		group := make(Group, 0, size)
		group = append(group, pool[seed])
		pool = removeAt(pool, seed)

		for len(group) < size && len(pool) > 0 {
			best := leastPaired(group, pool, freq)
			group = append(group, pool[best])
			pool = removeAt(pool, best)
		}
		groups = append(groups, group)
	}
	return groups
}

// leastPaired returns the pool index of the candidate with the lowest summed
// co-occurrence against group. The first minimum wins.
func leastPaired(group Group, pool []id.FamilyID, freq Frequency) int {
	best := -1
	bestScore := 0
	for i, candidate := range pool {
		score := 0
		for _, member := range group {
			score += freq.Count(member, candidate)
		}
		if best == -1 || score < bestScore {
			best = i
			bestScore = score
		}
	}
	return best
}

func removeAt(pool []id.FamilyID, i int) []id.FamilyID {
	return append(pool[:i], pool[i+1:]...)
}
