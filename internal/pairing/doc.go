// Package pairing splits a roster into small groups while avoiding people who
// have already shared a group.
//
// Two pure functions compose in sequence:
//
//	freq, err := pairing.BuildFrequency(roster, history)
//	groups, err := pairing.Partition(roster, 3, freq, pairing.WithSeed(42))
//
// BuildFrequency counts, for every pair of current roster members, how many
// past sessions placed them in the same group. Members that have left the
// roster are ignored. Partition plans near-equal group sizes and fills each
// group greedily: a random seed member, then repeatedly the candidate with the
// lowest summed co-occurrence against the members already placed.
//
// # Determinism
//
// The only randomness is the seed member of each group. Pass WithSeed or
// WithRand to make runs reproducible. A *rand.Rand is not goroutine-safe, so
// concurrent callers must not share one.
//
// # Guarantees
//
//   - every roster member appears in exactly one group
//   - no group is empty
//   - group sizes differ by at most one
//
// The result is a greedy construction, not a global optimum.
package pairing
