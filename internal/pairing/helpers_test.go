package pairing

import (
	"math/rand"

	id "aroundtable/pkg/domain"
)

func newRoster(n int) []id.FamilyID {
	roster := make([]id.FamilyID, n)
	for i := range roster {
		roster[i] = id.NewFamilyID()
	}
	return roster
}

// zeroSource makes every Intn return 0, so each group is seeded with the
// first member left in the pool.
type zeroSource struct{}

func (zeroSource) Int63() int64 { return 0 }
func (zeroSource) Seed(int64)   {}

func firstInPool() Option {
	return WithRand(rand.New(zeroSource{}))
}

func session(groups ...Group) Record {
	return Record{Groups: Groups(groups)}
}
