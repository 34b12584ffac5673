package pairing

import (
	id "aroundtable/pkg/domain"
)

// BuildFrequency counts prior co-occurrences between current roster members.
//
// Every ordered pair of distinct roster ids starts at zero. For each group of
// each session, every unordered pair whose members are both still on the
// roster increments (a,b) and (b,a). Pairs involving a removed participant are
// skipped silently.
//
// Errors: ErrDuplicateParticipant when the roster repeats an id.
//
// Complexity: O(R² + Σ g²) over all historical groups g.
func BuildFrequency(roster []id.FamilyID, history []Record) (Frequency, error) {
	if err := checkUnique(roster); err != nil {
		return nil, err
	}

	freq := make(Frequency, len(roster))
	for _, a := range roster {
		row := make(map[id.FamilyID]int, len(roster))
		for _, b := range roster {
			if a != b {
				row[b] = 0
			}
		}
		freq[a] = row
	}

	for _, record := range history {
		for _, group := range record.Groups {
			for i := 0; i < len(group); i++ {
				a := group[i]
				rowA, ok := freq[a]
				if !ok {
					continue
				}
				for j := i + 1; j < len(group); j++ {
					b := group[j]
					rowB, ok := freq[b]
					if !ok || a == b {
						continue
					}
					rowA[b]++
					rowB[a]++
				}
			}
		}
	}
	return freq, nil
}

func checkUnique(roster []id.FamilyID) error {
	seen := make(map[id.FamilyID]struct{}, len(roster))
	for _, member := range roster {
		if _, dup := seen[member]; dup {
			return ErrDuplicateParticipant
		}
		seen[member] = struct{}{}
	}
	return nil
}
