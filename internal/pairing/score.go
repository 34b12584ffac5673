package pairing

// RepeatScore sums Count over every unordered pair inside each group. Zero
// means nobody in the partition has shared a group before.
func RepeatScore(groups Groups, freq Frequency) int {
	total := 0
	for _, group := range groups {
		for i := 0; i < len(group); i++ {
			for j := i + 1; j < len(group); j++ {
				total += freq.Count(group[i], group[j])
			}
		}
	}
	return total
}
