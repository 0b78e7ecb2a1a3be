package governance

// TallyWeighted sums each voter's weight per option; ballots with a zero
// weight default to 1.0 per spec.md 4.4.
func TallyWeighted(ballots []Ballot) map[string]float64 {
	totals := make(map[string]float64)
	for _, b := range ballots {
		weight := b.Weight
		if weight == 0 {
			weight = 1.0
		}
		totals[b.WeightedOption] += weight
	}
	return totals
}
