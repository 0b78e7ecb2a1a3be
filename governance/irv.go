package governance

import "sort"

// IRVRound records one elimination round's first-choice tallies.
type IRVRound struct {
	Counts    map[string]int
	Eliminated string
}

// IRVResult is the outcome of a ranked-choice tally.
type IRVResult struct {
	Winner string
	Rounds []IRVRound
}

// TallyRankedChoice runs instant-runoff voting over the given ballots'
// ordered preference lists. Ties on elimination are broken by lexicographic
// candidate id. Ballots exhaust when every remaining preference has been
// eliminated. Finalization is deterministic given the ballot set (order of
// arrival does not affect the result).
func TallyRankedChoice(ballots []Ballot) IRVResult {
	candidates := map[string]struct{}{}
	for _, b := range ballots {
		for _, p := range b.Preferences {
			candidates[p] = struct{}{}
		}
	}
	active := make(map[string]struct{}, len(candidates))
	for c := range candidates {
		active[c] = struct{}{}
	}

	var rounds []IRVRound
	for {
		counts := make(map[string]int, len(active))
		for c := range active {
			counts[c] = 0
		}
		totalActive := 0
		for _, b := range ballots {
			choice := firstActivePreference(b.Preferences, active)
			if choice == "" {
				continue
			}
			counts[choice]++
			totalActive++
		}

		if len(active) == 1 {
			var only string
			for c := range active {
				only = c
			}
			rounds = append(rounds, IRVRound{Counts: counts})
			return IRVResult{Winner: only, Rounds: rounds}
		}

		for candidate, n := range counts {
			if totalActive > 0 && n > totalActive/2 {
				rounds = append(rounds, IRVRound{Counts: counts})
				return IRVResult{Winner: candidate, Rounds: rounds}
			}
		}

		loser := lowestCandidate(counts)
		rounds = append(rounds, IRVRound{Counts: counts, Eliminated: loser})
		delete(active, loser)
		if len(active) == 0 {
			return IRVResult{Rounds: rounds}
		}
	}
}

func firstActivePreference(prefs []string, active map[string]struct{}) string {
	for _, p := range prefs {
		if _, ok := active[p]; ok {
			return p
		}
	}
	return ""
}

// lowestCandidate finds the candidate with the fewest votes, breaking ties
// lexicographically by candidate id.
func lowestCandidate(counts map[string]int) string {
	names := make([]string, 0, len(counts))
	for c := range counts {
		names = append(names, c)
	}
	sort.Strings(names)
	best := names[0]
	for _, c := range names[1:] {
		if counts[c] < counts[best] {
			best = c
		}
	}
	return best
}
