package engine

import (
	"sort"

	"agora/contexts/governance/results-engine/domain/entities"
)

// tallyPosition aggregates one position's ballots into ordered candidate
// counts. The candidate set is the union of first- and second-choice
// registrants for the position; duplicate user ids keep the first-seen entry.
// Selections naming unknown candidates are skipped, not errors.
func tallyPosition(
	position entities.Position,
	registrations []entities.Registration,
	ballot *entities.Ballot,
) entities.PositionResult {
	result := entities.PositionResult{Position: position}

	index := make(map[string]int)
	for _, reg := range registrations {
		if reg.FirstChoicePositionID != position.PositionID {
			continue
		}
		if _, dup := index[reg.UserID]; dup {
			continue
		}
		index[reg.UserID] = len(result.Candidates)
		result.Candidates = append(result.Candidates, entities.CandidateResult{
			UserID:      reg.UserID,
			DisplayName: reg.DisplayName,
			Choice:      entities.ChoiceFirst,
		})
	}
	for _, reg := range registrations {
		if reg.SecondChoicePositionID != position.PositionID {
			continue
		}
		if _, dup := index[reg.UserID]; dup {
			continue
		}
		index[reg.UserID] = len(result.Candidates)
		result.Candidates = append(result.Candidates, entities.CandidateResult{
			UserID:      reg.UserID,
			DisplayName: reg.DisplayName,
			Choice:      entities.ChoiceSecond,
		})
	}

	if len(result.Candidates) == 0 {
		result.IsVoid = true
		result.VoidReason = entities.VoidReasonNoRegistrations
		return result
	}
	if ballot == nil || len(ballot.Votes) == 0 {
		result.IsVoid = true
		result.VoidReason = entities.VoidReasonNoBallots
		return result
	}

	for _, selections := range ballot.Votes {
		counted := make(map[string]struct{}, len(selections))
		for _, candidateID := range selections {
			if _, dup := counted[candidateID]; dup {
				continue
			}
			counted[candidateID] = struct{}{}
			idx, ok := index[candidateID]
			if !ok {
				continue
			}
			result.Candidates[idx].VoteCount++
			result.TotalVotes++
		}
	}
	result.TotalVoters = len(ballot.Votes)

	sortCandidates(result.Candidates)
	return result
}

// sortCandidates applies the canonical ordering used by every downstream
// stage: vote count descending, first choice ahead of second choice on equal
// counts, stable registration order after that.
func sortCandidates(candidates []entities.CandidateResult) {
	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].VoteCount != candidates[j].VoteCount {
			return candidates[i].VoteCount > candidates[j].VoteCount
		}
		return candidates[i].Choice == entities.ChoiceFirst &&
			candidates[j].Choice == entities.ChoiceSecond
	})
}
