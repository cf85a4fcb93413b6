package engine

import "agora/contexts/governance/results-engine/domain/entities"

// assignStatuses stamps the final status on every candidate of a position.
// Precedence: a member of an unresolved boundary tie is pending-tie, a seat
// held behind another position's tie is pending-dependency, a seated
// candidate is a winner, anyone else with votes is an alternate, and
// zero-vote candidates are not selected. Tied and held candidates are never
// finalized as winners.
func assignStatuses(result *entities.PositionResult, held map[string]struct{}) {
	tied := make(map[string]struct{})
	for _, group := range result.Ties.Groups {
		for _, userID := range group.CandidateIDs {
			tied[userID] = struct{}{}
		}
	}

	for idx := range result.Candidates {
		candidate := &result.Candidates[idx]
		switch {
		case memberOf(tied, candidate.UserID):
			candidate.IsWinner = false
			candidate.Status = entities.CandidateStatusPendingTie
		case memberOf(held, candidate.UserID):
			candidate.IsWinner = false
			candidate.Status = entities.CandidateStatusPendingDependency
		case candidate.IsWinner:
			candidate.Status = entities.CandidateStatusWinner
		case candidate.VoteCount > 0:
			candidate.Status = entities.CandidateStatusAlternate
		default:
			candidate.Status = entities.CandidateStatusNotSelected
		}
	}
}

func memberOf(set map[string]struct{}, userID string) bool {
	if set == nil {
		return false
	}
	_, ok := set[userID]
	return ok
}
