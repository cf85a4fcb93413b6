package engine

import "agora/contexts/governance/results-engine/domain/entities"

// applyDependencyHolds withdraws provisional wins that a pending tie could
// overturn. For each dependency edge the shared candidate's seat in the
// dependent position is held, and so is any second-choice winner there whose
// count the shared candidate matches or beats: if the tie resolves against
// the candidate at the source, they flow into the dependent's backup pool and
// may displace that winner. Returns the held user ids per position.
func applyDependencyHolds(
	deps []entities.Dependency,
	results map[string]*entities.PositionResult,
) map[string]map[string]struct{} {
	held := make(map[string]map[string]struct{})
	hold := func(positionID, userID string) {
		if held[positionID] == nil {
			held[positionID] = make(map[string]struct{})
		}
		held[positionID][userID] = struct{}{}
	}

	for _, dep := range deps {
		result := results[dep.DependentPositionID]
		if result == nil {
			continue
		}
		sharedVotes := voteCountFor(result, dep.CandidateID)
		for idx := range result.Candidates {
			candidate := &result.Candidates[idx]
			if candidate.UserID == dep.CandidateID {
				candidate.IsWinner = false
				hold(dep.DependentPositionID, candidate.UserID)
				continue
			}
			if candidate.IsWinner &&
				candidate.Choice == entities.ChoiceSecond &&
				candidate.VoteCount <= sharedVotes {
				candidate.IsWinner = false
				hold(dep.DependentPositionID, candidate.UserID)
			}
		}
	}
	return held
}
