package engine

import "agora/contexts/governance/results-engine/domain/entities"

// resolveConflicts enforces the no-double-winner invariant across positions.
// A first-choice win always takes precedence: any second-choice winner whose
// user also holds a first-choice win elsewhere is demoted and the vacated
// seat refilled. Each demotion strictly shrinks the pending pool, so the
// fixed point is reached within one pass per position.
func resolveConflicts(order []string, results map[string]*entities.PositionResult) {
	for pass := 0; pass <= len(order); pass++ {
		firstWins := make(winnerSet)
		allWins := make(winnerSet)
		for _, positionID := range order {
			result := results[positionID]
			if result.IsVoid {
				continue
			}
			for _, candidate := range result.Candidates {
				if !candidate.IsWinner {
					continue
				}
				allWins.add(candidate.UserID)
				if candidate.Choice == entities.ChoiceFirst {
					firstWins.add(candidate.UserID)
				}
			}
		}

		demoted := false
		for _, positionID := range order {
			result := results[positionID]
			if result.IsVoid {
				continue
			}
			reopened := 0
			for idx := range result.Candidates {
				candidate := &result.Candidates[idx]
				if candidate.IsWinner &&
					candidate.Choice == entities.ChoiceSecond &&
					firstWins.has(candidate.UserID) {
					candidate.IsWinner = false
					reopened++
					demoted = true
				}
			}
			if reopened > 0 {
				refillSeats(result, allWins, firstWins)
			}
		}
		if !demoted {
			return
		}
	}
}

// refillSeats fills seats vacated by demotion from the remaining candidates
// with votes, skipping anyone already seated in any position. Newly seated
// candidates join the accumulators immediately so positions later in the
// same pass see them.
func refillSeats(result *entities.PositionResult, allWins, firstWins winnerSet) {
	seated := 0
	for _, candidate := range result.Candidates {
		if candidate.IsWinner {
			seated++
		}
	}
	open := result.Position.SeatCount - seated
	if open <= 0 {
		return
	}

	pool := make([]int, 0, len(result.Candidates))
	for idx, candidate := range result.Candidates {
		if candidate.IsWinner || candidate.VoteCount == 0 {
			continue
		}
		if allWins.has(candidate.UserID) {
			continue
		}
		pool = append(pool, idx)
	}
	markByCutoff(result.Candidates, pool, open)

	for _, candidate := range result.Candidates {
		if !candidate.IsWinner {
			continue
		}
		allWins.add(candidate.UserID)
		if candidate.Choice == entities.ChoiceFirst {
			firstWins.add(candidate.UserID)
		}
	}
}
