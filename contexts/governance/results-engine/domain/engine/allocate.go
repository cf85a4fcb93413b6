package engine

import "agora/contexts/governance/results-engine/domain/entities"

// winnerSet accumulates users already seated anywhere in the election. It is
// the one piece of cross-position state; positions must feed it in the
// election's configured order.
type winnerSet map[string]struct{}

func (s winnerSet) has(userID string) bool {
	_, ok := s[userID]
	return ok
}

func (s winnerSet) add(userID string) {
	s[userID] = struct{}{}
}

// allocateSeats runs the two allocation passes for one position. Pass 1
// seats first-choice candidates; pass 2 fills leftover seats from
// second-choice candidates not already seated anywhere. Every seated
// candidate joins the global accumulator.
func allocateSeats(result *entities.PositionResult, global winnerSet) {
	if result.IsVoid {
		return
	}
	seats := result.Position.SeatCount

	firstPool := make([]int, 0, len(result.Candidates))
	for idx, candidate := range result.Candidates {
		if candidate.Choice == entities.ChoiceFirst && candidate.VoteCount > 0 {
			firstPool = append(firstPool, idx)
		}
	}
	seated := markByCutoff(result.Candidates, firstPool, seats)

	if seated < seats {
		secondPool := make([]int, 0, len(result.Candidates))
		for idx, candidate := range result.Candidates {
			if candidate.Choice != entities.ChoiceSecond || candidate.VoteCount == 0 {
				continue
			}
			if candidate.IsWinner || global.has(candidate.UserID) {
				continue
			}
			secondPool = append(secondPool, idx)
		}
		markByCutoff(result.Candidates, secondPool, seats-seated)
	}

	for _, candidate := range result.Candidates {
		if candidate.IsWinner {
			global.add(candidate.UserID)
		}
	}
}

// markByCutoff seats up to seatCount candidates from pool (indexes into
// candidates, already in canonical order) plus everyone matching the cutoff
// vote count. Boundary ties are seated provisionally and may exceed the seat
// count until the tie detector rules on them. Returns how many were marked.
func markByCutoff(candidates []entities.CandidateResult, pool []int, seatCount int) int {
	if seatCount <= 0 || len(pool) == 0 {
		return 0
	}
	cutoffIdx := seatCount - 1
	if cutoffIdx >= len(pool) {
		cutoffIdx = len(pool) - 1
	}
	cutoff := candidates[pool[cutoffIdx]].VoteCount

	marked := 0
	for _, idx := range pool {
		if candidates[idx].VoteCount >= cutoff {
			candidates[idx].IsWinner = true
			marked++
		}
	}
	return marked
}
