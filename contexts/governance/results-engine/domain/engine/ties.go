package engine

import "agora/contexts/governance/results-engine/domain/entities"

// detectBoundaryTies reports ties that contest the last available seat(s):
// more candidates share the cutoff vote count than seats remain above it.
// Ties entirely inside the selected region change nothing about who is
// seated and are not reported. Tie detection compares raw vote counts across
// choice types; the first-choice preference orders allocation, but a boundary
// contested by a first- and a second-choice candidate at equal counts is
// still a tie.
func detectBoundaryTies(result *entities.PositionResult) {
	if result.IsVoid {
		return
	}
	seats := result.Position.SeatCount

	eligible := make([]int, 0, len(result.Candidates))
	for idx, candidate := range result.Candidates {
		if candidate.VoteCount > 0 {
			eligible = append(eligible, idx)
		}
	}
	if seats <= 0 || len(eligible) <= seats {
		return
	}

	cutoff := result.Candidates[eligible[seats-1]].VoteCount
	above := 0
	tied := make([]string, 0, len(eligible))
	for _, idx := range eligible {
		candidate := result.Candidates[idx]
		if candidate.VoteCount > cutoff {
			above++
		} else if candidate.VoteCount == cutoff {
			tied = append(tied, candidate.UserID)
		}
	}
	if above+len(tied) <= seats {
		return
	}

	result.Ties = entities.TieAnalysis{
		HasTies: true,
		Groups: []entities.TieGroup{{
			PositionID:      result.Position.PositionID,
			Boundary:        above + 1,
			CandidateIDs:    tied,
			VotesAtBoundary: cutoff,
		}},
	}
}
