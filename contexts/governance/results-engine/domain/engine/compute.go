package engine

import (
	"fmt"
	"strings"
	"time"

	"agora/contexts/governance/results-engine/domain/entities"
	dErrors "agora/contexts/governance/results-engine/domain/errors"
)

// Compute runs the full results pipeline for one election: tally, seat
// allocation, cross-position conflict resolution, boundary tie detection,
// chain-effect analysis, dependency holds, and status assignment. It is pure:
// inputs are never mutated, the same inputs always yield the same report, and
// positions are processed in the election's configured order.
func Compute(
	election entities.Election,
	registrations []entities.Registration,
	ballots []entities.Ballot,
	generatedAt time.Time,
) (entities.Report, error) {
	if strings.TrimSpace(election.ElectionID) == "" {
		return entities.Report{}, fmt.Errorf("%w: missing election id", dErrors.ErrInvalidElectionInput)
	}
	if len(election.Positions) == 0 {
		return entities.Report{}, dErrors.ErrNoPositions
	}
	order := make([]string, 0, len(election.Positions))
	seen := make(map[string]struct{}, len(election.Positions))
	for _, position := range election.Positions {
		if strings.TrimSpace(position.PositionID) == "" {
			return entities.Report{}, fmt.Errorf("%w: position with missing id", dErrors.ErrInvalidElectionInput)
		}
		if _, dup := seen[position.PositionID]; dup {
			return entities.Report{}, fmt.Errorf("%w: %s", dErrors.ErrDuplicatePosition, position.PositionID)
		}
		seen[position.PositionID] = struct{}{}
		order = append(order, position.PositionID)
	}

	clean := sanitizeRegistrations(election, registrations)

	ballotByPosition := make(map[string]*entities.Ballot, len(ballots))
	for i := range ballots {
		ballot := ballots[i]
		if _, known := seen[ballot.PositionID]; !known {
			continue
		}
		ballotByPosition[ballot.PositionID] = &ballot
	}

	results := make(map[string]*entities.PositionResult, len(order))
	for _, position := range election.Positions {
		result := tallyPosition(position, clean, ballotByPosition[position.PositionID])
		results[position.PositionID] = &result
	}

	global := make(winnerSet)
	for _, positionID := range order {
		allocateSeats(results[positionID], global)
	}
	resolveConflicts(order, results)

	for _, positionID := range order {
		detectBoundaryTies(results[positionID])
	}

	deps, cycles := analyzeChainEffects(order, results, clean)
	held := applyDependencyHolds(deps, results)

	summary := entities.TieSummary{Dependencies: deps, Cycles: cycles}
	positions := make(map[string]entities.PositionResult, len(order))
	for _, positionID := range order {
		result := results[positionID]
		assignStatuses(result, held[positionID])
		if result.Ties.HasTies {
			summary.HasAnyTies = true
		}
		positions[positionID] = *result
	}

	return entities.Report{
		ElectionID:    election.ElectionID,
		PositionOrder: order,
		Positions:     positions,
		Summary:       summary,
		GeneratedAt:   generatedAt,
	}, nil
}

// sanitizeRegistrations drops rows the engine cannot use instead of failing:
// blank or duplicate user ids keep the first-seen row, an unknown
// first-choice position drops the row, and an unknown or self-referencing
// second choice is blanked while the row stays. The input slice is not
// modified.
func sanitizeRegistrations(
	election entities.Election,
	registrations []entities.Registration,
) []entities.Registration {
	clean := make([]entities.Registration, 0, len(registrations))
	seen := make(map[string]struct{}, len(registrations))
	for _, reg := range registrations {
		userID := strings.TrimSpace(reg.UserID)
		if userID == "" {
			continue
		}
		if _, dup := seen[userID]; dup {
			continue
		}
		if _, ok := election.Position(reg.FirstChoicePositionID); !ok {
			continue
		}
		if reg.SecondChoicePositionID != "" {
			if _, ok := election.Position(reg.SecondChoicePositionID); !ok {
				reg.SecondChoicePositionID = ""
			} else if reg.SecondChoicePositionID == reg.FirstChoicePositionID {
				reg.SecondChoicePositionID = ""
			}
		}
		seen[userID] = struct{}{}
		clean = append(clean, reg)
	}
	return clean
}
