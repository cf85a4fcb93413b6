package engine

import (
	"sort"

	"agora/contexts/governance/results-engine/domain/entities"
)

// analyzeChainEffects builds the dependency graph between positions. An edge
// from B to A exists when a candidate tied at A's boundary is a second-choice
// backup with votes in non-void B, and B's first-choice winners alone could
// not fill its seats: whether the candidate wins A decides whether B's
// second-choice fill may use them. Returns the edges and any cycles found.
func analyzeChainEffects(
	order []string,
	results map[string]*entities.PositionResult,
	registrations []entities.Registration,
) ([]entities.Dependency, [][]string) {
	secondChoice := make(map[string]string, len(registrations))
	for _, reg := range registrations {
		if _, dup := secondChoice[reg.UserID]; dup {
			continue
		}
		secondChoice[reg.UserID] = reg.SecondChoicePositionID
	}

	var deps []entities.Dependency
	for _, sourceID := range order {
		source := results[sourceID]
		if source.IsVoid || !source.Ties.HasTies {
			continue
		}
		for _, group := range source.Ties.Groups {
			for _, candidateID := range group.CandidateIDs {
				dependentID := secondChoice[candidateID]
				if dependentID == "" || dependentID == sourceID {
					continue
				}
				dependent, ok := results[dependentID]
				if !ok || dependent.IsVoid {
					continue
				}
				if !usesSecondChoicePool(dependent) {
					continue
				}
				if voteCountFor(dependent, candidateID) == 0 {
					continue
				}
				deps = append(deps, entities.Dependency{
					DependentPositionID: dependentID,
					SourcePositionID:    sourceID,
					CandidateID:         candidateID,
					Reason:              "second-choice backup is part of an unresolved boundary tie",
				})
			}
		}
	}
	return deps, findCycles(order, deps)
}

// usesSecondChoicePool reports whether the position's first-choice winners
// alone could not fill its seats, i.e. allocation consulted the
// second-choice backup pool.
func usesSecondChoicePool(result *entities.PositionResult) bool {
	firstWins := 0
	for _, candidate := range result.Candidates {
		if candidate.IsWinner && candidate.Choice == entities.ChoiceFirst {
			firstWins++
		}
	}
	return firstWins < result.Position.SeatCount
}

func voteCountFor(result *entities.PositionResult, userID string) int {
	for _, candidate := range result.Candidates {
		if candidate.UserID == userID {
			return candidate.VoteCount
		}
	}
	return 0
}

// findCycles runs a colored depth-first search over the dependency edges.
// A cycle means two tie groups feed each other's backup pools; it is
// surfaced for manual resolution, never resolved automatically.
func findCycles(order []string, deps []entities.Dependency) [][]string {
	adjacency := make(map[string][]string)
	seen := make(map[[2]string]struct{}, len(deps))
	for _, dep := range deps {
		edge := [2]string{dep.DependentPositionID, dep.SourcePositionID}
		if _, dup := seen[edge]; dup {
			continue
		}
		seen[edge] = struct{}{}
		adjacency[dep.DependentPositionID] = append(adjacency[dep.DependentPositionID], dep.SourcePositionID)
	}
	for node := range adjacency {
		sort.Strings(adjacency[node])
	}

	const (
		white = iota
		grey
		black
	)
	state := make(map[string]int, len(order))
	var stack []string
	var cycles [][]string

	var visit func(node string)
	visit = func(node string) {
		state[node] = grey
		stack = append(stack, node)
		for _, next := range adjacency[node] {
			switch state[next] {
			case grey:
				for i, onStack := range stack {
					if onStack == next {
						cycles = append(cycles, append([]string(nil), stack[i:]...))
						break
					}
				}
			case white:
				visit(next)
			}
		}
		stack = stack[:len(stack)-1]
		state[node] = black
	}

	for _, node := range order {
		if state[node] == white {
			visit(node)
		}
	}
	return cycles
}
