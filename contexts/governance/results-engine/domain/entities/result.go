package entities

import "time"

type CandidateStatus string

const (
	CandidateStatusWinner            CandidateStatus = "winner"
	CandidateStatusPendingTie        CandidateStatus = "pending-tie"
	CandidateStatusPendingDependency CandidateStatus = "pending-dependency"
	CandidateStatusAlternate         CandidateStatus = "alternate"
	CandidateStatusNotSelected       CandidateStatus = "not-selected"
)

type VoidReason string

const (
	VoidReasonNoRegistrations VoidReason = "no one registered"
	VoidReasonNoBallots       VoidReason = "no one voted"
)

// CandidateResult is one candidate's outcome within a position. Choice is
// fixed by registration; only IsWinner and Status change during computation.
type CandidateResult struct {
	UserID      string
	DisplayName string
	VoteCount   int
	Choice      ChoiceType
	IsWinner    bool
	Status      CandidateStatus
}

// TieGroup describes a contested seat boundary: the candidates sharing the
// cutoff vote count when seating all of them would exceed the seat count.
type TieGroup struct {
	PositionID      string
	Boundary        int
	CandidateIDs    []string
	VotesAtBoundary int
}

type TieAnalysis struct {
	HasTies bool
	Groups  []TieGroup
}

// Dependency is a directed edge saying DependentPositionID cannot be
// finalized until SourcePositionID's boundary tie is resolved, because the
// shared candidate is a second-choice backup in the dependent position.
type Dependency struct {
	DependentPositionID string
	SourcePositionID    string
	CandidateID         string
	Reason              string
}

type PositionResult struct {
	Position    Position
	Candidates  []CandidateResult
	TotalVotes  int
	TotalVoters int
	IsVoid      bool
	VoidReason  VoidReason
	Ties        TieAnalysis
}

// TieSummary is the report-level tie analysis block. Cycles lists dependency
// cycles as ordered position ids; a cycle is surfaced as unresolved by
// design, never auto-resolved.
type TieSummary struct {
	HasAnyTies   bool
	Dependencies []Dependency
	Cycles       [][]string
}

// Report is the frozen output of one computation run: per-position results
// keyed by position id, with PositionOrder preserving the configured order.
type Report struct {
	ElectionID    string
	PositionOrder []string
	Positions     map[string]PositionResult
	Summary       TieSummary
	GeneratedAt   time.Time
}

// Winners returns the finalized winner user ids keyed by position id.
// Pending-tie and pending-dependency candidates are not finalized and are
// therefore absent.
func (r Report) Winners() map[string][]string {
	winners := make(map[string][]string)
	for _, positionID := range r.PositionOrder {
		result, ok := r.Positions[positionID]
		if !ok {
			continue
		}
		for _, candidate := range result.Candidates {
			if candidate.Status == CandidateStatusWinner {
				winners[positionID] = append(winners[positionID], candidate.UserID)
			}
		}
	}
	return winners
}
