package entities

import (
	"sort"
	"time"
)

type ElectionStatus string

const (
	ElectionStatusDraft  ElectionStatus = "draft"
	ElectionStatusOpen   ElectionStatus = "open"
	ElectionStatusClosed ElectionStatus = "closed"
)

// Position is an electable office with a fixed number of seats.
type Position struct {
	PositionID string
	Name       string
	SeatCount  int
}

// Election is the immutable input of a results computation. The order of
// Positions is the configured order and drives every downstream iteration,
// including the cross-position winner accumulator.
type Election struct {
	ElectionID string
	Name       string
	Status     ElectionStatus
	Positions  []Position
	OpensAt    *time.Time
	ClosesAt   *time.Time
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

func (e Election) Position(positionID string) (Position, bool) {
	for _, position := range e.Positions {
		if position.PositionID == positionID {
			return position, true
		}
	}
	return Position{}, false
}

type ChoiceType string

const (
	ChoiceFirst  ChoiceType = "first"
	ChoiceSecond ChoiceType = "second"
)

// Registration records a person's candidacy: a required first-choice position
// and an optional, distinct second-choice position.
type Registration struct {
	ElectionID             string
	UserID                 string
	DisplayName            string
	FirstChoicePositionID  string
	SecondChoicePositionID string
	CreatedAt              time.Time
}

// Ballot is the per-position vote record the engine consumes: each voter may
// select several candidates and every selected candidate receives one vote,
// so total votes can exceed total voters.
type Ballot struct {
	PositionID string
	Votes      map[string][]string
}

// BallotEntry is the persisted write-model row: one multi-select ballot per
// voter per position. Re-casting replaces the previous selection set.
type BallotEntry struct {
	BallotID   string
	ElectionID string
	PositionID string
	VoterID    string
	Selections []string
	CastAt     time.Time
	UpdatedAt  time.Time
}

// BallotsFromEntries groups persisted ballot rows into the per-position
// records the engine consumes. Output order follows position id so repeated
// grouping of the same rows is identical.
func BallotsFromEntries(entries []BallotEntry) []Ballot {
	byPosition := make(map[string]map[string][]string)
	for _, entry := range entries {
		if entry.PositionID == "" || entry.VoterID == "" {
			continue
		}
		votes, ok := byPosition[entry.PositionID]
		if !ok {
			votes = make(map[string][]string)
			byPosition[entry.PositionID] = votes
		}
		votes[entry.VoterID] = append([]string(nil), entry.Selections...)
	}

	positionIDs := make([]string, 0, len(byPosition))
	for positionID := range byPosition {
		positionIDs = append(positionIDs, positionID)
	}
	sort.Strings(positionIDs)

	ballots := make([]Ballot, 0, len(positionIDs))
	for _, positionID := range positionIDs {
		ballots = append(ballots, Ballot{
			PositionID: positionID,
			Votes:      byPosition[positionID],
		})
	}
	return ballots
}
