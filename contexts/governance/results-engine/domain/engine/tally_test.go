package engine

import (
	"testing"

	"agora/contexts/governance/results-engine/domain/entities"
)

func TestTallyCountsVotesAndOrdersCandidates(t *testing.T) {
	position := entities.Position{PositionID: "pos-1", Name: "President", SeatCount: 1}
	registrations := []entities.Registration{
		{UserID: "alice", DisplayName: "Alice", FirstChoicePositionID: "pos-1"},
		{UserID: "bob", DisplayName: "Bob", FirstChoicePositionID: "pos-1"},
		{UserID: "cara", DisplayName: "Cara", FirstChoicePositionID: "pos-2", SecondChoicePositionID: "pos-1"},
	}
	ballot := &entities.Ballot{
		PositionID: "pos-1",
		Votes: map[string][]string{
			"voter-1": {"alice", "cara"},
			"voter-2": {"alice"},
			"voter-3": {"bob", "bob", "ghost"},
		},
	}

	result := tallyPosition(position, registrations, ballot)
	if result.IsVoid {
		t.Fatalf("expected non-void result, got void with reason %q", result.VoidReason)
	}
	if result.TotalVoters != 3 {
		t.Fatalf("expected 3 voters, got %d", result.TotalVoters)
	}
	// The duplicate "bob" selection collapses and "ghost" is skipped.
	if result.TotalVotes != 4 {
		t.Fatalf("expected 4 counted votes, got %d", result.TotalVotes)
	}
	if result.Candidates[0].UserID != "alice" || result.Candidates[0].VoteCount != 2 {
		t.Fatalf("expected alice first with 2 votes, got %s with %d",
			result.Candidates[0].UserID, result.Candidates[0].VoteCount)
	}
	// bob (first choice) sorts ahead of cara (second choice) on equal counts.
	if result.Candidates[1].UserID != "bob" || result.Candidates[2].UserID != "cara" {
		t.Fatalf("expected bob then cara, got %s then %s",
			result.Candidates[1].UserID, result.Candidates[2].UserID)
	}
	if result.Candidates[2].Choice != entities.ChoiceSecond {
		t.Fatalf("expected cara marked as second choice")
	}
}

func TestTallyVoidReasons(t *testing.T) {
	position := entities.Position{PositionID: "pos-1", SeatCount: 1}

	noRegs := tallyPosition(position, nil, &entities.Ballot{
		PositionID: "pos-1",
		Votes:      map[string][]string{"voter-1": {"alice"}},
	})
	if !noRegs.IsVoid || noRegs.VoidReason != entities.VoidReasonNoRegistrations {
		t.Fatalf("expected void with no registrations, got %+v", noRegs)
	}

	registrations := []entities.Registration{
		{UserID: "alice", FirstChoicePositionID: "pos-1"},
	}
	noBallots := tallyPosition(position, registrations, nil)
	if !noBallots.IsVoid || noBallots.VoidReason != entities.VoidReasonNoBallots {
		t.Fatalf("expected void with no ballots, got %+v", noBallots)
	}
}

func TestMarkByCutoffIncludesBoundaryTies(t *testing.T) {
	candidates := []entities.CandidateResult{
		{UserID: "a", VoteCount: 5, Choice: entities.ChoiceFirst},
		{UserID: "b", VoteCount: 3, Choice: entities.ChoiceFirst},
		{UserID: "c", VoteCount: 3, Choice: entities.ChoiceFirst},
		{UserID: "d", VoteCount: 1, Choice: entities.ChoiceFirst},
	}
	marked := markByCutoff(candidates, []int{0, 1, 2, 3}, 2)
	if marked != 3 {
		t.Fatalf("expected 3 marked including the tie, got %d", marked)
	}
	if !candidates[0].IsWinner || !candidates[1].IsWinner || !candidates[2].IsWinner {
		t.Fatalf("expected a, b, c marked, got %+v", candidates)
	}
	if candidates[3].IsWinner {
		t.Fatalf("expected d unmarked")
	}
}
