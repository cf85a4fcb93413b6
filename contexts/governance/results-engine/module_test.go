package resultsengine_test

import (
	"context"
	"errors"
	"testing"

	resultsengine "agora/contexts/governance/results-engine"
	"agora/contexts/governance/results-engine/application/commands"
	"agora/contexts/governance/results-engine/application/workers"
	"agora/contexts/governance/results-engine/domain/entities"
	domainerrors "agora/contexts/governance/results-engine/domain/errors"
	"agora/contexts/governance/results-engine/ports"
)

type capturePublisher struct {
	topics []string
	fail   bool
}

func (p *capturePublisher) Publish(_ context.Context, topic string, _ ports.EventEnvelope) error {
	if p.fail {
		return errors.New("broker unavailable")
	}
	p.topics = append(p.topics, topic)
	return nil
}

func TestElectionLifecycleEndToEnd(t *testing.T) {
	ctx := context.Background()
	module := resultsengine.NewInMemoryModule(nil, nil)
	elections := module.Handler.Elections
	results := module.Handler.Results

	election, err := elections.CreateElection(ctx, commands.CreateElectionCommand{
		Name: "Board Elections 2026",
		Positions: []commands.PositionInput{
			{Name: "President", SeatCount: 1},
			{Name: "Secretary", SeatCount: 1},
		},
	})
	if err != nil {
		t.Fatalf("create election failed: %v", err)
	}
	if election.Status != entities.ElectionStatusDraft || len(election.Positions) != 2 {
		t.Fatalf("unexpected created election: %+v", election)
	}
	presID := election.Positions[0].PositionID
	secID := election.Positions[1].PositionID

	if _, err := elections.OpenElection(ctx, election.ElectionID); err != nil {
		t.Fatalf("open election failed: %v", err)
	}

	for _, reg := range []commands.RegisterCandidateCommand{
		{ElectionID: election.ElectionID, UserID: "alice", DisplayName: "Alice", FirstChoicePositionID: presID},
		{ElectionID: election.ElectionID, UserID: "bob", DisplayName: "Bob", FirstChoicePositionID: presID},
		{ElectionID: election.ElectionID, UserID: "cara", DisplayName: "Cara", FirstChoicePositionID: secID},
	} {
		if _, err := elections.RegisterCandidate(ctx, reg); err != nil {
			t.Fatalf("register %s failed: %v", reg.UserID, err)
		}
	}

	ballots := []commands.CastBallotCommand{
		{ElectionID: election.ElectionID, PositionID: presID, VoterID: "v1", Selections: []string{"alice"}},
		{ElectionID: election.ElectionID, PositionID: presID, VoterID: "v2", Selections: []string{"alice"}},
		{ElectionID: election.ElectionID, PositionID: presID, VoterID: "v3", Selections: []string{"bob"}},
		{ElectionID: election.ElectionID, PositionID: secID, VoterID: "v1", Selections: []string{"cara"}},
	}
	for _, cmd := range ballots {
		cast, err := elections.CastBallot(ctx, cmd)
		if err != nil {
			t.Fatalf("cast ballot for %s failed: %v", cmd.VoterID, err)
		}
		if cast.WasUpdate {
			t.Fatalf("first cast must not be an update: %+v", cast)
		}
	}

	preview, err := results.PreviewResults(ctx, election.ElectionID)
	if err != nil {
		t.Fatalf("preview failed: %v", err)
	}
	previewWinners := preview.Winners()
	if len(previewWinners[presID]) != 1 || previewWinners[presID][0] != "alice" {
		t.Fatalf("unexpected preview winners: %+v", previewWinners)
	}

	report, err := elections.CloseElection(ctx, election.ElectionID)
	if err != nil {
		t.Fatalf("close election failed: %v", err)
	}
	winners := report.Winners()
	if winners[presID][0] != "alice" || winners[secID][0] != "cara" {
		t.Fatalf("unexpected final winners: %+v", winners)
	}

	closed, err := results.GetElection(ctx, election.ElectionID)
	if err != nil {
		t.Fatalf("get election failed: %v", err)
	}
	if closed.Status != entities.ElectionStatusClosed || closed.ClosesAt == nil {
		t.Fatalf("expected closed election with close time, got %+v", closed)
	}

	final, err := results.FinalReport(ctx, election.ElectionID)
	if err != nil {
		t.Fatalf("final report failed: %v", err)
	}
	if !final.GeneratedAt.Equal(report.GeneratedAt) {
		t.Fatalf("final report must be the close-time snapshot")
	}

	// A preview on a closed election serves the frozen snapshot.
	afterClose, err := results.PreviewResults(ctx, election.ElectionID)
	if err != nil {
		t.Fatalf("preview after close failed: %v", err)
	}
	if !afterClose.GeneratedAt.Equal(report.GeneratedAt) {
		t.Fatalf("preview after close must serve the snapshot")
	}
}

func TestOutboxRelayPublishesLifecycleEvents(t *testing.T) {
	ctx := context.Background()
	module := resultsengine.NewInMemoryModule(nil, nil)
	elections := module.Handler.Elections

	election, err := elections.CreateElection(ctx, commands.CreateElectionCommand{
		Name:      "Club Vote",
		Positions: []commands.PositionInput{{Name: "Chair", SeatCount: 1}},
	})
	if err != nil {
		t.Fatalf("create election failed: %v", err)
	}
	if _, err := elections.OpenElection(ctx, election.ElectionID); err != nil {
		t.Fatalf("open election failed: %v", err)
	}
	if _, err := elections.RegisterCandidate(ctx, commands.RegisterCandidateCommand{
		ElectionID:            election.ElectionID,
		UserID:                "alice",
		DisplayName:           "Alice",
		FirstChoicePositionID: election.Positions[0].PositionID,
	}); err != nil {
		t.Fatalf("register failed: %v", err)
	}
	if _, err := elections.CastBallot(ctx, commands.CastBallotCommand{
		ElectionID: election.ElectionID,
		PositionID: election.Positions[0].PositionID,
		VoterID:    "v1",
		Selections: []string{"alice"},
	}); err != nil {
		t.Fatalf("cast ballot failed: %v", err)
	}
	if _, err := elections.CloseElection(ctx, election.ElectionID); err != nil {
		t.Fatalf("close election failed: %v", err)
	}

	pending, err := module.Store.ListPendingOutbox(ctx, 0)
	if err != nil {
		t.Fatalf("list pending outbox failed: %v", err)
	}
	// created, opened, candidate_registered, results_computed.
	if len(pending) != 4 {
		t.Fatalf("expected 4 pending outbox rows, got %d", len(pending))
	}

	publisher := &capturePublisher{}
	relay := workers.OutboxRelay{
		Outbox:    module.Store,
		Publisher: publisher,
		Clock:     module.Store,
		BatchSize: 10,
	}
	if err := relay.RunOnce(ctx); err != nil {
		t.Fatalf("relay run failed: %v", err)
	}
	if len(publisher.topics) != 4 {
		t.Fatalf("expected 4 published events, got %v", publisher.topics)
	}
	seen := make(map[string]bool, len(publisher.topics))
	for _, topic := range publisher.topics {
		seen[topic] = true
	}
	for _, want := range []string{"election.created", "election.opened", "election.candidate_registered", "election.results_computed"} {
		if !seen[want] {
			t.Fatalf("missing published event %s in %v", want, publisher.topics)
		}
	}

	remaining, err := module.Store.ListPendingOutbox(ctx, 0)
	if err != nil {
		t.Fatalf("list pending outbox failed: %v", err)
	}
	if len(remaining) != 0 {
		t.Fatalf("expected drained outbox, got %d rows", len(remaining))
	}
}

func TestOutboxRelayKeepsRowsPendingOnPublishFailure(t *testing.T) {
	ctx := context.Background()
	module := resultsengine.NewInMemoryModule(nil, nil)

	if _, err := module.Handler.Elections.CreateElection(ctx, commands.CreateElectionCommand{
		Name:      "Club Vote",
		Positions: []commands.PositionInput{{Name: "Chair", SeatCount: 1}},
	}); err != nil {
		t.Fatalf("create election failed: %v", err)
	}

	relay := workers.OutboxRelay{
		Outbox:    module.Store,
		Publisher: &capturePublisher{fail: true},
		Clock:     module.Store,
		BatchSize: 10,
	}
	if err := relay.RunOnce(ctx); err == nil {
		t.Fatalf("expected relay error when publish fails")
	}

	pending, err := module.Store.ListPendingOutbox(ctx, 0)
	if err != nil {
		t.Fatalf("list pending outbox failed: %v", err)
	}
	if len(pending) != 1 {
		t.Fatalf("failed publish must leave the row pending, got %d rows", len(pending))
	}
}

func TestLifecycleGuards(t *testing.T) {
	ctx := context.Background()
	module := resultsengine.NewInMemoryModule(nil, nil)
	elections := module.Handler.Elections
	results := module.Handler.Results

	election, err := elections.CreateElection(ctx, commands.CreateElectionCommand{
		Name: "Guard Rails",
		Positions: []commands.PositionInput{
			{Name: "President", SeatCount: 1},
			{Name: "Secretary", SeatCount: 1},
		},
	})
	if err != nil {
		t.Fatalf("create election failed: %v", err)
	}
	presID := election.Positions[0].PositionID
	secID := election.Positions[1].PositionID

	if _, err := elections.RegisterCandidate(ctx, commands.RegisterCandidateCommand{
		ElectionID:            election.ElectionID,
		UserID:                "alice",
		DisplayName:           "Alice",
		FirstChoicePositionID: presID,
	}); !errors.Is(err, domainerrors.ErrElectionNotOpen) {
		t.Fatalf("registration on draft must fail, got %v", err)
	}
	if _, err := elections.CloseElection(ctx, election.ElectionID); !errors.Is(err, domainerrors.ErrElectionNotOpen) {
		t.Fatalf("closing a draft must fail, got %v", err)
	}
	if _, err := results.FinalReport(ctx, election.ElectionID); !errors.Is(err, domainerrors.ErrReportNotReady) {
		t.Fatalf("final report before close must fail, got %v", err)
	}

	if _, err := elections.OpenElection(ctx, election.ElectionID); err != nil {
		t.Fatalf("open election failed: %v", err)
	}
	if _, err := elections.OpenElection(ctx, election.ElectionID); !errors.Is(err, domainerrors.ErrElectionNotDraft) {
		t.Fatalf("reopening must fail, got %v", err)
	}

	if _, err := elections.RegisterCandidate(ctx, commands.RegisterCandidateCommand{
		ElectionID:             election.ElectionID,
		UserID:                 "alice",
		DisplayName:            "Alice",
		FirstChoicePositionID:  presID,
		SecondChoicePositionID: presID,
	}); !errors.Is(err, domainerrors.ErrInvalidRegistrationInput) {
		t.Fatalf("second choice equal to first must fail, got %v", err)
	}
	if _, err := elections.RegisterCandidate(ctx, commands.RegisterCandidateCommand{
		ElectionID:            election.ElectionID,
		UserID:                "alice",
		DisplayName:           "Alice",
		FirstChoicePositionID: "no-such-position",
	}); !errors.Is(err, domainerrors.ErrPositionNotFound) {
		t.Fatalf("unknown first choice must fail, got %v", err)
	}
	if _, err := elections.RegisterCandidate(ctx, commands.RegisterCandidateCommand{
		ElectionID:             election.ElectionID,
		UserID:                 "alice",
		DisplayName:            "Alice",
		FirstChoicePositionID:  presID,
		SecondChoicePositionID: secID,
	}); err != nil {
		t.Fatalf("valid registration failed: %v", err)
	}
	if _, err := elections.RegisterCandidate(ctx, commands.RegisterCandidateCommand{
		ElectionID:            election.ElectionID,
		UserID:                "alice",
		DisplayName:           "Alice Again",
		FirstChoicePositionID: secID,
	}); !errors.Is(err, domainerrors.ErrAlreadyRegistered) {
		t.Fatalf("double registration must fail, got %v", err)
	}

	if _, err := elections.CastBallot(ctx, commands.CastBallotCommand{
		ElectionID: election.ElectionID,
		PositionID: "no-such-position",
		VoterID:    "v1",
		Selections: []string{"alice"},
	}); !errors.Is(err, domainerrors.ErrPositionNotFound) {
		t.Fatalf("ballot for unknown position must fail, got %v", err)
	}
	if _, err := elections.CastBallot(ctx, commands.CastBallotCommand{
		ElectionID: election.ElectionID,
		PositionID: presID,
		VoterID:    "v1",
	}); !errors.Is(err, domainerrors.ErrInvalidBallotInput) {
		t.Fatalf("ballot without selections must fail, got %v", err)
	}

	if _, err := elections.CloseElection(ctx, election.ElectionID); err != nil {
		t.Fatalf("close election failed: %v", err)
	}
	if _, err := elections.CastBallot(ctx, commands.CastBallotCommand{
		ElectionID: election.ElectionID,
		PositionID: presID,
		VoterID:    "v1",
		Selections: []string{"alice"},
	}); !errors.Is(err, domainerrors.ErrElectionNotOpen) {
		t.Fatalf("ballot after close must fail, got %v", err)
	}
	if _, err := results.GetElection(ctx, "missing"); !errors.Is(err, domainerrors.ErrElectionNotFound) {
		t.Fatalf("unknown election lookup must fail, got %v", err)
	}
}

func TestBallotRecastReplacesSelections(t *testing.T) {
	ctx := context.Background()
	module := resultsengine.NewInMemoryModule(nil, nil)
	elections := module.Handler.Elections

	election, err := elections.CreateElection(ctx, commands.CreateElectionCommand{
		Name:      "Recast",
		Positions: []commands.PositionInput{{Name: "Chair", SeatCount: 1}},
	})
	if err != nil {
		t.Fatalf("create election failed: %v", err)
	}
	positionID := election.Positions[0].PositionID
	if _, err := elections.OpenElection(ctx, election.ElectionID); err != nil {
		t.Fatalf("open election failed: %v", err)
	}
	for _, userID := range []string{"alice", "bob"} {
		if _, err := elections.RegisterCandidate(ctx, commands.RegisterCandidateCommand{
			ElectionID:            election.ElectionID,
			UserID:                userID,
			DisplayName:           userID,
			FirstChoicePositionID: positionID,
		}); err != nil {
			t.Fatalf("register %s failed: %v", userID, err)
		}
	}

	first, err := elections.CastBallot(ctx, commands.CastBallotCommand{
		ElectionID: election.ElectionID,
		PositionID: positionID,
		VoterID:    "v1",
		Selections: []string{"alice", "alice"},
	})
	if err != nil {
		t.Fatalf("cast failed: %v", err)
	}
	if first.WasUpdate || len(first.Ballot.Selections) != 1 {
		t.Fatalf("expected fresh deduplicated ballot, got %+v", first)
	}

	second, err := elections.CastBallot(ctx, commands.CastBallotCommand{
		ElectionID: election.ElectionID,
		PositionID: positionID,
		VoterID:    "v1",
		Selections: []string{"bob"},
	})
	if err != nil {
		t.Fatalf("recast failed: %v", err)
	}
	if !second.WasUpdate {
		t.Fatalf("recast must report an update")
	}
	if second.Ballot.BallotID != first.Ballot.BallotID {
		t.Fatalf("recast must keep the ballot identity")
	}

	report, err := elections.CloseElection(ctx, election.ElectionID)
	if err != nil {
		t.Fatalf("close election failed: %v", err)
	}
	result := report.Positions[positionID]
	for _, candidate := range result.Candidates {
		switch candidate.UserID {
		case "bob":
			if candidate.VoteCount != 1 || candidate.Status != entities.CandidateStatusWinner {
				t.Fatalf("expected bob to win with the replacing vote, got %+v", candidate)
			}
		case "alice":
			if candidate.VoteCount != 0 || candidate.Status != entities.CandidateStatusNotSelected {
				t.Fatalf("replaced vote must not count for alice, got %+v", candidate)
			}
		}
	}
}
