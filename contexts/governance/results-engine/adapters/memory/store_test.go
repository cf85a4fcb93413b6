package memory

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"agora/contexts/governance/results-engine/domain/entities"
	domainerrors "agora/contexts/governance/results-engine/domain/errors"
	"agora/contexts/governance/results-engine/ports"
)

func TestBallotEntriesUpsertByIdentity(t *testing.T) {
	ctx := context.Background()
	store := NewStore(nil)

	entry := entities.BallotEntry{
		BallotID:   "ballot-1",
		ElectionID: "election-1",
		PositionID: "pos-1",
		VoterID:    "voter-1",
		Selections: []string{"alice"},
		CastAt:     time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC),
	}
	if err := store.SaveBallotEntry(ctx, entry); err != nil {
		t.Fatalf("save ballot failed: %v", err)
	}

	entry.Selections = []string{"bob"}
	if err := store.SaveBallotEntry(ctx, entry); err != nil {
		t.Fatalf("resave ballot failed: %v", err)
	}

	stored, found, err := store.GetBallotEntryByIdentity(ctx, "election-1", "pos-1", "voter-1")
	if err != nil || !found {
		t.Fatalf("ballot lookup failed: found=%v err=%v", found, err)
	}
	if len(stored.Selections) != 1 || stored.Selections[0] != "bob" {
		t.Fatalf("expected replaced selections, got %+v", stored.Selections)
	}

	entries, err := store.ListBallotEntries(ctx, "election-1")
	if err != nil {
		t.Fatalf("list ballots failed: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("upsert must not duplicate rows, got %d", len(entries))
	}

	if _, found, err := store.GetBallotEntryByIdentity(ctx, "election-1", "pos-1", "other-voter"); err != nil || found {
		t.Fatalf("unexpected ballot for other voter: found=%v err=%v", found, err)
	}
}

func TestOutboxAppendIsIdempotentPerEventID(t *testing.T) {
	ctx := context.Background()
	store := NewStore(nil)

	envelope := ports.EventEnvelope{
		EventID:      "event-1",
		EventType:    "election.created",
		OccurredAt:   time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC),
		PartitionKey: "election-1",
		Data:         json.RawMessage(`{"election_id":"election-1"}`),
	}
	if err := store.AppendOutbox(ctx, envelope); err != nil {
		t.Fatalf("append failed: %v", err)
	}
	// Replaying the identical envelope is a no-op.
	if err := store.AppendOutbox(ctx, envelope); err != nil {
		t.Fatalf("identical replay must succeed: %v", err)
	}

	pending, err := store.ListPendingOutbox(ctx, 10)
	if err != nil {
		t.Fatalf("list pending failed: %v", err)
	}
	if len(pending) != 1 {
		t.Fatalf("expected one pending row, got %d", len(pending))
	}

	mutated := envelope
	mutated.Data = json.RawMessage(`{"election_id":"other"}`)
	if err := store.AppendOutbox(ctx, mutated); !errors.Is(err, domainerrors.ErrConflict) {
		t.Fatalf("same event id with different payload must conflict, got %v", err)
	}
}

func TestOutboxMarkPublished(t *testing.T) {
	ctx := context.Background()
	store := NewStore(nil)

	for _, eventID := range []string{"event-1", "event-2"} {
		if err := store.AppendOutbox(ctx, ports.EventEnvelope{
			EventID:    eventID,
			EventType:  "election.opened",
			OccurredAt: time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC),
		}); err != nil {
			t.Fatalf("append %s failed: %v", eventID, err)
		}
	}

	if err := store.MarkOutboxPublished(ctx, "event-1", time.Now().UTC()); err != nil {
		t.Fatalf("mark published failed: %v", err)
	}
	pending, err := store.ListPendingOutbox(ctx, 10)
	if err != nil {
		t.Fatalf("list pending failed: %v", err)
	}
	if len(pending) != 1 || pending[0].OutboxID != "event-2" {
		t.Fatalf("expected only event-2 pending, got %+v", pending)
	}

	if err := store.MarkOutboxPublished(ctx, "no-such-row", time.Now().UTC()); !errors.Is(err, domainerrors.ErrConflict) {
		t.Fatalf("marking an unknown row must conflict, got %v", err)
	}
}

func TestListElectionsOrdersByCreation(t *testing.T) {
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	store := NewStore([]entities.Election{
		{ElectionID: "election-b", CreatedAt: base.Add(time.Hour)},
		{ElectionID: "election-a", CreatedAt: base},
	})

	items, err := store.ListElections(ctx)
	if err != nil {
		t.Fatalf("list elections failed: %v", err)
	}
	if len(items) != 2 || items[0].ElectionID != "election-a" || items[1].ElectionID != "election-b" {
		t.Fatalf("unexpected order: %+v", items)
	}
}
