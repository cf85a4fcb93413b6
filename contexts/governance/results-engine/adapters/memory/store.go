package memory

import (
	"bytes"
	"context"
	"encoding/json"
	"sort"
	"strings"
	"sync"
	"time"

	"agora/contexts/governance/results-engine/domain/entities"
	domainerrors "agora/contexts/governance/results-engine/domain/errors"
	"agora/contexts/governance/results-engine/ports"

	"github.com/google/uuid"
)

type outboxRecord struct {
	message   ports.OutboxMessage
	published bool
}

type registrationKey struct {
	electionID string
	userID     string
}

type ballotKey struct {
	electionID string
	positionID string
	voterID    string
}

type Store struct {
	mu sync.RWMutex

	elections     map[string]entities.Election
	registrations map[registrationKey]entities.Registration
	ballots       map[ballotKey]entities.BallotEntry
	reports       map[string]entities.Report
	outbox        map[string]outboxRecord
}

func NewStore(seed []entities.Election) *Store {
	elections := make(map[string]entities.Election, len(seed))
	for _, election := range seed {
		elections[election.ElectionID] = election
	}
	return &Store{
		elections:     elections,
		registrations: make(map[registrationKey]entities.Registration),
		ballots:       make(map[ballotKey]entities.BallotEntry),
		reports:       make(map[string]entities.Report),
		outbox:        make(map[string]outboxRecord),
	}
}

func (s *Store) SaveElection(_ context.Context, election entities.Election) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.elections[strings.TrimSpace(election.ElectionID)] = election
	return nil
}

func (s *Store) GetElection(_ context.Context, electionID string) (entities.Election, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	election, ok := s.elections[strings.TrimSpace(electionID)]
	if !ok {
		return entities.Election{}, domainerrors.ErrElectionNotFound
	}
	return election, nil
}

func (s *Store) ListElections(_ context.Context) ([]entities.Election, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	items := make([]entities.Election, 0, len(s.elections))
	for _, election := range s.elections {
		items = append(items, election)
	}
	sort.Slice(items, func(i, j int) bool {
		if items[i].CreatedAt.Equal(items[j].CreatedAt) {
			return items[i].ElectionID < items[j].ElectionID
		}
		return items[i].CreatedAt.Before(items[j].CreatedAt)
	})
	return items, nil
}

func (s *Store) SaveRegistration(_ context.Context, registration entities.Registration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := registrationKey{
		electionID: strings.TrimSpace(registration.ElectionID),
		userID:     strings.TrimSpace(registration.UserID),
	}
	s.registrations[key] = registration
	return nil
}

func (s *Store) GetRegistration(
	_ context.Context,
	electionID string,
	userID string,
) (entities.Registration, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	key := registrationKey{
		electionID: strings.TrimSpace(electionID),
		userID:     strings.TrimSpace(userID),
	}
	registration, ok := s.registrations[key]
	if !ok {
		return entities.Registration{}, false, nil
	}
	return registration, true, nil
}

func (s *Store) ListRegistrations(_ context.Context, electionID string) ([]entities.Registration, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	items := make([]entities.Registration, 0)
	for key, registration := range s.registrations {
		if key.electionID == strings.TrimSpace(electionID) {
			items = append(items, registration)
		}
	}
	sort.Slice(items, func(i, j int) bool {
		if items[i].CreatedAt.Equal(items[j].CreatedAt) {
			return items[i].UserID < items[j].UserID
		}
		return items[i].CreatedAt.Before(items[j].CreatedAt)
	})
	return items, nil
}

func (s *Store) SaveBallotEntry(_ context.Context, entry entities.BallotEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := ballotKey{
		electionID: strings.TrimSpace(entry.ElectionID),
		positionID: strings.TrimSpace(entry.PositionID),
		voterID:    strings.TrimSpace(entry.VoterID),
	}
	s.ballots[key] = entry
	return nil
}

func (s *Store) GetBallotEntryByIdentity(
	_ context.Context,
	electionID string,
	positionID string,
	voterID string,
) (entities.BallotEntry, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	key := ballotKey{
		electionID: strings.TrimSpace(electionID),
		positionID: strings.TrimSpace(positionID),
		voterID:    strings.TrimSpace(voterID),
	}
	entry, ok := s.ballots[key]
	if !ok {
		return entities.BallotEntry{}, false, nil
	}
	return entry, true, nil
}

func (s *Store) ListBallotEntries(_ context.Context, electionID string) ([]entities.BallotEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	items := make([]entities.BallotEntry, 0)
	for key, entry := range s.ballots {
		if key.electionID == strings.TrimSpace(electionID) {
			items = append(items, entry)
		}
	}
	sort.Slice(items, func(i, j int) bool {
		if items[i].CastAt.Equal(items[j].CastAt) {
			return items[i].BallotID < items[j].BallotID
		}
		return items[i].CastAt.Before(items[j].CastAt)
	})
	return items, nil
}

func (s *Store) SaveReport(_ context.Context, report entities.Report) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reports[strings.TrimSpace(report.ElectionID)] = report
	return nil
}

func (s *Store) GetReport(_ context.Context, electionID string) (entities.Report, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	report, ok := s.reports[strings.TrimSpace(electionID)]
	if !ok {
		return entities.Report{}, false, nil
	}
	return report, true, nil
}

func (s *Store) AppendOutbox(_ context.Context, envelope ports.EventEnvelope) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	payload, err := json.Marshal(envelope)
	if err != nil {
		return err
	}
	outboxID := strings.TrimSpace(envelope.EventID)
	if outboxID == "" {
		outboxID = uuid.NewString()
	}
	if existing, ok := s.outbox[outboxID]; ok {
		if !bytes.Equal(existing.message.Payload, payload) {
			return domainerrors.ErrConflict
		}
		return nil
	}
	createdAt := envelope.OccurredAt.UTC()
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	s.outbox[outboxID] = outboxRecord{
		message: ports.OutboxMessage{
			OutboxID:     outboxID,
			EventType:    strings.TrimSpace(envelope.EventType),
			PartitionKey: strings.TrimSpace(envelope.PartitionKey),
			Payload:      payload,
			CreatedAt:    createdAt,
		},
	}
	return nil
}

func (s *Store) ListPendingOutbox(_ context.Context, limit int) ([]ports.OutboxMessage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		limit = 100
	}
	items := make([]ports.OutboxMessage, 0, len(s.outbox))
	for _, row := range s.outbox {
		if row.published {
			continue
		}
		items = append(items, row.message)
	}
	sort.Slice(items, func(i, j int) bool {
		return items[i].CreatedAt.Before(items[j].CreatedAt)
	})
	if len(items) > limit {
		items = items[:limit]
	}
	return items, nil
}

func (s *Store) MarkOutboxPublished(_ context.Context, outboxID string, _ time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	row, ok := s.outbox[strings.TrimSpace(outboxID)]
	if !ok {
		return domainerrors.ErrConflict
	}
	row.published = true
	s.outbox[strings.TrimSpace(outboxID)] = row
	return nil
}

func (s *Store) Now() time.Time {
	return time.Now().UTC()
}

func (s *Store) NewID(_ context.Context) (string, error) {
	return uuid.NewString(), nil
}
