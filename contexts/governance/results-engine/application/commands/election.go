package commands

import (
	"context"
	"log/slog"
	"strings"
	"time"

	application "agora/contexts/governance/results-engine/application"
	"agora/contexts/governance/results-engine/domain/entities"
	domainerrors "agora/contexts/governance/results-engine/domain/errors"
	"agora/contexts/governance/results-engine/domain/engine"
	"agora/contexts/governance/results-engine/ports"
)

// CreateElectionCommand is the write-model input for election creation.
type CreateElectionCommand struct {
	Name      string
	Positions []PositionInput
	OpensAt   *time.Time
	ClosesAt  *time.Time
}

type PositionInput struct {
	Name      string
	SeatCount int
}

// RegisterCandidateCommand records one user's candidacy for an election.
type RegisterCandidateCommand struct {
	ElectionID             string
	UserID                 string
	DisplayName            string
	FirstChoicePositionID  string
	SecondChoicePositionID string
}

// CastBallotCommand records one voter's multi-select ballot for a position.
// Re-casting for the same (election, position, voter) replaces the previous
// selection set.
type CastBallotCommand struct {
	ElectionID string
	PositionID string
	VoterID    string
	Selections []string
}

// CastBallotResult reports whether the ballot replaced an earlier one so the
// transport layer can map create vs update semantics.
type CastBallotResult struct {
	Ballot    entities.BallotEntry
	WasUpdate bool
}

// ElectionUseCase orchestrates the election write path: lifecycle transitions,
// candidate registration, ballot casting, and the close-time results
// computation with outbox event emission.
type ElectionUseCase struct {
	Elections     ports.ElectionRepository
	Registrations ports.RegistrationRepository
	Ballots       ports.BallotRepository
	Reports       ports.ReportRepository
	Outbox        ports.OutboxWriter
	Clock         ports.Clock
	IDGen         ports.IDGenerator
	Logger        *slog.Logger
}

// CreateElection persists a draft election with its ordered position list.
// Position ids are generated here; the configured order is the input order.
func (uc ElectionUseCase) CreateElection(ctx context.Context, cmd CreateElectionCommand) (entities.Election, error) {
	logger := application.ResolveLogger(uc.Logger)
	logger.Info("election create processing started",
		"event", "results_election_create_started",
		"module", "governance/results-engine",
		"layer", "application",
		"name", strings.TrimSpace(cmd.Name),
		"position_count", len(cmd.Positions),
	)
	if strings.TrimSpace(cmd.Name) == "" {
		logger.Warn("election create validation failed",
			"event", "results_election_create_validation_failed",
			"module", "governance/results-engine",
			"layer", "application",
		)
		return entities.Election{}, domainerrors.ErrInvalidElectionInput
	}
	if len(cmd.Positions) == 0 {
		return entities.Election{}, domainerrors.ErrNoPositions
	}

	now := uc.now()
	electionID, err := uc.IDGen.NewID(ctx)
	if err != nil {
		return entities.Election{}, err
	}

	positions := make([]entities.Position, 0, len(cmd.Positions))
	for _, input := range cmd.Positions {
		if strings.TrimSpace(input.Name) == "" || input.SeatCount < 1 {
			return entities.Election{}, domainerrors.ErrInvalidElectionInput
		}
		positionID, err := uc.IDGen.NewID(ctx)
		if err != nil {
			return entities.Election{}, err
		}
		positions = append(positions, entities.Position{
			PositionID: positionID,
			Name:       strings.TrimSpace(input.Name),
			SeatCount:  input.SeatCount,
		})
	}

	election := entities.Election{
		ElectionID: electionID,
		Name:       strings.TrimSpace(cmd.Name),
		Status:     entities.ElectionStatusDraft,
		Positions:  positions,
		OpensAt:    cmd.OpensAt,
		ClosesAt:   cmd.ClosesAt,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := uc.Elections.SaveElection(ctx, election); err != nil {
		return entities.Election{}, err
	}
	if err := uc.appendElectionEvent(ctx, "election.created", election.ElectionID, now, map[string]any{
		"name":           election.Name,
		"position_count": len(election.Positions),
	}); err != nil {
		return entities.Election{}, err
	}

	logger.Info("election created",
		"event", "results_election_created",
		"module", "governance/results-engine",
		"layer", "application",
		"election_id", election.ElectionID,
		"position_count", len(election.Positions),
	)
	return election, nil
}

// OpenElection transitions a draft election to open, enabling registration
// and ballot casting.
func (uc ElectionUseCase) OpenElection(ctx context.Context, electionID string) (entities.Election, error) {
	logger := application.ResolveLogger(uc.Logger)
	election, err := uc.Elections.GetElection(ctx, strings.TrimSpace(electionID))
	if err != nil {
		return entities.Election{}, err
	}
	if election.Status != entities.ElectionStatusDraft {
		logger.Warn("election open rejected",
			"event", "results_election_open_rejected",
			"module", "governance/results-engine",
			"layer", "application",
			"election_id", election.ElectionID,
			"status", string(election.Status),
		)
		return entities.Election{}, domainerrors.ErrElectionNotDraft
	}

	now := uc.now()
	election.Status = entities.ElectionStatusOpen
	election.OpensAt = &now
	election.UpdatedAt = now
	if err := uc.Elections.SaveElection(ctx, election); err != nil {
		return entities.Election{}, err
	}
	if err := uc.appendElectionEvent(ctx, "election.opened", election.ElectionID, now, nil); err != nil {
		return entities.Election{}, err
	}

	logger.Info("election opened",
		"event", "results_election_opened",
		"module", "governance/results-engine",
		"layer", "application",
		"election_id", election.ElectionID,
	)
	return election, nil
}

// CloseElection transitions an open election to closed, computes the final
// report from the persisted registrations and ballots, snapshots it, and
// emits election.results_computed.
func (uc ElectionUseCase) CloseElection(ctx context.Context, electionID string) (entities.Report, error) {
	logger := application.ResolveLogger(uc.Logger)
	election, err := uc.Elections.GetElection(ctx, strings.TrimSpace(electionID))
	if err != nil {
		return entities.Report{}, err
	}
	if election.Status != entities.ElectionStatusOpen {
		logger.Warn("election close rejected",
			"event", "results_election_close_rejected",
			"module", "governance/results-engine",
			"layer", "application",
			"election_id", election.ElectionID,
			"status", string(election.Status),
		)
		return entities.Report{}, domainerrors.ErrElectionNotOpen
	}

	registrations, err := uc.Registrations.ListRegistrations(ctx, election.ElectionID)
	if err != nil {
		return entities.Report{}, err
	}
	entries, err := uc.Ballots.ListBallotEntries(ctx, election.ElectionID)
	if err != nil {
		return entities.Report{}, err
	}

	now := uc.now()
	report, err := engine.Compute(election, registrations, entities.BallotsFromEntries(entries), now)
	if err != nil {
		logger.Error("election results computation failed",
			"event", "results_computation_failed",
			"module", "governance/results-engine",
			"layer", "application",
			"election_id", election.ElectionID,
			"error", err.Error(),
		)
		return entities.Report{}, err
	}

	election.Status = entities.ElectionStatusClosed
	election.ClosesAt = &now
	election.UpdatedAt = now
	if err := uc.Elections.SaveElection(ctx, election); err != nil {
		return entities.Report{}, err
	}
	if err := uc.Reports.SaveReport(ctx, report); err != nil {
		return entities.Report{}, err
	}
	if err := uc.appendElectionEvent(ctx, "election.results_computed", election.ElectionID, now, map[string]any{
		"position_count": len(report.PositionOrder),
		"has_ties":       report.Summary.HasAnyTies,
		"winners":        report.Winners(),
	}); err != nil {
		return entities.Report{}, err
	}

	logger.Info("election closed and results computed",
		"event", "results_election_closed",
		"module", "governance/results-engine",
		"layer", "application",
		"election_id", election.ElectionID,
		"has_ties", report.Summary.HasAnyTies,
		"dependency_count", len(report.Summary.Dependencies),
	)
	return report, nil
}

// RegisterCandidate records a candidacy. One registration per user per
// election; the second choice is optional and must differ from the first.
func (uc ElectionUseCase) RegisterCandidate(ctx context.Context, cmd RegisterCandidateCommand) (entities.Registration, error) {
	logger := application.ResolveLogger(uc.Logger)
	userID := strings.TrimSpace(cmd.UserID)
	logger.Info("candidate registration processing started",
		"event", "results_registration_started",
		"module", "governance/results-engine",
		"layer", "application",
		"election_id", strings.TrimSpace(cmd.ElectionID),
		"user_id", userID,
	)
	if userID == "" || strings.TrimSpace(cmd.DisplayName) == "" {
		return entities.Registration{}, domainerrors.ErrInvalidRegistrationInput
	}

	election, err := uc.Elections.GetElection(ctx, strings.TrimSpace(cmd.ElectionID))
	if err != nil {
		return entities.Registration{}, err
	}
	if election.Status != entities.ElectionStatusOpen {
		return entities.Registration{}, domainerrors.ErrElectionNotOpen
	}

	firstChoice := strings.TrimSpace(cmd.FirstChoicePositionID)
	if _, ok := election.Position(firstChoice); !ok {
		return entities.Registration{}, domainerrors.ErrPositionNotFound
	}
	secondChoice := strings.TrimSpace(cmd.SecondChoicePositionID)
	if secondChoice != "" {
		if secondChoice == firstChoice {
			return entities.Registration{}, domainerrors.ErrInvalidRegistrationInput
		}
		if _, ok := election.Position(secondChoice); !ok {
			return entities.Registration{}, domainerrors.ErrPositionNotFound
		}
	}

	if _, found, err := uc.Registrations.GetRegistration(ctx, election.ElectionID, userID); err != nil {
		return entities.Registration{}, err
	} else if found {
		return entities.Registration{}, domainerrors.ErrAlreadyRegistered
	}

	now := uc.now()
	registration := entities.Registration{
		ElectionID:             election.ElectionID,
		UserID:                 userID,
		DisplayName:            strings.TrimSpace(cmd.DisplayName),
		FirstChoicePositionID:  firstChoice,
		SecondChoicePositionID: secondChoice,
		CreatedAt:              now,
	}
	if err := uc.Registrations.SaveRegistration(ctx, registration); err != nil {
		return entities.Registration{}, err
	}
	if err := uc.appendElectionEvent(ctx, "election.candidate_registered", election.ElectionID, now, map[string]any{
		"user_id":      registration.UserID,
		"first_choice": registration.FirstChoicePositionID,
		"second_choice": func() any {
			if registration.SecondChoicePositionID == "" {
				return nil
			}
			return registration.SecondChoicePositionID
		}(),
	}); err != nil {
		return entities.Registration{}, err
	}

	logger.Info("candidate registered",
		"event", "results_candidate_registered",
		"module", "governance/results-engine",
		"layer", "application",
		"election_id", election.ElectionID,
		"user_id", registration.UserID,
		"first_choice", registration.FirstChoicePositionID,
	)
	return registration, nil
}

// CastBallot creates or replaces one voter's ballot for a position. Duplicate
// candidate ids in the selections collapse to one vote each.
func (uc ElectionUseCase) CastBallot(ctx context.Context, cmd CastBallotCommand) (CastBallotResult, error) {
	logger := application.ResolveLogger(uc.Logger)
	voterID := strings.TrimSpace(cmd.VoterID)
	positionID := strings.TrimSpace(cmd.PositionID)
	logger.Info("ballot cast processing started",
		"event", "results_ballot_cast_started",
		"module", "governance/results-engine",
		"layer", "application",
		"election_id", strings.TrimSpace(cmd.ElectionID),
		"position_id", positionID,
		"voter_id", voterID,
	)
	if voterID == "" || positionID == "" || len(cmd.Selections) == 0 {
		return CastBallotResult{}, domainerrors.ErrInvalidBallotInput
	}

	election, err := uc.Elections.GetElection(ctx, strings.TrimSpace(cmd.ElectionID))
	if err != nil {
		return CastBallotResult{}, err
	}
	if election.Status != entities.ElectionStatusOpen {
		return CastBallotResult{}, domainerrors.ErrElectionNotOpen
	}
	if _, ok := election.Position(positionID); !ok {
		return CastBallotResult{}, domainerrors.ErrPositionNotFound
	}

	selections := dedupeSelections(cmd.Selections)
	if len(selections) == 0 {
		return CastBallotResult{}, domainerrors.ErrInvalidBallotInput
	}

	now := uc.now()
	if existing, found, err := uc.Ballots.GetBallotEntryByIdentity(ctx, election.ElectionID, positionID, voterID); err != nil {
		return CastBallotResult{}, err
	} else if found {
		existing.Selections = selections
		existing.UpdatedAt = now
		if err := uc.Ballots.SaveBallotEntry(ctx, existing); err != nil {
			return CastBallotResult{}, err
		}
		logger.Info("ballot replaced",
			"event", "results_ballot_replaced",
			"module", "governance/results-engine",
			"layer", "application",
			"election_id", election.ElectionID,
			"position_id", positionID,
			"voter_id", voterID,
			"selection_count", len(selections),
		)
		return CastBallotResult{Ballot: existing, WasUpdate: true}, nil
	}

	ballotID, err := uc.IDGen.NewID(ctx)
	if err != nil {
		return CastBallotResult{}, err
	}
	entry := entities.BallotEntry{
		BallotID:   ballotID,
		ElectionID: election.ElectionID,
		PositionID: positionID,
		VoterID:    voterID,
		Selections: selections,
		CastAt:     now,
		UpdatedAt:  now,
	}
	if err := uc.Ballots.SaveBallotEntry(ctx, entry); err != nil {
		return CastBallotResult{}, err
	}

	logger.Info("ballot cast",
		"event", "results_ballot_cast",
		"module", "governance/results-engine",
		"layer", "application",
		"election_id", election.ElectionID,
		"position_id", positionID,
		"voter_id", voterID,
		"selection_count", len(selections),
	)
	return CastBallotResult{Ballot: entry}, nil
}

func (uc ElectionUseCase) now() time.Time {
	now := time.Now().UTC()
	if uc.Clock != nil {
		now = uc.Clock.Now().UTC()
	}
	return now
}

func (uc ElectionUseCase) appendElectionEvent(
	ctx context.Context,
	eventType string,
	electionID string,
	occurredAt time.Time,
	data map[string]any,
) error {
	// Outbox is optional for pure read/test wiring, so nil is treated as no-op.
	if uc.Outbox == nil {
		return nil
	}
	eventID, err := uc.IDGen.NewID(ctx)
	if err != nil {
		return err
	}
	payload := map[string]any{
		"election_id": electionID,
		"occurred_at": occurredAt.Format(time.RFC3339),
	}
	for key, value := range data {
		payload[key] = value
	}
	envelope, err := newResultsEnvelope(eventID, eventType, electionID, occurredAt, payload)
	if err != nil {
		return err
	}
	return uc.Outbox.AppendOutbox(ctx, envelope)
}

func dedupeSelections(selections []string) []string {
	seen := make(map[string]struct{}, len(selections))
	clean := make([]string, 0, len(selections))
	for _, candidateID := range selections {
		candidateID = strings.TrimSpace(candidateID)
		if candidateID == "" {
			continue
		}
		if _, dup := seen[candidateID]; dup {
			continue
		}
		seen[candidateID] = struct{}{}
		clean = append(clean, candidateID)
	}
	return clean
}
