package queries

import (
	"context"
	"strings"
	"time"

	"agora/contexts/governance/results-engine/domain/entities"
	domainerrors "agora/contexts/governance/results-engine/domain/errors"
	"agora/contexts/governance/results-engine/domain/engine"
	"agora/contexts/governance/results-engine/ports"
)

// ResultsUseCase serves the read side: election lookups, live previews over
// the current ballots, and the frozen final report.
type ResultsUseCase struct {
	Elections     ports.ElectionRepository
	Registrations ports.RegistrationRepository
	Ballots       ports.BallotRepository
	Reports       ports.ReportRepository
	Clock         ports.Clock
}

func (uc ResultsUseCase) GetElection(ctx context.Context, electionID string) (entities.Election, error) {
	return uc.Elections.GetElection(ctx, strings.TrimSpace(electionID))
}

func (uc ResultsUseCase) ListElections(ctx context.Context) ([]entities.Election, error) {
	return uc.Elections.ListElections(ctx)
}

// PreviewResults computes a live, non-persisted report over the ballots cast
// so far. Previews run the same pipeline as the final computation; only the
// close-time snapshot freezes results.
func (uc ResultsUseCase) PreviewResults(ctx context.Context, electionID string) (entities.Report, error) {
	election, err := uc.Elections.GetElection(ctx, strings.TrimSpace(electionID))
	if err != nil {
		return entities.Report{}, err
	}
	if election.Status == entities.ElectionStatusClosed {
		return uc.FinalReport(ctx, election.ElectionID)
	}

	registrations, err := uc.Registrations.ListRegistrations(ctx, election.ElectionID)
	if err != nil {
		return entities.Report{}, err
	}
	entries, err := uc.Ballots.ListBallotEntries(ctx, election.ElectionID)
	if err != nil {
		return entities.Report{}, err
	}

	now := time.Now().UTC()
	if uc.Clock != nil {
		now = uc.Clock.Now().UTC()
	}
	return engine.Compute(election, registrations, entities.BallotsFromEntries(entries), now)
}

// FinalReport returns the snapshot persisted at close time.
func (uc ResultsUseCase) FinalReport(ctx context.Context, electionID string) (entities.Report, error) {
	report, found, err := uc.Reports.GetReport(ctx, strings.TrimSpace(electionID))
	if err != nil {
		return entities.Report{}, err
	}
	if !found {
		return entities.Report{}, domainerrors.ErrReportNotReady
	}
	return report, nil
}
