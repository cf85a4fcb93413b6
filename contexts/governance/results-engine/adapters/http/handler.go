package httpadapter

import (
	"context"
	"log/slog"
	"time"

	"agora/contexts/governance/results-engine/application/commands"
	"agora/contexts/governance/results-engine/application/queries"
	"agora/contexts/governance/results-engine/domain/entities"
	httptransport "agora/contexts/governance/results-engine/transport/http"
)

type Handler struct {
	Elections commands.ElectionUseCase
	Results   queries.ResultsUseCase
	Logger    *slog.Logger
}

func (h Handler) CreateElectionHandler(
	ctx context.Context,
	req httptransport.CreateElectionRequest,
) (httptransport.ElectionResponse, error) {
	positions := make([]commands.PositionInput, 0, len(req.Positions))
	for _, position := range req.Positions {
		positions = append(positions, commands.PositionInput{
			Name:      position.Name,
			SeatCount: position.SeatCount,
		})
	}
	election, err := h.Elections.CreateElection(ctx, commands.CreateElectionCommand{
		Name:      req.Name,
		Positions: positions,
	})
	if err != nil {
		return httptransport.ElectionResponse{}, err
	}
	return mapElection(election), nil
}

func (h Handler) OpenElectionHandler(ctx context.Context, electionID string) (httptransport.ElectionResponse, error) {
	election, err := h.Elections.OpenElection(ctx, electionID)
	if err != nil {
		return httptransport.ElectionResponse{}, err
	}
	return mapElection(election), nil
}

func (h Handler) CloseElectionHandler(ctx context.Context, electionID string) (httptransport.ReportResponse, error) {
	report, err := h.Elections.CloseElection(ctx, electionID)
	if err != nil {
		return httptransport.ReportResponse{}, err
	}
	return mapReport(report), nil
}

func (h Handler) GetElectionHandler(ctx context.Context, electionID string) (httptransport.ElectionResponse, error) {
	election, err := h.Results.GetElection(ctx, electionID)
	if err != nil {
		return httptransport.ElectionResponse{}, err
	}
	return mapElection(election), nil
}

func (h Handler) ListElectionsHandler(ctx context.Context) (httptransport.ElectionListResponse, error) {
	elections, err := h.Results.ListElections(ctx)
	if err != nil {
		return httptransport.ElectionListResponse{}, err
	}
	items := make([]httptransport.ElectionResponse, 0, len(elections))
	for _, election := range elections {
		items = append(items, mapElection(election))
	}
	return httptransport.ElectionListResponse{Items: items}, nil
}

func (h Handler) RegisterCandidateHandler(
	ctx context.Context,
	electionID string,
	req httptransport.RegisterCandidateRequest,
) (httptransport.RegistrationResponse, error) {
	registration, err := h.Elections.RegisterCandidate(ctx, commands.RegisterCandidateCommand{
		ElectionID:             electionID,
		UserID:                 req.UserID,
		DisplayName:            req.DisplayName,
		FirstChoicePositionID:  req.FirstChoicePositionID,
		SecondChoicePositionID: req.SecondChoicePositionID,
	})
	if err != nil {
		return httptransport.RegistrationResponse{}, err
	}
	return httptransport.RegistrationResponse{
		ElectionID:             registration.ElectionID,
		UserID:                 registration.UserID,
		DisplayName:            registration.DisplayName,
		FirstChoicePositionID:  registration.FirstChoicePositionID,
		SecondChoicePositionID: registration.SecondChoicePositionID,
	}, nil
}

func (h Handler) CastBallotHandler(
	ctx context.Context,
	electionID string,
	positionID string,
	req httptransport.CastBallotRequest,
) (httptransport.BallotResponse, error) {
	result, err := h.Elections.CastBallot(ctx, commands.CastBallotCommand{
		ElectionID: electionID,
		PositionID: positionID,
		VoterID:    req.VoterID,
		Selections: req.Selections,
	})
	if err != nil {
		return httptransport.BallotResponse{}, err
	}
	return httptransport.BallotResponse{
		BallotID:   result.Ballot.BallotID,
		ElectionID: result.Ballot.ElectionID,
		PositionID: result.Ballot.PositionID,
		VoterID:    result.Ballot.VoterID,
		Selections: result.Ballot.Selections,
		WasUpdate:  result.WasUpdate,
	}, nil
}

func (h Handler) PreviewResultsHandler(ctx context.Context, electionID string) (httptransport.ReportResponse, error) {
	report, err := h.Results.PreviewResults(ctx, electionID)
	if err != nil {
		return httptransport.ReportResponse{}, err
	}
	return mapReport(report), nil
}

func (h Handler) FinalReportHandler(ctx context.Context, electionID string) (httptransport.ReportResponse, error) {
	report, err := h.Results.FinalReport(ctx, electionID)
	if err != nil {
		return httptransport.ReportResponse{}, err
	}
	return mapReport(report), nil
}

func mapElection(election entities.Election) httptransport.ElectionResponse {
	positions := make([]httptransport.PositionResponse, 0, len(election.Positions))
	for _, position := range election.Positions {
		positions = append(positions, httptransport.PositionResponse{
			PositionID: position.PositionID,
			Name:       position.Name,
			SeatCount:  position.SeatCount,
		})
	}
	response := httptransport.ElectionResponse{
		ElectionID: election.ElectionID,
		Name:       election.Name,
		Status:     string(election.Status),
		Positions:  positions,
	}
	if election.OpensAt != nil {
		response.OpensAt = election.OpensAt.UTC().Format(time.RFC3339)
	}
	if election.ClosesAt != nil {
		response.ClosesAt = election.ClosesAt.UTC().Format(time.RFC3339)
	}
	return response
}

func mapReport(report entities.Report) httptransport.ReportResponse {
	positions := make([]httptransport.PositionResultItem, 0, len(report.PositionOrder))
	for _, positionID := range report.PositionOrder {
		result, ok := report.Positions[positionID]
		if !ok {
			continue
		}
		candidates := make([]httptransport.CandidateResultItem, 0, len(result.Candidates))
		for _, candidate := range result.Candidates {
			candidates = append(candidates, httptransport.CandidateResultItem{
				UserID:      candidate.UserID,
				DisplayName: candidate.DisplayName,
				VoteCount:   candidate.VoteCount,
				Choice:      string(candidate.Choice),
				IsWinner:    candidate.IsWinner,
				Status:      string(candidate.Status),
			})
		}
		groups := make([]httptransport.TieGroupItem, 0, len(result.Ties.Groups))
		for _, group := range result.Ties.Groups {
			groups = append(groups, httptransport.TieGroupItem{
				PositionID:      group.PositionID,
				Boundary:        group.Boundary,
				CandidateIDs:    group.CandidateIDs,
				VotesAtBoundary: group.VotesAtBoundary,
			})
		}
		positions = append(positions, httptransport.PositionResultItem{
			PositionID:  result.Position.PositionID,
			Name:        result.Position.Name,
			SeatCount:   result.Position.SeatCount,
			Candidates:  candidates,
			TotalVotes:  result.TotalVotes,
			TotalVoters: result.TotalVoters,
			IsVoid:      result.IsVoid,
			VoidReason:  string(result.VoidReason),
			HasTies:     result.Ties.HasTies,
			TieGroups:   groups,
		})
	}

	dependencies := make([]httptransport.DependencyItem, 0, len(report.Summary.Dependencies))
	for _, dep := range report.Summary.Dependencies {
		dependencies = append(dependencies, httptransport.DependencyItem{
			DependentPositionID: dep.DependentPositionID,
			SourcePositionID:    dep.SourcePositionID,
			CandidateID:         dep.CandidateID,
			Reason:              dep.Reason,
		})
	}

	return httptransport.ReportResponse{
		ElectionID: report.ElectionID,
		Positions:  positions,
		Summary: httptransport.TieSummaryResponse{
			HasAnyTies:   report.Summary.HasAnyTies,
			Dependencies: dependencies,
			Cycles:       report.Summary.Cycles,
		},
		GeneratedAt: report.GeneratedAt.UTC().Format(time.RFC3339),
	}
}
