package httpserver

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	resultsengine "agora/contexts/governance/results-engine"
	resultserrors "agora/contexts/governance/results-engine/domain/errors"
	resultshttp "agora/contexts/governance/results-engine/transport/http"

	httpSwagger "github.com/swaggo/http-swagger"
	_ "agora/internal/platform/httpserver/docs"
)

type Server struct {
	mux     *http.ServeMux
	logger  *slog.Logger
	addr    string
	results resultsengine.Module

	enablePreview bool
}

func New(
	results resultsengine.Module,
	logger *slog.Logger,
	addr string,
	enablePreview bool,
) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if addr == "" {
		addr = ":8080"
	}

	s := &Server{
		mux:           http.NewServeMux(),
		logger:        logger,
		addr:          addr,
		results:       results,
		enablePreview: enablePreview,
	}
	s.registerRoutes()
	return s
}

func (s *Server) Start() error {
	s.logger.Info("http server starting",
		"event", "http_server_starting",
		"module", "internal/platform/httpserver",
		"layer", "platform",
		"addr", s.addr,
	)
	return http.ListenAndServe(s.addr, s.mux)
}

// Handler exposes the router for in-process tests.
func (s *Server) Handler() http.Handler {
	return s.mux
}

func (s *Server) registerRoutes() {
	s.mux.Handle("/swagger/", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
	))

	s.mux.HandleFunc("POST /api/elections/v1/elections", s.handleCreateElection)
	s.mux.HandleFunc("GET /api/elections/v1/elections", s.handleListElections)
	s.mux.HandleFunc("GET /api/elections/v1/elections/{election_id}", s.handleGetElection)
	s.mux.HandleFunc("POST /api/elections/v1/elections/{election_id}/open", s.handleOpenElection)
	s.mux.HandleFunc("POST /api/elections/v1/elections/{election_id}/close", s.handleCloseElection)
	s.mux.HandleFunc("POST /api/elections/v1/elections/{election_id}/registrations", s.handleRegisterCandidate)
	s.mux.HandleFunc("POST /api/elections/v1/elections/{election_id}/positions/{position_id}/ballots", s.handleCastBallot)
	s.mux.HandleFunc("GET /api/elections/v1/elections/{election_id}/results/preview", s.handlePreviewResults)
	s.mux.HandleFunc("GET /api/elections/v1/elections/{election_id}/results", s.handleFinalReport)
}

func (s *Server) handleCreateElection(w http.ResponseWriter, r *http.Request) {
	var req resultshttp.CreateElectionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeResultsError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}
	resp, err := s.results.Handler.CreateElectionHandler(r.Context(), req)
	if err != nil {
		writeResultsDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}

func (s *Server) handleListElections(w http.ResponseWriter, r *http.Request) {
	resp, err := s.results.Handler.ListElectionsHandler(r.Context())
	if err != nil {
		writeResultsDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleGetElection(w http.ResponseWriter, r *http.Request) {
	electionID := r.PathValue("election_id")
	resp, err := s.results.Handler.GetElectionHandler(r.Context(), electionID)
	if err != nil {
		writeResultsDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleOpenElection(w http.ResponseWriter, r *http.Request) {
	electionID := r.PathValue("election_id")
	resp, err := s.results.Handler.OpenElectionHandler(r.Context(), electionID)
	if err != nil {
		writeResultsDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleCloseElection(w http.ResponseWriter, r *http.Request) {
	electionID := r.PathValue("election_id")
	resp, err := s.results.Handler.CloseElectionHandler(r.Context(), electionID)
	if err != nil {
		writeResultsDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleRegisterCandidate(w http.ResponseWriter, r *http.Request) {
	var req resultshttp.RegisterCandidateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeResultsError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}
	electionID := r.PathValue("election_id")
	resp, err := s.results.Handler.RegisterCandidateHandler(r.Context(), electionID, req)
	if err != nil {
		writeResultsDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}

func (s *Server) handleCastBallot(w http.ResponseWriter, r *http.Request) {
	var req resultshttp.CastBallotRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeResultsError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}
	electionID := r.PathValue("election_id")
	positionID := r.PathValue("position_id")
	resp, err := s.results.Handler.CastBallotHandler(r.Context(), electionID, positionID, req)
	if err != nil {
		writeResultsDomainError(w, err)
		return
	}
	status := http.StatusCreated
	if resp.WasUpdate {
		status = http.StatusOK
	}
	writeJSON(w, status, resp)
}

func (s *Server) handlePreviewResults(w http.ResponseWriter, r *http.Request) {
	if !s.enablePreview {
		writeResultsError(w, http.StatusNotFound, "preview_disabled", "results preview is disabled")
		return
	}
	electionID := r.PathValue("election_id")
	resp, err := s.results.Handler.PreviewResultsHandler(r.Context(), electionID)
	if err != nil {
		writeResultsDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleFinalReport(w http.ResponseWriter, r *http.Request) {
	electionID := r.PathValue("election_id")
	resp, err := s.results.Handler.FinalReportHandler(r.Context(), electionID)
	if err != nil {
		writeResultsDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func writeResultsDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, resultserrors.ErrElectionNotFound):
		writeResultsError(w, http.StatusNotFound, "election_not_found", err.Error())
	case errors.Is(err, resultserrors.ErrPositionNotFound):
		writeResultsError(w, http.StatusNotFound, "position_not_found", err.Error())
	case errors.Is(err, resultserrors.ErrReportNotReady):
		writeResultsError(w, http.StatusNotFound, "report_not_ready", err.Error())
	case errors.Is(err, resultserrors.ErrInvalidElectionInput),
		errors.Is(err, resultserrors.ErrInvalidRegistrationInput),
		errors.Is(err, resultserrors.ErrInvalidBallotInput),
		errors.Is(err, resultserrors.ErrNoPositions),
		errors.Is(err, resultserrors.ErrDuplicatePosition):
		writeResultsError(w, http.StatusBadRequest, "invalid_request", err.Error())
	case errors.Is(err, resultserrors.ErrAlreadyRegistered):
		writeResultsError(w, http.StatusConflict, "already_registered", err.Error())
	case errors.Is(err, resultserrors.ErrElectionNotDraft),
		errors.Is(err, resultserrors.ErrElectionNotOpen):
		writeResultsError(w, http.StatusConflict, "invalid_state", err.Error())
	case errors.Is(err, resultserrors.ErrConflict):
		writeResultsError(w, http.StatusConflict, "conflict", err.Error())
	default:
		writeResultsError(w, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}

func writeResultsError(w http.ResponseWriter, status int, code string, message string) {
	writeJSON(w, status, resultshttp.ErrorResponse{
		Code:    code,
		Message: message,
	})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
