package http

type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type PositionRequest struct {
	Name      string `json:"name"`
	SeatCount int    `json:"seat_count"`
}

type CreateElectionRequest struct {
	Name      string            `json:"name"`
	Positions []PositionRequest `json:"positions"`
}

type PositionResponse struct {
	PositionID string `json:"position_id"`
	Name       string `json:"name"`
	SeatCount  int    `json:"seat_count"`
}

type ElectionResponse struct {
	ElectionID string             `json:"election_id"`
	Name       string             `json:"name"`
	Status     string             `json:"status"`
	Positions  []PositionResponse `json:"positions"`
	OpensAt    string             `json:"opens_at,omitempty"`
	ClosesAt   string             `json:"closes_at,omitempty"`
}

type ElectionListResponse struct {
	Items []ElectionResponse `json:"items"`
}

type RegisterCandidateRequest struct {
	UserID                 string `json:"user_id"`
	DisplayName            string `json:"display_name"`
	FirstChoicePositionID  string `json:"first_choice_position_id"`
	SecondChoicePositionID string `json:"second_choice_position_id,omitempty"`
}

type RegistrationResponse struct {
	ElectionID             string `json:"election_id"`
	UserID                 string `json:"user_id"`
	DisplayName            string `json:"display_name"`
	FirstChoicePositionID  string `json:"first_choice_position_id"`
	SecondChoicePositionID string `json:"second_choice_position_id,omitempty"`
}

type CastBallotRequest struct {
	VoterID    string   `json:"voter_id"`
	Selections []string `json:"selections"`
}

type BallotResponse struct {
	BallotID   string   `json:"ballot_id"`
	ElectionID string   `json:"election_id"`
	PositionID string   `json:"position_id"`
	VoterID    string   `json:"voter_id"`
	Selections []string `json:"selections"`
	WasUpdate  bool     `json:"was_update"`
}

type CandidateResultItem struct {
	UserID      string `json:"user_id"`
	DisplayName string `json:"display_name"`
	VoteCount   int    `json:"vote_count"`
	Choice      string `json:"choice"`
	IsWinner    bool   `json:"is_winner"`
	Status      string `json:"status"`
}

type TieGroupItem struct {
	PositionID      string   `json:"position_id"`
	Boundary        int      `json:"boundary"`
	CandidateIDs    []string `json:"candidate_ids"`
	VotesAtBoundary int      `json:"votes_at_boundary"`
}

type PositionResultItem struct {
	PositionID  string                `json:"position_id"`
	Name        string                `json:"name"`
	SeatCount   int                   `json:"seat_count"`
	Candidates  []CandidateResultItem `json:"candidates"`
	TotalVotes  int                   `json:"total_votes"`
	TotalVoters int                   `json:"total_voters"`
	IsVoid      bool                  `json:"is_void"`
	VoidReason  string                `json:"void_reason,omitempty"`
	HasTies     bool                  `json:"has_ties"`
	TieGroups   []TieGroupItem        `json:"tie_groups,omitempty"`
}

type DependencyItem struct {
	DependentPositionID string `json:"dependent_position_id"`
	SourcePositionID    string `json:"source_position_id"`
	CandidateID         string `json:"candidate_id"`
	Reason              string `json:"reason"`
}

type TieSummaryResponse struct {
	HasAnyTies   bool             `json:"has_any_ties"`
	Dependencies []DependencyItem `json:"dependencies,omitempty"`
	Cycles       [][]string       `json:"cycles,omitempty"`
}

type ReportResponse struct {
	ElectionID  string               `json:"election_id"`
	Positions   []PositionResultItem `json:"positions"`
	Summary     TieSummaryResponse   `json:"summary"`
	GeneratedAt string               `json:"generated_at"`
}
