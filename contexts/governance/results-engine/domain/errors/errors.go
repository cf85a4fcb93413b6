package errors

import "errors"

var (
	ErrElectionNotFound         = errors.New("election not found")
	ErrPositionNotFound         = errors.New("position not found")
	ErrInvalidElectionInput     = errors.New("invalid election input")
	ErrInvalidRegistrationInput = errors.New("invalid registration input")
	ErrInvalidBallotInput       = errors.New("invalid ballot input")
	ErrAlreadyRegistered        = errors.New("user is already registered for this election")
	ErrElectionNotDraft         = errors.New("election is not in draft")
	ErrElectionNotOpen          = errors.New("election is not open")
	ErrReportNotReady           = errors.New("final report is not ready")
	ErrNoPositions              = errors.New("election has no positions")
	ErrDuplicatePosition        = errors.New("duplicate position id in election")
	ErrConflict                 = errors.New("write conflict")
)
