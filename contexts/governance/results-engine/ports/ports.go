package ports

import (
	"context"
	"time"

	"agora/contexts/governance/results-engine/domain/entities"
	contractsv1 "agora/contracts/gen/events/v1"
)

type ElectionRepository interface {
	SaveElection(ctx context.Context, election entities.Election) error
	GetElection(ctx context.Context, electionID string) (entities.Election, error)
	ListElections(ctx context.Context) ([]entities.Election, error)
}

type RegistrationRepository interface {
	SaveRegistration(ctx context.Context, registration entities.Registration) error
	GetRegistration(ctx context.Context, electionID string, userID string) (entities.Registration, bool, error)
	ListRegistrations(ctx context.Context, electionID string) ([]entities.Registration, error)
}

type BallotRepository interface {
	SaveBallotEntry(ctx context.Context, entry entities.BallotEntry) error
	GetBallotEntryByIdentity(ctx context.Context, electionID string, positionID string, voterID string) (entities.BallotEntry, bool, error)
	ListBallotEntries(ctx context.Context, electionID string) ([]entities.BallotEntry, error)
}

type ReportRepository interface {
	SaveReport(ctx context.Context, report entities.Report) error
	GetReport(ctx context.Context, electionID string) (entities.Report, bool, error)
}

type Clock interface {
	Now() time.Time
}

type IDGenerator interface {
	NewID(ctx context.Context) (string, error)
}

type EventEnvelope = contractsv1.Envelope

type OutboxMessage struct {
	OutboxID     string
	EventType    string
	PartitionKey string
	Payload      []byte
	CreatedAt    time.Time
}

type OutboxWriter interface {
	AppendOutbox(ctx context.Context, envelope EventEnvelope) error
}

type OutboxRepository interface {
	ListPendingOutbox(ctx context.Context, limit int) ([]OutboxMessage, error)
	MarkOutboxPublished(ctx context.Context, outboxID string, publishedAt time.Time) error
}

type EventPublisher interface {
	Publish(ctx context.Context, topic string, event EventEnvelope) error
}

type EventSubscriber interface {
	Subscribe(
		ctx context.Context,
		topic string,
		consumerGroup string,
		handler func(context.Context, EventEnvelope) error,
	) error
}
