package postgresadapter

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"time"

	"agora/contexts/governance/results-engine/domain/entities"
	domainerrors "agora/contexts/governance/results-engine/domain/errors"
	"agora/contexts/governance/results-engine/ports"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	outboxStatusPending   = "pending"
	outboxStatusPublished = "published"
)

type Repository struct {
	db     *gorm.DB
	logger *slog.Logger
}

func NewRepository(db *gorm.DB, logger *slog.Logger) *Repository {
	if logger == nil {
		logger = slog.Default()
	}
	return &Repository{
		db:     db,
		logger: logger,
	}
}

func (r *Repository) SaveElection(ctx context.Context, election entities.Election) error {
	row, err := electionModelFromEntity(election)
	if err != nil {
		return r.logError("results_repo_save_election_marshal_failed", err,
			"election_id", strings.TrimSpace(election.ElectionID),
		)
	}
	create := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "id"}},
		DoUpdates: clause.Assignments(map[string]any{
			"name":       row.Name,
			"status":     row.Status,
			"positions":  row.Positions,
			"opens_at":   row.OpensAt,
			"closes_at":  row.ClosesAt,
			"updated_at": row.UpdatedAt,
		}),
	}).Create(&row)
	if create.Error != nil {
		if isUniqueViolation(create.Error) {
			return domainerrors.ErrConflict
		}
		return r.logError("results_repo_save_election_failed", create.Error,
			"election_id", strings.TrimSpace(election.ElectionID),
		)
	}
	return nil
}

func (r *Repository) GetElection(ctx context.Context, electionID string) (entities.Election, error) {
	var row electionModel
	err := r.db.WithContext(ctx).
		Where("id = ?", strings.TrimSpace(electionID)).
		First(&row).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entities.Election{}, domainerrors.ErrElectionNotFound
		}
		return entities.Election{}, r.logError("results_repo_get_election_failed", err,
			"election_id", strings.TrimSpace(electionID),
		)
	}
	return row.toEntity()
}

func (r *Repository) ListElections(ctx context.Context) ([]entities.Election, error) {
	var rows []electionModel
	if err := r.db.WithContext(ctx).
		Order("created_at ASC").
		Find(&rows).Error; err != nil {
		return nil, r.logError("results_repo_list_elections_failed", err)
	}
	items := make([]entities.Election, 0, len(rows))
	for _, row := range rows {
		election, err := row.toEntity()
		if err != nil {
			return nil, r.logError("results_repo_list_elections_decode_failed", err,
				"election_id", row.ID,
			)
		}
		items = append(items, election)
	}
	return items, nil
}

func (r *Repository) SaveRegistration(ctx context.Context, registration entities.Registration) error {
	row := registrationModelFromEntity(registration)
	create := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "election_id"}, {Name: "user_id"}},
		DoUpdates: clause.Assignments(map[string]any{
			"display_name":  row.DisplayName,
			"first_choice":  row.FirstChoice,
			"second_choice": row.SecondChoice,
		}),
	}).Create(&row)
	if create.Error != nil {
		return r.logError("results_repo_save_registration_failed", create.Error,
			"election_id", row.ElectionID,
			"user_id", row.UserID,
		)
	}
	return nil
}

func (r *Repository) GetRegistration(
	ctx context.Context,
	electionID string,
	userID string,
) (entities.Registration, bool, error) {
	var row registrationModel
	err := r.db.WithContext(ctx).
		Where("election_id = ?", strings.TrimSpace(electionID)).
		Where("user_id = ?", strings.TrimSpace(userID)).
		First(&row).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entities.Registration{}, false, nil
		}
		return entities.Registration{}, false, r.logError("results_repo_get_registration_failed", err,
			"election_id", strings.TrimSpace(electionID),
			"user_id", strings.TrimSpace(userID),
		)
	}
	return row.toEntity(), true, nil
}

func (r *Repository) ListRegistrations(ctx context.Context, electionID string) ([]entities.Registration, error) {
	var rows []registrationModel
	if err := r.db.WithContext(ctx).
		Where("election_id = ?", strings.TrimSpace(electionID)).
		Order("created_at ASC").
		Find(&rows).Error; err != nil {
		return nil, r.logError("results_repo_list_registrations_failed", err,
			"election_id", strings.TrimSpace(electionID),
		)
	}
	items := make([]entities.Registration, 0, len(rows))
	for _, row := range rows {
		items = append(items, row.toEntity())
	}
	return items, nil
}

func (r *Repository) SaveBallotEntry(ctx context.Context, entry entities.BallotEntry) error {
	row, err := ballotModelFromEntity(entry)
	if err != nil {
		return r.logError("results_repo_save_ballot_marshal_failed", err,
			"ballot_id", strings.TrimSpace(entry.BallotID),
		)
	}
	create := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "election_id"}, {Name: "position_id"}, {Name: "voter_id"}},
		DoUpdates: clause.Assignments(map[string]any{
			"selections": row.Selections,
			"updated_at": row.UpdatedAt,
		}),
	}).Create(&row)
	if create.Error != nil {
		return r.logError("results_repo_save_ballot_failed", create.Error,
			"ballot_id", row.ID,
			"election_id", row.ElectionID,
			"position_id", row.PositionID,
			"voter_id", row.VoterID,
		)
	}
	return nil
}

func (r *Repository) GetBallotEntryByIdentity(
	ctx context.Context,
	electionID string,
	positionID string,
	voterID string,
) (entities.BallotEntry, bool, error) {
	var row ballotModel
	err := r.db.WithContext(ctx).
		Where("election_id = ?", strings.TrimSpace(electionID)).
		Where("position_id = ?", strings.TrimSpace(positionID)).
		Where("voter_id = ?", strings.TrimSpace(voterID)).
		First(&row).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entities.BallotEntry{}, false, nil
		}
		return entities.BallotEntry{}, false, r.logError("results_repo_get_ballot_by_identity_failed", err,
			"election_id", strings.TrimSpace(electionID),
			"position_id", strings.TrimSpace(positionID),
			"voter_id", strings.TrimSpace(voterID),
		)
	}
	entry, err := row.toEntity()
	if err != nil {
		return entities.BallotEntry{}, false, r.logError("results_repo_get_ballot_decode_failed", err,
			"ballot_id", row.ID,
		)
	}
	return entry, true, nil
}

func (r *Repository) ListBallotEntries(ctx context.Context, electionID string) ([]entities.BallotEntry, error) {
	var rows []ballotModel
	if err := r.db.WithContext(ctx).
		Where("election_id = ?", strings.TrimSpace(electionID)).
		Order("cast_at ASC").
		Find(&rows).Error; err != nil {
		return nil, r.logError("results_repo_list_ballots_failed", err,
			"election_id", strings.TrimSpace(electionID),
		)
	}
	items := make([]entities.BallotEntry, 0, len(rows))
	for _, row := range rows {
		entry, err := row.toEntity()
		if err != nil {
			return nil, r.logError("results_repo_list_ballots_decode_failed", err,
				"ballot_id", row.ID,
			)
		}
		items = append(items, entry)
	}
	return items, nil
}

func (r *Repository) SaveReport(ctx context.Context, report entities.Report) error {
	row, err := reportModelFromEntity(report)
	if err != nil {
		return r.logError("results_repo_save_report_marshal_failed", err,
			"election_id", strings.TrimSpace(report.ElectionID),
		)
	}
	create := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "election_id"}},
		DoUpdates: clause.Assignments(map[string]any{
			"payload":      row.Payload,
			"generated_at": row.GeneratedAt,
		}),
	}).Create(&row)
	if create.Error != nil {
		return r.logError("results_repo_save_report_failed", create.Error,
			"election_id", row.ElectionID,
		)
	}
	return nil
}

func (r *Repository) GetReport(ctx context.Context, electionID string) (entities.Report, bool, error) {
	var row reportModel
	err := r.db.WithContext(ctx).
		Where("election_id = ?", strings.TrimSpace(electionID)).
		First(&row).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entities.Report{}, false, nil
		}
		return entities.Report{}, false, r.logError("results_repo_get_report_failed", err,
			"election_id", strings.TrimSpace(electionID),
		)
	}
	var report entities.Report
	if err := json.Unmarshal(row.Payload, &report); err != nil {
		return entities.Report{}, false, r.logError("results_repo_get_report_decode_failed", err,
			"election_id", row.ElectionID,
		)
	}
	return report, true, nil
}

func (r *Repository) AppendOutbox(ctx context.Context, envelope ports.EventEnvelope) error {
	payload, err := json.Marshal(envelope)
	if err != nil {
		return r.logError("results_repo_append_outbox_marshal_failed", err,
			"event_id", strings.TrimSpace(envelope.EventID),
			"event_type", strings.TrimSpace(envelope.EventType),
		)
	}
	row := outboxModel{
		OutboxID:     strings.TrimSpace(envelope.EventID),
		EventType:    strings.TrimSpace(envelope.EventType),
		PartitionKey: strings.TrimSpace(envelope.PartitionKey),
		Payload:      payload,
		Status:       outboxStatusPending,
		CreatedAt:    envelope.OccurredAt.UTC(),
	}
	if row.OutboxID == "" {
		row.OutboxID = uuid.NewString()
	}
	if row.CreatedAt.IsZero() {
		row.CreatedAt = time.Now().UTC()
	}
	create := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "outbox_id"}},
		DoNothing: true,
	}).Create(&row)
	if create.Error != nil {
		return r.logError("results_repo_append_outbox_insert_failed", create.Error,
			"outbox_id", row.OutboxID,
		)
	}
	if create.RowsAffected > 0 {
		return nil
	}

	var existing outboxModel
	if err := r.db.WithContext(ctx).
		Select("payload").
		Where("outbox_id = ?", row.OutboxID).
		First(&existing).Error; err != nil {
		return r.logError("results_repo_append_outbox_load_existing_failed", err,
			"outbox_id", row.OutboxID,
		)
	}
	if !bytes.Equal(existing.Payload, row.Payload) {
		return domainerrors.ErrConflict
	}
	return nil
}

func (r *Repository) ListPendingOutbox(ctx context.Context, limit int) ([]ports.OutboxMessage, error) {
	if limit <= 0 {
		limit = 100
	}
	var rows []outboxModel
	if err := r.db.WithContext(ctx).
		Where("status = ?", outboxStatusPending).
		Order("created_at ASC").
		Limit(limit).
		Find(&rows).Error; err != nil {
		return nil, r.logError("results_repo_list_pending_outbox_failed", err, "limit", limit)
	}
	items := make([]ports.OutboxMessage, 0, len(rows))
	for _, row := range rows {
		items = append(items, ports.OutboxMessage{
			OutboxID:     row.OutboxID,
			EventType:    row.EventType,
			PartitionKey: row.PartitionKey,
			Payload:      append([]byte(nil), row.Payload...),
			CreatedAt:    row.CreatedAt.UTC(),
		})
	}
	return items, nil
}

func (r *Repository) MarkOutboxPublished(ctx context.Context, outboxID string, publishedAt time.Time) error {
	result := r.db.WithContext(ctx).
		Model(&outboxModel{}).
		Where("outbox_id = ?", strings.TrimSpace(outboxID)).
		Updates(map[string]any{
			"status":       outboxStatusPublished,
			"published_at": publishedAt.UTC(),
		})
	if result.Error != nil {
		return r.logError("results_repo_mark_outbox_published_failed", result.Error,
			"outbox_id", strings.TrimSpace(outboxID),
		)
	}
	if result.RowsAffected == 0 {
		return domainerrors.ErrConflict
	}
	return nil
}

func (r *Repository) logError(event string, err error, attrs ...any) error {
	fields := make([]any, 0, len(attrs)+8)
	fields = append(fields,
		"event", event,
		"module", "governance/results-engine",
		"layer", "adapter",
		"error", err.Error(),
	)
	fields = append(fields, attrs...)
	r.logger.Error("results repository operation failed", fields...)
	return err
}

type electionModel struct {
	ID        string     `gorm:"column:id;primaryKey"`
	Name      string     `gorm:"column:name"`
	Status    string     `gorm:"column:status"`
	Positions []byte     `gorm:"column:positions"`
	OpensAt   *time.Time `gorm:"column:opens_at"`
	ClosesAt  *time.Time `gorm:"column:closes_at"`
	CreatedAt time.Time  `gorm:"column:created_at"`
	UpdatedAt time.Time  `gorm:"column:updated_at"`
}

func (electionModel) TableName() string {
	return "elections"
}

type positionDocument struct {
	PositionID string `json:"position_id"`
	Name       string `json:"name"`
	SeatCount  int    `json:"seat_count"`
}

func electionModelFromEntity(election entities.Election) (electionModel, error) {
	docs := make([]positionDocument, 0, len(election.Positions))
	for _, position := range election.Positions {
		docs = append(docs, positionDocument{
			PositionID: position.PositionID,
			Name:       position.Name,
			SeatCount:  position.SeatCount,
		})
	}
	positions, err := json.Marshal(docs)
	if err != nil {
		return electionModel{}, err
	}
	row := electionModel{
		ID:        strings.TrimSpace(election.ElectionID),
		Name:      strings.TrimSpace(election.Name),
		Status:    string(election.Status),
		Positions: positions,
		OpensAt:   normalizeOptionalTime(election.OpensAt),
		ClosesAt:  normalizeOptionalTime(election.ClosesAt),
		CreatedAt: election.CreatedAt.UTC(),
		UpdatedAt: election.UpdatedAt.UTC(),
	}
	if row.CreatedAt.IsZero() {
		row.CreatedAt = time.Now().UTC()
	}
	if row.UpdatedAt.IsZero() {
		row.UpdatedAt = row.CreatedAt
	}
	return row, nil
}

func (m electionModel) toEntity() (entities.Election, error) {
	var docs []positionDocument
	if len(m.Positions) > 0 {
		if err := json.Unmarshal(m.Positions, &docs); err != nil {
			return entities.Election{}, err
		}
	}
	positions := make([]entities.Position, 0, len(docs))
	for _, doc := range docs {
		positions = append(positions, entities.Position{
			PositionID: doc.PositionID,
			Name:       doc.Name,
			SeatCount:  doc.SeatCount,
		})
	}
	return entities.Election{
		ElectionID: m.ID,
		Name:       m.Name,
		Status:     entities.ElectionStatus(m.Status),
		Positions:  positions,
		OpensAt:    normalizeOptionalTime(m.OpensAt),
		ClosesAt:   normalizeOptionalTime(m.ClosesAt),
		CreatedAt:  m.CreatedAt.UTC(),
		UpdatedAt:  m.UpdatedAt.UTC(),
	}, nil
}

type registrationModel struct {
	ElectionID   string    `gorm:"column:election_id;primaryKey"`
	UserID       string    `gorm:"column:user_id;primaryKey"`
	DisplayName  string    `gorm:"column:display_name"`
	FirstChoice  string    `gorm:"column:first_choice"`
	SecondChoice *string   `gorm:"column:second_choice"`
	CreatedAt    time.Time `gorm:"column:created_at"`
}

func (registrationModel) TableName() string {
	return "election_registrations"
}

func registrationModelFromEntity(registration entities.Registration) registrationModel {
	row := registrationModel{
		ElectionID:  strings.TrimSpace(registration.ElectionID),
		UserID:      strings.TrimSpace(registration.UserID),
		DisplayName: strings.TrimSpace(registration.DisplayName),
		FirstChoice: strings.TrimSpace(registration.FirstChoicePositionID),
		CreatedAt:   registration.CreatedAt.UTC(),
	}
	if strings.TrimSpace(registration.SecondChoicePositionID) != "" {
		secondChoice := strings.TrimSpace(registration.SecondChoicePositionID)
		row.SecondChoice = &secondChoice
	}
	if row.CreatedAt.IsZero() {
		row.CreatedAt = time.Now().UTC()
	}
	return row
}

func (m registrationModel) toEntity() entities.Registration {
	secondChoice := ""
	if m.SecondChoice != nil {
		secondChoice = strings.TrimSpace(*m.SecondChoice)
	}
	return entities.Registration{
		ElectionID:             m.ElectionID,
		UserID:                 m.UserID,
		DisplayName:            m.DisplayName,
		FirstChoicePositionID:  m.FirstChoice,
		SecondChoicePositionID: secondChoice,
		CreatedAt:              m.CreatedAt.UTC(),
	}
}

type ballotModel struct {
	ID         string    `gorm:"column:id;primaryKey"`
	ElectionID string    `gorm:"column:election_id"`
	PositionID string    `gorm:"column:position_id"`
	VoterID    string    `gorm:"column:voter_id"`
	Selections []byte    `gorm:"column:selections"`
	CastAt     time.Time `gorm:"column:cast_at"`
	UpdatedAt  time.Time `gorm:"column:updated_at"`
}

func (ballotModel) TableName() string {
	return "election_ballots"
}

func ballotModelFromEntity(entry entities.BallotEntry) (ballotModel, error) {
	selections, err := json.Marshal(entry.Selections)
	if err != nil {
		return ballotModel{}, err
	}
	row := ballotModel{
		ID:         strings.TrimSpace(entry.BallotID),
		ElectionID: strings.TrimSpace(entry.ElectionID),
		PositionID: strings.TrimSpace(entry.PositionID),
		VoterID:    strings.TrimSpace(entry.VoterID),
		Selections: selections,
		CastAt:     entry.CastAt.UTC(),
		UpdatedAt:  entry.UpdatedAt.UTC(),
	}
	if row.CastAt.IsZero() {
		row.CastAt = time.Now().UTC()
	}
	if row.UpdatedAt.IsZero() {
		row.UpdatedAt = row.CastAt
	}
	return row, nil
}

func (m ballotModel) toEntity() (entities.BallotEntry, error) {
	var selections []string
	if len(m.Selections) > 0 {
		if err := json.Unmarshal(m.Selections, &selections); err != nil {
			return entities.BallotEntry{}, err
		}
	}
	return entities.BallotEntry{
		BallotID:   m.ID,
		ElectionID: m.ElectionID,
		PositionID: m.PositionID,
		VoterID:    m.VoterID,
		Selections: selections,
		CastAt:     m.CastAt.UTC(),
		UpdatedAt:  m.UpdatedAt.UTC(),
	}, nil
}

type reportModel struct {
	ElectionID  string    `gorm:"column:election_id;primaryKey"`
	Payload     []byte    `gorm:"column:payload"`
	GeneratedAt time.Time `gorm:"column:generated_at"`
}

func (reportModel) TableName() string {
	return "election_reports"
}

func reportModelFromEntity(report entities.Report) (reportModel, error) {
	payload, err := json.Marshal(report)
	if err != nil {
		return reportModel{}, err
	}
	return reportModel{
		ElectionID:  strings.TrimSpace(report.ElectionID),
		Payload:     payload,
		GeneratedAt: report.GeneratedAt.UTC(),
	}, nil
}

type outboxModel struct {
	OutboxID     string     `gorm:"column:outbox_id;primaryKey"`
	EventType    string     `gorm:"column:event_type"`
	PartitionKey string     `gorm:"column:partition_key"`
	Payload      []byte     `gorm:"column:payload"`
	Status       string     `gorm:"column:status"`
	CreatedAt    time.Time  `gorm:"column:created_at"`
	PublishedAt  *time.Time `gorm:"column:published_at"`
}

func (outboxModel) TableName() string {
	return "results_outbox"
}

func normalizeOptionalTime(value *time.Time) *time.Time {
	if value == nil {
		return nil
	}
	timestamp := value.UTC()
	return &timestamp
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

var _ ports.ElectionRepository = (*Repository)(nil)
var _ ports.RegistrationRepository = (*Repository)(nil)
var _ ports.BallotRepository = (*Repository)(nil)
var _ ports.ReportRepository = (*Repository)(nil)
var _ ports.OutboxWriter = (*Repository)(nil)
var _ ports.OutboxRepository = (*Repository)(nil)
