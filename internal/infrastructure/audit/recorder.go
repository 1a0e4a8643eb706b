package audit

import (
	"context"
	"encoding/json"
	"time"

	"github.com/finbooks/backend/internal/domain/shared"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// RecordModel is the GORM model for the audit trail
type RecordModel struct {
	ID            uuid.UUID `gorm:"type:uuid;primary_key"`
	TenantID      uuid.UUID `gorm:"type:uuid;not null;index"`
	EventID       uuid.UUID `gorm:"type:uuid;not null;uniqueIndex"`
	EventType     string    `gorm:"type:varchar(100);not null;index"`
	AggregateType string    `gorm:"type:varchar(50);not null"`
	AggregateID   uuid.UUID `gorm:"type:uuid;not null;index"`
	Payload       string    `gorm:"type:jsonb"`
	OccurredAt    time.Time `gorm:"not null"`
	RecordedAt    time.Time `gorm:"not null"`
}

// TableName returns the table name for RecordModel
func (RecordModel) TableName() string {
	return "audit_records"
}

// Recorder subscribes to every domain event and appends it to the audit
// trail. Recording is best-effort: a failed write is logged by the bus and
// never blocks the operation that produced the event.
type Recorder struct {
	db     *gorm.DB
	logger *zap.Logger
}

// NewRecorder creates a new audit recorder
func NewRecorder(db *gorm.DB, logger *zap.Logger) *Recorder {
	return &Recorder{
		db:     db,
		logger: logger.Named("audit"),
	}
}

// Handle persists the event as an audit record
func (r *Recorder) Handle(ctx context.Context, event shared.DomainEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		r.logger.Warn("event payload not serializable",
			zap.String("event_type", event.EventType()),
			zap.Error(err),
		)
		payload = []byte("{}")
	}

	record := RecordModel{
		ID:            uuid.New(),
		TenantID:      event.TenantID(),
		EventID:       event.EventID(),
		EventType:     event.EventType(),
		AggregateType: event.AggregateType(),
		AggregateID:   event.AggregateID(),
		Payload:       string(payload),
		OccurredAt:    event.OccurredAt(),
		RecordedAt:    time.Now(),
	}

	return r.db.WithContext(ctx).Create(&record).Error
}

// EventTypes returns an empty slice so the recorder receives every event
func (r *Recorder) EventTypes() []string {
	return nil
}

// Ensure Recorder implements EventHandler
var _ shared.EventHandler = (*Recorder)(nil)
