package audit

import (
	"context"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type Kind string

const (
	KindViolation    Kind = "violation"
	KindDuplicate    Kind = "violation_duplicate"
	KindForcedSubmit Kind = "forced_submit"
	KindBlocked      Kind = "blocked"
	KindSubmitted    Kind = "submitted"
	KindExpired      Kind = "expired"
)

// Event is one append-only integrity record for an attempt
type Event struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	AttemptID string    `gorm:"index;size:64;not null" json:"attemptId"`
	Kind      Kind      `gorm:"size:32;not null" json:"kind"`
	Reason    string    `json:"reason,omitempty"`
	Sequence  int       `json:"sequence"`
	Count     int       `json:"count"`
	Action    string    `gorm:"size:32" json:"action,omitempty"`
	CreatedAt time.Time `gorm:"index" json:"createdAt"`
}

// Log appends and lists audit events
type Log interface {
	Append(ctx context.Context, e *Event) error
	ListByAttempt(ctx context.Context, attemptID string) ([]Event, error)
}

type gormLog struct {
	db *gorm.DB
}

// Open opens (or creates) the audit database at path and migrates the schema.
// ":memory:" gives a private in-memory database.
func Open(path string) (Log, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, err
	}
	if path == ":memory:" {
		// every pooled connection would otherwise get its own empty database
		sqlDB, err := db.DB()
		if err != nil {
			return nil, err
		}
		sqlDB.SetMaxOpenConns(1)
	}
	return New(db)
}

// New wraps an open gorm handle
func New(db *gorm.DB) (Log, error) {
	if err := db.AutoMigrate(&Event{}); err != nil {
		return nil, err
	}
	return &gormLog{db: db}, nil
}

func (l *gormLog) Append(ctx context.Context, e *Event) error {
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}
	return l.db.WithContext(ctx).Create(e).Error
}

func (l *gormLog) ListByAttempt(ctx context.Context, attemptID string) ([]Event, error) {
	var events []Event
	err := l.db.WithContext(ctx).
		Where("attempt_id = ?", attemptID).
		Order("id asc").
		Find(&events).Error
	return events, err
}
