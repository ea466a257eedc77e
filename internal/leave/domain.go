package leave

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/leavekeeper/leavekeeper/internal/shared"
)

// Status enumerates the period lifecycle values. The sequence is strictly
// pending -> active -> completed; no reverse step, no skipping.
type Status string

const (
	// StatusPending indicates the period is scheduled but not yet started.
	StatusPending Status = "pending"
	// StatusActive indicates the marker is applied and the period is running.
	StatusActive Status = "active"
	// StatusCompleted indicates the period has ended. Terminal.
	StatusCompleted Status = "completed"
)

// Valid reports whether s is a known status value.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusActive, StatusCompleted:
		return true
	}
	return false
}

// Period is the sole persisted entity: one scheduled leave window for one
// directory-service account. All fields except Status are immutable after
// creation.
type Period struct {
	ID        uuid.UUID `json:"id"`
	AccountID string    `json:"account_id"`
	Reason    string    `json:"reason"`
	StartTime time.Time `json:"start_time"`
	EndTime   time.Time `json:"end_time"`
	Status    Status    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ErrPeriodNotFound indicates the requested period is missing.
var ErrPeriodNotFound = fmt.Errorf("leave: period: %w", shared.ErrNotFound)

// CreatePeriodInput captures period creation input. Instants are absolute and
// already normalized to UTC by the intake boundary.
type CreatePeriodInput struct {
	AccountID string
	Reason    string
	StartTime time.Time
	EndTime   time.Time
}

// Validate ensures correctness. A non-positive duration never reaches the store.
func (in CreatePeriodInput) Validate() error {
	if strings.TrimSpace(in.AccountID) == "" {
		return fmt.Errorf("leave: account required: %w", shared.ErrValidation)
	}
	if in.StartTime.IsZero() || in.EndTime.IsZero() {
		return fmt.Errorf("leave: start and end required: %w", shared.ErrValidation)
	}
	if !in.EndTime.After(in.StartTime) {
		return fmt.Errorf("leave: end must be after start: %w", shared.ErrValidation)
	}
	return nil
}

// ListRequest filters the period listing.
type ListRequest struct {
	AccountID string
	Status    *Status
	Limit     int
	Offset    int
}
