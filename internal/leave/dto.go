package leave

import (
	"fmt"
	"time"

	"github.com/leavekeeper/leavekeeper/internal/shared"
)

// CreateLeaveRequest is the intake payload. Instants are textual: RFC3339 with
// an explicit offset, or a wall-clock form interpreted in the deployment's
// reference timezone.
type CreateLeaveRequest struct {
	AccountID string `json:"account_id" validate:"required,max=64"`
	Reason    string `json:"reason" validate:"max=500"`
	StartTime string `json:"start_time" validate:"required"`
	EndTime   string `json:"end_time" validate:"required"`
}

// wall-clock layouts accepted when no offset is given.
var wallClockLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
}

// ParseInstant normalizes a textual instant to UTC. RFC3339 input carries its
// own offset; bare wall-clock input is interpreted in loc.
func ParseInstant(value string, loc *time.Location) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t.UTC(), nil
	}
	if loc == nil {
		loc = time.UTC
	}
	for _, layout := range wallClockLayouts {
		if t, err := time.ParseInLocation(layout, value, loc); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("leave: unparseable instant %q: %w", value, shared.ErrValidation)
}

// Input converts the request to a creation input using the reference zone.
func (r CreateLeaveRequest) Input(loc *time.Location) (CreatePeriodInput, error) {
	start, err := ParseInstant(r.StartTime, loc)
	if err != nil {
		return CreatePeriodInput{}, err
	}
	end, err := ParseInstant(r.EndTime, loc)
	if err != nil {
		return CreatePeriodInput{}, err
	}
	return CreatePeriodInput{
		AccountID: r.AccountID,
		Reason:    r.Reason,
		StartTime: start,
		EndTime:   end,
	}, nil
}

// ListResponse wraps a page of periods.
type ListResponse struct {
	Periods []Period `json:"periods"`
	Total   int      `json:"total"`
	Limit   int      `json:"limit"`
	Offset  int      `json:"offset"`
}
