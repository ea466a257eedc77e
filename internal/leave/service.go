package leave

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
)

// Service fronts the intake boundary: validated creation plus read access.
// Status mutation never happens here; that is the sweeps' job alone.
type Service struct {
	repo   Repository
	logger *slog.Logger
}

// NewService constructs the intake service.
func NewService(repo Repository, logger *slog.Logger) *Service {
	return &Service{repo: repo, logger: logger}
}

// Schedule persists a new pending period after validation.
func (s *Service) Schedule(ctx context.Context, in CreatePeriodInput) (Period, error) {
	if err := in.Validate(); err != nil {
		return Period{}, err
	}
	p, err := s.repo.Insert(ctx, in)
	if err != nil {
		return Period{}, err
	}
	if s.logger != nil {
		s.logger.Info("leave period scheduled",
			slog.String("period_id", p.ID.String()),
			slog.String("account_id", p.AccountID),
			slog.Time("start_time", p.StartTime),
			slog.Time("end_time", p.EndTime))
	}
	return p, nil
}

// Get fetches one period by id.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (Period, error) {
	return s.repo.Get(ctx, id)
}

// List returns periods matching the filter plus the total match count.
func (s *Service) List(ctx context.Context, req ListRequest) ([]Period, int, error) {
	return s.repo.List(ctx, req)
}
