package leave

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/leavekeeper/leavekeeper/internal/shared"
)

// Repository is the store gateway consumed by the intake service and the
// sweeps. No business logic lives here.
type Repository interface {
	Insert(ctx context.Context, in CreatePeriodInput) (Period, error)
	Get(ctx context.Context, id uuid.UUID) (Period, error)
	List(ctx context.Context, req ListRequest) ([]Period, int, error)
	QueryDue(ctx context.Context, q DueQuery) ([]Period, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, expected, next Status) error
}

// DueQuery selects records whose boundary instant is strictly before a
// reference instant. Limit bounds the batch handled per sweep.
type DueQuery struct {
	Status   Status
	Boundary DueKind
	Before   time.Time
	Limit    int
}

type repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a Postgres-backed period repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

const periodColumns = "id, account_id, reason, start_time, end_time, status, created_at, updated_at"

func scanPeriod(row pgx.Row) (Period, error) {
	var p Period
	err := row.Scan(&p.ID, &p.AccountID, &p.Reason, &p.StartTime, &p.EndTime, &p.Status, &p.CreatedAt, &p.UpdatedAt)
	return p, err
}

func (r *repository) Insert(ctx context.Context, in CreatePeriodInput) (Period, error) {
	if err := in.Validate(); err != nil {
		return Period{}, err
	}
	const query = `INSERT INTO leave_periods (id, account_id, reason, start_time, end_time, status)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING ` + periodColumns
	p, err := scanPeriod(r.pool.QueryRow(ctx, query,
		uuid.New(), in.AccountID, in.Reason, in.StartTime.UTC(), in.EndTime.UTC(), StatusPending))
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23514" {
			return Period{}, fmt.Errorf("leave: insert rejected by constraint %s: %w", pgErr.ConstraintName, shared.ErrValidation)
		}
		return Period{}, fmt.Errorf("leave: insert period: %w", err)
	}
	return p, nil
}

func (r *repository) Get(ctx context.Context, id uuid.UUID) (Period, error) {
	const query = `SELECT ` + periodColumns + ` FROM leave_periods WHERE id = $1`
	p, err := scanPeriod(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Period{}, ErrPeriodNotFound
		}
		return Period{}, fmt.Errorf("leave: get period: %w", err)
	}
	return p, nil
}

func (r *repository) List(ctx context.Context, req ListRequest) ([]Period, int, error) {
	conditions := []string{"TRUE"}
	args := []any{}
	argPos := 1

	if req.AccountID != "" {
		conditions = append(conditions, fmt.Sprintf("account_id = $%d", argPos))
		args = append(args, req.AccountID)
		argPos++
	}
	if req.Status != nil {
		conditions = append(conditions, fmt.Sprintf("status = $%d", argPos))
		args = append(args, *req.Status)
		argPos++
	}
	where := strings.Join(conditions, " AND ")

	var total int
	countQuery := "SELECT COUNT(*) FROM leave_periods WHERE " + where
	if err := r.pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("leave: count periods: %w", err)
	}

	limit := req.Limit
	if limit <= 0 {
		limit = 50
	}
	listQuery := fmt.Sprintf("SELECT "+periodColumns+" FROM leave_periods WHERE %s ORDER BY created_at DESC, id LIMIT $%d OFFSET $%d", where, argPos, argPos+1)
	args = append(args, limit, req.Offset)

	rows, err := r.pool.Query(ctx, listQuery, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("leave: list periods: %w", err)
	}
	defer rows.Close()

	var periods []Period
	for rows.Next() {
		p, err := scanPeriod(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("leave: scan period: %w", err)
		}
		periods = append(periods, p)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("leave: list periods: %w", err)
	}
	return periods, total, nil
}

func (r *repository) QueryDue(ctx context.Context, q DueQuery) ([]Period, error) {
	column := "start_time"
	if q.Boundary == DueEnd {
		column = "end_time"
	}
	limit := q.Limit
	if limit <= 0 {
		limit = 200
	}
	// Deterministic per poll; the partial indexes on (start_time|end_time)
	// keep this a range scan rather than a table walk.
	query := fmt.Sprintf(`SELECT `+periodColumns+` FROM leave_periods
		WHERE status = $1 AND %s < $2
		ORDER BY created_at, id
		LIMIT $3`, column)

	rows, err := r.pool.Query(ctx, query, q.Status, q.Before.UTC(), limit)
	if err != nil {
		return nil, fmt.Errorf("leave: query due: %w", err)
	}
	defer rows.Close()

	var periods []Period
	for rows.Next() {
		p, err := scanPeriod(rows)
		if err != nil {
			return nil, fmt.Errorf("leave: scan due period: %w", err)
		}
		periods = append(periods, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("leave: query due: %w", err)
	}
	return periods, nil
}

func (r *repository) UpdateStatus(ctx context.Context, id uuid.UUID, expected, next Status) error {
	const query = `UPDATE leave_periods SET status = $3, updated_at = now()
		WHERE id = $1 AND status = $2`
	tag, err := r.pool.Exec(ctx, query, id, expected, next)
	if err != nil {
		return fmt.Errorf("leave: update status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		// The in-memory view raced a concurrent writer; reconsider next tick.
		return fmt.Errorf("leave: period %s no longer %s: %w", id, expected, shared.ErrConflict)
	}
	return nil
}
