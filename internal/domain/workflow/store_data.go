package workflow

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Store is the PostgreSQL-backed StoreAPI. A single UPDATE guarded by the
// expected status implements the compare-and-set; row updates are atomic so
// concurrent readers see either the old or the new record, never a mix.
type Store struct {
	DB *pgxpool.Pool
}

func NewStore(db *pgxpool.Pool) *Store {
	return &Store{DB: db}
}

const requestColumns = `
    id, employee_id, category, start_date, end_date, days, reason, status,
    COALESCE(chief_approver::text, ''), COALESCE(rejection_reason, ''),
    COALESCE(decided_by::text, ''), decided_at, created_at
`

func scanRequest(row pgx.Row) (LeaveRequest, error) {
	var req LeaveRequest
	err := row.Scan(
		&req.ID, &req.EmployeeID, &req.Category, &req.StartDate, &req.EndDate,
		&req.Days, &req.Reason, &req.Status, &req.ChiefApprover,
		&req.RejectionReason, &req.DecidedBy, &req.DecidedAt, &req.CreatedAt,
	)
	return req, err
}

func (s *Store) InsertRequest(ctx context.Context, req LeaveRequest) error {
	_, err := s.DB.Exec(ctx, `
    INSERT INTO leave_requests (id, employee_id, category, start_date, end_date, days, reason, status, created_at)
    VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
  `, req.ID, req.EmployeeID, req.Category, req.StartDate, req.EndDate, req.Days, req.Reason, req.Status, req.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert leave request: %w", err)
	}
	return nil
}

func (s *Store) RequestByID(ctx context.Context, id string) (LeaveRequest, error) {
	req, err := scanRequest(s.DB.QueryRow(ctx, `
    SELECT `+requestColumns+`
    FROM leave_requests
    WHERE id = $1
  `, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return LeaveRequest{}, ErrRequestNotFound
	}
	if err != nil {
		return LeaveRequest{}, fmt.Errorf("load leave request: %w", err)
	}
	return req, nil
}

func (s *Store) RequestsForEmployee(ctx context.Context, employeeID string) ([]LeaveRequest, error) {
	return s.ListRequests(ctx, Filter{EmployeeID: employeeID})
}

func (s *Store) ListRequests(ctx context.Context, filter Filter) ([]LeaveRequest, error) {
	query := `
    SELECT ` + requestColumns + `
    FROM leave_requests
    WHERE 1=1
  `
	args := []any{}
	if filter.EmployeeID != "" {
		args = append(args, filter.EmployeeID)
		query += fmt.Sprintf(" AND employee_id = $%d", len(args))
	}
	if filter.Department != "" {
		args = append(args, filter.Department)
		query += fmt.Sprintf(" AND employee_id IN (SELECT id FROM employees WHERE department = $%d)", len(args))
	}
	if filter.Status != "" {
		args = append(args, filter.Status)
		query += fmt.Sprintf(" AND status = $%d", len(args))
	}
	query += " ORDER BY created_at DESC"

	rows, err := s.DB.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []LeaveRequest
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, req)
	}
	return out, rows.Err()
}

func (s *Store) UpdateStatusIf(ctx context.Context, id string, expected Status, update StatusUpdate) (LeaveRequest, bool, error) {
	req, err := scanRequest(s.DB.QueryRow(ctx, `
    UPDATE leave_requests
    SET status = $1,
        decided_by = $2,
        decided_at = $3,
        chief_approver = COALESCE(NULLIF($4, '')::uuid, chief_approver),
        rejection_reason = COALESCE(NULLIF($5, ''), rejection_reason)
    WHERE id = $6 AND status = $7
    RETURNING `+requestColumns+`
  `, update.Status, update.DecidedBy, update.DecidedAt, update.ChiefApprover, update.RejectionReason, id, expected))
	if errors.Is(err, pgx.ErrNoRows) {
		// Compare failed or the id is unknown; re-read to tell the two apart.
		current, readErr := s.RequestByID(ctx, id)
		if readErr != nil {
			return LeaveRequest{}, false, readErr
		}
		return current, false, nil
	}
	if err != nil {
		return LeaveRequest{}, false, fmt.Errorf("update leave request status: %w", err)
	}
	return req, true, nil
}
