package directory

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrNotFound = errors.New("employee not found")

// Store is the organization's employee directory. The workflow consumes it
// read-only; employee CRUD is owned elsewhere.
type Store struct {
	DB *pgxpool.Pool
}

func NewStore(db *pgxpool.Pool) *Store {
	return &Store{DB: db}
}

func (s *Store) EmployeeByID(ctx context.Context, id string) (Employee, error) {
	var emp Employee
	err := s.DB.QueryRow(ctx, `
    SELECT id, name, department, role, allotment, created_at
    FROM employees
    WHERE id = $1
  `, id).Scan(&emp.ID, &emp.Name, &emp.Department, &emp.Role, &emp.Allotment, &emp.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Employee{}, ErrNotFound
	}
	if err != nil {
		return Employee{}, fmt.Errorf("load employee: %w", err)
	}
	if emp.Allotment <= 0 {
		emp.Allotment = DefaultAllotment
	}
	return emp, nil
}

func (s *Store) ListEmployees(ctx context.Context, department string) ([]Employee, error) {
	query := `
    SELECT id, name, department, role, allotment, created_at
    FROM employees
  `
	args := []any{}
	if department != "" {
		query += " WHERE department = $1"
		args = append(args, department)
	}
	query += " ORDER BY name"

	rows, err := s.DB.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Employee
	for rows.Next() {
		var emp Employee
		if err := rows.Scan(&emp.ID, &emp.Name, &emp.Department, &emp.Role, &emp.Allotment, &emp.CreatedAt); err != nil {
			return nil, err
		}
		if emp.Allotment <= 0 {
			emp.Allotment = DefaultAllotment
		}
		out = append(out, emp)
	}
	return out, rows.Err()
}

// ChiefIDs returns the employee ids of the department's heads. Used for
// notification fan-out when a request enters the chief stage.
func (s *Store) ChiefIDs(ctx context.Context, department string) ([]string, error) {
	return s.idsByRole(ctx, RoleHead, department)
}

// AdminIDs returns the employee ids of organization-wide admins.
func (s *Store) AdminIDs(ctx context.Context) ([]string, error) {
	return s.idsByRole(ctx, RoleAdmin, "")
}

func (s *Store) idsByRole(ctx context.Context, role, department string) ([]string, error) {
	query := "SELECT id FROM employees WHERE role = $1"
	args := []any{role}
	if department != "" {
		query += " AND department = $2"
		args = append(args, department)
	}

	rows, err := s.DB.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
