package db

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"

	"leaveflow/internal/domain/auth"
	"leaveflow/internal/domain/directory"
	"leaveflow/internal/platform/config"
)

// Seed creates the bootstrap admin account if it does not exist yet. The
// admin gets an employee record so decisions carry a resolvable actor.
func Seed(ctx context.Context, pool *pgxpool.Pool, cfg config.Config) error {
	email := strings.TrimSpace(cfg.SeedAdminEmail)
	if email == "" {
		return nil
	}

	var count int
	if err := pool.QueryRow(ctx, "SELECT COUNT(1) FROM users WHERE email = $1", email).Scan(&count); err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	password := cfg.SeedAdminPassword
	if password == "" {
		if cfg.Environment == "production" {
			return fmt.Errorf("refusing to seed admin with empty password in production")
		}
		password = "admin"
	}
	hash, err := auth.HashPassword(password)
	if err != nil {
		return err
	}

	var employeeID string
	if err := pool.QueryRow(ctx, `
    INSERT INTO employees (name, department, role, allotment)
    VALUES ($1,$2,$3,$4)
    RETURNING id
  `, "Administrator", "management", directory.RoleAdmin, cfg.DefaultAllotment).Scan(&employeeID); err != nil {
		return err
	}

	_, err = pool.Exec(ctx, `
    INSERT INTO users (email, password_hash, role, employee_id)
    VALUES ($1,$2,$3,$4)
  `, email, hash, directory.RoleAdmin, employeeID)
	return err
}
