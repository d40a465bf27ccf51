package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"alerts-service/internal/models"
)

// ProjectMemberIDs returns the user ids of everyone on the project team.
func (d *DB) ProjectMemberIDs(ctx context.Context, projectID int64) ([]int64, error) {
	rows, err := d.Pool.Query(ctx,
		`SELECT user_id FROM project_members WHERE project_id = $1`, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to list members of project %d: %w", projectID, err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan member id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// ProjectOwner returns the account owner of the project.
func (d *DB) ProjectOwner(ctx context.Context, projectID int64) (*models.User, error) {
	query := `
    SELECT u.id, u.name, u.email, u.role
    FROM users u
    JOIN projects p ON p.owner_id = u.id
    WHERE p.id = $1`

	var u models.User
	err := d.Pool.QueryRow(ctx, query, projectID).Scan(&u.ID, &u.Name, &u.Email, &u.Role)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, fmt.Errorf("owner of project %d: %w", projectID, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get owner of project %d: %w", projectID, err)
	}
	return &u, nil
}

// PendingVarianceSnapshots returns the current planned/executed readings
// for every MQT line of a project; the sweep re-evaluates these in bulk.
func (d *DB) PendingVarianceSnapshots(ctx context.Context, projectID int64) ([]models.VarianceSnapshot, error) {
	query := `
    SELECT project_id, id::text, item_code, planned_qty, executed_qty
    FROM mqt_lines
    WHERE project_id = $1`

	rows, err := d.Pool.Query(ctx, query, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to list MQT lines of project %d: %w", projectID, err)
	}
	defer rows.Close()

	var snaps []models.VarianceSnapshot
	for rows.Next() {
		var s models.VarianceSnapshot
		if err := rows.Scan(&s.ProjectID, &s.LineID, &s.ItemCode, &s.PlannedQty, &s.ExecutedQty); err != nil {
			return nil, fmt.Errorf("failed to scan MQT line: %w", err)
		}
		snaps = append(snaps, s)
	}
	return snaps, nil
}
