package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"alerts-service/internal/models"
)

// CreateGeneratedTask inserts a generated task. The generated_tasks
// table carries a unique constraint on alert_id, so re-processing the
// same alert returns ErrTaskExists instead of creating a duplicate.
func (d *DB) CreateGeneratedTask(ctx context.Context, task *models.GeneratedTask) error {
	query := `
    INSERT INTO generated_tasks (
        id, alert_id, project_id, title, description, priority,
        assignee_id, due_date, created_at
    ) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	_, err := d.Pool.Exec(ctx, query,
		task.ID,
		task.AlertID,
		task.ProjectID,
		task.Title,
		task.Description,
		task.Priority,
		task.AssigneeID,
		task.DueDate,
		task.CreatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return fmt.Errorf("alert %s: %w", task.AlertID, ErrTaskExists)
		}
		return fmt.Errorf("failed to insert generated task: %w", err)
	}
	return nil
}

// TaskForAlert returns the task linked to an alert, or ErrNotFound.
func (d *DB) TaskForAlert(ctx context.Context, alertID uuid.UUID) (*models.GeneratedTask, error) {
	query := `
    SELECT id, alert_id, project_id, title, description, priority,
           assignee_id, due_date, created_at
    FROM generated_tasks
    WHERE alert_id = $1`

	var t models.GeneratedTask
	err := d.Pool.QueryRow(ctx, query, alertID).Scan(
		&t.ID,
		&t.AlertID,
		&t.ProjectID,
		&t.Title,
		&t.Description,
		&t.Priority,
		&t.AssigneeID,
		&t.DueDate,
		&t.CreatedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, fmt.Errorf("task for alert %s: %w", alertID, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get task for alert %s: %w", alertID, err)
	}
	return &t, nil
}
