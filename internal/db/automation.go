package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"alerts-service/internal/models"
)

// GetAutomationConfig returns the project's automation settings, falling
// back to the system-wide default when the project has none stored.
func (d *DB) GetAutomationConfig(ctx context.Context, projectID int64) (models.AutomationConfig, error) {
	query := `
    SELECT project_id, enabled, warning_threshold_pct, critical_threshold_pct,
           default_assignee_id, task_priority, task_due_offset_days
    FROM automation_configs
    WHERE project_id = $1`

	var cfg models.AutomationConfig
	err := d.Pool.QueryRow(ctx, query, projectID).Scan(
		&cfg.ProjectID,
		&cfg.Enabled,
		&cfg.WarningThresholdPct,
		&cfg.CriticalThresholdPct,
		&cfg.DefaultAssigneeID,
		&cfg.TaskPriority,
		&cfg.TaskDueOffsetDays,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return models.DefaultAutomationConfig(projectID), nil
		}
		return models.AutomationConfig{}, fmt.Errorf("failed to get automation config for project %d: %w", projectID, err)
	}
	return cfg, nil
}

// UpsertAutomationConfig stores the project's automation settings.
func (d *DB) UpsertAutomationConfig(ctx context.Context, cfg models.AutomationConfig) error {
	query := `
    INSERT INTO automation_configs (
        project_id, enabled, warning_threshold_pct, critical_threshold_pct,
        default_assignee_id, task_priority, task_due_offset_days
    ) VALUES ($1, $2, $3, $4, $5, $6, $7)
    ON CONFLICT (project_id) DO UPDATE SET
        enabled = EXCLUDED.enabled,
        warning_threshold_pct = EXCLUDED.warning_threshold_pct,
        critical_threshold_pct = EXCLUDED.critical_threshold_pct,
        default_assignee_id = EXCLUDED.default_assignee_id,
        task_priority = EXCLUDED.task_priority,
        task_due_offset_days = EXCLUDED.task_due_offset_days`

	_, err := d.Pool.Exec(ctx, query,
		cfg.ProjectID,
		cfg.Enabled,
		cfg.WarningThresholdPct,
		cfg.CriticalThresholdPct,
		cfg.DefaultAssigneeID,
		cfg.TaskPriority,
		cfg.TaskDueOffsetDays,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert automation config for project %d: %w", cfg.ProjectID, err)
	}
	return nil
}

// ListAutomatedProjectIDs returns every project with automation enabled;
// the periodic sweep re-evaluates exactly these.
func (d *DB) ListAutomatedProjectIDs(ctx context.Context) ([]int64, error) {
	rows, err := d.Pool.Query(ctx,
		`SELECT project_id FROM automation_configs WHERE enabled = true`)
	if err != nil {
		return nil, fmt.Errorf("failed to list automated projects: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan project id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, nil
}
