package db

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"alerts-service/internal/models"
)

// CreateAlert inserts a new alert record.
func (d *DB) CreateAlert(ctx context.Context, alert *models.Alert) error {
	query := `
    INSERT INTO alerts (
        id, project_id, subject_id, domain, tier, severity, current_pct,
        item_code, planned_qty, executed_qty, budget_amount, spent_amount,
        created_at, is_read
    ) VALUES (
        $1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, false
    )`

	_, err := d.Pool.Exec(ctx, query,
		alert.ID,
		alert.ProjectID,
		alert.SubjectID,
		alert.Domain,
		alert.Tier,
		alert.Severity,
		alert.CurrentPct,
		alert.ItemCode,
		alert.PlannedQty,
		alert.ExecutedQty,
		alert.BudgetAmount,
		alert.SpentAmount,
		alert.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert alert: %w", err)
	}
	return nil
}

// LatestAlertForTier returns the most recent alert for (subject, tier),
// or nil when none has ever been recorded.
func (d *DB) LatestAlertForTier(ctx context.Context, subjectID string, tier models.Tier) (*models.Alert, error) {
	query := `
    SELECT id, project_id, subject_id, domain, tier, severity, current_pct,
           item_code, planned_qty, executed_qty, budget_amount, spent_amount,
           created_at, is_read, read_by, read_at
    FROM alerts
    WHERE subject_id = $1 AND tier = $2
    ORDER BY created_at DESC
    LIMIT 1`

	alert, err := scanAlert(d.Pool.QueryRow(ctx, query, subjectID, tier))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get latest alert for %s/%s: %w", subjectID, tier, err)
	}
	return alert, nil
}

// ListAlertsByProject fetches alerts for a project with pagination,
// newest first. Returns the page and the total count.
func (d *DB) ListAlertsByProject(ctx context.Context, projectID int64, limit, offset int) ([]models.Alert, int, error) {
	var total int
	if err := d.Pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM alerts WHERE project_id = $1`, projectID).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count alerts: %w", err)
	}

	query := `
    SELECT id, project_id, subject_id, domain, tier, severity, current_pct,
           item_code, planned_qty, executed_qty, budget_amount, spent_amount,
           created_at, is_read, read_by, read_at
    FROM alerts
    WHERE project_id = $1
    ORDER BY created_at DESC
    LIMIT $2 OFFSET $3`

	rows, err := d.Pool.Query(ctx, query, projectID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list alerts: %w", err)
	}
	defer rows.Close()

	var list []models.Alert
	for rows.Next() {
		alert, err := scanAlert(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan alert: %w", err)
		}
		list = append(list, *alert)
	}
	return list, total, nil
}

// MarkAlertRead records who read the alert and when. Alerts are never
// deleted; this is the only mutation they support.
func (d *DB) MarkAlertRead(ctx context.Context, alertID uuid.UUID, readerID int64) error {
	result, err := d.Pool.Exec(ctx, `
        UPDATE alerts
        SET is_read = true, read_by = $1, read_at = $2
        WHERE id = $3`,
		readerID, time.Now().UTC(), alertID)
	if err != nil {
		return fmt.Errorf("failed to mark alert %s read: %w", alertID, err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("alert %s: %w", alertID, ErrNotFound)
	}
	return nil
}

func scanAlert(row pgx.Row) (*models.Alert, error) {
	var a models.Alert
	err := row.Scan(
		&a.ID,
		&a.ProjectID,
		&a.SubjectID,
		&a.Domain,
		&a.Tier,
		&a.Severity,
		&a.CurrentPct,
		&a.ItemCode,
		&a.PlannedQty,
		&a.ExecutedQty,
		&a.BudgetAmount,
		&a.SpentAmount,
		&a.CreatedAt,
		&a.IsRead,
		&a.ReadBy,
		&a.ReadAt,
	)
	if err != nil {
		return nil, err
	}
	return &a, nil
}
