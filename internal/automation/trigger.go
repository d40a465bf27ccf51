package automation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"alerts-service/internal/db"
	"alerts-service/internal/logging"
	"alerts-service/internal/models"
)

// TaskStore is the persistence the trigger needs. CreateGeneratedTask
// must return db.ErrTaskExists when the alert already produced a task;
// that uniqueness lives in the store so callers cannot double-create.
type TaskStore interface {
	CreateGeneratedTask(ctx context.Context, task *models.GeneratedTask) error
	ProjectMemberIDs(ctx context.Context, projectID int64) ([]int64, error)
	ProjectOwner(ctx context.Context, projectID int64) (*models.User, error)
}

// Pusher is the slice of the dispatcher the trigger uses.
type Pusher interface {
	SendToUser(userID int64, env models.Envelope) int
	SendToUsers(userIDs []int64, env models.Envelope) int
	Broadcast(env models.Envelope) int
}

// OwnerNotifier delivers an out-of-band summary to the account owner,
// who may not be watching a live session.
type OwnerNotifier interface {
	NotifyOwner(ctx context.Context, owner *models.User, title, content string) error
}

// Trigger turns qualifying alerts into work items and fans the news out
// through every configured channel.
type Trigger struct {
	store    TaskStore
	pusher   Pusher
	notifier OwnerNotifier
	logger   *logging.Logger
}

func NewTrigger(store TaskStore, pusher Pusher, notifier OwnerNotifier, logger *logging.Logger) *Trigger {
	return &Trigger{store: store, pusher: pusher, notifier: notifier, logger: logger}
}

// taskPriority derives the work-item priority from alert severity,
// falling back to the config default when the severity is unknown.
func taskPriority(sev models.Severity, cfg models.AutomationConfig) string {
	switch sev {
	case models.SeverityCritical:
		return models.PriorityUrgent
	case models.SeverityHigh:
		return models.PriorityHigh
	case models.SeverityMedium:
		return models.PriorityMedium
	case models.SeverityLow:
		return models.PriorityLow
	default:
		return cfg.TaskPriority
	}
}

// buildTask deterministically encodes the originating alert into a work
// item: whoever picks it up can investigate without re-reading the alert.
func buildTask(alert models.Alert, cfg models.AutomationConfig) *models.GeneratedTask {
	var title, desc string
	switch alert.Domain {
	case models.DomainBudget:
		title = fmt.Sprintf("Budget overrun review: %s at %.1f%%", alert.SubjectID, alert.CurrentPct)
		desc = fmt.Sprintf("Budget %s reached %.1f%% utilization (spent %.2f of %.2f). Tier: %s.",
			alert.SubjectID, alert.CurrentPct, alert.SpentAmount, alert.BudgetAmount, alert.Tier)
	default:
		title = fmt.Sprintf("Quantity discrepancy review: %s", alert.ItemCode)
		desc = fmt.Sprintf("Item %s executed %.2f against planned %.2f (variance %.2f, %.1f%%). Tier: %s.",
			alert.ItemCode, alert.ExecutedQty, alert.PlannedQty, alert.Variance(), alert.CurrentPct, alert.Tier)
	}
	return &models.GeneratedTask{
		ID:          uuid.New(),
		AlertID:     alert.ID,
		ProjectID:   alert.ProjectID,
		Title:       title,
		Description: desc,
		Priority:    taskPriority(alert.Severity, cfg),
		AssigneeID:  cfg.DefaultAssigneeID,
		DueDate:     time.Now().UTC().AddDate(0, 0, cfg.TaskDueOffsetDays),
		CreatedAt:   time.Now().UTC(),
	}
}

// ProcessAlert creates at most one task for the alert and notifies the
// assignee, the project team, and the account owner. Each channel is
// best-effort: a failure in one never blocks the others. Returns nil
// when automation is disabled or the alert already has a task.
func (t *Trigger) ProcessAlert(ctx context.Context, alert models.Alert, cfg models.AutomationConfig) (*models.GeneratedTask, error) {
	if !cfg.Enabled {
		t.logger.Debugf("Automation disabled for project %d, skipping alert %s", alert.ProjectID, alert.ID)
		return nil, nil
	}

	task := buildTask(alert, cfg)
	if err := t.store.CreateGeneratedTask(ctx, task); err != nil {
		if errors.Is(err, db.ErrTaskExists) {
			t.logger.Infof("Alert %s already has a task, skipping", alert.ID)
			return nil, nil
		}
		return nil, fmt.Errorf("failed to create task for alert %s: %w", alert.ID, err)
	}
	t.logger.Infof("Created task %s for alert %s (priority %s)", task.ID, alert.ID, task.Priority)

	t.notifyAssignee(task, alert)
	t.notifyTeam(ctx, alert)
	t.notifyOwner(ctx, alert.ProjectID,
		fmt.Sprintf("Alert on project %d: %s", alert.ProjectID, task.Title),
		task.Description)

	return task, nil
}

// ProcessBatch handles many alerts in one pass: per-task pushes are
// replaced by one consolidated announcement, the owner gets a single
// summary covering only the top-severity subset, and processing-status
// events are broadcast around the run.
func (t *Trigger) ProcessBatch(ctx context.Context, projectID int64, alerts []models.Alert, cfg models.AutomationConfig) ([]models.GeneratedTask, error) {
	if !cfg.Enabled {
		t.logger.Debugf("Automation disabled for project %d, skipping batch of %d", projectID, len(alerts))
		return nil, nil
	}

	t.pusher.Broadcast(models.NewEnvelope(models.ProcessingStatusPayload{
		ProjectID: projectID,
		Status:    models.ProcessingStarted,
		Details:   fmt.Sprintf("%d alerts queued", len(alerts)),
	}))

	var created []models.GeneratedTask
	var summaries []models.BulkTaskSummary
	var critical []models.Alert
	failures := 0
	for i, alert := range alerts {
		task, err := t.createOnly(ctx, alert, cfg)
		if err != nil {
			// one bad record must not abort the rest of the batch
			t.logger.Errorf("Batch item %d failed: %v", i, err)
			failures++
			continue
		}
		if task != nil {
			created = append(created, *task)
			summaries = append(summaries, models.BulkTaskSummary{
				TaskID:      task.ID.String(),
				ItemCode:    alert.ItemCode,
				Severity:    string(alert.Severity),
				VariancePct: alert.CurrentPct,
			})
			if alert.Severity == models.SeverityCritical {
				critical = append(critical, alert)
			}
		}
		t.pusher.Broadcast(models.NewEnvelope(models.ProcessingStatusPayload{
			ProjectID: projectID,
			Status:    models.ProcessingInProgress,
			Details:   fmt.Sprintf("%d/%d processed", i+1, len(alerts)),
		}))
	}

	if len(created) > 0 && cfg.DefaultAssigneeID != nil {
		t.pusher.SendToUser(*cfg.DefaultAssigneeID, models.NewEnvelope(models.BulkTasksGeneratedPayload{
			Count: len(created),
			Tasks: summaries,
		}))
	}

	if len(critical) > 0 {
		t.notifyOwner(ctx, projectID,
			fmt.Sprintf("%d critical alerts on project %d", len(critical), projectID),
			criticalSummary(critical))
	}

	status := models.ProcessingCompleted
	if failures > 0 && len(created) == 0 {
		status = models.ProcessingFailed
	}
	t.pusher.Broadcast(models.NewEnvelope(models.ProcessingStatusPayload{
		ProjectID: projectID,
		Status:    status,
		Details:   fmt.Sprintf("%d tasks created, %d failures", len(created), failures),
	}))

	return created, nil
}

// createOnly persists a task without the per-task fan-out; the batch
// path announces in bulk instead.
func (t *Trigger) createOnly(ctx context.Context, alert models.Alert, cfg models.AutomationConfig) (*models.GeneratedTask, error) {
	task := buildTask(alert, cfg)
	if err := t.store.CreateGeneratedTask(ctx, task); err != nil {
		if errors.Is(err, db.ErrTaskExists) {
			t.logger.Infof("Alert %s already has a task, skipping", alert.ID)
			return nil, nil
		}
		return nil, fmt.Errorf("failed to create task for alert %s: %w", alert.ID, err)
	}
	return task, nil
}

func (t *Trigger) notifyAssignee(task *models.GeneratedTask, alert models.Alert) {
	if task.AssigneeID == nil {
		return
	}
	t.pusher.SendToUser(*task.AssigneeID, models.NewEnvelope(models.TaskGeneratedPayload{
		TaskID:      task.ID.String(),
		Title:       task.Title,
		Severity:    string(alert.Severity),
		ItemCode:    alert.ItemCode,
		Variance:    alert.Variance(),
		VariancePct: alert.CurrentPct,
		DueDate:     task.DueDate.Format(time.RFC3339),
	}))
}

func (t *Trigger) notifyTeam(ctx context.Context, alert models.Alert) {
	members, err := t.store.ProjectMemberIDs(ctx, alert.ProjectID)
	if err != nil {
		// can't list the team: skip this channel, the others still fire
		t.logger.Errorf("Failed to list members of project %d: %v", alert.ProjectID, err)
		return
	}
	t.pusher.SendToUsers(members, models.NewEnvelope(models.DiscrepancyAlertPayload{
		ItemCode:    alert.ItemCode,
		Severity:    string(alert.Severity),
		Variance:    alert.Variance(),
		VariancePct: alert.CurrentPct,
		ProjectID:   alert.ProjectID,
	}))
}

func (t *Trigger) notifyOwner(ctx context.Context, projectID int64, title, content string) {
	owner, err := t.store.ProjectOwner(ctx, projectID)
	if err != nil {
		t.logger.Errorf("Failed to look up owner of project %d: %v", projectID, err)
		return
	}
	if err := t.notifier.NotifyOwner(ctx, owner, title, content); err != nil {
		t.logger.Errorf("Owner notification for project %d failed: %v", projectID, err)
	}
}

// criticalSummary enumerates the item codes of the top-severity subset
// for the owner summary.
func criticalSummary(alerts []models.Alert) string {
	out := fmt.Sprintf("%d items need immediate attention:\n", len(alerts))
	for _, a := range alerts {
		subject := a.ItemCode
		if subject == "" {
			subject = a.SubjectID
		}
		out += fmt.Sprintf("- %s: %.1f%% (%s)\n", subject, a.CurrentPct, a.Tier)
	}
	return out
}
