package models

import (
	"time"

	"github.com/google/uuid"
)

// Task priorities used by generated work items.
const (
	PriorityLow    = "low"
	PriorityMedium = "medium"
	PriorityHigh   = "high"
	PriorityUrgent = "urgent"
)

// AutomationConfig controls whether and how alerts spawn follow-up tasks
// for one project. Mutable by project administrators.
type AutomationConfig struct {
	ProjectID            int64   `json:"project_id"`
	Enabled              bool    `json:"enabled"`
	WarningThresholdPct  float64 `json:"warning_threshold_pct"`
	CriticalThresholdPct float64 `json:"critical_threshold_pct"`
	DefaultAssigneeID    *int64  `json:"default_assignee_id,omitempty"`
	TaskPriority         string  `json:"task_priority"`
	TaskDueOffsetDays    int     `json:"task_due_offset_days"`
}

// DefaultAutomationConfig is the system-wide fallback used when a project
// has no stored config.
func DefaultAutomationConfig(projectID int64) AutomationConfig {
	return AutomationConfig{
		ProjectID:            projectID,
		Enabled:              true,
		WarningThresholdPct:  5,
		CriticalThresholdPct: 10,
		TaskPriority:         PriorityMedium,
		TaskDueOffsetDays:    3,
	}
}

// GeneratedTask is a work item created automatically from an Alert. At
// most one exists per alert; the store enforces uniqueness on AlertID.
type GeneratedTask struct {
	ID          uuid.UUID `json:"id"`
	AlertID     uuid.UUID `json:"alert_id"`
	ProjectID   int64     `json:"project_id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Priority    string    `json:"priority"`
	AssigneeID  *int64    `json:"assignee_id,omitempty"`
	DueDate     time.Time `json:"due_date"`
	CreatedAt   time.Time `json:"created_at"`
}
