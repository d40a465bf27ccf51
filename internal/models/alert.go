package models

import (
	"time"

	"github.com/google/uuid"
)

// AlertDomain names the metric family an alert watches.
type AlertDomain string

const (
	DomainBudget   AlertDomain = "budget"
	DomainVariance AlertDomain = "variance"
)

// Tier is a named threshold band a monitored percentage can cross.
type Tier string

// Budget utilization tiers (fixed bounds 80/90/100).
const (
	TierWarning  Tier = "warning"
	TierCritical Tier = "critical"
	TierExceeded Tier = "exceeded"
)

// Quantity-variance tiers. Bounds come from the project's automation
// config; "low" names the below-warning band and is never alerted on.
const (
	TierLow    Tier = "low"
	TierMedium Tier = "medium"
	TierHigh   Tier = "high"
)

// Severity grades a variance for task-priority mapping.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// Alert is the persisted record of a threshold breach. Mutated only by
// MarkRead; never deleted.
type Alert struct {
	ID           uuid.UUID   `json:"id"`
	ProjectID    int64       `json:"project_id"`
	SubjectID    string      `json:"subject_id"`
	Domain       AlertDomain `json:"domain"`
	Tier         Tier        `json:"tier"`
	Severity     Severity    `json:"severity"`
	CurrentPct   float64     `json:"current_percentage"`
	ItemCode     string      `json:"item_code,omitempty"`
	PlannedQty   float64     `json:"planned_qty,omitempty"`
	ExecutedQty  float64     `json:"executed_qty,omitempty"`
	BudgetAmount float64     `json:"budget_amount,omitempty"`
	SpentAmount  float64     `json:"spent_amount,omitempty"`
	CreatedAt    time.Time   `json:"created_at"`
	IsRead       bool        `json:"is_read"`
	ReadBy       *int64      `json:"read_by,omitempty"`
	ReadAt       *time.Time  `json:"read_at,omitempty"`
}

// Variance is the absolute executed-minus-planned delta for a variance
// alert; zero for budget alerts.
func (a Alert) Variance() float64 {
	return a.ExecutedQty - a.PlannedQty
}

// BudgetSnapshot is a freshly computed budget reading handed to the
// threshold engine.
type BudgetSnapshot struct {
	ProjectID    int64   `json:"project_id"`
	BudgetID     string  `json:"budget_id"`
	BudgetAmount float64 `json:"budget_amount"`
	SpentAmount  float64 `json:"spent_amount"`
}

// VarianceSnapshot is a freshly computed quantity reading for one MQT
// line handed to the threshold engine.
type VarianceSnapshot struct {
	ProjectID   int64   `json:"project_id"`
	LineID      string  `json:"line_id"`
	ItemCode    string  `json:"item_code"`
	PlannedQty  float64 `json:"planned_qty"`
	ExecutedQty float64 `json:"executed_qty"`
}

// User is the identity resolved by the external authenticator.
type User struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role"`
}
