package engine

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"

	"alerts-service/internal/logging"
	"alerts-service/internal/models"
)

// EscalationMargin is the minimum percentage-point increase required to
// re-alert at a tier that already has an alert on record.
const EscalationMargin = 5.0

// AlertStore is the persistence the engine needs: append new alerts and
// look up the most recent one per (subject, tier).
type AlertStore interface {
	CreateAlert(ctx context.Context, alert *models.Alert) error
	LatestAlertForTier(ctx context.Context, subjectID string, tier models.Tier) (*models.Alert, error)
}

// Engine decides, from a freshly computed metric, whether to mint new
// alerts. It persists what it emits and returns it; notification is the
// caller's job, so an alert is always durable before anyone hears about
// it.
type Engine struct {
	store  AlertStore
	logger *logging.Logger
}

func New(store AlertStore, logger *logging.Logger) *Engine {
	return &Engine{store: store, logger: logger}
}

// tierBound is one rung of a tier ladder: the tier name and the lower
// bound (percentage) at which it is reached.
type tierBound struct {
	tier     models.Tier
	bound    float64
	severity models.Severity
}

// budgetTiers are fixed for the budget-utilization domain.
var budgetTiers = []tierBound{
	{models.TierWarning, 80, models.SeverityMedium},
	{models.TierCritical, 90, models.SeverityHigh},
	{models.TierExceeded, 100, models.SeverityCritical},
}

// varianceTiers builds the ladder for the quantity-variance domain from
// the project's automation config. The top tier has no upper bound.
func varianceTiers(cfg models.AutomationConfig) []tierBound {
	return []tierBound{
		{models.TierMedium, cfg.WarningThresholdPct, models.SeverityMedium},
		{models.TierHigh, cfg.CriticalThresholdPct, models.SeverityHigh},
		{models.TierCritical, cfg.CriticalThresholdPct * 2, models.SeverityCritical},
	}
}

// VarianceSeverity grades a variance percentage against the config
// ladder. Below the warning threshold the severity is low.
func VarianceSeverity(pct float64, cfg models.AutomationConfig) models.Severity {
	switch {
	case pct >= cfg.CriticalThresholdPct*2:
		return models.SeverityCritical
	case pct >= cfg.CriticalThresholdPct:
		return models.SeverityHigh
	case pct >= cfg.WarningThresholdPct:
		return models.SeverityMedium
	default:
		return models.SeverityLow
	}
}

// EvaluateBudget runs the escalation policy against a budget reading.
// A zero or negative budget short-circuits to no evaluation.
func (e *Engine) EvaluateBudget(ctx context.Context, snap models.BudgetSnapshot) ([]models.Alert, error) {
	if snap.BudgetAmount <= 0 {
		e.logger.Debugf("Budget %s has no usable amount, skipping evaluation", snap.BudgetID)
		return nil, nil
	}
	pct := snap.SpentAmount / snap.BudgetAmount * 100

	return e.evaluate(ctx, budgetTiers, pct, func(tb tierBound) models.Alert {
		return models.Alert{
			ID:           uuid.New(),
			ProjectID:    snap.ProjectID,
			SubjectID:    snap.BudgetID,
			Domain:       models.DomainBudget,
			Tier:         tb.tier,
			Severity:     tb.severity,
			CurrentPct:   pct,
			BudgetAmount: snap.BudgetAmount,
			SpentAmount:  snap.SpentAmount,
			CreatedAt:    time.Now().UTC(),
		}
	})
}

// EvaluateVariance runs the escalation policy against a planned-vs-
// executed quantity reading. A zero or negative planned quantity
// short-circuits to no evaluation.
func (e *Engine) EvaluateVariance(ctx context.Context, snap models.VarianceSnapshot, cfg models.AutomationConfig) ([]models.Alert, error) {
	if snap.PlannedQty <= 0 {
		e.logger.Debugf("MQT line %s has no planned quantity, skipping evaluation", snap.LineID)
		return nil, nil
	}
	pct := math.Abs(snap.ExecutedQty-snap.PlannedQty) / snap.PlannedQty * 100

	return e.evaluate(ctx, varianceTiers(cfg), pct, func(tb tierBound) models.Alert {
		return models.Alert{
			ID:          uuid.New(),
			ProjectID:   snap.ProjectID,
			SubjectID:   snap.LineID,
			Domain:      models.DomainVariance,
			Tier:        tb.tier,
			Severity:    tb.severity,
			CurrentPct:  pct,
			ItemCode:    snap.ItemCode,
			PlannedQty:  snap.PlannedQty,
			ExecutedQty: snap.ExecutedQty,
			CreatedAt:   time.Now().UTC(),
		}
	})
}

// evaluate applies the tier ladder to pct. Tiers are checked
// independently: a value that jumps several tiers in one step emits a
// first-reach alert at each, documenting the history of the breach. A
// tier that already has an alert on record re-emits only when it is the
// highest tier reached and pct has moved past the recorded value by
// more than the escalation margin; lower tiers never re-fire once a
// higher one is active.
func (e *Engine) evaluate(ctx context.Context, tiers []tierBound, pct float64, build func(tierBound) models.Alert) ([]models.Alert, error) {
	highest := -1
	for i, tb := range tiers {
		if pct >= tb.bound {
			highest = i
		}
	}

	var emitted []models.Alert
	for i, tb := range tiers {
		if pct < tb.bound {
			continue
		}

		alert := build(tb)
		prev, err := e.store.LatestAlertForTier(ctx, alert.SubjectID, tb.tier)
		if err != nil {
			return emitted, fmt.Errorf("failed to look up latest %s alert for %s: %w", tb.tier, alert.SubjectID, err)
		}
		if prev != nil && (i != highest || pct-prev.CurrentPct <= EscalationMargin) {
			e.logger.Debugf("Suppressed %s alert for %s (%.1f%%, last alerted at %.1f%%)",
				tb.tier, alert.SubjectID, pct, prev.CurrentPct)
			continue
		}

		if err := e.store.CreateAlert(ctx, &alert); err != nil {
			return emitted, fmt.Errorf("failed to persist %s alert for %s: %w", tb.tier, alert.SubjectID, err)
		}
		e.logger.Infof("Alert %s: %s tier %s at %.1f%%", alert.ID, alert.SubjectID, tb.tier, pct)
		emitted = append(emitted, alert)
	}
	return emitted, nil
}
