package pipeline

import (
	"context"
	"fmt"

	"alerts-service/internal/automation"
	"alerts-service/internal/engine"
	"alerts-service/internal/logging"
	"alerts-service/internal/models"
)

// Store is the read side the pipeline needs around the engine and
// trigger.
type Store interface {
	GetAutomationConfig(ctx context.Context, projectID int64) (models.AutomationConfig, error)
	PendingVarianceSnapshots(ctx context.Context, projectID int64) ([]models.VarianceSnapshot, error)
	ListAutomatedProjectIDs(ctx context.Context) ([]int64, error)
}

// Pipeline connects the threshold engine to the task-generation trigger.
// Alerts are always durable before any notification referencing them
// goes out: the engine persists, then the trigger notifies.
type Pipeline struct {
	store   Store
	engine  *engine.Engine
	trigger *automation.Trigger
	logger  *logging.Logger
}

func New(store Store, eng *engine.Engine, trigger *automation.Trigger, logger *logging.Logger) *Pipeline {
	return &Pipeline{store: store, engine: eng, trigger: trigger, logger: logger}
}

// HandleBudgetUpdate evaluates a fresh budget reading and processes any
// emitted alerts one by one.
func (p *Pipeline) HandleBudgetUpdate(ctx context.Context, snap models.BudgetSnapshot) ([]models.Alert, error) {
	cfg, err := p.store.GetAutomationConfig(ctx, snap.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("failed to load automation config: %w", err)
	}

	alerts, err := p.engine.EvaluateBudget(ctx, snap)
	if err != nil {
		return alerts, err
	}
	p.processEach(ctx, alerts, cfg)
	return alerts, nil
}

// HandleQuantityUpdate evaluates a fresh planned-vs-executed reading for
// one MQT line and processes any emitted alerts.
func (p *Pipeline) HandleQuantityUpdate(ctx context.Context, snap models.VarianceSnapshot) ([]models.Alert, error) {
	cfg, err := p.store.GetAutomationConfig(ctx, snap.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("failed to load automation config: %w", err)
	}

	alerts, err := p.engine.EvaluateVariance(ctx, snap, cfg)
	if err != nil {
		return alerts, err
	}
	p.processEach(ctx, alerts, cfg)
	return alerts, nil
}

// processEach feeds alerts to the trigger with per-item error isolation.
func (p *Pipeline) processEach(ctx context.Context, alerts []models.Alert, cfg models.AutomationConfig) {
	for _, alert := range alerts {
		if _, err := p.trigger.ProcessAlert(ctx, alert, cfg); err != nil {
			p.logger.Errorf("Failed to process alert %s: %v", alert.ID, err)
		}
	}
}

// RunProjectSweep re-evaluates every MQT line of one project and hands
// the resulting alerts to the trigger's batch path.
func (p *Pipeline) RunProjectSweep(ctx context.Context, projectID int64) error {
	cfg, err := p.store.GetAutomationConfig(ctx, projectID)
	if err != nil {
		return fmt.Errorf("failed to load automation config: %w", err)
	}
	if !cfg.Enabled {
		return nil
	}

	snaps, err := p.store.PendingVarianceSnapshots(ctx, projectID)
	if err != nil {
		return fmt.Errorf("failed to load variance snapshots: %w", err)
	}

	var alerts []models.Alert
	for _, snap := range snaps {
		emitted, err := p.engine.EvaluateVariance(ctx, snap, cfg)
		if err != nil {
			p.logger.Errorf("Sweep evaluation failed for line %s: %v", snap.LineID, err)
			continue
		}
		alerts = append(alerts, emitted...)
	}
	if len(alerts) == 0 {
		return nil
	}

	_, err = p.trigger.ProcessBatch(ctx, projectID, alerts, cfg)
	return err
}

// SweepAll runs the project sweep across every project with automation
// enabled. One failing project never stops the rest.
func (p *Pipeline) SweepAll(ctx context.Context) {
	ids, err := p.store.ListAutomatedProjectIDs(ctx)
	if err != nil {
		p.logger.Errorf("Failed to list automated projects: %v", err)
		return
	}
	for _, id := range ids {
		if err := p.RunProjectSweep(ctx, id); err != nil {
			p.logger.Errorf("Sweep failed for project %d: %v", id, err)
		}
	}
	p.logger.Infof("Sweep finished across %d projects", len(ids))
}
