package engine

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"alerts-service/internal/logging"
	"alerts-service/internal/models"
)

type fakeStore struct {
	alerts     []models.Alert
	failLookup bool
	failCreate bool
}

func (s *fakeStore) CreateAlert(_ context.Context, alert *models.Alert) error {
	if s.failCreate {
		return errors.New("insert failed")
	}
	s.alerts = append(s.alerts, *alert)
	return nil
}

func (s *fakeStore) LatestAlertForTier(_ context.Context, subjectID string, tier models.Tier) (*models.Alert, error) {
	if s.failLookup {
		return nil, errors.New("lookup failed")
	}
	var latest *models.Alert
	for i := range s.alerts {
		if s.alerts[i].SubjectID == subjectID && s.alerts[i].Tier == tier {
			latest = &s.alerts[i]
		}
	}
	return latest, nil
}

func newEngine(store *fakeStore) *Engine {
	return New(store, logging.NewNop())
}

func budgetAt(pct float64) models.BudgetSnapshot {
	return models.BudgetSnapshot{ProjectID: 1, BudgetID: "b-1", BudgetAmount: 100, SpentAmount: pct}
}

func TestBudgetEscalationPolicy(t *testing.T) {
	store := &fakeStore{}
	e := newEngine(store)
	ctx := context.Background()

	// first time past 80 emits exactly one warning
	emitted, err := e.EvaluateBudget(ctx, budgetAt(82))
	require.NoError(t, err)
	require.Len(t, emitted, 1)
	assert.Equal(t, models.TierWarning, emitted[0].Tier)
	assert.Equal(t, models.DomainBudget, emitted[0].Domain)

	// a move within the margin stays quiet
	emitted, err = e.EvaluateBudget(ctx, budgetAt(84))
	require.NoError(t, err)
	assert.Empty(t, emitted)

	// crossing into critical emits the new tier only, no warning re-send
	emitted, err = e.EvaluateBudget(ctx, budgetAt(91))
	require.NoError(t, err)
	require.Len(t, emitted, 1)
	assert.Equal(t, models.TierCritical, emitted[0].Tier)
}

func TestReEscalationAtTopTier(t *testing.T) {
	store := &fakeStore{}
	e := newEngine(store)
	ctx := context.Background()

	_, err := e.EvaluateBudget(ctx, budgetAt(91))
	require.NoError(t, err)

	// within margin of the 91% critical alert
	emitted, err := e.EvaluateBudget(ctx, budgetAt(93))
	require.NoError(t, err)
	assert.Empty(t, emitted)

	// moved more than five points since the last critical alert
	emitted, err = e.EvaluateBudget(ctx, budgetAt(97))
	require.NoError(t, err)
	require.Len(t, emitted, 1)
	assert.Equal(t, models.TierCritical, emitted[0].Tier)
}

func TestTierJumpEmitsFullHistory(t *testing.T) {
	store := &fakeStore{}
	e := newEngine(store)

	emitted, err := e.EvaluateBudget(context.Background(), budgetAt(105))
	require.NoError(t, err)
	require.Len(t, emitted, 3)
	tiers := []models.Tier{emitted[0].Tier, emitted[1].Tier, emitted[2].Tier}
	assert.ElementsMatch(t, []models.Tier{models.TierWarning, models.TierCritical, models.TierExceeded}, tiers)
}

func TestZeroBudgetShortCircuits(t *testing.T) {
	store := &fakeStore{}
	e := newEngine(store)

	emitted, err := e.EvaluateBudget(context.Background(), models.BudgetSnapshot{
		ProjectID: 1, BudgetID: "b-1", BudgetAmount: 0, SpentAmount: 500,
	})
	require.NoError(t, err)
	assert.Empty(t, emitted)
	assert.Empty(t, store.alerts)
}

func TestZeroPlannedQuantityShortCircuits(t *testing.T) {
	store := &fakeStore{}
	e := newEngine(store)

	emitted, err := e.EvaluateVariance(context.Background(), models.VarianceSnapshot{
		ProjectID: 1, LineID: "l-1", ItemCode: "C-100", PlannedQty: 0, ExecutedQty: 12,
	}, models.DefaultAutomationConfig(1))
	require.NoError(t, err)
	assert.Empty(t, emitted)
	assert.Empty(t, store.alerts)
}

func TestVarianceTiersFollowConfig(t *testing.T) {
	store := &fakeStore{}
	e := newEngine(store)
	cfg := models.DefaultAutomationConfig(1) // warning 5, critical 10

	// 6% over plan reaches the medium tier only
	emitted, err := e.EvaluateVariance(context.Background(), models.VarianceSnapshot{
		ProjectID: 1, LineID: "l-1", ItemCode: "C-100", PlannedQty: 100, ExecutedQty: 106,
	}, cfg)
	require.NoError(t, err)
	require.Len(t, emitted, 1)
	assert.Equal(t, models.TierMedium, emitted[0].Tier)
	assert.Equal(t, models.SeverityMedium, emitted[0].Severity)

	// under-execution counts as variance too: 30% below plan on a fresh
	// line reaches medium, high and critical in one step
	emitted, err = e.EvaluateVariance(context.Background(), models.VarianceSnapshot{
		ProjectID: 1, LineID: "l-2", ItemCode: "C-200", PlannedQty: 100, ExecutedQty: 70,
	}, cfg)
	require.NoError(t, err)
	assert.Len(t, emitted, 3)
}

func TestVarianceSeverityGrading(t *testing.T) {
	cfg := models.DefaultAutomationConfig(1)
	assert.Equal(t, models.SeverityLow, VarianceSeverity(2, cfg))
	assert.Equal(t, models.SeverityMedium, VarianceSeverity(6, cfg))
	assert.Equal(t, models.SeverityHigh, VarianceSeverity(12, cfg))
	assert.Equal(t, models.SeverityCritical, VarianceSeverity(25, cfg))
}

func TestLookupFailurePropagates(t *testing.T) {
	store := &fakeStore{failLookup: true}
	e := newEngine(store)

	_, err := e.EvaluateBudget(context.Background(), budgetAt(85))
	require.Error(t, err)
	assert.Empty(t, store.alerts)
}

func TestPersistFailurePropagates(t *testing.T) {
	store := &fakeStore{failCreate: true}
	e := newEngine(store)

	_, err := e.EvaluateBudget(context.Background(), budgetAt(85))
	require.Error(t, err)
}
