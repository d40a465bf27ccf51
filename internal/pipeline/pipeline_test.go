package pipeline

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"alerts-service/internal/automation"
	"alerts-service/internal/engine"
	"alerts-service/internal/logging"
	"alerts-service/internal/models"
)

// fakeStore backs the engine, the trigger and the pipeline in one place.
type fakeStore struct {
	cfg    models.AutomationConfig
	snaps  []models.VarianceSnapshot
	alerts []models.Alert
	tasks  []models.GeneratedTask
}

func (s *fakeStore) GetAutomationConfig(context.Context, int64) (models.AutomationConfig, error) {
	return s.cfg, nil
}

func (s *fakeStore) PendingVarianceSnapshots(context.Context, int64) ([]models.VarianceSnapshot, error) {
	return s.snaps, nil
}

func (s *fakeStore) ListAutomatedProjectIDs(context.Context) ([]int64, error) {
	return []int64{1}, nil
}

func (s *fakeStore) CreateAlert(_ context.Context, alert *models.Alert) error {
	s.alerts = append(s.alerts, *alert)
	return nil
}

func (s *fakeStore) LatestAlertForTier(_ context.Context, subjectID string, tier models.Tier) (*models.Alert, error) {
	var latest *models.Alert
	for i := range s.alerts {
		if s.alerts[i].SubjectID == subjectID && s.alerts[i].Tier == tier {
			latest = &s.alerts[i]
		}
	}
	return latest, nil
}

func (s *fakeStore) CreateGeneratedTask(_ context.Context, task *models.GeneratedTask) error {
	s.tasks = append(s.tasks, *task)
	return nil
}

func (s *fakeStore) ProjectMemberIDs(context.Context, int64) ([]int64, error) {
	return []int64{2, 3}, nil
}

func (s *fakeStore) ProjectOwner(context.Context, int64) (*models.User, error) {
	return &models.User{ID: 1, Email: "owner@x.com"}, nil
}

type fakePusher struct {
	sends      []models.Envelope
	broadcasts []models.Envelope
}

func (p *fakePusher) SendToUser(_ int64, env models.Envelope) int {
	p.sends = append(p.sends, env)
	return 1
}

func (p *fakePusher) SendToUsers(ids []int64, env models.Envelope) int {
	p.sends = append(p.sends, env)
	return len(ids)
}

func (p *fakePusher) Broadcast(env models.Envelope) int {
	p.broadcasts = append(p.broadcasts, env)
	return 1
}

type fakeNotifier struct{ calls int }

func (n *fakeNotifier) NotifyOwner(context.Context, *models.User, string, string) error {
	n.calls++
	return nil
}

func newPipeline(store *fakeStore, pusher *fakePusher, notifier *fakeNotifier) *Pipeline {
	logger := logging.NewNop()
	eng := engine.New(store, logger)
	trigger := automation.NewTrigger(store, pusher, notifier, logger)
	return New(store, eng, trigger, logger)
}

func TestQuantityUpdateRunsFullFlow(t *testing.T) {
	store := &fakeStore{cfg: models.DefaultAutomationConfig(1)}
	pusher := &fakePusher{}
	notifier := &fakeNotifier{}
	pl := newPipeline(store, pusher, notifier)

	alerts, err := pl.HandleQuantityUpdate(context.Background(), models.VarianceSnapshot{
		ProjectID: 1, LineID: "l-1", ItemCode: "C-100", PlannedQty: 100, ExecutedQty: 120,
	})
	require.NoError(t, err)

	// 20% variance reaches medium, high and critical in one step
	require.Len(t, alerts, 3)
	assert.Len(t, store.alerts, 3, "every alert persisted before any notification")
	assert.Len(t, store.tasks, 3, "one task per alert")
	assert.NotEmpty(t, pusher.sends)
	assert.Equal(t, 3, notifier.calls)
}

func TestBudgetUpdateRunsFullFlow(t *testing.T) {
	store := &fakeStore{cfg: models.DefaultAutomationConfig(1)}
	pusher := &fakePusher{}
	pl := newPipeline(store, pusher, &fakeNotifier{})

	alerts, err := pl.HandleBudgetUpdate(context.Background(), models.BudgetSnapshot{
		ProjectID: 1, BudgetID: "b-1", BudgetAmount: 1000, SpentAmount: 850,
	})
	require.NoError(t, err)
	require.Len(t, alerts, 1)
	assert.Equal(t, models.TierWarning, alerts[0].Tier)
	assert.Len(t, store.tasks, 1)
}

func TestSweepSkipsDisabledProjects(t *testing.T) {
	cfg := models.DefaultAutomationConfig(1)
	cfg.Enabled = false
	store := &fakeStore{
		cfg: cfg,
		snaps: []models.VarianceSnapshot{
			{ProjectID: 1, LineID: "l-1", ItemCode: "C-100", PlannedQty: 100, ExecutedQty: 150},
		},
	}
	pusher := &fakePusher{}
	pl := newPipeline(store, pusher, &fakeNotifier{})

	require.NoError(t, pl.RunProjectSweep(context.Background(), 1))
	assert.Empty(t, store.alerts)
	assert.Empty(t, store.tasks)
	assert.Empty(t, pusher.broadcasts)
}

func TestSweepProcessesProjectInBulk(t *testing.T) {
	cfg := models.DefaultAutomationConfig(1)
	assignee := int64(7)
	cfg.DefaultAssigneeID = &assignee
	store := &fakeStore{
		cfg: cfg,
		snaps: []models.VarianceSnapshot{
			{ProjectID: 1, LineID: "l-1", ItemCode: "C-100", PlannedQty: 100, ExecutedQty: 107},
			{ProjectID: 1, LineID: "l-2", ItemCode: "C-200", PlannedQty: 50, ExecutedQty: 50},
		},
	}
	pusher := &fakePusher{}
	pl := newPipeline(store, pusher, &fakeNotifier{})

	require.NoError(t, pl.RunProjectSweep(context.Background(), 1))

	// only the 7% line alerts (medium tier), announced in bulk
	require.Len(t, store.alerts, 1)
	require.Len(t, store.tasks, 1)
	var bulk *models.BulkTasksGeneratedPayload
	for _, env := range pusher.sends {
		if p, ok := env.Payload.(models.BulkTasksGeneratedPayload); ok {
			bulk = &p
		}
	}
	require.NotNil(t, bulk)
	assert.Equal(t, 1, bulk.Count)
	assert.Equal(t, "C-100", bulk.Tasks[0].ItemCode)
}
