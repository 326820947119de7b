package tasks

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"growth-engine/internal/apperr"
	"growth-engine/internal/clock"
	"growth-engine/internal/memstore"
	"growth-engine/internal/models"
	"growth-engine/pkg/logger"
)

type fakeCatalog struct {
	tabs map[string][]models.Task
	err  error
}

func (f *fakeCatalog) Fetch(_ context.Context, tab string) ([]models.Task, error) {
	if f.err != nil {
		return []models.Task{}, f.err
	}
	return f.tabs[tab], nil
}

type recordingNotifier struct {
	mu   sync.Mutex
	days []int
}

func (n *recordingNotifier) DayCompleted(_ context.Context, _ *models.Profile, day int) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.days = append(n.days, day)
	return nil
}

type fixture struct {
	svc      *Service
	store    *memstore.Store
	catalog  *fakeCatalog
	notifier *recordingNotifier
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	fc := clock.NewFake(time.Date(2026, 2, 1, 8, 0, 0, 0, time.UTC))
	store := memstore.New(fc)
	cat := &fakeCatalog{tabs: map[string][]models.Task{
		models.ProgramTasks30D: {
			{Day: 1, TaskID: "d1-b", TaskOrder: 2, Platform: "BOTH"},
			{Day: 1, TaskID: "d1-a", TaskOrder: 1, Platform: "IG"},
			{Day: 1, TaskID: "d1-tt", TaskOrder: 3, Platform: "TT"},
			{Day: 2, TaskID: "d2-a", TaskOrder: 1},
		},
	}}
	n := &recordingNotifier{}
	return &fixture{
		svc:      NewService(cat, store, store, n, fc, logger.Nop()),
		store:    store,
		catalog:  cat,
		notifier: n,
	}
}

func (f *fixture) addUser(t *testing.T, id string, plan models.Plan, program string, day int) {
	t.Helper()
	_, err := f.store.CreateProfileIfAbsent(context.Background(), &models.Profile{
		ID: id, Plan: plan, CurrentProgram: program, CurrentDay: day,
		Onboarding: &models.Onboarding{Platform: []string{"IG"}},
	})
	require.NoError(t, err)
}

func TestMerge(t *testing.T) {
	tasks := []models.Task{{TaskID: "a"}, {TaskID: "b"}}
	got := Merge(tasks, []models.UserTaskStatus{{TaskID: "b", Status: models.StatusSkipped}})

	require.Len(t, got, 2)
	assert.Equal(t, models.StatusPending, got[0].Status)
	assert.Equal(t, models.StatusSkipped, got[1].Status)
}

func TestIsComplete(t *testing.T) {
	assert.False(t, IsComplete(nil))
	assert.False(t, IsComplete([]models.TaskWithStatus{{Status: models.StatusDone}, {Status: models.StatusPending}}))
	assert.True(t, IsComplete([]models.TaskWithStatus{
		{Status: models.StatusDone}, {Status: models.StatusSkipped}, {Status: models.StatusDeferred},
	}))
}

func TestToday(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.addUser(t, "u1", models.PlanFree, models.ProgramTasks30D, 1)

	view, err := f.svc.Today(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 1, view.Day)
	assert.Equal(t, models.ProgramTasks30D, view.Program)
	require.Len(t, view.Tasks, 2)
	assert.Equal(t, "d1-a", view.Tasks[0].TaskID)
	assert.Equal(t, "d1-b", view.Tasks[1].TaskID)
	assert.False(t, view.IsComplete)
	assert.False(t, view.ProgramComplete)
}

func TestToday_Errors(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Today(ctx, "missing")
	assert.True(t, apperr.Is(err, apperr.KindValidation))

	f.addUser(t, "u1", models.PlanFree, models.ProgramTasks30D, 1)
	f.catalog.err = errors.New("down")
	_, err = f.svc.Today(ctx, "u1")
	assert.True(t, apperr.Is(err, apperr.KindInternal))
}

func TestSetStatus_Idempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.addUser(t, "u1", models.PlanFree, models.ProgramTasks30D, 1)

	require.NoError(t, f.svc.SetStatus(ctx, "u1", "d1-a", 0, "Done"))
	require.NoError(t, f.svc.SetStatus(ctx, "u1", "d1-a", 1, "Done"))
	assert.Equal(t, 1, f.store.CountStatuses("u1"))

	rows, err := f.store.ListStatuses(ctx, "u1", models.ProgramTasks30D, 1)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.NotNil(t, rows[0].CompletedAt)

	require.NoError(t, f.svc.SetStatus(ctx, "u1", "d1-a", 1, "Pending"))
	rows, err = f.store.ListStatuses(ctx, "u1", models.ProgramTasks30D, 1)
	require.NoError(t, err)
	assert.Nil(t, rows[0].CompletedAt)
	assert.Equal(t, 1, f.store.CountStatuses("u1"))

	// Another day is a separate row.
	require.NoError(t, f.svc.SetStatus(ctx, "u1", "d1-a", 2, "Done"))
	assert.Equal(t, 2, f.store.CountStatuses("u1"))
}

func TestSetStatus_Validation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.addUser(t, "u1", models.PlanFree, models.ProgramTasks30D, 1)

	err := f.svc.SetStatus(ctx, "u1", "d1-a", 0, "done")
	e, ok := apperr.As(err)
	require.True(t, ok)
	assert.Equal(t, apperr.KindValidation, e.Kind)
	assert.Equal(t, "status", e.Field)

	err = f.svc.SetStatus(ctx, "u1", " ", 0, "Done")
	e, ok = apperr.As(err)
	require.True(t, ok)
	assert.Equal(t, "taskId", e.Field)

	err = f.svc.SetStatus(ctx, "u1", "d1-a", -1, "Done")
	assert.True(t, apperr.Is(err, apperr.KindValidation))
}

func TestCompleteDay(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.addUser(t, "u1", models.PlanFree, models.ProgramTasks30D, 1)

	_, err := f.svc.CompleteDay(ctx, "u1")
	require.Error(t, err)
	e, _ := apperr.As(err)
	assert.Equal(t, "day not complete", e.Message)

	require.NoError(t, f.svc.SetStatus(ctx, "u1", "d1-a", 0, "Done"))
	require.NoError(t, f.svc.SetStatus(ctx, "u1", "d1-b", 0, "Deferred"))

	view, err := f.svc.Today(ctx, "u1")
	require.NoError(t, err)
	assert.True(t, view.IsComplete)

	adv, err := f.svc.CompleteDay(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 2, adv.NewDay)
	assert.Equal(t, models.ProgramTasks30D, adv.NewProgram)
	assert.Equal(t, []int{1}, f.notifier.days)

	p, err := f.store.GetProfile(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 2, p.CurrentDay)
}

func TestCompleteDay_EmptyDayIsNotComplete(t *testing.T) {
	f := newFixture(t)
	f.addUser(t, "u1", models.PlanFree, models.ProgramTasks30D, 5)

	_, err := f.svc.CompleteDay(context.Background(), "u1")
	assert.True(t, apperr.Is(err, apperr.KindValidation))
}

func TestCompleteDay_ConcurrentAdvancesOnce(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.addUser(t, "u1", models.PlanFree, models.ProgramTasks30D, 1)
	require.NoError(t, f.svc.SetStatus(ctx, "u1", "d1-a", 0, "Done"))
	require.NoError(t, f.svc.SetStatus(ctx, "u1", "d1-b", 0, "Skipped"))

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = f.svc.CompleteDay(ctx, "u1")
		}()
	}
	wg.Wait()

	p, err := f.store.GetProfile(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 2, p.CurrentDay)
}

// reopeningStore resets a task to Pending right before the advance, the way a
// concurrent status write would.
type reopeningStore struct {
	*memstore.Store
	taskID string
}

func (r *reopeningStore) AdvanceDay(ctx context.Context, userID string, fromDay int, taskIDs []string) (bool, error) {
	p, err := r.GetProfile(ctx, userID)
	if err != nil {
		return false, err
	}
	err = r.UpsertStatus(ctx, &models.UserTaskStatus{
		UserID: userID, ProgramID: p.CurrentProgram, Day: fromDay, TaskID: r.taskID, Status: models.StatusPending,
	})
	if err != nil {
		return false, err
	}
	return r.Store.AdvanceDay(ctx, userID, fromDay, taskIDs)
}

func TestCompleteDay_StatusReopenedBeforeAdvance(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.addUser(t, "u1", models.PlanFree, models.ProgramTasks30D, 1)
	require.NoError(t, f.svc.SetStatus(ctx, "u1", "d1-a", 0, "Done"))
	require.NoError(t, f.svc.SetStatus(ctx, "u1", "d1-b", 0, "Done"))

	rs := &reopeningStore{Store: f.store, taskID: "d1-a"}
	svc := NewService(f.catalog, rs, rs, f.notifier, clock.System{}, logger.Nop())

	_, err := svc.CompleteDay(ctx, "u1")
	require.Error(t, err)
	e, _ := apperr.As(err)
	assert.Equal(t, "day not complete", e.Message)
	assert.Empty(t, f.notifier.days)

	p, err := f.store.GetProfile(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 1, p.CurrentDay)
}

func TestSwitchProgram(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.addUser(t, "free", models.PlanFree, models.ProgramTasks30D, 31)
	_, err := f.svc.SwitchProgram(ctx, "free", models.ProgramTasksPro60)
	assert.True(t, apperr.Is(err, apperr.KindForbidden))

	_, err = f.svc.SwitchProgram(ctx, "free", "NOPE")
	assert.True(t, apperr.Is(err, apperr.KindValidation))

	f.addUser(t, "mid", models.PlanPro, models.ProgramTasks30D, 12)
	_, err = f.svc.SwitchProgram(ctx, "mid", models.ProgramTasksPro60)
	assert.True(t, apperr.Is(err, apperr.KindValidation))

	f.addUser(t, "done", models.PlanPro, models.ProgramTasks30D, 31)
	sw, err := f.svc.SwitchProgram(ctx, "done", "tasks_pro_60")
	require.NoError(t, err)
	assert.Equal(t, models.ProgramTasksPro60, sw.Program)
	assert.Equal(t, 1, sw.Day)

	view, err := f.svc.Today(ctx, "done")
	require.NoError(t, err)
	assert.Equal(t, models.ProgramTasksPro60, view.Program)
	assert.Equal(t, 1, view.Day)

	f.addUser(t, "fresh", models.PlanPro, models.ProgramTasks30D, 1)
	sw, err = f.svc.SwitchProgram(ctx, "fresh", models.ProgramTasksPro60)
	require.NoError(t, err)
	assert.Equal(t, 1, sw.Day)
}

func TestToday_ProgramComplete(t *testing.T) {
	f := newFixture(t)
	f.addUser(t, "u1", models.PlanFree, models.ProgramTasks30D, 31)

	view, err := f.svc.Today(context.Background(), "u1")
	require.NoError(t, err)
	assert.True(t, view.ProgramComplete)
	assert.Empty(t, view.Tasks)
}
