package tracker

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stairworks/timeclock/internal/database"
	"github.com/stairworks/timeclock/internal/model"
)

type fakeEntryStore struct {
	entries map[model.EntryID]*model.TrackingEntry
	tasks   map[string]model.Task
	images  map[model.EntryID][]string
	nextID  model.EntryID
}

func newFakeEntryStore(tasks map[string]model.Task) *fakeEntryStore {
	return &fakeEntryStore{
		entries: map[model.EntryID]*model.TrackingEntry{},
		tasks:   tasks,
		images:  map[model.EntryID][]string{},
	}
}

func (f *fakeEntryStore) Open(ctx context.Context, worker model.WorkerID) (model.TrackingEntry, error) {
	for _, entry := range f.entries {
		if entry.Worker == worker && entry.Open() {
			return *entry, nil
		}
	}
	return model.TrackingEntry{}, model.NewError("entry", model.ErrNotFound)
}

func (f *fakeEntryStore) Get(ctx context.Context, id model.EntryID) (model.TrackingEntry, error) {
	entry, ok := f.entries[id]
	if !ok {
		return model.TrackingEntry{}, model.NewError("entry", model.ErrNotFound)
	}
	return *entry, nil
}

func (f *fakeEntryStore) Insert(ctx context.Context, dto database.InsertEntryDTO) (model.EntryID, error) {
	// Mimic the partial unique index on open entries.
	for _, entry := range f.entries {
		if entry.Worker == dto.Worker && entry.Open() {
			return 0, model.NewError("entry", model.ErrExists)
		}
	}

	f.nextID++
	start := dto.StartTime
	f.entries[f.nextID] = &model.TrackingEntry{
		ID:        f.nextID,
		EntryDate: dto.EntryDate,
		Branch:    dto.Branch,
		AreaGroup: dto.AreaGroup,
		Worker:    dto.Worker,
		TaskGID:   dto.TaskGID,
		StartTime: &start,
		Comment:   dto.Comment,
	}
	return f.nextID, nil
}

func (f *fakeEntryStore) Close(ctx context.Context, id model.EntryID, end time.Time) error {
	entry, ok := f.entries[id]
	if !ok {
		return model.NewError("entry", model.ErrNotFound)
	}
	entry.EndTime = &end
	return nil
}

func (f *fakeEntryStore) LastClosed(ctx context.Context, worker model.WorkerID, taskGID string) (model.TrackingEntry, error) {
	var last *model.TrackingEntry
	for _, entry := range f.entries {
		if entry.Worker != worker || entry.TaskGID != taskGID || entry.Open() {
			continue
		}
		if last == nil || entry.EndTime.After(*last.EndTime) {
			last = entry
		}
	}
	if last == nil {
		return model.TrackingEntry{}, model.NewError("entry", model.ErrNotFound)
	}
	return *last, nil
}

func (f *fakeEntryStore) ClosedSince(ctx context.Context, worker model.WorkerID, since time.Time) ([]model.EntryWithTask, error) {
	var out []model.EntryWithTask
	for _, entry := range f.entries {
		if entry.Worker != worker || entry.Open() || entry.EntryDate.Before(since) {
			continue
		}
		task := f.tasks[entry.TaskGID]
		out = append(out, model.EntryWithTask{
			TrackingEntry: *entry,
			TaskName:      task.Name,
			TaskCategory:  task.Category,
		})
	}
	return out, nil
}

func (f *fakeEntryStore) ForTask(ctx context.Context, taskGID string) ([]model.TrackingEntry, error) {
	var out []model.TrackingEntry
	for _, entry := range f.entries {
		if entry.TaskGID == taskGID {
			out = append(out, *entry)
		}
	}
	return out, nil
}

func (f *fakeEntryStore) WorkersForTask(ctx context.Context, taskGID string) ([]model.Worker, error) {
	seen := map[model.WorkerID]bool{}
	var out []model.Worker
	for _, entry := range f.entries {
		if entry.TaskGID != taskGID || seen[entry.Worker] {
			continue
		}
		seen[entry.Worker] = true
		out = append(out, model.Worker{ID: entry.Worker})
	}
	return out, nil
}

func (f *fakeEntryStore) AddImages(ctx context.Context, id model.EntryID, urls []string) error {
	f.images[id] = append(f.images[id], urls...)
	return nil
}

type fakeTaskStore struct {
	tasks map[string]model.Task
}

func (f fakeTaskStore) Get(ctx context.Context, gid string) (model.Task, error) {
	task, ok := f.tasks[gid]
	if !ok {
		return model.Task{}, model.NewError("task", model.ErrNotFound)
	}
	return task, nil
}

func (f fakeTaskStore) SetCompleted(ctx context.Context, gid string) error {
	task, ok := f.tasks[gid]
	if !ok {
		return model.NewError("task", model.ErrNotFound)
	}
	task.Completed = true
	f.tasks[gid] = task
	return nil
}

var _testNow = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

func newTestLedger(tasks map[string]model.Task) (*Ledger, *fakeEntryStore) {
	entries := newFakeEntryStore(tasks)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	ledger := NewLedger(logger, entries, fakeTaskStore{tasks})
	ledger.now = func() time.Time { return _testNow }

	return ledger, entries
}

func defaultTasks() map[string]model.Task {
	return map[string]model.Task{
		"task-1": {GID: "task-1", Name: "Sanding"},
		"task-2": {GID: "task-2", Name: "Painting"},
		"done-1": {GID: "done-1", Name: "Delivered", Completed: true},
	}
}

func TestLedger_ClockIn(t *testing.T) {
	ctx := context.Background()
	worker := uuid.New()

	t.Run("unknown task", func(t *testing.T) {
		ledger, _ := newTestLedger(defaultTasks())

		_, err := ledger.ClockIn(ctx, ClockInParams{Worker: worker, TaskGID: "nope", Branch: "north", AreaGroup: 1})
		assert.ErrorIs(t, err, model.ErrNotFound)
	})

	t.Run("completed task", func(t *testing.T) {
		ledger, _ := newTestLedger(defaultTasks())

		_, err := ledger.ClockIn(ctx, ClockInParams{Worker: worker, TaskGID: "done-1", Branch: "north", AreaGroup: 1})
		assert.ErrorIs(t, err, model.ErrTaskComplete)
	})

	t.Run("opens entry at current time", func(t *testing.T) {
		ledger, entries := newTestLedger(defaultTasks())

		result, err := ledger.ClockIn(ctx, ClockInParams{Worker: worker, TaskGID: "task-1", Branch: "north", AreaGroup: 1})
		require.NoError(t, err)

		assert.True(t, result.Entry.Open())
		require.NotNil(t, result.Entry.StartTime)
		assert.Equal(t, _testNow, *result.Entry.StartTime)
		assert.Equal(t, _testNow.Truncate(24*time.Hour), result.Entry.EntryDate)
		assert.Equal(t, int64(0), result.ElapsedSeconds)

		stored, err := entries.Get(ctx, result.Entry.ID)
		require.NoError(t, err)
		assert.True(t, stored.Open())
	})

	t.Run("explicit start time and images", func(t *testing.T) {
		ledger, entries := newTestLedger(defaultTasks())

		start := _testNow.Add(-30 * time.Minute)
		result, err := ledger.ClockIn(ctx, ClockInParams{
			Worker:    worker,
			TaskGID:   "task-1",
			Branch:    "north",
			AreaGroup: 1,
			StartTime: &start,
			ImageURLs: []string{"https://blob/a.jpg", "https://blob/b.jpg"},
		})
		require.NoError(t, err)

		assert.Equal(t, start, *result.Entry.StartTime)
		assert.Len(t, entries.images[result.Entry.ID], 2)
	})

	t.Run("second clock-in rejected", func(t *testing.T) {
		ledger, _ := newTestLedger(defaultTasks())

		_, err := ledger.ClockIn(ctx, ClockInParams{Worker: worker, TaskGID: "task-1", Branch: "north", AreaGroup: 1})
		require.NoError(t, err)

		_, err = ledger.ClockIn(ctx, ClockInParams{Worker: worker, TaskGID: "task-2", Branch: "north", AreaGroup: 1})
		assert.ErrorIs(t, err, model.ErrAlreadyClockedIn)
	})

	t.Run("reports previous session on same task", func(t *testing.T) {
		ledger, _ := newTestLedger(defaultTasks())

		start := _testNow.Add(-9 * time.Hour)
		_, err := ledger.ClockIn(ctx, ClockInParams{Worker: worker, TaskGID: "task-1", Branch: "north", AreaGroup: 1, StartTime: &start})
		require.NoError(t, err)

		end := start.Add(8 * time.Hour)
		_, err = ledger.ClockOut(ctx, worker, &end)
		require.NoError(t, err)

		result, err := ledger.ClockIn(ctx, ClockInParams{Worker: worker, TaskGID: "task-1", Branch: "north", AreaGroup: 1})
		require.NoError(t, err)
		assert.Equal(t, int64(8*3600), result.ElapsedSeconds)
	})
}

func TestLedger_ClockOut(t *testing.T) {
	ctx := context.Background()
	worker := uuid.New()

	t.Run("no open entry", func(t *testing.T) {
		ledger, _ := newTestLedger(defaultTasks())

		_, err := ledger.ClockOut(ctx, worker, nil)
		assert.ErrorIs(t, err, model.ErrNoOpenEntry)
	})

	t.Run("closes the same row", func(t *testing.T) {
		ledger, entries := newTestLedger(defaultTasks())

		start := _testNow.Add(-8 * time.Hour)
		in, err := ledger.ClockIn(ctx, ClockInParams{Worker: worker, TaskGID: "task-1", Branch: "north", AreaGroup: 1, StartTime: &start})
		require.NoError(t, err)

		out, err := ledger.ClockOut(ctx, worker, nil)
		require.NoError(t, err)

		assert.Equal(t, in.Entry.ID, out.Entry.ID)
		assert.Equal(t, int64(8*3600), out.ElapsedSeconds)
		assert.Len(t, entries.entries, 1)

		_, err = ledger.ClockOut(ctx, worker, nil)
		assert.ErrorIs(t, err, model.ErrNoOpenEntry)
	})

	t.Run("skewed end time clamps to zero", func(t *testing.T) {
		ledger, _ := newTestLedger(defaultTasks())

		_, err := ledger.ClockIn(ctx, ClockInParams{Worker: worker, TaskGID: "task-1", Branch: "north", AreaGroup: 1})
		require.NoError(t, err)

		end := _testNow.Add(-time.Hour)
		out, err := ledger.ClockOut(ctx, worker, &end)
		require.NoError(t, err)
		assert.Equal(t, int64(0), out.ElapsedSeconds)
	})
}

func TestLedger_RecentTasks(t *testing.T) {
	ctx := context.Background()
	worker := uuid.New()
	ledger, _ := newTestLedger(defaultTasks())

	clockSession := func(taskGID string, start time.Time, d time.Duration) {
		t.Helper()
		_, err := ledger.ClockIn(ctx, ClockInParams{Worker: worker, TaskGID: taskGID, Branch: "north", AreaGroup: 1, StartTime: &start})
		require.NoError(t, err)
		end := start.Add(d)
		_, err = ledger.ClockOut(ctx, worker, &end)
		require.NoError(t, err)
	}

	// Two sessions on task-1 inside the window, one on task-2, and one on
	// task-1 well before the window.
	clockSession("task-1", _testNow.Add(-48*time.Hour), 2*time.Hour)
	clockSession("task-1", _testNow.Add(-24*time.Hour), 3*time.Hour)
	clockSession("task-2", _testNow.Add(-12*time.Hour), 30*time.Minute)
	clockSession("task-1", _testNow.Add(-30*24*time.Hour), 5*time.Hour)

	tasks, err := ledger.RecentTasks(ctx, worker, 7)
	require.NoError(t, err)
	require.Len(t, tasks, 2)

	assert.Equal(t, "task-1", tasks[0].TaskGID)
	assert.Equal(t, "Sanding", tasks[0].TaskName)
	assert.Equal(t, int64(5*3600), tasks[0].TotalSeconds)
	assert.Equal(t, "05:00:00", tasks[0].TotalTime)

	assert.Equal(t, "task-2", tasks[1].TaskGID)
	assert.Equal(t, int64(1800), tasks[1].TotalSeconds)

	t.Run("wider window picks up the old session", func(t *testing.T) {
		tasks, err := ledger.RecentTasks(ctx, worker, 60)
		require.NoError(t, err)
		require.Len(t, tasks, 2)
		assert.Equal(t, int64(10*3600), tasks[0].TotalSeconds)
	})

	t.Run("open entry excluded", func(t *testing.T) {
		_, err := ledger.ClockIn(ctx, ClockInParams{Worker: worker, TaskGID: "task-2", Branch: "north", AreaGroup: 1})
		require.NoError(t, err)

		tasks, err := ledger.RecentTasks(ctx, worker, 7)
		require.NoError(t, err)
		assert.Equal(t, int64(1800), tasks[1].TotalSeconds)
	})
}

func TestLedger_MarkComplete(t *testing.T) {
	ctx := context.Background()
	tasks := defaultTasks()
	ledger, _ := newTestLedger(tasks)

	t.Run("unknown task", func(t *testing.T) {
		_, err := ledger.MarkComplete(ctx, "nope")
		assert.ErrorIs(t, err, model.ErrNotFound)
	})

	t.Run("completes and blocks clock-in", func(t *testing.T) {
		task, err := ledger.MarkComplete(ctx, "task-1")
		require.NoError(t, err)
		assert.True(t, task.Completed)

		_, err = ledger.ClockIn(ctx, ClockInParams{Worker: uuid.New(), TaskGID: "task-1", Branch: "north", AreaGroup: 1})
		assert.ErrorIs(t, err, model.ErrTaskComplete)
	})

	t.Run("idempotent", func(t *testing.T) {
		task, err := ledger.MarkComplete(ctx, "task-1")
		require.NoError(t, err)
		assert.True(t, task.Completed)
	})
}

func TestLedger_WorkersForTask(t *testing.T) {
	ctx := context.Background()
	ledger, _ := newTestLedger(defaultTasks())

	t.Run("no entries", func(t *testing.T) {
		_, err := ledger.WorkersForTask(ctx, "task-1")
		assert.ErrorIs(t, err, model.ErrNotFound)
	})

	t.Run("distinct workers", func(t *testing.T) {
		alice, bob := uuid.New(), uuid.New()

		for _, w := range []model.WorkerID{alice, bob} {
			start := _testNow.Add(-2 * time.Hour)
			_, err := ledger.ClockIn(ctx, ClockInParams{Worker: w, TaskGID: "task-1", Branch: "north", AreaGroup: 1, StartTime: &start})
			require.NoError(t, err)
			_, err = ledger.ClockOut(ctx, w, nil)
			require.NoError(t, err)
		}

		workers, err := ledger.WorkersForTask(ctx, "task-1")
		require.NoError(t, err)
		assert.Len(t, workers, 2)
	})
}

func TestLedger_TaskTimeSummary(t *testing.T) {
	ctx := context.Background()
	caller, other := uuid.New(), uuid.New()
	ledger, _ := newTestLedger(defaultTasks())

	t.Run("unknown task", func(t *testing.T) {
		_, err := ledger.TaskTimeSummary(ctx, caller, "nope")
		assert.ErrorIs(t, err, model.ErrNotFound)
	})

	clockSession := func(w model.WorkerID, start time.Time, d time.Duration) {
		t.Helper()
		_, err := ledger.ClockIn(ctx, ClockInParams{Worker: w, TaskGID: "task-1", Branch: "north", AreaGroup: 1, StartTime: &start})
		require.NoError(t, err)
		end := start.Add(d)
		_, err = ledger.ClockOut(ctx, w, &end)
		require.NoError(t, err)
	}

	// Caller: one session this month, one last month. Other worker: one
	// session last month that still counts toward their all-time total.
	clockSession(caller, _testNow.Add(-24*time.Hour), 2*time.Hour)
	clockSession(caller, _testNow.AddDate(0, -1, 0), 4*time.Hour)
	clockSession(other, _testNow.AddDate(0, -1, 0), 3*time.Hour)

	summary, err := ledger.TaskTimeSummary(ctx, caller, "task-1")
	require.NoError(t, err)

	assert.Equal(t, "task-1", summary.TaskGID)
	assert.Equal(t, int64(2*3600), summary.MonthSeconds)
	assert.Equal(t, "02:00:00", summary.MonthTime)

	require.Len(t, summary.Others, 1)
	assert.Equal(t, other, summary.Others[0].Worker)
	assert.Equal(t, int64(3*3600), summary.Others[0].TotalSeconds)

	t.Run("open entry counts to now", func(t *testing.T) {
		start := _testNow.Add(-time.Hour)
		_, err := ledger.ClockIn(ctx, ClockInParams{Worker: caller, TaskGID: "task-1", Branch: "north", AreaGroup: 1, StartTime: &start})
		require.NoError(t, err)

		summary, err := ledger.TaskTimeSummary(ctx, caller, "task-1")
		require.NoError(t, err)
		assert.Equal(t, int64(3*3600), summary.MonthSeconds)
	})
}
