package tracker

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"

	"github.com/stairworks/timeclock/internal/database"
	"github.com/stairworks/timeclock/internal/model"
)

const DefaultWindowDays = 7

type EntryStore interface {
	Open(ctx context.Context, worker model.WorkerID) (model.TrackingEntry, error)
	Get(ctx context.Context, id model.EntryID) (model.TrackingEntry, error)
	Insert(ctx context.Context, dto database.InsertEntryDTO) (model.EntryID, error)
	Close(ctx context.Context, id model.EntryID, end time.Time) error
	LastClosed(ctx context.Context, worker model.WorkerID, taskGID string) (model.TrackingEntry, error)
	ClosedSince(ctx context.Context, worker model.WorkerID, since time.Time) ([]model.EntryWithTask, error)
	ForTask(ctx context.Context, taskGID string) ([]model.TrackingEntry, error)
	WorkersForTask(ctx context.Context, taskGID string) ([]model.Worker, error)
	AddImages(ctx context.Context, id model.EntryID, urls []string) error
}

type TaskStore interface {
	Get(ctx context.Context, gid string) (model.Task, error)
	SetCompleted(ctx context.Context, gid string) error
}

// Ledger is the clock-in/clock-out state machine. Per worker there are two
// states: clocked out (no open entry) and clocked in (exactly one entry with
// a null end time).
type Ledger struct {
	Logger  *slog.Logger
	Entries EntryStore
	Tasks   TaskStore

	now func() time.Time
}

func NewLedger(logger *slog.Logger, entries EntryStore, tasks TaskStore) *Ledger {
	return &Ledger{
		Logger:  logger.With("module", "tracker"),
		Entries: entries,
		Tasks:   tasks,
		now:     time.Now,
	}
}

type ClockInParams struct {
	Worker    model.WorkerID
	TaskGID   string
	Branch    string
	AreaGroup int64
	StartTime *time.Time
	Comment   *string
	ImageURLs []string
}

type ClockResult struct {
	Entry model.TrackingEntry

	// ElapsedSeconds is the duration of the worker's most recently closed
	// entry on the task: on clock-out the session just finished, on
	// clock-in the previous session for display continuity.
	ElapsedSeconds int64

	RecentTasks []TaskTime
}

// ClockIn opens a new ledger entry for the worker. The worker must be
// clocked out and the task must not be complete.
func (l *Ledger) ClockIn(ctx context.Context, p ClockInParams) (ClockResult, error) {
	task, err := l.Tasks.Get(ctx, p.TaskGID)
	if err != nil {
		return ClockResult{}, err
	}
	if task.Completed {
		return ClockResult{}, model.ErrTaskComplete
	}

	if _, err := l.Entries.Open(ctx, p.Worker); err == nil {
		return ClockResult{}, model.ErrAlreadyClockedIn
	} else if !errors.Is(err, model.ErrNotFound) {
		return ClockResult{}, err
	}

	start := l.now()
	if p.StartTime != nil {
		start = *p.StartTime
	}

	id, err := l.Entries.Insert(ctx, database.InsertEntryDTO{
		Worker:    p.Worker,
		TaskGID:   p.TaskGID,
		Branch:    p.Branch,
		AreaGroup: p.AreaGroup,
		EntryDate: start.Truncate(24 * time.Hour),
		StartTime: start,
		Comment:   p.Comment,
	})
	if err != nil {
		// The one-open-entry index caught a concurrent clock-in that
		// slipped past the check above.
		if errors.Is(err, model.ErrExists) {
			return ClockResult{}, model.ErrAlreadyClockedIn
		}
		return ClockResult{}, err
	}

	if err := l.Entries.AddImages(ctx, id, p.ImageURLs); err != nil {
		return ClockResult{}, err
	}

	entry, err := l.Entries.Get(ctx, id)
	if err != nil {
		return ClockResult{}, err
	}

	result := ClockResult{Entry: entry}

	if last, err := l.Entries.LastClosed(ctx, p.Worker, p.TaskGID); err == nil {
		result.ElapsedSeconds = ElapsedSeconds(*last.StartTime, *last.EndTime)
	} else if !errors.Is(err, model.ErrNotFound) {
		return ClockResult{}, err
	}

	result.RecentTasks, err = l.RecentTasks(ctx, p.Worker, DefaultWindowDays)
	if err != nil {
		return ClockResult{}, err
	}

	l.Logger.Info("clock in", "workerId", p.Worker, "taskGid", p.TaskGID, "entryId", id)

	return result, nil
}

// ClockOut closes the worker's open entry. The same row is updated; no new
// row is inserted.
func (l *Ledger) ClockOut(ctx context.Context, worker model.WorkerID, endTime *time.Time) (ClockResult, error) {
	open, err := l.Entries.Open(ctx, worker)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return ClockResult{}, model.ErrNoOpenEntry
		}
		return ClockResult{}, err
	}

	end := l.now()
	if endTime != nil {
		end = *endTime
	}

	if err := l.Entries.Close(ctx, open.ID, end); err != nil {
		return ClockResult{}, err
	}

	open.EndTime = &end

	result := ClockResult{
		Entry:          open,
		ElapsedSeconds: ElapsedSeconds(*open.StartTime, end),
	}

	result.RecentTasks, err = l.RecentTasks(ctx, worker, DefaultWindowDays)
	if err != nil {
		return ClockResult{}, err
	}

	l.Logger.Info("clock out", "workerId", worker, "entryId", open.ID, "elapsedSeconds", result.ElapsedSeconds)

	return result, nil
}

// MarkComplete locks a task against further entries. There is no reopen;
// completion is irreversible. Completing an already-complete task is a
// no-op success.
func (l *Ledger) MarkComplete(ctx context.Context, taskGID string) (model.Task, error) {
	task, err := l.Tasks.Get(ctx, taskGID)
	if err != nil {
		return model.Task{}, err
	}

	if !task.Completed {
		if err := l.Tasks.SetCompleted(ctx, taskGID); err != nil {
			return model.Task{}, err
		}
		task.Completed = true

		l.Logger.Info("task completed", "taskGid", taskGID)
	}

	return task, nil
}

type TaskTime struct {
	TaskGID      string  `json:"taskGid"`
	TaskName     string  `json:"taskName"`
	TaskCategory *string `json:"taskCategory,omitempty"`
	TotalSeconds int64   `json:"totalSeconds"`
	TotalTime    string  `json:"totalTime"`
}

// RecentTasks lists the distinct tasks the worker touched within the
// trailing window, each with the summed elapsed time of all its closed
// entries in the window.
func (l *Ledger) RecentTasks(ctx context.Context, worker model.WorkerID, windowDays int) ([]TaskTime, error) {
	if windowDays <= 0 {
		windowDays = DefaultWindowDays
	}

	since := l.now().AddDate(0, 0, -windowDays).Truncate(24 * time.Hour)

	entries, err := l.Entries.ClosedSince(ctx, worker, since)
	if err != nil {
		return nil, err
	}

	byTask := make(map[string]*TaskTime, len(entries))
	for _, entry := range entries {
		if entry.StartTime == nil || entry.EndTime == nil {
			continue
		}

		tt, ok := byTask[entry.TaskGID]
		if !ok {
			tt = &TaskTime{
				TaskGID:      entry.TaskGID,
				TaskName:     entry.TaskName,
				TaskCategory: entry.TaskCategory,
			}
			byTask[entry.TaskGID] = tt
		}

		tt.TotalSeconds += ElapsedSeconds(*entry.StartTime, *entry.EndTime)
	}

	gids := maps.Keys(byTask)
	slices.Sort(gids)

	tasks := make([]TaskTime, 0, len(gids))
	for _, gid := range gids {
		tt := *byTask[gid]
		tt.TotalTime = FormatTotal(tt.TotalSeconds)
		tasks = append(tasks, tt)
	}

	return tasks, nil
}

// WorkersForTask returns the distinct workers with any entry against the
// task, or ErrNotFound when the task has no entries at all.
func (l *Ledger) WorkersForTask(ctx context.Context, taskGID string) ([]model.Worker, error) {
	workers, err := l.Entries.WorkersForTask(ctx, taskGID)
	if err != nil {
		return nil, err
	}

	if len(workers) == 0 {
		return nil, model.NewError("entries", model.ErrNotFound)
	}

	return workers, nil
}

type WorkerTime struct {
	Worker       model.WorkerID `json:"workerId"`
	TotalSeconds int64          `json:"totalSeconds"`
	TotalTime    string         `json:"totalTime"`
}

type TaskTimeSummary struct {
	TaskGID      string       `json:"taskGid"`
	MonthSeconds int64        `json:"monthSeconds"`
	MonthTime    string       `json:"monthTime"`
	Others       []WorkerTime `json:"others"`
}

// TaskTimeSummary aggregates time on a task: the calling worker's total for
// the current month plus the all-time totals of everyone else. Open entries
// count up to now.
func (l *Ledger) TaskTimeSummary(ctx context.Context, worker model.WorkerID, taskGID string) (TaskTimeSummary, error) {
	if _, err := l.Tasks.Get(ctx, taskGID); err != nil {
		return TaskTimeSummary{}, err
	}

	entries, err := l.Entries.ForTask(ctx, taskGID)
	if err != nil {
		return TaskTimeSummary{}, err
	}

	now := l.now()
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())

	summary := TaskTimeSummary{TaskGID: taskGID}
	othersByWorker := map[model.WorkerID]int64{}

	for _, entry := range entries {
		if entry.StartTime == nil {
			continue
		}

		end := now
		if entry.EndTime != nil {
			end = *entry.EndTime
		}
		seconds := ElapsedSeconds(*entry.StartTime, end)

		if entry.Worker == worker {
			if !entry.StartTime.Before(monthStart) {
				summary.MonthSeconds += seconds
			}
		} else {
			othersByWorker[entry.Worker] += seconds
		}
	}

	summary.MonthTime = FormatTotal(summary.MonthSeconds)

	ids := maps.Keys(othersByWorker)
	slices.SortFunc(ids, func(a, b model.WorkerID) int {
		return slices.Compare(a[:], b[:])
	})

	summary.Others = make([]WorkerTime, 0, len(ids))
	for _, id := range ids {
		summary.Others = append(summary.Others, WorkerTime{
			Worker:       id,
			TotalSeconds: othersByWorker[id],
			TotalTime:    FormatTotal(othersByWorker[id]),
		})
	}

	return summary, nil
}
