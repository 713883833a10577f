package database

import (
	"context"
	"log/slog"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/stairworks/timeclock/internal/model"
)

type EntryDAO struct {
	Logger *slog.Logger
	*DB
}

func NewEntryDAO(logger *slog.Logger, db *DB) *EntryDAO {
	return &EntryDAO{
		Logger: logger.With("dao", "entry"),
		DB:     db,
	}
}

// Open returns the worker's entry with no end time, if any. The partial
// unique index guarantees there is at most one.
func (dao *EntryDAO) Open(ctx context.Context, worker model.WorkerID) (model.TrackingEntry, error) {
	logger := dao.Logger.With("query", "open")

	query, args, err := dao.Builder.
		Select("*").
		From("tracking_entries").
		Where(squirrel.Eq{"worker_id": worker}).
		Where("end_time IS NULL").
		OrderBy("start_time DESC").
		Limit(1).
		ToSql()
	if err != nil {
		return model.TrackingEntry{}, err
	}

	logger.Debug("build query", "sql", query, "args", args)

	var entry model.TrackingEntry
	row := dao.QueryRowxContext(ctx, query, args...)
	if err := row.StructScan(&entry); err != nil {
		if IsNoRows(err) {
			return model.TrackingEntry{}, model.NewError("entry", model.ErrNotFound)
		}

		logger.Warn("failed query execute", "error", err)

		return model.TrackingEntry{}, err
	}

	return entry, nil
}

func (dao *EntryDAO) Get(ctx context.Context, id model.EntryID) (model.TrackingEntry, error) {
	logger := dao.Logger.With("query", "get")

	query, args, err := dao.Builder.
		Select("*").
		From("tracking_entries").
		Where(squirrel.Eq{"id": id}).
		Limit(1).
		ToSql()
	if err != nil {
		return model.TrackingEntry{}, err
	}

	logger.Debug("build query", "sql", query, "args", args)

	var entry model.TrackingEntry
	row := dao.QueryRowxContext(ctx, query, args...)
	if err := row.StructScan(&entry); err != nil {
		if IsNoRows(err) {
			return model.TrackingEntry{}, model.NewError("entry", model.ErrNotFound)
		}

		logger.Warn("failed query execute", "error", err)

		return model.TrackingEntry{}, err
	}

	return entry, nil
}

type InsertEntryDTO struct {
	Worker    model.WorkerID
	TaskGID   string
	Branch    string
	AreaGroup int64
	EntryDate time.Time
	StartTime time.Time
	Comment   *string
}

// Insert creates an open entry. A unique violation on the one-open-entry
// index surfaces as ErrExists; callers treat it as an already-clocked-in
// conflict, which makes the index the authoritative guard under races.
func (dao *EntryDAO) Insert(ctx context.Context, dto InsertEntryDTO) (model.EntryID, error) {
	logger := dao.Logger.With("query", "insert")

	query, args, err := dao.Builder.
		Insert("tracking_entries").
		Columns("entry_date", "branch_name", "area_group_id", "worker_id", "task_gid", "start_time", "comment").
		Values(dto.EntryDate, dto.Branch, dto.AreaGroup, dto.Worker, dto.TaskGID, dto.StartTime, dto.Comment).
		Suffix("RETURNING id").
		ToSql()
	if err != nil {
		return 0, err
	}

	logger.Debug("build query", "sql", query, "args", args)

	var id model.EntryID
	row := dao.QueryRowxContext(ctx, query, args...)
	if err := row.Scan(&id); err != nil {
		logger.Warn("failed query execute", "error", err)

		if IsUniqueViolation(err) {
			return 0, model.NewError("entry", model.ErrExists)
		}

		return 0, err
	}

	return id, nil
}

func (dao *EntryDAO) Close(ctx context.Context, id model.EntryID, end time.Time) error {
	logger := dao.Logger.With("query", "close")

	query, args, err := dao.Builder.
		Update("tracking_entries").
		Set("end_time", end).
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return err
	}

	logger.Debug("build query", "sql", query, "args", args)

	if _, err := dao.ExecContext(ctx, query, args...); err != nil {
		logger.Warn("failed query execute", "error", err)
		return err
	}

	return nil
}

// LastClosed returns the worker's most recently finished entry on a task.
func (dao *EntryDAO) LastClosed(ctx context.Context, worker model.WorkerID, taskGID string) (model.TrackingEntry, error) {
	logger := dao.Logger.With("query", "lastClosed")

	query, args, err := dao.Builder.
		Select("*").
		From("tracking_entries").
		Where(squirrel.Eq{"worker_id": worker, "task_gid": taskGID}).
		Where("end_time IS NOT NULL").
		OrderBy("end_time DESC").
		Limit(1).
		ToSql()
	if err != nil {
		return model.TrackingEntry{}, err
	}

	logger.Debug("build query", "sql", query, "args", args)

	var entry model.TrackingEntry
	row := dao.QueryRowxContext(ctx, query, args...)
	if err := row.StructScan(&entry); err != nil {
		if IsNoRows(err) {
			return model.TrackingEntry{}, model.NewError("entry", model.ErrNotFound)
		}

		logger.Warn("failed query execute", "error", err)

		return model.TrackingEntry{}, err
	}

	return entry, nil
}

// ClosedSince returns the worker's finished entries with an entry date on or
// after the given day, joined with their task reference data.
func (dao *EntryDAO) ClosedSince(ctx context.Context, worker model.WorkerID, since time.Time) ([]model.EntryWithTask, error) {
	logger := dao.Logger.With("query", "closedSince")

	query, args, err := dao.Builder.
		Select("e.*", "t.name AS task_name", "t.category AS task_category").
		From("tracking_entries e").
		Join("tasks t ON t.gid = e.task_gid").
		Where(squirrel.Eq{"e.worker_id": worker}).
		Where(squirrel.GtOrEq{"e.entry_date": since}).
		Where("e.end_time IS NOT NULL").
		OrderBy("e.start_time ASC").
		ToSql()
	if err != nil {
		return nil, err
	}

	logger.Debug("build query", "sql", query, "args", args)

	entries := []model.EntryWithTask{}
	if err := dao.SelectContext(ctx, &entries, query, args...); err != nil {
		if IsNoRows(err) {
			return entries, nil
		}

		logger.Warn("failed query execute", "error", err)

		return nil, err
	}

	return entries, nil
}

func (dao *EntryDAO) ForTask(ctx context.Context, taskGID string) ([]model.TrackingEntry, error) {
	logger := dao.Logger.With("query", "forTask")

	query, args, err := dao.Builder.
		Select("*").
		From("tracking_entries").
		Where(squirrel.Eq{"task_gid": taskGID}).
		OrderBy("start_time ASC").
		ToSql()
	if err != nil {
		return nil, err
	}

	logger.Debug("build query", "sql", query, "args", args)

	entries := []model.TrackingEntry{}
	if err := dao.SelectContext(ctx, &entries, query, args...); err != nil {
		if IsNoRows(err) {
			return entries, nil
		}

		logger.Warn("failed query execute", "error", err)

		return nil, err
	}

	return entries, nil
}

// WorkersForTask returns the distinct workers with any entry, open or
// closed, against the task.
func (dao *EntryDAO) WorkersForTask(ctx context.Context, taskGID string) ([]model.Worker, error) {
	logger := dao.Logger.With("query", "workersForTask")

	query, args, err := dao.Builder.
		Select("DISTINCT w.*").
		From("tracking_entries e").
		Join("workers w ON w.id = e.worker_id").
		Where(squirrel.Eq{"e.task_gid": taskGID}).
		ToSql()
	if err != nil {
		return nil, err
	}

	logger.Debug("build query", "sql", query, "args", args)

	workers := []model.Worker{}
	if err := dao.SelectContext(ctx, &workers, query, args...); err != nil {
		if IsNoRows(err) {
			return workers, nil
		}

		logger.Warn("failed query execute", "error", err)

		return nil, err
	}

	return workers, nil
}

func (dao *EntryDAO) AddImages(ctx context.Context, id model.EntryID, urls []string) error {
	if len(urls) == 0 {
		return nil
	}

	logger := dao.Logger.With("query", "addImages")

	builder := dao.Builder.
		Insert("entry_images").
		Columns("entry_id", "image_url")
	for _, url := range urls {
		builder = builder.Values(id, url)
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return err
	}

	logger.Debug("build query", "sql", query, "args", args)

	if _, err := dao.ExecContext(ctx, query, args...); err != nil {
		logger.Warn("failed query execute", "error", err)
		return err
	}

	return nil
}
