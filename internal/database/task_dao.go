package database

import (
	"context"
	"log/slog"

	"github.com/Masterminds/squirrel"
	"github.com/stairworks/timeclock/internal/model"
)

type TaskDAO struct {
	Logger *slog.Logger
	*DB
}

func NewTaskDAO(logger *slog.Logger, db *DB) *TaskDAO {
	return &TaskDAO{
		Logger: logger.With("dao", "task"),
		DB:     db,
	}
}

func (dao *TaskDAO) Get(ctx context.Context, gid string) (model.Task, error) {
	logger := dao.Logger.With("query", "get")

	query, args, err := dao.Builder.
		Select("*").
		From("tasks").
		Where(squirrel.Eq{"gid": gid}).
		Limit(1).
		ToSql()
	if err != nil {
		return model.Task{}, err
	}

	logger.Debug("build query", "sql", query, "args", args)

	var task model.Task
	row := dao.QueryRowxContext(ctx, query, args...)
	if err := row.StructScan(&task); err != nil {
		if IsNoRows(err) {
			return model.Task{}, model.NewError("task", model.ErrNotFound)
		}

		logger.Warn("failed query execute", "error", err)

		return model.Task{}, err
	}

	return task, nil
}

func (dao *TaskDAO) SetCompleted(ctx context.Context, gid string) error {
	logger := dao.Logger.With("query", "setCompleted")

	query, args, err := dao.Builder.
		Update("tasks").
		Set("completed", true).
		Where(squirrel.Eq{"gid": gid}).
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
