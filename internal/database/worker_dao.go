package database

import (
	"context"
	"log/slog"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/stairworks/timeclock/internal/model"
)

type WorkerDAO struct {
	Logger *slog.Logger
	*DB
}

func NewWorkerDAO(logger *slog.Logger, db *DB) *WorkerDAO {
	return &WorkerDAO{
		Logger: logger.With("dao", "worker"),
		DB:     db,
	}
}

func (dao *WorkerDAO) Get(ctx context.Context, id model.WorkerID) (model.Worker, error) {
	logger := dao.Logger.With("query", "get")

	query, args, err := dao.Builder.
		Select("*").
		From("workers").
		Where(squirrel.Eq{"id": id}).
		Where("deleted_at IS NULL").
		Limit(1).
		ToSql()
	if err != nil {
		return model.Worker{}, err
	}

	logger.Debug("build query", "sql", query, "args", args)

	var worker model.Worker
	row := dao.QueryRowxContext(ctx, query, args...)
	if err := row.StructScan(&worker); err != nil {
		logger.Warn("failed query execute", "error", err)

		if IsNoRows(err) {
			return model.Worker{}, model.NewError("worker", model.ErrNotFound)
		}

		return model.Worker{}, err
	}

	return worker, nil
}

func (dao *WorkerDAO) GetByUsername(ctx context.Context, username string) (model.Worker, error) {
	logger := dao.Logger.With("query", "getByUsername")

	query, args, err := dao.Builder.
		Select("*").
		From("workers").
		Where(squirrel.Eq{"username": username}).
		Where("deleted_at IS NULL").
		Limit(1).
		ToSql()
	if err != nil {
		return model.Worker{}, err
	}

	logger.Debug("build query", "sql", query, "args", args)

	var worker model.Worker
	row := dao.QueryRowxContext(ctx, query, args...)
	if err := row.StructScan(&worker); err != nil {
		if IsNoRows(err) {
			return model.Worker{}, model.NewError("worker", model.ErrNotFound)
		}

		logger.Warn("failed query execute", "error", err)

		return model.Worker{}, err
	}

	return worker, nil
}

type InsertWorkerDTO struct {
	Username string
	Name     string
	Role     model.Role
	Branch   *string
}

func (dao *WorkerDAO) Insert(ctx context.Context, dto InsertWorkerDTO) (model.WorkerID, error) {
	logger := dao.Logger.With("query", "insert")

	id := uuid.New()

	query, args, err := dao.Builder.
		Insert("workers").
		Columns("id", "username", "name", "role", "branch_name").
		Values(id, dto.Username, dto.Name, dto.Role, dto.Branch).
		ToSql()
	if err != nil {
		return model.WorkerID{}, err
	}

	logger.Debug("build query", "sql", query, "args", args)

	if _, err := dao.ExecContext(ctx, query, args...); err != nil {
		logger.Warn("failed query execute", "error", err)

		if IsUniqueViolation(err) {
			return model.WorkerID{}, model.NewError("worker", model.ErrExists)
		}

		return model.WorkerID{}, err
	}

	return id, nil
}

func (dao *WorkerDAO) SetPinHash(ctx context.Context, id model.WorkerID, hash string) error {
	logger := dao.Logger.With("query", "setPinHash")

	query, args, err := dao.Builder.
		Update("workers").
		SetMap(map[string]any{
			"pin_hash":   hash,
			"updated_at": time.Now(),
		}).
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
