package database

import (
	"context"
	"log/slog"

	"github.com/Masterminds/squirrel"
	"github.com/stairworks/timeclock/internal/model"
)

type AdminDAO struct {
	Logger *slog.Logger
	*DB
}

func NewAdminDAO(logger *slog.Logger, db *DB) *AdminDAO {
	return &AdminDAO{
		Logger: logger.With("dao", "admin"),
		DB:     db,
	}
}

func (dao *AdminDAO) GetByUsername(ctx context.Context, username string) (model.Admin, error) {
	logger := dao.Logger.With("query", "getByUsername")

	query, args, err := dao.Builder.
		Select("*").
		From("admins").
		Where(squirrel.Eq{"username": username}).
		Limit(1).
		ToSql()
	if err != nil {
		return model.Admin{}, err
	}

	logger.Debug("build query", "sql", query, "args", args)

	var admin model.Admin
	row := dao.QueryRowxContext(ctx, query, args...)
	if err := row.StructScan(&admin); err != nil {
		if IsNoRows(err) {
			return model.Admin{}, model.NewError("admin", model.ErrNotFound)
		}

		logger.Warn("failed query execute", "error", err)

		return model.Admin{}, err
	}

	return admin, nil
}

type InsertAdminDTO struct {
	Username     string
	PasswordHash string
}

func (dao *AdminDAO) Insert(ctx context.Context, dto InsertAdminDTO) (int64, error) {
	logger := dao.Logger.With("query", "insert")

	query, args, err := dao.Builder.
		Insert("admins").
		Columns("username", "password_hash").
		Values(dto.Username, dto.PasswordHash).
		Suffix("RETURNING id").
		ToSql()
	if err != nil {
		return 0, err
	}

	logger.Debug("build query", "sql", query, "args", args)

	var id int64
	row := dao.QueryRowxContext(ctx, query, args...)
	if err := row.Scan(&id); err != nil {
		logger.Warn("failed query execute", "error", err)

		if IsUniqueViolation(err) {
			return 0, model.NewError("admin", model.ErrExists)
		}

		return 0, err
	}

	return id, nil
}
