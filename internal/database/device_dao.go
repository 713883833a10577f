package database

import (
	"context"
	"log/slog"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/stairworks/timeclock/internal/model"
)

type DeviceDAO struct {
	Logger *slog.Logger
	*DB
}

func NewDeviceDAO(logger *slog.Logger, db *DB) *DeviceDAO {
	return &DeviceDAO{
		Logger: logger.With("dao", "device"),
		DB:     db,
	}
}

func (dao *DeviceDAO) Get(ctx context.Context, id model.DeviceID) (model.Device, error) {
	logger := dao.Logger.With("query", "get")

	query, args, err := dao.Builder.
		Select("*").
		From("devices").
		Where(squirrel.Eq{"id": id}).
		Limit(1).
		ToSql()
	if err != nil {
		return model.Device{}, err
	}

	logger.Debug("build query", "sql", query, "args", args)

	var device model.Device
	row := dao.QueryRowxContext(ctx, query, args...)
	if err := row.StructScan(&device); err != nil {
		if IsNoRows(err) {
			return model.Device{}, model.NewError("device", model.ErrNotFound)
		}

		logger.Warn("failed query execute", "error", err)

		return model.Device{}, err
	}

	return device, nil
}

func (dao *DeviceDAO) GetByDeviceID(ctx context.Context, deviceID string) (model.Device, error) {
	logger := dao.Logger.With("query", "getByDeviceId")

	query, args, err := dao.Builder.
		Select("*").
		From("devices").
		Where(squirrel.Eq{"device_id": deviceID}).
		Limit(1).
		ToSql()
	if err != nil {
		return model.Device{}, err
	}

	logger.Debug("build query", "sql", query, "args", args)

	var device model.Device
	row := dao.QueryRowxContext(ctx, query, args...)
	if err := row.StructScan(&device); err != nil {
		if IsNoRows(err) {
			return model.Device{}, model.NewError("device", model.ErrNotFound)
		}

		logger.Warn("failed query execute", "error", err)

		return model.Device{}, err
	}

	return device, nil
}

func (dao *DeviceDAO) DeviceIDExists(ctx context.Context, deviceID string) (bool, error) {
	return dao.exists(ctx, squirrel.Eq{"device_id": deviceID})
}

func (dao *DeviceDAO) APIKeyExists(ctx context.Context, apiKey string) (bool, error) {
	return dao.exists(ctx, squirrel.Eq{"api_key": apiKey})
}

func (dao *DeviceDAO) exists(ctx context.Context, pred squirrel.Eq) (bool, error) {
	logger := dao.Logger.With("query", "exists")

	query, args, err := dao.Builder.
		Select("count(1)").
		From("devices").
		Where(pred).
		ToSql()
	if err != nil {
		return false, err
	}

	logger.Debug("build query", "sql", query, "args", args)

	var count int
	row := dao.QueryRowxContext(ctx, query, args...)
	if err := row.Scan(&count); err != nil {
		logger.Warn("failed query execute", "error", err)
		return false, err
	}

	return count > 0, nil
}

type InsertDeviceDTO struct {
	DeviceID string
	APIKey   string
	APIURL   *string
}

func (dao *DeviceDAO) Insert(ctx context.Context, dto InsertDeviceDTO) (model.DeviceID, error) {
	logger := dao.Logger.With("query", "insert")

	id := uuid.New()

	query, args, err := dao.Builder.
		Insert("devices").
		Columns("id", "device_id", "api_key", "api_url").
		Values(id, dto.DeviceID, dto.APIKey, dto.APIURL).
		ToSql()
	if err != nil {
		return model.DeviceID{}, err
	}

	logger.Debug("build query", "sql", query, "args", args)

	if _, err := dao.ExecContext(ctx, query, args...); err != nil {
		logger.Warn("failed query execute", "error", err)

		if IsUniqueViolation(err) {
			return model.DeviceID{}, model.NewError("device", model.ErrExists)
		}

		return model.DeviceID{}, err
	}

	return id, nil
}

func (dao *DeviceDAO) Link(ctx context.Context, device model.DeviceID, worker model.WorkerID) error {
	logger := dao.Logger.With("query", "link")

	query, args, err := dao.Builder.
		Insert("device_links").
		Columns("device_ref", "worker_id").
		Values(device, worker).
		ToSql()
	if err != nil {
		return err
	}

	logger.Debug("build query", "sql", query, "args", args)

	if _, err := dao.ExecContext(ctx, query, args...); err != nil {
		logger.Warn("failed query execute", "error", err)

		if IsUniqueViolation(err) {
			return model.NewError("device link", model.ErrExists)
		}

		return err
	}

	return nil
}

// LinkedWorker resolves the worker a device is assigned to. A device that
// exists but has no link yields ErrNotFound wrapped as "device link", which
// callers translate to the unlinked-device failure.
func (dao *DeviceDAO) LinkedWorker(ctx context.Context, device model.DeviceID) (model.Worker, error) {
	logger := dao.Logger.With("query", "linkedWorker")

	query, args, err := dao.Builder.
		Select("w.*").
		From("device_links l").
		Join("workers w ON w.id = l.worker_id").
		Where(squirrel.Eq{"l.device_ref": device}).
		Where("w.deleted_at IS NULL").
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
			return model.Worker{}, model.NewError("device link", model.ErrNotFound)
		}

		logger.Warn("failed query execute", "error", err)

		return model.Worker{}, err
	}

	return worker, nil
}
