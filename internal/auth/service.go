package auth

import (
	"context"
	"errors"
	"log/slog"

	"github.com/stairworks/timeclock/internal/database"
	"github.com/stairworks/timeclock/internal/model"
)

type WorkerStore interface {
	Get(ctx context.Context, id model.WorkerID) (model.Worker, error)
	Insert(ctx context.Context, dto database.InsertWorkerDTO) (model.WorkerID, error)
	SetPinHash(ctx context.Context, id model.WorkerID, hash string) error
}

type AdminStore interface {
	GetByUsername(ctx context.Context, username string) (model.Admin, error)
}

type DeviceStore interface {
	Get(ctx context.Context, id model.DeviceID) (model.Device, error)
	GetByDeviceID(ctx context.Context, deviceID string) (model.Device, error)
	DeviceIDExists(ctx context.Context, deviceID string) (bool, error)
	APIKeyExists(ctx context.Context, apiKey string) (bool, error)
	Insert(ctx context.Context, dto database.InsertDeviceDTO) (model.DeviceID, error)
	Link(ctx context.Context, device model.DeviceID, worker model.WorkerID) error
	LinkedWorker(ctx context.Context, device model.DeviceID) (model.Worker, error)
}

// Service implements device-bound and admin authentication on top of the
// credential and device stores.
type Service struct {
	Logger  *slog.Logger
	Hasher  Hasher
	Tokens  *TokenService
	Workers WorkerStore
	Admins  AdminStore
	Devices DeviceStore
}

func NewService(logger *slog.Logger, hasher Hasher, tokens *TokenService, workers WorkerStore, admins AdminStore, devices DeviceStore) *Service {
	return &Service{
		Logger:  logger.With("module", "auth"),
		Hasher:  hasher,
		Tokens:  tokens,
		Workers: workers,
		Admins:  admins,
		Devices: devices,
	}
}

type DeviceAuthResult struct {
	Token  string
	Worker model.Worker
}

// AuthenticateDevice validates a device identifier and PIN pair and issues a
// worker token. A worker whose PIN was never provisioned gets it set from
// this first call; the event is logged so provisioning stays auditable.
func (s *Service) AuthenticateDevice(ctx context.Context, deviceID, pin string) (DeviceAuthResult, error) {
	device, err := s.Devices.GetByDeviceID(ctx, deviceID)
	if err != nil {
		return DeviceAuthResult{}, err
	}

	worker, err := s.Devices.LinkedWorker(ctx, device.ID)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return DeviceAuthResult{}, model.ErrDeviceUnlinked
		}
		return DeviceAuthResult{}, err
	}

	if !worker.HasPin() {
		hash, err := s.Hasher.Hash(pin)
		if err != nil {
			return DeviceAuthResult{}, err
		}

		if err := s.Workers.SetPinHash(ctx, worker.ID, hash); err != nil {
			return DeviceAuthResult{}, err
		}
		worker.PinHash = &hash

		s.Logger.Warn("pin provisioned on first use",
			"workerId", worker.ID, "deviceId", device.DeviceID)
	} else if !s.Hasher.Verify(pin, *worker.PinHash) {
		return DeviceAuthResult{}, model.ErrInvalidPin
	}

	token, err := s.Tokens.IssueWorker(worker)
	if err != nil {
		return DeviceAuthResult{}, err
	}

	return DeviceAuthResult{Token: token, Worker: worker}, nil
}

// AuthenticateAdmin validates admin credentials. Unknown username and wrong
// password both come back as ErrInvalidCredentials so usernames cannot be
// enumerated.
func (s *Service) AuthenticateAdmin(ctx context.Context, username, password string) (string, error) {
	admin, err := s.Admins.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return "", model.ErrInvalidCredentials
		}
		return "", err
	}

	if !s.Hasher.Verify(password, admin.PasswordHash) {
		return "", model.ErrInvalidCredentials
	}

	return s.Tokens.IssueAdmin(admin)
}

// RegisterDevice provisions a new device. Identifier and API key collisions
// are checked independently and reported together in the returned field map;
// the unique constraints remain the authoritative guard under races.
func (s *Service) RegisterDevice(ctx context.Context, dto database.InsertDeviceDTO) (model.Device, map[string]string, error) {
	conflicts, err := s.deviceConflicts(ctx, dto)
	if err != nil {
		return model.Device{}, nil, err
	}
	if len(conflicts) > 0 {
		return model.Device{}, conflicts, nil
	}

	id, err := s.Devices.Insert(ctx, dto)
	if err != nil {
		if errors.Is(err, model.ErrExists) {
			// Lost the race past the fast-path check; re-read to report
			// the colliding fields.
			conflicts, cerr := s.deviceConflicts(ctx, dto)
			if cerr != nil {
				return model.Device{}, nil, cerr
			}
			if len(conflicts) > 0 {
				return model.Device{}, conflicts, nil
			}
		}
		return model.Device{}, nil, err
	}

	device, err := s.Devices.Get(ctx, id)
	if err != nil {
		return model.Device{}, nil, err
	}

	s.Logger.Info("device registered", "deviceId", device.DeviceID)

	return device, nil, nil
}

func (s *Service) deviceConflicts(ctx context.Context, dto database.InsertDeviceDTO) (map[string]string, error) {
	conflicts := map[string]string{}

	exists, err := s.Devices.DeviceIDExists(ctx, dto.DeviceID)
	if err != nil {
		return nil, err
	}
	if exists {
		conflicts["device_id"] = "a device with this identifier already exists"
	}

	exists, err = s.Devices.APIKeyExists(ctx, dto.APIKey)
	if err != nil {
		return nil, err
	}
	if exists {
		conflicts["api_key"] = "a device with this API key already exists"
	}

	return conflicts, nil
}

// LinkDevice assigns a device to a worker. A device already linked to a
// worker cannot be linked again.
func (s *Service) LinkDevice(ctx context.Context, deviceID string, workerID model.WorkerID) error {
	device, err := s.Devices.GetByDeviceID(ctx, deviceID)
	if err != nil {
		return err
	}

	if _, err := s.Workers.Get(ctx, workerID); err != nil {
		return err
	}

	if err := s.Devices.Link(ctx, device.ID, workerID); err != nil {
		return err
	}

	s.Logger.Info("device linked", "deviceId", device.DeviceID, "workerId", workerID)

	return nil
}

// RegisterWorker creates a worker record with no PIN; the PIN is provisioned
// later through a linked device.
func (s *Service) RegisterWorker(ctx context.Context, dto database.InsertWorkerDTO) (model.Worker, error) {
	id, err := s.Workers.Insert(ctx, dto)
	if err != nil {
		return model.Worker{}, err
	}

	return s.Workers.Get(ctx, id)
}

// SetPin provisions the PIN of the worker linked to the device. The call is
// rejected once a PIN exists: callers cannot overwrite a set PIN, and
// retrying a successful call fails with ErrPinAlreadySet.
func (s *Service) SetPin(ctx context.Context, workerID model.WorkerID, deviceID, pin string) error {
	device, err := s.Devices.GetByDeviceID(ctx, deviceID)
	if err != nil {
		return err
	}

	worker, err := s.Devices.LinkedWorker(ctx, device.ID)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return model.ErrDeviceUnlinked
		}
		return err
	}

	// A device linked to somebody else is as good as unlinked from the
	// caller's point of view.
	if worker.ID != workerID {
		return model.ErrDeviceUnlinked
	}

	if worker.HasPin() {
		return model.ErrPinAlreadySet
	}

	hash, err := s.Hasher.Hash(pin)
	if err != nil {
		return err
	}

	return s.Workers.SetPinHash(ctx, worker.ID, hash)
}
