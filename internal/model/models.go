package model

import (
	"time"

	"github.com/google/uuid"
)

type (
	WorkerID = uuid.UUID
	DeviceID = uuid.UUID
	EntryID  = int64
)

type Role string

const (
	RoleWorker     Role = "worker"
	RoleSupervisor Role = "supervisor"
)

// Worker is a tracked individual. PinHash stays nil until the PIN is
// provisioned; the plaintext PIN is never stored.
type Worker struct {
	ID        WorkerID   `json:"id" db:"id"`
	CreatedAt time.Time  `json:"createdAt" db:"created_at"`
	UpdatedAt time.Time  `json:"updatedAt" db:"updated_at"`
	DeletedAt *time.Time `json:"-" db:"deleted_at"`

	Username string  `json:"username" db:"username"`
	Name     string  `json:"name" db:"name"`
	PinHash  *string `json:"-" db:"pin_hash"`
	Role     Role    `json:"role" db:"role"`
	Branch   *string `json:"branch,omitempty" db:"branch_name"`
}

// HasPin reports whether the worker's PIN has been provisioned.
func (w Worker) HasPin() bool {
	return w.PinHash != nil && *w.PinHash != ""
}

// Admin is a console operator. Admins live in a separate credential space
// from workers and carry their own token claim shape.
type Admin struct {
	ID           int64     `json:"id" db:"id"`
	CreatedAt    time.Time `json:"createdAt" db:"created_at"`
	Username     string    `json:"username" db:"username"`
	PasswordHash string    `json:"-" db:"password_hash"`
}

type Device struct {
	ID        DeviceID  `json:"id" db:"id"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt time.Time `json:"updatedAt" db:"updated_at"`

	DeviceID string  `json:"deviceId" db:"device_id"`
	APIKey   string  `json:"-" db:"api_key"`
	APIURL   *string `json:"apiUrl,omitempty" db:"api_url"`
}

// DeviceLink assigns a device to a worker. A device is linked to at most
// one worker at a time.
type DeviceLink struct {
	ID         int64     `json:"id" db:"id"`
	Device     DeviceID  `json:"deviceId" db:"device_ref"`
	Worker     WorkerID  `json:"workerId" db:"worker_id"`
	AssignedAt time.Time `json:"assignedAt" db:"assigned_at"`
}

type Branch struct {
	Name  string `json:"name" db:"name"`
	State string `json:"state" db:"state"`
}

// AreaGroup is a resource/area grouping on the factory floor.
type AreaGroup struct {
	ID       int64  `json:"id" db:"id"`
	Name     string `json:"name" db:"name"`
	Category string `json:"category" db:"category"`
}

// Task is a unit of work tracked by an external integration identifier.
// Once Completed is set no further tracking entries are accepted.
type Task struct {
	GID       string  `json:"gid" db:"gid"`
	Name      string  `json:"name" db:"name"`
	Category  *string `json:"category,omitempty" db:"category"`
	Completed bool    `json:"completed" db:"completed"`
}

// TrackingEntry is one row of the job-tracking ledger: a single clock-in /
// clock-out session of a worker against a task. EndTime is nil while the
// session is open.
type TrackingEntry struct {
	ID        EntryID   `json:"id" db:"id"`
	EntryDate time.Time `json:"entryDate" db:"entry_date"`

	Branch    string   `json:"branch" db:"branch_name"`
	AreaGroup int64    `json:"areaGroupId" db:"area_group_id"`
	Worker    WorkerID `json:"workerId" db:"worker_id"`
	TaskGID   string   `json:"taskGid" db:"task_gid"`

	StartTime *time.Time `json:"startTime" db:"start_time"`
	EndTime   *time.Time `json:"endTime" db:"end_time"`
	Comment   *string    `json:"comment,omitempty" db:"comment"`
}

// Open reports whether the entry is still clocked in.
func (e TrackingEntry) Open() bool {
	return e.EndTime == nil
}

// EntryWithTask is a ledger row joined with its task reference data, used
// by the windowed aggregation queries.
type EntryWithTask struct {
	TrackingEntry
	TaskName     string  `json:"taskName" db:"task_name"`
	TaskCategory *string `json:"taskCategory,omitempty" db:"task_category"`
}

// EntryImage stores the blob URL of an image attached to a tracking entry.
// Uploading itself happens elsewhere; the ledger only keeps the URL.
type EntryImage struct {
	ID       int64   `json:"id" db:"id"`
	Entry    EntryID `json:"entryId" db:"entry_id"`
	ImageURL string  `json:"imageUrl" db:"image_url"`
}
