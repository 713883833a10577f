package model

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrNotFound = errors.New("not found")
	ErrExists   = errors.New("already exists")
)

// Domain error kinds. Handlers map each kind to its own response shape, so
// every rejected precondition stays distinguishable at the boundary.
var (
	ErrDeviceUnlinked     = errors.New("device is not linked to any worker")
	ErrInvalidPin         = errors.New("invalid pin")
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrPinAlreadySet      = errors.New("pin is already set")
	ErrAlreadyClockedIn   = errors.New("already clocked in")
	ErrNoOpenEntry        = errors.New("no active entry to clock out from")
	ErrTaskComplete       = errors.New("task is already complete")
)

func NewError(model string, err error) error {
	return fmt.Errorf("%s: %w", strings.ToLower(model), err)
}
