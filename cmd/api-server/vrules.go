package main

import (
	"github.com/stairworks/timeclock/internal/model"
	"github.com/stairworks/timeclock/internal/validator"
)

// Validation rules

const _pinLength = 4

func validateDeviceLogin(v *validator.Validator, request requestDeviceLogin) {
	v.CheckField(validator.NotBlank(request.DeviceID), "device_id", "cannot be blank")
	v.CheckField(validator.NotBlank(request.Pin), "pin", "cannot be blank")
	validatePin(v, request.Pin)
}

func validateAdminLogin(v *validator.Validator, request requestAdminLogin) {
	v.CheckField(validator.NotBlank(request.Username), "username", "cannot be blank")
	v.CheckField(validator.NotBlank(request.Password), "password", "cannot be blank")
}

func validateRegisterDevice(v *validator.Validator, request requestRegisterDevice) {
	v.CheckField(validator.NotBlank(request.DeviceID), "device_id", "cannot be blank")
	v.CheckField(validator.MaxRunes(request.DeviceID, 255), "device_id", "too long")
	v.CheckField(validator.NotBlank(request.APIKey), "api_key", "cannot be blank")
	if request.APIURL != nil {
		v.CheckField(validator.IsURL(*request.APIURL), "api_url", "must be a valid URL")
	}
}

func validateRegisterWorker(v *validator.Validator, request requestRegisterWorker) {
	v.CheckField(validator.NotBlank(request.Username), "username", "cannot be blank")
	v.CheckField(validator.MaxRunes(request.Username, 150), "username", "too long")
	v.CheckField(validator.NotBlank(request.Name), "name", "cannot be blank")
	v.CheckField(
		validator.In(request.Role, string(model.RoleWorker), string(model.RoleSupervisor)),
		"role", "must be worker or supervisor",
	)
}

func validateSetPin(v *validator.Validator, request requestSetPin) {
	v.CheckField(validator.NotBlank(request.DeviceID), "device_id", "cannot be blank")
	validatePin(v, request.Pin)
}

func validatePin(v *validator.Validator, pin string) {
	v.CheckField(len(pin) == _pinLength, "pin", "must be exactly 4 digits")
	v.CheckField(validator.AllDigits(pin), "pin", "must contain digits only")
}

func validateClock(v *validator.Validator, request requestClock) {
	v.CheckField(validator.In(request.Action, "in", "out"), "action", "must be in or out")

	if request.Action == "in" {
		v.CheckField(validator.NotBlank(request.TaskGID), "task_gid", "cannot be blank")
		v.CheckField(validator.NotBlank(request.Branch), "branch", "cannot be blank")
		v.CheckField(request.AreaGroup > 0, "area_group_id", "must be provided")
	}
}
