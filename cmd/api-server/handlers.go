package main

import (
	"errors"
	"net/http"

	"github.com/stairworks/timeclock/internal/auth"
	"github.com/stairworks/timeclock/internal/database"
	"github.com/stairworks/timeclock/internal/model"
	"github.com/stairworks/timeclock/internal/request"
	"github.com/stairworks/timeclock/internal/response"
	"github.com/stairworks/timeclock/internal/validator"

	"github.com/google/uuid"
)

func (app *application) handleStatus(w http.ResponseWriter, r *http.Request) {
	if err := response.JSON(w, http.StatusOK, response.JSONObject{"status": "OK"}); err != nil {
		app.serverError(w, r, err)
	}
}

func (app *application) authService(r *http.Request) *auth.Service {
	logger := app.requestLogger(r)

	return auth.NewService(
		logger,
		app.hasher,
		app.tokens,
		database.NewWorkerDAO(logger, app.db),
		database.NewAdminDAO(logger, app.db),
		database.NewDeviceDAO(logger, app.db),
	)
}

type requestDeviceLogin struct {
	DeviceID string `json:"device_id"`
	Pin      string `json:"pin"`
}

func (app *application) handleDeviceLogin(w http.ResponseWriter, r *http.Request) {
	var input requestDeviceLogin
	if err := request.DecodeJSONStrict(w, r, &input); err != nil {
		app.badRequest(w, r, err)
		return
	}

	var v validator.Validator
	validateDeviceLogin(&v, input)
	if v.HasErrors() {
		app.failedValidation(w, r, v)
		return
	}

	result, err := app.authService(r).AuthenticateDevice(r.Context(), input.DeviceID, input.Pin)
	if err != nil {
		switch {
		case errors.Is(err, model.ErrNotFound):
			app.errorMessage(w, r, http.StatusNotFound, "Device does not exist", nil)
		case errors.Is(err, model.ErrDeviceUnlinked):
			app.errorMessage(w, r, http.StatusNotFound, "Device is not linked to any worker", nil)
		case errors.Is(err, model.ErrInvalidPin):
			app.errorMessage(w, r, http.StatusBadRequest, "Invalid PIN", nil)
		default:
			app.serverError(w, r, err)
		}
		return
	}

	data := response.JSONObject{
		"message": "Authentication successful",
		"token":   result.Token,
		"worker":  result.Worker,
	}
	if err := response.JSON(w, http.StatusOK, data); err != nil {
		app.serverError(w, r, err)
	}
}

type requestAdminLogin struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (app *application) handleAdminLogin(w http.ResponseWriter, r *http.Request) {
	var input requestAdminLogin
	if err := request.DecodeJSONStrict(w, r, &input); err != nil {
		app.badRequest(w, r, err)
		return
	}

	var v validator.Validator
	validateAdminLogin(&v, input)
	if v.HasErrors() {
		app.failedValidation(w, r, v)
		return
	}

	token, err := app.authService(r).AuthenticateAdmin(r.Context(), input.Username, input.Password)
	if err != nil {
		// One message for unknown username and wrong password alike.
		if errors.Is(err, model.ErrInvalidCredentials) {
			app.errorMessage(w, r, http.StatusUnauthorized, "Invalid username or password", nil)
			return
		}

		app.serverError(w, r, err)
		return
	}

	if err := response.JSON(w, http.StatusOK, response.JSONObject{"token": token}); err != nil {
		app.serverError(w, r, err)
	}
}

type requestRegisterDevice struct {
	DeviceID string  `json:"device_id"`
	APIKey   string  `json:"api_key"`
	APIURL   *string `json:"api_url"`
}

func (app *application) handleRegisterDevice(w http.ResponseWriter, r *http.Request) {
	var input requestRegisterDevice
	if err := request.DecodeJSONStrict(w, r, &input); err != nil {
		app.badRequest(w, r, err)
		return
	}

	var v validator.Validator
	validateRegisterDevice(&v, input)
	if v.HasErrors() {
		app.failedValidation(w, r, v)
		return
	}

	device, conflicts, err := app.authService(r).RegisterDevice(r.Context(), database.InsertDeviceDTO{
		DeviceID: input.DeviceID,
		APIKey:   input.APIKey,
		APIURL:   input.APIURL,
	})
	if err != nil {
		app.serverError(w, r, err)
		return
	}
	if len(conflicts) > 0 {
		app.conflict(w, r, "device already registered", conflicts)
		return
	}

	data := response.JSONObject{
		"message": "Device registered successfully",
		"device":  device,
	}
	if err := response.JSON(w, http.StatusCreated, data); err != nil {
		app.serverError(w, r, err)
	}
}

type requestLinkDevice struct {
	DeviceID string    `json:"device_id"`
	WorkerID uuid.UUID `json:"worker_id"`
}

func (app *application) handleLinkDevice(w http.ResponseWriter, r *http.Request) {
	var input requestLinkDevice
	if err := request.DecodeJSONStrict(w, r, &input); err != nil {
		app.badRequest(w, r, err)
		return
	}

	var v validator.Validator
	v.CheckField(validator.NotBlank(input.DeviceID), "device_id", "cannot be blank")
	v.CheckField(input.WorkerID != uuid.Nil, "worker_id", "cannot be blank")
	if v.HasErrors() {
		app.failedValidation(w, r, v)
		return
	}

	err := app.authService(r).LinkDevice(r.Context(), input.DeviceID, input.WorkerID)
	if err != nil {
		switch {
		case errors.Is(err, model.ErrNotFound):
			app.errorMessage(w, r, http.StatusNotFound, err.Error(), nil)
		case errors.Is(err, model.ErrExists):
			app.conflict(w, r, "device is already linked to a worker", nil)
		default:
			app.serverError(w, r, err)
		}
		return
	}

	data := response.JSONObject{"message": "Device linked successfully"}
	if err := response.JSON(w, http.StatusCreated, data); err != nil {
		app.serverError(w, r, err)
	}
}

type requestRegisterWorker struct {
	Username string  `json:"username"`
	Name     string  `json:"name"`
	Role     string  `json:"role"`
	Branch   *string `json:"branch"`
}

func (app *application) handleRegisterWorker(w http.ResponseWriter, r *http.Request) {
	var input requestRegisterWorker
	if err := request.DecodeJSONStrict(w, r, &input); err != nil {
		app.badRequest(w, r, err)
		return
	}

	if input.Role == "" {
		input.Role = string(model.RoleWorker)
	}

	var v validator.Validator
	validateRegisterWorker(&v, input)
	if v.HasErrors() {
		app.failedValidation(w, r, v)
		return
	}

	worker, err := app.authService(r).RegisterWorker(r.Context(), database.InsertWorkerDTO{
		Username: input.Username,
		Name:     input.Name,
		Role:     model.Role(input.Role),
		Branch:   input.Branch,
	})
	if err != nil {
		if errors.Is(err, model.ErrExists) {
			app.conflict(w, r, "username already exists", nil)
			return
		}

		app.serverError(w, r, err)
		return
	}

	data := response.JSONObject{
		"message": "Worker created successfully",
		"worker":  worker,
	}
	if err := response.JSON(w, http.StatusCreated, data); err != nil {
		app.serverError(w, r, err)
	}
}

type requestSetPin struct {
	DeviceID string `json:"device_id"`
	Pin      string `json:"pin"`
}

func (app *application) handleSetPin(w http.ResponseWriter, r *http.Request) {
	claims := workerClaims(r)

	var input requestSetPin
	if err := request.DecodeJSONStrict(w, r, &input); err != nil {
		app.badRequest(w, r, err)
		return
	}

	var v validator.Validator
	validateSetPin(&v, input)
	if v.HasErrors() {
		app.failedValidation(w, r, v)
		return
	}

	err := app.authService(r).SetPin(r.Context(), claims.WorkerID, input.DeviceID, input.Pin)
	if err != nil {
		switch {
		case errors.Is(err, model.ErrNotFound):
			app.errorMessage(w, r, http.StatusNotFound, "Device does not exist", nil)
		case errors.Is(err, model.ErrDeviceUnlinked):
			app.errorMessage(w, r, http.StatusForbidden, "Device is not linked to the authenticated worker", nil)
		case errors.Is(err, model.ErrPinAlreadySet):
			app.conflict(w, r, "PIN is already set", nil)
		default:
			app.serverError(w, r, err)
		}
		return
	}

	data := response.JSONObject{"message": "PIN set successfully"}
	if err := response.JSON(w, http.StatusOK, data); err != nil {
		app.serverError(w, r, err)
	}
}

func (app *application) handleProfile(w http.ResponseWriter, r *http.Request) {
	claims := workerClaims(r)

	dao := database.NewWorkerDAO(app.requestLogger(r), app.db)

	worker, err := dao.Get(r.Context(), claims.WorkerID)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			app.errorMessage(w, r, http.StatusNotFound, err.Error(), nil)
			return
		}

		app.serverError(w, r, err)
		return
	}

	if err := response.JSON(w, http.StatusOK, response.JSONObject{"worker": worker}); err != nil {
		app.serverError(w, r, err)
	}
}
