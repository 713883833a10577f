package main

import (
	"errors"
	"net/http"
	"time"

	"github.com/stairworks/timeclock/internal/database"
	"github.com/stairworks/timeclock/internal/model"
	"github.com/stairworks/timeclock/internal/request"
	"github.com/stairworks/timeclock/internal/response"
	"github.com/stairworks/timeclock/internal/tracker"
	"github.com/stairworks/timeclock/internal/validator"
)

func (app *application) ledger(r *http.Request) *tracker.Ledger {
	logger := app.requestLogger(r)

	return tracker.NewLedger(
		logger,
		database.NewEntryDAO(logger, app.db),
		database.NewTaskDAO(logger, app.db),
	)
}

type requestClock struct {
	// DeviceID is consumed by the device gate before the handler runs.
	DeviceID string `json:"device_id"`

	Action    string     `json:"action"`
	TaskGID   string     `json:"task_gid"`
	Branch    string     `json:"branch"`
	AreaGroup int64      `json:"area_group_id"`
	Timestamp *time.Time `json:"timestamp"`
	Comment   *string    `json:"comment"`
	ImageURLs []string   `json:"image_urls"`
}

func (app *application) handleClock(w http.ResponseWriter, r *http.Request) {
	claims := workerClaims(r)

	var input requestClock
	if err := request.DecodeJSONStrict(w, r, &input); err != nil {
		app.badRequest(w, r, err)
		return
	}

	var v validator.Validator
	validateClock(&v, input)
	if v.HasErrors() {
		app.failedValidation(w, r, v)
		return
	}

	ledger := app.ledger(r)

	var (
		result  tracker.ClockResult
		message string
		status  int
		err     error
	)

	switch input.Action {
	case "in":
		result, err = ledger.ClockIn(r.Context(), tracker.ClockInParams{
			Worker:    claims.WorkerID,
			TaskGID:   input.TaskGID,
			Branch:    input.Branch,
			AreaGroup: input.AreaGroup,
			StartTime: input.Timestamp,
			Comment:   input.Comment,
			ImageURLs: input.ImageURLs,
		})
		message, status = "Clock-in successful", http.StatusCreated
	case "out":
		result, err = ledger.ClockOut(r.Context(), claims.WorkerID, input.Timestamp)
		message, status = "Clock-out successful", http.StatusOK
	}

	if err != nil {
		switch {
		case errors.Is(err, model.ErrNotFound):
			v.AddFieldError("task_gid", "no task with this identifier")
			app.failedValidation(w, r, v)
		case errors.Is(err, model.ErrTaskComplete):
			app.conflict(w, r, "task is already complete", nil)
		case errors.Is(err, model.ErrAlreadyClockedIn):
			app.conflict(w, r, "already clocked in, clock out first", nil)
		case errors.Is(err, model.ErrNoOpenEntry):
			app.conflict(w, r, "no active entry to clock out from", nil)
		default:
			app.serverError(w, r, err)
		}
		return
	}

	data := response.JSONObject{
		"message":      message,
		"elapsed_time": tracker.FormatClock(result.ElapsedSeconds),
		"entry":        result.Entry,
		"recent_tasks": result.RecentTasks,
	}
	if err := response.JSON(w, status, data); err != nil {
		app.serverError(w, r, err)
	}
}

func (app *application) handleRecentTasks(w http.ResponseWriter, r *http.Request) {
	claims := workerClaims(r)

	days := defaultIntQueryParams(r, "days", tracker.DefaultWindowDays)

	var v validator.Validator
	v.CheckField(validator.Between(days, 1, 90), "days", "must be between 1 and 90")
	if v.HasErrors() {
		app.failedValidation(w, r, v)
		return
	}

	tasks, err := app.ledger(r).RecentTasks(r.Context(), claims.WorkerID, days)
	if err != nil {
		app.serverError(w, r, err)
		return
	}

	if err := response.JSON(w, http.StatusOK, response.JSONObject{"tasks": tasks}); err != nil {
		app.serverError(w, r, err)
	}
}

func (app *application) handleWorkersForTask(w http.ResponseWriter, r *http.Request) {
	taskGID := taskGIDFromRequest(r)

	workers, err := app.ledger(r).WorkersForTask(r.Context(), taskGID)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			app.errorMessage(w, r, http.StatusNotFound, "No entries found for this task", nil)
			return
		}

		app.serverError(w, r, err)
		return
	}

	if err := response.JSON(w, http.StatusOK, response.JSONObject{"workers": workers}); err != nil {
		app.serverError(w, r, err)
	}
}

func (app *application) handleTaskTime(w http.ResponseWriter, r *http.Request) {
	claims := workerClaims(r)
	taskGID := taskGIDFromRequest(r)

	summary, err := app.ledger(r).TaskTimeSummary(r.Context(), claims.WorkerID, taskGID)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			app.errorMessage(w, r, http.StatusNotFound, "Task does not exist", nil)
			return
		}

		app.serverError(w, r, err)
		return
	}

	if err := response.JSON(w, http.StatusOK, response.JSONObject{"summary": summary}); err != nil {
		app.serverError(w, r, err)
	}
}

func (app *application) handleMarkComplete(w http.ResponseWriter, r *http.Request) {
	taskGID := taskGIDFromRequest(r)

	task, err := app.ledger(r).MarkComplete(r.Context(), taskGID)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			app.errorMessage(w, r, http.StatusNotFound, "Task does not exist", nil)
			return
		}

		app.serverError(w, r, err)
		return
	}

	data := response.JSONObject{
		"message": "Task marked as complete",
		"task":    task,
	}
	if err := response.JSON(w, http.StatusOK, data); err != nil {
		app.serverError(w, r, err)
	}
}
