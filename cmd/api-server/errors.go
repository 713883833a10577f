package main

import (
	"fmt"
	"net/http"

	"github.com/stairworks/timeclock/internal/response"
	"github.com/stairworks/timeclock/internal/validator"
)

func (app *application) reportServerError(r *http.Request, err error) {
	var (
		message = err.Error()
		method  = r.Method
		url     = r.URL.String()
	)

	requestAttrs := []any{"method", method, "url", url}
	app.logger.Error(message, requestAttrs...)
}

func (app *application) errorMessage(w http.ResponseWriter, r *http.Request, status int, message string, headers http.Header) {
	message = upperFirst(message)

	err := response.JSONWithHeaders(w, status, response.JSONObject{"message": message}, headers)
	if err != nil {
		app.reportServerError(r, err)
		w.WriteHeader(http.StatusInternalServerError)
	}
}

func (app *application) serverError(w http.ResponseWriter, r *http.Request, err error) {
	app.reportServerError(r, err)

	message := "The server encountered a problem and could not process your request"
	app.errorMessage(w, r, http.StatusInternalServerError, message, nil)
}

func (app *application) notFound(w http.ResponseWriter, r *http.Request) {
	message := "The requested resource could not be found"
	app.errorMessage(w, r, http.StatusNotFound, message, nil)
}

func (app *application) methodNotAllowed(w http.ResponseWriter, r *http.Request) {
	message := fmt.Sprintf("The %s method is not supported for this resource", r.Method)
	app.errorMessage(w, r, http.StatusMethodNotAllowed, message, nil)
}

func (app *application) badRequest(w http.ResponseWriter, r *http.Request, err error) {
	app.errorMessage(w, r, http.StatusBadRequest, err.Error(), nil)
}

func (app *application) failedValidation(w http.ResponseWriter, r *http.Request, v validator.Validator) {
	err := response.JSON(w, http.StatusUnprocessableEntity, v)
	if err != nil {
		app.serverError(w, r, err)
	}
}

func (app *application) conflict(w http.ResponseWriter, r *http.Request, message string, fields map[string]string) {
	data := response.JSONObject{"message": upperFirst(message)}
	if len(fields) > 0 {
		data["fields"] = fields
	}

	err := response.JSON(w, http.StatusConflict, data)
	if err != nil {
		app.serverError(w, r, err)
	}
}

func (app *application) unauthorized(w http.ResponseWriter, r *http.Request) {
	message := "Invalid or expired token"
	app.errorMessage(w, r, http.StatusUnauthorized, message, nil)
}

func upperFirst(s string) string {
	if s == "" {
		return s
	}
	if s[0] >= 'a' && s[0] <= 'z' {
		return string(s[0]-'a'+'A') + s[1:]
	}
	return s
}
