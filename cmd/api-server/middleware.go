package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/cors"
	"github.com/tomasen/realip"

	"github.com/stairworks/timeclock/internal/auth"
	"github.com/stairworks/timeclock/internal/ctxstore"
	"github.com/stairworks/timeclock/internal/database"
	"github.com/stairworks/timeclock/internal/model"
	"github.com/stairworks/timeclock/internal/response"
)

const (
	_traceIDKey      = ctxstore.Key("traceId")
	_workerClaimsKey = ctxstore.Key("workerClaims")
	_adminClaimsKey  = ctxstore.Key("adminClaims")
)

func (app *application) traceID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tid := genTraceID()
		ctx := ctxstore.With(r.Context(), _traceIDKey, tid)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (app *application) recoverPanic(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			err := recover()
			if err != nil {
				app.serverError(w, r, fmt.Errorf("%s", err))
			}
		}()

		next.ServeHTTP(w, r)
	})
}

func (app *application) logAccess(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mw := response.NewMetricsResponseWriter(w)
		next.ServeHTTP(mw, r)

		var (
			ip     = realip.FromRequest(r)
			method = r.Method
			url    = r.URL.String()
			proto  = r.Proto
			tid    = ctxstore.MustFrom[string](r.Context(), _traceIDKey)
		)

		userAttrs := slog.Group("user", "ip", ip)
		requestAttrs := slog.Group("request", "method", method, "url", url, "proto", proto, _traceIDKey.String(), tid)
		responseAttrs := slog.Group("response", "status", mw.StatusCode, "size", mw.BytesCount)

		app.serverLogger().Info("access", userAttrs, requestAttrs, responseAttrs)
	})
}

func (app *application) CORS(next http.Handler) http.Handler {
	return cors.AllowAll().Handler(next)
}

// authenticateWorker requires a valid worker-scoped bearer token and stores
// its claims in the request context.
func (app *application) authenticateWorker(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tokenStr, ok := bearerToken(r)
		if !ok {
			app.unauthorized(w, r)
			return
		}

		claims, err := app.tokens.VerifyWorker(tokenStr)
		if err != nil {
			app.unauthorized(w, r)
			return
		}

		ctx := ctxstore.With(r.Context(), _workerClaimsKey, claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// authenticateAdmin requires a valid admin-scoped bearer token.
func (app *application) authenticateAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tokenStr, ok := bearerToken(r)
		if !ok {
			app.unauthorized(w, r)
			return
		}

		claims, err := app.tokens.VerifyAdmin(tokenStr)
		if err != nil {
			app.unauthorized(w, r)
			return
		}

		ctx := ctxstore.With(r.Context(), _adminClaimsKey, claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// deviceGate fails closed when the request body carries no device_id or the
// identifier is unknown. The body is restored for the next handler.
func (app *application) deviceGate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, 1_048_576))
		if err != nil {
			app.badRequest(w, r, err)
			return
		}
		r.Body = io.NopCloser(bytes.NewReader(body))

		var payload struct {
			DeviceID string `json:"device_id"`
		}
		if err := json.Unmarshal(body, &payload); err != nil || payload.DeviceID == "" {
			app.errorMessage(w, r, http.StatusBadRequest, "Device ID is not provided", nil)
			return
		}

		dao := database.NewDeviceDAO(app.requestLogger(r), app.db)
		if _, err := dao.GetByDeviceID(r.Context(), payload.DeviceID); err != nil {
			if errors.Is(err, model.ErrNotFound) {
				app.errorMessage(w, r, http.StatusBadRequest, "Invalid device ID", nil)
				return
			}

			app.serverError(w, r, err)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func bearerToken(r *http.Request) (string, bool) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return "", false
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", false
	}

	return parts[1], true
}

func (app *application) requestLogger(r *http.Request) *slog.Logger {
	return app.logger.With(
		_traceIDKey.String(), ctxstore.MustFrom[string](r.Context(), _traceIDKey),
	)
}

func workerClaims(r *http.Request) auth.WorkerClaims {
	return ctxstore.MustFrom[auth.WorkerClaims](r.Context(), _workerClaimsKey)
}

func genTraceID() string {
	id, _ := uuid.NewRandom()
	return id.String()
}
