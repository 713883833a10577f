package main

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

func (app *application) routes() http.Handler {
	mux := chi.NewRouter()

	mux.NotFound(app.notFound)
	mux.MethodNotAllowed(app.methodNotAllowed)

	mux.Use(app.traceID)
	mux.Use(app.logAccess)
	mux.Use(app.recoverPanic)

	mux.Use(app.CORS)

	mux.Route("/api/v1", func(mux chi.Router) {
		mux.Get("/status", app.handleStatus)

		mux.Post("/auth/login", app.handleDeviceLogin)
		mux.Post("/auth/admin-login", app.handleAdminLogin)

		mux.Group(func(mux chi.Router) {
			mux.Use(app.authenticateAdmin)

			mux.Post("/auth/device-register", app.handleRegisterDevice)
			mux.Post("/auth/device-link", app.handleLinkDevice)
			mux.Post("/auth/workers", app.handleRegisterWorker)
			mux.Post("/tracking/tasks/{taskGID}/complete", app.handleMarkComplete)
		})

		mux.Group(func(mux chi.Router) {
			mux.Use(app.authenticateWorker)

			mux.Get("/auth/profile", app.handleProfile)
			mux.Get("/tracking/recent", app.handleRecentTasks)
			mux.Get("/tracking/tasks/{taskGID}/workers", app.handleWorkersForTask)
			mux.Get("/tracking/tasks/{taskGID}/time", app.handleTaskTime)

			mux.Group(func(mux chi.Router) {
				mux.Use(app.deviceGate)

				mux.Post("/auth/set-pin", app.handleSetPin)
				mux.Post("/tracking/clock", app.handleClock)
			})
		})
	})

	return mux
}
