package main

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/SemenBogdanov/dpms-system/internal/api"
	apimiddleware "github.com/SemenBogdanov/dpms-system/internal/api/middleware"
)

// setupRouter builds the application router with all routes and middleware.
func (app *application) setupRouter() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(apimiddleware.TraceMiddleware)

	authHandler := api.NewAuthHandler(app.userService, app.logger)
	userHandler := api.NewUserHandler(app.userService, app.rolloverService, app.logger)
	taskHandler := api.NewTaskHandler(app.taskService, app.calculatorService, app.logger)
	focusHandler := api.NewFocusHandler(app.focusService, app.logger)
	queueHandler := api.NewQueueHandler(
		app.queueService, app.maintenanceService, app.focusService, app.logger,
	)
	walletHandler := api.NewWalletHandler(app.walletService, app.logger)
	shopHandler := api.NewShopHandler(app.shopService, app.logger)
	notificationHandler := api.NewNotificationHandler(app.notificationService, app.logger)
	adminHandler := api.NewAdminHandler(
		app.userService, app.rolloverService, app.calculatorService, app.logger,
	)
	authMiddleware := apimiddleware.NewAuthMiddleware(app.jwtService, app.userStore)

	r.Route("/api", func(r chi.Router) {
		// Authentication endpoints (public)
		r.Post("/auth/login", authHandler.Login)
		r.Post("/auth/refresh", authHandler.Refresh)

		// Protected routes
		r.Group(func(r chi.Router) {
			r.Use(authMiddleware.Authenticate)

			// Current user
			r.Get("/me", userHandler.Me)
			r.Get("/me/dashboard", userHandler.Dashboard)
			r.Get("/me/periods", userHandler.Periods)

			// Task lifecycle
			r.Post("/tasks", taskHandler.Create)
			r.Get("/tasks", taskHandler.List)
			r.Get("/tasks/{id}", taskHandler.Get)
			r.Post("/tasks/{id}/estimate", taskHandler.Estimate)
			r.Post("/tasks/{id}/enqueue", taskHandler.Enqueue)
			r.Post("/tasks/{id}/pull", taskHandler.Pull)
			r.Post("/tasks/{id}/assign", taskHandler.Assign)
			r.Post("/tasks/{id}/submit", taskHandler.Submit)
			r.Post("/tasks/{id}/validate", taskHandler.Validate)
			r.Post("/tasks/{id}/bugfix", taskHandler.CreateBugfix)
			r.Post("/tasks/{id}/cancel", taskHandler.Cancel)
			r.Post("/tasks/{id}/due-date", taskHandler.SetDueDate)
			r.Get("/tasks/export/{period}", taskHandler.ExportPeriod)

			// Focus time tracking
			r.Post("/tasks/{id}/focus/start", focusHandler.Start)
			r.Post("/tasks/{id}/focus/pause", focusHandler.Pause)
			r.Post("/tasks/{id}/time", focusHandler.CorrectTime)
			r.Get("/tasks/{id}/time/corrections", focusHandler.Corrections)

			// Queue
			r.Get("/queue", queueHandler.View)

			// Wallet
			r.Get("/wallet", walletHandler.Balances)
			r.Get("/wallet/history", walletHandler.History)

			// Karma shop
			r.Get("/shop/items", shopHandler.ListItems)
			r.Post("/shop/purchases", shopHandler.Purchase)
			r.Get("/shop/purchases", shopHandler.History)
			r.Post("/shop/purchases/{id}/approve", shopHandler.Approve)

			// Notifications
			r.Get("/notifications", notificationHandler.List)
			r.Get("/notifications/unread-count", notificationHandler.CountUnread)
			r.Post("/notifications/{id}/read", notificationHandler.MarkRead)
			r.Post("/notifications/read-all", notificationHandler.MarkAllRead)

			// Estimation catalog and calculator
			r.Get("/catalog", adminHandler.ListCatalog)
			r.Post("/calculator/estimate", adminHandler.ComputeEstimate)

			// Administration
			r.Post("/admin/users", adminHandler.CreateUser)
			r.Get("/admin/users", adminHandler.ListUsers)
			r.Patch("/admin/users/{id}", adminHandler.UpdateUser)
			r.Delete("/admin/users/{id}", adminHandler.DeactivateUser)
			r.Post("/admin/catalog", adminHandler.CreateCatalogItem)
			r.Patch("/admin/catalog/{id}", adminHandler.UpdateCatalogItem)
			r.Post("/admin/rollover/{period}", adminHandler.CloseRollover)
			r.Get("/admin/rollover/{period}", adminHandler.PeriodHistory)
			r.Post("/admin/leagues/apply", adminHandler.ApplyLeagues)
			r.Post("/admin/wallet/reconcile", walletHandler.Reconcile)
		})
	})

	// Health check endpoint
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("OK")); err != nil {
			app.logger.Error("Failed to write health check response", "error", err)
		}
	})

	return r
}
