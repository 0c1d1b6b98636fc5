/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. Logger:     Request logging
  2. Recoverer:  Panic recovery (500 instead of crash)
  3. RequestID:  Unique ID per request for tracing
  4. CORS:       Cross-origin requests for frontend

ROUTE GROUPS:
  /api/students/*      Student management + balances
  /api/courses/*       Course management
  /api/enrollments/*   Enrollment management
  /api/attendance/*    Monthly attendance ledger
  /api/invoices/*      Draft generation, issuance, rendering
  /api/payments/*      Payment recording
  /api/debtors         Debt follow-up list

SECURITY NOTE:
  No authentication middleware currently. All endpoints are public; intended
  for single-operator deployments behind a local or trusted network.

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/server/main.go: Server startup
*/
package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173", "http://localhost:8080"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	r.Route("/api", func(r chi.Router) {
		// Student routes
		r.Route("/students", func(r chi.Router) {
			r.Get("/", h.ListStudents)
			r.Post("/", h.CreateStudent)
			r.Get("/{id}", h.GetStudent)
			r.Put("/{id}", h.UpdateStudent)
			r.Delete("/{id}", h.DeleteStudent)
			r.Get("/{id}/enrollments", h.ListStudentEnrollments)
			r.Get("/{id}/payments", h.ListStudentPayments)
			r.Get("/{id}/balance", h.GetStudentBalance)
		})

		// Course routes
		r.Route("/courses", func(r chi.Router) {
			r.Get("/", h.ListCourses)
			r.Post("/", h.CreateCourse)
			r.Get("/{id}", h.GetCourse)
			r.Put("/{id}", h.UpdateCourse)
			r.Delete("/{id}", h.DeleteCourse)
		})

		// Enrollment routes
		r.Route("/enrollments", func(r chi.Router) {
			r.Post("/", h.CreateEnrollment)
			r.Put("/{id}", h.UpdateEnrollment)
			r.Delete("/{id}", h.DeleteEnrollment)
		})

		// Attendance routes
		r.Route("/attendance", func(r chi.Router) {
			r.Get("/", h.ListAttendance)
			r.Put("/counts", h.ApplyCounts)
			r.Post("/increment", h.BulkIncrement)
			r.Post("/hints", h.ApplyScheduleHints)
			r.Post("/lock", h.SetLock)
		})

		// Invoice routes
		r.Route("/invoices", func(r chi.Router) {
			r.Get("/", h.ListInvoices)
			r.Post("/generate", h.GenerateDrafts)
			r.Post("/issue-all", h.IssueAll)
			r.Get("/{id}", h.GetInvoice)
			r.Delete("/{id}", h.DeleteInvoice)
			r.Post("/{id}/issue", h.IssueInvoice)
			r.Post("/{id}/cancel", h.CancelInvoice)
			r.Post("/{id}/render", h.RenderInvoice)
			r.Post("/{id}/open", h.OpenInvoice)
			r.Post("/{id}/recompute-status", h.RecomputeInvoiceStatus)
			r.Get("/{id}/summary", h.GetInvoiceSummary)
		})

		// Payment routes
		r.Route("/payments", func(r chi.Router) {
			r.Post("/", h.CreatePayment)
			r.Post("/quick-cash", h.QuickCash)
			r.Delete("/{id}", h.DeletePayment)
		})

		// Debt follow-up
		r.Get("/debtors", h.ListDebtors)
	})

	return r
}
