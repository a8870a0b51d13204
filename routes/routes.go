package routes

import (
	"net/http"

	"github.com/gorilla/mux"
	"gorm.io/gorm"

	"github.com/adrianocbaa/defensoria-fogo-control-sub005/handlers"
	"github.com/adrianocbaa/defensoria-fogo-control-sub005/middleware"
)

// RegisterRoutes sets up all application routes
func RegisterRoutes(db *gorm.DB) http.Handler {
	r := mux.NewRouter()

	auth := handlers.NewAuthHandler(db)
	reset := handlers.NewPasswordResetHandler(db)
	obras := handlers.NewObraHandler(db)
	sessions := handlers.NewSessionHandler(db)
	reports := handlers.NewReportHandler(db)
	audit := handlers.NewAuditHandler(db)
	export := handlers.NewSessionExportHandler(db)

	// =====================================================
	// Public Routes (no authentication)
	// =====================================================
	r.HandleFunc("/login", auth.Login).Methods("POST")
	r.HandleFunc("/reset-password/request", reset.RequestReset).Methods("POST")
	r.HandleFunc("/reset-password/verify", reset.VerifyCode).Methods("POST")

	// =====================================================
	// Protected API Routes (require JWT authentication)
	// =====================================================
	api := r.PathPrefix("/api/v1").Subrouter()
	api.Use(middleware.JWTMiddleware)

	// Profile and account
	api.HandleFunc("/profile", auth.GetCurrentUser).Methods("GET")
	api.HandleFunc("/change-password", auth.ChangePassword).Methods("POST")

	// Obras
	api.HandleFunc("/obras", obras.GetAllObras).Methods("GET")
	api.HandleFunc("/obras/{id}", obras.GetObra).Methods("GET")
	api.Handle("/obras", middleware.RequireEdit(
		http.HandlerFunc(obras.CreateObra))).Methods("POST")
	api.Handle("/obras/{id}", middleware.RequireEdit(
		http.HandlerFunc(obras.UpdateObra))).Methods("PUT")

	// Measurement / additive sessions
	api.HandleFunc("/obras/{id}/sessions", sessions.GetObraSessions).Methods("GET")
	api.Handle("/obras/{id}/sessions", middleware.RequireEdit(
		http.HandlerFunc(sessions.CreateSession))).Methods("POST")
	api.Handle("/sessions/{id}/block", middleware.RequireEdit(
		http.HandlerFunc(sessions.BlockSession))).Methods("POST")
	api.Handle("/sessions/{id}/reopen", middleware.RequireEdit(
		http.HandlerFunc(sessions.ReopenSession))).Methods("POST")
	api.Handle("/sessions/{id}", middleware.RequireEdit(
		http.HandlerFunc(sessions.DeleteSession))).Methods("DELETE")
	api.Handle("/sessions/{id}/items", middleware.RequireEdit(
		http.HandlerFunc(sessions.UpsertItems))).Methods("PUT")
	api.HandleFunc("/sessions/{id}/export", export.ExportToExcel).Methods("GET")
	api.HandleFunc("/obras/{id}/items/adjusted", sessions.GetAdjustedItems).Methods("POST")

	// RDO reports and their workflow
	api.HandleFunc("/obras/{id}/reports", reports.GetObraReports).Methods("GET")
	api.Handle("/obras/{id}/reports", middleware.RequireEdit(
		http.HandlerFunc(reports.CreateReport))).Methods("POST")
	api.HandleFunc("/reports/{id}", reports.GetReport).Methods("GET")
	api.Handle("/reports/{id}/items", middleware.RequireEdit(
		http.HandlerFunc(reports.SubmitItems))).Methods("PUT")
	api.HandleFunc("/reports/{id}/accumulated", reports.GetAccumulated).Methods("GET")
	api.Handle("/reports/{id}/submit", middleware.RequireEdit(
		http.HandlerFunc(reports.SubmitForApproval))).Methods("POST")
	api.Handle("/reports/{id}/approve", middleware.RequireEdit(
		http.HandlerFunc(reports.Approve))).Methods("POST")
	api.Handle("/reports/{id}/reject", middleware.RequireEdit(
		http.HandlerFunc(reports.Reject))).Methods("POST")
	api.Handle("/reports/{id}/reopen", middleware.RequireEdit(
		http.HandlerFunc(reports.Reopen))).Methods("POST")
	api.Handle("/reports/{id}/sign", middleware.RequireEdit(
		http.HandlerFunc(reports.Sign))).Methods("POST")

	// Audit log (read-only replay)
	api.HandleFunc("/reports/{id}/audit", audit.ListByReport).Methods("GET")
	api.HandleFunc("/obras/{id}/audit/rejected", audit.GetRejectedReports).Methods("GET")

	// =====================================================
	// Admin Routes (require admin role)
	// =====================================================
	admin := api.PathPrefix("/admin").Subrouter()
	admin.Handle("/users", middleware.RequireAdmin(
		http.HandlerFunc(auth.GetAllUsers))).Methods("GET")
	admin.Handle("/users", middleware.RequireAdmin(
		http.HandlerFunc(auth.Register))).Methods("POST")

	return r
}
