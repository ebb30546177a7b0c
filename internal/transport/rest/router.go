package rest

import (
	"net/http"
	"os"

	"github.com/gorilla/mux"
	"github.com/swaggo/swag"

	_ "github.com/usamatauqir381/questxcopilot/docs"
	"github.com/usamatauqir381/questxcopilot/internal/service"
	"github.com/usamatauqir381/questxcopilot/internal/transport/rest/handler"
	"github.com/usamatauqir381/questxcopilot/internal/transport/rest/middleware"
	"github.com/usamatauqir381/questxcopilot/internal/transport/ws"
)

// Container holds all dependencies for the router
type Container struct {
	AuthService         *service.AuthService
	AccessService       *service.AccessService
	SessionService      *service.SessionService
	MonitorService      *service.MonitorService
	ProvisioningService *service.ProvisioningService
	ReportService       *service.ReportService
	WSHub               *ws.Hub
}

// NewRouter creates the API router with all endpoints
func NewRouter(c *Container) http.Handler {
	r := mux.NewRouter()

	// Initialize handlers
	authHandler := handler.NewAuthHandler(c.AuthService)
	accessHandler := handler.NewAccessHandler(c.AccessService, c.SessionService)
	sessionHandler := handler.NewSessionHandler(c.SessionService)
	attemptHandler := handler.NewAttemptHandler(c.SessionService, c.MonitorService)
	adminHandler := handler.NewAdminHandler(c.ProvisioningService, c.SessionService, c.MonitorService)
	reportHandler := handler.NewReportHandler(c.ReportService)
	wsHandler := ws.NewHandler(c.WSHub, c.AuthService, c.SessionService, c.ProvisioningService)

	// Initialize middleware
	authMW := middleware.NewAuthMiddleware(c.AuthService)

	// CORS middleware (apply first)
	r.Use(corsMiddleware)

	// API v1 routes
	v1 := r.PathPrefix("/v1").Subrouter()

	// Public routes
	v1.HandleFunc("/admin/login", authHandler.Login).Methods("POST", "OPTIONS")
	v1.HandleFunc("/access/request", accessHandler.RequestAccess).Methods("POST", "OPTIONS")
	v1.HandleFunc("/access/verify", accessHandler.VerifyAccess).Methods("POST", "OPTIONS")
	v1.HandleFunc("/access/login", accessHandler.Login).Methods("POST", "OPTIONS")
	v1.HandleFunc("/swagger.json", swaggerDoc).Methods("GET")

	// WebSocket routes (public with token in query param)
	v1.HandleFunc("/ws/assessments/{slug}/proctor", wsHandler.ProctorWS).Methods("GET")
	v1.HandleFunc("/ws/attempts/{id}", wsHandler.AttemptWS).Methods("GET")

	// Health check
	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	}).Methods("GET")

	// Admin routes (require operator auth)
	adminRoutes := v1.PathPrefix("/admin").Subrouter()
	adminRoutes.Use(authMW.RequireAdmin)

	adminRoutes.HandleFunc("/assessments", adminHandler.ListAssessments).Methods("GET", "OPTIONS")
	adminRoutes.HandleFunc("/assessments/{slug}/status", adminHandler.UpdateStatus).Methods("PUT", "OPTIONS")
	adminRoutes.HandleFunc("/assessments/{slug}/sets/{role}", adminHandler.ImportQuestions).Methods("POST", "OPTIONS")
	adminRoutes.HandleFunc("/credentials", adminHandler.ProvisionCredentials).Methods("POST", "OPTIONS")
	adminRoutes.HandleFunc("/submissions/{id}", adminHandler.GetSubmission).Methods("GET", "OPTIONS")
	adminRoutes.HandleFunc("/attempts/{id}/events", adminHandler.ListEvents).Methods("GET", "OPTIONS")
	adminRoutes.HandleFunc("/reports/{submissionId}", reportHandler.Get).Methods("GET", "OPTIONS")

	// Candidate routes (require session token)
	candidateRoutes := v1.NewRoute().Subrouter()
	candidateRoutes.Use(authMW.RequireCandidate)

	candidateRoutes.HandleFunc("/session", sessionHandler.Get).Methods("GET", "OPTIONS")
	candidateRoutes.HandleFunc("/session/tutorial", sessionHandler.StartTutorial).Methods("POST", "OPTIONS")
	candidateRoutes.HandleFunc("/session/tutorial/complete", sessionHandler.CompleteTutorial).Methods("POST", "OPTIONS")
	candidateRoutes.HandleFunc("/session/test", sessionHandler.StartTest).Methods("POST", "OPTIONS")
	candidateRoutes.HandleFunc("/attempts/{id}", attemptHandler.Get).Methods("GET", "OPTIONS")
	candidateRoutes.HandleFunc("/attempts/{id}/answers/{questionId}", attemptHandler.SaveAnswer).Methods("PUT", "OPTIONS")
	candidateRoutes.HandleFunc("/attempts/{id}/violations", attemptHandler.ReportViolation).Methods("POST", "OPTIONS")
	candidateRoutes.HandleFunc("/attempts/{id}/submit", attemptHandler.Submit).Methods("POST", "OPTIONS")
	candidateRoutes.HandleFunc("/submissions/{id}", attemptHandler.GetSubmission).Methods("GET", "OPTIONS")

	return r
}

func swaggerDoc(w http.ResponseWriter, r *http.Request) {
	doc, err := swag.ReadDoc()
	if err != nil {
		http.Error(w, `{"code":"not_found","error":"api document not registered"}`, http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(doc))
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		allowedOrigins := os.Getenv("CORS_ALLOWED_ORIGINS")
		if allowedOrigins == "" {
			allowedOrigins = "*"
		}

		allowedMethods := os.Getenv("CORS_ALLOWED_METHODS")
		if allowedMethods == "" {
			allowedMethods = "GET, POST, PUT, DELETE, OPTIONS"
		}

		allowedHeaders := os.Getenv("CORS_ALLOWED_HEADERS")
		if allowedHeaders == "" {
			allowedHeaders = "Content-Type, Authorization"
		}

		w.Header().Set("Access-Control-Allow-Origin", allowedOrigins)
		w.Header().Set("Access-Control-Allow-Methods", allowedMethods)
		w.Header().Set("Access-Control-Allow-Headers", allowedHeaders)

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}
