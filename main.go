package main

import (
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/gorilla/mux"
	"github.com/joho/godotenv"

	"github.com/guslozua/bitacora-sync/assignments"
	"github.com/guslozua/bitacora-sync/board"
	"github.com/guslozua/bitacora-sync/client"
	"github.com/guslozua/bitacora-sync/handlers"
	"github.com/guslozua/bitacora-sync/logging"
	"github.com/guslozua/bitacora-sync/middleware"
	"github.com/guslozua/bitacora-sync/timeline"
)

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, Role")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func main() {
	logging.InitLogger()

	logging.Logger.Info("Event ID: SERVICE_START, Description: Starting Board Sync Service...")
	if err := godotenv.Load(".env"); err != nil {
		logging.Logger.Warnf("Event ID: ENV_LOAD_WARNING, Description: No .env file loaded: %v", err)
	}

	backendURL := os.Getenv("BACKEND_URL")
	if backendURL == "" {
		logging.Logger.Fatalf("Event ID: CONFIG_ERROR, Description: BACKEND_URL is not set in the environment variables.")
	}
	serviceToken := os.Getenv("SERVICE_TOKEN")

	backendClient := client.NewBackendClient(backendURL, serviceToken, &http.Client{Timeout: 10 * time.Second})
	logging.Logger.Infof("Event ID: BACKEND_CONFIGURED, Description: Using operations backend at %s", backendURL)

	boardReconciler := board.NewReconciler(backendClient)
	timelineReconciler := timeline.NewReconciler(backendClient)
	assignmentPanel := assignments.NewPanel(backendClient)

	boardHandler := handlers.NewBoardHandler(boardReconciler)
	timelineHandler := handlers.NewTimelineHandler(timelineReconciler)
	assignmentHandler := handlers.NewAssignmentHandler(assignmentPanel)

	r := mux.NewRouter()

	r.HandleFunc("/api/board", boardHandler.GetBoard).Methods(http.MethodGet)
	r.HandleFunc("/api/board/move", boardHandler.MoveCard).Methods(http.MethodPost)
	r.HandleFunc("/api/board/refresh", boardHandler.Refresh).Methods(http.MethodPost)
	r.HandleFunc("/api/board/search", boardHandler.SetSearch).Methods(http.MethodPost)

	r.HandleFunc("/api/timeline", timelineHandler.GetRows).Methods(http.MethodGet)
	r.HandleFunc("/api/timeline/lines", timelineHandler.GetLines).Methods(http.MethodGet)
	r.HandleFunc("/api/timeline/refresh", timelineHandler.Refresh).Methods(http.MethodPost)
	r.HandleFunc("/api/timeline/{key}/progress", timelineHandler.SetProgress).Methods(http.MethodPut)
	r.HandleFunc("/api/timeline/{key}/complete", timelineHandler.MarkComplete).Methods(http.MethodPost)
	r.HandleFunc("/api/timeline/{key}/expanded", timelineHandler.SetExpanded).Methods(http.MethodPut)
	r.HandleFunc("/api/timeline/projects/{key}/tasks", timelineHandler.CreateTask).Methods(http.MethodPost)
	r.HandleFunc("/api/timeline/tasks/{key}/subtasks", timelineHandler.CreateSubtask).Methods(http.MethodPost)
	r.HandleFunc("/api/timeline/{key}", timelineHandler.Delete).Methods(http.MethodDelete)

	r.HandleFunc("/api/assignments/{entityKey}", assignmentHandler.ListAssignments).Methods(http.MethodGet)
	r.HandleFunc("/api/assignments/{entityKey}", assignmentHandler.Assign).Methods(http.MethodPost)
	r.HandleFunc("/api/assignments/{entityKey}/bulk-remove", assignmentHandler.BulkUnassign).Methods(http.MethodPost)
	r.HandleFunc("/api/assignments/{entityKey}/{userID}", assignmentHandler.Unassign).Methods(http.MethodDelete)
	r.HandleFunc("/api/assignments/{entityKey}/{userID}/role", assignmentHandler.SetRole).Methods(http.MethodPut)

	r.HandleFunc("/api/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		fmt.Fprint(w, `{"status":"ok"}`)
	}).Methods(http.MethodGet)

	protected := middleware.Auth(r)
	corsRouter := enableCORS(protected)

	serverPort := os.Getenv("SERVER_PORT")
	if serverPort == "" {
		logging.Logger.Fatalf("Event ID: CONFIG_ERROR, Description: SERVER_PORT is not set in the environment variables.")
	}

	serverAddress := fmt.Sprintf(":%s", serverPort)
	logging.Logger.Infof("Event ID: SERVER_START_INFO, Description: Server running on http://localhost%s", serverAddress)

	if err := http.ListenAndServe(serverAddress, corsRouter); err != nil {
		logging.Logger.Fatalf("Event ID: SERVER_FATAL_ERROR, Description: Server failed to start: %v", err)
	}
}
