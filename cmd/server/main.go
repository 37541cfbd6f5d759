package main

import (
	"log"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/joho/godotenv"

	"github.com/vektorlab/multivac/internal/config"
	"github.com/vektorlab/multivac/internal/handlers"
	"github.com/vektorlab/multivac/internal/store"
)

func main() {
	// Load .env file if it exists (ignore errors)
	_ = godotenv.Load()

	settings := config.Load()

	st, err := store.New(settings.RedisAddr, store.WithRequireWorkers(settings.RequireWorkers))
	if err != nil {
		log.Fatalf("failed to connect to store: %v", err)
	}
	defer st.Close()

	router := mux.NewRouter()
	router.Use(handlers.AuthMiddleware(settings.APISecret))

	jobsHandler := handlers.NewJobsHandler(st)
	router.HandleFunc("/jobs", jobsHandler.ListJobs).Methods("GET")
	router.HandleFunc("/jobs", jobsHandler.CreateJob).Methods("POST")
	router.HandleFunc("/jobs/{id}", jobsHandler.GetJob).Methods("GET")
	router.HandleFunc("/confirm/{id}", jobsHandler.ConfirmJob).Methods("POST")
	router.HandleFunc("/cancel/{id}", jobsHandler.CancelJob).Methods("POST")

	logsHandler := handlers.NewLogsHandler(st)
	router.HandleFunc("/logs/{id}", logsHandler.GetLog).Methods("GET")
	router.HandleFunc("/logs/{id}/ws", logsHandler.StreamLogWS).Methods("GET")

	actionsHandler := handlers.NewActionsHandler(st)
	router.HandleFunc("/actions", actionsHandler.ListActions).Methods("GET")
	router.HandleFunc("/actions/{name}", actionsHandler.GetAction).Methods("GET")
	router.HandleFunc("/workers", actionsHandler.ListWorkers).Methods("GET")
	router.HandleFunc("/groups", actionsHandler.ListGroups).Methods("GET")

	router.HandleFunc("/version", handlers.GetVersion).Methods("GET")

	log.Printf("starting API v%s on port %s", handlers.Version, settings.Port)
	if err := http.ListenAndServe(":"+settings.Port, router); err != nil {
		log.Fatalf("server failed: %v", err)
	}
}
