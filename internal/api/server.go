// Package api exposes import jobs over HTTP: submit a job, poll its
// status, list past jobs. State is held in memory for the process
// lifetime.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/catherinevee/importmgr/internal/logger"
	"github.com/catherinevee/importmgr/pkg/models"
)

// ImportRunner executes one import job end to end. Implemented by the
// pipeline controller.
type ImportRunner interface {
	RunImport(ctx context.Context, projectName string, servicesFilter []string, resourceFilters map[string]string) *models.ImportJob
}

// Server is the HTTP surface over the import pipeline.
type Server struct {
	router *mux.Router
	store  *JobStore
	runner ImportRunner
	log    logger.Logger

	httpServer *http.Server
}

// ImportRequest is the POST body for a new import job.
type ImportRequest struct {
	ProjectName string            `json:"project_name"`
	Services    []string          `json:"services,omitempty"`
	Filters     map[string]string `json:"filters,omitempty"`
}

type jobSummary struct {
	ID            string            `json:"id"`
	ProjectName   string            `json:"project_name"`
	Status        models.JobStatus  `json:"status"`
	ResourceCount int               `json:"resource_count"`
	GapCount      int               `json:"gap_count"`
	SecurityScore int               `json:"security_score"`
	TotalCost     float64           `json:"total_monthly_cost"`
	CreatedAt     time.Time         `json:"created_at"`
	CompletedAt   *time.Time        `json:"completed_at,omitempty"`
}

// NewServer builds the router. The store may be shared across servers
// in tests; pass NewJobStore() for normal use.
func NewServer(runner ImportRunner, store *JobStore) *Server {
	s := &Server{
		router: mux.NewRouter(),
		store:  store,
		runner: runner,
		log:    logger.New("api"),
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.router.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)

	v1 := s.router.PathPrefix("/api/v1").Subrouter()
	v1.HandleFunc("/imports", s.handleCreateImport).Methods(http.MethodPost)
	v1.HandleFunc("/imports", s.handleListImports).Methods(http.MethodGet)
	v1.HandleFunc("/imports/{id}", s.handleGetImport).Methods(http.MethodGet)
}

// ServeHTTP makes the server usable directly with httptest.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Start blocks serving HTTP until the listener fails or Shutdown is called.
func (s *Server) Start(addr string, readTimeout, writeTimeout, idleTimeout time.Duration) error {
	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  readTimeout,
		WriteTimeout: writeTimeout,
		IdleTimeout:  idleTimeout,
	}
	s.log.Info("http server listening", logger.String("addr", addr))
	return s.httpServer.ListenAndServe()
}

// Shutdown drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

// handleCreateImport accepts the job and runs it in the background.
// The response carries the API job ID to poll; the stored job's own ID
// is overwritten with it so lookups stay stable across the handoff.
func (s *Server) handleCreateImport(w http.ResponseWriter, r *http.Request) {
	var req ImportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.ProjectName == "" {
		writeError(w, http.StatusBadRequest, "project_name is required")
		return
	}

	id := uuid.New().String()
	placeholder := &models.ImportJob{
		ID:          id,
		ProjectName: req.ProjectName,
		Status:      models.JobStatusPending,
		CreatedAt:   time.Now(),
	}
	s.store.Put(id, placeholder)

	go func() {
		job := s.runner.RunImport(context.Background(), req.ProjectName, req.Services, req.Filters)
		job.ID = id
		s.store.Put(id, job)
		s.log.Info("import job finished",
			logger.String("job_id", id),
			logger.String("status", string(job.Status)))
	}()

	writeJSON(w, http.StatusAccepted, map[string]string{
		"id":     id,
		"status": string(models.JobStatusPending),
	})
}

func (s *Server) handleGetImport(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	job, ok := s.store.Get(id)
	if !ok {
		writeError(w, http.StatusNotFound, "import job not found")
		return
	}
	writeJSON(w, http.StatusOK, job)
}

func (s *Server) handleListImports(w http.ResponseWriter, _ *http.Request) {
	jobs := s.store.List()
	summaries := make([]jobSummary, 0, len(jobs))
	for _, job := range jobs {
		summaries = append(summaries, jobSummary{
			ID:            job.ID,
			ProjectName:   job.ProjectName,
			Status:        job.Status,
			ResourceCount: len(job.Resources),
			GapCount:      len(job.Gaps),
			SecurityScore: job.SecurityScore,
			TotalCost:     job.TotalCost,
			CreatedAt:     job.CreatedAt,
			CompletedAt:   job.CompletedAt,
		})
	}
	writeJSON(w, http.StatusOK, summaries)
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
