package api

import (
	"sort"
	"sync"

	"github.com/catherinevee/importmgr/pkg/models"
)

// JobStore is an in-memory, mutex-guarded record of import jobs keyed
// by the API-assigned job ID. Jobs survive for the process lifetime;
// durable storage is a non-goal of this surface.
type JobStore struct {
	mu   sync.RWMutex
	jobs map[string]*models.ImportJob
}

// NewJobStore returns an empty store.
func NewJobStore() *JobStore {
	return &JobStore{jobs: make(map[string]*models.ImportJob)}
}

// Put inserts or replaces the job stored under id.
func (s *JobStore) Put(id string, job *models.ImportJob) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs[id] = job
}

// Get returns the job stored under id, if any.
func (s *JobStore) Get(id string) (*models.ImportJob, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	job, ok := s.jobs[id]
	return job, ok
}

// List returns all jobs ordered by creation time, newest first.
func (s *JobStore) List() []*models.ImportJob {
	s.mu.RLock()
	defer s.mu.RUnlock()

	jobs := make([]*models.ImportJob, 0, len(s.jobs))
	for _, job := range s.jobs {
		jobs = append(jobs, job)
	}
	sort.Slice(jobs, func(i, j int) bool {
		return jobs[i].CreatedAt.After(jobs[j].CreatedAt)
	})
	return jobs
}
