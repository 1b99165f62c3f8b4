package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/abhiyeduru/mentlearn-api/internal/models"
	appErrors "github.com/abhiyeduru/mentlearn-api/pkg/errors"
)

const exportJobKeyPrefix = "exports:job:"

type jsonStore interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
}

// ExportJobRepository keeps export job state in Redis under exports:job:<id>.
// A process-local copy backs reads when Redis misses or is not configured;
// entries older than the TTL are pruned on write.
type ExportJobRepository struct {
	store jsonStore
	ttl   time.Duration

	mu     sync.RWMutex
	memory map[string]models.ExportJob
}

// NewExportJobRepository constructs the repository. store may be nil.
func NewExportJobRepository(store jsonStore, ttl time.Duration) *ExportJobRepository {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &ExportJobRepository{store: store, ttl: ttl, memory: make(map[string]models.ExportJob)}
}

// ExportJobKey returns the Redis key holding a job.
func ExportJobKey(id string) string {
	return exportJobKeyPrefix + id
}

// Save upserts the job.
func (r *ExportJobRepository) Save(ctx context.Context, job *models.ExportJob) error {
	if job == nil || job.ID == "" {
		return fmt.Errorf("save export job: id required")
	}
	r.mu.Lock()
	cutoff := time.Now().Add(-r.ttl)
	for id, existing := range r.memory {
		if existing.CreatedAt.Before(cutoff) {
			delete(r.memory, id)
		}
	}
	r.memory[job.ID] = *job
	r.mu.Unlock()
	if r.store == nil {
		return nil
	}
	if err := r.store.Set(ctx, ExportJobKey(job.ID), job, r.ttl); err != nil {
		return fmt.Errorf("save export job: %w", err)
	}
	return nil
}

// FindByID loads a job, returning sql.ErrNoRows when unknown.
func (r *ExportJobRepository) FindByID(ctx context.Context, id string) (*models.ExportJob, error) {
	if r.store != nil {
		var job models.ExportJob
		err := r.store.Get(ctx, ExportJobKey(id), &job)
		if err == nil {
			return &job, nil
		}
		if !errors.Is(err, appErrors.ErrCacheMiss) {
			return nil, fmt.Errorf("load export job: %w", err)
		}
	}
	r.mu.RLock()
	job, ok := r.memory[id]
	r.mu.RUnlock()
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &job, nil
}
