package service

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/abhiyeduru/mentlearn-api/internal/dto"
	"github.com/abhiyeduru/mentlearn-api/internal/models"
	appErrors "github.com/abhiyeduru/mentlearn-api/pkg/errors"
	"github.com/abhiyeduru/mentlearn-api/pkg/jobs"
)

const exportJobKind = "registrations_export"

type exportJobStore interface {
	Save(ctx context.Context, job *models.ExportJob) error
	FindByID(ctx context.Context, id string) (*models.ExportJob, error)
}

type jobDispatcher interface {
	Enqueue(job jobs.Job) error
}

type exportGenerator interface {
	Generate(ctx context.Context, job *models.ExportJob) (*ExportResult, error)
}

// ExportDownload is an opened export file ready to stream.
type ExportDownload struct {
	File      *os.File
	Filename  string
	Format    models.ExportFormat
	ExpiresAt time.Time
}

// ExportJobService manages the lifecycle of background registration exports.
type ExportJobService struct {
	repo            exportJobStore
	queue           jobDispatcher
	exporter        *ExportService
	validator       *validator.Validate
	logger          *zap.Logger
	cleanupInterval time.Duration
}

// NewExportJobService constructs the service.
func NewExportJobService(repo exportJobStore, queue jobDispatcher, exporter *ExportService, cleanupInterval time.Duration, validate *validator.Validate, logger *zap.Logger) *ExportJobService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExportJobService{repo: repo, queue: queue, exporter: exporter, validator: validate, logger: logger, cleanupInterval: cleanupInterval}
}

// Enqueue records a QUEUED job and hands it to the worker pool.
func (s *ExportJobService) Enqueue(ctx context.Context, actor models.Actor, req dto.ExportRequest) (*models.ExportJob, error) {
	if err := requireStaff(actor); err != nil {
		return nil, err
	}
	req.Format = models.ExportFormat(strings.ToLower(strings.TrimSpace(string(req.Format))))
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Validation(err, "invalid export payload")
	}
	statusFilter := ""
	if strings.TrimSpace(req.Status) != "" {
		status, err := models.ParseRegistrationStatus(req.Status)
		if err != nil {
			return nil, appErrors.Validation(err, "unknown status filter")
		}
		statusFilter = string(status)
	}

	job := &models.ExportJob{
		ID:           uuid.NewString(),
		Format:       req.Format,
		SessionID:    strings.TrimSpace(req.SessionID),
		Status:       models.ExportStatusQueued,
		StatusFilter: statusFilter,
		Search:       strings.TrimSpace(req.Search),
		CreatedBy:    actor.UserID,
		CreatedAt:    time.Now().UTC(),
	}
	if err := s.repo.Save(ctx, job); err != nil {
		return nil, appErrors.Persistence(err, "failed to record export job")
	}
	if err := s.queue.Enqueue(jobs.Job{ID: job.ID, Kind: exportJobKind}); err != nil {
		msg := "failed to enqueue job"
		now := time.Now().UTC()
		job.Status = models.ExportStatusFailed
		job.Progress = 100
		job.ErrorMessage = &msg
		job.FinishedAt = &now
		_ = s.repo.Save(ctx, job)
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to enqueue export job")
	}
	s.logger.Info("export job queued", zap.String("job_id", job.ID), zap.String("format", string(job.Format)), zap.String("actor", actor.UserID))
	return job, nil
}

// Status returns the job state.
func (s *ExportJobService) Status(ctx context.Context, actor models.Actor, id string) (*models.ExportJob, error) {
	if err := requireStaff(actor); err != nil {
		return nil, err
	}
	job, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "export job not found")
		}
		return nil, appErrors.Persistence(err, "failed to load export job")
	}
	return job, nil
}

// ResolveDownload validates a signed token and opens the stored file.
func (s *ExportJobService) ResolveDownload(ctx context.Context, token string) (*ExportDownload, error) {
	parsed, err := s.exporter.ParseToken(token, false)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "invalid or expired download token")
	}
	job, err := s.repo.FindByID(ctx, parsed.JobID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "export job not found")
		}
		return nil, appErrors.Persistence(err, "failed to load export job")
	}
	if job.Status != models.ExportStatusFinished {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "export not ready")
	}
	if job.ResultURL == nil || !strings.HasSuffix(*job.ResultURL, token) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "token mismatch")
	}
	file, err := s.exporter.Open(parsed.Path)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "export file no longer available")
	}
	return &ExportDownload{
		File:      file,
		Filename:  filepath.Base(parsed.Path),
		Format:    job.Format,
		ExpiresAt: parsed.ExpiresAt,
	}, nil
}

// StartCleanup purges expired export files on a ticker until ctx is done.
func (s *ExportJobService) StartCleanup(ctx context.Context) {
	if s.cleanupInterval <= 0 {
		return
	}
	ticker := time.NewTicker(s.cleanupInterval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				deleted, err := s.exporter.Cleanup()
				if err != nil {
					s.logger.Warn("export cleanup failed", zap.Error(err))
					continue
				}
				if len(deleted) > 0 {
					s.logger.Info("expired exports removed", zap.Int("count", len(deleted)))
				}
			}
		}
	}()
}

// ExportWorker bridges queue jobs to ExportService.
type ExportWorker struct {
	repo     exportJobStore
	exporter exportGenerator
	metrics  *MetricsService
	logger   *zap.Logger
}

// NewExportWorker constructs a worker.
func NewExportWorker(repo exportJobStore, exporter exportGenerator, metrics *MetricsService, logger *zap.Logger) *ExportWorker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExportWorker{repo: repo, exporter: exporter, metrics: metrics, logger: logger}
}

// Handle processes one attempt of a queued export. A returned error lets the
// queue retry; Fail records the terminal failure.
func (w *ExportWorker) Handle(ctx context.Context, job jobs.Job) error {
	record, err := w.repo.FindByID(ctx, job.ID)
	if err != nil {
		return err
	}
	record.Status = models.ExportStatusProcessing
	record.Progress = 10
	if err := w.repo.Save(ctx, record); err != nil {
		return err
	}

	result, err := w.exporter.Generate(ctx, record)
	if err != nil {
		msg := err.Error()
		record.Status = models.ExportStatusQueued
		record.Progress = 0
		record.ErrorMessage = &msg
		if saveErr := w.repo.Save(ctx, record); saveErr != nil {
			w.logger.Warn("failed to mark export job queued", zap.String("job_id", job.ID), zap.Error(saveErr))
		}
		return err
	}

	now := time.Now().UTC()
	url := result.URL
	record.Status = models.ExportStatusFinished
	record.Progress = 100
	record.ResultURL = &url
	record.ErrorMessage = nil
	record.FinishedAt = &now
	if err := w.repo.Save(ctx, record); err != nil {
		w.logger.Warn("failed to mark export job finished", zap.String("job_id", job.ID), zap.Error(err))
		return err
	}
	w.metrics.RecordExportJob(record.Format, record.Status)
	return nil
}

// Fail marks a job FAILED after the queue gave up on it.
func (w *ExportWorker) Fail(ctx context.Context, job jobs.Job, cause error) {
	record, err := w.repo.FindByID(ctx, job.ID)
	if err != nil {
		w.logger.Warn("failed to load export job for failure", zap.String("job_id", job.ID), zap.Error(err))
		return
	}
	msg := cause.Error()
	now := time.Now().UTC()
	record.Status = models.ExportStatusFailed
	record.Progress = 100
	record.ErrorMessage = &msg
	record.FinishedAt = &now
	if err := w.repo.Save(ctx, record); err != nil {
		w.logger.Warn("failed to mark export job failed", zap.String("job_id", job.ID), zap.Error(err))
	}
	w.metrics.RecordExportJob(record.Format, record.Status)
}
