package dto

import (
	"time"

	"github.com/abhiyeduru/mentlearn-api/internal/models"
)

// ExportRequest captures POST /exports payload. The filter fields mirror the
// registration list query.
type ExportRequest struct {
	Format    models.ExportFormat `json:"format" validate:"required,oneof=csv pdf"`
	SessionID string              `json:"session_id"`
	Status    string              `json:"status"`
	Search    string              `json:"search"`
}

// ExportJobResponse exposes export job progress.
type ExportJobResponse struct {
	ID         string              `json:"id"`
	Format     models.ExportFormat `json:"format"`
	Status     models.ExportStatus `json:"status"`
	Progress   int                 `json:"progress"`
	ResultURL  *string             `json:"result_url,omitempty"`
	Error      *string             `json:"error,omitempty"`
	FinishedAt *string             `json:"finished_at,omitempty"`
}

// NewExportJobResponse projects a job for clients.
func NewExportJobResponse(job *models.ExportJob) ExportJobResponse {
	resp := ExportJobResponse{
		ID:        job.ID,
		Format:    job.Format,
		Status:    job.Status,
		Progress:  job.Progress,
		ResultURL: job.ResultURL,
	}
	if job.ErrorMessage != nil && *job.ErrorMessage != "" {
		resp.Error = job.ErrorMessage
	}
	if job.FinishedAt != nil {
		finished := job.FinishedAt.UTC().Format(time.RFC3339)
		resp.FinishedAt = &finished
	}
	return resp
}
