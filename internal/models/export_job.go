package models

import "time"

// ExportFormat enumerates supported export formats.
type ExportFormat string

const (
	ExportFormatCSV ExportFormat = "csv"
	ExportFormatPDF ExportFormat = "pdf"
)

// ExportStatus captures background export lifecycle states.
type ExportStatus string

const (
	ExportStatusQueued     ExportStatus = "QUEUED"
	ExportStatusProcessing ExportStatus = "PROCESSING"
	ExportStatusFinished   ExportStatus = "FINISHED"
	ExportStatusFailed     ExportStatus = "FAILED"
)

// ExportJob tracks an asynchronous registration export.
type ExportJob struct {
	ID           string       `json:"id"`
	Format       ExportFormat `json:"format"`
	SessionID    string       `json:"session_id,omitempty"`
	Status       ExportStatus `json:"status"`
	StatusFilter string       `json:"status_filter,omitempty"`
	Search       string       `json:"search,omitempty"`
	Progress     int          `json:"progress"`
	ResultURL    *string      `json:"result_url,omitempty"`
	ErrorMessage *string      `json:"error_message,omitempty"`
	CreatedBy    string       `json:"created_by"`
	CreatedAt    time.Time    `json:"created_at"`
	FinishedAt   *time.Time   `json:"finished_at,omitempty"`
}

// Filter rebuilds the registration filter captured when the job was queued.
func (j ExportJob) Filter() RegistrationFilter {
	return RegistrationFilter{
		SessionID: j.SessionID,
		Status:    RegistrationStatus(j.StatusFilter),
		Search:    j.Search,
	}
}
