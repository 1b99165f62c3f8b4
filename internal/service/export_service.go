package service

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/abhiyeduru/mentlearn-api/internal/models"
	appErrors "github.com/abhiyeduru/mentlearn-api/pkg/errors"
	"github.com/abhiyeduru/mentlearn-api/pkg/export"
	"github.com/abhiyeduru/mentlearn-api/pkg/storage"
)

// Registration export columns, in order.
var registrationExportHeaders = []string{"Name", "Email", "Phone", "Session", "College", "Goals", "Status", "Date"}

type registrationLister interface {
	ListAll(ctx context.Context, filter models.RegistrationFilter) ([]models.Registration, error)
}

type fileStorage interface {
	Save(relPath string, data []byte) (string, error)
	Open(relPath string) (*os.File, error)
	Delete(relPath string) error
	CleanupOlderThan(ttl time.Duration) ([]string, error)
}

type csvRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

type pdfRenderer interface {
	Render(data export.Dataset, title string) ([]byte, error)
}

// ExportConfig tunes export rendering and storage.
type ExportConfig struct {
	APIPrefix  string
	ResultTTL  time.Duration
	Location   *time.Location
	DateLayout string
}

// ExportFile is a rendered export held in memory.
type ExportFile struct {
	Filename    string
	ContentType string
	Data        []byte
}

// ExportResult captures a stored export and its signed download URL.
type ExportResult struct {
	RelativePath string
	Token        string
	URL          string
	Format       models.ExportFormat
	ExpiresAt    time.Time
}

// ExportService projects registrations into CSV or PDF. Rendering never
// filters; filtering happens in the registration query.
type ExportService struct {
	registrations registrationLister
	storage       fileStorage
	signer        *storage.SignedURLSigner
	csv           csvRenderer
	pdf           pdfRenderer
	logger        *zap.Logger
	cfg           ExportConfig
	now           func() time.Time
}

// NewExportService constructs an ExportService. storage and signer are only
// needed for background exports.
func NewExportService(registrations registrationLister, store fileStorage, signer *storage.SignedURLSigner, cfg ExportConfig, logger *zap.Logger, csv csvRenderer, pdf pdfRenderer) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.ResultTTL <= 0 {
		cfg.ResultTTL = 24 * time.Hour
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if cfg.DateLayout == "" {
		cfg.DateLayout = "02/01/2006, 15:04:05"
	}
	if csv == nil {
		csv = export.NewCSVExporter()
	}
	if pdf == nil {
		pdf = export.NewPDFExporter()
	}
	return &ExportService{
		registrations: registrations,
		storage:       store,
		signer:        signer,
		csv:           csv,
		pdf:           pdf,
		logger:        logger,
		cfg:           cfg,
		now:           time.Now,
	}
}

// RegistrationDataset maps registrations onto the fixed export columns.
func (s *ExportService) RegistrationDataset(registrations []models.Registration) export.Dataset {
	rows := make([]map[string]string, 0, len(registrations))
	for _, r := range registrations {
		session := r.SessionTitle
		if strings.TrimSpace(session) == "" {
			session = "N/A"
		}
		rows = append(rows, map[string]string{
			"Name":    r.FullName,
			"Email":   r.Email,
			"Phone":   r.Phone,
			"Session": session,
			"College": r.College,
			"Goals":   r.Goals,
			"Status":  string(r.Status.OrDefault()),
			"Date":    s.formatDate(r.RegisteredAt),
		})
	}
	return export.Dataset{Headers: registrationExportHeaders, Rows: rows}
}

// RegistrationsCSV renders the registrations matching filter as CSV.
func (s *ExportService) RegistrationsCSV(ctx context.Context, actor models.Actor, filter models.RegistrationFilter) (*ExportFile, error) {
	if err := requireStaff(actor); err != nil {
		return nil, err
	}
	if err := validateStatusFilter(filter.Status); err != nil {
		return nil, err
	}
	registrations, err := s.registrations.ListAll(ctx, filter)
	if err != nil {
		return nil, appErrors.Persistence(err, "failed to load registrations")
	}
	payload, err := s.csv.Render(s.RegistrationDataset(registrations))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render csv")
	}
	return &ExportFile{
		Filename:    fmt.Sprintf("registrations_%s.csv", s.now().In(s.cfg.Location).Format("2006-01-02")),
		ContentType: "text/csv; charset=utf-8",
		Data:        payload,
	}, nil
}

// Generate renders a queued export job and stores the file.
func (s *ExportService) Generate(ctx context.Context, job *models.ExportJob) (*ExportResult, error) {
	if job == nil {
		return nil, fmt.Errorf("job nil")
	}
	if s.storage == nil || s.signer == nil {
		return nil, fmt.Errorf("export storage not configured")
	}
	registrations, err := s.registrations.ListAll(ctx, job.Filter())
	if err != nil {
		return nil, fmt.Errorf("load registrations: %w", err)
	}
	dataset := s.RegistrationDataset(registrations)

	var payload []byte
	switch job.Format {
	case models.ExportFormatCSV:
		payload, err = s.csv.Render(dataset)
	case models.ExportFormatPDF:
		payload, err = s.pdf.Render(dataset, s.title(job))
	default:
		err = fmt.Errorf("unsupported format %s", job.Format)
	}
	if err != nil {
		return nil, err
	}

	relPath, err := s.storage.Save(fmt.Sprintf("registrations/%s.%s", job.ID, job.Format), payload)
	if err != nil {
		return nil, err
	}
	token, expiresAt, err := s.signer.Generate(job.ID, relPath)
	if err != nil {
		return nil, err
	}
	prefix := strings.TrimRight(s.cfg.APIPrefix, "/")
	if prefix == "" {
		prefix = "/api/v1"
	}
	return &ExportResult{
		RelativePath: relPath,
		Token:        token,
		URL:          fmt.Sprintf("%s/exports/download/%s", prefix, token),
		Format:       job.Format,
		ExpiresAt:    expiresAt,
	}, nil
}

// ParseToken validates download token metadata.
func (s *ExportService) ParseToken(token string, allowExpired bool) (storage.DownloadToken, error) {
	if s.signer == nil {
		return storage.DownloadToken{}, storage.ErrTokenSignature
	}
	return s.signer.Parse(token, allowExpired)
}

// Open returns a handle to a stored export file.
func (s *ExportService) Open(relPath string) (*os.File, error) {
	return s.storage.Open(relPath)
}

// Cleanup removes stored files older than the configured result TTL.
func (s *ExportService) Cleanup() ([]string, error) {
	if s.storage == nil {
		return nil, nil
	}
	return s.storage.CleanupOlderThan(s.cfg.ResultTTL)
}

func (s *ExportService) formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.In(s.cfg.Location).Format(s.cfg.DateLayout)
}

func (s *ExportService) title(job *models.ExportJob) string {
	if job.StatusFilter != "" {
		return fmt.Sprintf("Session Registrations (%s)", job.StatusFilter)
	}
	return "Session Registrations"
}
