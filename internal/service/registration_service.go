package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/abhiyeduru/mentlearn-api/internal/models"
	appErrors "github.com/abhiyeduru/mentlearn-api/pkg/errors"
)

type registrationRepository interface {
	Create(ctx context.Context, registration *models.Registration) error
	List(ctx context.Context, filter models.RegistrationFilter) ([]models.Registration, int, error)
	ListAll(ctx context.Context, filter models.RegistrationFilter) ([]models.Registration, error)
	FindByID(ctx context.Context, id string) (*models.Registration, error)
	UpdateStatus(ctx context.Context, id string, status models.RegistrationStatus) error
}

type sessionFinder interface {
	FindByID(ctx context.Context, id string) (*models.Session, error)
}

// SubmitRegistrationRequest is a learner's sign-up payload.
type SubmitRegistrationRequest struct {
	SessionID string `json:"session_id" validate:"required"`
	FullName  string `json:"full_name" validate:"required"`
	Email     string `json:"email" validate:"required,email"`
	Phone     string `json:"phone" validate:"required"`
	College   string `json:"college"`
	Course    string `json:"course"`
	Goals     string `json:"goals"`
}

func (r *SubmitRegistrationRequest) normalize() {
	r.SessionID = strings.TrimSpace(r.SessionID)
	r.FullName = strings.TrimSpace(r.FullName)
	r.Email = strings.TrimSpace(r.Email)
	r.Phone = strings.TrimSpace(r.Phone)
	r.College = strings.TrimSpace(r.College)
	r.Course = strings.TrimSpace(r.Course)
	r.Goals = strings.TrimSpace(r.Goals)
}

// RegistrationService implements registration intake and triage.
type RegistrationService struct {
	repo      registrationRepository
	sessions  sessionFinder
	cache     *CacheService
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewRegistrationService constructs the registration service.
func NewRegistrationService(repo registrationRepository, sessions sessionFinder, cache *CacheService, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger) *RegistrationService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RegistrationService{repo: repo, sessions: sessions, cache: cache, metrics: metrics, validator: validate, logger: logger}
}

// Submit stores a registration with a snapshot of the session's title, date
// and time. A missing session does not fail the submission; the snapshot
// fields are left empty instead. Duplicates and capacity are not checked.
func (s *RegistrationService) Submit(ctx context.Context, req SubmitRegistrationRequest) (*models.Registration, error) {
	req.normalize()
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Validation(err, "invalid registration payload")
	}

	registration := &models.Registration{
		SessionID: req.SessionID,
		FullName:  req.FullName,
		Email:     req.Email,
		Phone:     req.Phone,
		College:   req.College,
		Course:    req.Course,
		Goals:     req.Goals,
		Status:    models.RegistrationStatusPending,
	}

	found := true
	session, err := s.sessions.FindByID(ctx, req.SessionID)
	switch {
	case err == nil:
		registration.SessionTitle = session.Title
		registration.SessionDate = session.Date
		registration.SessionTime = session.Time
	case errors.Is(err, sql.ErrNoRows):
		found = false
		s.logger.Warn("registration references unknown session", zap.String("session_id", req.SessionID))
	default:
		return nil, appErrors.Persistence(err, "failed to load session")
	}

	if err := s.repo.Create(ctx, registration); err != nil {
		return nil, appErrors.Persistence(err, "failed to save registration")
	}
	s.metrics.RecordRegistration(found)
	_ = s.cache.Invalidate(ctx, cacheKeySessionStats)
	s.logger.Info("registration submitted", zap.String("registration_id", registration.ID), zap.String("session_id", registration.SessionID))
	return registration, nil
}

// List returns registrations for staff triage.
func (s *RegistrationService) List(ctx context.Context, actor models.Actor, filter models.RegistrationFilter) ([]models.Registration, *models.Pagination, error) {
	if err := requireStaff(actor); err != nil {
		return nil, nil, err
	}
	if err := validateStatusFilter(filter.Status); err != nil {
		return nil, nil, err
	}
	registrations, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Persistence(err, "failed to list registrations")
	}
	return registrations, paginate(filter.Page, filter.PageSize, total), nil
}

// SetStatus assigns any of the four triage labels. There is no transition
// guard and the write happens even when the status is unchanged.
func (s *RegistrationService) SetStatus(ctx context.Context, actor models.Actor, id, rawStatus string) (*models.Registration, error) {
	if err := requireStaff(actor); err != nil {
		return nil, err
	}
	status, err := models.ParseRegistrationStatus(rawStatus)
	if err != nil {
		return nil, appErrors.Validation(err, "status must be one of pending, contacted, confirmed, cancelled")
	}
	if err := s.repo.UpdateStatus(ctx, id, status); err != nil {
		return nil, registrationLookupError(err)
	}
	registration, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, registrationLookupError(err)
	}
	s.logger.Info("registration status set", zap.String("registration_id", id), zap.String("status", string(status)), zap.String("actor", actor.UserID))
	return registration, nil
}

func registrationLookupError(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return appErrors.Clone(appErrors.ErrNotFound, "registration not found")
	}
	return appErrors.Persistence(err, "registration store unavailable")
}

func validateStatusFilter(status models.RegistrationStatus) error {
	if status != "" && !status.Valid() {
		return appErrors.Clone(appErrors.ErrValidation, "unknown status filter")
	}
	return nil
}
