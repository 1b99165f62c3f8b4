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

type leadRepository interface {
	Create(ctx context.Context, lead *models.Lead) error
	List(ctx context.Context, filter models.LeadFilter) ([]models.Lead, int, error)
	UpdateStatus(ctx context.Context, id string, status models.RegistrationStatus) error
}

// SubmitLeadRequest is the public callback or partner form payload.
type SubmitLeadRequest struct {
	FullName     string `json:"full_name" validate:"required"`
	Email        string `json:"email" validate:"required,email"`
	Phone        string `json:"phone" validate:"required"`
	Organization string `json:"organization"`
	Message      string `json:"message" validate:"max=2000"`
}

// LeadService captures and triages marketing leads.
type LeadService struct {
	repo      leadRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewLeadService constructs the lead service.
func NewLeadService(repo leadRepository, validate *validator.Validate, logger *zap.Logger) *LeadService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LeadService{repo: repo, validator: validate, logger: logger}
}

// Submit stores a lead of the given kind. Partner requests must name an organization.
func (s *LeadService) Submit(ctx context.Context, kind models.LeadKind, req SubmitLeadRequest) (*models.Lead, error) {
	if !kind.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown lead kind")
	}
	req.FullName = strings.TrimSpace(req.FullName)
	req.Email = strings.TrimSpace(req.Email)
	req.Phone = strings.TrimSpace(req.Phone)
	req.Organization = strings.TrimSpace(req.Organization)
	req.Message = strings.TrimSpace(req.Message)
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Validation(err, "invalid lead payload")
	}
	if kind == models.LeadKindPartner && req.Organization == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "organization is required for partner requests")
	}
	lead := &models.Lead{
		Kind:         kind,
		FullName:     req.FullName,
		Email:        req.Email,
		Phone:        req.Phone,
		Organization: req.Organization,
		Message:      req.Message,
		Status:       models.RegistrationStatusPending,
	}
	if err := s.repo.Create(ctx, lead); err != nil {
		return nil, appErrors.Persistence(err, "failed to save lead")
	}
	s.logger.Info("lead captured", zap.String("lead_id", lead.ID), zap.String("kind", string(kind)))
	return lead, nil
}

// List returns leads for staff.
func (s *LeadService) List(ctx context.Context, actor models.Actor, filter models.LeadFilter) ([]models.Lead, *models.Pagination, error) {
	if err := requireStaff(actor); err != nil {
		return nil, nil, err
	}
	if filter.Kind != "" && !filter.Kind.Valid() {
		return nil, nil, appErrors.Clone(appErrors.ErrValidation, "unknown lead kind")
	}
	if err := validateStatusFilter(filter.Status); err != nil {
		return nil, nil, err
	}
	leads, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Persistence(err, "failed to list leads")
	}
	return leads, paginate(filter.Page, filter.PageSize, total), nil
}

// SetStatus assigns a triage label with the same rules as registrations.
func (s *LeadService) SetStatus(ctx context.Context, actor models.Actor, id, rawStatus string) error {
	if err := requireStaff(actor); err != nil {
		return err
	}
	status, err := models.ParseRegistrationStatus(rawStatus)
	if err != nil {
		return appErrors.Validation(err, "status must be one of pending, contacted, confirmed, cancelled")
	}
	if err := s.repo.UpdateStatus(ctx, id, status); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "lead not found")
		}
		return appErrors.Persistence(err, "failed to update lead")
	}
	return nil
}
