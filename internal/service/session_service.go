package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/abhiyeduru/mentlearn-api/internal/models"
	appErrors "github.com/abhiyeduru/mentlearn-api/pkg/errors"
)

type sessionRepository interface {
	ListActive(ctx context.Context) ([]models.Session, error)
	List(ctx context.Context, filter models.SessionFilter) ([]models.SessionSummary, int, error)
	FindByID(ctx context.Context, id string) (*models.Session, error)
	Create(ctx context.Context, session *models.Session) error
	Update(ctx context.Context, session *models.Session) error
	ToggleActive(ctx context.Context, id string) (*models.Session, error)
	ToggleLive(ctx context.Context, id string) (*models.Session, error)
	SetLive(ctx context.Context, id string, isLive bool) (*models.Session, error)
	Delete(ctx context.Context, id string) error
	Stats(ctx context.Context) (*models.SessionStats, error)
}

// CreateSessionRequest holds the payload for authoring a session.
type CreateSessionRequest struct {
	Title           string   `json:"title" validate:"required"`
	Description     string   `json:"description"`
	InstructorName  string   `json:"instructor_name" validate:"required"`
	InstructorBio   string   `json:"instructor_bio"`
	Date            string   `json:"date" validate:"required"`
	Time            string   `json:"time" validate:"required"`
	DurationMinutes int      `json:"duration_minutes" validate:"min=0"`
	MaxParticipants int      `json:"max_participants" validate:"min=0"`
	Topics          []string `json:"topics"`
	Prerequisites   []string `json:"prerequisites"`
	MeetingLink     string   `json:"meeting_link" validate:"omitempty,url"`
	BannerURL       string   `json:"banner_url" validate:"omitempty,url"`
	IsActive        *bool    `json:"is_active"`
}

// UpdateSessionRequest holds a partial session edit. Omitted fields are untouched.
type UpdateSessionRequest struct {
	Title           *string   `json:"title" validate:"omitempty,min=1"`
	Description     *string   `json:"description"`
	InstructorName  *string   `json:"instructor_name" validate:"omitempty,min=1"`
	InstructorBio   *string   `json:"instructor_bio"`
	Date            *string   `json:"date" validate:"omitempty,min=1"`
	Time            *string   `json:"time" validate:"omitempty,min=1"`
	DurationMinutes *int      `json:"duration_minutes" validate:"omitempty,min=0"`
	MaxParticipants *int      `json:"max_participants" validate:"omitempty,min=0"`
	Topics          *[]string `json:"topics"`
	Prerequisites   *[]string `json:"prerequisites"`
	MeetingLink     *string   `json:"meeting_link" validate:"omitempty,url"`
	BannerURL       *string   `json:"banner_url" validate:"omitempty,url"`
	IsActive        *bool     `json:"is_active"`
	IsLive          *bool     `json:"is_live"`
}

func (r UpdateSessionRequest) toUpdate() models.SessionUpdate {
	return models.SessionUpdate{
		Title:           trimPtr(r.Title),
		Description:     r.Description,
		InstructorName:  trimPtr(r.InstructorName),
		InstructorBio:   r.InstructorBio,
		Date:            trimPtr(r.Date),
		Time:            trimPtr(r.Time),
		DurationMinutes: r.DurationMinutes,
		MaxParticipants: r.MaxParticipants,
		Topics:          r.Topics,
		Prerequisites:   r.Prerequisites,
		MeetingLink:     r.MeetingLink,
		BannerURL:       r.BannerURL,
		IsActive:        r.IsActive,
		IsLive:          r.IsLive,
	}
}

// SessionService implements the session catalog and the session half of the
// status workflow.
type SessionService struct {
	repo      sessionRepository
	cache     *CacheService
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewSessionService constructs the session service. cache and metrics may be nil.
func NewSessionService(repo sessionRepository, cache *CacheService, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger) *SessionService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SessionService{repo: repo, cache: cache, metrics: metrics, validator: validate, logger: logger}
}

// ListActive returns the sessions learners may register for, newest first.
func (s *SessionService) ListActive(ctx context.Context) ([]models.Session, error) {
	var cached []models.Session
	if hit, _ := s.cache.Get(ctx, cacheKeyActiveSessions, &cached); hit {
		return cached, nil
	}
	sessions, err := s.loadActive(ctx)
	if err != nil {
		return nil, err
	}
	_ = s.cache.Set(ctx, cacheKeyActiveSessions, sessions, 0)
	return sessions, nil
}

func (s *SessionService) loadActive(ctx context.Context) ([]models.Session, error) {
	start := time.Now()
	sessions, err := s.repo.ListActive(ctx)
	s.metrics.ObserveDBQuery("sessions.list_active", time.Since(start))
	if err != nil {
		return nil, appErrors.Persistence(err, "failed to list active sessions")
	}
	if sessions == nil {
		sessions = []models.Session{}
	}
	return sessions, nil
}

// List returns sessions with registration counts for staff.
func (s *SessionService) List(ctx context.Context, filter models.SessionFilter) ([]models.SessionSummary, *models.Pagination, error) {
	start := time.Now()
	sessions, total, err := s.repo.List(ctx, filter)
	s.metrics.ObserveDBQuery("sessions.list", time.Since(start))
	if err != nil {
		return nil, nil, appErrors.Persistence(err, "failed to list sessions")
	}
	return sessions, paginate(filter.Page, filter.PageSize, total), nil
}

// Get returns a single session.
func (s *SessionService) Get(ctx context.Context, id string) (*models.Session, error) {
	session, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, sessionLookupError(err)
	}
	return session, nil
}

// Create authors a new session. is_live always starts false.
func (s *SessionService) Create(ctx context.Context, actor models.Actor, req CreateSessionRequest) (*models.Session, error) {
	if err := requireStaff(actor); err != nil {
		return nil, err
	}
	req.Title = strings.TrimSpace(req.Title)
	req.InstructorName = strings.TrimSpace(req.InstructorName)
	req.Date = strings.TrimSpace(req.Date)
	req.Time = strings.TrimSpace(req.Time)
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Validation(err, "invalid session payload")
	}
	isActive := true
	if req.IsActive != nil {
		isActive = *req.IsActive
	}
	session := &models.Session{
		Title:           req.Title,
		Description:     req.Description,
		InstructorName:  req.InstructorName,
		InstructorBio:   req.InstructorBio,
		Date:            req.Date,
		Time:            req.Time,
		DurationMinutes: req.DurationMinutes,
		MaxParticipants: req.MaxParticipants,
		Topics:          req.Topics,
		Prerequisites:   req.Prerequisites,
		MeetingLink:     req.MeetingLink,
		BannerURL:       req.BannerURL,
		IsActive:        isActive,
		IsLive:          false,
		CreatedBy:       actor.UserID,
	}
	if err := s.repo.Create(ctx, session); err != nil {
		return nil, appErrors.Persistence(err, "failed to create session")
	}
	s.invalidate(ctx)
	s.logger.Info("session created", zap.String("session_id", session.ID), zap.String("actor", actor.UserID))
	return session, nil
}

// Update applies a partial edit. Registrations keep the session fields they
// captured at submission.
func (s *SessionService) Update(ctx context.Context, actor models.Actor, id string, req UpdateSessionRequest) (*models.Session, error) {
	if err := requireStaff(actor); err != nil {
		return nil, err
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Validation(err, "invalid session payload")
	}
	update := req.toUpdate()
	if update.Empty() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "no fields to update")
	}
	session, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, sessionLookupError(err)
	}
	applySessionUpdate(session, update)
	if session.Title == "" || session.InstructorName == "" || session.Date == "" || session.Time == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "title, instructor_name, date and time must not be empty")
	}
	if err := s.repo.Update(ctx, session); err != nil {
		return nil, sessionLookupError(err)
	}
	s.invalidate(ctx)
	return session, nil
}

// ToggleActive flips learner visibility.
func (s *SessionService) ToggleActive(ctx context.Context, actor models.Actor, id string) (*models.Session, error) {
	return s.mutate(ctx, actor, "toggle_active", id, s.repo.ToggleActive)
}

// ToggleLive flips the live flag.
func (s *SessionService) ToggleLive(ctx context.Context, actor models.Actor, id string) (*models.Session, error) {
	return s.mutate(ctx, actor, "toggle_live", id, s.repo.ToggleLive)
}

// SetLive writes the live flag explicitly. Repeating the same value still writes.
func (s *SessionService) SetLive(ctx context.Context, actor models.Actor, id string, isLive bool) (*models.Session, error) {
	return s.mutate(ctx, actor, "set_live", id, func(ctx context.Context, id string) (*models.Session, error) {
		return s.repo.SetLive(ctx, id, isLive)
	})
}

func (s *SessionService) mutate(ctx context.Context, actor models.Actor, op, id string, fn func(context.Context, string) (*models.Session, error)) (*models.Session, error) {
	if err := requireStaff(actor); err != nil {
		return nil, err
	}
	session, err := fn(ctx, id)
	if err != nil {
		return nil, sessionLookupError(err)
	}
	s.invalidate(ctx)
	s.logger.Info("session updated", zap.String("op", op), zap.String("session_id", id),
		zap.Bool("is_active", session.IsActive), zap.Bool("is_live", session.IsLive), zap.String("actor", actor.UserID))
	return session, nil
}

// Delete removes the session. Its registrations are left in place.
func (s *SessionService) Delete(ctx context.Context, actor models.Actor, id string) error {
	if err := requireStaff(actor); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return sessionLookupError(err)
	}
	s.invalidate(ctx)
	s.logger.Info("session deleted", zap.String("session_id", id), zap.String("actor", actor.UserID))
	return nil
}

// Refresh re-primes the active catalog cache and publishes catalog gauges.
func (s *SessionService) Refresh(ctx context.Context) (*models.SessionStats, error) {
	sessions, err := s.loadActive(ctx)
	if err != nil {
		return nil, err
	}
	_ = s.cache.Set(ctx, cacheKeyActiveSessions, sessions, 0)

	stats, err := s.repo.Stats(ctx)
	if err != nil {
		return nil, appErrors.Persistence(err, "failed to load session stats")
	}
	s.metrics.SetSessionStats(*stats)
	_ = s.cache.Set(ctx, cacheKeySessionStats, stats, 0)
	return stats, nil
}

// Stats returns catalog counters, served from cache when possible.
func (s *SessionService) Stats(ctx context.Context) (*models.SessionStats, error) {
	var cached models.SessionStats
	if hit, _ := s.cache.Get(ctx, cacheKeySessionStats, &cached); hit {
		return &cached, nil
	}
	start := time.Now()
	stats, err := s.repo.Stats(ctx)
	s.metrics.ObserveDBQuery("sessions.stats", time.Since(start))
	if err != nil {
		return nil, appErrors.Persistence(err, "failed to load session stats")
	}
	_ = s.cache.Set(ctx, cacheKeySessionStats, stats, 0)
	return stats, nil
}

func (s *SessionService) invalidate(ctx context.Context) {
	_ = s.cache.Invalidate(ctx, cacheKeyActiveSessions, cacheKeySessionStats)
}

func applySessionUpdate(session *models.Session, u models.SessionUpdate) {
	if u.Title != nil {
		session.Title = *u.Title
	}
	if u.Description != nil {
		session.Description = *u.Description
	}
	if u.InstructorName != nil {
		session.InstructorName = *u.InstructorName
	}
	if u.InstructorBio != nil {
		session.InstructorBio = *u.InstructorBio
	}
	if u.Date != nil {
		session.Date = *u.Date
	}
	if u.Time != nil {
		session.Time = *u.Time
	}
	if u.DurationMinutes != nil {
		session.DurationMinutes = *u.DurationMinutes
	}
	if u.MaxParticipants != nil {
		session.MaxParticipants = *u.MaxParticipants
	}
	if u.Topics != nil {
		session.Topics = *u.Topics
	}
	if u.Prerequisites != nil {
		session.Prerequisites = *u.Prerequisites
	}
	if u.MeetingLink != nil {
		session.MeetingLink = *u.MeetingLink
	}
	if u.BannerURL != nil {
		session.BannerURL = *u.BannerURL
	}
	if u.IsActive != nil {
		session.IsActive = *u.IsActive
	}
	if u.IsLive != nil {
		session.IsLive = *u.IsLive
	}
}

func sessionLookupError(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return appErrors.Clone(appErrors.ErrNotFound, "session not found")
	}
	return appErrors.Persistence(err, "session store unavailable")
}

func requireStaff(actor models.Actor) error {
	if actor.UserID == "" {
		return appErrors.ErrUnauthorized
	}
	if !actor.Role.IsStaff() {
		return appErrors.Clone(appErrors.ErrForbidden, "staff role required")
	}
	return nil
}

func paginate(page, size, total int) *models.Pagination {
	if page < 1 {
		page = 1
	}
	if size <= 0 || size > 100 {
		size = 20
	}
	return &models.Pagination{Page: page, PageSize: size, TotalCount: total}
}

func trimPtr(v *string) *string {
	if v == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*v)
	return &trimmed
}
