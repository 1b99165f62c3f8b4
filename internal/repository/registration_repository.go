package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/abhiyeduru/mentlearn-api/internal/models"
)

// Stored empty statuses read back as pending.
const registrationColumns = `r.id, r.session_id, r.session_title, r.session_date, r.session_time, r.full_name, r.email, r.phone,
        r.college, r.course, r.goals, COALESCE(NULLIF(r.status, ''), 'pending') AS status, r.registered_at, r.updated_at`

// RegistrationRepository manages persistence for session registrations.
type RegistrationRepository struct {
	db *sqlx.DB
}

// NewRegistrationRepository constructs a RegistrationRepository.
func NewRegistrationRepository(db *sqlx.DB) *RegistrationRepository {
	return &RegistrationRepository{db: db}
}

// Create inserts a registration. registered_at is assigned here, at write time.
func (r *RegistrationRepository) Create(ctx context.Context, registration *models.Registration) error {
	if registration.ID == "" {
		registration.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	registration.RegisteredAt = now
	registration.UpdatedAt = now
	registration.Status = registration.Status.OrDefault()
	const query = `INSERT INTO registrations (id, session_id, session_title, session_date, session_time, full_name, email, phone,
        college, course, goals, status, registered_at, updated_at)
        VALUES (:id, :session_id, :session_title, :session_date, :session_time, :full_name, :email, :phone,
        :college, :course, :goals, :status, :registered_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, registration); err != nil {
		return fmt.Errorf("create registration: %w", err)
	}
	return nil
}

// List returns a page of registrations matching the filter.
func (r *RegistrationRepository) List(ctx context.Context, filter models.RegistrationFilter) ([]models.Registration, int, error) {
	where, args := registrationWhere(filter)
	page, size := normalizePage(filter.Page, filter.PageSize)
	order := registrationOrder(filter.SortOrder)

	query := fmt.Sprintf(`SELECT %s FROM registrations r WHERE %s ORDER BY r.registered_at %s, r.id %s LIMIT %d OFFSET %d`,
		registrationColumns, where, order, order, size, (page-1)*size)
	var registrations []models.Registration
	if err := r.db.SelectContext(ctx, &registrations, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list registrations: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, fmt.Sprintf("SELECT COUNT(*) FROM registrations r WHERE %s", where), args...); err != nil {
		return nil, 0, fmt.Errorf("count registrations: %w", err)
	}
	return registrations, total, nil
}

// ListAll returns every registration matching the filter, ignoring paging.
func (r *RegistrationRepository) ListAll(ctx context.Context, filter models.RegistrationFilter) ([]models.Registration, error) {
	where, args := registrationWhere(filter)
	order := registrationOrder(filter.SortOrder)
	query := fmt.Sprintf(`SELECT %s FROM registrations r WHERE %s ORDER BY r.registered_at %s, r.id %s`, registrationColumns, where, order, order)
	var registrations []models.Registration
	if err := r.db.SelectContext(ctx, &registrations, query, args...); err != nil {
		return nil, fmt.Errorf("list registrations for export: %w", err)
	}
	return registrations, nil
}

// FindByID fetches a registration. sql.ErrNoRows is returned untouched when missing.
func (r *RegistrationRepository) FindByID(ctx context.Context, id string) (*models.Registration, error) {
	if err := checkID(id); err != nil {
		return nil, err
	}
	query := fmt.Sprintf(`SELECT %s FROM registrations r WHERE r.id = $1`, registrationColumns)
	var registration models.Registration
	if err := r.db.GetContext(ctx, &registration, query, id); err != nil {
		return nil, err
	}
	return &registration, nil
}

// UpdateStatus writes the status and bumps updated_at, even when unchanged.
func (r *RegistrationRepository) UpdateStatus(ctx context.Context, id string, status models.RegistrationStatus) error {
	if err := checkID(id); err != nil {
		return err
	}
	res, err := r.db.ExecContext(ctx, `UPDATE registrations SET status = $2, updated_at = $3 WHERE id = $1`, id, status, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("update registration status: %w", err)
	}
	return requireAffected(res)
}

func registrationWhere(filter models.RegistrationFilter) (string, []interface{}) {
	args := []interface{}{}
	conditions := []string{"1=1"}
	if filter.SessionID != "" {
		conditions = append(conditions, fmt.Sprintf("r.session_id = $%d", len(args)+1))
		args = append(args, filter.SessionID)
	}
	if filter.Status != "" {
		conditions = append(conditions, fmt.Sprintf("COALESCE(NULLIF(r.status, ''), 'pending') = $%d", len(args)+1))
		args = append(args, filter.Status)
	}
	if search := strings.TrimSpace(filter.Search); search != "" {
		conditions = append(conditions, fmt.Sprintf("(LOWER(r.full_name) LIKE $%d OR LOWER(r.email) LIKE $%d OR LOWER(r.session_title) LIKE $%d)", len(args)+1, len(args)+1, len(args)+1))
		args = append(args, "%"+strings.ToLower(search)+"%")
	}
	return strings.Join(conditions, " AND "), args
}

func registrationOrder(raw string) string {
	if strings.EqualFold(raw, "ASC") {
		return "ASC"
	}
	return "DESC"
}
