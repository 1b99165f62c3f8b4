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

// LeadRepository manages persistence for callback and partner leads.
type LeadRepository struct {
	db *sqlx.DB
}

// NewLeadRepository constructs a LeadRepository.
func NewLeadRepository(db *sqlx.DB) *LeadRepository {
	return &LeadRepository{db: db}
}

// Create inserts a lead.
func (r *LeadRepository) Create(ctx context.Context, lead *models.Lead) error {
	if lead.ID == "" {
		lead.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	lead.CreatedAt = now
	lead.UpdatedAt = now
	lead.Status = lead.Status.OrDefault()
	const query = `INSERT INTO leads (id, kind, full_name, email, phone, organization, message, status, created_at, updated_at)
        VALUES (:id, :kind, :full_name, :email, :phone, :organization, :message, :status, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, lead); err != nil {
		return fmt.Errorf("create lead: %w", err)
	}
	return nil
}

// List returns a page of leads, newest first.
func (r *LeadRepository) List(ctx context.Context, filter models.LeadFilter) ([]models.Lead, int, error) {
	args := []interface{}{}
	conditions := []string{"1=1"}
	if filter.Kind != "" {
		conditions = append(conditions, fmt.Sprintf("kind = $%d", len(args)+1))
		args = append(args, filter.Kind)
	}
	if filter.Status != "" {
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)+1))
		args = append(args, filter.Status)
	}
	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("(LOWER(full_name) LIKE $%d OR LOWER(email) LIKE $%d OR LOWER(organization) LIKE $%d)", len(args)+1, len(args)+1, len(args)+1))
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
	}
	where := strings.Join(conditions, " AND ")
	page, size := normalizePage(filter.Page, filter.PageSize)

	query := fmt.Sprintf(`SELECT id, kind, full_name, email, phone, organization, message, status, created_at, updated_at
        FROM leads WHERE %s ORDER BY created_at DESC, id DESC LIMIT %d OFFSET %d`, where, size, (page-1)*size)
	var leads []models.Lead
	if err := r.db.SelectContext(ctx, &leads, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list leads: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, fmt.Sprintf("SELECT COUNT(*) FROM leads WHERE %s", where), args...); err != nil {
		return nil, 0, fmt.Errorf("count leads: %w", err)
	}
	return leads, total, nil
}

// UpdateStatus writes the triage label and bumps updated_at.
func (r *LeadRepository) UpdateStatus(ctx context.Context, id string, status models.RegistrationStatus) error {
	if err := checkID(id); err != nil {
		return err
	}
	res, err := r.db.ExecContext(ctx, `UPDATE leads SET status = $2, updated_at = $3 WHERE id = $1`, id, status, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("update lead status: %w", err)
	}
	return requireAffected(res)
}
