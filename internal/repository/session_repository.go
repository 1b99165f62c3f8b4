package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/abhiyeduru/mentlearn-api/internal/models"
)

const sessionColumns = `s.id, s.title, s.description, s.instructor_name, s.instructor_bio, s.date, s.time, s.duration_minutes,
        s.max_participants, s.topics, s.prerequisites, s.meeting_link, s.banner_url, s.is_active, s.is_live, s.created_by,
        s.created_at, s.updated_at`

// SessionRepository manages persistence for live sessions.
type SessionRepository struct {
	db *sqlx.DB
}

// NewSessionRepository constructs a SessionRepository.
func NewSessionRepository(db *sqlx.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

// ListActive returns sessions visible to learners, newest first.
func (r *SessionRepository) ListActive(ctx context.Context) ([]models.Session, error) {
	query := fmt.Sprintf(`SELECT %s FROM sessions s WHERE s.is_active = TRUE ORDER BY s.created_at DESC, s.id DESC`, sessionColumns)
	var sessions []models.Session
	if err := r.db.SelectContext(ctx, &sessions, query); err != nil {
		return nil, fmt.Errorf("list active sessions: %w", err)
	}
	return sessions, nil
}

// List returns sessions with their registration counts for staff views.
func (r *SessionRepository) List(ctx context.Context, filter models.SessionFilter) ([]models.SessionSummary, int, error) {
	args := []interface{}{}
	conditions := []string{"1=1"}

	if filter.Active != nil {
		conditions = append(conditions, fmt.Sprintf("s.is_active = $%d", len(args)+1))
		args = append(args, *filter.Active)
	}
	if filter.Live != nil {
		conditions = append(conditions, fmt.Sprintf("s.is_live = $%d", len(args)+1))
		args = append(args, *filter.Live)
	}
	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("(LOWER(s.title) LIKE $%d OR LOWER(s.instructor_name) LIKE $%d)", len(args)+1, len(args)+1))
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
	}
	where := strings.Join(conditions, " AND ")

	allowedSorts := map[string]string{
		"title":      "s.title",
		"date":       "s.date",
		"created_at": "s.created_at",
	}
	column, ok := allowedSorts[filter.SortBy]
	if !ok {
		column = "s.created_at"
	}
	order := strings.ToUpper(filter.SortOrder)
	if order != "ASC" && order != "DESC" {
		order = "DESC"
	}
	page, size := normalizePage(filter.Page, filter.PageSize)

	query := fmt.Sprintf(`SELECT %s, COALESCE(rc.total, 0) AS registration_count
        FROM sessions s LEFT JOIN (SELECT session_id, COUNT(*) AS total FROM registrations GROUP BY session_id) rc ON rc.session_id = s.id::text
        WHERE %s ORDER BY %s %s, s.id %s LIMIT %d OFFSET %d`, sessionColumns, where, column, order, order, size, (page-1)*size)

	var sessions []models.SessionSummary
	if err := r.db.SelectContext(ctx, &sessions, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list sessions: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, fmt.Sprintf("SELECT COUNT(*) FROM sessions s WHERE %s", where), args...); err != nil {
		return nil, 0, fmt.Errorf("count sessions: %w", err)
	}
	return sessions, total, nil
}

// FindByID fetches a session. sql.ErrNoRows is returned untouched when missing.
func (r *SessionRepository) FindByID(ctx context.Context, id string) (*models.Session, error) {
	if err := checkID(id); err != nil {
		return nil, err
	}
	query := fmt.Sprintf(`SELECT %s FROM sessions s WHERE s.id = $1`, sessionColumns)
	var session models.Session
	if err := r.db.GetContext(ctx, &session, query, id); err != nil {
		return nil, err
	}
	return &session, nil
}

// Create inserts a session, assigning its identity and timestamps.
func (r *SessionRepository) Create(ctx context.Context, session *models.Session) error {
	if session.ID == "" {
		session.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	session.CreatedAt = now
	session.UpdatedAt = now
	if session.Topics == nil {
		session.Topics = []string{}
	}
	if session.Prerequisites == nil {
		session.Prerequisites = []string{}
	}
	const query = `INSERT INTO sessions (id, title, description, instructor_name, instructor_bio, date, time, duration_minutes,
        max_participants, topics, prerequisites, meeting_link, banner_url, is_active, is_live, created_by, created_at, updated_at)
        VALUES (:id, :title, :description, :instructor_name, :instructor_bio, :date, :time, :duration_minutes,
        :max_participants, :topics, :prerequisites, :meeting_link, :banner_url, :is_active, :is_live, :created_by, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, session); err != nil {
		return fmt.Errorf("create session: %w", err)
	}
	return nil
}

// Update writes every editable column of the session.
func (r *SessionRepository) Update(ctx context.Context, session *models.Session) error {
	if err := checkID(session.ID); err != nil {
		return err
	}
	session.UpdatedAt = time.Now().UTC()
	const query = `UPDATE sessions SET title = :title, description = :description, instructor_name = :instructor_name,
        instructor_bio = :instructor_bio, date = :date, time = :time, duration_minutes = :duration_minutes,
        max_participants = :max_participants, topics = :topics, prerequisites = :prerequisites, meeting_link = :meeting_link,
        banner_url = :banner_url, is_active = :is_active, is_live = :is_live, updated_at = :updated_at WHERE id = :id`
	res, err := r.db.NamedExecContext(ctx, query, session)
	if err != nil {
		return fmt.Errorf("update session: %w", err)
	}
	return requireAffected(res)
}

// ToggleActive flips is_active in place and returns the updated row.
func (r *SessionRepository) ToggleActive(ctx context.Context, id string) (*models.Session, error) {
	return r.updateReturning(ctx, "is_active = NOT is_active", id)
}

// ToggleLive flips is_live in place and returns the updated row.
func (r *SessionRepository) ToggleLive(ctx context.Context, id string) (*models.Session, error) {
	return r.updateReturning(ctx, "is_live = NOT is_live", id)
}

// SetLive writes is_live explicitly and returns the updated row.
func (r *SessionRepository) SetLive(ctx context.Context, id string, isLive bool) (*models.Session, error) {
	return r.updateReturning(ctx, "is_live = $3", id, isLive)
}

func (r *SessionRepository) updateReturning(ctx context.Context, assignment, id string, extra ...interface{}) (*models.Session, error) {
	if err := checkID(id); err != nil {
		return nil, err
	}
	query := fmt.Sprintf(`UPDATE sessions s SET %s, updated_at = $2 WHERE s.id = $1 RETURNING %s`, assignment, sessionColumns)
	args := append([]interface{}{id, time.Now().UTC()}, extra...)
	var session models.Session
	if err := r.db.GetContext(ctx, &session, query, args...); err != nil {
		return nil, err
	}
	return &session, nil
}

// Delete removes the session row only. Registrations referencing it are kept.
func (r *SessionRepository) Delete(ctx context.Context, id string) error {
	if err := checkID(id); err != nil {
		return err
	}
	res, err := r.db.ExecContext(ctx, `DELETE FROM sessions WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return requireAffected(res)
}

// Stats returns catalog counters in a single round trip.
func (r *SessionRepository) Stats(ctx context.Context) (*models.SessionStats, error) {
	const query = `SELECT COUNT(*) AS total,
        COUNT(*) FILTER (WHERE is_active) AS active,
        COUNT(*) FILTER (WHERE is_live) AS live,
        (SELECT COUNT(*) FROM registrations) AS registrations
        FROM sessions`
	var stats models.SessionStats
	if err := r.db.GetContext(ctx, &stats, query); err != nil {
		return nil, fmt.Errorf("session stats: %w", err)
	}
	return &stats, nil
}

// checkID reports ids that cannot match a UUID key as missing rows, so
// Postgres never sees them.
func checkID(id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return sql.ErrNoRows
	}
	return nil
}

func requireAffected(res sql.Result) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func normalizePage(page, size int) (int, int) {
	if page < 1 {
		page = 1
	}
	if size <= 0 || size > 100 {
		size = 20
	}
	return page, size
}
