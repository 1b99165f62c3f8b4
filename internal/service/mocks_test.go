package service

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/abhiyeduru/mentlearn-api/internal/models"
	appErrors "github.com/abhiyeduru/mentlearn-api/pkg/errors"
	"github.com/abhiyeduru/mentlearn-api/pkg/jobs"
)

var errStoreDown = errors.New("connection refused")

var (
	staffActor   = models.Actor{UserID: "admin-1", Email: "admin@mentlearn.example", Role: models.RoleAdmin}
	studentActor = models.Actor{UserID: "student-1", Email: "learner@mentlearn.example", Role: models.RoleStudent}
)

type mockSessionRepo struct {
	mu       sync.Mutex
	sessions map[string]*models.Session
	seq      int
	clock    time.Time
	err      error
}

func newMockSessionRepo() *mockSessionRepo {
	return &mockSessionRepo{sessions: map[string]*models.Session{}, clock: time.Date(2026, 10, 1, 9, 0, 0, 0, time.UTC)}
}

func (m *mockSessionRepo) ListActive(ctx context.Context) ([]models.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	var out []models.Session
	for _, s := range m.sessions {
		if s.IsActive {
			out = append(out, *s)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (m *mockSessionRepo) List(ctx context.Context, filter models.SessionFilter) ([]models.SessionSummary, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, 0, m.err
	}
	var out []models.SessionSummary
	for _, s := range m.sessions {
		if filter.Active != nil && s.IsActive != *filter.Active {
			continue
		}
		out = append(out, models.SessionSummary{Session: *s})
	}
	return out, len(out), nil
}

func (m *mockSessionRepo) FindByID(ctx context.Context, id string) (*models.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	s, ok := m.sessions[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	clone := *s
	return &clone, nil
}

func (m *mockSessionRepo) Create(ctx context.Context, session *models.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.seq++
	m.clock = m.clock.Add(time.Minute)
	session.ID = "session-" + string(rune('a'+m.seq-1))
	session.CreatedAt = m.clock
	session.UpdatedAt = m.clock
	clone := *session
	m.sessions[session.ID] = &clone
	return nil
}

func (m *mockSessionRepo) Update(ctx context.Context, session *models.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	if _, ok := m.sessions[session.ID]; !ok {
		return sql.ErrNoRows
	}
	m.clock = m.clock.Add(time.Second)
	session.UpdatedAt = m.clock
	clone := *session
	m.sessions[session.ID] = &clone
	return nil
}

func (m *mockSessionRepo) mutate(id string, fn func(*models.Session)) (*models.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	s, ok := m.sessions[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	fn(s)
	m.clock = m.clock.Add(time.Second)
	s.UpdatedAt = m.clock
	clone := *s
	return &clone, nil
}

func (m *mockSessionRepo) ToggleActive(ctx context.Context, id string) (*models.Session, error) {
	return m.mutate(id, func(s *models.Session) { s.IsActive = !s.IsActive })
}

func (m *mockSessionRepo) ToggleLive(ctx context.Context, id string) (*models.Session, error) {
	return m.mutate(id, func(s *models.Session) { s.IsLive = !s.IsLive })
}

func (m *mockSessionRepo) SetLive(ctx context.Context, id string, isLive bool) (*models.Session, error) {
	return m.mutate(id, func(s *models.Session) { s.IsLive = isLive })
}

func (m *mockSessionRepo) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	if _, ok := m.sessions[id]; !ok {
		return sql.ErrNoRows
	}
	delete(m.sessions, id)
	return nil
}

func (m *mockSessionRepo) Stats(ctx context.Context) (*models.SessionStats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	stats := &models.SessionStats{Total: len(m.sessions)}
	for _, s := range m.sessions {
		if s.IsActive {
			stats.Active++
		}
		if s.IsLive {
			stats.Live++
		}
	}
	return stats, nil
}

type mockRegistrationRepo struct {
	mu            sync.Mutex
	registrations map[string]*models.Registration
	order         []string
	writes        int
	clock         time.Time
	err           error
}

func newMockRegistrationRepo() *mockRegistrationRepo {
	return &mockRegistrationRepo{registrations: map[string]*models.Registration{}, clock: time.Date(2026, 10, 2, 4, 30, 0, 0, time.UTC)}
}

func (m *mockRegistrationRepo) Create(ctx context.Context, r *models.Registration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.clock = m.clock.Add(time.Minute)
	r.ID = "reg-" + string(rune('a'+len(m.order)))
	r.RegisteredAt = m.clock
	r.UpdatedAt = m.clock
	r.Status = r.Status.OrDefault()
	clone := *r
	m.registrations[r.ID] = &clone
	m.order = append(m.order, r.ID)
	return nil
}

func (m *mockRegistrationRepo) matches(r *models.Registration, filter models.RegistrationFilter) bool {
	if filter.SessionID != "" && r.SessionID != filter.SessionID {
		return false
	}
	if filter.Status != "" && r.Status.OrDefault() != filter.Status {
		return false
	}
	if q := strings.ToLower(strings.TrimSpace(filter.Search)); q != "" {
		hay := strings.ToLower(r.FullName + " " + r.Email + " " + r.SessionTitle)
		if !strings.Contains(hay, q) {
			return false
		}
	}
	return true
}

func (m *mockRegistrationRepo) ListAll(ctx context.Context, filter models.RegistrationFilter) ([]models.Registration, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	var out []models.Registration
	for _, id := range m.order {
		if r := m.registrations[id]; m.matches(r, filter) {
			out = append(out, *r)
		}
	}
	return out, nil
}

func (m *mockRegistrationRepo) List(ctx context.Context, filter models.RegistrationFilter) ([]models.Registration, int, error) {
	out, err := m.ListAll(ctx, filter)
	return out, len(out), err
}

func (m *mockRegistrationRepo) FindByID(ctx context.Context, id string) (*models.Registration, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	r, ok := m.registrations[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	clone := *r
	return &clone, nil
}

func (m *mockRegistrationRepo) UpdateStatus(ctx context.Context, id string, status models.RegistrationStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	r, ok := m.registrations[id]
	if !ok {
		return sql.ErrNoRows
	}
	m.writes++
	m.clock = m.clock.Add(time.Second)
	r.Status = status
	r.UpdatedAt = m.clock
	return nil
}

type memoryCache struct {
	mu      sync.Mutex
	entries map[string]interface{}
	gets    int
	failGet bool
}

func newMemoryCache() *memoryCache {
	return &memoryCache{entries: map[string]interface{}{}}
}

func (c *memoryCache) Get(ctx context.Context, key string, dest interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gets++
	if c.failGet {
		return errStoreDown
	}
	v, ok := c.entries[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	switch d := dest.(type) {
	case *[]models.Session:
		*d = v.([]models.Session)
	case *models.SessionStats:
		*d = *v.(*models.SessionStats)
	default:
		return errors.New("unsupported cache type")
	}
	return nil
}

func (c *memoryCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = value
	return nil
}

func (c *memoryCache) Delete(ctx context.Context, keys ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, k := range keys {
		delete(c.entries, k)
	}
	return nil
}

func (c *memoryCache) has(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.entries[key]
	return ok
}

type memoryJobStore struct {
	mu   sync.Mutex
	jobs map[string]models.ExportJob
}

func newMemoryJobStore() *memoryJobStore {
	return &memoryJobStore{jobs: map[string]models.ExportJob{}}
}

func (s *memoryJobStore) Save(ctx context.Context, job *models.ExportJob) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs[job.ID] = *job
	return nil
}

func (s *memoryJobStore) FindByID(ctx context.Context, id string) (*models.ExportJob, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &job, nil
}

type recordingDispatcher struct {
	jobs []jobs.Job
	err  error
}

func (d *recordingDispatcher) Enqueue(job jobs.Job) error {
	if d.err != nil {
		return d.err
	}
	d.jobs = append(d.jobs, job)
	return nil
}

type fakeUploader struct {
	keys []string
	body []byte
	err  error
}

func (u *fakeUploader) Upload(ctx context.Context, key, contentType string, body io.Reader, size int64) (string, error) {
	if u.err != nil {
		return "", u.err
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return "", err
	}
	u.keys = append(u.keys, key)
	u.body = data
	return "https://media.example.com/" + key, nil
}
