package repository

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abhiyeduru/mentlearn-api/internal/models"
)

func TestLeadRepositoryCreateAndList(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewLeadRepository(db)

	args := make([]driver.Value, 10)
	for i := range args {
		args[i] = sqlmock.AnyArg()
	}
	mock.ExpectExec("INSERT INTO leads").WithArgs(args...).WillReturnResult(sqlmock.NewResult(1, 1))

	lead := &models.Lead{Kind: models.LeadKindPartner, FullName: "Meera", Email: "meera@corp.example", Phone: "888", Organization: "Corp"}
	require.NoError(t, repo.Create(context.Background(), lead))
	assert.Equal(t, models.RegistrationStatusPending, lead.Status)

	now := time.Now()
	mock.ExpectQuery(`FROM leads WHERE 1=1 AND kind = \$1 ORDER BY created_at DESC, id DESC LIMIT 20 OFFSET 0`).
		WithArgs(models.LeadKindPartner).
		WillReturnRows(sqlmock.NewRows([]string{"id", "kind", "full_name", "email", "phone", "organization", "message", "status", "created_at", "updated_at"}).
			AddRow(lead.ID, "partner", "Meera", "meera@corp.example", "888", "Corp", "", "pending", now, now))
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM leads WHERE 1=1 AND kind = \$1`).
		WithArgs(models.LeadKindPartner).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	leads, total, err := repo.List(context.Background(), models.LeadFilter{Kind: models.LeadKindPartner})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, leads, 1)
	assert.Equal(t, models.LeadKindPartner, leads[0].Kind)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLeadRepositoryUpdateStatus(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewLeadRepository(db)

	mock.ExpectExec(`UPDATE leads SET status = \$2, updated_at = \$3 WHERE id = \$1`).
		WithArgs(registrationID, models.RegistrationStatusContacted, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.UpdateStatus(context.Background(), registrationID, models.RegistrationStatusContacted))
	assert.ErrorIs(t, repo.UpdateStatus(context.Background(), "lead-7", models.RegistrationStatusContacted), sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}
