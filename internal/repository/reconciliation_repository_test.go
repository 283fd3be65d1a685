package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReconciliationRepositoryTryLock(t *testing.T) {
	db, mock, cleanup := newCampaignRepoMock(t)
	defer cleanup()
	repo := NewReconciliationRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT pg_try_advisory_lock($1)")).
		WithArgs(reconcileLockKey).
		WillReturnRows(sqlmock.NewRows([]string{"pg_try_advisory_lock"}).AddRow(true))

	acquired, err := repo.TryLock(context.Background())
	require.NoError(t, err)
	assert.True(t, acquired)

	mock.ExpectExec(regexp.QuoteMeta("SELECT pg_advisory_unlock($1)")).
		WithArgs(reconcileLockKey).
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, repo.Unlock(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReconciliationRepositoryTryLockHeldElsewhere(t *testing.T) {
	db, mock, cleanup := newCampaignRepoMock(t)
	defer cleanup()
	repo := NewReconciliationRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT pg_try_advisory_lock($1)")).
		WithArgs(reconcileLockKey).
		WillReturnRows(sqlmock.NewRows([]string{"pg_try_advisory_lock"}).AddRow(false))

	acquired, err := repo.TryLock(context.Background())
	require.NoError(t, err)
	assert.False(t, acquired)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReconciliationRepositoryActivateDue(t *testing.T) {
	db, mock, cleanup := newCampaignRepoMock(t)
	defer cleanup()
	repo := NewReconciliationRepository(db)

	today := time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC)
	mock.ExpectExec(regexp.QuoteMeta("UPDATE campaigns SET status = 'ACTIVE', updated_at = $1 WHERE status = 'PLANNED' AND start_date <= $2")).
		WithArgs(sqlmock.AnyArg(), today).
		WillReturnResult(sqlmock.NewResult(0, 2))

	n, err := repo.ActivateDue(context.Background(), today)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReconciliationRepositoryCompleteEnded(t *testing.T) {
	db, mock, cleanup := newCampaignRepoMock(t)
	defer cleanup()
	repo := NewReconciliationRepository(db)

	today := time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC)
	mock.ExpectBegin()
	mock.ExpectQuery("SELECT id FROM campaigns WHERE status IN").
		WithArgs(today).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("c1").AddRow("c2"))
	mock.ExpectExec("UPDATE campaigns SET status = 'COMPLETED'").
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec("UPDATE campaign_assignments SET status = 'EXPIRED'").
		WillReturnResult(sqlmock.NewResult(0, 5))
	mock.ExpectCommit()

	n, err := repo.CompleteEnded(context.Background(), today)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReconciliationRepositoryCompleteEndedNothingToDo(t *testing.T) {
	db, mock, cleanup := newCampaignRepoMock(t)
	defer cleanup()
	repo := NewReconciliationRepository(db)

	today := time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC)
	mock.ExpectBegin()
	mock.ExpectQuery("SELECT id FROM campaigns WHERE status IN").
		WithArgs(today).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectCommit()

	n, err := repo.CompleteEnded(context.Background(), today)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReconciliationRepositoryListNearEnd(t *testing.T) {
	db, mock, cleanup := newCampaignRepoMock(t)
	defer cleanup()
	repo := NewReconciliationRepository(db)

	today := time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows([]string{"campaign_id", "tenant_id", "name", "family", "end_date", "open_count"}).
		AddRow("c1", "t1", "Closing Soon", "assessment", today.AddDate(0, 0, 2), 4)

	mock.ExpectQuery("SELECT c\\.id AS campaign_id").
		WithArgs(today, today.AddDate(0, 0, 3)).
		WillReturnRows(rows)

	campaigns, err := repo.ListNearEnd(context.Background(), today, 3)
	require.NoError(t, err)
	require.Len(t, campaigns, 1)
	assert.Equal(t, "c1", campaigns[0].CampaignID)
	assert.Equal(t, 4, campaigns[0].OpenCount)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReconciliationRepositoryArchiveOld(t *testing.T) {
	db, mock, cleanup := newCampaignRepoMock(t)
	defer cleanup()
	repo := NewReconciliationRepository(db)

	today := time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC)
	mock.ExpectExec("UPDATE campaigns SET status = 'ARCHIVED'").
		WithArgs(sqlmock.AnyArg(), today.AddDate(0, 0, -90)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	n, err := repo.ArchiveOld(context.Background(), today, 90)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReconciliationRepositoryDeleteOrphans(t *testing.T) {
	db, mock, cleanup := newCampaignRepoMock(t)
	defer cleanup()
	repo := NewReconciliationRepository(db)

	mock.ExpectExec("DELETE FROM campaign_assignments a WHERE NOT EXISTS").
		WillReturnResult(sqlmock.NewResult(0, 2))

	n, err := repo.DeleteOrphanAssignments(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReconciliationRepositoryFindDuplicates(t *testing.T) {
	db, mock, cleanup := newCampaignRepoMock(t)
	defer cleanup()
	repo := NewReconciliationRepository(db)

	rows := sqlmock.NewRows([]string{"tenant_id", "employee_id", "count"}).
		AddRow("t1", int64(9), 2)
	mock.ExpectQuery("SELECT a1\\.tenant_id, a1\\.employee_id").
		WillReturnRows(rows)

	duplicates, err := repo.FindDuplicateNonTerminal(context.Background())
	require.NoError(t, err)
	require.Len(t, duplicates, 1)
	assert.Equal(t, int64(9), duplicates[0].EmployeeID)
	assert.Equal(t, 2, duplicates[0].Count)
	assert.NoError(t, mock.ExpectationsWereMet())
}
