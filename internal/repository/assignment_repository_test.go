package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/hcm-campaign-api/internal/models"
)

func TestAssignmentRepositoryFindByID(t *testing.T) {
	db, mock, cleanup := newCampaignRepoMock(t)
	defer cleanup()
	repo := NewAssignmentRepository(db)

	now := time.Now().UTC()
	rows := sqlmock.NewRows([]string{
		"id", "tenant_id", "campaign_id", "employee_id", "status", "assigned_by",
		"assigned_at", "last_reminder_at", "reminder_count", "last_accessed_at", "completed_at",
	}).AddRow("a1", "t1", "c1", int64(7), "ASSIGNED", "user-1", now, nil, 0, nil, nil)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT * FROM campaign_assignments WHERE tenant_id = $1 AND id = $2")).
		WithArgs("t1", "a1").
		WillReturnRows(rows)

	assignment, err := repo.FindByID(context.Background(), "t1", "a1")
	require.NoError(t, err)
	assert.Equal(t, "a1", assignment.ID)
	assert.Equal(t, int64(7), assignment.EmployeeID)
	assert.Equal(t, models.AssignmentAssigned, assignment.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAssignmentRepositoryBulkInsert(t *testing.T) {
	db, mock, cleanup := newCampaignRepoMock(t)
	defer cleanup()
	repo := NewAssignmentRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO campaign_assignments").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE campaign_assignments").
		WithArgs(sqlmock.AnyArg(), pq.Array([]string{"a-old"})).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO audit_logs").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	inserts := []models.Assignment{
		{TenantID: "t1", CampaignID: "c1", EmployeeID: 10, Status: models.AssignmentAssigned},
	}
	audit := &models.AuditLog{TenantID: "t1", Action: models.AuditActionAssignmentAdd, Resource: "assignment"}

	require.NoError(t, repo.BulkInsert(context.Background(), inserts, []string{"a-old"}, audit))
	assert.NotEmpty(t, inserts[0].ID)
	assert.False(t, inserts[0].AssignedAt.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAssignmentRepositoryBulkInsertUniqueViolation(t *testing.T) {
	db, mock, cleanup := newCampaignRepoMock(t)
	defer cleanup()
	repo := NewAssignmentRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO campaign_assignments").
		WillReturnError(&pq.Error{Code: "23505"})
	mock.ExpectRollback()

	inserts := []models.Assignment{
		{TenantID: "t1", CampaignID: "c1", EmployeeID: 10, Status: models.AssignmentAssigned},
	}
	err := repo.BulkInsert(context.Background(), inserts, nil, nil)
	assert.ErrorIs(t, err, ErrDuplicateAssignment)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAssignmentRepositoryUpdateStatusStampsCompletedAt(t *testing.T) {
	db, mock, cleanup := newCampaignRepoMock(t)
	defer cleanup()
	repo := NewAssignmentRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE campaign_assignments SET status = $1, completed_at = $2 WHERE tenant_id = $3 AND id = $4")).
		WithArgs(models.AssignmentCompleted, sqlmock.AnyArg(), "t1", "a1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.UpdateStatus(context.Background(), "t1", "a1", models.AssignmentCompleted))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAssignmentRepositoryUpdateStatusPlain(t *testing.T) {
	db, mock, cleanup := newCampaignRepoMock(t)
	defer cleanup()
	repo := NewAssignmentRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE campaign_assignments SET status = $1 WHERE tenant_id = $2 AND id = $3")).
		WithArgs(models.AssignmentInProgress, "t1", "a1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.UpdateStatus(context.Background(), "t1", "a1", models.AssignmentInProgress))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAssignmentRepositoryUpdateStatusMissing(t *testing.T) {
	db, mock, cleanup := newCampaignRepoMock(t)
	defer cleanup()
	repo := NewAssignmentRepository(db)

	mock.ExpectExec("UPDATE campaign_assignments SET status").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.UpdateStatus(context.Background(), "t1", "missing", models.AssignmentCancelled)
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAssignmentRepositoryMarkReminded(t *testing.T) {
	db, mock, cleanup := newCampaignRepoMock(t)
	defer cleanup()
	repo := NewAssignmentRepository(db)

	at := time.Now().UTC()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE campaign_assignments SET reminder_count = reminder_count + 1, last_reminder_at = $1 WHERE tenant_id = $2 AND id = $3")).
		WithArgs(at, "t1", "a1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.MarkReminded(context.Background(), "t1", "a1", at))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAssignmentRepositoryListReminderCandidates(t *testing.T) {
	db, mock, cleanup := newCampaignRepoMock(t)
	defer cleanup()
	repo := NewAssignmentRepository(db)

	settings := []byte(`{"enabled":true,"frequency_days":3,"channels":["email"]}`)
	rows := sqlmock.NewRows([]string{
		"assignment_id", "campaign_id", "campaign_name", "tenant_id", "employee_id",
		"reminder_count", "last_reminder_at", "reminder_settings",
	}).AddRow("a1", "c1", "Pulse Check", "t1", int64(7), 1, nil, settings)

	mock.ExpectQuery("SELECT a\\.id AS assignment_id").
		WithArgs(sqlmock.AnyArg(), 7).
		WillReturnRows(rows)

	candidates, err := repo.ListReminderCandidates(context.Background(), time.Now(), 7)
	require.NoError(t, err)
	require.Len(t, candidates, 1)
	assert.Equal(t, "a1", candidates[0].AssignmentID)
	assert.True(t, candidates[0].Settings.Valid)
	assert.Equal(t, 3, candidates[0].Settings.Settings.FrequencyDays)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAssignmentRepositoryListByCampaign(t *testing.T) {
	db, mock, cleanup := newCampaignRepoMock(t)
	defer cleanup()
	repo := NewAssignmentRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM campaign_assignments a WHERE a.tenant_id = $1 AND a.campaign_id = $2")).
		WithArgs("t1", "c1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	now := time.Now().UTC()
	rows := sqlmock.NewRows([]string{
		"id", "tenant_id", "campaign_id", "employee_id", "status", "assigned_by",
		"assigned_at", "last_reminder_at", "reminder_count", "last_accessed_at", "completed_at",
		"employee_name", "employee_email",
	}).AddRow("a1", "t1", "c1", int64(7), "ASSIGNED", "user-1", now, nil, 0, nil, nil, "Alex Doe", "alex@example.com")

	mock.ExpectQuery("SELECT a\\.\\*, e\\.full_name AS employee_name").
		WithArgs("t1", "c1", 20, 0).
		WillReturnRows(rows)

	assignments, total, err := repo.ListByCampaign(context.Background(), models.AssignmentFilter{TenantID: "t1", CampaignID: "c1"})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, assignments, 1)
	assert.Equal(t, "Alex Doe", assignments[0].EmployeeName)
	assert.NoError(t, mock.ExpectationsWereMet())
}
