package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/plm-registrar/enrollment-api/internal/models"
)

func newRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func finalizeItems() models.Selection {
	return models.Selection{
		{SubjectCode: "CS101", SectionID: 1, Units: 3},
		{SubjectCode: "CS102", SectionID: 3, Units: 3},
	}
}

func TestEnrollmentRepositoryHasEnrollment(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM enrollments WHERE student_id = $1 AND semester = $2")).
		WithArgs("2021-00123", "1st").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	exists, err := repo.HasEnrollment(context.Background(), "2021-00123", "1st")
	require.NoError(t, err)
	require.True(t, exists)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollmentRepositoryFinalizeCommits(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM enrollments WHERE student_id = $1 AND semester = $2")).
		WithArgs("2021-00123", "1st").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	for _, item := range finalizeItems() {
		mock.ExpectQuery(regexp.QuoteMeta("SELECT capacity FROM sections WHERE section_id = $1 FOR UPDATE")).
			WithArgs(item.SectionID).
			WillReturnRows(sqlmock.NewRows([]string{"capacity"}).AddRow(40))
		mock.ExpectQuery(`SELECT COUNT\(DISTINCT es\.id\) FROM enrollment_subjects es`).
			WithArgs(item.SectionID, "1st").
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(10))
	}
	mock.ExpectExec("INSERT INTO enrollments").
		WithArgs(sqlmock.AnyArg(), "2021-00123", "1st", sqlmock.AnyArg(), models.EnrollmentStatusEnrolled).
		WillReturnResult(sqlmock.NewResult(1, 1))
	for _, item := range finalizeItems() {
		mock.ExpectExec("INSERT INTO enrollment_subjects").
			WithArgs(sqlmock.AnyArg(), item.SubjectCode, item.SectionID, item.Units).
			WillReturnResult(sqlmock.NewResult(1, 1))
	}
	mock.ExpectExec(regexp.QuoteMeta("UPDATE students SET enrollment_status = $2 WHERE student_id = $1")).
		WithArgs("2021-00123", models.StudentStatusEnrolled).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	id, err := repo.Finalize(context.Background(), "2021-00123", "1st", finalizeItems())
	require.NoError(t, err)
	require.NotEmpty(t, id)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollmentRepositoryFinalizeDetectsConcurrentDuplicate(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM enrollments WHERE student_id = $1 AND semester = $2")).
		WithArgs("2021-00123", "1st").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectRollback()

	_, err := repo.Finalize(context.Background(), "2021-00123", "1st", finalizeItems())
	require.ErrorIs(t, err, ErrDuplicateEnrollment)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollmentRepositoryFinalizeDetectsFullSection(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM enrollments WHERE student_id = $1 AND semester = $2")).
		WithArgs("2021-00123", "1st").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT capacity FROM sections WHERE section_id = $1 FOR UPDATE")).
		WithArgs(1).
		WillReturnRows(sqlmock.NewRows([]string{"capacity"}).AddRow(40))
	mock.ExpectQuery(`SELECT COUNT\(DISTINCT es\.id\) FROM enrollment_subjects es`).
		WithArgs(1, "1st").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(40))
	mock.ExpectRollback()

	_, err := repo.Finalize(context.Background(), "2021-00123", "1st", finalizeItems())
	var full *SectionFullError
	require.ErrorAs(t, err, &full)
	require.Equal(t, 1, full.SectionID)
	require.Equal(t, 40, full.Capacity)
	require.Equal(t, 40, full.Enrolled)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollmentRepositoryFinalizeRollsBackOnLineFailure(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	items := finalizeItems()
	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM enrollments WHERE student_id = $1 AND semester = $2")).
		WithArgs("2021-00123", "1st").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	for _, item := range items {
		mock.ExpectQuery(regexp.QuoteMeta("SELECT capacity FROM sections WHERE section_id = $1 FOR UPDATE")).
			WithArgs(item.SectionID).
			WillReturnRows(sqlmock.NewRows([]string{"capacity"}).AddRow(40))
		mock.ExpectQuery(`SELECT COUNT\(DISTINCT es\.id\) FROM enrollment_subjects es`).
			WithArgs(item.SectionID, "1st").
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(10))
	}
	mock.ExpectExec("INSERT INTO enrollments").
		WithArgs(sqlmock.AnyArg(), "2021-00123", "1st", sqlmock.AnyArg(), models.EnrollmentStatusEnrolled).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO enrollment_subjects").
		WithArgs(sqlmock.AnyArg(), "CS101", 1, 3).
		WillReturnResult(sqlmock.NewResult(1, 1))
	// The second line insert fails mid-transaction; nothing may persist.
	mock.ExpectExec("INSERT INTO enrollment_subjects").
		WithArgs(sqlmock.AnyArg(), "CS102", 3, 3).
		WillReturnError(errors.New("connection reset"))
	mock.ExpectRollback()

	_, err := repo.Finalize(context.Background(), "2021-00123", "1st", items)
	require.Error(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollmentRepositoryFindByStudentAndSemester(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	submitted := time.Date(2026, 8, 1, 9, 0, 0, 0, time.UTC)
	mock.ExpectQuery("SELECT enrollment_id, student_id, semester, date_submitted, status").
		WithArgs("2021-00123", "1st").
		WillReturnRows(sqlmock.NewRows([]string{"enrollment_id", "student_id", "semester", "date_submitted", "status"}).
			AddRow("enr-1", "2021-00123", "1st", submitted, models.EnrollmentStatusEnrolled))
	mock.ExpectQuery("FROM enrollment_subjects es").
		WithArgs("enr-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "enrollment_id", "subject_code", "section_id", "units", "subject_name", "day", "time_start", "time_end", "room"}).
			AddRow(1, "enr-1", "CS101", 1, 3, "Intro to Computing", "Monday", "08:00:00", "09:30:00", "GK301").
			AddRow(2, "enr-1", "CS102", 3, 3, "Programming 1", "Tuesday", "08:00:00", "09:30:00", "GK302"))

	detail, err := repo.FindByStudentAndSemester(context.Background(), "2021-00123", "1st")
	require.NoError(t, err)
	require.Equal(t, "enr-1", detail.ID)
	require.Len(t, detail.Lines, 2)
	require.Equal(t, 6, detail.TotalUnits)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollmentRepositoryReset(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM enrollments WHERE student_id = $1 AND semester = $2")).
		WithArgs("2021-00123", "1st").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE students SET enrollment_status = $2 WHERE student_id = $1")).
		WithArgs("2021-00123", models.StudentStatusNotEnrolled).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, repo.Reset(context.Background(), "2021-00123", "1st"))
	require.NoError(t, mock.ExpectationsWereMet())
}
