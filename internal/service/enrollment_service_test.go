package service

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/plm-registrar/enrollment-api/internal/models"
	"github.com/plm-registrar/enrollment-api/internal/repository"
	appErrors "github.com/plm-registrar/enrollment-api/pkg/errors"
)

type mockEnrollmentLedger struct {
	exists      bool
	finalizeErr error
	committed   models.Selection
	resetCalled bool
	detail      *models.EnrollmentDetail
}

func (m *mockEnrollmentLedger) HasEnrollment(ctx context.Context, studentID, semester string) (bool, error) {
	return m.exists, nil
}

func (m *mockEnrollmentLedger) FindByStudentAndSemester(ctx context.Context, studentID, semester string) (*models.EnrollmentDetail, error) {
	if m.detail == nil {
		return nil, sql.ErrNoRows
	}
	return m.detail, nil
}

func (m *mockEnrollmentLedger) Finalize(ctx context.Context, studentID, semester string, items models.Selection) (string, error) {
	if m.finalizeErr != nil {
		return "", m.finalizeErr
	}
	m.committed = items
	m.exists = true
	return "enr-0001", nil
}

func (m *mockEnrollmentLedger) Reset(ctx context.Context, studentID, semester string) error {
	m.resetCalled = true
	m.exists = false
	return nil
}

func twelveUnits() models.Selection {
	return models.Selection{
		{SubjectCode: "CS101", SectionID: 1, Units: 3},
		{SubjectCode: "CS102", SectionID: 3, Units: 3},
		{SubjectCode: "GE101", SectionID: 5, Units: 3},
		{SubjectCode: "GE102", SectionID: 6, Units: 3},
	}
}

func newEnrollmentFixture(ledger *mockEnrollmentLedger) (*EnrollmentService, *memSelectionStore) {
	store := newMemSelectionStore()
	students := &mockStudentDirectory{students: map[string]models.Student{
		"2021-00123": {ID: "2021-00123", FullName: "Juan Dela Cruz", Program: "BSCS", YearLevel: 2},
		"2018-00001": {ID: "2018-00001", FullName: "Maria Santos", Program: "BSCS", YearLevel: 4},
	}}
	return NewEnrollmentService(ledger, students, store, enrollmentConfig(), zap.NewNop(), nil), store
}

func TestEnrollmentServiceFinalizeEmptySelection(t *testing.T) {
	svc, _ := newEnrollmentFixture(&mockEnrollmentLedger{})

	_, err := svc.Finalize(context.Background(), "2021-00123")
	require.Error(t, err)
	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrSelectionEmpty.Code, appErr.Code)
	assert.Equal(t, "No subjects selected for enrollment.", appErr.Message)
}

func TestEnrollmentServiceFinalizeRejectsDuplicate(t *testing.T) {
	svc, store := newEnrollmentFixture(&mockEnrollmentLedger{exists: true})
	require.NoError(t, store.Save(context.Background(), "2021-00123", twelveUnits()))

	_, err := svc.Finalize(context.Background(), "2021-00123")
	require.Error(t, err)
	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrAlreadyEnrolled.Code, appErr.Code)
	assert.Equal(t, "You are already enrolled for this semester. Cannot create duplicate enrollment.", appErr.Message)
}

func TestEnrollmentServiceFinalizeBelowMinimumUnits(t *testing.T) {
	svc, store := newEnrollmentFixture(&mockEnrollmentLedger{})
	require.NoError(t, store.Save(context.Background(), "2021-00123", models.Selection{
		{SubjectCode: "CS101", SectionID: 1, Units: 3},
		{SubjectCode: "CS102", SectionID: 3, Units: 3},
		{SubjectCode: "CS103", SectionID: 4, Units: 3},
	}))

	_, err := svc.Finalize(context.Background(), "2021-00123")
	require.Error(t, err)
	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrPreconditionFailed.Code, appErr.Code)
	assert.Equal(t, "Unit quantity is below the minimum allowed (9 < 12).", appErr.Message)
}

func TestEnrollmentServiceTerminalYearExemptFromMinimum(t *testing.T) {
	ledger := &mockEnrollmentLedger{}
	svc, store := newEnrollmentFixture(ledger)
	require.NoError(t, store.Save(context.Background(), "2018-00001", models.Selection{
		{SubjectCode: "CS490", SectionID: 9, Units: 3},
	}))

	result, err := svc.Finalize(context.Background(), "2018-00001")
	require.NoError(t, err)
	assert.Equal(t, "Enrollment Success", result.Message)
	assert.Equal(t, 3, result.TotalUnits)
	assert.Len(t, ledger.committed, 1)
}

func TestEnrollmentServiceFinalizeSuccessClearsSelection(t *testing.T) {
	ledger := &mockEnrollmentLedger{}
	svc, store := newEnrollmentFixture(ledger)
	require.NoError(t, store.Save(context.Background(), "2021-00123", twelveUnits()))

	result, err := svc.Finalize(context.Background(), "2021-00123")
	require.NoError(t, err)
	assert.Equal(t, "enr-0001", result.EnrollmentID)
	assert.Equal(t, "Enrollment Success", result.Message)
	assert.Equal(t, 12, result.TotalUnits)
	assert.Len(t, ledger.committed, 4)

	remaining, err := store.Get(context.Background(), "2021-00123")
	require.NoError(t, err)
	assert.Empty(t, remaining)
}

func TestEnrollmentServiceFinalizeMapsRepositoryRaces(t *testing.T) {
	// A duplicate slipping past the pre-check is caught inside the transaction.
	svc, store := newEnrollmentFixture(&mockEnrollmentLedger{finalizeErr: repository.ErrDuplicateEnrollment})
	require.NoError(t, store.Save(context.Background(), "2021-00123", twelveUnits()))

	_, err := svc.Finalize(context.Background(), "2021-00123")
	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrAlreadyEnrolled.Code, appErr.Code)

	svc, store = newEnrollmentFixture(&mockEnrollmentLedger{
		finalizeErr: &repository.SectionFullError{SectionID: 1, Capacity: 40, Enrolled: 40},
	})
	require.NoError(t, store.Save(context.Background(), "2021-00123", twelveUnits()))

	_, err = svc.Finalize(context.Background(), "2021-00123")
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrConflict.Code, appErr.Code)
	assert.Equal(t, "Section is full. Capacity: 40, Enrolled: 40.", appErr.Message)
}

func TestEnrollmentServiceFinalizeGenericFailure(t *testing.T) {
	svc, store := newEnrollmentFixture(&mockEnrollmentLedger{finalizeErr: errors.New("connection reset")})
	require.NoError(t, store.Save(context.Background(), "2021-00123", twelveUnits()))

	_, err := svc.Finalize(context.Background(), "2021-00123")
	require.Error(t, err)
	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrInternal.Code, appErr.Code)
	assert.Equal(t, "An error occurred during enrollment. Please try again.", appErr.Message)

	// A failed finalize must not consume the selection.
	remaining, err := store.Get(context.Background(), "2021-00123")
	require.NoError(t, err)
	assert.Len(t, remaining, 4)
}

func TestEnrollmentServiceResetThenFinalize(t *testing.T) {
	ledger := &mockEnrollmentLedger{exists: true}
	svc, store := newEnrollmentFixture(ledger)

	require.NoError(t, svc.Reset(context.Background(), "2021-00123"))
	assert.True(t, ledger.resetCalled)

	require.NoError(t, store.Save(context.Background(), "2021-00123", twelveUnits()))
	result, err := svc.Finalize(context.Background(), "2021-00123")
	require.NoError(t, err)
	assert.Equal(t, "Enrollment Success", result.Message)
}

func enrolledDetail() *models.EnrollmentDetail {
	return &models.EnrollmentDetail{
		Enrollment: models.Enrollment{
			ID:            "enr-0001",
			StudentID:     "2021-00123",
			Semester:      "1st",
			DateSubmitted: time.Date(2026, 8, 1, 9, 0, 0, 0, time.UTC),
			Status:        models.EnrollmentStatusEnrolled,
		},
		Lines: []models.EnrollmentLineDetail{
			{EnrollmentLine: models.EnrollmentLine{SubjectCode: "CS101", SectionID: 1, Units: 3}, SubjectName: "Intro to Computing", Day: "Monday", TimeStart: "08:00:00", TimeEnd: "09:30:00", Room: "GK301"},
		},
		TotalUnits: 3,
	}
}

func TestEnrollmentServiceSlip(t *testing.T) {
	svc, _ := newEnrollmentFixture(&mockEnrollmentLedger{detail: enrolledDetail()})

	payload, err := svc.Slip(context.Background(), "2021-00123")
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(payload, []byte("%PDF")))
}

func TestEnrollmentServiceExportCSV(t *testing.T) {
	svc, _ := newEnrollmentFixture(&mockEnrollmentLedger{detail: enrolledDetail()})

	payload, err := svc.ExportCSV(context.Background(), "2021-00123")
	require.NoError(t, err)
	assert.Contains(t, string(payload), "CS101")
	assert.Contains(t, string(payload), "TOTAL")
}

func TestEnrollmentServiceCurrentNotFound(t *testing.T) {
	svc, _ := newEnrollmentFixture(&mockEnrollmentLedger{})

	_, err := svc.Current(context.Background(), "2021-00123")
	require.Error(t, err)
	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErr.Code)
}
