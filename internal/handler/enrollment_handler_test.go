package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/plm-registrar/enrollment-api/internal/models"
	"github.com/plm-registrar/enrollment-api/internal/service"
	appErrors "github.com/plm-registrar/enrollment-api/pkg/errors"
)

type enrollmentManagerMock struct {
	detail      *models.EnrollmentDetail
	finalize    *service.FinalizeResult
	finalizeErr error
	resetCalled bool
	slip        []byte
	csv         []byte
}

func (m *enrollmentManagerMock) Current(ctx context.Context, studentID string) (*models.EnrollmentDetail, error) {
	if m.detail == nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "No enrollment found for this semester.")
	}
	return m.detail, nil
}

func (m *enrollmentManagerMock) Finalize(ctx context.Context, studentID string) (*service.FinalizeResult, error) {
	if m.finalizeErr != nil {
		return nil, m.finalizeErr
	}
	return m.finalize, nil
}

func (m *enrollmentManagerMock) Reset(ctx context.Context, studentID string) error {
	m.resetCalled = true
	return nil
}

func (m *enrollmentManagerMock) Slip(ctx context.Context, studentID string) ([]byte, error) {
	return m.slip, nil
}

func (m *enrollmentManagerMock) ExportCSV(ctx context.Context, studentID string) ([]byte, error) {
	return m.csv, nil
}

func TestEnrollmentHandlerFinalize(t *testing.T) {
	mock := &enrollmentManagerMock{finalize: &service.FinalizeResult{EnrollmentID: "enr-1", Message: "Enrollment Success", TotalUnits: 12}}
	h := NewEnrollmentHandler(mock, "reset-secret")
	c, w := newSelectionContext(t, http.MethodPost, "/enrollment/finalize", nil)

	h.Finalize(c)
	require.Equal(t, http.StatusCreated, w.Code)
}

func TestEnrollmentHandlerFinalizeEmptySelection(t *testing.T) {
	mock := &enrollmentManagerMock{finalizeErr: appErrors.Clone(appErrors.ErrSelectionEmpty, "No subjects selected for enrollment.")}
	h := NewEnrollmentHandler(mock, "reset-secret")
	c, w := newSelectionContext(t, http.MethodPost, "/enrollment/finalize", nil)

	h.Finalize(c)
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Contains(t, w.Body.String(), "No subjects selected for enrollment.")
}

func TestEnrollmentHandlerFinalizeDuplicate(t *testing.T) {
	mock := &enrollmentManagerMock{finalizeErr: appErrors.Clone(appErrors.ErrAlreadyEnrolled, "You are already enrolled for this semester. Cannot create duplicate enrollment.")}
	h := NewEnrollmentHandler(mock, "reset-secret")
	c, w := newSelectionContext(t, http.MethodPost, "/enrollment/finalize", nil)

	h.Finalize(c)
	require.Equal(t, http.StatusConflict, w.Code)
}

func TestEnrollmentHandlerResetWrongSecret(t *testing.T) {
	mock := &enrollmentManagerMock{}
	h := NewEnrollmentHandler(mock, "reset-secret")
	c, w := newSelectionContext(t, http.MethodPost, "/enrollment/reset", ResetRequest{ResetSecret: "wrong"})

	h.Reset(c)
	require.Equal(t, http.StatusForbidden, w.Code)
	assert.Contains(t, w.Body.String(), "Access denied. Invalid reset secret.")
	assert.False(t, mock.resetCalled)
}

func TestEnrollmentHandlerResetUnconfiguredSecretAlwaysDenies(t *testing.T) {
	mock := &enrollmentManagerMock{}
	h := NewEnrollmentHandler(mock, "")
	c, w := newSelectionContext(t, http.MethodPost, "/enrollment/reset", ResetRequest{ResetSecret: ""})

	h.Reset(c)
	// An empty secret in the body fails binding before the comparison runs.
	require.Equal(t, http.StatusBadRequest, w.Code)

	c, w = newSelectionContext(t, http.MethodPost, "/enrollment/reset", ResetRequest{ResetSecret: "anything"})
	h.Reset(c)
	require.Equal(t, http.StatusForbidden, w.Code)
	assert.False(t, mock.resetCalled)
}

func TestEnrollmentHandlerReset(t *testing.T) {
	mock := &enrollmentManagerMock{}
	h := NewEnrollmentHandler(mock, "reset-secret")
	c, w := newSelectionContext(t, http.MethodPost, "/enrollment/reset", ResetRequest{ResetSecret: "reset-secret"})

	h.Reset(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, mock.resetCalled)
	assert.Contains(t, w.Body.String(), "Enrollment status reset successfully.")
}

func TestEnrollmentHandlerCurrentNotFound(t *testing.T) {
	h := NewEnrollmentHandler(&enrollmentManagerMock{}, "reset-secret")
	c, w := newSelectionContext(t, http.MethodGet, "/enrollment", nil)

	h.Current(c)
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestEnrollmentHandlerSlipHeaders(t *testing.T) {
	mock := &enrollmentManagerMock{slip: []byte("%PDF-1.4 payload")}
	h := NewEnrollmentHandler(mock, "reset-secret")
	c, w := newSelectionContext(t, http.MethodGet, "/enrollment/slip", nil)

	h.Slip(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/pdf", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "registration-slip.pdf")
}

func TestEnrollmentHandlerExportHeaders(t *testing.T) {
	mock := &enrollmentManagerMock{csv: []byte("Subject,Units\nCS101,3\n")}
	h := NewEnrollmentHandler(mock, "reset-secret")
	c, w := newSelectionContext(t, http.MethodGet, "/enrollment/export", nil)

	h.Export(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/csv", w.Header().Get("Content-Type"))
}

func TestEnrollmentHandlerResponsesAreJSON(t *testing.T) {
	mock := &enrollmentManagerMock{finalize: &service.FinalizeResult{EnrollmentID: "enr-1", Message: "Enrollment Success", TotalUnits: 12}}
	h := NewEnrollmentHandler(mock, "reset-secret")
	c, w := newSelectionContext(t, http.MethodPost, "/enrollment/finalize", nil)

	h.Finalize(c)
	var envelope struct {
		Data service.FinalizeResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	assert.Equal(t, "Enrollment Success", envelope.Data.Message)
	assert.Equal(t, 12, envelope.Data.TotalUnits)
}
