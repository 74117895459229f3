package handler

import (
	"context"
	"crypto/subtle"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/plm-registrar/enrollment-api/internal/models"
	"github.com/plm-registrar/enrollment-api/internal/service"
	appErrors "github.com/plm-registrar/enrollment-api/pkg/errors"
	"github.com/plm-registrar/enrollment-api/pkg/response"
)

type enrollmentManager interface {
	Current(ctx context.Context, studentID string) (*models.EnrollmentDetail, error)
	Finalize(ctx context.Context, studentID string) (*service.FinalizeResult, error)
	Reset(ctx context.Context, studentID string) error
	Slip(ctx context.Context, studentID string) ([]byte, error)
	ExportCSV(ctx context.Context, studentID string) ([]byte, error)
}

// ResetRequest carries the shared secret gating the reset escape hatch.
type ResetRequest struct {
	ResetSecret string `json:"reset_secret" binding:"required"`
}

// EnrollmentHandler exposes finalize, reset and enrollment view endpoints.
type EnrollmentHandler struct {
	enrollments enrollmentManager
	resetSecret string
}

// NewEnrollmentHandler constructs EnrollmentHandler.
func NewEnrollmentHandler(enrollments enrollmentManager, resetSecret string) *EnrollmentHandler {
	return &EnrollmentHandler{enrollments: enrollments, resetSecret: resetSecret}
}

// Current godoc
// @Summary Committed enrollment for the current semester
// @Tags Enrollment
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /enrollment [get]
func (h *EnrollmentHandler) Current(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	detail, err := h.enrollments.Current(c.Request.Context(), claims.StudentID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, detail, nil)
}

// Finalize godoc
// @Summary Commit the in-progress selection as an enrollment
// @Tags Enrollment
// @Produce json
// @Success 201 {object} response.Envelope
// @Router /enrollment/finalize [post]
func (h *EnrollmentHandler) Finalize(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	result, err := h.enrollments.Finalize(c.Request.Context(), claims.StudentID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, result)
}

// Reset godoc
// @Summary Reverse a committed enrollment (administrative)
// @Tags Enrollment
// @Accept json
// @Produce json
// @Param payload body ResetRequest true "Shared secret"
// @Success 200 {object} response.Envelope
// @Router /enrollment/reset [post]
func (h *EnrollmentHandler) Reset(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req ResetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	if h.resetSecret == "" || subtle.ConstantTimeCompare([]byte(req.ResetSecret), []byte(h.resetSecret)) != 1 {
		response.Error(c, appErrors.Clone(appErrors.ErrForbidden, "Access denied. Invalid reset secret."))
		return
	}
	if err := h.enrollments.Reset(c.Request.Context(), claims.StudentID); err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"message": "Enrollment status reset successfully. You can now enroll again."}, nil)
}

// Slip godoc
// @Summary Registration slip as PDF
// @Tags Enrollment
// @Produce application/pdf
// @Success 200 {file} binary
// @Router /enrollment/slip [get]
func (h *EnrollmentHandler) Slip(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	payload, err := h.enrollments.Slip(c.Request.Context(), claims.StudentID)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="registration-slip.pdf"`)
	c.Data(http.StatusOK, "application/pdf", payload)
}

// Export godoc
// @Summary Enrollment lines as CSV
// @Tags Enrollment
// @Produce text/csv
// @Success 200 {file} binary
// @Router /enrollment/export [get]
func (h *EnrollmentHandler) Export(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	payload, err := h.enrollments.ExportCSV(c.Request.Context(), claims.StudentID)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="enrollment.csv"`)
	c.Data(http.StatusOK, "text/csv", payload)
}
