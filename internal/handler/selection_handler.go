package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/plm-registrar/enrollment-api/internal/models"
	"github.com/plm-registrar/enrollment-api/internal/service"
	appErrors "github.com/plm-registrar/enrollment-api/pkg/errors"
	"github.com/plm-registrar/enrollment-api/pkg/response"
)

type selectionManager interface {
	Get(ctx context.Context, studentID string) (models.Selection, error)
	Validate(ctx context.Context, studentID, subjectCode string, sectionID int) (models.Verdict, error)
	Add(ctx context.Context, studentID, subjectCode string, sectionID int, withCorequisites bool) (*service.AddResult, error)
	Remove(ctx context.Context, studentID, subjectCode string, sectionID int) (models.Selection, error)
	Clear(ctx context.Context, studentID string) error
}

// CandidateRequest names a subject/section pick.
type CandidateRequest struct {
	SubjectCode string `json:"subject_code" binding:"required"`
	SectionID   int    `json:"section_id" binding:"required,gt=0"`
}

// AddRequest extends a candidate with the corequisite confirmation.
type AddRequest struct {
	CandidateRequest
	IncludeCorequisites bool `json:"include_corequisites"`
}

// SelectionHandler exposes the selection-building endpoints.
type SelectionHandler struct {
	selections selectionManager
}

// NewSelectionHandler constructs SelectionHandler.
func NewSelectionHandler(selections selectionManager) *SelectionHandler {
	return &SelectionHandler{selections: selections}
}

// Get godoc
// @Summary Current in-progress selection
// @Tags Selection
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /selection [get]
func (h *SelectionHandler) Get(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	selection, err := h.selections.Get(c.Request.Context(), claims.StudentID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"items": selection, "total_units": selection.TotalUnits()}, nil)
}

// Validate godoc
// @Summary Validate a candidate without mutating the selection
// @Tags Selection
// @Accept json
// @Produce json
// @Param payload body CandidateRequest true "Candidate"
// @Success 200 {object} models.Verdict
// @Router /selection/validate [post]
func (h *SelectionHandler) Validate(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req CandidateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusOK, models.Reject("Invalid parameters."))
		return
	}
	verdict, err := h.selections.Validate(c.Request.Context(), claims.StudentID, req.SubjectCode, req.SectionID)
	if err != nil {
		// Detail is logged by the service layer; the client only sees a retry hint.
		c.JSON(http.StatusOK, models.Reject("An error occurred during validation. Please try again."))
		return
	}
	c.JSON(http.StatusOK, verdict)
}

// Add godoc
// @Summary Validate and add a candidate to the selection
// @Tags Selection
// @Accept json
// @Produce json
// @Param payload body AddRequest true "Candidate"
// @Success 200 {object} response.Envelope
// @Router /selection/items [post]
func (h *SelectionHandler) Add(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req AddRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	result, err := h.selections.Add(c.Request.Context(), claims.StudentID, req.SubjectCode, req.SectionID, req.IncludeCorequisites)
	if err != nil {
		response.Error(c, err)
		return
	}
	if !result.Verdict.Valid {
		c.JSON(http.StatusUnprocessableEntity, result)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// Remove godoc
// @Summary Remove one item from the selection
// @Tags Selection
// @Accept json
// @Produce json
// @Param payload body CandidateRequest true "Item to remove"
// @Success 200 {object} response.Envelope
// @Router /selection/items [delete]
func (h *SelectionHandler) Remove(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req CandidateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	selection, err := h.selections.Remove(c.Request.Context(), claims.StudentID, req.SubjectCode, req.SectionID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"items": selection, "total_units": selection.TotalUnits()}, nil)
}

// Clear godoc
// @Summary Empty the selection
// @Tags Selection
// @Produce json
// @Success 204
// @Router /selection [delete]
func (h *SelectionHandler) Clear(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	if err := h.selections.Clear(c.Request.Context(), claims.StudentID); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
