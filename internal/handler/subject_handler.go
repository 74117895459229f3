package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/plm-registrar/enrollment-api/internal/models"
	appErrors "github.com/plm-registrar/enrollment-api/pkg/errors"
	"github.com/plm-registrar/enrollment-api/pkg/response"
)

type subjectBrowser interface {
	AvailableSubjects(ctx context.Context, studentID string) ([]models.SubjectOffering, error)
	SubjectDetails(ctx context.Context, subjectCode string) (*models.SubjectDetail, error)
}

// SubjectHandler exposes catalog browsing endpoints.
type SubjectHandler struct {
	catalog subjectBrowser
}

// NewSubjectHandler constructs SubjectHandler.
func NewSubjectHandler(catalog subjectBrowser) *SubjectHandler {
	return &SubjectHandler{catalog: catalog}
}

// List godoc
// @Summary List subjects available to the authenticated student
// @Tags Subjects
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /subjects [get]
func (h *SubjectHandler) List(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	offerings, err := h.catalog.AvailableSubjects(c.Request.Context(), claims.StudentID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, offerings, nil)
}

// Detail godoc
// @Summary Subject detail with prerequisites, corequisites and sections
// @Tags Subjects
// @Produce json
// @Param code path string true "Subject code"
// @Success 200 {object} response.Envelope
// @Router /subjects/{code} [get]
func (h *SubjectHandler) Detail(c *gin.Context) {
	detail, err := h.catalog.SubjectDetails(c.Request.Context(), c.Param("code"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, detail, nil)
}
