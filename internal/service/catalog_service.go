package service

import (
	"context"
	"database/sql"
	"errors"

	"go.uber.org/zap"

	"github.com/plm-registrar/enrollment-api/internal/models"
	"github.com/plm-registrar/enrollment-api/pkg/config"
	appErrors "github.com/plm-registrar/enrollment-api/pkg/errors"
)

type catalogBrowser interface {
	GetSubject(ctx context.Context, code string) (*models.Subject, error)
	ListSections(ctx context.Context, subjectCode string) ([]models.Section, error)
	ListPrerequisiteRelations(ctx context.Context, subjectCode string) ([]models.SubjectRelation, error)
	ListCorequisiteRelations(ctx context.Context, subjectCode string) ([]models.SubjectRelation, error)
	ListAvailableSubjects(ctx context.Context, program, semester string) ([]models.SubjectOffering, error)
}

// CatalogService serves subject browsing for the enrollment flow.
type CatalogService struct {
	catalog  catalogBrowser
	students studentReader
	cfg      config.EnrollmentConfig
	logger   *zap.Logger
}

// NewCatalogService constructs CatalogService.
func NewCatalogService(catalog catalogBrowser, students studentReader, cfg config.EnrollmentConfig, logger *zap.Logger) *CatalogService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CatalogService{catalog: catalog, students: students, cfg: cfg, logger: logger}
}

// AvailableSubjects lists the subjects a student may pick from this semester:
// the student's program offerings plus cross-program prerequisite subjects.
func (s *CatalogService) AvailableSubjects(ctx context.Context, studentID string) ([]models.SubjectOffering, error) {
	student, err := s.students.FindByID(ctx, studentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "Student not found.")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	offerings, err := s.catalog.ListAvailableSubjects(ctx, student.Program, s.cfg.CurrentSemester)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list subjects")
	}
	return offerings, nil
}

// SubjectDetails returns a subject with its prerequisite and corequisite edges
// and its sections in day, start-time order.
func (s *CatalogService) SubjectDetails(ctx context.Context, subjectCode string) (*models.SubjectDetail, error) {
	subject, err := s.catalog.GetSubject(ctx, subjectCode)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "Subject not found.")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load subject")
	}

	prereqs, err := s.catalog.ListPrerequisiteRelations(ctx, subjectCode)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load prerequisites")
	}
	coreqs, err := s.catalog.ListCorequisiteRelations(ctx, subjectCode)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load corequisites")
	}
	sections, err := s.catalog.ListSections(ctx, subjectCode)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load sections")
	}

	return &models.SubjectDetail{
		Subject:       *subject,
		Prerequisites: prereqs,
		Corequisites:  coreqs,
		Sections:      sections,
	}, nil
}
