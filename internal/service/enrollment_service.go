package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/plm-registrar/enrollment-api/internal/models"
	"github.com/plm-registrar/enrollment-api/internal/repository"
	"github.com/plm-registrar/enrollment-api/pkg/config"
	appErrors "github.com/plm-registrar/enrollment-api/pkg/errors"
	"github.com/plm-registrar/enrollment-api/pkg/export"
)

type finalizeObserver interface {
	ObserveFinalize(outcome string)
}

type enrollmentStore interface {
	HasEnrollment(ctx context.Context, studentID, semester string) (bool, error)
	FindByStudentAndSemester(ctx context.Context, studentID, semester string) (*models.EnrollmentDetail, error)
	Finalize(ctx context.Context, studentID, semester string, items models.Selection) (string, error)
	Reset(ctx context.Context, studentID, semester string) error
}

// FinalizeResult carries the committed enrollment id back to the boundary.
type FinalizeResult struct {
	EnrollmentID string `json:"enrollment_id"`
	Message      string `json:"message"`
	TotalUnits   int    `json:"total_units"`
}

// EnrollmentService owns the finalization transaction and the reset escape
// hatch. It consumes the whole Selection State; the selection itself is
// cleared only after a successful commit.
type EnrollmentService struct {
	repo       enrollmentStore
	students   studentReader
	selections selectionStore
	cfg        config.EnrollmentConfig
	logger     *zap.Logger
	metrics    finalizeObserver
	pdf        *export.PDFExporter
	csv        *export.CSVExporter
}

// NewEnrollmentService constructs EnrollmentService.
func NewEnrollmentService(repo enrollmentStore, students studentReader, selections selectionStore, cfg config.EnrollmentConfig, logger *zap.Logger, metrics finalizeObserver) *EnrollmentService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EnrollmentService{
		repo:       repo,
		students:   students,
		selections: selections,
		cfg:        cfg,
		logger:     logger,
		metrics:    metrics,
		pdf:        export.NewPDFExporter(),
		csv:        export.NewCSVExporter(),
	}
}

func (s *EnrollmentService) observeFinalize(outcome string) {
	if s.metrics != nil {
		s.metrics.ObserveFinalize(outcome)
	}
}

// Current returns the student's committed enrollment for the current semester.
func (s *EnrollmentService) Current(ctx context.Context, studentID string) (*models.EnrollmentDetail, error) {
	detail, err := s.repo.FindByStudentAndSemester(ctx, studentID, s.cfg.CurrentSemester)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "No enrollment found for this semester.")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrollment")
	}
	if student, err := s.students.FindByID(ctx, studentID); err == nil {
		detail.StudentName = student.FullName
		detail.Program = student.Program
	}
	return detail, nil
}

// Finalize re-checks the aggregate preconditions and commits the selection
// atomically. On success the Selection State is cleared.
func (s *EnrollmentService) Finalize(ctx context.Context, studentID string) (*FinalizeResult, error) {
	selection, err := s.selections.Get(ctx, studentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load selection")
	}
	if len(selection) == 0 {
		return nil, appErrors.Clone(appErrors.ErrSelectionEmpty, "No subjects selected for enrollment.")
	}

	exists, err := s.repo.HasEnrollment(ctx, studentID, s.cfg.CurrentSemester)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check enrollment")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrAlreadyEnrolled, "You are already enrolled for this semester. Cannot create duplicate enrollment.")
	}

	totalUnits := selection.TotalUnits()
	if totalUnits < s.cfg.MinUnitsPerSemester {
		student, err := s.students.FindByID(ctx, studentID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, appErrors.Clone(appErrors.ErrNotFound, "Student not found.")
			}
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
		}
		// Students at or past the terminal year are exempt from the minimum.
		if student.YearLevel < s.cfg.TerminalYearLevel {
			message := fmt.Sprintf("Unit quantity is below the minimum allowed (%d < %d).", totalUnits, s.cfg.MinUnitsPerSemester)
			return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, message)
		}
	}

	enrollmentID, err := s.repo.Finalize(ctx, studentID, s.cfg.CurrentSemester, selection)
	if err != nil {
		if errors.Is(err, repository.ErrDuplicateEnrollment) {
			s.observeFinalize("duplicate")
			return nil, appErrors.Clone(appErrors.ErrAlreadyEnrolled, "You are already enrolled for this semester. Cannot create duplicate enrollment.")
		}
		var full *repository.SectionFullError
		if errors.As(err, &full) {
			s.observeFinalize("section_full")
			message := fmt.Sprintf("Section is full. Capacity: %d, Enrolled: %d.", full.Capacity, full.Enrolled)
			return nil, appErrors.Clone(appErrors.ErrConflict, message)
		}
		s.observeFinalize("error")
		s.logger.Error("enrollment finalize failed",
			zap.String("student_id", studentID),
			zap.String("semester", s.cfg.CurrentSemester),
			zap.Error(err))
		return nil, appErrors.Clone(appErrors.ErrInternal, "An error occurred during enrollment. Please try again.")
	}
	s.observeFinalize("committed")

	if err := s.selections.Clear(ctx, studentID); err != nil {
		s.logger.Warn("failed to clear selection after finalize",
			zap.String("student_id", studentID),
			zap.Error(err))
	}

	return &FinalizeResult{EnrollmentID: enrollmentID, Message: "Enrollment Success", TotalUnits: totalUnits}, nil
}

// Reset reverses a committed enrollment back to a re-enrollable state and
// drops any in-progress selection. Administrative escape hatch; the boundary
// gates it with a shared secret.
func (s *EnrollmentService) Reset(ctx context.Context, studentID string) error {
	if err := s.repo.Reset(ctx, studentID, s.cfg.CurrentSemester); err != nil {
		s.logger.Error("enrollment reset failed",
			zap.String("student_id", studentID),
			zap.String("semester", s.cfg.CurrentSemester),
			zap.Error(err))
		return appErrors.Clone(appErrors.ErrInternal, "An error occurred while resetting enrollment.")
	}
	if err := s.selections.Clear(ctx, studentID); err != nil {
		s.logger.Warn("failed to clear selection after reset",
			zap.String("student_id", studentID),
			zap.Error(err))
	}
	return nil
}

// Slip renders the committed enrollment as a PDF registration slip.
func (s *EnrollmentService) Slip(ctx context.Context, studentID string) ([]byte, error) {
	detail, err := s.Current(ctx, studentID)
	if err != nil {
		return nil, err
	}
	data := slipDataset(detail)
	title := fmt.Sprintf("Registration Slip - %s (%s Semester)", detail.StudentID, detail.Semester)
	payload, err := s.pdf.Render(data, title)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render registration slip")
	}
	return payload, nil
}

// ExportCSV renders the committed enrollment lines as CSV.
func (s *EnrollmentService) ExportCSV(ctx context.Context, studentID string) ([]byte, error) {
	detail, err := s.Current(ctx, studentID)
	if err != nil {
		return nil, err
	}
	payload, err := s.csv.Render(slipDataset(detail))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to export enrollment")
	}
	return payload, nil
}

func slipDataset(detail *models.EnrollmentDetail) export.Dataset {
	data := export.Dataset{Headers: []string{"Subject", "Name", "Section", "Schedule", "Room", "Units"}}
	for _, line := range detail.Lines {
		data.Rows = append(data.Rows, map[string]string{
			"Subject":  line.SubjectCode,
			"Name":     line.SubjectName,
			"Section":  fmt.Sprintf("%d", line.SectionID),
			"Schedule": fmt.Sprintf("%s %s-%s", line.Day, line.TimeStart, line.TimeEnd),
			"Room":     line.Room,
			"Units":    fmt.Sprintf("%d", line.Units),
		})
	}
	data.Rows = append(data.Rows, map[string]string{
		"Subject": "TOTAL",
		"Units":   fmt.Sprintf("%d", detail.TotalUnits),
	})
	return data
}
