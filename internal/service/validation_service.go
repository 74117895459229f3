package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/plm-registrar/enrollment-api/internal/models"
	"github.com/plm-registrar/enrollment-api/pkg/config"
	appErrors "github.com/plm-registrar/enrollment-api/pkg/errors"
)

type catalogReader interface {
	GetSubject(ctx context.Context, code string) (*models.Subject, error)
	GetSectionOfSubject(ctx context.Context, sectionID int, subjectCode string) (*models.Section, error)
	FirstSection(ctx context.Context, subjectCode string) (*models.Section, error)
	ListPrerequisites(ctx context.Context, subjectCode string) ([]string, error)
	ListCorequisites(ctx context.Context, subjectCode string) ([]string, error)
	HasPassed(ctx context.Context, studentID, subjectCode string) (bool, error)
	EnrolledAnySemester(ctx context.Context, studentID, subjectCode string) (bool, error)
	EnrolledInSemester(ctx context.Context, studentID, subjectCode, semester string) (bool, error)
	CountSectionEnrollment(ctx context.Context, sectionID int, semester string) (int, error)
}

type studentReader interface {
	FindByID(ctx context.Context, id string) (*models.Student, error)
}

type verdictObserver interface {
	ObserveVerdict(check string, accepted bool)
}

// candidate bundles the resolved state one validation run operates on.
type candidate struct {
	student   *models.Student
	subject   *models.Subject
	section   *models.Section
	selection models.Selection
	coreqs    []models.CorequisiteSuggestion
}

// eligibilityCheck returns a rejection message, or "" to pass. Checks run in a
// fixed order and the first rejection wins, so user-facing messages stay
// deterministic.
type eligibilityCheck struct {
	name string
	run  func(ctx context.Context, c *candidate) (string, error)
}

// ValidationService decides whether a candidate subject/section may join a
// student's in-progress selection.
type ValidationService struct {
	catalog  catalogReader
	students studentReader
	cfg      config.EnrollmentConfig
	logger   *zap.Logger
	metrics  verdictObserver
	checks   []eligibilityCheck
}

// NewValidationService constructs ValidationService.
func NewValidationService(catalog catalogReader, students studentReader, cfg config.EnrollmentConfig, logger *zap.Logger, metrics verdictObserver) *ValidationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &ValidationService{catalog: catalog, students: students, cfg: cfg, logger: logger, metrics: metrics}
	s.checks = []eligibilityCheck{
		{name: "already_taken", run: s.checkAlreadyTaken},
		{name: "prerequisites", run: s.checkPrerequisites},
		{name: "corequisites", run: s.discoverCorequisites},
		{name: "schedule_conflict", run: s.checkScheduleConflict},
		{name: "section_capacity", run: s.checkSectionCapacity},
		{name: "unit_limit", run: s.checkUnitLimit},
		{name: "already_selected", run: s.checkAlreadySelected},
	}
	return s
}

// Validate resolves the candidate and runs the ordered checks against the
// current selection. A business rejection comes back as a Verdict, never as an
// error; only store faults surface as errors.
func (s *ValidationService) Validate(ctx context.Context, studentID, subjectCode string, sectionID int, selection models.Selection) (models.Verdict, error) {
	student, err := s.students.FindByID(ctx, studentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Reject("Student not found."), nil
		}
		return models.Verdict{}, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}

	subject, err := s.catalog.GetSubject(ctx, subjectCode)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Reject("Subject not found."), nil
		}
		return models.Verdict{}, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load subject")
	}

	section, err := s.catalog.GetSectionOfSubject(ctx, sectionID, subjectCode)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Reject("Section not found."), nil
		}
		return models.Verdict{}, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load section")
	}

	c := &candidate{student: student, subject: subject, section: section, selection: selection}
	for _, check := range s.checks {
		reason, err := check.run(ctx, c)
		if err != nil {
			return models.Verdict{}, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to validate candidate")
		}
		if reason != "" {
			s.observe(check.name, false)
			return models.Reject(reason), nil
		}
	}

	s.observe("accepted", true)
	return models.Accept("Subject can be added.", c.coreqs), nil
}

func (s *ValidationService) observe(check string, accepted bool) {
	if s.metrics != nil {
		s.metrics.ObserveVerdict(check, accepted)
	}
}

// checkAlreadyTaken rejects when the student passed the subject or already
// holds a committed line for it, in any semester or the current one.
func (s *ValidationService) checkAlreadyTaken(ctx context.Context, c *candidate) (string, error) {
	passed, err := s.catalog.HasPassed(ctx, c.student.ID, c.subject.Code)
	if err != nil {
		return "", err
	}
	if !passed {
		enrolled, err := s.catalog.EnrolledAnySemester(ctx, c.student.ID, c.subject.Code)
		if err != nil {
			return "", err
		}
		passed = enrolled
	}
	if !passed {
		enrolled, err := s.catalog.EnrolledInSemester(ctx, c.student.ID, c.subject.Code, s.cfg.CurrentSemester)
		if err != nil {
			return "", err
		}
		passed = enrolled
	}
	if passed {
		return "You have already taken this subject.", nil
	}
	return "", nil
}

// checkPrerequisites rejects listing every unmet direct prerequisite. Only
// direct edges are consulted; no transitive closure.
func (s *ValidationService) checkPrerequisites(ctx context.Context, c *candidate) (string, error) {
	prereqs, err := s.catalog.ListPrerequisites(ctx, c.subject.Code)
	if err != nil {
		return "", err
	}
	if len(prereqs) == 0 {
		return "", nil
	}

	var missing []string
	for _, code := range prereqs {
		passed, err := s.catalog.HasPassed(ctx, c.student.ID, code)
		if err != nil {
			return "", err
		}
		if passed {
			continue
		}
		name := code
		if prereq, err := s.catalog.GetSubject(ctx, code); err == nil {
			name = prereq.Name
		} else if !errors.Is(err, sql.ErrNoRows) {
			return "", err
		}
		missing = append(missing, fmt.Sprintf("%s (%s)", code, name))
	}

	switch len(missing) {
	case 0:
		return "", nil
	case 1:
		return fmt.Sprintf("Pre-requisite not completed: %s.", missing[0]), nil
	default:
		return fmt.Sprintf("Pre-requisites not completed: %s.", strings.Join(missing, ", ")), nil
	}
}

// discoverCorequisites never rejects; it resolves companion subjects the
// student has neither passed nor already selected and attaches them to the
// eventual accepted verdict, each with the chronologically first section.
func (s *ValidationService) discoverCorequisites(ctx context.Context, c *candidate) (string, error) {
	coreqs, err := s.catalog.ListCorequisites(ctx, c.subject.Code)
	if err != nil {
		return "", err
	}

	for _, code := range coreqs {
		passed, err := s.catalog.HasPassed(ctx, c.student.ID, code)
		if err != nil {
			return "", err
		}
		if passed || c.selection.Contains(code) {
			continue
		}

		subject, err := s.catalog.GetSubject(ctx, code)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				continue
			}
			return "", err
		}
		section, err := s.catalog.FirstSection(ctx, code)
		if err != nil {
			return "", err
		}
		if section == nil {
			continue
		}

		c.coreqs = append(c.coreqs, models.CorequisiteSuggestion{
			SubjectCode: subject.Code,
			SubjectName: subject.Name,
			Units:       subject.Units,
			SectionID:   section.ID,
			Day:         section.Day,
			TimeStart:   section.TimeStart,
			TimeEnd:     section.TimeEnd,
			Room:        section.Room,
		})
	}
	return "", nil
}

// checkScheduleConflict compares the candidate section's window against every
// selected item carrying a section snapshot. Half-open intervals, so
// back-to-back sections do not collide.
func (s *ValidationService) checkScheduleConflict(ctx context.Context, c *candidate) (string, error) {
	window := c.section.Window()
	for _, item := range c.selection {
		if item.SectionID == 0 {
			continue
		}
		if window.Overlaps(item.Window()) {
			return fmt.Sprintf("Schedule conflict detected with %s.", item.SubjectCode), nil
		}
	}
	return "", nil
}

// checkSectionCapacity counts committed lines for the section in the current
// semester against its capacity.
func (s *ValidationService) checkSectionCapacity(ctx context.Context, c *candidate) (string, error) {
	enrolled, err := s.catalog.CountSectionEnrollment(ctx, c.section.ID, s.cfg.CurrentSemester)
	if err != nil {
		return "", err
	}
	if enrolled >= c.section.Capacity {
		return fmt.Sprintf("Section is full. Capacity: %d, Enrolled: %d.", c.section.Capacity, enrolled), nil
	}
	return "", nil
}

// checkUnitLimit rejects when accepting the candidate would push the selection
// past the per-semester maximum. Landing exactly on the maximum is allowed.
func (s *ValidationService) checkUnitLimit(ctx context.Context, c *candidate) (string, error) {
	if c.selection.TotalUnits()+c.subject.Units > s.cfg.MaxUnitsPerSemester {
		return "Maximum unit limit reached.", nil
	}
	return "", nil
}

// checkAlreadySelected is the final guard against the candidate already being
// in the selection; it covers races between client-side and server-side state.
func (s *ValidationService) checkAlreadySelected(ctx context.Context, c *candidate) (string, error) {
	if c.selection.Contains(c.subject.Code) {
		return "Subject already in your selection.", nil
	}
	return "", nil
}
