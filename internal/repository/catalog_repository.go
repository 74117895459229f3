package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/plm-registrar/enrollment-api/internal/models"
)

// CatalogRepository reads subjects, sections, relation edges and grade history.
// All lookups are read-only within a validation call.
type CatalogRepository struct {
	db *sqlx.DB
}

// NewCatalogRepository constructs the repository.
func NewCatalogRepository(db *sqlx.DB) *CatalogRepository {
	return &CatalogRepository{db: db}
}

// GetSubject returns a subject by code.
func (r *CatalogRepository) GetSubject(ctx context.Context, code string) (*models.Subject, error) {
	const query = `SELECT subject_code, subject_name, units, program, semester FROM subjects WHERE subject_code = $1`
	var subject models.Subject
	if err := r.db.GetContext(ctx, &subject, query, code); err != nil {
		return nil, err
	}
	return &subject, nil
}

// GetSection returns a section by id.
func (r *CatalogRepository) GetSection(ctx context.Context, sectionID int) (*models.Section, error) {
	const query = `SELECT section_id, subject_code, day, time_start, time_end, room, capacity FROM sections WHERE section_id = $1`
	var section models.Section
	if err := r.db.GetContext(ctx, &section, query, sectionID); err != nil {
		return nil, err
	}
	return &section, nil
}

// GetSectionOfSubject returns a section only when it belongs to the subject.
func (r *CatalogRepository) GetSectionOfSubject(ctx context.Context, sectionID int, subjectCode string) (*models.Section, error) {
	const query = `SELECT section_id, subject_code, day, time_start, time_end, room, capacity
        FROM sections WHERE section_id = $1 AND subject_code = $2`
	var section models.Section
	if err := r.db.GetContext(ctx, &section, query, sectionID, subjectCode); err != nil {
		return nil, err
	}
	return &section, nil
}

// ListSections returns all sections of a subject ordered by day then start time.
func (r *CatalogRepository) ListSections(ctx context.Context, subjectCode string) ([]models.Section, error) {
	const query = `SELECT section_id, subject_code, day, time_start, time_end, room, capacity
        FROM sections WHERE subject_code = $1 ORDER BY day, time_start`
	var sections []models.Section
	if err := r.db.SelectContext(ctx, &sections, query, subjectCode); err != nil {
		return nil, fmt.Errorf("list sections: %w", err)
	}
	return sections, nil
}

// FirstSection returns the chronologically first section of a subject, or nil
// when the subject has no sections. Ties on day and start time keep store order.
func (r *CatalogRepository) FirstSection(ctx context.Context, subjectCode string) (*models.Section, error) {
	const query = `SELECT section_id, subject_code, day, time_start, time_end, room, capacity
        FROM sections WHERE subject_code = $1 ORDER BY day, time_start LIMIT 1`
	var section models.Section
	if err := r.db.GetContext(ctx, &section, query, subjectCode); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("first section: %w", err)
	}
	return &section, nil
}

// ListPrerequisites returns the direct prerequisite codes of a subject.
// Transitive closure is deliberately not computed.
func (r *CatalogRepository) ListPrerequisites(ctx context.Context, subjectCode string) ([]string, error) {
	const query = `SELECT prerequisite_code FROM prerequisites WHERE subject_code = $1`
	var codes []string
	if err := r.db.SelectContext(ctx, &codes, query, subjectCode); err != nil {
		return nil, fmt.Errorf("list prerequisites: %w", err)
	}
	return codes, nil
}

// ListCorequisites returns the corequisite codes of a subject.
func (r *CatalogRepository) ListCorequisites(ctx context.Context, subjectCode string) ([]string, error) {
	const query = `SELECT coreq_code FROM corequisites WHERE subject_code = $1`
	var codes []string
	if err := r.db.SelectContext(ctx, &codes, query, subjectCode); err != nil {
		return nil, fmt.Errorf("list corequisites: %w", err)
	}
	return codes, nil
}

// ListPrerequisiteRelations returns prerequisite edges with subject names.
func (r *CatalogRepository) ListPrerequisiteRelations(ctx context.Context, subjectCode string) ([]models.SubjectRelation, error) {
	const query = `SELECT p.prerequisite_code AS subject_code, s.subject_name
        FROM prerequisites p
        JOIN subjects s ON s.subject_code = p.prerequisite_code
        WHERE p.subject_code = $1`
	var relations []models.SubjectRelation
	if err := r.db.SelectContext(ctx, &relations, query, subjectCode); err != nil {
		return nil, fmt.Errorf("list prerequisite relations: %w", err)
	}
	return relations, nil
}

// ListCorequisiteRelations returns corequisite edges with subject names.
func (r *CatalogRepository) ListCorequisiteRelations(ctx context.Context, subjectCode string) ([]models.SubjectRelation, error) {
	const query = `SELECT c.coreq_code AS subject_code, s.subject_name
        FROM corequisites c
        JOIN subjects s ON s.subject_code = c.coreq_code
        WHERE c.subject_code = $1`
	var relations []models.SubjectRelation
	if err := r.db.SelectContext(ctx, &relations, query, subjectCode); err != nil {
		return nil, fmt.Errorf("list corequisite relations: %w", err)
	}
	return relations, nil
}

// HasPassed reports whether the student holds a passing grade for the subject.
func (r *CatalogRepository) HasPassed(ctx context.Context, studentID, subjectCode string) (bool, error) {
	const query = `SELECT COUNT(*) FROM grades WHERE student_id = $1 AND subject_code = $2 AND passed = TRUE`
	var count int
	if err := r.db.GetContext(ctx, &count, query, studentID, subjectCode); err != nil {
		return false, fmt.Errorf("check passing grade: %w", err)
	}
	return count > 0, nil
}

// EnrolledAnySemester reports whether any committed enrollment line references
// the subject for the student, regardless of semester.
func (r *CatalogRepository) EnrolledAnySemester(ctx context.Context, studentID, subjectCode string) (bool, error) {
	const query = `SELECT COUNT(*) FROM enrollment_subjects es
        JOIN enrollments e ON e.enrollment_id = es.enrollment_id
        WHERE e.student_id = $1 AND es.subject_code = $2`
	var count int
	if err := r.db.GetContext(ctx, &count, query, studentID, subjectCode); err != nil {
		return false, fmt.Errorf("check enrolled any semester: %w", err)
	}
	return count > 0, nil
}

// EnrolledInSemester reports whether a committed enrollment line references the
// subject for the student in the given semester.
func (r *CatalogRepository) EnrolledInSemester(ctx context.Context, studentID, subjectCode, semester string) (bool, error) {
	const query = `SELECT COUNT(*) FROM enrollment_subjects es
        JOIN enrollments e ON e.enrollment_id = es.enrollment_id
        WHERE e.student_id = $1 AND e.semester = $2 AND es.subject_code = $3`
	var count int
	if err := r.db.GetContext(ctx, &count, query, studentID, semester, subjectCode); err != nil {
		return false, fmt.Errorf("check enrolled in semester: %w", err)
	}
	return count > 0, nil
}

// CountSectionEnrollment counts committed enrollment lines for a section in a
// semester.
func (r *CatalogRepository) CountSectionEnrollment(ctx context.Context, sectionID int, semester string) (int, error) {
	const query = `SELECT COUNT(DISTINCT es.id) FROM enrollment_subjects es
        JOIN enrollments e ON e.enrollment_id = es.enrollment_id
        WHERE es.section_id = $1 AND e.semester = $2`
	var count int
	if err := r.db.GetContext(ctx, &count, query, sectionID, semester); err != nil {
		return 0, fmt.Errorf("count section enrollment: %w", err)
	}
	return count, nil
}

// ListAvailableSubjects returns subjects offered to a program in a semester,
// plus cross-program subjects that are prerequisites of the program's subjects.
func (r *CatalogRepository) ListAvailableSubjects(ctx context.Context, program, semester string) ([]models.SubjectOffering, error) {
	const ownQuery = `SELECT subject_code, subject_name, units, program, semester
        FROM subjects WHERE semester = $1 AND program = $2 ORDER BY subject_code`
	var own []models.Subject
	if err := r.db.SelectContext(ctx, &own, ownQuery, semester, program); err != nil {
		return nil, fmt.Errorf("list program subjects: %w", err)
	}

	const crossQuery = `SELECT DISTINCT s.subject_code, s.subject_name, s.units, s.program, s.semester
        FROM subjects s
        JOIN prerequisites p ON s.subject_code = p.prerequisite_code
        JOIN subjects target ON p.subject_code = target.subject_code
        WHERE target.program = $1 AND target.semester = $2 AND s.semester = $2 AND s.program <> $1
        ORDER BY s.subject_code`
	var cross []models.Subject
	if err := r.db.SelectContext(ctx, &cross, crossQuery, program, semester); err != nil {
		return nil, fmt.Errorf("list cross-program subjects: %w", err)
	}

	seen := make(map[string]struct{}, len(own))
	offerings := make([]models.SubjectOffering, 0, len(own)+len(cross))
	for _, subject := range own {
		seen[subject.Code] = struct{}{}
		offerings = append(offerings, models.SubjectOffering{Subject: subject})
	}
	for _, subject := range cross {
		if _, ok := seen[subject.Code]; ok {
			continue
		}
		seen[subject.Code] = struct{}{}
		offerings = append(offerings, models.SubjectOffering{Subject: subject, CrossProgram: true})
	}

	for i := range offerings {
		sections, err := r.ListSections(ctx, offerings[i].Code)
		if err != nil {
			return nil, err
		}
		offerings[i].Sections = sections
	}
	return offerings, nil
}
