package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/plm-registrar/enrollment-api/internal/models"
)

// ErrDuplicateEnrollment signals that an enrollment already exists for the
// (student, semester) pair. Surfaced by Finalize when the in-transaction
// re-check observes a concurrent commit.
var ErrDuplicateEnrollment = errors.New("enrollment already exists for student and semester")

// SectionFullError reports a capacity breach observed inside the finalize
// transaction, after the section row has been locked.
type SectionFullError struct {
	SectionID int
	Capacity  int
	Enrolled  int
}

// Error implements the error interface.
func (e *SectionFullError) Error() string {
	return fmt.Sprintf("section %d is full: capacity %d, enrolled %d", e.SectionID, e.Capacity, e.Enrolled)
}

// EnrollmentRepository handles persistence of committed enrollments.
type EnrollmentRepository struct {
	db *sqlx.DB
}

// NewEnrollmentRepository constructs the repository.
func NewEnrollmentRepository(db *sqlx.DB) *EnrollmentRepository {
	return &EnrollmentRepository{db: db}
}

// HasEnrollment reports whether a committed enrollment exists for the student
// in the semester.
func (r *EnrollmentRepository) HasEnrollment(ctx context.Context, studentID, semester string) (bool, error) {
	const query = `SELECT COUNT(*) FROM enrollments WHERE student_id = $1 AND semester = $2`
	var count int
	if err := r.db.GetContext(ctx, &count, query, studentID, semester); err != nil {
		return false, fmt.Errorf("check enrollment: %w", err)
	}
	return count > 0, nil
}

// FindByStudentAndSemester returns the committed enrollment with its lines,
// or sql.ErrNoRows when none exists.
func (r *EnrollmentRepository) FindByStudentAndSemester(ctx context.Context, studentID, semester string) (*models.EnrollmentDetail, error) {
	const headQuery = `SELECT enrollment_id, student_id, semester, date_submitted, status
        FROM enrollments WHERE student_id = $1 AND semester = $2`
	var enrollment models.Enrollment
	if err := r.db.GetContext(ctx, &enrollment, headQuery, studentID, semester); err != nil {
		return nil, err
	}

	const lineQuery = `SELECT es.id, es.enrollment_id, es.subject_code, es.section_id, es.units,
        sub.subject_name, sec.day, sec.time_start, sec.time_end, sec.room
        FROM enrollment_subjects es
        JOIN subjects sub ON sub.subject_code = es.subject_code
        JOIN sections sec ON sec.section_id = es.section_id
        WHERE es.enrollment_id = $1
        ORDER BY es.id`
	var lines []models.EnrollmentLineDetail
	if err := r.db.SelectContext(ctx, &lines, lineQuery, enrollment.ID); err != nil {
		return nil, fmt.Errorf("load enrollment lines: %w", err)
	}

	detail := &models.EnrollmentDetail{Enrollment: enrollment, Lines: lines}
	for _, line := range lines {
		detail.TotalUnits += line.Units
	}
	return detail, nil
}

// Finalize commits a finished selection in one transaction: re-checks the
// duplicate-enrollment invariant, locks each candidate section row and
// re-checks capacity against committed lines, then inserts the enrollment,
// its lines, and flips the student status. All steps persist or none do.
func (r *EnrollmentRepository) Finalize(ctx context.Context, studentID, semester string, items models.Selection) (string, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("begin finalize: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	var existing int
	if err := tx.GetContext(ctx, &existing, `SELECT COUNT(*) FROM enrollments WHERE student_id = $1 AND semester = $2`, studentID, semester); err != nil {
		return "", fmt.Errorf("re-check duplicate enrollment: %w", err)
	}
	if existing > 0 {
		return "", ErrDuplicateEnrollment
	}

	for _, item := range items {
		var capacity int
		if err := tx.GetContext(ctx, &capacity, `SELECT capacity FROM sections WHERE section_id = $1 FOR UPDATE`, item.SectionID); err != nil {
			return "", fmt.Errorf("lock section %d: %w", item.SectionID, err)
		}
		var enrolled int
		if err := tx.GetContext(ctx, &enrolled, `SELECT COUNT(DISTINCT es.id) FROM enrollment_subjects es
            JOIN enrollments e ON e.enrollment_id = es.enrollment_id
            WHERE es.section_id = $1 AND e.semester = $2`, item.SectionID, semester); err != nil {
			return "", fmt.Errorf("re-check capacity for section %d: %w", item.SectionID, err)
		}
		if enrolled >= capacity {
			return "", &SectionFullError{SectionID: item.SectionID, Capacity: capacity, Enrolled: enrolled}
		}
	}

	enrollmentID := uuid.NewString()
	if _, err := tx.ExecContext(ctx, `INSERT INTO enrollments (enrollment_id, student_id, semester, date_submitted, status)
        VALUES ($1, $2, $3, $4, $5)`, enrollmentID, studentID, semester, time.Now().UTC(), models.EnrollmentStatusEnrolled); err != nil {
		return "", fmt.Errorf("insert enrollment: %w", err)
	}

	for _, item := range items {
		if _, err := tx.ExecContext(ctx, `INSERT INTO enrollment_subjects (enrollment_id, subject_code, section_id, units)
            VALUES ($1, $2, $3, $4)`, enrollmentID, item.SubjectCode, item.SectionID, item.Units); err != nil {
			return "", fmt.Errorf("insert enrollment line %s: %w", item.SubjectCode, err)
		}
	}

	if _, err := tx.ExecContext(ctx, `UPDATE students SET enrollment_status = $2 WHERE student_id = $1`, studentID, models.StudentStatusEnrolled); err != nil {
		return "", fmt.Errorf("update student status: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("commit finalize: %w", err)
	}
	committed = true
	return enrollmentID, nil
}

// Reset deletes the committed enrollment for the semester and flips the
// student back to re-enrollable, in one transaction. Lines are removed by the
// foreign key's ON DELETE CASCADE.
func (r *EnrollmentRepository) Reset(ctx context.Context, studentID, semester string) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin reset: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	if _, err := tx.ExecContext(ctx, `DELETE FROM enrollments WHERE student_id = $1 AND semester = $2`, studentID, semester); err != nil {
		return fmt.Errorf("delete enrollment: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `UPDATE students SET enrollment_status = $2 WHERE student_id = $1`, studentID, models.StudentStatusNotEnrolled); err != nil {
		return fmt.Errorf("reset student status: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit reset: %w", err)
	}
	committed = true
	return nil
}
