package service

import (
	"context"
	"database/sql"
	"errors"
	"sync"

	"go.uber.org/zap"

	"github.com/plm-registrar/enrollment-api/internal/models"
	appErrors "github.com/plm-registrar/enrollment-api/pkg/errors"
)

type selectionStore interface {
	Get(ctx context.Context, studentID string) (models.Selection, error)
	Save(ctx context.Context, studentID string, selection models.Selection) error
	Clear(ctx context.Context, studentID string) error
}

type candidateValidator interface {
	Validate(ctx context.Context, studentID, subjectCode string, sectionID int, selection models.Selection) (models.Verdict, error)
}

type sectionResolver interface {
	GetSubject(ctx context.Context, code string) (*models.Subject, error)
	GetSectionOfSubject(ctx context.Context, sectionID int, subjectCode string) (*models.Section, error)
}

// AddResult reports the outcome of an add: the primary verdict, the selection
// after the operation, and which suggested corequisites were attached.
type AddResult struct {
	Verdict        models.Verdict   `json:"verdict"`
	Selection      models.Selection `json:"selection"`
	AddedCoreqs    []string         `json:"added_corequisites,omitempty"`
	RejectedCoreqs []string         `json:"rejected_corequisites,omitempty"`
}

// SelectionService owns mutation of each student's in-progress selection.
// Mutations for the same student are serialized through a per-student lock so
// double-click adds cannot duplicate a subject.
type SelectionService struct {
	store     selectionStore
	validator candidateValidator
	catalog   sectionResolver
	logger    *zap.Logger

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewSelectionService constructs SelectionService.
func NewSelectionService(store selectionStore, validator candidateValidator, catalog sectionResolver, logger *zap.Logger) *SelectionService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SelectionService{store: store, validator: validator, catalog: catalog, logger: logger, locks: make(map[string]*sync.Mutex)}
}

func (s *SelectionService) studentLock(studentID string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	lock, ok := s.locks[studentID]
	if !ok {
		lock = &sync.Mutex{}
		s.locks[studentID] = lock
	}
	return lock
}

// Get returns the student's current selection.
func (s *SelectionService) Get(ctx context.Context, studentID string) (models.Selection, error) {
	selection, err := s.store.Get(ctx, studentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load selection")
	}
	return selection, nil
}

// Validate runs the eligibility checks without mutating the selection.
func (s *SelectionService) Validate(ctx context.Context, studentID, subjectCode string, sectionID int) (models.Verdict, error) {
	selection, err := s.Get(ctx, studentID)
	if err != nil {
		return models.Verdict{}, err
	}
	return s.validator.Validate(ctx, studentID, subjectCode, sectionID, selection)
}

// Add validates the candidate and, when accepted, appends it to the selection.
// When withCorequisites is set, every suggested corequisite is added too, each
// independently validated; a corequisite rejection is tolerated and reported,
// only the primary subject's rejection blocks the operation.
func (s *SelectionService) Add(ctx context.Context, studentID, subjectCode string, sectionID int, withCorequisites bool) (*AddResult, error) {
	lock := s.studentLock(studentID)
	lock.Lock()
	defer lock.Unlock()

	selection, err := s.Get(ctx, studentID)
	if err != nil {
		return nil, err
	}

	verdict, err := s.validator.Validate(ctx, studentID, subjectCode, sectionID, selection)
	if err != nil {
		return nil, err
	}
	if !verdict.Valid {
		return &AddResult{Verdict: verdict, Selection: selection}, nil
	}

	item, err := s.resolveItem(ctx, subjectCode, sectionID)
	if err != nil {
		return nil, err
	}
	selection = append(selection, *item)

	result := &AddResult{Verdict: verdict}
	if withCorequisites {
		for _, coreq := range verdict.Corequisites {
			coreqVerdict, err := s.validator.Validate(ctx, studentID, coreq.SubjectCode, coreq.SectionID, selection)
			if err != nil {
				s.logger.Warn("corequisite validation failed",
					zap.String("student_id", studentID),
					zap.String("subject_code", coreq.SubjectCode),
					zap.Error(err))
				result.RejectedCoreqs = append(result.RejectedCoreqs, coreq.SubjectCode)
				continue
			}
			if !coreqVerdict.Valid {
				s.logger.Info("corequisite rejected",
					zap.String("student_id", studentID),
					zap.String("subject_code", coreq.SubjectCode),
					zap.String("reason", coreqVerdict.Message))
				result.RejectedCoreqs = append(result.RejectedCoreqs, coreq.SubjectCode)
				continue
			}
			coreqItem, err := s.resolveItem(ctx, coreq.SubjectCode, coreq.SectionID)
			if err != nil {
				s.logger.Warn("corequisite resolution failed",
					zap.String("student_id", studentID),
					zap.String("subject_code", coreq.SubjectCode),
					zap.Error(err))
				result.RejectedCoreqs = append(result.RejectedCoreqs, coreq.SubjectCode)
				continue
			}
			selection = append(selection, *coreqItem)
			result.AddedCoreqs = append(result.AddedCoreqs, coreq.SubjectCode)
		}
	}

	if err := s.store.Save(ctx, studentID, selection); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save selection")
	}
	result.Selection = selection
	return result, nil
}

// Remove drops the item matching (subject code, section id) exactly. Removing
// an absent item is a no-op, not an error.
func (s *SelectionService) Remove(ctx context.Context, studentID, subjectCode string, sectionID int) (models.Selection, error) {
	lock := s.studentLock(studentID)
	lock.Lock()
	defer lock.Unlock()

	selection, err := s.Get(ctx, studentID)
	if err != nil {
		return nil, err
	}

	filtered := make(models.Selection, 0, len(selection))
	for _, item := range selection {
		if item.SubjectCode == subjectCode && item.SectionID == sectionID {
			continue
		}
		filtered = append(filtered, item)
	}

	if err := s.store.Save(ctx, studentID, filtered); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save selection")
	}
	return filtered, nil
}

// Clear empties the selection unconditionally.
func (s *SelectionService) Clear(ctx context.Context, studentID string) error {
	lock := s.studentLock(studentID)
	lock.Lock()
	defer lock.Unlock()

	if err := s.store.Clear(ctx, studentID); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to clear selection")
	}
	return nil
}

func (s *SelectionService) resolveItem(ctx context.Context, subjectCode string, sectionID int) (*models.SelectionItem, error) {
	subject, err := s.catalog.GetSubject(ctx, subjectCode)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "Subject not found.")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load subject")
	}
	section, err := s.catalog.GetSectionOfSubject(ctx, sectionID, subjectCode)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "Section not found.")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load section")
	}
	return &models.SelectionItem{
		SubjectCode: subject.Code,
		SubjectName: subject.Name,
		SectionID:   section.ID,
		Day:         section.Day,
		TimeStart:   section.TimeStart,
		TimeEnd:     section.TimeEnd,
		Room:        section.Room,
		Units:       subject.Units,
	}, nil
}
