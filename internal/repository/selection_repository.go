package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/plm-registrar/enrollment-api/internal/models"
)

// SelectionRepository stores each student's in-progress selection in Redis.
// The key lives for the session TTL and is refreshed on every write, so an
// abandoned selection expires on its own.
type SelectionRepository struct {
	client *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

// NewSelectionRepository constructs the repository.
func NewSelectionRepository(client *redis.Client, ttl time.Duration, logger *zap.Logger) *SelectionRepository {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SelectionRepository{client: client, ttl: ttl, logger: logger}
}

func selectionKey(studentID string) string {
	return "selection:" + studentID
}

// Get returns the student's current selection. A missing key is an empty
// selection, not an error.
func (r *SelectionRepository) Get(ctx context.Context, studentID string) (models.Selection, error) {
	raw, err := r.client.Get(ctx, selectionKey(studentID)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return models.Selection{}, nil
		}
		return nil, fmt.Errorf("redis get selection for %s: %w", studentID, err)
	}

	var selection models.Selection
	if err := json.Unmarshal(raw, &selection); err != nil {
		// A corrupt value is unrecoverable; drop it rather than wedge the student.
		r.logger.Warn("discarding corrupt selection payload", zap.String("student_id", studentID), zap.Error(err))
		if delErr := r.client.Del(ctx, selectionKey(studentID)).Err(); delErr != nil {
			return nil, fmt.Errorf("delete corrupt selection for %s: %w", studentID, delErr)
		}
		return models.Selection{}, nil
	}
	return selection, nil
}

// Save replaces the student's selection and refreshes its TTL.
func (r *SelectionRepository) Save(ctx context.Context, studentID string, selection models.Selection) error {
	payload, err := json.Marshal(selection)
	if err != nil {
		return fmt.Errorf("marshal selection for %s: %w", studentID, err)
	}
	if err := r.client.Set(ctx, selectionKey(studentID), payload, r.ttl).Err(); err != nil {
		return fmt.Errorf("redis set selection for %s: %w", studentID, err)
	}
	return nil
}

// Clear removes the student's selection.
func (r *SelectionRepository) Clear(ctx context.Context, studentID string) error {
	if err := r.client.Del(ctx, selectionKey(studentID)).Err(); err != nil {
		return fmt.Errorf("redis delete selection for %s: %w", studentID, err)
	}
	return nil
}
