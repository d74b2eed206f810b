package repositories

import (
	"context"
	"errors"
	"time"

	"athena/interview/internal/models"

	"gorm.io/gorm"
)

var (
	ErrAttemptNotFound = errors.New("attempt not found")
	// ErrStaleTransition means the row was not in the expected state when a
	// conditional update ran; another actor moved it first.
	ErrStaleTransition = errors.New("attempt state changed concurrently")
)

type AttemptRepository struct {
	DB *gorm.DB
}

// Create inserts a new attempt. A second live attempt for the same user is
// rejected by the idx_live_attempt unique index.
func (r *AttemptRepository) Create(ctx context.Context, attempt *models.InterviewAttempt) error {
	return r.DB.WithContext(ctx).Create(attempt).Error
}

func (r *AttemptRepository) FindByID(ctx context.Context, id string) (*models.InterviewAttempt, error) {
	var attempt models.InterviewAttempt
	err := r.DB.WithContext(ctx).First(&attempt, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrAttemptNotFound
	}
	if err != nil {
		return nil, err
	}
	return &attempt, nil
}

// FindLive returns the user's in_progress or processing attempt, or nil.
func (r *AttemptRepository) FindLive(ctx context.Context, userID string) (*models.InterviewAttempt, error) {
	var attempt models.InterviewAttempt
	err := r.DB.WithContext(ctx).
		Where("user_id = ? AND status IN ?", userID, []models.AttemptStatus{models.StatusInProgress, models.StatusProcessing}).
		Order("attempt_number DESC").
		First(&attempt).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &attempt, nil
}

// FindLatest returns the user's most recent attempt, or nil.
func (r *AttemptRepository) FindLatest(ctx context.Context, userID string) (*models.InterviewAttempt, error) {
	var attempt models.InterviewAttempt
	err := r.DB.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("attempt_number DESC").
		First(&attempt).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &attempt, nil
}

// NextAttemptNumber returns one more than the user's highest attempt number.
func (r *AttemptRepository) NextAttemptNumber(ctx context.Context, userID string) (int, error) {
	var highest int64
	err := r.DB.WithContext(ctx).
		Model(&models.InterviewAttempt{}).
		Select("COALESCE(MAX(attempt_number), 0)").
		Where("user_id = ?", userID).
		Row().
		Scan(&highest)
	if err != nil {
		return 0, err
	}
	return int(highest) + 1, nil
}

// ListByUser returns the user's attempts, newest first.
func (r *AttemptRepository) ListByUser(ctx context.Context, userID string, limit int) ([]models.InterviewAttempt, error) {
	attempts := []models.InterviewAttempt{}
	query := r.DB.WithContext(ctx).Where("user_id = ?", userID).Order("attempt_number DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	err := query.Find(&attempts).Error
	return attempts, err
}

// Transition applies updates only if the attempt is still in status from.
func (r *AttemptRepository) Transition(ctx context.Context, id string, from models.AttemptStatus, updates map[string]interface{}) error {
	result := r.DB.WithContext(ctx).
		Model(&models.InterviewAttempt{}).
		Where("id = ? AND status = ?", id, from).
		Updates(updates)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrStaleTransition
	}
	return nil
}

// UpdateStage applies updates only while the attempt is processing at stage.
func (r *AttemptRepository) UpdateStage(ctx context.Context, id string, stage models.ProcessingStage, updates map[string]interface{}) error {
	result := r.DB.WithContext(ctx).
		Model(&models.InterviewAttempt{}).
		Where("id = ? AND status = ? AND processing_stage = ?", id, models.StatusProcessing, stage).
		Updates(updates)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrStaleTransition
	}
	return nil
}

// UpdateFields applies updates without a state guard. Used for audit fields
// and upload bookkeeping on in_progress rows.
func (r *AttemptRepository) UpdateFields(ctx context.Context, id string, updates map[string]interface{}) error {
	result := r.DB.WithContext(ctx).
		Model(&models.InterviewAttempt{}).
		Where("id = ?", id).
		Updates(updates)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrAttemptNotFound
	}
	return nil
}

// FindStaleInProgress returns in_progress attempts with no upload created
// before the cutoff.
func (r *AttemptRepository) FindStaleInProgress(ctx context.Context, before time.Time, limit int) ([]models.InterviewAttempt, error) {
	attempts := []models.InterviewAttempt{}
	err := r.DB.WithContext(ctx).
		Where("status = ? AND uploaded_at IS NULL AND created_at < ?", models.StatusInProgress, before).
		Order("created_at ASC").
		Limit(limit).
		Find(&attempts).Error
	return attempts, err
}

// FindUploadedUnsubmitted returns in_progress attempts whose artifact was
// uploaded before the cutoff but never submitted.
func (r *AttemptRepository) FindUploadedUnsubmitted(ctx context.Context, before time.Time, limit int) ([]models.InterviewAttempt, error) {
	attempts := []models.InterviewAttempt{}
	err := r.DB.WithContext(ctx).
		Where("status = ? AND uploaded_at IS NOT NULL AND uploaded_at < ?", models.StatusInProgress, before).
		Order("uploaded_at ASC").
		Limit(limit).
		Find(&attempts).Error
	return attempts, err
}

// FindStaleProcessing returns processing attempts not touched since the cutoff.
func (r *AttemptRepository) FindStaleProcessing(ctx context.Context, before time.Time, limit int) ([]models.InterviewAttempt, error) {
	attempts := []models.InterviewAttempt{}
	err := r.DB.WithContext(ctx).
		Where("status = ? AND updated_at < ?", models.StatusProcessing, before).
		Order("updated_at ASC").
		Limit(limit).
		Find(&attempts).Error
	return attempts, err
}

// CountLive counts the user's live attempts. Used by health checks and tests.
func (r *AttemptRepository) CountLive(ctx context.Context, userID string) (int64, error) {
	var count int64
	err := r.DB.WithContext(ctx).
		Model(&models.InterviewAttempt{}).
		Where("user_id = ? AND status IN ?", userID, []models.AttemptStatus{models.StatusInProgress, models.StatusProcessing}).
		Count(&count).Error
	return count, err
}
