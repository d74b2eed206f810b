package repositories

import (
	"context"
	"errors"
	"time"

	"athena/interview/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	ErrUnlockRequestNotFound = errors.New("unlock request not found")
	ErrUnlockRequestResolved = errors.New("unlock request already resolved")
	ErrHoldNotFound          = errors.New("admin hold not found")
)

// LockoutRepository stores admin holds and unlock requests.
type LockoutRepository struct {
	DB *gorm.DB
}

// GetHold returns the user's admin hold, or nil.
func (r *LockoutRepository) GetHold(ctx context.Context, userID string) (*models.AdminHold, error) {
	var hold models.AdminHold
	err := r.DB.WithContext(ctx).First(&hold, "user_id = ?", userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &hold, nil
}

// SetHold creates or replaces the user's admin hold.
func (r *LockoutRepository) SetHold(ctx context.Context, hold *models.AdminHold) error {
	return r.DB.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"reason", "set_by"}),
		}).
		Create(hold).Error
}

func (r *LockoutRepository) ClearHold(ctx context.Context, userID string) error {
	result := r.DB.WithContext(ctx).Delete(&models.AdminHold{}, "user_id = ?", userID)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrHoldNotFound
	}
	return nil
}

// HasPendingRequest reports whether the user has an unresolved unlock request.
func (r *LockoutRepository) HasPendingRequest(ctx context.Context, userID string) (bool, error) {
	var count int64
	err := r.DB.WithContext(ctx).
		Model(&models.UnlockRequest{}).
		Where("user_id = ? AND status = ?", userID, models.UnlockPending).
		Count(&count).Error
	return count > 0, err
}

// CreateUnlockRequest inserts a pending request. idx_pending_unlock rejects a
// second pending request for the same user.
func (r *LockoutRepository) CreateUnlockRequest(ctx context.Context, req *models.UnlockRequest) error {
	return r.DB.WithContext(ctx).Create(req).Error
}

func (r *LockoutRepository) ListUnlockRequests(ctx context.Context, status models.UnlockRequestStatus, limit int) ([]models.UnlockRequest, error) {
	requests := []models.UnlockRequest{}
	query := r.DB.WithContext(ctx).Order("created_at ASC")
	if status != "" {
		query = query.Where("status = ?", status)
	}
	if limit > 0 {
		query = query.Limit(limit)
	}
	err := query.Find(&requests).Error
	return requests, err
}

// ResolveUnlockRequest closes a pending request. Approval also clears the
// abandonment lock on the referenced attempt.
func (r *LockoutRepository) ResolveUnlockRequest(ctx context.Context, id string, approve bool, resolvedBy string, at time.Time) (*models.UnlockRequest, error) {
	var resolved models.UnlockRequest
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&resolved, "id = ?", id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrUnlockRequestNotFound
			}
			return err
		}
		if resolved.Status != models.UnlockPending {
			return ErrUnlockRequestResolved
		}

		status := models.UnlockDenied
		if approve {
			status = models.UnlockApproved
		}
		result := tx.Model(&models.UnlockRequest{}).
			Where("id = ? AND status = ?", id, models.UnlockPending).
			Updates(map[string]interface{}{
				"status":      status,
				"resolved_by": resolvedBy,
				"resolved_at": at,
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrUnlockRequestResolved
		}

		if approve {
			err := tx.Model(&models.InterviewAttempt{}).
				Where("id = ? AND status = ?", resolved.AttemptID, models.StatusAbandoned).
				Update("lock_cleared_at", at).Error
			if err != nil {
				return err
			}
		}

		resolved.Status = status
		resolved.ResolvedBy = resolvedBy
		resolved.ResolvedAt = &at
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &resolved, nil
}
