package repository

import (
	"context"
	"errors"

	"gatekeeper/internal/models"

	"gorm.io/gorm"
)

// PassFilter narrows reporting queries over the pass history.
type PassFilter struct {
	StudentID uint
	MentorID  uint
	Status    models.PassStatus
	Limit     int
	Offset    int
}

// GatePassRepository is the sole writer of gate pass records. Every mutation
// after creation goes through Transition, a conditional write that succeeds
// only if the record's status still equals the expected value.
type GatePassRepository interface {
	Create(ctx context.Context, pass *models.GatePass) error
	GetByID(ctx context.Context, id string) (*models.GatePass, error)
	// GetByToken is the checkpoint hot path; the token column is
	// unique-indexed so the lookup is O(1)-class.
	GetByToken(ctx context.Context, token string) (*models.GatePass, error)
	// Transition applies updates iff the pass status still equals expected,
	// as a single atomic compare-and-set at the storage layer. Returns the
	// updated pass, TransitionConflict when the precondition no longer
	// holds, or NotFound when the pass does not exist.
	Transition(ctx context.Context, id string, expected models.PassStatus, updates map[string]interface{}) (*models.GatePass, error)
	List(ctx context.Context, filter PassFilter) ([]models.GatePass, error)
}

type gatePassRepository struct {
	db *gorm.DB
}

// NewGatePassRepository returns a new GatePassRepository implementation.
func NewGatePassRepository(db *gorm.DB) GatePassRepository {
	return &gatePassRepository{db: db}
}

func (r *gatePassRepository) Create(ctx context.Context, pass *models.GatePass) error {
	if err := r.db.WithContext(ctx).Create(pass).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

func (r *gatePassRepository) GetByID(ctx context.Context, id string) (*models.GatePass, error) {
	var pass models.GatePass
	if err := r.db.WithContext(ctx).First(&pass, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("GatePass", id)
		}
		return nil, models.NewInternalError(err)
	}
	return &pass, nil
}

func (r *gatePassRepository) GetByToken(ctx context.Context, token string) (*models.GatePass, error) {
	var pass models.GatePass
	if err := r.db.WithContext(ctx).Where("token = ?", token).First(&pass).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("GatePass", "token")
		}
		return nil, models.NewInternalError(err)
	}
	return &pass, nil
}

func (r *gatePassRepository) Transition(ctx context.Context, id string, expected models.PassStatus, updates map[string]interface{}) (*models.GatePass, error) {
	res := r.db.WithContext(ctx).Model(&models.GatePass{}).
		Where("id = ? AND status = ?", id, expected).
		Updates(updates)
	if res.Error != nil {
		if isUniqueViolation(res.Error) {
			// A generated token collided with an existing one. The keyspace
			// makes this effectively unreachable; the unique index is the
			// defensive backstop the caller can react to.
			return nil, models.NewValidationError("Token collision, credential not issued")
		}
		return nil, models.NewInternalError(res.Error)
	}
	if res.RowsAffected == 0 {
		// Distinguish a missing record from a lost race.
		var exists int64
		if err := r.db.WithContext(ctx).Model(&models.GatePass{}).
			Where("id = ?", id).Count(&exists).Error; err != nil {
			return nil, models.NewInternalError(err)
		}
		if exists == 0 {
			return nil, models.NewNotFoundError("GatePass", id)
		}
		return nil, models.NewTransitionConflictError(id)
	}

	return r.GetByID(ctx, id)
}

func (r *gatePassRepository) List(ctx context.Context, filter PassFilter) ([]models.GatePass, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}

	q := r.db.WithContext(ctx).Limit(limit).Offset(filter.Offset).
		Order("applied_at DESC")
	if filter.StudentID != 0 {
		q = q.Where("student_id = ?", filter.StudentID)
	}
	if filter.MentorID != 0 {
		q = q.Where("mentor_id = ?", filter.MentorID)
	}
	if filter.Status != "" {
		q = q.Where("status = ?", filter.Status)
	}

	var passes []models.GatePass
	if err := q.Find(&passes).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return passes, nil
}
