package cancellations

import (
	"context"

	"gorm.io/gorm"

	"github.com/angelmondragon/adspace-backend/internal/repo"
	"github.com/angelmondragon/adspace-backend/pkg/db/models"
)

// Repository persists cancellation policy bands.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, policy *models.CancellationPolicy) error
	Find(ctx context.Context, id uint64) (*models.CancellationPolicy, error)
	Lock(ctx context.Context, id uint64) (*models.CancellationPolicy, error)
	Save(ctx context.Context, policy *models.CancellationPolicy) error
	Delete(ctx context.Context, id uint64) error
	List(ctx context.Context, afterID uint64, limit int) ([]models.CancellationPolicy, error)
}

type repository struct {
	base repo.Base
}

// NewRepository builds a cancellation policy repository bound to the provided DB.
func NewRepository(conn *gorm.DB) Repository {
	return &repository{base: repo.NewBase(conn)}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	return &repository{base: r.base.WithTx(tx)}
}

func (r *repository) Create(ctx context.Context, policy *models.CancellationPolicy) error {
	return r.base.DB(ctx).Create(policy).Error
}

func (r *repository) Find(ctx context.Context, id uint64) (*models.CancellationPolicy, error) {
	return repo.Find[models.CancellationPolicy](ctx, r.base, id)
}

func (r *repository) Lock(ctx context.Context, id uint64) (*models.CancellationPolicy, error) {
	return repo.Lock[models.CancellationPolicy](ctx, r.base, id)
}

func (r *repository) Save(ctx context.Context, policy *models.CancellationPolicy) error {
	return r.base.DB(ctx).Save(policy).Error
}

// Delete removes the band and clears media that pointed at it.
func (r *repository) Delete(ctx context.Context, id uint64) error {
	err := r.base.DB(ctx).
		Model(&models.Media{}).
		Where("cancellation_policy_id = ?", id).
		Update("cancellation_policy_id", nil).Error
	if err != nil {
		return err
	}
	return repo.SoftDelete[models.CancellationPolicy](ctx, r.base, id)
}

func (r *repository) List(ctx context.Context, afterID uint64, limit int) ([]models.CancellationPolicy, error) {
	return repo.Page[models.CancellationPolicy](ctx, r.base, afterID, limit)
}
