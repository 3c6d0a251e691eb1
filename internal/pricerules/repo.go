package pricerules

import (
	"context"

	"gorm.io/gorm"

	"github.com/angelmondragon/adspace-backend/internal/repo"
	"github.com/angelmondragon/adspace-backend/pkg/db/models"
)

// Repository persists price rules.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, rule *models.PriceRule) error
	Find(ctx context.Context, id uint64) (*models.PriceRule, error)
	Lock(ctx context.Context, id uint64) (*models.PriceRule, error)
	Save(ctx context.Context, rule *models.PriceRule) error
	NameTaken(ctx context.Context, name string, excludeID uint64) (bool, error)
	Delete(ctx context.Context, id uint64) error
	List(ctx context.Context, afterID uint64, limit int) ([]models.PriceRule, error)
}

type repository struct {
	base repo.Base
}

// NewRepository builds a price rules repository bound to the provided DB.
func NewRepository(conn *gorm.DB) Repository {
	return &repository{base: repo.NewBase(conn)}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	return &repository{base: r.base.WithTx(tx)}
}

func (r *repository) Create(ctx context.Context, rule *models.PriceRule) error {
	return r.base.DB(ctx).Create(rule).Error
}

func (r *repository) Find(ctx context.Context, id uint64) (*models.PriceRule, error) {
	return repo.Find[models.PriceRule](ctx, r.base, id)
}

func (r *repository) Lock(ctx context.Context, id uint64) (*models.PriceRule, error) {
	return repo.Lock[models.PriceRule](ctx, r.base, id)
}

func (r *repository) Save(ctx context.Context, rule *models.PriceRule) error {
	return r.base.DB(ctx).Save(rule).Error
}

func (r *repository) NameTaken(ctx context.Context, name string, excludeID uint64) (bool, error) {
	if excludeID == 0 {
		return repo.Exists[models.PriceRule](ctx, r.base, "LOWER(name) = LOWER(?)", name)
	}
	return repo.Exists[models.PriceRule](ctx, r.base, "LOWER(name) = LOWER(?) AND id <> ?", name, excludeID)
}

// Delete soft-deletes the rule together with its media links.
func (r *repository) Delete(ctx context.Context, id uint64) error {
	conn := r.base.DB(ctx)
	if err := conn.Where("price_rule_id = ?", id).Delete(&models.MediaPriceRule{}).Error; err != nil {
		return err
	}
	return repo.SoftDelete[models.PriceRule](ctx, r.base, id)
}

func (r *repository) List(ctx context.Context, afterID uint64, limit int) ([]models.PriceRule, error) {
	return repo.Page[models.PriceRule](ctx, r.base, afterID, limit)
}
