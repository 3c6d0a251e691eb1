package pricing

import (
	"context"

	"gorm.io/gorm"

	"github.com/angelmondragon/adspace-backend/pkg/db/models"
	"github.com/angelmondragon/adspace-backend/pkg/types"
)

// Repository reads media rates and the rules linked to them.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindMedia(ctx context.Context, mediaID uint64) (*models.Media, error)
	LinkedRules(ctx context.Context, mediaID uint64, start, end types.Date) ([]models.PriceRule, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a pricing repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) FindMedia(ctx context.Context, mediaID uint64) (*models.Media, error) {
	var media models.Media
	if err := r.db.WithContext(ctx).First(&media, "id = ?", mediaID).Error; err != nil {
		return nil, err
	}
	return &media, nil
}

// LinkedRules returns rules attached to the media through a live link whose
// window intersects [start, end].
func (r *repository) LinkedRules(ctx context.Context, mediaID uint64, start, end types.Date) ([]models.PriceRule, error) {
	var rules []models.PriceRule
	err := r.db.WithContext(ctx).
		Select("price_rules.*").
		Joins("JOIN media_price_rules ON media_price_rules.price_rule_id = price_rules.id AND media_price_rules.deleted_at IS NULL").
		Where("media_price_rules.media_id = ?", mediaID).
		Where("price_rules.start_date <= ? AND price_rules.end_date >= ?", end, start).
		Order("price_rules.id ASC").
		Find(&rules).Error
	if err != nil {
		return nil, err
	}
	return rules, nil
}
