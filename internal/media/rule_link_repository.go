package media

import (
	"context"

	"gorm.io/gorm"

	"github.com/angelmondragon/adspace-backend/pkg/db/models"
)

// ruleLinkRepository wraps GORM operations for media_price_rules.
type ruleLinkRepository struct{}

// NewRuleLinkRepository builds the link repository. Every call runs on the
// transaction it is handed.
func NewRuleLinkRepository() *ruleLinkRepository {
	return &ruleLinkRepository{}
}

// Create inserts a live link row inside the provided transaction.
func (r *ruleLinkRepository) Create(ctx context.Context, tx *gorm.DB, mediaID, ruleID uint64) error {
	return tx.WithContext(ctx).Create(&models.MediaPriceRule{MediaID: mediaID, PriceRuleID: ruleID}).Error
}

// Delete soft-deletes the live link between the media and the rule.
func (r *ruleLinkRepository) Delete(ctx context.Context, tx *gorm.DB, mediaID, ruleID uint64) error {
	return tx.WithContext(ctx).
		Where("media_id = ? AND price_rule_id = ?", mediaID, ruleID).
		Delete(&models.MediaPriceRule{}).
		Error
}

// ExistingRules returns which of ids name live price rules.
func (r *ruleLinkRepository) ExistingRules(ctx context.Context, tx *gorm.DB, ids []uint64) ([]uint64, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var found []uint64
	err := tx.WithContext(ctx).
		Model(&models.PriceRule{}).
		Where("id IN ?", ids).
		Pluck("id", &found).Error
	return found, err
}
