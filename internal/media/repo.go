package media

import (
	"context"

	"gorm.io/gorm"

	"github.com/angelmondragon/adspace-backend/internal/repo"
	"github.com/angelmondragon/adspace-backend/pkg/db/models"
	"github.com/angelmondragon/adspace-backend/pkg/enums"
	"github.com/angelmondragon/adspace-backend/pkg/types"
)

// Repository persists media and reads the rows hanging off them.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, media *models.Media) error
	Find(ctx context.Context, id uint64) (*models.Media, error)
	Lock(ctx context.Context, id uint64) (*models.Media, error)
	Save(ctx context.Context, media *models.Media) error
	Delete(ctx context.Context, id uint64) error
	Visible(ctx context.Context, scope func(*gorm.DB) *gorm.DB, id uint64) (bool, error)
	List(ctx context.Context, scope func(*gorm.DB) *gorm.DB, filter ListFilter) ([]models.Media, error)
	FindUser(ctx context.Context, id uint64) (*models.User, error)
	PolicyExists(ctx context.Context, id uint64) (bool, error)
	LiveBookings(ctx context.Context, mediaID uint64) (int64, error)
	LinkedRuleIDs(ctx context.Context, mediaID uint64) ([]uint64, error)
	LinkedRules(ctx context.Context, mediaID uint64) ([]models.PriceRule, error)
	ActiveRules(ctx context.Context, mediaID uint64, day types.Date) ([]models.PriceRule, error)
	Images(ctx context.Context, mediaID uint64) ([]models.MediaImage, error)
}

// ListFilter narrows List. AfterID continues an id-descending scan.
type ListFilter struct {
	Active  *bool
	OwnerID uint64
	AfterID uint64
	Limit   int
}

type repository struct {
	base repo.Base
}

// NewRepository builds a media repository bound to the provided DB.
func NewRepository(conn *gorm.DB) Repository {
	return &repository{base: repo.NewBase(conn)}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	return &repository{base: r.base.WithTx(tx)}
}

func (r *repository) Create(ctx context.Context, media *models.Media) error {
	return r.base.DB(ctx).Create(media).Error
}

func (r *repository) Find(ctx context.Context, id uint64) (*models.Media, error) {
	return repo.Find[models.Media](ctx, r.base, id)
}

func (r *repository) Lock(ctx context.Context, id uint64) (*models.Media, error) {
	return repo.Lock[models.Media](ctx, r.base, id)
}

func (r *repository) Save(ctx context.Context, media *models.Media) error {
	return r.base.DB(ctx).Save(media).Error
}

// Delete soft-deletes the media with its images and rule links. Items that
// booked it keep pointing at the row.
func (r *repository) Delete(ctx context.Context, id uint64) error {
	conn := r.base.DB(ctx)
	if err := conn.Where("media_id = ?", id).Delete(&models.MediaImage{}).Error; err != nil {
		return err
	}
	if err := conn.Where("media_id = ?", id).Delete(&models.MediaPriceRule{}).Error; err != nil {
		return err
	}
	return repo.SoftDelete[models.Media](ctx, r.base, id)
}

func (r *repository) Visible(ctx context.Context, scope func(*gorm.DB) *gorm.DB, id uint64) (bool, error) {
	var count int64
	err := r.base.DB(ctx).
		Model(&models.Media{}).
		Scopes(scope).
		Where("media.id = ?", id).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *repository) List(ctx context.Context, scope func(*gorm.DB) *gorm.DB, filter ListFilter) ([]models.Media, error) {
	return repo.Page[models.Media](ctx, r.base, filter.AfterID, filter.Limit, scope, func(q *gorm.DB) *gorm.DB {
		if filter.Active != nil {
			q = q.Where("media.active = ?", *filter.Active)
		}
		if filter.OwnerID != 0 {
			q = q.Where("media.user_id = ?", filter.OwnerID)
		}
		return q
	})
}

func (r *repository) FindUser(ctx context.Context, id uint64) (*models.User, error) {
	return repo.Find[models.User](ctx, r.base, id)
}

func (r *repository) PolicyExists(ctx context.Context, id uint64) (bool, error) {
	return repo.Exists[models.CancellationPolicy](ctx, r.base, "id = ?", id)
}

// LiveBookings counts items on the media inside campaigns that have not
// reached a terminal state.
func (r *repository) LiveBookings(ctx context.Context, mediaID uint64) (int64, error) {
	var count int64
	err := r.base.DB(ctx).
		Model(&models.CampaignItem{}).
		Joins("JOIN campaigns ON campaigns.id = campaign_items.campaign_id AND campaigns.deleted_at IS NULL").
		Where("campaign_items.media_id = ?", mediaID).
		Where("campaigns.status NOT IN ?", []enums.CampaignStatus{enums.CampaignStatusCancelled, enums.CampaignStatusFinished}).
		Count(&count).Error
	return count, err
}

func (r *repository) LinkedRuleIDs(ctx context.Context, mediaID uint64) ([]uint64, error) {
	var ids []uint64
	err := r.base.DB(ctx).
		Model(&models.MediaPriceRule{}).
		Where("media_id = ?", mediaID).
		Order("price_rule_id ASC").
		Pluck("price_rule_id", &ids).Error
	return ids, err
}

func (r *repository) LinkedRules(ctx context.Context, mediaID uint64) ([]models.PriceRule, error) {
	return r.rules(ctx, mediaID, nil)
}

// ActiveRules returns linked rules whose window contains day.
func (r *repository) ActiveRules(ctx context.Context, mediaID uint64, day types.Date) ([]models.PriceRule, error) {
	return r.rules(ctx, mediaID, func(q *gorm.DB) *gorm.DB {
		return q.Where("price_rules.start_date <= ? AND price_rules.end_date >= ?", day, day)
	})
}

func (r *repository) rules(ctx context.Context, mediaID uint64, scope func(*gorm.DB) *gorm.DB) ([]models.PriceRule, error) {
	q := r.base.DB(ctx).
		Select("price_rules.*").
		Joins("JOIN media_price_rules ON media_price_rules.price_rule_id = price_rules.id AND media_price_rules.deleted_at IS NULL").
		Where("media_price_rules.media_id = ?", mediaID)
	if scope != nil {
		q = q.Scopes(scope)
	}
	var rules []models.PriceRule
	if err := q.Order("price_rules.id ASC").Find(&rules).Error; err != nil {
		return nil, err
	}
	return rules, nil
}

func (r *repository) Images(ctx context.Context, mediaID uint64) ([]models.MediaImage, error) {
	var images []models.MediaImage
	if err := r.base.DB(ctx).Where("media_id = ?", mediaID).Order("id ASC").Find(&images).Error; err != nil {
		return nil, err
	}
	return images, nil
}
