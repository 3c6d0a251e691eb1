package campaignitems

import (
	"context"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/adspace-backend/pkg/db"
	"github.com/angelmondragon/adspace-backend/pkg/db/models"
	"github.com/angelmondragon/adspace-backend/pkg/enums"
)

// Repository persists campaign items and the campaign totals they feed.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	LockCampaign(ctx context.Context, id uint64) (*models.Campaign, error)
	LockMedia(ctx context.Context, id uint64) (*models.Media, error)
	LockItem(ctx context.Context, id uint64) (*models.CampaignItem, error)
	FindItem(ctx context.Context, id uint64) (*models.CampaignItem, error)
	MediaOwner(ctx context.Context, mediaID uint64) (uint64, error)
	PairExists(ctx context.Context, campaignID, mediaID, excludeItemID uint64) (bool, error)
	CreateItem(ctx context.Context, item *models.CampaignItem) error
	SaveItem(ctx context.Context, item *models.CampaignItem) error
	DeleteItem(ctx context.Context, id uint64) error
	SetCampaignTotal(ctx context.Context, campaignID uint64, total decimal.Decimal) error
	Visible(ctx context.Context, scope func(*gorm.DB) *gorm.DB, id uint64) (bool, error)
	List(ctx context.Context, scope func(*gorm.DB) *gorm.DB, filter ListFilter) ([]models.CampaignItem, error)
}

// ListFilter narrows List. AfterID continues an id-descending scan.
type ListFilter struct {
	CampaignID     uint64
	MediaID        uint64
	ProviderStatus enums.ProviderDecision
	AfterID        uint64
	Limit          int
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a campaign item repository bound to the provided DB.
func NewRepository(conn *gorm.DB) Repository {
	return &repository{db: conn}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) LockCampaign(ctx context.Context, id uint64) (*models.Campaign, error) {
	var campaign models.Campaign
	if err := db.ForUpdate(r.db.WithContext(ctx)).First(&campaign, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &campaign, nil
}

func (r *repository) LockMedia(ctx context.Context, id uint64) (*models.Media, error) {
	var media models.Media
	if err := db.ForUpdate(r.db.WithContext(ctx)).First(&media, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &media, nil
}

func (r *repository) LockItem(ctx context.Context, id uint64) (*models.CampaignItem, error) {
	var item models.CampaignItem
	if err := db.ForUpdate(r.db.WithContext(ctx)).First(&item, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &item, nil
}

func (r *repository) FindItem(ctx context.Context, id uint64) (*models.CampaignItem, error) {
	var item models.CampaignItem
	if err := r.db.WithContext(ctx).First(&item, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &item, nil
}

// MediaOwner resolves the owner even when the media was deleted after booking.
func (r *repository) MediaOwner(ctx context.Context, mediaID uint64) (uint64, error) {
	var media models.Media
	err := r.db.WithContext(ctx).Unscoped().Select("id", "user_id").First(&media, "id = ?", mediaID).Error
	if err != nil {
		return 0, err
	}
	return media.UserID, nil
}

func (r *repository) PairExists(ctx context.Context, campaignID, mediaID, excludeItemID uint64) (bool, error) {
	q := r.db.WithContext(ctx).Model(&models.CampaignItem{}).
		Where("campaign_id = ? AND media_id = ?", campaignID, mediaID)
	if excludeItemID != 0 {
		q = q.Where("id <> ?", excludeItemID)
	}
	var count int64
	if err := q.Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *repository) CreateItem(ctx context.Context, item *models.CampaignItem) error {
	return r.db.WithContext(ctx).Create(item).Error
}

func (r *repository) SaveItem(ctx context.Context, item *models.CampaignItem) error {
	return r.db.WithContext(ctx).Save(item).Error
}

func (r *repository) DeleteItem(ctx context.Context, id uint64) error {
	return r.db.WithContext(ctx).Delete(&models.CampaignItem{}, "id = ?", id).Error
}

func (r *repository) SetCampaignTotal(ctx context.Context, campaignID uint64, total decimal.Decimal) error {
	return r.db.WithContext(ctx).
		Model(&models.Campaign{}).
		Where("id = ?", campaignID).
		Update("total", total).Error
}

func (r *repository) Visible(ctx context.Context, scope func(*gorm.DB) *gorm.DB, id uint64) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.CampaignItem{}).
		Scopes(scope).
		Where("campaign_items.id = ?", id).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *repository) List(ctx context.Context, scope func(*gorm.DB) *gorm.DB, filter ListFilter) ([]models.CampaignItem, error) {
	q := r.db.WithContext(ctx).
		Model(&models.CampaignItem{}).
		Select("campaign_items.*").
		Scopes(scope)
	if filter.CampaignID != 0 {
		q = q.Where("campaign_items.campaign_id = ?", filter.CampaignID)
	}
	if filter.MediaID != 0 {
		q = q.Where("campaign_items.media_id = ?", filter.MediaID)
	}
	if filter.ProviderStatus != "" {
		q = q.Where("campaign_items.provider_status = ?", filter.ProviderStatus)
	}
	if filter.AfterID != 0 {
		q = q.Where("campaign_items.id < ?", filter.AfterID)
	}
	var items []models.CampaignItem
	if err := q.Order("campaign_items.id DESC").Limit(filter.Limit).Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}
