package payouts

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/angelmondragon/adspace-backend/pkg/db"
	"github.com/angelmondragon/adspace-backend/pkg/db/models"
	"github.com/angelmondragon/adspace-backend/pkg/enums"
)

// AcceptedLine is an accepted item joined to the owner of its media and the
// owner's provider profile. Commission is nil when no live profile exists.
type AcceptedLine struct {
	ItemID      uint64
	MediaID     uint64
	Subtotal    decimal.Decimal
	OwnerUserID uint64
	OwnerRole   enums.Role
	Commission  *int
}

// Repository persists payouts.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	LockCampaign(ctx context.Context, id uint64) (*models.Campaign, error)
	CountForCampaign(ctx context.Context, campaignID uint64) (int64, error)
	AcceptedLines(ctx context.Context, campaignID uint64) ([]AcceptedLine, error)
	CreateMany(ctx context.Context, rows []models.Payout) error
	Find(ctx context.Context, id uint64) (*models.Payout, error)
	Lock(ctx context.Context, id uint64) (*models.Payout, error)
	MarkPaid(ctx context.Context, id uint64, at time.Time) error
	Visible(ctx context.Context, scope func(*gorm.DB) *gorm.DB, id uint64) (bool, error)
	List(ctx context.Context, scope func(*gorm.DB) *gorm.DB, filter ListFilter) ([]models.Payout, error)
}

// ListFilter narrows List. AfterID continues an id-descending scan.
type ListFilter struct {
	CampaignID uint64
	Status     enums.PayoutStatus
	AfterID    uint64
	Limit      int
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a payouts repository bound to the provided DB.
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

func (r *repository) CountForCampaign(ctx context.Context, campaignID uint64) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Payout{}).Where("campaign_id = ?", campaignID).Count(&count).Error
	return count, err
}

// AcceptedLines reads the accepted items of a campaign with their owners.
// Media deleted after booking still resolve to their owner.
func (r *repository) AcceptedLines(ctx context.Context, campaignID uint64) ([]AcceptedLine, error) {
	var lines []AcceptedLine
	err := r.db.WithContext(ctx).
		Table("campaign_items").
		Select(`campaign_items.id AS item_id, campaign_items.media_id, campaign_items.subtotal,
			users.id AS owner_user_id, users.role AS owner_role, providers.commission`).
		Joins("JOIN media ON media.id = campaign_items.media_id").
		Joins("JOIN users ON users.id = media.user_id").
		Joins("LEFT JOIN providers ON providers.user_id = users.id AND providers.deleted_at IS NULL").
		Where("campaign_items.campaign_id = ?", campaignID).
		Where("campaign_items.deleted_at IS NULL").
		Where("campaign_items.provider_status = ?", enums.ProviderDecisionAccepted).
		Clauses(clause.Locking{Strength: "UPDATE", Table: clause.Table{Name: "campaign_items"}}).
		Order("campaign_items.id ASC").
		Scan(&lines).Error
	if err != nil {
		return nil, err
	}
	return lines, nil
}

func (r *repository) CreateMany(ctx context.Context, rows []models.Payout) error {
	if len(rows) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&rows).Error
}

func (r *repository) Find(ctx context.Context, id uint64) (*models.Payout, error) {
	var payout models.Payout
	if err := r.db.WithContext(ctx).First(&payout, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &payout, nil
}

func (r *repository) Lock(ctx context.Context, id uint64) (*models.Payout, error) {
	var payout models.Payout
	if err := db.ForUpdate(r.db.WithContext(ctx)).First(&payout, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &payout, nil
}

func (r *repository) MarkPaid(ctx context.Context, id uint64, at time.Time) error {
	return r.db.WithContext(ctx).
		Model(&models.Payout{}).
		Where("id = ?", id).
		Updates(map[string]any{"status": enums.PayoutStatusPaid, "paid_at": at}).Error
}

func (r *repository) Visible(ctx context.Context, scope func(*gorm.DB) *gorm.DB, id uint64) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Payout{}).
		Scopes(scope).
		Where("payouts.id = ?", id).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *repository) List(ctx context.Context, scope func(*gorm.DB) *gorm.DB, filter ListFilter) ([]models.Payout, error) {
	q := r.db.WithContext(ctx).Model(&models.Payout{}).Scopes(scope)
	if filter.CampaignID != 0 {
		q = q.Where("payouts.campaign_id = ?", filter.CampaignID)
	}
	if filter.Status != "" {
		q = q.Where("payouts.status = ?", filter.Status)
	}
	if filter.AfterID != 0 {
		q = q.Where("payouts.id < ?", filter.AfterID)
	}
	var rows []models.Payout
	if err := q.Order("payouts.id DESC").Limit(filter.Limit).Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}
