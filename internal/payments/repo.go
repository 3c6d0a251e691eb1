package payments

import (
	"context"

	"gorm.io/gorm"

	"github.com/angelmondragon/adspace-backend/pkg/db"
	"github.com/angelmondragon/adspace-backend/pkg/db/models"
	"github.com/angelmondragon/adspace-backend/pkg/enums"
)

// Repository persists payments and the campaign status they settle.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	LockCampaign(ctx context.Context, id uint64) (*models.Campaign, error)
	HasSuccess(ctx context.Context, campaignID uint64) (bool, error)
	Create(ctx context.Context, payment *models.Payment) error
	MarkCampaignPaid(ctx context.Context, campaignID uint64) error
	Find(ctx context.Context, id uint64) (*models.Payment, error)
	Visible(ctx context.Context, scope func(*gorm.DB) *gorm.DB, id uint64) (bool, error)
	List(ctx context.Context, scope func(*gorm.DB) *gorm.DB, filter ListFilter) ([]models.Payment, error)
}

// ListFilter narrows List. AfterID continues an id-descending scan.
type ListFilter struct {
	CampaignID uint64
	AfterID    uint64
	Limit      int
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a payments repository bound to the provided DB.
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

func (r *repository) HasSuccess(ctx context.Context, campaignID uint64) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Payment{}).
		Where("campaign_id = ? AND status = ?", campaignID, enums.PaymentStatusSuccess).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *repository) Create(ctx context.Context, payment *models.Payment) error {
	return r.db.WithContext(ctx).Create(payment).Error
}

func (r *repository) MarkCampaignPaid(ctx context.Context, campaignID uint64) error {
	return r.db.WithContext(ctx).
		Model(&models.Campaign{}).
		Where("id = ?", campaignID).
		Update("status", enums.CampaignStatusPaid).Error
}

func (r *repository) Find(ctx context.Context, id uint64) (*models.Payment, error) {
	var payment models.Payment
	if err := r.db.WithContext(ctx).First(&payment, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &payment, nil
}

func (r *repository) Visible(ctx context.Context, scope func(*gorm.DB) *gorm.DB, id uint64) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Payment{}).
		Scopes(scope).
		Where("payments.id = ?", id).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *repository) List(ctx context.Context, scope func(*gorm.DB) *gorm.DB, filter ListFilter) ([]models.Payment, error) {
	q := r.db.WithContext(ctx).Model(&models.Payment{}).Scopes(scope)
	if filter.CampaignID != 0 {
		q = q.Where("payments.campaign_id = ?", filter.CampaignID)
	}
	if filter.AfterID != 0 {
		q = q.Where("payments.id < ?", filter.AfterID)
	}
	var rows []models.Payment
	if err := q.Order("payments.id DESC").Limit(filter.Limit).Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}
