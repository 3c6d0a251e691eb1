package campaigns

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/angelmondragon/adspace-backend/pkg/db"
	"github.com/angelmondragon/adspace-backend/pkg/db/models"
	"github.com/angelmondragon/adspace-backend/pkg/enums"
)

// Repository persists campaigns.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, campaign *models.Campaign) error
	Find(ctx context.Context, id uint64) (*models.Campaign, error)
	Lock(ctx context.Context, id uint64) (*models.Campaign, error)
	Update(ctx context.Context, id uint64, fields map[string]any) error
	NameTaken(ctx context.Context, name string, excludeID uint64) (bool, error)
	FindUser(ctx context.Context, id uint64) (*models.User, error)
	MatchPolicy(ctx context.Context, daysUntilStart int) (*models.CancellationPolicy, error)
	DeleteWithItems(ctx context.Context, id uint64) error
	Visible(ctx context.Context, scope func(*gorm.DB) *gorm.DB, id uint64) (bool, error)
	List(ctx context.Context, scope func(*gorm.DB) *gorm.DB, filter ListFilter) ([]models.Campaign, error)
}

// ListFilter narrows List. AfterID continues an id-descending scan.
type ListFilter struct {
	Status  enums.CampaignStatus
	AfterID uint64
	Limit   int
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a campaigns repository bound to the provided DB.
func NewRepository(conn *gorm.DB) Repository {
	return &repository{db: conn}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, campaign *models.Campaign) error {
	return r.db.WithContext(ctx).Create(campaign).Error
}

func (r *repository) Find(ctx context.Context, id uint64) (*models.Campaign, error) {
	var campaign models.Campaign
	if err := r.db.WithContext(ctx).First(&campaign, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &campaign, nil
}

func (r *repository) Lock(ctx context.Context, id uint64) (*models.Campaign, error) {
	var campaign models.Campaign
	if err := db.ForUpdate(r.db.WithContext(ctx)).First(&campaign, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &campaign, nil
}

func (r *repository) Update(ctx context.Context, id uint64, fields map[string]any) error {
	if len(fields) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Model(&models.Campaign{}).Where("id = ?", id).Updates(fields).Error
}

func (r *repository) NameTaken(ctx context.Context, name string, excludeID uint64) (bool, error) {
	q := r.db.WithContext(ctx).Model(&models.Campaign{}).Where("name = ?", name)
	if excludeID != 0 {
		q = q.Where("id <> ?", excludeID)
	}
	var count int64
	if err := q.Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *repository) FindUser(ctx context.Context, id uint64) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).First(&user, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// MatchPolicy returns the band containing daysUntilStart, or nil when no band
// applies. Overlapping bands resolve to the narrowest start.
func (r *repository) MatchPolicy(ctx context.Context, daysUntilStart int) (*models.CancellationPolicy, error) {
	var policy models.CancellationPolicy
	err := r.db.WithContext(ctx).
		Where("start_days <= ? AND end_days >= ?", daysUntilStart, daysUntilStart).
		Order("start_days DESC, id ASC").
		First(&policy).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &policy, nil
}

func (r *repository) DeleteWithItems(ctx context.Context, id uint64) error {
	conn := r.db.WithContext(ctx)
	if err := conn.Where("campaign_id = ?", id).Delete(&models.CampaignItem{}).Error; err != nil {
		return err
	}
	return conn.Delete(&models.Campaign{}, "id = ?", id).Error
}

func (r *repository) Visible(ctx context.Context, scope func(*gorm.DB) *gorm.DB, id uint64) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Campaign{}).
		Scopes(scope).
		Where("campaigns.id = ?", id).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *repository) List(ctx context.Context, scope func(*gorm.DB) *gorm.DB, filter ListFilter) ([]models.Campaign, error) {
	q := r.db.WithContext(ctx).Model(&models.Campaign{}).Scopes(scope)
	if filter.Status != "" {
		q = q.Where("campaigns.status = ?", filter.Status)
	}
	if filter.AfterID != 0 {
		q = q.Where("campaigns.id < ?", filter.AfterID)
	}
	var rows []models.Campaign
	if err := q.Order("campaigns.id DESC").Limit(filter.Limit).Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}
