package providers

import (
	"context"

	"gorm.io/gorm"

	"github.com/angelmondragon/adspace-backend/internal/repo"
	"github.com/angelmondragon/adspace-backend/pkg/db/models"
)

// Repository persists provider profiles.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, profile *models.Provider) error
	Find(ctx context.Context, id uint64) (*models.Provider, error)
	Lock(ctx context.Context, id uint64) (*models.Provider, error)
	FindByUser(ctx context.Context, userID uint64) (*models.Provider, error)
	Save(ctx context.Context, profile *models.Provider) error
	Delete(ctx context.Context, id uint64) error
	List(ctx context.Context, afterID uint64, limit int) ([]models.Provider, error)
	ClabeTaken(ctx context.Context, clabe string, excludeID uint64) (bool, error)
	UserHasProfile(ctx context.Context, userID, excludeID uint64) (bool, error)
	FindUser(ctx context.Context, id uint64) (*models.User, error)
}

type repository struct {
	base repo.Base
}

// NewRepository builds a providers repository bound to the provided DB.
func NewRepository(conn *gorm.DB) Repository {
	return &repository{base: repo.NewBase(conn)}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	return &repository{base: r.base.WithTx(tx)}
}

func (r *repository) Create(ctx context.Context, profile *models.Provider) error {
	return r.base.DB(ctx).Create(profile).Error
}

func (r *repository) Find(ctx context.Context, id uint64) (*models.Provider, error) {
	return repo.Find[models.Provider](ctx, r.base, id)
}

func (r *repository) Lock(ctx context.Context, id uint64) (*models.Provider, error) {
	return repo.Lock[models.Provider](ctx, r.base, id)
}

func (r *repository) FindByUser(ctx context.Context, userID uint64) (*models.Provider, error) {
	var profile models.Provider
	if err := r.base.DB(ctx).First(&profile, "user_id = ?", userID).Error; err != nil {
		return nil, err
	}
	return &profile, nil
}

func (r *repository) Save(ctx context.Context, profile *models.Provider) error {
	return r.base.DB(ctx).Save(profile).Error
}

func (r *repository) Delete(ctx context.Context, id uint64) error {
	return repo.SoftDelete[models.Provider](ctx, r.base, id)
}

func (r *repository) List(ctx context.Context, afterID uint64, limit int) ([]models.Provider, error) {
	return repo.Page[models.Provider](ctx, r.base, afterID, limit)
}

func (r *repository) ClabeTaken(ctx context.Context, clabe string, excludeID uint64) (bool, error) {
	return repo.Exists[models.Provider](ctx, r.base, "clabe = ? AND id <> ?", clabe, excludeID)
}

func (r *repository) UserHasProfile(ctx context.Context, userID, excludeID uint64) (bool, error) {
	return repo.Exists[models.Provider](ctx, r.base, "user_id = ? AND id <> ?", userID, excludeID)
}

func (r *repository) FindUser(ctx context.Context, id uint64) (*models.User, error) {
	return repo.Find[models.User](ctx, r.base, id)
}
