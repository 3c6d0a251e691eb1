package mediaimages

import (
	"context"

	"gorm.io/gorm"

	"github.com/angelmondragon/adspace-backend/internal/repo"
	"github.com/angelmondragon/adspace-backend/pkg/db/models"
)

// Repository persists image references of media.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, image *models.MediaImage) error
	Find(ctx context.Context, id uint64) (*models.MediaImage, error)
	Save(ctx context.Context, image *models.MediaImage) error
	Delete(ctx context.Context, id uint64) error
	List(ctx context.Context, mediaID, afterID uint64, limit int) ([]models.MediaImage, error)
	FindMedia(ctx context.Context, id uint64) (*models.Media, error)
}

type repository struct {
	base repo.Base
}

// NewRepository builds an image repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{base: repo.NewBase(db)}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	return &repository{base: r.base.WithTx(tx)}
}

func (r *repository) Create(ctx context.Context, image *models.MediaImage) error {
	return r.base.DB(ctx).Create(image).Error
}

func (r *repository) Find(ctx context.Context, id uint64) (*models.MediaImage, error) {
	return repo.Find[models.MediaImage](ctx, r.base, id)
}

func (r *repository) Save(ctx context.Context, image *models.MediaImage) error {
	return r.base.DB(ctx).Save(image).Error
}

func (r *repository) Delete(ctx context.Context, id uint64) error {
	return repo.SoftDelete[models.MediaImage](ctx, r.base, id)
}

func (r *repository) List(ctx context.Context, mediaID, afterID uint64, limit int) ([]models.MediaImage, error) {
	return repo.Page[models.MediaImage](ctx, r.base, afterID, limit, func(q *gorm.DB) *gorm.DB {
		return q.Where("media_id = ?", mediaID)
	})
}

func (r *repository) FindMedia(ctx context.Context, id uint64) (*models.Media, error) {
	return repo.Find[models.Media](ctx, r.base, id)
}
