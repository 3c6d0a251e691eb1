package users

import (
	"context"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/angelmondragon/adspace-backend/internal/repo"
	"github.com/angelmondragon/adspace-backend/pkg/db/models"
)

// Repository exposes user-related persistence operations.
type Repository struct {
	base repo.Base
}

// NewRepository constructs a users repo bound to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{base: repo.NewBase(db)}
}

// WithTx returns a repository bound to tx.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{base: r.base.WithTx(tx)}
}

// Create inserts a new user and returns the persisted model.
func (r *Repository) Create(ctx context.Context, dto CreateUserDTO) (*models.User, error) {
	user := dto.ToModel()
	if err := r.base.DB(ctx).Create(user).Error; err != nil {
		return nil, err
	}
	return user, nil
}

// FindByEmail retrieves the user matching the provided email, ignoring case.
func (r *Repository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	err := r.base.DB(ctx).Where("LOWER(email) = ?", strings.ToLower(strings.TrimSpace(email))).First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// FindByID loads a user by id.
func (r *Repository) FindByID(ctx context.Context, id uint64) (*models.User, error) {
	return repo.Find[models.User](ctx, r.base, id)
}

// Lock loads a user by id for update.
func (r *Repository) Lock(ctx context.Context, id uint64) (*models.User, error) {
	return repo.Lock[models.User](ctx, r.base, id)
}

// EmailTaken reports whether another live user holds the email.
func (r *Repository) EmailTaken(ctx context.Context, email string, excludeID uint64) (bool, error) {
	return repo.Exists[models.User](ctx, r.base, "LOWER(email) = ? AND id <> ?", strings.ToLower(email), excludeID)
}

// Save writes every column of the user.
func (r *Repository) Save(ctx context.Context, user *models.User) error {
	return r.base.DB(ctx).Save(user).Error
}

// Delete soft-deletes the user and their provider profile, if any.
func (r *Repository) Delete(ctx context.Context, id uint64) error {
	if err := r.base.DB(ctx).Where("user_id = ?", id).Delete(&models.Provider{}).Error; err != nil {
		return err
	}
	return repo.SoftDelete[models.User](ctx, r.base, id)
}

// List pages users by id descending.
func (r *Repository) List(ctx context.Context, afterID uint64, limit int, role string) ([]models.User, error) {
	var scopes []func(*gorm.DB) *gorm.DB
	if role != "" {
		scopes = append(scopes, func(q *gorm.DB) *gorm.DB { return q.Where("role = ?", role) })
	}
	return repo.Page[models.User](ctx, r.base, afterID, limit, scopes...)
}

// UpdateLastLogin refreshes the user's last_login_at timestamp.
func (r *Repository) UpdateLastLogin(ctx context.Context, id uint64, at time.Time) error {
	return r.base.DB(ctx).
		Model(&models.User{}).
		Where("id = ?", id).
		UpdateColumn("last_login_at", at).Error
}
