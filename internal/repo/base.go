package repo

import (
	"context"

	"gorm.io/gorm"

	"github.com/angelmondragon/adspace-backend/pkg/db"
)

// Base provides a shared foundation for domain repositories.
type Base struct {
	db *gorm.DB
}

// NewBase constructs a Base repository backed by the provided GORM connection.
func NewBase(db *gorm.DB) Base {
	return Base{db: db}
}

// DB returns the GORM connection bound to the supplied context (if any).
func (b Base) DB(ctx context.Context) *gorm.DB {
	if ctx == nil {
		return b.db
	}
	return b.db.WithContext(ctx)
}

// WithTx rebinds the base to tx; a nil tx keeps the current connection.
func (b Base) WithTx(tx *gorm.DB) Base {
	if tx == nil {
		return b
	}
	return Base{db: tx}
}

// Find loads one live row of T by id.
func Find[T any](ctx context.Context, b Base, id uint64) (*T, error) {
	var row T
	if err := b.DB(ctx).First(&row, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &row, nil
}

// Lock is Find with a row lock held until the surrounding transaction ends.
func Lock[T any](ctx context.Context, b Base, id uint64) (*T, error) {
	var row T
	if err := db.ForUpdate(b.DB(ctx)).First(&row, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &row, nil
}

// Page lists live rows of T by id descending, continuing below afterID when
// it is non-zero. Callers pass perPage+1 as limit to detect a next page.
func Page[T any](ctx context.Context, b Base, afterID uint64, limit int, scopes ...func(*gorm.DB) *gorm.DB) ([]T, error) {
	q := b.DB(ctx).Model(new(T)).Scopes(scopes...)
	if afterID != 0 {
		q = q.Where("id < ?", afterID)
	}
	var rows []T
	if err := q.Order("id DESC").Limit(limit).Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// Exists reports whether a live row of T matches the condition.
func Exists[T any](ctx context.Context, b Base, query string, args ...any) (bool, error) {
	var count int64
	if err := b.DB(ctx).Model(new(T)).Where(query, args...).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// SoftDelete marks the row of T with id as deleted.
func SoftDelete[T any](ctx context.Context, b Base, id uint64) error {
	return b.DB(ctx).Where("id = ?", id).Delete(new(T)).Error
}
