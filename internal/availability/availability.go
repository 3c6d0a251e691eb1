// Package availability answers whether a media can be booked for a date range.
package availability

import (
	"context"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/angelmondragon/adspace-backend/pkg/db/models"
	"github.com/angelmondragon/adspace-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/adspace-backend/pkg/errors"
	"github.com/angelmondragon/adspace-backend/pkg/types"
)

// Booking is an existing item that holds the media over an overlapping range.
type Booking struct {
	ItemID     uint64               `json:"item_id"`
	CampaignID uint64               `json:"campaign_id"`
	StartDate  types.Date           `json:"start_date"`
	EndDate    types.Date           `json:"end_date"`
	Status     enums.CampaignStatus `json:"status"`
}

// Checker reads bookings from the store. A checker bound to a transaction
// locks the conflicting item rows it reads.
type Checker struct {
	db   *gorm.DB
	lock bool
}

// NewChecker builds a checker over the shared connection.
func NewChecker(db *gorm.DB) *Checker {
	return &Checker{db: db}
}

// WithTx returns a checker that reads through tx with FOR UPDATE.
func (c *Checker) WithTx(tx *gorm.DB) *Checker {
	if tx == nil {
		return c
	}
	return &Checker{db: tx, lock: true}
}

// Conflicts lists bookings of mediaID whose campaign is live and intersects
// [start, end]. excludeItemID (when non-zero) is ignored.
func (c *Checker) Conflicts(ctx context.Context, mediaID uint64, start, end types.Date, excludeItemID uint64) ([]Booking, error) {
	if end.Before(start) {
		return nil, fmt.Errorf("end date %s is before start date %s", end, start)
	}
	q := c.db.WithContext(ctx).
		Table("campaign_items").
		Select("campaign_items.id AS item_id, campaign_items.campaign_id, campaigns.start_date, campaigns.end_date, campaigns.status").
		Joins("JOIN campaigns ON campaigns.id = campaign_items.campaign_id AND campaigns.deleted_at IS NULL").
		Where("campaign_items.deleted_at IS NULL").
		Where("campaign_items.media_id = ?", mediaID).
		Where("campaigns.status <> ?", enums.CampaignStatusCancelled).
		Where("campaigns.start_date <= ? AND campaigns.end_date >= ?", end, start)
	if excludeItemID != 0 {
		q = q.Where("campaign_items.id <> ?", excludeItemID)
	}
	if c.lock {
		q = q.Clauses(clause.Locking{Strength: "UPDATE", Table: clause.Table{Name: "campaign_items"}})
	}
	var rows []Booking
	if err := q.Order("campaign_items.id ASC").Scan(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// IsFree reports whether no live booking of mediaID intersects [start, end].
func (c *Checker) IsFree(ctx context.Context, mediaID uint64, start, end types.Date, excludeItemID uint64) (bool, error) {
	rows, err := c.Conflicts(ctx, mediaID, start, end, excludeItemID)
	if err != nil {
		return false, err
	}
	return len(rows) == 0, nil
}

// RequireFree is IsFree mapped onto service errors.
func (c *Checker) RequireFree(ctx context.Context, mediaID uint64, start, end types.Date, excludeItemID uint64) error {
	free, err := c.IsFree(ctx, mediaID, start, end, excludeItemID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check media availability")
	}
	if !free {
		return pkgerrors.New(pkgerrors.CodeConflict, "media is not available for the selected dates")
	}
	return nil
}

// BookedMediaIDs is a subquery yielding the ids of media with a live booking
// intersecting [start, end]. Callers use it as "media.id NOT IN (?)".
func BookedMediaIDs(db *gorm.DB, start, end types.Date) *gorm.DB {
	return db.Model(&models.CampaignItem{}).
		Select("campaign_items.media_id").
		Joins("JOIN campaigns ON campaigns.id = campaign_items.campaign_id AND campaigns.deleted_at IS NULL").
		Where("campaigns.status <> ?", enums.CampaignStatusCancelled).
		Where("campaigns.start_date <= ? AND campaigns.end_date >= ?", end, start)
}
