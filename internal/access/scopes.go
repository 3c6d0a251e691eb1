package access

import (
	"gorm.io/gorm"

	"github.com/angelmondragon/adspace-backend/pkg/enums"
)

func none(db *gorm.DB) *gorm.DB {
	return db.Where("1 = 0")
}

// CampaignScope restricts a campaigns query to the rows the actor may read:
// admins see every campaign, clients their own, providers the campaigns that
// hold at least one live item on media they own.
func CampaignScope(a Actor) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		switch a.Role {
		case enums.RoleAdmin:
			return db
		case enums.RoleClient:
			return db.Where("campaigns.user_id = ?", a.UserID)
		case enums.RoleProvider:
			return db.Where(`EXISTS (
				SELECT 1 FROM campaign_items ci
				JOIN media m ON m.id = ci.media_id
				WHERE ci.campaign_id = campaigns.id AND ci.deleted_at IS NULL AND m.user_id = ?)`, a.UserID)
		default:
			return none(db)
		}
	}
}

// ItemScope restricts a campaign_items query: providers see items on their
// media, clients items inside their campaigns.
func ItemScope(a Actor) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		switch a.Role {
		case enums.RoleAdmin:
			return db
		case enums.RoleProvider:
			return db.Where("campaign_items.media_id IN (SELECT id FROM media WHERE user_id = ?)", a.UserID)
		case enums.RoleClient:
			return db.Where("campaign_items.campaign_id IN (SELECT id FROM campaigns WHERE user_id = ? AND deleted_at IS NULL)", a.UserID)
		default:
			return none(db)
		}
	}
}

// PaymentScope: admins see all payments, clients those of their campaigns.
func PaymentScope(a Actor) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		switch a.Role {
		case enums.RoleAdmin:
			return db
		case enums.RoleClient:
			return db.Where("payments.campaign_id IN (SELECT id FROM campaigns WHERE user_id = ?)", a.UserID)
		default:
			return none(db)
		}
	}
}

// PayoutScope: admins see all payouts, providers their own.
func PayoutScope(a Actor) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		switch a.Role {
		case enums.RoleAdmin:
			return db
		case enums.RoleProvider:
			return db.Where("payouts.user_id = ?", a.UserID)
		default:
			return none(db)
		}
	}
}

// MediaScope: admins manage every media, providers only their own.
func MediaScope(a Actor) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		switch a.Role {
		case enums.RoleAdmin:
			return db
		case enums.RoleProvider:
			return db.Where("media.user_id = ?", a.UserID)
		default:
			return none(db)
		}
	}
}
