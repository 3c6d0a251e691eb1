// Package dbtest opens throwaway SQLite stores with the full schema migrated.
package dbtest

import (
	"fmt"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/angelmondragon/adspace-backend/pkg/db"
	"github.com/angelmondragon/adspace-backend/pkg/db/models"
	"github.com/angelmondragon/adspace-backend/pkg/enums"
	"github.com/angelmondragon/adspace-backend/pkg/types"
)

// Open returns a client over a private in-memory database. The database is
// closed when the test finishes.
func Open(t testing.TB) *db.Client {
	t.Helper()
	dsn := "file:" + uuid.NewString() + "?mode=memory&cache=shared"
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:                 gormlogger.Default.LogMode(gormlogger.Silent),
		SkipDefaultTransaction: true,
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := conn.AutoMigrate(models.All()...); err != nil {
		t.Fatalf("migrate sqlite: %v", err)
	}
	client := db.Wrap(conn)
	t.Cleanup(func() { _ = client.Close() })
	return client
}

// Fixtures seeds rows with sensible defaults for service tests.
type Fixtures struct {
	t  testing.TB
	db *gorm.DB
}

// NewFixtures binds a fixture helper to the client.
func NewFixtures(t testing.TB, client *db.Client) *Fixtures {
	return &Fixtures{t: t, db: client.DB()}
}

func (f *Fixtures) create(value any) {
	f.t.Helper()
	if err := f.db.Create(value).Error; err != nil {
		f.t.Fatalf("seed %T: %v", value, err)
	}
}

// User inserts a user with the role; the email is derived from the name.
func (f *Fixtures) User(name string, role enums.Role) *models.User {
	f.t.Helper()
	user := &models.User{
		Name:         name,
		Email:        strings.ToLower(strings.ReplaceAll(name, " ", ".")) + "@example.com",
		PasswordHash: "x",
		Role:         role,
	}
	f.create(user)
	return user
}

// Provider inserts a provider profile for the user.
func (f *Fixtures) Provider(user *models.User, commission int) *models.Provider {
	f.t.Helper()
	clabe := fmt.Sprintf("%018d", user.ID)
	profile := &models.Provider{
		UserID:       user.ID,
		BusinessName: user.Name + " Media",
		TaxID:        fmt.Sprintf("TAX%d", user.ID),
		Commission:   commission,
		BankAccount:  clabe,
		Clabe:        clabe,
	}
	f.create(profile)
	return profile
}

// Media inserts an active media owned by owner.
func (f *Fixtures) Media(owner *models.User, name, pricePerDay string) *models.Media {
	f.t.Helper()
	media := &models.Media{
		Name:        name,
		Type:        "Billboard",
		Location:    "Downtown",
		PricePerDay: decimal.RequireFromString(pricePerDay),
		Active:      true,
		Status:      enums.MediaStatusAvailable,
		UserID:      owner.ID,
	}
	f.create(media)
	return media
}

// PriceRule inserts a rule and links it to each media.
func (f *Fixtures) PriceRule(name string, pct int, start, end string, media ...*models.Media) *models.PriceRule {
	f.t.Helper()
	rule := &models.PriceRule{
		Name:      name,
		StartDate: types.MustParseDate(start),
		EndDate:   types.MustParseDate(end),
		ValuePct:  pct,
	}
	f.create(rule)
	for _, m := range media {
		f.create(&models.MediaPriceRule{MediaID: m.ID, PriceRuleID: rule.ID})
	}
	return rule
}

// Campaign inserts a campaign owned by owner.
func (f *Fixtures) Campaign(owner *models.User, name, start, end string, status enums.CampaignStatus) *models.Campaign {
	f.t.Helper()
	campaign := &models.Campaign{
		Name:      name,
		StartDate: types.MustParseDate(start),
		EndDate:   types.MustParseDate(end),
		Total:     decimal.Zero,
		Currency:  enums.CurrencyUSD,
		Status:    status,
		UserID:    owner.ID,
	}
	f.create(campaign)
	return campaign
}

// Item inserts an item and adds its subtotal to the campaign total.
func (f *Fixtures) Item(campaign *models.Campaign, media *models.Media, subtotal string, decision enums.ProviderDecision) *models.CampaignItem {
	f.t.Helper()
	amount := decimal.RequireFromString(subtotal)
	days := campaign.EndDate.DaysSince(campaign.StartDate) + 1
	item := &models.CampaignItem{
		CampaignID:     campaign.ID,
		MediaID:        media.ID,
		Range:          "All day",
		Days:           days,
		PricePerDay:    amount.Div(decimal.NewFromInt(int64(days))).Round(2),
		Subtotal:       amount,
		ProviderStatus: decision,
	}
	f.create(item)
	campaign.Total = campaign.Total.Add(amount)
	if err := f.db.Model(&models.Campaign{}).Where("id = ?", campaign.ID).Update("total", campaign.Total).Error; err != nil {
		f.t.Fatalf("update campaign total: %v", err)
	}
	return item
}

// CancellationPolicy inserts a penalty band.
func (f *Fixtures) CancellationPolicy(startDays, endDays, commission int) *models.CancellationPolicy {
	f.t.Helper()
	policy := &models.CancellationPolicy{StartDays: startDays, EndDays: endDays, Commission: commission}
	f.create(policy)
	return policy
}
