package catalog

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/adspace-backend/pkg/db/dbtest"
	"github.com/angelmondragon/adspace-backend/pkg/db/models"
	"github.com/angelmondragon/adspace-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/adspace-backend/pkg/errors"
	"github.com/angelmondragon/adspace-backend/pkg/pagination"
	"github.com/angelmondragon/adspace-backend/pkg/types"
)

func names(entries []Entry) []string {
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.Name)
	}
	return out
}

func paramsOf(perPage int, token string) pagination.Params {
	return pagination.Params{PerPage: perPage, PageToken: token}
}

func dec(v string) *decimal.Decimal {
	d := decimal.RequireFromString(v)
	return &d
}

func TestSearchFiltersAndSorts(t *testing.T) {
	client := dbtest.Open(t)
	fx := dbtest.NewFixtures(t, client)
	svc, err := NewService(client.DB())
	require.NoError(t, err)

	provider := fx.User("Prov", enums.RoleProvider)
	fx.Media(provider, "Main Street Board", "100")
	fx.Media(provider, "Airport Screen", "250")
	cheap := fx.Media(provider, "Bus Stop", "40")
	hidden := fx.Media(provider, "Retired Board", "10")
	require.NoError(t, client.DB().Model(&models.Media{}).Where("id = ?", hidden.ID).Update("active", false).Error)
	require.NoError(t, client.DB().Create(&models.MediaImage{MediaID: cheap.ID, Route: "media/bus.jpg"}).Error)

	ctx := context.Background()

	page, err := svc.Search(ctx, Filter{SortBy: "price_per_day", SortDir: "asc"})
	require.NoError(t, err)
	assert.Equal(t, []string{"Bus Stop", "Main Street Board", "Airport Screen"}, names(page.Items))
	require.Len(t, page.Items[0].Images, 1)
	assert.Equal(t, "media/bus.jpg", page.Items[0].Images[0].Route)
	assert.Equal(t, provider.ID, page.Items[0].Owner.ID)
	assert.Equal(t, "Prov", page.Items[0].Owner.Name)
	assert.NotNil(t, page.Items[1].Images)

	page, err = svc.Search(ctx, Filter{Name: "board"})
	require.NoError(t, err)
	assert.Equal(t, []string{"Main Street Board"}, names(page.Items))

	page, err = svc.Search(ctx, Filter{MinPrice: dec("50"), MaxPrice: dec("200")})
	require.NoError(t, err)
	assert.Equal(t, []string{"Main Street Board"}, names(page.Items))

	page, err = svc.Search(ctx, Filter{PricePerDay: dec("100"), SortBy: "name", SortDir: "desc"})
	require.NoError(t, err)
	assert.Equal(t, []string{"Main Street Board", "Bus Stop"}, names(page.Items))
}

func TestSearchTreatsWildcardsLiterally(t *testing.T) {
	client := dbtest.Open(t)
	fx := dbtest.NewFixtures(t, client)
	svc, err := NewService(client.DB())
	require.NoError(t, err)

	provider := fx.User("Prov", enums.RoleProvider)
	fx.Media(provider, "Promo 50% Wall", "20")
	fx.Media(provider, "Board 500", "30")
	fx.Media(provider, "Corner_Screen", "40")
	fx.Media(provider, "Corner Screen", "50")
	ctx := context.Background()

	page, err := svc.Search(ctx, Filter{Name: "50%", SortBy: "name", SortDir: "asc"})
	require.NoError(t, err)
	assert.Equal(t, []string{"Promo 50% Wall"}, names(page.Items))

	page, err = svc.Search(ctx, Filter{Name: "r_s", SortBy: "name", SortDir: "asc"})
	require.NoError(t, err)
	assert.Equal(t, []string{"Corner_Screen"}, names(page.Items))

	page, err = svc.Search(ctx, Filter{Name: "%", SortBy: "name", SortDir: "asc"})
	require.NoError(t, err)
	assert.Equal(t, []string{"Promo 50% Wall"}, names(page.Items))
}

func TestContainsEscapesPattern(t *testing.T) {
	assert.Equal(t, `%50\%%`, contains("50%"))
	assert.Equal(t, `%a\_b%`, contains("A_B"))
	assert.Equal(t, `%c:\\x%`, contains(`C:\x`))
}

func TestSearchExcludesBookedMedia(t *testing.T) {
	client := dbtest.Open(t)
	fx := dbtest.NewFixtures(t, client)
	svc, err := NewService(client.DB())
	require.NoError(t, err)

	provider := fx.User("Prov", enums.RoleProvider)
	owner := fx.User("Client", enums.RoleClient)
	booked := fx.Media(provider, "Booked", "100")
	freed := fx.Media(provider, "Freed", "100")
	fx.Media(provider, "Idle", "100")

	live := fx.Campaign(owner, "Live", "2026-04-01", "2026-04-10", enums.CampaignStatusConfirmed)
	fx.Item(live, booked, "1000", enums.ProviderDecisionPending)
	cancelled := fx.Campaign(owner, "Gone", "2026-04-01", "2026-04-10", enums.CampaignStatusCancelled)
	fx.Item(cancelled, freed, "1000", enums.ProviderDecisionPending)

	ctx := context.Background()
	page, err := svc.Search(ctx, Filter{
		StartDate: types.MustParseDate("2026-04-10"),
		EndDate:   types.MustParseDate("2026-04-12"),
		SortBy:    "name",
		SortDir:   "asc",
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"Freed", "Idle"}, names(page.Items))

	page, err = svc.Search(ctx, Filter{
		StartDate: types.MustParseDate("2026-04-11"),
		EndDate:   types.MustParseDate("2026-04-12"),
		SortBy:    "name",
		SortDir:   "asc",
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"Booked", "Freed", "Idle"}, names(page.Items))
}

func TestSearchPagesWithOffsetTokens(t *testing.T) {
	client := dbtest.Open(t)
	fx := dbtest.NewFixtures(t, client)
	svc, err := NewService(client.DB())
	require.NoError(t, err)

	provider := fx.User("Prov", enums.RoleProvider)
	for _, name := range []string{"A", "B", "C"} {
		fx.Media(provider, name, "10")
	}
	ctx := context.Background()

	first, err := svc.Search(ctx, Filter{SortBy: "name", SortDir: "asc", Params: paramsOf(2, "")})
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B"}, names(first.Items))
	require.NotEmpty(t, first.NextPageToken)

	second, err := svc.Search(ctx, Filter{SortBy: "name", SortDir: "asc", Params: paramsOf(2, first.NextPageToken)})
	require.NoError(t, err)
	assert.Equal(t, []string{"C"}, names(second.Items))
	assert.Empty(t, second.NextPageToken)
}

func TestSearchRejectsBadFilters(t *testing.T) {
	client := dbtest.Open(t)
	svc, err := NewService(client.DB())
	require.NoError(t, err)
	ctx := context.Background()

	cases := map[string]struct {
		filter Filter
		field  string
	}{
		"unknown sort":   {Filter{SortBy: "owner"}, "sort_by"},
		"bad direction":  {Filter{SortDir: "sideways"}, "sort_dir"},
		"lonely start":   {Filter{StartDate: types.MustParseDate("2026-04-01")}, "end_date"},
		"inverted range": {Filter{StartDate: types.MustParseDate("2026-04-05"), EndDate: types.MustParseDate("2026-04-01")}, "end_date"},
		"inverted price": {Filter{MinPrice: dec("10"), MaxPrice: dec("5")}, "max_price"},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := svc.Search(ctx, tc.filter)
			require.Error(t, err)
			typed := pkgerrors.As(err)
			require.NotNil(t, typed)
			assert.Equal(t, pkgerrors.CodeValidation, typed.Code())
			details, ok := typed.Details().(map[string]any)
			require.True(t, ok)
			assert.Contains(t, details, tc.field)
		})
	}

	_, err = svc.Search(ctx, Filter{Params: paramsOf(500, "")})
	if !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error for per_page, got %v", err)
	}
}
