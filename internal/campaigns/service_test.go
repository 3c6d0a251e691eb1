package campaigns

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/adspace-backend/internal/access"
	"github.com/angelmondragon/adspace-backend/pkg/clock"
	"github.com/angelmondragon/adspace-backend/pkg/db"
	"github.com/angelmondragon/adspace-backend/pkg/db/dbtest"
	"github.com/angelmondragon/adspace-backend/pkg/db/models"
	"github.com/angelmondragon/adspace-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/adspace-backend/pkg/errors"
	"github.com/angelmondragon/adspace-backend/pkg/outbox"
	"github.com/angelmondragon/adspace-backend/pkg/pagination"
	"github.com/angelmondragon/adspace-backend/pkg/types"
)

const today = "2026-03-01"

type harness struct {
	svc    Service
	client *db.Client
	fx     *dbtest.Fixtures
	events *outbox.Repository
}

func newHarness(t *testing.T) harness {
	t.Helper()
	h := newBareHarness(t)
	h.fx.CancellationPolicy(0, 7, 50)
	return h
}

// newBareHarness leaves cancellation_policies empty.
func newBareHarness(t *testing.T) harness {
	t.Helper()
	client := dbtest.Open(t)
	events := outbox.NewRepository(client.DB())
	svc, err := NewService(
		NewRepository(client.DB()),
		client,
		clock.FixedDate(types.MustParseDate(today)),
		outbox.NewService(events, nil),
		nil,
		nil,
	)
	require.NoError(t, err)
	return harness{svc: svc, client: client, fx: dbtest.NewFixtures(t, client), events: events}
}

func actorOf(u *models.User) access.Actor {
	return access.Actor{UserID: u.ID, Role: u.Role}
}

func requireCode(t *testing.T, err error, code pkgerrors.Code) {
	t.Helper()
	require.Error(t, err)
	if !pkgerrors.IsCode(err, code) {
		t.Fatalf("expected %s, got %v", code, err)
	}
}

func date(v string) types.Date { return types.MustParseDate(v) }

func (h harness) withTotal(t *testing.T, c *models.Campaign, total string) {
	t.Helper()
	c.Total = decimal.RequireFromString(total)
	require.NoError(t, h.client.DB().Model(&models.Campaign{}).Where("id = ?", c.ID).Update("total", c.Total).Error)
}

func TestCreateAppliesDefaultsAndOwnership(t *testing.T) {
	h := newHarness(t)
	client := h.fx.User("Client", enums.RoleClient)
	ctx := context.Background()

	campaign, err := h.svc.Create(ctx, actorOf(client), CreateInput{
		Name:      "Spring Launch",
		StartDate: date(today),
		EndDate:   date("2026-03-07"),
		Currency:  enums.CurrencyUSD,
		UserID:    999,
	})
	require.NoError(t, err)
	assert.Equal(t, enums.CampaignStatusPending, campaign.Status)
	assert.Equal(t, client.ID, campaign.UserID)
	assert.True(t, campaign.Total.IsZero())

	_, err = h.svc.Create(ctx, actorOf(client), CreateInput{
		Name:      "Spring Launch",
		StartDate: date("2026-03-02"),
		EndDate:   date("2026-03-07"),
		Currency:  enums.CurrencyEUR,
	})
	requireCode(t, err, pkgerrors.CodeConflict)

	_, err = h.svc.Create(ctx, actorOf(client), CreateInput{
		Name:      "Self Confirmed",
		StartDate: date("2026-03-02"),
		EndDate:   date("2026-03-07"),
		Currency:  enums.CurrencyUSD,
		Status:    enums.CampaignStatusConfirmed,
	})
	requireCode(t, err, pkgerrors.CodeForbidden)

	admin := h.fx.User("Admin", enums.RoleAdmin)
	confirmed, err := h.svc.Create(ctx, actorOf(admin), CreateInput{
		Name:      "Admin Confirmed",
		StartDate: date("2026-03-02"),
		EndDate:   date("2026-03-07"),
		Currency:  enums.CurrencyUSD,
		Status:    enums.CampaignStatusConfirmed,
		UserID:    client.ID,
	})
	require.NoError(t, err)
	assert.Equal(t, enums.CampaignStatusConfirmed, confirmed.Status)
}

func TestCreateValidatesFields(t *testing.T) {
	h := newHarness(t)
	admin := h.fx.User("Admin", enums.RoleAdmin)
	provider := h.fx.User("Prov", enums.RoleProvider)
	ctx := context.Background()

	cases := []struct {
		name  string
		input CreateInput
		field string
	}{
		{"past start", CreateInput{Name: "A", StartDate: date("2026-02-28"), EndDate: date("2026-03-05"), Currency: enums.CurrencyUSD, UserID: 1}, "start_date"},
		{"end equals start", CreateInput{Name: "B", StartDate: date("2026-03-05"), EndDate: date("2026-03-05"), Currency: enums.CurrencyUSD, UserID: 1}, "end_date"},
		{"bad currency", CreateInput{Name: "C", StartDate: date("2026-03-05"), EndDate: date("2026-03-06"), Currency: "GBP", UserID: 1}, "currency"},
		{"paid initial status", CreateInput{Name: "D", StartDate: date("2026-03-05"), EndDate: date("2026-03-06"), Currency: enums.CurrencyUSD, Status: enums.CampaignStatusPaid, UserID: 1}, "status"},
		{"admin without owner", CreateInput{Name: "E", StartDate: date("2026-03-05"), EndDate: date("2026-03-06"), Currency: enums.CurrencyUSD}, "user_id"},
		{"owner not a client", CreateInput{Name: "F", StartDate: date("2026-03-05"), EndDate: date("2026-03-06"), Currency: enums.CurrencyUSD, UserID: provider.ID}, "user_id"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := h.svc.Create(ctx, actorOf(admin), tc.input)
			requireCode(t, err, pkgerrors.CodeValidation)
			details, ok := pkgerrors.As(err).Details().(map[string]any)
			require.True(t, ok)
			assert.Contains(t, details, tc.field)
		})
	}

	_, err := h.svc.Create(ctx, actorOf(provider), CreateInput{Name: "G"})
	requireCode(t, err, pkgerrors.CodeForbidden)
}

func TestLateCancellationChargesHalf(t *testing.T) {
	h := newHarness(t)
	client := h.fx.User("Client", enums.RoleClient)
	campaign := h.fx.Campaign(client, "K", "2026-03-05", "2026-03-10", enums.CampaignStatusConfirmed)
	h.withTotal(t, campaign, "1000")
	ctx := context.Background()

	res, err := h.svc.Cancel(ctx, actorOf(client), campaign.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.CampaignStatusCancelled, res.Campaign.Status)
	assert.Equal(t, 4, res.DaysUntilStart)
	assert.Equal(t, 50, res.PenaltyPct)
	assert.True(t, res.PenaltyAmount.Equal(decimal.RequireFromString("500")))

	events, err := h.events.ListByAggregate(ctx, string(enums.AggregateCampaign), campaign.ID)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, enums.EventCampaignCancelled, events[0].EventType)

	_, err = h.svc.Cancel(ctx, actorOf(client), campaign.ID)
	requireCode(t, err, pkgerrors.CodeStateConflict)
}

func TestEarlyCancellationIsFree(t *testing.T) {
	h := newHarness(t)
	admin := h.fx.User("Admin", enums.RoleAdmin)
	client := h.fx.User("Client", enums.RoleClient)
	campaign := h.fx.Campaign(client, "K", "2026-03-20", "2026-03-25", enums.CampaignStatusPaid)
	h.withTotal(t, campaign, "1000")

	res, err := h.svc.Cancel(context.Background(), actorOf(admin), campaign.ID)
	require.NoError(t, err)
	assert.Equal(t, 19, res.DaysUntilStart)
	assert.Equal(t, 0, res.PenaltyPct)
	assert.True(t, res.PenaltyAmount.IsZero())
}

func TestCancellationWithoutBandsUsesWeekRule(t *testing.T) {
	h := newBareHarness(t)
	client := h.fx.User("Client", enums.RoleClient)
	late := h.fx.Campaign(client, "Late", "2026-03-05", "2026-03-10", enums.CampaignStatusConfirmed)
	h.withTotal(t, late, "1000")
	early := h.fx.Campaign(client, "Early", "2026-03-20", "2026-03-25", enums.CampaignStatusConfirmed)
	h.withTotal(t, early, "1000")
	edge := h.fx.Campaign(client, "Edge", "2026-03-08", "2026-03-09", enums.CampaignStatusPending)
	h.withTotal(t, edge, "80")
	ctx := context.Background()

	res, err := h.svc.Cancel(ctx, actorOf(client), late.ID)
	require.NoError(t, err)
	assert.Equal(t, 4, res.DaysUntilStart)
	assert.Equal(t, 50, res.PenaltyPct)
	assert.True(t, res.PenaltyAmount.Equal(decimal.RequireFromString("500")))

	res, err = h.svc.Cancel(ctx, actorOf(client), edge.ID)
	require.NoError(t, err)
	assert.Equal(t, 7, res.DaysUntilStart)
	assert.Equal(t, 50, res.PenaltyPct)

	res, err = h.svc.Cancel(ctx, actorOf(client), early.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, res.PenaltyPct)
	assert.True(t, res.PenaltyAmount.IsZero())
}

func TestCancellationBandOverridesWeekRule(t *testing.T) {
	h := newBareHarness(t)
	h.fx.CancellationPolicy(0, 7, 20)
	client := h.fx.User("Client", enums.RoleClient)
	campaign := h.fx.Campaign(client, "K", "2026-03-05", "2026-03-10", enums.CampaignStatusConfirmed)
	h.withTotal(t, campaign, "1000")

	res, err := h.svc.Cancel(context.Background(), actorOf(client), campaign.ID)
	require.NoError(t, err)
	assert.Equal(t, 20, res.PenaltyPct)
	assert.True(t, res.PenaltyAmount.Equal(decimal.RequireFromString("200")))
}

func TestCancelRefusesStartedOrForeignCampaigns(t *testing.T) {
	h := newHarness(t)
	client := h.fx.User("Client", enums.RoleClient)
	stranger := h.fx.User("Stranger", enums.RoleClient)
	startsToday := h.fx.Campaign(client, "Today", today, "2026-03-10", enums.CampaignStatusPending)
	active := h.fx.Campaign(client, "Active", "2026-03-10", "2026-03-12", enums.CampaignStatusActive)
	future := h.fx.Campaign(client, "Future", "2026-03-10", "2026-03-12", enums.CampaignStatusPending)
	ctx := context.Background()

	_, err := h.svc.Cancel(ctx, actorOf(client), startsToday.ID)
	requireCode(t, err, pkgerrors.CodeStateConflict)
	_, err = h.svc.Cancel(ctx, actorOf(client), active.ID)
	requireCode(t, err, pkgerrors.CodeStateConflict)
	_, err = h.svc.Cancel(ctx, actorOf(stranger), future.ID)
	requireCode(t, err, pkgerrors.CodeForbidden)
	_, err = h.svc.Cancel(ctx, actorOf(client), 4242)
	requireCode(t, err, pkgerrors.CodeNotFound)
}

func TestUpdateTransitions(t *testing.T) {
	h := newHarness(t)
	admin := h.fx.User("Admin", enums.RoleAdmin)
	client := h.fx.User("Client", enums.RoleClient)
	ctx := context.Background()
	status := func(s enums.CampaignStatus) *enums.CampaignStatus { return &s }

	pending := h.fx.Campaign(client, "Pending", "2026-03-10", "2026-03-12", enums.CampaignStatusPending)
	_, err := h.svc.Update(ctx, actorOf(client), pending.ID, UpdateInput{Status: status(enums.CampaignStatusConfirmed)})
	requireCode(t, err, pkgerrors.CodeForbidden)
	confirmed, err := h.svc.Update(ctx, actorOf(admin), pending.ID, UpdateInput{Status: status(enums.CampaignStatusConfirmed)})
	require.NoError(t, err)
	assert.Equal(t, enums.CampaignStatusConfirmed, confirmed.Status)

	_, err = h.svc.Update(ctx, actorOf(admin), pending.ID, UpdateInput{Status: status(enums.CampaignStatusPaid)})
	requireCode(t, err, pkgerrors.CodeConflict)
	_, err = h.svc.Update(ctx, actorOf(admin), pending.ID, UpdateInput{Status: status(enums.CampaignStatusCancelled)})
	requireCode(t, err, pkgerrors.CodeConflict)
	_, err = h.svc.Update(ctx, actorOf(admin), pending.ID, UpdateInput{Status: status(enums.CampaignStatusFinished)})
	requireCode(t, err, pkgerrors.CodeStateConflict)

	paid := h.fx.Campaign(client, "Paid", "2026-03-10", "2026-03-12", enums.CampaignStatusPaid)
	_, err = h.svc.Update(ctx, actorOf(client), paid.ID, UpdateInput{Status: status(enums.CampaignStatusActive)})
	requireCode(t, err, pkgerrors.CodeForbidden)
	activated, err := h.svc.Update(ctx, actorOf(admin), paid.ID, UpdateInput{Status: status(enums.CampaignStatusActive)})
	require.NoError(t, err)
	assert.Equal(t, enums.CampaignStatusActive, activated.Status)
	finished, err := h.svc.Update(ctx, actorOf(admin), paid.ID, UpdateInput{Status: status(enums.CampaignStatusFinished)})
	require.NoError(t, err)
	assert.Equal(t, enums.CampaignStatusFinished, finished.Status)

	name := "Renamed"
	_, err = h.svc.Update(ctx, actorOf(admin), paid.ID, UpdateInput{Name: &name})
	requireCode(t, err, pkgerrors.CodeStateConflict)

	events, err := h.events.ListByAggregate(ctx, string(enums.AggregateCampaign), paid.ID)
	require.NoError(t, err)
	assert.Len(t, events, 2)
}

func TestUpdateFieldsAndReassignment(t *testing.T) {
	h := newHarness(t)
	admin := h.fx.User("Admin", enums.RoleAdmin)
	client := h.fx.User("Client", enums.RoleClient)
	other := h.fx.User("Other", enums.RoleClient)
	provider := h.fx.User("Prov", enums.RoleProvider)
	campaign := h.fx.Campaign(client, "K", "2026-03-10", "2026-03-12", enums.CampaignStatusPending)
	h.fx.Campaign(client, "Taken", "2026-03-10", "2026-03-12", enums.CampaignStatusPending)
	ctx := context.Background()

	taken := "Taken"
	_, err := h.svc.Update(ctx, actorOf(client), campaign.ID, UpdateInput{Name: &taken})
	requireCode(t, err, pkgerrors.CodeConflict)

	_, err = h.svc.Update(ctx, actorOf(client), campaign.ID, UpdateInput{UserID: &other.ID})
	requireCode(t, err, pkgerrors.CodeForbidden)
	_, err = h.svc.Update(ctx, actorOf(admin), campaign.ID, UpdateInput{UserID: &provider.ID})
	requireCode(t, err, pkgerrors.CodeValidation)

	mxn := enums.CurrencyMXN
	updated, err := h.svc.Update(ctx, actorOf(admin), campaign.ID, UpdateInput{UserID: &other.ID, Currency: &mxn})
	require.NoError(t, err)
	assert.Equal(t, other.ID, updated.UserID)
	assert.Equal(t, enums.CurrencyMXN, updated.Currency)

	stored, err := h.svc.Get(ctx, actorOf(admin), campaign.ID)
	require.NoError(t, err)
	assert.Equal(t, other.ID, stored.UserID)
	assert.Equal(t, "2026-03-10", stored.StartDate.String())
}

func TestDeleteSoftDeletesItems(t *testing.T) {
	h := newHarness(t)
	client := h.fx.User("Client", enums.RoleClient)
	provider := h.fx.User("Prov", enums.RoleProvider)
	media := h.fx.Media(provider, "Billboard", "10")
	pending := h.fx.Campaign(client, "Pending", "2026-03-10", "2026-03-12", enums.CampaignStatusPending)
	item := h.fx.Item(pending, media, "30", enums.ProviderDecisionPending)
	confirmed := h.fx.Campaign(client, "Confirmed", "2026-04-10", "2026-04-12", enums.CampaignStatusConfirmed)
	ctx := context.Background()

	requireCode(t, h.svc.Delete(ctx, actorOf(client), confirmed.ID), pkgerrors.CodeStateConflict)
	require.NoError(t, h.svc.Delete(ctx, actorOf(client), pending.ID))

	_, err := h.svc.Get(ctx, actorOf(client), pending.ID)
	requireCode(t, err, pkgerrors.CodeNotFound)

	var live int64
	require.NoError(t, h.client.DB().Model(&models.CampaignItem{}).Where("id = ?", item.ID).Count(&live).Error)
	assert.Zero(t, live)
	var all int64
	require.NoError(t, h.client.DB().Unscoped().Model(&models.CampaignItem{}).Where("id = ?", item.ID).Count(&all).Error)
	assert.EqualValues(t, 1, all)
}

func TestListIsScopedByRole(t *testing.T) {
	h := newHarness(t)
	admin := h.fx.User("Admin", enums.RoleAdmin)
	provider := h.fx.User("Prov", enums.RoleProvider)
	rival := h.fx.User("Rival", enums.RoleProvider)
	client := h.fx.User("Client", enums.RoleClient)
	other := h.fx.User("Other", enums.RoleClient)
	media := h.fx.Media(provider, "Billboard", "10")

	withItem := h.fx.Campaign(client, "With item", "2026-03-10", "2026-03-12", enums.CampaignStatusPending)
	h.fx.Item(withItem, media, "30", enums.ProviderDecisionPending)
	h.fx.Campaign(client, "Empty", "2026-03-10", "2026-03-12", enums.CampaignStatusPending)
	foreign := h.fx.Campaign(other, "Foreign", "2026-03-10", "2026-03-12", enums.CampaignStatusConfirmed)
	ctx := context.Background()

	page, err := h.svc.List(ctx, actorOf(admin), ListParams{})
	require.NoError(t, err)
	require.Len(t, page.Items, 3)
	assert.Equal(t, foreign.ID, page.Items[0].ID)

	page, err = h.svc.List(ctx, actorOf(client), ListParams{})
	require.NoError(t, err)
	require.Len(t, page.Items, 2)
	for _, c := range page.Items {
		assert.Equal(t, client.ID, c.UserID)
	}

	page, err = h.svc.List(ctx, actorOf(provider), ListParams{})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, withItem.ID, page.Items[0].ID)

	page, err = h.svc.List(ctx, actorOf(rival), ListParams{})
	require.NoError(t, err)
	assert.Empty(t, page.Items)

	page, err = h.svc.List(ctx, actorOf(admin), ListParams{Status: enums.CampaignStatusConfirmed, Params: pagination.Params{PerPage: 1}})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Empty(t, page.NextPageToken)

	_, err = h.svc.Get(ctx, actorOf(rival), withItem.ID)
	requireCode(t, err, pkgerrors.CodeForbidden)
	_, err = h.svc.Get(ctx, actorOf(provider), withItem.ID)
	require.NoError(t, err)

	_, err = h.svc.List(ctx, access.Actor{}, ListParams{})
	requireCode(t, err, pkgerrors.CodeUnauthorized)
}
