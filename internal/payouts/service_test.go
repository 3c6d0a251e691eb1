package payouts

import (
	"context"
	"testing"
	"time"

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
)

func newService(t *testing.T) (Service, *db.Client, *dbtest.Fixtures) {
	t.Helper()
	client := dbtest.Open(t)
	clk := clock.Fixed{At: time.Date(2026, 3, 15, 10, 0, 0, 0, time.UTC)}
	svc, err := NewService(NewRepository(client.DB()), client, clk, outbox.NewService(outbox.NewRepository(client.DB()), nil), nil, nil)
	require.NoError(t, err)
	return svc, client, dbtest.NewFixtures(t, client)
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

type fanoutFixture struct {
	admin, p1, p2, client *models.User
	campaign              *models.Campaign
}

func seedFanout(t *testing.T, fx *dbtest.Fixtures) fanoutFixture {
	t.Helper()
	admin := fx.User("Admin", enums.RoleAdmin)
	p1 := fx.User("P One", enums.RoleProvider)
	p2 := fx.User("P Two", enums.RoleProvider)
	client := fx.User("Client", enums.RoleClient)
	fx.Provider(p1, 30)
	fx.Provider(p2, 50)
	m1 := fx.Media(p1, "M1", "60")
	m2 := fx.Media(p1, "M2", "20")
	m3 := fx.Media(p2, "M3", "20")
	m4 := fx.Media(p2, "M4", "20")
	house := fx.Media(admin, "House ad", "5")

	campaign := fx.Campaign(client, "K", "2026-03-01", "2026-03-10", enums.CampaignStatusPaid)
	fx.Item(campaign, m1, "600", enums.ProviderDecisionAccepted)
	fx.Item(campaign, m2, "200", enums.ProviderDecisionAccepted)
	fx.Item(campaign, m3, "200", enums.ProviderDecisionAccepted)
	fx.Item(campaign, m4, "300", enums.ProviderDecisionRejected)
	fx.Item(campaign, house, "50", enums.ProviderDecisionAccepted)
	return fanoutFixture{admin: admin, p1: p1, p2: p2, client: client, campaign: campaign}
}

func TestGenerateFansOutByProvider(t *testing.T) {
	svc, client, fx := newService(t)
	f := seedFanout(t, fx)
	ctx := context.Background()

	res, err := svc.Generate(ctx, actorOf(f.admin), f.campaign.ID)
	require.NoError(t, err)
	require.Len(t, res.Payouts, 2)

	byOwner := map[uint64]models.Payout{}
	for _, p := range res.Payouts {
		byOwner[p.UserID] = p
		assert.Equal(t, enums.PayoutStatusPending, p.Status)
		assert.NotZero(t, p.ID)
	}
	assert.True(t, byOwner[f.p1.ID].Amount.Equal(decimal.RequireFromString("240")))
	assert.True(t, byOwner[f.p2.ID].Amount.Equal(decimal.RequireFromString("100")))
	assert.Len(t, res.Lines, 3)

	_, err = svc.Generate(ctx, actorOf(f.admin), f.campaign.ID)
	requireCode(t, err, pkgerrors.CodeConflict)

	var count int64
	require.NoError(t, client.DB().Model(&models.Payout{}).Where("campaign_id = ?", f.campaign.ID).Count(&count).Error)
	assert.EqualValues(t, 2, count)
}

func TestGenerateRequiresPaidCampaignAndAdmin(t *testing.T) {
	svc, _, fx := newService(t)
	admin := fx.User("Admin", enums.RoleAdmin)
	owner := fx.User("Client", enums.RoleClient)
	confirmed := fx.Campaign(owner, "K", "2026-03-01", "2026-03-10", enums.CampaignStatusConfirmed)
	ctx := context.Background()

	_, err := svc.Generate(ctx, actorOf(admin), confirmed.ID)
	requireCode(t, err, pkgerrors.CodeConflict)
	_, err = svc.Generate(ctx, actorOf(owner), confirmed.ID)
	requireCode(t, err, pkgerrors.CodeForbidden)
	_, err = svc.Generate(ctx, actorOf(admin), 404)
	requireCode(t, err, pkgerrors.CodeNotFound)
}

func TestGenerateRoundsGroupSumOnce(t *testing.T) {
	lines := []AcceptedLine{
		{ItemID: 1, Subtotal: decimal.RequireFromString("0.05"), OwnerUserID: 7, OwnerRole: enums.RoleProvider, Commission: intPtr(50)},
		{ItemID: 2, Subtotal: decimal.RequireFromString("0.05"), OwnerUserID: 7, OwnerRole: enums.RoleProvider, Commission: intPtr(50)},
		{ItemID: 3, Subtotal: decimal.RequireFromString("10"), OwnerUserID: 8, OwnerRole: enums.RoleClient, Commission: intPtr(50)},
	}
	breakdown, totals, err := fanOut(lines)
	require.NoError(t, err)
	assert.Len(t, breakdown, 2)
	assert.True(t, totals[7].Equal(decimal.RequireFromString("0.05")), "got %s", totals[7])
	_, skipped := totals[8]
	assert.False(t, skipped)

	_, _, err = fanOut([]AcceptedLine{{ItemID: 4, Subtotal: decimal.NewFromInt(1), OwnerUserID: 9, OwnerRole: enums.RoleProvider}})
	requireCode(t, err, pkgerrors.CodeConflict)
}

func TestMarkPaidAndScopedReads(t *testing.T) {
	svc, _, fx := newService(t)
	f := seedFanout(t, fx)
	ctx := context.Background()

	res, err := svc.Generate(ctx, actorOf(f.admin), f.campaign.ID)
	require.NoError(t, err)
	var p1Payout models.Payout
	for _, p := range res.Payouts {
		if p.UserID == f.p1.ID {
			p1Payout = p
		}
	}

	_, err = svc.MarkPaid(ctx, actorOf(f.p1), p1Payout.ID)
	requireCode(t, err, pkgerrors.CodeForbidden)
	paid, err := svc.MarkPaid(ctx, actorOf(f.admin), p1Payout.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.PayoutStatusPaid, paid.Status)
	require.NotNil(t, paid.PaidAt)
	_, err = svc.MarkPaid(ctx, actorOf(f.admin), p1Payout.ID)
	requireCode(t, err, pkgerrors.CodeConflict)

	page, err := svc.List(ctx, actorOf(f.p1), ListParams{})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, f.p1.ID, page.Items[0].UserID)
	assert.Equal(t, enums.PayoutStatusPaid, page.Items[0].Status)

	page, err = svc.List(ctx, actorOf(f.admin), ListParams{Status: enums.PayoutStatusPending})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, f.p2.ID, page.Items[0].UserID)

	page, err = svc.List(ctx, actorOf(f.client), ListParams{})
	require.NoError(t, err)
	assert.Empty(t, page.Items)

	_, err = svc.Get(ctx, actorOf(f.p2), p1Payout.ID)
	requireCode(t, err, pkgerrors.CodeForbidden)
	got, err := svc.Get(ctx, actorOf(f.p1), p1Payout.ID)
	require.NoError(t, err)
	assert.True(t, got.Amount.Equal(decimal.RequireFromString("240")))
}

func intPtr(v int) *int { return &v }
