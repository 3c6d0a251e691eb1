// Package payouts derives what each provider is owed from a paid campaign and
// tracks when the transfer is made.
package payouts

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/adspace-backend/internal/access"
	"github.com/angelmondragon/adspace-backend/internal/pricing"
	"github.com/angelmondragon/adspace-backend/pkg/clock"
	"github.com/angelmondragon/adspace-backend/pkg/db/models"
	"github.com/angelmondragon/adspace-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/adspace-backend/pkg/errors"
	"github.com/angelmondragon/adspace-backend/pkg/logger"
	"github.com/angelmondragon/adspace-backend/pkg/metrics"
	"github.com/angelmondragon/adspace-backend/pkg/outbox"
	"github.com/angelmondragon/adspace-backend/pkg/outbox/payloads"
	"github.com/angelmondragon/adspace-backend/pkg/pagination"
)

var hundred = decimal.NewFromInt(100)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, events ...outbox.DomainEvent) error
}

// Service generates and reads payouts.
type Service interface {
	Generate(ctx context.Context, actor access.Actor, campaignID uint64) (*GenerateResult, error)
	MarkPaid(ctx context.Context, actor access.Actor, id uint64) (*models.Payout, error)
	Get(ctx context.Context, actor access.Actor, id uint64) (*models.Payout, error)
	List(ctx context.Context, actor access.Actor, params ListParams) (pagination.Page[models.Payout], error)
}

// LineBreakdown is one accepted item's contribution to its provider's payout.
type LineBreakdown struct {
	ItemID         uint64          `json:"item_id"`
	MediaID        uint64          `json:"media_id"`
	ProviderUserID uint64          `json:"provider_user_id"`
	Subtotal       decimal.Decimal `json:"subtotal"`
	CommissionPct  int             `json:"commission_pct"`
	Amount         decimal.Decimal `json:"amount"`
}

// GenerateResult holds the created payouts and the lines they were built from.
type GenerateResult struct {
	CampaignID uint64          `json:"campaign_id"`
	Payouts    []models.Payout `json:"payouts"`
	Lines      []LineBreakdown `json:"lines"`
}

// ListParams filters and pages List.
type ListParams struct {
	CampaignID uint64
	Status     enums.PayoutStatus
	pagination.Params
}

type service struct {
	repo    Repository
	tx      txRunner
	clock   clock.Clock
	outbox  outboxPublisher
	metrics *metrics.Settlement
	logg    *logger.Logger
}

// NewService builds the payout service. metrics and logg may be nil.
func NewService(repo Repository, tx txRunner, clk clock.Clock, outbox outboxPublisher, m *metrics.Settlement, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("payouts repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if clk == nil {
		return nil, fmt.Errorf("clock required")
	}
	if outbox == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	return &service{repo: repo, tx: tx, clock: clk, outbox: outbox, metrics: m, logg: logg}, nil
}

func (s *service) Generate(ctx context.Context, actor access.Actor, campaignID uint64) (*GenerateResult, error) {
	if err := actor.RequireRole(enums.RoleAdmin); err != nil {
		return nil, err
	}
	if campaignID == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "campaign_id is required").
			WithDetails(map[string]any{"campaign_id": "is required"})
	}

	var (
		result   GenerateResult
		currency enums.Currency
	)
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		campaign, err := repo.LockCampaign(ctx, campaignID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "campaign not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load campaign")
		}
		if campaign.Status != enums.CampaignStatusPaid {
			return pkgerrors.New(pkgerrors.CodeConflict, "payouts require a Paid campaign")
		}
		existing, err := repo.CountForCampaign(ctx, campaign.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check existing payouts")
		}
		if existing > 0 {
			return pkgerrors.New(pkgerrors.CodeConflict, "payouts already generated for this campaign")
		}

		lines, err := repo.AcceptedLines(ctx, campaign.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load accepted items")
		}
		breakdown, totals, err := fanOut(lines)
		if err != nil {
			return err
		}

		owners := make([]uint64, 0, len(totals))
		for owner, amount := range totals {
			if amount.IsPositive() {
				owners = append(owners, owner)
			}
		}
		sort.Slice(owners, func(i, j int) bool { return owners[i] < owners[j] })

		rows := make([]models.Payout, 0, len(owners))
		for _, owner := range owners {
			rows = append(rows, models.Payout{
				CampaignID: campaign.ID,
				UserID:     owner,
				Amount:     totals[owner],
				Status:     enums.PayoutStatusPending,
			})
		}
		if err := repo.CreateMany(ctx, rows); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create payouts")
		}

		eventLines := make([]payloads.PayoutLine, 0, len(rows))
		for _, row := range rows {
			eventLines = append(eventLines, payloads.PayoutLine{
				PayoutID:       row.ID,
				ProviderUserID: row.UserID,
				Amount:         row.Amount,
			})
		}
		event := outbox.DomainEvent{
			EventType:     enums.EventPayoutsGenerated,
			AggregateType: enums.AggregateCampaign,
			AggregateID:   campaign.ID,
			Actor:         &outbox.ActorRef{UserID: actor.UserID, Role: actor.Role.String()},
			Data: payloads.PayoutsGeneratedEvent{
				CampaignID: campaign.ID,
				Currency:   campaign.Currency,
				Payouts:    eventLines,
			},
		}
		if err := s.outbox.Emit(ctx, tx, event); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "emit payouts generated")
		}

		result = GenerateResult{CampaignID: campaign.ID, Payouts: rows, Lines: breakdown}
		currency = campaign.Currency
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.PayoutsGenerated(currency.String(), len(result.Payouts))
	logCtx := s.logg.WithFields(ctx, map[string]any{
		"campaign_id": result.CampaignID,
		"payouts":     len(result.Payouts),
	})
	s.logg.Info(logCtx, "payouts.generated")
	return &result, nil
}

// fanOut groups accepted lines by provider. Per-line shares keep full
// precision; only the group sums are rounded.
func fanOut(lines []AcceptedLine) ([]LineBreakdown, map[uint64]decimal.Decimal, error) {
	breakdown := make([]LineBreakdown, 0, len(lines))
	totals := make(map[uint64]decimal.Decimal)
	for _, line := range lines {
		if line.OwnerRole != enums.RoleProvider {
			continue
		}
		if line.Commission == nil {
			return nil, nil, pkgerrors.New(pkgerrors.CodeConflict,
				fmt.Sprintf("provider %d has no provider profile", line.OwnerUserID))
		}
		share := line.Subtotal.Mul(decimal.NewFromInt(int64(*line.Commission))).Div(hundred)
		totals[line.OwnerUserID] = totals[line.OwnerUserID].Add(share)
		breakdown = append(breakdown, LineBreakdown{
			ItemID:         line.ItemID,
			MediaID:        line.MediaID,
			ProviderUserID: line.OwnerUserID,
			Subtotal:       line.Subtotal,
			CommissionPct:  *line.Commission,
			Amount:         share.Round(pricing.MoneyPlaces),
		})
	}
	for owner, amount := range totals {
		totals[owner] = amount.Round(pricing.MoneyPlaces)
	}
	return breakdown, totals, nil
}

func (s *service) MarkPaid(ctx context.Context, actor access.Actor, id uint64) (*models.Payout, error) {
	if err := actor.RequireRole(enums.RoleAdmin); err != nil {
		return nil, err
	}
	var paid *models.Payout
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		payout, err := repo.Lock(ctx, id)
		if err != nil {
			return lookupError(err)
		}
		if payout.Status != enums.PayoutStatusPending {
			return pkgerrors.New(pkgerrors.CodeConflict, "payout already paid")
		}
		now := s.clock.Now().UTC()
		if err := repo.MarkPaid(ctx, payout.ID, now); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark payout paid")
		}
		payout.Status = enums.PayoutStatusPaid
		payout.PaidAt = &now

		event := outbox.DomainEvent{
			EventType:     enums.EventPayoutPaid,
			AggregateType: enums.AggregatePayout,
			AggregateID:   payout.ID,
			Actor:         &outbox.ActorRef{UserID: actor.UserID, Role: actor.Role.String()},
			Data: payloads.PayoutPaidEvent{
				PayoutID:       payout.ID,
				CampaignID:     payout.CampaignID,
				ProviderUserID: payout.UserID,
				Amount:         payout.Amount,
			},
		}
		if err := s.outbox.Emit(ctx, tx, event); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "emit payout paid")
		}
		paid = payout
		return nil
	})
	if err != nil {
		return nil, err
	}
	return paid, nil
}

func (s *service) Get(ctx context.Context, actor access.Actor, id uint64) (*models.Payout, error) {
	if err := actor.Authenticated(); err != nil {
		return nil, err
	}
	payout, err := s.repo.Find(ctx, id)
	if err != nil {
		return nil, lookupError(err)
	}
	visible, err := s.repo.Visible(ctx, access.PayoutScope(actor), id)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check payout visibility")
	}
	if !visible {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "payout is not visible to the caller")
	}
	return payout, nil
}

func (s *service) List(ctx context.Context, actor access.Actor, params ListParams) (pagination.Page[models.Payout], error) {
	var page pagination.Page[models.Payout]
	if err := actor.Authenticated(); err != nil {
		return page, err
	}
	perPage, err := pagination.NormalizePerPage(params.PerPage)
	if err != nil {
		return page, pkgerrors.Wrap(pkgerrors.CodeValidation, err, err.Error())
	}
	afterID, err := pagination.DecodeKeyset(params.PageToken)
	if err != nil {
		return page, pkgerrors.Wrap(pkgerrors.CodeValidation, err, err.Error())
	}
	if params.Status != "" && !params.Status.IsValid() {
		return page, pkgerrors.New(pkgerrors.CodeValidation, "invalid status filter")
	}
	rows, err := s.repo.List(ctx, access.PayoutScope(actor), ListFilter{
		CampaignID: params.CampaignID,
		Status:     params.Status,
		AfterID:    afterID,
		Limit:      perPage + 1,
	})
	if err != nil {
		return page, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list payouts")
	}
	return pagination.KeysetPage(rows, perPage, func(p models.Payout) uint64 { return p.ID }), nil
}

func lookupError(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, "payout not found")
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load payout")
}
