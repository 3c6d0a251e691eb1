// Package campaigns owns the campaign lifecycle: creation, admin-driven state
// moves, cancellation with its penalty, and role-scoped reads.
package campaigns

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/adspace-backend/internal/access"
	"github.com/angelmondragon/adspace-backend/internal/pricing"
	"github.com/angelmondragon/adspace-backend/pkg/clock"
	"github.com/angelmondragon/adspace-backend/pkg/db"
	"github.com/angelmondragon/adspace-backend/pkg/db/models"
	"github.com/angelmondragon/adspace-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/adspace-backend/pkg/errors"
	"github.com/angelmondragon/adspace-backend/pkg/logger"
	"github.com/angelmondragon/adspace-backend/pkg/metrics"
	"github.com/angelmondragon/adspace-backend/pkg/outbox"
	"github.com/angelmondragon/adspace-backend/pkg/outbox/payloads"
	"github.com/angelmondragon/adspace-backend/pkg/pagination"
	"github.com/angelmondragon/adspace-backend/pkg/types"
)

const maxNameLength = 100

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, events ...outbox.DomainEvent) error
}

// Service manages campaigns.
type Service interface {
	Create(ctx context.Context, actor access.Actor, input CreateInput) (*models.Campaign, error)
	Update(ctx context.Context, actor access.Actor, id uint64, input UpdateInput) (*models.Campaign, error)
	Cancel(ctx context.Context, actor access.Actor, id uint64) (*CancelResult, error)
	Delete(ctx context.Context, actor access.Actor, id uint64) error
	Get(ctx context.Context, actor access.Actor, id uint64) (*models.Campaign, error)
	List(ctx context.Context, actor access.Actor, params ListParams) (pagination.Page[models.Campaign], error)
}

// CreateInput carries the fields a campaign is created with. Status defaults
// to Pending; UserID is honoured for admins only.
type CreateInput struct {
	Name      string
	StartDate types.Date
	EndDate   types.Date
	Currency  enums.Currency
	Status    enums.CampaignStatus
	UserID    uint64
}

// UpdateInput lists the mutable fields. Dates cannot change after creation.
type UpdateInput struct {
	Name     *string
	Currency *enums.Currency
	Status   *enums.CampaignStatus
	UserID   *uint64
}

// CancelResult reports the penalty owed for a cancellation. The penalty is
// informational; no payment is adjusted.
type CancelResult struct {
	Campaign       *models.Campaign `json:"campaign"`
	DaysUntilStart int              `json:"days_until_start"`
	PenaltyPct     int              `json:"penalty_pct"`
	PenaltyAmount  decimal.Decimal  `json:"penalty_amount"`
}

// ListParams filters and pages List.
type ListParams struct {
	Status enums.CampaignStatus
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

// NewService builds the campaign service. metrics and logg may be nil.
func NewService(repo Repository, tx txRunner, clk clock.Clock, outbox outboxPublisher, m *metrics.Settlement, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("campaigns repository required")
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

func (s *service) Create(ctx context.Context, actor access.Actor, input CreateInput) (*models.Campaign, error) {
	if err := actor.RequireRole(enums.RoleAdmin, enums.RoleClient); err != nil {
		return nil, err
	}

	name, err := normalizeName(input.Name)
	if err != nil {
		return nil, err
	}
	fields := map[string]any{}
	today := s.clock.Today()
	switch {
	case input.StartDate.IsZero():
		fields["start_date"] = "is required"
	case input.StartDate.Before(today):
		fields["start_date"] = "must be today or later"
	}
	switch {
	case input.EndDate.IsZero():
		fields["end_date"] = "is required"
	case !input.StartDate.IsZero() && !input.EndDate.After(input.StartDate):
		fields["end_date"] = "must be after start_date"
	}
	if !input.Currency.IsValid() {
		fields["currency"] = "must be one of USD, EUR, COP, MXN, ARS"
	}
	status := input.Status
	if status == "" {
		status = enums.CampaignStatusPending
	}
	if status != enums.CampaignStatusPending && status != enums.CampaignStatusConfirmed {
		fields["status"] = "must be Pending or Confirmed"
	}
	ownerID := actor.UserID
	if actor.IsAdmin() {
		ownerID = input.UserID
		if ownerID == 0 {
			fields["user_id"] = "is required"
		}
	}
	if len(fields) > 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid campaign").WithDetails(fields)
	}
	if status != enums.CampaignStatusPending && !actor.IsAdmin() {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "only admins can create a confirmed campaign")
	}

	campaign := &models.Campaign{
		Name:      name,
		StartDate: input.StartDate,
		EndDate:   input.EndDate,
		Total:     decimal.Zero,
		Currency:  input.Currency,
		Status:    status,
		UserID:    ownerID,
	}
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if actor.IsAdmin() {
			if err := requireClient(ctx, repo, ownerID); err != nil {
				return err
			}
		}
		taken, err := repo.NameTaken(ctx, name, 0)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check campaign name")
		}
		if taken {
			return nameConflict()
		}
		if err := repo.Create(ctx, campaign); err != nil {
			if db.IsUniqueViolation(err, "ux_campaigns_name") {
				return nameConflict()
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create campaign")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return campaign, nil
}

func (s *service) Update(ctx context.Context, actor access.Actor, id uint64, input UpdateInput) (*models.Campaign, error) {
	if err := actor.RequireRole(enums.RoleAdmin, enums.RoleClient); err != nil {
		return nil, err
	}
	if input.UserID != nil && !actor.IsAdmin() {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "only admins can reassign a campaign")
	}
	if input.Currency != nil && !input.Currency.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid campaign").
			WithDetails(map[string]any{"currency": "must be one of USD, EUR, COP, MXN, ARS"})
	}
	if input.Status != nil && !input.Status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid campaign").
			WithDetails(map[string]any{"status": "unknown status"})
	}
	var name string
	if input.Name != nil {
		normalized, err := normalizeName(*input.Name)
		if err != nil {
			return nil, err
		}
		name = normalized
	}

	var (
		updated *models.Campaign
		moved   bool
		from    enums.CampaignStatus
	)
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		campaign, err := repo.Lock(ctx, id)
		if err != nil {
			return lookupError(err)
		}
		if !actor.IsAdmin() && !actor.Owns(campaign.UserID) {
			return pkgerrors.New(pkgerrors.CodeForbidden, "campaign does not belong to the caller")
		}
		if campaign.Status.IsTerminal() {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "campaign is "+campaign.Status.String())
		}

		fields := map[string]any{}
		if input.Name != nil && name != campaign.Name {
			taken, err := repo.NameTaken(ctx, name, campaign.ID)
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check campaign name")
			}
			if taken {
				return nameConflict()
			}
			fields["name"] = name
			campaign.Name = name
		}
		if input.Currency != nil && *input.Currency != campaign.Currency {
			fields["currency"] = *input.Currency
			campaign.Currency = *input.Currency
		}
		if input.UserID != nil && *input.UserID != campaign.UserID {
			if err := requireClient(ctx, repo, *input.UserID); err != nil {
				return err
			}
			fields["user_id"] = *input.UserID
			campaign.UserID = *input.UserID
		}
		if input.Status != nil && *input.Status != campaign.Status {
			if err := checkTransition(actor, campaign.Status, *input.Status); err != nil {
				return err
			}
			from = campaign.Status
			moved = true
			fields["status"] = *input.Status
			campaign.Status = *input.Status
		}

		if err := repo.Update(ctx, campaign.ID, fields); err != nil {
			if db.IsUniqueViolation(err, "ux_campaigns_name") {
				return nameConflict()
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update campaign")
		}
		if moved {
			event := outbox.DomainEvent{
				EventType:     enums.EventCampaignStateChange,
				AggregateType: enums.AggregateCampaign,
				AggregateID:   campaign.ID,
				Actor:         &outbox.ActorRef{UserID: actor.UserID, Role: actor.Role.String()},
				Data: payloads.CampaignStateChangedEvent{
					CampaignID: campaign.ID,
					From:       from,
					To:         campaign.Status,
				},
			}
			if err := s.outbox.Emit(ctx, tx, event); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "emit campaign state change")
			}
		}
		updated = campaign
		return nil
	})
	if err != nil {
		return nil, err
	}
	if moved {
		s.metrics.Transition(from.String(), updated.Status.String())
	}
	return updated, nil
}

func (s *service) Cancel(ctx context.Context, actor access.Actor, id uint64) (*CancelResult, error) {
	if err := actor.RequireRole(enums.RoleAdmin, enums.RoleClient); err != nil {
		return nil, err
	}

	var result CancelResult
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		campaign, err := repo.Lock(ctx, id)
		if err != nil {
			return lookupError(err)
		}
		if !actor.IsAdmin() && !actor.Owns(campaign.UserID) {
			return pkgerrors.New(pkgerrors.CodeForbidden, "campaign does not belong to the caller")
		}
		if !campaign.Status.Cancellable() {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "a "+campaign.Status.String()+" campaign cannot be cancelled")
		}
		today := s.clock.Today()
		if !campaign.StartDate.After(today) {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "campaign has already started")
		}

		days := campaign.StartDate.DaysSince(today)
		policy, err := repo.MatchPolicy(ctx, days)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cancellation policy")
		}
		pct := fallbackPenaltyPct(days)
		if policy != nil {
			pct = policy.Commission
		}
		penalty := pricing.Percent(campaign.Total, pct)
		previous := campaign.Status

		if err := repo.Update(ctx, campaign.ID, map[string]any{"status": enums.CampaignStatusCancelled}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "cancel campaign")
		}
		campaign.Status = enums.CampaignStatusCancelled

		event := outbox.DomainEvent{
			EventType:     enums.EventCampaignCancelled,
			AggregateType: enums.AggregateCampaign,
			AggregateID:   campaign.ID,
			Actor:         &outbox.ActorRef{UserID: actor.UserID, Role: actor.Role.String()},
			Data: payloads.CampaignCancelledEvent{
				CampaignID:     campaign.ID,
				ClientUserID:   campaign.UserID,
				PreviousStatus: previous,
				DaysUntilStart: days,
				Total:          campaign.Total,
				PenaltyPct:     pct,
				PenaltyAmount:  penalty,
				Currency:       campaign.Currency,
			},
		}
		if err := s.outbox.Emit(ctx, tx, event); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "emit campaign cancelled")
		}

		result = CancelResult{
			Campaign:       campaign,
			DaysUntilStart: days,
			PenaltyPct:     pct,
			PenaltyAmount:  penalty,
		}
		s.metrics.Transition(previous.String(), enums.CampaignStatusCancelled.String())
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.Cancelled(result.Campaign.Currency.String(), result.PenaltyAmount)
	logCtx := s.logg.WithFields(ctx, map[string]any{
		"campaign_id":    result.Campaign.ID,
		"days_to_start":  result.DaysUntilStart,
		"penalty_pct":    result.PenaltyPct,
		"penalty_amount": result.PenaltyAmount.String(),
	})
	s.logg.Info(logCtx, "campaign.cancelled")
	return &result, nil
}

func (s *service) Delete(ctx context.Context, actor access.Actor, id uint64) error {
	if err := actor.RequireRole(enums.RoleAdmin, enums.RoleClient); err != nil {
		return err
	}
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		campaign, err := repo.Lock(ctx, id)
		if err != nil {
			return lookupError(err)
		}
		if !actor.IsAdmin() && !actor.Owns(campaign.UserID) {
			return pkgerrors.New(pkgerrors.CodeForbidden, "campaign does not belong to the caller")
		}
		if campaign.Status != enums.CampaignStatusPending && campaign.Status != enums.CampaignStatusCancelled {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "only Pending or Cancelled campaigns can be deleted")
		}
		if err := repo.DeleteWithItems(ctx, campaign.ID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete campaign")
		}
		return nil
	})
}

func (s *service) Get(ctx context.Context, actor access.Actor, id uint64) (*models.Campaign, error) {
	if err := actor.Authenticated(); err != nil {
		return nil, err
	}
	campaign, err := s.repo.Find(ctx, id)
	if err != nil {
		return nil, lookupError(err)
	}
	visible, err := s.repo.Visible(ctx, access.CampaignScope(actor), id)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check campaign visibility")
	}
	if !visible {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "campaign is not visible to the caller")
	}
	return campaign, nil
}

func (s *service) List(ctx context.Context, actor access.Actor, params ListParams) (pagination.Page[models.Campaign], error) {
	var page pagination.Page[models.Campaign]
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
	rows, err := s.repo.List(ctx, access.CampaignScope(actor), ListFilter{
		Status:  params.Status,
		AfterID: afterID,
		Limit:   perPage + 1,
	})
	if err != nil {
		return page, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list campaigns")
	}
	return pagination.KeysetPage(rows, perPage, func(c models.Campaign) uint64 { return c.ID }), nil
}

// Without a matching band a cancellation inside the last week costs half the
// total and anything earlier is free.
const (
	fallbackPenaltyDays = 7
	fallbackPenaltyRate = 50
)

func fallbackPenaltyPct(daysUntilStart int) int {
	if daysUntilStart <= fallbackPenaltyDays {
		return fallbackPenaltyRate
	}
	return 0
}

// checkTransition allows the moves reachable through update. Paid and
// Cancelled have their own operations.
func checkTransition(actor access.Actor, from, to enums.CampaignStatus) error {
	switch to {
	case enums.CampaignStatusPaid:
		return pkgerrors.New(pkgerrors.CodeConflict, "campaigns become Paid only by recording a payment")
	case enums.CampaignStatusCancelled:
		return pkgerrors.New(pkgerrors.CodeConflict, "use the cancel operation to cancel a campaign")
	}
	switch {
	case from == enums.CampaignStatusPending && to == enums.CampaignStatusConfirmed:
		if !actor.IsAdmin() {
			return pkgerrors.New(pkgerrors.CodeForbidden, "only admins can confirm a campaign")
		}
		return nil
	case from == enums.CampaignStatusPaid && to == enums.CampaignStatusActive,
		from == enums.CampaignStatusActive && to == enums.CampaignStatusFinished:
		if !actor.IsAdmin() {
			return pkgerrors.New(pkgerrors.CodeForbidden, "only admins can activate or finish a campaign")
		}
		return nil
	}
	return pkgerrors.New(pkgerrors.CodeStateConflict, fmt.Sprintf("cannot move a campaign from %s to %s", from, to))
}

func requireClient(ctx context.Context, repo Repository, userID uint64) error {
	user, err := repo.FindUser(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeValidation, "invalid campaign").
				WithDetails(map[string]any{"user_id": "does not exist"})
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load campaign owner")
	}
	if user.Role != enums.RoleClient {
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid campaign").
			WithDetails(map[string]any{"user_id": "must reference a Client"})
	}
	return nil
}

func normalizeName(value string) (string, error) {
	name := strings.TrimSpace(value)
	if name == "" {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "invalid campaign").
			WithDetails(map[string]any{"name": "is required"})
	}
	if utf8.RuneCountInString(name) > maxNameLength {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "invalid campaign").
			WithDetails(map[string]any{"name": fmt.Sprintf("must be at most %d characters", maxNameLength)})
	}
	return name, nil
}

func nameConflict() error {
	return pkgerrors.New(pkgerrors.CodeConflict, "campaign name already taken")
}

func lookupError(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, "campaign not found")
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load campaign")
}
