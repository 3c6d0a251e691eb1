// Package payments records client settlement of confirmed campaigns. Funds are
// never captured here; a Success row is the proof of payment.
package payments

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/angelmondragon/adspace-backend/internal/access"
	"github.com/angelmondragon/adspace-backend/pkg/db/models"
	"github.com/angelmondragon/adspace-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/adspace-backend/pkg/errors"
	"github.com/angelmondragon/adspace-backend/pkg/logger"
	"github.com/angelmondragon/adspace-backend/pkg/metrics"
	"github.com/angelmondragon/adspace-backend/pkg/outbox"
	"github.com/angelmondragon/adspace-backend/pkg/outbox/payloads"
	"github.com/angelmondragon/adspace-backend/pkg/pagination"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, events ...outbox.DomainEvent) error
}

// Service records and reads payments.
type Service interface {
	Pay(ctx context.Context, actor access.Actor, campaignID uint64) (*models.Payment, error)
	Get(ctx context.Context, actor access.Actor, id uint64) (*models.Payment, error)
	List(ctx context.Context, actor access.Actor, params ListParams) (pagination.Page[models.Payment], error)
}

// ListParams filters and pages List.
type ListParams struct {
	CampaignID uint64
	pagination.Params
}

type service struct {
	repo    Repository
	tx      txRunner
	outbox  outboxPublisher
	metrics *metrics.Settlement
	logg    *logger.Logger
}

// NewService builds the payment service. metrics and logg may be nil.
func NewService(repo Repository, tx txRunner, outbox outboxPublisher, m *metrics.Settlement, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("payments repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if outbox == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	return &service{repo: repo, tx: tx, outbox: outbox, metrics: m, logg: logg}, nil
}

func (s *service) Pay(ctx context.Context, actor access.Actor, campaignID uint64) (*models.Payment, error) {
	if err := actor.RequireRole(enums.RoleAdmin); err != nil {
		return nil, err
	}
	if campaignID == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "campaign_id is required").
			WithDetails(map[string]any{"campaign_id": "is required"})
	}

	var (
		payment  *models.Payment
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
		switch campaign.Status {
		case enums.CampaignStatusConfirmed:
		case enums.CampaignStatusPaid:
			return pkgerrors.New(pkgerrors.CodeConflict, "campaign already paid")
		default:
			return pkgerrors.New(pkgerrors.CodeConflict, "only Confirmed campaigns can be paid")
		}
		if !campaign.Total.IsPositive() {
			return pkgerrors.New(pkgerrors.CodeConflict, "campaign total must be greater than zero")
		}
		paid, err := repo.HasSuccess(ctx, campaign.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check existing payment")
		}
		if paid {
			return pkgerrors.New(pkgerrors.CodeConflict, "campaign already paid")
		}

		row := &models.Payment{
			CampaignID: campaign.ID,
			Amount:     campaign.Total,
			Status:     enums.PaymentStatusSuccess,
		}
		if err := repo.Create(ctx, row); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create payment")
		}
		if err := repo.MarkCampaignPaid(ctx, campaign.ID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark campaign paid")
		}

		event := outbox.DomainEvent{
			EventType:     enums.EventPaymentRecorded,
			AggregateType: enums.AggregatePayment,
			AggregateID:   row.ID,
			Actor:         &outbox.ActorRef{UserID: actor.UserID, Role: actor.Role.String()},
			Data: payloads.PaymentRecordedEvent{
				PaymentID:  row.ID,
				CampaignID: campaign.ID,
				Amount:     row.Amount,
				Currency:   campaign.Currency,
				Status:     row.Status,
			},
		}
		if err := s.outbox.Emit(ctx, tx, event); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "emit payment recorded")
		}
		payment = row
		currency = campaign.Currency
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.PaymentRecorded(currency.String(), payment.Amount)
	s.metrics.Transition(enums.CampaignStatusConfirmed.String(), enums.CampaignStatusPaid.String())
	logCtx := s.logg.WithFields(ctx, map[string]any{
		"campaign_id": payment.CampaignID,
		"payment_id":  payment.ID,
		"amount":      payment.Amount.String(),
	})
	s.logg.Info(logCtx, "payment.recorded")
	return payment, nil
}

func (s *service) Get(ctx context.Context, actor access.Actor, id uint64) (*models.Payment, error) {
	if err := actor.Authenticated(); err != nil {
		return nil, err
	}
	payment, err := s.repo.Find(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "payment not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load payment")
	}
	visible, err := s.repo.Visible(ctx, access.PaymentScope(actor), id)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check payment visibility")
	}
	if !visible {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "payment is not visible to the caller")
	}
	return payment, nil
}

func (s *service) List(ctx context.Context, actor access.Actor, params ListParams) (pagination.Page[models.Payment], error) {
	var page pagination.Page[models.Payment]
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
	rows, err := s.repo.List(ctx, access.PaymentScope(actor), ListFilter{
		CampaignID: params.CampaignID,
		AfterID:    afterID,
		Limit:      perPage + 1,
	})
	if err != nil {
		return page, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list payments")
	}
	return pagination.KeysetPage(rows, perPage, func(p models.Payment) uint64 { return p.ID }), nil
}
