// Package campaignitems books media into campaigns, keeps the campaign total in
// step with its items and records provider decisions.
package campaignitems

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"gorm.io/gorm"

	"github.com/angelmondragon/adspace-backend/internal/access"
	"github.com/angelmondragon/adspace-backend/internal/availability"
	"github.com/angelmondragon/adspace-backend/internal/pricing"
	"github.com/angelmondragon/adspace-backend/pkg/db"
	"github.com/angelmondragon/adspace-backend/pkg/db/models"
	"github.com/angelmondragon/adspace-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/adspace-backend/pkg/errors"
	"github.com/angelmondragon/adspace-backend/pkg/logger"
	"github.com/angelmondragon/adspace-backend/pkg/metrics"
	"github.com/angelmondragon/adspace-backend/pkg/outbox"
	"github.com/angelmondragon/adspace-backend/pkg/outbox/payloads"
	"github.com/angelmondragon/adspace-backend/pkg/pagination"
)

const (
	maxRangeLength       = 100
	maxDescriptionLength = 255
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, events ...outbox.DomainEvent) error
}

// Service manages the items of a campaign.
type Service interface {
	Add(ctx context.Context, actor access.Actor, input AddInput) (*AddResult, error)
	Update(ctx context.Context, actor access.Actor, itemID uint64, input UpdateInput) (*models.CampaignItem, error)
	Remove(ctx context.Context, actor access.Actor, itemID uint64) error
	Accept(ctx context.Context, actor access.Actor, itemID uint64) (*models.CampaignItem, error)
	Reject(ctx context.Context, actor access.Actor, itemID uint64, description string) (*models.CampaignItem, error)
	Get(ctx context.Context, actor access.Actor, itemID uint64) (*models.CampaignItem, error)
	List(ctx context.Context, actor access.Actor, params ListParams) (pagination.Page[models.CampaignItem], error)
}

// AddInput books MediaID into CampaignID over the campaign's dates.
type AddInput struct {
	CampaignID uint64
	MediaID    uint64
	Range      string
}

// AddResult is the stored item plus the price breakdown it was captured from.
type AddResult struct {
	Item  *models.CampaignItem `json:"item"`
	Quote pricing.Quote        `json:"pricing"`
}

// UpdateInput changes the free-text range or moves the item to another
// campaign. Nil fields are left untouched.
type UpdateInput struct {
	CampaignID *uint64
	Range      *string
}

// ListParams filters and pages List.
type ListParams struct {
	CampaignID     uint64
	MediaID        uint64
	ProviderStatus enums.ProviderDecision
	pagination.Params
}

type service struct {
	repo    Repository
	tx      txRunner
	pricing *pricing.Engine
	checker *availability.Checker
	outbox  outboxPublisher
	metrics *metrics.Settlement
	logg    *logger.Logger
}

// NewService builds the campaign item service. metrics and logg may be nil.
func NewService(
	repo Repository,
	tx txRunner,
	engine *pricing.Engine,
	checker *availability.Checker,
	outbox outboxPublisher,
	m *metrics.Settlement,
	logg *logger.Logger,
) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("campaign items repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if engine == nil {
		return nil, fmt.Errorf("pricing engine required")
	}
	if checker == nil {
		return nil, fmt.Errorf("availability checker required")
	}
	if outbox == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	return &service{
		repo:    repo,
		tx:      tx,
		pricing: engine,
		checker: checker,
		outbox:  outbox,
		metrics: m,
		logg:    logg,
	}, nil
}

func (s *service) Add(ctx context.Context, actor access.Actor, input AddInput) (*AddResult, error) {
	if err := actor.RequireRole(enums.RoleAdmin, enums.RoleProvider, enums.RoleClient); err != nil {
		return nil, err
	}
	if input.CampaignID == 0 || input.MediaID == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "campaign_id and media_id are required")
	}
	rangeText, err := normalizeRange(input.Range)
	if err != nil {
		return nil, err
	}

	var result AddResult
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		campaign, err := repo.LockCampaign(ctx, input.CampaignID)
		if err != nil {
			return lookupError(err, "campaign")
		}
		if actor.IsClient() && !actor.Owns(campaign.UserID) {
			return pkgerrors.New(pkgerrors.CodeForbidden, "campaign does not belong to the caller")
		}
		if err := requireEditable(campaign); err != nil {
			return err
		}

		// Locking the media row serializes concurrent bookings of the same media.
		media, err := repo.LockMedia(ctx, input.MediaID)
		if err != nil {
			return lookupError(err, "media")
		}
		if actor.IsProvider() && !actor.Owns(media.UserID) {
			return pkgerrors.New(pkgerrors.CodeForbidden, "media does not belong to the caller")
		}
		if !media.Active {
			s.metrics.Conflict("inactive")
			return pkgerrors.New(pkgerrors.CodeConflict, "media is not active")
		}

		dup, err := repo.PairExists(ctx, campaign.ID, media.ID, 0)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check duplicate item")
		}
		if dup {
			s.metrics.Conflict("duplicate")
			return pkgerrors.New(pkgerrors.CodeConflict, "media is already assigned to this campaign")
		}

		if err := s.checker.WithTx(tx).RequireFree(ctx, media.ID, campaign.StartDate, campaign.EndDate, 0); err != nil {
			if pkgerrors.IsCode(err, pkgerrors.CodeConflict) {
				s.metrics.Conflict("unavailable")
			}
			return err
		}

		quote, err := s.pricing.WithTx(tx).QuoteMedia(ctx, media, campaign.StartDate, campaign.EndDate)
		if err != nil {
			return err
		}

		item := &models.CampaignItem{
			CampaignID:     campaign.ID,
			MediaID:        media.ID,
			Range:          rangeText,
			Days:           quote.TotalDays,
			PricePerDay:    quote.FinalPricePerDay,
			Subtotal:       quote.Subtotal,
			ProviderStatus: enums.ProviderDecisionPending,
		}
		if err := repo.CreateItem(ctx, item); err != nil {
			if db.IsUniqueViolation(err, "ux_campaign_items_pair") {
				return pkgerrors.New(pkgerrors.CodeConflict, "media is already assigned to this campaign")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create campaign item")
		}
		if err := repo.SetCampaignTotal(ctx, campaign.ID, campaign.Total.Add(item.Subtotal)); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update campaign total")
		}

		result = AddResult{Item: item, Quote: quote}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.ItemAdded()
	logCtx := s.logg.WithFields(ctx, map[string]any{
		"campaign_id": result.Item.CampaignID,
		"media_id":    result.Item.MediaID,
		"item_id":     result.Item.ID,
		"subtotal":    result.Item.Subtotal.String(),
	})
	s.logg.Info(logCtx, "campaign_item.added")
	return &result, nil
}

func (s *service) Update(ctx context.Context, actor access.Actor, itemID uint64, input UpdateInput) (*models.CampaignItem, error) {
	if err := actor.RequireRole(enums.RoleAdmin, enums.RoleProvider); err != nil {
		return nil, err
	}
	var rangeText *string
	if input.Range != nil {
		normalized, err := normalizeRange(*input.Range)
		if err != nil {
			return nil, err
		}
		rangeText = &normalized
	}

	var updated *models.CampaignItem
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		current, err := repo.FindItem(ctx, itemID)
		if err != nil {
			return lookupError(err, "campaign item")
		}
		sourceID := current.CampaignID
		targetID := sourceID
		if input.CampaignID != nil && *input.CampaignID != 0 {
			targetID = *input.CampaignID
		}

		source, target, err := lockPair(ctx, repo, sourceID, targetID)
		if err != nil {
			return err
		}
		item, err := repo.LockItem(ctx, itemID)
		if err != nil {
			return lookupError(err, "campaign item")
		}
		if item.CampaignID != sourceID {
			return pkgerrors.New(pkgerrors.CodeConflict, "campaign item changed concurrently")
		}
		if err := s.requireMediaOwner(ctx, repo, actor, item.MediaID); err != nil {
			return err
		}
		if err := requireEditable(source); err != nil {
			return err
		}

		if target.ID != source.ID {
			if err := requireEditable(target); err != nil {
				return err
			}
			if !target.StartDate.Equal(source.StartDate) || !target.EndDate.Equal(source.EndDate) {
				return pkgerrors.New(pkgerrors.CodeConflict, "target campaign has a different date range")
			}
			dup, err := repo.PairExists(ctx, target.ID, item.MediaID, item.ID)
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check duplicate item")
			}
			if dup {
				s.metrics.Conflict("duplicate")
				return pkgerrors.New(pkgerrors.CodeConflict, "media is already assigned to the target campaign")
			}
			if err := s.checker.WithTx(tx).RequireFree(ctx, item.MediaID, target.StartDate, target.EndDate, item.ID); err != nil {
				if pkgerrors.IsCode(err, pkgerrors.CodeConflict) {
					s.metrics.Conflict("unavailable")
				}
				return err
			}
			if err := repo.SetCampaignTotal(ctx, source.ID, source.Total.Sub(item.Subtotal)); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update source campaign total")
			}
			if err := repo.SetCampaignTotal(ctx, target.ID, target.Total.Add(item.Subtotal)); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update target campaign total")
			}
			item.CampaignID = target.ID
		}
		if rangeText != nil {
			item.Range = *rangeText
		}

		if err := repo.SaveItem(ctx, item); err != nil {
			if db.IsUniqueViolation(err, "ux_campaign_items_pair") {
				return pkgerrors.New(pkgerrors.CodeConflict, "media is already assigned to the target campaign")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update campaign item")
		}
		updated = item
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (s *service) Remove(ctx context.Context, actor access.Actor, itemID uint64) error {
	if err := actor.RequireRole(enums.RoleAdmin, enums.RoleProvider, enums.RoleClient); err != nil {
		return err
	}

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		current, err := repo.FindItem(ctx, itemID)
		if err != nil {
			return lookupError(err, "campaign item")
		}
		campaign, err := repo.LockCampaign(ctx, current.CampaignID)
		if err != nil {
			return lookupError(err, "campaign")
		}
		item, err := repo.LockItem(ctx, itemID)
		if err != nil {
			return lookupError(err, "campaign item")
		}

		switch {
		case actor.IsClient():
			if !actor.Owns(campaign.UserID) {
				return pkgerrors.New(pkgerrors.CodeForbidden, "campaign does not belong to the caller")
			}
		case actor.IsProvider():
			if err := s.requireMediaOwner(ctx, repo, actor, item.MediaID); err != nil {
				return err
			}
		}
		if err := requireEditable(campaign); err != nil {
			return err
		}

		if err := repo.DeleteItem(ctx, item.ID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete campaign item")
		}
		if item.Subtotal.IsPositive() {
			if err := repo.SetCampaignTotal(ctx, campaign.ID, campaign.Total.Sub(item.Subtotal)); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update campaign total")
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.metrics.ItemRemoved()
	return nil
}

func (s *service) Accept(ctx context.Context, actor access.Actor, itemID uint64) (*models.CampaignItem, error) {
	return s.decide(ctx, actor, itemID, enums.ProviderDecisionAccepted, nil)
}

func (s *service) Reject(ctx context.Context, actor access.Actor, itemID uint64, description string) (*models.CampaignItem, error) {
	trimmed := strings.TrimSpace(description)
	if trimmed == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "description is required when rejecting").
			WithDetails(map[string]any{"description": "is required"})
	}
	if utf8.RuneCountInString(trimmed) > maxDescriptionLength {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "description is too long").
			WithDetails(map[string]any{"description": fmt.Sprintf("must be at most %d characters", maxDescriptionLength)})
	}
	return s.decide(ctx, actor, itemID, enums.ProviderDecisionRejected, &trimmed)
}

func (s *service) decide(ctx context.Context, actor access.Actor, itemID uint64, decision enums.ProviderDecision, description *string) (*models.CampaignItem, error) {
	if err := actor.RequireRole(enums.RoleProvider); err != nil {
		return nil, err
	}

	var decided *models.CampaignItem
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		current, err := repo.FindItem(ctx, itemID)
		if err != nil {
			return lookupError(err, "campaign item")
		}
		campaign, err := repo.LockCampaign(ctx, current.CampaignID)
		if err != nil {
			return lookupError(err, "campaign")
		}
		item, err := repo.LockItem(ctx, itemID)
		if err != nil {
			return lookupError(err, "campaign item")
		}
		if err := s.requireMediaOwner(ctx, repo, actor, item.MediaID); err != nil {
			return err
		}
		if err := requireEditable(campaign); err != nil {
			return err
		}

		item.ProviderStatus = decision
		item.Description = description
		if err := repo.SaveItem(ctx, item); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update campaign item decision")
		}

		event := outbox.DomainEvent{
			EventType:     enums.EventItemDecided,
			AggregateType: enums.AggregateCampaignItem,
			AggregateID:   item.ID,
			Actor:         &outbox.ActorRef{UserID: actor.UserID, Role: actor.Role.String()},
			Data: payloads.CampaignItemDecidedEvent{
				ItemID:         item.ID,
				CampaignID:     item.CampaignID,
				MediaID:        item.MediaID,
				ProviderUserID: actor.UserID,
				Decision:       decision,
				Description:    description,
			},
		}
		if err := s.outbox.Emit(ctx, tx, event); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "emit item decision")
		}
		decided = item
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.metrics.ItemDecided(decision.String())
	return decided, nil
}

func (s *service) Get(ctx context.Context, actor access.Actor, itemID uint64) (*models.CampaignItem, error) {
	if err := actor.Authenticated(); err != nil {
		return nil, err
	}
	item, err := s.repo.FindItem(ctx, itemID)
	if err != nil {
		return nil, lookupError(err, "campaign item")
	}
	visible, err := s.repo.Visible(ctx, access.ItemScope(actor), itemID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check campaign item visibility")
	}
	if !visible {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "campaign item is not visible to the caller")
	}
	return item, nil
}

func (s *service) List(ctx context.Context, actor access.Actor, params ListParams) (pagination.Page[models.CampaignItem], error) {
	var page pagination.Page[models.CampaignItem]
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
	if params.ProviderStatus != "" && !params.ProviderStatus.IsValid() {
		return page, pkgerrors.New(pkgerrors.CodeValidation, "invalid provider_status")
	}

	rows, err := s.repo.List(ctx, access.ItemScope(actor), ListFilter{
		CampaignID:     params.CampaignID,
		MediaID:        params.MediaID,
		ProviderStatus: params.ProviderStatus,
		AfterID:        afterID,
		Limit:          perPage + 1,
	})
	if err != nil {
		return page, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list campaign items")
	}
	return pagination.KeysetPage(rows, perPage, func(item models.CampaignItem) uint64 { return item.ID }), nil
}

func (s *service) requireMediaOwner(ctx context.Context, repo Repository, actor access.Actor, mediaID uint64) error {
	if !actor.IsProvider() {
		return nil
	}
	owner, err := repo.MediaOwner(ctx, mediaID)
	if err != nil {
		return lookupError(err, "media")
	}
	if !actor.Owns(owner) {
		return pkgerrors.New(pkgerrors.CodeForbidden, "media does not belong to the caller")
	}
	return nil
}

// lockPair locks both campaigns in id order so two moves in opposite
// directions cannot deadlock.
func lockPair(ctx context.Context, repo Repository, sourceID, targetID uint64) (*models.Campaign, *models.Campaign, error) {
	if sourceID == targetID {
		source, err := repo.LockCampaign(ctx, sourceID)
		if err != nil {
			return nil, nil, lookupError(err, "campaign")
		}
		return source, source, nil
	}
	firstID, secondID := sourceID, targetID
	if firstID > secondID {
		firstID, secondID = secondID, firstID
	}
	first, err := repo.LockCampaign(ctx, firstID)
	if err != nil {
		return nil, nil, lookupError(err, "campaign")
	}
	second, err := repo.LockCampaign(ctx, secondID)
	if err != nil {
		return nil, nil, lookupError(err, "campaign")
	}
	if first.ID == sourceID {
		return first, second, nil
	}
	return second, first, nil
}

func requireEditable(campaign *models.Campaign) error {
	switch campaign.Status {
	case enums.CampaignStatusPending, enums.CampaignStatusConfirmed:
		return nil
	}
	return pkgerrors.New(pkgerrors.CodeStateConflict, "campaign items cannot change once the campaign is "+campaign.Status.String())
}

func normalizeRange(value string) (string, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "range is required").
			WithDetails(map[string]any{"range": "is required"})
	}
	if utf8.RuneCountInString(trimmed) > maxRangeLength {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "range is too long").
			WithDetails(map[string]any{"range": fmt.Sprintf("must be at most %d characters", maxRangeLength)})
	}
	return trimmed, nil
}

func lookupError(err error, what string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, what+" not found")
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load "+what)
}
