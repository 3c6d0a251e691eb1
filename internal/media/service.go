// Package media manages the advertising slots providers rent out, the price
// rules linked to them, and on-demand price checks.
package media

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/adspace-backend/internal/access"
	"github.com/angelmondragon/adspace-backend/pkg/clock"
	"github.com/angelmondragon/adspace-backend/pkg/db/models"
	"github.com/angelmondragon/adspace-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/adspace-backend/pkg/errors"
	"github.com/angelmondragon/adspace-backend/pkg/logger"
	"github.com/angelmondragon/adspace-backend/pkg/pagination"
)

const maxTextLength = 100

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service exposes media management.
type Service interface {
	Create(ctx context.Context, actor access.Actor, input Input) (*Detail, error)
	Update(ctx context.Context, actor access.Actor, id uint64, input UpdateInput) (*Detail, error)
	Delete(ctx context.Context, actor access.Actor, id uint64) error
	Get(ctx context.Context, actor access.Actor, id uint64) (*Detail, error)
	List(ctx context.Context, actor access.Actor, params ListParams) (pagination.Page[models.Media], error)

	Rules(ctx context.Context, actor access.Actor, id uint64) ([]models.PriceRule, error)
	ActiveRules(ctx context.Context, actor access.Actor, id uint64) ([]models.PriceRule, error)
	AttachRule(ctx context.Context, actor access.Actor, id, ruleID uint64) ([]models.PriceRule, error)
	DetachRule(ctx context.Context, actor access.Actor, id, ruleID uint64) ([]models.PriceRule, error)
	SyncRules(ctx context.Context, actor access.Actor, id uint64, ruleIDs []uint64) (*Reconciled, error)

	CalculatePrice(ctx context.Context, actor access.Actor, id uint64, input PriceInput) (*PriceCheck, error)
}

// Detail is a media with its images and linked rules.
type Detail struct {
	models.Media
	Images     []models.MediaImage `json:"images"`
	PriceRules []models.PriceRule  `json:"price_rules"`
}

// Input carries a new media. UserID is read for admins only; providers always
// own what they create. Active defaults to true.
type Input struct {
	Name                 string
	Type                 string
	Location             string
	PeriodLimit          string
	PricePerDay          decimal.Decimal
	Active               *bool
	Status               enums.MediaStatus
	UserID               uint64
	CancellationPolicyID *uint64
	PriceRuleIDs         []uint64
}

// UpdateInput carries the fields to change. A non-nil PriceRuleIDs replaces
// the linked set.
type UpdateInput struct {
	Name                 *string
	Type                 *string
	Location             *string
	PeriodLimit          *string
	PricePerDay          *decimal.Decimal
	Active               *bool
	Status               *enums.MediaStatus
	UserID               *uint64
	CancellationPolicyID *uint64
	PriceRuleIDs         *[]uint64
}

type service struct {
	repo       Repository
	tx         txRunner
	reconciler RuleReconciler
	quoter     quoter
	avail      availabilityChecker
	clock      clock.Clock
	logg       *logger.Logger
}

// NewService builds the media service. logg may be nil.
func NewService(repo Repository, tx txRunner, reconciler RuleReconciler, q quoter, avail availabilityChecker, clk clock.Clock, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("media repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if reconciler == nil {
		return nil, fmt.Errorf("rule reconciler required")
	}
	if q == nil {
		return nil, fmt.Errorf("price quoter required")
	}
	if avail == nil {
		return nil, fmt.Errorf("availability checker required")
	}
	if clk == nil {
		return nil, fmt.Errorf("clock required")
	}
	return &service{repo: repo, tx: tx, reconciler: reconciler, quoter: q, avail: avail, clock: clk, logg: logg}, nil
}

func (s *service) Create(ctx context.Context, actor access.Actor, input Input) (*Detail, error) {
	if err := actor.RequireRole(enums.RoleAdmin, enums.RoleProvider); err != nil {
		return nil, err
	}
	media := &models.Media{
		Name:                 strings.TrimSpace(input.Name),
		Type:                 strings.TrimSpace(input.Type),
		Location:             strings.TrimSpace(input.Location),
		PeriodLimit:          strings.TrimSpace(input.PeriodLimit),
		PricePerDay:          input.PricePerDay,
		Active:               true,
		Status:               input.Status,
		UserID:               actor.UserID,
		CancellationPolicyID: input.CancellationPolicyID,
	}
	if input.Active != nil {
		media.Active = *input.Active
	}
	if media.Status == "" {
		media.Status = enums.MediaStatusAvailable
	}
	if actor.IsAdmin() {
		media.UserID = input.UserID
	}
	if err := validate(media); err != nil {
		return nil, err
	}

	var detail *Detail
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if err := s.checkReferences(ctx, repo, media); err != nil {
			return err
		}
		if err := repo.Create(ctx, media); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create media")
		}
		if _, err := s.reconciler.Reconcile(ctx, tx, media.ID, nil, input.PriceRuleIDs); err != nil {
			return err
		}
		var err error
		detail, err = loadDetail(ctx, repo, media)
		return err
	})
	if err != nil {
		return nil, err
	}
	logCtx := s.logg.WithFields(ctx, map[string]any{"media_id": media.ID, "owner_id": media.UserID})
	s.logg.Info(logCtx, "media.created")
	return detail, nil
}

func (s *service) Update(ctx context.Context, actor access.Actor, id uint64, input UpdateInput) (*Detail, error) {
	if err := actor.RequireRole(enums.RoleAdmin, enums.RoleProvider); err != nil {
		return nil, err
	}
	if input.UserID != nil && !actor.IsAdmin() {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "only admins can reassign a media")
	}

	var detail *Detail
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		media, err := repo.Lock(ctx, id)
		if err != nil {
			return lookupError(err)
		}
		if err := actor.RequireOwnerOrAdmin(media.UserID, "media"); err != nil {
			return err
		}
		applyUpdate(media, input)
		if err := validate(media); err != nil {
			return err
		}
		if err := s.checkReferences(ctx, repo, media); err != nil {
			return err
		}
		if err := repo.Save(ctx, media); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update media")
		}
		if input.PriceRuleIDs != nil {
			current, err := repo.LinkedRuleIDs(ctx, media.ID)
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load linked rules")
			}
			if _, err := s.reconciler.Reconcile(ctx, tx, media.ID, current, *input.PriceRuleIDs); err != nil {
				return err
			}
		}
		detail, err = loadDetail(ctx, repo, media)
		return err
	})
	if err != nil {
		return nil, err
	}
	return detail, nil
}

func (s *service) Delete(ctx context.Context, actor access.Actor, id uint64) error {
	if err := actor.RequireRole(enums.RoleAdmin, enums.RoleProvider); err != nil {
		return err
	}
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		media, err := repo.Lock(ctx, id)
		if err != nil {
			return lookupError(err)
		}
		if err := actor.RequireOwnerOrAdmin(media.UserID, "media"); err != nil {
			return err
		}
		booked, err := repo.LiveBookings(ctx, media.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check media bookings")
		}
		if booked > 0 {
			return pkgerrors.New(pkgerrors.CodeConflict, "media is booked by campaigns still in progress")
		}
		if err := repo.Delete(ctx, media.ID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete media")
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.logg.Info(s.logg.WithField(ctx, "media_id", id), "media.deleted")
	return nil
}

func (s *service) Get(ctx context.Context, actor access.Actor, id uint64) (*Detail, error) {
	media, err := s.visible(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	return loadDetail(ctx, s.repo, media)
}

// visible loads a media the actor may read. Missing rows are reported before
// foreign ones.
func (s *service) visible(ctx context.Context, actor access.Actor, id uint64) (*models.Media, error) {
	if err := actor.RequireRole(enums.RoleAdmin, enums.RoleProvider); err != nil {
		return nil, err
	}
	media, err := s.repo.Find(ctx, id)
	if err != nil {
		return nil, lookupError(err)
	}
	ok, err := s.repo.Visible(ctx, access.MediaScope(actor), id)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check media visibility")
	}
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "media does not belong to the caller")
	}
	return media, nil
}

func (s *service) checkReferences(ctx context.Context, repo Repository, media *models.Media) error {
	owner, err := repo.FindUser(ctx, media.UserID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return invalid("user_id", "does not exist")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load media owner")
	}
	if owner.Role != enums.RoleProvider {
		return invalid("user_id", "must reference a Provider")
	}
	if media.CancellationPolicyID != nil {
		ok, err := repo.PolicyExists(ctx, *media.CancellationPolicyID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cancellation policy")
		}
		if !ok {
			return invalid("cancellation_policy_id", "does not exist")
		}
	}
	return nil
}

func applyUpdate(media *models.Media, input UpdateInput) {
	if input.Name != nil {
		media.Name = strings.TrimSpace(*input.Name)
	}
	if input.Type != nil {
		media.Type = strings.TrimSpace(*input.Type)
	}
	if input.Location != nil {
		media.Location = strings.TrimSpace(*input.Location)
	}
	if input.PeriodLimit != nil {
		media.PeriodLimit = strings.TrimSpace(*input.PeriodLimit)
	}
	if input.PricePerDay != nil {
		media.PricePerDay = *input.PricePerDay
	}
	if input.Active != nil {
		media.Active = *input.Active
	}
	if input.Status != nil {
		media.Status = *input.Status
	}
	if input.UserID != nil {
		media.UserID = *input.UserID
	}
	if input.CancellationPolicyID != nil {
		media.CancellationPolicyID = input.CancellationPolicyID
		if *input.CancellationPolicyID == 0 {
			media.CancellationPolicyID = nil
		}
	}
}

func validate(media *models.Media) error {
	fields := map[string]any{}
	required := map[string]string{"name": media.Name, "type": media.Type, "location": media.Location}
	for field, value := range required {
		switch {
		case value == "":
			fields[field] = "is required"
		case utf8.RuneCountInString(value) > maxTextLength:
			fields[field] = fmt.Sprintf("must be at most %d characters", maxTextLength)
		}
	}
	if utf8.RuneCountInString(media.PeriodLimit) > maxTextLength {
		fields["period_limit"] = fmt.Sprintf("must be at most %d characters", maxTextLength)
	}
	if media.PricePerDay.IsNegative() {
		fields["price_per_day"] = "must be zero or more"
	}
	if !media.Status.IsValid() {
		fields["status"] = "must be Available or Busy"
	}
	if media.UserID == 0 {
		fields["user_id"] = "is required"
	}
	if len(fields) > 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid media").WithDetails(fields)
	}
	return nil
}

func loadDetail(ctx context.Context, repo Repository, media *models.Media) (*Detail, error) {
	images, err := repo.Images(ctx, media.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load media images")
	}
	rules, err := repo.LinkedRules(ctx, media.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load price rules")
	}
	if images == nil {
		images = []models.MediaImage{}
	}
	if rules == nil {
		rules = []models.PriceRule{}
	}
	return &Detail{Media: *media, Images: images, PriceRules: rules}, nil
}

func invalid(field, msg string) error {
	return pkgerrors.New(pkgerrors.CodeValidation, "invalid media").WithDetails(map[string]any{field: msg})
}

func lookupError(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, "media not found")
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load media")
}
