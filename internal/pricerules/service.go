// Package pricerules manages the percentage discounts that media link to.
package pricerules

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"gorm.io/gorm"

	"github.com/angelmondragon/adspace-backend/internal/access"
	"github.com/angelmondragon/adspace-backend/pkg/db"
	"github.com/angelmondragon/adspace-backend/pkg/db/models"
	"github.com/angelmondragon/adspace-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/adspace-backend/pkg/errors"
	"github.com/angelmondragon/adspace-backend/pkg/pagination"
	"github.com/angelmondragon/adspace-backend/pkg/types"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service manages price rules.
type Service interface {
	Create(ctx context.Context, actor access.Actor, input Input) (*models.PriceRule, error)
	Update(ctx context.Context, actor access.Actor, id uint64, input UpdateInput) (*models.PriceRule, error)
	Delete(ctx context.Context, actor access.Actor, id uint64) error
	Get(ctx context.Context, actor access.Actor, id uint64) (*models.PriceRule, error)
	List(ctx context.Context, actor access.Actor, params pagination.Params) (pagination.Page[models.PriceRule], error)
}

// Input carries a full rule.
type Input struct {
	Name      string
	StartDate types.Date
	EndDate   types.Date
	ValuePct  int
}

// UpdateInput carries the fields to change.
type UpdateInput struct {
	Name      *string
	StartDate *types.Date
	EndDate   *types.Date
	ValuePct  *int
}

type service struct {
	repo Repository
	tx   txRunner
}

// NewService builds the price rule service.
func NewService(repo Repository, tx txRunner) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("price rules repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	return &service{repo: repo, tx: tx}, nil
}

func (s *service) Create(ctx context.Context, actor access.Actor, input Input) (*models.PriceRule, error) {
	if err := actor.RequireRole(enums.RoleAdmin, enums.RoleProvider); err != nil {
		return nil, err
	}
	rule := &models.PriceRule{
		Name:      strings.TrimSpace(input.Name),
		StartDate: input.StartDate,
		EndDate:   input.EndDate,
		ValuePct:  input.ValuePct,
	}
	if err := validate(rule); err != nil {
		return nil, err
	}
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if err := ensureNameFree(ctx, repo, rule.Name, 0); err != nil {
			return err
		}
		if err := repo.Create(ctx, rule); err != nil {
			return persistError(err, "create price rule")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return rule, nil
}

func (s *service) Update(ctx context.Context, actor access.Actor, id uint64, input UpdateInput) (*models.PriceRule, error) {
	if err := actor.RequireRole(enums.RoleAdmin, enums.RoleProvider); err != nil {
		return nil, err
	}
	var rule *models.PriceRule
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		var err error
		rule, err = repo.Lock(ctx, id)
		if err != nil {
			return lookupError(err)
		}
		if input.Name != nil {
			rule.Name = strings.TrimSpace(*input.Name)
		}
		if input.StartDate != nil {
			rule.StartDate = *input.StartDate
		}
		if input.EndDate != nil {
			rule.EndDate = *input.EndDate
		}
		if input.ValuePct != nil {
			rule.ValuePct = *input.ValuePct
		}
		if err := validate(rule); err != nil {
			return err
		}
		if input.Name != nil {
			if err := ensureNameFree(ctx, repo, rule.Name, rule.ID); err != nil {
				return err
			}
		}
		if err := repo.Save(ctx, rule); err != nil {
			return persistError(err, "update price rule")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return rule, nil
}

func (s *service) Delete(ctx context.Context, actor access.Actor, id uint64) error {
	if err := actor.RequireRole(enums.RoleAdmin, enums.RoleProvider); err != nil {
		return err
	}
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if _, err := repo.Lock(ctx, id); err != nil {
			return lookupError(err)
		}
		if err := repo.Delete(ctx, id); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete price rule")
		}
		return nil
	})
}

func (s *service) Get(ctx context.Context, actor access.Actor, id uint64) (*models.PriceRule, error) {
	if err := actor.RequireRole(enums.RoleAdmin, enums.RoleProvider); err != nil {
		return nil, err
	}
	rule, err := s.repo.Find(ctx, id)
	if err != nil {
		return nil, lookupError(err)
	}
	return rule, nil
}

func (s *service) List(ctx context.Context, actor access.Actor, params pagination.Params) (pagination.Page[models.PriceRule], error) {
	var page pagination.Page[models.PriceRule]
	if err := actor.RequireRole(enums.RoleAdmin, enums.RoleProvider); err != nil {
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
	rows, err := s.repo.List(ctx, afterID, perPage+1)
	if err != nil {
		return page, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list price rules")
	}
	return pagination.KeysetPage(rows, perPage, func(r models.PriceRule) uint64 { return r.ID }), nil
}

func validate(rule *models.PriceRule) error {
	fields := map[string]any{}
	switch {
	case rule.Name == "":
		fields["name"] = "is required"
	case utf8.RuneCountInString(rule.Name) > 100:
		fields["name"] = "must be at most 100 characters"
	}
	if rule.StartDate.IsZero() {
		fields["start_date"] = "is required"
	}
	switch {
	case rule.EndDate.IsZero():
		fields["end_date"] = "is required"
	case !rule.StartDate.IsZero() && rule.EndDate.Before(rule.StartDate):
		fields["end_date"] = "must not be before start_date"
	}
	if rule.ValuePct < 0 || rule.ValuePct > 100 {
		fields["value_pct"] = "must be between 0 and 100"
	}
	if len(fields) > 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid price rule").WithDetails(fields)
	}
	return nil
}

func ensureNameFree(ctx context.Context, repo Repository, name string, excludeID uint64) error {
	taken, err := repo.NameTaken(ctx, name, excludeID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check price rule name")
	}
	if taken {
		return pkgerrors.New(pkgerrors.CodeConflict, "price rule name already taken")
	}
	return nil
}

func persistError(err error, msg string) error {
	if db.IsUniqueViolation(err, "ux_price_rules_name") {
		return pkgerrors.New(pkgerrors.CodeConflict, "price rule name already taken")
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, msg)
}

func lookupError(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, "price rule not found")
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load price rule")
}
