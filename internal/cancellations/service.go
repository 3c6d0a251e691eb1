// Package cancellations manages the penalty bands consulted when a campaign
// is cancelled.
package cancellations

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/angelmondragon/adspace-backend/internal/access"
	"github.com/angelmondragon/adspace-backend/pkg/db/models"
	"github.com/angelmondragon/adspace-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/adspace-backend/pkg/errors"
	"github.com/angelmondragon/adspace-backend/pkg/pagination"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service manages cancellation policies.
type Service interface {
	Create(ctx context.Context, actor access.Actor, input Input) (*models.CancellationPolicy, error)
	Update(ctx context.Context, actor access.Actor, id uint64, input UpdateInput) (*models.CancellationPolicy, error)
	Delete(ctx context.Context, actor access.Actor, id uint64) error
	Get(ctx context.Context, actor access.Actor, id uint64) (*models.CancellationPolicy, error)
	List(ctx context.Context, actor access.Actor, params pagination.Params) (pagination.Page[models.CancellationPolicy], error)
}

// Input is a band of days before start and the penalty percent it carries.
type Input struct {
	StartDays  int
	EndDays    int
	Commission int
}

// UpdateInput carries the fields to change.
type UpdateInput struct {
	StartDays  *int
	EndDays    *int
	Commission *int
}

type service struct {
	repo Repository
	tx   txRunner
}

// NewService builds the cancellation policy service.
func NewService(repo Repository, tx txRunner) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("cancellations repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	return &service{repo: repo, tx: tx}, nil
}

func (s *service) Create(ctx context.Context, actor access.Actor, input Input) (*models.CancellationPolicy, error) {
	if err := actor.RequireRole(enums.RoleAdmin); err != nil {
		return nil, err
	}
	policy := &models.CancellationPolicy{
		StartDays:  input.StartDays,
		EndDays:    input.EndDays,
		Commission: input.Commission,
	}
	if err := validate(policy); err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, policy); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create cancellation policy")
	}
	return policy, nil
}

func (s *service) Update(ctx context.Context, actor access.Actor, id uint64, input UpdateInput) (*models.CancellationPolicy, error) {
	if err := actor.RequireRole(enums.RoleAdmin); err != nil {
		return nil, err
	}
	var policy *models.CancellationPolicy
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		var err error
		if policy, err = repo.Lock(ctx, id); err != nil {
			return lookupError(err)
		}
		if input.StartDays != nil {
			policy.StartDays = *input.StartDays
		}
		if input.EndDays != nil {
			policy.EndDays = *input.EndDays
		}
		if input.Commission != nil {
			policy.Commission = *input.Commission
		}
		if err := validate(policy); err != nil {
			return err
		}
		if err := repo.Save(ctx, policy); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update cancellation policy")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return policy, nil
}

func (s *service) Delete(ctx context.Context, actor access.Actor, id uint64) error {
	if err := actor.RequireRole(enums.RoleAdmin); err != nil {
		return err
	}
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if _, err := repo.Lock(ctx, id); err != nil {
			return lookupError(err)
		}
		if err := repo.Delete(ctx, id); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete cancellation policy")
		}
		return nil
	})
}

func (s *service) Get(ctx context.Context, actor access.Actor, id uint64) (*models.CancellationPolicy, error) {
	if err := actor.RequireRole(enums.RoleAdmin, enums.RoleProvider); err != nil {
		return nil, err
	}
	policy, err := s.repo.Find(ctx, id)
	if err != nil {
		return nil, lookupError(err)
	}
	return policy, nil
}

func (s *service) List(ctx context.Context, actor access.Actor, params pagination.Params) (pagination.Page[models.CancellationPolicy], error) {
	var page pagination.Page[models.CancellationPolicy]
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
		return page, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list cancellation policies")
	}
	return pagination.KeysetPage(rows, perPage, func(p models.CancellationPolicy) uint64 { return p.ID }), nil
}

func validate(p *models.CancellationPolicy) error {
	fields := map[string]any{}
	if p.StartDays < 0 {
		fields["start_days"] = "must be zero or more"
	}
	if p.EndDays < p.StartDays {
		fields["end_days"] = "must not be below start_days"
	}
	if p.Commission < 0 || p.Commission > 100 {
		fields["commission"] = "must be between 0 and 100"
	}
	if len(fields) > 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid cancellation policy").WithDetails(fields)
	}
	return nil
}

func lookupError(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, "cancellation policy not found")
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cancellation policy")
}
