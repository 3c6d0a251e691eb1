// Package providers manages the business profiles that carry a provider's
// commission and banking details.
package providers

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode"

	"gorm.io/gorm"

	"github.com/angelmondragon/adspace-backend/internal/access"
	"github.com/angelmondragon/adspace-backend/pkg/db"
	"github.com/angelmondragon/adspace-backend/pkg/db/models"
	"github.com/angelmondragon/adspace-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/adspace-backend/pkg/errors"
	"github.com/angelmondragon/adspace-backend/pkg/pagination"
)

const clabeLength = 18

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service manages provider profiles. Every operation is admin-only except Get,
// which a provider may call for their own profile.
type Service interface {
	Create(ctx context.Context, actor access.Actor, input Input) (*models.Provider, error)
	Update(ctx context.Context, actor access.Actor, id uint64, input UpdateInput) (*models.Provider, error)
	Delete(ctx context.Context, actor access.Actor, id uint64) error
	Get(ctx context.Context, actor access.Actor, id uint64) (*models.Provider, error)
	List(ctx context.Context, actor access.Actor, params pagination.Params) (pagination.Page[models.Provider], error)
}

// Input is a complete profile.
type Input struct {
	UserID       uint64
	BusinessName string
	TaxID        string
	Commission   int
	BankAccount  string
	Clabe        string
}

// UpdateInput carries the fields to change. The owning user is fixed.
type UpdateInput struct {
	BusinessName *string
	TaxID        *string
	Commission   *int
	BankAccount  *string
	Clabe        *string
}

type service struct {
	repo Repository
	tx   txRunner
}

// NewService builds the provider profile service.
func NewService(repo Repository, tx txRunner) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("providers repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	return &service{repo: repo, tx: tx}, nil
}

func (s *service) Create(ctx context.Context, actor access.Actor, input Input) (*models.Provider, error) {
	if err := actor.RequireRole(enums.RoleAdmin); err != nil {
		return nil, err
	}
	profile := &models.Provider{
		UserID:       input.UserID,
		BusinessName: strings.TrimSpace(input.BusinessName),
		TaxID:        strings.TrimSpace(input.TaxID),
		Commission:   input.Commission,
		BankAccount:  strings.TrimSpace(input.BankAccount),
		Clabe:        strings.TrimSpace(input.Clabe),
	}
	if err := validate(profile); err != nil {
		return nil, err
	}
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		user, err := repo.FindUser(ctx, profile.UserID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return invalid("user_id", "does not exist")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load user")
		}
		if user.Role != enums.RoleProvider {
			return invalid("user_id", "must reference a Provider")
		}
		if err := s.ensureUnique(ctx, repo, profile); err != nil {
			return err
		}
		if err := repo.Create(ctx, profile); err != nil {
			return persistError(err, "create provider")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return profile, nil
}

func (s *service) Update(ctx context.Context, actor access.Actor, id uint64, input UpdateInput) (*models.Provider, error) {
	if err := actor.RequireRole(enums.RoleAdmin); err != nil {
		return nil, err
	}
	var profile *models.Provider
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		var err error
		if profile, err = repo.Lock(ctx, id); err != nil {
			return lookupError(err)
		}
		if input.BusinessName != nil {
			profile.BusinessName = strings.TrimSpace(*input.BusinessName)
		}
		if input.TaxID != nil {
			profile.TaxID = strings.TrimSpace(*input.TaxID)
		}
		if input.Commission != nil {
			profile.Commission = *input.Commission
		}
		if input.BankAccount != nil {
			profile.BankAccount = strings.TrimSpace(*input.BankAccount)
		}
		if input.Clabe != nil {
			profile.Clabe = strings.TrimSpace(*input.Clabe)
		}
		if err := validate(profile); err != nil {
			return err
		}
		if err := s.ensureUnique(ctx, repo, profile); err != nil {
			return err
		}
		if err := repo.Save(ctx, profile); err != nil {
			return persistError(err, "update provider")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return profile, nil
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
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete provider")
		}
		return nil
	})
}

func (s *service) Get(ctx context.Context, actor access.Actor, id uint64) (*models.Provider, error) {
	if err := actor.RequireRole(enums.RoleAdmin, enums.RoleProvider); err != nil {
		return nil, err
	}
	profile, err := s.repo.Find(ctx, id)
	if err != nil {
		return nil, lookupError(err)
	}
	if err := actor.RequireOwnerOrAdmin(profile.UserID, "provider profile"); err != nil {
		return nil, err
	}
	return profile, nil
}

func (s *service) List(ctx context.Context, actor access.Actor, params pagination.Params) (pagination.Page[models.Provider], error) {
	var page pagination.Page[models.Provider]
	if err := actor.RequireRole(enums.RoleAdmin); err != nil {
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
		return page, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list providers")
	}
	return pagination.KeysetPage(rows, perPage, func(p models.Provider) uint64 { return p.ID }), nil
}

func (s *service) ensureUnique(ctx context.Context, repo Repository, profile *models.Provider) error {
	taken, err := repo.UserHasProfile(ctx, profile.UserID, profile.ID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check provider user")
	}
	if taken {
		return pkgerrors.New(pkgerrors.CodeConflict, "user already has a provider profile")
	}
	taken, err = repo.ClabeTaken(ctx, profile.Clabe, profile.ID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check clabe")
	}
	if taken {
		return pkgerrors.New(pkgerrors.CodeConflict, "clabe already registered")
	}
	return nil
}

func validate(p *models.Provider) error {
	fields := map[string]any{}
	if p.UserID == 0 {
		fields["user_id"] = "is required"
	}
	if p.BusinessName == "" || len(p.BusinessName) > 100 {
		fields["business_name"] = "is required and at most 100 characters"
	}
	if p.TaxID == "" || len(p.TaxID) > 100 {
		fields["tax_id"] = "is required and at most 100 characters"
	}
	if p.Commission < 0 || p.Commission > 100 {
		fields["commission"] = "must be between 0 and 100"
	}
	if p.BankAccount == "" || len(p.BankAccount) > clabeLength {
		fields["bank_account"] = fmt.Sprintf("is required and at most %d characters", clabeLength)
	}
	if !isClabe(p.Clabe) {
		fields["clabe"] = fmt.Sprintf("must be %d digits", clabeLength)
	}
	if len(fields) > 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid provider").WithDetails(fields)
	}
	return nil
}

func isClabe(value string) bool {
	if len(value) != clabeLength {
		return false
	}
	for _, r := range value {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}

func invalid(field, msg string) error {
	return pkgerrors.New(pkgerrors.CodeValidation, "invalid provider").WithDetails(map[string]any{field: msg})
}

func persistError(err error, msg string) error {
	switch {
	case db.IsUniqueViolation(err, "ux_providers_clabe"):
		return pkgerrors.New(pkgerrors.CodeConflict, "clabe already registered")
	case db.IsUniqueViolation(err, "ux_providers_user"):
		return pkgerrors.New(pkgerrors.CodeConflict, "user already has a provider profile")
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, msg)
}

func lookupError(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, "provider not found")
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load provider")
}
