package auth

import (
	"context"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"gorm.io/gorm"

	"github.com/angelmondragon/adspace-backend/internal/users"
	"github.com/angelmondragon/adspace-backend/pkg/config"
	"github.com/angelmondragon/adspace-backend/pkg/db"
	"github.com/angelmondragon/adspace-backend/pkg/db/models"
	"github.com/angelmondragon/adspace-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/adspace-backend/pkg/errors"
	"github.com/angelmondragon/adspace-backend/pkg/security"
)

var validate = validator.New()

// Registrar creates self-service accounts. Every registered account is a Client.
type Registrar interface {
	Register(ctx context.Context, req RegisterRequest) (*models.User, error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type registrar struct {
	users       *users.Repository
	tx          txRunner
	passwordCfg config.PasswordConfig
}

// NewRegistrar builds the registration flow over the user repository.
func NewRegistrar(repo *users.Repository, tx txRunner, passwordCfg config.PasswordConfig) (Registrar, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "users repository required")
	}
	if tx == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "transaction runner required")
	}
	return &registrar{users: repo, tx: tx, passwordCfg: passwordCfg}, nil
}

func (r *registrar) Register(ctx context.Context, req RegisterRequest) (*models.User, error) {
	req.Name = strings.TrimSpace(req.Name)
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if err := validate.Struct(req); err != nil {
		return nil, validationError(err)
	}
	if err := security.ValidatePasswordStrength(req.Password); err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid registration").
			WithDetails(map[string]any{"password": err.Error()})
	}

	passwordHash, err := security.HashPassword(req.Password, r.passwordCfg)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hash password")
	}

	var user *models.User
	err = r.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := r.users.WithTx(tx)
		taken, err := repo.EmailTaken(ctx, req.Email, 0)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check user email")
		}
		if taken {
			return pkgerrors.New(pkgerrors.CodeConflict, "email already registered")
		}
		user, err = repo.Create(ctx, users.CreateUserDTO{
			Name:         req.Name,
			Email:        req.Email,
			PasswordHash: passwordHash,
			Role:         enums.RoleClient,
		})
		if err != nil {
			if db.IsUniqueViolation(err, "ux_users_email") {
				return pkgerrors.New(pkgerrors.CodeConflict, "email already registered")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create user")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return user, nil
}

func validationError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid registration")
	}
	fields := make(map[string]any, len(verrs))
	for _, fe := range verrs {
		fields[strings.ToLower(fe.Field())] = "failed " + fe.Tag()
	}
	return pkgerrors.New(pkgerrors.CodeValidation, "invalid registration").WithDetails(fields)
}
