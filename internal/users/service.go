package users

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"gorm.io/gorm"

	"github.com/angelmondragon/adspace-backend/internal/access"
	"github.com/angelmondragon/adspace-backend/pkg/config"
	"github.com/angelmondragon/adspace-backend/pkg/db"
	"github.com/angelmondragon/adspace-backend/pkg/db/models"
	"github.com/angelmondragon/adspace-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/adspace-backend/pkg/errors"
	"github.com/angelmondragon/adspace-backend/pkg/pagination"
	"github.com/angelmondragon/adspace-backend/pkg/security"
)

const tempPasswordLength = 12

var validate = validator.New()

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service is the admin surface over user accounts.
type Service interface {
	Create(ctx context.Context, actor access.Actor, input CreateInput) (*CreateResult, error)
	Update(ctx context.Context, actor access.Actor, id uint64, input UpdateInput) (*UserDTO, error)
	Delete(ctx context.Context, actor access.Actor, id uint64) error
	Get(ctx context.Context, actor access.Actor, id uint64) (*UserDTO, error)
	List(ctx context.Context, actor access.Actor, params ListParams) (pagination.Page[UserDTO], error)
}

// CreateInput describes a new account. The password is generated.
type CreateInput struct {
	Name  string     `validate:"required,max=100"`
	Email string     `validate:"required,email,max=255"`
	Role  enums.Role `validate:"required"`
}

// CreateResult returns the temporary password once; it is never stored in clear.
type CreateResult struct {
	User              *UserDTO `json:"user"`
	TemporaryPassword string   `json:"temporary_password"`
}

// UpdateInput carries the fields to change.
type UpdateInput struct {
	Name     *string
	Email    *string
	Role     *enums.Role
	Password *string
}

// ListParams filters and pages List.
type ListParams struct {
	Role enums.Role
	pagination.Params
}

type service struct {
	repo   *Repository
	tx     txRunner
	pwdCfg config.PasswordConfig
}

// NewService builds the user administration service.
func NewService(repo *Repository, tx txRunner, pwdCfg config.PasswordConfig) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("users repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	return &service{repo: repo, tx: tx, pwdCfg: pwdCfg}, nil
}

func (s *service) Create(ctx context.Context, actor access.Actor, input CreateInput) (*CreateResult, error) {
	if err := actor.RequireRole(enums.RoleAdmin); err != nil {
		return nil, err
	}
	input.Name = strings.TrimSpace(input.Name)
	input.Email = strings.ToLower(strings.TrimSpace(input.Email))
	if err := validate.Struct(input); err != nil {
		return nil, validationError(err)
	}
	if !input.Role.IsValid() {
		return nil, invalid("role", "must be Admin, Provider or Client")
	}

	password, err := security.GenerateTempPassword(tempPasswordLength)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "generate password")
	}
	hash, err := security.HashPassword(password, s.pwdCfg)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hash password")
	}

	var user *models.User
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if err := ensureEmailFree(ctx, repo, input.Email, 0); err != nil {
			return err
		}
		user, err = repo.Create(ctx, CreateUserDTO{
			Name:         input.Name,
			Email:        input.Email,
			PasswordHash: hash,
			Role:         input.Role,
		})
		if err != nil {
			return persistError(err, "create user")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &CreateResult{User: FromModel(user), TemporaryPassword: password}, nil
}

func (s *service) Update(ctx context.Context, actor access.Actor, id uint64, input UpdateInput) (*UserDTO, error) {
	if err := actor.RequireRole(enums.RoleAdmin); err != nil {
		return nil, err
	}
	var hash string
	if input.Password != nil {
		if err := security.ValidatePasswordStrength(*input.Password); err != nil {
			return nil, invalid("password", err.Error())
		}
		var err error
		if hash, err = security.HashPassword(*input.Password, s.pwdCfg); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hash password")
		}
	}

	var user *models.User
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		var err error
		if user, err = repo.Lock(ctx, id); err != nil {
			return lookupError(err)
		}
		if input.Name != nil {
			name := strings.TrimSpace(*input.Name)
			if err := validate.Var(name, "required,max=100"); err != nil {
				return invalid("name", "is required and at most 100 characters")
			}
			user.Name = name
		}
		if input.Email != nil {
			email := strings.ToLower(strings.TrimSpace(*input.Email))
			if err := validate.Var(email, "required,email,max=255"); err != nil {
				return invalid("email", "must be a valid email address")
			}
			if err := ensureEmailFree(ctx, repo, email, user.ID); err != nil {
				return err
			}
			user.Email = email
		}
		if input.Role != nil {
			if !input.Role.IsValid() {
				return invalid("role", "must be Admin, Provider or Client")
			}
			if user.ID == actor.UserID && *input.Role != enums.RoleAdmin {
				return pkgerrors.New(pkgerrors.CodeConflict, "admins cannot demote themselves")
			}
			user.Role = *input.Role
		}
		if hash != "" {
			user.PasswordHash = hash
		}
		if err := repo.Save(ctx, user); err != nil {
			return persistError(err, "update user")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return FromModel(user), nil
}

func (s *service) Delete(ctx context.Context, actor access.Actor, id uint64) error {
	if err := actor.RequireRole(enums.RoleAdmin); err != nil {
		return err
	}
	if id == actor.UserID {
		return pkgerrors.New(pkgerrors.CodeConflict, "admins cannot delete themselves")
	}
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if _, err := repo.Lock(ctx, id); err != nil {
			return lookupError(err)
		}
		if err := repo.Delete(ctx, id); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete user")
		}
		return nil
	})
}

func (s *service) Get(ctx context.Context, actor access.Actor, id uint64) (*UserDTO, error) {
	if err := actor.RequireOwnerOrAdmin(id, "user"); err != nil {
		return nil, err
	}
	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, lookupError(err)
	}
	return FromModel(user), nil
}

func (s *service) List(ctx context.Context, actor access.Actor, params ListParams) (pagination.Page[UserDTO], error) {
	var page pagination.Page[UserDTO]
	if err := actor.RequireRole(enums.RoleAdmin); err != nil {
		return page, err
	}
	if params.Role != "" && !params.Role.IsValid() {
		return page, invalid("role", "must be Admin, Provider or Client")
	}
	perPage, err := pagination.NormalizePerPage(params.PerPage)
	if err != nil {
		return page, pkgerrors.Wrap(pkgerrors.CodeValidation, err, err.Error())
	}
	afterID, err := pagination.DecodeKeyset(params.PageToken)
	if err != nil {
		return page, pkgerrors.Wrap(pkgerrors.CodeValidation, err, err.Error())
	}
	rows, err := s.repo.List(ctx, afterID, perPage+1, params.Role.String())
	if err != nil {
		return page, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list users")
	}
	return pagination.KeysetPage(FromModels(rows), perPage, func(u UserDTO) uint64 { return u.ID }), nil
}

func ensureEmailFree(ctx context.Context, repo *Repository, email string, excludeID uint64) error {
	taken, err := repo.EmailTaken(ctx, email, excludeID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check email")
	}
	if taken {
		return pkgerrors.New(pkgerrors.CodeConflict, "email already registered")
	}
	return nil
}

func validationError(err error) error {
	fields := map[string]any{}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		for _, fe := range verrs {
			fields[strings.ToLower(fe.Field())] = fmt.Sprintf("failed %s", fe.Tag())
		}
	}
	return pkgerrors.New(pkgerrors.CodeValidation, "invalid user").WithDetails(fields)
}

func invalid(field, msg string) error {
	return pkgerrors.New(pkgerrors.CodeValidation, "invalid user").WithDetails(map[string]any{field: msg})
}

func persistError(err error, msg string) error {
	if db.IsUniqueViolation(err, "ux_users_email") {
		return pkgerrors.New(pkgerrors.CodeConflict, "email already registered")
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, msg)
}

func lookupError(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load user")
}
