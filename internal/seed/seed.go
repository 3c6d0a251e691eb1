package seed

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/angelmondragon/adspace-backend/internal/cancellations"
	"github.com/angelmondragon/adspace-backend/internal/providers"
	"github.com/angelmondragon/adspace-backend/internal/users"
	"github.com/angelmondragon/adspace-backend/pkg/config"
	"github.com/angelmondragon/adspace-backend/pkg/db/models"
	"github.com/angelmondragon/adspace-backend/pkg/enums"
	"github.com/angelmondragon/adspace-backend/pkg/logger"
	"github.com/angelmondragon/adspace-backend/pkg/security"
)

// Account is a user created by the seed when its email is not taken yet.
type Account struct {
	Name     string
	Email    string
	Password string
	Role     enums.Role
}

var DefaultAccounts = []Account{
	{Name: "Admin", Email: "admin@example.com", Password: "Admin234", Role: enums.RoleAdmin},
	{Name: "Provider", Email: "prov@example.com", Password: "Prov234", Role: enums.RoleProvider},
	{Name: "Client", Email: "client@example.com", Password: "Client234", Role: enums.RoleClient},
}

// DefaultProvider is the profile attached to the seeded Provider account.
var DefaultProvider = models.Provider{
	BusinessName: "Demo Media Co",
	TaxID:        "DEMO010101AAA",
	Commission:   30,
	BankAccount:  "000000000000000001",
	Clabe:        "000000000000000001",
}

// DefaultPolicy charges half the total when a campaign is cancelled within a week of its start.
var DefaultPolicy = models.CancellationPolicy{StartDays: 0, EndDays: 7, Commission: 50}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Summary counts the rows a Run created.
type Summary struct {
	Users     int
	Providers int
	Policies  int
}

// Run creates the default accounts, provider profile and cancellation band.
// Rows that already exist are left alone, so Run can be repeated.
func Run(ctx context.Context, db txRunner, conn *gorm.DB, pw config.PasswordConfig, logg *logger.Logger) (Summary, error) {
	var summary Summary
	userRepo := users.NewRepository(conn)
	providerRepo := providers.NewRepository(conn)
	policyRepo := cancellations.NewRepository(conn)

	err := db.WithTx(ctx, func(tx *gorm.DB) error {
		summary = Summary{}
		txUsers := userRepo.WithTx(tx)
		for _, account := range DefaultAccounts {
			user, created, err := ensureUser(ctx, txUsers, account, pw)
			if err != nil {
				return err
			}
			if created {
				summary.Users++
			}
			if account.Role != enums.RoleProvider {
				continue
			}
			ok, err := ensureProvider(ctx, providerRepo.WithTx(tx), user.ID)
			if err != nil {
				return err
			}
			if ok {
				summary.Providers++
			}
		}

		ok, err := ensurePolicy(ctx, policyRepo.WithTx(tx))
		if err != nil {
			return err
		}
		if ok {
			summary.Policies++
		}
		return nil
	})
	if err != nil {
		return Summary{}, err
	}

	logg.Info(logg.WithFields(ctx, map[string]any{
		"users":     summary.Users,
		"providers": summary.Providers,
		"policies":  summary.Policies,
	}), "seed completed")
	return summary, nil
}

func ensureUser(ctx context.Context, repo *users.Repository, account Account, pw config.PasswordConfig) (*models.User, bool, error) {
	existing, err := repo.FindByEmail(ctx, account.Email)
	if err == nil {
		return existing, false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, fmt.Errorf("lookup %s: %w", account.Email, err)
	}
	hash, err := security.HashPassword(account.Password, pw)
	if err != nil {
		return nil, false, fmt.Errorf("hash password for %s: %w", account.Email, err)
	}
	user, err := repo.Create(ctx, users.CreateUserDTO{
		Name:         account.Name,
		Email:        account.Email,
		PasswordHash: hash,
		Role:         account.Role,
	})
	if err != nil {
		return nil, false, fmt.Errorf("create %s: %w", account.Email, err)
	}
	return user, true, nil
}

func ensureProvider(ctx context.Context, repo providers.Repository, userID uint64) (bool, error) {
	taken, err := repo.UserHasProfile(ctx, userID, 0)
	if err != nil {
		return false, err
	}
	if taken {
		return false, nil
	}
	profile := DefaultProvider
	profile.UserID = userID
	if err := repo.Create(ctx, &profile); err != nil {
		return false, fmt.Errorf("create provider profile: %w", err)
	}
	return true, nil
}

func ensurePolicy(ctx context.Context, repo cancellations.Repository) (bool, error) {
	existing, err := repo.List(ctx, 0, 100)
	if err != nil {
		return false, err
	}
	for _, policy := range existing {
		if policy.StartDays == DefaultPolicy.StartDays && policy.EndDays == DefaultPolicy.EndDays {
			return false, nil
		}
	}
	policy := DefaultPolicy
	if err := repo.Create(ctx, &policy); err != nil {
		return false, fmt.Errorf("create cancellation policy: %w", err)
	}
	return true, nil
}
