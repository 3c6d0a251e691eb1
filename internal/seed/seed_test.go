package seed

import (
	"context"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/adspace-backend/internal/users"
	"github.com/angelmondragon/adspace-backend/pkg/config"
	"github.com/angelmondragon/adspace-backend/pkg/db/dbtest"
	"github.com/angelmondragon/adspace-backend/pkg/db/models"
	"github.com/angelmondragon/adspace-backend/pkg/enums"
	"github.com/angelmondragon/adspace-backend/pkg/logger"
	"github.com/angelmondragon/adspace-backend/pkg/security"
)

var testPasswordConfig = config.PasswordConfig{
	ArgonMemoryKB:    8,
	ArgonTime:        1,
	ArgonParallelism: 1,
	ArgonSaltLen:     8,
	ArgonKeyLen:      16,
}

func TestRunSeedsOnceAndIsRepeatable(t *testing.T) {
	client := dbtest.Open(t)
	ctx := context.Background()
	logg := logger.New(logger.Options{ServiceName: "seed-test", Output: io.Discard})

	summary, err := Run(ctx, client, client.DB(), testPasswordConfig, logg)
	require.NoError(t, err)
	assert.Equal(t, Summary{Users: 3, Providers: 1, Policies: 1}, summary)

	again, err := Run(ctx, client, client.DB(), testPasswordConfig, logg)
	require.NoError(t, err)
	assert.Equal(t, Summary{}, again)

	repo := users.NewRepository(client.DB())
	prov, err := repo.FindByEmail(ctx, "prov@example.com")
	require.NoError(t, err)
	assert.Equal(t, enums.RoleProvider, prov.Role)
	ok, err := security.VerifyPassword("Prov234", prov.PasswordHash)
	require.NoError(t, err)
	assert.True(t, ok)

	var profile models.Provider
	require.NoError(t, client.DB().Where("user_id = ?", prov.ID).First(&profile).Error)
	assert.Equal(t, 30, profile.Commission)

	var policies []models.CancellationPolicy
	require.NoError(t, client.DB().Find(&policies).Error)
	require.Len(t, policies, 1)
	assert.Equal(t, 7, policies[0].EndDays)
	assert.Equal(t, 50, policies[0].Commission)
}
