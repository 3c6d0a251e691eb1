package users

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/adspace-backend/internal/access"
	"github.com/angelmondragon/adspace-backend/pkg/config"
	"github.com/angelmondragon/adspace-backend/pkg/db/dbtest"
	"github.com/angelmondragon/adspace-backend/pkg/db/models"
	"github.com/angelmondragon/adspace-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/adspace-backend/pkg/errors"
	"github.com/angelmondragon/adspace-backend/pkg/pagination"
	"github.com/angelmondragon/adspace-backend/pkg/security"
)

var testPasswordConfig = config.PasswordConfig{
	ArgonMemoryKB:    8,
	ArgonTime:        1,
	ArgonParallelism: 1,
	ArgonSaltLen:     8,
	ArgonKeyLen:      16,
}

func newService(t *testing.T) (Service, *Repository, *dbtest.Fixtures) {
	t.Helper()
	client := dbtest.Open(t)
	repo := NewRepository(client.DB())
	svc, err := NewService(repo, client, testPasswordConfig)
	require.NoError(t, err)
	return svc, repo, dbtest.NewFixtures(t, client)
}

func requireCode(t *testing.T, err error, code pkgerrors.Code) {
	t.Helper()
	require.Error(t, err)
	if !pkgerrors.IsCode(err, code) {
		t.Fatalf("expected %s, got %v", code, err)
	}
}

func actorOf(u *models.User) access.Actor {
	return access.Actor{UserID: u.ID, Role: u.Role}
}

func TestCreateReturnsTemporaryPasswordOnce(t *testing.T) {
	svc, repo, fx := newService(t)
	ctx := context.Background()
	admin := fx.User("Admin", enums.RoleAdmin)

	res, err := svc.Create(ctx, actorOf(admin), CreateInput{Name: "Dana", Email: " Dana@Example.com ", Role: enums.RoleProvider})
	require.NoError(t, err)
	assert.Equal(t, "dana@example.com", res.User.Email)
	assert.Len(t, res.TemporaryPassword, tempPasswordLength)

	stored, err := repo.FindByEmail(ctx, "DANA@example.com")
	require.NoError(t, err)
	assert.NotEqual(t, res.TemporaryPassword, stored.PasswordHash)
	ok, err := security.VerifyPassword(res.TemporaryPassword, stored.PasswordHash)
	require.NoError(t, err)
	assert.True(t, ok)

	_, err = svc.Create(ctx, actorOf(admin), CreateInput{Name: "Dup", Email: "dana@example.com", Role: enums.RoleClient})
	requireCode(t, err, pkgerrors.CodeConflict)

	_, err = svc.Create(ctx, actorOf(admin), CreateInput{Name: "", Email: "not-an-email", Role: enums.RoleClient})
	requireCode(t, err, pkgerrors.CodeValidation)
	details, _ := pkgerrors.As(err).Details().(map[string]any)
	assert.Contains(t, details, "name")
	assert.Contains(t, details, "email")

	_, err = svc.Create(ctx, actorOf(admin), CreateInput{Name: "X", Email: "x@example.com", Role: "Root"})
	requireCode(t, err, pkgerrors.CodeValidation)
}

func TestUpdateDeleteAndScopedReads(t *testing.T) {
	svc, repo, fx := newService(t)
	ctx := context.Background()
	admin := fx.User("Admin", enums.RoleAdmin)
	prov := fx.User("Prov", enums.RoleProvider)
	fx.Provider(prov, 30)
	buyer := fx.User("Buyer", enums.RoleClient)

	newName := "Provider Two"
	password := "Secret123"
	dto, err := svc.Update(ctx, actorOf(admin), prov.ID, UpdateInput{Name: &newName, Password: &password})
	require.NoError(t, err)
	assert.Equal(t, "Provider Two", dto.Name)
	stored, err := repo.FindByID(ctx, prov.ID)
	require.NoError(t, err)
	ok, err := security.VerifyPassword(password, stored.PasswordHash)
	require.NoError(t, err)
	assert.True(t, ok)

	taken := buyer.Email
	_, err = svc.Update(ctx, actorOf(admin), prov.ID, UpdateInput{Email: &taken})
	requireCode(t, err, pkgerrors.CodeConflict)

	demote := enums.RoleClient
	_, err = svc.Update(ctx, actorOf(admin), admin.ID, UpdateInput{Role: &demote})
	requireCode(t, err, pkgerrors.CodeConflict)

	_, err = svc.Get(ctx, actorOf(buyer), prov.ID)
	requireCode(t, err, pkgerrors.CodeForbidden)
	self, err := svc.Get(ctx, actorOf(buyer), buyer.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.RoleClient, self.Role)

	page, err := svc.List(ctx, actorOf(admin), ListParams{Role: enums.RoleClient, Params: pagination.Params{}})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, buyer.ID, page.Items[0].ID)

	requireCode(t, svc.Delete(ctx, actorOf(admin), admin.ID), pkgerrors.CodeConflict)
	require.NoError(t, svc.Delete(ctx, actorOf(admin), prov.ID))
	_, err = svc.Get(ctx, actorOf(admin), prov.ID)
	requireCode(t, err, pkgerrors.CodeNotFound)
}
