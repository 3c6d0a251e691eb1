package repo

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/adspace-backend/pkg/db/dbtest"
	"github.com/angelmondragon/adspace-backend/pkg/db/models"
)

func TestBaseDB_BindsContext(t *testing.T) {
	conn := dbtest.Open(t).DB()
	base := NewBase(conn)

	ctx := context.WithValue(context.Background(), struct{}{}, "value")
	withCtx := base.DB(ctx)
	if withCtx.Statement == nil || withCtx.Statement.Context != ctx {
		t.Fatalf("expected context to flow through, got %v", withCtx.Statement.Context)
	}

	//nolint:staticcheck // nil context is part of the contract
	if base.DB(nil) != conn {
		t.Fatalf("expected nil context to return raw connection")
	}
	if base.WithTx(nil).db != conn {
		t.Fatalf("expected nil tx to keep the connection")
	}
}

func TestGenericHelpers(t *testing.T) {
	client := dbtest.Open(t)
	base := NewBase(client.DB())
	ctx := context.Background()

	var ids []uint64
	for _, pair := range [][2]int{{0, 7}, {8, 14}, {15, 30}} {
		row := models.CancellationPolicy{StartDays: pair[0], EndDays: pair[1], Commission: 10}
		require.NoError(t, client.DB().Create(&row).Error)
		ids = append(ids, row.ID)
	}

	got, err := Find[models.CancellationPolicy](ctx, base, ids[1])
	require.NoError(t, err)
	assert.Equal(t, 8, got.StartDays)

	page, err := Page[models.CancellationPolicy](ctx, base, 0, 2)
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, ids[2], page[0].ID)

	page, err = Page[models.CancellationPolicy](ctx, base, page[1].ID, 2)
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, ids[0], page[0].ID)

	ok, err := Exists[models.CancellationPolicy](ctx, base, "start_days = ?", 15)
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, SoftDelete[models.CancellationPolicy](ctx, base, ids[0]))
	_, err = Find[models.CancellationPolicy](ctx, base, ids[0])
	assert.True(t, errors.Is(err, gorm.ErrRecordNotFound))

	err = client.WithTx(ctx, func(tx *gorm.DB) error {
		locked, err := Lock[models.CancellationPolicy](ctx, base.WithTx(tx), ids[2])
		if err != nil {
			return err
		}
		assert.Equal(t, 30, locked.EndDays)
		return nil
	})
	require.NoError(t, err)
}
