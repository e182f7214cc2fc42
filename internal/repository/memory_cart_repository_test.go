package repository_test

import (
	"testing"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/nikolayk812/storefront-cart/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryCart(t *testing.T) {
	ctx := t.Context()
	repo := repository.NewMemoryCart()
	ownerID := gofakeit.UUID()

	loaded, err := repo.Load(ctx, ownerID)
	require.NoError(t, err)
	assert.Empty(t, loaded)

	items := randomLineItems(2)
	require.NoError(t, repo.Save(ctx, ownerID, items))

	// mutating the caller's slice must not leak into storage
	items[0].Quantity = 99

	loaded, err = repo.Load(ctx, ownerID)
	require.NoError(t, err)
	require.Len(t, loaded, 2)
	assert.NotEqual(t, 99, loaded[0].Quantity)

	require.NoError(t, repo.Save(ctx, ownerID, nil))
	loaded, err = repo.Load(ctx, ownerID)
	require.NoError(t, err)
	assert.Empty(t, loaded)

	require.EqualError(t, repo.Save(ctx, "", nil), "ownerID is empty")
}
