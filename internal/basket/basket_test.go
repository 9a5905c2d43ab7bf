package basket

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/omarluq/storefront/internal/catalog"
	"github.com/omarluq/storefront/internal/store"
)

func newService(t *testing.T) (*Service, *store.Database) {
	t.Helper()
	db, err := store.Open(context.Background(), "catalog", "", zerolog.Nop())
	require.NoError(t, err)
	return NewService(store.NewRepository[Basket](db, Table), zerolog.Nop()), db
}

func TestBasketArithmetic(t *testing.T) {
	t.Parallel()
	var b Basket
	b.AddItem(1, 2.5, 2)
	b.AddItem(2, 10, 1)
	b.AddItem(1, 99, 3)

	require.Len(t, b.Items, 2)
	assert.Equal(t, 5, b.Items[0].Quantity)
	assert.InDelta(t, 2.5, b.Items[0].UnitPrice, 0.0001)
	assert.Equal(t, 6, b.Count())
	assert.InDelta(t, 22.5, b.Total(), 0.0001)
}

func TestGetOrCreateReturnsSameBasket(t *testing.T) {
	t.Parallel()
	svc, _ := newService(t)
	ctx := context.Background()

	a, err := svc.GetOrCreate(ctx, "alice")
	require.NoError(t, err)
	b, err := svc.GetOrCreate(ctx, "alice")
	require.NoError(t, err)
	c, err := svc.GetOrCreate(ctx, "bob")
	require.NoError(t, err)

	assert.Equal(t, a.ID, b.ID)
	assert.NotEqual(t, a.ID, c.ID)
}

func TestAddItemAndSetQuantities(t *testing.T) {
	t.Parallel()
	svc, _ := newService(t)
	ctx := context.Background()

	b, err := svc.GetOrCreate(ctx, "alice")
	require.NoError(t, err)
	_, err = svc.AddItem(ctx, b.ID, 1, 5, 1)
	require.NoError(t, err)
	_, err = svc.AddItem(ctx, b.ID, 2, 7, 2)
	require.NoError(t, err)

	b, err = svc.SetQuantities(ctx, b.ID, map[int]int{1: 0, 2: 4, 99: 1})
	require.NoError(t, err)
	require.Len(t, b.Items, 1)
	assert.Equal(t, 2, b.Items[0].CatalogItemID)
	assert.Equal(t, 4, b.Items[0].Quantity)

	n, err := svc.ItemCount(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, 4, n)

	_, err = svc.SetQuantities(ctx, b.ID, map[int]int{2: -1})
	assert.ErrorIs(t, err, ErrInvalidQuantity)
	_, err = svc.AddItem(ctx, b.ID, 2, 7, -1)
	assert.ErrorIs(t, err, ErrInvalidQuantity)
	_, err = svc.AddItem(ctx, 404, 2, 7, 1)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestTransferMergesAnonymousBasket(t *testing.T) {
	t.Parallel()
	svc, _ := newService(t)
	ctx := context.Background()

	anon, err := svc.GetOrCreate(ctx, "anon-123")
	require.NoError(t, err)
	_, err = svc.AddItem(ctx, anon.ID, 1, 5, 2)
	require.NoError(t, err)

	user, err := svc.GetOrCreate(ctx, "alice")
	require.NoError(t, err)
	_, err = svc.AddItem(ctx, user.ID, 1, 5, 1)
	require.NoError(t, err)

	require.NoError(t, svc.Transfer(ctx, "anon-123", "alice"))

	n, err := svc.ItemCount(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	n, err = svc.ItemCount(ctx, "anon-123")
	require.NoError(t, err)
	assert.Zero(t, n)

	assert.NoError(t, svc.Transfer(ctx, "nobody", "alice"))
}

func TestDeleteBasket(t *testing.T) {
	t.Parallel()
	svc, _ := newService(t)
	ctx := context.Background()

	b, err := svc.GetOrCreate(ctx, "alice")
	require.NoError(t, err)
	require.NoError(t, svc.Delete(ctx, b.ID))
	assert.ErrorIs(t, svc.Delete(ctx, b.ID), store.ErrNotFound)
}

func TestViewModelEnrichesLines(t *testing.T) {
	t.Parallel()
	svc, db := newService(t)
	ctx := context.Background()

	items := store.NewRepository[catalog.Item](db, "catalog_items")
	brands := store.NewRepository[catalog.Brand](db, "catalog_brands")
	types := store.NewRepository[catalog.Type](db, "catalog_types")
	require.NoError(t, catalog.Seed(ctx, items, brands, types, zerolog.Nop()))
	cat := catalog.NewRepositoryService(items, brands, types)
	uri := catalog.NewURIComposer(catalog.Settings{CatalogBaseURL: "http://cdn.local"})

	b, err := svc.GetOrCreate(ctx, "alice")
	require.NoError(t, err)
	_, err = svc.AddItem(ctx, b.ID, 2, 8.5, 2)
	require.NoError(t, err)
	_, err = svc.AddItem(ctx, b.ID, 500, 1, 1)
	require.NoError(t, err)

	vm, err := NewViewModelService(svc, cat, uri).GetOrCreateForUser(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, vm.Items, 2)
	assert.Equal(t, ".NET Black & White Mug", vm.Items[0].ProductName)
	assert.Equal(t, "http://cdn.local/images/products/2.png", vm.Items[0].PictureURL)
	assert.Empty(t, vm.Items[1].ProductName)
	assert.InDelta(t, 18, vm.Total(), 0.0001)
}
