package order

import (
	"context"

	"github.com/omarluq/storefront/internal/store"
)

// Repository reads orders.
type Repository interface {
	GetByIDWithItems(ctx context.Context, id int) (Order, error)
	ListByBuyer(ctx context.Context, buyerID string) ([]Order, error)
}

// StoreRepository implements Repository over the generic order table.
// Order lines live in the order document, so every read includes them.
type StoreRepository struct {
	orders store.Repository[Order]
}

var _ Repository = (*StoreRepository)(nil)

func NewStoreRepository(orders store.Repository[Order]) *StoreRepository {
	return &StoreRepository{orders: orders}
}

func (r *StoreRepository) GetByIDWithItems(ctx context.Context, id int) (Order, error) {
	return r.orders.GetByID(ctx, id)
}

// ListByBuyer returns the buyer's orders, newest first.
func (r *StoreRepository) ListByBuyer(ctx context.Context, buyerID string) ([]Order, error) {
	return r.orders.List(ctx, store.Specification[Order]{
		Match:   func(o Order) bool { return o.BuyerID == buyerID },
		Less:    func(a, b Order) int { return b.OrderDate.Compare(a.OrderDate) },
		Where:   `data->>'buyerId' = $1`,
		OrderBy: `data->>'orderDate' DESC`,
		Args:    []any{buyerID},
	})
}
