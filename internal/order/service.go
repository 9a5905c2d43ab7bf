package order

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/omarluq/storefront/internal/basket"
	"github.com/omarluq/storefront/internal/catalog"
	"github.com/omarluq/storefront/internal/store"
)

// Service places orders.
type Service struct {
	baskets store.Repository[basket.Basket]
	orders  store.Repository[Order]
	catalog catalog.Service
	now     func() time.Time
	log     zerolog.Logger
}

func NewService(
	baskets store.Repository[basket.Basket],
	orders store.Repository[Order],
	cat catalog.Service,
	log zerolog.Logger,
) *Service {
	return &Service{baskets: baskets, orders: orders, catalog: cat, now: time.Now, log: log}
}

// Create turns the basket into an order, snapshotting the catalog items,
// and deletes the basket.
func (s *Service) Create(ctx context.Context, basketID int, ship Address) (Order, error) {
	if err := ship.Validate(); err != nil {
		return Order{}, err
	}
	b, err := s.baskets.GetByID(ctx, basketID)
	if err != nil {
		return Order{}, fmt.Errorf("load basket %d: %w", basketID, err)
	}
	b.RemoveEmpty()
	if len(b.Items) == 0 {
		return Order{}, ErrEmptyBasket
	}

	o := Order{
		BuyerID:       b.BuyerID,
		OrderDate:     s.now().UTC(),
		ShipToAddress: ship,
		Items:         make([]Item, 0, len(b.Items)),
	}
	for _, line := range b.Items {
		ci, err := s.catalog.Item(ctx, line.CatalogItemID)
		if err != nil {
			return Order{}, fmt.Errorf("catalog item %d: %w", line.CatalogItemID, err)
		}
		o.Items = append(o.Items, Item{
			ItemOrdered: ItemOrdered{
				CatalogItemID: ci.ID,
				ProductName:   ci.Name,
				PictureURI:    ci.PictureURI,
			},
			UnitPrice: line.UnitPrice,
			Units:     line.Quantity,
		})
	}

	o, err = s.orders.Add(ctx, o)
	if err != nil {
		return Order{}, err
	}
	if err := s.baskets.Delete(ctx, b); err != nil {
		return o, fmt.Errorf("order %d placed but basket not cleared: %w", o.ID, err)
	}
	s.log.Info().Int("order_id", o.ID).Str("buyer", o.BuyerID).Float64("total", o.Total()).Msg("order created")
	return o, nil
}
