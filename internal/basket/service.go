package basket

import (
	"context"
	"errors"

	"github.com/rs/zerolog"

	"github.com/omarluq/storefront/internal/store"
)

// Table is the basket table name.
const Table = "baskets"

// ByBuyer selects the baskets of buyerID.
func ByBuyer(buyerID string) store.Specification[Basket] {
	return store.Specification[Basket]{
		Match: func(b Basket) bool { return b.BuyerID == buyerID },
		Where: `data->>'buyerId' = $1`,
		Args:  []any{buyerID},
	}
}

// Service changes baskets.
type Service struct {
	repo store.Repository[Basket]
	log  zerolog.Logger
}

func NewService(repo store.Repository[Basket], log zerolog.Logger) *Service {
	return &Service{repo: repo, log: log}
}

// GetOrCreate returns the basket of buyerID, creating an empty one.
func (s *Service) GetOrCreate(ctx context.Context, buyerID string) (Basket, error) {
	b, err := s.repo.First(ctx, ByBuyer(buyerID))
	if err == nil {
		return b, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return Basket{}, err
	}
	b, err = s.repo.Add(ctx, Basket{BuyerID: buyerID})
	if err != nil {
		return Basket{}, err
	}
	s.log.Debug().Int("basket_id", b.ID).Str("buyer", buyerID).Msg("basket created")
	return b, nil
}

// AddItem adds quantity of a catalog item to the basket.
func (s *Service) AddItem(ctx context.Context, basketID, catalogItemID int, price float64, quantity int) (Basket, error) {
	if quantity < 0 {
		return Basket{}, ErrInvalidQuantity
	}
	b, err := s.repo.GetByID(ctx, basketID)
	if err != nil {
		return Basket{}, err
	}
	b.AddItem(catalogItemID, price, quantity)
	return b, s.repo.Update(ctx, b)
}

// SetQuantities sets line quantities keyed by catalog item id. A zero
// quantity removes the line; unknown ids are ignored.
func (s *Service) SetQuantities(ctx context.Context, basketID int, quantities map[int]int) (Basket, error) {
	b, err := s.repo.GetByID(ctx, basketID)
	if err != nil {
		return Basket{}, err
	}
	for i := range b.Items {
		q, ok := quantities[b.Items[i].CatalogItemID]
		if !ok {
			continue
		}
		if q < 0 {
			return Basket{}, ErrInvalidQuantity
		}
		b.Items[i].Quantity = q
	}
	b.RemoveEmpty()
	return b, s.repo.Update(ctx, b)
}

func (s *Service) Delete(ctx context.Context, basketID int) error {
	b, err := s.repo.GetByID(ctx, basketID)
	if err != nil {
		return err
	}
	return s.repo.Delete(ctx, b)
}

// Transfer moves the anonymous basket's lines into userName's basket and
// deletes the anonymous one. It is a no-op when there is nothing to move.
func (s *Service) Transfer(ctx context.Context, anonymousID, userName string) error {
	anon, err := s.repo.First(ctx, ByBuyer(anonymousID))
	if errors.Is(err, store.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	user, err := s.GetOrCreate(ctx, userName)
	if err != nil {
		return err
	}
	for _, it := range anon.Items {
		user.AddItem(it.CatalogItemID, it.UnitPrice, it.Quantity)
	}
	if err := s.repo.Update(ctx, user); err != nil {
		return err
	}
	s.log.Debug().Str("from", anonymousID).Str("to", userName).Int("lines", len(anon.Items)).Msg("basket transferred")
	return s.repo.Delete(ctx, anon)
}

// ItemCount returns the number of units in buyerID's basket, zero when
// there is none.
func (s *Service) ItemCount(ctx context.Context, buyerID string) (int, error) {
	b, err := s.repo.First(ctx, ByBuyer(buyerID))
	if errors.Is(err, store.ErrNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return b.Count(), nil
}
