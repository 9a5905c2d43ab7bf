// Package basket manages shopping baskets.
package basket

import (
	"errors"

	"github.com/samber/lo"
)

// ErrInvalidQuantity is returned for negative quantities.
var ErrInvalidQuantity = errors.New("basket: quantity must not be negative")

// Item is one catalog item line in a basket.
type Item struct {
	CatalogItemID int     `json:"catalogItemId"`
	UnitPrice     float64 `json:"unitPrice"`
	Quantity      int     `json:"quantity"`
}

// Basket belongs to a buyer: a user name, or an anonymous id before sign-in.
type Basket struct {
	BuyerID string `json:"buyerId"`
	Items   []Item `json:"items"`
	ID      int    `json:"id"`
}

func (b Basket) GetID() int { return b.ID }

func (b Basket) WithID(id int) Basket {
	b.ID = id
	return b
}

// AddItem adds quantity of a catalog item, merging with an existing line.
// The unit price of an existing line is kept.
func (b *Basket) AddItem(catalogItemID int, unitPrice float64, quantity int) {
	for i := range b.Items {
		if b.Items[i].CatalogItemID == catalogItemID {
			b.Items[i].Quantity += quantity
			return
		}
	}
	b.Items = append(b.Items, Item{CatalogItemID: catalogItemID, UnitPrice: unitPrice, Quantity: quantity})
}

// RemoveEmpty drops lines whose quantity is zero.
func (b *Basket) RemoveEmpty() {
	b.Items = lo.Filter(b.Items, func(it Item, _ int) bool { return it.Quantity > 0 })
}

// Count returns the total number of units.
func (b Basket) Count() int {
	return lo.SumBy(b.Items, func(it Item) int { return it.Quantity })
}

// Total returns the basket value.
func (b Basket) Total() float64 {
	return lo.SumBy(b.Items, func(it Item) float64 { return it.UnitPrice * float64(it.Quantity) })
}
