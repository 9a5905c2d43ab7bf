// Package order turns baskets into orders and reads order history.
package order

import (
	"errors"
	"time"

	"github.com/samber/lo"
)

var (
	// ErrEmptyBasket is returned when checking out a basket with no lines.
	ErrEmptyBasket = errors.New("order: basket is empty")

	// ErrInvalidAddress is returned when a required address field is blank.
	ErrInvalidAddress = errors.New("order: incomplete shipping address")
)

// Table is the order table name.
const Table = "orders"

// Address is a shipping address.
type Address struct {
	Street  string `json:"street"`
	City    string `json:"city"`
	State   string `json:"state"`
	Country string `json:"country"`
	ZipCode string `json:"zipCode"`
}

// Validate requires street, city, country and zip code.
func (a Address) Validate() error {
	if a.Street == "" || a.City == "" || a.Country == "" || a.ZipCode == "" {
		return ErrInvalidAddress
	}
	return nil
}

// ItemOrdered snapshots the catalog item at order time.
type ItemOrdered struct {
	ProductName   string `json:"productName"`
	PictureURI    string `json:"pictureUri"`
	CatalogItemID int    `json:"catalogItemId"`
}

// Item is one order line.
type Item struct {
	ItemOrdered ItemOrdered `json:"itemOrdered"`
	UnitPrice   float64     `json:"unitPrice"`
	Units       int         `json:"units"`
}

// Order is a placed order.
type Order struct {
	OrderDate     time.Time `json:"orderDate"`
	BuyerID       string    `json:"buyerId"`
	ShipToAddress Address   `json:"shipToAddress"`
	Items         []Item    `json:"items"`
	ID            int       `json:"id"`
}

func (o Order) GetID() int { return o.ID }

func (o Order) WithID(id int) Order {
	o.ID = id
	return o
}

// Total returns the sum of all lines.
func (o Order) Total() float64 {
	return lo.SumBy(o.Items, func(it Item) float64 { return it.UnitPrice * float64(it.Units) })
}
