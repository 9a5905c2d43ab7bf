// Package catalog holds the product catalog model and the services the
// storefront uses to read it.
package catalog

import (
	"context"
	"errors"

	"github.com/samber/mo"
)

// ErrCatalogUnavailable is returned when the catalog API cannot be reached
// or answers with an unexpected status.
var ErrCatalogUnavailable = errors.New("catalog: service unavailable")

// Tables in the catalog database.
const (
	ItemsTable  = "catalog_items"
	BrandsTable = "catalog_brands"
	TypesTable  = "catalog_types"
)

// Item is a product offered for sale.
type Item struct {
	Name           string  `json:"name"`
	Description    string  `json:"description"`
	PictureURI     string  `json:"pictureUri"`
	Price          float64 `json:"price"`
	ID             int     `json:"id"`
	CatalogTypeID  int     `json:"catalogTypeId"`
	CatalogBrandID int     `json:"catalogBrandId"`
}

func (i Item) GetID() int { return i.ID }

func (i Item) WithID(id int) Item {
	i.ID = id
	return i
}

// Brand groups items by manufacturer.
type Brand struct {
	Brand string `json:"brand"`
	ID    int    `json:"id"`
}

func (b Brand) GetID() int { return b.ID }

func (b Brand) WithID(id int) Brand {
	b.ID = id
	return b
}

// Type groups items by kind.
type Type struct {
	Type string `json:"type"`
	ID   int    `json:"id"`
}

func (t Type) GetID() int { return t.ID }

func (t Type) WithID(id int) Type {
	t.ID = id
	return t
}

// Filter narrows an item listing. Absent options match everything.
type Filter struct {
	BrandID   mo.Option[int]
	TypeID    mo.Option[int]
	PageIndex int
	PageSize  int
}

// ItemsPage is one page of an item listing.
type ItemsPage struct {
	Items     []Item `json:"items"`
	Count     int    `json:"count"`
	PageIndex int    `json:"pageIndex"`
	PageSize  int    `json:"pageSize"`
}

// TotalPages returns the number of pages for Count items.
func (p ItemsPage) TotalPages() int {
	if p.PageSize <= 0 {
		return 0
	}
	return (p.Count + p.PageSize - 1) / p.PageSize
}

// Service reads the catalog.
type Service interface {
	Items(ctx context.Context, f Filter) (ItemsPage, error)
	Item(ctx context.Context, id int) (Item, error)
	Brands(ctx context.Context) ([]Brand, error)
	Types(ctx context.Context) ([]Type, error)
}
