package basket

import (
	"context"
	"errors"

	"github.com/samber/lo"

	"github.com/omarluq/storefront/internal/catalog"
	"github.com/omarluq/storefront/internal/store"
)

// ItemViewModel is a basket line enriched with catalog data.
type ItemViewModel struct {
	ProductName   string  `json:"productName"`
	PictureURL    string  `json:"pictureUrl"`
	UnitPrice     float64 `json:"unitPrice"`
	CatalogItemID int     `json:"catalogItemId"`
	Quantity      int     `json:"quantity"`
}

// ViewModel is a basket ready for rendering.
type ViewModel struct {
	BuyerID string          `json:"buyerId"`
	Items   []ItemViewModel `json:"items"`
	ID      int             `json:"id"`
}

func (v ViewModel) Total() float64 {
	return lo.SumBy(v.Items, func(it ItemViewModel) float64 { return it.UnitPrice * float64(it.Quantity) })
}

// ViewModelService builds basket view models.
type ViewModelService struct {
	baskets *Service
	catalog catalog.Service
	uri     *catalog.URIComposer
}

func NewViewModelService(baskets *Service, cat catalog.Service, uri *catalog.URIComposer) *ViewModelService {
	return &ViewModelService{baskets: baskets, catalog: cat, uri: uri}
}

// GetOrCreateForUser returns userName's basket, creating it when missing.
// Lines whose catalog item no longer exists are shown without name.
func (s *ViewModelService) GetOrCreateForUser(ctx context.Context, userName string) (ViewModel, error) {
	b, err := s.baskets.GetOrCreate(ctx, userName)
	if err != nil {
		return ViewModel{}, err
	}

	vm := ViewModel{ID: b.ID, BuyerID: b.BuyerID, Items: make([]ItemViewModel, 0, len(b.Items))}
	for _, it := range b.Items {
		line := ItemViewModel{
			CatalogItemID: it.CatalogItemID,
			UnitPrice:     it.UnitPrice,
			Quantity:      it.Quantity,
		}
		ci, err := s.catalog.Item(ctx, it.CatalogItemID)
		switch {
		case err == nil:
			line.ProductName = ci.Name
			line.PictureURL = s.uri.ComposePicURI(ci.PictureURI)
		case !errors.Is(err, store.ErrNotFound):
			return ViewModel{}, err
		}
		vm.Items = append(vm.Items, line)
	}
	return vm, nil
}
