package catalog

import (
	"context"
	"fmt"
	"strings"

	"github.com/omarluq/storefront/internal/store"
)

// RepositoryService serves the catalog straight from the catalog database.
// It backs the catalog API that RemoteService calls.
type RepositoryService struct {
	items  store.Repository[Item]
	brands store.Repository[Brand]
	types  store.Repository[Type]
}

var _ Service = (*RepositoryService)(nil)

func NewRepositoryService(
	items store.Repository[Item], brands store.Repository[Brand], types store.Repository[Type],
) *RepositoryService {
	return &RepositoryService{items: items, brands: brands, types: types}
}

// ItemsSpec selects items matching f, ordered by id.
func ItemsSpec(f Filter) store.Specification[Item] {
	var (
		where []string
		args  []any
	)
	if id, ok := f.BrandID.Get(); ok {
		args = append(args, id)
		where = append(where, fmt.Sprintf(`(data->>'catalogBrandId')::int = $%d`, len(args)))
	}
	if id, ok := f.TypeID.Get(); ok {
		args = append(args, id)
		where = append(where, fmt.Sprintf(`(data->>'catalogTypeId')::int = $%d`, len(args)))
	}

	spec := store.Specification[Item]{
		Match: func(i Item) bool {
			if id, ok := f.BrandID.Get(); ok && i.CatalogBrandID != id {
				return false
			}
			if id, ok := f.TypeID.Get(); ok && i.CatalogTypeID != id {
				return false
			}
			return true
		},
		Where: strings.Join(where, " AND "),
		Args:  args,
	}
	if f.PageSize > 0 {
		spec = spec.Page(f.PageIndex, f.PageSize)
	}
	return spec
}

func (s *RepositoryService) Items(ctx context.Context, f Filter) (ItemsPage, error) {
	spec := ItemsSpec(f)
	items, err := s.items.List(ctx, spec)
	if err != nil {
		return ItemsPage{}, err
	}
	count, err := s.items.Count(ctx, spec)
	if err != nil {
		return ItemsPage{}, err
	}
	return ItemsPage{Items: items, Count: count, PageIndex: f.PageIndex, PageSize: f.PageSize}, nil
}

func (s *RepositoryService) Item(ctx context.Context, id int) (Item, error) {
	return s.items.GetByID(ctx, id)
}

func (s *RepositoryService) Brands(ctx context.Context) ([]Brand, error) {
	return s.brands.ListAll(ctx)
}

func (s *RepositoryService) Types(ctx context.Context) ([]Type, error) {
	return s.types.ListAll(ctx)
}
