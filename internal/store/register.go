package store

import (
	"github.com/samber/do/v2"

	"github.com/omarluq/storefront/internal/di"
)

// AddRepository registers Repository[E] and AsyncRepository[E] as scoped
// services over the same table. db resolves the owning database.
func AddRepository[E Entity[E]](s *di.ServiceCollection, table string, db func(do.Injector) (*Database, error)) {
	ctor := func(i do.Injector) (*EntityRepository[E], error) {
		d, err := db(i)
		if err != nil {
			return nil, err
		}
		return NewRepository[E](d, table), nil
	}
	di.AddScoped[Repository[E]](s, ctor)
	di.AddScoped[AsyncRepository[E]](s, ctor)
}

// CatalogDatabase resolves the catalog database.
func CatalogDatabase(i do.Injector) (*Database, error) {
	d, err := di.Resolve[*CatalogDB](i)
	if err != nil {
		return nil, err
	}
	return d.Database, nil
}

// IdentityDatabase resolves the identity database.
func IdentityDatabase(i do.Injector) (*Database, error) {
	d, err := di.Resolve[*IdentityDB](i)
	if err != nil {
		return nil, err
	}
	return d.Database, nil
}
