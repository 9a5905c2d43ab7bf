package catalog

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/omarluq/storefront/internal/store"
)

var seedBrands = []string{"Azure", ".NET", "Visual Studio", "SQL Server", "Other"}

var seedTypes = []string{"Mug", "T-Shirt", "Sheet", "USB Memory Stick"}

var seedItems = []Item{
	{CatalogTypeID: 2, CatalogBrandID: 2, Name: ".NET Bot Black Sweatshirt", Price: 19.5},
	{CatalogTypeID: 1, CatalogBrandID: 2, Name: ".NET Black & White Mug", Price: 8.5},
	{CatalogTypeID: 2, CatalogBrandID: 5, Name: "Prism White T-Shirt", Price: 12},
	{CatalogTypeID: 2, CatalogBrandID: 2, Name: ".NET Foundation Sweatshirt", Price: 12},
	{CatalogTypeID: 3, CatalogBrandID: 5, Name: "Roslyn Red Sheet", Price: 8.5},
	{CatalogTypeID: 2, CatalogBrandID: 2, Name: ".NET Blue Sweatshirt", Price: 12},
	{CatalogTypeID: 2, CatalogBrandID: 5, Name: "Roslyn Red T-Shirt", Price: 12},
	{CatalogTypeID: 2, CatalogBrandID: 5, Name: "Kudu Purple Sweatshirt", Price: 8.5},
	{CatalogTypeID: 1, CatalogBrandID: 5, Name: "Cup<T> White Mug", Price: 12},
	{CatalogTypeID: 3, CatalogBrandID: 2, Name: ".NET Foundation Sheet", Price: 12},
	{CatalogTypeID: 3, CatalogBrandID: 2, Name: "Cup<T> Sheet", Price: 8.5},
	{CatalogTypeID: 2, CatalogBrandID: 5, Name: "Prism White TShirt", Price: 12},
}

// Seed fills empty catalog tables with demo data.
func Seed(
	ctx context.Context,
	items store.Repository[Item], brands store.Repository[Brand], types store.Repository[Type],
	log zerolog.Logger,
) error {
	n, err := brands.Count(ctx, store.All[Brand]())
	if err != nil {
		return err
	}
	if n > 0 {
		log.Debug().Int("brands", n).Msg("catalog already seeded")
		return nil
	}

	for _, b := range seedBrands {
		if _, err := brands.Add(ctx, Brand{Brand: b}); err != nil {
			return fmt.Errorf("seed brand %s: %w", b, err)
		}
	}
	for _, t := range seedTypes {
		if _, err := types.Add(ctx, Type{Type: t}); err != nil {
			return fmt.Errorf("seed type %s: %w", t, err)
		}
	}
	for i, it := range seedItems {
		it.Description = it.Name
		it.PictureURI = fmt.Sprintf("%s/images/products/%d.png", PicturePlaceholder, i+1)
		if _, err := items.Add(ctx, it); err != nil {
			return fmt.Errorf("seed item %s: %w", it.Name, err)
		}
	}
	log.Info().
		Int("brands", len(seedBrands)).
		Int("types", len(seedTypes)).
		Int("items", len(seedItems)).
		Msg("catalog seeded")
	return nil
}
