package catalog

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
	"github.com/tidwall/gjson"

	"github.com/omarluq/storefront/internal/store"
)

const maxBody = 4 << 20

// RemoteService reads the catalog over HTTP from the catalog API.
type RemoteService struct {
	client *http.Client
	base   *url.URL
	log    zerolog.Logger
}

var _ Service = (*RemoteService)(nil)

// NewRemoteService targets the catalog API at baseURL using client, whose
// transport is expected to resolve service ids and authorize requests.
func NewRemoteService(client *http.Client, baseURL string, log zerolog.Logger) (*RemoteService, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil || u.Host == "" {
		return nil, fmt.Errorf("catalog: invalid base url %q", baseURL)
	}
	return &RemoteService{client: client, base: u, log: log}, nil
}

// BaseURL returns the catalog API address.
func (s *RemoteService) BaseURL() string { return s.base.String() }

func (s *RemoteService) Items(ctx context.Context, f Filter) (ItemsPage, error) {
	q := url.Values{}
	q.Set("pageIndex", strconv.Itoa(f.PageIndex))
	q.Set("pageSize", strconv.Itoa(f.PageSize))
	if id, ok := f.BrandID.Get(); ok {
		q.Set("brandId", strconv.Itoa(id))
	}
	if id, ok := f.TypeID.Get(); ok {
		q.Set("typeId", strconv.Itoa(id))
	}

	body, err := s.get(ctx, "/api/catalog/items", q)
	if err != nil {
		return ItemsPage{}, err
	}
	doc := gjson.ParseBytes(body)
	page := ItemsPage{
		Count:     int(doc.Get("count").Int()),
		PageIndex: f.PageIndex,
		PageSize:  f.PageSize,
	}
	for _, r := range doc.Get("items").Array() {
		page.Items = append(page.Items, parseItem(r))
	}
	return page, nil
}

func (s *RemoteService) Item(ctx context.Context, id int) (Item, error) {
	body, err := s.get(ctx, "/api/catalog/items/"+strconv.Itoa(id), nil)
	if err != nil {
		return Item{}, err
	}
	return parseItem(gjson.ParseBytes(body)), nil
}

func (s *RemoteService) Brands(ctx context.Context) ([]Brand, error) {
	body, err := s.get(ctx, "/api/catalog/brands", nil)
	if err != nil {
		return nil, err
	}
	var out []Brand
	gjson.ParseBytes(body).ForEach(func(_, v gjson.Result) bool {
		out = append(out, Brand{ID: int(v.Get("id").Int()), Brand: v.Get("brand").String()})
		return true
	})
	return out, nil
}

func (s *RemoteService) Types(ctx context.Context) ([]Type, error) {
	body, err := s.get(ctx, "/api/catalog/types", nil)
	if err != nil {
		return nil, err
	}
	var out []Type
	gjson.ParseBytes(body).ForEach(func(_, v gjson.Result) bool {
		out = append(out, Type{ID: int(v.Get("id").Int()), Type: v.Get("type").String()})
		return true
	})
	return out, nil
}

func parseItem(r gjson.Result) Item {
	return Item{
		ID:             int(r.Get("id").Int()),
		Name:           r.Get("name").String(),
		Description:    r.Get("description").String(),
		Price:          r.Get("price").Float(),
		PictureURI:     r.Get("pictureUri").String(),
		CatalogTypeID:  int(r.Get("catalogTypeId").Int()),
		CatalogBrandID: int(r.Get("catalogBrandId").Int()),
	}
}

func (s *RemoteService) get(ctx context.Context, path string, q url.Values) ([]byte, error) {
	u := *s.base
	u.Path = strings.TrimRight(u.Path, "/") + path
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), http.NoBody)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		s.log.Warn().Err(err).Str("url", u.String()).Msg("catalog request failed")
		return nil, fmt.Errorf("%w: %w", ErrCatalogUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %w", ErrCatalogUnavailable, err)
	}
	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, store.ErrNotFound
	case resp.StatusCode >= 300:
		s.log.Warn().Int("status", resp.StatusCode).Str("url", u.String()).Msg("catalog request rejected")
		return nil, fmt.Errorf("%w: status %d", ErrCatalogUnavailable, resp.StatusCode)
	case !gjson.ValidBytes(body):
		return nil, fmt.Errorf("%w: invalid json", ErrCatalogUnavailable)
	}
	return body, nil
}
