package order

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/samber/lo"

	"github.com/omarluq/storefront/internal/catalog"
	"github.com/omarluq/storefront/internal/notify"
	"github.com/omarluq/storefront/internal/store"
)

// ItemViewModel is an order line ready for rendering.
type ItemViewModel struct {
	ProductName   string  `json:"productName"`
	PictureURL    string  `json:"pictureUrl"`
	UnitPrice     float64 `json:"unitPrice"`
	CatalogItemID int     `json:"catalogItemId"`
	Units         int     `json:"units"`
}

// ViewModel is an order ready for rendering.
type ViewModel struct {
	OrderDate     time.Time       `json:"orderDate"`
	Status        string          `json:"status"`
	ShipToAddress Address         `json:"shipToAddress"`
	Items         []ItemViewModel `json:"items"`
	Total         float64         `json:"total"`
	OrderNumber   int             `json:"orderNumber"`
}

// StatusPending is shown for every order; fulfilment is handled elsewhere.
const StatusPending = "Pending"

// OrderingService serves order history and checkout.
type OrderingService struct {
	orders  Repository
	creator *Service
	email   notify.EmailSender
	uri     *catalog.URIComposer
	log     zerolog.Logger
}

func NewOrderingService(
	orders Repository, creator *Service, email notify.EmailSender, uri *catalog.URIComposer, log zerolog.Logger,
) *OrderingService {
	return &OrderingService{orders: orders, creator: creator, email: email, uri: uri, log: log}
}

// MyOrders lists the orders placed by userName.
func (s *OrderingService) MyOrders(ctx context.Context, userName string) ([]ViewModel, error) {
	orders, err := s.orders.ListByBuyer(ctx, userName)
	if err != nil {
		return nil, err
	}
	return lo.Map(orders, func(o Order, _ int) ViewModel { return s.view(o) }), nil
}

// Detail returns one of userName's orders. Orders of other buyers are
// reported as not found.
func (s *OrderingService) Detail(ctx context.Context, userName string, id int) (ViewModel, error) {
	o, err := s.orders.GetByIDWithItems(ctx, id)
	if err != nil {
		return ViewModel{}, err
	}
	if o.BuyerID != userName {
		return ViewModel{}, store.ErrNotFound
	}
	return s.view(o), nil
}

// Checkout places the order for basketID and emails a confirmation to
// email. A failed email is logged and does not fail the checkout.
func (s *OrderingService) Checkout(ctx context.Context, basketID int, ship Address, email string) (Order, error) {
	o, err := s.creator.Create(ctx, basketID, ship)
	if err != nil {
		return Order{}, err
	}
	if email == "" {
		return o, nil
	}
	subject := fmt.Sprintf("Order #%d confirmation", o.ID)
	if err := s.email.SendEmail(ctx, email, subject, confirmation(o)); err != nil {
		s.log.Warn().Err(err).Int("order_id", o.ID).Msg("order confirmation not sent")
	}
	return o, nil
}

func (s *OrderingService) view(o Order) ViewModel {
	return ViewModel{
		OrderNumber:   o.ID,
		OrderDate:     o.OrderDate,
		Status:        StatusPending,
		ShipToAddress: o.ShipToAddress,
		Total:         o.Total(),
		Items: lo.Map(o.Items, func(it Item, _ int) ItemViewModel {
			return ItemViewModel{
				CatalogItemID: it.ItemOrdered.CatalogItemID,
				ProductName:   it.ItemOrdered.ProductName,
				PictureURL:    s.uri.ComposePicURI(it.ItemOrdered.PictureURI),
				UnitPrice:     it.UnitPrice,
				Units:         it.Units,
			}
		}),
	}
}

func confirmation(o Order) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Thank you for your order #%d.\n\n", o.ID)
	for _, it := range o.Items {
		fmt.Fprintf(&b, "%d x %s @ %.2f\n", it.Units, it.ItemOrdered.ProductName, it.UnitPrice)
	}
	fmt.Fprintf(&b, "\nTotal: %.2f\n", o.Total())
	return b.String()
}
