package order

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"mcpizza/internal/config"
	"mcpizza/internal/dominos"
	"mcpizza/internal/logger"
	"mcpizza/internal/models"
	"mcpizza/internal/services/order/validation"
)

var (
	taxRate     = decimal.RequireFromString("0.0825")
	deliveryFee = decimal.RequireFromString("3.99")
)

const previewWarning = "Order placement is disabled. This is a preview only and no order has been sent to the store."

// PizzaAPI is the part of the ordering API client the service needs.
type PizzaAPI interface {
	FindClosestStore(ctx context.Context, addr dominos.Address) (*dominos.Store, error)
	Menu(ctx context.Context, storeID string) (*dominos.Menu, error)
	PriceOrder(ctx context.Context, order *dominos.Order) (dominos.Amounts, error)
}

// EventPublisher broadcasts cart changes. Events queue on the session until
// PublishEvents runs, so callers publish only what they managed to save.
// Publishing is best effort.
type EventPublisher interface {
	PublishOrderEvent(ctx context.Context, event *models.OrderEventMessage) error
}

type Service struct {
	cfg    config.PizzaConfig
	api    PizzaAPI
	events EventPublisher
	logger *logger.Logger
}

// NewService creates the order service. api and events may be nil; without
// an api the service always answers from mock data.
func NewService(cfg config.PizzaConfig, api PizzaAPI, events EventPublisher, log *logger.Logger) *Service {
	return &Service{
		cfg:    cfg,
		api:    api,
		events: events,
		logger: log,
	}
}

// RealAPIEnabled reports whether calls go to the ordering API.
func (s *Service) RealAPIEnabled() bool {
	return s.cfg.RealAPI && s.api != nil
}

// FallbackEnabled reports whether API failures degrade to mock data.
func (s *Service) FallbackEnabled() bool {
	return s.cfg.FallbackMock
}

// FindStore selects the store that will serve the session.
func (s *Service) FindStore(ctx context.Context, sess *Session, address string) (*models.StoreResult, error) {
	if err := validation.ValidateAddress(address); err != nil {
		return nil, err
	}
	address = strings.TrimSpace(address)
	requestID := logger.RequestID(ctx)

	if s.RealAPIEnabled() {
		store, err := s.api.FindClosestStore(ctx, dominos.ParseAddress(address))
		if err == nil {
			ref := storeRefFromAPI(store)
			s.selectStore(sess, ref)

			s.logger.Info("store_found", "Found store via ordering API", requestID, map[string]interface{}{
				"session_id": sess.ID,
				"store_id":   ref.StoreID,
			})
			return &models.StoreResult{StoreRef: ref, Status: "success"}, nil
		}

		if !s.cfg.FallbackMock {
			if errors.Is(err, dominos.ErrNoStoreNearby) {
				return nil, ErrStoreNotFound
			}
			return nil, fmt.Errorf("find store: %w", err)
		}

		s.logger.Warn("store_fallback", "Store lookup failed, using mock store", requestID, map[string]interface{}{
			"session_id": sess.ID,
			"address":    address,
			"error":      err.Error(),
		})
		ref := mockStore(address, models.SourceFallbackMock)
		s.selectStore(sess, ref)
		return &models.StoreResult{StoreRef: ref, Status: "success", APIError: err.Error()}, nil
	}

	ref := mockStore(address, models.SourceMock)
	s.selectStore(sess, ref)
	s.logger.Debug("store_found", "Using mock store", requestID, map[string]interface{}{
		"session_id": sess.ID,
		"store_id":   ref.StoreID,
	})
	return &models.StoreResult{StoreRef: ref, Status: "success"}, nil
}

// selectStore records the store and rebuilds the external order around the
// items already in the cart.
func (s *Service) selectStore(sess *Session, ref models.StoreRef) {
	sess.Store = &ref
	sess.Order = nil
	if ref.Source == models.SourceRealAPI {
		order := dominos.NewOrder(ref.StoreID)
		for _, item := range sess.Items {
			order.AddProduct(item.Code, item.Quantity, item.Options)
		}
		for _, coupon := range sess.Coupons {
			order.AddCoupon(coupon)
		}
		if sess.Customer != nil {
			setOrderCustomer(order, *sess.Customer)
		}
		sess.Order = order
	}
	sess.touch()
}

// SearchMenu searches the live menu of a real store, or the mock catalog.
func (s *Service) SearchMenu(ctx context.Context, sess *Session, query, storeID string) (*models.MenuSearchResult, error) {
	if err := validation.ValidateQuery(query); err != nil {
		return nil, err
	}

	storeID = strings.TrimSpace(storeID)
	if storeID == "" && sess.hasRealStore() {
		storeID = sess.Store.StoreID
	}

	if s.RealAPIEnabled() && storeID != "" {
		menu, err := s.api.Menu(ctx, storeID)
		if err == nil {
			products := menu.Search(query)
			if len(products) > 0 {
				items := make([]models.MenuItem, 0, len(products))
				for _, p := range products {
					items = append(items, menuItemFromAPI(p))
				}
				return newMenuSearchResult(query, items, models.SourceRealAPI), nil
			}
			if !s.cfg.FallbackMock {
				return newMenuSearchResult(query, []models.MenuItem{}, models.SourceRealAPI), nil
			}
			return newMenuSearchResult(query, searchCatalog(query), models.SourceFallbackMock), nil
		}

		if !s.cfg.FallbackMock {
			return nil, fmt.Errorf("search menu: %w", err)
		}

		s.logger.Warn("menu_fallback", "Menu fetch failed, searching mock catalog", logger.RequestID(ctx), map[string]interface{}{
			"store_id": storeID,
			"error":    err.Error(),
		})
		result := newMenuSearchResult(query, searchCatalog(query), models.SourceFallbackMock)
		result.APIError = err.Error()
		return result, nil
	}

	return newMenuSearchResult(query, searchCatalog(query), models.SourceMock), nil
}

func newMenuSearchResult(query string, items []models.MenuItem, source models.Source) *models.MenuSearchResult {
	result := &models.MenuSearchResult{
		Query:  query,
		Items:  items,
		Count:  len(items),
		Source: source,
	}
	if len(items) == 0 {
		result.Message = fmt.Sprintf("No items found matching '%s'", query)
	}
	return result
}

// GetStoreMenu lists the menu categories of the selected store.
func (s *Service) GetStoreMenu(ctx context.Context, sess *Session, storeID string) (*models.MenuCategoriesResult, error) {
	storeID = strings.TrimSpace(storeID)
	explicit := storeID != ""
	if !explicit {
		if sess.Store == nil {
			return nil, ErrNoStore
		}
		storeID = sess.Store.StoreID
	}

	if s.RealAPIEnabled() && (explicit || sess.hasRealStore()) {
		menu, err := s.api.Menu(ctx, storeID)
		if err == nil {
			return &models.MenuCategoriesResult{
				StoreID:    storeID,
				Categories: menu.Categories(),
				Source:     models.SourceRealAPI,
			}, nil
		}

		if !s.cfg.FallbackMock {
			return nil, fmt.Errorf("get store menu: %w", err)
		}

		s.logger.Warn("menu_fallback", "Menu fetch failed, listing mock categories", logger.RequestID(ctx), map[string]interface{}{
			"store_id": storeID,
			"error":    err.Error(),
		})
		return &models.MenuCategoriesResult{
			StoreID:    storeID,
			Categories: catalogCategories(),
			Source:     models.SourceFallbackMock,
			APIError:   err.Error(),
		}, nil
	}

	return &models.MenuCategoriesResult{
		StoreID:    storeID,
		Categories: catalogCategories(),
		Source:     models.SourceMock,
	}, nil
}

// AddToOrder appends a line item. Repeated codes are kept as separate lines.
func (s *Service) AddToOrder(ctx context.Context, sess *Session, code string, quantity int, options map[string]interface{}) (*models.AddItemResult, error) {
	code = strings.TrimSpace(code)
	if err := validation.ValidateLineItem(code, quantity); err != nil {
		return nil, err
	}
	if options == nil {
		options = map[string]interface{}{}
	}

	item := models.LineItem{
		Code:     code,
		Quantity: quantity,
		Options:  options,
		AddedAt:  time.Now().UTC(),
	}

	source := models.SourceMock
	var apiError string
	if s.RealAPIEnabled() && sess.hasRealStore() {
		err := s.mirrorItem(ctx, sess, item)
		switch {
		case err == nil:
			source = models.SourceRealAPI
		case !s.cfg.FallbackMock && errors.Is(err, ErrItemNotOnMenu):
			return nil, err
		case !s.cfg.FallbackMock:
			return nil, fmt.Errorf("add to order: %w", err)
		default:
			s.logger.Warn("add_item_fallback", "Could not verify item against store menu", logger.RequestID(ctx), map[string]interface{}{
				"session_id": sess.ID,
				"item_code":  code,
				"error":      err.Error(),
			})
			source = models.SourceFallbackMock
			apiError = err.Error()
		}
	}

	sess.Items = append(sess.Items, item)
	sess.touch()

	s.logger.Info("item_added", "Item added to order", logger.RequestID(ctx), map[string]interface{}{
		"session_id": sess.ID,
		"item_code":  code,
		"quantity":   quantity,
		"item_count": sess.ItemCount(),
	})
	s.publish(ctx, sess, models.EventItemAdded, source, func(m *models.OrderEventMessage) {
		m.ItemCode = code
		m.Quantity = quantity
	})

	return &models.AddItemResult{
		Message:   fmt.Sprintf("Added %dx %s to order", quantity, code),
		Item:      item,
		ItemCount: sess.ItemCount(),
		Source:    source,
		APIError:  apiError,
	}, nil
}

func (s *Service) mirrorItem(ctx context.Context, sess *Session, item models.LineItem) error {
	menu, err := s.api.Menu(ctx, sess.Store.StoreID)
	if err != nil {
		return err
	}
	if !menu.HasItem(item.Code) {
		return fmt.Errorf("%w: %s", ErrItemNotOnMenu, item.Code)
	}
	if sess.Order == nil {
		sess.Order = dominos.NewOrder(sess.Store.StoreID)
	}
	sess.Order.AddProduct(item.Code, item.Quantity, item.Options)
	return nil
}

// ViewOrder reports the cart with an estimated total. A mirrored order is
// priced from the store menu first.
func (s *Service) ViewOrder(ctx context.Context, sess *Session) (*models.OrderView, error) {
	source := s.sessionSource(sess)

	var menu *dominos.Menu
	if source == models.SourceRealAPI && len(sess.Items) > 0 {
		m, err := s.api.Menu(ctx, sess.Store.StoreID)
		if err != nil {
			s.logger.Warn("view_order_menu", "Store menu unavailable, estimating from mock catalog", logger.RequestID(ctx), map[string]interface{}{
				"session_id": sess.ID,
				"error":      err.Error(),
			})
		}
		menu = m
	}
	subtotal, unpriced := estimateSubtotal(sess.Items, menu)

	view := &models.OrderView{
		Items:         sess.Items,
		ItemCount:     sess.ItemCount(),
		Total:         formatMoney(subtotal),
		UnpricedItems: unpriced,
		CustomerSet:   sess.Customer != nil,
		Coupons:       sess.Coupons,
		Source:        source,
	}
	if sess.Store != nil {
		view.StoreID = sess.Store.StoreID
	}
	if view.Source == models.SourceRealAPI {
		view.OrderData = sess.Order
	}
	if len(sess.Items) == 0 {
		view.Message = "No items in order yet"
	}
	return view, nil
}

// SetCustomerInfo stores the delivery contact.
func (s *Service) SetCustomerInfo(ctx context.Context, sess *Session, customer models.CustomerInfo) (*models.CustomerResult, error) {
	if err := validation.ValidateCustomer(customer); err != nil {
		return nil, err
	}

	sess.Customer = &customer
	if sess.Order != nil {
		setOrderCustomer(sess.Order, customer)
	}
	sess.touch()

	source := s.sessionSource(sess)
	s.publish(ctx, sess, models.EventCustomerSet, source, nil)

	return &models.CustomerResult{
		Message:  fmt.Sprintf("Customer information saved for %s %s", customer.FirstName, customer.LastName),
		Customer: customer,
		Source:   source,
	}, nil
}

// ApplyCoupon attaches a coupon code to the order. The code is not checked
// until the order is priced.
func (s *Service) ApplyCoupon(ctx context.Context, sess *Session, code string) (*models.CouponResult, error) {
	code = strings.TrimSpace(code)
	if err := validation.ValidateCouponCode(code); err != nil {
		return nil, err
	}
	if len(sess.Items) == 0 {
		return nil, ErrNoOrder
	}

	sess.Coupons = append(sess.Coupons, code)
	if sess.Order != nil {
		sess.Order.AddCoupon(code)
	}
	sess.touch()

	source := s.sessionSource(sess)
	s.publish(ctx, sess, models.EventCouponApplied, source, nil)

	return &models.CouponResult{
		Message: fmt.Sprintf("Coupon %s applied", code),
		Coupons: sess.Coupons,
		Source:  source,
	}, nil
}

// CalculateOrderTotal prices the order through the ordering API when the
// order is mirrored there, and estimates it otherwise.
func (s *Service) CalculateOrderTotal(ctx context.Context, sess *Session) (*models.OrderTotal, error) {
	if len(sess.Items) == 0 {
		return nil, ErrNoOrder
	}

	if s.sessionSource(sess) == models.SourceRealAPI {
		amounts, err := s.api.PriceOrder(ctx, sess.Order)
		if err == nil {
			return s.pricedTotal(amounts), nil
		}

		if !s.cfg.FallbackMock {
			return nil, fmt.Errorf("calculate order total: %w", err)
		}

		s.logger.Warn("price_fallback", "Order pricing failed, using estimate", logger.RequestID(ctx), map[string]interface{}{
			"session_id": sess.ID,
			"error":      err.Error(),
		})
		total := s.estimateTotal(sess, models.SourceFallbackMock)
		total.APIError = err.Error()
		return total, nil
	}

	return s.estimateTotal(sess, models.SourceMock), nil
}

func (s *Service) pricedTotal(amounts dominos.Amounts) *models.OrderTotal {
	total := decimal.NewFromFloat(amounts["Customer"])
	return &models.OrderTotal{
		Subtotal:              formatMoney(decimal.NewFromFloat(amounts["Menu"])),
		Tax:                   formatMoney(decimal.NewFromFloat(amounts["Tax"])),
		DeliveryFee:           formatMoney(decimal.NewFromFloat(amounts["DeliveryFee"])),
		Total:                 formatMoney(total),
		Amounts:               amounts,
		Estimate:              false,
		ExceedsMaxOrderAmount: total.GreaterThan(s.cfg.MaxOrderAmount),
		Source:                models.SourceRealAPI,
	}
}

func (s *Service) estimateTotal(sess *Session, source models.Source) *models.OrderTotal {
	subtotal, _ := estimateSubtotal(sess.Items, nil)
	tax := subtotal.Mul(taxRate).Round(2)
	fee := decimal.Zero
	if sess.Customer != nil {
		fee = deliveryFee
	}
	total := subtotal.Add(tax).Add(fee)

	return &models.OrderTotal{
		Subtotal:              formatMoney(subtotal),
		Tax:                   formatMoney(tax),
		DeliveryFee:           formatMoney(fee),
		Total:                 formatMoney(total),
		Estimate:              true,
		ExceedsMaxOrderAmount: total.GreaterThan(s.cfg.MaxOrderAmount),
		Source:                source,
	}
}

// PrepareOrderPreview summarizes the order for confirmation. It never places
// the order, whatever MCPIZZA_ENABLE_ORDERS says.
func (s *Service) PrepareOrderPreview(ctx context.Context, sess *Session) (*models.OrderPreview, error) {
	if len(sess.Items) == 0 {
		return nil, ErrNoOrder
	}
	if sess.Customer == nil {
		return nil, ErrCustomerRequired
	}

	totals, err := s.CalculateOrderTotal(ctx, sess)
	if err != nil {
		return nil, err
	}

	warning := previewWarning
	if s.cfg.EnableOrders {
		warning += " Order placement is not supported by this server even with MCPIZZA_ENABLE_ORDERS set."
	}

	preview := &models.OrderPreview{
		Message:              "Order preview ready. Review the details below.",
		Items:                sess.Items,
		Customer:             *sess.Customer,
		Totals:               *totals,
		Coupons:              sess.Coupons,
		PlacementEnabled:     false,
		RequiresConfirmation: s.cfg.RequireConfirmation || totals.ExceedsMaxOrderAmount,
		Warning:              warning,
		Source:               totals.Source,
	}
	if sess.Store != nil {
		preview.StoreID = sess.Store.StoreID
	}

	s.logger.Info("order_previewed", "Order preview prepared", logger.RequestID(ctx), map[string]interface{}{
		"session_id": sess.ID,
		"item_count": sess.ItemCount(),
		"total":      totals.Total,
	})
	s.publish(ctx, sess, models.EventOrderPreview, totals.Source, func(m *models.OrderEventMessage) {
		m.Total = totals.Total
	})
	return preview, nil
}

// sessionSource is real_api once the cart is mirrored into an external order.
func (s *Service) sessionSource(sess *Session) models.Source {
	if s.RealAPIEnabled() && sess.Order != nil && sess.hasRealStore() {
		return models.SourceRealAPI
	}
	return models.SourceMock
}

func (s *Service) publish(ctx context.Context, sess *Session, event models.OrderEventType, source models.Source, fill func(*models.OrderEventMessage)) {
	if s.events == nil {
		return
	}

	msg := models.NewOrderEvent(event, sess.ID, source)
	msg.ItemCount = sess.ItemCount()
	if sess.Store != nil {
		msg.StoreID = sess.Store.StoreID
	}
	if fill != nil {
		fill(msg)
	}
	sess.pending = append(sess.pending, msg)
}

// PublishEvents sends the events queued on sess, oldest first, and clears
// the queue. Failures are logged and do not stop the remaining events.
func (s *Service) PublishEvents(ctx context.Context, sess *Session) {
	pending := sess.pending
	sess.pending = nil
	if s.events == nil {
		return
	}

	for _, msg := range pending {
		if err := s.events.PublishOrderEvent(ctx, msg); err != nil {
			s.logger.Error("event_publish_failed", "Failed to publish order event", logger.RequestID(ctx), err, map[string]interface{}{
				"session_id": sess.ID,
				"event":      string(msg.Event),
			})
		}
	}
}

// DiscardEvents drops the events queued on sess and returns how many there
// were.
func (s *Service) DiscardEvents(sess *Session) int {
	n := len(sess.pending)
	sess.pending = nil
	return n
}

// estimateSubtotal prices items from menu when given, then from the mock
// catalog. Codes neither knows are returned separately.
func estimateSubtotal(items []models.LineItem, menu *dominos.Menu) (decimal.Decimal, []string) {
	subtotal := decimal.Zero
	var unpriced []string
	for _, item := range items {
		price, ok := menuPrice(menu, item.Code)
		if !ok {
			price, ok = catalogPrice(item.Code)
		}
		if !ok {
			unpriced = append(unpriced, item.Code)
			continue
		}
		subtotal = subtotal.Add(price.Mul(decimal.NewFromInt(int64(item.Quantity))))
	}
	return subtotal, unpriced
}

func menuPrice(menu *dominos.Menu, code string) (decimal.Decimal, bool) {
	if menu == nil {
		return decimal.Zero, false
	}
	listed, ok := menu.Price(code)
	if !ok {
		return decimal.Zero, false
	}
	price, err := decimal.NewFromString(listed)
	if err != nil {
		return decimal.Zero, false
	}
	return price, true
}

func storeRefFromAPI(store *dominos.Store) models.StoreRef {
	return models.StoreRef{
		StoreID:                store.ID,
		Phone:                  store.Phone,
		Address:                strings.Join(strings.Fields(store.AddressDescription), " "),
		IsDeliveryStore:        store.IsDeliveryStore,
		MinDeliveryOrderAmount: store.MinDeliveryOrderAmount,
		DeliveryMinutes:        formatWait(store.WaitMinutes.Delivery),
		PickupMinutes:          formatWait(store.WaitMinutes.Carryout),
		Source:                 models.SourceRealAPI,
	}
}

func formatWait(w dominos.WaitRange) string {
	if w.Min == 0 && w.Max == 0 {
		return ""
	}
	return fmt.Sprintf("%d-%d", w.Min, w.Max)
}

func menuItemFromAPI(p dominos.Product) models.MenuItem {
	price := p.Price
	if price != "" {
		price = "$" + price
	}
	return models.MenuItem{
		Category:    p.Category,
		Code:        p.Code,
		Name:        p.Name,
		Description: p.Description,
		Price:       price,
	}
}

func setOrderCustomer(order *dominos.Order, c models.CustomerInfo) {
	order.SetCustomer(c.FirstName, c.LastName, c.Email, c.Phone, dominos.OrderAddress{
		Street:     c.Address.Street,
		City:       c.Address.City,
		Region:     c.Address.Region,
		PostalCode: c.Address.Zip,
	})
}
