package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/linemk/jewelry-shop/internal/domain/models"
	"github.com/linemk/jewelry-shop/internal/storage"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/singleflight"
)

// ActorPaymentProvider автор записей журнала от платёжного провайдера
const ActorPaymentProvider = "payment-provider"

// CheckoutItem строка оформления заказа
type CheckoutItem struct {
	ProductID string `json:"productId" validate:"required"`
	VariantID string `json:"variantId" validate:"required"`
	Quantity  int    `json:"quantity" validate:"required,min=1"`
}

// CheckoutRequest данные оформления. Пустой Items - оформить текущую корзину.
// IdempotencyKey необязателен, без него повтором считается оформление с тем же составом.
type CheckoutRequest struct {
	Items           []CheckoutItem `json:"items" validate:"omitempty,dive"`
	ShippingAddress models.Address `json:"shippingAddress"`
	PaymentMethod   string         `json:"paymentMethod"`
	IdempotencyKey  string         `json:"idempotencyKey" validate:"omitempty,max=128"`
}

// OrderSettings параметры расчёта итогов заказа
type OrderSettings struct {
	Currency              string
	TaxPercent            decimal.Decimal
	ShippingCharge        decimal.Decimal
	FreeShippingThreshold decimal.Decimal
	MaxUpdateAttempts     int
}

type OrderService interface {
	CreateOrder(ctx context.Context, userID string, req CheckoutRequest) (*models.Order, error)
	GetOrder(ctx context.Context, orderID, userID string) (*models.Order, error)
	ListOrders(ctx context.Context, userID string) ([]*models.Order, error)
	UpdateOrderStatus(ctx context.Context, orderID string, status models.OrderStatus, actor, note string) (*models.Order, error)
	UpdatePaymentStatus(ctx context.Context, orderID string, status models.PaymentStatus, actor, note string) (*models.Order, error)
	StartPayment(ctx context.Context, orderID, method string) (*models.Order, error)
	HandlePaymentSuccess(ctx context.Context, orderID, transactionID string) (*models.Order, error)
	HandlePaymentFailure(ctx context.Context, orderID, reason string) (*models.Order, error)
	CancelOrder(ctx context.Context, orderID, actor, note string) (*models.Order, error)
}

type orderService struct {
	log      *slog.Logger
	users    storage.UserStorage
	catalog  storage.CatalogStorage
	carts    storage.CartStorage
	orders   storage.OrderStorage
	cart     CartService
	engine   *Engine
	settings OrderSettings
	// checkouts склеивает одновременные повторы одного оформления
	checkouts singleflight.Group
	now       func() time.Time
}

func NewOrderService(
	log *slog.Logger,
	users storage.UserStorage,
	catalog storage.CatalogStorage,
	carts storage.CartStorage,
	orders storage.OrderStorage,
	cart CartService,
	engine *Engine,
	settings OrderSettings,
) OrderService {
	if settings.MaxUpdateAttempts <= 0 {
		settings.MaxUpdateAttempts = DefaultUpdateAttempts
	}
	if settings.Currency == "" {
		settings.Currency = "INR"
	}
	return &orderService{
		log:      log,
		users:    users,
		catalog:  catalog,
		carts:    carts,
		orders:   orders,
		cart:     cart,
		engine:   engine,
		settings: settings,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// orderLine проверенная строка заказа
type orderLine struct {
	unit     purchasableUnit
	quantity int
	price    decimal.Decimal
}

// CreateOrder превращает строки корзины в заказ со снимком товаров.
// Невалидные строки отбрасываются, остатки резервируются, корзина не очищается до оплаты.
func (s *orderService) CreateOrder(ctx context.Context, userID string, req CheckoutRequest) (*models.Order, error) {
	const op = "service.OrderService.CreateOrder"
	logger := s.log.With(slog.String("op", op), slog.String("userID", userID))
	logger.Info("creating order")

	user, err := s.users.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			logger.Warn("user not found")
			return nil, fmt.Errorf("%s: user %s: %w", op, userID, ErrNotFound)
		}
		logger.Error("failed to get user", slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to get user: %w", op, err)
	}
	if user.IsAdmin() {
		logger.Warn("admin attempted to purchase")
		return nil, fmt.Errorf("%s: admins may not purchase: %w", op, ErrUnavailable)
	}

	cart, err := s.carts.GetCart(ctx, userID)
	if err != nil {
		if !errors.Is(err, storage.ErrCartNotFound) {
			logger.Error("failed to get cart", slog.Any("error", err))
			return nil, fmt.Errorf("%s: failed to get cart: %w", op, err)
		}
		cart = models.NewCart(userID)
	}

	requested := req.Items
	if len(requested) == 0 {
		for _, item := range cart.Items {
			requested = append(requested, CheckoutItem{ProductID: item.ProductID, VariantID: item.VariantID, Quantity: item.Quantity})
		}
	}
	requested = mergeCheckoutItems(requested)

	// повтор того же оформления получает уже созданный заказ, остатки второй раз не списываются
	key := checkoutKey(userID, requested, req)
	v, err, _ := s.checkouts.Do(key, func() (interface{}, error) {
		existing, err := s.findPendingCheckout(ctx, userID, key)
		if err != nil {
			logger.Error("failed to look up previous checkout", slog.Any("error", err))
			return nil, err
		}
		if existing != nil {
			logger.Info("repeated checkout, returning pending order", slog.String("orderID", existing.ID))
			return existing, nil
		}
		return s.placeOrder(ctx, logger, userID, key, requested, cart, req)
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return v.(*models.Order).Clone(), nil
}

func (s *orderService) placeOrder(ctx context.Context, logger *slog.Logger, userID, key string, requested []CheckoutItem, cart *models.Cart, req CheckoutRequest) (*models.Order, error) {
	lines, err := s.validateLines(ctx, logger, requested, cart)
	if err != nil {
		return nil, err
	}
	if len(lines) == 0 {
		logger.Warn("no valid lines left")
		return nil, ErrEmptyOrder
	}

	if err := s.reserve(ctx, logger, lines); err != nil {
		return nil, err
	}

	order := s.buildOrder(userID, lines, req)
	order.CheckoutKey = key
	if err := s.orders.CreateOrder(ctx, order); err != nil {
		logger.Error("failed to create order", slog.Any("error", err))
		s.release(ctx, logger, order.Items)
		return nil, fmt.Errorf("failed to create order: %w", err)
	}

	logger.Info("order created", slog.String("orderID", order.ID), slog.String("total", order.Total.String()))
	return order, nil
}

// checkoutKey одинаков для повторов одного оформления: явный ключ клиента
// или состав строк, адрес и способ оплаты
func checkoutKey(userID string, items []CheckoutItem, req CheckoutRequest) string {
	if req.IdempotencyKey != "" {
		return uuid.NewSHA1(uuid.NameSpaceOID, []byte("key|"+userID+"|"+req.IdempotencyKey)).String()
	}

	sorted := append([]CheckoutItem(nil), items...)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].ProductID != sorted[j].ProductID {
			return sorted[i].ProductID < sorted[j].ProductID
		}
		return sorted[i].VariantID < sorted[j].VariantID
	})

	var b strings.Builder
	b.WriteString("items|" + userID)
	for _, item := range sorted {
		fmt.Fprintf(&b, "|%s/%s:%d", item.ProductID, item.VariantID, item.Quantity)
	}
	fmt.Fprintf(&b, "|%+v|%s", req.ShippingAddress, req.PaymentMethod)
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(b.String())).String()
}

// findPendingCheckout ищет неоплаченный заказ, созданный тем же оформлением
func (s *orderService) findPendingCheckout(ctx context.Context, userID, key string) (*models.Order, error) {
	orders, err := s.orders.GetOrdersByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	for _, order := range orders {
		if order.CheckoutKey == key && order.Status == models.OrderStatusPending {
			return order, nil
		}
	}
	return nil, nil
}

// mergeCheckoutItems складывает повторы одной пары, порядок первых вхождений сохраняется
func mergeCheckoutItems(items []CheckoutItem) []CheckoutItem {
	merged := make([]CheckoutItem, 0, len(items))
	index := make(map[[2]string]int, len(items))
	for _, item := range items {
		key := [2]string{item.ProductID, item.VariantID}
		if i, ok := index[key]; ok {
			merged[i].Quantity += item.Quantity
			continue
		}
		index[key] = len(merged)
		merged = append(merged, item)
	}
	return merged
}

// validateLines проверяет строки по правилам корзины. Невалидные строки пропускаются,
// ошибка возвращается только при сбое хранилища.
func (s *orderService) validateLines(ctx context.Context, logger *slog.Logger, items []CheckoutItem, cart *models.Cart) ([]orderLine, error) {
	lines := make([]orderLine, 0, len(items))
	for _, item := range items {
		if item.Quantity < 1 {
			logger.Warn("dropping line with bad quantity", slog.String("productID", item.ProductID))
			continue
		}
		unit, err := resolveUnit(ctx, s.catalog, item.ProductID, item.VariantID)
		if err != nil {
			if errors.Is(err, ErrNotFound) || errors.Is(err, ErrUnavailable) {
				logger.Warn("dropping invalid line", slog.String("productID", item.ProductID), slog.Any("reason", err))
				continue
			}
			return nil, err
		}
		if err := unit.checkStock(item.Quantity); err != nil {
			logger.Warn("dropping line", slog.String("productID", item.ProductID), slog.Any("reason", err))
			continue
		}

		// цена из корзины уже зафиксирована покупателю
		var price decimal.Decimal
		if idx := cart.FindItem(item.ProductID, item.VariantID); idx >= 0 && cart.Items[idx].PriceAtPurchase.IsPositive() {
			price = cart.Items[idx].PriceAtPurchase
		} else {
			if price, err = unit.currentPrice(ctx, s.engine); err != nil {
				return nil, err
			}
		}

		lines = append(lines, orderLine{unit: unit, quantity: item.Quantity, price: price})
	}
	return lines, nil
}

// reserve списывает остатки по всем строкам. При нехватке уже списанное возвращается.
func (s *orderService) reserve(ctx context.Context, logger *slog.Logger, lines []orderLine) error {
	for i, line := range lines {
		err := s.catalog.ReserveStock(ctx, line.unit.product.ID, line.unit.stockVariantID(), line.quantity)
		if err == nil {
			continue
		}

		for _, done := range lines[:i] {
			if relErr := s.catalog.ReleaseStock(ctx, done.unit.product.ID, done.unit.stockVariantID(), done.quantity); relErr != nil {
				logger.Error("failed to release stock", slog.String("productID", done.unit.product.ID), slog.Any("error", relErr))
			}
		}

		if errors.Is(err, storage.ErrInsufficientStock) {
			logger.Warn("stock taken by a concurrent order", slog.String("productID", line.unit.product.ID))
			available := 0
			if fresh, err := resolveUnit(ctx, s.catalog, line.unit.product.ID, line.unit.VariantID()); err == nil {
				available = fresh.Stock()
			}
			return &StockError{
				ProductID: line.unit.product.ID,
				VariantID: line.unit.VariantID(),
				Available: available,
				Requested: line.quantity,
			}
		}
		logger.Error("failed to reserve stock", slog.Any("error", err))
		return fmt.Errorf("failed to reserve stock: %w", err)
	}
	return nil
}

// release возвращает остатки по строкам заказа; ошибки только логируются
func (s *orderService) release(ctx context.Context, logger *slog.Logger, items []models.OrderItem) {
	for _, item := range items {
		variantID := ""
		if item.Variant != nil {
			variantID = item.Variant.ID
		}
		if err := s.catalog.ReleaseStock(ctx, item.Product.ID, variantID, item.Quantity); err != nil {
			logger.Error("failed to release stock",
				slog.String("productID", item.Product.ID),
				slog.String("variantID", variantID),
				slog.Any("error", err),
			)
		}
	}
}

func (s *orderService) buildOrder(userID string, lines []orderLine, req CheckoutRequest) *models.Order {
	now := s.now()
	items := make([]models.OrderItem, 0, len(lines))
	subtotal := decimal.Zero
	for _, line := range lines {
		lineTotal := line.price.Mul(decimal.NewFromInt(int64(line.quantity)))
		item := models.OrderItem{
			Product:   line.unit.product.Snapshot(),
			Name:      line.unit.DisplayName(),
			Quantity:  line.quantity,
			Price:     line.price,
			LineTotal: lineTotal,
		}
		if line.unit.variant != nil {
			item.Variant = line.unit.variant.Snapshot()
		}
		items = append(items, item)
		subtotal = subtotal.Add(lineTotal)
	}

	shipping := s.settings.ShippingCharge
	if s.settings.FreeShippingThreshold.IsPositive() && subtotal.GreaterThanOrEqual(s.settings.FreeShippingThreshold) {
		shipping = decimal.Zero
	}

	order := &models.Order{
		ID:              uuid.NewString(),
		UserID:          userID,
		Items:           items,
		Subtotal:        subtotal,
		Tax:             includedTax(subtotal, s.settings.TaxPercent),
		Shipping:        shipping,
		Total:           subtotal.Add(shipping),
		Currency:        s.settings.Currency,
		ShippingAddress: req.ShippingAddress,
		Status:          models.OrderStatusPending,
		Payment: models.Payment{
			Method: req.PaymentMethod,
			Status: models.PaymentStatusPending,
		},
		StockReserved: true,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	order.AppendHistory(string(models.OrderStatusPending), userID, "order created", now)
	return order
}

// includedTax налог, уже входящий в цены с налогом
func includedTax(amount, taxPercent decimal.Decimal) decimal.Decimal {
	if !taxPercent.IsPositive() {
		return decimal.Zero
	}
	return amount.Mul(taxPercent).Div(hundred.Add(taxPercent)).Round(2)
}

// mutate читает заказ, применяет изменение и пишет с проверкой версии.
// changed=false, если мутатор вернул errNoChange.
func (s *orderService) mutate(ctx context.Context, orderID string, fn func(order *models.Order) error) (order *models.Order, changed bool, err error) {
	err = retryOnConflict(ctx, s.settings.MaxUpdateAttempts, func() error {
		current, err := s.orders.GetOrderByID(ctx, orderID)
		if err != nil {
			if errors.Is(err, storage.ErrOrderNotFound) {
				return fmt.Errorf("order %s: %w", orderID, ErrNotFound)
			}
			return fmt.Errorf("failed to get order: %w", err)
		}
		expected := current.Version
		if err := fn(current); err != nil {
			if errors.Is(err, errNoChange) {
				order, changed = current, false
				return nil
			}
			return err
		}
		if err := s.orders.UpdateOrder(ctx, current, expected); err != nil {
			return err
		}
		order, changed = current, true
		return nil
	})
	return order, changed, err
}

// cancel переводит заказ в cancelled и снимает флаг резерва; вернуть остатки нужно после записи
func cancel(order *models.Order, actor, note string, at time.Time) (releaseStock bool) {
	order.Status = models.OrderStatusCancelled
	order.AppendHistory(string(models.OrderStatusCancelled), actor, note, at)
	if order.StockReserved {
		order.StockReserved = false
		return true
	}
	return false
}

func (s *orderService) GetOrder(ctx context.Context, orderID, userID string) (*models.Order, error) {
	const op = "service.OrderService.GetOrder"

	order, err := s.orders.GetOrderByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, storage.ErrOrderNotFound) {
			return nil, fmt.Errorf("%s: order %s: %w", op, orderID, ErrNotFound)
		}
		return nil, fmt.Errorf("%s: failed to get order: %w", op, err)
	}
	if order.UserID == userID {
		return order, nil
	}

	// чужой заказ видит только администратор
	user, err := s.users.GetUserByID(ctx, userID)
	if err != nil && !errors.Is(err, storage.ErrUserNotFound) {
		return nil, fmt.Errorf("%s: failed to get user: %w", op, err)
	}
	if user == nil || !user.IsAdmin() {
		return nil, fmt.Errorf("%s: order %s: %w", op, orderID, ErrNotFound)
	}
	return order, nil
}

// ListOrders заказы пользователя, новые первыми
func (s *orderService) ListOrders(ctx context.Context, userID string) ([]*models.Order, error) {
	const op = "service.OrderService.ListOrders"

	orders, err := s.orders.GetOrdersByUserID(ctx, userID)
	if err != nil {
		s.log.Error("failed to list orders", slog.String("op", op), slog.String("userID", userID), slog.Any("error", err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if orders == nil {
		orders = []*models.Order{}
	}
	return orders, nil
}

// UpdateOrderStatus административная смена статуса. Проверяется только допустимость значения.
func (s *orderService) UpdateOrderStatus(ctx context.Context, orderID string, status models.OrderStatus, actor, note string) (*models.Order, error) {
	const op = "service.OrderService.UpdateOrderStatus"
	logger := s.log.With(slog.String("op", op), slog.String("orderID", orderID), slog.String("status", string(status)))

	if !status.Valid() {
		logger.Warn("unknown order status")
		return nil, fmt.Errorf("%s: order status %q: %w", op, status, ErrInvalidState)
	}

	var releaseStock bool
	order, _, err := s.mutate(ctx, orderID, func(order *models.Order) error {
		releaseStock = false
		if status == models.OrderStatusCancelled {
			releaseStock = cancel(order, actor, note, s.now())
			return nil
		}
		order.Status = status
		order.AppendHistory(string(status), actor, note, s.now())
		return nil
	})
	if err != nil {
		logger.Error("failed to update order status", slog.Any("error", err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if releaseStock {
		s.release(ctx, logger, order.Items)
	}

	logger.Info("order status updated")
	return order, nil
}

// UpdatePaymentStatus административная смена статуса оплаты, только проверка значения
func (s *orderService) UpdatePaymentStatus(ctx context.Context, orderID string, status models.PaymentStatus, actor, note string) (*models.Order, error) {
	const op = "service.OrderService.UpdatePaymentStatus"
	logger := s.log.With(slog.String("op", op), slog.String("orderID", orderID), slog.String("payment_status", string(status)))

	if !status.Valid() {
		logger.Warn("unknown payment status")
		return nil, fmt.Errorf("%s: payment status %q: %w", op, status, ErrInvalidState)
	}

	order, _, err := s.mutate(ctx, orderID, func(order *models.Order) error {
		now := s.now()
		order.Payment.Status = status
		if status == models.PaymentStatusCompleted && order.Payment.PaidAt == nil {
			order.Payment.PaidAt = &now
		}
		order.AppendHistory(paymentHistoryStatus(status), actor, note, now)
		return nil
	})
	if err != nil {
		logger.Error("failed to update payment status", slog.Any("error", err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	logger.Info("payment status updated")
	return order, nil
}

func paymentHistoryStatus(status models.PaymentStatus) string {
	return "payment_" + string(status)
}

// StartPayment pending -> processing. Повторный вызов ничего не меняет.
func (s *orderService) StartPayment(ctx context.Context, orderID, method string) (*models.Order, error) {
	const op = "service.OrderService.StartPayment"
	logger := s.log.With(slog.String("op", op), slog.String("orderID", orderID))

	order, changed, err := s.mutate(ctx, orderID, func(order *models.Order) error {
		if order.Payment.Status == models.PaymentStatusProcessing {
			return errNoChange
		}
		if order.Status != models.OrderStatusPending || !order.Payment.Status.CanTransitionTo(models.PaymentStatusProcessing) {
			return fmt.Errorf("payment is %s for order in status %s: %w", order.Payment.Status, order.Status, ErrInvalidState)
		}
		if method != "" {
			order.Payment.Method = method
		}
		order.Payment.Status = models.PaymentStatusProcessing
		order.AppendHistory(paymentHistoryStatus(models.PaymentStatusProcessing), order.UserID, "payment started", s.now())
		return nil
	})
	if err != nil {
		logger.Warn("failed to start payment", slog.Any("error", err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	logger.Info("payment started", slog.Bool("changed", changed))
	return order, nil
}

// HandlePaymentSuccess оплата прошла: заказ placed, корзина покупателя очищается.
// Для уже оплаченного или закрытого заказа ничего не делает.
func (s *orderService) HandlePaymentSuccess(ctx context.Context, orderID, transactionID string) (*models.Order, error) {
	const op = "service.OrderService.HandlePaymentSuccess"
	logger := s.log.With(slog.String("op", op), slog.String("orderID", orderID), slog.String("transactionID", transactionID))
	logger.Info("handling payment success")

	order, changed, err := s.mutate(ctx, orderID, func(order *models.Order) error {
		if order.Status != models.OrderStatusPending {
			return errNoChange
		}
		now := s.now()
		order.Payment.Status = models.PaymentStatusCompleted
		order.Payment.TransactionID = transactionID
		order.Payment.PaidAt = &now
		order.Payment.FailureReason = ""
		order.Status = models.OrderStatusPlaced
		order.AppendHistory(string(models.OrderStatusPlaced), ActorPaymentProvider, "payment completed, transaction "+transactionID, now)
		return nil
	})
	if err != nil {
		logger.Error("failed to apply payment success", slog.Any("error", err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if !changed {
		if order.Status == models.OrderStatusCancelled {
			// провайдер списал деньги за отменённый заказ, нужен возврат
			logger.Warn("payment success for cancelled order ignored", slog.String("payment_status", string(order.Payment.Status)))
		} else {
			logger.Info("payment already applied", slog.String("status", string(order.Status)))
		}
		return order, nil
	}

	if _, err := s.cart.Clear(ctx, order.UserID); err != nil {
		// заказ уже оплачен, повтор вебхука корзину не очистит
		logger.Error("failed to clear cart after payment", slog.Any("error", err))
	}

	logger.Info("order placed")
	return order, nil
}

// HandlePaymentFailure оплата не прошла: заказ отменяется, корзина остаётся как была
func (s *orderService) HandlePaymentFailure(ctx context.Context, orderID, reason string) (*models.Order, error) {
	const op = "service.OrderService.HandlePaymentFailure"
	logger := s.log.With(slog.String("op", op), slog.String("orderID", orderID))
	logger.Info("handling payment failure", slog.String("reason", reason))

	var releaseStock bool
	order, changed, err := s.mutate(ctx, orderID, func(order *models.Order) error {
		releaseStock = false
		if order.Status != models.OrderStatusPending {
			return errNoChange
		}
		order.Payment.Status = models.PaymentStatusFailed
		order.Payment.FailureReason = reason
		note := "payment failed"
		if reason != "" {
			note += ": " + reason
		}
		releaseStock = cancel(order, ActorPaymentProvider, note, s.now())
		return nil
	})
	if err != nil {
		logger.Error("failed to apply payment failure", slog.Any("error", err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if !changed {
		logger.Info("payment failure ignored", slog.String("status", string(order.Status)))
		return order, nil
	}
	if releaseStock {
		s.release(ctx, logger, order.Items)
	}

	logger.Info("order cancelled after failed payment")
	return order, nil
}

// CancelOrder отмена администратором из любого незавершённого статуса
func (s *orderService) CancelOrder(ctx context.Context, orderID, actor, note string) (*models.Order, error) {
	const op = "service.OrderService.CancelOrder"
	logger := s.log.With(slog.String("op", op), slog.String("orderID", orderID), slog.String("actor", actor))

	var releaseStock bool
	order, _, err := s.mutate(ctx, orderID, func(order *models.Order) error {
		releaseStock = false
		if order.Status.IsTerminal() || !order.Status.CanTransitionTo(models.OrderStatusCancelled) {
			return fmt.Errorf("order in status %s cannot be cancelled: %w", order.Status, ErrInvalidState)
		}
		if note == "" {
			note = "cancelled by administrator"
		}
		releaseStock = cancel(order, actor, note, s.now())
		return nil
	})
	if err != nil {
		logger.Warn("failed to cancel order", slog.Any("error", err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if releaseStock {
		s.release(ctx, logger, order.Items)
	}

	logger.Info("order cancelled")
	return order, nil
}
