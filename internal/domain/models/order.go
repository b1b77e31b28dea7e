package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// OrderStatus статус выполнения заказа
type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusPlaced    OrderStatus = "placed"
	OrderStatusShipped   OrderStatus = "shipped"
	OrderStatusCompleted OrderStatus = "completed"
	OrderStatusCancelled OrderStatus = "cancelled"
)

// orderTransitions разрешённые переходы статуса заказа
var orderTransitions = map[OrderStatus][]OrderStatus{
	OrderStatusPending: {OrderStatusPlaced, OrderStatusCancelled},
	OrderStatusPlaced:  {OrderStatusShipped, OrderStatusCancelled},
	OrderStatusShipped: {OrderStatusCompleted, OrderStatusCancelled},
}

func (s OrderStatus) Valid() bool {
	switch s {
	case OrderStatusPending, OrderStatusPlaced, OrderStatusShipped, OrderStatusCompleted, OrderStatusCancelled:
		return true
	}
	return false
}

// IsTerminal completed и cancelled конечные
func (s OrderStatus) IsTerminal() bool {
	return s == OrderStatusCompleted || s == OrderStatusCancelled
}

func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	for _, allowed := range orderTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// PaymentStatus статус оплаты, отдельный автомат от статуса заказа
type PaymentStatus string

const (
	PaymentStatusPending           PaymentStatus = "pending"
	PaymentStatusProcessing        PaymentStatus = "processing"
	PaymentStatusCompleted         PaymentStatus = "completed"
	PaymentStatusFailed            PaymentStatus = "failed"
	PaymentStatusRefunded          PaymentStatus = "refunded"
	PaymentStatusPartiallyRefunded PaymentStatus = "partially_refunded"
)

// провайдер может прислать итог без промежуточного processing
var paymentTransitions = map[PaymentStatus][]PaymentStatus{
	PaymentStatusPending:    {PaymentStatusProcessing, PaymentStatusCompleted, PaymentStatusFailed},
	PaymentStatusProcessing: {PaymentStatusCompleted, PaymentStatusFailed},
	PaymentStatusCompleted:  {PaymentStatusRefunded, PaymentStatusPartiallyRefunded},
}

func (s PaymentStatus) Valid() bool {
	switch s {
	case PaymentStatusPending, PaymentStatusProcessing, PaymentStatusCompleted,
		PaymentStatusFailed, PaymentStatusRefunded, PaymentStatusPartiallyRefunded:
		return true
	}
	return false
}

func (s PaymentStatus) CanTransitionTo(next PaymentStatus) bool {
	for _, allowed := range paymentTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Address адрес доставки
type Address struct {
	FullName   string `json:"fullName" bson:"fullName"`
	Phone      string `json:"phone" bson:"phone"`
	Line1      string `json:"line1" bson:"line1"`
	Line2      string `json:"line2,omitempty" bson:"line2,omitempty"`
	City       string `json:"city" bson:"city"`
	State      string `json:"state" bson:"state"`
	PostalCode string `json:"postalCode" bson:"postalCode"`
	Country    string `json:"country" bson:"country"`
}

// Payment данные об оплате заказа
type Payment struct {
	Method        string        `json:"method" bson:"method"`
	Status        PaymentStatus `json:"paymentStatus" bson:"paymentStatus"`
	TransactionID string        `json:"transactionId,omitempty" bson:"transactionId,omitempty"`
	PaidAt        *time.Time    `json:"paidAt,omitempty" bson:"paidAt,omitempty"`
	FailureReason string        `json:"failureReason,omitempty" bson:"failureReason,omitempty"`
}

// HistoryEntry запись журнала заказа, только добавляется
type HistoryEntry struct {
	Status    string    `json:"status" bson:"status"`
	Timestamp time.Time `json:"timestamp" bson:"timestamp"`
	Actor     string    `json:"actor" bson:"actor"`
	Note      string    `json:"note,omitempty" bson:"note,omitempty"`
}

// OrderItem замороженная копия товара и варианта с ценой, по которой он продан
type OrderItem struct {
	Product   ProductSnapshot  `json:"product" bson:"product"`
	Variant   *VariantSnapshot `json:"variant,omitempty" bson:"variant,omitempty"`
	Name      string           `json:"name" bson:"name"`
	Quantity  int              `json:"quantity" bson:"quantity"`
	Price     decimal.Decimal  `json:"price" bson:"price"`
	LineTotal decimal.Decimal  `json:"lineTotal" bson:"lineTotal"`
}

// VariantID идентификатор единицы покупки, для товара без вариантов совпадает с id товара
func (i *OrderItem) VariantID() string {
	if i.Variant != nil {
		return i.Variant.ID
	}
	return i.Product.ID
}

// Order заказ. После создания меняются только статусы, оплата, журнал и ссылка на счёт.
type Order struct {
	ID              string          `json:"id" bson:"_id"`
	UserID          string          `json:"userId" bson:"userId"`
	Items           []OrderItem     `json:"items" bson:"items"`
	Subtotal        decimal.Decimal `json:"subtotal" bson:"subtotal"`
	Tax             decimal.Decimal `json:"tax" bson:"tax"`
	Shipping        decimal.Decimal `json:"shipping" bson:"shipping"`
	Total           decimal.Decimal `json:"total" bson:"total"`
	Currency        string          `json:"currency" bson:"currency"`
	ShippingAddress Address         `json:"shippingAddress" bson:"shippingAddress"`
	Status          OrderStatus     `json:"status" bson:"status"`
	Payment         Payment         `json:"payment" bson:"payment"`
	History         []HistoryEntry  `json:"orderHistory" bson:"orderHistory"`
	InvoiceURL      string          `json:"invoiceUrl,omitempty" bson:"invoiceUrl"`
	StockReserved   bool            `json:"-" bson:"stockReserved"`
	// CheckoutKey отпечаток оформления, по нему повтор находит уже созданный заказ
	CheckoutKey     string          `json:"-" bson:"checkoutKey"`
	Version         int64           `json:"-" bson:"version"`
	CreatedAt       time.Time       `json:"createdAt" bson:"createdAt"`
	UpdatedAt       time.Time       `json:"updatedAt" bson:"updatedAt"`
}

// AppendHistory добавляет запись в журнал, существующие записи не трогаются
func (o *Order) AppendHistory(status, actor, note string, at time.Time) {
	o.History = append(o.History, HistoryEntry{
		Status:    status,
		Timestamp: at,
		Actor:     actor,
		Note:      note,
	})
}

// Clone глубокая копия заказа
func (o *Order) Clone() *Order {
	c := *o
	c.Items = make([]OrderItem, len(o.Items))
	for i, item := range o.Items {
		item.Product.Metals = cloneMetals(item.Product.Metals)
		item.Product.Gemstones = append([]Gemstone(nil), item.Product.Gemstones...)
		if item.Variant != nil {
			v := *item.Variant
			v.Metals = cloneMetals(v.Metals)
			item.Variant = &v
		}
		c.Items[i] = item
	}
	c.History = append([]HistoryEntry(nil), o.History...)
	if o.Payment.PaidAt != nil {
		paidAt := *o.Payment.PaidAt
		c.Payment.PaidAt = &paidAt
	}
	return &c
}
