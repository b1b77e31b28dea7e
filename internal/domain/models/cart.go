package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// CartItem строка корзины. PriceAtPurchase фиксируется при добавлении.
type CartItem struct {
	ProductID       string          `json:"productId" bson:"productId"`
	VariantID       string          `json:"variantId" bson:"variantId"`
	Name            string          `json:"name" bson:"name"`
	PriceAtPurchase decimal.Decimal `json:"priceAtPurchase" bson:"priceAtPurchase"`
	Quantity        int             `json:"quantity" bson:"quantity"`
}

// Cart корзина пользователя, одна на пользователя
type Cart struct {
	UserID      string          `json:"userId" bson:"userId"`
	Items       []CartItem      `json:"items" bson:"items"`
	TotalItems  int             `json:"totalItems" bson:"totalItems"`
	TotalAmount decimal.Decimal `json:"totalAmount" bson:"totalAmount"`
	Version     int64           `json:"-" bson:"version"`
	UpdatedAt   time.Time       `json:"-" bson:"updatedAt"`
}

func NewCart(userID string) *Cart {
	return &Cart{
		UserID:      userID,
		Items:       []CartItem{},
		TotalAmount: decimal.Zero,
		UpdatedAt:   time.Now().UTC(),
	}
}

// Recalculate пересчитывает итоги только по текущим строкам
func (c *Cart) Recalculate() {
	total := decimal.Zero
	count := 0
	for _, item := range c.Items {
		total = total.Add(item.PriceAtPurchase.Mul(decimal.NewFromInt(int64(item.Quantity))))
		count += item.Quantity
	}
	c.TotalItems = count
	c.TotalAmount = total
}

// FindItem возвращает индекс строки или -1
func (c *Cart) FindItem(productID, variantID string) int {
	for i, item := range c.Items {
		if item.ProductID == productID && item.VariantID == variantID {
			return i
		}
	}
	return -1
}

// QuantityOf суммарное количество пары (товар, вариант) во всей корзине
func (c *Cart) QuantityOf(productID, variantID string) int {
	total := 0
	for _, item := range c.Items {
		if item.ProductID == productID && item.VariantID == variantID {
			total += item.Quantity
		}
	}
	return total
}

func (c *Cart) Clone() *Cart {
	cp := *c
	cp.Items = append([]CartItem{}, c.Items...)
	return &cp
}
