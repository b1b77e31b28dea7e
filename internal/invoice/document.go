// Package invoice собирает данные счёта по заказу и рисует из них PDF.
package invoice

import (
	"fmt"
	"strings"
	"time"

	"github.com/linemk/jewelry-shop/internal/domain/models"
	"github.com/shopspring/decimal"
)

// Company реквизиты продавца для шапки счёта
type Company struct {
	Name    string
	Address string
	Email   string
	TaxID   string
}

// Line строка счёта по замороженному снимку позиции заказа
type Line struct {
	Index       int
	Description string
	Details     string
	Quantity    int
	UnitPrice   decimal.Decimal
	LineTotal   decimal.Decimal
}

// Document всё, что нужно для отрисовки счёта. Каталог при отрисовке не читается.
type Document struct {
	Company         Company
	Number          string
	IssuedAt        time.Time
	OrderID         string
	OrderDate       time.Time
	Currency        string
	CustomerName    string
	CustomerEmail   string
	CustomerPhone   string
	ShippingAddress models.Address
	PaymentMethod   string
	PaymentStatus   string
	TransactionID   string
	Lines           []Line
	Subtotal        decimal.Decimal
	Tax             decimal.Decimal
	Shipping        decimal.Decimal
	Total           decimal.Decimal
}

// NewDocument строит счёт из заказа и его владельца
func NewDocument(order *models.Order, user *models.User, company Company, issuedAt time.Time) *Document {
	doc := &Document{
		Company:         company,
		Number:          Number(order.ID),
		IssuedAt:        issuedAt,
		OrderID:         order.ID,
		OrderDate:       order.CreatedAt,
		Currency:        order.Currency,
		CustomerName:    user.Name,
		CustomerEmail:   user.Email,
		CustomerPhone:   user.Phone,
		ShippingAddress: order.ShippingAddress,
		PaymentMethod:   order.Payment.Method,
		PaymentStatus:   string(order.Payment.Status),
		TransactionID:   order.Payment.TransactionID,
		Subtotal:        order.Subtotal,
		Tax:             order.Tax,
		Shipping:        order.Shipping,
		Total:           order.Total,
		Lines:           make([]Line, 0, len(order.Items)),
	}
	if doc.CustomerName == "" {
		doc.CustomerName = order.ShippingAddress.FullName
	}

	for i, item := range order.Items {
		doc.Lines = append(doc.Lines, Line{
			Index:       i + 1,
			Description: item.Name,
			Details:     itemDetails(item),
			Quantity:    item.Quantity,
			UnitPrice:   item.Price,
			LineTotal:   item.Price.Mul(decimal.NewFromInt(int64(item.Quantity))),
		})
	}
	return doc
}

// Number номер счёта выводится из id заказа, повторная отрисовка даёт тот же номер
func Number(orderID string) string {
	id := strings.ReplaceAll(orderID, "-", "")
	if len(id) > 10 {
		id = id[:10]
	}
	return "INV-" + strings.ToUpper(id)
}

// Money форматирует сумму в валюте счёта
func (d *Document) Money(v decimal.Decimal) string {
	return FormatMoney(d.Currency, v)
}

// itemDetails состав изделия: металлы и камни
func itemDetails(item models.OrderItem) string {
	metals := item.Product.Metals
	if item.Variant != nil {
		metals = item.Variant.Metals
	}

	parts := make([]string, 0, len(metals)+len(item.Product.Gemstones))
	for _, m := range metals {
		parts = append(parts, fmt.Sprintf("%s %s %sg", m.Purity, m.Type, m.Weight.String()))
	}
	for _, g := range item.Product.Gemstones {
		parts = append(parts, fmt.Sprintf("%d x %s %sct", g.Count, g.Type, g.Carat.String()))
	}
	return strings.Join(parts, ", ")
}

// AddressLines адрес доставки построчно, пустые части пропускаются
func (d *Document) AddressLines() []string {
	a := d.ShippingAddress
	cityLine := strings.TrimSpace(strings.Join(nonEmpty(a.City, a.State), ", ") + " " + a.PostalCode)
	return nonEmpty(a.FullName, a.Line1, a.Line2, cityLine, a.Country, a.Phone)
}

func nonEmpty(values ...string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
