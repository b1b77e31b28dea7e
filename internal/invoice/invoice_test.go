package invoice_test

import (
	"bytes"
	"testing"
	"time"

	"github.com/linemk/jewelry-shop/internal/domain/models"
	"github.com/linemk/jewelry-shop/internal/invoice"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatINR(t *testing.T) {
	cases := map[string]string{
		"0":         "0.00",
		"999":       "999.00",
		"1000":      "1,000.00",
		"26780":     "26,780.00",
		"11062.2":   "11,062.20",
		"1234567.5": "12,34,567.50",
		"123456789": "12,34,56,789.00",
		"-4500.456": "-4,500.46",
	}
	for in, want := range cases {
		assert.Equal(t, want, invoice.FormatINR(decimal.RequireFromString(in)), in)
	}
}

func TestFormatMoney(t *testing.T) {
	assert.Equal(t, "Rs. 12,34,567.00", invoice.FormatMoney("INR", decimal.NewFromInt(1234567)))
	assert.Equal(t, "Rs. 5.00", invoice.FormatMoney("", decimal.NewFromInt(5)))
	assert.Equal(t, "USD 1,234,567.00", invoice.FormatMoney("usd", decimal.NewFromInt(1234567)))
}

func testOrder() (*models.Order, *models.User) {
	created := time.Date(2026, 3, 14, 10, 30, 0, 0, time.UTC)
	order := &models.Order{
		ID:     "5f0c7c3e-8a9b-4d7e-9a51-0c7d2b3c4e5f",
		UserID: "u1",
		Items: []models.OrderItem{
			{
				Product: models.ProductSnapshot{
					ID:   "ring-1",
					Name: "Solitaire Ring",
					Gemstones: []models.Gemstone{
						{Type: "diamond", Carat: decimal.RequireFromString("0.5"), Count: 1, UnitPrice: decimal.NewFromInt(20000)},
					},
				},
				Variant: &models.VariantSnapshot{
					ID:   "size-7",
					Name: "Size 7",
					Metals: []models.MetalComponent{
						{Type: "gold", Purity: "22K", Weight: decimal.NewFromInt(5)},
					},
				},
				Name:      "Solitaire Ring — Size 7",
				Quantity:  2,
				Price:     decimal.NewFromInt(26780),
				LineTotal: decimal.NewFromInt(53560),
			},
		},
		Subtotal: decimal.NewFromInt(53560),
		Tax:      decimal.RequireFromString("1560.00"),
		Shipping: decimal.Zero,
		Total:    decimal.NewFromInt(53560),
		Currency: "INR",
		ShippingAddress: models.Address{
			FullName: "Asha Rao", Line1: "12 MG Road", City: "Bengaluru", State: "KA", PostalCode: "560001", Country: "IN",
		},
		Status:    models.OrderStatusPlaced,
		Payment:   models.Payment{Method: "upi", Status: models.PaymentStatusCompleted, TransactionID: "txn_1"},
		CreatedAt: created,
	}
	user := &models.User{ID: "u1", Name: "Asha Rao", Email: "asha@example.com"}
	return order, user
}

func TestNewDocument(t *testing.T) {
	order, user := testOrder()
	doc := invoice.NewDocument(order, user, invoice.Company{Name: "Aurum Jewels"}, order.CreatedAt)

	assert.Equal(t, "INV-5F0C7C3E8A", doc.Number)
	require.Len(t, doc.Lines, 1)
	line := doc.Lines[0]
	assert.Equal(t, 1, line.Index)
	assert.True(t, decimal.NewFromInt(53560).Equal(line.LineTotal))
	// состав берётся из варианта, камни из товара
	assert.Equal(t, "22K gold 5g, 1 x diamond 0.5ct", line.Details)
	assert.Equal(t, []string{"Asha Rao", "12 MG Road", "Bengaluru, KA 560001", "IN"}, doc.AddressLines())
	assert.Equal(t, "Rs. 53,560.00", doc.Money(doc.Total))
}

func TestPDFRenderer_Render(t *testing.T) {
	order, user := testOrder()
	doc := invoice.NewDocument(order, user, invoice.Company{
		Name:    "Aurum Jewels",
		Address: "1 Jewellers Lane, Mumbai",
		Email:   "billing@aurum.example",
		TaxID:   "27ABCDE1234F1Z5",
	}, order.CreatedAt)

	data, err := invoice.NewPDFRenderer().Render(doc)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, []byte("%PDF-")))
	assert.Greater(t, len(data), 500)
}
