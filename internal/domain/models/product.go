package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// MetalComponent металл в составе изделия: тип, проба и вес в граммах
type MetalComponent struct {
	Type   string          `json:"type" bson:"type"`
	Purity string          `json:"purity" bson:"purity"`
	Weight decimal.Decimal `json:"weight" bson:"weight"`
}

// Gemstone камни изделия, цена за штуку задаётся в каталоге
type Gemstone struct {
	Type      string          `json:"type" bson:"type"`
	Carat     decimal.Decimal `json:"carat" bson:"carat"`
	Count     int             `json:"count" bson:"count"`
	UnitPrice decimal.Decimal `json:"unitPrice" bson:"unitPrice"`
}

// Variant вариант товара (например, размер кольца) со своим остатком и ценой
type Variant struct {
	ID            string           `json:"id" bson:"id"`
	Name          string           `json:"name" bson:"name"`
	StockQuantity int              `json:"stockQuantity" bson:"stockQuantity"`
	MakingCharge  decimal.Decimal  `json:"makingCharge" bson:"makingCharge"`
	Metals        []MetalComponent `json:"metals" bson:"metals"`
	TotalPrice    decimal.Decimal  `json:"totalPrice" bson:"totalPrice"` // последняя рассчитанная цена, может устареть
}

// Product товар каталога. Товар без вариантов сам является единицей покупки.
type Product struct {
	ID            string           `json:"id" bson:"_id"`
	Name          string           `json:"name" bson:"name"`
	CategoryID    string           `json:"categoryId" bson:"categoryId"`
	MakingCharge  decimal.Decimal  `json:"makingCharge" bson:"makingCharge"`
	Metals        []MetalComponent `json:"metals" bson:"metals"`
	Gemstones     []Gemstone       `json:"gemstones" bson:"gemstones"`
	Variants      []Variant        `json:"variants,omitempty" bson:"variants"`
	IsActive      bool             `json:"isActive" bson:"isActive"`
	StockQuantity int              `json:"stockQuantity" bson:"stockQuantity"`
	TotalPrice    decimal.Decimal  `json:"totalPrice" bson:"totalPrice"`
	UpdatedAt     time.Time        `json:"updatedAt" bson:"updatedAt"`
}

func (p *Product) HasVariants() bool {
	return len(p.Variants) > 0
}

// FindVariant ищет вариант по идентификатору
func (p *Product) FindVariant(id string) (*Variant, bool) {
	for i := range p.Variants {
		if p.Variants[i].ID == id {
			return &p.Variants[i], true
		}
	}
	return nil, false
}

// Clone возвращает глубокую копию товара
func (p *Product) Clone() *Product {
	c := *p
	c.Metals = cloneMetals(p.Metals)
	c.Gemstones = append([]Gemstone(nil), p.Gemstones...)
	if p.Variants != nil {
		c.Variants = make([]Variant, len(p.Variants))
		for i, v := range p.Variants {
			v.Metals = cloneMetals(v.Metals)
			c.Variants[i] = v
		}
	}
	return &c
}

func cloneMetals(in []MetalComponent) []MetalComponent {
	if in == nil {
		return nil
	}
	return append([]MetalComponent(nil), in...)
}

// ProductSnapshot копия товара на момент оформления заказа
type ProductSnapshot struct {
	ID           string           `json:"id" bson:"id"`
	Name         string           `json:"name" bson:"name"`
	CategoryID   string           `json:"categoryId" bson:"categoryId"`
	MakingCharge decimal.Decimal  `json:"makingCharge" bson:"makingCharge"`
	Metals       []MetalComponent `json:"metals" bson:"metals"`
	Gemstones    []Gemstone       `json:"gemstones" bson:"gemstones"`
	TotalPrice   decimal.Decimal  `json:"totalPrice" bson:"totalPrice"`
}

// VariantSnapshot копия варианта на момент оформления заказа
type VariantSnapshot struct {
	ID           string           `json:"id" bson:"id"`
	Name         string           `json:"name" bson:"name"`
	MakingCharge decimal.Decimal  `json:"makingCharge" bson:"makingCharge"`
	Metals       []MetalComponent `json:"metals" bson:"metals"`
	TotalPrice   decimal.Decimal  `json:"totalPrice" bson:"totalPrice"`
}

// Snapshot копирует товар по значению, без ссылок на данные каталога
func (p *Product) Snapshot() ProductSnapshot {
	return ProductSnapshot{
		ID:           p.ID,
		Name:         p.Name,
		CategoryID:   p.CategoryID,
		MakingCharge: p.MakingCharge,
		Metals:       cloneMetals(p.Metals),
		Gemstones:    append([]Gemstone(nil), p.Gemstones...),
		TotalPrice:   p.TotalPrice,
	}
}

func (v *Variant) Snapshot() *VariantSnapshot {
	return &VariantSnapshot{
		ID:           v.ID,
		Name:         v.Name,
		MakingCharge: v.MakingCharge,
		Metals:       cloneMetals(v.Metals),
		TotalPrice:   v.TotalPrice,
	}
}

// MetalPrice справочная цена за грамм для пары (тип металла, проба)
type MetalPrice struct {
	MetalType    string          `json:"metalType" bson:"metalType"`
	Purity       string          `json:"purity" bson:"purity"`
	PricePerGram decimal.Decimal `json:"pricePerGram" bson:"pricePerGram"`
	UpdatedAt    time.Time       `json:"updatedAt" bson:"updatedAt"`
}
