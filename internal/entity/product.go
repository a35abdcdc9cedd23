package entity

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mesh-intelligence/pantry/pkg/record"
	"github.com/mesh-intelligence/pantry/pkg/types"
)

// Product is an item a user offers.
type Product struct {
	ID       string
	Name     string
	Price    decimal.Decimal
	Stock    int64
	OwnerID  string
	Created  time.Time
	Modified time.Time

	// ImageURL is derived from ID by AugmentProduct and never stored.
	ImageURL string
}

var ProductSchema = types.Schema{
	Table:      "products",
	PrimaryKey: "id",
	Fields: []types.Field{
		{Name: "id", Column: "id"},
		{Name: "name", Column: "name"},
		{Name: "price", Column: "price"},
		{Name: "stock", Column: "stock"},
		{Name: "owner", Column: "owner_id"},
		{Name: types.FieldCreated, Column: "created_at"},
		{Name: types.FieldModified, Column: "updated_at"},
	},
}

var productAccessors = record.Accessors[Product]{
	"id":                record.String(func(p *Product) *string { return &p.ID }),
	"name":              record.String(func(p *Product) *string { return &p.Name }),
	"price":             record.Decimal(func(p *Product) *decimal.Decimal { return &p.Price }),
	"stock":             record.Int64(func(p *Product) *int64 { return &p.Stock }),
	"owner":             record.String(func(p *Product) *string { return &p.OwnerID }),
	types.FieldCreated:  record.Time(func(p *Product) *time.Time { return &p.Created }),
	types.FieldModified: record.Time(func(p *Product) *time.Time { return &p.Modified }),
}

// NewProducts returns the mapper for products.
func NewProducts(gw types.Gateway, opts ...record.Option[Product]) (*record.Mapper[Product], error) {
	opts = append([]record.Option[Product]{
		record.WithValidator(ValidateProduct),
		record.WithAugmenter(AugmentProduct),
	}, opts...)
	return record.New(ProductSchema, productAccessors, gw, opts...)
}

// ValidateProduct requires a name and rejects negative prices and stock.
func ValidateProduct(p *Product) error {
	if strings.TrimSpace(p.Name) == "" {
		return types.NewValidationError("name", "required")
	}
	if p.Price.IsNegative() {
		return types.NewValidationError("price", "must not be negative")
	}
	if p.Stock < 0 {
		return types.NewValidationError("stock", "must not be negative")
	}
	return nil
}

// AugmentProduct derives the image URL of a stored product. The mapper runs
// it on construction and again after Insert assigns the id.
func AugmentProduct(p *Product, _ types.Row) error {
	p.ImageURL = ProductImageURL(p.ID)
	return nil
}

// ProductImageURL returns the image path for a product id, or "" for an
// unsaved product.
func ProductImageURL(id string) string {
	if id == "" {
		return ""
	}
	return "/images/products/" + id + ".png"
}
