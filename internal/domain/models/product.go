package models

import "github.com/mamadbah2/packtrack/internal/repository/rowstore"

// ProductType distinguishes plain catalog products from bundles, whose barcode
// stands for a fixed recipe of component products.
type ProductType string

const (
	ProductTypeSingle ProductType = "single"
	ProductTypeBundle ProductType = "bundle"
)

// Product is one catalog entry. StockQuantity is meaningful for single
// products only; a bundle's stock is implied by its components.
type Product struct {
	ID            string      `json:"id"`
	Barcode       string      `json:"barcode"`
	Name          string      `json:"name"`
	Type          ProductType `json:"type"`
	StockQuantity int         `json:"stock_quantity"`
}

// IsBundle reports whether scanning this product means consuming its recipe.
func (p Product) IsBundle() bool {
	return p.Type == ProductTypeBundle
}

// Label returns a human-readable "name (barcode)" used in stock error messages.
func (p Product) Label() string {
	if p.Name == "" {
		return p.Barcode
	}
	return p.Name + " (" + p.Barcode + ")"
}

// ProductFromRow maps a product row into its model.
func ProductFromRow(row rowstore.Row) Product {
	return Product{
		ID:            row.ID(),
		Barcode:       rowstore.String(row, "barcode"),
		Name:          rowstore.String(row, "name"),
		Type:          ProductType(rowstore.String(row, "type")),
		StockQuantity: rowstore.Int(row, "stock_quantity"),
	}
}

// ProductComponent is one recipe edge: consuming the parent bundle consumes
// Quantity units of the child product. Recipes are authored elsewhere and are
// read-only for the packaging engine.
type ProductComponent struct {
	ParentProductID string `json:"parent_product_id"`
	ChildProductID  string `json:"child_product_id"`
	Quantity        int    `json:"quantity"`
}

// ProductComponentFromRow maps a component row into its model.
func ProductComponentFromRow(row rowstore.Row) ProductComponent {
	return ProductComponent{
		ParentProductID: rowstore.String(row, "parent_product_id"),
		ChildProductID:  rowstore.String(row, "child_product_id"),
		Quantity:        rowstore.Int(row, "quantity"),
	}
}
