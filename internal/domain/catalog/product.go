package catalog

import "context"

// Variant is a sellable variation of a product.
type Variant struct {
	ID          int64   `json:"id"`
	DefaultCode string  `json:"default_code"`
	Barcode     string  `json:"barcode"`
	Weight      float64 `json:"weight"`
	Volume      float64 `json:"volume"`
}

// Category is a product category entry.
type Category struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// Supplier is a vendor pricing record attached to a product.
type Supplier struct {
	ID       int64   `json:"id"`
	Name     string  `json:"name"`
	Price    float64 `json:"price"`
	Currency Ref     `json:"currency_id"`
	MinQty   float64 `json:"min_qty"`
	Delay    int     `json:"delay"`
}

// Product is the full product projection including nested variants,
// categories, and supplier pricing.
type Product struct {
	ID                  int64      `json:"id"`
	Name                string     `json:"name"`
	Description         string     `json:"description"`
	DescriptionPurchase string     `json:"description_purchase"`
	DescriptionSale     string     `json:"description_sale"`
	Type                string     `json:"type"`
	CategID             Ref        `json:"categ_id"`
	Categories          []Category `json:"categories"`
	ListPrice           float64    `json:"list_price"`
	StandardPrice       float64    `json:"standard_price"`
	UoMID               Ref        `json:"uom_id"`
	UoMPoID             Ref        `json:"uom_po_id"`
	Barcode             string     `json:"barcode"`
	DefaultCode         string     `json:"default_code"`
	SaleOK              bool       `json:"sale_ok"`
	PurchaseOK          bool       `json:"purchase_ok"`
	Active              bool       `json:"active"`
	Weight              float64    `json:"weight"`
	Volume              float64    `json:"volume"`
	Variants            []Variant  `json:"variants"`
	Suppliers           []Supplier `json:"suppliers"`
	ImageURL            string     `json:"image_url,omitempty"`
}

// ProductRepository lists product projections ordered by name.
type ProductRepository interface {
	List(ctx context.Context, p ListParams) ([]Product, error)
}
