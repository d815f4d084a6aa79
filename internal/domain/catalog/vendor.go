package catalog

import "context"

// VendorProduct is a product supplied by a vendor, with the vendor's pricing.
type VendorProduct struct {
	ID          int64   `json:"id"`
	Name        string  `json:"name"`
	ProductCode string  `json:"product_code"`
	Price       float64 `json:"price"`
	MinQty      float64 `json:"min_qty"`
	Delay       int     `json:"delay"`
	Currency    Ref     `json:"currency_id"`
}

// TaxDetail describes one side of a fiscal position tax mapping.
type TaxDetail struct {
	ID         *int64  `json:"id"`
	Name       string  `json:"name"`
	Amount     float64 `json:"amount"`
	AmountType string  `json:"amount_type"`
	TypeTaxUse string  `json:"type_tax_use"`
}

// MappedTaxDetail is a destination tax in a mapping; unlike the source it
// carries an active flag.
type MappedTaxDetail struct {
	TaxDetail
	Active bool `json:"active"`
}

// TaxMapping is a source-to-destination tax substitution configured on a
// fiscal position. Destination is null when the mapping removes the tax.
type TaxMapping struct {
	Source      TaxDetail        `json:"tax_source"`
	Destination *MappedTaxDetail `json:"tax_destination"`
}

// FiscalPositionInfo is the fiscal position header on a vendor projection.
type FiscalPositionInfo struct {
	ID     int64  `json:"id"`
	Name   string `json:"name"`
	Active bool   `json:"active"`
}

// Vendor is the full vendor/partner projection with tax and fiscal metadata.
type Vendor struct {
	ID              int64               `json:"id"`
	Name            string              `json:"name"`
	DisplayName     string              `json:"display_name"`
	Ref             string              `json:"ref"`
	VAT             string              `json:"vat"`
	VATNumber       string              `json:"vat_number"`
	CompanyRegistry string              `json:"company_registry"`
	Email           string              `json:"email"`
	Phone           string              `json:"phone"`
	Mobile          string              `json:"mobile"`
	Website         string              `json:"website"`
	Street          string              `json:"street"`
	Street2         string              `json:"street2"`
	City            string              `json:"city"`
	State           CodedRef            `json:"state_id"`
	Zip             string              `json:"zip"`
	Country         CodedRef            `json:"country_id"`
	SupplierRank    int                 `json:"supplier_rank"`
	Active          bool                `json:"active"`
	FiscalPosition  *FiscalPositionInfo `json:"fiscal_position"`
	TaxMappings     []TaxMapping        `json:"tax_mappings"`
	Products        []VendorProduct     `json:"products"`
	ImageURL        string              `json:"image_url,omitempty"`
}

// VendorRepository lists vendor projections ordered by name. Only partners
// that are companies with a positive supplier rank qualify as vendors.
type VendorRepository interface {
	List(ctx context.Context, p ListParams) ([]Vendor, error)
}
