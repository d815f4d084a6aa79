// Package catalog holds the read-side projections of the reference data the
// API exposes: units of measure, products with variants and suppliers, and
// vendor partners with fiscal metadata. The structs carry the exact JSON
// shape of the wire format; repositories fill them directly.
package catalog

import "context"

// Ref is a nested reference to another record. Both fields are null when the
// reference is not set.
type Ref struct {
	ID   *int64  `json:"id"`
	Name *string `json:"name"`
}

// CodedRef is a Ref with an additional short code (states, countries).
type CodedRef struct {
	ID   *int64  `json:"id"`
	Name *string `json:"name"`
	Code *string `json:"code"`
}

// UoM is a unit of measure projection.
type UoM struct {
	ID        int64   `json:"id"`
	Name      string  `json:"name"`
	Category  Ref     `json:"category_id"`
	Factor    float64 `json:"factor"`
	FactorInv float64 `json:"factor_inv"`
	Rounding  float64 `json:"rounding"`
	Type      string  `json:"uom_type"`
	Active    bool    `json:"active"`
}

// ListParams bound catalog list queries.
type ListParams struct {
	// Limit of 0 means no limit.
	Limit      int
	Offset     int
	ActiveOnly bool
}

// UoMRepository lists units of measure ordered by name.
type UoMRepository interface {
	List(ctx context.Context, p ListParams) ([]UoM, error)
}
