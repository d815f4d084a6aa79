package tax

import "github.com/shopspring/decimal"

// AmountType enumerates the supported tax computation strategies.
type AmountType string

const (
	// AmountPercent applies Amount as a percentage of the tax base.
	AmountPercent AmountType = "percent"
	// AmountFixed applies Amount as a fixed charge per unit.
	AmountFixed AmountType = "fixed"
)

// Tax is a single tax rule applicable to a priced quantity.
type Tax struct {
	ID           int64
	Name         string
	Amount       decimal.Decimal
	AmountType   AmountType
	TypeTaxUse   string
	PriceInclude bool
	CompanyID    int64
	Active       bool
}

// FilterByCompany returns the subset of taxes belonging to the given company,
// preserving order.
func FilterByCompany(taxes []Tax, companyID int64) []Tax {
	out := make([]Tax, 0, len(taxes))
	for _, t := range taxes {
		if t.CompanyID == companyID {
			out = append(out, t)
		}
	}
	return out
}

// Mapping substitutes a destination tax for a source tax. A nil Dest removes
// the source tax entirely.
type Mapping struct {
	SrcTaxID int64
	Dest     *Tax
}

// FiscalPosition remaps one set of tax rules to another based on
// customer/jurisdiction context.
type FiscalPosition struct {
	ID       int64
	Name     string
	Active   bool
	Mappings []Mapping
}

// MapTaxes applies the fiscal position's substitution table to the given
// taxes. Unmapped taxes pass through unchanged; mapped taxes are replaced by
// their destination (or dropped when the destination is empty). Duplicate
// destinations are collapsed.
func (fp *FiscalPosition) MapTaxes(taxes []Tax) []Tax {
	if fp == nil || len(fp.Mappings) == 0 {
		return taxes
	}

	bys := make(map[int64]*Mapping, len(fp.Mappings))
	for i := range fp.Mappings {
		bys[fp.Mappings[i].SrcTaxID] = &fp.Mappings[i]
	}

	out := make([]Tax, 0, len(taxes))
	seen := make(map[int64]bool, len(taxes))
	for _, t := range taxes {
		m, ok := bys[t.ID]
		if !ok {
			if !seen[t.ID] {
				seen[t.ID] = true
				out = append(out, t)
			}
			continue
		}
		if m.Dest == nil {
			continue
		}
		if !seen[m.Dest.ID] {
			seen[m.Dest.ID] = true
			out = append(out, *m.Dest)
		}
	}
	return out
}
