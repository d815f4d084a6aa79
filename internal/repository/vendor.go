package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/softguidetech/karage/internal/domain/catalog"
)

const (
	listVendorsSQL = `SELECT p.id, p.name, p.display_name, p.ref, p.vat, p.company_registry,
			p.email, p.phone, p.mobile, p.website,
			p.street, p.street2, p.city,
			p.state_id, p.state_name, p.state_code,
			p.zip,
			p.country_id, p.country_name, p.country_code,
			p.supplier_rank, p.active, p.image_url,
			f.id, f.name, f.active
		FROM partners p
		LEFT JOIN fiscal_positions f ON f.id = p.fiscal_position_id
		WHERE p.is_company AND p.supplier_rank > 0 AND (NOT $3 OR p.active)
		ORDER BY p.name
		LIMIT CASE WHEN $1 > 0 THEN $1 END OFFSET $2`

	listVendorProductsSQL = `SELECT s.partner_id, s.product_id, pr.name, s.product_code,
			s.price, s.min_qty, s.delay, s.currency_id, s.currency_name
		FROM product_suppliers s
		JOIN products pr ON pr.id = s.product_id
		WHERE s.partner_id = ANY($1) ORDER BY s.id`

	listFiscalMappingsSQL = `SELECT m.fiscal_position_id,
			src.id, src.name, src.amount, src.amount_type, src.type_tax_use,
			dst.id, dst.name, dst.amount, dst.amount_type, dst.type_tax_use, dst.active
		FROM fiscal_position_taxes m
		JOIN taxes src ON src.id = m.tax_src_id
		LEFT JOIN taxes dst ON dst.id = m.tax_dest_id
		WHERE m.fiscal_position_id = ANY($1)
		ORDER BY m.tax_src_id`
)

var _ catalog.VendorRepository = (*VendorRepository)(nil)

// VendorRepository implements catalog.VendorRepository backed by PostgreSQL.
type VendorRepository struct {
	pool *pgxpool.Pool
}

// NewVendorRepository returns a VendorRepository that uses the given pool.
func NewVendorRepository(pool *pgxpool.Pool) *VendorRepository {
	return &VendorRepository{pool: pool}
}

// List returns vendor projections ordered by name. Supplied products and
// fiscal position tax mappings are fetched in follow-up batch queries.
func (r *VendorRepository) List(ctx context.Context, p catalog.ListParams) ([]catalog.Vendor, error) {
	rows, err := r.pool.Query(ctx, listVendorsSQL, p.Limit, p.Offset, p.ActiveOnly)
	if err != nil {
		return nil, fmt.Errorf("listing vendors: %w", err)
	}

	vendors, err := pgx.CollectRows(rows, scanVendor)
	if err != nil {
		return nil, fmt.Errorf("listing vendors: %w", err)
	}
	if len(vendors) == 0 {
		return vendors, nil
	}

	ids := make([]int64, len(vendors))
	index := make(map[int64]*catalog.Vendor, len(vendors))
	fpIDs := make([]int64, 0, len(vendors))
	fpIndex := make(map[int64][]*catalog.Vendor)
	for i := range vendors {
		v := &vendors[i]
		ids[i] = v.ID
		index[v.ID] = v
		if v.FiscalPosition != nil {
			if _, seen := fpIndex[v.FiscalPosition.ID]; !seen {
				fpIDs = append(fpIDs, v.FiscalPosition.ID)
			}
			fpIndex[v.FiscalPosition.ID] = append(fpIndex[v.FiscalPosition.ID], v)
		}
	}

	if err := r.attachProducts(ctx, ids, index); err != nil {
		return nil, err
	}
	if len(fpIDs) > 0 {
		if err := r.attachTaxMappings(ctx, fpIDs, fpIndex); err != nil {
			return nil, err
		}
	}
	return vendors, nil
}

func (r *VendorRepository) attachProducts(ctx context.Context, ids []int64, index map[int64]*catalog.Vendor) error {
	rows, err := r.pool.Query(ctx, listVendorProductsSQL, ids)
	if err != nil {
		return fmt.Errorf("listing vendor products: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			partnerID int64
			vp        catalog.VendorProduct
		)
		if err := rows.Scan(&partnerID, &vp.ID, &vp.Name, &vp.ProductCode,
			&vp.Price, &vp.MinQty, &vp.Delay, &vp.Currency.ID, &vp.Currency.Name); err != nil {
			return fmt.Errorf("scanning vendor product: %w", err)
		}
		if v, ok := index[partnerID]; ok {
			v.Products = append(v.Products, vp)
		}
	}
	return rows.Err()
}

func (r *VendorRepository) attachTaxMappings(ctx context.Context, fpIDs []int64, fpIndex map[int64][]*catalog.Vendor) error {
	rows, err := r.pool.Query(ctx, listFiscalMappingsSQL, fpIDs)
	if err != nil {
		return fmt.Errorf("listing fiscal position tax mappings: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			fpID int64
			m    catalog.TaxMapping

			dstID         *int64
			dstName       *string
			dstAmount     *float64
			dstAmountType *string
			dstTaxUse     *string
			dstActive     *bool
		)
		if err := rows.Scan(&fpID,
			&m.Source.ID, &m.Source.Name, &m.Source.Amount, &m.Source.AmountType, &m.Source.TypeTaxUse,
			&dstID, &dstName, &dstAmount, &dstAmountType, &dstTaxUse, &dstActive); err != nil {
			return fmt.Errorf("scanning tax mapping: %w", err)
		}

		if dstID != nil {
			dst := &catalog.MappedTaxDetail{Active: *dstActive}
			dst.ID = dstID
			dst.Name = *dstName
			dst.Amount = *dstAmount
			dst.AmountType = *dstAmountType
			dst.TypeTaxUse = *dstTaxUse
			m.Destination = dst
		}

		for _, v := range fpIndex[fpID] {
			v.TaxMappings = append(v.TaxMappings, m)
		}
	}
	return rows.Err()
}

func scanVendor(row pgx.CollectableRow) (catalog.Vendor, error) {
	var (
		v        catalog.Vendor
		fpID     *int64
		fpName   *string
		fpActive *bool
	)
	err := row.Scan(
		&v.ID, &v.Name, &v.DisplayName, &v.Ref, &v.VAT, &v.CompanyRegistry,
		&v.Email, &v.Phone, &v.Mobile, &v.Website,
		&v.Street, &v.Street2, &v.City,
		&v.State.ID, &v.State.Name, &v.State.Code,
		&v.Zip,
		&v.Country.ID, &v.Country.Name, &v.Country.Code,
		&v.SupplierRank, &v.Active, &v.ImageURL,
		&fpID, &fpName, &fpActive,
	)
	if err != nil {
		return v, err
	}

	v.VATNumber = v.VAT
	v.TaxMappings = []catalog.TaxMapping{}
	v.Products = []catalog.VendorProduct{}
	if fpID != nil {
		v.FiscalPosition = &catalog.FiscalPositionInfo{ID: *fpID, Name: *fpName, Active: *fpActive}
	}
	return v, nil
}
