package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/softguidetech/karage/internal/domain/catalog"
)

const (
	listProductsSQL = `SELECT p.id, p.name, p.description, p.description_purchase, p.description_sale,
			p.type, p.category_id, p.category_name,
			p.list_price, p.standard_price,
			u.id, u.name, up.id, up.name,
			p.barcode, p.default_code, p.sale_ok, p.purchase_ok, p.active,
			p.weight, p.volume, p.image_url
		FROM products p
		LEFT JOIN uoms u ON u.id = p.uom_id
		LEFT JOIN uoms up ON up.id = p.uom_po_id
		WHERE NOT $3 OR p.active
		ORDER BY p.name
		LIMIT CASE WHEN $1 > 0 THEN $1 END OFFSET $2`

	listVariantsSQL = `SELECT product_id, id, default_code, barcode, weight, volume
		FROM product_variants WHERE product_id = ANY($1) ORDER BY id`

	listSuppliersSQL = `SELECT s.product_id, s.partner_id, pr.name, s.price,
			s.currency_id, s.currency_name, s.min_qty, s.delay
		FROM product_suppliers s
		JOIN partners pr ON pr.id = s.partner_id
		WHERE s.product_id = ANY($1) ORDER BY s.id`
)

var _ catalog.ProductRepository = (*ProductRepository)(nil)

// ProductRepository implements catalog.ProductRepository backed by PostgreSQL.
type ProductRepository struct {
	pool *pgxpool.Pool
}

// NewProductRepository returns a ProductRepository that uses the given pool.
func NewProductRepository(pool *pgxpool.Pool) *ProductRepository {
	return &ProductRepository{pool: pool}
}

// List returns product projections ordered by name, with nested variants and
// supplier pricing fetched in two follow-up batch queries.
func (r *ProductRepository) List(ctx context.Context, p catalog.ListParams) ([]catalog.Product, error) {
	rows, err := r.pool.Query(ctx, listProductsSQL, p.Limit, p.Offset, p.ActiveOnly)
	if err != nil {
		return nil, fmt.Errorf("listing products: %w", err)
	}

	products, err := pgx.CollectRows(rows, scanProduct)
	if err != nil {
		return nil, fmt.Errorf("listing products: %w", err)
	}
	if len(products) == 0 {
		return products, nil
	}

	ids := make([]int64, len(products))
	index := make(map[int64]*catalog.Product, len(products))
	for i := range products {
		ids[i] = products[i].ID
		index[products[i].ID] = &products[i]
	}

	if err := r.attachVariants(ctx, ids, index); err != nil {
		return nil, err
	}
	if err := r.attachSuppliers(ctx, ids, index); err != nil {
		return nil, err
	}
	return products, nil
}

func (r *ProductRepository) attachVariants(ctx context.Context, ids []int64, index map[int64]*catalog.Product) error {
	rows, err := r.pool.Query(ctx, listVariantsSQL, ids)
	if err != nil {
		return fmt.Errorf("listing product variants: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			productID int64
			v         catalog.Variant
		)
		if err := rows.Scan(&productID, &v.ID, &v.DefaultCode, &v.Barcode, &v.Weight, &v.Volume); err != nil {
			return fmt.Errorf("scanning product variant: %w", err)
		}
		if p, ok := index[productID]; ok {
			p.Variants = append(p.Variants, v)
		}
	}
	return rows.Err()
}

func (r *ProductRepository) attachSuppliers(ctx context.Context, ids []int64, index map[int64]*catalog.Product) error {
	rows, err := r.pool.Query(ctx, listSuppliersSQL, ids)
	if err != nil {
		return fmt.Errorf("listing product suppliers: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			productID int64
			s         catalog.Supplier
		)
		if err := rows.Scan(&productID, &s.ID, &s.Name, &s.Price,
			&s.Currency.ID, &s.Currency.Name, &s.MinQty, &s.Delay); err != nil {
			return fmt.Errorf("scanning product supplier: %w", err)
		}
		if p, ok := index[productID]; ok {
			p.Suppliers = append(p.Suppliers, s)
		}
	}
	return rows.Err()
}

func scanProduct(row pgx.CollectableRow) (catalog.Product, error) {
	var p catalog.Product
	err := row.Scan(
		&p.ID, &p.Name, &p.Description, &p.DescriptionPurchase, &p.DescriptionSale,
		&p.Type, &p.CategID.ID, &p.CategID.Name,
		&p.ListPrice, &p.StandardPrice,
		&p.UoMID.ID, &p.UoMID.Name, &p.UoMPoID.ID, &p.UoMPoID.Name,
		&p.Barcode, &p.DefaultCode, &p.SaleOK, &p.PurchaseOK, &p.Active,
		&p.Weight, &p.Volume, &p.ImageURL,
	)
	if err != nil {
		return p, err
	}

	p.Variants = []catalog.Variant{}
	p.Suppliers = []catalog.Supplier{}
	p.Categories = []catalog.Category{}
	if p.CategID.ID != nil {
		name := ""
		if p.CategID.Name != nil {
			name = *p.CategID.Name
		}
		p.Categories = append(p.Categories, catalog.Category{ID: *p.CategID.ID, Name: name})
	}
	return p, nil
}
