package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/softguidetech/karage/internal/domain/catalog"
)

const listUoMsSQL = `SELECT u.id, u.name, c.id, c.name,
		u.factor, u.factor_inv, u.rounding, u.uom_type, u.active
	FROM uoms u
	LEFT JOIN uom_categories c ON c.id = u.category_id
	WHERE NOT $3 OR u.active
	ORDER BY u.name
	LIMIT CASE WHEN $1 > 0 THEN $1 END OFFSET $2`

var _ catalog.UoMRepository = (*UoMRepository)(nil)

// UoMRepository implements catalog.UoMRepository backed by PostgreSQL.
type UoMRepository struct {
	pool *pgxpool.Pool
}

// NewUoMRepository returns a UoMRepository that uses the given pool.
func NewUoMRepository(pool *pgxpool.Pool) *UoMRepository {
	return &UoMRepository{pool: pool}
}

// List returns units of measure ordered by name.
func (r *UoMRepository) List(ctx context.Context, p catalog.ListParams) ([]catalog.UoM, error) {
	rows, err := r.pool.Query(ctx, listUoMsSQL, p.Limit, p.Offset, p.ActiveOnly)
	if err != nil {
		return nil, fmt.Errorf("listing uoms: %w", err)
	}
	return pgx.CollectRows(rows, scanUoM)
}

func scanUoM(row pgx.CollectableRow) (catalog.UoM, error) {
	var u catalog.UoM
	err := row.Scan(
		&u.ID, &u.Name, &u.Category.ID, &u.Category.Name,
		&u.Factor, &u.FactorInv, &u.Rounding, &u.Type, &u.Active,
	)
	return u, err
}
