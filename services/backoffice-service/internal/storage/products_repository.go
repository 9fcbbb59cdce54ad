package storage

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/dmonge-cr/barberia/libs/db"
	"github.com/dmonge-cr/barberia/services/backoffice-service/internal/model"
)

type ProductsRepository struct {
	pool *db.Pool
}

func NewProductsRepository(pool *db.Pool) *ProductsRepository {
	return &ProductsRepository{pool: pool}
}

const productColumns = `id, name, description, stock, unit_price, created_at`

func scanProduct(row pgx.Row) (model.Product, error) {
	var p model.Product
	err := row.Scan(&p.ID, &p.Name, &p.Description, &p.Stock, &p.UnitPrice, &p.CreatedAt)
	return p, err
}

func (r *ProductsRepository) Insert(ctx context.Context, p model.Product) (model.Product, error) {
	return scanProduct(r.pool.QueryRow(ctx, `
		INSERT INTO products (name, description, stock, unit_price)
		VALUES ($1, $2, $3, $4)
		RETURNING `+productColumns+`
	`, p.Name, p.Description, p.Stock, p.UnitPrice))
}

func (r *ProductsRepository) List(ctx context.Context, limit int) ([]model.Product, error) {
	if limit <= 0 {
		limit = 200
	}
	rows, err := r.pool.Query(ctx, `
		SELECT `+productColumns+`
		FROM products
		ORDER BY name, id
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *ProductsRepository) Update(ctx context.Context, p model.Product) (model.Product, error) {
	return scanProduct(r.pool.QueryRow(ctx, `
		UPDATE products
		SET name = $2, description = $3, stock = $4, unit_price = $5
		WHERE id = $1
		RETURNING `+productColumns+`
	`, p.ID, p.Name, p.Description, p.Stock, p.UnitPrice))
}

// AdjustStock applies a signed delta; stock never drops below zero.
func (r *ProductsRepository) AdjustStock(ctx context.Context, id int64, delta int) (model.Product, error) {
	return scanProduct(r.pool.QueryRow(ctx, `
		UPDATE products
		SET stock = GREATEST(stock + $2, 0)
		WHERE id = $1
		RETURNING `+productColumns+`
	`, id, delta))
}

func (r *ProductsRepository) Delete(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}
