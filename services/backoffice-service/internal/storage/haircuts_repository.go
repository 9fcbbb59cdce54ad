package storage

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/dmonge-cr/barberia/libs/db"
	"github.com/dmonge-cr/barberia/services/backoffice-service/internal/model"
)

type HaircutsRepository struct {
	pool *db.Pool
}

func NewHaircutsRepository(pool *db.Pool) *HaircutsRepository {
	return &HaircutsRepository{pool: pool}
}

const haircutColumns = `id, haircut_date::text, barber, client, style, price, notes, created_at`

func scanHaircut(row pgx.Row) (model.Haircut, error) {
	var h model.Haircut
	err := row.Scan(&h.ID, &h.Date, &h.Barber, &h.Client, &h.Style, &h.Price, &h.Notes, &h.CreatedAt)
	return h, err
}

func (r *HaircutsRepository) Insert(ctx context.Context, h model.Haircut) (model.Haircut, error) {
	return scanHaircut(r.pool.QueryRow(ctx, `
		INSERT INTO haircuts (haircut_date, barber, client, style, price, notes)
		VALUES ($1::date, $2, $3, $4, $5, $6)
		RETURNING `+haircutColumns+`
	`, h.Date, h.Barber, h.Client, h.Style, h.Price, h.Notes))
}

func (r *HaircutsRepository) List(ctx context.Context, from, to string, limit int) ([]model.Haircut, error) {
	if limit <= 0 {
		limit = 200
	}
	rows, err := r.pool.Query(ctx, `
		SELECT `+haircutColumns+`
		FROM haircuts
		WHERE ($1 = '' OR haircut_date >= $1::date)
		  AND ($2 = '' OR haircut_date <= $2::date)
		ORDER BY haircut_date DESC, id DESC
		LIMIT $3
	`, from, to, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Haircut
	for rows.Next() {
		h, err := scanHaircut(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, h)
	}
	return out, rows.Err()
}

func (r *HaircutsRepository) Update(ctx context.Context, h model.Haircut) (model.Haircut, error) {
	return scanHaircut(r.pool.QueryRow(ctx, `
		UPDATE haircuts
		SET haircut_date = $2::date, barber = $3, client = $4, style = $5, price = $6, notes = $7
		WHERE id = $1
		RETURNING `+haircutColumns+`
	`, h.ID, h.Date, h.Barber, h.Client, h.Style, h.Price, h.Notes))
}

func (r *HaircutsRepository) Delete(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM haircuts WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

// IsNotFound reports whether err means the target row does not exist.
func IsNotFound(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}
