package storage

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/dmonge-cr/barberia/libs/db"
	"github.com/dmonge-cr/barberia/services/backoffice-service/internal/model"
)

// LedgerRepository stores both incomes and expenses; the kind column keeps the
// two sides apart while sharing one shape.
type LedgerRepository struct {
	pool *db.Pool
}

func NewLedgerRepository(pool *db.Pool) *LedgerRepository {
	return &LedgerRepository{pool: pool}
}

const ledgerColumns = `id, kind, entry_date::text, concept, amount, notes, created_at`

func scanLedgerEntry(row pgx.Row) (model.LedgerEntry, error) {
	var e model.LedgerEntry
	err := row.Scan(&e.ID, &e.Kind, &e.Date, &e.Concept, &e.Amount, &e.Notes, &e.CreatedAt)
	return e, err
}

func (r *LedgerRepository) Insert(ctx context.Context, e model.LedgerEntry) (model.LedgerEntry, error) {
	return scanLedgerEntry(r.pool.QueryRow(ctx, `
		INSERT INTO ledger_entries (kind, entry_date, concept, amount, notes)
		VALUES ($1, $2::date, $3, $4, $5)
		RETURNING `+ledgerColumns+`
	`, e.Kind, e.Date, e.Concept, e.Amount, e.Notes))
}

func (r *LedgerRepository) List(ctx context.Context, kind model.LedgerKind, from, to string, limit int) ([]model.LedgerEntry, error) {
	if limit <= 0 {
		limit = 200
	}
	rows, err := r.pool.Query(ctx, `
		SELECT `+ledgerColumns+`
		FROM ledger_entries
		WHERE kind = $1
		  AND ($2 = '' OR entry_date >= $2::date)
		  AND ($3 = '' OR entry_date <= $3::date)
		ORDER BY entry_date DESC, id DESC
		LIMIT $4
	`, kind, from, to, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.LedgerEntry
	for rows.Next() {
		e, err := scanLedgerEntry(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (r *LedgerRepository) Update(ctx context.Context, e model.LedgerEntry) (model.LedgerEntry, error) {
	return scanLedgerEntry(r.pool.QueryRow(ctx, `
		UPDATE ledger_entries
		SET entry_date = $3::date, concept = $4, amount = $5, notes = $6
		WHERE id = $1 AND kind = $2
		RETURNING `+ledgerColumns+`
	`, e.ID, e.Kind, e.Date, e.Concept, e.Amount, e.Notes))
}

func (r *LedgerRepository) Delete(ctx context.Context, kind model.LedgerKind, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM ledger_entries WHERE id = $1 AND kind = $2`, id, kind)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}
