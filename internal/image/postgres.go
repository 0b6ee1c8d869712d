package image

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresRepository persists gallery records in PostgreSQL.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository creates a PostgresRepository with the given pool.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Insert stores a record.
func (r *PostgresRepository) Insert(ctx context.Context, rec Record) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO images (id, url, asset_id, file_name, uploaded_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		rec.ID, rec.URL, rec.AssetID, rec.FileName, rec.UploadedAt,
	)
	if err != nil {
		return fmt.Errorf("insert image: %w", err)
	}
	return nil
}

// Delete removes a record by ID.
func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM images WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete image: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// List returns all records, most-recent first. IDs are monotonic (xid), so
// the ID tiebreak keeps records uploaded in the same instant stable.
func (r *PostgresRepository) List(ctx context.Context) ([]Record, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, url, asset_id, file_name, uploaded_at
		 FROM images
		 ORDER BY uploaded_at DESC, id DESC`)
	if err != nil {
		return nil, fmt.Errorf("list images: %w", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var rec Record
		if err := rows.Scan(&rec.ID, &rec.URL, &rec.AssetID, &rec.FileName, &rec.UploadedAt); err != nil {
			return nil, fmt.Errorf("scan image row: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate image rows: %w", err)
	}
	return records, nil
}
