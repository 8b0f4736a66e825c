package attachments

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/notekeeper/internal/common"
	"github.com/dmitrijs2005/notekeeper/internal/dbx"
)

// SQLiteRepository stores attachment records in SQLite.
type SQLiteRepository struct {
	db dbx.DBTX
}

func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

func (r *SQLiteRepository) Add(ctx context.Context, rec *Record) error {
	query := `INSERT INTO attachments (id, note_id, ciphertext, wrapped_key, nonce, size, created_at)
			values (?, ?, ?, ?, ?, ?, ?)`
	_, err := r.db.ExecContext(ctx, query,
		rec.ID, rec.NoteID, rec.Ciphertext, rec.WrappedKey, rec.Nonce, rec.Size, rec.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert attachment: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) Get(ctx context.Context, id string) (*Record, error) {
	query := `select id, note_id, ciphertext, wrapped_key, nonce, size, created_at
			from attachments where id=?`
	row := r.db.QueryRowContext(ctx, query, id)

	rec := &Record{}
	err := row.Scan(&rec.ID, &rec.NoteID, &rec.Ciphertext, &rec.WrappedKey, &rec.Nonce, &rec.Size, &rec.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: attachment %s", common.ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load attachment: %w", err)
	}
	return rec, nil
}

func (r *SQLiteRepository) Delete(ctx context.Context, id string) error {
	query := `delete from attachments where id=?`
	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to delete attachment: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("%w: attachment %s", common.ErrNotFound, id)
	}
	return nil
}
