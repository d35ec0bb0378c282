package store

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"reblock-cli/internal/model"
)

const reusableColumns = `id, title, content, owner_actor_id, created_at_unixms, updated_at_unixms`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanReusableBlock(r rowScanner) (model.ReusableBlock, error) {
	var rb model.ReusableBlock
	var createdMs, updatedMs int64
	if err := r.Scan(&rb.ID, &rb.Title, &rb.Content, &rb.OwnerActorID, &createdMs, &updatedMs); err != nil {
		return model.ReusableBlock{}, err
	}
	rb.CreatedAt = time.UnixMilli(createdMs).UTC()
	rb.UpdatedAt = time.UnixMilli(updatedMs).UTC()
	return rb, nil
}

// ListReusableBlocks returns every persisted reusable block ordered by title.
func (s Store) ListReusableBlocks(ctx context.Context) ([]model.ReusableBlock, error) {
	db, err := s.openSQLite(ctx)
	if err != nil {
		return nil, err
	}
	defer db.Close()

	rows, err := db.QueryContext(ctx, `SELECT `+reusableColumns+` FROM reusable_blocks ORDER BY title COLLATE NOCASE, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.ReusableBlock{}
	for rows.Next() {
		rb, err := scanReusableBlock(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rb)
	}
	return out, rows.Err()
}

// GetReusableBlock returns NotFoundError when id is unknown.
func (s Store) GetReusableBlock(ctx context.Context, id string) (model.ReusableBlock, error) {
	id = strings.TrimSpace(id)
	db, err := s.openSQLite(ctx)
	if err != nil {
		return model.ReusableBlock{}, err
	}
	defer db.Close()

	rb, err := scanReusableBlock(db.QueryRowContext(ctx, `SELECT `+reusableColumns+` FROM reusable_blocks WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return model.ReusableBlock{}, NotFoundError{Kind: "reusable block", ID: id}
	}
	return rb, err
}

// PutReusableBlock inserts or replaces a reusable block. The stored record is never
// temporary; CreatedAt is kept from an existing row.
func (s Store) PutReusableBlock(ctx context.Context, rb model.ReusableBlock) (model.ReusableBlock, error) {
	rb.ID = strings.TrimSpace(rb.ID)
	if rb.ID == "" {
		return model.ReusableBlock{}, errors.New("reusable block id is empty")
	}
	db, err := s.openSQLite(ctx)
	if err != nil {
		return model.ReusableBlock{}, err
	}
	defer db.Close()

	now := time.Now().UTC()
	if rb.CreatedAt.IsZero() {
		rb.CreatedAt = now
	}
	rb.UpdatedAt = now
	rb.IsTemporary = false

	_, err = db.ExecContext(ctx, `
		INSERT INTO reusable_blocks(`+reusableColumns+`) VALUES(?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			title = excluded.title,
			content = excluded.content,
			owner_actor_id = excluded.owner_actor_id,
			updated_at_unixms = excluded.updated_at_unixms
	`, rb.ID, rb.Title, rb.Content, rb.OwnerActorID, rb.CreatedAt.UnixMilli(), rb.UpdatedAt.UnixMilli())
	if err != nil {
		return model.ReusableBlock{}, err
	}
	return s.getReusableBlock(ctx, db, rb.ID)
}

func (s Store) getReusableBlock(ctx context.Context, db *sql.DB, id string) (model.ReusableBlock, error) {
	rb, err := scanReusableBlock(db.QueryRowContext(ctx, `SELECT `+reusableColumns+` FROM reusable_blocks WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return model.ReusableBlock{}, NotFoundError{Kind: "reusable block", ID: id}
	}
	return rb, err
}

// DeleteReusableBlock returns NotFoundError when id is unknown.
func (s Store) DeleteReusableBlock(ctx context.Context, id string) error {
	id = strings.TrimSpace(id)
	db, err := s.openSQLite(ctx)
	if err != nil {
		return err
	}
	defer db.Close()

	res, err := db.ExecContext(ctx, `DELETE FROM reusable_blocks WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return NotFoundError{Kind: "reusable block", ID: id}
	}
	return nil
}
