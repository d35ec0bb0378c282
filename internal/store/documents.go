package store

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"reblock-cli/internal/model"
)

func (s Store) ListDocuments(ctx context.Context) ([]model.Document, error) {
	db, err := s.openSQLite(ctx)
	if err != nil {
		return nil, err
	}
	defer db.Close()

	rows, err := db.QueryContext(ctx, `SELECT id, title, content, updated_at_unixms FROM documents ORDER BY updated_at_unixms DESC, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.Document{}
	for rows.Next() {
		var d model.Document
		var ms int64
		if err := rows.Scan(&d.ID, &d.Title, &d.Content, &ms); err != nil {
			return nil, err
		}
		d.UpdatedAt = time.UnixMilli(ms).UTC()
		out = append(out, d)
	}
	return out, rows.Err()
}

func (s Store) GetDocument(ctx context.Context, id string) (model.Document, error) {
	id = strings.TrimSpace(id)
	db, err := s.openSQLite(ctx)
	if err != nil {
		return model.Document{}, err
	}
	defer db.Close()

	var d model.Document
	var ms int64
	err = db.QueryRowContext(ctx, `SELECT id, title, content, updated_at_unixms FROM documents WHERE id = ?`, id).
		Scan(&d.ID, &d.Title, &d.Content, &ms)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Document{}, NotFoundError{Kind: "document", ID: id}
	}
	if err != nil {
		return model.Document{}, err
	}
	d.UpdatedAt = time.UnixMilli(ms).UTC()
	return d, nil
}

func (s Store) PutDocument(ctx context.Context, d model.Document) (model.Document, error) {
	d.ID = strings.TrimSpace(d.ID)
	if d.ID == "" {
		return model.Document{}, errors.New("document id is empty")
	}
	db, err := s.openSQLite(ctx)
	if err != nil {
		return model.Document{}, err
	}
	defer db.Close()

	d.UpdatedAt = time.Now().UTC()
	_, err = db.ExecContext(ctx, `INSERT OR REPLACE INTO documents(id, title, content, updated_at_unixms) VALUES(?, ?, ?, ?)`,
		d.ID, d.Title, d.Content, d.UpdatedAt.UnixMilli())
	if err != nil {
		return model.Document{}, err
	}
	d.UpdatedAt = time.UnixMilli(d.UpdatedAt.UnixMilli()).UTC()
	return d, nil
}
