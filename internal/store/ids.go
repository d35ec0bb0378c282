package store

import (
	"context"
	"crypto/rand"
	"encoding/base32"
	"errors"
	"strings"
)

// newRandomID returns prefix-<suffix> where suffix is 8 chars of base32 (lowercase, no padding).
// 8 chars base32 ~= 40 bits (~1 trillion) of space.
func newRandomID(prefix string) (string, error) {
	var b [5]byte // 40 bits -> 8 base32 chars
	if _, err := rand.Read(b[:]); err != nil {
		return "", err
	}
	enc := base32.StdEncoding.WithPadding(base32.NoPadding)
	suffix := strings.ToLower(enc.EncodeToString(b[:]))
	return prefix + "-" + suffix, nil
}

// NewID returns a fresh id with the given prefix that no actor, reusable block or
// document uses yet.
func (s Store) NewID(ctx context.Context, prefix string) (string, error) {
	db, err := s.openSQLite(ctx)
	if err != nil {
		return "", err
	}
	defer db.Close()

	for range 8 {
		id, err := newRandomID(prefix)
		if err != nil {
			return "", err
		}
		var n int
		if err := db.QueryRowContext(ctx, `SELECT
			(SELECT COUNT(1) FROM actors WHERE id = ?) +
			(SELECT COUNT(1) FROM reusable_blocks WHERE id = ?) +
			(SELECT COUNT(1) FROM documents WHERE id = ?)`, id, id, id).Scan(&n); err != nil {
			return "", err
		}
		if n == 0 {
			return id, nil
		}
	}
	return "", errors.New("could not allocate a unique id")
}
