package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/multierr"

	"adsconsole/internal/domain"
)

// AdStore implements domain.AdsRepository on a SQL database.
type AdStore struct {
	db *DB
}

func NewAdStore(db *DB) *AdStore {
	return &AdStore{db: db}
}

const adColumns = `id, site, position, sort_order, content`

func (s *AdStore) List(ctx context.Context, site domain.Site) ([]domain.Block, error) {
	return s.query(ctx, s.db.sql.DB,
		`SELECT `+adColumns+` FROM ads WHERE site = ? ORDER BY position ASC, sort_order ASC`, site)
}

// UpsertBatch replaces the zone in one transaction: blocks carrying an id are
// updated (or inserted under that id), the rest get fresh ids, and rows of the
// zone missing from the batch are deleted.
func (s *AdStore) UpsertBatch(ctx context.Context, site domain.Site, zone domain.Zone, blocks []domain.Block) (out []domain.Block, err error) {
	tx, err := s.db.sql.DB.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin: %w", err)
	}
	defer func() {
		if err != nil {
			err = multierr.Append(err, tx.Rollback())
		}
	}()

	ids := make([]any, 0, len(blocks))
	for i, b := range blocks {
		id := b.Identity.ID()
		if id == "" {
			id = uuid.New().String()
		} else {
			res, err := tx.ExecContext(ctx, s.db.sql.Rebind(
				`UPDATE ads SET position = ?, sort_order = ?, content = ?, updated_at = ? WHERE id = ? AND site = ?`),
				zone, i, b.Content, now(), id, site)
			if err != nil {
				return nil, fmt.Errorf("update ad %s: %w", id, err)
			}
			if n, _ := res.RowsAffected(); n > 0 {
				ids = append(ids, id)
				continue
			}
			var owner string
			err = tx.QueryRowContext(ctx, s.db.sql.Rebind(`SELECT site FROM ads WHERE id = ?`), id).Scan(&owner)
			if err == nil {
				return nil, domain.Validation("upsert ad", fmt.Errorf("ad %s belongs to another site", id))
			}
			if !errors.Is(err, sql.ErrNoRows) {
				return nil, fmt.Errorf("look up ad %s: %w", id, err)
			}
		}
		if _, err := tx.ExecContext(ctx, s.db.sql.Rebind(
			`INSERT INTO ads (id, site, position, sort_order, content, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?, ?)`),
			id, site, zone, i, b.Content, now(), now()); err != nil {
			return nil, fmt.Errorf("insert ad: %w", err)
		}
		ids = append(ids, id)
	}

	del := `DELETE FROM ads WHERE site = ? AND position = ?`
	args := []any{site, zone}
	if len(ids) > 0 {
		del += ` AND id NOT IN (` + strings.TrimSuffix(strings.Repeat("?, ", len(ids)), ", ") + `)`
		args = append(args, ids...)
	}
	if _, err := tx.ExecContext(ctx, s.db.sql.Rebind(del), args...); err != nil {
		return nil, fmt.Errorf("prune zone: %w", err)
	}

	out, err = s.query(ctx, tx,
		`SELECT `+adColumns+` FROM ads WHERE site = ? AND position = ? ORDER BY sort_order ASC`, site, zone)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return out, nil
}

func (s *AdStore) Delete(ctx context.Context, id string) error {
	res, err := s.db.sql.DB.ExecContext(ctx, s.db.sql.Rebind(`DELETE FROM ads WHERE id = ?`), id)
	if err != nil {
		return fmt.Errorf("delete ad: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("delete ad %s: %w", id, domain.ErrNotFound)
	}
	return nil
}

type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func (s *AdStore) query(ctx context.Context, q querier, query string, args ...any) ([]domain.Block, error) {
	rows, err := q.QueryContext(ctx, s.db.sql.Rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("list ads: %w", err)
	}
	defer rows.Close()

	blocks := []domain.Block{}
	for rows.Next() {
		var (
			rec domain.AdRecord
			id  string
		)
		if err := rows.Scan(&id, &rec.Site, &rec.Position, &rec.Order, &rec.Content); err != nil {
			return nil, err
		}
		rec.ID = id
		blocks = append(blocks, rec.Block())
	}
	return blocks, rows.Err()
}

// IsNotFound reports whether err means the ad did not exist.
func IsNotFound(err error) bool {
	return errors.Is(err, domain.ErrNotFound) || errors.Is(err, sql.ErrNoRows)
}
