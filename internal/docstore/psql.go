package docstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var _ Store = (*PsqlStore)(nil)

// PsqlStore keeps documents as JSONB rows of the document table (see db/migrations).
type PsqlStore struct {
	db *pgxpool.Pool
}

func NewPsqlStore(db *pgxpool.Pool) *PsqlStore {
	return &PsqlStore{
		db: db,
	}
}

func (s *PsqlStore) Set(ctx context.Context, path Path, data []byte) error {
	_, err := s.db.Exec(
		ctx,
		`INSERT INTO document (path, collection, data, updated_at)
		VALUES ($1, $2, $3, now())
		ON CONFLICT (path) DO UPDATE SET data = EXCLUDED.data, updated_at = now();`,
		string(path), string(path.Parent()), data,
	)
	if err != nil {
		return fmt.Errorf("upsert %s: %w", path, err)
	}
	return nil
}

func (s *PsqlStore) Get(ctx context.Context, path Path) ([]byte, error) {
	var data []byte
	err := s.db.QueryRow(
		ctx,
		`SELECT data FROM document WHERE path = $1;`,
		string(path),
	).Scan(&data)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get %s: %w", path, err)
	}
	return data, nil
}

func (s *PsqlStore) Delete(ctx context.Context, path Path) error {
	if _, err := s.db.Exec(
		ctx,
		`DELETE FROM document WHERE path = $1;`,
		string(path),
	); err != nil {
		return fmt.Errorf("delete %s: %w", path, err)
	}
	return nil
}

func (s *PsqlStore) Query(ctx context.Context, q Query) ([][]byte, error) {
	var (
		rows pgx.Rows
		err  error
	)
	switch {
	case q.OrderBy == "":
		rows, err = s.db.Query(
			ctx,
			`SELECT data FROM document WHERE collection = $1 ORDER BY path;`,
			string(q.Collection),
		)
	case q.Descending:
		rows, err = s.db.Query(
			ctx,
			`SELECT data FROM document
			WHERE collection = $1 AND data->>$2 IS NOT NULL
			ORDER BY (data->>$2)::timestamptz DESC, path;`,
			string(q.Collection), q.OrderBy,
		)
	default:
		rows, err = s.db.Query(
			ctx,
			`SELECT data FROM document
			WHERE collection = $1 AND data->>$2 IS NOT NULL
			ORDER BY (data->>$2)::timestamptz ASC, path;`,
			string(q.Collection), q.OrderBy,
		)
	}
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", q.Collection, err)
	}
	defer rows.Close()

	docs := [][]byte{}
	for rows.Next() {
		var data []byte
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("scan %s: %w", q.Collection, err)
		}
		docs = append(docs, data)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows %s: %w", q.Collection, err)
	}

	return docs, nil
}
