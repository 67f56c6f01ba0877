package storage

import (
	"context"
	"database/sql"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
)

const (
	recordsTable = "publication_records"
	urlsTable    = "published_urls"
)

// sqlStore is the database/sql backend shared by SQLite and Postgres. Only
// the schema and the placeholder format differ between the two.
type sqlStore struct {
	db *sql.DB
	sb sq.StatementBuilderType
}

func (s *sqlStore) Load(ctx context.Context) ([]Record, error) {
	query, args, err := s.sb.
		Select("id", "url", "title", "recorded_at", "fingerprint").
		From(recordsTable).
		OrderBy("seq").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build load query: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query records: %w", err)
	}
	defer rows.Close()

	var recs []Record
	for rows.Next() {
		var rec Record
		var fingerprint string
		if err := rows.Scan(&rec.ID, &rec.URL, &rec.Title, &rec.Timestamp, &fingerprint); err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}
		rec.TitleFingerprint = splitFingerprint(fingerprint)
		recs = append(recs, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}
	return recs, nil
}

func (s *sqlStore) Append(ctx context.Context, rec Record) error {
	return s.insertRecord(ctx, s.db, rec)
}

func (s *sqlStore) insertRecord(ctx context.Context, ex sq.ExecerContext, rec Record) error {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	query, args, err := s.sb.
		Insert(recordsTable).
		Columns("id", "url", "title", "recorded_at", "fingerprint").
		Values(rec.ID, rec.URL, rec.Title, rec.Timestamp, joinFingerprint(rec.TitleFingerprint)).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}
	if _, err := ex.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("insert record: %w", err)
	}
	return nil
}

func (s *sqlStore) Prune(ctx context.Context, keep func(Record) bool) (int, error) {
	recs, err := s.Load(ctx)
	if err != nil {
		return 0, err
	}

	var drop []string
	for _, rec := range recs {
		if !keep(rec) {
			drop = append(drop, rec.ID)
		}
	}
	if len(drop) == 0 {
		return 0, nil
	}

	query, args, err := s.sb.Delete(recordsTable).Where(sq.Eq{"id": drop}).ToSql()
	if err != nil {
		return 0, fmt.Errorf("build prune: %w", err)
	}
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("prune records: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return len(drop), nil
	}
	return int(n), nil
}

func (s *sqlStore) RewriteAll(ctx context.Context, recs []Record) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		if err := s.deleteAll(ctx, tx, recordsTable); err != nil {
			return err
		}
		for _, rec := range recs {
			if err := s.insertRecord(ctx, tx, rec); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *sqlStore) LoadURLs(ctx context.Context) ([]string, error) {
	query, args, err := s.sb.Select("url").From(urlsTable).OrderBy("seq").ToSql()
	if err != nil {
		return nil, fmt.Errorf("build url query: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query urls: %w", err)
	}
	defer rows.Close()

	var urls []string
	for rows.Next() {
		var u string
		if err := rows.Scan(&u); err != nil {
			return nil, fmt.Errorf("scan url: %w", err)
		}
		urls = append(urls, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}
	return urls, nil
}

func (s *sqlStore) AppendURL(ctx context.Context, url string) error {
	return s.insertURL(ctx, s.db, url)
}

func (s *sqlStore) insertURL(ctx context.Context, ex sq.ExecerContext, url string) error {
	query, args, err := s.sb.Insert(urlsTable).Columns("url").Values(url).ToSql()
	if err != nil {
		return fmt.Errorf("build url insert: %w", err)
	}
	if _, err := ex.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("insert url: %w", err)
	}
	return nil
}

func (s *sqlStore) RewriteURLs(ctx context.Context, urls []string) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		if err := s.deleteAll(ctx, tx, urlsTable); err != nil {
			return err
		}
		for _, u := range urls {
			if err := s.insertURL(ctx, tx, u); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *sqlStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func (s *sqlStore) deleteAll(ctx context.Context, tx *sql.Tx, table string) error {
	query, args, err := s.sb.Delete(table).ToSql()
	if err != nil {
		return fmt.Errorf("build delete: %w", err)
	}
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("clear %s: %w", table, err)
	}
	return nil
}

func (s *sqlStore) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}
