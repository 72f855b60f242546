package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	_ "modernc.org/sqlite" // registers the "sqlite" database/sql driver

	"github.com/cardmeta/bindex/internal/model"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS bins (
	code             TEXT PRIMARY KEY,
	category         TEXT NOT NULL DEFAULT '',
	reloadable       TEXT NOT NULL DEFAULT '',
	international    TEXT NOT NULL DEFAULT '',
	max_balance      INTEGER,
	company          TEXT NOT NULL DEFAULT '',
	country          TEXT NOT NULL DEFAULT '',
	customer_service TEXT NOT NULL DEFAULT '',
	distributor      TEXT NOT NULL DEFAULT '',
	issuer           TEXT NOT NULL DEFAULT '',
	card_type        TEXT NOT NULL DEFAULT '',
	website_url      TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS submissions (
	id               INTEGER PRIMARY KEY AUTOINCREMENT,
	code             TEXT NOT NULL,
	category         TEXT NOT NULL DEFAULT '',
	reloadable       TEXT NOT NULL DEFAULT '',
	international    TEXT NOT NULL DEFAULT '',
	max_balance      INTEGER,
	company          TEXT NOT NULL DEFAULT '',
	country          TEXT NOT NULL DEFAULT '',
	customer_service TEXT NOT NULL DEFAULT '',
	distributor      TEXT NOT NULL DEFAULT '',
	issuer           TEXT NOT NULL DEFAULT '',
	card_type        TEXT NOT NULL DEFAULT '',
	website_url      TEXT NOT NULL DEFAULT ''
);
`

// SQLite is the embedded single-file backend, the default for
// zero-configuration deployments. AUTOINCREMENT on submissions.id guarantees
// ids are never reused after removal.
type SQLite struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewSQLite opens (or creates) the database file at path and bootstraps the
// schema. The connection pool is capped at one connection, which serializes
// writes at the driver level and sidesteps SQLITE_BUSY under concurrent
// handlers and the chat worker.
func NewSQLite(ctx context.Context, path string, logger *slog.Logger) (*SQLite, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("storage: open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)

	for _, pragma := range []string{`PRAGMA journal_mode = WAL`, `PRAGMA busy_timeout = 5000`} {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("storage: sqlite pragma: %w", err)
		}
	}
	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("storage: sqlite schema: %w", err)
	}

	logger.Info("storage: sqlite ready", "path", path)
	return &SQLite{db: db, logger: logger}, nil
}

const binColumns = `code, category, reloadable, international, max_balance,
	company, country, customer_service, distributor, issuer, card_type, website_url`

func (s *SQLite) GetBin(ctx context.Context, code string) (model.BinRecord, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+binColumns+` FROM bins WHERE code = ?`, code)
	rec, err := scanBinRow(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.BinRecord{}, ErrNotFound
	}
	if err != nil {
		return model.BinRecord{}, fmt.Errorf("storage: get bin: %w", err)
	}
	return rec, nil
}

func (s *SQLite) CreateBin(ctx context.Context, rec model.BinRecord) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO bins (`+binColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		binArgs(rec)...)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return ErrConflict
		}
		return fmt.Errorf("storage: create bin: %w", err)
	}
	return nil
}

func (s *SQLite) PutBin(ctx context.Context, rec model.BinRecord) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO bins (`+binColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (code) DO UPDATE SET
			category = excluded.category,
			reloadable = excluded.reloadable,
			international = excluded.international,
			max_balance = excluded.max_balance,
			company = excluded.company,
			country = excluded.country,
			customer_service = excluded.customer_service,
			distributor = excluded.distributor,
			issuer = excluded.issuer,
			card_type = excluded.card_type,
			website_url = excluded.website_url`,
		binArgs(rec)...)
	if err != nil {
		return fmt.Errorf("storage: put bin: %w", err)
	}
	return nil
}

func (s *SQLite) UpdateBin(ctx context.Context, code string, patch model.BinPatch) (model.BinRecord, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return model.BinRecord{}, fmt.Errorf("storage: begin update: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	row := tx.QueryRowContext(ctx,
		`SELECT `+binColumns+` FROM bins WHERE code = ?`, code)
	rec, err := scanBinRow(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.BinRecord{}, ErrNotFound
	}
	if err != nil {
		return model.BinRecord{}, fmt.Errorf("storage: update bin: %w", err)
	}

	rec = patch.Apply(rec)
	if _, err := tx.ExecContext(ctx,
		`UPDATE bins SET category = ?, reloadable = ?, international = ?,
			max_balance = ?, company = ?, country = ?, customer_service = ?,
			distributor = ?, issuer = ?, card_type = ?, website_url = ?
		 WHERE code = ?`,
		rec.Category, rec.Reloadable, rec.International, rec.MaxBalance,
		rec.Company, rec.Country, rec.CustomerService, rec.Distributor,
		rec.Issuer, rec.CardType, rec.WebsiteURL, code,
	); err != nil {
		return model.BinRecord{}, fmt.Errorf("storage: update bin: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return model.BinRecord{}, fmt.Errorf("storage: commit update: %w", err)
	}
	return rec, nil
}

func (s *SQLite) DeleteBin(ctx context.Context, code string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM bins WHERE code = ?`, code)
	if err != nil {
		return fmt.Errorf("storage: delete bin: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("storage: delete bin: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLite) AppendSubmission(ctx context.Context, sub model.Submission) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO submissions (`+binColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		submissionArgs(sub)...)
	if err != nil {
		return 0, fmt.Errorf("storage: append submission: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("storage: append submission: %w", err)
	}
	return id, nil
}

func (s *SQLite) ListSubmissions(ctx context.Context) ([]model.Submission, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, `+binColumns+` FROM submissions ORDER BY id ASC`)
	if err != nil {
		return nil, fmt.Errorf("storage: list submissions: %w", err)
	}
	defer rows.Close()

	var out []model.Submission
	for rows.Next() {
		sub, err := scanSubmission(rows)
		if err != nil {
			return nil, fmt.Errorf("storage: list submissions: %w", err)
		}
		out = append(out, sub)
	}
	return out, rows.Err()
}

func (s *SQLite) GetSubmission(ctx context.Context, id int64) (model.Submission, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, `+binColumns+` FROM submissions WHERE id = ?`, id)
	sub, err := scanSubmission(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Submission{}, ErrNotFound
	}
	if err != nil {
		return model.Submission{}, fmt.Errorf("storage: get submission: %w", err)
	}
	return sub, nil
}

func (s *SQLite) RemoveSubmission(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM submissions WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("storage: remove submission: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("storage: remove submission: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLite) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *SQLite) Close() {
	if err := s.db.Close(); err != nil {
		s.logger.Warn("storage: close sqlite", "error", err)
	}
}

// scanner is satisfied by both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanBinRow(s scanner) (model.BinRecord, error) {
	var rec model.BinRecord
	var mb sql.NullInt64
	if err := s.Scan(
		&rec.Code, &rec.Category, &rec.Reloadable, &rec.International, &mb,
		&rec.Company, &rec.Country, &rec.CustomerService, &rec.Distributor,
		&rec.Issuer, &rec.CardType, &rec.WebsiteURL,
	); err != nil {
		return model.BinRecord{}, err
	}
	if mb.Valid {
		rec.MaxBalance = &mb.Int64
	}
	return rec, nil
}

func scanSubmission(s scanner) (model.Submission, error) {
	var sub model.Submission
	var mb sql.NullInt64
	if err := s.Scan(
		&sub.ID, &sub.Code, &sub.Category, &sub.Reloadable, &sub.International, &mb,
		&sub.Company, &sub.Country, &sub.CustomerService, &sub.Distributor,
		&sub.Issuer, &sub.CardType, &sub.WebsiteURL,
	); err != nil {
		return model.Submission{}, err
	}
	if mb.Valid {
		sub.MaxBalance = &mb.Int64
	}
	return sub, nil
}

func binArgs(rec model.BinRecord) []any {
	return []any{
		rec.Code, rec.Category, rec.Reloadable, rec.International, rec.MaxBalance,
		rec.Company, rec.Country, rec.CustomerService, rec.Distributor,
		rec.Issuer, rec.CardType, rec.WebsiteURL,
	}
}

func submissionArgs(sub model.Submission) []any {
	return []any{
		sub.Code, sub.Category, sub.Reloadable, sub.International, sub.MaxBalance,
		sub.Company, sub.Country, sub.CustomerService, sub.Distributor,
		sub.Issuer, sub.CardType, sub.WebsiteURL,
	}
}
