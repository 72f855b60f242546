package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cardmeta/bindex/internal/model"
)

const pgUniqueViolation = "23505"

const postgresSchema = `
CREATE TABLE IF NOT EXISTS bins (
	code             TEXT PRIMARY KEY,
	category         TEXT NOT NULL DEFAULT '',
	reloadable       TEXT NOT NULL DEFAULT '',
	international    TEXT NOT NULL DEFAULT '',
	max_balance      BIGINT,
	company          TEXT NOT NULL DEFAULT '',
	country          TEXT NOT NULL DEFAULT '',
	customer_service TEXT NOT NULL DEFAULT '',
	distributor      TEXT NOT NULL DEFAULT '',
	issuer           TEXT NOT NULL DEFAULT '',
	card_type        TEXT NOT NULL DEFAULT '',
	website_url      TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS submissions (
	id               BIGINT GENERATED BY DEFAULT AS IDENTITY PRIMARY KEY,
	code             TEXT NOT NULL,
	category         TEXT NOT NULL DEFAULT '',
	reloadable       TEXT NOT NULL DEFAULT '',
	international    TEXT NOT NULL DEFAULT '',
	max_balance      BIGINT,
	company          TEXT NOT NULL DEFAULT '',
	country          TEXT NOT NULL DEFAULT '',
	customer_service TEXT NOT NULL DEFAULT '',
	distributor      TEXT NOT NULL DEFAULT '',
	issuer           TEXT NOT NULL DEFAULT '',
	card_type        TEXT NOT NULL DEFAULT '',
	website_url      TEXT NOT NULL DEFAULT ''
);
`

// Postgres is the pgxpool-backed Store for production deployments.
// The submissions identity column draws from a sequence, so ids stay
// monotonic and are never reused after removal.
type Postgres struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// NewPostgres connects a pool, pings it, and bootstraps the schema.
func NewPostgres(ctx context.Context, dsn string, logger *slog.Logger) (*Postgres, error) {
	poolCfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("storage: parse postgres DSN: %w", err)
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("storage: create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("storage: ping pool: %w", err)
	}
	if _, err := pool.Exec(ctx, postgresSchema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("storage: postgres schema: %w", err)
	}
	logger.Info("storage: postgres ready")
	return &Postgres{pool: pool, logger: logger}, nil
}

func (p *Postgres) GetBin(ctx context.Context, code string) (model.BinRecord, error) {
	row := p.pool.QueryRow(ctx,
		`SELECT `+binColumns+` FROM bins WHERE code = $1`, code)
	rec, err := scanBinRow(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.BinRecord{}, ErrNotFound
	}
	if err != nil {
		return model.BinRecord{}, fmt.Errorf("storage: get bin: %w", err)
	}
	return rec, nil
}

func (p *Postgres) CreateBin(ctx context.Context, rec model.BinRecord) error {
	_, err := p.pool.Exec(ctx,
		`INSERT INTO bins (`+binColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		binArgs(rec)...)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return ErrConflict
		}
		return fmt.Errorf("storage: create bin: %w", err)
	}
	return nil
}

func (p *Postgres) PutBin(ctx context.Context, rec model.BinRecord) error {
	_, err := p.pool.Exec(ctx,
		`INSERT INTO bins (`+binColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
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

func (p *Postgres) UpdateBin(ctx context.Context, code string, patch model.BinPatch) (model.BinRecord, error) {
	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return model.BinRecord{}, fmt.Errorf("storage: begin update: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	// FOR UPDATE serializes concurrent read-modify-write on the same code.
	row := tx.QueryRow(ctx,
		`SELECT `+binColumns+` FROM bins WHERE code = $1 FOR UPDATE`, code)
	rec, err := scanBinRow(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.BinRecord{}, ErrNotFound
	}
	if err != nil {
		return model.BinRecord{}, fmt.Errorf("storage: update bin: %w", err)
	}

	rec = patch.Apply(rec)
	if _, err := tx.Exec(ctx,
		`UPDATE bins SET category = $1, reloadable = $2, international = $3,
			max_balance = $4, company = $5, country = $6, customer_service = $7,
			distributor = $8, issuer = $9, card_type = $10, website_url = $11
		 WHERE code = $12`,
		rec.Category, rec.Reloadable, rec.International, rec.MaxBalance,
		rec.Company, rec.Country, rec.CustomerService, rec.Distributor,
		rec.Issuer, rec.CardType, rec.WebsiteURL, code,
	); err != nil {
		return model.BinRecord{}, fmt.Errorf("storage: update bin: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return model.BinRecord{}, fmt.Errorf("storage: commit update: %w", err)
	}
	return rec, nil
}

func (p *Postgres) DeleteBin(ctx context.Context, code string) error {
	tag, err := p.pool.Exec(ctx, `DELETE FROM bins WHERE code = $1`, code)
	if err != nil {
		return fmt.Errorf("storage: delete bin: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (p *Postgres) AppendSubmission(ctx context.Context, sub model.Submission) (int64, error) {
	var id int64
	err := p.pool.QueryRow(ctx,
		`INSERT INTO submissions (`+binColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		 RETURNING id`,
		submissionArgs(sub)...).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("storage: append submission: %w", err)
	}
	return id, nil
}

func (p *Postgres) ListSubmissions(ctx context.Context) ([]model.Submission, error) {
	rows, err := p.pool.Query(ctx,
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

func (p *Postgres) GetSubmission(ctx context.Context, id int64) (model.Submission, error) {
	row := p.pool.QueryRow(ctx,
		`SELECT id, `+binColumns+` FROM submissions WHERE id = $1`, id)
	sub, err := scanSubmission(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.Submission{}, ErrNotFound
	}
	if err != nil {
		return model.Submission{}, fmt.Errorf("storage: get submission: %w", err)
	}
	return sub, nil
}

func (p *Postgres) RemoveSubmission(ctx context.Context, id int64) error {
	tag, err := p.pool.Exec(ctx, `DELETE FROM submissions WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("storage: remove submission: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (p *Postgres) Ping(ctx context.Context) error {
	return p.pool.Ping(ctx)
}

func (p *Postgres) Close() {
	p.pool.Close()
}
