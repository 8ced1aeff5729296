package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite" // pure-Go SQLite driver

	"github.com/okian/inkplay/internal/domain/model"
	"github.com/okian/inkplay/pkg/metrics"
)

// Supported drivers.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

const (
	sqliteBusyTimeout = 5000
	pgConnMaxIdleTime = 4 * time.Minute
	pgMaxIdleConns    = 2
)

type dialect struct {
	name        string
	serial      string
	timestamp   string
	placeholder func(n int) string
}

var dialects = map[string]dialect{
	DriverPostgres: {
		name:        DriverPostgres,
		serial:      "BIGSERIAL PRIMARY KEY",
		timestamp:   "TIMESTAMPTZ",
		placeholder: func(n int) string { return "$" + strconv.Itoa(n) },
	},
	DriverSQLite: {
		name:        DriverSQLite,
		serial:      "INTEGER PRIMARY KEY AUTOINCREMENT",
		timestamp:   "TIMESTAMP",
		placeholder: func(int) string { return "?" },
	},
}

// rebind rewrites ? placeholders for the dialect.
func (d dialect) rebind(q string) string {
	var b strings.Builder
	b.Grow(len(q) + 8)
	n := 0
	for _, r := range q {
		if r == '?' {
			n++
			b.WriteString(d.placeholder(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// SQLStore implements Store on database/sql for postgres and sqlite.
type SQLStore struct {
	db      *sql.DB
	dialect dialect
	opts    options
}

var _ Store = (*SQLStore)(nil)

// Open connects to dsn with driver, runs migrations and seeds defaults.
// For sqlite, dsn is a file path.
func Open(ctx context.Context, driver, dsn string, opts ...Option) (*SQLStore, error) {
	const op = "repository.Open"

	d, ok := dialects[driver]
	if !ok {
		return nil, fmt.Errorf("%s: %w: %q", op, ErrUnknownDriver, driver)
	}
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	var (
		db  *sql.DB
		err error
	)
	switch driver {
	case DriverPostgres:
		db, err = openPostgres(dsn, o)
	case DriverSQLite:
		db, err = openSQLite(dsn)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%s: ping: %w", op, err)
	}

	s := &SQLStore{db: db, dialect: d, opts: o}
	if err := s.migrate(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%s: migrate: %w", op, err)
	}
	return s, nil
}

func openPostgres(dsn string, o options) (*sql.DB, error) {
	cfg, err := pgx.ParseConfig(dsn)
	if err != nil {
		return nil, err
	}
	// Poolers such as PgBouncer reject server-side prepared statements.
	cfg.DefaultQueryExecMode = pgx.QueryExecModeSimpleProtocol
	db := stdlib.OpenDB(*cfg)
	db.SetConnMaxIdleTime(pgConnMaxIdleTime)
	db.SetMaxOpenConns(o.maxOpenConns)
	db.SetMaxIdleConns(pgMaxIdleConns)
	return db, nil
}

func openSQLite(path string) (*sql.DB, error) {
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(%d)&cache=shared", path, sqliteBusyTimeout)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1) // single writer
	return db, nil
}

// Close releases the connection pool.
func (s *SQLStore) Close() error { return s.db.Close() }

// Driver reports the dialect in use.
func (s *SQLStore) Driver() string { return s.dialect.name }

func (s *SQLStore) migrate(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS game_settings (
			game_name TEXT PRIMARY KEY,
			discount_rate INTEGER NOT NULL,
			is_active BOOLEAN NOT NULL,
			promo_code TEXT NOT NULL,
			difficulty_target INTEGER,
			min_accuracy INTEGER,
			updated_at ` + s.dialect.timestamp + ` NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS game_wins (
			seq ` + s.dialect.serial + `,
			id TEXT NOT NULL UNIQUE,
			session_id TEXT NOT NULL,
			player_id TEXT NOT NULL,
			game_name TEXT NOT NULL,
			discount_rate INTEGER NOT NULL,
			promo_code TEXT NOT NULL,
			won_at ` + s.dialect.timestamp + ` NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_game_wins_player ON game_wins(player_id, game_name)`,
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	for _, q := range stmts {
		if _, err := tx.ExecContext(ctx, q); err != nil {
			return err
		}
	}

	seed := s.dialect.rebind(`INSERT INTO game_settings
		(game_name, discount_rate, is_active, promo_code, difficulty_target, min_accuracy, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (game_name) DO NOTHING`)
	now := s.opts.now().UTC()
	for _, d := range model.DefaultSettings() {
		if _, err := tx.ExecContext(ctx, seed, d.GameKey, d.DiscountRate, d.IsActive, d.PromoCode,
			nullInt(d.DifficultyTarget), nullInt(d.MinAccuracy), now); err != nil {
			return err
		}
	}
	return tx.Commit()
}

const settingColumns = `game_name, discount_rate, is_active, promo_code, difficulty_target, min_accuracy, updated_at`

func (s *SQLStore) List(ctx context.Context) ([]model.Setting, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+settingColumns+` FROM game_settings ORDER BY game_name`)
	if err != nil {
		metrics.RecordErrorByComponent("repository", "list")
		return nil, fmt.Errorf("list settings: %w", err)
	}
	defer rows.Close()

	var out []model.Setting
	for rows.Next() {
		v, err := scanSetting(rows)
		if err != nil {
			return nil, fmt.Errorf("scan setting: %w", err)
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

func (s *SQLStore) Get(ctx context.Context, key string) (model.Setting, error) {
	row := s.db.QueryRowContext(ctx,
		s.dialect.rebind(`SELECT `+settingColumns+` FROM game_settings WHERE game_name = ?`), key)
	v, err := scanSetting(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Setting{}, ErrNotFound
	}
	if err != nil {
		metrics.RecordErrorByComponent("repository", "get")
		return model.Setting{}, fmt.Errorf("get setting %s: %w", key, err)
	}
	return v, nil
}

func (s *SQLStore) Upsert(ctx context.Context, in model.Setting) (model.Setting, error) {
	v, err := normalize(in)
	if err != nil {
		return model.Setting{}, err
	}
	v.UpdatedAt = s.opts.now().UTC()

	q := s.dialect.rebind(`INSERT INTO game_settings (` + settingColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (game_name) DO UPDATE SET
			discount_rate = excluded.discount_rate,
			is_active = excluded.is_active,
			promo_code = excluded.promo_code,
			difficulty_target = excluded.difficulty_target,
			min_accuracy = excluded.min_accuracy,
			updated_at = excluded.updated_at`)
	if _, err := s.db.ExecContext(ctx, q, v.GameKey, v.DiscountRate, v.IsActive, v.PromoCode,
		nullInt(v.DifficultyTarget), nullInt(v.MinAccuracy), v.UpdatedAt); err != nil {
		metrics.RecordErrorByComponent("repository", "upsert")
		return model.Setting{}, fmt.Errorf("upsert setting %s: %w", v.GameKey, err)
	}
	return v, nil
}

func (s *SQLStore) Append(ctx context.Context, w model.Win) error {
	q := s.dialect.rebind(`INSERT INTO game_wins
		(id, session_id, player_id, game_name, discount_rate, promo_code, won_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO NOTHING`)
	if _, err := s.db.ExecContext(ctx, q, w.ID, w.SessionID, w.PlayerID, w.GameKey,
		w.DiscountRate, w.PromoCode, w.WonAt.UTC()); err != nil {
		return fmt.Errorf("append win %s: %w", w.ID, err)
	}
	return nil
}

func (s *SQLStore) Recent(ctx context.Context, n int) ([]model.Win, error) {
	if n <= 0 {
		return nil, ErrInvalidLimit
	}
	rows, err := s.db.QueryContext(ctx, s.dialect.rebind(`SELECT
		id, session_id, player_id, game_name, discount_rate, promo_code, won_at
		FROM game_wins ORDER BY seq DESC LIMIT ?`), n)
	if err != nil {
		return nil, fmt.Errorf("recent wins: %w", err)
	}
	defer rows.Close()

	out := make([]model.Win, 0, n)
	for rows.Next() {
		var w model.Win
		if err := rows.Scan(&w.ID, &w.SessionID, &w.PlayerID, &w.GameKey,
			&w.DiscountRate, &w.PromoCode, &w.WonAt); err != nil {
			return nil, fmt.Errorf("scan win: %w", err)
		}
		out = append(out, w)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanSetting(r scanner) (model.Setting, error) {
	var (
		v         model.Setting
		target    sql.NullInt64
		minAcc    sql.NullInt64
		updatedAt time.Time
	)
	if err := r.Scan(&v.GameKey, &v.DiscountRate, &v.IsActive, &v.PromoCode, &target, &minAcc, &updatedAt); err != nil {
		return model.Setting{}, err
	}
	v.DifficultyTarget = intPtr(target)
	v.MinAccuracy = intPtr(minAcc)
	v.UpdatedAt = updatedAt.UTC()
	return v, nil
}

func nullInt(p *int) sql.NullInt64 {
	if p == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*p), Valid: true}
}

func intPtr(n sql.NullInt64) *int {
	if !n.Valid {
		return nil
	}
	v := int(n.Int64)
	return &v
}
