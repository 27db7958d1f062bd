package selection

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresSource stores and reads selection lists.
// 그룹 목록은 rebalance_groups 에 따로 두어 빈 선정 목록(현금 기간)도 보존
//
//	CREATE TABLE selection.rebalance_groups (
//	    signal   TEXT NOT NULL,
//	    group_id TEXT NOT NULL,
//	    PRIMARY KEY (signal, group_id)
//	);
//
//	CREATE TABLE selection.rebalance_lists (
//	    signal         TEXT NOT NULL,
//	    group_id       TEXT NOT NULL,
//	    position       INT  NOT NULL,
//	    ticker         TEXT NOT NULL,
//	    name           TEXT NOT NULL,
//	    short_strength DOUBLE PRECISION,
//	    long_strength  DOUBLE PRECISION,
//	    score          DOUBLE PRECISION NOT NULL,
//	    remark         TEXT NOT NULL DEFAULT '',
//	    PRIMARY KEY (signal, group_id, position)
//	);
//
// ⭐ SSOT: Selection 데이터 저장/조회는 여기서만
type PostgresSource struct {
	pool   *pgxpool.Pool
	signal string
}

// NewPostgresSource creates a source for one signal (외국인단독 | 기관포함)
func NewPostgresSource(pool *pgxpool.Pool, signal string) *PostgresSource {
	return &PostgresSource{pool: pool, signal: signal}
}

// Name implements Source
func (r *PostgresSource) Name() string {
	return r.signal
}

var schemaStatements = []string{
	`CREATE SCHEMA IF NOT EXISTS selection`,
	`CREATE TABLE IF NOT EXISTS selection.rebalance_groups (
		signal   TEXT NOT NULL,
		group_id TEXT NOT NULL,
		PRIMARY KEY (signal, group_id)
	)`,
	`CREATE TABLE IF NOT EXISTS selection.rebalance_lists (
		signal         TEXT NOT NULL,
		group_id       TEXT NOT NULL,
		position       INT  NOT NULL,
		ticker         TEXT NOT NULL,
		name           TEXT NOT NULL,
		short_strength DOUBLE PRECISION,
		long_strength  DOUBLE PRECISION,
		score          DOUBLE PRECISION NOT NULL,
		remark         TEXT NOT NULL DEFAULT '',
		PRIMARY KEY (signal, group_id, position)
	)`,
}

// EnsureSchema creates the selection tables if they do not exist
func (r *PostgresSource) EnsureSchema(ctx context.Context) error {
	for _, stmt := range schemaStatements {
		if _, err := r.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("failed to create selection schema: %w", err)
		}
	}
	return nil
}

// Groups implements Source
func (r *PostgresSource) Groups(ctx context.Context) ([]string, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT group_id FROM selection.rebalance_groups WHERE signal = $1`, r.signal)
	if err != nil {
		return nil, fmt.Errorf("failed to query groups: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan group: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	SortGroupIDs(ids)
	return ids, nil
}

// Load implements Source. 등록된 그룹의 빈 목록은 에러가 아니라 빈 List
func (r *PostgresSource) Load(ctx context.Context, group string) (*List, error) {
	var exists bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM selection.rebalance_groups WHERE signal = $1 AND group_id = $2)`,
		r.signal, group,
	).Scan(&exists)
	if err != nil {
		return nil, fmt.Errorf("failed to query group: %w", err)
	}
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrGroupNotFound, group)
	}

	query := `
		SELECT ticker, name, short_strength, long_strength, score, remark
		FROM selection.rebalance_lists
		WHERE signal = $1 AND group_id = $2
		ORDER BY position ASC
	`

	rows, err := r.pool.Query(ctx, query, r.signal, group)
	if err != nil {
		return nil, fmt.Errorf("failed to query selection list: %w", err)
	}
	defer rows.Close()

	list := &List{Group: group, Entries: make([]Entry, 0)}
	for rows.Next() {
		var (
			ticker, name, remark string
			short, long          *float64
			score                float64
		)
		if err := rows.Scan(&ticker, &name, &short, &long, &score, &remark); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		list.Entries = append(list.Entries, NewEntry(ticker, name, score, remark).WithStrengths(short, long))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return list, nil
}

// Save registers l.Group and replaces its stored list (CSV → DB 적재). 빈 목록도 그룹은 남음
func (r *PostgresSource) Save(ctx context.Context, l *List) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
		INSERT INTO selection.rebalance_groups (signal, group_id)
		VALUES ($1, $2)
		ON CONFLICT (signal, group_id) DO NOTHING
	`, r.signal, l.Group)
	if err != nil {
		return fmt.Errorf("failed to register group: %w", err)
	}

	_, err = tx.Exec(ctx,
		`DELETE FROM selection.rebalance_lists WHERE signal = $1 AND group_id = $2`, r.signal, l.Group)
	if err != nil {
		return fmt.Errorf("failed to delete old list: %w", err)
	}

	query := `
		INSERT INTO selection.rebalance_lists (
			signal, group_id, position, ticker, name,
			short_strength, long_strength, score, remark
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	for i, e := range l.Entries {
		_, err := tx.Exec(ctx, query,
			r.signal, l.Group, i, e.Ticker, e.Name,
			e.ShortStrength, e.LongStrength, e.Score, e.RemarkText,
		)
		if err != nil {
			return fmt.Errorf("failed to insert %s: %w", e.Ticker, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// Import copies every list of src into the table
func (r *PostgresSource) Import(ctx context.Context, src Source) (int, error) {
	groups, err := src.Groups(ctx)
	if err != nil {
		return 0, err
	}

	for _, g := range groups {
		l, err := src.Load(ctx, g)
		if err != nil {
			return 0, fmt.Errorf("load %s: %w", g, err)
		}
		if err := r.Save(ctx, l); err != nil {
			return 0, fmt.Errorf("save %s: %w", g, err)
		}
	}
	return len(groups), nil
}
