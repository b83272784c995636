package storage

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"audiencesync/internal/config"
	"audiencesync/internal/feed"
	"audiencesync/internal/rules"
)

type Store struct {
	pool *pgxpool.Pool
}

func New(ctx context.Context, cfg config.Config) (*Store, error) {
	dsn := cfg.DSN()
	poolCfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to parse postgres DSN: %w", err)
	}
	poolCfg.MaxConns = int32(cfg.Postgres.MaxOpenConns)
	poolCfg.MinConns = int32(cfg.Postgres.MaxIdleConns)
	poolCfg.HealthCheckPeriod = time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create postgres pool: %w", err)
	}
	return &Store{pool: pool}, nil
}

func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// LoadActiveFeeds loads all active feeds with their field mappings and rules,
// assembled into typed records once at load time.
func (s *Store) LoadActiveFeeds(ctx context.Context) ([]feed.Feed, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	feeds := map[int64]*feed.Feed{}

	rows, err := s.pool.Query(ctx, `
		SELECT id, name, form_id, list_id, double_opt_in, mark_as_vip,
		       replace_tags, tags, note
		FROM feeds
		WHERE active
		ORDER BY id
	`)
	if err != nil {
		return nil, fmt.Errorf("query feeds: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		f := feed.Feed{Active: true}
		if err := rows.Scan(&f.ID, &f.Name, &f.FormID, &f.ListID,
			&f.DoubleOptIn, &f.MarkAsVIP, &f.ReplaceTags, &f.Tags, &f.Note); err != nil {
			return nil, fmt.Errorf("scan feed row: %w", err)
		}
		feeds[f.ID] = &f
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	rows.Close()

	if err := s.loadMappings(ctx, feeds); err != nil {
		return nil, err
	}
	if err := s.loadRules(ctx, feeds); err != nil {
		return nil, err
	}

	out := make([]feed.Feed, 0, len(feeds))
	for _, f := range feeds {
		out = append(out, *f)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) loadMappings(ctx context.Context, feeds map[int64]*feed.Feed) error {
	rows, err := s.pool.Query(ctx, `
		SELECT feed_id, merge_tag, field_ref
		FROM feed_mappings
		ORDER BY feed_id, id
	`)
	if err != nil {
		return fmt.Errorf("query feed mappings: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var feedID int64
		var m feed.Mapping
		if err := rows.Scan(&feedID, &m.MergeTag, &m.FieldRef); err != nil {
			return fmt.Errorf("scan mapping row: %w", err)
		}
		if f, ok := feeds[feedID]; ok {
			f.FieldMap = append(f.FieldMap, m)
		}
	}
	return rows.Err()
}

func (s *Store) loadRules(ctx context.Context, feeds map[int64]*feed.Feed) error {
	rows, err := s.pool.Query(ctx, `
		SELECT feed_id, kind, target_id, enabled, decision, field_ref, operator, value
		FROM feed_rules
		ORDER BY feed_id, id
	`)
	if err != nil {
		return fmt.Errorf("query feed rules: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var feedID int64
		var kind string
		var r rules.Rule
		var decision, operator string
		if err := rows.Scan(&feedID, &kind, &r.TargetID, &r.Enabled,
			&decision, &r.FieldRef, &operator, &r.Value); err != nil {
			return fmt.Errorf("scan rule row: %w", err)
		}
		r.Decision = rules.Decision(decision)
		r.Operator = rules.Operator(operator)

		f, ok := feeds[feedID]
		if !ok {
			continue
		}
		switch kind {
		case "category":
			f.CategoryRules = append(f.CategoryRules, r)
		case "permission":
			f.PermissionRules = append(f.PermissionRules, r)
		case "condition":
			cond := r
			f.Condition = &cond
		default:
			return fmt.Errorf("unknown rule kind %q for feed %d", kind, feedID)
		}
	}
	return rows.Err()
}

func (s *Store) ListenChannel() string {
	return "audiencesync_settings_change"
}

func (s *Store) PgxPool() *pgxpool.Pool {
	if s.pool == nil {
		panic(errors.New("pgx pool is nil"))
	}
	return s.pool
}
