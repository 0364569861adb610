package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"

	"NoticeHub/internal/domain"
	"NoticeHub/internal/ports"
)

// PreferenceRepository stores per-(user, sourceType) subscription modes.
type PreferenceRepository struct {
	db *sql.DB
}

var _ ports.PreferenceRepository = (*PreferenceRepository)(nil)

func NewPreferenceRepository(db *sql.DB) *PreferenceRepository {
	return &PreferenceRepository{db: db}
}

func (r *PreferenceRepository) Mode(ctx context.Context, userID int64, sourceType string) (domain.Mode, error) {
	query, args, err := psql.Select("mode").
		From("subscription_prefs").
		Where(sq.Eq{"user_id": userID, "source_type": sourceType}).
		ToSql()
	if err != nil {
		return "", fmt.Errorf("build query: %w", err)
	}

	var mode domain.Mode
	err = r.db.QueryRowContext(ctx, query, args...).Scan(&mode)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.ModeNone, nil
	}
	if err != nil {
		return "", fmt.Errorf("lookup mode: %w", err)
	}
	return mode, nil
}

func (r *PreferenceRepository) SetMode(ctx context.Context, userID int64, sourceType string, mode domain.Mode) error {
	query, args, err := psql.Insert("subscription_prefs").
		Columns("user_id", "source_type", "mode").
		Values(userID, sourceType, mode).
		Suffix("ON CONFLICT (user_id, source_type) DO UPDATE SET mode = EXCLUDED.mode").
		ToSql()
	if err != nil {
		return fmt.Errorf("build upsert: %w", err)
	}
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("set mode: %w", err)
	}
	return nil
}

func (r *PreferenceRepository) UserIDsByTypeAndMode(ctx context.Context, sourceType string, mode domain.Mode) ([]int64, error) {
	query, args, err := psql.Select("user_id").
		From("subscription_prefs").
		Where(sq.Eq{"source_type": sourceType, "mode": mode}).
		OrderBy("user_id").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}
	return r.queryIDs(ctx, query, args)
}

func (r *PreferenceRepository) queryIDs(ctx context.Context, query string, args []any) ([]int64, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query user ids: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan user id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}
	return ids, nil
}

// KeywordLinkRepository stores the explicit (user, sourceType, keyword)
// link table fanout decisions are computed from.
type KeywordLinkRepository struct {
	db *sql.DB
}

var _ ports.KeywordLinkRepository = (*KeywordLinkRepository)(nil)

func NewKeywordLinkRepository(db *sql.DB) *KeywordLinkRepository {
	return &KeywordLinkRepository{db: db}
}

// Add is idempotent: re-adding an existing link is a no-op.
func (r *KeywordLinkRepository) Add(ctx context.Context, link *domain.SubscriptionKeywordLink) error {
	query, args, err := psql.Insert("subscription_keyword_links").
		Columns("user_id", "source_type", "keyword_id").
		Values(link.UserID, link.SourceType, link.KeywordID).
		Suffix("ON CONFLICT (user_id, source_type, keyword_id) DO NOTHING").
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("add link: %w", err)
	}
	return nil
}

func (r *KeywordLinkRepository) Remove(ctx context.Context, userID int64, sourceType string, keywordID int64) error {
	query, args, err := psql.Delete("subscription_keyword_links").
		Where(sq.Eq{"user_id": userID, "source_type": sourceType, "keyword_id": keywordID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build delete: %w", err)
	}
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("remove link: %w", err)
	}
	return nil
}

func (r *KeywordLinkRepository) FindByUserAndType(ctx context.Context, userID int64, sourceType string) ([]domain.SubscriptionKeywordLink, error) {
	query, args, err := psql.Select("id", "user_id", "source_type", "keyword_id").
		From("subscription_keyword_links").
		Where(sq.Eq{"user_id": userID, "source_type": sourceType}).
		OrderBy("id").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list links: %w", err)
	}
	defer rows.Close()

	var links []domain.SubscriptionKeywordLink
	for rows.Next() {
		var l domain.SubscriptionKeywordLink
		if err := rows.Scan(&l.ID, &l.UserID, &l.SourceType, &l.KeywordID); err != nil {
			return nil, fmt.Errorf("scan link: %w", err)
		}
		links = append(links, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}
	return links, nil
}

// LinkedKeywords projects the user's linked keywords with only the
// fields fanout matching needs.
func (r *KeywordLinkRepository) LinkedKeywords(ctx context.Context, userID int64, sourceType string) ([]domain.Keyword, error) {
	query, args, err := psql.Select("k.id", "k.phrase", "k.scope", "k.owner_id", "k.created_at").
		From("subscription_keyword_links l").
		Join("keywords k ON k.id = l.keyword_id").
		Where(sq.Eq{"l.user_id": userID, "l.source_type": sourceType}).
		OrderBy("k.id").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list linked keywords: %w", err)
	}
	defer rows.Close()

	var keywords []domain.Keyword
	for rows.Next() {
		k, err := scanKeyword(rows)
		if err != nil {
			return nil, fmt.Errorf("scan keyword: %w", err)
		}
		keywords = append(keywords, *k)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}
	return keywords, nil
}

func (r *KeywordLinkRepository) UserIDsByTypeAndKeywordIDs(ctx context.Context, sourceType string, keywordIDs []int64) ([]int64, error) {
	if len(keywordIDs) == 0 {
		return nil, nil
	}

	query, args, err := psql.Select("DISTINCT user_id").
		From("subscription_keyword_links").
		Where(sq.Eq{"source_type": sourceType, "keyword_id": keywordIDs}).
		OrderBy("user_id").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query user ids: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan user id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}
	return ids, nil
}

func (r *KeywordLinkRepository) ExistsByKeyword(ctx context.Context, keywordID int64) (bool, error) {
	query, args, err := psql.Select("1").
		From("subscription_keyword_links").
		Where(sq.Eq{"keyword_id": keywordID}).
		Limit(1).
		ToSql()
	if err != nil {
		return false, fmt.Errorf("build query: %w", err)
	}

	var one int
	err = r.db.QueryRowContext(ctx, query, args...).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("exists: %w", err)
	}
	return true, nil
}
