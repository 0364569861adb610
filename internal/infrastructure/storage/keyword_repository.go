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

// KeywordRepository persists GLOBAL and PERSONAL keywords into Postgres.
type KeywordRepository struct {
	db *sql.DB
}

var _ ports.KeywordRepository = (*KeywordRepository)(nil)

func NewKeywordRepository(db *sql.DB) *KeywordRepository {
	return &KeywordRepository{db: db}
}

func (r *KeywordRepository) FindByID(ctx context.Context, id int64) (*domain.Keyword, error) {
	query, args, err := keywordSelect().Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	k, err := scanKeyword(r.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find keyword: %w", err)
	}
	return k, nil
}

func (r *KeywordRepository) FindByScope(ctx context.Context, scope domain.Scope) ([]domain.Keyword, error) {
	return r.list(ctx, sq.Eq{"scope": scope})
}

func (r *KeywordRepository) FindByOwner(ctx context.Context, ownerID int64) ([]domain.Keyword, error) {
	return r.list(ctx, sq.Eq{"owner_id": ownerID})
}

func (r *KeywordRepository) list(ctx context.Context, cond sq.Eq) ([]domain.Keyword, error) {
	query, args, err := keywordSelect().Where(cond).OrderBy("id").ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list keywords: %w", err)
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

// ExistsByScopeAndPhrase matches phrases case-insensitively; NFKC-aware
// conflict checks happen in the keyword service against the cached list.
func (r *KeywordRepository) ExistsByScopeAndPhrase(ctx context.Context, scope domain.Scope, phrase string) (bool, error) {
	query, args, err := psql.Select("1").
		From("keywords").
		Where(sq.Eq{"scope": scope}).
		Where(sq.Expr("LOWER(phrase) = LOWER(?)", phrase)).
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

func (r *KeywordRepository) Insert(ctx context.Context, k *domain.Keyword) error {
	var owner any
	if k.Scope == domain.ScopePersonal {
		owner = k.OwnerID
	}

	query, args, err := psql.Insert("keywords").
		Columns("phrase", "scope", "owner_id").
		Values(k.Phrase, k.Scope, owner).
		Suffix("RETURNING id, created_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&k.ID, &k.CreatedAt); err != nil {
		return fmt.Errorf("insert keyword: %w", err)
	}
	return nil
}

func (r *KeywordRepository) Delete(ctx context.Context, id int64) error {
	query, args, err := psql.Delete("keywords").Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return fmt.Errorf("build delete: %w", err)
	}
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("delete keyword: %w", err)
	}
	return nil
}

func keywordSelect() sq.SelectBuilder {
	return psql.Select("id", "phrase", "scope", "owner_id", "created_at").From("keywords")
}

func scanKeyword(row rowScanner) (*domain.Keyword, error) {
	var (
		k     domain.Keyword
		owner sql.NullInt64
	)
	if err := row.Scan(&k.ID, &k.Phrase, &k.Scope, &owner, &k.CreatedAt); err != nil {
		return nil, err
	}
	if owner.Valid {
		k.OwnerID = owner.Int64
	}
	return &k, nil
}
