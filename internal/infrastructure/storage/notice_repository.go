package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"

	"NoticeHub/internal/domain"
	"NoticeHub/internal/ports"
)

var noticeColumns = []string{
	"id", "source_type", "sequence_label", "category", "title",
	"department", "date_text", "link", "created_at", "updated_at",
}

// NoticeRepository persists notices into Postgres.
type NoticeRepository struct {
	db *sql.DB
}

var _ ports.NoticeRepository = (*NoticeRepository)(nil)

func NewNoticeRepository(db *sql.DB) *NoticeRepository {
	return &NoticeRepository{db: db}
}

func (r *NoticeRepository) FindByLink(ctx context.Context, link string) (*domain.Notice, error) {
	query, args, err := psql.Select(noticeColumns...).
		From("notices").
		Where(sq.Eq{"link": link}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	n, err := scanNotice(r.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find by link: %w", err)
	}
	return n, nil
}

// Insert stores a new notice; the store sets the timestamps. A link
// collision surfaces as ports.ErrDuplicateLink.
func (r *NoticeRepository) Insert(ctx context.Context, n *domain.Notice) error {
	query, args, err := psql.Insert("notices").
		Columns("id", "source_type", "sequence_label", "category", "title", "department", "date_text", "link").
		Values(n.ID, n.SourceType, n.SequenceLabel, n.Category, n.Title, n.Department, n.Date, n.Link).
		Suffix("RETURNING created_at, updated_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	err = r.db.QueryRowContext(ctx, query, args...).Scan(&n.CreatedAt, &n.UpdatedAt)
	if isUniqueViolation(err) {
		return ports.ErrDuplicateLink
	}
	if err != nil {
		return fmt.Errorf("insert notice: %w", err)
	}
	return nil
}

func (r *NoticeRepository) Update(ctx context.Context, n *domain.Notice) error {
	query, args, err := psql.Update("notices").
		Set("source_type", n.SourceType).
		Set("sequence_label", n.SequenceLabel).
		Set("category", n.Category).
		Set("title", n.Title).
		Set("department", n.Department).
		Set("date_text", n.Date).
		Set("updated_at", sq.Expr("NOW()")).
		Where(sq.Eq{"id": n.ID}).
		Suffix("RETURNING updated_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&n.UpdatedAt); err != nil {
		return fmt.Errorf("update notice: %w", err)
	}
	return nil
}

func (r *NoticeRepository) ExistsByLink(ctx context.Context, link string) (bool, error) {
	return r.exists(ctx, sq.Eq{"link": link})
}

func (r *NoticeRepository) ExistsBySourceType(ctx context.Context, sourceType string) (bool, error) {
	return r.exists(ctx, sq.Eq{"source_type": sourceType})
}

func (r *NoticeRepository) exists(ctx context.Context, cond sq.Eq) (bool, error) {
	query, args, err := psql.Select("1").From("notices").Where(cond).Limit(1).ToSql()
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

func (r *NoticeRepository) CountBySourceTypeCreatedAfter(ctx context.Context, sourceType string, after time.Time) (int, error) {
	query, args, err := psql.Select("COUNT(*)").
		From("notices").
		Where(sq.Eq{"source_type": sourceType}).
		Where(sq.Gt{"created_at": after}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("build query: %w", err)
	}

	var count int
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("count recent: %w", err)
	}
	return count, nil
}

// ReplaceKeywords swaps the cached keyword set clear-then-add inside one
// transaction.
func (r *NoticeRepository) ReplaceKeywords(ctx context.Context, noticeID uuid.UUID, keywordIDs []int64) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	del, delArgs, err := psql.Delete("notice_keywords").Where(sq.Eq{"notice_id": noticeID}).ToSql()
	if err != nil {
		return fmt.Errorf("build delete: %w", err)
	}
	if _, err := tx.ExecContext(ctx, del, delArgs...); err != nil {
		return fmt.Errorf("clear keywords: %w", err)
	}

	if len(keywordIDs) > 0 {
		ins := psql.Insert("notice_keywords").Columns("notice_id", "keyword_id")
		for _, id := range keywordIDs {
			ins = ins.Values(noticeID, id)
		}
		query, args, err := ins.ToSql()
		if err != nil {
			return fmt.Errorf("build insert: %w", err)
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("add keywords: %w", err)
		}
	}

	return tx.Commit()
}

func (r *NoticeRepository) All(ctx context.Context) ([]domain.Notice, error) {
	query, args, err := psql.Select(noticeColumns...).
		From("notices").
		OrderBy("created_at").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list notices: %w", err)
	}
	defer rows.Close()

	var notices []domain.Notice
	for rows.Next() {
		n, err := scanNotice(rows)
		if err != nil {
			return nil, fmt.Errorf("scan notice: %w", err)
		}
		notices = append(notices, *n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}
	return notices, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanNotice(row rowScanner) (*domain.Notice, error) {
	var n domain.Notice
	err := row.Scan(&n.ID, &n.SourceType, &n.SequenceLabel, &n.Category, &n.Title,
		&n.Department, &n.Date, &n.Link, &n.CreatedAt, &n.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &n, nil
}
