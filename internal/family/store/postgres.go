package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"aroundtable/internal/family/models"
	id "aroundtable/pkg/domain"
	"aroundtable/pkg/platform/sentinel"
	txcontext "aroundtable/pkg/platform/tx"
)

const uniqueViolation = pq.ErrorCode("23505")

// PostgresStore persists the roster in PostgreSQL. Name uniqueness is
// enforced by the families_name_key_idx unique index.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed family store.
func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

type dbExecutor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *PostgresStore) execer(ctx context.Context) dbExecutor {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

func (s *PostgresStore) Create(ctx context.Context, family *models.Family) error {
	_, err := s.execer(ctx).ExecContext(ctx, `
		INSERT INTO families (id, name, name_key, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
	`, family.ID, family.Name, family.NameKey, family.CreatedAt, family.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return sentinel.ErrAlreadyUsed
		}
		return fmt.Errorf("insert family: %w", err)
	}
	return nil
}

func (s *PostgresStore) Update(ctx context.Context, family *models.Family) error {
	res, err := s.execer(ctx).ExecContext(ctx, `
		UPDATE families SET name = $2, name_key = $3, updated_at = $4
		WHERE id = $1
	`, family.ID, family.Name, family.NameKey, family.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return sentinel.ErrAlreadyUsed
		}
		return fmt.Errorf("update family: %w", err)
	}
	return requireOneRow(res)
}

func (s *PostgresStore) Delete(ctx context.Context, familyID id.FamilyID) error {
	res, err := s.execer(ctx).ExecContext(ctx, `DELETE FROM families WHERE id = $1`, familyID)
	if err != nil {
		return fmt.Errorf("delete family: %w", err)
	}
	return requireOneRow(res)
}

func (s *PostgresStore) FindByID(ctx context.Context, familyID id.FamilyID) (*models.Family, error) {
	row := s.execer(ctx).QueryRowContext(ctx, `
		SELECT id, name, name_key, created_at, updated_at
		FROM families WHERE id = $1
	`, familyID)
	f, err := scanFamily(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find family by id: %w", err)
	}
	return f, nil
}

// List returns families in insertion order.
func (s *PostgresStore) List(ctx context.Context) ([]*models.Family, error) {
	rows, err := s.execer(ctx).QueryContext(ctx, `
		SELECT id, name, name_key, created_at, updated_at
		FROM families ORDER BY seq
	`)
	if err != nil {
		return nil, fmt.Errorf("list families: %w", err)
	}
	defer rows.Close()

	var out []*models.Family
	for rows.Next() {
		f, err := scanFamily(rows)
		if err != nil {
			return nil, fmt.Errorf("scan family: %w", err)
		}
		out = append(out, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate families: %w", err)
	}
	return out, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanFamily(row rowScanner) (*models.Family, error) {
	var f models.Family
	if err := row.Scan(&f.ID, &f.Name, &f.NameKey, &f.CreatedAt, &f.UpdatedAt); err != nil {
		return nil, err
	}
	return &f, nil
}

func requireOneRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == uniqueViolation
}
