package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"aroundtable/internal/pairing"
	"aroundtable/internal/session/models"
	id "aroundtable/pkg/domain"
	"aroundtable/pkg/platform/sentinel"
	txcontext "aroundtable/pkg/platform/tx"
)

// PostgresStore persists sessions in two tables: sessions holds one row per
// save and session_members one row per placed family.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed session store.
func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

type dbExecutor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func (s *PostgresStore) execer(ctx context.Context) dbExecutor {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

// Save writes the session and all its members atomically.
func (s *PostgresStore) Save(ctx context.Context, session *models.Session) error {
	var groupIdx, positions []int64
	var familyIDs []string
	for g, group := range session.Groups {
		for p, familyID := range group {
			groupIdx = append(groupIdx, int64(g))
			positions = append(positions, int64(p))
			familyIDs = append(familyIDs, familyID.String())
		}
	}

	return txcontext.Run(ctx, s.db, func(ctx context.Context) error {
		q := s.execer(ctx)
		if _, err := q.ExecContext(ctx,
			`INSERT INTO sessions (id, created_at) VALUES ($1, $2)`,
			session.ID, session.CreatedAt,
		); err != nil {
			var pqErr *pq.Error
			if errors.As(err, &pqErr) && pqErr.Code == "23505" {
				return sentinel.ErrAlreadyUsed
			}
			return fmt.Errorf("insert session: %w", err)
		}

		// Batch INSERT with unnest instead of per-row inserts.
		if _, err := q.ExecContext(ctx, `
			INSERT INTO session_members (session_id, group_index, position, family_id)
			SELECT $1, g, p, f
			FROM unnest($2::int[], $3::int[], $4::uuid[]) AS t(g, p, f)
		`, session.ID, pq.Array(groupIdx), pq.Array(positions), pq.Array(familyIDs)); err != nil {
			return fmt.Errorf("insert session members: %w", err)
		}
		return nil
	})
}

const selectSessions = `
	SELECT s.id, s.created_at, m.group_index, m.family_id
	FROM sessions s
	JOIN session_members m ON m.session_id = s.id
`

func (s *PostgresStore) FindByID(ctx context.Context, sessionID id.SessionID) (*models.Session, error) {
	sessions, err := s.query(ctx, selectSessions+` WHERE s.id = $1 ORDER BY m.group_index, m.position`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("find session by id: %w", err)
	}
	if len(sessions) == 0 {
		return nil, sentinel.ErrNotFound
	}
	return sessions[0], nil
}

func (s *PostgresStore) Latest(ctx context.Context) (*models.Session, error) {
	sessions, err := s.query(ctx, selectSessions+`
		WHERE s.id = (SELECT id FROM sessions ORDER BY seq DESC LIMIT 1)
		ORDER BY m.group_index, m.position`)
	if err != nil {
		return nil, fmt.Errorf("find latest session: %w", err)
	}
	if len(sessions) == 0 {
		return nil, sentinel.ErrNotFound
	}
	return sessions[0], nil
}

// List returns every session, oldest first.
func (s *PostgresStore) List(ctx context.Context) ([]*models.Session, error) {
	sessions, err := s.query(ctx, selectSessions+` ORDER BY s.seq, m.group_index, m.position`)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	return sessions, nil
}

// query folds member rows into sessions. Rows must arrive grouped by session
// and ordered by group and position.
func (s *PostgresStore) query(ctx context.Context, query string, args ...any) ([]*models.Session, error) {
	rows, err := s.execer(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*models.Session
	var current *models.Session
	for rows.Next() {
		var (
			sessionID  id.SessionID
			createdAt  time.Time
			groupIndex int
			familyID   id.FamilyID
		)
		if err := rows.Scan(&sessionID, &createdAt, &groupIndex, &familyID); err != nil {
			return nil, fmt.Errorf("scan session member: %w", err)
		}
		if current == nil || current.ID != sessionID {
			current = &models.Session{ID: sessionID, CreatedAt: createdAt}
			out = append(out, current)
		}
		for len(current.Groups) <= groupIndex {
			current.Groups = append(current.Groups, pairing.Group{})
		}
		current.Groups[groupIndex] = append(current.Groups[groupIndex], familyID)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate session members: %w", err)
	}
	return out, nil
}
