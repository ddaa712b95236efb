package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	"github.com/infinitumhq/infinitum/internal/dbx"
	"github.com/infinitumhq/infinitum/internal/models"
)

// SessionRepository implements session persistence over a DBTX.
type SessionRepository struct {
	db dbx.DBTX
}

func NewSessionRepository(db dbx.DBTX) *SessionRepository {
	return &SessionRepository{db: db}
}

// Save upserts a session by id.
func (r *SessionRepository) Save(ctx context.Context, s *models.Session) error {
	participants, err := json.Marshal(s.Participants)
	if err != nil {
		return storageErr("encode participants", err)
	}

	query := `INSERT INTO sessions (id, name, created_at, last_active_at, active, participants, record_ref)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			last_active_at = excluded.last_active_at,
			active = excluded.active,
			participants = excluded.participants,
			record_ref = excluded.record_ref`
	_, err = r.db.ExecContext(ctx, query,
		s.ID, s.Name, s.CreatedAt.UnixNano(), s.LastActiveAt.UnixNano(),
		s.Active, string(participants), s.RecordRef)
	return storageErr("save session", err)
}

// FindByID returns the session with the given id, or nil when absent.
func (r *SessionRepository) FindByID(ctx context.Context, id string) (*models.Session, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, name, created_at, last_active_at, active, participants, record_ref
		 FROM sessions WHERE id = ?`, id)

	s, err := scanSession(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, storageErr("query session", err)
	}
	return s, nil
}

// FindActive lists all sessions still marked active.
func (r *SessionRepository) FindActive(ctx context.Context) ([]*models.Session, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, name, created_at, last_active_at, active, participants, record_ref
		 FROM sessions WHERE active = 1 ORDER BY last_active_at DESC`)
	if err != nil {
		return nil, storageErr("query sessions", err)
	}
	defer rows.Close()

	var result []*models.Session
	for rows.Next() {
		s := &models.Session{}
		var createdAt, lastActiveAt int64
		var participants string
		if err := rows.Scan(&s.ID, &s.Name, &createdAt, &lastActiveAt, &s.Active, &participants, &s.RecordRef); err != nil {
			return nil, storageErr("scan session", err)
		}
		s.CreatedAt = fromUnixNano(createdAt)
		s.LastActiveAt = fromUnixNano(lastActiveAt)
		s.Participants = decodeParticipantsJSON(participants)
		result = append(result, s)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("iterate sessions", err)
	}
	return result, nil
}

// Delete removes a session row by id.
func (r *SessionRepository) Delete(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM sessions WHERE id = ?`, id)
	return storageErr("delete session", err)
}

func scanSession(row *sql.Row) (*models.Session, error) {
	s := &models.Session{}
	var createdAt, lastActiveAt int64
	var participants string
	err := row.Scan(&s.ID, &s.Name, &createdAt, &lastActiveAt, &s.Active, &participants, &s.RecordRef)
	if err != nil {
		return nil, err
	}
	s.CreatedAt = fromUnixNano(createdAt)
	s.LastActiveAt = fromUnixNano(lastActiveAt)
	s.Participants = decodeParticipantsJSON(participants)
	return s, nil
}

func decodeParticipantsJSON(s string) []string {
	var ids []string
	if err := json.Unmarshal([]byte(s), &ids); err != nil || ids == nil {
		return []string{}
	}
	return ids
}
