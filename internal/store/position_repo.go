package store

import (
	"context"

	"github.com/infinitumhq/infinitum/internal/dbx"
	"github.com/infinitumhq/infinitum/internal/models"
)

// MaxPositionsPerDevice caps retained pose samples per (session, device).
// Older samples beyond the cap are pruned on insert, which keeps the local
// database from growing without bound during long sessions.
const MaxPositionsPerDevice = 500

// PositionRepository stores append-only pose samples.
type PositionRepository struct {
	db dbx.DBTX
}

func NewPositionRepository(db dbx.DBTX) *PositionRepository {
	return &PositionRepository{db: db}
}

// Insert appends a sample and prunes anything older than the retention cap
// for that (session, device) pair.
func (r *PositionRepository) Insert(ctx context.Context, p *models.DevicePosition) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO positions (id, x, y, z, rotation, device_id, session_id, ts)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.X, p.Y, p.Z, p.Rotation, p.DeviceID, p.SessionID, p.Timestamp.UnixNano())
	if err != nil {
		return storageErr("insert position", err)
	}

	_, err = r.db.ExecContext(ctx,
		`DELETE FROM positions WHERE session_id = ? AND device_id = ? AND id NOT IN (
			SELECT id FROM positions WHERE session_id = ? AND device_id = ?
			ORDER BY ts DESC, id DESC LIMIT ?)`,
		p.SessionID, p.DeviceID, p.SessionID, p.DeviceID, MaxPositionsPerDevice)
	return storageErr("prune positions", err)
}

// FindBySession lists samples for a session, newest first.
func (r *PositionRepository) FindBySession(ctx context.Context, sessionID string) ([]*models.DevicePosition, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, x, y, z, rotation, device_id, session_id, ts
		 FROM positions WHERE session_id = ? ORDER BY ts DESC, id DESC`, sessionID)
	if err != nil {
		return nil, storageErr("query positions", err)
	}
	defer rows.Close()

	var result []*models.DevicePosition
	for rows.Next() {
		p := &models.DevicePosition{}
		var ts int64
		if err := rows.Scan(&p.ID, &p.X, &p.Y, &p.Z, &p.Rotation, &p.DeviceID, &p.SessionID, &ts); err != nil {
			return nil, storageErr("scan position", err)
		}
		p.Timestamp = fromUnixNano(ts)
		result = append(result, p)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("iterate positions", err)
	}
	return result, nil
}
