package indexdb

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"autocraft.ai/internal/sim/world"
	"autocraft.ai/internal/sim/world/logic/ids"
)

// CountByCode returns attempt counts keyed by reason code; committed attempts use "OK".
// Only rows already flushed by the writer are visible.
func (s *SQLiteIndex) CountByCode(ctx context.Context) (map[string]int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT CASE WHEN committed=1 THEN 'OK' ELSE code END, COUNT(*) FROM attempts GROUP BY 1`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := map[string]int{}
	for rows.Next() {
		var code string
		var n int
		if err := rows.Scan(&code, &n); err != nil {
			return nil, err
		}
		out[code] = n
	}
	return out, rows.Err()
}

// StationAttempts returns the latest attempts of one station, newest first.
func (s *SQLiteIndex) StationAttempts(ctx context.Context, stationID string, limit int) ([]world.AttemptEntry, error) {
	if _, _, _, ok := ids.ParseStationID(stationID); !ok {
		return nil, fmt.Errorf("not a station id: %q", stationID)
	}
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `SELECT raw_json FROM attempts WHERE station_id=? ORDER BY tick DESC, rowid DESC LIMIT ?`, stationID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []world.AttemptEntry
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, err
		}
		var e world.AttemptEntry
		if err := json.Unmarshal([]byte(raw), &e); err != nil {
			return nil, fmt.Errorf("attempt row: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// LatestSnapshot returns the path of the newest indexed snapshot, or "" if none.
func (s *SQLiteIndex) LatestSnapshot(ctx context.Context) (path string, tick uint64, err error) {
	var t int64
	err = s.db.QueryRowContext(ctx, `SELECT path, tick FROM snapshots ORDER BY tick DESC LIMIT 1`).Scan(&path, &t)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", 0, nil
		}
		return "", 0, err
	}
	return path, uint64(t), nil
}
