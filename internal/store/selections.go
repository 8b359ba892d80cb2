package store

import (
	"database/sql"
	"fmt"
	"time"

	jsoniter "github.com/json-iterator/go"

	"github.com/abelbrown/geocomplete/internal/geocode"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Selection is a feature the user committed, with the term that found it.
type Selection struct {
	ID         int64
	FeatureID  string
	Label      string
	Term       string
	Point      *geocode.LatLon
	Properties map[string]any
	Uses       int
	SelectedAt time.Time
}

// SaveSelection records f as selected for term at time at. Selecting the
// same feature again bumps its use count and recency.
func (s *Store) SaveSelection(f geocode.Feature, term string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var props sql.NullString
	if len(f.Properties) > 0 {
		data, err := json.Marshal(f.Properties)
		if err != nil {
			return fmt.Errorf("encode properties: %w", err)
		}
		props = sql.NullString{String: string(data), Valid: true}
	}

	var lat, lon sql.NullFloat64
	if pt, ok := f.Point(); ok {
		lat = sql.NullFloat64{Float64: pt.Lat, Valid: true}
		lon = sql.NullFloat64{Float64: pt.Lon, Valid: true}
	}

	_, err := s.db.Exec(`
		INSERT INTO selections (feature_id, label, term, lat, lon, properties, selected_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(feature_id) DO UPDATE SET
			label = excluded.label,
			term = excluded.term,
			lat = excluded.lat,
			lon = excluded.lon,
			properties = excluded.properties,
			uses = uses + 1,
			selected_at = excluded.selected_at
	`, f.ID, f.Label, term, lat, lon, props, at.UTC())
	if err != nil {
		return fmt.Errorf("save selection: %w", err)
	}
	return nil
}

// RecentSelections returns up to limit selections, most recent first.
// limit <= 0 returns all.
func (s *Store) RecentSelections(limit int) ([]Selection, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.Query(`
		SELECT id, feature_id, label, term, lat, lon, properties, uses, selected_at
		FROM selections
		ORDER BY selected_at DESC, id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("query selections: %w", err)
	}
	defer rows.Close()

	var out []Selection
	for rows.Next() {
		var (
			sel      Selection
			lat, lon sql.NullFloat64
			props    sql.NullString
		)
		if err := rows.Scan(&sel.ID, &sel.FeatureID, &sel.Label, &sel.Term, &lat, &lon, &props, &sel.Uses, &sel.SelectedAt); err != nil {
			return nil, fmt.Errorf("scan selection: %w", err)
		}
		if lat.Valid && lon.Valid {
			sel.Point = &geocode.LatLon{Lat: lat.Float64, Lon: lon.Float64}
		}
		if props.Valid {
			if err := json.Unmarshal([]byte(props.String), &sel.Properties); err != nil {
				return nil, fmt.Errorf("decode properties for %s: %w", sel.FeatureID, err)
			}
		}
		out = append(out, sel)
	}
	return out, rows.Err()
}

// CountSelections returns the number of distinct features selected.
func (s *Store) CountSelections() (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var n int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM selections`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count selections: %w", err)
	}
	return n, nil
}

// ClearSelections deletes all history and returns how many rows went.
func (s *Store) ClearSelections() (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.Exec(`DELETE FROM selections`)
	if err != nil {
		return 0, fmt.Errorf("clear selections: %w", err)
	}
	return res.RowsAffected()
}
