// Package ledger persists manual station fixups in a small SQLite
// database so they survive scraper resets and apply automatically on the
// next encounter with the same station.
package ledger

import (
	"database/sql"
	"errors"
	"fmt"

	_ "modernc.org/sqlite"

	"github.com/DelaTrain/scraper/geo"
)

const schema = `CREATE TABLE IF NOT EXISTS fixups (
	station   TEXT PRIMARY KEY,
	latitude  REAL NOT NULL,
	longitude REAL NOT NULL
)`

// Ledger is a persistent station-name to corrected-location map.
type Ledger struct {
	db *sql.DB
}

// Open opens or creates the ledger database at path.
func Open(path string) (*Ledger, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open fixup ledger: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("initialize fixup ledger: %w", err)
	}
	return &Ledger{db: db}, nil
}

// Lookup returns the saved location for a station, if one was recorded.
func (l *Ledger) Lookup(station string) (geo.Position, bool, error) {
	var pos geo.Position
	err := l.db.QueryRow(
		`SELECT latitude, longitude FROM fixups WHERE station = ?`, station,
	).Scan(&pos.Latitude, &pos.Longitude)
	if errors.Is(err, sql.ErrNoRows) {
		return geo.Position{}, false, nil
	}
	if err != nil {
		return geo.Position{}, false, fmt.Errorf("fixup lookup %q: %w", station, err)
	}
	return pos, true, nil
}

// Save records a corrected location, replacing any earlier one.
func (l *Ledger) Save(station string, pos geo.Position) error {
	_, err := l.db.Exec(
		`INSERT INTO fixups (station, latitude, longitude) VALUES (?, ?, ?)
		 ON CONFLICT (station) DO UPDATE SET latitude = excluded.latitude, longitude = excluded.longitude`,
		station, pos.Latitude, pos.Longitude)
	if err != nil {
		return fmt.Errorf("fixup save %q: %w", station, err)
	}
	return nil
}

func (l *Ledger) Close() error {
	return l.db.Close()
}
