// Package persist is the crash-safe, cabin-only half of the Order Store.
// Hall calls are never written here: on restart the network re-advertises
// outstanding hall calls through other peers, and persisting them risks
// duplicate service.
package persist

import (
	"database/sql"
	"fmt"
	"log/slog"

	_ "modernc.org/sqlite"

	"github.com/liftnode/liftnode/pkg/order"
)

// Store is a crash-safe cabin-order backing store. A zero value is not
// usable; construct with Open.
type Store struct {
	db        *sql.DB
	logger    *slog.Logger
	numFloors int
}

// Open opens (creating if absent) the sqlite-backed order store at path.
// Use ":memory:" for an ephemeral store in tests.
func Open(path string, numFloors int, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("persist: open %s: %w", path, err)
	}
	db.SetMaxOpenConns(1) // sqlite: one writer, avoids SQLITE_BUSY under our own concurrent calls
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS cabin_orders (floor INTEGER PRIMARY KEY)`); err != nil {
		db.Close()
		return nil, fmt.Errorf("persist: init schema: %w", err)
	}
	return &Store{db: db, logger: logger.With("service", "[PERSIST]"), numFloors: numFloors}, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// Persist writes a snapshot restricted to CABIN entries, replacing whatever
// was stored before. The write runs inside a transaction so a crash
// mid-write leaves the previous, still-consistent state on disk.
func (s *Store) Persist(cabin *order.Set) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("persist: begin: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op once committed

	if _, err := tx.Exec(`DELETE FROM cabin_orders`); err != nil {
		return fmt.Errorf("persist: clear: %w", err)
	}
	var writeErr error
	cabin.Each(func(o order.Order) {
		if writeErr != nil || o.Kind != order.Cabin {
			return
		}
		if _, err := tx.Exec(`INSERT INTO cabin_orders(floor) VALUES (?)`, o.Floor); err != nil {
			writeErr = err
		}
	})
	if writeErr != nil {
		return fmt.Errorf("persist: insert: %w", writeErr)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("persist: commit: %w", err)
	}
	return nil
}

// Load returns the persisted cabin set, or an empty set if no rows exist or
// the file is corrupt. A corrupt/unreadable store is logged, never fatal.
func (s *Store) Load() *order.Set {
	out := order.NewSet(s.numFloors)
	rows, err := s.db.Query(`SELECT floor FROM cabin_orders`)
	if err != nil {
		s.logger.Warn("load failed, starting with empty cabin set", "error", err)
		return out
	}
	defer rows.Close()
	for rows.Next() {
		var floor int
		if err := rows.Scan(&floor); err != nil {
			s.logger.Warn("corrupt row, skipping", "error", err)
			continue
		}
		out.Add(order.Order{Kind: order.Cabin, Floor: floor})
	}
	if err := rows.Err(); err != nil {
		s.logger.Warn("load interrupted, returning partial set", "error", err)
	}
	return out
}
