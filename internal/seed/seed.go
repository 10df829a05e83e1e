package seed

import (
	"context"
	"database/sql"
	"fmt"
	"sort"

	"github.com/Simplici0/sims/internal/costing"
	"github.com/Simplici0/sims/internal/store"
)

const defaultPrinterName = "Default Printer"

// Config contains the values required by startup seed.
type Config struct {
	// DefaultPrinter is created when the printers table is empty. Empty skips it.
	DefaultPrinter string
}

// DefaultConfig returns the seed used by the server.
func DefaultConfig() Config {
	return Config{DefaultPrinter: defaultPrinterName}
}

// Stats contains seed operation counters.
type Stats struct {
	Inserts int
	Updates int
}

// Run executes the startup seed in an idempotent way.
func Run(ctx context.Context, db *sql.DB, cfg Config) (Stats, error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return Stats{}, fmt.Errorf("begin seed transaction: %w", err)
	}

	stats := Stats{}

	if err := ensureSettings(ctx, tx, &stats); err != nil {
		_ = tx.Rollback()
		return Stats{}, err
	}
	if err := ensurePrinter(ctx, tx, cfg.DefaultPrinter, &stats); err != nil {
		_ = tx.Rollback()
		return Stats{}, err
	}

	if err := tx.Commit(); err != nil {
		return Stats{}, fmt.Errorf("commit seed transaction: %w", err)
	}

	return stats, nil
}

func ensureSettings(ctx context.Context, tx *sql.Tx, stats *Stats) error {
	defaults := store.SettingsRows(costing.DefaultSettings())
	keys := make([]string, 0, len(defaults))
	for key := range defaults {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for _, key := range keys {
		result, err := tx.ExecContext(ctx, `
			INSERT INTO settings (key, value) VALUES (?, ?)
			ON CONFLICT(key) DO NOTHING
		`, key, defaults[key])
		if err != nil {
			return fmt.Errorf("insert default setting %s: %w", key, err)
		}
		affected, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("insert default setting %s: rows affected: %w", key, err)
		}
		stats.Inserts += int(affected)
	}
	return nil
}

func ensurePrinter(ctx context.Context, tx *sql.Tx, name string, stats *Stats) error {
	if name == "" {
		return nil
	}

	var exists bool
	if err := tx.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM printers LIMIT 1)`).Scan(&exists); err != nil {
		return fmt.Errorf("check printer existence: %w", err)
	}
	if exists {
		return nil
	}

	if _, err := tx.ExecContext(ctx, `INSERT INTO printers (name) VALUES (?)`, name); err != nil {
		return fmt.Errorf("insert default printer: %w", err)
	}
	stats.Inserts++
	return nil
}
