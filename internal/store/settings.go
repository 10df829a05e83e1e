package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/Simplici0/sims/internal/costing"
)

// Setting keys as stored in the settings table.
const (
	KeyHourlyRate          = "hourly_rate"
	KeyWearTearMarkup      = "wear_tear_markup"
	KeyPlatformFees        = "platform_fees"
	KeyFilamentSpoolPrice  = "filament_spool_price"
	KeyDesiredProfitMargin = "desired_profit_margin"
	KeyPackagingCost       = "packaging_cost"
	KeySpoolWeight         = "spool_weight"
	KeyFilamentMarkup      = "filament_markup"
)

// SettingsRows flattens settings into key/value pairs.
func SettingsRows(s costing.Settings) map[string]float64 {
	return map[string]float64{
		KeyHourlyRate:          s.HourlyRate,
		KeyWearTearMarkup:      s.WearTearMarkup,
		KeyPlatformFees:        s.PlatformFees,
		KeyFilamentSpoolPrice:  s.FilamentSpoolPrice,
		KeyDesiredProfitMargin: s.DesiredProfitMargin,
		KeyPackagingCost:       s.PackagingCost,
		KeySpoolWeight:         s.SpoolWeight,
		KeyFilamentMarkup:      s.FilamentMarkup,
	}
}

func applySetting(s *costing.Settings, key string, value float64) {
	switch key {
	case KeyHourlyRate:
		s.HourlyRate = value
	case KeyWearTearMarkup:
		s.WearTearMarkup = value
	case KeyPlatformFees:
		s.PlatformFees = value
	case KeyFilamentSpoolPrice:
		s.FilamentSpoolPrice = value
	case KeyDesiredProfitMargin:
		s.DesiredProfitMargin = value
	case KeyPackagingCost:
		s.PackagingCost = value
	case KeySpoolWeight:
		s.SpoolWeight = value
	case KeyFilamentMarkup:
		s.FilamentMarkup = value
	}
}

// GetSettings returns the current settings. Keys missing from the table keep
// their default value.
func (s *Store) GetSettings(ctx context.Context) (costing.Settings, error) {
	return getSettings(ctx, s.db)
}

func getSettings(ctx context.Context, q queryer) (costing.Settings, error) {
	rows, err := q.QueryContext(ctx, `SELECT key, value FROM settings`)
	if err != nil {
		return costing.Settings{}, fmt.Errorf("query settings: %w", err)
	}
	defer rows.Close()

	settings := costing.DefaultSettings()
	for rows.Next() {
		var key string
		var value float64
		if err := rows.Scan(&key, &value); err != nil {
			return costing.Settings{}, fmt.Errorf("scan setting: %w", err)
		}
		applySetting(&settings, key, value)
	}
	if err := rows.Err(); err != nil {
		return costing.Settings{}, fmt.Errorf("iterate settings: %w", err)
	}
	return settings, nil
}

// PutSettings replaces every setting in one transaction and returns the stored values.
func (s *Store) PutSettings(ctx context.Context, settings costing.Settings) (costing.Settings, error) {
	if err := settings.Validate(); err != nil {
		return costing.Settings{}, fmt.Errorf("put settings: %w: %v", ErrValidation, err)
	}

	var stored costing.Settings
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		for key, value := range SettingsRows(settings) {
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO settings (key, value, updated_at)
				VALUES (?, ?, CURRENT_TIMESTAMP)
				ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = CURRENT_TIMESTAMP
			`, key, value); err != nil {
				return fmt.Errorf("upsert setting %s: %w", key, err)
			}
		}
		var err error
		stored, err = getSettings(ctx, tx)
		return err
	})
	if err != nil {
		return costing.Settings{}, err
	}
	return stored, nil
}
