package settings

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

const errRepoNotConfigured = "settings repository not configured"

// Repository reads and writes business_settings rows.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a settings repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Load returns the current settings, falling back to defaults for missing keys.
func (r *Repository) Load(ctx context.Context) (Settings, error) {
	if r == nil || r.pool == nil {
		return Settings{}, errors.New(errRepoNotConfigured)
	}

	rows, err := r.pool.Query(ctx, `
		SELECT key, value FROM business_settings WHERE key = ANY($1)`,
		[]string{keyOperatingMode, keySlotSelection})
	if err != nil {
		return Settings{}, fmt.Errorf("load business settings: %w", err)
	}
	defer rows.Close()

	raw := make(map[string][]byte, 2)
	for rows.Next() {
		var key string
		var value []byte
		if err := rows.Scan(&key, &value); err != nil {
			return Settings{}, fmt.Errorf("scan business setting: %w", err)
		}
		raw[key] = value
	}
	if err := rows.Err(); err != nil {
		return Settings{}, err
	}

	return decode(raw)
}

// Save upserts both keys.
func (r *Repository) Save(ctx context.Context, s Settings) error {
	if r == nil || r.pool == nil {
		return errors.New(errRepoNotConfigured)
	}

	mode, err := json.Marshal(string(s.Mode))
	if err != nil {
		return fmt.Errorf("marshal operating mode: %w", err)
	}
	selection, err := json.Marshal(s.SlotSelection.Normalize())
	if err != nil {
		return fmt.Errorf("marshal slot selection: %w", err)
	}

	_, err = r.pool.Exec(ctx, `
		INSERT INTO business_settings (key, value, updated_at)
		VALUES ($1, $2, now()), ($3, $4, now())
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = now()`,
		keyOperatingMode, mode, keySlotSelection, selection)
	if err != nil {
		return fmt.Errorf("save business settings: %w", err)
	}
	return nil
}

func decode(raw map[string][]byte) (Settings, error) {
	s := Defaults()

	if value, ok := raw[keyOperatingMode]; ok {
		var mode string
		if err := json.Unmarshal(value, &mode); err != nil {
			return Settings{}, fmt.Errorf("decode operating mode: %w", err)
		}
		s.Mode = ParseMode(mode)
	}

	if value, ok := raw[keySlotSelection]; ok {
		var selection SlotSelection
		if err := json.Unmarshal(value, &selection); err != nil {
			return Settings{}, fmt.Errorf("decode slot selection: %w", err)
		}
		s.SlotSelection = selection
	}

	s.SlotSelection = s.SlotSelection.Normalize()
	return s, nil
}
