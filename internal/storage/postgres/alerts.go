package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/julianstephens/medalert/internal/constants"
	"github.com/julianstephens/medalert/internal/models"
	"github.com/julianstephens/medalert/internal/storage"
)

const alertColumns = `id, fire_at, payload, sound, priority, category, created_at`

func (s *Store) UpsertAlert(ctx context.Context, entry models.AlertEntry) error {
	payload, err := entry.MarshalPayload()
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO alert_entries (id, medication_id, lineage_id, fire_at, payload, sound, priority, category, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO UPDATE SET
			medication_id = EXCLUDED.medication_id,
			lineage_id = EXCLUDED.lineage_id,
			fire_at = EXCLUDED.fire_at,
			payload = EXCLUDED.payload,
			sound = EXCLUDED.sound,
			priority = EXCLUDED.priority,
			category = EXCLUDED.category,
			created_at = EXCLUDED.created_at
	`,
		entry.ID, entry.Payload.MedicationID, entry.Payload.SnoozeLineageID, entry.FireAt, payload,
		entry.Sound, string(entry.Priority), string(entry.Category), entry.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert alert: %w", err)
	}
	return nil
}

func (s *Store) GetAlert(ctx context.Context, id string) (models.AlertEntry, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+alertColumns+` FROM alert_entries WHERE id = $1`, id)
	entry, err := scanAlert(row)
	if errors.Is(err, sql.ErrNoRows) {
		return models.AlertEntry{}, fmt.Errorf("alert %s: %w", id, storage.ErrNotFound)
	}
	return entry, err
}

func (s *Store) ListAlerts(ctx context.Context) ([]models.AlertEntry, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+alertColumns+` FROM alert_entries ORDER BY fire_at ASC, id ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to query alerts: %w", err)
	}
	defer rows.Close()

	var entries []models.AlertEntry
	for rows.Next() {
		entry, err := scanAlert(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating alerts: %w", err)
	}
	return entries, nil
}

func (s *Store) DeleteAlert(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM alert_entries WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete alert: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("alert %s: %w", id, storage.ErrNotFound)
	}
	return nil
}

func scanAlert(row scanner) (models.AlertEntry, error) {
	var entry models.AlertEntry
	var payload []byte
	var priority, category string

	if err := row.Scan(&entry.ID, &entry.FireAt, &payload, &entry.Sound, &priority, &category, &entry.CreatedAt); err != nil {
		return models.AlertEntry{}, err
	}
	if err := entry.UnmarshalPayload(string(payload)); err != nil {
		return models.AlertEntry{}, fmt.Errorf("failed to unmarshal payload: %w", err)
	}
	entry.Priority = constants.Priority(priority)
	entry.Category = constants.Category(category)
	return entry, nil
}
