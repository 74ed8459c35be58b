package postgres

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/julianstephens/medalert/internal/models"
	"github.com/julianstephens/medalert/internal/storage"
)

const medicationColumns = `id, name, dose, times, duration_days, start_date, image_ref, created_at`

func (s *Store) AddMedication(med models.Medication) error {
	timesJSON, err := json.Marshal(med.Times)
	if err != nil {
		return fmt.Errorf("failed to marshal times: %w", err)
	}

	_, err = s.db.Exec(`
		INSERT INTO medications (`+medicationColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, med.ID, med.Name, med.Dose, timesJSON, med.DurationDays, med.StartDate, med.ImageRef, med.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert medication: %w", err)
	}
	return nil
}

func (s *Store) GetMedication(id string) (models.Medication, error) {
	row := s.db.QueryRow(`SELECT `+medicationColumns+` FROM medications WHERE id = $1`, id)
	med, err := scanMedication(row)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Medication{}, fmt.Errorf("medication %s: %w", id, storage.ErrNotFound)
	}
	return med, err
}

func (s *Store) GetAllMedications() ([]models.Medication, error) {
	rows, err := s.db.Query(`SELECT ` + medicationColumns + ` FROM medications ORDER BY lower(name) ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to query medications: %w", err)
	}
	defer rows.Close()

	var meds []models.Medication
	for rows.Next() {
		med, err := scanMedication(rows)
		if err != nil {
			return nil, err
		}
		meds = append(meds, med)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating medications: %w", err)
	}
	return meds, nil
}

func (s *Store) DeleteMedication(id string) error {
	result, err := s.db.Exec(`DELETE FROM medications WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete medication: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("medication %s: %w", id, storage.ErrNotFound)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanMedication(row scanner) (models.Medication, error) {
	var med models.Medication
	var timesJSON []byte

	if err := row.Scan(&med.ID, &med.Name, &med.Dose, &timesJSON, &med.DurationDays, &med.StartDate, &med.ImageRef, &med.CreatedAt); err != nil {
		return models.Medication{}, err
	}
	if err := json.Unmarshal(timesJSON, &med.Times); err != nil {
		return models.Medication{}, fmt.Errorf("failed to unmarshal times: %w", err)
	}
	return med, nil
}
