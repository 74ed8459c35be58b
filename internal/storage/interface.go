package storage

import (
	"context"
	"errors"

	"github.com/julianstephens/medalert/internal/models"
)

// ErrNotFound is returned when a medication or alert entry does not exist.
var ErrNotFound = errors.New("not found")

// AlertStore persists the scheduler's alert entries. One row per id.
type AlertStore interface {
	// UpsertAlert inserts entry or replaces the row with the same id.
	UpsertAlert(ctx context.Context, entry models.AlertEntry) error
	GetAlert(ctx context.Context, id string) (models.AlertEntry, error)
	// ListAlerts returns every entry ordered by fire instant.
	ListAlerts(ctx context.Context) ([]models.AlertEntry, error)
	// DeleteAlert removes the row for id. Missing ids return ErrNotFound.
	DeleteAlert(ctx context.Context, id string) error
}

type Provider interface {
	// Lifecycle
	Init() error
	Load() error
	Close() error

	// Settings
	GetSettings() (models.Settings, error)
	SaveSettings(models.Settings) error

	// Medications
	AddMedication(models.Medication) error
	GetMedication(id string) (models.Medication, error)
	GetAllMedications() ([]models.Medication, error)
	DeleteMedication(id string) error

	// Scheduler rows
	AlertStore

	// Utils
	GetConfigPath() string
}
