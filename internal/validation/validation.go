package validation

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/julianstephens/medalert/internal/models"
	"github.com/julianstephens/medalert/internal/schedule"
)

// ConflictType represents the type of validation conflict
type ConflictType string

const (
	ConflictMissingField        ConflictType = "missing_field"
	ConflictInvalidTime         ConflictType = "invalid_time"
	ConflictDuplicateTime       ConflictType = "duplicate_time"
	ConflictDuplicateName       ConflictType = "duplicate_medication_name"
	ConflictInvalidDuration     ConflictType = "invalid_duration"
	ConflictMissingMedicationID ConflictType = "missing_medication_id"
)

// Conflict is one problem found in a medication or a set of medications
type Conflict struct {
	Type          ConflictType
	Description   string
	Items         []string // names or values involved
	MedicationIDs []string
}

// ValidationResult contains all detected conflicts
type ValidationResult struct {
	Conflicts []Conflict
}

// HasConflicts returns true if there are any conflicts
func (vr *ValidationResult) HasConflicts() bool {
	return len(vr.Conflicts) > 0
}

// FormatReport returns a human-readable report of all conflicts
func (vr *ValidationResult) FormatReport() string {
	if !vr.HasConflicts() {
		return "No conflicts detected."
	}

	var b strings.Builder
	b.WriteString("Conflicts detected:\n")
	for _, c := range vr.Conflicts {
		fmt.Fprintf(&b, "- %s\n", c.Description)
	}
	return b.String()
}

// Err folds the conflicts into a single error, or nil when there are none.
func (vr *ValidationResult) Err() error {
	if !vr.HasConflicts() {
		return nil
	}
	errs := make([]error, 0, len(vr.Conflicts))
	for _, c := range vr.Conflicts {
		errs = append(errs, errors.New(c.Description))
	}
	return errors.Join(errs...)
}

// Validator validates medications before any alert is scheduled
type Validator struct {
	validate *validator.Validate
}

// New creates a new Validator
func New() *Validator {
	return &Validator{validate: validator.New()}
}

// ValidateMedication checks a single medication. The time batch is checked as a whole.
func (v *Validator) ValidateMedication(med models.Medication) ValidationResult {
	result := ValidationResult{Conflicts: []Conflict{}}

	if err := v.validate.Struct(med); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			for _, fe := range verrs {
				result.Conflicts = append(result.Conflicts, fieldConflict(med, fe))
			}
		} else {
			result.Conflicts = append(result.Conflicts, Conflict{
				Type:        ConflictMissingField,
				Description: err.Error(),
			})
		}
	}

	seen := make(map[string]string)
	for _, raw := range med.Times {
		h, m, err := schedule.ParseClock(raw)
		if err != nil {
			result.Conflicts = append(result.Conflicts, Conflict{
				Type:          ConflictInvalidTime,
				Description:   fmt.Sprintf("Medication \"%s\" has invalid time: %v", med.Name, err),
				Items:         []string{raw},
				MedicationIDs: []string{med.ID},
			})
			continue
		}
		key := fmt.Sprintf("%02d:%02d", h, m)
		if prev, ok := seen[key]; ok {
			result.Conflicts = append(result.Conflicts, Conflict{
				Type:          ConflictDuplicateTime,
				Description:   fmt.Sprintf("Medication \"%s\" lists the same time twice: %s and %s", med.Name, prev, raw),
				Items:         []string{prev, raw},
				MedicationIDs: []string{med.ID},
			})
			continue
		}
		seen[key] = raw
	}

	return result
}

// ValidateMedications checks every medication and looks for duplicate names across the set.
func (v *Validator) ValidateMedications(meds []models.Medication) ValidationResult {
	result := ValidationResult{Conflicts: []Conflict{}}

	nameIDs := make(map[string][]string)
	for _, med := range meds {
		single := v.ValidateMedication(med)
		result.Conflicts = append(result.Conflicts, single.Conflicts...)
		if med.Name == "" {
			continue
		}
		key := strings.ToLower(strings.TrimSpace(med.Name))
		nameIDs[key] = append(nameIDs[key], med.ID)
	}

	names := make([]string, 0, len(nameIDs))
	for name := range nameIDs {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		ids := nameIDs[name]
		if len(ids) > 1 {
			result.Conflicts = append(result.Conflicts, Conflict{
				Type:          ConflictDuplicateName,
				Description:   fmt.Sprintf("Duplicate medication name: \"%s\" (IDs: %v)", name, ids),
				Items:         []string{name},
				MedicationIDs: ids,
			})
		}
	}

	return result
}

func fieldConflict(med models.Medication, fe validator.FieldError) Conflict {
	c := Conflict{MedicationIDs: []string{med.ID}, Items: []string{fe.Field()}}
	switch fe.Field() {
	case "ID":
		c.Type = ConflictMissingMedicationID
		c.Description = "Medication is missing an id"
	case "DurationDays":
		c.Type = ConflictInvalidDuration
		c.Description = fmt.Sprintf("Medication \"%s\" has invalid duration %d (must be between 1 and 3650 days)", med.Name, med.DurationDays)
	default:
		c.Type = ConflictMissingField
		c.Description = fmt.Sprintf("Medication \"%s\": field %s failed '%s' validation", med.Name, fe.Field(), fe.Tag())
	}
	return c
}
