package meds

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/julianstephens/medalert/internal/cli"
	"github.com/julianstephens/medalert/internal/constants"
	"github.com/julianstephens/medalert/internal/models"
	"github.com/julianstephens/medalert/internal/registry"
	"github.com/julianstephens/medalert/internal/schedule"
	"github.com/julianstephens/medalert/internal/validation"
)

type MedAddCmd struct {
	Name  string   `arg:"" help:"Medication name."`
	Dose  string   `short:"d" help:"Dose to take, e.g. '1 tablet'." required:""`
	Times []string `short:"t" name:"time" help:"Time of day to take it (8:00 AM or 20:00). Repeat for several." required:"" sep:"none"`
	Days  int      `short:"n" help:"Number of days to schedule." default:"1"`
	Start string   `short:"s" help:"First day (YYYY-MM-DD). Defaults to today."`
	Image string   `help:"Optional reference to a picture of the medication."`
}

func (c *MedAddCmd) Run(ctx *cli.Context) error {
	settings := ctx.Settings()
	loc, err := settings.Location()
	if err != nil {
		return err
	}
	now := ctx.Now()

	start := now.In(loc)
	if c.Start != "" {
		start, err = time.ParseInLocation(constants.DateFormat, c.Start, loc)
		if err != nil {
			return fmt.Errorf("invalid start date %q, expected YYYY-MM-DD: %w", c.Start, err)
		}
	}

	med := models.Medication{
		ID:           uuid.NewString(),
		Name:         strings.TrimSpace(c.Name),
		Dose:         strings.TrimSpace(c.Dose),
		Times:        c.Times,
		DurationDays: c.Days,
		StartDate:    start,
		ImageRef:     c.Image,
		CreatedAt:    now,
	}

	result := validation.New().ValidateMedication(med)
	if result.HasConflicts() {
		fmt.Print(result.FormatReport())
		return fmt.Errorf("medication is invalid: %w", result.Err())
	}

	alerts, err := schedule.Expand(med, now, loc)
	if err != nil {
		return err
	}

	if err := ctx.Store.AddMedication(med); err != nil {
		return fmt.Errorf("failed to save medication: %w", err)
	}

	n, err := registry.ScheduleAll(context.Background(), ctx.Registry(), alerts)
	if err != nil {
		return fmt.Errorf("scheduled %d alerts before failing: %w", n, err)
	}

	fmt.Printf("Added medication: %s (ID: %s)\n", med.Name, med.ID)
	fmt.Printf("Scheduled %d alert(s) over %d day(s) at %s\n", n, med.DurationDays, med.FormatTimes())
	if n == 0 {
		fmt.Println(cli.WarningStyle.Render("Every dose time is already in the past; nothing will ring."))
	}
	return nil
}
