package meds

import (
	"fmt"
	"strconv"

	"github.com/julianstephens/medalert/internal/cli"
	"github.com/julianstephens/medalert/internal/constants"
)

type MedListCmd struct{}

func (c *MedListCmd) Run(ctx *cli.Context) error {
	meds, err := ctx.Store.GetAllMedications()
	if err != nil {
		return fmt.Errorf("failed to get medications: %w", err)
	}

	if len(meds) == 0 {
		fmt.Println("No medications registered.")
		return nil
	}

	rows := make([][]string, 0, len(meds))
	for _, med := range meds {
		rows = append(rows, []string{
			med.ID,
			cli.Truncate(med.Name, 28),
			cli.Truncate(med.Dose, 20),
			med.FormatTimes(),
			strconv.Itoa(med.DurationDays),
			med.StartDate.Format(constants.DateFormat),
		})
	}
	cli.PrintTable([]string{"ID", "Name", "Dose", "Times", "Days", "Start"}, rows)
	return nil
}
