package cli

import "github.com/charmbracelet/huh"

// ConfirmFunc asks a yes/no question. Tests replace it.
var ConfirmFunc = confirm

func confirm(title, description string) (bool, error) {
	var ok bool
	err := huh.NewConfirm().
		Title(title).
		Description(description).
		Affirmative("Yes").
		Negative("No").
		Value(&ok).
		Run()
	return ok, err
}

// Confirm asks the user before a destructive action. assumeYes skips the prompt.
func Confirm(assumeYes bool, title, description string) (bool, error) {
	if assumeYes {
		return true, nil
	}
	return ConfirmFunc(title, description)
}
