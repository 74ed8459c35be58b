package tray

import "github.com/gen2brain/beeep"

// DesktopNotifier raises notifications through the OS notification center.
type DesktopNotifier struct{}

func (DesktopNotifier) Notify(title, message string) error {
	return beeep.Notify(title, message, "")
}
