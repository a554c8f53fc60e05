package reporter

import (
	"github.com/gen2brain/beeep"
)

// DesktopNotifier raises OS-native notifications. Disabled instances
// drop everything silently (headless hosts, tests).
type DesktopNotifier struct {
	enabled bool
	icon    string
}

func NewDesktopNotifier(enabled bool, icon string) *DesktopNotifier {
	return &DesktopNotifier{enabled: enabled, icon: icon}
}

func (n *DesktopNotifier) Notify(title, body string) error {
	if !n.enabled {
		return nil
	}
	return beeep.Notify(title, body, n.icon)
}
