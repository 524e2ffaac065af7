package metadata

import "github.com/koscakluka/lola/core/platform"

// TurnMetadata carries contextual signals sent along with a prompt. Every
// field is best-effort and omitted when it could not be acquired.
type TurnMetadata struct {
	InstalledApps []string           `json:"installedApps,omitempty"`
	GPSPosition   *platform.Position `json:"gpsPosition,omitempty"`
	Contacts      map[string]string  `json:"contacts,omitempty"`
}
