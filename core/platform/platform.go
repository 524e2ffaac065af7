// Package platform describes the capabilities the assistant needs from the
// host it runs on. Implementations live in sub-packages.
package platform

import (
	"context"
	"errors"
)

// ErrPermissionDenied is returned by capability providers when the user has
// not granted the permission the capability needs.
var ErrPermissionDenied = errors.New("permission denied")

type Permission string

const (
	PermissionNotifications Permission = "notifications"
	PermissionMicrophone    Permission = "microphone"
	PermissionLocation      Permission = "location"
	PermissionContacts      Permission = "contacts"
)

// Background keeps the process alive while it is not in the foreground.
type Background interface {
	Enable(ctx context.Context) error
	DisableBatteryOptimizations(ctx context.Context) error
	MoveToBackground(ctx context.Context) error
}

type Permissions interface {
	// RequestPermissions asks for the given permissions and reports which
	// ones were granted. Denial is not an error.
	RequestPermissions(ctx context.Context, permissions ...Permission) (map[Permission]bool, error)
}

type Position struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

type Locator interface {
	CurrentPosition(ctx context.Context) (Position, error)
}

type AppInventory interface {
	InstalledApps(ctx context.Context) ([]string, error)
}

type ContactBook interface {
	// Contacts maps display names to phone numbers.
	Contacts(ctx context.Context) (map[string]string, error)
}

type AppLauncher interface {
	CanOpenURL(ctx context.Context, url string) (bool, error)
	OpenURL(ctx context.Context, url string) error
	// PerformActionOnExternalApp opens url inside the app identified by
	// pkg.
	PerformActionOnExternalApp(ctx context.Context, pkg string, url string) error
}
