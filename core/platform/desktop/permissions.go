package desktop

import (
	"context"

	"github.com/koscakluka/lola/core/platform"
)

// Permissions grants everything except the permissions it was built to deny.
// Desktops have no runtime permission prompts; denial is how a user opts out
// of a metadata signal.
type Permissions struct {
	denied map[platform.Permission]bool
}

func NewPermissions(denied ...platform.Permission) *Permissions {
	p := &Permissions{denied: map[platform.Permission]bool{}}
	for _, permission := range denied {
		p.denied[permission] = true
	}
	return p
}

func (p *Permissions) RequestPermissions(_ context.Context, permissions ...platform.Permission) (map[platform.Permission]bool, error) {
	granted := make(map[platform.Permission]bool, len(permissions))
	for _, permission := range permissions {
		granted[permission] = !p.denied[permission]
	}
	return granted, nil
}

// Granted reports whether permission would be granted.
func (p *Permissions) Granted(permission platform.Permission) bool {
	return !p.denied[permission]
}

// GuardLocator makes locator fail with [platform.ErrPermissionDenied] while
// the location permission is denied.
func (p *Permissions) GuardLocator(locator platform.Locator) platform.Locator {
	return guardedLocator{permissions: p, locator: locator}
}

// GuardContacts makes contacts fail with [platform.ErrPermissionDenied]
// while the contacts permission is denied.
func (p *Permissions) GuardContacts(contacts platform.ContactBook) platform.ContactBook {
	return guardedContacts{permissions: p, contacts: contacts}
}

type guardedLocator struct {
	permissions *Permissions
	locator     platform.Locator
}

func (g guardedLocator) CurrentPosition(ctx context.Context) (platform.Position, error) {
	if !g.permissions.Granted(platform.PermissionLocation) {
		return platform.Position{}, platform.ErrPermissionDenied
	}
	return g.locator.CurrentPosition(ctx)
}

type guardedContacts struct {
	permissions *Permissions
	contacts    platform.ContactBook
}

func (g guardedContacts) Contacts(ctx context.Context) (map[string]string, error) {
	if !g.permissions.Granted(platform.PermissionContacts) {
		return nil, platform.ErrPermissionDenied
	}
	return g.contacts.Contacts(ctx)
}
