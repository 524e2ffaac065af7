package desktop

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/koscakluka/lola/core/platform"
)

var _ platform.AppInventory = (*AppInventory)(nil)

// AppInventory lists installed applications by their desktop entry id, for
// example "org.mozilla.firefox".
type AppInventory struct {
	dirs []string
}

type AppInventoryOption func(*AppInventory)

// WithApplicationDirs replaces the XDG application directories.
func WithApplicationDirs(dirs ...string) AppInventoryOption {
	return func(a *AppInventory) { a.dirs = dirs }
}

func NewAppInventory(opts ...AppInventoryOption) *AppInventory {
	a := &AppInventory{dirs: xdgApplicationDirs()}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

func (a *AppInventory) InstalledApps(ctx context.Context) ([]string, error) {
	_, span := tracer.Start(ctx, "list installed apps")
	defer span.End()

	var apps []string
	for _, dir := range a.dirs {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		entries, err := os.ReadDir(dir)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		} else if err != nil {
			logger.Warn("failed to read application directory", "dir", dir, "error", err)
			continue
		}

		for _, entry := range entries {
			if entry.IsDir() || filepath.Ext(entry.Name()) != ".desktop" {
				continue
			}
			apps = append(apps, strings.TrimSuffix(entry.Name(), ".desktop"))
		}
	}

	slices.Sort(apps)
	return slices.Compact(apps), nil
}

// Has reports whether an application with the given id is installed.
func (a *AppInventory) Has(ctx context.Context, id string) (bool, error) {
	apps, err := a.InstalledApps(ctx)
	if err != nil {
		return false, err
	}
	_, found := slices.BinarySearch(apps, id)
	return found, nil
}

func xdgApplicationDirs() []string {
	dataHome := os.Getenv("XDG_DATA_HOME")
	if dataHome == "" {
		if home, err := os.UserHomeDir(); err == nil {
			dataHome = filepath.Join(home, ".local", "share")
		}
	}

	dataDirs := os.Getenv("XDG_DATA_DIRS")
	if dataDirs == "" {
		dataDirs = "/usr/local/share:/usr/share"
	}

	var dirs []string
	if dataHome != "" {
		dirs = append(dirs, filepath.Join(dataHome, "applications"))
	}
	for _, dir := range filepath.SplitList(dataDirs) {
		dirs = append(dirs, filepath.Join(dir, "applications"))
	}
	return dirs
}
