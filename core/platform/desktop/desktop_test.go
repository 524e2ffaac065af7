package desktop

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/koscakluka/lola/core/platform"
)

func TestInstalledAppsMergesDirectories(t *testing.T) {
	userDir := t.TempDir()
	systemDir := t.TempDir()
	touch(t, filepath.Join(userDir, "org.mozilla.firefox.desktop"))
	touch(t, filepath.Join(systemDir, "org.mozilla.firefox.desktop"))
	touch(t, filepath.Join(systemDir, "com.spotify.Client.desktop"))
	touch(t, filepath.Join(systemDir, "mimeinfo.cache"))

	inventory := NewAppInventory(WithApplicationDirs(userDir, systemDir, filepath.Join(userDir, "missing")))
	apps, err := inventory.InstalledApps(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if strings.Join(apps, ",") != "com.spotify.Client,org.mozilla.firefox" {
		t.Fatalf("unexpected apps %v", apps)
	}
}

func TestAppLauncher(t *testing.T) {
	appsDir := t.TempDir()
	touch(t, filepath.Join(appsDir, "org.mozilla.firefox.desktop"))

	var commands []string
	launcher := NewAppLauncher(
		NewAppInventory(WithApplicationDirs(appsDir)),
		WithCommandRunner(func(_ context.Context, name string, args ...string) error {
			commands = append(commands, strings.Join(append([]string{name}, args...), " "))
			return nil
		}),
		WithLookPath(func(file string) (string, error) { return "/usr/bin/" + file, nil }),
	)

	ctx := context.Background()
	testCases := []struct {
		target   string
		expected bool
	}{
		{target: "https://example.com", expected: true},
		{target: "org.mozilla.firefox", expected: true},
		{target: "com.whatsapp", expected: false},
	}
	for _, testCase := range testCases {
		if got, err := launcher.CanOpenURL(ctx, testCase.target); err != nil || got != testCase.expected {
			t.Fatalf("CanOpenURL(%q) = %t, %v; expected %t", testCase.target, got, err, testCase.expected)
		}
	}

	if err := launcher.OpenURL(ctx, "https://example.com"); err != nil {
		t.Fatalf("unexpected open error: %v", err)
	}
	if err := launcher.PerformActionOnExternalApp(ctx, "org.mozilla.firefox", "https://example.org"); err != nil {
		t.Fatalf("unexpected intent error: %v", err)
	}

	if len(commands) != 2 {
		t.Fatalf("expected 2 commands, got %v", commands)
	}
	if !strings.HasSuffix(commands[0], " https://example.com") {
		t.Fatalf("unexpected open command %q", commands[0])
	}
	if !strings.HasSuffix(commands[1], "org.mozilla.firefox https://example.org") {
		t.Fatalf("unexpected intent command %q", commands[1])
	}
}

func TestCanOpenURLWithoutOpener(t *testing.T) {
	launcher := NewAppLauncher(nil, WithLookPath(func(string) (string, error) {
		return "", errors.New("not found")
	}))

	if ok, _ := launcher.CanOpenURL(context.Background(), "https://example.com"); ok {
		t.Fatalf("expected url to be unopenable without an opener")
	}
	if ok, _ := launcher.CanOpenURL(context.Background(), "org.mozilla.firefox"); ok {
		t.Fatalf("expected app to be unavailable without an inventory")
	}
}

func TestIPLocator(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"ip":"203.0.113.7","latitude":45.81,"longitude":15.98}`))
	}))
	defer server.Close()

	position, err := NewIPLocator(WithIPLocationURL(server.URL)).CurrentPosition(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if position != (platform.Position{Latitude: 45.81, Longitude: 15.98}) {
		t.Fatalf("unexpected position %+v", position)
	}
}

func TestIPLocatorFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	}))
	defer server.Close()

	if _, err := NewIPLocator(WithIPLocationURL(server.URL)).CurrentPosition(context.Background()); err == nil {
		t.Fatalf("expected error for non-200 status")
	}
}

func TestPermissionsGuardSignals(t *testing.T) {
	permissions := NewPermissions(platform.PermissionContacts)

	granted, err := permissions.RequestPermissions(context.Background(), platform.PermissionLocation, platform.PermissionContacts)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !granted[platform.PermissionLocation] || granted[platform.PermissionContacts] {
		t.Fatalf("unexpected grants %v", granted)
	}

	contacts := permissions.GuardContacts(StaticContacts{"Mom": "+385 1 234"})
	if _, err := contacts.Contacts(context.Background()); !errors.Is(err, platform.ErrPermissionDenied) {
		t.Fatalf("expected ErrPermissionDenied, got %v", err)
	}

	locator := permissions.GuardLocator(StaticLocator{Position: platform.Position{Latitude: 1, Longitude: 2}})
	if position, err := locator.CurrentPosition(context.Background()); err != nil || position.Latitude != 1 {
		t.Fatalf("expected static position, got %+v, %v", position, err)
	}
}

func touch(t *testing.T, path string) {
	t.Helper()
	if err := os.WriteFile(path, nil, 0o644); err != nil {
		t.Fatalf("failed to create %s: %v", path, err)
	}
}
