// © 2026 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

// Package browser opens pages in a web browser.
package browser

import (
	"context"
	"log/slog"
	"os/exec"
	"runtime"

	"go.astrophena.name/base/logger"

	"github.com/pkg/browser"
)

// Name returns the browser preferred on the goos platform.
func Name(goos string) string {
	switch goos {
	case "linux":
		return "google-chrome"
	case "darwin":
		return "google chrome"
	case "windows":
		return "chrome"
	default:
		return "firefox"
	}
}

// Command returns the command line that opens url in the browser preferred
// on the goos platform.
func Command(goos, url string) []string {
	name := Name(goos)
	switch goos {
	case "darwin":
		return []string{"open", "-a", name, url}
	case "windows":
		return []string{"cmd", "/c", "start", "", name, url}
	default:
		return []string{name, url}
	}
}

// Overridden in tests.
var (
	start = func(argv []string) error {
		// The browser outlives the command.
		return exec.Command(argv[0], argv[1:]...).Start()
	}
	openURL = browser.OpenURL
)

// Open opens url in the preferred browser of the current platform. When that
// browser can't be launched, the system default handler is used instead.
func Open(ctx context.Context, url string) error {
	argv := Command(runtime.GOOS, url)
	err := start(argv)
	if err == nil {
		logger.Info(ctx, "opened browser", slog.String("browser", Name(runtime.GOOS)), slog.String("url", url))
		return nil
	}
	logger.Info(ctx, "falling back to the default browser",
		slog.String("browser", Name(runtime.GOOS)),
		slog.Any("err", err),
	)
	return openURL(url)
}
