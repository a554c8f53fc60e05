package reporter

import (
	_ "embed"
	"log/slog"
	"os"
	"path/filepath"
)

//go:embed icon.png
var iconPNG []byte

// IconPath materializes the bundled notification icon on disk; the
// notification daemon takes a file path, not bytes. Returns "" when the
// icon cannot be written, which the notifier treats as "no icon".
func IconPath() string {
	path := filepath.Join(os.TempDir(), "postpilot-icon.png")
	if err := os.WriteFile(path, iconPNG, 0o644); err != nil {
		slog.Warn("Failed to write notification icon", "path", path, "error", err)
		return ""
	}
	return path
}
