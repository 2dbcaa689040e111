// Package platform provides cross-platform utilities for directory
// paths, binary extensions, and OS-specific operations.
package platform

import (
	"os"
	"path/filepath"
)

// AppName is the application name used for directory naming
const AppName = "vda-pipeline"

// AppDisplayName is the display name used on Windows and macOS
const AppDisplayName = "VDA Pipeline"

// GetDataDir returns the application data directory.
// Windows: %APPDATA%\VDA Pipeline
// Linux: ~/.local/share/vda-pipeline
// Falls back to ~/.vda-pipeline if XDG is not available.
func GetDataDir() string {
	return getDataDir()
}

// GetTempDir returns the temp directory for scratch run artifacts.
// Windows: %ProgramData%\VDA Pipeline\tmp
// Linux: /tmp/vda-pipeline or XDG_RUNTIME_DIR/vda-pipeline
func GetTempDir() string {
	return getTempDir()
}

// GetCacheDir returns the cache directory for downloaded tools and
// model weights.
// Windows: %APPDATA%\VDA Pipeline
// Linux: ~/.cache/vda-pipeline
func GetCacheDir() string {
	return getCacheDir()
}

// BinaryExtension returns the executable file extension for the current platform.
// Windows: ".exe"
// Linux: ""
func BinaryExtension() string {
	return binaryExtension()
}

// SharedLibExtension returns the shared library extension for the current platform.
// Windows: ".dll"
// Linux: ".so"
func SharedLibExtension() string {
	return sharedLibExtension()
}

// EnsureExecutable ensures a file has executable permissions.
// On Windows, this is a no-op.
// On Linux, this sets the executable bit.
func EnsureExecutable(path string) error {
	return ensureExecutable(path)
}

// UserHomeDir returns the user's home directory with proper fallbacks.
func UserHomeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return home
}

// JoinPath is a convenience wrapper around filepath.Join
func JoinPath(elem ...string) string {
	return filepath.Join(elem...)
}
