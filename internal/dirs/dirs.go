package dirs

import (
	"errors"
	"os"
	"path/filepath"
	"runtime"
)

const appName = "vidgrab"

// AppName returns the canonical application name for directory paths.
func AppName() string {
	return appName
}

// base picks the per-OS root of a directory class.
//   - xdgEnv/xdgFallback: Linux ($XDG_*_HOME or ~/<fallback>)
//   - darwin: ~/Library/<darwin>
//   - other: the stdlib user dir
func base(xdgEnv string, xdgFallback []string, darwin []string, other func() (string, error)) (string, error) {
	switch runtime.GOOS {
	case "darwin":
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(append([]string{home, "Library"}, darwin...)...), nil
	case "linux":
		if xdg := os.Getenv(xdgEnv); xdg != "" {
			return xdg, nil
		}
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(append([]string{home}, xdgFallback...)...), nil
	default:
		return other()
	}
}

// ConfigDir returns the app's configuration directory.
func ConfigDir() (string, error) {
	b, err := base("XDG_CONFIG_HOME", []string{".config"}, []string{"Application Support"}, os.UserConfigDir)
	if err != nil {
		return "", err
	}
	return filepath.Join(b, AppName()), nil
}

// DataDir returns the app's data directory (database, OAuth state).
func DataDir() (string, error) {
	b, err := base("XDG_DATA_HOME", []string{".local", "share"}, []string{"Application Support"}, os.UserConfigDir)
	if err != nil {
		return "", err
	}
	return filepath.Join(b, AppName()), nil
}

// CacheDir returns the app's cache directory.
func CacheDir() (string, error) {
	b, err := base("XDG_CACHE_HOME", []string{".cache"}, []string{"Caches"}, os.UserCacheDir)
	if err != nil {
		return "", err
	}
	return filepath.Join(b, AppName()), nil
}

// DefaultOutputDir returns ~/Downloads, falling back to the current directory.
func DefaultOutputDir() string {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return "."
	}
	return filepath.Join(home, "Downloads")
}

// DefaultDBPath returns the SQLite database location under the data dir.
func DefaultDBPath() (string, error) {
	d, err := DataDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(d, AppName()+".sqlite"), nil
}

// TempBaseDir returns the base directory for per-job download folders.
func TempBaseDir() (string, error) {
	c, err := CacheDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(c, "temp"), nil
}

// Ensure creates the directory if it doesn't exist.
func Ensure(path string) error {
	if path == "" {
		return errors.New("empty path")
	}
	return os.MkdirAll(path, 0o755)
}

// EnsureAll ensures config, data and cache dirs exist.
func EnsureAll() error {
	for _, fn := range []func() (string, error){ConfigDir, DataDir, CacheDir} {
		p, err := fn()
		if err != nil {
			continue
		}
		if err := Ensure(p); err != nil {
			return err
		}
	}
	return nil
}
