package dirs

import (
	"path/filepath"
	"runtime"
	"testing"
)

func TestLinuxXDG(t *testing.T) {
	if runtime.GOOS != "linux" {
		t.Skip("XDG layout is linux-only")
	}
	root := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(root, "cfg"))
	t.Setenv("XDG_DATA_HOME", filepath.Join(root, "data"))
	t.Setenv("XDG_CACHE_HOME", filepath.Join(root, "cache"))

	check := func(name string, fn func() (string, error), want string) {
		t.Helper()
		got, err := fn()
		if err != nil || got != want {
			t.Errorf("%s() = %q, %v; want %q", name, got, err, want)
		}
	}
	check("ConfigDir", ConfigDir, filepath.Join(root, "cfg", "vidgrab"))
	check("DataDir", DataDir, filepath.Join(root, "data", "vidgrab"))
	check("CacheDir", CacheDir, filepath.Join(root, "cache", "vidgrab"))
	check("DefaultDBPath", DefaultDBPath, filepath.Join(root, "data", "vidgrab", "vidgrab.sqlite"))
	check("TempBaseDir", TempBaseDir, filepath.Join(root, "cache", "vidgrab", "temp"))

	if err := EnsureAll(); err != nil {
		t.Fatalf("EnsureAll: %v", err)
	}
}

func TestDefaultOutputDir(t *testing.T) {
	t.Setenv("HOME", "/home/tester")
	if runtime.GOOS == "windows" {
		t.Skip("HOME is not consulted on windows")
	}
	if got := DefaultOutputDir(); got != filepath.Join("/home/tester", "Downloads") {
		t.Errorf("DefaultOutputDir() = %q", got)
	}
}
