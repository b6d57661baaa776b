package credentials

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"
)

// Locations holds the directories browser profiles live under.
type Locations struct {
	GOOS         string
	Home         string
	LocalAppData string
	AppData      string
}

// DefaultLocations reads the current user's directories from the environment.
func DefaultLocations() Locations {
	home, _ := os.UserHomeDir()
	return Locations{
		GOOS:         runtime.GOOS,
		Home:         home,
		LocalAppData: os.Getenv("LOCALAPPDATA"),
		AppData:      os.Getenv("APPDATA"),
	}
}

type browserPaths struct {
	name  string
	paths []string
}

func (l Locations) candidates() []browserPaths {
	j := filepath.Join
	switch l.GOOS {
	case "windows":
		return []browserPaths{
			{"chrome", []string{j(l.LocalAppData, "Google", "Chrome", "User Data")}},
			{"edge", []string{j(l.LocalAppData, "Microsoft", "Edge", "User Data")}},
			{"firefox", []string{j(l.AppData, "Mozilla", "Firefox", "Profiles")}},
			{"opera", []string{j(l.AppData, "Opera Software", "Opera Stable")}},
			{"brave", []string{j(l.LocalAppData, "BraveSoftware", "Brave-Browser", "User Data")}},
		}
	case "darwin":
		as := j(l.Home, "Library", "Application Support")
		return []browserPaths{
			{"chrome", []string{j(as, "Google", "Chrome")}},
			{"edge", []string{j(as, "Microsoft Edge")}},
			{"firefox", []string{j(as, "Firefox", "Profiles")}},
			{"opera", []string{j(as, "com.operasoftware.Opera")}},
			{"brave", []string{j(as, "BraveSoftware", "Brave-Browser")}},
		}
	default:
		cfg := j(l.Home, ".config")
		return []browserPaths{
			{"chrome", []string{j(cfg, "google-chrome")}},
			{"edge", []string{j(cfg, "microsoft-edge")}},
			{"firefox", []string{j(l.Home, ".mozilla", "firefox")}},
			{"opera", []string{j(cfg, "opera")}},
			{"brave", []string{j(cfg, "BraveSoftware", "Brave-Browser")}},
		}
	}
}

// DetectBrowsers lists browsers with a profile directory present, chrome first.
func DetectBrowsers(l Locations) []string {
	var out []string
	for _, c := range l.candidates() {
		for _, p := range c.paths {
			if dirExists(p) {
				out = append(out, c.name)
				break
			}
		}
	}
	return out
}

func dirExists(path string) bool {
	// Relative paths come from unset base directories.
	if strings.TrimSpace(path) == "" || !filepath.IsAbs(path) {
		return false
	}
	st, err := os.Stat(path)
	return err == nil && st.IsDir()
}
