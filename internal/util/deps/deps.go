package deps

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
)

// lookPath is swapped in tests.
var lookPath = exec.LookPath

// FindDownloader returns the path to yt-dlp or youtube-dl.
// If customPath is non-empty, it tries that path or looks it up in PATH.
func FindDownloader(customPath string) (string, error) {
	if customPath != "" {
		if _, err := os.Stat(customPath); err == nil {
			return customPath, nil
		}
		if p, err := lookPath(customPath); err == nil {
			return p, nil
		}
		return "", fmt.Errorf("could not find downloader at %q", customPath)
	}
	for _, name := range []string{"yt-dlp", "youtube-dl"} {
		if p, err := lookPath(name); err == nil {
			return p, nil
		}
	}
	return "", fmt.Errorf("could not find yt-dlp or youtube-dl in PATH; install yt-dlp")
}

// FindFFmpeg returns the path to ffmpeg. When dir is set, only that directory is checked.
func FindFFmpeg(dir string) (string, error) {
	if dir != "" {
		p := filepath.Join(dir, exeName("ffmpeg"))
		if st, err := os.Stat(p); err == nil && !st.IsDir() {
			return p, nil
		}
		return "", fmt.Errorf("ffmpeg not found in %q", dir)
	}
	if p, err := lookPath("ffmpeg"); err == nil {
		return p, nil
	}
	return "", fmt.Errorf("could not find ffmpeg in PATH; install ffmpeg")
}

// FindAccelerator returns the path to aria2c.
func FindAccelerator() (string, error) {
	p, err := lookPath("aria2c")
	if err != nil {
		return "", fmt.Errorf("aria2c not found in PATH")
	}
	return p, nil
}

// AcceleratorAvailable reports whether aria2c is on PATH. It never fails.
func AcceleratorAvailable() bool {
	_, err := FindAccelerator()
	return err == nil
}

func exeName(name string) string {
	if runtime.GOOS == "windows" {
		return name + ".exe"
	}
	return name
}
