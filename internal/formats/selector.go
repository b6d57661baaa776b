package formats

import (
	"fmt"
	"sort"
	"strings"

	"vidgrab/internal/model"
)

// bestAudioSuffix pairs a video-only format with the best audio track and falls back
// to the best single file when merging is impossible.
const bestAudioSuffix = "+bestaudio/best"

// SelectorFor returns the yt-dlp format expression that fetches opt merged with best audio.
func SelectorFor(opt model.QualityOption) string {
	return SelectorForID(opt.ID)
}

// SelectorForID is SelectorFor for a bare format id.
func SelectorForID(id string) string {
	return id + bestAudioSuffix
}

// CappedSelector prefers mp4/m4a pairs under the height and fps caps, then drops the
// fps cap, then settles for any single file under the height cap.
func CappedSelector(maxHeight, maxFPS int) string {
	if maxHeight <= 0 {
		maxHeight = model.DefaultMaxHeight
	}
	if maxFPS <= 0 {
		maxFPS = model.DefaultMaxFPS
	}
	return strings.Join([]string{
		fmt.Sprintf("bestvideo[height<=%d][fps<=%d][ext=mp4]+bestaudio[ext=m4a]", maxHeight, maxFPS),
		fmt.Sprintf("bestvideo[height<=%d][ext=mp4]+bestaudio[ext=m4a]", maxHeight),
		fmt.Sprintf("best[height<=%d]", maxHeight),
	}, "/")
}

// AudioSelector picks the best audio-only stream, or the best file if none exists.
const AudioSelector = "bestaudio/best"

// SelectorForRequest maps a download request to its format expression.
func SelectorForRequest(req model.DownloadRequest) (string, error) {
	switch req.Mode {
	case model.ModeExact:
		id := strings.TrimSpace(req.FormatID)
		if id == "" {
			return "", fmt.Errorf("mode %q requires a format id", req.Mode)
		}
		return SelectorForID(id), nil
	case model.ModeCapped:
		return CappedSelector(req.MaxHeight, req.MaxFPS), nil
	case model.ModeAudioMP3, model.ModeAudioOriginal:
		return AudioSelector, nil
	default:
		return "", fmt.Errorf("unknown download mode %q", req.Mode)
	}
}

// AvailableHeights lists the distinct heights offered by video variants, highest first.
// UIs use it to restrict the capped-mode choices to what the item actually has.
func AvailableHeights(info model.MediaInfo) []int {
	seen := map[int]bool{}
	var out []int
	for _, v := range info.Variants {
		if !v.HasVideo() || v.Height == nil || *v.Height <= 0 || seen[*v.Height] {
			continue
		}
		seen[*v.Height] = true
		out = append(out, *v.Height)
	}
	sortDesc(out)
	return out
}

// AvailableFPS lists the distinct whole frame rates offered by video variants, highest first.
func AvailableFPS(info model.MediaInfo) []int {
	seen := map[int]bool{}
	var out []int
	for _, v := range info.Variants {
		if !v.HasVideo() || v.FrameRate == nil || *v.FrameRate <= 0 {
			continue
		}
		f := int(*v.FrameRate)
		if seen[f] {
			continue
		}
		seen[f] = true
		out = append(out, f)
	}
	sortDesc(out)
	return out
}

func sortDesc(xs []int) {
	sort.Sort(sort.Reverse(sort.IntSlice(xs)))
}
