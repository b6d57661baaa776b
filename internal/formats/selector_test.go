package formats

import (
	"reflect"
	"testing"

	"vidgrab/internal/model"
)

func TestSelectorFor(t *testing.T) {
	got := SelectorFor(model.QualityOption{ID: "137"})
	if got != "137+bestaudio/best" {
		t.Errorf("SelectorFor() = %q", got)
	}
}

func TestSelectorForRequest(t *testing.T) {
	tests := []struct {
		name    string
		req     model.DownloadRequest
		want    string
		wantErr bool
	}{
		{name: "exact", req: model.DownloadRequest{Mode: model.ModeExact, FormatID: "399"}, want: "399+bestaudio/best"},
		{name: "exact without id", req: model.DownloadRequest{Mode: model.ModeExact}, wantErr: true},
		{
			name: "capped",
			req:  model.DownloadRequest{Mode: model.ModeCapped, MaxHeight: 720, MaxFPS: 30},
			want: "bestvideo[height<=720][fps<=30][ext=mp4]+bestaudio[ext=m4a]/bestvideo[height<=720][ext=mp4]+bestaudio[ext=m4a]/best[height<=720]",
		},
		{
			name: "capped defaults",
			req:  model.DownloadRequest{Mode: model.ModeCapped},
			want: "bestvideo[height<=1080][fps<=60][ext=mp4]+bestaudio[ext=m4a]/bestvideo[height<=1080][ext=mp4]+bestaudio[ext=m4a]/best[height<=1080]",
		},
		{name: "mp3", req: model.DownloadRequest{Mode: model.ModeAudioMP3}, want: "bestaudio/best"},
		{name: "original audio", req: model.DownloadRequest{Mode: model.ModeAudioOriginal}, want: "bestaudio/best"},
		{name: "unknown", req: model.DownloadRequest{Mode: "bogus"}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := SelectorForRequest(tt.req)
			if tt.wantErr {
				if err == nil {
					t.Errorf("expected error, got %q", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestAvailableHeightsAndFPS(t *testing.T) {
	info := model.MediaInfo{Variants: []model.Variant{
		video("1", 720, 30, "mp4", "avc1"),
		video("2", 1080, 59.94, "mp4", "avc1"),
		video("3", 720, 60, "webm", "vp9"),
		{FormatID: "a", VideoCodec: "none", AudioCodec: "opus"},
	}}
	if got, want := AvailableHeights(info), []int{1080, 720}; !reflect.DeepEqual(got, want) {
		t.Errorf("AvailableHeights() = %v, want %v", got, want)
	}
	if got, want := AvailableFPS(info), []int{60, 59, 30}; !reflect.DeepEqual(got, want) {
		t.Errorf("AvailableFPS() = %v, want %v", got, want)
	}
}
