package formats

import (
	"math"
	"reflect"
	"testing"

	"vidgrab/internal/model"
)

func video(id string, height int, fps float64, ext, vcodec string) model.Variant {
	return model.Variant{
		FormatID:   id,
		VideoCodec: vcodec,
		AudioCodec: model.CodecNone,
		Height:     model.Ptr(height),
		FrameRate:  model.Ptr(fps),
		Extension:  ext,
	}
}

func TestBuildQualityOptions_EndToEnd(t *testing.T) {
	info := model.MediaInfo{
		Variants: []model.Variant{
			{FormatID: "a", VideoCodec: "avc1", AudioCodec: "none", Height: model.Ptr(1080), FrameRate: model.Ptr(30.0), Extension: "mp4", ExactSizeBytes: model.Ptr(int64(47000000))},
			{FormatID: "b", VideoCodec: "avc1", AudioCodec: "aac", Height: model.Ptr(1080), FrameRate: model.Ptr(30.0), Extension: "mp4", ExactSizeBytes: model.Ptr(int64(50000000))},
			{FormatID: "c", VideoCodec: "none"},
		},
	}
	got := BuildQualityOptions(info)
	if len(got) != 1 {
		t.Fatalf("got %d options, want 1: %+v", len(got), got)
	}
	if got[0].ID != "a" {
		t.Errorf("ID = %q, want a", got[0].ID)
	}
	if want := "1080p30 mp4 avc1 ~44.8 MB"; got[0].Label != want {
		t.Errorf("Label = %q, want %q", got[0].Label, want)
	}
}

func TestBuildQualityOptions_Empty(t *testing.T) {
	for name, info := range map[string]model.MediaInfo{
		"nil variants":   {},
		"empty variants": {Variants: []model.Variant{}},
		"all malformed":  {Variants: []model.Variant{{}, {FormatID: "x"}, {VideoCodec: "vp9"}}},
	} {
		t.Run(name, func(t *testing.T) {
			got := BuildQualityOptions(info)
			if got == nil {
				t.Fatal("got nil, want empty slice")
			}
			if len(got) != 0 {
				t.Errorf("got %d options, want 0", len(got))
			}
		})
	}
}

func TestBuildQualityOptions_Filtering(t *testing.T) {
	info := model.MediaInfo{
		Variants: []model.Variant{
			video("ok", 720, 30, "mp4", "avc1"),
			{FormatID: "prog", VideoCodec: "avc1", AudioCodec: "mp4a.40.2", Height: model.Ptr(720)},
			{FormatID: "absent-audio", VideoCodec: "vp9", Height: model.Ptr(480)},
			{FormatID: "", VideoCodec: "avc1", AudioCodec: "none", Height: model.Ptr(1440)},
			{FormatID: "   ", VideoCodec: "avc1", AudioCodec: "none", Height: model.Ptr(1440)},
			{FormatID: "audio", VideoCodec: "none", AudioCodec: "opus"},
			{FormatID: "novcodec", AudioCodec: "none", Height: model.Ptr(2160)},
		},
	}
	got := BuildQualityOptions(info)
	var ids []string
	for _, o := range got {
		ids = append(ids, o.ID)
	}
	want := []string{"ok", "absent-audio"}
	if !reflect.DeepEqual(ids, want) {
		t.Errorf("ids = %v, want %v", ids, want)
	}
}

func TestBuildQualityOptions_SortAndDedup(t *testing.T) {
	info := model.MediaInfo{
		Variants: []model.Variant{
			video("136", 720, 30, "mp4", "avc1"),
			video("298", 720, 60, "mp4", "avc1"),
			{FormatID: "unk", VideoCodec: "avc1", AudioCodec: "none", Extension: "mp4"},
			video("137", 1080, 30, "mp4", "avc1"),
			video("136", 720, 30, "mp4", "avc1"),
			video("248", 1080, 30, "webm", "vp9"),
			video("299", 1080, 60, "mp4", "avc1"),
		},
	}
	got := BuildQualityOptions(info)
	var ids []string
	for _, o := range got {
		ids = append(ids, o.ID)
	}
	want := []string{"299", "137", "248", "298", "136", "unk"}
	if !reflect.DeepEqual(ids, want) {
		t.Errorf("ids = %v, want %v", ids, want)
	}

	seen := map[dedupKey]bool{}
	for i, o := range got {
		k := keyOf(o)
		if seen[k] {
			t.Errorf("duplicate key at %d: %+v", i, k)
		}
		seen[k] = true
		if i == 0 {
			continue
		}
		prev := got[i-1]
		if rankHeight(prev) < rankHeight(o) ||
			(rankHeight(prev) == rankHeight(o) && rankFPS(prev) < rankFPS(o)) {
			t.Errorf("option %d (%s) ranks above option %d (%s)", i, o.Label, i-1, prev.Label)
		}
	}
}

func TestBuildQualityOptions_DedupKeepsHighestRanked(t *testing.T) {
	first := video("x", 1080, 30, "mp4", "avc1")
	first.ExactSizeBytes = model.Ptr(int64(1024))
	second := video("x", 1080, 30, "mp4", "avc1")
	second.ExactSizeBytes = model.Ptr(int64(2048))
	got := BuildQualityOptions(model.MediaInfo{Variants: []model.Variant{first, second}})
	if len(got) != 1 {
		t.Fatalf("got %d options, want 1", len(got))
	}
	if *got[0].EstimatedSizeBytes != 1024 {
		t.Errorf("kept size %v, want first occurrence (1024)", *got[0].EstimatedSizeBytes)
	}
}

func TestBuildQualityOptions_Idempotent(t *testing.T) {
	info := model.MediaInfo{
		DurationSec: model.Ptr(120.0),
		Variants: []model.Variant{
			video("1", 480, 25, "webm", "vp9"),
			video("2", 480, 25, "webm", "vp9"),
			video("3", 2160, 60, "mp4", "av01"),
		},
	}
	a := BuildQualityOptions(info)
	b := BuildQualityOptions(info)
	if !reflect.DeepEqual(a, b) {
		t.Errorf("repeated calls differ:\n%+v\n%+v", a, b)
	}
}

func TestLabel(t *testing.T) {
	tests := []struct {
		name string
		opt  model.QualityOption
		want string
	}{
		{
			name: "all known",
			opt:  model.QualityOption{Height: model.Ptr(720), FrameRate: model.Ptr(60.0), Extension: "webm", VideoCodec: "vp9", EstimatedSizeBytes: model.Ptr(1536.0)},
			want: "720p60 webm vp9 ~1.5 KB",
		},
		{
			name: "fractional fps kept as is",
			opt:  model.QualityOption{Height: model.Ptr(1080), FrameRate: model.Ptr(29.97), Extension: "mp4", VideoCodec: "avc1"},
			want: "1080p29.97 mp4 avc1 ~?",
		},
		{
			name: "unknowns",
			opt:  model.QualityOption{VideoCodec: "avc1"},
			want: "?p? ? avc1 ~?",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Label(tt.opt); got != tt.want {
				t.Errorf("Label() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestBuildQualityOptions_NonPositiveNumericsAreUnknown(t *testing.T) {
	v := model.Variant{
		FormatID:   "z",
		VideoCodec: "avc1",
		AudioCodec: "none",
		Height:     model.Ptr(0),
		FrameRate:  model.Ptr(math.Inf(1)),
		Extension:  "mp4",
	}
	got := BuildQualityOptions(model.MediaInfo{Variants: []model.Variant{v}})
	if len(got) != 1 {
		t.Fatalf("got %d options, want 1", len(got))
	}
	if got[0].Height != nil || got[0].FrameRate != nil {
		t.Errorf("height/fps = %v/%v, want unknown", got[0].Height, got[0].FrameRate)
	}
	if got[0].Label != "?p? mp4 avc1 ~?" {
		t.Errorf("Label = %q", got[0].Label)
	}
}
