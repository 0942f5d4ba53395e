package domain

import (
	"strings"
	"testing"
)

func TestDeriveFilename(t *testing.T) {
	tests := []struct {
		name   string
		title  string
		format string
		ext    string
		want   string
	}{
		{name: "plain", title: "My Clip", format: "best", ext: "mp4", want: "My_Clip_best.mp4"},
		{name: "unicode_title", title: "Видео 🎬 test", format: "137", ext: "webm", want: "test_137.webm"},
		{name: "empty_title", title: "", format: "best", ext: "mp4", want: "video_best.mp4"},
		{name: "slashes_stripped", title: "a/b\\c", format: "best", ext: "mp4", want: "a_b_c_best.mp4"},
		{name: "empty_format", title: "t", format: "", ext: "mp4", want: "t_best.mp4"},
		{name: "empty_ext", title: "t", format: "best", ext: "", want: "t_best.bin"},
		{name: "combined_format", title: "t", format: "bestvideo+bestaudio", ext: "mkv", want: "t_bestvideo+bestaudio.mkv"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := DeriveFilename(tc.title, tc.format, tc.ext)
			if got != tc.want {
				t.Fatalf("DeriveFilename = %q, want %q", got, tc.want)
			}
			if !ValidFilename(got) {
				t.Fatalf("derived name %q fails ValidFilename", got)
			}
		})
	}
}

func TestDeriveFilenameLongTitle(t *testing.T) {
	got := DeriveFilename(strings.Repeat("a", 500), "best", "mp4")
	if len(got) > maxTitleLen+len("_best.mp4") {
		t.Fatalf("derived name too long: %d chars", len(got))
	}
}

func TestDeriveFilenameStablePerTitleAndFormat(t *testing.T) {
	a := DeriveFilename("Same Title", "best", "mp4")
	b := DeriveFilename("Same Title", "best", "mp4")
	if a != b {
		t.Fatalf("derivation not stable: %q vs %q", a, b)
	}
}

func TestValidFilename(t *testing.T) {
	valid := []string{"clip_best.mp4", "a", "x-y+z.webm"}
	for _, n := range valid {
		if !ValidFilename(n) {
			t.Errorf("expected valid: %q", n)
		}
	}
	invalid := []string{"", ".", "..", "a/b", `a\b`, "../etc", "a..b"}
	for _, n := range invalid {
		if ValidFilename(n) {
			t.Errorf("expected invalid: %q", n)
		}
	}
}
