package extract

import (
	"encoding/json"
	"testing"
)

const sampleDump = `{
	"title": "My Clip",
	"thumbnail": "https://i.example.com/t.jpg",
	"duration": 42.5,
	"ext": "mp4",
	"formats": [
		{"format_id": "140", "ext": "m4a", "resolution": "audio only", "tbr": 129.5, "filesize": 1048576, "vcodec": "none", "acodec": "mp4a.40.2", "url": "https://cdn.example.com/a"},
		{"format_id": "137", "ext": "mp4", "resolution": "1920x1080", "tbr": 4400.1, "filesize_approx": 52428800, "vcodec": "avc1", "acodec": "none", "url": "https://cdn.example.com/v"},
		{"format_id": "", "ext": "", "tbr": 0, "vcodec": "", "acodec": ""}
	]
}`

func TestToProbeResult(t *testing.T) {
	var raw probePayload
	if err := json.Unmarshal([]byte(sampleDump), &raw); err != nil {
		t.Fatalf("unmarshal fixture: %v", err)
	}
	got := toProbeResult(raw)

	if got.Title != "My Clip" || got.Duration != 42.5 || got.Ext != "mp4" {
		t.Fatalf("media info %+v", got.MediaInfo)
	}
	if len(got.Formats) != 3 {
		t.Fatalf("formats %d", len(got.Formats))
	}

	audio := got.Formats[0]
	if audio.Resolution != "audio only" || audio.Bitrate != 129 || audio.Size != 1048576 {
		t.Fatalf("audio format %+v", audio)
	}

	video := got.Formats[1]
	if video.Resolution != "1920x1080" {
		t.Fatalf("video resolution %q", video.Resolution)
	}
	if video.Size != 52428800 {
		t.Fatalf("approx size fallback not applied: %d", video.Size)
	}

	blank := got.Formats[2]
	if blank.FormatID != "unknown" || blank.Ext != "unknown" || blank.VCodec != "none" || blank.ACodec != "none" {
		t.Fatalf("blank format defaults %+v", blank)
	}
	if blank.Resolution != "audio only" {
		// vcodec empty maps to none, which reads as audio-only
		t.Fatalf("blank resolution %q", blank.Resolution)
	}
}

func TestToProbeResultUntitled(t *testing.T) {
	got := toProbeResult(probePayload{})
	if got.Title != "unknown" {
		t.Fatalf("title %q", got.Title)
	}
	if len(got.Formats) != 0 {
		t.Fatalf("formats %v", got.Formats)
	}
}
