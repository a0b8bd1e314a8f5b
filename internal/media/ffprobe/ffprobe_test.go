package ffprobe

import "testing"

func TestResultHelpers(t *testing.T) {
	result := Result{
		Streams: []Stream{
			{CodecType: "video", CodecName: "mjpeg"},
			{CodecType: "audio", CodecName: "mp3", Channels: 2, SampleRate: "44100", Duration: "130.00"},
			{CodecType: "audio", CodecName: "mp3", Channels: 1},
		},
		Format: Format{
			Duration: "123.45",
			Size:     "1000",
			BitRate:  "32000",
		},
	}
	if result.AudioStreamCount() != 2 {
		t.Fatalf("expected 2 audio streams, got %d", result.AudioStreamCount())
	}
	stream, ok := result.FirstAudioStream()
	if !ok {
		t.Fatal("expected an audio stream")
	}
	if stream.CodecName != "mp3" || stream.Channels != 2 {
		t.Fatalf("unexpected first audio stream: %+v", stream)
	}
	if result.Channels() != 2 {
		t.Fatalf("unexpected channel count: %d", result.Channels())
	}
	if result.SampleRate() != 44100 {
		t.Fatalf("unexpected sample rate: %d", result.SampleRate())
	}
	if result.DurationSeconds() != 123.45 {
		t.Fatalf("unexpected duration: %v", result.DurationSeconds())
	}
	if result.SizeBytes() != 1000 {
		t.Fatalf("unexpected size: %d", result.SizeBytes())
	}
	if result.BitRate() != 32000 {
		t.Fatalf("unexpected bitrate: %d", result.BitRate())
	}
}

func TestDurationFallsBackToAudioStream(t *testing.T) {
	result := Result{
		Streams: []Stream{
			{CodecType: "audio", Duration: "98.5"},
		},
		Format: Format{Duration: "N/A"},
	}
	if result.DurationSeconds() != 98.5 {
		t.Fatalf("expected stream duration fallback, got %v", result.DurationSeconds())
	}
}

func TestResultHelpersHandleInvalidNumbers(t *testing.T) {
	result := Result{
		Format: Format{
			Duration: "bad",
			Size:     "-1",
			BitRate:  "nope",
		},
	}
	if result.DurationSeconds() != 0 {
		t.Fatalf("expected duration 0, got %v", result.DurationSeconds())
	}
	if result.SizeBytes() != 0 {
		t.Fatalf("expected size 0, got %d", result.SizeBytes())
	}
	if result.BitRate() != 0 {
		t.Fatalf("expected bitrate 0, got %d", result.BitRate())
	}
	if result.Channels() != 0 {
		t.Fatalf("expected 0 channels without audio stream, got %d", result.Channels())
	}
	if _, ok := result.FirstAudioStream(); ok {
		t.Fatal("expected no audio stream")
	}
}
