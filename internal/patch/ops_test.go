package patch

import "testing"

func TestEncodeSeparatesDayAndNightBlocks(t *testing.T) {
	ops := []Op{
		{Op: "replace", Path: "/musicTrack/day/tracks/0", Value: "/music_replacers/forest-loop.ogg"},
		{Op: "add", Path: "/musicTrack/day/tracks/-", Value: "/music/sunrise.ogg"},
		{Op: "add", Path: "/musicTrack/night/tracks/-", Value: "/music/lullaby.ogg"},
	}

	got, err := Encode(ops)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	want := `[
{"op":"replace", "path": "/musicTrack/day/tracks/0", "value":"/music_replacers/forest-loop.ogg"},
{"op":"add", "path": "/musicTrack/day/tracks/-", "value":"/music/sunrise.ogg"},

{"op":"add", "path": "/musicTrack/night/tracks/-", "value":"/music/lullaby.ogg"}
]`
	if string(got) != want {
		t.Fatalf("wire format mismatch:\ngot:\n%s\nwant:\n%s", got, want)
	}
}

func TestEncodeRemoveOmitsValue(t *testing.T) {
	ops := []Op{
		{Op: "remove", Path: "/musicTrack/day/tracks/1"},
		{Op: "remove", Path: "/musicTrack/day/tracks/0"},
	}

	got, err := Encode(ops)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	want := `[
{"op":"remove", "path": "/musicTrack/day/tracks/1"},
{"op":"remove", "path": "/musicTrack/day/tracks/0"}
]`
	if string(got) != want {
		t.Fatalf("wire format mismatch:\ngot:\n%s\nwant:\n%s", got, want)
	}
}

func TestEncodeSingleBlockHasNoBlankLine(t *testing.T) {
	ops := []Op{
		{Op: "add", Path: "/musicTrack/night/tracks/-", Value: "/music/a.ogg"},
		{Op: "add", Path: "/musicTrack/night/tracks/-", Value: "/music/b.ogg"},
	}

	got, err := Encode(ops)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	want := `[
{"op":"add", "path": "/musicTrack/night/tracks/-", "value":"/music/a.ogg"},
{"op":"add", "path": "/musicTrack/night/tracks/-", "value":"/music/b.ogg"}
]`
	if string(got) != want {
		t.Fatalf("wire format mismatch:\ngot:\n%s\nwant:\n%s", got, want)
	}
}

func TestEncodeLegacyArrayValue(t *testing.T) {
	ops := []Op{
		{Op: "replace", Path: "/musicTrack/day/tracks", Value: []string{"/music/a.ogg", "/music/b.ogg"}},
	}

	got, err := Encode(ops)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	want := `[
{"op":"replace", "path": "/musicTrack/day/tracks", "value":["/music/a.ogg", "/music/b.ogg"]}
]`
	if string(got) != want {
		t.Fatalf("wire format mismatch:\ngot:\n%s\nwant:\n%s", got, want)
	}
}

func TestEncodeEmptyOps(t *testing.T) {
	got, err := Encode(nil)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if string(got) != "[\n]" {
		t.Fatalf("empty encoding = %q", got)
	}
}
