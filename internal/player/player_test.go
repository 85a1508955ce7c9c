package player

import (
	"testing"
	"time"

	"github.com/godbus/dbus/v5"
)

func TestTrackFromMetadata(t *testing.T) {
	metadata := map[string]dbus.Variant{
		"xesam:title":   dbus.MakeVariant("Faded"),
		"xesam:artist":  dbus.MakeVariant([]string{"Alan Walker", "Iselin Solheim"}),
		"xesam:album":   dbus.MakeVariant("Different World"),
		"mpris:length":  dbus.MakeVariant(int64(212_000_000)),
		"mpris:trackid": dbus.MakeVariant(dbus.ObjectPath("/com/spotify/track/7gHs73wELdeycvS48JfIos")),
		"mpris:artUrl":  dbus.MakeVariant("https://i.scdn.co/image/abc"),
	}

	info := TrackFromMetadata(metadata)

	if info.Title != "Faded" || info.Artist != "Alan Walker" || info.Album != "Different World" {
		t.Errorf("unexpected track %+v", info)
	}
	if info.DurationMs != 212_000 {
		t.Errorf("DurationMs = %d, expected 212000", info.DurationMs)
	}
	if info.TrackID != "/com/spotify/track/7gHs73wELdeycvS48JfIos" {
		t.Errorf("TrackID = %q", info.TrackID)
	}
	if info.ArtworkURL != "https://i.scdn.co/image/abc" {
		t.Errorf("ArtworkURL = %q", info.ArtworkURL)
	}
}

func TestTrackFromMetadata_Partial(t *testing.T) {
	tests := []struct {
		name     string
		metadata map[string]dbus.Variant
		valid    bool
		duration int64
	}{
		{"nil map", nil, false, 0},
		{"string artist", map[string]dbus.Variant{
			"xesam:title":  dbus.MakeVariant("Song"),
			"xesam:artist": dbus.MakeVariant("Someone"),
		}, true, 0},
		{"empty artist list", map[string]dbus.Variant{
			"xesam:title":  dbus.MakeVariant("Song"),
			"xesam:artist": dbus.MakeVariant([]string{}),
		}, false, 0},
		{"unsigned length", map[string]dbus.Variant{
			"xesam:title":  dbus.MakeVariant("Song"),
			"xesam:artist": dbus.MakeVariant("Someone"),
			"mpris:length": dbus.MakeVariant(uint64(1_500_000)),
		}, true, 1500},
		{"negative length", map[string]dbus.Variant{
			"xesam:title":  dbus.MakeVariant("Song"),
			"xesam:artist": dbus.MakeVariant("Someone"),
			"mpris:length": dbus.MakeVariant(int64(-5)),
		}, true, 0},
		{"wrong types", map[string]dbus.Variant{
			"xesam:title":  dbus.MakeVariant(42),
			"xesam:artist": dbus.MakeVariant(true),
		}, false, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			info := TrackFromMetadata(tt.metadata)
			if info.IsValid() != tt.valid {
				t.Errorf("IsValid() = %v, expected %v", info.IsValid(), tt.valid)
			}
			if info.DurationMs != tt.duration {
				t.Errorf("DurationMs = %d, expected %d", info.DurationMs, tt.duration)
			}
		})
	}
}

func TestState_DetectSeek(t *testing.T) {
	start := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	var fresh State
	if fresh.DetectSeek(90_000, start) {
		t.Error("first sample should never be a seek")
	}

	tests := []struct {
		name     string
		playing  bool
		elapsed  time.Duration
		position int64
		seek     bool
	}{
		{"normal playback", true, 2 * time.Second, 12_000, false},
		{"small drift", true, 2 * time.Second, 14_500, false},
		{"jump forward", true, 2 * time.Second, 60_000, true},
		{"jump back", true, 2 * time.Second, 1_000, true},
		{"paused stays put", false, 10 * time.Second, 10_000, false},
		{"paused then moved", false, 10 * time.Second, 20_000, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := State{Playing: tt.playing}
			s.UpdatePosition(10_000, start)

			got := s.DetectSeek(tt.position, start.Add(tt.elapsed))
			if got != tt.seek {
				t.Errorf("DetectSeek(%d) = %v, expected %v", tt.position, got, tt.seek)
			}
		})
	}
}

func TestState_ExpectedPosition(t *testing.T) {
	start := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	s := State{Playing: true}
	s.UpdatePosition(5_000, start)

	if got := s.ExpectedPosition(start.Add(1500 * time.Millisecond)); got != 6_500 {
		t.Errorf("ExpectedPosition = %d, expected 6500", got)
	}

	s.Playing = false
	if got := s.ExpectedPosition(start.Add(time.Minute)); got != 5_000 {
		t.Errorf("paused ExpectedPosition = %d, expected 5000", got)
	}
}

func TestFilterPlayers(t *testing.T) {
	names := []string{
		"org.freedesktop.DBus",
		"org.mpris.MediaPlayer2.spotify",
		":1.42",
		"org.mpris.MediaPlayer2.firefox.instance_1_23",
		"org.mpris.MediaPlayer2",
	}

	got := filterPlayers(names)
	expected := []string{
		"org.mpris.MediaPlayer2.firefox.instance_1_23",
		"org.mpris.MediaPlayer2.spotify",
	}
	if len(got) != len(expected) {
		t.Fatalf("filterPlayers = %v, expected %v", got, expected)
	}
	for i := range expected {
		if got[i] != expected[i] {
			t.Errorf("filterPlayers[%d] = %q, expected %q", i, got[i], expected[i])
		}
	}
}

func TestNewService_Validation(t *testing.T) {
	if _, err := NewService(nil, "org.mpris.MediaPlayer2.spotify"); err == nil {
		t.Error("expected error for nil connection")
	}
}
