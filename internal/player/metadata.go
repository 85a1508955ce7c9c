package player

import (
	"github.com/godbus/dbus/v5"

	"karolbroda.com/lyrifloat/internal/track"
)

// mpris reports lengths and positions in microseconds
const microsPerMilli = 1_000

// TrackFromMetadata builds a track from an mpris Metadata map. The result may
// be invalid; callers check IsValid.
func TrackFromMetadata(metadata map[string]dbus.Variant) *track.Info {
	return &track.Info{
		Title:      extractString(metadata, "xesam:title"),
		Artist:     extractArtist(metadata, "xesam:artist"),
		Album:      extractString(metadata, "xesam:album"),
		ArtworkURL: extractString(metadata, "mpris:artUrl"),
		TrackID:    extractTrackID(metadata, "mpris:trackid"),
		DurationMs: extractDurationMs(metadata, "mpris:length"),
	}
}

func variantValue(metadata map[string]dbus.Variant, key string) interface{} {
	if metadata == nil {
		return nil
	}
	variant, exists := metadata[key]
	if !exists {
		return nil
	}
	return variant.Value()
}

func extractString(metadata map[string]dbus.Variant, key string) string {
	text, _ := variantValue(metadata, key).(string)
	return text
}

// some players send the track id as an object path instead of a string
func extractTrackID(metadata map[string]dbus.Variant, key string) string {
	switch typed := variantValue(metadata, key).(type) {
	case string:
		return typed
	case dbus.ObjectPath:
		return string(typed)
	default:
		return ""
	}
}

func extractArtist(metadata map[string]dbus.Variant, key string) string {
	switch typed := variantValue(metadata, key).(type) {
	case []string:
		if len(typed) > 0 {
			return typed[0]
		}
		return ""
	case string:
		return typed
	default:
		return ""
	}
}

func extractDurationMs(metadata map[string]dbus.Variant, key string) int64 {
	switch typed := variantValue(metadata, key).(type) {
	case int64:
		return microsToMillis(typed)
	case uint64:
		return microsToMillis(int64(typed))
	case int32:
		return microsToMillis(int64(typed))
	case uint32:
		return microsToMillis(int64(typed))
	default:
		return 0
	}
}

func microsToMillis(us int64) int64 {
	if us <= 0 {
		return 0
	}
	return us / microsPerMilli
}
