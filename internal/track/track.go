package track

import "strings"

type Info struct {
	Title      string
	Artist     string
	Album      string
	DurationMs int64
	ArtworkURL string
	TrackID    string
}

func (t *Info) IsValid() bool {
	if t == nil {
		return false
	}
	return t.Title != "" && t.Artist != ""
}

func (t *Info) IsSameTrack(other *Info) bool {
	if t == nil || other == nil {
		return t == other
	}
	if t.TrackID != "" && other.TrackID != "" {
		return t.TrackID == other.TrackID
	}
	return t.Title == other.Title && t.Artist == other.Artist
}

// Key identifies the track for in-memory lookups. Player track ids win over
// names when present.
func (t *Info) Key() string {
	if t == nil {
		return ""
	}
	if t.TrackID != "" {
		return "id:" + t.TrackID
	}
	return "name:" + strings.ToLower(t.Artist) + "|" + strings.ToLower(t.Title)
}

// DurationSecs is the whole-second duration lrclib expects.
func (t *Info) DurationSecs() int64 {
	if t == nil || t.DurationMs <= 0 {
		return 0
	}
	return t.DurationMs / 1000
}
