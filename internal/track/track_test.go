package track

import "testing"

func TestInfo_IsValid(t *testing.T) {
	tests := []struct {
		info     *Info
		expected bool
	}{
		{nil, false},
		{&Info{}, false},
		{&Info{Title: "Faded"}, false},
		{&Info{Artist: "Alan Walker"}, false},
		{&Info{Title: "Faded", Artist: "Alan Walker"}, true},
	}

	for _, test := range tests {
		if got := test.info.IsValid(); got != test.expected {
			t.Errorf("IsValid(%+v) = %v, expected %v", test.info, got, test.expected)
		}
	}
}

func TestInfo_IsSameTrack(t *testing.T) {
	a := &Info{Title: "Faded", Artist: "Alan Walker", TrackID: "1"}
	b := &Info{Title: "Faded (Remix)", Artist: "Alan Walker", TrackID: "1"}
	c := &Info{Title: "Faded", Artist: "Alan Walker", TrackID: "2"}
	d := &Info{Title: "Faded", Artist: "Alan Walker"}

	if !a.IsSameTrack(b) {
		t.Error("tracks with the same id should match")
	}
	if a.IsSameTrack(c) {
		t.Error("tracks with different ids should not match")
	}
	if !a.IsSameTrack(d) {
		t.Error("tracks without ids on one side should match by name")
	}
	if a.IsSameTrack(nil) {
		t.Error("track should not match nil")
	}

	var nilInfo *Info
	if !nilInfo.IsSameTrack(nil) {
		t.Error("nil should match nil")
	}
}

func TestInfo_Key(t *testing.T) {
	withID := &Info{Title: "Faded", Artist: "Alan Walker", TrackID: "/track/1"}
	if withID.Key() != "id:/track/1" {
		t.Errorf("Key() = %q, expected id key", withID.Key())
	}

	upper := &Info{Title: "FADED", Artist: "ALAN WALKER"}
	lower := &Info{Title: "faded", Artist: "alan walker"}
	if upper.Key() != lower.Key() {
		t.Errorf("name keys should ignore case: %q vs %q", upper.Key(), lower.Key())
	}
}

func TestInfo_DurationSecs(t *testing.T) {
	info := &Info{DurationMs: 212999}
	if info.DurationSecs() != 212 {
		t.Errorf("DurationSecs() = %d, expected 212", info.DurationSecs())
	}

	info.DurationMs = -1
	if info.DurationSecs() != 0 {
		t.Errorf("DurationSecs() = %d, expected 0", info.DurationSecs())
	}
}
