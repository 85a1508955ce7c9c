package lyrics

import (
	"testing"

	"karolbroda.com/lyrifloat/internal/timing"
)

func TestFromText(t *testing.T) {
	tests := []struct {
		name         string
		synced       string
		plain        string
		instrumental bool
		expected     Kind
	}{
		{"synced wins", "[00:01.00]a", "a", false, KindSynced},
		{"plain when synced is empty", "", "a\nb", false, KindPlain},
		{"plain when synced does not parse", "[ar:x]", "a", false, KindPlain},
		{"instrumental", "", "", true, KindInstrumental},
		{"instrumental with credits only", "", "Written by someone", true, KindInstrumental},
		{"untimed synced text", "[00:01]hello", "", false, KindPlain},
	}

	for _, test := range tests {
		got := FromText(test.synced, test.plain, test.instrumental)
		if got.Kind() != test.expected {
			t.Errorf("%s: Kind() = %s, expected %s", test.name, got.Kind(), test.expected)
		}
	}
}

func TestFromText_UntimedSyncedKeepsText(t *testing.T) {
	got := FromText("[00:01]hello\n[00:02]world", "", false)
	plain, ok := got.(Plain)
	if !ok {
		t.Fatalf("FromText returned %T, expected Plain", got)
	}
	lines := plain.Lines()
	if len(lines) != 2 || lines[0] != "hello" || lines[1] != "world" {
		t.Errorf("Lines() = %q, expected [hello world]", lines)
	}
}

func TestTimeline(t *testing.T) {
	synced := timing.ParseLRC("[00:01.00]Hello\n[00:03.50]World")

	tests := []struct {
		name       string
		lyrics     Lyrics
		durationMs int64
		expected   int
	}{
		{"synced ignores duration", Synced{Table: synced}, 0, 2},
		{"synced nil table", Synced{}, 1000, 0},
		{"plain with duration", Plain{Text: "a\nb\n\nc\nd"}, 20000, 4},
		{"plain without duration", Plain{Text: "a\nb"}, 0, 0},
		{"instrumental", Instrumental{}, 20000, 0},
		{"nil lyrics", nil, 20000, 0},
	}

	for _, test := range tests {
		table := Timeline(test.lyrics, test.durationMs)
		if table == nil {
			t.Errorf("%s: Timeline returned nil", test.name)
			continue
		}
		if table.Len() != test.expected {
			t.Errorf("%s: Len() = %d, expected %d", test.name, table.Len(), test.expected)
		}
	}

	if Timeline(Synced{Table: synced}, 0) != synced {
		t.Error("Timeline should hand back the parsed table itself")
	}
}

func TestTimeline_PlainIsEvenlySpread(t *testing.T) {
	table := Timeline(Plain{Text: "a\nb\nc\nd"}, 20000)
	line, _ := table.Line(3)
	if line.StartMs != 15000 || line.EndMs != 20000 {
		t.Errorf("last line = [%d,%d), expected [15000,20000)", line.StartMs, line.EndMs)
	}
}

func TestNeedsDuration(t *testing.T) {
	if !NeedsDuration(Plain{}) {
		t.Error("plain lyrics need a duration")
	}
	if NeedsDuration(Synced{}) || NeedsDuration(Instrumental{}) || NeedsDuration(nil) {
		t.Error("only plain lyrics need a duration")
	}
}

func TestKind_String(t *testing.T) {
	tests := []struct {
		kind     Kind
		expected string
	}{
		{KindSynced, "synced"},
		{KindPlain, "plain"},
		{KindInstrumental, "instrumental"},
		{Kind(42), "unknown"},
	}

	for _, test := range tests {
		if got := test.kind.String(); got != test.expected {
			t.Errorf("Kind(%d).String() = %q, expected %q", test.kind, got, test.expected)
		}
	}
}
