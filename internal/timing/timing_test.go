package timing

import (
	"strings"
	"testing"
)

func TestParseLRC_EndToEnd(t *testing.T) {
	table := ParseLRC("[00:01.00]Hello\n[00:03.50]World")
	if table == nil {
		t.Fatal("ParseLRC returned nil for valid input")
	}

	expected := []Line{
		{Text: "Hello", StartMs: 1000, EndMs: 3500},
		{Text: "World", StartMs: 3500, EndMs: 8500},
	}

	lines := table.Lines()
	if len(lines) != len(expected) {
		t.Fatalf("got %d lines, expected %d", len(lines), len(expected))
	}
	for i := range expected {
		if lines[i] != expected[i] {
			t.Errorf("line %d = %+v, expected %+v", i, lines[i], expected[i])
		}
	}

	if idx := table.Index(3500); idx != 1 {
		t.Errorf("Index(3500) = %d, expected 1", idx)
	}
}

func TestParseLRC_Contiguity(t *testing.T) {
	raw := `[ar:Some Artist]
[ti:Some Title]
[00:00.50]one
[00:04.20]two

[00:09.999]three
[01:02.03]four`

	table := ParseLRC(raw)
	if table == nil {
		t.Fatal("ParseLRC returned nil")
	}
	if table.Len() != 4 {
		t.Fatalf("Len() = %d, expected 4", table.Len())
	}

	lines := table.Lines()
	for i := 0; i < len(lines)-1; i++ {
		if lines[i].EndMs != lines[i+1].StartMs {
			t.Errorf("line %d ends at %d but line %d starts at %d", i, lines[i].EndMs, i+1, lines[i+1].StartMs)
		}
	}

	last := lines[len(lines)-1]
	if last.EndMs != last.StartMs+TailMs {
		t.Errorf("last line ends at %d, expected %d", last.EndMs, last.StartMs+TailMs)
	}
	if last.StartMs != 62030 {
		t.Errorf("last line starts at %d, expected 62030", last.StartMs)
	}
}

func TestParseLRC_FractionFormats(t *testing.T) {
	tests := []struct {
		raw      string
		expected int64
	}{
		{"[00:12.50]x", 12500},
		{"[00:12.500]x", 12500},
		{"[00:12.05]x", 12050},
		{"[00:12.050]x", 12050},
		{"[02:00.00]x", 120000},
		{"[00:12.5]x", 12000},
		{"[00:12.5000]x", 12000},
		{"[123:01.001]x", 123*60000 + 1001},
	}

	for _, test := range tests {
		table := ParseLRC(test.raw)
		line, ok := table.Line(0)
		if !ok {
			t.Errorf("ParseLRC(%q) produced no line", test.raw)
			continue
		}
		if line.StartMs != test.expected {
			t.Errorf("ParseLRC(%q) start = %d, expected %d", test.raw, line.StartMs, test.expected)
		}
	}
}

func TestParseLRC_SkipsInvalidLines(t *testing.T) {
	raw := strings.Join([]string{
		"[ar:Artist]",
		"plain text without tag",
		"[00:01.00]",
		"[00:01.00]   ",
		"[xx:01.00]bad minutes",
		"[00:01]no fraction",
		"  [00:02.00]  padded text  ",
		"[00:03.00]kept",
	}, "\n")

	table := ParseLRC(raw)
	if table == nil {
		t.Fatal("ParseLRC returned nil")
	}

	expected := []string{"padded text", "kept"}
	texts := table.Texts()
	if len(texts) != len(expected) {
		t.Fatalf("got texts %q, expected %q", texts, expected)
	}
	for i := range expected {
		if texts[i] != expected[i] {
			t.Errorf("text %d = %q, expected %q", i, texts[i], expected[i])
		}
	}
}

func TestParseLRC_NoResult(t *testing.T) {
	inputs := []string{
		"",
		"\n\n   \n",
		"[ar:Artist]\n[ti:Title]",
		"[00:01.00]\n[00:02.00]",
		"just some words",
	}

	for _, raw := range inputs {
		if table := ParseLRC(raw); table != nil {
			t.Errorf("ParseLRC(%q) = %d lines, expected nil", raw, table.Len())
		}
	}
}

func TestParseLRC_KeepsInputOrder(t *testing.T) {
	table := ParseLRC("[00:05.00]a\n[00:01.00]b\n[00:03.00]c")
	texts := table.Texts()
	if len(texts) != 3 || texts[0] != "a" || texts[1] != "b" || texts[2] != "c" {
		t.Fatalf("Texts() = %q, expected [a b c]", texts)
	}

	tests := []struct {
		progress int64
		expected int
	}{
		{500, 0},
		{1500, 1},
		{4000, 2},
		{7999, 2},
		{8000, 2},
		{60000, 2},
	}

	for _, test := range tests {
		if idx := table.Index(test.progress); idx != test.expected {
			t.Errorf("Index(%d) = %d, expected %d", test.progress, idx, test.expected)
		}
	}
}

func TestDistribute_Scenario(t *testing.T) {
	table := Distribute([]string{"a", "b", "c", "d"}, 20000)

	expected := [][2]int64{{0, 5000}, {5000, 10000}, {10000, 15000}, {15000, 20000}}
	lines := table.Lines()
	if len(lines) != len(expected) {
		t.Fatalf("got %d lines, expected %d", len(lines), len(expected))
	}
	for i, window := range expected {
		if lines[i].StartMs != window[0] || lines[i].EndMs != window[1] {
			t.Errorf("line %d = [%d,%d), expected [%d,%d)", i, lines[i].StartMs, lines[i].EndMs, window[0], window[1])
		}
	}

	if idx := table.Index(19999); idx != 3 {
		t.Errorf("Index(19999) = %d, expected 3", idx)
	}
	if idx := table.Index(25000); idx != 3 {
		t.Errorf("Index(25000) = %d, expected 3", idx)
	}
}

func TestDistribute_Contiguity(t *testing.T) {
	tests := []struct {
		count    int
		duration int64
	}{
		{1, 1000},
		{3, 10000},
		{7, 180000},
		{50, 180000},
		{13, 211733},
		{5, 3},
	}

	for _, test := range tests {
		lines := make([]string, test.count)
		for i := range lines {
			lines[i] = "line"
		}

		timed := Distribute(lines, test.duration).Lines()
		if len(timed) != test.count {
			t.Fatalf("Distribute(%d, %d) produced %d lines", test.count, test.duration, len(timed))
		}
		if timed[0].StartMs != 0 {
			t.Errorf("Distribute(%d, %d) first start = %d, expected 0", test.count, test.duration, timed[0].StartMs)
		}
		for i := 0; i < len(timed)-1; i++ {
			if timed[i].EndMs != timed[i+1].StartMs {
				t.Errorf("Distribute(%d, %d) gap between %d and %d", test.count, test.duration, i, i+1)
			}
			if timed[i].StartMs > timed[i].EndMs {
				t.Errorf("Distribute(%d, %d) line %d has negative width", test.count, test.duration, i)
			}
		}
		last := timed[len(timed)-1]
		if last.EndMs > test.duration || test.duration-last.EndMs > 1 {
			t.Errorf("Distribute(%d, %d) last end = %d", test.count, test.duration, last.EndMs)
		}
	}
}

func TestDistribute_DegenerateInputs(t *testing.T) {
	tests := []struct {
		name     string
		lines    []string
		duration int64
	}{
		{"no lines", nil, 180000},
		{"empty slice", []string{}, 180000},
		{"zero duration", []string{"a", "b"}, 0},
		{"negative duration", []string{"a", "b"}, -500},
	}

	for _, test := range tests {
		table := Distribute(test.lines, test.duration)
		if table == nil {
			t.Errorf("%s: Distribute returned nil, expected empty table", test.name)
			continue
		}
		if !table.IsEmpty() {
			t.Errorf("%s: Distribute returned %d lines, expected 0", test.name, table.Len())
		}
	}
}

func TestIndex_BoundaryTieBreak(t *testing.T) {
	table := ParseLRC("[00:00.00]zero\n[00:01.00]one\n[00:02.00]two")

	tests := []struct {
		progress int64
		expected int
	}{
		{0, 0},
		{999, 0},
		{1000, 1},
		{1999, 1},
		{2000, 2},
		{6999, 2},
		{7000, 2},
	}

	for _, test := range tests {
		if idx := table.Index(test.progress); idx != test.expected {
			t.Errorf("Index(%d) = %d, expected %d", test.progress, idx, test.expected)
		}
	}
}

func TestIndex_BeforeFirstLine(t *testing.T) {
	table := ParseLRC("[00:10.00]late start")
	if idx := table.Index(0); idx != 0 {
		t.Errorf("Index(0) = %d, expected 0", idx)
	}
	if idx := table.Index(-250); idx != 0 {
		t.Errorf("Index(-250) = %d, expected 0", idx)
	}
}

func TestIndex_EmptyTable(t *testing.T) {
	var nilTable *Table
	if idx := nilTable.Index(1000); idx != NoLine {
		t.Errorf("nil table Index = %d, expected NoLine", idx)
	}
	if idx := Empty().Index(1000); idx != NoLine {
		t.Errorf("empty table Index = %d, expected NoLine", idx)
	}
	if idx := Distribute(nil, 1000).IndexWithOffset(1000, 200); idx != NoLine {
		t.Errorf("empty table IndexWithOffset = %d, expected NoLine", idx)
	}
}

func TestIndex_Monotonic(t *testing.T) {
	tables := map[string]*Table{
		"lrc":        ParseLRC("[00:01.00]a\n[00:01.00]dup\n[00:02.50]b\n[00:04.00]c\n[00:09.10]d"),
		"distribute": Distribute([]string{"a", "b", "c", "d", "e", "f", "g"}, 12345),
		"dense":      Distribute([]string{"a", "b", "c", "d", "e"}, 3),
	}

	for name, table := range tables {
		prev := table.Index(0)
		for p := int64(1); p < 20000; p++ {
			idx := table.Index(p)
			if idx < prev {
				t.Fatalf("%s: Index(%d) = %d went back from %d", name, p, idx, prev)
			}
			prev = idx
		}
	}
}

func TestIndex_MatchesLinearScan(t *testing.T) {
	table := ParseLRC("[00:01.00]a\n[00:01.00]dup\n[00:02.50]b\n[00:04.00]c\n[00:09.10]d")
	lines := table.Lines()

	linear := func(p int64) int {
		for i, line := range lines {
			if line.StartMs <= p && p < line.EndMs {
				return i
			}
		}
		if p >= lines[len(lines)-1].EndMs {
			return len(lines) - 1
		}
		return 0
	}

	for p := int64(0); p < 16000; p += 7 {
		if got, want := table.Index(p), linear(p); got != want {
			t.Fatalf("Index(%d) = %d, linear scan gives %d", p, got, want)
		}
	}
}

func TestIndexWithOffset(t *testing.T) {
	table := Distribute([]string{"a", "b", "c", "d"}, 20000)

	tests := []struct {
		progress int64
		offset   int64
		expected int
	}{
		{5000, 0, 1},
		{5000, 1, 0},
		{4800, -300, 1},
		{100, 500, 0},
		{100000, 500, 3},
	}

	for _, test := range tests {
		if idx := table.IndexWithOffset(test.progress, test.offset); idx != test.expected {
			t.Errorf("IndexWithOffset(%d, %d) = %d, expected %d", test.progress, test.offset, idx, test.expected)
		}
	}
}

func TestAdjust(t *testing.T) {
	tests := []struct {
		progress int64
		offset   int64
		expected int64
	}{
		{1000, 0, 1000},
		{1000, 300, 700},
		{1000, -300, 1300},
		{200, 500, 0},
		{0, 1, 0},
	}

	for _, test := range tests {
		if got := Adjust(test.progress, test.offset); got != test.expected {
			t.Errorf("Adjust(%d, %d) = %d, expected %d", test.progress, test.offset, got, test.expected)
		}
	}
}

func TestTable_LRCRoundTrip(t *testing.T) {
	original := Distribute([]string{"first", "second", "third"}, 200000)
	parsed := ParseLRC(original.LRC())
	if parsed == nil {
		t.Fatal("ParseLRC of rendered LRC returned nil")
	}

	want := original.Lines()
	got := parsed.Lines()
	for i := range want {
		if got[i].Text != want[i].Text || got[i].StartMs != want[i].StartMs {
			t.Errorf("line %d = %+v, expected text/start of %+v", i, got[i], want[i])
		}
	}
}

func TestFormatTag(t *testing.T) {
	tests := []struct {
		ms       int64
		expected string
	}{
		{0, "[00:00.000]"},
		{12500, "[00:12.500]"},
		{62030, "[01:02.030]"},
		{-5, "[00:00.000]"},
	}

	for _, test := range tests {
		if got := FormatTag(test.ms); got != test.expected {
			t.Errorf("FormatTag(%d) = %q, expected %q", test.ms, got, test.expected)
		}
	}
}

func TestTable_LinesIsCopy(t *testing.T) {
	table := ParseLRC("[00:01.00]a\n[00:02.00]b")
	lines := table.Lines()
	lines[0].Text = "changed"

	if line, _ := table.Line(0); line.Text != "a" {
		t.Errorf("mutating Lines() changed the table: %q", line.Text)
	}
}
