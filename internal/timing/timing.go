// Package timing maps playback progress to the active lyric line.
//
// Tables come from two sources: LRC text with per-line timestamps, or plain
// lines spread evenly over a known track duration. A table is immutable once
// built; callers replace it wholesale when the track or lyrics change.
package timing

import (
	"fmt"
	"math"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

const (
	// TailMs is the window length given to the last line of an LRC table.
	TailMs = 5000

	// NoLine is returned by Index when the table has no lines.
	NoLine = -1
)

var lrcTagPattern = regexp.MustCompile(`^\[(\d+):(\d+)\.(\d+)\](.*)$`)

type Line struct {
	Text    string
	StartMs int64
	EndMs   int64
}

func (l Line) Contains(progressMs int64) bool {
	return l.StartMs <= progressMs && progressMs < l.EndMs
}

func (l Line) DurationMs() int64 {
	return l.EndMs - l.StartMs
}

type Table struct {
	lines []Line
	// ordered reports whether starts and ends are both non-decreasing, which
	// is what the binary search in Index relies on.
	ordered bool
}

func newTable(lines []Line) *Table {
	t := &Table{lines: lines, ordered: true}
	for i := 1; i < len(lines); i++ {
		if lines[i].StartMs < lines[i-1].StartMs || lines[i].EndMs < lines[i-1].EndMs {
			t.ordered = false
			break
		}
	}
	return t
}

// Empty returns a table with no lines. It is not the same as a nil table:
// nil means there was nothing to time at all.
func Empty() *Table {
	return &Table{ordered: true}
}

// ParseLRC builds a table from LRC text. Lines without a leading
// [mm:ss.xx] tag, or with a tag but no text, are skipped. It returns nil when
// the input is empty or no timestamped line survives.
func ParseLRC(raw string) *Table {
	if raw == "" {
		return nil
	}

	type stamped struct {
		text    string
		startMs int64
	}

	var entries []stamped
	for _, physical := range strings.Split(raw, "\n") {
		trimmed := strings.TrimSpace(physical)
		if trimmed == "" {
			continue
		}

		startMs, text, ok := parseTaggedLine(trimmed)
		if !ok || text == "" {
			continue
		}

		entries = append(entries, stamped{text: text, startMs: startMs})
	}

	if len(entries) == 0 {
		return nil
	}

	lines := make([]Line, len(entries))
	for i, entry := range entries {
		endMs := entry.startMs + TailMs
		if i+1 < len(entries) {
			endMs = entries[i+1].startMs
		}
		lines[i] = Line{Text: entry.text, StartMs: entry.startMs, EndMs: endMs}
	}

	return newTable(lines)
}

func parseTaggedLine(line string) (int64, string, bool) {
	matches := lrcTagPattern.FindStringSubmatch(line)
	if matches == nil {
		return 0, "", false
	}

	minutes, err := strconv.ParseInt(matches[1], 10, 64)
	if err != nil {
		return 0, "", false
	}
	seconds, err := strconv.ParseInt(matches[2], 10, 64)
	if err != nil {
		return 0, "", false
	}

	startMs := minutes*60000 + seconds*1000 + fractionMs(matches[3])
	return startMs, strings.TrimSpace(matches[4]), true
}

// fractionMs reads the part after the dot: two digits are centiseconds,
// three are milliseconds, anything else counts as zero.
func fractionMs(digits string) int64 {
	value, err := strconv.ParseInt(digits, 10, 64)
	if err != nil {
		return 0
	}

	switch len(digits) {
	case 2:
		return value * 10
	case 3:
		return value
	default:
		return 0
	}
}

// Distribute spreads lines evenly across durationMs. Each boundary is floored
// on its own so consecutive windows always touch; the last end may fall a
// millisecond short of the duration.
func Distribute(lines []string, durationMs int64) *Table {
	if len(lines) == 0 || durationMs <= 0 {
		return Empty()
	}

	perLine := float64(durationMs) / float64(len(lines))

	timed := make([]Line, len(lines))
	for i, text := range lines {
		timed[i] = Line{
			Text:    text,
			StartMs: int64(math.Floor(float64(i) * perLine)),
			EndMs:   int64(math.Floor(float64(i+1) * perLine)),
		}
	}

	return newTable(timed)
}

func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.lines)
}

func (t *Table) IsEmpty() bool {
	return t.Len() == 0
}

func (t *Table) Line(index int) (Line, bool) {
	if index < 0 || index >= t.Len() {
		return Line{}, false
	}
	return t.lines[index], true
}

// Lines returns a copy of the table's lines.
func (t *Table) Lines() []Line {
	if t.Len() == 0 {
		return nil
	}
	out := make([]Line, len(t.lines))
	copy(out, t.lines)
	return out
}

func (t *Table) Texts() []string {
	out := make([]string, t.Len())
	for i := range out {
		out[i] = t.lines[i].Text
	}
	return out
}

// Index returns the line whose window holds progressMs. Windows are half-open,
// so a sample equal to a window's end belongs to the next line. Progress at or
// past the last end stays on the last line; progress that lands in no window
// before that (an intro before the first timestamp) resolves to the first line.
func (t *Table) Index(progressMs int64) int {
	n := t.Len()
	if n == 0 {
		return NoLine
	}
	if progressMs < 0 {
		progressMs = 0
	}

	if idx, ok := t.find(progressMs); ok {
		return idx
	}

	if progressMs >= t.lines[n-1].EndMs {
		return n - 1
	}
	return 0
}

// IndexWithOffset resolves progressMs shifted by a presentation offset.
// A positive offset highlights lines later than they are sung.
func (t *Table) IndexWithOffset(progressMs int64, offsetMs int64) int {
	return t.Index(Adjust(progressMs, offsetMs))
}

func (t *Table) find(progressMs int64) (int, bool) {
	if !t.ordered {
		for i, line := range t.lines {
			if line.Contains(progressMs) {
				return i, true
			}
		}
		return 0, false
	}

	// ends are non-decreasing, so every line before i has already ended
	i := sort.Search(len(t.lines), func(i int) bool {
		return t.lines[i].EndMs > progressMs
	})
	if i < len(t.lines) && t.lines[i].StartMs <= progressMs {
		return i, true
	}
	return 0, false
}

// Adjust applies a presentation offset and never returns a negative position.
func Adjust(progressMs int64, offsetMs int64) int64 {
	adjusted := progressMs - offsetMs
	if adjusted < 0 {
		return 0
	}
	return adjusted
}

// LRC renders the table as LRC text with millisecond precision tags.
func (t *Table) LRC() string {
	var b strings.Builder
	for i, line := range t.Lines() {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(FormatTag(line.StartMs))
		b.WriteString(line.Text)
	}
	return b.String()
}

func FormatTag(ms int64) string {
	if ms < 0 {
		ms = 0
	}
	return fmt.Sprintf("[%02d:%02d.%03d]", ms/60000, (ms/1000)%60, ms%1000)
}
