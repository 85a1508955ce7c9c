package lyrics

import (
	"karolbroda.com/lyrifloat/internal/timing"
)

type Kind int

const (
	KindSynced Kind = iota
	KindPlain
	KindInstrumental
)

func (k Kind) String() string {
	switch k {
	case KindSynced:
		return "synced"
	case KindPlain:
		return "plain"
	case KindInstrumental:
		return "instrumental"
	default:
		return "unknown"
	}
}

// Lyrics is what a lookup produced for a track. The set of implementations
// is closed: Synced, Plain and Instrumental.
type Lyrics interface {
	Kind() Kind
	sealed()
}

// Synced carries a table parsed from LRC text.
type Synced struct {
	Table *timing.Table
}

// Plain carries untimed text; it gets evenly spread timing once the track
// duration is known.
type Plain struct {
	Text string
}

type Instrumental struct{}

func (Synced) Kind() Kind       { return KindSynced }
func (Plain) Kind() Kind        { return KindPlain }
func (Instrumental) Kind() Kind { return KindInstrumental }

func (Synced) sealed()       {}
func (Plain) sealed()        {}
func (Instrumental) sealed() {}

func (p Plain) Lines() []string {
	return CleanPlain(p.Text)
}

// NeedsDuration reports whether l can only be timed with a known duration.
func NeedsDuration(l Lyrics) bool {
	_, ok := l.(Plain)
	return ok
}

// Timeline turns l into a timing table. Plain lyrics are spread over
// durationMs; without a positive duration the table is empty.
func Timeline(l Lyrics, durationMs int64) *timing.Table {
	switch v := l.(type) {
	case Synced:
		if v.Table == nil {
			return timing.Empty()
		}
		return v.Table
	case Plain:
		return timing.Distribute(v.Lines(), durationMs)
	case Instrumental:
		return timing.Empty()
	default:
		return timing.Empty()
	}
}

// FromText picks the best variant from raw lrclib-style fields: parsable
// synced text wins, then plain text, then the instrumental flag.
func FromText(synced string, plain string, instrumental bool) Lyrics {
	if table := timing.ParseLRC(synced); table != nil {
		return Synced{Table: table}
	}
	if len(CleanPlain(plain)) > 0 {
		return Plain{Text: plain}
	}
	if instrumental {
		return Instrumental{}
	}
	// synced text that failed to parse can still be shown untimed
	return Plain{Text: StripTags(synced)}
}
