// Package session tracks the lyrics of the track that is playing now and
// turns progress samples into line changes.
package session

import (
	"sync"
	"sync/atomic"

	log "github.com/sirupsen/logrus"

	"karolbroda.com/lyrifloat/internal/cache"
	"karolbroda.com/lyrifloat/internal/lyrics"
	"karolbroda.com/lyrifloat/internal/timing"
	"karolbroda.com/lyrifloat/internal/track"
)

const changeBuffer = 16

type LineChange struct {
	TrackKey   string
	Index      int
	Previous   int
	Line       timing.Line
	ProgressMs int64
}

// Session owns the active timing table. Readers load it through an atomic
// pointer; writers build a complete table first and swap it in.
type Session struct {
	table  atomic.Pointer[timing.Table]
	offset atomic.Int64

	mu        sync.Mutex
	track     *track.Info
	lyrics    lyrics.Lyrics
	pending   bool
	lastIndex int

	tables  *cache.Tables
	changes chan LineChange
}

func New(tables *cache.Tables) *Session {
	if tables == nil {
		tables = cache.NewTables()
	}
	return &Session{
		tables:    tables,
		changes:   make(chan LineChange, changeBuffer),
		lastIndex: timing.NoLine,
	}
}

// Changes delivers a value whenever Observe moves to another line. Sends
// never block; a slow reader misses intermediate changes.
func (s *Session) Changes() <-chan LineChange {
	return s.changes
}

// SetTrack switches to a new track and drops the previous table.
func (s *Session) SetTrack(trk *track.Info) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.track = trk
	s.lyrics = nil
	s.pending = false
	s.lastIndex = timing.NoLine
	s.table.Store(nil)
}

func (s *Session) Track() *track.Info {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.track
}

// Load publishes the table for l if trk is still the current track. Plain
// lyrics without a known duration stay pending until Observe sees one.
// With refresh set, a memoized table for the track is replaced.
func (s *Session) Load(trk *track.Info, l lyrics.Lyrics, refresh bool) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !trk.IsSameTrack(s.track) {
		log.WithField("track", trk.Key()).Debug("dropping lyrics for a track that is no longer playing")
		return false
	}

	s.lyrics = l
	s.lastIndex = timing.NoLine

	if l == nil {
		s.pending = false
		s.table.Store(timing.Empty())
		return true
	}

	var durationMs int64
	if trk != nil {
		durationMs = trk.DurationMs
	}

	if lyrics.NeedsDuration(l) && durationMs <= 0 {
		s.pending = true
		s.table.Store(timing.Empty())
		return true
	}

	s.pending = false
	s.publish(trk.Key(), l, durationMs, refresh)
	return true
}

func (s *Session) publish(key string, l lyrics.Lyrics, durationMs int64, refresh bool) {
	built := lyrics.Timeline(l, durationMs)
	if key == "" {
		s.table.Store(built)
		return
	}

	memoKey := key + "#" + l.Kind().String()
	if refresh {
		s.tables.Replace(memoKey, built)
		s.table.Store(built)
		return
	}
	s.table.Store(s.tables.Store(memoKey, built))
}

// Table is the table currently published, nil when nothing is loaded.
func (s *Session) Table() *timing.Table {
	return s.table.Load()
}

func (s *Session) Lyrics() lyrics.Lyrics {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lyrics
}

// Pending reports plain lyrics still waiting for a track duration.
func (s *Session) Pending() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pending
}

func (s *Session) Offset() int64 {
	return s.offset.Load()
}

func (s *Session) SetOffset(offsetMs int64) {
	s.offset.Store(offsetMs)
}

func (s *Session) ShiftOffset(deltaMs int64) int64 {
	return s.offset.Add(deltaMs)
}

// Resolve maps a progress sample to a line index using the published table
// and the current offset. It has no side effects.
func (s *Session) Resolve(progressMs int64) int {
	return s.Table().IndexWithOffset(progressMs, s.Offset())
}

// Observe feeds a progress sample. durationMs may be zero when unknown; a
// positive value completes pending plain lyrics. It returns the resolved
// index and whether it differs from the previous sample's.
func (s *Session) Observe(progressMs int64, durationMs int64) (int, bool) {
	s.mu.Lock()
	if s.pending && durationMs > 0 && s.track != nil {
		s.pending = false
		timed := *s.track
		timed.DurationMs = durationMs
		s.track = &timed
		s.publish(timed.Key(), s.lyrics, durationMs, false)
	}

	table := s.Table()
	idx := table.IndexWithOffset(progressMs, s.Offset())
	previous := s.lastIndex
	changed := idx != previous
	s.lastIndex = idx

	var key string
	if s.track != nil {
		key = s.track.Key()
	}
	s.mu.Unlock()

	if changed && idx != timing.NoLine {
		line, _ := table.Line(idx)
		s.emit(LineChange{
			TrackKey:   key,
			Index:      idx,
			Previous:   previous,
			Line:       line,
			ProgressMs: progressMs,
		})
	}

	return idx, changed
}

// Current is the index from the last Observe call.
func (s *Session) Current() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastIndex
}

func (s *Session) emit(change LineChange) {
	select {
	case s.changes <- change:
	default:
	}
}
