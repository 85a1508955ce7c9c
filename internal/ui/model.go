package ui

import (
	"context"
	"image"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"karolbroda.com/lyrifloat/internal/artwork"
	"karolbroda.com/lyrifloat/internal/cache"
	"karolbroda.com/lyrifloat/internal/config"
	"karolbroda.com/lyrifloat/internal/lyrics"
	"karolbroda.com/lyrifloat/internal/player"
	"karolbroda.com/lyrifloat/internal/session"
	"karolbroda.com/lyrifloat/internal/timing"
	"karolbroda.com/lyrifloat/internal/track"
)

// Player is the part of player.Service the floater drives.
type Player interface {
	Poll() error
	GetState() player.State
	Events() <-chan player.EventData
	Stop()
}

type Fetcher interface {
	Fetch(ctx context.Context, params *lyrics.TrackParams) (*lyrics.Response, error)
	Refresh(ctx context.Context, params *lyrics.TrackParams) (*lyrics.Response, error)
}

type LoadingState int

const (
	LoadingNone LoadingState = iota
	LoadingLyrics
	LoadingArtwork
	LoadingBoth
)

func (l LoadingState) IsLoadingLyrics() bool {
	return l == LoadingLyrics || l == LoadingBoth
}

func (l LoadingState) IsLoadingArtwork() bool {
	return l == LoadingArtwork || l == LoadingBoth
}

func (l LoadingState) with(other LoadingState) LoadingState {
	if l == other || l == LoadingBoth {
		return l
	}
	if l == LoadingNone {
		return other
	}
	return LoadingBoth
}

func (l LoadingState) without(other LoadingState) LoadingState {
	switch {
	case l == other:
		return LoadingNone
	case l == LoadingBoth && other == LoadingLyrics:
		return LoadingArtwork
	case l == LoadingBoth && other == LoadingArtwork:
		return LoadingLyrics
	default:
		return l
	}
}

type TickMsg time.Time

type PlayerEventMsg struct {
	Event player.EventData
}

type LineChangedMsg struct {
	Change session.LineChange
}

type LyricsFetchedMsg struct {
	Track    *track.Info
	Response *lyrics.Response
	Refresh  bool
	Err      error
}

type ArtworkFetchedMsg struct {
	URL     string
	Image   image.Image
	Palette *artwork.Palette
	Err     error
}

type Model struct {
	player        Player
	fetcher       Fetcher
	cache         *cache.DiskCache
	session       *session.Session
	defaultOffset int64
	pollInterval  time.Duration
	contextLines  int
	hideHeader    bool

	track        *track.Info
	positionMs   int64
	playing      bool
	current      int
	palette      *artwork.Palette
	image        image.Image
	artworkURL   string
	fromCache    bool
	notFound     bool
	loadingState LoadingState
	err          error
	quitting     bool
	width        int
	height       int
	tickCount    int
}

type ModelConfig struct {
	Player  Player
	Fetcher Fetcher

	// Cache persists per-track offsets; nil disables that.
	Cache        *cache.DiskCache
	Session      *session.Session
	OffsetMs     int64
	PollInterval time.Duration
	ContextLines int
	HideHeader   bool
}

func NewModel(cfg ModelConfig) Model {
	sess := cfg.Session
	if sess == nil {
		sess = session.New(nil)
	}
	sess.SetOffset(cfg.OffsetMs)

	poll := cfg.PollInterval
	if poll <= 0 {
		poll = config.PollInterval
	}

	contextLines := cfg.ContextLines
	if contextLines < 0 {
		contextLines = 0
	}

	return Model{
		player:        cfg.Player,
		fetcher:       cfg.Fetcher,
		cache:         cfg.Cache,
		session:       sess,
		defaultOffset: cfg.OffsetMs,
		pollInterval:  poll,
		contextLines:  contextLines,
		hideHeader:    cfg.HideHeader,
		current:       timing.NoLine,
		palette:       artwork.DefaultPalette(),
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(
		m.tickCmd(),
		m.listenForPlayerEvents(),
		m.listenForLineChanges(),
	)
}

func (m Model) tickCmd() tea.Cmd {
	return tea.Tick(m.pollInterval, func(t time.Time) tea.Msg {
		return TickMsg(t)
	})
}

func (m Model) listenForPlayerEvents() tea.Cmd {
	if m.player == nil {
		return nil
	}

	events := m.player.Events()
	return func() tea.Msg {
		event, ok := <-events
		if !ok {
			return nil
		}
		return PlayerEventMsg{Event: event}
	}
}

func (m Model) listenForLineChanges() tea.Cmd {
	changes := m.session.Changes()
	return func() tea.Msg {
		change, ok := <-changes
		if !ok {
			return nil
		}
		return LineChangedMsg{Change: change}
	}
}

func (m *Model) resetForNewTrack(trk *track.Info) {
	m.track = trk
	m.current = timing.NoLine
	m.positionMs = 0
	m.fromCache = false
	m.notFound = false
	m.err = nil
	m.loadingState = LoadingNone
	m.session.SetTrack(trk)
	m.session.SetOffset(m.defaultOffset)
}

// observe feeds the position into the session and records the active line.
func (m *Model) observe() {
	var durationMs int64
	if m.track != nil {
		durationMs = m.track.DurationMs
	}
	m.current, _ = m.session.Observe(m.positionMs, durationMs)
}

func (m *Model) shiftOffset(deltaMs int64) {
	m.session.ShiftOffset(deltaMs)
	m.observe()
	m.saveOffset()
}

func (m *Model) resetOffset() {
	m.session.SetOffset(0)
	m.observe()
	m.saveOffset()
}

// saveOffset persists the offset with the cached lyrics so it survives a
// restart. Tracks without a cache entry keep the offset for this session only.
func (m *Model) saveOffset() {
	if m.cache == nil || m.track == nil {
		return
	}
	_ = m.cache.SetOffset(m.track.Artist, m.track.Title, m.session.Offset())
}

func (m Model) Track() *track.Info        { return m.track }
func (m Model) Position() int64           { return m.positionMs }
func (m Model) CurrentIndex() int         { return m.current }
func (m Model) Offset() int64             { return m.session.Offset() }
func (m Model) Palette() *artwork.Palette { return m.palette }
func (m Model) HideHeader() bool          { return m.hideHeader }
func (m Model) Err() error                { return m.err }
func (m Model) IsQuitting() bool          { return m.quitting }
func (m Model) IsLoadingLyrics() bool     { return m.loadingState.IsLoadingLyrics() }

func (m *Model) Stop() {
	if m.player != nil {
		m.player.Stop()
	}
}
