package ui

import (
	"context"
	"errors"

	tea "github.com/charmbracelet/bubbletea"
	log "github.com/sirupsen/logrus"

	"karolbroda.com/lyrifloat/internal/artwork"
	"karolbroda.com/lyrifloat/internal/lyrics"
	"karolbroda.com/lyrifloat/internal/player"
	"karolbroda.com/lyrifloat/internal/track"
)

const (
	offsetStepMs = 100
	offsetJumpMs = 500
)

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tea.KeyMsg:
		return m.handleKeyPress(msg)

	case PlayerEventMsg:
		return m.handlePlayerEvent(msg.Event)

	case LineChangedMsg:
		log.WithFields(log.Fields{
			"index":    msg.Change.Index,
			"progress": msg.Change.ProgressMs,
		}).Debug("line changed")
		return m, m.listenForLineChanges()

	case ArtworkFetchedMsg:
		return m.handleArtworkFetched(msg)

	case LyricsFetchedMsg:
		return m.handleLyricsFetched(msg)

	case TickMsg:
		return m.handleTick()
	}

	return m, nil
}

func (m Model) handleKeyPress(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c", "esc":
		m.quitting = true
		m.Stop()
		return m, tea.Quit

	case "up", "k", "+", "=":
		m.shiftOffset(offsetStepMs)
	case "down", "j", "-":
		m.shiftOffset(-offsetStepMs)
	case "right", "l":
		m.shiftOffset(offsetJumpMs)
	case "left", "h":
		m.shiftOffset(-offsetJumpMs)
	case "0":
		m.resetOffset()

	case "r":
		if m.track == nil || m.fetcher == nil {
			return m, nil
		}
		m.loadingState = m.loadingState.with(LoadingLyrics)
		return m, fetchLyricsCmd(m.fetcher, m.track, true)

	case "tab", "i":
		m.hideHeader = !m.hideHeader
	}

	return m, nil
}

func (m Model) handlePlayerEvent(event player.EventData) (tea.Model, tea.Cmd) {
	cmds := []tea.Cmd{m.listenForPlayerEvents()}

	switch event.Type {
	case player.EventTrackChanged:
		var cmd tea.Cmd
		m, cmd = m.handleTrackChange(event.Track)
		cmds = append(cmds, cmd)

	case player.EventSeeked:
		m.positionMs = event.PositionMs
		m.observe()

	case player.EventPlaybackStateChanged:
		m.playing = event.Playing
	}

	return m, tea.Batch(cmds...)
}

// handleTrackChange starts lyrics and artwork lookups for a new track. It is
// a no-op for the track already shown, since both the poll and the signal
// path report the same change.
func (m Model) handleTrackChange(trk *track.Info) (Model, tea.Cmd) {
	if !trk.IsValid() || trk.IsSameTrack(m.track) {
		return m, nil
	}

	m.resetForNewTrack(trk)
	log.WithFields(log.Fields{"artist": trk.Artist, "title": trk.Title}).Debug("loading lyrics")

	var cmds []tea.Cmd
	if m.fetcher != nil {
		m.loadingState = m.loadingState.with(LoadingLyrics)
		cmds = append(cmds, fetchLyricsCmd(m.fetcher, trk, false))
	}

	if trk.ArtworkURL != m.artworkURL {
		m.artworkURL = trk.ArtworkURL
		m.image = nil
		m.palette = artwork.DefaultPalette()
		if trk.ArtworkURL != "" {
			m.loadingState = m.loadingState.with(LoadingArtwork)
			cmds = append(cmds, fetchArtworkCmd(trk.ArtworkURL))
		}
	}

	return m, tea.Batch(cmds...)
}

func (m Model) handleArtworkFetched(msg ArtworkFetchedMsg) (tea.Model, tea.Cmd) {
	if msg.URL != m.artworkURL {
		return m, nil
	}
	m.loadingState = m.loadingState.without(LoadingArtwork)

	if msg.Err != nil {
		log.WithError(msg.Err).Debug("artwork unavailable")
		return m, nil
	}

	m.image = msg.Image
	if msg.Palette != nil {
		m.palette = msg.Palette
	}
	return m, nil
}

func (m Model) handleLyricsFetched(msg LyricsFetchedMsg) (tea.Model, tea.Cmd) {
	if m.track == nil || !msg.Track.IsSameTrack(m.track) {
		return m, nil
	}
	m.loadingState = m.loadingState.without(LoadingLyrics)

	if msg.Err == nil && msg.Response == nil {
		msg.Err = lyrics.ErrNotFound
	}

	if msg.Err != nil {
		if errors.Is(msg.Err, lyrics.ErrNotFound) {
			m.notFound = true
			m.err = nil
		} else if !msg.Refresh || m.session.Table() == nil {
			// a failed refresh keeps the lyrics already on screen
			m.err = msg.Err
		}
		log.WithError(msg.Err).Warn("lyrics lookup failed")
		if !msg.Refresh {
			m.session.Load(m.track, nil, false)
		}
		return m, nil
	}

	m.err = nil
	m.notFound = false
	m.fromCache = msg.Response.FromCache

	if msg.Response.OffsetMs != 0 {
		m.session.SetOffset(msg.Response.OffsetMs)
	}

	m.session.Load(m.track, msg.Response.Lyrics(), msg.Refresh)
	m.observe()
	return m, nil
}

func (m Model) handleTick() (tea.Model, tea.Cmd) {
	m.tickCount++

	if m.player == nil {
		return m, m.tickCmd()
	}

	if err := m.player.Poll(); err != nil {
		if errors.Is(err, player.ErrNoTrack) && m.track != nil {
			m.resetForNewTrack(nil)
		}
		return m, m.tickCmd()
	}

	state := m.player.GetState()
	m.playing = state.Playing

	var cmd tea.Cmd
	if state.Track.IsValid() && !state.Track.IsSameTrack(m.track) {
		// the event may have been dropped; catch up from the polled state
		m, cmd = m.handleTrackChange(state.Track)
	} else if m.track != nil && state.Track != nil && state.Track.DurationMs != m.track.DurationMs {
		updated := *m.track
		updated.DurationMs = state.Track.DurationMs
		m.track = &updated
	}

	m.positionMs = state.PositionMs
	m.observe()

	return m, tea.Batch(m.tickCmd(), cmd)
}

func fetchArtworkCmd(artworkURL string) tea.Cmd {
	return func() tea.Msg {
		img, err := artwork.Fetch(context.Background(), artworkURL)
		if err != nil {
			return ArtworkFetchedMsg{URL: artworkURL, Err: err}
		}
		return ArtworkFetchedMsg{
			URL:     artworkURL,
			Image:   img,
			Palette: artwork.ExtractPalette(img),
		}
	}
}

func fetchLyricsCmd(fetcher Fetcher, trk *track.Info, refresh bool) tea.Cmd {
	return func() tea.Msg {
		params := &lyrics.TrackParams{
			Title:        trk.Title,
			Artist:       trk.Artist,
			Album:        trk.Album,
			DurationSecs: trk.DurationSecs(),
		}

		var (
			resp *lyrics.Response
			err  error
		)
		if refresh {
			resp, err = fetcher.Refresh(context.Background(), params)
		} else {
			resp, err = fetcher.Fetch(context.Background(), params)
		}

		return LyricsFetchedMsg{Track: trk, Response: resp, Refresh: refresh, Err: err}
	}
}
