// Package player follows an MPRIS player on the session bus and reports the
// current track and playback position in milliseconds.
package player

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/godbus/dbus/v5"
	log "github.com/sirupsen/logrus"

	"karolbroda.com/lyrifloat/internal/track"
)

const (
	mprisPath        = "/org/mpris/MediaPlayer2"
	mprisIface       = "org.mpris.MediaPlayer2"
	mprisPlayerIface = "org.mpris.MediaPlayer2.Player"
	mprisPrefix      = "org.mpris.MediaPlayer2."

	// a jump larger than this between expected and reported position is a seek
	seekThresholdMs = 3_000
)

var ErrNoTrack = errors.New("no track playing")

type Event int

const (
	EventTrackChanged Event = iota
	EventPositionChanged
	EventSeeked
	EventPlaybackStateChanged
)

func (e Event) String() string {
	switch e {
	case EventTrackChanged:
		return "track_changed"
	case EventPositionChanged:
		return "position_changed"
	case EventSeeked:
		return "seeked"
	case EventPlaybackStateChanged:
		return "playback_state_changed"
	default:
		return "unknown"
	}
}

type EventData struct {
	Type       Event
	Track      *track.Info
	PositionMs int64
	Playing    bool
}

type State struct {
	Track      *track.Info
	PositionMs int64
	Playing    bool

	lastUpdate     time.Time
	lastPositionMs int64
}

// ExpectedPosition extrapolates the last reported position to now, assuming
// playback continued at normal speed while playing.
func (s *State) ExpectedPosition(now time.Time) int64 {
	if s.lastUpdate.IsZero() || !s.Playing {
		return s.lastPositionMs
	}
	return s.lastPositionMs + now.Sub(s.lastUpdate).Milliseconds()
}

func (s *State) DetectSeek(positionMs int64, now time.Time) bool {
	if s.lastUpdate.IsZero() {
		return false
	}

	diff := positionMs - s.ExpectedPosition(now)
	if diff < 0 {
		diff = -diff
	}
	return diff > seekThresholdMs
}

func (s *State) UpdatePosition(positionMs int64, now time.Time) {
	s.PositionMs = positionMs
	s.lastPositionMs = positionMs
	s.lastUpdate = now
}

type Service struct {
	bus        *dbus.Conn
	service    string
	signalChan chan *dbus.Signal
	stopChan   chan struct{}
	stopOnce   sync.Once
	eventChan  chan EventData
	state      *State
	mu         sync.RWMutex
}

func NewService(bus *dbus.Conn, mprisService string) (*Service, error) {
	if bus == nil {
		return nil, errors.New("nil dbus connection")
	}
	if mprisService == "" {
		return nil, errors.New("empty mpris service name")
	}

	return &Service{
		bus:       bus,
		service:   mprisService,
		eventChan: make(chan EventData, 16),
		state:     &State{},
	}, nil
}

func (s *Service) Name() string {
	return s.service
}

// Start subscribes to property and seek signals of the player.
func (s *Service) Start() error {
	s.signalChan = make(chan *dbus.Signal, 10)
	s.stopChan = make(chan struct{})

	s.bus.Signal(s.signalChan)

	matches := []string{
		fmt.Sprintf(
			"type='signal',sender='%s',interface='org.freedesktop.DBus.Properties',member='PropertiesChanged',path='%s'",
			s.service, mprisPath,
		),
		fmt.Sprintf(
			"type='signal',sender='%s',interface='%s',member='Seeked',path='%s'",
			s.service, mprisPlayerIface, mprisPath,
		),
	}
	for _, match := range matches {
		if err := s.bus.BusObject().Call("org.freedesktop.DBus.AddMatch", 0, match).Err; err != nil {
			return fmt.Errorf("failed to add signal match: %w", err)
		}
	}

	go s.signalLoop()

	log.WithField("service", s.service).Debug("listening for player signals")
	return nil
}

func (s *Service) Stop() {
	s.stopOnce.Do(func() {
		if s.stopChan != nil {
			close(s.stopChan)
		}
		if s.signalChan != nil {
			s.bus.RemoveSignal(s.signalChan)
		}
	})
}

func (s *Service) Events() <-chan EventData {
	return s.eventChan
}

func (s *Service) GetCurrentTrack() (*track.Info, error) {
	prop, err := s.bus.Object(s.service, mprisPath).GetProperty(mprisPlayerIface + ".Metadata")
	if err != nil {
		return nil, fmt.Errorf("failed to get metadata property: %w", err)
	}

	metadata, ok := prop.Value().(map[string]dbus.Variant)
	if !ok {
		return nil, fmt.Errorf("unexpected metadata type %T", prop.Value())
	}

	info := TrackFromMetadata(metadata)
	if !info.IsValid() {
		return nil, fmt.Errorf("%w: missing title or artist (title=%q, artist=%q)", ErrNoTrack, info.Title, info.Artist)
	}

	return info, nil
}

// GetCurrentPosition returns the playback position in milliseconds.
func (s *Service) GetCurrentPosition() (int64, error) {
	prop, err := s.bus.Object(s.service, mprisPath).GetProperty(mprisPlayerIface + ".Position")
	if err != nil {
		return 0, fmt.Errorf("failed to get position property: %w", err)
	}

	us, ok := prop.Value().(int64)
	if !ok {
		return 0, fmt.Errorf("unexpected position type %T", prop.Value())
	}

	return microsToMillis(us), nil
}

func (s *Service) GetPlaying() (bool, error) {
	prop, err := s.bus.Object(s.service, mprisPath).GetProperty(mprisPlayerIface + ".PlaybackStatus")
	if err != nil {
		return false, fmt.Errorf("failed to get playback status: %w", err)
	}
	status, _ := prop.Value().(string)
	return status == "Playing", nil
}

// Poll reads track, position and playback status, updates the state and
// emits events for a new track or a detected seek.
func (s *Service) Poll() error {
	trk, err := s.GetCurrentTrack()
	if err != nil {
		return err
	}

	pos, err := s.GetCurrentPosition()
	if err != nil {
		return err
	}

	playing, err := s.GetPlaying()
	if err != nil {
		log.WithError(err).Debug("playback status unavailable")
		playing = true
	}

	now := time.Now()

	s.mu.Lock()
	changed := !trk.IsSameTrack(s.state.Track)
	seeked := !changed && s.state.DetectSeek(pos, now)
	playingChanged := s.state.Playing != playing
	s.state.Playing = playing
	s.state.UpdatePosition(pos, now)
	if changed {
		s.state.Track = trk
	} else if trk.DurationMs > 0 && s.state.Track.DurationMs != trk.DurationMs {
		// some players fill in the length after the track starts
		updated := *s.state.Track
		updated.DurationMs = trk.DurationMs
		s.state.Track = &updated
	}
	s.mu.Unlock()

	switch {
	case changed:
		log.WithFields(log.Fields{"artist": trk.Artist, "title": trk.Title}).Info("track changed")
		s.emitEvent(EventData{Type: EventTrackChanged, Track: trk, PositionMs: pos, Playing: playing})
	case seeked:
		s.emitEvent(EventData{Type: EventSeeked, PositionMs: pos, Playing: playing})
	}
	if playingChanged && !changed {
		s.emitEvent(EventData{Type: EventPlaybackStateChanged, PositionMs: pos, Playing: playing})
	}

	return nil
}

// GetState returns a copy of the state with the position extrapolated to
// now, so callers between polls still see a moving position.
func (s *Service) GetState() State {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stateCopy := State{
		PositionMs: s.state.ExpectedPosition(time.Now()),
		Playing:    s.state.Playing,
	}
	if s.state.lastUpdate.IsZero() {
		stateCopy.PositionMs = s.state.PositionMs
	}

	if s.state.Track != nil {
		trackCopy := *s.state.Track
		stateCopy.Track = &trackCopy
	}

	return stateCopy
}

func (s *Service) signalLoop() {
	for {
		select {
		case sig, ok := <-s.signalChan:
			if !ok {
				return
			}
			s.handleSignal(sig)
		case <-s.stopChan:
			return
		}
	}
}

func (s *Service) handleSignal(sig *dbus.Signal) {
	if sig == nil {
		return
	}

	switch sig.Name {
	case "org.freedesktop.DBus.Properties.PropertiesChanged":
		s.handlePropertiesChanged(sig)
	case mprisPlayerIface + ".Seeked":
		s.handleSeeked(sig)
	}
}

func (s *Service) handlePropertiesChanged(sig *dbus.Signal) {
	if len(sig.Body) < 2 {
		return
	}

	interfaceName, ok := sig.Body[0].(string)
	if !ok || interfaceName != mprisPlayerIface {
		return
	}

	changedProps, ok := sig.Body[1].(map[string]dbus.Variant)
	if !ok {
		return
	}

	if metadataVariant, exists := changedProps["Metadata"]; exists {
		if metadata, ok := metadataVariant.Value().(map[string]dbus.Variant); ok {
			info := TrackFromMetadata(metadata)
			if info.IsValid() {
				s.mu.Lock()
				changed := !info.IsSameTrack(s.state.Track)
				s.state.Track = info
				if changed {
					s.state.UpdatePosition(0, time.Now())
				}
				s.mu.Unlock()

				if changed {
					s.emitEvent(EventData{Type: EventTrackChanged, Track: info})
				}
			}
		}
	}

	if playbackVariant, exists := changedProps["PlaybackStatus"]; exists {
		if status, ok := playbackVariant.Value().(string); ok {
			playing := status == "Playing"
			now := time.Now()

			s.mu.Lock()
			pos := s.state.ExpectedPosition(now)
			s.state.Playing = playing
			s.state.UpdatePosition(pos, now)
			s.mu.Unlock()

			s.emitEvent(EventData{Type: EventPlaybackStateChanged, PositionMs: pos, Playing: playing})
		}
	}
}

func (s *Service) handleSeeked(sig *dbus.Signal) {
	if len(sig.Body) < 1 {
		return
	}

	us, ok := sig.Body[0].(int64)
	if !ok {
		return
	}
	pos := microsToMillis(us)

	s.mu.Lock()
	s.state.UpdatePosition(pos, time.Now())
	playing := s.state.Playing
	s.mu.Unlock()

	s.emitEvent(EventData{Type: EventSeeked, PositionMs: pos, Playing: playing})
}

func (s *Service) emitEvent(event EventData) {
	select {
	case s.eventChan <- event:
	default:
		log.WithField("event", event.Type).Debug("player event dropped, channel full")
	}
}

// ListPlayers returns the MPRIS services currently on the bus, sorted.
func ListPlayers(bus *dbus.Conn) ([]string, error) {
	var names []string
	if err := bus.BusObject().Call("org.freedesktop.DBus.ListNames", 0).Store(&names); err != nil {
		return nil, fmt.Errorf("failed to list dbus names: %w", err)
	}
	return filterPlayers(names), nil
}

func filterPlayers(names []string) []string {
	var players []string
	for _, name := range names {
		if strings.HasPrefix(name, mprisPrefix) {
			players = append(players, name)
		}
	}
	sort.Strings(players)
	return players
}

// Identity is the human readable player name, empty when not exposed.
func Identity(bus *dbus.Conn, service string) string {
	variant, err := bus.Object(service, mprisPath).GetProperty(mprisIface + ".Identity")
	if err != nil {
		return ""
	}
	identity, _ := variant.Value().(string)
	return identity
}
