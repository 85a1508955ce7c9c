package lyrics

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"

	"karolbroda.com/lyrifloat/internal/cache"
	"karolbroda.com/lyrifloat/internal/config"
)

const (
	userAgent            = "lyrifloat/1.0"
	defaultStrategyDelay = 100 * time.Millisecond
)

var (
	ErrNotFound = errors.New("lyrics not found")
	ErrTimeout  = errors.New("lyrics server took too long to respond")
)

type Response struct {
	TrackName    string  `json:"trackName"`
	ArtistName   string  `json:"artistName"`
	AlbumName    string  `json:"albumName"`
	Duration     float64 `json:"duration"`
	Instrumental bool    `json:"instrumental"`
	PlainLyrics  string  `json:"plainLyrics"`
	SyncedLyrics string  `json:"syncedLyrics"`
	OffsetMs     int64   `json:"-"`
	FromCache    bool    `json:"-"`
}

func (r *Response) HasLyrics() bool {
	return r != nil && (r.PlainLyrics != "" || r.SyncedLyrics != "" || r.Instrumental)
}

func (r *Response) Lyrics() Lyrics {
	return FromText(r.SyncedLyrics, r.PlainLyrics, r.Instrumental)
}

type TrackParams struct {
	Title        string
	Artist       string
	Album        string
	DurationSecs int64
}

type ClientConfig struct {
	BaseURL string
	// Cache may be nil, in which case nothing is read or persisted.
	Cache *cache.DiskCache
	// NoCacheReads always asks lrclib but still stores what it finds.
	NoCacheReads  bool
	HTTPClient    *http.Client
	StrategyDelay time.Duration
}

type Client struct {
	baseURL       string
	cache         *cache.DiskCache
	noCacheReads  bool
	httpClient    *http.Client
	strategyDelay time.Duration
}

func NewClient(cfg ClientConfig) *Client {
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = newHTTPClient()
	}

	delay := cfg.StrategyDelay
	if delay < 0 {
		delay = 0
	} else if delay == 0 {
		delay = defaultStrategyDelay
	}

	return &Client{
		baseURL:       cfg.BaseURL,
		cache:         cfg.Cache,
		noCacheReads:  cfg.NoCacheReads,
		httpClient:    httpClient,
		strategyDelay: delay,
	}
}

func newHTTPClient() *http.Client {
	transport := &http.Transport{
		DialContext: (&net.Dialer{
			Timeout:   2 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:        10,
		MaxIdleConnsPerHost: 5,
		IdleConnTimeout:     60 * time.Second,
		TLSHandshakeTimeout: 2 * time.Second,
	}
	return &http.Client{
		Transport: transport,
		Timeout:   time.Duration(config.HTTPTimeoutSeconds) * time.Second,
	}
}

// normalizeString trims, collapses inner whitespace and composes unicode so
// visually equal names compare equal
func normalizeString(s string) string {
	return norm.NFC.String(strings.Join(strings.Fields(s), " "))
}

// stripVersionInfo removes text in parentheses and brackets (remixes, versions, etc)
func stripVersionInfo(s string) string {
	s = strings.TrimSpace(s)

	for _, pair := range [][2]string{{"(", ")"}, {"[", "]"}} {
		for strings.Contains(s, pair[0]) && strings.Contains(s, pair[1]) {
			start := strings.Index(s, pair[0])
			end := strings.Index(s, pair[1])
			if end <= start {
				break
			}
			s = s[:start] + " " + s[end+1:]
		}
	}

	return normalizeString(s)
}

type searchStrategy struct {
	artist   string
	title    string
	album    string
	duration int64
}

func (s searchStrategy) key() string {
	return fmt.Sprintf("%s|%s|%s|%d", s.artist, s.title, s.album, s.duration)
}

// buildStrategies lists the query variants tried in order, most specific
// first, without duplicates.
func buildStrategies(track *TrackParams) []searchStrategy {
	artist := normalizeString(track.Artist)
	title := normalizeString(track.Title)
	// casers keep state, so each call gets its own
	titleCaser := cases.Title(language.Und)

	candidates := []searchStrategy{
		{artist, title, normalizeString(track.Album), track.DurationSecs},
		{artist, title, "", track.DurationSecs},
		{artist, title, "", 0},
		{stripVersionInfo(track.Artist), stripVersionInfo(track.Title), "", 0},
		{strings.ToUpper(artist), strings.ToUpper(title), "", 0},
		{strings.ToLower(artist), strings.ToLower(title), "", 0},
		{titleCaser.String(artist), titleCaser.String(title), "", 0},
		{track.Artist, track.Title, "", 0},
	}

	seen := make(map[string]bool)
	var unique []searchStrategy
	for _, strategy := range candidates {
		if strategy.artist == "" || strategy.title == "" {
			continue
		}
		if seen[strategy.key()] {
			continue
		}
		seen[strategy.key()] = true
		unique = append(unique, strategy)
	}
	return unique
}

// Fetch looks the track up in the cache and then on lrclib, trying the query
// strategies in order until one returns lyrics.
func (c *Client) Fetch(ctx context.Context, track *TrackParams) (*Response, error) {
	return c.fetch(ctx, track, c.noCacheReads)
}

// Refresh skips the cache read and replaces the stored entry with what lrclib
// returns now.
func (c *Client) Refresh(ctx context.Context, track *TrackParams) (*Response, error) {
	return c.fetch(ctx, track, true)
}

func (c *Client) fetch(ctx context.Context, track *TrackParams, skipCache bool) (*Response, error) {
	if track == nil {
		return nil, errors.New("nil track info")
	}
	if normalizeString(track.Title) == "" || normalizeString(track.Artist) == "" {
		return nil, errors.New("track title or artist is empty")
	}
	if c.baseURL == "" {
		return nil, errors.New("lrclib base url is empty")
	}

	logger := log.WithFields(log.Fields{"artist": track.Artist, "title": track.Title})

	if c.cache != nil && !skipCache {
		cached, err := c.cache.Get(track.Artist, track.Title)
		if err == nil && cached.HasLyrics() {
			logger.Debug("lyrics served from cache")
			return responseFromEntry(cached), nil
		}
	}

	parsedURL, err := url.Parse(c.baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid lrclib url %q: %w", c.baseURL, err)
	}

	var lastErr error
	for idx, strategy := range buildStrategies(track) {
		if idx > 0 && c.strategyDelay > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(c.strategyDelay):
			}
		}

		query := url.Values{}
		query.Set("artist_name", strategy.artist)
		query.Set("track_name", strategy.title)
		if strategy.album != "" {
			query.Set("album_name", strategy.album)
		}
		if strategy.duration > 0 {
			query.Set("duration", strconv.FormatInt(strategy.duration, 10))
		}
		parsedURL.RawQuery = query.Encode()

		payload, err := c.doFetchRequest(ctx, parsedURL.String())
		if err != nil {
			lastErr = err
			logger.WithField("strategy", idx).WithError(err).Debug("lrclib lookup failed")
			if isTimeoutError(err) {
				return nil, ErrTimeout
			}
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			continue
		}

		if !payload.HasLyrics() {
			lastErr = ErrNotFound
			continue
		}

		logger.WithFields(log.Fields{
			"strategy": idx,
			"synced":   payload.SyncedLyrics != "",
		}).Info("lyrics found on lrclib")

		c.store(track, payload)
		return payload, nil
	}

	if lastErr == nil {
		lastErr = ErrNotFound
	}
	return nil, fmt.Errorf("no lyrics found for %s - %s: %w", track.Artist, track.Title, lastErr)
}

// store keeps the result under the player's names so the next lookup for the
// same track hits regardless of which strategy matched. A previously chosen
// offset survives a refetch.
func (c *Client) store(track *TrackParams, payload *Response) {
	if c.cache == nil {
		return
	}

	if previous, err := c.cache.Get(track.Artist, track.Title); err == nil {
		payload.OffsetMs = previous.OffsetMs
	}

	err := c.cache.Set(track.Artist, track.Title, &cache.LyricEntry{
		TrackName:    payload.TrackName,
		ArtistName:   payload.ArtistName,
		AlbumName:    payload.AlbumName,
		Duration:     payload.Duration,
		Instrumental: payload.Instrumental,
		PlainLyrics:  payload.PlainLyrics,
		SyncedLyrics: payload.SyncedLyrics,
		OffsetMs:     payload.OffsetMs,
	})
	if err != nil {
		log.WithError(err).Warn("failed to persist lyrics")
	}
}

func responseFromEntry(entry *cache.LyricEntry) *Response {
	return &Response{
		TrackName:    entry.TrackName,
		ArtistName:   entry.ArtistName,
		AlbumName:    entry.AlbumName,
		Duration:     entry.Duration,
		Instrumental: entry.Instrumental,
		PlainLyrics:  entry.PlainLyrics,
		SyncedLyrics: entry.SyncedLyrics,
		OffsetMs:     entry.OffsetMs,
		FromCache:    true,
	}
}

func isTimeoutError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

func (c *Client) doFetchRequest(parentCtx context.Context, requestURL string) (*Response, error) {
	timeout := time.Duration(config.HTTPTimeoutSeconds) * time.Second
	ctx, cancel := context.WithTimeout(parentCtx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build http request: %w", err)
	}

	req.Header.Set("User-Agent", userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, ErrNotFound
	}

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("lrclib returned status %d: %s", resp.StatusCode, string(body))
	}

	var payload Response
	err = json.NewDecoder(resp.Body).Decode(&payload)
	if err != nil {
		return nil, fmt.Errorf("failed to decode lrclib json: %w", err)
	}

	return &payload, nil
}
