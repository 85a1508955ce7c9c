package cache

import (
	"crypto/sha256"
	"encoding/gob"
	"encoding/hex"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
	"golang.org/x/text/unicode/norm"
)

const (
	// version 2 switched the stored offset from seconds to milliseconds
	cacheVersion    = 2
	defaultTTLDays  = 30
	cacheDirName    = "lyrifloat"
	lyricsCacheName = "lyrics"
	entrySuffix     = ".bin"
)

var (
	ErrCacheMiss    = errors.New("cache miss")
	ErrCacheExpired = errors.New("cache expired")
	ErrCacheCorrupt = errors.New("cache corrupt")
)

type LyricEntry struct {
	Version      uint8
	TrackName    string
	ArtistName   string
	AlbumName    string
	Duration     float64
	Instrumental bool
	PlainLyrics  string
	SyncedLyrics string
	OffsetMs     int64
	CreatedAt    int64
	ExpiresAt    int64
}

func (e *LyricEntry) HasLyrics() bool {
	return e != nil && (e.SyncedLyrics != "" || e.PlainLyrics != "" || e.Instrumental)
}

type DiskCache struct {
	basePath string
	ttl      time.Duration
	mu       sync.RWMutex
	memCache map[string]*LyricEntry
}

var (
	globalCache     *DiskCache
	globalCacheOnce sync.Once
)

// GetGlobalCache returns the process-wide cache. If the cache directory can't
// be created it degrades to memory only.
func GetGlobalCache() *DiskCache {
	globalCacheOnce.Do(func() {
		cache, err := NewDiskCache()
		if err != nil {
			log.WithError(err).Warn("lyrics cache falling back to memory only")
			cache = newMemoryCache()
		}
		globalCache = cache
	})
	return globalCache
}

func NewDiskCache() (*DiskCache, error) {
	cacheDir, err := Directory()
	if err != nil {
		return nil, err
	}
	return NewDiskCacheAt(filepath.Join(cacheDir, lyricsCacheName))
}

func NewDiskCacheAt(lyricsPath string) (*DiskCache, error) {
	err := os.MkdirAll(lyricsPath, 0755)
	if err != nil {
		return nil, err
	}

	return &DiskCache{
		basePath: lyricsPath,
		ttl:      defaultTTLDays * 24 * time.Hour,
		memCache: make(map[string]*LyricEntry),
	}, nil
}

func newMemoryCache() *DiskCache {
	return &DiskCache{
		ttl:      defaultTTLDays * 24 * time.Hour,
		memCache: make(map[string]*LyricEntry),
	}
}

// Directory is the application cache root, honoring XDG_CACHE_HOME.
func Directory() (string, error) {
	xdgCache := os.Getenv("XDG_CACHE_HOME")
	if xdgCache != "" {
		return filepath.Join(xdgCache, cacheDirName), nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}

	return filepath.Join(homeDir, ".cache", cacheDirName), nil
}

func (c *DiskCache) Path() string {
	return c.basePath
}

func generateKey(artist, title string) string {
	normalized := norm.NFC.String(strings.ToLower(artist) + "|" + strings.ToLower(title))
	hash := sha256.Sum256([]byte(normalized))
	return hex.EncodeToString(hash[:12])
}

func (c *DiskCache) getFilePath(key string) string {
	if c.basePath == "" {
		return ""
	}
	return filepath.Join(c.basePath, key+entrySuffix)
}

func (c *DiskCache) Get(artist, title string) (*LyricEntry, error) {
	if artist == "" || title == "" {
		return nil, ErrCacheMiss
	}

	key := generateKey(artist, title)

	c.mu.RLock()
	entry, exists := c.memCache[key]
	c.mu.RUnlock()

	if exists {
		if entry.ExpiresAt > time.Now().Unix() {
			return cloneEntry(entry), nil
		}
		c.mu.Lock()
		delete(c.memCache, key)
		c.mu.Unlock()
	}

	if c.basePath == "" {
		return nil, ErrCacheMiss
	}

	filePath := c.getFilePath(key)
	entry, err := c.readFromDisk(filePath)
	if err != nil {
		return nil, err
	}

	if entry.ExpiresAt <= time.Now().Unix() {
		_ = os.Remove(filePath)
		return nil, ErrCacheExpired
	}

	c.mu.Lock()
	c.memCache[key] = entry
	c.mu.Unlock()

	return cloneEntry(entry), nil
}

// Set stores a copy of entry, stamping version and expiry.
func (c *DiskCache) Set(artist, title string, entry *LyricEntry) error {
	if artist == "" || title == "" || entry == nil {
		return errors.New("invalid cache entry")
	}

	key := generateKey(artist, title)

	stored := cloneEntry(entry)
	now := time.Now()
	stored.Version = cacheVersion
	stored.CreatedAt = now.Unix()
	stored.ExpiresAt = now.Add(c.ttl).Unix()

	c.mu.Lock()
	c.memCache[key] = stored
	c.mu.Unlock()

	if c.basePath == "" {
		return nil
	}

	return c.writeToDisk(c.getFilePath(key), stored)
}

// SetOffset updates the presentation offset of an existing entry without
// touching its expiry.
func (c *DiskCache) SetOffset(artist, title string, offsetMs int64) error {
	entry, err := c.Get(artist, title)
	if err != nil {
		return err
	}

	entry.OffsetMs = offsetMs
	key := generateKey(artist, title)

	c.mu.Lock()
	c.memCache[key] = entry
	c.mu.Unlock()

	if c.basePath == "" {
		return nil
	}
	return c.writeToDisk(c.getFilePath(key), entry)
}

func cloneEntry(entry *LyricEntry) *LyricEntry {
	copied := *entry
	return &copied
}

func (c *DiskCache) readFromDisk(filePath string) (*LyricEntry, error) {
	file, err := os.Open(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrCacheMiss
		}
		return nil, err
	}
	defer file.Close()

	var entry LyricEntry
	decoder := gob.NewDecoder(file)
	err = decoder.Decode(&entry)
	if err != nil {
		log.WithField("path", filePath).WithError(err).Debug("undecodable cache entry")
		return nil, ErrCacheCorrupt
	}

	// version mismatch means stale format
	if entry.Version != cacheVersion {
		_ = os.Remove(filePath)
		return nil, ErrCacheCorrupt
	}

	return &entry, nil
}

func (c *DiskCache) writeToDisk(filePath string, entry *LyricEntry) error {
	// write to temp file first, then rename for atomicity
	tmpPath := filePath + ".tmp"

	file, err := os.Create(tmpPath)
	if err != nil {
		return err
	}

	encoder := gob.NewEncoder(file)
	err = encoder.Encode(entry)
	if err != nil {
		file.Close()
		_ = os.Remove(tmpPath)
		return err
	}

	err = file.Sync()
	if err != nil {
		file.Close()
		_ = os.Remove(tmpPath)
		return err
	}

	err = file.Close()
	if err != nil {
		_ = os.Remove(tmpPath)
		return err
	}

	return os.Rename(tmpPath, filePath)
}

func (c *DiskCache) entryFiles() ([]string, error) {
	entries, err := os.ReadDir(c.basePath)
	if err != nil {
		return nil, err
	}

	var paths []string
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), entrySuffix) {
			continue
		}
		paths = append(paths, filepath.Join(c.basePath, entry.Name()))
	}
	return paths, nil
}

func (c *DiskCache) Clear() error {
	c.mu.Lock()
	c.memCache = make(map[string]*LyricEntry)
	c.mu.Unlock()

	if c.basePath == "" {
		return nil
	}

	paths, err := c.entryFiles()
	if err != nil {
		return err
	}

	for _, path := range paths {
		_ = os.Remove(path)
	}

	return nil
}

// Prune removes expired and unreadable entries and reports how many went.
func (c *DiskCache) Prune() (int, error) {
	if c.basePath == "" {
		return 0, nil
	}

	paths, err := c.entryFiles()
	if err != nil {
		return 0, err
	}

	pruned := 0
	now := time.Now().Unix()

	for _, path := range paths {
		entry, err := c.readFromDisk(path)
		if err != nil || entry.ExpiresAt <= now {
			_ = os.Remove(path)
			pruned++
		}
	}

	return pruned, nil
}

func (c *DiskCache) Stats() (count int, sizeBytes int64, err error) {
	if c.basePath == "" {
		return 0, 0, nil
	}

	paths, err := c.entryFiles()
	if err != nil {
		return 0, 0, err
	}

	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			continue
		}
		count++
		sizeBytes += info.Size()
	}

	return count, sizeBytes, nil
}

func (c *DiskCache) ListAll() ([]*LyricEntry, error) {
	if c.basePath == "" {
		return nil, nil
	}

	paths, err := c.entryFiles()
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var result []*LyricEntry
	for _, path := range paths {
		entry, err := c.readFromDisk(path)
		if err != nil {
			continue
		}
		result = append(result, entry)
	}

	return result, nil
}

func (c *DiskCache) Delete(artist, title string) error {
	if artist == "" || title == "" {
		return errors.New("invalid artist or title")
	}

	key := generateKey(artist, title)

	c.mu.Lock()
	delete(c.memCache, key)
	c.mu.Unlock()

	if c.basePath == "" {
		return nil
	}

	err := os.Remove(c.getFilePath(key))
	if err != nil && !os.IsNotExist(err) {
		return err
	}

	return nil
}
