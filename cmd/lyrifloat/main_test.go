package main

import (
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"

	"karolbroda.com/lyrifloat/internal/cache"
)

func TestFormatBytes(t *testing.T) {
	tests := []struct {
		bytes    int64
		expected string
	}{
		{0, "0 B"},
		{1023, "1023 B"},
		{1024, "1.0 KB"},
		{1536, "1.5 KB"},
		{5 * 1024 * 1024, "5.0 MB"},
	}

	for _, tt := range tests {
		if got := formatBytes(tt.bytes); got != tt.expected {
			t.Errorf("formatBytes(%d) = %q, want %q", tt.bytes, got, tt.expected)
		}
	}
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		ms       int64
		expected string
	}{
		{-5, "0:00"},
		{999, "0:00"},
		{61000, "1:01"},
		{212000, "3:32"},
	}

	for _, tt := range tests {
		if got := formatDuration(tt.ms); got != tt.expected {
			t.Errorf("formatDuration(%d) = %q, want %q", tt.ms, got, tt.expected)
		}
	}
}

func TestLookupArgs(t *testing.T) {
	defer func() { timingFile = "" }()
	cmd := &cobra.Command{}

	tests := []struct {
		name    string
		file    string
		extra   int
		args    []string
		wantErr bool
	}{
		{"lookup", "", 1, []string{"alan walker", "faded", "5000"}, false},
		{"lookup missing title", "", 1, []string{"alan walker", "5000"}, true},
		{"file", "song.lrc", 1, []string{"5000"}, false},
		{"file with lookup args", "song.lrc", 0, []string{"alan walker", "faded"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			timingFile = tt.file
			err := lookupArgs(tt.extra)(cmd, tt.args)
			if (err != nil) != tt.wantErr {
				t.Errorf("lookupArgs(%d)(%v) error = %v, wantErr %v", tt.extra, tt.args, err, tt.wantErr)
			}
		})
	}
}

func TestFindSimilarCachedSongs(t *testing.T) {
	diskCache, err := cache.NewDiskCacheAt(filepath.Join(t.TempDir(), "lyrics"))
	if err != nil {
		t.Fatalf("NewDiskCacheAt() error = %v", err)
	}

	entries := []*cache.LyricEntry{
		{ArtistName: "Alan Walker", TrackName: "Faded", SyncedLyrics: "[00:01.00]a"},
		{ArtistName: "Alan Walker", TrackName: "Faded (Remix)", SyncedLyrics: "[00:01.00]a"},
		{ArtistName: "Alan Walker & Iselin", TrackName: "Faded", PlainLyrics: "a"},
		{ArtistName: "Daft Punk", TrackName: "Around the World", PlainLyrics: "a"},
	}
	for _, e := range entries {
		if err := diskCache.Set(e.ArtistName, e.TrackName, e); err != nil {
			t.Fatalf("Set() error = %v", err)
		}
	}

	exact := findSimilarCachedSongs(diskCache, "alan walker", "fade")
	if len(exact) != 2 {
		t.Fatalf("expected 2 exact-artist suggestions, got %d", len(exact))
	}
	for _, e := range exact {
		if e.ArtistName != "Alan Walker" {
			t.Errorf("unexpected suggestion %q", e.ArtistName)
		}
	}

	loose := findSimilarCachedSongs(diskCache, "iselin", "faded")
	if len(loose) != 1 || loose[0].ArtistName != "Alan Walker & Iselin" {
		t.Errorf("expected the loose artist match, got %v", loose)
	}

	if got := findSimilarCachedSongs(diskCache, "nobody", "nothing"); len(got) != 0 {
		t.Errorf("expected no suggestions, got %d", len(got))
	}
}

func TestEntryKind(t *testing.T) {
	tests := []struct {
		entry    cache.LyricEntry
		expected string
	}{
		{cache.LyricEntry{SyncedLyrics: "[00:01.00]a", PlainLyrics: "a"}, "synced"},
		{cache.LyricEntry{PlainLyrics: "a"}, "plain"},
		{cache.LyricEntry{Instrumental: true}, "instrumental"},
		{cache.LyricEntry{}, "none"},
	}

	for _, tt := range tests {
		if got := entryKind(&tt.entry); got != tt.expected {
			t.Errorf("entryKind() = %q, want %q", got, tt.expected)
		}
	}
}
