package main

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"karolbroda.com/lyrifloat/internal/cache"
)

const maxSuggestions = 5

var (
	cacheSortBy  string
	cacheConfirm bool
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "manage the lyrics cache",
	Long:  `manage cached lyrics data, including viewing statistics, listing entries, offsets and clearing the cache.`,
}

var cacheStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "show cache statistics",
	Long:  `display cache statistics including number of entries, total size, and cache location.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		diskCache := cache.GetGlobalCache()

		count, sizeBytes, err := diskCache.Stats()
		if err != nil {
			return fmt.Errorf("failed to get cache stats: %w", err)
		}

		location := diskCache.Path()
		if location == "" {
			location = "(memory only)"
		}

		fmt.Println("cache statistics:")
		fmt.Printf("  location: %s\n", location)
		fmt.Printf("  entries:  %d\n", count)
		fmt.Printf("  size:     %s\n", formatBytes(sizeBytes))

		return nil
	},
}

var cacheListCmd = &cobra.Command{
	Use:   "list",
	Short: "list all cached songs",
	Long:  `list all songs in the cache with their lyrics kind, offsets and cache date.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		entries, err := cache.GetGlobalCache().ListAll()
		if err != nil {
			return fmt.Errorf("failed to list cache: %w", err)
		}

		if len(entries) == 0 {
			fmt.Println("cache is empty")
			return nil
		}

		sortCacheEntries(entries, cacheSortBy)

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "ARTIST\tTITLE\tLYRICS\tOFFSET\tCACHED")

		for _, entry := range entries {
			offset := "-"
			if entry.OffsetMs != 0 {
				offset = fmt.Sprintf("%+dms", entry.OffsetMs)
			}
			cacheDate := time.Unix(entry.CreatedAt, 0).Format("2006-01-02")
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", entry.ArtistName, entry.TrackName, entryKind(entry), offset, cacheDate)
		}

		w.Flush()

		fmt.Printf("\ntotal: %d songs\n", len(entries))
		return nil
	},
}

var cacheShowCmd = &cobra.Command{
	Use:   "show <artist> <title>",
	Short: "show cached entry for specific song",
	Long:  `display detailed information about a cached song including its offset.`,
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		artist, title := args[0], args[1]

		diskCache := cache.GetGlobalCache()
		entry, err := diskCache.Get(artist, title)
		if err != nil {
			if printSuggestions(diskCache, artist, title) {
				return errSilent
			}
			return fmt.Errorf("song not found in cache: %w", err)
		}

		fmt.Printf("artist:       %s\n", entry.ArtistName)
		fmt.Printf("title:        %s\n", entry.TrackName)
		fmt.Printf("album:        %s\n", entry.AlbumName)
		fmt.Printf("duration:     %.1fs\n", entry.Duration)
		fmt.Printf("offset:       %+dms\n", entry.OffsetMs)
		fmt.Printf("lyrics:       %s\n", entryKind(entry))
		fmt.Printf("cached:       %s\n", time.Unix(entry.CreatedAt, 0).Format("2006-01-02 15:04:05"))
		fmt.Printf("expires:      %s\n", time.Unix(entry.ExpiresAt, 0).Format("2006-01-02 15:04:05"))

		return nil
	},
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "clear all cached entries",
	Long:  `remove all cached lyrics data. use --confirm to skip confirmation prompt.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if !cacheConfirm {
			fmt.Print("are you sure you want to clear all cache? (y/n): ")
			var response string
			fmt.Scanln(&response)
			response = strings.ToLower(response)
			if response != "y" && response != "yes" {
				fmt.Println("cancelled")
				return nil
			}
		}

		if err := cache.GetGlobalCache().Clear(); err != nil {
			return fmt.Errorf("failed to clear cache: %w", err)
		}

		fmt.Println("cache cleared successfully")
		return nil
	},
}

var cachePruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "remove expired cache entries",
	Long:  `remove expired and unreadable cache entries to free up disk space.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		pruned, err := cache.GetGlobalCache().Prune()
		if err != nil {
			return fmt.Errorf("failed to prune cache: %w", err)
		}

		fmt.Printf("removed %d expired entries\n", pruned)
		return nil
	},
}

var cacheDeleteCmd = &cobra.Command{
	Use:   "delete <artist> <title>",
	Short: "remove specific song from cache",
	Long:  `remove a specific song from the cache by artist and title.`,
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		artist, title := args[0], args[1]
		diskCache := cache.GetGlobalCache()

		if _, err := diskCache.Get(artist, title); err != nil {
			if printSuggestions(diskCache, artist, title) {
				return errSilent
			}
			return fmt.Errorf("song not found in cache")
		}

		if err := diskCache.Delete(artist, title); err != nil {
			return fmt.Errorf("failed to delete from cache: %w", err)
		}

		fmt.Printf("deleted '%s - %s' from cache\n", artist, title)
		return nil
	},
}

var cacheOffsetCmd = &cobra.Command{
	Use:   "offset <artist> <title> [ms]",
	Short: "show or set the stored offset of a song",
	Long: `show the presentation offset stored with a cached song, or set it. positive
values delay the lyrics, negative values show them earlier.`,
	Args: cobra.RangeArgs(2, 3),
	RunE: func(cmd *cobra.Command, args []string) error {
		artist, title := args[0], args[1]
		diskCache := cache.GetGlobalCache()

		if len(args) == 2 {
			entry, err := diskCache.Get(artist, title)
			if err != nil {
				return fmt.Errorf("song not found in cache: %w", err)
			}
			fmt.Printf("%+dms\n", entry.OffsetMs)
			return nil
		}

		offsetMs, err := strconv.ParseInt(args[2], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid offset %q: %w", args[2], err)
		}
		if err := diskCache.SetOffset(artist, title, offsetMs); err != nil {
			return fmt.Errorf("failed to store offset (fetch the lyrics first): %w", err)
		}

		fmt.Printf("offset for '%s - %s' set to %+dms\n", artist, title, offsetMs)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(cacheCmd)

	cacheCmd.AddCommand(cacheStatsCmd)
	cacheCmd.AddCommand(cacheListCmd)
	cacheCmd.AddCommand(cacheShowCmd)
	cacheCmd.AddCommand(cacheClearCmd)
	cacheCmd.AddCommand(cachePruneCmd)
	cacheCmd.AddCommand(cacheDeleteCmd)
	cacheCmd.AddCommand(cacheOffsetCmd)

	cacheListCmd.Flags().StringVar(&cacheSortBy, "sort", "date", "sort by: date, artist, title")
	cacheClearCmd.Flags().BoolVar(&cacheConfirm, "confirm", false, "skip confirmation prompt")
}

// errSilent fails the command after it already explained itself.
var errSilent = errors.New("")

func entryKind(entry *cache.LyricEntry) string {
	switch {
	case entry.SyncedLyrics != "":
		return "synced"
	case entry.PlainLyrics != "":
		return "plain"
	case entry.Instrumental:
		return "instrumental"
	default:
		return "none"
	}
}

func formatBytes(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(bytes)/float64(div), "KMGTPE"[exp])
}

func sortCacheEntries(entries []*cache.LyricEntry, sortBy string) {
	switch sortBy {
	case "artist":
		sort.Slice(entries, func(i, j int) bool {
			return strings.ToLower(entries[i].ArtistName) < strings.ToLower(entries[j].ArtistName)
		})
	case "title":
		sort.Slice(entries, func(i, j int) bool {
			return strings.ToLower(entries[i].TrackName) < strings.ToLower(entries[j].TrackName)
		})
	case "date":
		sort.Slice(entries, func(i, j int) bool {
			return entries[i].CreatedAt > entries[j].CreatedAt
		})
	}
}

// printSuggestions lists cached songs resembling artist and title on stderr
// and reports whether there were any.
func printSuggestions(diskCache *cache.DiskCache, artist string, title string) bool {
	suggestions := findSimilarCachedSongs(diskCache, artist, title)
	if len(suggestions) == 0 {
		return false
	}

	fmt.Fprintf(os.Stderr, "song not found\n\n")
	fmt.Fprintf(os.Stderr, "did you mean one of these?\n")
	for _, s := range suggestions {
		fmt.Fprintf(os.Stderr, "  %s - %s\n", s.ArtistName, s.TrackName)
	}
	return true
}

// findSimilarCachedSongs prefers an exact artist match with a related title,
// then loosens to related artist and title.
func findSimilarCachedSongs(diskCache *cache.DiskCache, artist string, title string) []*cache.LyricEntry {
	allEntries, err := diskCache.ListAll()
	if err != nil || len(allEntries) == 0 {
		return nil
	}

	artistLower := strings.ToLower(artist)
	titleLower := strings.ToLower(title)
	related := func(a, b string) bool {
		return strings.Contains(a, b) || strings.Contains(b, a)
	}

	var exact, loose []*cache.LyricEntry
	for _, entry := range allEntries {
		entryArtist := strings.ToLower(entry.ArtistName)
		entryTitle := strings.ToLower(entry.TrackName)
		if !related(entryTitle, titleLower) {
			continue
		}
		if entryArtist == artistLower {
			exact = append(exact, entry)
		} else if related(entryArtist, artistLower) {
			loose = append(loose, entry)
		}
	}

	matches := exact
	if len(matches) == 0 {
		matches = loose
	}
	if len(matches) > maxSuggestions {
		matches = matches[:maxSuggestions]
	}
	return matches
}
