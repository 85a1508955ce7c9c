package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"karolbroda.com/lyrifloat/internal/cache"
	"karolbroda.com/lyrifloat/internal/lyrics"
	"karolbroda.com/lyrifloat/internal/timing"
)

var (
	lookupAlbum    string
	lookupDuration int64
	timingFile     string
	timingLRC      bool
	timingDuration int64
)

var lyricsCmd = &cobra.Command{
	Use:   "lyrics",
	Short: "lyrics search and timing tools",
	Long:  `search lrclib, pre-fetch lyrics into the cache, preview them and inspect their line timing.`,
}

var lyricsSearchCmd = &cobra.Command{
	Use:   "search <artist> <title>",
	Short: "search for lyrics on lrclib",
	Long:  `search for lyrics on lrclib.net and display availability information.`,
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		artist, title := args[0], args[1]
		fmt.Printf("searching for: %s - %s\n\n", artist, title)

		resp, err := newLyricsClient().Refresh(cmd.Context(), trackParams(artist, title))
		if err != nil {
			return fmt.Errorf("lyrics not found: %w", err)
		}

		fmt.Printf("found lyrics:\n")
		fmt.Printf("  track:        %s\n", resp.TrackName)
		fmt.Printf("  artist:       %s\n", resp.ArtistName)
		if resp.AlbumName != "" {
			fmt.Printf("  album:        %s\n", resp.AlbumName)
		}
		if resp.Duration > 0 {
			fmt.Printf("  duration:     %.0fs\n", resp.Duration)
		}
		fmt.Printf("  kind:         %s\n", resp.Lyrics().Kind())

		if table := timing.ParseLRC(resp.SyncedLyrics); table != nil {
			fmt.Printf("  synced lines: %d\n", table.Len())
		} else {
			fmt.Printf("  synced lines: none\n")
		}
		if plain := lyrics.CleanPlain(resp.PlainLyrics); len(plain) > 0 {
			fmt.Printf("  plain lines:  %d\n", len(plain))
		} else {
			fmt.Printf("  plain lines:  none\n")
		}

		fmt.Println("\nthe result was saved to the cache")
		return nil
	},
}

var lyricsFetchCmd = &cobra.Command{
	Use:   "fetch <artist> <title>",
	Short: "pre-fetch and cache lyrics",
	Long:  `fetch lyrics from lrclib.net and save them to the local cache for instant loading.`,
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		artist, title := args[0], args[1]

		if !cfg.NoCache {
			if cached, err := cache.GetGlobalCache().Get(artist, title); err == nil && cached.HasLyrics() {
				fmt.Printf("'%s - %s' is already cached\n", artist, title)
				if cached.OffsetMs != 0 {
					fmt.Printf("offset: %+dms\n", cached.OffsetMs)
				}
				return nil
			}
		}

		fmt.Printf("fetching: %s - %s\n", artist, title)

		resp, err := newLyricsClient().Refresh(cmd.Context(), trackParams(artist, title))
		if err != nil {
			return fmt.Errorf("failed to fetch lyrics: %w", err)
		}

		fmt.Printf("cached successfully: %s - %s\n", resp.ArtistName, resp.TrackName)
		switch resp.Lyrics().(type) {
		case lyrics.Synced:
			fmt.Println("synced lyrics available")
		case lyrics.Plain:
			fmt.Println("only plain lyrics available (timing will be estimated)")
		case lyrics.Instrumental:
			fmt.Println("track is instrumental")
		}

		return nil
	},
}

var lyricsPreviewCmd = &cobra.Command{
	Use:   "preview <artist> <title>",
	Short: "preview lyrics in terminal",
	Long:  `display lyrics in the terminal with timestamps when they are synced.`,
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		artist, title := args[0], args[1]

		resp, err := newLyricsClient().Fetch(cmd.Context(), trackParams(artist, title))
		if err != nil {
			printSuggestions(cache.GetGlobalCache(), artist, title)
			return fmt.Errorf("lyrics not found: %w", err)
		}
		if resp.FromCache {
			fmt.Println("(from cache)")
		}

		fmt.Printf("\n%s - %s\n", resp.ArtistName, resp.TrackName)
		if resp.AlbumName != "" {
			fmt.Printf("%s\n", resp.AlbumName)
		}
		fmt.Println(strings.Repeat("─", 60))

		switch l := resp.Lyrics().(type) {
		case lyrics.Instrumental:
			fmt.Println("\n[instrumental]")
		case lyrics.Synced:
			fmt.Printf("\nsynced lyrics (%d lines):\n\n", l.Table.Len())
			for _, line := range l.Table.Lines() {
				fmt.Printf("%s %s\n", timing.FormatTag(line.StartMs), line.Text)
			}
		case lyrics.Plain:
			lines := l.Lines()
			fmt.Printf("\nplain lyrics (%d lines, no timestamps):\n\n", len(lines))
			fmt.Println(strings.Join(lines, "\n"))
		}

		if resp.OffsetMs != 0 {
			fmt.Printf("\noffset: %+dms\n", resp.OffsetMs)
		}

		return nil
	},
}

var lyricsTimingCmd = &cobra.Command{
	Use:   "timing [<artist> <title>]",
	Short: "print the line timing table",
	Long: `print the start and end of every line. synced lyrics use their LRC
timestamps; plain lyrics are spread evenly over the track duration (from
lrclib or --duration). with --file, LRC text is read from a local file.`,
	Args: lookupArgs(0),
	RunE: func(cmd *cobra.Command, args []string) error {
		table, _, err := loadTable(cmd.Context(), args)
		if err != nil {
			return err
		}

		if timingLRC {
			fmt.Print(table.LRC())
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "#\tSTART\tEND\tTEXT")
		for i, line := range table.Lines() {
			fmt.Fprintf(w, "%d\t%d\t%d\t%s\n", i, line.StartMs, line.EndMs, line.Text)
		}
		w.Flush()

		fmt.Printf("\n%d lines\n", table.Len())
		return nil
	},
}

var lyricsResolveCmd = &cobra.Command{
	Use:   "resolve [<artist> <title>] <progress-ms>",
	Short: "show the line active at a playback position",
	Long: `resolve a playback position in milliseconds to the active line, applying
the configured offset (or the one stored with the cached lyrics).`,
	Args: lookupArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		progressArg := args[len(args)-1]
		progressMs, err := strconv.ParseInt(progressArg, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid progress %q: %w", progressArg, err)
		}

		table, storedOffset, err := loadTable(cmd.Context(), args[:len(args)-1])
		if err != nil {
			return err
		}

		offset := cfg.OffsetMs
		if !cmd.Flags().Changed("offset") && storedOffset != 0 {
			offset = storedOffset
		}

		idx := table.IndexWithOffset(progressMs, offset)
		if idx == timing.NoLine {
			fmt.Println("no lines")
			return nil
		}

		line, _ := table.Line(idx)
		fmt.Printf("progress: %dms (adjusted %dms, offset %+dms)\n", progressMs, timing.Adjust(progressMs, offset), offset)
		fmt.Printf("line %d/%d [%d-%d): %s\n", idx+1, table.Len(), line.StartMs, line.EndMs, line.Text)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(lyricsCmd)

	lyricsCmd.AddCommand(lyricsSearchCmd)
	lyricsCmd.AddCommand(lyricsFetchCmd)
	lyricsCmd.AddCommand(lyricsPreviewCmd)
	lyricsCmd.AddCommand(lyricsTimingCmd)
	lyricsCmd.AddCommand(lyricsResolveCmd)

	for _, c := range []*cobra.Command{lyricsSearchCmd, lyricsFetchCmd, lyricsPreviewCmd, lyricsTimingCmd, lyricsResolveCmd} {
		c.Flags().StringVar(&lookupAlbum, "album", "", "album name to narrow the lrclib match")
		c.Flags().Int64Var(&lookupDuration, "track-secs", 0, "track length in seconds to narrow the lrclib match")
	}

	for _, c := range []*cobra.Command{lyricsTimingCmd, lyricsResolveCmd} {
		c.Flags().StringVarP(&timingFile, "file", "f", "", "read LRC text from a file instead of lrclib")
		c.Flags().Int64Var(&timingDuration, "duration", 0, "track duration in ms for estimated timing")
	}
	lyricsTimingCmd.Flags().BoolVar(&timingLRC, "lrc", false, "print the table as LRC text")
}

func newLyricsClient() *lyrics.Client {
	return lyrics.NewClient(lyrics.ClientConfig{
		BaseURL:      cfg.LrclibURL,
		Cache:        cache.GetGlobalCache(),
		NoCacheReads: cfg.NoCache,
	})
}

func trackParams(artist, title string) *lyrics.TrackParams {
	return &lyrics.TrackParams{
		Title:        title,
		Artist:       artist,
		Album:        lookupAlbum,
		DurationSecs: lookupDuration,
	}
}

// lookupArgs accepts extra trailing args plus either <artist> <title> or none
// when --file is given.
func lookupArgs(extra int) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if timingFile != "" {
			return cobra.ExactArgs(extra)(cmd, args)
		}
		return cobra.ExactArgs(extra+2)(cmd, args)
	}
}

// loadTable builds the timing table from --file or an lrclib lookup and
// returns it with the offset stored for the track.
func loadTable(ctx context.Context, args []string) (*timing.Table, int64, error) {
	if timingFile != "" {
		raw, err := os.ReadFile(timingFile)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to read lrc file: %w", err)
		}
		l := lyrics.FromText(string(raw), "", false)
		return timeline(l, timingDuration)
	}

	resp, err := newLyricsClient().Fetch(ctx, trackParams(args[0], args[1]))
	if err != nil {
		return nil, 0, fmt.Errorf("lyrics not found: %w", err)
	}

	durationMs := timingDuration
	if durationMs <= 0 {
		durationMs = int64(resp.Duration * 1000)
	}

	table, _, err := timeline(resp.Lyrics(), durationMs)
	return table, resp.OffsetMs, err
}

func timeline(l lyrics.Lyrics, durationMs int64) (*timing.Table, int64, error) {
	if lyrics.NeedsDuration(l) && durationMs <= 0 {
		return nil, 0, errors.New("plain lyrics need a track duration, pass --duration")
	}
	table := lyrics.Timeline(l, durationMs)
	if l.Kind() == lyrics.KindPlain {
		fmt.Fprintf(os.Stderr, "estimated timing over %dms\n", durationMs)
	}
	return table, 0, nil
}
