package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"karolbroda.com/lyrifloat/internal/cache"
	"karolbroda.com/lyrifloat/internal/config"
	"karolbroda.com/lyrifloat/internal/logging"
)

const (
	// commands carrying this annotation own the terminal
	annotationTUI = "tui"
	logFileName   = "lyrifloat.log"
)

var (
	cfg       *config.Config
	logCloser io.Closer
)

var rootCmd = &cobra.Command{
	Use:   "lyrifloat",
	Short: "synchronized lyrics floater for mpris players",
	Long: `lyrifloat follows an mpris music player and shows the current lyric line
in a small terminal floater. synced lyrics come from lrclib.net; plain lyrics
get estimated timing spread over the track length.

when run without a subcommand, it starts the floater.`,
	Version:           "1.0.0",
	Annotations:       map[string]string{annotationTUI: "true"},
	PersistentPreRunE: setup,
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logCloser != nil {
			_ = logCloser.Close()
		}
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return runFloater(cmd, args)
	},
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	config.BindFlags(rootCmd.PersistentFlags())
}

// setup loads the layered config and points logging at a file for the
// floater, stderr for everything else.
func setup(cmd *cobra.Command, args []string) error {
	loaded, err := config.LoadWithFlags(cmd.Flags())
	if err != nil {
		return err
	}
	cfg = loaded

	logPath := cfg.LogFile
	if logPath == "" && cmd.Annotations[annotationTUI] == "true" {
		dir, err := cache.Directory()
		if err != nil {
			logging.Discard()
			return nil
		}
		logPath = filepath.Join(dir, logFileName)
	}

	closer, err := logging.Setup(cfg.LogLevel, logPath)
	if err != nil {
		return err
	}
	logCloser = closer

	if cfg.ConfigFile != "" {
		log.WithField("file", cfg.ConfigFile).Debug("config file loaded")
	}
	return nil
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		if err.Error() != "" {
			fmt.Fprintln(os.Stderr, "error:", err)
		}
		os.Exit(1)
	}
}
