package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/godbus/dbus/v5"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"karolbroda.com/lyrifloat/internal/cache"
	"karolbroda.com/lyrifloat/internal/lyrics"
	"karolbroda.com/lyrifloat/internal/player"
	"karolbroda.com/lyrifloat/internal/session"
	"karolbroda.com/lyrifloat/internal/ui"
)

var runCmd = &cobra.Command{
	Use:         "run",
	Short:       "start the lyrics floater",
	Long:        `starts the terminal floater that follows the player and shows the current lyric line.`,
	Annotations: map[string]string{annotationTUI: "true"},
	RunE:        runFloater,
}

func init() {
	rootCmd.AddCommand(runCmd)
}

func runFloater(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM, syscall.SIGHUP)
	defer stop()

	bus, err := dbus.ConnectSessionBus()
	if err != nil {
		return fmt.Errorf("failed to connect to session bus: %w", err)
	}
	defer bus.Close()

	playerService, err := player.NewService(bus, cfg.MprisService)
	if err != nil {
		return fmt.Errorf("failed to create player service: %w", err)
	}
	if err := playerService.Start(); err != nil {
		log.WithError(err).Warn("could not subscribe to player signals, polling only")
	}
	defer playerService.Stop()

	diskCache := cache.GetGlobalCache()
	client := lyrics.NewClient(lyrics.ClientConfig{
		BaseURL:      cfg.LrclibURL,
		Cache:        diskCache,
		NoCacheReads: cfg.NoCache,
	})

	model := ui.NewModel(ui.ModelConfig{
		Player:       playerService,
		Fetcher:      client,
		Cache:        diskCache,
		Session:      session.New(cache.NewTables()),
		OffsetMs:     cfg.OffsetMs,
		PollInterval: cfg.PollInterval,
		ContextLines: cfg.ContextLines,
		HideHeader:   cfg.HideHeader,
	})

	log.WithFields(log.Fields{
		"service": playerService.Name(),
		"lrclib":  cfg.LrclibURL,
	}).Info("starting floater")

	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil && ctx.Err() == nil {
		return fmt.Errorf("error running floater: %w", err)
	}

	return nil
}
