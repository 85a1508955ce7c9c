package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"karolbroda.com/lyrifloat/internal/artwork"
	"karolbroda.com/lyrifloat/internal/lyrics"
	"karolbroda.com/lyrifloat/internal/timing"
)

const (
	defaultWidth  = 80
	defaultHeight = 24
	sideMargin    = 2
)

var spinnerFrames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

func (m Model) View() string {
	if m.quitting {
		return ""
	}

	width := m.width
	height := m.height
	if width == 0 {
		width = defaultWidth
	}
	if height == 0 {
		height = defaultHeight
	}

	palette := m.palette
	if palette == nil {
		palette = artwork.DefaultPalette()
	}

	var lines []string
	if m.track == nil {
		lines = m.renderWaiting(palette, width, height)
	} else {
		if !m.hideHeader {
			lines = append(lines, m.renderHeader(palette, width)...)
		}
		lines = append(lines, m.renderLyrics(palette, width, height-len(lines))...)
	}

	for len(lines) < height {
		lines = append(lines, "")
	}
	if len(lines) > height {
		lines = lines[:height]
	}

	return strings.Join(lines, "\n")
}

func (m Model) renderWaiting(palette *artwork.Palette, width int, height int) []string {
	lines := make([]string, max(0, height/2-1))

	style := lipgloss.NewStyle().Foreground(lipgloss.Color(palette.Dim)).Italic(true)
	lines = append(lines, center(style.Render("awaiting music"), width))

	pulse := []string{"·", "•", "●", "•"}
	pulseStyle := lipgloss.NewStyle().Foreground(lipgloss.Color(palette.Secondary))
	lines = append(lines, center(pulseStyle.Render(pulse[(m.tickCount/4)%len(pulse)]), width))

	return lines
}

func (m Model) renderHeader(palette *artwork.Palette, width int) []string {
	textWidth := width - sideMargin*2

	artLines := m.renderArt(width)
	if len(artLines) > 0 {
		textWidth -= artColumns + 2
	}

	titleStyle := lipgloss.NewStyle().Foreground(lipgloss.Color(palette.Primary)).Bold(true)
	artistStyle := lipgloss.NewStyle().Foreground(lipgloss.Color(palette.Secondary))
	dimStyle := lipgloss.NewStyle().Foreground(lipgloss.Color(palette.Dim))

	info := []string{
		titleStyle.Render(truncate(m.track.Title, textWidth)),
		artistStyle.Render(truncate(m.track.Artist, textWidth)),
	}
	if m.track.Album != "" {
		info = append(info, dimStyle.Render(truncate(m.track.Album, textWidth)))
	}
	info = append(info, m.renderProgress(palette, textWidth), m.renderStatus(palette))

	block := lipgloss.JoinVertical(lipgloss.Left, info...)
	if len(artLines) > 0 {
		block = lipgloss.JoinHorizontal(lipgloss.Top, strings.Join(artLines, "\n"), "  ", block)
	}

	margin := strings.Repeat(" ", sideMargin)
	lines := []string{""}
	for _, line := range strings.Split(block, "\n") {
		lines = append(lines, margin+line)
	}
	return append(lines, "")
}

const (
	artColumns = 10
	artRows    = 5
)

func (m Model) renderArt(width int) []string {
	if m.image == nil || width < 60 || m.height < 20 {
		return nil
	}
	return artwork.RenderHalfBlockArt(m.image, artColumns, artRows)
}

func (m Model) renderProgress(palette *artwork.Palette, width int) string {
	dimStyle := lipgloss.NewStyle().Foreground(lipgloss.Color(palette.Dim))

	elapsed := formatTime(m.positionMs)
	total := formatTime(m.track.DurationMs)
	barWidth := width - runewidth.StringWidth(elapsed) - runewidth.StringWidth(total) - 2
	if barWidth < 4 || m.track.DurationMs <= 0 || len(palette.Gradient) == 0 {
		return dimStyle.Render(elapsed)
	}

	filled := int(int64(barWidth) * m.positionMs / m.track.DurationMs)
	if filled > barWidth {
		filled = barWidth
	}
	if filled < 0 {
		filled = 0
	}

	var bar strings.Builder
	for i := 0; i < barWidth; i++ {
		if i < filled {
			color := palette.Gradient[i*len(palette.Gradient)/barWidth]
			bar.WriteString(lipgloss.NewStyle().Foreground(lipgloss.Color(color)).Render("━"))
		} else {
			bar.WriteString(dimStyle.Render("─"))
		}
	}

	return dimStyle.Render(elapsed) + " " + bar.String() + " " + dimStyle.Render(total)
}

func (m Model) renderStatus(palette *artwork.Palette) string {
	var parts []string

	switch {
	case m.loadingState.IsLoadingLyrics():
		parts = append(parts, "loading")
	case m.session.Pending():
		parts = append(parts, "waiting for track length")
	case m.notFound:
		parts = append(parts, "no lyrics")
	default:
		if l := m.session.Lyrics(); l != nil {
			parts = append(parts, kindLabel(l.Kind()))
		}
	}

	if m.fromCache {
		parts = append(parts, "cached")
	}
	if offset := m.session.Offset(); offset != 0 {
		parts = append(parts, fmt.Sprintf("offset %+dms", offset))
	}
	if !m.playing {
		parts = append(parts, "paused")
	}

	style := lipgloss.NewStyle().Foreground(lipgloss.Color(palette.Accent))
	return style.Render(strings.Join(parts, " · "))
}

func kindLabel(kind lyrics.Kind) string {
	switch kind {
	case lyrics.KindPlain:
		return "estimated timing"
	case lyrics.KindSynced:
		return "synced"
	default:
		return kind.String()
	}
}

func (m Model) renderLyrics(palette *artwork.Palette, width int, height int) []string {
	if height <= 0 {
		return nil
	}

	table := m.session.Table()
	if table.IsEmpty() || m.current == timing.NoLine {
		return m.renderPlaceholder(palette, width, height)
	}

	textWidth := width - sideMargin*2
	focusStyle := lipgloss.NewStyle().Bold(true)
	contextStyle := lipgloss.NewStyle().Foreground(lipgloss.Color(palette.Dim))

	// one row per line plus a blank row between them
	maxContext := (height - 1) / 4
	contextLines := m.contextLines
	if contextLines > maxContext {
		contextLines = maxContext
	}

	var rows []string
	for offset := -contextLines; offset <= contextLines; offset++ {
		line, ok := table.Line(m.current + offset)
		if !ok {
			rows = append(rows, "", "")
			continue
		}

		text := truncate(line.Text, textWidth)
		if offset == 0 {
			rows = append(rows, center(gradientText(text, palette.Gradient, focusStyle), width), "")
		} else {
			rows = append(rows, center(contextStyle.Render(text), width), "")
		}
	}

	top := (height - len(rows)) / 2
	if top < 0 {
		top = 0
	}
	return append(make([]string, top), rows...)
}

func (m Model) renderPlaceholder(palette *artwork.Palette, width int, height int) []string {
	lines := make([]string, max(0, height/2-1))

	dimStyle := lipgloss.NewStyle().Foreground(lipgloss.Color(palette.Dim))

	var text string
	switch {
	case m.err != nil:
		errStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#FF6B6B"))
		text = errStyle.Render(truncate(m.err.Error(), width-sideMargin*2))
	case m.loadingState.IsLoadingLyrics():
		spinner := lipgloss.NewStyle().Foreground(lipgloss.Color(palette.Secondary)).
			Render(spinnerFrames[m.tickCount%len(spinnerFrames)])
		text = spinner + dimStyle.Render(" loading")
	case m.notFound:
		text = dimStyle.Render("no lyrics found · r to retry")
	case m.session.Pending():
		text = dimStyle.Render("waiting for track length")
	default:
		if l := m.session.Lyrics(); l != nil && l.Kind() == lyrics.KindInstrumental {
			text = dimStyle.Render("♪ instrumental ♪")
		} else {
			text = dimStyle.Render("♪")
		}
	}

	return append(lines, center(text, width))
}

// gradientText colors text rune by rune along the gradient.
func gradientText(text string, gradient []string, base lipgloss.Style) string {
	if len(gradient) == 0 {
		return base.Render(text)
	}

	runes := []rune(text)
	var b strings.Builder
	for i, r := range runes {
		color := gradient[i*len(gradient)/len(runes)]
		b.WriteString(base.Foreground(lipgloss.Color(color)).Render(string(r)))
	}
	return b.String()
}

func truncate(text string, width int) string {
	if width <= 0 {
		return ""
	}
	return runewidth.Truncate(text, width, "…")
}

func center(text string, width int) string {
	return lipgloss.PlaceHorizontal(width, lipgloss.Center, text)
}

func formatTime(ms int64) string {
	if ms < 0 {
		ms = 0
	}
	secs := ms / 1000
	return fmt.Sprintf("%d:%02d", secs/60, secs%60)
}
