// Package artwork loads album art and derives the floater's color theme
// from it.
package artwork

import (
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"net/http"
	"net/url"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/EdlinOrg/prominentcolor"
	"github.com/charmbracelet/lipgloss"
	colorful "github.com/lucasb-eyer/go-colorful"
	"github.com/nfnt/resize"
	log "github.com/sirupsen/logrus"
)

const (
	fetchTimeout  = 5 * time.Second
	gradientSteps = 20
	// palette extraction runs on a thumbnail; full size covers are slow in kmeans
	thumbnailSize = 120
)

var ErrNoArtwork = errors.New("no artwork url")

type Palette struct {
	Primary   string
	Secondary string
	Accent    string
	Dim       string
	Gradient  []string
}

func DefaultPalette() *Palette {
	return &Palette{
		Primary:   "#8BA4E8",
		Secondary: "#E8A4C8",
		Accent:    "#B8A8E8",
		Dim:       "#6272A4",
		Gradient:  Gradient("#8BA4E8", "#E8A4C8", gradientSteps),
	}
}

// Fetch loads artwork from an http(s) or file:// url.
func Fetch(ctx context.Context, artworkURL string) (image.Image, error) {
	if artworkURL == "" {
		return nil, ErrNoArtwork
	}

	if strings.HasPrefix(artworkURL, "file://") {
		path := strings.TrimPrefix(artworkURL, "file://")
		if unescaped, err := url.PathUnescape(path); err == nil {
			path = unescaped
		}
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("failed to open artwork file: %w", err)
		}
		defer f.Close()

		img, _, err := image.Decode(f)
		if err != nil {
			return nil, fmt.Errorf("failed to decode artwork image: %w", err)
		}
		return img, nil
	}

	ctx, cancel := context.WithTimeout(ctx, fetchTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, artworkURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch artwork: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("artwork fetch returned status %d", resp.StatusCode)
	}

	img, _, err := image.Decode(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to decode artwork: %w", err)
	}

	return img, nil
}

type candidate struct {
	color      colorful.Color
	brightness float64
	score      float64
}

// ExtractPalette picks three prominent colors from img. Vivid mid-bright
// colors score highest; dark colors are lifted so they stay readable on a
// dark terminal.
func ExtractPalette(img image.Image) *Palette {
	if img == nil {
		return DefaultPalette()
	}

	thumb := resize.Thumbnail(thumbnailSize, thumbnailSize, img, resize.Bilinear)

	items, err := prominentcolor.KmeansWithAll(5, thumb, prominentcolor.ArgumentDefault, prominentcolor.DefaultSize, nil)
	if err != nil || len(items) < 3 {
		if err != nil {
			log.WithError(err).Debug("palette extraction failed")
		}
		return DefaultPalette()
	}

	candidates := make([]candidate, 0, len(items))
	for _, item := range items {
		c := colorful.Color{
			R: float64(item.Color.R) / 255,
			G: float64(item.Color.G) / 255,
			B: float64(item.Color.B) / 255,
		}
		_, s, v := c.Hsv()
		candidates = append(candidates, candidate{
			color:      c,
			brightness: v,
			score:      s * (1 - abs(v-0.6)),
		})
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].score > candidates[j].score
	})

	picked := candidates[:3]
	sort.SliceStable(picked, func(i, j int) bool {
		return picked[i].brightness > picked[j].brightness
	})

	primary := readable(picked[0])
	accent := readable(picked[1])
	secondary := readable(picked[2])

	return &Palette{
		Primary:   primary,
		Secondary: secondary,
		Accent:    accent,
		Dim:       dim(picked[0].color),
		Gradient:  Gradient(primary, secondary, gradientSteps),
	}
}

func readable(c candidate) string {
	h, s, l := c.color.Hsl()
	switch {
	case l < 0.45:
		l = 0.45 + (0.45-l)*0.3
	case l > 0.85:
		l = 0.85
		s *= 0.7
	}
	return colorful.Hsl(h, s, l).Clamped().Hex()
}

func dim(c colorful.Color) string {
	h, s, _ := c.Hsl()
	return colorful.Hsl(h, s*0.35, 0.45).Clamped().Hex()
}

// Gradient blends from start to end in CIE-Lab space. Invalid hex input
// falls back to the default palette colors.
func Gradient(startHex string, endHex string, steps int) []string {
	if steps < 2 {
		steps = 2
	}

	start, err := colorful.Hex(startHex)
	if err != nil {
		start, _ = colorful.Hex("#8BA4E8")
	}
	end, err := colorful.Hex(endHex)
	if err != nil {
		end, _ = colorful.Hex("#E8A4C8")
	}

	out := make([]string, steps)
	for i := range out {
		t := float64(i) / float64(steps-1)
		out[i] = start.BlendLab(end, t).Clamped().Hex()
	}
	return out
}

// RenderHalfBlockArt draws img with upper-half blocks, two pixel rows per
// terminal row.
func RenderHalfBlockArt(img image.Image, width int, height int) []string {
	if img == nil || width < 4 || height < 2 {
		return nil
	}

	resized := resize.Resize(uint(width), uint(height*2), img, resize.Lanczos3)
	bounds := resized.Bounds()

	lines := make([]string, height)
	for y := 0; y < height; y++ {
		var line strings.Builder
		for x := 0; x < bounds.Dx(); x++ {
			top, topOK := colorful.MakeColor(resized.At(bounds.Min.X+x, bounds.Min.Y+y*2))
			bottom, bottomOK := top, topOK
			if y*2+1 < bounds.Dy() {
				bottom, bottomOK = colorful.MakeColor(resized.At(bounds.Min.X+x, bounds.Min.Y+y*2+1))
			}

			// MakeColor fails for fully transparent pixels
			if !topOK && !bottomOK {
				line.WriteString(" ")
				continue
			}
			if !topOK {
				top = bottom
			}
			if !bottomOK {
				bottom = top
			}

			style := lipgloss.NewStyle().
				Foreground(lipgloss.Color(top.Hex())).
				Background(lipgloss.Color(bottom.Hex()))
			line.WriteString(style.Render("▀"))
		}
		lines[y] = line.String()
	}

	return lines
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
