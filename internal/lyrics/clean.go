package lyrics

import (
	"strings"
	"unicode"
)

// credit and page-chrome phrases that show up in plain lyrics scraped from
// lyrics sites
var metadataPhrases = []string{
	"written by",
	"produced by",
	"music video",
	"official video",
	"lyrics from",
	"copyright",
	"©",
	"all rights reserved",
	"see live",
	"get tickets",
	"more on genius",
	"have the inside scoop",
	"verified by",
	"how to format",
	"transcribed by",
}

var sectionMarkers = []string{
	"[verse", "[chorus", "[bridge", "[hook", "[intro",
	"[outro", "[pre-chorus", "[refrain", "[interlude",
}

// CleanPlain splits plain lyrics into displayable lines: blank lines,
// credits, links and bare numbers are dropped, and runs of section markers
// collapse to the first one.
func CleanPlain(text string) []string {
	if text == "" {
		return nil
	}

	var cleaned []string
	lastWasMarker := false

	for _, raw := range strings.Split(text, "\n") {
		line := strings.TrimSpace(raw)
		if line == "" {
			continue
		}

		lower := strings.ToLower(line)
		if isMetadataLine(lower) || isDigits(line) || hasLink(lower) {
			continue
		}

		marker := isSectionMarker(lower)
		if marker && lastWasMarker {
			continue
		}
		lastWasMarker = marker

		cleaned = append(cleaned, line)
	}

	return cleaned
}

// StripTags removes leading [..] tags from every line and drops lines left
// empty.
func StripTags(text string) string {
	var kept []string
	for _, raw := range strings.Split(text, "\n") {
		line := strings.TrimSpace(raw)
		for strings.HasPrefix(line, "[") {
			end := strings.Index(line, "]")
			if end < 0 {
				break
			}
			line = strings.TrimSpace(line[end+1:])
		}
		if line != "" {
			kept = append(kept, line)
		}
	}
	return strings.Join(kept, "\n")
}

func isMetadataLine(lower string) bool {
	for _, phrase := range metadataPhrases {
		if strings.Contains(lower, phrase) {
			return true
		}
	}
	return false
}

func isSectionMarker(lower string) bool {
	for _, marker := range sectionMarkers {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}

func hasLink(lower string) bool {
	return strings.Contains(lower, "http://") ||
		strings.Contains(lower, "https://") ||
		strings.Contains(lower, ".com")
}

func isDigits(s string) bool {
	for _, r := range s {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return s != ""
}
