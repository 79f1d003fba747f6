package lyrics

import (
	"fmt"
	"os"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"
)

// emptyPlaceholder marks a cue with no text, typically a missing translation.
const emptyPlaceholder = "//"

var (
	// [MM:SS.ff] or [MM:SS:fff]; the fraction is centiseconds (2 digits)
	// or milliseconds (3 digits).
	cueRe = regexp.MustCompile(`^\[(\d{1,2}):(\d{2})[.:](\d{2,3})\](.*)$`)

	// [ti:Title], [ar:Artist], [al:Album], [by:...] ...
	tagRe = regexp.MustCompile(`^\[([A-Za-z]+):(.+)\]$`)
)

// ParseFile reads and parses an LRC file. The only failure is an unreadable
// file; the returned error wraps the underlying fs error.
func ParseFile(path string) (*Transcript, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading transcript: %w", err)
	}
	return Parse(string(data)), nil
}

// Parse converts LRC content into a sorted, contiguous transcript.
//
// Lines that do not carry a timestamp are ignored, as are cues whose text is
// blank or the "//" empty-translation placeholder. A second cue with an
// identical timestamp becomes the Translation of the first one; only the
// first two texts of a timestamp are kept. Parse is pure: the same content
// always yields the same transcript.
func Parse(content string) *Transcript {
	tr := &Transcript{}

	type rawCue struct {
		start time.Duration
		texts []string
	}
	var cues []rawCue
	byStart := make(map[time.Duration]int)

	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		if m := cueRe.FindStringSubmatch(line); m != nil {
			text := strings.TrimSpace(m[4])
			if text == "" || text == emptyPlaceholder {
				continue
			}
			start := cueStart(m[1], m[2], m[3])
			if idx, ok := byStart[start]; ok {
				cues[idx].texts = append(cues[idx].texts, text)
				continue
			}
			byStart[start] = len(cues)
			cues = append(cues, rawCue{start: start, texts: []string{text}})
			continue
		}

		if m := tagRe.FindStringSubmatch(line); m != nil {
			value := strings.TrimSpace(m[2])
			switch strings.ToLower(m[1]) {
			case "ti", "title":
				tr.Title = value
			case "ar", "artist":
				tr.Artist = value
			case "al", "album":
				tr.Album = value
			}
		}
	}

	sort.SliceStable(cues, func(i, j int) bool { return cues[i].start < cues[j].start })

	tr.Lines = make([]TimedLine, 0, len(cues))
	for i, c := range cues {
		l := TimedLine{Start: c.start, Text: c.texts[0]}
		if len(c.texts) > 1 {
			l.Translation = c.texts[1]
		}
		if i+1 < len(cues) {
			l.End = cues[i+1].start
		} else {
			l.End = c.start + TailDuration
		}
		tr.Lines = append(tr.Lines, l)
	}
	return tr
}

// cueStart converts the captured timestamp groups. The regexp guarantees the
// groups are digits, so Atoi cannot fail.
func cueStart(minStr, secStr, fracStr string) time.Duration {
	minutes, _ := strconv.Atoi(minStr)
	seconds, _ := strconv.Atoi(secStr)
	ms, _ := strconv.Atoi(fracStr)
	if len(fracStr) == 2 {
		ms *= 10
	}
	return time.Duration(minutes)*time.Minute +
		time.Duration(seconds)*time.Second +
		time.Duration(ms)*time.Millisecond
}
