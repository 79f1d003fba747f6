// Package lyrics holds the timed-line model and the LRC transcript parser.
//
// A transcript is a sequence of TimedLine values sorted by start time. Lines
// are contiguous: every line ends where the next one starts, and the last line
// ends TailDuration after its own start.
package lyrics

import (
	"fmt"
	"time"
)

// TailDuration is the margin given to the last cue, which has no following
// cue to bound it.
const TailDuration = 5 * time.Second

// TimedLine is one timed lyric unit.
type TimedLine struct {
	// Start is the offset into the source recording where the text begins.
	Start time.Duration `json:"start"`

	// End is derived from the following cue (or TailDuration for the last one).
	End time.Duration `json:"end"`

	// Text is the trimmed cue text. Never empty.
	Text string `json:"text"`

	// Translation is the text of a second cue sharing the same timestamp
	// (bilingual LRC files repeat the timestamp for the translated line).
	Translation string `json:"translation,omitempty"`
}

// Duration returns the length of the line's interval.
func (l TimedLine) Duration() time.Duration {
	return l.End - l.Start
}

// String returns a human-readable representation for logging.
func (l TimedLine) String() string {
	return fmt.Sprintf("[%s-%s] %s", FormatTimestamp(l.Start), FormatTimestamp(l.End), l.Text)
}

// Transcript is a parsed LRC document.
type Transcript struct {
	Title  string      `json:"title,omitempty"`
	Artist string      `json:"artist,omitempty"`
	Album  string      `json:"album,omitempty"`
	Lines  []TimedLine `json:"lines"`
}

// Truncate returns the first n lines. n <= 0 means no cap. End values are
// left as they were computed over the full sequence.
func Truncate(lines []TimedLine, n int) []TimedLine {
	if n <= 0 || n >= len(lines) {
		return lines
	}
	return lines[:n]
}

// Validate checks the ordering and contiguity invariants of a line sequence.
// A truncated prefix of a parsed transcript is valid.
func Validate(lines []TimedLine) error {
	for i, l := range lines {
		if l.Start < 0 {
			return fmt.Errorf("line %d: negative start %s", i, l.Start)
		}
		if l.Text == "" {
			return fmt.Errorf("line %d: empty text", i)
		}
		if l.End <= l.Start {
			return fmt.Errorf("line %d: end %s not after start %s", i, l.End, l.Start)
		}
		if i+1 < len(lines) {
			next := lines[i+1]
			if next.Start < l.Start {
				return fmt.Errorf("line %d: not sorted (next starts at %s)", i, next.Start)
			}
			if l.End != next.Start {
				return fmt.Errorf("line %d: end %s does not meet next start %s", i, l.End, next.Start)
			}
		}
	}
	return nil
}

// MaxTimestamp is the largest offset an LRC timestamp can carry (two-digit
// minutes).
const MaxTimestamp = 99*time.Minute + 59*time.Second + 990*time.Millisecond

// FormatTimestamp renders d as an LRC timestamp body (MM:SS.cc). Offsets
// beyond MaxTimestamp are clamped to it so the result always parses back.
func FormatTimestamp(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	if d > MaxTimestamp {
		d = MaxTimestamp
	}
	cs := d.Milliseconds() / 10
	return fmt.Sprintf("%02d:%02d.%02d", cs/6000, (cs/100)%60, cs%100)
}
