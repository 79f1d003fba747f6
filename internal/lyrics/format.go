package lyrics

import (
	"strings"
)

// Format renders a transcript as LRC. Metadata becomes [ti:], [ar:] and [al:]
// tags; a line's Translation is written as a second cue with the same
// timestamp, which Parse folds back into Translation. Ends are not encoded.
func Format(tr *Transcript) string {
	var sb strings.Builder
	writeTag := func(tag, val string) {
		if val = strings.TrimSpace(val); val != "" {
			sb.WriteString("[" + tag + ":" + val + "]\n")
		}
	}
	writeTag("ti", tr.Title)
	writeTag("ar", tr.Artist)
	writeTag("al", tr.Album)
	if sb.Len() > 0 {
		sb.WriteByte('\n')
	}

	for _, l := range tr.Lines {
		ts := "[" + FormatTimestamp(l.Start) + "]"
		sb.WriteString(ts + oneLine(l.Text) + "\n")
		if l.Translation != "" {
			sb.WriteString(ts + oneLine(l.Translation) + "\n")
		}
	}
	return sb.String()
}

func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
