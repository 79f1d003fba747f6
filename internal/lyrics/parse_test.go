package lyrics

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"
)

const sample = `[ti:Kalinka]
[ar:Folk]
[00:12.30]Третья строка
[00:00.00]Hello
[00:05.00]World

not a cue
[00:07.5]too short a fraction
[00:09.00]
`

func TestParseSortsAndDerivesEnds(t *testing.T) {
	tr := Parse(sample)

	if tr.Title != "Kalinka" || tr.Artist != "Folk" {
		t.Errorf("metadata = %q / %q", tr.Title, tr.Artist)
	}

	want := []TimedLine{
		{Start: 0, End: 5 * time.Second, Text: "Hello"},
		{Start: 5 * time.Second, End: 12300 * time.Millisecond, Text: "World"},
		{Start: 12300 * time.Millisecond, End: 17300 * time.Millisecond, Text: "Третья строка"},
	}
	if !reflect.DeepEqual(tr.Lines, want) {
		t.Fatalf("lines mismatch\n got: %+v\nwant: %+v", tr.Lines, want)
	}
	if err := Validate(tr.Lines); err != nil {
		t.Errorf("Validate: %v", err)
	}
}

func TestParseFractionNormalization(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  time.Duration
	}{
		{"centiseconds", "[00:01.50]x", 1500 * time.Millisecond},
		{"milliseconds", "[00:01.500]x", 1500 * time.Millisecond},
		{"colon separator", "[00:01:500]x", 1500 * time.Millisecond},
		{"single digit minutes", "[2:03.04]x", 2*time.Minute + 3*time.Second + 40*time.Millisecond},
		{"two digit minutes", "[12:00.001]x", 12*time.Minute + time.Millisecond},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lines := Parse(tt.input).Lines
			if len(lines) != 1 {
				t.Fatalf("got %d lines, want 1", len(lines))
			}
			if lines[0].Start != tt.want {
				t.Errorf("start = %s, want %s", lines[0].Start, tt.want)
			}
			if lines[0].End != tt.want+TailDuration {
				t.Errorf("end = %s, want %s", lines[0].End, tt.want+TailDuration)
			}
		})
	}
}

func TestParseSkipsMalformed(t *testing.T) {
	tests := []string{
		"[00:01.5]one digit fraction",
		"[00:1.50]one digit seconds",
		"[000:01.50]three digit minutes",
		"00:01.50 no brackets",
		"[00:01.5000]four digit fraction",
	}
	for _, in := range tests {
		if lines := Parse(in).Lines; len(lines) != 0 {
			t.Errorf("Parse(%q) = %+v, want empty", in, lines)
		}
	}
}

func TestParseOnlyEmptyCues(t *testing.T) {
	tr := Parse("[00:01.00]\n[00:02.00]   \n[00:03.000]\t\n")
	if len(tr.Lines) != 0 {
		t.Fatalf("got %d lines, want 0", len(tr.Lines))
	}
	if tr.Lines == nil {
		t.Error("Lines should be an empty slice, not nil")
	}
}

func TestParseDuplicateTimestampBecomesTranslation(t *testing.T) {
	tr := Parse("[00:01.00]Привет\n[00:01.00]Hello\n[00:03.00]Мир\n")
	if len(tr.Lines) != 2 {
		t.Fatalf("got %d lines, want 2", len(tr.Lines))
	}
	if tr.Lines[0].Text != "Привет" || tr.Lines[0].Translation != "Hello" {
		t.Errorf("line 0 = %+v", tr.Lines[0])
	}
	if tr.Lines[0].End != 3*time.Second {
		t.Errorf("line 0 end = %s", tr.Lines[0].End)
	}
}

func TestParseIsIdempotent(t *testing.T) {
	a := Parse(sample)
	b := Parse(sample)
	if !reflect.DeepEqual(a, b) {
		t.Error("parsing the same content twice produced different transcripts")
	}
}

func TestParseCRLF(t *testing.T) {
	tr := Parse("[00:00.00]a\r\n[00:01.00]b\r\n")
	if len(tr.Lines) != 2 || tr.Lines[1].Text != "b" {
		t.Fatalf("lines = %+v", tr.Lines)
	}
}

func TestParseFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "song.lrc")
	if err := os.WriteFile(path, []byte(sample), 0o644); err != nil {
		t.Fatal(err)
	}
	tr, err := ParseFile(path)
	if err != nil {
		t.Fatalf("ParseFile: %v", err)
	}
	if len(tr.Lines) != 3 {
		t.Errorf("got %d lines, want 3", len(tr.Lines))
	}

	_, err = ParseFile(filepath.Join(t.TempDir(), "missing.lrc"))
	if !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("missing file error = %v, want fs.ErrNotExist", err)
	}
}

func TestTruncate(t *testing.T) {
	lines := Parse(sample).Lines

	got := Truncate(lines, 2)
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2", len(got))
	}
	if !reflect.DeepEqual(got, lines[:2]) {
		t.Error("truncation changed the kept prefix")
	}
	if got[1].End != lines[2].Start {
		t.Errorf("end of last kept line = %s, want %s", got[1].End, lines[2].Start)
	}
	if err := Validate(got); err != nil {
		t.Errorf("Validate(truncated): %v", err)
	}

	for _, n := range []int{0, -1, 3, 10} {
		if len(Truncate(lines, n)) != 3 {
			t.Errorf("Truncate(%d) should keep all lines", n)
		}
	}
}

func TestValidateRejects(t *testing.T) {
	tests := []struct {
		name  string
		lines []TimedLine
	}{
		{"gap", []TimedLine{{Start: 0, End: time.Second, Text: "a"}, {Start: 2 * time.Second, End: 3 * time.Second, Text: "b"}}},
		{"unsorted", []TimedLine{{Start: 2 * time.Second, End: time.Second, Text: "a"}, {Start: time.Second, End: 2 * time.Second, Text: "b"}}},
		{"empty text", []TimedLine{{Start: 0, End: time.Second}}},
		{"zero length", []TimedLine{{Start: time.Second, End: time.Second, Text: "a"}}},
		{"negative start", []TimedLine{{Start: -time.Second, End: time.Second, Text: "a"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := Validate(tt.lines); err == nil {
				t.Error("expected an error")
			}
		})
	}
}

func TestFormatTimestamp(t *testing.T) {
	tests := map[time.Duration]string{
		0:                                   "00:00.00",
		1500 * time.Millisecond:             "00:01.50",
		61*time.Second + 239*time.Millisecond: "01:01.23",
		75 * time.Minute:                    "75:00.00",
		100 * time.Minute:                   "99:59.99",
		3 * time.Hour:                       "99:59.99",
	}
	for in, want := range tests {
		if got := FormatTimestamp(in); got != want {
			t.Errorf("FormatTimestamp(%s) = %q, want %q", in, got, want)
		}
	}
}

func TestParsePlaceholderAndExtraCues(t *testing.T) {
	tr := Parse("[00:01.00]Привет\n[00:01.00]//\n[00:03.00]Мир\n[00:03.00]World\n[00:03.00]世界\n[00:05.00]//\n")
	want := []TimedLine{
		{Start: time.Second, End: 3 * time.Second, Text: "Привет"},
		{Start: 3 * time.Second, End: 8 * time.Second, Text: "Мир", Translation: "World"},
	}
	if !reflect.DeepEqual(tr.Lines, want) {
		t.Errorf("lines mismatch\n got: %+v\nwant: %+v", tr.Lines, want)
	}
}

func TestFormatTimestampParsesBack(t *testing.T) {
	for _, d := range []time.Duration{0, 59*time.Minute + 1500*time.Millisecond, 99 * time.Minute, 150 * time.Minute} {
		lines := Parse("[" + FormatTimestamp(d) + "]x").Lines
		if len(lines) != 1 {
			t.Fatalf("FormatTimestamp(%s) = %q does not parse", d, FormatTimestamp(d))
		}
		want := d
		if want > MaxTimestamp {
			want = MaxTimestamp
		}
		if lines[0].Start != want {
			t.Errorf("round trip of %s = %s, want %s", d, lines[0].Start, want)
		}
	}
}
