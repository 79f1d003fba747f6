package pipeline

import (
	"fmt"
	"os"
	"path/filepath"
)

// Workspace is the per-run scratch tree:
//
//	<root>/source.mp3      canonical copy of the input
//	<root>/silence.mp3     fallback clip, rendered on first use
//	<root>/segments/       extracted clips
//	<root>/tts/            synthesized clips, raw and canonical
//	<root>/merged/         per-line composites
type Workspace struct {
	Root     string
	Segments string
	TTS      string
	Merged   string
	ext      string
}

// NewWorkspace creates <tempRoot>/<runID> and its subdirectories. ext is the
// canonical clip extension, including the dot.
func NewWorkspace(tempRoot, runID, ext string) (*Workspace, error) {
	root := filepath.Join(tempRoot, runID)
	ws := &Workspace{
		Root:     root,
		Segments: filepath.Join(root, "segments"),
		TTS:      filepath.Join(root, "tts"),
		Merged:   filepath.Join(root, "merged"),
		ext:      ext,
	}
	for _, dir := range []string{ws.Segments, ws.TTS, ws.Merged} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating workspace: %w", err)
		}
	}
	return ws, nil
}

func (w *Workspace) SourcePath() string  { return filepath.Join(w.Root, "source"+w.ext) }
func (w *Workspace) SilencePath() string { return filepath.Join(w.Root, "silence"+w.ext) }

func (w *Workspace) SegmentPath(i int) string {
	return filepath.Join(w.Segments, fmt.Sprintf("segment_%04d%s", i, w.ext))
}

// RawSpeechPath is where provider audio is stored before transcoding.
func (w *Workspace) RawSpeechPath(i int, ext string) string {
	return filepath.Join(w.TTS, fmt.Sprintf("tts_%04d_raw%s", i, ext))
}

func (w *Workspace) SpeechPath(i int) string {
	return filepath.Join(w.TTS, fmt.Sprintf("tts_%04d%s", i, w.ext))
}

// LevelledSpeechPath holds the speech clip after volume matching.
func (w *Workspace) LevelledSpeechPath(i int) string {
	return filepath.Join(w.TTS, fmt.Sprintf("tts_%04d_level%s", i, w.ext))
}

func (w *Workspace) CompositePath(i int) string {
	return filepath.Join(w.Merged, fmt.Sprintf("merged_%04d%s", i, w.ext))
}

// Remove deletes the whole tree.
func (w *Workspace) Remove() error {
	return os.RemoveAll(w.Root)
}
