package job

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/nadzzz/lrcdrill/internal/pipeline"
	"github.com/nadzzz/lrcdrill/internal/tts"
)

// copyToolkit satisfies audio.Toolkit by copying bytes around.
type copyToolkit struct{}

func (copyToolkit) Check(context.Context) error { return nil }

func (copyToolkit) Extract(_ context.Context, _ string, start, end time.Duration, dst string) error {
	return os.WriteFile(dst, []byte(start.String()+"-"+end.String()), 0o644)
}

func (copyToolkit) Concat(_ context.Context, clips []string, dst string) error {
	var sb strings.Builder
	for _, c := range clips {
		data, err := os.ReadFile(c)
		if err != nil {
			return err
		}
		sb.Write(data)
		sb.WriteByte(';')
	}
	return os.WriteFile(dst, []byte(sb.String()), 0o644)
}

func (copyToolkit) Silence(_ context.Context, _ time.Duration, dst string) error {
	return os.WriteFile(dst, []byte("silence"), 0o644)
}

func (copyToolkit) Transcode(_ context.Context, src, dst string) error {
	data, err := os.ReadFile(src)
	if err != nil {
		return err
	}
	return os.WriteFile(dst, data, 0o644)
}

func (copyToolkit) Duration(context.Context, string) (time.Duration, error) {
	return 2 * time.Second, nil
}

func (copyToolkit) MatchVolume(_ context.Context, _, src, dst string) error {
	return copyToolkit{}.Transcode(context.Background(), src, dst)
}

type echoSynth struct{}

func (echoSynth) Name() string { return "echo" }
func (echoSynth) Synthesize(_ context.Context, text string, opts tts.SynthesizeOpts) (*tts.SynthesizeResult, error) {
	return &tts.SynthesizeResult{Audio: []byte(opts.Language + ":" + text), Extension: ".mp3"}, nil
}
func (echoSynth) Close() error { return nil }

type fakePublisher struct {
	keys []string
	err  error
}

func (p *fakePublisher) Publish(_ context.Context, key, path, _ string) (string, error) {
	if p.err != nil {
		return "", p.err
	}
	if _, err := os.Stat(path); err != nil {
		return "", err
	}
	p.keys = append(p.keys, key)
	return "https://cdn.example.com/" + key, nil
}

func newRequest(t *testing.T, svc *Service, lrc string) *Request {
	t.Helper()
	id := uuid.NewString()
	dir, err := svc.UploadDir(id)
	if err != nil {
		t.Fatal(err)
	}
	req := &Request{ID: id, AudioPath: filepath.Join(dir, "song.mp3"), LRCPath: filepath.Join(dir, "song.lrc")}
	if err := os.WriteFile(req.AudioPath, []byte("SRC"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(req.LRCPath, []byte(lrc), 0o644); err != nil {
		t.Fatal(err)
	}
	return req
}

func newService(t *testing.T, pub Publisher) *Service {
	t.Helper()
	dir := t.TempDir()
	defaults := pipeline.Options{Language: "ru-RU", Repeat: 1, Workers: 2, TempRoot: filepath.Join(dir, "temp")}
	return NewService(copyToolkit{}, echoSynth{}, defaults, filepath.Join(dir, "jobs"), pub)
}

func TestHandle(t *testing.T) {
	pub := &fakePublisher{}
	svc := newService(t, pub)
	req := newRequest(t, svc, "[ti:Song]\n[00:00.00]Hello\n[00:02.00]World\n")
	repeat := 2
	req.Repeat = &repeat
	req.Language = "ja-JP"

	res, err := svc.Handle(context.Background(), req)
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if res.Title != "Song" || res.Lines != 2 || res.Language != "ja-JP" || res.Repeat != 2 {
		t.Errorf("result = %+v", res)
	}
	if res.AudioURL != "/v1/jobs/"+req.ID+"/audio" || res.TimelineURL == "" {
		t.Errorf("urls = %q %q", res.AudioURL, res.TimelineURL)
	}
	if res.PublishedURL != "https://cdn.example.com/"+req.ID+"/"+TrackFile {
		t.Errorf("published = %q", res.PublishedURL)
	}
	if len(pub.keys) != 2 {
		t.Errorf("published keys = %v", pub.keys)
	}

	track, err := svc.Track(req.ID)
	if err != nil {
		t.Fatalf("Track: %v", err)
	}
	data, _ := os.ReadFile(track)
	if !strings.Contains(string(data), "ja-JP:Hello") {
		t.Errorf("track does not contain the spoken line: %s", data)
	}
	if _, err := svc.Timeline(req.ID); err != nil {
		t.Errorf("Timeline: %v", err)
	}
}

func TestHandlePublishFailureIsNotFatal(t *testing.T) {
	svc := newService(t, &fakePublisher{err: errors.New("bucket gone")})
	req := newRequest(t, svc, "[00:00.00]Hello\n")
	res, err := svc.Handle(context.Background(), req)
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if res.PublishedURL != "" {
		t.Errorf("published url = %q", res.PublishedURL)
	}
}

func TestHandleErrors(t *testing.T) {
	svc := newService(t, nil)

	req := newRequest(t, svc, "no cues here\n")
	if _, err := svc.Handle(context.Background(), req); !errors.Is(err, pipeline.ErrEmptyTranscript) {
		t.Errorf("err = %v, want ErrEmptyTranscript", err)
	}

	req = newRequest(t, svc, "[00:00.00]x\n")
	req.LRCPath += ".missing"
	if _, err := svc.Handle(context.Background(), req); !errors.Is(err, pipeline.ErrInputNotFound) {
		t.Errorf("err = %v, want ErrInputNotFound", err)
	}
}

func TestHandleCleansUp(t *testing.T) {
	svc := newService(t, nil)

	ok := newRequest(t, svc, "[00:00.00]Hello\n")
	if _, err := svc.Handle(context.Background(), ok); err != nil {
		t.Fatalf("Handle: %v", err)
	}
	entries, err := os.ReadDir(svc.dir(ok.ID))
	if err != nil {
		t.Fatal(err)
	}
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	if strings.Join(names, ",") != TimelineFile+","+TrackFile {
		t.Errorf("finished job keeps %v, want only the track and timeline", names)
	}

	for name, lrc := range map[string]string{"empty transcript": "no cues\n", "missing transcript": ""} {
		t.Run(name, func(t *testing.T) {
			req := newRequest(t, svc, lrc)
			if lrc == "" {
				req.LRCPath += ".missing"
			}
			if _, err := svc.Handle(context.Background(), req); err == nil {
				t.Fatal("expected the job to fail")
			}
			if _, err := os.Stat(svc.dir(req.ID)); !errors.Is(err, os.ErrNotExist) {
				t.Errorf("failed job left %s on disk", svc.dir(req.ID))
			}
		})
	}
}

func TestDiscard(t *testing.T) {
	svc := newService(t, nil)
	req := newRequest(t, svc, "[00:00.00]Hello\n")
	svc.Discard(req.ID)
	if _, err := os.Stat(svc.dir(req.ID)); !errors.Is(err, os.ErrNotExist) {
		t.Error("Discard left the job directory")
	}
	svc.Discard("..") // malformed ids never reach the filesystem
	if _, err := os.Stat(svc.workDir); err != nil {
		t.Errorf("work dir removed: %v", err)
	}
}

func TestLookup(t *testing.T) {
	svc := newService(t, nil)
	for _, id := range []string{"../../etc/passwd", "", uuid.NewString()} {
		if _, err := svc.Track(id); !errors.Is(err, ErrNotFound) {
			t.Errorf("Track(%q) err = %v, want ErrNotFound", id, err)
		}
	}
	if _, err := svc.UploadDir("../escape"); err == nil {
		t.Error("UploadDir accepted a malformed id")
	}
}
