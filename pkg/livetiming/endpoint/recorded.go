package endpoint

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"

	"github.com/mpapenbr/livetiming-feed-go/log"
)

const (
	StreamFileName   = "stream.bin"
	KeyframeFileName = "keyframe"
)

type RecordedOption func(*Recorded)

// WithFollow keeps reading the stream file as it grows, like tail -f. The
// stream ends when the file is removed or the stream is closed.
func WithFollow(follow bool) RecordedOption {
	return func(r *Recorded) {
		r.follow = follow
	}
}

func WithRecordedLogger(logger *log.Logger) RecordedOption {
	return func(r *Recorded) {
		r.log = logger
	}
}

// Recorded replays a session directory containing stream.bin and the
// keyframe files.
type Recorded struct {
	dir    string
	follow bool
	log    *log.Logger
	names  keyframeNamer
}

var _ Endpoint = (*Recorded)(nil)

func NewRecorded(dir string, opts ...RecordedOption) (*Recorded, error) {
	st, err := os.Stat(dir)
	if err != nil {
		return nil, err
	}
	if !st.IsDir() {
		return nil, fmt.Errorf("%s is not a directory", dir)
	}
	r := &Recorded{dir: dir, log: log.Default().Named("endpoint")}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// KeyframePath returns the file of keyframe n and advances the counter for
// the current keyframe.
func (r *Recorded) KeyframePath(n int) string {
	return filepath.Join(r.dir, KeyframeFileName+r.names.next(n, "_%d.bin"))
}

func (r *Recorded) OpenKeyframe(_ context.Context, n int) (io.ReadCloser, error) {
	path := r.KeyframePath(n)
	r.log.Info("opening keyframe", log.String("file", path))
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrKeyframeNotFound, path)
		}
		return nil, err
	}
	return f, nil
}

func (r *Recorded) Open(_ context.Context) (Stream, error) {
	path := filepath.Join(r.dir, StreamFileName)
	r.log.Info("opening stream", log.String("file", path), log.Bool("follow", r.follow))
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	if !r.follow {
		return fileStream{f}, nil
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		f.Close()
		return nil, err
	}
	if err := w.Add(path); err != nil {
		w.Close()
		f.Close()
		return nil, err
	}
	return &followStream{f: f, w: w, done: make(chan struct{}), log: r.log}, nil
}

// fileStream discards pings.
type fileStream struct {
	*os.File
}

func (s fileStream) Write(p []byte) (int, error) {
	return len(p), nil
}

type followStream struct {
	f    *os.File
	w    *fsnotify.Watcher
	log  *log.Logger
	done chan struct{}
	once sync.Once
}

func (s *followStream) Read(p []byte) (int, error) {
	for {
		n, err := s.f.Read(p)
		if n > 0 || (err != nil && !errors.Is(err, io.EOF)) {
			return n, err
		}
		select {
		case <-s.done:
			return 0, io.EOF
		case event, ok := <-s.w.Events:
			if !ok {
				return 0, io.EOF
			}
			s.log.Debug("change detected", log.String("file", event.Name), log.Any("event", event))
			if event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename) {
				return 0, io.EOF
			}
		case err, ok := <-s.w.Errors:
			if !ok {
				return 0, io.EOF
			}
			return 0, err
		}
	}
}

func (s *followStream) Write(p []byte) (int, error) {
	return len(p), nil
}

func (s *followStream) Close() error {
	var err error
	s.once.Do(func() {
		close(s.done)
		err = errors.Join(s.w.Close(), s.f.Close())
	})
	return err
}
