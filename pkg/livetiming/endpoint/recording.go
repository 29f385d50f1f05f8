package endpoint

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"

	"github.com/mpapenbr/livetiming-feed-go/log"
)

// Recording wraps an endpoint and copies every keyframe and the stream into
// a directory, using the layout read by Recorded.
type Recording struct {
	inner Endpoint
	dir   string
	log   *log.Logger
	names keyframeNamer
}

var _ Endpoint = (*Recording)(nil)

func NewRecording(inner Endpoint, dir string) (*Recording, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &Recording{
		inner: inner,
		dir:   dir,
		log:   log.Default().Named("endpoint.recording"),
	}, nil
}

func (r *Recording) OpenKeyframe(ctx context.Context, n int) (io.ReadCloser, error) {
	name := filepath.Join(r.dir, KeyframeFileName+r.names.next(n, "_%d.bin"))
	src, err := r.inner.OpenKeyframe(ctx, n)
	if err != nil {
		return nil, err
	}
	f, err := os.Create(name)
	if err != nil {
		src.Close()
		return nil, err
	}
	r.log.Debug("recording keyframe", log.String("file", name))
	return &teeStream{src: src, dst: f, r: io.TeeReader(src, f)}, nil
}

func (r *Recording) Open(ctx context.Context) (Stream, error) {
	src, err := r.inner.Open(ctx)
	if err != nil {
		return nil, err
	}
	name := filepath.Join(r.dir, StreamFileName)
	f, err := os.OpenFile(name, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		src.Close()
		return nil, err
	}
	r.log.Debug("recording stream", log.String("file", name))
	return &teeStream{src: src, dst: f, r: io.TeeReader(src, f), w: src}, nil
}

type teeStream struct {
	src io.Closer
	dst *os.File
	r   io.Reader
	w   io.Writer
}

func (t *teeStream) Read(p []byte) (int, error) {
	return t.r.Read(p)
}

func (t *teeStream) Write(p []byte) (int, error) {
	if t.w == nil {
		return 0, errors.New("endpoint: keyframe is read only")
	}
	return t.w.Write(p)
}

func (t *teeStream) Close() error {
	return errors.Join(t.src.Close(), t.dst.Close())
}
