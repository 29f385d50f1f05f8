//nolint:funlen // ok for tests
package endpoint

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeyframeNames(t *testing.T) {
	l := NewLive("http://host/keyframe", "host:4321")
	assert.Equal(t, "http://host/keyframe.bin", l.KeyframeURL(0))
	assert.Equal(t, "http://host/keyframe.bin?1", l.KeyframeURL(0))
	assert.Equal(t, "http://host/keyframe.bin?2", l.KeyframeURL(0))
	assert.Equal(t, "http://host/keyframe_00042.bin", l.KeyframeURL(42))
	assert.Equal(t, "http://host/keyframe.bin", l.KeyframeURL(0))

	r := &Recorded{dir: "rec"}
	assert.Equal(t, filepath.Join("rec", "keyframe.bin"), r.KeyframePath(0))
	assert.Equal(t, filepath.Join("rec", "keyframe_1.bin"), r.KeyframePath(0))
	assert.Equal(t, filepath.Join("rec", "keyframe_00007.bin"), r.KeyframePath(7))
}

func TestLiveOpenKeyframe(t *testing.T) {
	var mu sync.Mutex
	var requests []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		requests = append(requests, r.URL.RequestURI())
		mu.Unlock()
		switch r.URL.Path {
		case "/keyframe.bin":
			_, _ = w.Write([]byte{1, 2, 3})
		case "/keyframe_00009.bin":
			_, _ = w.Write([]byte{9})
		case "/keyframe_00010.bin":
			w.WriteHeader(http.StatusInternalServerError)
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	l := NewLive(srv.URL+"/keyframe", "", WithHTTPClient(srv.Client()))
	ctx := context.Background()

	rc, err := l.OpenKeyframe(ctx, 0)
	require.NoError(t, err)
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	rc.Close()
	assert.Equal(t, []byte{1, 2, 3}, data)

	rc, err = l.OpenKeyframe(ctx, 9)
	require.NoError(t, err)
	data, _ = io.ReadAll(rc)
	rc.Close()
	assert.Equal(t, []byte{9}, data)

	_, err = l.OpenKeyframe(ctx, 11)
	assert.ErrorIs(t, err, ErrKeyframeNotFound)

	_, err = l.OpenKeyframe(ctx, 10)
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrKeyframeNotFound))

	assert.Equal(t, []string{"/keyframe.bin", "/keyframe_00009.bin", "/keyframe_00011.bin", "/keyframe_00010.bin"}, requests)
}

func TestLiveOpenStream(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()
	got := make(chan byte, 1)
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		_, _ = conn.Write([]byte{0xaa, 0xbb})
		buf := make([]byte, 1)
		if _, err := io.ReadFull(conn, buf); err == nil {
			got <- buf[0]
		}
	}()

	l := NewLive("", ln.Addr().String())
	s, err := l.Open(context.Background())
	require.NoError(t, err)
	defer s.Close()
	buf := make([]byte, 2)
	_, err = io.ReadFull(s, buf)
	require.NoError(t, err)
	assert.Equal(t, []byte{0xaa, 0xbb}, buf)
	_, err = s.Write([]byte{PingByte})
	require.NoError(t, err)
	select {
	case b := <-got:
		assert.Equal(t, PingByte, b)
	case <-time.After(2 * time.Second):
		t.Fatal("ping not received")
	}
}

func writeFile(t *testing.T, dir, name string, data []byte) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), data, 0o600))
}

func TestRecorded(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "keyframe.bin", []byte{0})
	writeFile(t, dir, "keyframe_1.bin", []byte{1})
	writeFile(t, dir, "keyframe_00005.bin", []byte{5})
	writeFile(t, dir, "stream.bin", []byte{7, 8, 9})

	r, err := NewRecorded(dir)
	require.NoError(t, err)
	ctx := context.Background()
	for _, tc := range []struct {
		n    int
		want byte
	}{{0, 0}, {0, 1}, {5, 5}} {
		rc, err := r.OpenKeyframe(ctx, tc.n)
		require.NoError(t, err)
		data, _ := io.ReadAll(rc)
		rc.Close()
		assert.Equal(t, []byte{tc.want}, data)
	}
	_, err = r.OpenKeyframe(ctx, 6)
	assert.ErrorIs(t, err, ErrKeyframeNotFound)

	s, err := r.Open(ctx)
	require.NoError(t, err)
	n, err := s.Write([]byte{PingByte})
	assert.NoError(t, err)
	assert.Equal(t, 1, n)
	data, err := io.ReadAll(s)
	require.NoError(t, err)
	assert.Equal(t, []byte{7, 8, 9}, data)
	require.NoError(t, s.Close())

	_, err = NewRecorded(filepath.Join(dir, "stream.bin"))
	assert.Error(t, err)
}

func TestRecordedFollow(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "stream.bin", []byte{1})
	r, err := NewRecorded(dir, WithFollow(true))
	require.NoError(t, err)
	s, err := r.Open(context.Background())
	require.NoError(t, err)

	buf := make([]byte, 8)
	n, err := s.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, []byte{1}, buf[:n])

	f, err := os.OpenFile(filepath.Join(dir, "stream.bin"), os.O_APPEND|os.O_WRONLY, 0o600)
	require.NoError(t, err)
	go func() {
		time.Sleep(50 * time.Millisecond)
		_, _ = f.Write([]byte{2, 3})
		f.Close()
	}()
	n, err = s.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, []byte{2, 3}, buf[:n])

	done := make(chan error, 1)
	go func() {
		_, err := s.Read(buf)
		done <- err
	}()
	time.Sleep(50 * time.Millisecond)
	require.NoError(t, s.Close())
	select {
	case err := <-done:
		assert.ErrorIs(t, err, io.EOF)
	case <-time.After(2 * time.Second):
		t.Fatal("close did not unblock read")
	}
}

func TestRecording(t *testing.T) {
	src := t.TempDir()
	writeFile(t, src, "keyframe.bin", []byte{1, 2})
	writeFile(t, src, "keyframe_00003.bin", []byte{3})
	writeFile(t, src, "stream.bin", []byte{4, 5, 6})
	inner, err := NewRecorded(src)
	require.NoError(t, err)

	dst := filepath.Join(t.TempDir(), "out")
	rec, err := NewRecording(inner, dst)
	require.NoError(t, err)
	ctx := context.Background()

	for _, n := range []int{0, 3} {
		rc, err := rec.OpenKeyframe(ctx, n)
		require.NoError(t, err)
		_, err = io.Copy(io.Discard, rc)
		require.NoError(t, err)
		require.NoError(t, rc.Close())
	}
	_, err = rec.OpenKeyframe(ctx, 4)
	assert.ErrorIs(t, err, ErrKeyframeNotFound)

	s, err := rec.Open(ctx)
	require.NoError(t, err)
	_, err = io.Copy(io.Discard, s)
	require.NoError(t, err)
	require.NoError(t, s.Close())

	for name, want := range map[string][]byte{
		"keyframe.bin":       {1, 2},
		"keyframe_00003.bin": {3},
		"stream.bin":         {4, 5, 6},
	} {
		got, err := os.ReadFile(filepath.Join(dst, name))
		require.NoError(t, err, name)
		assert.True(t, bytes.Equal(want, got), name)
	}

	// the recording can be replayed
	replay, err := NewRecorded(dst)
	require.NoError(t, err)
	rc, err := replay.OpenKeyframe(ctx, 0)
	require.NoError(t, err)
	rc.Close()
}
