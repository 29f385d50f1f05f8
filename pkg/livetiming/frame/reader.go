package frame

import (
	"errors"
	"fmt"
	"io"

	"github.com/mpapenbr/livetiming-feed-go/pkg/livetiming/crypt"
)

// Reader reads frames strictly in sequence. Encrypted payloads are run
// through the shared cipher as they are read.
type Reader struct {
	r      io.Reader
	cipher *crypt.Cipher
	hdr    [2]byte
}

func NewReader(r io.Reader, cipher *crypt.Cipher) *Reader {
	return &Reader{r: r, cipher: cipher}
}

// ReadFrame returns the next frame. io.EOF signals the normal end of the
// source (fewer than two header bytes left). ErrTruncated is returned if
// the source ends inside a payload.
func (r *Reader) ReadFrame() (Frame, error) {
	if _, err := io.ReadFull(r.r, r.hdr[:]); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return Frame{}, io.EOF
		}
		return Frame{}, err
	}
	f := Frame{Header: DecodeHeader(r.hdr[0], r.hdr[1])}
	n, encrypted, err := f.PayloadSpec()
	if err != nil {
		return f, err
	}
	if n == 0 {
		return f, nil
	}
	f.Payload = make([]byte, n)
	if _, err := io.ReadFull(r.r, f.Payload); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return f, fmt.Errorf("%w: %s", ErrTruncated, f)
		}
		return f, err
	}
	if encrypted {
		r.cipher.DecryptBytes(f.Payload)
	}
	return f, nil
}
