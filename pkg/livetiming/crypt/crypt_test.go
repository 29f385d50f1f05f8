//nolint:thelper,funlen // ok for tests
package crypt

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCipher_RoundTrip(t *testing.T) {
	tests := []struct {
		name      string
		key       uint32
		plaintext []byte
	}{
		{"empty", 0xdeadbeef, []byte{}},
		{"ascii", 0xdeadbeef, []byte("1:23.456")},
		{"all bytes", 0x0badcafe, func() []byte {
			b := make([]byte, 256)
			for i := range b {
				b[i] = byte(i)
			}
			return b
		}()},
		{"long run of zeros", 0x12345678, make([]byte, 1024)},
		{"max key", 0xffffffff, []byte("SAFETY CAR DEPLOYED")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := bytes.Clone(tt.plaintext)
			New(tt.key).EncryptBytes(buf)
			if len(tt.plaintext) > 4 {
				assert.NotEqual(t, tt.plaintext, buf, "ciphertext should differ")
			}
			New(tt.key).DecryptBytes(buf)
			assert.Equal(t, tt.plaintext, buf)
		})
	}
}

func TestCipher_ZeroKeyIsIdentity(t *testing.T) {
	c := New(0)
	in := []byte{0x00, 0x55, 0xaa, 0xff}
	buf := bytes.Clone(in)
	c.DecryptBytes(buf)
	assert.Equal(t, in, buf)
}

func TestCipher_FirstByte(t *testing.T) {
	// seed 0x55555555 has bit 0 set: mask becomes (0x55555555>>1)^key
	key := uint32(0x01020304)
	c := New(key)
	want := byte((Seed>>1)^key) ^ 0x41
	assert.Equal(t, want, c.Decrypt(0x41))
}

func TestCipher_ResetRestartsKeystream(t *testing.T) {
	c := New(0xcafebabe)
	first := make([]byte, 8)
	c.DecryptBytes(first)

	c.Reset()
	second := make([]byte, 8)
	c.DecryptBytes(second)
	assert.Equal(t, first, second)

	c.SetKey(0xcafebabf)
	third := make([]byte, 8)
	c.DecryptBytes(third)
	assert.NotEqual(t, first, third)
	assert.Equal(t, uint32(0xcafebabf), c.Key())
}

func TestCipher_OrderMatters(t *testing.T) {
	plain := []byte("abcdef")
	enc := bytes.Clone(plain)
	New(0x11223344).EncryptBytes(enc)

	// skipping a byte desynchronizes everything after it
	c := New(0x11223344)
	rest := bytes.Clone(enc[1:])
	c.DecryptBytes(rest)
	assert.NotEqual(t, plain[1:], rest)
}
