// Package crypt implements the self-synchronizing xor stream cipher used by
// the live timing feed.
//
// The keystream depends on every byte decrypted since the last Reset, so
// callers must feed encrypted bytes strictly in stream order.
package crypt

// Seed is the register value after a reset.
const Seed uint32 = 0x55555555

type Cipher struct {
	key  uint32
	mask uint32
}

func New(key uint32) *Cipher {
	return &Cipher{key: key, mask: Seed}
}

// SetKey installs a new session key and resets the register.
func (c *Cipher) SetKey(key uint32) {
	c.key = key
	c.mask = Seed
}

func (c *Cipher) Key() uint32 {
	return c.key
}

func (c *Cipher) Reset() {
	c.mask = Seed
}

// Decrypt decrypts a single byte and advances the register.
// With key 0 the feed is unencrypted and the register is left untouched.
func (c *Cipher) Decrypt(b byte) byte {
	if c.key == 0 {
		return b
	}
	if c.mask&1 == 1 {
		c.mask = (c.mask >> 1) ^ c.key
	} else {
		c.mask >>= 1
	}
	return b ^ byte(c.mask)
}

// DecryptBytes decrypts buf in place.
func (c *Cipher) DecryptBytes(buf []byte) {
	for i := range buf {
		buf[i] = c.Decrypt(buf[i])
	}
}

// EncryptBytes encrypts buf in place. The cipher is a plain xor with the
// keystream, so this is the same operation as decryption.
func (c *Cipher) EncryptBytes(buf []byte) {
	c.DecryptBytes(buf)
}
