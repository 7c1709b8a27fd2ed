// Package crypto encrypts chat message text at rest.
package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"log"
)

// Codec is an AES-GCM codec over message text. Both directions fail
// open: any internal error returns the input unchanged, so a garbled
// stored value degrades to raw text on the read path instead of
// breaking it. The key is read-only after construction and the codec is
// safe for concurrent use.
type Codec struct {
	aead cipher.AEAD
}

// NewCodec builds a codec from a base64-encoded 16/24/32-byte key.
// An empty key generates a random one, which means ciphertext written
// by this process is unreadable after a restart unless the key is
// persisted externally.
func NewCodec(encodedKey string) (*Codec, error) {
	var key []byte
	if encodedKey == "" {
		key = make([]byte, 32)
		if _, err := rand.Read(key); err != nil {
			return nil, err
		}
		log.Printf("[crypto] CHAT_CIPHER_KEY not set; generated ephemeral key")
	} else {
		var err error
		key, err = base64.StdEncoding.DecodeString(encodedKey)
		if err != nil {
			return nil, err
		}
		switch len(key) {
		case 16, 24, 32:
		default:
			return nil, errors.New("cipher key must decode to 16, 24 or 32 bytes")
		}
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}
	return &Codec{aead: aead}, nil
}

// Encrypt seals plain and returns it base64-encoded with the nonce
// prepended. The second return reports whether encryption was applied;
// on failure the plaintext comes back unchanged.
func (c *Codec) Encrypt(plain string) (string, bool) {
	if c == nil || c.aead == nil {
		return plain, false
	}
	nonce := make([]byte, c.aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return plain, false
	}
	sealed := c.aead.Seal(nonce, nonce, []byte(plain), nil)
	return base64.RawURLEncoding.EncodeToString(sealed), true
}

// Decrypt inverts Encrypt. Values that do not decode or do not
// authenticate are returned as-is.
func (c *Codec) Decrypt(encoded string) string {
	if c == nil || c.aead == nil {
		return encoded
	}
	raw, err := base64.RawURLEncoding.DecodeString(encoded)
	if err != nil {
		return encoded
	}
	ns := c.aead.NonceSize()
	if len(raw) <= ns {
		return encoded
	}
	plain, err := c.aead.Open(nil, raw[:ns], raw[ns:], nil)
	if err != nil {
		return encoded
	}
	return string(plain)
}
