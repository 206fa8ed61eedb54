package crypto

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"

	"github.com/gtank/cryptopasta"
)

const (
	minKeyLen = 32

	sealTag = "tillcounter/seal"
	signTag = "tillcounter/sign"
)

var (
	ErrSignature = errors.New("signature validation failed")
	ErrMalformed = errors.New("sealed data is malformed")
)

var b64 = base64.RawURLEncoding

// NewRandomKey returns a fresh key suitable for NewSealer.
func NewRandomKey() (string, error) {
	return b64.EncodeToString(cryptopasta.NewEncryptionKey()[:]), nil
}

// CheckKey returns an error if s is too short to be used as a key.
func CheckKey(s string) error {
	if len(s) < minKeyLen {
		return fmt.Errorf("key too short for encryption/signing operation, want at least %d chars", minKeyLen)
	}
	return nil
}

// Sealer encrypts data and signs the ciphertext. Every byte of the
// configured keys matters; they are hashed down to the 32 bytes the
// ciphers need.
type Sealer struct {
	seal *[32]byte
	sign *[32]byte
}

func NewSealer(key, sig string) (*Sealer, error) {
	if err := CheckKey(key); err != nil {
		return nil, fmt.Errorf("seal key: %w", err)
	}
	if err := CheckKey(sig); err != nil {
		return nil, fmt.Errorf("sign key: %w", err)
	}
	return &Sealer{seal: derive(sealTag, key), sign: derive(signTag, sig)}, nil
}

// Seal returns "<ciphertext>.<hmac>", both base64 (url alphabet, unpadded).
func (s *Sealer) Seal(plaintext []byte) ([]byte, error) {
	ciphertext, err := cryptopasta.Encrypt(plaintext, s.seal)
	if err != nil {
		return nil, err
	}
	mac := cryptopasta.GenerateHMAC(ciphertext, s.sign)

	out := make([]byte, 0, b64.EncodedLen(len(ciphertext))+1+b64.EncodedLen(len(mac)))
	out = b64.AppendEncode(out, ciphertext)
	out = append(out, '.')
	return b64.AppendEncode(out, mac), nil
}

// Open checks the signature of data produced by Seal and decrypts it.
func (s *Sealer) Open(sealed []byte) ([]byte, error) {
	body, macPart, ok := bytes.Cut(bytes.TrimSpace(sealed), []byte{'.'})
	if !ok {
		return nil, ErrMalformed
	}

	ciphertext, err := b64.AppendDecode(nil, body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	mac, err := b64.AppendDecode(nil, macPart)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	if !cryptopasta.CheckHMAC(ciphertext, mac, s.sign) {
		return nil, ErrSignature
	}
	return cryptopasta.Decrypt(ciphertext, s.seal)
}

func derive(tag, key string) *[32]byte {
	out := &[32]byte{}
	copy(out[:], cryptopasta.Hash(tag, []byte(key)))
	return out
}
