package store

import (
	"github.com/voidshard/tillcounter/pkg/crypto"
)

// sealer is the JSONFile codec for sealed files.
type sealer struct {
	*crypto.Sealer
}

func (s sealer) encode(b []byte) ([]byte, error) {
	return s.Seal(b)
}

func (s sealer) decode(b []byte) ([]byte, error) {
	return s.Open(b)
}

// NewSealedFile is a JSONFile whose contents are encrypted with key and
// signed with sig. Both keys must be at least 32 characters.
func NewSealedFile(filename, key, sig string) (*JSONFile, error) {
	s, err := crypto.NewSealer(key, sig)
	if err != nil {
		return nil, err
	}
	return &JSONFile{filename: filename, codec: sealer{s}}, nil
}
