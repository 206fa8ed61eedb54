package crypto

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSealer(t *testing.T) *Sealer {
	key, err := NewRandomKey()
	require.NoError(t, err)
	sig, err := NewRandomKey()
	require.NoError(t, err)
	s, err := NewSealer(key, sig)
	require.NoError(t, err)
	return s
}

func TestSealOpen(t *testing.T) {
	s := newSealer(t)

	sealed, err := s.Seal([]byte(`{"transactions":[]}`))
	require.NoError(t, err)
	assert.NotContains(t, string(sealed), "transactions")

	out, err := s.Open(append(sealed, '\n'))
	require.NoError(t, err)
	assert.Equal(t, `{"transactions":[]}`, string(out))
}

func TestOpenWrongSignKey(t *testing.T) {
	key, _ := NewRandomKey()
	sig, _ := NewRandomKey()
	other, _ := NewRandomKey()

	a, err := NewSealer(key, sig)
	require.NoError(t, err)
	b, err := NewSealer(key, other)
	require.NoError(t, err)

	sealed, err := a.Seal([]byte("caixa"))
	require.NoError(t, err)

	_, err = b.Open(sealed)
	assert.ErrorIs(t, err, ErrSignature)
}

func TestKeysMatterBeyondThirtyTwoChars(t *testing.T) {
	sig, _ := NewRandomKey()
	prefix := "aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"

	a, err := NewSealer(prefix+"1", sig)
	require.NoError(t, err)
	b, err := NewSealer(prefix+"2", sig)
	require.NoError(t, err)

	sealed, err := a.Seal([]byte("caixa"))
	require.NoError(t, err)

	_, err = b.Open(sealed)
	assert.Error(t, err)
}

func TestOpenMalformed(t *testing.T) {
	s := newSealer(t)

	for _, in := range []string{"", "nodot", "!!!.abc", "abc.!!!"} {
		_, err := s.Open([]byte(in))
		assert.ErrorIs(t, err, ErrMalformed, in)
	}
}

func TestShortKeys(t *testing.T) {
	long, _ := NewRandomKey()

	_, err := NewSealer("short", long)
	assert.Error(t, err)
	_, err = NewSealer(long, "short")
	assert.Error(t, err)
	assert.Error(t, CheckKey("short"))
}
