package storage

import (
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalStorageRoundTrip(t *testing.T) {
	s, err := NewLocalStorage(t.TempDir(), 1024)
	require.NoError(t, err)

	n, err := s.SaveStream("STU-1/essay.txt", strings.NewReader("hello"))
	require.NoError(t, err)
	assert.Equal(t, int64(5), n)

	f, err := s.Open("STU-1/essay.txt")
	require.NoError(t, err)
	defer f.Close() //nolint:errcheck
	body, err := io.ReadAll(f)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(body))

	require.NoError(t, s.Delete("STU-1/essay.txt"))
	_, err = s.Open("STU-1/essay.txt")
	assert.Error(t, err)
}

func TestLocalStorageRejectsOversize(t *testing.T) {
	s, err := NewLocalStorage(t.TempDir(), 4)
	require.NoError(t, err)

	_, err = s.SaveStream("big.txt", strings.NewReader("too large"))
	require.ErrorIs(t, err, ErrTooLarge)
	_, err = s.Open("big.txt")
	assert.Error(t, err)
}

func TestLocalStorageStaysInBaseDir(t *testing.T) {
	dir := t.TempDir()
	s, err := NewLocalStorage(dir, 0)
	require.NoError(t, err)

	path, err := s.resolve("../../etc/passwd")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(path, dir))
}
