package storage

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestSignedURLSignerGenerateAndParse(t *testing.T) {
	signer := NewSignedURLSigner("secret", time.Hour)
	token, expiresAt, err := signer.Generate("STU-1", "STU-1/COURSE-1/t1w2/essay.pdf")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	ref, err := signer.Parse(token, false)
	require.NoError(t, err)
	require.Equal(t, "STU-1", ref.OwnerID)
	require.Equal(t, "STU-1/COURSE-1/t1w2/essay.pdf", ref.Path)
	require.WithinDuration(t, expiresAt, ref.ExpiresAt, time.Second)
}

func TestSignedURLSignerExpired(t *testing.T) {
	signer := NewSignedURLSigner("secret", time.Minute)
	token, _, err := signer.Generate("STU-1", "file.pdf")
	require.NoError(t, err)

	signer.now = func() time.Time { return time.Now().Add(2 * time.Minute) }
	_, err = signer.Parse(token, false)
	require.ErrorIs(t, err, ErrTokenExpired)

	ref, err := signer.Parse(token, true)
	require.NoError(t, err)
	require.Equal(t, "file.pdf", ref.Path)
}

func TestSignedURLSignerTampered(t *testing.T) {
	signer := NewSignedURLSigner("secret", time.Hour)
	token, _, err := signer.Generate("STU-1", "file.pdf")
	require.NoError(t, err)

	other := NewSignedURLSigner("other", time.Hour)
	_, err = other.Parse(token, false)
	require.ErrorIs(t, err, ErrInvalidToken)

	_, err = signer.Parse("STU-2"+token[len("STU-1"):], false)
	require.ErrorIs(t, err, ErrInvalidToken)
}
