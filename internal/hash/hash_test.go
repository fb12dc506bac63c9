package hash

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDigest_KnownVector(t *testing.T) {
	digest, err := Digest(strings.NewReader("hello world"))
	require.NoError(t, err)
	assert.Equal(t, "b94d27b9934d3e08a52e52d7da7dabfac484efe37a5380ee9088f7ace2efcde9", digest)
}

func TestDigest_EmptyInput(t *testing.T) {
	digest, err := Digest(strings.NewReader(""))
	require.NoError(t, err)
	assert.Equal(t, "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855", digest)
}

func TestDigestFile_MatchesReaderDigest(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.bin")
	require.NoError(t, os.WriteFile(path, []byte("hello world"), 0o644))

	fromFile, err := DigestFile(path)
	require.NoError(t, err)

	fromReader, err := Digest(strings.NewReader("hello world"))
	require.NoError(t, err)
	assert.Equal(t, fromReader, fromFile)
}

func TestDigestFile_Missing(t *testing.T) {
	_, err := DigestFile(filepath.Join(t.TempDir(), "missing"))
	require.Error(t, err)
}
