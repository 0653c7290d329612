package hashutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashBytes_KnownVectors(t *testing.T) {
	got, err := HashBytes([]byte(""), HashAlgoSHA256)
	require.NoError(t, err)
	assert.Equal(t, "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855", got)

	got, err = HashBytes([]byte(""), HashAlgoBLAKE3)
	require.NoError(t, err)
	assert.Equal(t, "af1349b9f5f9a1a6a0404dea36dcc9499bcb25c9adc112b7cc9a93cae41f3262", got)
}

func TestHashBytes_UnsupportedAlgo(t *testing.T) {
	_, err := HashBytes([]byte("x"), HashAlgo("md5"))
	assert.Error(t, err)
}

func TestSum_SameContentSameDigest(t *testing.T) {
	a, err := Sum([]byte("<html>same</html>"), HashAlgoBLAKE3)
	require.NoError(t, err)
	b, err := Sum([]byte("<html>same</html>"), HashAlgoBLAKE3)
	require.NoError(t, err)
	c, err := Sum([]byte("<html>other</html>"), HashAlgoBLAKE3)
	require.NoError(t, err)

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.Len(t, a.String(), 64)
}
