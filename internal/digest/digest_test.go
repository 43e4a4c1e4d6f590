package digest_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/riftforge/assets/internal/digest"
)

func TestSumIsStableAndContentSensitive(t *testing.T) {
	t.Parallel()

	a := digest.Sum([]byte("tile atlas"))
	b := digest.Sum([]byte("tile atlas"))
	c := digest.Sum([]byte("tile atlas v2"))

	assert.Len(t, a, digest.Size)
	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.True(t, digest.Equal(a, b))
	assert.False(t, digest.Equal(a, c))
}

func TestEqualRejectsTruncatedDigests(t *testing.T) {
	t.Parallel()

	d := digest.Sum([]byte("x"))
	assert.False(t, digest.Equal(d[:digest.Size-1], d[:digest.Size-1]),
		"a short digest never counts as a match")
	assert.False(t, digest.Equal(nil, nil))
}

func TestVerify(t *testing.T) {
	t.Parallel()

	data := []byte("ui/hud.yaml contents")
	want := digest.Sum(data)

	require.NoError(t, digest.Verify(data, want))

	err := digest.Verify([]byte("corrupted"), want)
	require.Error(t, err)
	assert.ErrorIs(t, err, digest.ErrMismatch)
}

func TestHexMatchesSum(t *testing.T) {
	t.Parallel()

	data := []byte("sprites/tree.png")
	assert.Len(t, digest.Hex(data), digest.Size*2)
	assert.Equal(t, digest.Hex(data), digest.Hex(data))
}
