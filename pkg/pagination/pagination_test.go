package pagination

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizePerPage(t *testing.T) {
	got, err := NormalizePerPage(0)
	require.NoError(t, err)
	assert.Equal(t, DefaultPerPage, got)

	got, err = NormalizePerPage(100)
	require.NoError(t, err)
	assert.Equal(t, 100, got)

	for _, bad := range []int{-1, 101} {
		_, err := NormalizePerPage(bad)
		assert.Error(t, err, "per_page %d", bad)
	}
}

func TestKeysetTokens(t *testing.T) {
	id, err := DecodeKeyset(EncodeKeyset(42))
	require.NoError(t, err)
	assert.Equal(t, uint64(42), id)

	id, err = DecodeKeyset("")
	require.NoError(t, err)
	assert.Zero(t, id)

	_, err = DecodeKeyset("not base64!")
	assert.Error(t, err)

	_, err = DecodeKeyset(EncodeOffset(10))
	assert.Error(t, err, "offset tokens are not keyset tokens")
}

func TestKeysetPage(t *testing.T) {
	rows := []uint64{9, 8, 7}
	page := KeysetPage(rows, 2, func(v uint64) uint64 { return v })
	assert.Equal(t, []uint64{9, 8}, page.Items)
	last, err := DecodeKeyset(page.NextPageToken)
	require.NoError(t, err)
	assert.Equal(t, uint64(8), last)

	page = KeysetPage(rows[:2], 2, func(v uint64) uint64 { return v })
	assert.Empty(t, page.NextPageToken)

	empty := KeysetPage[uint64](nil, 5, func(v uint64) uint64 { return v })
	assert.NotNil(t, empty.Items)
}

func TestOffsetPage(t *testing.T) {
	page := OffsetPage([]string{"a", "b", "c"}, 2, 4)
	assert.Equal(t, []string{"a", "b"}, page.Items)
	offset, err := DecodeOffset(page.NextPageToken)
	require.NoError(t, err)
	assert.Equal(t, 6, offset)
}
