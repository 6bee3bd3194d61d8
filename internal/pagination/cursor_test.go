package pagination

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCursorRoundTrip(t *testing.T) {
	stamp := time.Date(2026, 3, 14, 9, 26, 53, 589793000, time.UTC)

	encoded := EncodeCursor("run-42", stamp)
	require.NotEmpty(t, encoded)

	decoded, err := DecodeCursor(encoded)
	require.NoError(t, err)
	assert.Equal(t, "run-42", decoded.LastID)
	assert.True(t, decoded.Timestamp.Equal(stamp))
}

func TestEncodeCursor_EmptyID(t *testing.T) {
	assert.Empty(t, EncodeCursor("", time.Now()))
}

func TestDecodeCursor_EmptyIsFirstPage(t *testing.T) {
	decoded, err := DecodeCursor("")
	require.NoError(t, err)
	assert.Nil(t, decoded)
}

func TestDecodeCursor_Invalid(t *testing.T) {
	cases := []string{
		"not base64 at all!!!",
		"aGVsbG8",             // no separator
		"bm90LWEtdGltZXwxMjM", // bad timestamp
		"fA",                  // separator with empty parts
	}
	for _, c := range cases {
		_, err := DecodeCursor(c)
		assert.ErrorIs(t, err, ErrInvalidCursor, "cursor %q", c)
	}
}

type pageItem struct {
	id string
	at time.Time
}

func TestCreateNextCursor(t *testing.T) {
	now := time.Now().UTC()
	items := []pageItem{
		{id: "a", at: now},
		{id: "b", at: now.Add(-time.Minute)},
	}
	getID := func(i pageItem) string { return i.id }
	getAt := func(i pageItem) time.Time { return i.at }

	// Full page: cursor points at the last item.
	cursor := CreateNextCursor(items, 2, getID, getAt)
	decoded, err := DecodeCursor(cursor)
	require.NoError(t, err)
	assert.Equal(t, "b", decoded.LastID)

	// Short page: no further results.
	assert.Empty(t, CreateNextCursor(items, 3, getID, getAt))
	assert.Empty(t, CreateNextCursor(nil, 2, getID, getAt))
}
