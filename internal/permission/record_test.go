package permission

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDateRange(t *testing.T) {
	loc := time.FixedZone("IST", 5*3600+1800)

	from, until, err := DateRange("2024-03-15", "2024-03-15", loc)
	require.NoError(t, err)
	require.NotNil(t, from)
	require.NotNil(t, until)
	assert.True(t, from.Equal(time.Date(2024, 3, 15, 0, 0, 0, 0, loc)))
	assert.True(t, until.Equal(time.Date(2024, 3, 16, 0, 0, 0, 0, loc)))

	from, until, err = DateRange("", "2024-03-31", loc)
	require.NoError(t, err)
	assert.Nil(t, from)
	assert.True(t, until.Equal(time.Date(2024, 4, 1, 0, 0, 0, 0, loc)))

	from, until, err = DateRange(" ", "", loc)
	require.NoError(t, err)
	assert.Nil(t, from)
	assert.Nil(t, until)
}

func TestDateRangeRejectsMalformedInput(t *testing.T) {
	for _, tc := range [][2]string{
		{"15/03/2024", ""},
		{"", "2024-3-1"},
		{"2024-02-30", ""},
		{"2024-03-16", "2024-03-15"},
	} {
		_, _, err := DateRange(tc[0], tc[1], time.UTC)
		assert.ErrorIs(t, err, ErrInvalidFilter, "%v", tc)
	}
}
