package timestamp

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRepair(t *testing.T) {
	tests := map[string]struct {
		in   string
		want string
	}{
		"corrupted T form":       {in: "2024-01-01T00:00:00 00:00", want: "2024-01-01T00:00:00+00:00"},
		"corrupted space form":   {in: "2024-08-01 00:00:00 00:00", want: "2024-08-01 00:00:00+00:00"},
		"corrupted with offset":  {in: "2024-01-01T10:00:00 02:00", want: "2024-01-01T10:00:00+02:00"},
		"already correct":        {in: "2024-01-01T00:00:00+00:00", want: "2024-01-01T00:00:00+00:00"},
		"negative offset":        {in: "2024-01-01 00:00:00-05:00", want: "2024-01-01 00:00:00-05:00"},
		"no space":               {in: "2024-01-01T00:00:00Z", want: "2024-01-01T00:00:00Z"},
		"naive space separated":  {in: "2024-01-01 10:30", want: "2024-01-01 10:30"},
		"trailing not an offset": {in: "2024-01-01 00:00:00 0a:00", want: "2024-01-01 00:00:00 0a:00"},
		"empty":                  {in: "", want: ""},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, tt.want, Repair(tt.in))
		})
	}
}

func TestNormalize(t *testing.T) {
	midnight := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	tests := map[string]struct {
		in   string
		want time.Time
	}{
		"rfc3339 zulu":           {in: "2024-01-01T00:00:00Z", want: midnight},
		"rfc3339 offset":         {in: "2024-01-01T00:00:00+00:00", want: midnight},
		"corrupted offset":       {in: "2024-01-01T00:00:00 00:00", want: midnight},
		"space separated":        {in: "2024-01-01 00:00:00+00:00", want: midnight},
		"no seconds":             {in: "2024-01-01T00:00Z", want: midnight},
		"naive is utc":           {in: "2024-01-01T00:00:00", want: midnight},
		"compact offset":         {in: "2024-01-01T02:00:00+0200", want: midnight},
		"hour offset":            {in: "2024-01-01T02:00:00+02", want: midnight},
		"converted to utc":       {in: "2023-12-31T19:00:00-05:00", want: midnight},
		"corrupted non zero":     {in: "2024-01-01T02:00:00 02:00", want: midnight},
		"fractional seconds":     {in: "2024-01-01T00:00:00.250Z", want: midnight.Add(250 * time.Millisecond)},
		"surrounding whitespace": {in: "  2024-01-01T00:00:00Z ", want: midnight},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			got, err := Normalize(tt.in)
			require.NoError(t, err)
			require.NotNil(t, got)
			assert.True(t, tt.want.Equal(*got), "want %s got %s", tt.want, got)
			assert.Equal(t, time.UTC, got.Location())
		})
	}
}

func TestNormalize_CorruptedMatchesCorrect(t *testing.T) {
	corrupted, err := Normalize("2024-03-05T12:30:00 00:00")
	require.NoError(t, err)
	correct, err := Normalize("2024-03-05T12:30:00+00:00")
	require.NoError(t, err)
	assert.True(t, correct.Equal(*corrupted))
}

func TestNormalize_Empty(t *testing.T) {
	for _, in := range []string{"", "   "} {
		got, err := Normalize(in)
		assert.NoError(t, err)
		assert.Nil(t, got)
	}
}

func TestNormalize_Invalid(t *testing.T) {
	for _, in := range []string{"not-a-timestamp", "2024-13-45T99:00:00Z"} {
		got, err := Normalize(in)
		assert.ErrorIs(t, err, ErrInvalid, in)
		assert.Nil(t, got)
	}
}

func TestBound(t *testing.T) {
	assert.Nil(t, Bound(""))
	assert.Nil(t, Bound("garbage-value"))

	b := Bound("2024-01-01T00:00:00 00:00")
	require.NotNil(t, b)
	assert.True(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC).Equal(*b))
}
