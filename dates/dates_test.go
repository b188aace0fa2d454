package dates

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOrdinalSuffixAllDays(t *testing.T) {
	t.Parallel()

	want := []string{"1st", "2nd", "3rd", "4th", "5th", "6th", "7th", "8th", "9th", "10th",
		"11th", "12th", "13th", "14th", "15th", "16th", "17th", "18th", "19th",
		"20th", "21st", "22nd", "23rd", "24th", "25th", "26th", "27th", "28th",
		"29th", "30th", "31st"}

	for i, w := range want {
		assert.Equal(t, w, Ordinal(i+1), "day %d", i+1)
	}
}

func TestParseTrackerDate(t *testing.T) {
	t.Parallel()

	got, err := ParseTrackerDate("03/Jan/18 10:48 AM")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2018, time.January, 3, 10, 48, 0, 0, time.UTC), got)

	pm, err := ParseTrackerDate("17/Jan/18 01:05 PM")
	require.NoError(t, err)
	assert.Equal(t, 13, pm.Hour())
}

func TestParseTrackerDateIn(t *testing.T) {
	t.Parallel()

	est := time.FixedZone("EST", -5*60*60)
	got, err := ParseTrackerDateIn("03/Jan/18 10:48 PM", est)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2018, time.January, 4, 3, 48, 0, 0, time.UTC), got.UTC())
	assert.Equal(t, "Wednesday, January 3rd, 2018", PrettyDate(got))

	utc, err := ParseTrackerDateIn("03/Jan/18 10:48 PM", nil)
	require.NoError(t, err)
	assert.Equal(t, time.UTC, utc.Location())

	_, err = ParseTrackerDateIn("2018-01-03", est)
	assert.ErrorIs(t, err, ErrBadDate)
}

func TestParseTrackerDateRejects(t *testing.T) {
	t.Parallel()

	for _, in := range []string{
		"2018-01-03",
		"",
		"03/Jan/18",
		"03/Jan/18 10:48",
		"03/Jan/2018 10:48 AM",
		"3/Jan/18 10:48 AM",
		"03/Jan/18 10:48 AM extra",
		"03-Jan-18 10:48 AM",
	} {
		_, err := ParseTrackerDate(in)
		assert.ErrorIs(t, err, ErrBadDate, "input %q", in)
	}
}

func TestPrettyDate(t *testing.T) {
	t.Parallel()

	d := time.Date(2018, time.January, 3, 10, 48, 0, 0, time.UTC)
	assert.Equal(t, "Wednesday, January 3rd, 2018", PrettyDate(d))

	d = time.Date(2018, time.January, 12, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, "Friday, January 12th, 2018", PrettyDate(d))
}
