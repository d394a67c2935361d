package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTo24Hour_Boundaries(t *testing.T) {
	cases := []struct {
		hour   int
		minute int
		period string
		want   string
	}{
		{12, 0, "AM", "00:00"},
		{12, 30, "am", "00:30"},
		{1, 5, "AM", "01:05"},
		{11, 59, "AM", "11:59"},
		{12, 0, "PM", "12:00"},
		{2, 30, "PM", "14:30"},
		{11, 59, " pm ", "23:59"},
	}
	for _, c := range cases {
		got, err := To24Hour(c.hour, c.minute, c.period)
		require.NoError(t, err)
		assert.Equal(t, c.want, got, "%d:%02d %s", c.hour, c.minute, c.period)
	}
}

func TestTo24Hour_Invalid(t *testing.T) {
	_, err := To24Hour(0, 0, "AM")
	assert.ErrorIs(t, err, ErrInvalidTime)
	_, err = To24Hour(13, 0, "PM")
	assert.ErrorIs(t, err, ErrInvalidTime)
	_, err = To24Hour(5, 60, "PM")
	assert.ErrorIs(t, err, ErrInvalidTime)
	_, err = To24Hour(5, 10, "XM")
	assert.ErrorIs(t, err, ErrInvalidTime)
}

// 所有 hour∈[1,12]、minute∈[0,59]、period∈{AM,PM} 往返无损
func TestTimeOfDay_RoundTrip(t *testing.T) {
	for _, period := range []string{PeriodAM, PeriodPM} {
		for hour := 1; hour <= 12; hour++ {
			for minute := 0; minute < 60; minute++ {
				stored, err := To24Hour(hour, minute, period)
				require.NoError(t, err)

				h, m, p, err := To12Hour(stored)
				require.NoError(t, err)
				if h != hour || m != minute || p != period {
					t.Fatalf("round trip %d:%02d %s -> %s -> %d:%02d %s", hour, minute, period, stored, h, m, p)
				}
			}
		}
	}
}

func TestParseTime24(t *testing.T) {
	h, m, err := ParseTime24("14:30")
	require.NoError(t, err)
	assert.Equal(t, 14, h)
	assert.Equal(t, 30, m)

	h, m, err = ParseTime24("9:05")
	require.NoError(t, err)
	assert.Equal(t, 9, h)
	assert.Equal(t, 5, m)

	for _, bad := range []string{"", "24:00", "12:60", "1230", "12:5", "ab:cd", "123:00", "-1:00"} {
		_, _, err := ParseTime24(bad)
		assert.ErrorIs(t, err, ErrInvalidTime, "input %q", bad)
	}
}

func TestNormalizeTime24(t *testing.T) {
	got, err := NormalizeTime24("7:45")
	require.NoError(t, err)
	assert.Equal(t, "07:45", got)
}

func TestDisplayTime(t *testing.T) {
	cases := map[string]string{
		"00:00": "12:00 AM",
		"00:30": "12:30 AM",
		"09:05": "9:05 AM",
		"12:00": "12:00 PM",
		"14:30": "2:30 PM",
		"23:59": "11:59 PM",
	}
	for in, want := range cases {
		got, err := DisplayTime(in)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
}
