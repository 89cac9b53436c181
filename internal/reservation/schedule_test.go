package reservation

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSchedule(t *testing.T) {
	s, ok := ParseSchedule("2024.06.10 (월) 오전 10:30", DefaultMarkers)
	require.True(t, ok)
	assert.Equal(t, Schedule{Year: 2024, Month: 6, Day: 10, Hour: 10, Minute: 30}, s)
	assert.Equal(t, "10:30", s.TimeHHMM())
}

func TestParseScheduleHalfDayConversion(t *testing.T) {
	tests := []struct {
		text string
		want string
	}{
		{"2024.06.10 (월) 오후 9:00", "21:00"},
		{"2024.06.10 (월) 오전 12:00", "00:00"},
		{"2024.06.10 (월) 오후 12:00", "12:00"},
		{"2024.06.10 (월) 오전 9:05", "09:05"},
	}
	for _, tc := range tests {
		s, ok := ParseSchedule(tc.text, DefaultMarkers)
		require.True(t, ok, tc.text)
		assert.Equal(t, tc.want, s.TimeHHMM(), tc.text)
	}
}

func TestParseScheduleUnpaddedDate(t *testing.T) {
	s, ok := ParseSchedule("2024.6.3 (월) 오후 2:15", DefaultMarkers)
	require.True(t, ok)
	assert.Equal(t, 6, s.Month)
	assert.Equal(t, 3, s.Day)
	assert.Equal(t, "14:15", s.TimeHHMM())
}

func TestParseScheduleRejectsDateOnly(t *testing.T) {
	_, ok := ParseSchedule("2024.06.10 (월)", DefaultMarkers)
	assert.False(t, ok)
}

func TestHasTimeToken(t *testing.T) {
	assert.True(t, HasTimeToken("2024.06.10 (월) 오전 10:30"))
	assert.False(t, HasTimeToken("2024.06.10 (월)"))
	assert.False(t, HasTimeToken(""))
}

func TestIsOn(t *testing.T) {
	s := Schedule{Year: 2024, Month: 6, Day: 10}
	loc := time.FixedZone("KST", 9*3600)
	assert.True(t, s.IsOn(time.Date(2024, 6, 10, 23, 0, 0, 0, loc)))
	assert.False(t, s.IsOn(time.Date(2024, 6, 11, 0, 0, 0, 0, loc)))
}

func TestPaddingVariants(t *testing.T) {
	assert.Equal(t, []string{"06", "6"}, PaddingVariants(6))
	assert.Equal(t, []string{"10"}, PaddingVariants(10))
}
