package reservation

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKeyIsPureAndDistinct(t *testing.T) {
	a := Reservation{Name: "Kim", Phone: "010-1234-5678", ScheduleText: "2024.06.10 (월) 오전 10:30"}
	b := Reservation{Name: "Kim", Phone: "010-1234-5678", ScheduleText: "2024.06.10 (월) 오전 10:30"}
	assert.Equal(t, a.Key(), b.Key())

	changed := []Reservation{
		{Name: "Lee", Phone: a.Phone, ScheduleText: a.ScheduleText},
		{Name: a.Name, Phone: "010-9999-0000", ScheduleText: a.ScheduleText},
		{Name: a.Name, Phone: a.Phone, ScheduleText: "2024.06.11 (화) 오전 10:30"},
	}
	for _, c := range changed {
		assert.NotEqual(t, a.Key(), c.Key())
	}
}

func TestKeySeparatorCannotShift(t *testing.T) {
	// A separator inside a field must not collide with the same bytes
	// split differently across fields.
	a := Reservation{Name: "Kim|010", Phone: "1234", ScheduleText: "x"}
	b := Reservation{Name: "Kim", Phone: "010|1234", ScheduleText: "x"}
	assert.NotEqual(t, a.Key(), b.Key())

	c := Reservation{Name: `Kim\`, Phone: "1234", ScheduleText: "x"}
	d := Reservation{Name: "Kim", Phone: `\1234`, ScheduleText: "x"}
	assert.NotEqual(t, c.Key(), d.Key())
}

func TestPhoneDigits(t *testing.T) {
	r := Reservation{Phone: "010-1234-5678"}
	assert.Equal(t, "01012345678", r.PhoneDigits())

	r = Reservation{Phone: "01012345678"}
	assert.Equal(t, "01012345678", r.PhoneDigits())
}

func TestSplitPhone(t *testing.T) {
	tests := []struct {
		digits    string
		mid, last string
	}{
		{"01012345678", "1234", "5678"},
		{"0101234567", "123", "4567"},
		{"123", "", ""},
		{"", "", ""},
	}
	for _, tc := range tests {
		mid, last := SplitPhone(tc.digits)
		assert.Equal(t, tc.mid, mid, "digits=%q", tc.digits)
		assert.Equal(t, tc.last, last, "digits=%q", tc.digits)
	}
}
