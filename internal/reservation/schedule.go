package reservation

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Markers are the two locale tokens marking the half of the day in the
// source's schedule text.
type Markers struct {
	Morning   string
	Afternoon string
}

var DefaultMarkers = Markers{Morning: "오전", Afternoon: "오후"}

// Schedule is the parsed form of a reservation's schedule text, with the
// hour already converted to the 24-hour clock.
type Schedule struct {
	Year   int
	Month  int
	Day    int
	Hour   int
	Minute int
}

var (
	dateRe = regexp.MustCompile(`(\d{4})\.\s*(\d{1,2})\.\s*(\d{1,2})`)
	timeRe = regexp.MustCompile(`(\d{1,2}):(\d{2})`)
)

// HasTimeToken reports whether text contains a recognizable HH:MM time
// token. Rows with a date but no confirmed time fail this check.
func HasTimeToken(text string) bool {
	return timeRe.MatchString(text)
}

// ParseSchedule parses text of the shape
//
//	<year>.<month>.<day> (<weekday>) <marker> <hour>:<minute>
//
// The weekday is ignored. The half-day marker converts the hour to the
// 24-hour clock: afternoon hours below 12 gain 12, a morning hour of 12
// becomes 0, anything else passes through. Minutes are unchanged.
func ParseSchedule(text string, m Markers) (Schedule, bool) {
	dm := dateRe.FindStringSubmatch(text)
	tm := timeRe.FindStringSubmatch(text)
	if dm == nil || tm == nil {
		return Schedule{}, false
	}

	s := Schedule{
		Year:   atoi(dm[1]),
		Month:  atoi(dm[2]),
		Day:    atoi(dm[3]),
		Hour:   atoi(tm[1]),
		Minute: atoi(tm[2]),
	}
	if s.Month < 1 || s.Month > 12 || s.Day < 1 || s.Day > 31 || s.Hour > 23 || s.Minute > 59 {
		return Schedule{}, false
	}

	switch {
	case strings.Contains(text, m.Afternoon) && s.Hour < 12:
		s.Hour += 12
	case strings.Contains(text, m.Morning) && s.Hour == 12:
		s.Hour = 0
	}
	return s, true
}

func atoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}

// TimeHHMM renders the zero-padded 24-hour HH:MM form used to match the
// target's time slot controls.
func (s Schedule) TimeHHMM() string {
	return fmt.Sprintf("%02d:%02d", s.Hour, s.Minute)
}

// IsOn reports whether the schedule falls on the same calendar date as t.
// Evaluated at decision time, not poll time: it gates the same-day
// walk-in fallback.
func (s Schedule) IsOn(t time.Time) bool {
	y, m, d := t.Date()
	return s.Year == y && s.Month == int(m) && s.Day == d
}

// PaddingVariants returns the zero-padded and unpadded renderings of a
// month or day number. Source text may use either, so date-label matching
// has to try both.
func PaddingVariants(n int) []string {
	plain := strconv.Itoa(n)
	padded := fmt.Sprintf("%02d", n)
	if plain == padded {
		return []string{plain}
	}
	return []string{padded, plain}
}
