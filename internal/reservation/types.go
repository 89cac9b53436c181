package reservation

import "strings"

// Reservation is one row extracted from the source listing. Values are kept
// exactly as displayed; derived forms (digits-only phone, parsed schedule)
// are computed on demand.
type Reservation struct {
	Name         string
	Phone        string
	ScheduleText string
}

// Key is the identity used for deduplication and the processed ledger.
// It is a pure function of the three displayed fields; no source- or
// target-assigned identifier is involved. Separators inside field values
// are escaped so two reservations differing in any field can never share
// a key.
func (r Reservation) Key() string {
	return keyPart(r.Name) + "|" + keyPart(r.Phone) + "|" + keyPart(r.ScheduleText)
}

func keyPart(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	return strings.ReplaceAll(s, "|", `\|`)
}

// PhoneDigits strips everything but digits from the displayed phone number.
func (r Reservation) PhoneDigits() string {
	var b strings.Builder
	for _, c := range r.Phone {
		if c >= '0' && c <= '9' {
			b.WriteByte(byte(c))
		}
	}
	return b.String()
}

// SplitPhone splits a digits-only phone number into its middle and last
// segments: 11-digit numbers split 3/4/4, 10-digit numbers 3/3/4.
// Any other length returns empty segments; callers skip the fill.
func SplitPhone(digits string) (mid, last string) {
	switch len(digits) {
	case 11:
		return digits[3:7], digits[7:]
	case 10:
		return digits[3:6], digits[6:]
	}
	return "", ""
}
