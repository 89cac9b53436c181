package reservation

// Denylist excludes specific identities from processing. Matching is by
// exact name or by digits-only phone number.
type Denylist struct {
	names  map[string]struct{}
	phones map[string]struct{}
}

func NewDenylist(names, phones []string) Denylist {
	d := Denylist{
		names:  make(map[string]struct{}, len(names)),
		phones: make(map[string]struct{}, len(phones)),
	}
	for _, n := range names {
		if n != "" {
			d.names[n] = struct{}{}
		}
	}
	for _, p := range phones {
		digits := (Reservation{Phone: p}).PhoneDigits()
		if digits != "" {
			d.phones[digits] = struct{}{}
		}
	}
	return d
}

func (d Denylist) Blocked(r Reservation) bool {
	if _, ok := d.names[r.Name]; ok {
		return true
	}
	_, ok := d.phones[r.PhoneDigits()]
	return ok
}
