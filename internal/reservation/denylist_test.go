package reservation

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDenylist(t *testing.T) {
	d := NewDenylist([]string{"홍길동"}, []string{"010-6436-7706"})

	assert.True(t, d.Blocked(Reservation{Name: "홍길동", Phone: "010-0000-0000"}))
	assert.True(t, d.Blocked(Reservation{Name: "김철수", Phone: "01064367706"}))
	assert.False(t, d.Blocked(Reservation{Name: "김철수", Phone: "010-1111-2222"}))
}

func TestDenylistEmpty(t *testing.T) {
	d := NewDenylist(nil, nil)
	assert.False(t, d.Blocked(Reservation{Name: "Kim", Phone: "01012345678"}))
}
