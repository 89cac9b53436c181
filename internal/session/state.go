// Package session owns authentication state for the two external systems.
// Only the managers here transition session state; the extractor and
// applier just ask for operations that may do so.
package session

import (
	"fmt"
	"os"

	"github.com/gorilla/securecookie"

	"github.com/example/visitsync/internal/browser"
)

const stateName = "visitsync_state"

// State is the persisted cookie snapshot for both systems, captured once by
// the auth-setup flow and restored at the start of every run.
type State struct {
	Source []browser.Cookie `json:"source"`
	Target []browser.Cookie `json:"target"`
}

// Codec seals State to disk. Session cookies are credentials, so the file
// is HMAC-signed and encrypted rather than plaintext JSON.
type Codec struct {
	sc *securecookie.SecureCookie
}

func NewCodec(hashKey, blockKey []byte) (*Codec, error) {
	if len(hashKey) == 0 {
		return nil, fmt.Errorf("session: hash key required")
	}
	sc := securecookie.New(hashKey, blockKey)
	sc.SetSerializer(securecookie.JSONEncoder{})
	// Snapshots do not expire on their own; staleness shows up as a
	// logged-out page and is handled by re-authentication.
	sc.MaxAge(0)
	// The sealed value goes to a file, not a Set-Cookie header, so the
	// library's 4K cookie cap must not apply: a real two-system snapshot
	// is well past it after JSON, encryption and base64.
	sc.MaxLength(0)
	return &Codec{sc: sc}, nil
}

func (c *Codec) Save(path string, st State) error {
	encoded, err := c.sc.Encode(stateName, st)
	if err != nil {
		return fmt.Errorf("session: seal state: %w", err)
	}
	return os.WriteFile(path, []byte(encoded), 0o600)
}

func (c *Codec) Load(path string) (State, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return State{}, err
	}
	var st State
	if err := c.sc.Decode(stateName, string(data), &st); err != nil {
		return State{}, fmt.Errorf("session: unseal state: %w", err)
	}
	return st, nil
}
