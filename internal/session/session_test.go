package session

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/visitsync/internal/browser"
	"github.com/example/visitsync/internal/config"
	"github.com/example/visitsync/internal/secrets"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, nil))
}

func testConfig() config.Config {
	cfg, _ := config.FromEnv()
	return cfg
}

func TestStateSealRoundTrip(t *testing.T) {
	codec, err := NewCodec(make([]byte, 32), make([]byte, 32))
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "state.sealed")
	in := State{
		Target: []browser.Cookie{{Name: "sid", Value: "abc", Domain: "clinic.example.com"}},
	}
	require.NoError(t, codec.Save(path, in))

	// Sealed on disk, not plaintext.
	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "abc")

	out, err := codec.Load(path)
	require.NoError(t, err)
	assert.Equal(t, in, out)
}

func TestStateSealFullSizedSnapshot(t *testing.T) {
	codec, err := NewCodec(make([]byte, 32), make([]byte, 32))
	require.NoError(t, err)

	// A realistic authenticated session: a dozen-plus cookies per system,
	// some carrying long opaque tokens. Well past 4KB once sealed.
	long := strings.Repeat("t", 1600)
	var in State
	for i := 0; i < 14; i++ {
		in.Source = append(in.Source, browser.Cookie{
			Name: fmt.Sprintf("src_%d", i), Value: long, Domain: "reservation.example.com", Path: "/",
		})
		in.Target = append(in.Target, browser.Cookie{
			Name: fmt.Sprintf("tgt_%d", i), Value: long, Domain: "clinic.example.com", Path: "/",
		})
	}

	path := filepath.Join(t.TempDir(), "state.sealed")
	require.NoError(t, codec.Save(path, in))

	out, err := codec.Load(path)
	require.NoError(t, err)
	assert.Equal(t, in, out)
}

func TestStateWrongKeyFails(t *testing.T) {
	codec, err := NewCodec(make([]byte, 32), make([]byte, 32))
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "state.sealed")
	require.NoError(t, codec.Save(path, State{}))

	other, err := NewCodec([]byte("0123456789abcdef0123456789abcdef"), nil)
	require.NoError(t, err)
	_, err = other.Load(path)
	assert.Error(t, err)
}

func TestCodecRequiresHashKey(t *testing.T) {
	_, err := NewCodec(nil, nil)
	assert.Error(t, err)
}

func TestTargetLoggedOutByURL(t *testing.T) {
	cfg := testConfig()
	page := browser.NewFake()
	page.Location = "https://clinic.example.com/login?next=list"

	mgr := NewTarget(page, cfg, secrets.Credentials{}, testLogger())
	assert.True(t, mgr.LoggedOut(context.Background()))
}

func TestTargetLoggedOutByLoginForm(t *testing.T) {
	cfg := testConfig()
	page := browser.NewFake()
	page.Location = "https://clinic.example.com/hospital/reception/list"
	page.Visible[cfg.Selectors.LoginUser] = true

	mgr := NewTarget(page, cfg, secrets.Credentials{}, testLogger())
	assert.True(t, mgr.LoggedOut(context.Background()))

	page.Visible[cfg.Selectors.LoginUser] = false
	assert.False(t, mgr.LoggedOut(context.Background()))
}

func TestTargetReauthenticate(t *testing.T) {
	cfg := testConfig()
	page := browser.NewFake()
	page.Visible[cfg.Selectors.LoginUser] = true
	page.OnClick = func(sel string) {
		if sel == cfg.Selectors.LoginSubmit {
			page.Location = "https://clinic.example.com/hospital/reception/list"
		}
	}

	mgr := NewTarget(page, cfg, secrets.Credentials{Username: "clinic", Password: "pw"}, testLogger())
	require.NoError(t, mgr.Reauthenticate(context.Background()))

	assert.Equal(t, "clinic", page.Fills[cfg.Selectors.LoginUser])
	assert.Equal(t, "pw", page.Fills[cfg.Selectors.LoginPass])
}

func TestSourceRefreshNavigatesWindow(t *testing.T) {
	cfg := testConfig()
	cfg.SourceListURL = "https://s.example/?gte=%s&lte=%s"
	cfg.SourceWindowDays = 7

	page := browser.NewFake()
	src := NewSource(page, cfg, testLogger())
	src.now = func() time.Time { return time.Date(2024, 6, 10, 9, 0, 0, 0, time.UTC) }

	require.NoError(t, src.Refresh(context.Background()))
	require.Len(t, page.NavLog, 1)
	assert.Equal(t, "https://s.example/?gte=2024-06-10&lte=2024-06-17", page.NavLog[0])
}
