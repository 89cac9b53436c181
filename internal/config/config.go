// Package config assembles the runtime configuration from environment
// variables with defaults, plus an optional YAML file that carries the
// selector map, locale tokens and denylist.
package config

import (
	"encoding/base64"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/example/visitsync/internal/reservation"
)

const (
	PolicyRetry = "retry" // failed reservations retried next cycle
	PolicyMark  = "mark"  // failed reservations marked processed anyway
)

type Config struct {
	// SourceListURL is a template with two %s slots for the inclusive
	// date-window bounds (YYYY-MM-DD).
	SourceListURL    string
	SourceWindowDays int

	TargetBaseURL   string
	TargetLoginURL  string
	TargetLoginPath string // URL substring marking login pages
	TargetHomePath  string // URL substring marking authenticated pages

	PollInterval     time.Duration
	StepDelay        time.Duration
	ReservationDelay time.Duration

	LedgerDriver string // "file" or "sqlite"
	LedgerPath   string
	DatabaseURL  string // optional attempt-history Postgres
	StatusAddr   string // optional ops listener; empty disables
	DiagDir      string
	LogFile      string
	StatePath    string
	Headless     bool

	FailurePolicy string

	// Keys sealing the persisted session state. Optional: without them the
	// state file is not used and the target manager logs in fresh.
	HashKey  []byte
	BlockKey []byte

	CredsFile  string
	Passphrase string
	// Plaintext fallback for development; the credentials file wins.
	TargetUsername string
	TargetPassword string

	DenyNames  []string
	DenyPhones []string

	Markers      reservation.Markers
	TreatmentOff string
	TreatmentOn  string

	Selectors Selectors
}

func FromEnv() (Config, error) {
	cfg := Config{
		SourceListURL:    getenv("VISITSYNC_SOURCE_URL", "https://reservation.example.com/?stateTypes=&reservationDate=dateTime&gte=%s&lte=%s&platformTypes=&productUuids=&bookingName=&bookingNameText=&reservationUuid="),
		SourceWindowDays: getint("VISITSYNC_SOURCE_WINDOW_DAYS", 7),
		TargetBaseURL:    getenv("VISITSYNC_TARGET_URL", "https://clinic.example.com/hospital/reception/list"),
		TargetLoginURL:   getenv("VISITSYNC_TARGET_LOGIN_URL", "https://clinic.example.com/login"),
		TargetLoginPath:  getenv("VISITSYNC_TARGET_LOGIN_PATH", "/login"),
		TargetHomePath:   getenv("VISITSYNC_TARGET_HOME_PATH", "/hospital/"),

		LedgerDriver: getenv("VISITSYNC_LEDGER_DRIVER", "file"),
		LedgerPath:   getenv("VISITSYNC_LEDGER_PATH", "processed_reservations.json"),
		DatabaseURL:  os.Getenv("DATABASE_URL"),
		StatusAddr:   os.Getenv("VISITSYNC_STATUS_ADDR"),
		DiagDir:      getenv("VISITSYNC_DIAG_DIR", "diagnostics"),
		LogFile:      getenv("VISITSYNC_LOG_FILE", "visitsync.log"),
		StatePath:    getenv("VISITSYNC_STATE_PATH", "session_state.sealed"),
		Headless:     getbool("VISITSYNC_HEADLESS", true),

		FailurePolicy: getenv("VISITSYNC_FAILURE_POLICY", PolicyRetry),

		CredsFile:      os.Getenv("VISITSYNC_CREDS_FILE"),
		Passphrase:     os.Getenv("VISITSYNC_PASSPHRASE"),
		TargetUsername: os.Getenv("VISITSYNC_TARGET_USERNAME"),
		TargetPassword: os.Getenv("VISITSYNC_TARGET_PASSWORD"),

		Markers:      reservation.DefaultMarkers,
		TreatmentOff: getenv("VISITSYNC_TREATMENT_OFF", "침치료"),
		TreatmentOn:  getenv("VISITSYNC_TREATMENT_ON", "예약진료"),

		Selectors: defaultSelectors(),
	}

	pollSec := getint("VISITSYNC_POLL_SECONDS", 60)
	if pollSec < 1 {
		return Config{}, fmt.Errorf("invalid VISITSYNC_POLL_SECONDS")
	}
	cfg.PollInterval = time.Duration(pollSec) * time.Second
	cfg.StepDelay = time.Duration(getint("VISITSYNC_STEP_DELAY_MS", 1000)) * time.Millisecond
	cfg.ReservationDelay = time.Duration(getint("VISITSYNC_RESERVATION_DELAY_MS", 2000)) * time.Millisecond

	switch cfg.FailurePolicy {
	case PolicyRetry, PolicyMark:
	default:
		return Config{}, fmt.Errorf("invalid VISITSYNC_FAILURE_POLICY %q (want %q or %q)", cfg.FailurePolicy, PolicyRetry, PolicyMark)
	}
	switch cfg.LedgerDriver {
	case "file", "sqlite":
	default:
		return Config{}, fmt.Errorf("invalid VISITSYNC_LEDGER_DRIVER %q (want file or sqlite)", cfg.LedgerDriver)
	}

	var err error
	if v := os.Getenv("VISITSYNC_HASH_KEY"); v != "" {
		if cfg.HashKey, err = decodeB64(v); err != nil {
			return Config{}, fmt.Errorf("VISITSYNC_HASH_KEY: %w", err)
		}
	}
	if v := os.Getenv("VISITSYNC_BLOCK_KEY"); v != "" {
		if cfg.BlockKey, err = decodeB64(v); err != nil {
			return Config{}, fmt.Errorf("VISITSYNC_BLOCK_KEY: %w", err)
		}
	}

	if path := os.Getenv("VISITSYNC_CONFIG"); path != "" {
		if err := cfg.applyFile(path); err != nil {
			return Config{}, err
		}
	}
	return cfg, nil
}

// fileConfig overlays the parts of the configuration that are data rather
// than deployment wiring. Fields point into the Config so YAML only
// overwrites what the file actually specifies.
type fileConfig struct {
	SourceListURL *string              `yaml:"source_list_url"`
	TargetBaseURL *string              `yaml:"target_base_url"`
	Markers       *reservation.Markers `yaml:"markers"`
	Denylist      *struct {
		Names  []string `yaml:"names"`
		Phones []string `yaml:"phones"`
	} `yaml:"denylist"`
	Treatment *struct {
		Off string `yaml:"off"`
		On  string `yaml:"on"`
	} `yaml:"treatment"`
	Selectors *Selectors `yaml:"selectors"`
}

func (c *Config) applyFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config file: %w", err)
	}
	fc := fileConfig{
		SourceListURL: &c.SourceListURL,
		TargetBaseURL: &c.TargetBaseURL,
		Markers:       &c.Markers,
		Selectors:     &c.Selectors,
	}
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return fmt.Errorf("config file %s: %w", path, err)
	}
	if fc.Denylist != nil {
		c.DenyNames = fc.Denylist.Names
		c.DenyPhones = fc.Denylist.Phones
	}
	if fc.Treatment != nil {
		c.TreatmentOff = fc.Treatment.Off
		c.TreatmentOn = fc.Treatment.On
	}
	return nil
}

// SourceURL renders the listing URL for the window [now, now+WindowDays].
func (c Config) SourceURL(now time.Time) string {
	gte := now.Format("2006-01-02")
	lte := now.AddDate(0, 0, c.SourceWindowDays).Format("2006-01-02")
	return fmt.Sprintf(c.SourceListURL, gte, lte)
}

func getenv(k, def string) string {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	return v
}

func getint(k string, def int) int {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func getbool(k string, def bool) bool {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func decodeB64(s string) ([]byte, error) {
	if b, err := os.ReadFile(s); err == nil {
		// Allow pointing at a file path for secret mounts.
		s = string(b)
	}
	return base64.StdEncoding.DecodeString(strings.TrimSpace(s))
}
