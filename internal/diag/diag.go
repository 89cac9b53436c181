// Package diag writes timestamped page-markup artifacts on selected
// failure points. It is a side channel: a failed capture is logged and
// never affects reconciliation outcomes.
package diag

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
)

type Recorder struct {
	dir string
	log *slog.Logger
	now func() time.Time
}

func NewRecorder(dir string, log *slog.Logger) *Recorder {
	return &Recorder{dir: dir, log: log, now: time.Now}
}

// Capture writes html under a label_timestamp_id.html name and returns the
// path, or "" when the write failed or the recorder is disabled.
func (r *Recorder) Capture(label, html string) string {
	if r == nil || r.dir == "" {
		return ""
	}
	if err := os.MkdirAll(r.dir, 0o755); err != nil {
		r.log.Warn("diagnostic capture failed", "label", label, "err", err)
		return ""
	}
	name := fmt.Sprintf("%s_%s_%s.html",
		label, r.now().Format("20060102T150405"), uuid.NewString()[:8])
	path := filepath.Join(r.dir, name)
	if err := os.WriteFile(path, []byte(html), 0o644); err != nil {
		r.log.Warn("diagnostic capture failed", "label", label, "err", err)
		return ""
	}
	r.log.Info("diagnostic capture written", "label", label, "path", path)
	return path
}
