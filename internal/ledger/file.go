package ledger

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
)

// File is a ledger persisted as a JSON array of keys, rewritten atomically
// (temp file + rename) on each Add.
type File struct {
	path string
	keys map[string]struct{}
	log  *slog.Logger
}

// OpenFile loads the snapshot at path. An unreadable or corrupt snapshot is
// a warning, not an error: the ledger starts empty and the system degrades
// to reprocessing rather than refusing to start.
func OpenFile(path string, log *slog.Logger) *File {
	f := &File{path: path, keys: make(map[string]struct{}), log: log}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return f
	}
	if err != nil {
		log.Warn("ledger unreadable, starting empty", "path", path, "err", err)
		return f
	}
	var keys []string
	if err := json.Unmarshal(data, &keys); err != nil {
		log.Warn("ledger corrupt, starting empty", "path", path, "err", err)
		return f
	}
	for _, k := range keys {
		f.keys[k] = struct{}{}
	}
	return f
}

func (f *File) Has(key string) bool {
	_, ok := f.keys[key]
	return ok
}

func (f *File) Add(key string) error {
	if _, ok := f.keys[key]; ok {
		return nil
	}
	f.keys[key] = struct{}{}
	if err := f.flush(); err != nil {
		// Keep the in-memory entry; the next successful flush carries it.
		return fmt.Errorf("ledger: persist %q: %w", key, err)
	}
	return nil
}

func (f *File) Len() int { return len(f.keys) }

func (f *File) Keys() []string {
	out := make([]string, 0, len(f.keys))
	for k := range f.keys {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func (f *File) flush() error {
	data, err := json.MarshalIndent(f.Keys(), "", "  ")
	if err != nil {
		return err
	}
	dir := filepath.Dir(f.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, ".ledger-*")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), f.path)
}
