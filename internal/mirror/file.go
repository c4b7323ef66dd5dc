package mirror

import (
	"fmt"
	"os"
	"path/filepath"
)

// Filesystem stores each kind as <dir>/<kind>.json. Writes go through a temp
// file and rename so a crash never leaves a half-written document.
type Filesystem struct {
	dir string
}

func NewFilesystem(dir string) *Filesystem {
	return &Filesystem{dir: dir}
}

func (f *Filesystem) path(kind string) string {
	return filepath.Join(f.dir, kind+".json")
}

func (f *Filesystem) Read(kind string) ([]byte, bool, error) {
	data, err := os.ReadFile(f.path(kind))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("read %s: %w", kind, err)
	}
	return data, true, nil
}

func (f *Filesystem) Write(kind string, data []byte) error {
	if err := os.MkdirAll(f.dir, 0o755); err != nil {
		return fmt.Errorf("mkdir: %w", err)
	}
	target := f.path(kind)
	tmp := target + ".tmp"
	out, err := os.OpenFile(tmp, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("create temp: %w", err)
	}
	if _, err := out.Write(data); err != nil {
		out.Close()
		os.Remove(tmp)
		return fmt.Errorf("write temp: %w", err)
	}
	if err := out.Sync(); err != nil {
		out.Close()
		os.Remove(tmp)
		return fmt.Errorf("sync temp: %w", err)
	}
	if err := out.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("close temp: %w", err)
	}
	if err := os.Rename(tmp, target); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("rename: %w", err)
	}
	return nil
}

func (f *Filesystem) Close() error { return nil }
