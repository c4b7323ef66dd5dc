package mirror

import (
	"fmt"
	"path/filepath"

	"github.com/cockroachdb/pebble"
)

// Pebble keeps every store kind's snapshot document under its own key in one
// PebbleDB. The document bytes are identical to the file backend, so the two
// backends are interchangeable behind the loader.
type Pebble struct {
	db *pebble.DB
}

func NewPebble(dir string) (*Pebble, error) {
	db, err := pebble.Open(filepath.Clean(dir), &pebble.Options{})
	if err != nil {
		return nil, fmt.Errorf("pebble open: %w", err)
	}
	return &Pebble{db: db}, nil
}

func (p *Pebble) Read(kind string) ([]byte, bool, error) {
	v, closer, err := p.db.Get([]byte(kind))
	if err == pebble.ErrNotFound {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("pebble get %s: %w", kind, err)
	}
	data := append([]byte(nil), v...)
	if err := closer.Close(); err != nil {
		return nil, false, fmt.Errorf("pebble close value: %w", err)
	}
	return data, true, nil
}

func (p *Pebble) Write(kind string, data []byte) error {
	if err := p.db.Set([]byte(kind), data, pebble.Sync); err != nil {
		return fmt.Errorf("pebble set %s: %w", kind, err)
	}
	return nil
}

func (p *Pebble) Close() error { return p.db.Close() }
