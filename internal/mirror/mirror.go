// Package mirror provides the durable backends a store flushes its snapshot
// document to. A mirror holds one JSON array document per store kind; it never
// interprets the document, so every backend shares the loader contract.
package mirror

import "fmt"

// Mirror persists and recalls one snapshot document per store kind.
type Mirror interface {
	// Read returns the last written document for kind. ok is false when no
	// document has ever been written, which is not an error.
	Read(kind string) (data []byte, ok bool, err error)
	// Write replaces the document for kind. The write must be atomic: a crash
	// mid-write leaves either the old document or the new one, never a blend.
	Write(kind string, data []byte) error
	Close() error
}

// Open builds the configured backend rooted at dir.
func Open(backend string, dir string) (Mirror, error) {
	switch backend {
	case "", "file":
		return NewFilesystem(dir), nil
	case "pebble":
		return NewPebble(dir)
	default:
		return nil, fmt.Errorf("unknown mirror backend %q", backend)
	}
}
