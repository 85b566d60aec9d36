//go:build mips64 || mips64le || ppc64 || s390x

package history

import "errors"

// SQLiteStore is a stub on platforms the pure-Go sqlite driver doesn't
// support. Use MemoryStore instead.
type SQLiteStore struct{}

func NewSQLiteStore(path string) (*SQLiteStore, error) {
	return nil, errors.New("history: sqlite storage is not supported on this platform, use memory storage instead")
}

func (s *SQLiteStore) Append(e Event) error {
	return errors.New("history: sqlite storage not available")
}

func (s *SQLiteStore) List(opts ListOptions) ([]Event, error) {
	return nil, errors.New("history: sqlite storage not available")
}

func (s *SQLiteStore) Close() error {
	return nil
}
