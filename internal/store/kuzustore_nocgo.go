//go:build !cgo

package store

import "fmt"

func openPersistent(dbPath string) (Store, error) {
	return nil, fmt.Errorf("%w: %s", ErrPersistenceUnavailable, dbPath)
}
