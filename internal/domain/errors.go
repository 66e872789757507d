package domain

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound           = errors.New("not found")
	ErrNoMatch            = errors.New("catalog: no match")
	ErrCatalogUnavailable = errors.New("catalog: unavailable")
)

// CatalogError reports an upstream failure while reading the catalog.
// It matches both ErrCatalogUnavailable and the underlying cause.
type CatalogError struct {
	Op  string // countries | areas | all-areas | locations | search
	Err error
}

func (e *CatalogError) Error() string {
	return fmt.Sprintf("catalog %s: %v", e.Op, e.Err)
}

func (e *CatalogError) Unwrap() []error {
	return []error{ErrCatalogUnavailable, e.Err}
}
