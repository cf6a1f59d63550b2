package errutils

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"syscall"
)

// ItemError records the failure of one item in a bulk operation.
type ItemError struct {
	ID  string
	Err error
}

func (e *ItemError) Error() string {
	return fmt.Sprintf("%s: %v", e.ID, e.Err)
}

func (e *ItemError) Unwrap() error {
	return e.Err
}

// BatchError collects per-item failures. It matches ErrPartialFailure and
// every wrapped item error.
type BatchError struct {
	Items []*ItemError
}

// Add records a failure for id. A nil err is ignored.
func (b *BatchError) Add(id string, err error) {
	if err == nil {
		return
	}
	b.Items = append(b.Items, &ItemError{ID: id, Err: err})
}

// Len returns the number of failed items.
func (b *BatchError) Len() int {
	if b == nil {
		return 0
	}
	return len(b.Items)
}

// ErrOrNil returns b as an error when it holds at least one failure.
func (b *BatchError) ErrOrNil() error {
	if b.Len() == 0 {
		return nil
	}
	return b
}

func (b *BatchError) Error() string {
	parts := make([]string, 0, len(b.Items))
	for _, item := range b.Items {
		parts = append(parts, item.Error())
	}
	return fmt.Sprintf("%s (%d failed): %s", ErrPartialFailure, len(b.Items), strings.Join(parts, "; "))
}

func (b *BatchError) Unwrap() []error {
	errs := make([]error, 0, len(b.Items)+1)
	errs = append(errs, ErrPartialFailure)
	for _, item := range b.Items {
		errs = append(errs, item)
	}
	return errs
}

// Classify maps OS and context errors onto the taxonomy. Errors that already
// carry a taxonomy sentinel are returned unchanged.
func Classify(err error) error {
	if err == nil {
		return nil
	}
	for _, known := range []error{
		ErrPermission, ErrIO, ErrNotFound, ErrCorruptArchive, ErrPartialFailure,
		ErrInsufficientSpace, ErrSourceUnreadable, ErrDestinationWrite, ErrCanceled,
	} {
		if errors.Is(err, known) {
			return err
		}
	}
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("%w: %w", ErrCanceled, err)
	case errors.Is(err, fs.ErrPermission):
		return fmt.Errorf("%w: %w", ErrPermission, err)
	case errors.Is(err, fs.ErrNotExist):
		return fmt.Errorf("%w: %w", ErrNotFound, err)
	case errors.Is(err, syscall.ENOSPC):
		return fmt.Errorf("%w: %w", ErrInsufficientSpace, err)
	default:
		return fmt.Errorf("%w: %w", ErrIO, err)
	}
}
