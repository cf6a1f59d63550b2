package errutils

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"syscall"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWrap(t *testing.T) {
	assert.Nil(t, Wrap(nil, "ctx"))
	assert.Nil(t, Wrapf(nil, "ctx %d", 1))

	err := Wrapf(ErrNotFound, "package %s", "com.example")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, "package com.example: not found", err.Error())
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		in   error
		want error
	}{
		{"permission", &fs.PathError{Op: "open", Path: "/x", Err: fs.ErrPermission}, ErrPermission},
		{"not exist", &fs.PathError{Op: "open", Path: "/x", Err: fs.ErrNotExist}, ErrNotFound},
		{"no space", &fs.PathError{Op: "write", Path: "/x", Err: syscall.ENOSPC}, ErrInsufficientSpace},
		{"canceled", context.Canceled, ErrCanceled},
		{"other", errors.New("boom"), ErrIO},
		{"already classified", Wrap(ErrCorruptArchive, "parse"), ErrCorruptArchive},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, Classify(tt.in), tt.want)
		})
	}
	assert.Nil(t, Classify(nil))
}

func TestBatchError(t *testing.T) {
	var batch BatchError
	assert.NoError(t, batch.ErrOrNil())

	batch.Add("a", nil)
	batch.Add("b", fmt.Errorf("copy: %w", ErrSourceUnreadable))
	batch.Add("c", ErrPermission)

	err := batch.ErrOrNil()
	assert.Error(t, err)
	assert.Equal(t, 2, batch.Len())
	assert.ErrorIs(t, err, ErrPartialFailure)
	assert.ErrorIs(t, err, ErrSourceUnreadable)
	assert.ErrorIs(t, err, ErrPermission)
	assert.Contains(t, err.Error(), "b: copy: source unreadable")

	var item *ItemError
	assert.True(t, errors.As(err, &item))
	assert.Equal(t, "b", item.ID)
}
