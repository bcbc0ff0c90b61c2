// Copyright (c) 2025 Stefano Scafiti
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in
// all copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN
// THE SOFTWARE.

// Package zealfs implements the ZealFS v2 filesystem engine: the on-disk
// layout and formatter, the path resolver, and the file/directory
// operations, translated from original_source/src/zealfs/zealfs_v2.c.
package zealfs

import (
	"errors"
	"fmt"
)

// Kind classifies a ZealFS operation failure: the filesystem-level subset
// of the error kinds spec.md §7 names (the disk package's Kind covers the
// rest), matching the negative errno values the C implementation returns.
type Kind int

const (
	KindUnknown Kind = iota
	KindNotFound
	KindAlreadyExists
	KindNotDirectory
	KindIsDirectory
	KindNotEmpty
	KindNameTooLong
	KindNoSpace
	KindInvalidArgument
	KindIoError
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not found"
	case KindAlreadyExists:
		return "already exists"
	case KindNotDirectory:
		return "not a directory"
	case KindIsDirectory:
		return "is a directory"
	case KindNotEmpty:
		return "directory not empty"
	case KindNameTooLong:
		return "name too long"
	case KindNoSpace:
		return "no space left"
	case KindInvalidArgument:
		return "invalid argument"
	case KindIoError:
		return "I/O error"
	default:
		return "unknown error"
	}
}

// Error wraps a Kind with the operation and underlying cause, mirroring
// internal/disk.Error's shape.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("zealfs: %s: %s: %v", e.Op, e.Kind, e.Err)
	}
	return fmt.Sprintf("zealfs: %s: %s", e.Op, e.Kind)
}

func (e *Error) Unwrap() error { return e.Err }

func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

func newErr(op string, kind Kind, err error) *Error {
	return &Error{Op: op, Kind: kind, Err: err}
}

// KindOf extracts the Kind carried by err, or KindUnknown if err is nil or
// not one of this package's errors. Used by callers (the FUSE layer in
// particular) that need to map a failure onto their own error space without
// a type switch at every call site.
func KindOf(err error) Kind {
	var zerr *Error
	if errors.As(err, &zerr) {
		return zerr.Kind
	}
	return KindUnknown
}

var (
	ErrNotFound        = &Error{Kind: KindNotFound}
	ErrAlreadyExists   = &Error{Kind: KindAlreadyExists}
	ErrNotDirectory    = &Error{Kind: KindNotDirectory}
	ErrIsDirectory     = &Error{Kind: KindIsDirectory}
	ErrNotEmpty        = &Error{Kind: KindNotEmpty}
	ErrNameTooLong     = &Error{Kind: KindNameTooLong}
	ErrNoSpace         = &Error{Kind: KindNoSpace}
	ErrInvalidArgument = &Error{Kind: KindInvalidArgument}
	ErrIoError         = &Error{Kind: KindIoError}
)
