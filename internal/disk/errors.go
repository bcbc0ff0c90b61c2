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
package disk

import "fmt"

// Kind classifies a disk/staging-layer failure into the categories a caller
// can branch on, independently of the underlying OS error text.
type Kind int

const (
	KindUnknown Kind = iota
	KindInvalidArgument
	KindPermissionDenied
	KindIoError
	KindSeek
	KindOversizedDisk
	KindNoFreeSlot
	KindHasStagedChanges
	KindNoMemory
	KindNotFound
)

func (k Kind) String() string {
	switch k {
	case KindInvalidArgument:
		return "invalid argument"
	case KindPermissionDenied:
		return "permission denied"
	case KindIoError:
		return "I/O error"
	case KindSeek:
		return "seek error"
	case KindOversizedDisk:
		return "disk exceeds the supported 32GiB limit"
	case KindNoFreeSlot:
		return "no free partition slot"
	case KindHasStagedChanges:
		return "disk has uncommitted staged changes"
	case KindNoMemory:
		return "allocation failed"
	case KindNotFound:
		return "not found"
	default:
		return "unknown error"
	}
}

// Error wraps an underlying cause with a Kind so callers can use errors.Is
// against the sentinel Err* values below instead of matching strings.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("disk: %s: %s: %v", e.Op, e.Kind, e.Err)
	}
	return fmt.Sprintf("disk: %s: %s", e.Op, e.Kind)
}

func (e *Error) Unwrap() error { return e.Err }

func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

func newErr(op string, kind Kind, err error) *Error {
	return &Error{Op: op, Kind: kind, Err: err}
}

var (
	ErrInvalidArgument   = &Error{Kind: KindInvalidArgument}
	ErrPermissionDenied  = &Error{Kind: KindPermissionDenied}
	ErrIoError           = &Error{Kind: KindIoError}
	ErrSeek              = &Error{Kind: KindSeek}
	ErrOversizedDisk     = &Error{Kind: KindOversizedDisk}
	ErrNoFreeSlot        = &Error{Kind: KindNoFreeSlot}
	ErrHasStagedChanges  = &Error{Kind: KindHasStagedChanges}
	ErrNoMemory          = &Error{Kind: KindNoMemory}
	ErrNotFound          = &Error{Kind: KindNotFound}
)
