// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/qrc

package qrc

import (
	"errors"
	"fmt"
	"strings"
)

// Error kind sentinels. Every *Error matches exactly one of them with errors.Is.
var (
	// ErrFormat means container structure is malformed or addresses data outside known extents.
	ErrFormat = errors.New("resource container format error")
	// ErrEncoding means entry name could not be transcoded from UTF-16BE.
	ErrEncoding = errors.New("resource name encoding error")
	// ErrDecompression means compressed payload could not be inflated to expected size.
	ErrDecompression = errors.New("resource payload decompression error")
	// ErrIO means output filesystem operation failed.
	ErrIO = errors.New("resource output I/O error")
)

// Sentinel causes wrapped by *Error. Use errors.Is in callers.
var (
	// ErrUnsupportedVersion means tree record version is not 1, 2 or 3.
	ErrUnsupportedVersion = errors.New("unsupported resource format version")
	// ErrOutOfBounds means offset or length exceeds caller-supplied buffer extent.
	ErrOutOfBounds = errors.New("offset out of buffer bounds")
	// ErrNodeCycle means tree node is reachable from more than one parent.
	ErrNodeCycle = errors.New("tree node visited twice")
	// ErrNotDirectory means root node is not a directory.
	ErrNotDirectory = errors.New("root node is not a directory")
	// ErrPathTooLong means resolved output path exceeds configured limit.
	ErrPathTooLong = errors.New("output path exceeds maximum length")
	// ErrInvalidName means decoded entry name is unsafe as a path segment.
	ErrInvalidName = errors.New("invalid entry name")
	// ErrInvalidHeader means binary resource file is missing or has a bad header.
	ErrInvalidHeader = errors.New("invalid resource file: missing or bad header")
	// ErrUnpairedSurrogate means name contains a lone UTF-16 surrogate code unit.
	ErrUnpairedSurrogate = errors.New("unpaired UTF-16 surrogate")
	// ErrSizeMismatch means inflated payload size differs from stored hint.
	ErrSizeMismatch = errors.New("decompressed size mismatch")
	// ErrSizeOverflow means a size does not fit in the 32-bit container limits.
	ErrSizeOverflow = errors.New("size exceeds uint32 container limit")
	// ErrEntryNotFound means the entry is not found.
	ErrEntryNotFound = errors.New("entry not found")
	// ErrNilWriter means the writer is nil.
	ErrNilWriter = errors.New("writer is nil")
	// ErrNilFilesystem means extraction target filesystem is nil.
	ErrNilFilesystem = errors.New("output filesystem is nil")
	// ErrEmptyInputs means no inputs provided for build.
	ErrEmptyInputs = errors.New("no inputs provided for build")
	// ErrInvalidEntryPath means one of input entry paths is empty or invalid after normalization.
	ErrInvalidEntryPath = errors.New("invalid entry path")
	// ErrDuplicateEntryPath means two inputs resolve to the same path or a file shadows a directory.
	ErrDuplicateEntryPath = errors.New("duplicate entry path")
	// ErrInvalidCompressPattern means one or more compression rules are invalid.
	ErrInvalidCompressPattern = errors.New("invalid compress rules")
	// ErrInvalidIncludePattern means one or more extract include rules are invalid.
	ErrInvalidIncludePattern = errors.New("invalid include rules")
)

// ErrorKind classifies fatal extraction failures.
type ErrorKind uint8

// Error kinds.
const (
	KindFormat ErrorKind = iota + 1
	KindEncoding
	KindDecompression
	KindIO
)

// String returns the kind name.
func (k ErrorKind) String() string {
	switch k {
	case KindFormat:
		return "format"
	case KindEncoding:
		return "encoding"
	case KindDecompression:
		return "decompression"
	case KindIO:
		return "io"
	default:
		return "unknown"
	}
}

// sentinel returns the errors.Is target for kind.
func (k ErrorKind) sentinel() error {
	switch k {
	case KindFormat:
		return ErrFormat
	case KindEncoding:
		return ErrEncoding
	case KindDecompression:
		return ErrDecompression
	case KindIO:
		return ErrIO
	default:
		return nil
	}
}

// Error is a structured extraction failure carrying node and offset context.
type Error struct {
	// Err is the underlying cause.
	Err error
	// Op names the failed step ("node", "name", "data", "mkdir", "write", ...).
	Op string
	// Path is the resolved entry path, empty when not yet known.
	Path string
	// Offset is the buffer offset involved, -1 when not applicable.
	Offset int64
	// Index is the tree node index.
	Index uint32
	// Kind classifies the failure.
	Kind ErrorKind
}

// Error formats kind, op, node context and cause.
func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(e.Kind.String())
	b.WriteString(" error: ")
	b.WriteString(e.Op)
	fmt.Fprintf(&b, " node %d", e.Index)
	if e.Path != "" {
		fmt.Fprintf(&b, " %q", e.Path)
	}
	if e.Offset >= 0 {
		fmt.Fprintf(&b, " at offset %d", e.Offset)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}

	return b.String()
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is the kind sentinel of e.
func (e *Error) Is(target error) bool {
	sentinel := e.Kind.sentinel()
	return sentinel != nil && target == sentinel
}

// newError builds a structured error without path context.
func newError(kind ErrorKind, op string, index uint32, offset int64, err error) *Error {
	return &Error{Kind: kind, Op: op, Index: index, Offset: offset, Err: err}
}

// withPath attaches resolved entry path to err when it is an *Error without one.
func withPath(err error, entryPath string) error {
	var qe *Error
	if errors.As(err, &qe) && qe.Path == "" {
		qe.Path = entryPath
	}

	return err
}
