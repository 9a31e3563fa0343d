// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/qrc

package qrc

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/klauspost/compress/zlib"
	"github.com/klauspost/compress/zstd"
)

// nopCloser wraps a reader and provides a no-op close.
type nopCloser struct {
	io.Reader
}

// Close closes nopCloser (no-op).
func (nopCloser) Close() error {
	return nil
}

// OpenEntry opens the file at slash-separated path below root for streaming reads.
// Returned stream yields decompressed content for zlib and zstd entries.
func (c *Container) OpenEntry(name string) (io.ReadCloser, error) {
	node, err := c.lookup(name)
	if err != nil {
		return nil, err
	}

	return c.openNode(node, NormalizePath(name))
}

// OpenEntryInfo opens entry stream by already resolved metadata.
func (c *Container) OpenEntryInfo(info EntryInfo) (io.ReadCloser, error) {
	node, err := c.Node(info.Index)
	if err != nil {
		return nil, err
	}

	name := info.Path
	if name == "" {
		name = "<unknown>"
	}

	return c.openNode(node, name)
}

// openNode opens payload stream of resolved file node.
func (c *Container) openNode(node Node, name string) (io.ReadCloser, error) {
	if node.Flags.IsDir() {
		return nil, fmt.Errorf("%w: %s is a directory", ErrEntryNotFound, name)
	}

	stored, err := resolvePayload(c.data, node)
	if err != nil {
		return nil, withPath(err, name)
	}

	src := bytes.NewReader(stored.body)
	switch {
	case node.Flags.IsCompressed():
		pr, pw := io.Pipe()
		go streamInflateEntry(name, node.Index, pw, src, stored.hint)
		return pr, nil
	case node.Flags.IsZstd():
		dec, err := zstd.NewReader(src, zstd.WithDecoderConcurrency(1))
		if err != nil {
			return nil, newError(KindDecompression, "zstd", node.Index, int64(stored.offset), err)
		}

		return dec.IOReadCloser(), nil
	default:
		return nopCloser{Reader: src}, nil
	}
}

// streamInflateEntry inflates one zlib entry into pipe writer and checks its size hint.
func streamInflateEntry(name string, index uint32, dst *io.PipeWriter, src io.Reader, hint uint32) {
	fail := func(err error) {
		qe := newError(KindDecompression, "inflate", index, -1, err)
		qe.Path = name
		_ = dst.CloseWithError(qe)
	}

	zr, err := zlib.NewReader(src)
	if err != nil {
		fail(fmt.Errorf("init zlib stream: %w", err))
		return
	}
	defer func() { _ = zr.Close() }()

	n, err := io.CopyN(dst, zr, int64(hint))
	if err != nil {
		if errors.Is(err, io.EOF) {
			err = fmt.Errorf("%w: stream ended after %d of %d bytes", ErrSizeMismatch, n, hint)
		}

		fail(err)
		return
	}

	var probe [1]byte
	if m, err := zr.Read(probe[:]); m > 0 || !errors.Is(err, io.EOF) {
		switch {
		case m > 0:
			err = fmt.Errorf("%w: stream longer than %d bytes", ErrSizeMismatch, hint)
		case err == nil:
			err = io.ErrNoProgress
		}

		fail(err)
		return
	}

	_ = dst.Close()
}
