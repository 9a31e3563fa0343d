// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/qrc

package qrc

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/klauspost/compress/zlib"
	"github.com/klauspost/compress/zstd"
)

// warnUnsupportedZstd is recorded when zstd payload is passed through undecoded.
const warnUnsupportedZstd = "unsupported compression: zstd payload written raw"

// payloadOptions controls payload decoding.
type payloadOptions struct {
	// maxSize bounds accepted decompressed sizes.
	maxSize uint32
	// decodeZstd enables zstd decoding instead of raw pass-through.
	decodeZstd bool
}

// storedPayload is the data entry region of one file node.
type storedPayload struct {
	// body is stored bytes after length prefix and size hint.
	body []byte
	// offset is data buffer offset of body.
	offset uint64
	// hint is decompressed size hint of zlib payloads.
	hint uint32
}

// resolvePayload locates data entry of file node without decoding it.
func resolvePayload(data []byte, node Node) (storedPayload, error) {
	off := uint64(node.DataOffset())
	if off+dataLengthSize > uint64(len(data)) {
		return storedPayload{}, newError(KindFormat, "data", node.Index, int64(off), fmt.Errorf(
			"%w: length prefix needs %d bytes, data has %d", ErrOutOfBounds, off+dataLengthSize, len(data)))
	}

	length := uint64(binary.BigEndian.Uint32(data[off : off+dataLengthSize]))
	off += dataLengthSize

	var hint uint32
	if node.Flags.IsCompressed() {
		if length < dataHintSize {
			return storedPayload{}, newError(KindFormat, "data", node.Index, int64(off), fmt.Errorf(
				"%w: compressed length %d shorter than size hint", ErrOutOfBounds, length))
		}
		if off+dataHintSize > uint64(len(data)) {
			return storedPayload{}, newError(KindFormat, "data", node.Index, int64(off), fmt.Errorf(
				"%w: size hint needs %d bytes, data has %d", ErrOutOfBounds, off+dataHintSize, len(data)))
		}

		hint = binary.BigEndian.Uint32(data[off : off+dataHintSize])
		off += dataHintSize
		length -= dataHintSize
	}

	if off+length > uint64(len(data)) {
		return storedPayload{}, newError(KindFormat, "data", node.Index, int64(off), fmt.Errorf(
			"%w: payload of %d bytes needs %d bytes, data has %d", ErrOutOfBounds, length, off+length, len(data)))
	}

	return storedPayload{body: data[off : off+length], offset: off, hint: hint}, nil
}

// readPayload resolves and decodes file payload of node.
// The returned warning is non-empty when payload was passed through undecoded.
func readPayload(data []byte, node Node, opts payloadOptions) ([]byte, string, error) {
	stored, err := resolvePayload(data, node)
	if err != nil {
		return nil, "", err
	}

	switch {
	case node.Flags.IsCompressed():
		out, err := inflatePayload(stored.body, stored.hint, opts.maxSize)
		if err != nil {
			return nil, "", newError(KindDecompression, "inflate", node.Index, int64(stored.offset), err)
		}

		return out, "", nil
	case node.Flags.IsZstd():
		if !opts.decodeZstd {
			return stored.body, warnUnsupportedZstd, nil
		}

		out, err := decodeZstdPayload(stored.body, opts.maxSize)
		if err != nil {
			return nil, "", newError(KindDecompression, "zstd", node.Index, int64(stored.offset), err)
		}

		return out, "", nil
	default:
		return stored.body, "", nil
	}
}

// inflatePayload inflates zlib stream into exactly hint bytes and requires clean stream end.
func inflatePayload(body []byte, hint uint32, maxSize uint32) ([]byte, error) {
	if maxSize > 0 && hint > maxSize {
		return nil, fmt.Errorf("%w: size hint %d exceeds limit %d", ErrSizeOverflow, hint, maxSize)
	}

	zr, err := zlib.NewReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("init zlib stream: %w", err)
	}
	defer func() { _ = zr.Close() }()

	out := make([]byte, hint)
	if _, err := io.ReadFull(zr, out); err != nil {
		if errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: stream ended before %d bytes", ErrSizeMismatch, hint)
		}

		return nil, fmt.Errorf("inflate: %w", err)
	}

	// Stream must end here; the read also surfaces checksum errors.
	var probe [1]byte
	n, err := zr.Read(probe[:])
	if n > 0 {
		return nil, fmt.Errorf("%w: stream longer than %d bytes", ErrSizeMismatch, hint)
	}
	if !errors.Is(err, io.EOF) {
		if err == nil {
			err = io.ErrNoProgress
		}

		return nil, fmt.Errorf("inflate stream end: %w", err)
	}

	return out, nil
}

// decodeZstdPayload decodes one zstd frame with a per-call decoder.
func decodeZstdPayload(body []byte, maxSize uint32) ([]byte, error) {
	opts := []zstd.DOption{zstd.WithDecoderConcurrency(1)}
	if maxSize > 0 {
		opts = append(opts, zstd.WithDecoderMaxMemory(uint64(maxSize)))
	}

	dec, err := zstd.NewReader(nil, opts...)
	if err != nil {
		return nil, fmt.Errorf("init zstd decoder: %w", err)
	}
	defer dec.Close()

	out, err := dec.DecodeAll(body, nil)
	if err != nil {
		return nil, fmt.Errorf("decode zstd: %w", err)
	}

	return out, nil
}
