// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/qrc

package qrc

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/klauspost/compress/zlib"
	"github.com/klauspost/compress/zstd"
)

// Overall flag bits of version 3 resource files.
const (
	overallFlagZlib uint32 = 0x01
	overallFlagZstd uint32 = 0x02
)

// shouldCompress returns true if path and size pass compression policy.
func shouldCompress(opts BuildOptions, matcher *ruleMatcher, entryPath string, size int) bool {
	if !shouldCompressBySize(opts, size) {
		return false
	}

	if matcher == nil {
		return false
	}

	return matcher.Match(entryPath)
}

// shouldCompressBySize reports whether payload size fits compression boundaries.
func shouldCompressBySize(opts BuildOptions, size int) bool {
	if size < 0 || uint64(size) > uint64(opts.MaxCompressSize) || uint64(size) < uint64(opts.MinCompressSize) {
		return false
	}

	return true
}

// compressZlib compresses data into one zlib stream.
func compressZlib(data []byte, level int) ([]byte, error) {
	var buf bytes.Buffer
	zw, err := zlib.NewWriterLevel(&buf, level)
	if err != nil {
		return nil, fmt.Errorf("init zlib writer: %w", err)
	}

	if _, err := zw.Write(data); err != nil {
		_ = zw.Close()
		return nil, fmt.Errorf("zlib write: %w", err)
	}

	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("zlib close: %w", err)
	}

	return buf.Bytes(), nil
}

// compressZstd compresses data into one zstd frame.
func compressZstd(data []byte) ([]byte, error) {
	enc, err := zstd.NewWriter(nil, zstd.WithEncoderConcurrency(1))
	if err != nil {
		return nil, fmt.Errorf("init zstd encoder: %w", err)
	}
	defer func() { _ = enc.Close() }()

	return enc.EncodeAll(data, nil), nil
}

// encodeDataEntry compresses raw when selected and profitable and returns node flags and data entry bytes.
// Data entry layout: u32 length, then for zlib u32 size hint + stream, otherwise stored bytes.
func encodeDataEntry(raw []byte, candidate bool, opts BuildOptions) (Flags, []byte, error) {
	if candidate {
		switch opts.Compression {
		case CompressionZlib:
			packed, err := compressZlib(raw, opts.CompressLevel)
			if err != nil {
				return 0, nil, err
			}

			if dataHintSize+len(packed) < len(raw) {
				entry := make([]byte, dataLengthSize+dataHintSize, dataLengthSize+dataHintSize+len(packed))
				binary.BigEndian.PutUint32(entry[0:4], uint32(dataHintSize+len(packed))) //nolint:gosec // bounded by len(raw)
				binary.BigEndian.PutUint32(entry[4:8], uint32(len(raw)))                 //nolint:gosec // checked by caller
				return FlagCompressed, append(entry, packed...), nil
			}
		case CompressionZstd:
			packed, err := compressZstd(raw)
			if err != nil {
				return 0, nil, err
			}

			if len(packed) < len(raw) {
				return FlagCompressedZstd, appendLengthPrefixed(nil, packed), nil
			}
		default:
			return 0, nil, fmt.Errorf("unknown compression %q", opts.Compression)
		}
	}

	return 0, appendLengthPrefixed(make([]byte, 0, dataLengthSize+len(raw)), raw), nil
}

// appendLengthPrefixed appends u32 big-endian length and payload.
func appendLengthPrefixed(dst []byte, payload []byte) []byte {
	var prefix [dataLengthSize]byte
	binary.BigEndian.PutUint32(prefix[:], uint32(len(payload))) //nolint:gosec // checked by caller
	dst = append(dst, prefix[:]...)
	return append(dst, payload...)
}
