// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/qrc

package qrc

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"slices"
)

// Binary resource file layout.
const (
	rccMagic        = "qres"
	rccHeaderSizeV2 = 20 // magic + version + tree, data and names offsets
	rccHeaderSizeV3 = 24 // version 3 appends overall flags
)

// RCCHeader is the fixed header of a binary resource file.
type RCCHeader struct {
	// Version is tree format version.
	Version Version `json:"version" yaml:"version"`
	// TreeOffset is absolute file offset of tree buffer.
	TreeOffset uint32 `json:"tree_offset" yaml:"tree_offset"`
	// DataOffset is absolute file offset of data buffer.
	DataOffset uint32 `json:"data_offset" yaml:"data_offset"`
	// NamesOffset is absolute file offset of names buffer.
	NamesOffset uint32 `json:"names_offset" yaml:"names_offset"`
	// OverallFlags is the version 3 codec summary (bit0 zlib, bit1 zstd).
	OverallFlags uint32 `json:"overall_flags,omitempty" yaml:"overall_flags,omitempty"`
}

// Size returns encoded header size for header version.
func (h RCCHeader) Size() int {
	if h.Version >= Version3 {
		return rccHeaderSizeV3
	}

	return rccHeaderSizeV2
}

// OpenFile reads a binary resource file and parses it into a container.
func OpenFile(path string) (*Container, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("open resource file: %w", err)
	}

	return ParseRCC(b)
}

// ParseRCC parses binary resource file bytes. Each section extent runs up to the
// next section start or end of input; the returned container aliases b.
func ParseRCC(b []byte) (*Container, error) {
	header, err := parseRCCHeader(b)
	if err != nil {
		return nil, err
	}

	tree, names, data := rccSections(b, header)
	c, err := New(header.Version, tree, names, data)
	if err != nil {
		return nil, err
	}

	c.header = &header
	return c, nil
}

// parseRCCHeader decodes header and validates section offsets against input size.
func parseRCCHeader(b []byte) (RCCHeader, error) {
	header, err := decodeRCCHeader(b)
	if err != nil {
		return RCCHeader{}, err
	}

	if err := checkRCCOffsets(header, int64(len(b))); err != nil {
		return RCCHeader{}, err
	}

	return header, nil
}

// decodeRCCHeader decodes magic, version and section offsets.
func decodeRCCHeader(b []byte) (RCCHeader, error) {
	if len(b) < rccHeaderSizeV2 {
		return RCCHeader{}, newError(KindFormat, "header", 0, 0, fmt.Errorf("%w: short header", ErrInvalidHeader))
	}

	if !bytes.Equal(b[0:4], []byte(rccMagic)) {
		return RCCHeader{}, newError(KindFormat, "header", 0, 0, fmt.Errorf("%w: magic %q", ErrInvalidHeader, b[0:4]))
	}

	header := RCCHeader{
		Version:     Version(binary.BigEndian.Uint32(b[4:8])),
		TreeOffset:  binary.BigEndian.Uint32(b[8:12]),
		DataOffset:  binary.BigEndian.Uint32(b[12:16]),
		NamesOffset: binary.BigEndian.Uint32(b[16:20]),
	}
	if !header.Version.valid() {
		return RCCHeader{}, newError(KindFormat, "header", 0, 4, fmt.Errorf("%w: %d", ErrUnsupportedVersion, header.Version))
	}

	if header.Version >= Version3 {
		if len(b) < rccHeaderSizeV3 {
			return RCCHeader{}, newError(KindFormat, "header", 0, 20, fmt.Errorf("%w: short version 3 header", ErrInvalidHeader))
		}

		header.OverallFlags = binary.BigEndian.Uint32(b[20:24])
	}

	return header, nil
}

// checkRCCOffsets validates that every section starts after header and inside input.
func checkRCCOffsets(header RCCHeader, size int64) error {
	sections := []struct {
		name   string
		offset uint32
	}{
		{name: "tree", offset: header.TreeOffset},
		{name: "data", offset: header.DataOffset},
		{name: "names", offset: header.NamesOffset},
	}

	for _, section := range sections {
		if int64(section.offset) < int64(header.Size()) || int64(section.offset) > size {
			return newError(KindFormat, "header", 0, int64(section.offset), fmt.Errorf(
				"%w: %s offset %d outside [%d, %d]", ErrInvalidHeader, section.name, section.offset, header.Size(), size))
		}
	}

	return nil
}

// rccSections slices tree, names and data buffers; each ends at the next section start.
// Sections sharing a start offset were written empty, except the last one in rcc
// write order (data, names, tree), which owns the bytes.
func rccSections(b []byte, header RCCHeader) (tree, names, data []byte) {
	starts := []uint32{header.TreeOffset, header.DataOffset, header.NamesOffset}
	slices.Sort(starts)

	section := func(offset uint32, writtenAfter ...uint32) []byte {
		if slices.Contains(writtenAfter, offset) {
			return b[offset:offset]
		}

		end := uint32(len(b)) //nolint:gosec // offsets were validated against len(b)
		for _, start := range starts {
			if start > offset {
				end = start
				break
			}
		}

		return b[offset:end]
	}

	data = section(header.DataOffset, header.NamesOffset, header.TreeOffset)
	names = section(header.NamesOffset, header.TreeOffset)
	tree = section(header.TreeOffset)

	return tree, names, data
}

// encodeRCCHeader encodes header for its version.
func encodeRCCHeader(header RCCHeader) []byte {
	out := make([]byte, header.Size())
	copy(out[0:4], rccMagic)
	binary.BigEndian.PutUint32(out[4:8], uint32(header.Version))
	binary.BigEndian.PutUint32(out[8:12], header.TreeOffset)
	binary.BigEndian.PutUint32(out[12:16], header.DataOffset)
	binary.BigEndian.PutUint32(out[16:20], header.NamesOffset)
	if header.Version >= Version3 {
		binary.BigEndian.PutUint32(out[20:24], header.OverallFlags)
	}

	return out
}

// WriteRCC writes bundle as a binary resource file: header, data, names, tree.
func (b *Bundle) WriteRCC(w io.Writer) (int64, error) {
	if w == nil {
		return 0, ErrNilWriter
	}

	header := RCCHeader{Version: b.Version, OverallFlags: b.OverallFlags}
	dataOffset := uint64(header.Size())
	namesOffset := dataOffset + uint64(len(b.Data))
	treeOffset := namesOffset + uint64(len(b.Names))
	if treeOffset+uint64(len(b.Tree)) > maxRCCData-1 {
		return 0, fmt.Errorf("%w: resource file of %d bytes", ErrSizeOverflow, treeOffset+uint64(len(b.Tree)))
	}

	header.DataOffset = uint32(dataOffset)   //nolint:gosec // bounded above
	header.NamesOffset = uint32(namesOffset) //nolint:gosec // bounded above
	header.TreeOffset = uint32(treeOffset)   //nolint:gosec // bounded above

	var total int64
	for _, part := range [][]byte{encodeRCCHeader(header), b.Data, b.Names, b.Tree} {
		n, err := w.Write(part)
		total += int64(n)
		if err != nil {
			return total, fmt.Errorf("write resource file: %w", err)
		}
	}

	return total, nil
}
