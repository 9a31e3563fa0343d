// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/qrc

package qrc

import (
	"encoding/binary"
	"fmt"
	"unicode/utf16"
	"unicode/utf8"

	"golang.org/x/text/encoding/unicode"
)

// utf16BE is the name table encoding. BOM code units are kept as regular characters.
var utf16BE = unicode.UTF16(unicode.BigEndian, unicode.IgnoreBOM)

// decodeName reads a length-prefixed UTF-16BE name entry and returns it as UTF-8.
// The 32-bit hash that follows the length is skipped without validation.
func decodeName(names []byte, offset uint32, index uint32) (string, error) {
	start := uint64(offset)
	if start+nameHeaderSize > uint64(len(names)) {
		return "", newError(KindFormat, "name", index, int64(start), fmt.Errorf(
			"%w: name header needs %d bytes, names has %d", ErrOutOfBounds, start+nameHeaderSize, len(names)))
	}

	units := uint64(binary.BigEndian.Uint16(names[start : start+2]))
	textStart := start + nameHeaderSize
	textEnd := textStart + units*2
	if textEnd > uint64(len(names)) {
		return "", newError(KindFormat, "name", index, int64(start), fmt.Errorf(
			"%w: name of %d code units needs %d bytes, names has %d", ErrOutOfBounds, units, textEnd, len(names)))
	}

	src := names[textStart:textEnd]
	if err := checkSurrogates(src); err != nil {
		return "", newError(KindEncoding, "name", index, int64(start), err)
	}

	// Worst case is 3 UTF-8 bytes per BMP code unit; surrogate pairs need 4 bytes per 2 units.
	dst := make([]byte, 3*units+1)
	nDst, _, err := utf16BE.NewDecoder().Transform(dst, src, true)
	if err != nil {
		return "", newError(KindEncoding, "name", index, int64(start), fmt.Errorf("transcode UTF-16BE: %w", err))
	}

	return string(dst[:nDst]), nil
}

// checkSurrogates rejects lone high or low surrogate code units.
func checkSurrogates(src []byte) error {
	for i := 0; i+1 < len(src); i += 2 {
		u := rune(binary.BigEndian.Uint16(src[i : i+2]))
		if !utf16.IsSurrogate(u) {
			continue
		}

		if u >= 0xdc00 {
			return fmt.Errorf("%w: low surrogate %#04x at unit %d", ErrUnpairedSurrogate, u, i/2)
		}

		if i+3 >= len(src) {
			return fmt.Errorf("%w: high surrogate %#04x at end of name", ErrUnpairedSurrogate, u)
		}

		next := rune(binary.BigEndian.Uint16(src[i+2 : i+4]))
		if next < 0xdc00 || next > 0xdfff {
			return fmt.Errorf("%w: high surrogate %#04x at unit %d", ErrUnpairedSurrogate, u, i/2)
		}

		i += 2
	}

	return nil
}

// encodeName converts UTF-8 name to UTF-16BE code units.
func encodeName(name string) ([]byte, error) {
	if !utf8.ValidString(name) {
		return nil, fmt.Errorf("%w: name %q is not valid UTF-8", ErrInvalidEntryPath, name)
	}

	units, err := utf16BE.NewEncoder().Bytes([]byte(name))
	if err != nil {
		return nil, fmt.Errorf("encode name %q: %w", name, err)
	}

	if len(units)/2 > maxNameUnits {
		return nil, fmt.Errorf("%w: name %q exceeds %d code units", ErrInvalidEntryPath, name, maxNameUnits)
	}

	return units, nil
}

// nameHash computes the rcc lookup hash over UTF-16BE code units.
func nameHash(units []byte) uint32 {
	var h uint32
	for i := 0; i+1 < len(units); i += 2 {
		h = (h << 4) + uint32(binary.BigEndian.Uint16(units[i:i+2]))
		h ^= (h & 0xf0000000) >> 23
		h &= 0x0fffffff
	}

	return h
}

// appendNameEntry appends one name table entry (count, hash, code units) to dst.
func appendNameEntry(dst []byte, units []byte) []byte {
	var hdr [nameHeaderSize]byte
	binary.BigEndian.PutUint16(hdr[0:2], uint16(len(units)/2)) //nolint:gosec // bounded by encodeName
	binary.BigEndian.PutUint32(hdr[2:6], nameHash(units))
	dst = append(dst, hdr[:]...)
	return append(dst, units...)
}
