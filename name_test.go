// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/qrc

package qrc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeNameHello(t *testing.T) {
	t.Parallel()

	names := []byte{
		0x00, 0x05, // code units
		0xde, 0xad, 0xbe, 0xef, // hash is not validated
		0x00, 'h', 0x00, 'e', 0x00, 'l', 0x00, 'l', 0x00, 'o',
	}

	got, err := decodeName(names, 0, 1)
	require.NoError(t, err)
	assert.Equal(t, "hello", got)
}

func TestDecodeNameExpansion(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name string
		in   string
	}{
		{name: "latin1", in: "résumé.txt"},
		{name: "cjk three bytes per unit", in: "日本語のリソース"},
		{name: "surrogate pair", in: "icon-\U0001F600.png"},
		{name: "bom kept", in: "\ufeffbom"},
		{name: "empty", in: ""},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			units, err := encodeName(tc.in)
			require.NoError(t, err)

			names := appendNameEntry([]byte{0xff, 0xff}, units)
			got, err := decodeName(names, 2, 1)
			require.NoError(t, err)
			assert.Equal(t, tc.in, got)
		})
	}
}

func TestDecodeNameLoneSurrogate(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name  string
		units []byte
	}{
		{name: "lone low", units: []byte{0xdc, 0x00, 0x00, 'a'}},
		{name: "high at end", units: []byte{0x00, 'a', 0xd8, 0x3d}},
		{name: "high then bmp", units: []byte{0xd8, 0x3d, 0x00, 'a'}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			names := appendNameEntry(nil, tc.units)
			_, err := decodeName(names, 0, 3)
			require.ErrorIs(t, err, ErrEncoding)
			require.ErrorIs(t, err, ErrUnpairedSurrogate)
			require.NotErrorIs(t, err, ErrFormat)
		})
	}
}

func TestDecodeNameOutOfBounds(t *testing.T) {
	t.Parallel()

	units, err := encodeName("hello")
	require.NoError(t, err)
	names := appendNameEntry(nil, units)

	_, err = decodeName(names, uint32(len(names)-3), 1) //nolint:gosec // test input
	require.ErrorIs(t, err, ErrFormat)
	require.ErrorIs(t, err, ErrOutOfBounds)

	// Count claims more units than the buffer holds.
	_, err = decodeName(names[:len(names)-1], 0, 1)
	require.ErrorIs(t, err, ErrFormat)
	require.ErrorIs(t, err, ErrOutOfBounds)

	_, err = decodeName(names, 0xffffffff, 1)
	require.ErrorIs(t, err, ErrOutOfBounds)
}

func TestNameHash(t *testing.T) {
	t.Parallel()

	units, err := encodeName("a")
	require.NoError(t, err)
	assert.Equal(t, uint32('a'), nameHash(units))

	units, err = encodeName("ab")
	require.NoError(t, err)
	assert.Equal(t, uint32('a')<<4+uint32('b'), nameHash(units))

	long, err := encodeName("a-rather-long-resource-name.qml")
	require.NoError(t, err)
	assert.Zero(t, nameHash(long)&0xf0000000)
}

func TestEncodeNameRejectsInvalidUTF8(t *testing.T) {
	t.Parallel()

	_, err := encodeName("bad\xff")
	require.ErrorIs(t, err, ErrInvalidEntryPath)
}
