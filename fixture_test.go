// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/qrc

package qrc

import (
	"bytes"
	"encoding/binary"
	"io"
	"testing"

	"github.com/klauspost/compress/zlib"
	"github.com/klauspost/compress/zstd"
	"github.com/stretchr/testify/require"
)

// fixtureNode is one hand-encoded tree record for decoder tests.
type fixtureNode struct {
	name   string
	entry  []byte
	extra  uint64
	count  uint32
	first  uint32
	locale uint32
	flags  Flags
}

// dirNode describes directory with child range [first, first+count).
func dirNode(name string, count, first uint32) fixtureNode {
	return fixtureNode{name: name, flags: FlagDirectory, count: count, first: first}
}

// fileNode describes file with empty stored payload.
func fileNode(name string, flags Flags, locale uint32) fixtureNode {
	return fixtureNode{name: name, flags: flags, locale: locale, entry: storedEntry(nil)}
}

// with returns a copy of n using entry as its data entry.
func (n fixtureNode) with(entry []byte) fixtureNode {
	n.entry = entry
	return n
}

// encodeFixture lays out records, names and data in node order.
// Root (index 0) gets no name entry; files get consecutive data entries.
func encodeFixture(t testing.TB, version Version, nodes ...fixtureNode) (tree, names, data []byte) {
	t.Helper()

	stride := version.stride()
	tree = make([]byte, len(nodes)*stride)
	for i, n := range nodes {
		rec := Node{Flags: n.flags, Extra: n.extra}
		if i > 0 {
			units, err := encodeName(n.name)
			require.NoError(t, err)

			rec.NameOffset = uint32(len(names)) //nolint:gosec // test fixture
			names = appendNameEntry(names, units)
		}

		if n.flags.IsDir() {
			rec.Meta = n.count
			rec.Ref = n.first
		} else {
			rec.Meta = n.locale
			rec.Ref = uint32(len(data)) //nolint:gosec // test fixture
			data = append(data, n.entry...)
		}

		putNode(version, tree[i*stride:(i+1)*stride], rec)
	}

	return tree, names, data
}

// mustContainer encodes fixture nodes and wraps them into a container.
func mustContainer(t testing.TB, version Version, nodes ...fixtureNode) *Container {
	t.Helper()

	tree, names, data := encodeFixture(t, version, nodes...)
	c, err := New(version, tree, names, data)
	require.NoError(t, err)

	return c
}

// storedEntry encodes uncompressed data entry.
func storedEntry(payload []byte) []byte {
	return appendLengthPrefixed(nil, payload)
}

// zlibEntry encodes qCompress-style data entry: length, size hint, zlib stream.
func zlibEntry(t testing.TB, payload []byte) []byte {
	t.Helper()

	var buf bytes.Buffer
	zw := zlib.NewWriter(&buf)
	_, err := zw.Write(payload)
	require.NoError(t, err)
	require.NoError(t, zw.Close())

	return zlibEntryRaw(uint32(len(payload)), buf.Bytes()) //nolint:gosec // test fixture
}

// zlibEntryRaw encodes data entry with explicit size hint and stream bytes.
func zlibEntryRaw(hint uint32, stream []byte) []byte {
	entry := make([]byte, 8, 8+len(stream))
	binary.BigEndian.PutUint32(entry[0:4], uint32(dataHintSize+len(stream))) //nolint:gosec // test fixture
	binary.BigEndian.PutUint32(entry[4:8], hint)
	return append(entry, stream...)
}

// zstdEntry encodes length-prefixed zstd frame.
func zstdEntry(t testing.TB, payload []byte) []byte {
	t.Helper()

	packed, err := compressZstd(payload)
	require.NoError(t, err)

	return storedEntry(packed)
}

// bytesInput returns build input backed by in-memory payload.
func bytesInput(entryPath string, payload []byte) Input {
	return Input{
		Path: entryPath,
		Open: func() (io.ReadCloser, error) {
			return io.NopCloser(bytes.NewReader(payload)), nil
		},
	}
}

// mustZstdDecode decodes one zstd frame for assertions.
func mustZstdDecode(t testing.TB, frame []byte) []byte {
	t.Helper()

	dec, err := zstd.NewReader(nil)
	require.NoError(t, err)
	defer dec.Close()

	out, err := dec.DecodeAll(frame, nil)
	require.NoError(t, err)

	return out
}
