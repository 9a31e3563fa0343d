// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/qrc

package qrc

import (
	"encoding/binary"
	"fmt"
)

// readNode decodes tree record at index using version stride.
// Fields are read explicitly as big-endian values; tree length is the trusted extent.
func readNode(version Version, tree []byte, index uint32) (Node, error) {
	if !version.valid() {
		return Node{}, newError(KindFormat, "node", index, -1, fmt.Errorf("%w: %d", ErrUnsupportedVersion, version))
	}

	stride := uint64(version.stride())
	start := uint64(index) * stride
	if start+stride > uint64(len(tree)) {
		return Node{}, newError(KindFormat, "node", index, int64(start), fmt.Errorf(
			"%w: record %d needs %d bytes, tree has %d", ErrOutOfBounds, index, start+stride, len(tree)))
	}

	rec := tree[start : start+stride]
	node := Node{
		Index:      index,
		NameOffset: binary.BigEndian.Uint32(rec[0:4]),
		Flags:      Flags(binary.BigEndian.Uint16(rec[4:6])),
		Meta:       binary.BigEndian.Uint32(rec[6:10]),
		Ref:        binary.BigEndian.Uint32(rec[10:14]),
	}
	if stride == strideV2 {
		node.Extra = binary.BigEndian.Uint64(rec[14:22])
	}

	return node, nil
}

// nodeCount returns number of whole records inside tree extent.
func nodeCount(version Version, tree []byte) uint64 {
	return uint64(len(tree)) / uint64(version.stride())
}

// putNode encodes node into rec, which must hold one full record for version.
func putNode(version Version, rec []byte, node Node) {
	binary.BigEndian.PutUint32(rec[0:4], node.NameOffset)
	binary.BigEndian.PutUint16(rec[4:6], uint16(node.Flags))
	binary.BigEndian.PutUint32(rec[6:10], node.Meta)
	binary.BigEndian.PutUint32(rec[10:14], node.Ref)
	if version.stride() == strideV2 {
		binary.BigEndian.PutUint64(rec[14:22], node.Extra)
	}
}
