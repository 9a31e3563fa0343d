// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/qrc

package qrc

import (
	"context"
	"fmt"
	"strings"
)

// Container is one extraction session over caller-owned tree, names and data buffers.
// Buffer lengths are the trusted extents; nothing is read beyond them.
// Container never mutates the buffers and is safe for concurrent read-only use.
type Container struct {
	// header is set when container was parsed from a binary resource file.
	header *RCCHeader
	tree   []byte
	names  []byte
	data   []byte
	// nodes is number of whole records inside tree extent.
	nodes   uint64
	version Version
}

// New validates version and wraps the three container buffers.
func New(version Version, tree, names, data []byte) (*Container, error) {
	if !version.valid() {
		return nil, newError(KindFormat, "open", 0, -1, fmt.Errorf("%w: %d", ErrUnsupportedVersion, version))
	}

	c := &Container{
		version: version,
		tree:    tree,
		names:   names,
		data:    data,
		nodes:   nodeCount(version, tree),
	}
	if c.nodes == 0 {
		return nil, newError(KindFormat, "open", 0, 0, fmt.Errorf("%w: tree holds no root record", ErrOutOfBounds))
	}

	return c, nil
}

// Version returns tree format version.
func (c *Container) Version() Version {
	return c.version
}

// NodeCount returns number of whole records inside tree extent.
// Not every record has to be reachable from root.
func (c *Container) NodeCount() uint64 {
	return c.nodes
}

// Header returns binary resource file header when container was parsed from one.
func (c *Container) Header() (RCCHeader, bool) {
	if c == nil || c.header == nil {
		return RCCHeader{}, false
	}

	return *c.header, true
}

// Node decodes tree record at index.
func (c *Container) Node(index uint32) (Node, error) {
	return readNode(c.version, c.tree, index)
}

// Name decodes name entry of node at index. Root has no stored name and returns "".
func (c *Container) Name(index uint32) (string, error) {
	if index == 0 {
		return "", nil
	}

	node, err := c.Node(index)
	if err != nil {
		return "", err
	}

	return decodeName(c.names, node.NameOffset, index)
}

// Entries returns all entries reachable from root in pre-order, root first.
// Payloads are located and bounds-checked but not decoded.
func (c *Container) Entries(ctx context.Context) ([]EntryInfo, error) {
	return c.ListEntries(ctx, ListOptions{})
}

// ReadEntry returns full (decompressed) content of the file at slash-separated path below root.
// Zstd payloads are decoded.
func (c *Container) ReadEntry(name string) ([]byte, error) {
	node, err := c.lookup(name)
	if err != nil {
		return nil, err
	}

	if node.Flags.IsDir() {
		return nil, fmt.Errorf("%w: %s is a directory", ErrEntryNotFound, name)
	}

	data, _, err := readPayload(c.data, node, payloadOptions{
		maxSize:    DefaultMaxDecompressedSize,
		decodeZstd: true,
	})
	if err != nil {
		return nil, withPath(err, NormalizePath(name))
	}

	return data, nil
}

// Stat resolves entry metadata by slash-separated path below root.
func (c *Container) Stat(name string) (EntryInfo, error) {
	node, err := c.lookup(name)
	if err != nil {
		return EntryInfo{}, err
	}

	entryPath := NormalizePath(name)
	depth := 0
	if entryPath != "" {
		depth = strings.Count(entryPath, "/") + 1
	}

	return c.entryInfo(node, entryPath, depth)
}

// lookup descends from root by path segments, scanning each child range.
func (c *Container) lookup(name string) (Node, error) {
	node, err := c.Node(0)
	if err != nil {
		return Node{}, err
	}

	lookupPath := NormalizePath(name)
	if lookupPath == "" {
		return node, nil
	}

	for segment := range strings.SplitSeq(lookupPath, "/") {
		if !node.Flags.IsDir() {
			return Node{}, fmt.Errorf("%w: %s", ErrEntryNotFound, name)
		}

		first, end, err := c.childRange(node)
		if err != nil {
			return Node{}, err
		}

		found := false
		for idx := first; idx < end; idx++ {
			child, err := c.Node(uint32(idx)) //nolint:gosec // bounded by childRange
			if err != nil {
				return Node{}, err
			}

			childName, err := decodeName(c.names, child.NameOffset, child.Index)
			if err != nil {
				return Node{}, err
			}

			if childName == segment {
				node = child
				found = true
				break
			}
		}

		if !found {
			return Node{}, fmt.Errorf("%w: %s", ErrEntryNotFound, name)
		}
	}

	return node, nil
}

// childRange validates directory child range against tree extent and returns [first, end).
// Empty directories yield an empty range whatever their child offset.
func (c *Container) childRange(node Node) (uint64, uint64, error) {
	if node.ChildCount() == 0 {
		return 0, 0, nil
	}

	first := uint64(node.ChildOffset())
	end := first + uint64(node.ChildCount())
	if end > c.nodes {
		return 0, 0, newError(KindFormat, "children", node.Index, int64(first)*int64(c.version.stride()), fmt.Errorf(
			"%w: child range [%d, %d) exceeds %d records", ErrOutOfBounds, first, end, c.nodes))
	}

	return first, end, nil
}

// entryInfo builds entry metadata for node; file payload bounds are validated.
func (c *Container) entryInfo(node Node, entryPath string, depth int) (EntryInfo, error) {
	entry := EntryInfo{
		Path:  entryPath,
		Index: node.Index,
		Depth: depth,
		Flags: node.Flags,
		Extra: node.Extra,
	}

	if node.Flags.IsDir() {
		entry.ChildOffset = node.ChildOffset()
		entry.ChildCount = node.ChildCount()
		return entry, nil
	}

	stored, err := resolvePayload(c.data, node)
	if err != nil {
		return EntryInfo{}, withPath(err, entryPath)
	}

	entry.Locale = node.Locale()
	entry.DataOffset = node.DataOffset()
	entry.DataSize = uint32(len(stored.body)) //nolint:gosec // length prefix is uint32
	entry.OriginalSize = stored.hint
	return entry, nil
}
