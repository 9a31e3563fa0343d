// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/qrc

package qrc

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
)

// WalkFunc is called for every reachable entry in depth-first pre-order.
// Returning fs.SkipDir from a directory skips its children; any other error stops the walk.
type WalkFunc func(entry EntryInfo, node Node) error

// walker holds state of one traversal.
type walker struct {
	c  *Container
	fn WalkFunc
	// visited marks node indices already reached.
	visited []bool
	// sanitize rewrites unsafe names instead of rejecting them.
	sanitize bool
}

// Walk traverses the tree from root. Root is reported with empty path.
func (c *Container) Walk(ctx context.Context, fn WalkFunc) error {
	return c.walk(ctx, false, fn)
}

// walk runs one traversal with selected name policy.
func (c *Container) walk(ctx context.Context, sanitize bool, fn WalkFunc) error {
	w := &walker{
		c:        c,
		fn:       fn,
		visited:  make([]bool, c.nodes),
		sanitize: sanitize,
	}

	root, err := c.Node(0)
	if err != nil {
		return err
	}

	if !root.Flags.IsDir() {
		return newError(KindFormat, "node", 0, 0, fmt.Errorf("%w: flags %s", ErrNotDirectory, root.Flags))
	}

	return w.visit(ctx, root, "", 0)
}

// visit reports node and recurses into its child range.
func (w *walker) visit(ctx context.Context, node Node, entryPath string, depth int) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	w.visited[node.Index] = true
	entry, err := w.c.entryInfo(node, entryPath, depth)
	if err != nil {
		return err
	}

	if err := w.fn(entry, node); err != nil {
		if errors.Is(err, fs.SkipDir) {
			return nil
		}

		return err
	}

	if !node.Flags.IsDir() {
		return nil
	}

	first, end, err := w.c.childRange(node)
	if err != nil {
		return withPath(err, entryPath)
	}

	var used map[string]struct{}
	var nextSuffix map[string]int
	if w.sanitize {
		used = make(map[string]struct{}, end-first)
		nextSuffix = make(map[string]int)
	}

	for idx := first; idx < end; idx++ {
		index := uint32(idx) //nolint:gosec // bounded by childRange
		if w.visited[index] {
			return newError(KindFormat, "children", index, -1, fmt.Errorf(
				"%w: child of %d already visited", ErrNodeCycle, node.Index))
		}

		child, err := w.c.Node(index)
		if err != nil {
			return err
		}

		name, err := decodeName(w.c.names, child.NameOffset, index)
		if err != nil {
			return withPath(err, entryPath)
		}

		segment, err := w.segment(name, used, nextSuffix)
		if err != nil {
			return newError(KindEncoding, "name", index, int64(child.NameOffset), err)
		}

		childPath := segment
		if entryPath != "" {
			childPath = entryPath + "/" + segment
		}

		if err := w.visit(ctx, child, childPath, depth+1); err != nil {
			return err
		}
	}

	return nil
}

// segment validates or sanitizes one decoded name as a path segment.
func (w *walker) segment(name string, used map[string]struct{}, nextSuffix map[string]int) (string, error) {
	if !w.sanitize {
		if err := validateSegment(name); err != nil {
			return "", err
		}

		return name, nil
	}

	segment, err := sanitizePathSegment(name)
	if err != nil {
		return "", err
	}

	return makeSanitizedPathUnique(segment, used, nextSuffix)
}
