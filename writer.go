// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/qrc

package qrc

import (
	"bufio"
	"cmp"
	"context"
	"fmt"
	"io"
	"math"
	"os"
	"slices"
	"strings"
	"time"
)

// packWriterBufferSize is buffered writer size used by PackFile.
const packWriterBufferSize = 1024 * 1024

// Bundle holds encoded container buffers produced by Build.
type Bundle struct {
	// Tree is the node record array.
	Tree []byte
	// Names is the name table.
	Names []byte
	// Data is the payload blob.
	Data []byte
	// Result holds build statistics.
	Result BuildResult
	// Version is tree format version of Tree.
	Version Version
	// OverallFlags records codecs used (bit0 zlib, bit1 zstd).
	OverallFlags uint32
}

// Container wraps bundle buffers into a readable container.
func (b *Bundle) Container() (*Container, error) {
	return New(b.Version, b.Tree, b.Names, b.Data)
}

// buildNode is one directory or file of the tree being built.
type buildNode struct {
	input    *Input
	dirs     map[string]*buildNode
	name     string
	path     string
	units    []byte
	children []*buildNode
	index    uint32
	hash     uint32
	isDir    bool
}

// Build encodes inputs into tree, names and data buffers.
// Directories are derived from input paths; nodes are laid out breadth-first so every
// directory owns a contiguous child range, and siblings are ordered by name hash.
func Build(ctx context.Context, inputs []Input, opts BuildOptions) (*Bundle, error) {
	if len(inputs) == 0 {
		return nil, ErrEmptyInputs
	}

	opts.applyDefaults()
	if !opts.Version.valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedVersion, opts.Version)
	}
	if opts.Compression == CompressionZstd && opts.Version < Version3 {
		return nil, fmt.Errorf("%w: zstd payloads require version 3, got %d", ErrUnsupportedVersion, opts.Version)
	}

	matcher, err := newRuleMatcher(opts.Compress, opts.CompressMatcherOptions)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidCompressPattern, err)
	}

	start := time.Now()
	root, err := buildHierarchy(inputs)
	if err != nil {
		return nil, err
	}

	nodes, err := layoutNodes(root)
	if err != nil {
		return nil, err
	}

	bundle := &Bundle{Version: opts.Version}
	nameOffsets := make(map[string]uint32, len(nodes))
	records := make([]Node, len(nodes))
	for i, n := range nodes {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		rec := Node{Index: uint32(i)} //nolint:gosec // bounded by layoutNodes
		if i > 0 {
			offset, ok := nameOffsets[n.name]
			if !ok {
				if uint64(len(bundle.Names)) > math.MaxUint32 {
					return nil, fmt.Errorf("%w: name table", ErrSizeOverflow)
				}

				offset = uint32(len(bundle.Names)) //nolint:gosec // bounded above
				nameOffsets[n.name] = offset
				bundle.Names = appendNameEntry(bundle.Names, n.units)
			}

			rec.NameOffset = offset
		}

		if n.isDir {
			rec.Flags = FlagDirectory
			rec.Meta = uint32(len(n.children)) //nolint:gosec // bounded by layoutNodes
			if len(n.children) > 0 {
				rec.Ref = n.children[0].index
			}

			bundle.Result.Dirs++
			records[i] = rec
			continue
		}

		if err := appendFileData(bundle, &rec, n, matcher, opts); err != nil {
			return nil, err
		}

		records[i] = rec
	}

	stride := opts.Version.stride()
	bundle.Tree = make([]byte, len(records)*stride)
	for i, rec := range records {
		putNode(opts.Version, bundle.Tree[i*stride:(i+1)*stride], rec)
	}

	bundle.Result.DataSize = int64(len(bundle.Data))
	bundle.Result.Duration = time.Since(start)
	return bundle, nil
}

// PackFile builds inputs and writes them to outPath as a binary resource file.
func PackFile(ctx context.Context, outPath string, inputs []Input, opts BuildOptions) (*BuildResult, error) {
	bundle, err := Build(ctx, inputs, opts)
	if err != nil {
		return nil, err
	}

	f, err := os.OpenFile(outPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return nil, fmt.Errorf("create resource file: %w", err)
	}
	defer func() {
		if f != nil {
			_ = f.Close()
		}
	}()

	bw := bufio.NewWriterSize(f, packWriterBufferSize)
	if _, err := bundle.WriteRCC(bw); err != nil {
		return nil, err
	}

	if err := bw.Flush(); err != nil {
		return nil, fmt.Errorf("flush resource file: %w", err)
	}

	if err := f.Sync(); err != nil {
		return nil, fmt.Errorf("sync resource file: %w", err)
	}

	if err := f.Close(); err != nil {
		return nil, fmt.Errorf("close resource file: %w", err)
	}
	f = nil

	return &bundle.Result, nil
}

// buildHierarchy creates directory nodes from input paths and rejects duplicates.
func buildHierarchy(inputs []Input) (*buildNode, error) {
	root := &buildNode{isDir: true, dirs: make(map[string]*buildNode)}
	for i := range inputs {
		in := &inputs[i]
		if in.Open == nil {
			return nil, fmt.Errorf("%w: %q has no Open func", ErrInvalidEntryPath, in.Path)
		}

		entryPath, err := normalizeInputEntryPath(in.Path)
		if err != nil {
			return nil, err
		}

		segments := strings.Split(entryPath, "/")
		parent := root
		for depth, segment := range segments {
			last := depth == len(segments)-1
			existing := findChild(parent, segment)
			if existing != nil {
				if last || !existing.isDir {
					return nil, fmt.Errorf("%w: %s", ErrDuplicateEntryPath, entryPath)
				}

				parent = existing
				continue
			}

			units, err := encodeName(segment)
			if err != nil {
				return nil, err
			}

			child := &buildNode{
				name:  segment,
				path:  strings.Join(segments[:depth+1], "/"),
				units: units,
				hash:  nameHash(units),
				isDir: !last,
			}
			if last {
				child.input = in
			} else {
				child.dirs = make(map[string]*buildNode)
			}

			parent.dirs[segment] = child
			parent.children = append(parent.children, child)
			parent = child
		}
	}

	return root, nil
}

// findChild returns existing child of dir by exact name.
func findChild(dir *buildNode, name string) *buildNode {
	return dir.dirs[name]
}

// layoutNodes assigns breadth-first indices; each directory's children become one contiguous range.
func layoutNodes(root *buildNode) ([]*buildNode, error) {
	nodes := []*buildNode{root}
	for i := 0; i < len(nodes); i++ {
		n := nodes[i]
		if !n.isDir {
			continue
		}

		slices.SortFunc(n.children, func(a, b *buildNode) int {
			if c := cmp.Compare(a.hash, b.hash); c != 0 {
				return c
			}

			return cmp.Compare(a.name, b.name)
		})

		for _, child := range n.children {
			if uint64(len(nodes)) >= maxTreeRecords {
				return nil, fmt.Errorf("%w: more than %d tree records", ErrSizeOverflow, uint64(maxTreeRecords))
			}

			child.index = uint32(len(nodes)) //nolint:gosec // bounded above
			nodes = append(nodes, child)
		}
	}

	return nodes, nil
}

// appendFileData reads one input, encodes its data entry and fills file record fields.
func appendFileData(bundle *Bundle, rec *Node, n *buildNode, matcher *ruleMatcher, opts BuildOptions) error {
	raw, modTime, err := readInput(n.input)
	if err != nil {
		return fmt.Errorf("read input %s: %w", n.path, err)
	}

	if uint64(len(raw)) > math.MaxUint32-dataHintSize {
		return fmt.Errorf("%w: entry %s", ErrSizeOverflow, n.path)
	}

	candidate := shouldCompress(opts, matcher, n.path, len(raw))
	flags, entry, err := encodeDataEntry(raw, candidate, opts)
	if err != nil {
		return fmt.Errorf("encode entry %s: %w", n.path, err)
	}

	if uint64(len(bundle.Data))+uint64(len(entry)) > math.MaxUint32 {
		return fmt.Errorf("%w: data buffer exceeds 4 GiB at %s", ErrSizeOverflow, n.path)
	}

	rec.Flags = flags
	rec.Meta = n.input.Locale
	rec.Ref = uint32(len(bundle.Data)) //nolint:gosec // bounded above
	if !modTime.IsZero() && modTime.UnixMilli() > 0 {
		rec.Extra = uint64(modTime.UnixMilli())
	}

	bundle.Data = append(bundle.Data, entry...)
	bundle.Result.Files++
	switch {
	case flags.IsCompressed():
		bundle.Result.CompressedEntries++
		bundle.OverallFlags |= overallFlagZlib
	case flags.IsZstd():
		bundle.Result.CompressedEntries++
		bundle.OverallFlags |= overallFlagZstd
	case candidate:
		bundle.Result.SkippedCompressionEntries++
	}

	if opts.OnEntryDone != nil {
		opts.OnEntryDone(BuildEntryProgress{
			Path:                 n.path,
			DataOffset:           rec.Ref,
			DataSize:             uint32(len(entry) - dataLengthSize), //nolint:gosec // bounded above
			OriginalSize:         uint32(len(raw)),                    //nolint:gosec // bounded above
			Flags:                flags,
			CompressionCandidate: candidate,
		})
	}

	return nil
}

// readInput opens and fully reads one input stream.
func readInput(in *Input) ([]byte, time.Time, error) {
	rc, err := in.Open()
	if err != nil {
		return nil, time.Time{}, err
	}
	defer func() { _ = rc.Close() }()

	raw, err := io.ReadAll(rc)
	if err != nil {
		return nil, time.Time{}, err
	}

	return raw, in.ModTime, nil
}
