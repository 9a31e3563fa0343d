// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/qrc

package qrc

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
)

// ListOptions configures metadata-only listing.
type ListOptions struct {
	// Root limits listing to one subtree (slash-separated path below root); a missing root fails with ErrEntryNotFound.
	Root string `json:"root,omitempty" yaml:"root,omitempty"`
	// SanitizeNames reports filesystem-safe names instead of failing on unsafe ones.
	SanitizeNames bool `json:"sanitize_names,omitempty" yaml:"sanitize_names,omitempty"`
}

// ReadHeader reads only the binary resource file header.
func ReadHeader(path string) (RCCHeader, error) {
	f, size, err := openFileWithSize(path)
	if err != nil {
		return RCCHeader{}, err
	}
	defer func() { _ = f.Close() }()

	buf := make([]byte, min(size, rccHeaderSizeV3))
	if _, err := io.ReadFull(f, buf); err != nil {
		return RCCHeader{}, fmt.Errorf("read header: %w", err)
	}

	header, err := decodeRCCHeader(buf)
	if err != nil {
		return RCCHeader{}, err
	}

	if err := checkRCCOffsets(header, size); err != nil {
		return RCCHeader{}, err
	}

	return header, nil
}

// ListEntries opens a binary resource file and returns entry metadata without payload decoding.
func ListEntries(path string) ([]EntryInfo, error) {
	return ListEntriesWithOptions(path, ListOptions{})
}

// ListEntriesWithOptions opens a binary resource file and returns entry metadata using list options.
func ListEntriesWithOptions(path string, opts ListOptions) ([]EntryInfo, error) {
	c, err := OpenFile(path)
	if err != nil {
		return nil, err
	}

	return c.ListEntries(context.Background(), opts)
}

// ListEntries returns entries reachable from root in pre-order, limited by list options.
func (c *Container) ListEntries(ctx context.Context, opts ListOptions) ([]EntryInfo, error) {
	root := NormalizePath(opts.Root)
	var entries []EntryInfo
	rootSeen := false
	err := c.walk(ctx, opts.SanitizeNames, func(entry EntryInfo, _ Node) error {
		if entry.Path == root {
			rootSeen = true
		}

		switch {
		case isUnderPrefix(entry.Path, root):
			entries = append(entries, entry)
		case entry.IsDir() && !isAncestorOf(entry.Path, root):
			return fs.SkipDir
		}

		return nil
	})
	if err != nil {
		return nil, err
	}
	if !rootSeen {
		return nil, fmt.Errorf("%w: root %s", ErrEntryNotFound, opts.Root)
	}

	return entries, nil
}

// openFileWithSize opens a file and returns a handle plus current size.
func openFileWithSize(path string) (*os.File, int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, fmt.Errorf("open resource file: %w", err)
	}

	fi, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, 0, fmt.Errorf("stat: %w", err)
	}

	return f, fi.Size(), nil
}
