// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/qrc

/*
Package qrc decodes, extracts and builds Qt resource containers: the three
buffers (tree, names, data) that rcc embeds into binaries or writes as
standalone ".rcc" files.

Container layout (summary):
  - tree is an array of fixed-size records, 14 bytes for version 1 and
    22 bytes for version 2 and later; record 0 is the root directory;
  - directory records hold a contiguous child range [offset, offset+count);
  - names hold u16 length, u32 hash and UTF-16BE code units per entry;
  - data holds u32 length-prefixed payloads; zlib payloads start with a
    u32 decompressed size hint;
  - all integers are big-endian and every offset is bounds-checked
    against the buffer extents passed in.

# Reading

Wrap buffers recovered from a binary (or parse a ".rcc" file):

	c, err := qrc.New(qrc.Version2, tree, names, data)
	if err != nil {
	    return err
	}
	entries, err := c.Entries(ctx)
	if err != nil {
	    return err
	}
	for _, e := range entries {
	    if !e.IsDir() {
	        body, _ := c.ReadEntry(e.Path)
	        _ = body
	    }
	}

For metadata-only scans of resource files:

	header, err := qrc.ReadHeader("app.rcc")
	if err != nil {
	    return err
	}
	entries, err := qrc.ListEntries("app.rcc")
	if err != nil {
	    return err
	}
	_, _ = header, entries

# Extracting

Extract the whole tree below "out/__root__":

	res, err := c.ExtractToDir(ctx, "out/", qrc.ExtractOptions{})
	if err != nil {
	    return err
	}
	for _, w := range res.Warnings {
	    log.Println(w.Path, w.Message)
	}

Extraction writes into any go-billy filesystem, e.g. memfs in tests.
Unsafe names fail with ErrEncoding unless SanitizeNames is set; include rules
use github.com/woozymasta/pathrules:

	res, err := c.Extract(ctx, memfs.New(), qrc.ExtractOptions{
	    FlattenRoot:   true,
	    SanitizeNames: true,
	    Include: []pathrules.Rule{
	        {Action: pathrules.ActionInclude, Pattern: "*.qml"},
	    },
	})

Failures are *Error values classified by kind:

	if errors.Is(err, qrc.ErrDecompression) {
	    var qe *qrc.Error
	    if errors.As(err, &qe) {
	        log.Println(qe.Index, qe.Path)
	    }
	}

# Building

Build buffers from stream-oriented inputs and write a ".rcc" file:

	inputs := []qrc.Input{
	    {Path: "qml/main.qml", Open: func() (io.ReadCloser, error) { return os.Open("main.qml") }},
	}
	res, err := qrc.PackFile(ctx, "app.rcc", inputs, qrc.BuildOptions{
	    Compress: []pathrules.Rule{
	        {Action: pathrules.ActionInclude, Pattern: "*.qml"},
	    },
	})
	_ = res.CompressedEntries
*/
package qrc
