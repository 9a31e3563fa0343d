// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/qrc

package qrc

import (
	"bufio"
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"time"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/osfs"
)

const (
	// extractWriteBufferSize is buffered writer size used per output file.
	extractWriteBufferSize = 64 * 1024
	// extractDirMode is permission of created directories (owner rwx).
	extractDirMode = 0o700
	// extractFileMode is permission of created files.
	extractFileMode = 0o600
)

// overwriteWarning is reported when a file replaces one written earlier in the same pass,
// e.g. locale variants sharing one name.
const overwriteWarning = "output file written twice; earlier entry overwritten"

// extraction holds state of one Extract call.
type extraction struct {
	fsys    billy.Filesystem
	log     *slog.Logger
	filter  *extractFilter
	result  *ExtractResult
	c       *Container
	opts    ExtractOptions
	payload payloadOptions
	// written holds output paths of files already written in this pass.
	written map[string]struct{}
	// baseLen is length of filesystem root prefix counted against MaxPathLen.
	baseLen int
	// rootSeen reports whether the walk reached the selected subtree root.
	rootSeen bool
}

// ExtractToDir writes the container hierarchy below dstDir on the local filesystem.
func (c *Container) ExtractToDir(ctx context.Context, dstDir string, opts ExtractOptions) (*ExtractResult, error) {
	dstRootAbs, err := filepath.Abs(dstDir)
	if err != nil {
		return nil, newError(KindIO, "resolve output dir", 0, -1, err)
	}

	if err := os.MkdirAll(dstRootAbs, 0o750); err != nil {
		return nil, newError(KindIO, "create output dir", 0, -1, err)
	}

	return c.Extract(ctx, osfs.New(dstRootAbs), opts)
}

// Extract walks the tree depth-first in pre-order and materializes it into fsys.
// Directories are created before their children; files are written after their payload
// is fully decoded, so a failed entry never leaves a partial file. The first fatal error
// aborts the walk and is returned together with the result collected so far.
func (c *Container) Extract(ctx context.Context, fsys billy.Filesystem, opts ExtractOptions) (*ExtractResult, error) {
	if fsys == nil {
		return nil, ErrNilFilesystem
	}

	opts.applyDefaults()
	if !opts.FlattenRoot {
		if err := validateSegment(opts.RootName); err != nil {
			return nil, fmt.Errorf("root name: %w", err)
		}
	}

	filter, err := newExtractFilter(opts)
	if err != nil {
		return nil, err
	}

	x := &extraction{
		c:       c,
		fsys:    fsys,
		opts:    opts,
		filter:  filter,
		log:     opts.Logger,
		result:  &ExtractResult{},
		written: make(map[string]struct{}),
		payload: payloadOptions{
			maxSize:    opts.MaxDecompressedSize,
			decodeZstd: opts.DecodeZstd,
		},
	}
	if x.log == nil {
		x.log = slog.New(slog.DiscardHandler)
	}
	if root := fsys.Root(); root != "" {
		x.baseLen = len(root) + 1
	}

	start := time.Now()
	err = c.walk(ctx, opts.SanitizeNames, x.visit)
	x.result.Duration = time.Since(start)
	if err == nil && x.filter.root != "" && !x.rootSeen {
		err = fmt.Errorf("%w: root %s", ErrEntryNotFound, opts.Root)
	}
	if err != nil {
		x.log.Error("extraction aborted", "error", err)
		return x.result, err
	}

	x.log.Debug("extraction done",
		"dirs", x.result.Dirs,
		"files", x.result.Files,
		"bytes", x.result.Bytes,
		"warnings", len(x.result.Warnings))

	return x.result, nil
}

// outputPath maps entry path to output filesystem path.
func (x *extraction) outputPath(entryPath string) string {
	switch {
	case x.opts.FlattenRoot:
		return entryPath
	case entryPath == "":
		return x.opts.RootName
	default:
		return x.opts.RootName + "/" + entryPath
	}
}

// visit materializes one walked entry.
func (x *extraction) visit(entry EntryInfo, node Node) error {
	if entry.Path == x.filter.root {
		x.rootSeen = true
	}

	outPath := x.outputPath(entry.Path)
	if x.baseLen+len(outPath) > x.opts.MaxPathLen {
		return &Error{
			Kind:   KindFormat,
			Op:     "path",
			Path:   entry.Path,
			Index:  entry.Index,
			Offset: -1,
			Err:    fmt.Errorf("%w: %d bytes, limit %d", ErrPathTooLong, x.baseLen+len(outPath), x.opts.MaxPathLen),
		}
	}

	if entry.IsDir() {
		x.log.Debug("directory",
			"index", entry.Index,
			"flags", entry.Flags.String(),
			"path", outPath,
			"children", entry.ChildCount,
			"child_offset", entry.ChildOffset)

		return x.visitDir(entry, outPath)
	}

	x.log.Debug("file",
		"index", entry.Index,
		"flags", entry.Flags.String(),
		"path", outPath,
		"locale", entry.Locale,
		"data_offset", entry.DataOffset,
		"stored", entry.DataSize,
		"original", entry.OriginalSize)

	return x.visitFile(entry, node, outPath)
}

// visitDir creates directory unless filters defer it.
func (x *extraction) visitDir(entry EntryInfo, outPath string) error {
	if !x.filter.descend(entry.Path) {
		return fs.SkipDir
	}

	if !x.filter.createDir(entry.Path) {
		return nil
	}

	if outPath != "" {
		if err := x.fsys.MkdirAll(outPath, extractDirMode); err != nil {
			return &Error{Kind: KindIO, Op: "mkdir", Path: entry.Path, Index: entry.Index, Offset: -1, Err: err}
		}
	}

	x.result.Dirs++
	x.result.Entries = append(x.result.Entries, ExtractedEntry{EntryInfo: entry, Output: outPath})
	if x.opts.OnEntryDone != nil {
		x.opts.OnEntryDone(entry, 0, outPath)
	}

	return nil
}

// visitFile decodes payload and writes it to output file.
func (x *extraction) visitFile(entry EntryInfo, node Node, outPath string) error {
	if !x.filter.selectFile(entry.Path) {
		return nil
	}

	payload, warning, err := readPayload(x.c.data, node, x.payload)
	if err != nil {
		return withPath(err, entry.Path)
	}

	if warning != "" {
		x.log.Warn(warning, "index", entry.Index, "path", outPath)
		x.result.Warnings = append(x.result.Warnings, Warning{
			Index:   entry.Index,
			Path:    entry.Path,
			Message: warning,
		})
	}

	if x.filter.active() {
		if dir := path.Dir(outPath); dir != "." && dir != "/" {
			if err := x.fsys.MkdirAll(dir, extractDirMode); err != nil {
				return &Error{Kind: KindIO, Op: "mkdir", Path: entry.Path, Index: entry.Index, Offset: -1, Err: err}
			}
		}
	}

	written, err := writeOutputFile(x.fsys, outPath, x.opts.FileMode, payload)
	if err != nil {
		return &Error{Kind: KindIO, Op: "write", Path: entry.Path, Index: entry.Index, Offset: -1, Err: err}
	}

	if _, seen := x.written[outPath]; seen {
		x.log.Warn(overwriteWarning, "index", entry.Index, "path", outPath)
		x.result.Warnings = append(x.result.Warnings, Warning{
			Index:   entry.Index,
			Path:    entry.Path,
			Message: overwriteWarning,
		})
	}
	x.written[outPath] = struct{}{}

	x.result.Files++
	x.result.Bytes += written
	x.result.Entries = append(x.result.Entries, ExtractedEntry{EntryInfo: entry, Output: outPath, Written: written})
	if x.opts.OnEntryDone != nil {
		x.opts.OnEntryDone(entry, written, outPath)
	}

	return nil
}

// writeOutputFile opens output path by mode and writes payload through a buffered writer.
func writeOutputFile(fsys billy.Filesystem, outPath string, mode ExtractFileMode, payload []byte) (int64, error) {
	file, err := openOutputFile(fsys, outPath, mode)
	if err != nil {
		return 0, fmt.Errorf("open %s: %w", outPath, err)
	}

	bw := bufio.NewWriterSize(file, extractWriteBufferSize)
	written, writeErr := bw.Write(payload)
	if writeErr == nil {
		writeErr = bw.Flush()
	}

	closeErr := file.Close()
	if writeErr != nil {
		return int64(written), fmt.Errorf("write %s: %w", outPath, writeErr)
	}

	if closeErr != nil {
		return int64(written), fmt.Errorf("close %s: %w", outPath, closeErr)
	}

	return int64(written), nil
}

// openOutputFile opens output path according to selected extract file mode.
func openOutputFile(fsys billy.Filesystem, outPath string, mode ExtractFileMode) (billy.File, error) {
	switch mode {
	case ExtractFileModeTruncate:
		return fsys.OpenFile(outPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, extractFileMode)
	case ExtractFileModeCreateOnly:
		return fsys.OpenFile(outPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, extractFileMode)
	default:
		return nil, fmt.Errorf("unknown extract file mode %q", mode)
	}
}
