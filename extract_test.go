// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/qrc

package qrc

import (
	"bytes"
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-billy/v5/util"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/woozymasta/pathrules"
)

// nestedContainer is root -> a -> b -> c.txt plus a zlib file at top level.
func nestedContainer(t *testing.T, version Version) *Container {
	t.Helper()

	return mustContainer(t, version,
		dirNode("", 2, 1),
		dirNode("a", 1, 3),
		fileNode("main.qml", FlagCompressed, 0).with(zlibEntry(t, bytes.Repeat([]byte("Item {}\n"), 64))),
		dirNode("b", 1, 4),
		fileNode("c.txt", 0, 0).with(storedEntry([]byte("nested"))),
	)
}

// readFile reads whole file from billy filesystem.
func readFile(t *testing.T, fsys billy.Filesystem, name string) []byte {
	t.Helper()

	data, err := util.ReadFile(fsys, name)
	require.NoError(t, err)

	return data
}

func TestExtractNestedPaths(t *testing.T) {
	t.Parallel()

	for _, version := range []Version{Version1, Version2} {
		t.Run(version.String(), func(t *testing.T) {
			t.Parallel()

			fsys := memfs.New()
			var order []string
			res, err := nestedContainer(t, version).Extract(context.Background(), fsys, ExtractOptions{
				OnEntryDone: func(_ EntryInfo, _ int64, outputPath string) {
					order = append(order, outputPath)
				},
			})
			require.NoError(t, err)

			assert.Equal(t, []byte("nested"), readFile(t, fsys, "__root__/a/b/c.txt"))
			assert.Equal(t, bytes.Repeat([]byte("Item {}\n"), 64), readFile(t, fsys, "__root__/main.qml"))
			assert.Equal(t, []string{
				"__root__",
				"__root__/a",
				"__root__/a/b",
				"__root__/a/b/c.txt",
				"__root__/main.qml",
			}, order)

			assert.Equal(t, 3, res.Dirs)
			assert.Equal(t, 2, res.Files)
			assert.Equal(t, int64(6+8*64), res.Bytes)
			assert.Empty(t, res.Warnings)
			require.Len(t, res.Entries, 5)
			assert.Equal(t, "a/b/c.txt", res.Entries[3].Path)
			assert.Equal(t, int64(6), res.Entries[3].Written)
		})
	}
}

func TestExtractFlattenRoot(t *testing.T) {
	t.Parallel()

	fsys := memfs.New()
	_, err := nestedContainer(t, Version2).Extract(context.Background(), fsys, ExtractOptions{FlattenRoot: true})
	require.NoError(t, err)

	assert.Equal(t, []byte("nested"), readFile(t, fsys, "a/b/c.txt"))
	_, err = fsys.Stat("__root__")
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestExtractToDir(t *testing.T) {
	t.Parallel()

	base := t.TempDir()
	res, err := nestedContainer(t, Version2).ExtractToDir(context.Background(), base, ExtractOptions{RootName: "app"})
	require.NoError(t, err)
	assert.Equal(t, 2, res.Files)

	data, err := os.ReadFile(filepath.Join(base, "app", "a", "b", "c.txt"))
	require.NoError(t, err)
	assert.Equal(t, []byte("nested"), data)

	fi, err := os.Stat(filepath.Join(base, "app", "a"))
	require.NoError(t, err)
	assert.True(t, fi.IsDir())
	assert.Equal(t, fs.FileMode(0o700), fi.Mode().Perm()&0o700)
}

func TestExtractZstdPassThroughContinues(t *testing.T) {
	t.Parallel()

	payload := bytes.Repeat([]byte("zstd "), 100)
	entry := zstdEntry(t, payload)
	c := mustContainer(t, Version3,
		dirNode("", 2, 1),
		fileNode("packed.bin", FlagCompressedZstd, 0).with(entry),
		fileNode("plain.txt", 0, 0).with(storedEntry([]byte("plain"))),
	)

	var logs bytes.Buffer
	fsys := memfs.New()
	res, err := c.Extract(context.Background(), fsys, ExtractOptions{
		Logger: slog.New(slog.NewTextHandler(&logs, nil)),
	})
	require.NoError(t, err)

	assert.Equal(t, entry[dataLengthSize:], readFile(t, fsys, "__root__/packed.bin"))
	assert.Equal(t, []byte("plain"), readFile(t, fsys, "__root__/plain.txt"))
	require.Len(t, res.Warnings, 1)
	assert.Equal(t, "packed.bin", res.Warnings[0].Path)
	assert.Equal(t, warnUnsupportedZstd, res.Warnings[0].Message)
	assert.Contains(t, logs.String(), "level=WARN")

	fsys = memfs.New()
	res, err = c.Extract(context.Background(), fsys, ExtractOptions{DecodeZstd: true})
	require.NoError(t, err)
	assert.Empty(t, res.Warnings)
	assert.Equal(t, payload, readFile(t, fsys, "__root__/packed.bin"))
}

func TestExtractAbortsOnCorruptPayload(t *testing.T) {
	t.Parallel()

	c := mustContainer(t, Version2,
		dirNode("", 2, 1),
		fileNode("ok.txt", 0, 0).with(storedEntry([]byte("ok"))),
		fileNode("bad.bin", FlagCompressed, 0).with(zlibEntryRaw(100, []byte("not zlib"))),
	)

	fsys := memfs.New()
	res, err := c.Extract(context.Background(), fsys, ExtractOptions{})
	require.ErrorIs(t, err, ErrDecompression)

	var qe *Error
	require.ErrorAs(t, err, &qe)
	assert.Equal(t, "bad.bin", qe.Path)
	assert.Equal(t, uint32(2), qe.Index)

	// Partial result is returned and no partial file is left behind.
	require.NotNil(t, res)
	assert.Equal(t, 1, res.Files)
	_, err = fsys.Stat("__root__/bad.bin")
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestExtractPathTooLong(t *testing.T) {
	t.Parallel()

	c := mustContainer(t, Version2,
		dirNode("", 1, 1),
		fileNode(strings.Repeat("n", 100), 0, 0),
	)

	_, err := c.Extract(context.Background(), memfs.New(), ExtractOptions{MaxPathLen: 64})
	require.ErrorIs(t, err, ErrFormat)
	require.ErrorIs(t, err, ErrPathTooLong)
}

func TestExtractCreateOnly(t *testing.T) {
	t.Parallel()

	fsys := memfs.New()
	c := nestedContainer(t, Version2)
	_, err := c.Extract(context.Background(), fsys, ExtractOptions{FileMode: ExtractFileModeCreateOnly})
	require.NoError(t, err)

	_, err = c.Extract(context.Background(), fsys, ExtractOptions{FileMode: ExtractFileModeCreateOnly})
	require.ErrorIs(t, err, ErrIO)
	require.ErrorIs(t, err, os.ErrExist)

	// Default mode truncates existing files.
	require.NoError(t, util.WriteFile(fsys, "__root__/a/b/c.txt", []byte("a much longer previous body"), 0o600))
	_, err = c.Extract(context.Background(), fsys, ExtractOptions{})
	require.NoError(t, err)
	assert.Equal(t, []byte("nested"), readFile(t, fsys, "__root__/a/b/c.txt"))
}

func TestExtractRootSubtree(t *testing.T) {
	t.Parallel()

	fsys := memfs.New()
	res, err := nestedContainer(t, Version2).Extract(context.Background(), fsys, ExtractOptions{Root: "/a/b"})
	require.NoError(t, err)

	assert.Equal(t, 1, res.Files)
	assert.Equal(t, []byte("nested"), readFile(t, fsys, "__root__/a/b/c.txt"))
	_, err = fsys.Stat("__root__/main.qml")
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestExtractMissingRoot(t *testing.T) {
	t.Parallel()

	fsys := memfs.New()
	res, err := nestedContainer(t, Version2).Extract(context.Background(), fsys, ExtractOptions{Root: "a/missing"})
	require.ErrorIs(t, err, ErrEntryNotFound)
	require.NotNil(t, res)
	assert.Zero(t, res.Files)

	_, err = fsys.Stat("__root__")
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestExtractDuplicateSiblingWarns(t *testing.T) {
	t.Parallel()

	// Locale variants of one resource share a name inside their directory.
	c := mustContainer(t, Version2,
		dirNode("", 2, 1),
		fileNode("f", 0, 0).with(storedEntry([]byte("one"))),
		fileNode("f", 0, 1031).with(storedEntry([]byte("two"))),
	)

	fsys := memfs.New()
	res, err := c.Extract(context.Background(), fsys, ExtractOptions{FlattenRoot: true})
	require.NoError(t, err)

	assert.Equal(t, 2, res.Files)
	assert.Equal(t, []byte("two"), readFile(t, fsys, "f"))
	require.Len(t, res.Warnings, 1)
	assert.Equal(t, uint32(2), res.Warnings[0].Index)
	assert.Equal(t, "f", res.Warnings[0].Path)
	assert.Equal(t, overwriteWarning, res.Warnings[0].Message)

	_, err = c.Extract(context.Background(), memfs.New(), ExtractOptions{FileMode: ExtractFileModeCreateOnly})
	require.ErrorIs(t, err, ErrIO)
	require.ErrorIs(t, err, os.ErrExist)
}

func TestExtractIncludeRules(t *testing.T) {
	t.Parallel()

	fsys := memfs.New()
	res, err := nestedContainer(t, Version2).Extract(context.Background(), fsys, ExtractOptions{
		Include: includeRules("*.txt"),
	})
	require.NoError(t, err)

	assert.Equal(t, 1, res.Files)
	assert.Equal(t, []byte("nested"), readFile(t, fsys, "__root__/a/b/c.txt"))
	_, err = fsys.Stat("__root__/main.qml")
	require.ErrorIs(t, err, os.ErrNotExist)

	_, err = nestedContainer(t, Version2).Extract(context.Background(), memfs.New(), ExtractOptions{
		Include: []pathrules.Rule{{Action: pathrules.ActionUnknown, Pattern: "*.txt"}},
	})
	require.ErrorIs(t, err, ErrInvalidIncludePattern)
}

func TestExtractSanitizeNames(t *testing.T) {
	t.Parallel()

	c := mustContainer(t, Version2,
		dirNode("", 2, 1),
		fileNode("CON.txt", 0, 0).with(storedEntry([]byte("1"))),
		fileNode("a:b.txt", 0, 0).with(storedEntry([]byte("2"))),
	)

	fsys := memfs.New()
	_, err := c.Extract(context.Background(), fsys, ExtractOptions{SanitizeNames: true})
	require.NoError(t, err)
	assert.Equal(t, []byte("1"), readFile(t, fsys, "__root__/_CON.txt"))
	assert.Equal(t, []byte("2"), readFile(t, fsys, "__root__/a_b.txt"))
}

func TestExtractValidatesOptions(t *testing.T) {
	t.Parallel()

	c := nestedContainer(t, Version2)
	_, err := c.Extract(context.Background(), nil, ExtractOptions{})
	require.ErrorIs(t, err, ErrNilFilesystem)

	_, err = c.Extract(context.Background(), memfs.New(), ExtractOptions{RootName: ".."})
	require.ErrorIs(t, err, ErrInvalidName)
}
