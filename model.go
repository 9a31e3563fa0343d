// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/qrc

package qrc

import (
	"io"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/woozymasta/pathrules"
)

// Internal binary layout and format limits.
const (
	strideV1        = 14 // tree record size for version 1
	strideV2        = 22 // tree record size for version 2 and later
	nameHeaderSize  = 6  // u16 code unit count + u32 name hash
	dataLengthSize  = 4  // u32 payload length prefix
	dataHintSize    = 4  // u32 decompressed length hint of compressed payloads
	maxNameUnits    = 0xffff
	maxTreeRecords  = 1<<32 - 1
	maxRCCData      = 1 << 32
)

// Default extraction and build tuning values.
const (
	DefaultRootName            = "__root__"
	DefaultMaxPathLen          = 4096
	DefaultMaxDecompressedSize = 1 << 30
	DefaultMinCompressSize     = 64
	DefaultMaxCompressSize     = 64 * 1024 * 1024
	DefaultCompressLevel       = -1
)

// Version is the resource tree format version. It selects record stride.
type Version uint32

// Supported tree format versions.
const (
	// Version1 uses 14-byte tree records.
	Version1 Version = 1
	// Version2 appends a 64-bit field to each record (22-byte stride).
	Version2 Version = 2
	// Version3 keeps version 2 layout and allows zstd payloads.
	Version3 Version = 3
)

// String returns version as "vN".
func (v Version) String() string {
	return "v" + strconv.FormatUint(uint64(v), 10)
}

// valid reports whether v is a known tree format version.
func (v Version) valid() bool {
	return v >= Version1 && v <= Version3
}

// stride returns tree record size in bytes.
func (v Version) stride() int {
	if v == Version1 {
		return strideV1
	}

	return strideV2
}

// Flags is the 16-bit node flag mask.
type Flags uint16

// Node flag bits.
const (
	// FlagCompressed marks zlib-compressed file payload with size hint.
	FlagCompressed Flags = 0x01
	// FlagDirectory marks directory node; union fields hold child range.
	FlagDirectory Flags = 0x02
	// FlagCompressedZstd marks zstd-compressed file payload.
	FlagCompressedZstd Flags = 0x04
)

// IsDir reports whether Directory bit is set.
func (f Flags) IsDir() bool { return f&FlagDirectory != 0 }

// IsCompressed reports whether Compressed bit is set.
func (f Flags) IsCompressed() bool { return f&FlagCompressed != 0 }

// IsZstd reports whether CompressedZstd bit is set.
func (f Flags) IsZstd() bool { return f&FlagCompressedZstd != 0 }

// String returns flag names joined by "|".
func (f Flags) String() string {
	var parts []string
	if f.IsDir() {
		parts = append(parts, "directory")
	}
	if f.IsCompressed() {
		parts = append(parts, "compressed")
	}
	if f.IsZstd() {
		parts = append(parts, "zstd")
	}
	if len(parts) == 0 {
		return "file"
	}

	return strings.Join(parts, "|")
}

// Node is one decoded tree record.
type Node struct {
	// Extra is the trailing 64-bit field of version 2+ records (zero for version 1).
	Extra uint64 `json:"extra,omitempty" yaml:"extra,omitempty"`
	// NameOffset is byte offset of the name entry; ignored for root.
	NameOffset uint32 `json:"name_offset" yaml:"name_offset"`
	// Meta is child count for directories and locale for files.
	Meta uint32 `json:"meta" yaml:"meta"`
	// Ref is first child index for directories and data offset for files.
	Ref uint32 `json:"ref" yaml:"ref"`
	// Index is node position in tree array.
	Index uint32 `json:"index" yaml:"index"`
	// Flags is node flag mask.
	Flags Flags `json:"flags" yaml:"flags"`
}

// ChildCount returns number of children of a directory node.
func (n Node) ChildCount() uint32 { return n.Meta }

// ChildOffset returns index of first child of a directory node.
func (n Node) ChildOffset() uint32 { return n.Ref }

// Locale returns locale identifier of a file node.
func (n Node) Locale() uint32 { return n.Meta }

// DataOffset returns data buffer offset of a file node.
func (n Node) DataOffset() uint32 { return n.Ref }

// EntryInfo describes one tree node resolved to a path.
type EntryInfo struct {
	// Path is slash-separated path relative to root; empty for root.
	Path string `json:"path" yaml:"path"`
	// Index is tree node index.
	Index uint32 `json:"index" yaml:"index"`
	// Depth is distance from root.
	Depth int `json:"depth" yaml:"depth"`
	// Flags is node flag mask.
	Flags Flags `json:"flags" yaml:"flags"`
	// Locale is file locale identifier.
	Locale uint32 `json:"locale,omitempty" yaml:"locale,omitempty"`
	// ChildOffset is first child index for directories.
	ChildOffset uint32 `json:"child_offset,omitempty" yaml:"child_offset,omitempty"`
	// ChildCount is number of children for directories.
	ChildCount uint32 `json:"child_count,omitempty" yaml:"child_count,omitempty"`
	// DataOffset is data buffer offset of file entry.
	DataOffset uint32 `json:"data_offset,omitempty" yaml:"data_offset,omitempty"`
	// DataSize is stored payload size in bytes (without size hint).
	DataSize uint32 `json:"data_size,omitempty" yaml:"data_size,omitempty"`
	// OriginalSize is decompressed size hint for zlib entries; zero otherwise.
	OriginalSize uint32 `json:"original_size,omitempty" yaml:"original_size,omitempty"`
	// Extra is the raw 64-bit record trailer of version 2+ trees (modification time in ms when set by rcc).
	Extra uint64 `json:"extra,omitempty" yaml:"extra,omitempty"`
}

// IsDir reports whether entry is a directory.
func (e EntryInfo) IsDir() bool {
	return e.Flags.IsDir()
}

// IsCompressed reports whether entry payload is zlib-compressed.
func (e EntryInfo) IsCompressed() bool {
	return !e.Flags.IsDir() && e.Flags.IsCompressed()
}

// Warning is one non-fatal extraction diagnostic.
type Warning struct {
	// Path is entry path relative to root.
	Path string `json:"path" yaml:"path"`
	// Message describes degradation.
	Message string `json:"message" yaml:"message"`
	// Index is tree node index.
	Index uint32 `json:"index" yaml:"index"`
}

// ExtractedEntry is one entry written to output filesystem.
type ExtractedEntry struct {
	// Output is path in output filesystem.
	Output string `json:"output" yaml:"output"`
	EntryInfo `yaml:",inline"`
	// Written is number of payload bytes written; zero for directories.
	Written int64 `json:"written,omitempty" yaml:"written,omitempty"`
}

// ExtractResult contains extraction output statistics.
type ExtractResult struct {
	// Entries lists created directories and written files in traversal order.
	Entries []ExtractedEntry `json:"entries,omitempty" yaml:"entries,omitempty"`
	// Warnings lists non-fatal diagnostics such as unsupported compression.
	Warnings []Warning `json:"warnings,omitempty" yaml:"warnings,omitempty"`
	// Dirs is number of directories created or reused.
	Dirs int `json:"dirs" yaml:"dirs"`
	// Files is number of file writes; a write replacing an earlier one also adds a Warning.
	Files int `json:"files" yaml:"files"`
	// Bytes is total payload bytes written.
	Bytes int64 `json:"bytes" yaml:"bytes"`
	// Duration is end-to-end extraction duration.
	Duration time.Duration `json:"duration,omitempty" yaml:"duration,omitempty"`
}

// ExtractFileMode controls output file open behavior during extraction.
type ExtractFileMode string

// Output file creation policies for extraction.
const (
	// ExtractFileModeTruncate opens existing files with truncate and creates missing files.
	ExtractFileModeTruncate ExtractFileMode = "truncate"
	// ExtractFileModeCreateOnly creates files only when absent and fails on existing files.
	ExtractFileModeCreateOnly ExtractFileMode = "create_only"
)

// ExtractOptions configures Extract behavior.
type ExtractOptions struct {
	// Logger receives per-node debug diagnostics and warnings; nil discards them.
	Logger *slog.Logger `json:"-" yaml:"-"`
	// OnEntryDone is called after one entry is created or fully written.
	OnEntryDone func(entry EntryInfo, written int64, outputPath string) `json:"-" yaml:"-"`
	// Include filters extracted files by ordered path rules; empty means all files.
	Include []pathrules.Rule `json:"include,omitempty" yaml:"include,omitempty"`
	// IncludeMatcherOptions control include rule matching.
	IncludeMatcherOptions pathrules.MatcherOptions `json:"include_matcher_options,omitzero" yaml:"include_matcher_options,omitzero"`
	// Root limits extraction to one subtree (slash-separated path below root); a missing root fails with ErrEntryNotFound.
	Root string `json:"root,omitempty" yaml:"root,omitempty"`
	// RootName is the placeholder directory name for tree root. Default is "__root__".
	RootName string `json:"root_name,omitempty" yaml:"root_name,omitempty"`
	// FileMode controls output file creation policy.
	FileMode ExtractFileMode `json:"file_mode,omitempty" yaml:"file_mode,omitempty"`
	// MaxPathLen caps output path length in bytes. Default is 4096.
	MaxPathLen int `json:"max_path_len,omitempty" yaml:"max_path_len,omitempty"`
	// MaxDecompressedSize caps accepted decompressed size hints. Default is 1 GiB.
	MaxDecompressedSize uint32 `json:"max_decompressed_size,omitempty" yaml:"max_decompressed_size,omitempty"`
	// FlattenRoot writes root children directly into output base.
	FlattenRoot bool `json:"flatten_root,omitempty" yaml:"flatten_root,omitempty"`
	// SanitizeNames rewrites unsafe names instead of failing.
	SanitizeNames bool `json:"sanitize_names,omitempty" yaml:"sanitize_names,omitempty"`
	// DecodeZstd decodes zstd payloads instead of writing them raw with a warning.
	DecodeZstd bool `json:"decode_zstd,omitempty" yaml:"decode_zstd,omitempty"`
}

// Compression selects payload codec used by Build.
type Compression string

// Build payload codecs.
const (
	// CompressionZlib stores qCompress-style payloads (size hint + zlib stream).
	CompressionZlib Compression = "zlib"
	// CompressionZstd stores zstd frames; requires Version3.
	CompressionZstd Compression = "zstd"
)

// Input describes one source stream to be built into a container entry.
type Input struct {
	// Open returns raw source stream for this entry.
	Open func() (io.ReadCloser, error) `json:"-" yaml:"-"`
	// Path is destination path inside container.
	Path string `json:"path" yaml:"path"`
	// ModTime is stored in the record trailer of version 2 and later trees.
	ModTime time.Time `json:"mod_time,omitzero" yaml:"mod_time,omitempty"`
	// Locale is stored file locale identifier.
	Locale uint32 `json:"locale,omitempty" yaml:"locale,omitempty"`
}

// BuildEntryProgress contains one completed entry event from build flow.
type BuildEntryProgress struct {
	// Path is entry path stored in container.
	Path string `json:"path" yaml:"path"`
	// DataOffset is payload offset in data buffer.
	DataOffset uint32 `json:"data_offset" yaml:"data_offset"`
	// DataSize is stored payload size in bytes.
	DataSize uint32 `json:"data_size" yaml:"data_size"`
	// OriginalSize is source size in bytes.
	OriginalSize uint32 `json:"original_size" yaml:"original_size"`
	// Flags is stored node flag mask.
	Flags Flags `json:"flags" yaml:"flags"`
	// CompressionCandidate reports whether compression rules selected this entry.
	CompressionCandidate bool `json:"compression_candidate,omitempty" yaml:"compression_candidate,omitempty"`
}

// BuildOptions configures Build behavior.
type BuildOptions struct {
	// OnEntryDone is called after one file payload is appended to data buffer.
	OnEntryDone func(entry BuildEntryProgress) `json:"-" yaml:"-"`
	// Compress defines ordered path rules for compression candidate selection.
	Compress []pathrules.Rule `json:"compress,omitempty" yaml:"compress,omitempty"`
	// CompressMatcherOptions control compression path rule matching.
	CompressMatcherOptions pathrules.MatcherOptions `json:"compress_matcher_options,omitzero" yaml:"compress_matcher_options,omitzero"`
	// Compression selects payload codec. Default is zlib.
	Compression Compression `json:"compression,omitempty" yaml:"compression,omitempty"`
	// Version selects tree record layout. Default is Version2.
	Version Version `json:"version,omitempty" yaml:"version,omitempty"`
	// CompressLevel is zlib level (-1 default, 1..9). Ignored for zstd.
	CompressLevel int `json:"compress_level,omitempty" yaml:"compress_level,omitempty"`
	// MinCompressSize disables compression for entries smaller than this size.
	MinCompressSize uint32 `json:"min_compress_size,omitempty" yaml:"min_compress_size,omitempty"`
	// MaxCompressSize disables compression for entries larger than this size.
	MaxCompressSize uint32 `json:"max_compress_size,omitempty" yaml:"max_compress_size,omitempty"`
}

// BuildResult contains build output statistics.
type BuildResult struct {
	// Files is number of file nodes written.
	Files int `json:"files" yaml:"files"`
	// Dirs is number of directory nodes written, root included.
	Dirs int `json:"dirs" yaml:"dirs"`
	// DataSize is total data buffer size in bytes.
	DataSize int64 `json:"data_size" yaml:"data_size"`
	// CompressedEntries is number of entries written with compressed payload.
	CompressedEntries int `json:"compressed_entries,omitempty" yaml:"compressed_entries,omitempty"`
	// SkippedCompressionEntries is number of compression candidates stored raw.
	SkippedCompressionEntries int `json:"skipped_compression_entries,omitempty" yaml:"skipped_compression_entries,omitempty"`
	// Duration is end-to-end build duration.
	Duration time.Duration `json:"duration,omitempty" yaml:"duration,omitempty"`
}

// applyDefaults fills zero-valued extract options with defaults.
func (opts *ExtractOptions) applyDefaults() {
	if opts.RootName == "" {
		opts.RootName = DefaultRootName
	}

	if opts.FileMode == "" {
		opts.FileMode = ExtractFileModeTruncate
	}

	if opts.MaxPathLen <= 0 {
		opts.MaxPathLen = DefaultMaxPathLen
	}

	if opts.MaxDecompressedSize == 0 {
		opts.MaxDecompressedSize = DefaultMaxDecompressedSize
	}

	if opts.IncludeMatcherOptions == (pathrules.MatcherOptions{}) {
		opts.IncludeMatcherOptions = pathrules.MatcherOptions{
			DefaultAction: pathrules.ActionExclude,
		}
	}

	if opts.IncludeMatcherOptions.DefaultAction == pathrules.ActionUnknown {
		opts.IncludeMatcherOptions.DefaultAction = pathrules.ActionExclude
	}
}

// applyDefaults fills zero-valued build options with defaults.
func (opts *BuildOptions) applyDefaults() {
	if opts.Version == 0 {
		opts.Version = Version2
	}

	if opts.Compression == "" {
		opts.Compression = CompressionZlib
	}

	if opts.CompressLevel == 0 {
		opts.CompressLevel = DefaultCompressLevel
	}

	if opts.MinCompressSize == 0 {
		opts.MinCompressSize = DefaultMinCompressSize
	}

	if opts.MaxCompressSize == 0 || opts.MaxCompressSize <= opts.MinCompressSize {
		opts.MaxCompressSize = DefaultMaxCompressSize
	}

	if opts.CompressMatcherOptions == (pathrules.MatcherOptions{}) {
		opts.CompressMatcherOptions = pathrules.MatcherOptions{
			CaseInsensitive: true,
			DefaultAction:   pathrules.ActionExclude,
		}
	}

	if opts.CompressMatcherOptions.DefaultAction == pathrules.ActionUnknown {
		opts.CompressMatcherOptions.DefaultAction = pathrules.ActionExclude
	}
}
