// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/qrc

// Command qrcextract lists and extracts Qt resource containers.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/woozymasta/pathrules"
	"github.com/woozymasta/qrc"
)

// baseEnv overrides the default output base directory.
const baseEnv = "QTEXTRACT_BASE"

type config struct {
	outDir      string
	root        string
	manifest    string
	treeFile    string
	namesFile   string
	dataFile    string
	maxSize     string
	include     []string
	files       []string
	version     uint
	list        bool
	decodeZstd  bool
	sanitize    bool
	flatten     bool
	createOnly  bool
	verbose     bool
	maxSizeByte uint64
}

func main() {
	cfg, err := parseFlags(os.Args[1:], os.Stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}

		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	level := slog.LevelInfo
	if cfg.verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := run(ctx, cfg, logger, os.Stdout); err != nil {
		logger.Error("qrcextract failed", "error", err)
		stop()
		os.Exit(1) //nolint:gocritic // stop was called above
	}
}

func parseFlags(args []string, output io.Writer) (config, error) {
	cfg := config{outDir: os.Getenv(baseEnv)}
	if cfg.outDir == "" {
		cfg.outDir = "."
	}

	fs := flag.NewFlagSet("qrcextract", flag.ContinueOnError)
	fs.SetOutput(output)
	fs.Usage = func() {
		fmt.Fprintf(output, "usage: qrcextract [flags] file.rcc...\n")
		fmt.Fprintf(output, "       qrcextract [flags] -tree t.bin -names n.bin -data d.bin -version 2\n\n")
		fs.PrintDefaults()
	}

	fs.StringVar(&cfg.outDir, "o", cfg.outDir, "output base directory (default $"+baseEnv+" or .)")
	fs.StringVar(&cfg.root, "root", "", "extract only this subtree (slash-separated path)")
	fs.Func("include", "include files matching glob pattern (repeatable)", func(v string) error {
		cfg.include = append(cfg.include, v)
		return nil
	})
	fs.BoolVar(&cfg.list, "list", false, "list entries instead of extracting")
	fs.StringVar(&cfg.manifest, "manifest", "", "write manifest to file (.yaml, .yml or .json)")
	fs.BoolVar(&cfg.decodeZstd, "decode-zstd", false, "decode zstd payloads instead of writing them raw")
	fs.BoolVar(&cfg.sanitize, "sanitize", false, "rewrite unsafe entry names instead of failing")
	fs.BoolVar(&cfg.flatten, "flatten", false, "write root children directly into output base")
	fs.BoolVar(&cfg.createOnly, "no-overwrite", false, "fail on existing output files")
	fs.StringVar(&cfg.maxSize, "max-size", "", "maximum decompressed entry size (e.g. 256MiB)")
	fs.BoolVar(&cfg.verbose, "v", false, "log every node")
	fs.StringVar(&cfg.treeFile, "tree", "", "raw tree buffer dump")
	fs.StringVar(&cfg.namesFile, "names", "", "raw names buffer dump")
	fs.StringVar(&cfg.dataFile, "data", "", "raw data buffer dump")
	fs.UintVar(&cfg.version, "version", uint(qrc.Version2), "tree format version of raw dumps (1, 2 or 3)")
	if err := fs.Parse(args); err != nil {
		return config{}, err
	}

	cfg.files = fs.Args()
	raw := cfg.treeFile != "" || cfg.namesFile != "" || cfg.dataFile != ""
	switch {
	case raw && (cfg.treeFile == "" || cfg.namesFile == "" || cfg.dataFile == ""):
		return config{}, errors.New("-tree, -names and -data must be given together")
	case raw && len(cfg.files) > 0:
		return config{}, errors.New("raw buffer dumps and resource files are mutually exclusive")
	case !raw && len(cfg.files) == 0:
		fs.Usage()
		return config{}, errors.New("no input given")
	}

	if cfg.manifest != "" {
		if _, err := manifestFormat(cfg.manifest); err != nil {
			return config{}, err
		}
	}

	if cfg.maxSize != "" {
		size, err := humanize.ParseBytes(cfg.maxSize)
		if err != nil {
			return config{}, fmt.Errorf("max-size: %w", err)
		}
		if size == 0 || size > 1<<32-1 {
			return config{}, fmt.Errorf("max-size: %s outside (0, 4GiB)", cfg.maxSize)
		}
		cfg.maxSizeByte = size
	}

	return cfg, nil
}

// source is one opened container with its root placeholder name.
type source struct {
	container *qrc.Container
	name      string
	rootName  string
}

func run(ctx context.Context, cfg config, logger *slog.Logger, stdout io.Writer) error {
	sources, err := openSources(cfg)
	if err != nil {
		return err
	}

	m := manifest{}
	for _, src := range sources {
		record := manifestSource{Source: src.name, RootName: src.rootName}
		if header, ok := src.container.Header(); ok {
			record.Header = &header
		}

		if cfg.list {
			entries, err := src.container.ListEntries(ctx, qrc.ListOptions{
				Root:          cfg.root,
				SanitizeNames: cfg.sanitize,
			})
			if err != nil {
				return fmt.Errorf("%s: %w", src.name, err)
			}

			printEntries(stdout, src.name, entries)
			record.Entries = entries
			m.Sources = append(m.Sources, record)
			continue
		}

		res, err := src.container.ExtractToDir(ctx, cfg.outDir, extractOptions(cfg, src, logger))
		if res != nil {
			record.Result = res
			m.Sources = append(m.Sources, record)
		}
		if err != nil {
			if cfg.manifest != "" {
				_ = writeManifest(cfg.manifest, m)
			}

			return fmt.Errorf("%s: %w", src.name, err)
		}

		fmt.Fprintf(stdout, "%s: %d dirs, %d files, %s in %s",
			src.name, res.Dirs, res.Files, humanize.IBytes(uint64(res.Bytes)), res.Duration.Round(1e6)) //nolint:gosec // written bytes are non-negative
		if len(res.Warnings) > 0 {
			fmt.Fprintf(stdout, ", %d warnings", len(res.Warnings))
		}
		fmt.Fprintln(stdout)
	}

	if cfg.manifest != "" {
		return writeManifest(cfg.manifest, m)
	}

	return nil
}

// extractOptions maps CLI flags to extraction options of one source.
func extractOptions(cfg config, src source, logger *slog.Logger) qrc.ExtractOptions {
	opts := qrc.ExtractOptions{
		Logger:              logger.With("source", src.name),
		Root:                cfg.root,
		RootName:            src.rootName,
		FlattenRoot:         cfg.flatten,
		SanitizeNames:       cfg.sanitize,
		DecodeZstd:          cfg.decodeZstd,
		MaxDecompressedSize: uint32(cfg.maxSizeByte), //nolint:gosec // bounded in parseFlags
	}
	if cfg.createOnly {
		opts.FileMode = qrc.ExtractFileModeCreateOnly
	}

	for _, pattern := range cfg.include {
		opts.Include = append(opts.Include, pathrules.Rule{
			Action:  pathrules.ActionInclude,
			Pattern: pattern,
		})
	}

	return opts
}

// openSources opens resource files or raw buffer dumps.
func openSources(cfg config) ([]source, error) {
	if len(cfg.files) == 0 {
		tree, err := os.ReadFile(cfg.treeFile)
		if err != nil {
			return nil, err
		}
		names, err := os.ReadFile(cfg.namesFile)
		if err != nil {
			return nil, err
		}
		data, err := os.ReadFile(cfg.dataFile)
		if err != nil {
			return nil, err
		}

		c, err := qrc.New(qrc.Version(cfg.version), tree, names, data) //nolint:gosec // validated by New
		if err != nil {
			return nil, err
		}

		return []source{{container: c, name: cfg.treeFile, rootName: qrc.DefaultRootName}}, nil
	}

	sources := make([]source, 0, len(cfg.files))
	for _, file := range cfg.files {
		c, err := qrc.OpenFile(file)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", file, err)
		}

		rootName, err := rootNameOf(file)
		if err != nil {
			return nil, err
		}

		sources = append(sources, source{container: c, name: file, rootName: rootName})
	}

	return sources, nil
}

// rootNameOf derives root placeholder directory from resource file name.
func rootNameOf(file string) (string, error) {
	base := filepath.Base(file)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	if base == "" {
		return qrc.DefaultRootName, nil
	}

	name, err := qrc.SanitizeName(base)
	if err != nil {
		return "", fmt.Errorf("root name for %s: %w", file, err)
	}

	return name, nil
}

// printEntries writes one line per entry: kind, sizes and path.
func printEntries(w io.Writer, name string, entries []qrc.EntryInfo) {
	for _, e := range entries {
		entryPath := e.Path
		if entryPath == "" {
			entryPath = "/"
		}

		if e.IsDir() {
			fmt.Fprintf(w, "%s\td\t%d\t-\t%s\n", name, e.ChildCount, entryPath)
			continue
		}

		size := humanize.IBytes(uint64(e.DataSize))
		if e.OriginalSize > 0 {
			size += " (" + humanize.IBytes(uint64(e.OriginalSize)) + ")"
		}
		fmt.Fprintf(w, "%s\t%s\t%d\t%s\t%s\n", name, e.Flags, e.Locale, size, entryPath)
	}
}
