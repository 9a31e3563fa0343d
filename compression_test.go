// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/qrc

package qrc

import (
	"bytes"
	"encoding/binary"
	"errors"
	"testing"

	"github.com/woozymasta/pathrules"
)

func TestCompressMatcherMatch(t *testing.T) {
	t.Parallel()

	matcher, err := newRuleMatcher(includeRules(
		"*.qml",
		"shaders/",
		"/assets/fonts/**/*.ttf",
	), pathrules.MatcherOptions{
		CaseInsensitive: true,
		DefaultAction:   pathrules.ActionExclude,
	})
	if err != nil {
		t.Fatalf("new matcher: %v", err)
	}

	cases := []struct {
		name string
		path string
		want bool
	}{
		{name: "extension rule", path: `qml\views\Main.QML`, want: true},
		{name: "dir-only rule", path: "gl/shaders/a.frag", want: true},
		{name: "anchored root match", path: "assets/fonts/sans/a.ttf", want: true},
		{name: "anchored root miss", path: "x/assets/fonts/sans/a.ttf", want: false},
		{name: "resource scheme", path: ":/qml/main.qml", want: true},
		{name: "no match", path: "images/logo.png", want: false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			got := matcher.Match(tc.path)
			if got != tc.want {
				t.Fatalf("Match(%q) = %v, want %v", tc.path, got, tc.want)
			}
		})
	}
}

func TestShouldCompressPolicy(t *testing.T) {
	t.Parallel()

	opts := BuildOptions{
		Compress:        includeRules("*.bin"),
		MinCompressSize: 16,
		MaxCompressSize: 64,
	}
	opts.applyDefaults()

	matcher, err := newRuleMatcher(opts.Compress, opts.CompressMatcherOptions)
	if err != nil {
		t.Fatalf("new matcher: %v", err)
	}

	cases := []struct {
		path string
		size int
		want bool
	}{
		{path: "a.bin", size: 32, want: true},
		{path: "a.bin", size: 15, want: false},
		{path: "a.bin", size: 65, want: false},
		{path: "a.txt", size: 32, want: false},
	}

	for _, tc := range cases {
		if got := shouldCompress(opts, matcher, tc.path, tc.size); got != tc.want {
			t.Fatalf("shouldCompress(%q, %d)=%v, want %v", tc.path, tc.size, got, tc.want)
		}
	}

	if shouldCompress(opts, nil, "a.bin", 32) {
		t.Fatal("nil matcher must disable compression")
	}
}

func TestCompressMatcherIncludeExcludeRules(t *testing.T) {
	t.Parallel()

	matcher, err := newRuleMatcher([]pathrules.Rule{
		{Action: pathrules.ActionInclude, Pattern: "qml/**"},
		excludeRule("qml/tmp/**"),
		{Action: pathrules.ActionInclude, Pattern: "qml/tmp/keep/**"},
	}, pathrules.MatcherOptions{DefaultAction: pathrules.ActionExclude})
	if err != nil {
		t.Fatalf("new matcher: %v", err)
	}

	if !matcher.Match("qml/main.qml") {
		t.Fatal("qml/main.qml should match")
	}
	if matcher.Match("qml/tmp/scratch.qml") {
		t.Fatal("qml/tmp/scratch.qml should be excluded")
	}
	if !matcher.Match("qml/tmp/keep/a.qml") {
		t.Fatal("qml/tmp/keep/a.qml should be re-included")
	}
}

func TestCompressMatcherInvalidRule(t *testing.T) {
	t.Parallel()

	_, err := Build(t.Context(), []Input{bytesInput("a.qml", nil)}, BuildOptions{
		Compress: []pathrules.Rule{{Action: pathrules.ActionUnknown, Pattern: "*.qml"}},
	})
	if !errors.Is(err, ErrInvalidCompressPattern) {
		t.Fatalf("expected ErrInvalidCompressPattern, got %v", err)
	}

	m, err := newRuleMatcher([]pathrules.Rule{{Action: pathrules.ActionInclude, Pattern: "  "}}, pathrules.MatcherOptions{})
	if err != nil || m != nil {
		t.Fatalf("blank patterns: matcher=%v err=%v, want nil, nil", m, err)
	}
}

func TestEncodeDataEntry(t *testing.T) {
	t.Parallel()

	opts := BuildOptions{}
	opts.applyDefaults()

	payload := bytes.Repeat([]byte("compressible "), 64)
	flags, entry, err := encodeDataEntry(payload, true, opts)
	if err != nil {
		t.Fatalf("encodeDataEntry: %v", err)
	}
	if flags != FlagCompressed {
		t.Fatalf("flags=%s, want compressed", flags)
	}
	if got := binary.BigEndian.Uint32(entry[0:4]); int(got) != len(entry)-4 {
		t.Fatalf("length prefix=%d, want %d", got, len(entry)-4)
	}
	if got := binary.BigEndian.Uint32(entry[4:8]); int(got) != len(payload) {
		t.Fatalf("size hint=%d, want %d", got, len(payload))
	}

	out, warning, err := readPayload(entry, Node{Flags: flags}, payloadOptions{})
	if err != nil || warning != "" {
		t.Fatalf("readPayload: %v %q", err, warning)
	}
	if !bytes.Equal(out, payload) {
		t.Fatal("round trip mismatch")
	}

	flags, entry, err = encodeDataEntry([]byte("tiny"), true, opts)
	if err != nil {
		t.Fatalf("encodeDataEntry(tiny): %v", err)
	}
	if flags != 0 || !bytes.Equal(entry, storedEntry([]byte("tiny"))) {
		t.Fatalf("tiny payload: flags=%s entry=%x, want stored", flags, entry)
	}

	opts.Compression = "lz4"
	if _, _, err := encodeDataEntry(payload, true, opts); err == nil {
		t.Fatal("expected error for unknown compression")
	}
}
