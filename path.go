// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/qrc

package qrc

import (
	"fmt"
	"path"
	"strings"
)

// NormalizePath converts a resource path to normalized slash-separated form relative to root.
// It trims spaces, accepts "/", "\" and the ":/" resource scheme prefix, and cleans "." segments.
func NormalizePath(raw string) string {
	raw = normalizePathForMatching(raw)
	raw = strings.TrimPrefix(raw, ":")
	raw = strings.TrimPrefix(raw, "/")
	raw = path.Clean("/" + raw)
	raw = strings.TrimPrefix(raw, "/")
	if raw == "." {
		return ""
	}

	return strings.TrimSuffix(raw, "/")
}

// normalizePathForMatching normalizes user/input paths for matcher use.
func normalizePathForMatching(p string) string {
	p = strings.TrimSpace(p)
	p = strings.ReplaceAll(p, `\`, `/`)
	p = strings.TrimPrefix(p, "./")
	return p
}

// normalizeInputEntryPath converts build input path to canonical container form and rejects empty segments.
func normalizeInputEntryPath(raw string) (string, error) {
	normalizedPath := NormalizePath(raw)
	if normalizedPath == "" {
		return "", fmt.Errorf("%w: %q", ErrInvalidEntryPath, raw)
	}

	for segment := range strings.SplitSeq(normalizedPath, "/") {
		if err := validateSegment(segment); err != nil {
			return "", fmt.Errorf("%w: %q: %w", ErrInvalidEntryPath, raw, err)
		}
	}

	return normalizedPath, nil
}

// isUnderPrefix reports whether entryPath equals prefix or lies below it.
func isUnderPrefix(entryPath, prefix string) bool {
	return prefix == "" || entryPath == prefix || strings.HasPrefix(entryPath, prefix+"/")
}

// isAncestorOf reports whether dirPath is a proper ancestor of target (root is ancestor of all).
func isAncestorOf(dirPath, target string) bool {
	return dirPath == "" || strings.HasPrefix(target, dirPath+"/")
}
