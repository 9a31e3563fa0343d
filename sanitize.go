// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/qrc

package qrc

import (
	"fmt"
	"hash/fnv"
	"path"
	"strconv"
	"strings"
	"unicode"
)

const (
	// maxSanitizedSegmentLen limits one path segment to common filesystem-safe length.
	maxSanitizedSegmentLen = 240
)

var (
	// reservedDeviceNames contains case-insensitive reserved Windows device names.
	reservedDeviceNames = map[string]struct{}{
		"aux":    {},
		"clock$": {},
		"com1":   {},
		"com2":   {},
		"com3":   {},
		"com4":   {},
		"com5":   {},
		"com6":   {},
		"com7":   {},
		"com8":   {},
		"com9":   {},
		"con":    {},
		"lpt1":   {},
		"lpt2":   {},
		"lpt3":   {},
		"lpt4":   {},
		"lpt5":   {},
		"lpt6":   {},
		"lpt7":   {},
		"lpt8":   {},
		"lpt9":   {},
		"nul":    {},
		"prn":    {},
	}
)

// validateSegment rejects names that cannot be used verbatim as one output path segment.
func validateSegment(name string) error {
	switch {
	case name == "":
		return fmt.Errorf("%w: empty name", ErrInvalidName)
	case name == "." || name == "..":
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	case strings.ContainsAny(name, "/\\\x00"):
		return fmt.Errorf("%w: %q contains separator or NUL", ErrInvalidName, name)
	}

	return nil
}

// SanitizeName rewrites one entry name to a deterministic filesystem-safe path segment.
func SanitizeName(name string) (string, error) {
	return sanitizePathSegment(name)
}

// sanitizePathSegment sanitizes one path segment for broad filesystem compatibility.
func sanitizePathSegment(segment string) (string, error) {
	segment = strings.TrimSpace(segment)
	if segment == "" {
		return "_", nil
	}
	rawReserved := isReservedDeviceName(segment)

	var b strings.Builder
	b.Grow(len(segment))
	for _, r := range segment {
		if isUnsafeControlCharRune(r) || strings.ContainsRune(`<>:"/\|?*`, r) {
			b.WriteRune('_')
			continue
		}

		b.WriteRune(r)
	}

	sanitized := strings.TrimRight(b.String(), ". ")
	if sanitized == "" {
		sanitized = "_"
	}

	base := sanitized
	if dot := strings.IndexByte(base, '.'); dot >= 0 {
		base = base[:dot]
	}
	if rawReserved || isReservedDeviceName(base) {
		sanitized = "_" + sanitized
	}

	if len(sanitized) > maxSanitizedSegmentLen {
		sanitized = shortenSegmentDeterministic(sanitized, maxSanitizedSegmentLen)
	}
	if err := validateSegment(sanitized); err != nil {
		return "", err
	}

	return sanitized, nil
}

// isUnsafeControlCharRune reports whether rune is unsafe for file names and should be replaced.
func isUnsafeControlCharRune(r rune) bool {
	if unicode.IsControl(r) || unicode.In(r, unicode.Cf) {
		return true
	}

	return r == '\uFFFD'
}

// isReservedDeviceName reports whether name matches reserved Windows device identifier.
func isReservedDeviceName(name string) bool {
	candidate := strings.TrimSpace(name)
	candidate = strings.TrimRight(candidate, ". :")
	candidate = strings.ToLower(candidate)
	if dot := strings.IndexByte(candidate, '.'); dot >= 0 {
		candidate = candidate[:dot]
	}
	candidate = strings.TrimRight(candidate, ". :")
	if candidate == "" {
		return false
	}

	_, ok := reservedDeviceNames[candidate]
	return ok
}

// makeSanitizedPathUnique resolves sibling collisions by adding deterministic numeric suffix.
func makeSanitizedPathUnique(name string, used map[string]struct{}, nextSuffix map[string]int) (string, error) {
	key := strings.ToLower(name)
	if _, exists := used[key]; !exists {
		used[key] = struct{}{}
		return name, nil
	}

	startIdx := 2
	if savedIdx, exists := nextSuffix[key]; exists && savedIdx > startIdx {
		startIdx = savedIdx
	}

	for idx := startIdx; idx < 1000000; idx++ {
		candidate := withNumericSuffix(name, idx)
		candidateKey := strings.ToLower(candidate)
		if _, exists := used[candidateKey]; exists {
			continue
		}

		used[candidateKey] = struct{}{}
		nextSuffix[key] = idx + 1
		return candidate, nil
	}

	return "", fmt.Errorf("%w: too many collisions for %q", ErrInvalidName, name)
}

// withNumericSuffix appends "~N" before extension and preserves max segment length.
func withNumericSuffix(name string, n int) string {
	ext := path.Ext(name)
	base := strings.TrimSuffix(name, ext)
	suffix := "~" + strconv.Itoa(n)
	allowedBaseLen := max(maxSanitizedSegmentLen-len(ext)-len(suffix), 1)
	if len(base) > allowedBaseLen {
		base = shortenSegmentDeterministic(base, allowedBaseLen)
	}

	return base + suffix + ext
}

// shortenSegmentDeterministic shortens long segment while preserving deterministic identity suffix.
func shortenSegmentDeterministic(value string, maxLen int) string {
	if len(value) <= maxLen {
		return value
	}
	if maxLen <= 10 {
		return value[:maxLen]
	}

	h := fnv.New32a()
	_, _ = h.Write([]byte(value))
	hashPart := fmt.Sprintf("~%08x", h.Sum32())
	prefixLen := max(maxLen-len(hashPart), 1)

	return value[:prefixLen] + hashPart
}
