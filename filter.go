// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/qrc

package qrc

import (
	"fmt"

	"github.com/woozymasta/pathrules"
)

// ruleMatcher holds compiled path rules used by build compression and extract filtering.
type ruleMatcher struct {
	matcher *pathrules.Matcher
}

// newRuleMatcher compiles path rules; empty rule set yields nil matcher.
func newRuleMatcher(rules []pathrules.Rule, opts pathrules.MatcherOptions) (*ruleMatcher, error) {
	rules = normalizeRules(rules)
	if len(rules) == 0 {
		return nil, nil
	}

	matcher, err := pathrules.NewMatcher(rules, opts)
	if err != nil {
		return nil, fmt.Errorf("compile rules: %w", err)
	}

	return &ruleMatcher{matcher: matcher}, nil
}

// normalizeRules normalizes rule patterns and drops empty patterns.
func normalizeRules(rules []pathrules.Rule) []pathrules.Rule {
	normalized := make([]pathrules.Rule, 0, len(rules))
	for _, rule := range rules {
		pattern := normalizePathForMatching(rule.Pattern)
		if pattern == "" {
			continue
		}

		normalized = append(normalized, pathrules.Rule{
			Action:  rule.Action,
			Pattern: pattern,
		})
	}

	return normalized
}

// Match reports whether file path is included by rules.
func (m *ruleMatcher) Match(entryPath string) bool {
	if m == nil || m.matcher == nil {
		return false
	}

	candidate := NormalizePath(entryPath)
	if candidate == "" {
		return false
	}

	return m.matcher.Included(candidate, false)
}

// extractFilter decides which entries of a walk are materialized.
type extractFilter struct {
	include *ruleMatcher
	// root is normalized subtree prefix; empty selects whole tree.
	root string
}

// newExtractFilter compiles extract options into a filter.
func newExtractFilter(opts ExtractOptions) (*extractFilter, error) {
	include, err := newRuleMatcher(opts.Include, opts.IncludeMatcherOptions)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidIncludePattern, err)
	}

	return &extractFilter{include: include, root: NormalizePath(opts.Root)}, nil
}

// active reports whether filter can skip any entry.
func (f *extractFilter) active() bool {
	return f.include != nil || f.root != ""
}

// descend reports whether walk must enter directory at dirPath to reach selected entries.
func (f *extractFilter) descend(dirPath string) bool {
	return isUnderPrefix(dirPath, f.root) || isAncestorOf(dirPath, f.root)
}

// createDir reports whether directory at dirPath is created eagerly in pre-order.
// With include rules directories are created on demand as parents of matched files.
func (f *extractFilter) createDir(dirPath string) bool {
	return f.include == nil && isUnderPrefix(dirPath, f.root)
}

// selectFile reports whether file at filePath is written.
func (f *extractFilter) selectFile(filePath string) bool {
	if !isUnderPrefix(filePath, f.root) {
		return false
	}

	return f.include == nil || f.include.Match(filePath)
}
