// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/qrc

package qrc

import (
	"strings"

	"github.com/woozymasta/pathrules"
)

// includeRules builds include rules from raw patterns for concise test setup.
func includeRules(patterns ...string) []pathrules.Rule {
	rules := make([]pathrules.Rule, 0, len(patterns))
	for _, pattern := range patterns {
		pattern = strings.TrimSpace(pattern)
		if pattern == "" {
			continue
		}

		rules = append(rules, pathrules.Rule{
			Action:  pathrules.ActionInclude,
			Pattern: pattern,
		})
	}

	return rules
}

// excludeRule builds one exclude rule.
func excludeRule(pattern string) pathrules.Rule {
	return pathrules.Rule{Action: pathrules.ActionExclude, Pattern: pattern}
}
