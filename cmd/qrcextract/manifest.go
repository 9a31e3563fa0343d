// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/qrc

package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/woozymasta/qrc"
	"gopkg.in/yaml.v3"
)

type manifest struct {
	Sources []manifestSource `json:"sources" yaml:"sources"`
}

type manifestSource struct {
	Header   *qrc.RCCHeader     `json:"header,omitempty" yaml:"header,omitempty"`
	Result   *qrc.ExtractResult `json:"result,omitempty" yaml:"result,omitempty"`
	Source   string             `json:"source" yaml:"source"`
	RootName string             `json:"root_name" yaml:"root_name"`
	Entries  []qrc.EntryInfo    `json:"entries,omitempty" yaml:"entries,omitempty"`
}

// manifestFormat returns the normalized manifest extension or an error for unsupported ones.
func manifestFormat(path string) (string, error) {
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		return ".yaml", nil
	case ".json":
		return ext, nil
	default:
		return "", fmt.Errorf("manifest: unsupported extension %q (want .yaml, .yml or .json)", ext)
	}
}

// encodeManifest serializes manifest by file extension.
func encodeManifest(path string, m manifest) ([]byte, error) {
	format, err := manifestFormat(path)
	if err != nil {
		return nil, err
	}

	if format == ".yaml" {
		return yaml.Marshal(m)
	}

	out, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return nil, err
	}

	return append(out, '\n'), nil
}

func writeManifest(path string, m manifest) error {
	out, err := encodeManifest(path, m)
	if err != nil {
		return err
	}

	if err := os.WriteFile(path, out, 0o600); err != nil {
		return fmt.Errorf("write manifest: %w", err)
	}

	return nil
}
