// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package config

import (
	_ "embed"
	"log/slog"
	"os"
	"path/filepath"

	sigilerr "github.com/sigil-dev/sparqlgate/pkg/errors"
)

//go:embed sparqlgate.yaml.default
var DefaultConfigYAML []byte

// DefaultConfigPath returns ~/.config/sparqlgate/sparqlgate.yaml.
func DefaultConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", sigilerr.Wrap(err, sigilerr.CodeConfigLoadReadFailure, "resolving home directory")
	}
	return filepath.Join(home, ".config", "sparqlgate", "sparqlgate.yaml"), nil
}

// WriteDefault writes the commented default config to path with mode 0600.
// An existing file is left alone unless force is set. It reports whether
// the file was written.
func WriteDefault(path string, force bool) (bool, error) {
	if _, err := os.Stat(path); err == nil && !force {
		slog.Debug("config already exists", "path", path)
		return false, nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return false, sigilerr.Wrapf(err, sigilerr.CodeConfigLoadReadFailure, "creating config directory for %s", path)
	}
	if err := os.WriteFile(path, DefaultConfigYAML, 0o600); err != nil {
		return false, sigilerr.Wrapf(err, sigilerr.CodeConfigLoadReadFailure, "writing config %s", path)
	}
	// WriteFile keeps the mode of an existing file.
	if err := os.Chmod(path, 0o600); err != nil {
		return false, sigilerr.Wrapf(err, sigilerr.CodeConfigLoadReadFailure, "restricting permissions of %s", path)
	}
	slog.Info("created default config", "path", path)
	return true, nil
}

// ResolvePath returns explicit if set, else the default path when a file
// exists there, else "" (defaults and environment only).
func ResolvePath(explicit string) string {
	if explicit != "" {
		return explicit
	}
	path, err := DefaultConfigPath()
	if err != nil {
		return ""
	}
	if _, err := os.Stat(path); err != nil {
		return ""
	}
	return path
}
