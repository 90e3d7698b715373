// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package main

import (
	"fmt"
	"os"

	sigilerr "github.com/sigil-dev/sparqlgate/pkg/errors"
)

// Exit codes.
const (
	exitFailure = 1
	exitUsage   = 2
)

func main() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, errorStyle.Render("error: ")+err.Error())
		os.Exit(exitCode(err))
	}
}

func exitCode(err error) int {
	if sigilerr.HasCode(err, sigilerr.CodeCLIInputInvalid) {
		return exitUsage
	}
	return exitFailure
}
