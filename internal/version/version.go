// Copyright (c) 2013-2017 The btcsuite developers
// Copyright (c) 2015-2018 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package version provides a single location to house the version information
// for scriptvm and other utilities provided in the same repository.
package version

import (
	"fmt"
	"strings"
)

const (
	// semanticAlphabet defines the allowed characters for the pre-release
	// portion of a semantic version string.
	semanticAlphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz-"

	// semanticBuildAlphabet defines the allowed characters for the build
	// portion of a semantic version string.
	semanticBuildAlphabet = semanticAlphabet + "."
)

// These constants define the application version and follow the semantic
// versioning 2.0.0 spec (https://semver.org/).
const (
	Major uint = 0
	Minor uint = 3
	Patch uint = 0
)

// PreRelease and BuildMetadata may be overridden at link time, for example
// with '-ldflags "-X github.com/btcsuite/btcscript/internal/version.PreRelease=rc1"'.
// Characters outside of the respective semantic versioning alphabet are
// dropped when the version string is built.
var (
	PreRelease    = "pre"
	BuildMetadata = "dev"
)

// String returns the application version formatted as
// major.minor.patch[-prerelease][+build].
func String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%d.%d.%d", Major, Minor, Patch)
	if pre := NormalizePreRelString(PreRelease); pre != "" {
		b.WriteString("-" + pre)
	}
	if build := NormalizeBuildString(BuildMetadata); build != "" {
		b.WriteString("+" + build)
	}
	return b.String()
}

// normalizeSemString returns str with every rune not in alphabet removed.
func normalizeSemString(str, alphabet string) string {
	return strings.Map(func(r rune) rune {
		if strings.ContainsRune(alphabet, r) {
			return r
		}
		return -1
	}, str)
}

// NormalizePreRelString strips the characters that may not appear in the
// pre-release portion of a semantic version.
func NormalizePreRelString(str string) string {
	return normalizeSemString(str, semanticAlphabet)
}

// NormalizeBuildString strips the characters that may not appear in the build
// metadata portion of a semantic version.
func NormalizeBuildString(str string) string {
	return normalizeSemString(str, semanticBuildAlphabet)
}
