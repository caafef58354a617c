// Copyright (c) 2013-2017 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package txscript

// SigHashType represents hash type bits at the end of a signature.
type SigHashType uint32

// Hash type bits from the end of a signature.
const (
	SigHashOld          SigHashType = 0x0
	SigHashAll          SigHashType = 0x1
	SigHashNone         SigHashType = 0x2
	SigHashSingle       SigHashType = 0x3
	SigHashAnyOneCanPay SigHashType = 0x80

	// SigHashMask defines the number of bits of the hash type which is
	// used to identify which outputs are signed.
	SigHashMask = 0x1f
)

// SigHashFunc computes the digest a signature commits to.  It receives the
// hash type taken from the signature and the script being signed, which is
// the executing script from the most recent OP_CODESEPARATOR onward with the
// signatures being checked already removed.  Providers that commit to the
// script in another way are free to ignore it.
type SigHashFunc func(hashType SigHashType, subScript []byte) ([]byte, error)
