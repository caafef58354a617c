// Copyright (c) 2013-2017 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package ops

import (
	"crypto/sha1"
	"crypto/sha256"
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/ecdsa"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcscript/txscript"
	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"golang.org/x/crypto/ripemd160"
)

// opcodeRipemd160 treats the top item of the data stack as raw bytes and
// replaces it with ripemd160(data).
//
// Stack transformation: [... x1] -> [... ripemd160(x1)]
func opcodeRipemd160(op *txscript.Handler, data []byte, vm *txscript.Engine) error {
	buf, err := vm.DataStack().PopByteArray()
	if err != nil {
		return err
	}

	hasher := ripemd160.New()
	hasher.Write(buf)
	vm.DataStack().PushByteArray(hasher.Sum(nil))
	return nil
}

// opcodeSha1 treats the top item of the data stack as raw bytes and replaces it
// with sha1(data).
//
// Stack transformation: [... x1] -> [... sha1(x1)]
func opcodeSha1(op *txscript.Handler, data []byte, vm *txscript.Engine) error {
	buf, err := vm.DataStack().PopByteArray()
	if err != nil {
		return err
	}

	hash := sha1.Sum(buf)
	vm.DataStack().PushByteArray(hash[:])
	return nil
}

// opcodeSha256 treats the top item of the data stack as raw bytes and replaces
// it with sha256(data).
//
// Stack transformation: [... x1] -> [... sha256(x1)]
func opcodeSha256(op *txscript.Handler, data []byte, vm *txscript.Engine) error {
	buf, err := vm.DataStack().PopByteArray()
	if err != nil {
		return err
	}

	hash := sha256.Sum256(buf)
	vm.DataStack().PushByteArray(hash[:])
	return nil
}

// opcodeHash160 treats the top item of the data stack as raw bytes and replaces
// it with ripemd160(sha256(data)).
//
// Stack transformation: [... x1] -> [... ripemd160(sha256(x1))]
func opcodeHash160(op *txscript.Handler, data []byte, vm *txscript.Engine) error {
	buf, err := vm.DataStack().PopByteArray()
	if err != nil {
		return err
	}

	vm.DataStack().PushByteArray(btcutil.Hash160(buf))
	return nil
}

// opcodeHash256 treats the top item of the data stack as raw bytes and replaces
// it with sha256(sha256(data)).
//
// Stack transformation: [... x1] -> [... sha256(sha256(x1))]
func opcodeHash256(op *txscript.Handler, data []byte, vm *txscript.Engine) error {
	buf, err := vm.DataStack().PopByteArray()
	if err != nil {
		return err
	}

	vm.DataStack().PushByteArray(chainhash.DoubleHashB(buf))
	return nil
}

// checkHashTypeEncoding returns whether or not the passed hashtype adheres to
// the strict encoding requirements if enabled.
func checkHashTypeEncoding(vm *txscript.Engine, hashType txscript.SigHashType) error {
	if !vm.HasFlag(txscript.ScriptVerifyStrictEncoding) {
		return nil
	}

	sigHashType := hashType & ^txscript.SigHashAnyOneCanPay
	if sigHashType < txscript.SigHashAll || sigHashType > txscript.SigHashSingle {
		str := fmt.Sprintf("invalid hash type 0x%x", hashType)
		return txscript.ScriptError(txscript.ErrInvalidSigHashType, str)
	}
	return nil
}

// checkPubKeyEncoding returns whether or not the passed public key adheres to
// the strict encoding requirements if enabled.
func checkPubKeyEncoding(vm *txscript.Engine, pubKey []byte) error {
	if !vm.HasFlag(txscript.ScriptVerifyStrictEncoding) {
		return nil
	}

	if len(pubKey) == secp256k1.PubKeyBytesLenCompressed &&
		(pubKey[0] == secp256k1.PubKeyFormatCompressedEven ||
			pubKey[0] == secp256k1.PubKeyFormatCompressedOdd) {

		return nil
	}
	if len(pubKey) == secp256k1.PubKeyBytesLenUncompressed &&
		pubKey[0] == secp256k1.PubKeyFormatUncompressed {

		return nil
	}
	return txscript.ScriptError(txscript.ErrPubKeyType,
		"unsupported public key type")
}

// checkSignatureEncoding returns whether or not the passed signature adheres to
// the strict encoding requirements if enabled.
//
// The format of a DER encoded signature is as follows:
//
//	0x30 <total length> 0x02 <length of R> <R> 0x02 <length of S> <S>
func checkSignatureEncoding(vm *txscript.Engine, sig []byte) error {
	if !vm.HasFlag(txscript.ScriptVerifyDERSignatures) &&
		!vm.HasFlag(txscript.ScriptVerifyLowS) &&
		!vm.HasFlag(txscript.ScriptVerifyStrictEncoding) {

		return nil
	}

	const (
		asn1SequenceID = 0x30
		asn1IntegerID  = 0x02

		// minSigLen is the minimum length of a DER encoded signature
		// and is when both R and S are 1 byte each.
		minSigLen = 8

		// maxSigLen is the maximum length of a DER encoded signature
		// and is when both R and S are 33 bytes each.
		maxSigLen = 72
	)

	sigLen := len(sig)
	if sigLen < minSigLen {
		str := fmt.Sprintf("malformed signature: too short: %d < %d",
			sigLen, minSigLen)
		return txscript.ScriptError(txscript.ErrSigTooShort, str)
	}
	if sigLen > maxSigLen {
		str := fmt.Sprintf("malformed signature: too long: %d > %d",
			sigLen, maxSigLen)
		return txscript.ScriptError(txscript.ErrSigDER, str)
	}
	if sig[0] != asn1SequenceID {
		str := fmt.Sprintf("malformed signature: format has wrong "+
			"type: 0x%x", sig[0])
		return txscript.ScriptError(txscript.ErrSigDER, str)
	}
	if int(sig[1]) != sigLen-2 {
		str := fmt.Sprintf("malformed signature: bad length: %d != %d",
			sig[1], sigLen-2)
		return txscript.ScriptError(txscript.ErrSigDER, str)
	}

	rLen := int(sig[3])

	// Make sure S is inside the signature.
	if rLen+5 > sigLen {
		return txscript.ScriptError(txscript.ErrSigDER,
			"malformed signature: S out of bounds")
	}

	sLen := int(sig[rLen+5])

	// The length of the elements does not match the length of the
	// signature.
	if rLen+sLen+6 != sigLen {
		return txscript.ScriptError(txscript.ErrSigDER,
			"malformed signature: invalid R length")
	}

	derErr := func(str string) error {
		return txscript.ScriptError(txscript.ErrSigDER,
			"malformed signature: "+str)
	}

	// R elements must be integers.
	if sig[2] != asn1IntegerID {
		return derErr("missing first integer marker")
	}
	if rLen == 0 {
		return derErr("R length is zero")
	}
	if sig[4]&0x80 != 0 {
		return derErr("R value is negative")
	}

	// Null bytes at the start of R are not allowed, unless R would
	// otherwise be interpreted as a negative number.
	if rLen > 1 && sig[4] == 0x00 && sig[5]&0x80 == 0 {
		return derErr("invalid R value")
	}

	// S elements must be integers.
	if sig[rLen+4] != asn1IntegerID {
		return derErr("missing second integer marker")
	}
	if sLen == 0 {
		return derErr("S length is zero")
	}
	if sig[rLen+6]&0x80 != 0 {
		return derErr("S value is negative")
	}

	// Null bytes at the start of S are not allowed, unless S would
	// otherwise be interpreted as a negative number.
	if sLen > 1 && sig[rLen+6] == 0x00 && sig[rLen+7]&0x80 == 0 {
		return derErr("invalid S value")
	}

	// Verify the S value is <= half the order of the curve.  This check is
	// done because when it is higher, the complement modulo the order can
	// be used instead which is a shorter encoding by 1 byte.
	if vm.HasFlag(txscript.ScriptVerifyLowS) {
		sBytes := sig[rLen+6 : rLen+6+sLen]
		for len(sBytes) > 0 && sBytes[0] == 0x00 {
			sBytes = sBytes[1:]
		}

		var s secp256k1.ModNScalar
		if len(sBytes) > 32 || s.SetByteSlice(sBytes) || s.IsOverHalfOrder() {
			return txscript.ScriptError(txscript.ErrSigHighS,
				"signature is not canonical due to unnecessarily "+
					"high S value")
		}
	}

	return nil
}

// parseSignature parses a signature without its trailing hash type byte,
// strictly when the DER or strict encoding rules are active.
func parseSignature(vm *txscript.Engine, sig []byte) (*ecdsa.Signature, error) {
	if vm.HasFlag(txscript.ScriptVerifyStrictEncoding) ||
		vm.HasFlag(txscript.ScriptVerifyDERSignatures) {

		return ecdsa.ParseDERSignature(sig)
	}
	return ecdsa.ParseSignature(sig)
}

// verifySignature checks the parsed signature against the public key over
// hash, consulting and filling the signature cache of the evaluation when
// one is present.
func verifySignature(vm *txscript.Engine, hash []byte, sig *ecdsa.Signature,
	rawSig []byte, pubKey *btcec.PublicKey, rawPubKey []byte) bool {

	sigCache := vm.SigCache()
	if sigCache == nil {
		return sig.Verify(hash, pubKey)
	}

	var sigHash chainhash.Hash
	copy(sigHash[:], hash)

	if sigCache.Exists(sigHash, rawSig, rawPubKey) {
		return true
	}
	if !sig.Verify(hash, pubKey) {
		return false
	}
	sigCache.Add(sigHash, rawSig, rawPubKey)
	return true
}

// removeSignature returns script with every canonical push of sig removed,
// since there is no way for a signature to sign itself.
func removeSignature(script, sig []byte) ([]byte, error) {
	return txscript.DeleteSubscript(script, txscript.EncodePush(sig))
}

// opcodeCheckSig treats the top 2 items on the stack as a public key and a
// signature and replaces them with a bool which indicates if the signature was
// successfully verified.
//
// The process of verifying a signature requires calculating a signature hash in
// the same way the transaction signer did.  The digest is produced by the
// signature hash provider of the evaluation from the hash type byte (which is
// the final byte of the signature) and the portion of the script starting from
// the most recent OP_CODESEPARATOR with the signature itself removed.  Once
// this "script hash" is calculated, the signature is checked using standard
// cryptographic methods against the provided public key.
//
// Stack transformation: [... signature pubkey] -> [... bool]
func opcodeCheckSig(op *txscript.Handler, data []byte, vm *txscript.Engine) error {
	pkBytes, err := vm.DataStack().PopByteArray()
	if err != nil {
		return err
	}

	fullSigBytes, err := vm.DataStack().PopByteArray()
	if err != nil {
		return err
	}

	// The signature actually needs needs to be longer than this, but at
	// least 1 byte is needed for the hash type below.  The full length is
	// checked depending on the script flags and upon parsing the signature.
	if len(fullSigBytes) < 1 {
		vm.DataStack().PushBool(false)
		return nil
	}

	// Trim off hashtype from the signature string and check if the
	// signature and pubkey conform to the strict encoding requirements
	// depending on the flags.
	//
	// NOTE: When the strict encoding flags are set, any errors in the
	// signature or public encoding here result in an immediate script error
	// (and thus no result bool is pushed to the data stack).  This differs
	// from the logic below where any errors in parsing the signature is
	// treated as the signature failure resulting in false being pushed to
	// the data stack.  This is required because the more general script
	// validation consensus rules do not have the new strict encoding
	// requirements enabled by the flags.
	hashType := txscript.SigHashType(fullSigBytes[len(fullSigBytes)-1])
	sigBytes := fullSigBytes[:len(fullSigBytes)-1]
	if err := checkHashTypeEncoding(vm, hashType); err != nil {
		return err
	}
	if err := checkSignatureEncoding(vm, sigBytes); err != nil {
		return err
	}
	if err := checkPubKeyEncoding(vm, pkBytes); err != nil {
		return err
	}

	subScript, err := removeSignature(vm.SubScript(), fullSigBytes)
	if err != nil {
		return err
	}

	valid := false
	signature, sigErr := parseSignature(vm, sigBytes)
	pubKey, pkErr := btcec.ParsePubKey(pkBytes)
	if sigErr == nil && pkErr == nil {
		hash, err := vm.CalcSigHash(hashType, subScript)
		if err != nil {
			return err
		}
		valid = verifySignature(vm, hash, signature, sigBytes, pubKey,
			pkBytes)
	}

	if !valid && vm.HasFlag(txscript.ScriptVerifyNullFail) {
		str := "signature not empty on failed checksig"
		return txscript.ScriptError(txscript.ErrNullFail, str)
	}

	vm.DataStack().PushBool(valid)
	return nil
}

// opcodeCheckSigVerify is a combination of opcodeCheckSig and opcodeVerify.
// The opcodeCheckSig function is invoked followed by opcodeVerify.  See the
// documentation for each of those opcodes for more details.
//
// Stack transformation: [... signature pubkey] -> [... bool] -> [...]
func opcodeCheckSigVerify(op *txscript.Handler, data []byte, vm *txscript.Engine) error {
	err := opcodeCheckSig(op, data, vm)
	if err == nil {
		err = abstractVerify(op, vm, txscript.ErrCheckSigVerify)
	}
	return err
}

// parsedSigInfo houses a raw signature along with its parsed form and a flag
// for whether or not it has already been parsed.  It is used to prevent parsing
// the same signature multiple times when verifying a multisig.
type parsedSigInfo struct {
	signature       []byte
	parsedSignature *ecdsa.Signature
	parsed          bool
}

// opcodeCheckMultiSig treats the top item on the stack as an integer number of
// public keys, followed by that many entries as raw data representing the public
// keys, followed by the integer number of signatures, followed by that many
// entries as raw data representing the signatures.
//
// Due to a bug in the original Satoshi client implementation, an additional
// dummy argument is also required by the consensus rules, although it is not
// used.  The dummy value SHOULD be an OP_0, although that is not required by
// the consensus rules.  When the ScriptStrictMultiSig flag is set, it must be
// OP_0.
//
// All of the aforementioned stack items are replaced with a bool which
// indicates if the requisite number of signatures were successfully verified.
//
// See the opcodeCheckSigVerify documentation for more details about the process
// for verifying each signature.
//
// Stack transformation:
// [... dummy [sig ...] numsigs [pubkey ...] numpubkeys] -> [... bool]
func opcodeCheckMultiSig(op *txscript.Handler, data []byte, vm *txscript.Engine) error {
	numKeys, err := vm.DataStack().PopInt()
	if err != nil {
		return err
	}

	numPubKeys := int(numKeys.Int32())
	if numPubKeys < 0 {
		str := fmt.Sprintf("number of pubkeys %d is negative",
			numPubKeys)
		return txscript.ScriptError(txscript.ErrInvalidPubKeyCount, str)
	}
	if numPubKeys > MaxPubKeysPerMultiSig {
		str := fmt.Sprintf("too many pubkeys: %d > %d",
			numPubKeys, MaxPubKeysPerMultiSig)
		return txscript.ScriptError(txscript.ErrInvalidPubKeyCount, str)
	}
	if err := vm.AddOps(numPubKeys); err != nil {
		return err
	}

	pubKeys := make([][]byte, 0, numPubKeys)
	for i := 0; i < numPubKeys; i++ {
		pubKey, err := vm.DataStack().PopByteArray()
		if err != nil {
			return err
		}
		pubKeys = append(pubKeys, pubKey)
	}

	numSigs, err := vm.DataStack().PopInt()
	if err != nil {
		return err
	}
	numSignatures := int(numSigs.Int32())
	if numSignatures < 0 {
		str := fmt.Sprintf("number of signatures %d is negative",
			numSignatures)
		return txscript.ScriptError(txscript.ErrInvalidSignatureCount, str)
	}
	if numSignatures > numPubKeys {
		str := fmt.Sprintf("more signatures than pubkeys: %d > %d",
			numSignatures, numPubKeys)
		return txscript.ScriptError(txscript.ErrInvalidSignatureCount, str)
	}

	signatures := make([]*parsedSigInfo, 0, numSignatures)
	for i := 0; i < numSignatures; i++ {
		signature, err := vm.DataStack().PopByteArray()
		if err != nil {
			return err
		}
		sigInfo := &parsedSigInfo{signature: signature}
		signatures = append(signatures, sigInfo)
	}

	// A bug in the original Satoshi client implementation means one more
	// stack value than should be used must be popped.  Unfortunately, this
	// buggy behavior is now part of the consensus and a hard fork would be
	// required to fix it.
	dummy, err := vm.DataStack().PopByteArray()
	if err != nil {
		return err
	}

	// Since the dummy argument is otherwise not checked, it could be any
	// value which unfortunately provides a source of malleability.  Thus,
	// there is a script flag to force an error when the value is NOT 0.
	if vm.HasFlag(txscript.ScriptStrictMultiSig) && len(dummy) != 0 {
		str := fmt.Sprintf("multisig dummy argument has length %d "+
			"instead of 0", len(dummy))
		return txscript.ScriptError(txscript.ErrSigNullDummy, str)
	}

	// Get script starting from the most recent OP_CODESEPARATOR and remove
	// every signature from it.
	script := vm.SubScript()
	for _, sigInfo := range signatures {
		script, err = removeSignature(script, sigInfo.signature)
		if err != nil {
			return err
		}
	}

	success := true
	numPubKeys++
	pubKeyIdx := -1
	signatureIdx := 0
	for numSignatures > 0 {
		// When there are more signatures than public keys remaining,
		// there is no way to succeed since too many signatures are
		// invalid, so exit early.
		pubKeyIdx++
		numPubKeys--
		if numSignatures > numPubKeys {
			success = false
			break
		}

		sigInfo := signatures[signatureIdx]
		pubKey := pubKeys[pubKeyIdx]

		// The order of the signature and public key evaluation is
		// important here since it can be distinguished by an
		// OP_CHECKMULTISIG NOT when the strict encoding flag is set.

		rawSig := sigInfo.signature
		if len(rawSig) == 0 {
			// Skip to the next pubkey if signature is empty.
			continue
		}

		// Split the signature into hash type and signature components.
		hashType := txscript.SigHashType(rawSig[len(rawSig)-1])
		signature := rawSig[:len(rawSig)-1]

		// Only parse and check the signature encoding once.
		var parsedSig *ecdsa.Signature
		if !sigInfo.parsed {
			if err := checkHashTypeEncoding(vm, hashType); err != nil {
				return err
			}
			if err := checkSignatureEncoding(vm, signature); err != nil {
				return err
			}

			var err error
			parsedSig, err = parseSignature(vm, signature)
			sigInfo.parsed = true
			if err != nil {
				continue
			}
			sigInfo.parsedSignature = parsedSig
		} else {
			// Skip to the next pubkey if the signature is invalid.
			if sigInfo.parsedSignature == nil {
				continue
			}

			// Use the already parsed signature.
			parsedSig = sigInfo.parsedSignature
		}

		if err := checkPubKeyEncoding(vm, pubKey); err != nil {
			return err
		}

		// Parse the pubkey.
		parsedPubKey, err := btcec.ParsePubKey(pubKey)
		if err != nil {
			continue
		}

		// Generate the signature hash based on the signature hash type.
		hash, err := vm.CalcSigHash(hashType, script)
		if err != nil {
			return err
		}

		if verifySignature(vm, hash, parsedSig, signature, parsedPubKey, pubKey) {
			// PubKey verified, move on to the next signature.
			signatureIdx++
			numSignatures--
		}
	}

	if !success && vm.HasFlag(txscript.ScriptVerifyNullFail) {
		for _, sig := range signatures {
			if len(sig.signature) > 0 {
				str := "not all signatures empty on failed checkmultisig"
				return txscript.ScriptError(txscript.ErrNullFail, str)
			}
		}
	}

	vm.DataStack().PushBool(success)
	return nil
}

// opcodeCheckMultiSigVerify is a combination of opcodeCheckMultiSig and
// opcodeVerify.  The opcodeCheckMultiSig is invoked followed by opcodeVerify.
// See the documentation for each of those opcodes for more details.
//
// Stack transformation:
// [... dummy [sig ...] numsigs [pubkey ...] numpubkeys] -> [... bool] -> [...]
func opcodeCheckMultiSigVerify(op *txscript.Handler, data []byte, vm *txscript.Engine) error {
	err := opcodeCheckMultiSig(op, data, vm)
	if err == nil {
		err = abstractVerify(op, vm, txscript.ErrCheckMultiSigVerify)
	}
	return err
}
