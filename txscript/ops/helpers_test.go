// Copyright (c) 2013-2017 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package ops

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"

	"github.com/btcsuite/btcscript/txscript"
)

// hexToBytes converts the passed hex string into bytes and will panic if there
// is an error.  It must only be called with hard-coded values.
func hexToBytes(s string) []byte {
	b, err := hex.DecodeString(s)
	if err != nil {
		panic("invalid hex in source file: " + s)
	}
	return b
}

// shortFormOps maps opcode names, with and without the OP_ prefix, to their
// values.
var shortFormOps = func() map[string]byte {
	m := make(map[string]byte)
	for name, op := range txscript.OpcodeByName {
		if strings.Contains(name, "OP_UNKNOWN") {
			continue
		}
		m[name] = op

		// The OP_# names keep their prefix so they do not clash with
		// plain numbers.
		if name == "OP_FALSE" || name == "OP_TRUE" ||
			(op != txscript.OP_0 && (op < txscript.OP_1 || op > txscript.OP_16)) {

			m[strings.TrimPrefix(name, "OP_")] = op
		}
	}
	return m
}()

// parseShortForm parses the compact script notation used throughout the
// tests:
//   - opcodes as OP_NAME or NAME
//   - plain numbers become minimal number pushes
//   - 0x-prefixed hex is inserted as-is, optionally repeated with {n}
//   - single quoted strings are pushed as data
func parseShortForm(script string) ([]byte, error) {
	var out []byte
	for _, tok := range strings.Fields(script) {
		switch {
		case isNumber(tok):
			num, _ := strconv.ParseInt(tok, 10, 64)
			b, err := txscript.NewScriptBuilder().AddInt64(num).Script()
			if err != nil {
				return nil, err
			}
			out = append(out, b...)

		case strings.HasPrefix(tok, "0x"):
			repeat := 1
			if i := strings.IndexByte(tok, '{'); i != -1 &&
				strings.HasSuffix(tok, "}") {

				n, err := strconv.Atoi(tok[i+1 : len(tok)-1])
				if err != nil {
					return nil, err
				}
				repeat = n
				tok = tok[:i]
			}
			b, err := hex.DecodeString(tok[2:])
			if err != nil {
				return nil, err
			}
			out = append(out, bytes.Repeat(b, repeat)...)

		case len(tok) >= 2 && tok[0] == '\'' && tok[len(tok)-1] == '\'':
			out = append(out, txscript.EncodePush([]byte(tok[1:len(tok)-1]))...)

		default:
			op, ok := shortFormOps[tok]
			if !ok {
				return nil, fmt.Errorf("bad token %q", tok)
			}
			out = append(out, op)
		}
	}
	return out, nil
}

func isNumber(tok string) bool {
	_, err := strconv.ParseInt(tok, 10, 64)
	return err == nil
}

// mustParseShortForm parses the passed short form script and panics on error.
func mustParseShortForm(script string) []byte {
	s, err := parseShortForm(script)
	if err != nil {
		panic("invalid short form script in test source: err " +
			err.Error() + ", script: " + script)
	}
	return s
}

// checkScriptError ensures err is a script error carrying want, or nil when
// want is nil.
func checkScriptError(err error, want *txscript.ErrorCode) error {
	if want == nil {
		if err != nil {
			return fmt.Errorf("unexpected error: %v", err)
		}
		return nil
	}
	if !txscript.IsErrorCode(err, *want) {
		return fmt.Errorf("got error %v, want code %v", err, *want)
	}
	return nil
}

func errCode(c txscript.ErrorCode) *txscript.ErrorCode {
	return &c
}

// stackEqual reports whether two stacks hold the same items, treating nil and
// empty items as equal.
func stackEqual(a, b [][]byte) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !bytes.Equal(a[i], b[i]) {
			return false
		}
	}
	return true
}
