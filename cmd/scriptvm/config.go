// Copyright (c) 2013-2017 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"bytes"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/wire"
	"github.com/btcsuite/btcscript/internal/log"
	"github.com/btcsuite/btcscript/tracedb"
	"github.com/btcsuite/btcscript/txscript"
	flags "github.com/jessevdk/go-flags"
)

const (
	defaultDbType   = tracedb.DbTypeLevelDB
	defaultLogLevel = "info"
)

var (
	scriptvmHomeDir  = btcutil.AppDataDir("scriptvm", false)
	defaultTraceDir  = filepath.Join(scriptvmHomeDir, "trace")
	knownDbTypes     = tracedb.SupportedDrivers()
	errNoMode        = errors.New("one of --script, --tx or --showtrace is required")
	errConflictModes = errors.New("--script, --tx and --showtrace can't be used together -- choose one")

	// errHelpShown is returned by loadConfig once it printed the help or
	// the subsystem list.  It is not a failure.
	errHelpShown = errors.New("help shown")
)

// config defines the configuration options for scriptvm.
//
// See loadConfig for details on the configuration load process.
type config struct {
	Script   string   `short:"s" long:"script" description:"Hex encoded script to evaluate"`
	Stack    []string `long:"stack" description:"Hex encoded initial stack item, bottom first -- may be repeated"`
	Tx       string   `long:"tx" description:"Hex encoded transaction whose input to verify"`
	Input    int      `long:"input" description:"Index of the transaction input to verify"`
	PkScript string   `long:"pkscript" description:"Hex encoded public key script of the output spent by the input"`
	Amount   float64  `long:"amount" description:"Amount in BTC of the output spent by the input"`

	Standard       bool `long:"standard" description:"Enable every verification flag below"`
	MinimalData    bool `long:"minimaldata" description:"Require minimal data pushes and minimally encoded numbers"`
	MinimalIf      bool `long:"minimalif" description:"Require OP_IF and OP_NOTIF operands to be empty or 0x01"`
	StrictEnc      bool `long:"strictenc" description:"Require strictly encoded signatures and public keys"`
	DERSig         bool `long:"dersig" description:"Require DER encoded signatures"`
	LowS           bool `long:"lows" description:"Require signatures with a low S value"`
	NullFail       bool `long:"nullfail" description:"Require failing signatures to be empty"`
	StrictMultiSig bool `long:"strictmultisig" description:"Require the extra CHECKMULTISIG item to be empty"`
	DiscourageNops bool `long:"discouragenops" description:"Fail on upgradable NOP opcodes"`
	CLTV           bool `long:"cltv" description:"Enable OP_CHECKLOCKTIMEVERIFY"`
	CSV            bool `long:"csv" description:"Enable OP_CHECKSEQUENCEVERIFY"`
	CleanStack     bool `long:"cleanstack" description:"Require a single stack item after verifying an input"`
	SigPushOnly    bool `long:"sigpushonly" description:"Require push only signature scripts"`

	Dump      bool   `long:"dump" description:"Dump the final stacks in detail instead of printing them as hex"`
	Trace     bool   `long:"trace" description:"Record every step of the evaluation into the trace store"`
	TraceDB   string `long:"tracedb" description:"Directory of the trace store"`
	DbType    string `long:"dbtype" description:"Trace store backend {leveldb, pebble}"`
	ShowTrace uint64 `long:"showtrace" description:"Print the stored run with this ID"`

	DebugLevel  string `short:"d" long:"debuglevel" description:"Logging level for all subsystems {trace, debug, info, warn, error, critical} -- You may also specify <subsystem>=<level>,<subsystem2>=<level>,... to set the log level for individual subsystems -- Use show to list available subsystems"`
	LogFile     string `long:"logfile" description:"Also write the log to this file"`
	ShowVersion bool   `short:"V" long:"version" description:"Display version information and exit"`

	// Decoded forms of the options above.
	script   []byte
	stack    [][]byte
	tx       *wire.MsgTx
	pkScript []byte
	amount   btcutil.Amount
	flags    txscript.ScriptFlags
}

// validDbType returns whether or not dbType is a supported trace store type.
func validDbType(dbType string) bool {
	for _, knownType := range knownDbTypes {
		if dbType == knownType {
			return true
		}
	}

	return false
}

// decodeHex decodes the hex value of the named option.
func decodeHex(option, value string) ([]byte, error) {
	b, err := hex.DecodeString(strings.TrimPrefix(value, "0x"))
	if err != nil {
		return nil, fmt.Errorf("invalid --%s %q: %w", option, value, err)
	}
	return b, nil
}

// scriptFlags returns the verification flags selected by the options.
func (cfg *config) scriptFlags() txscript.ScriptFlags {
	if cfg.Standard {
		return txscript.StandardVerifyFlags
	}

	var sf txscript.ScriptFlags
	for _, opt := range []struct {
		set  bool
		flag txscript.ScriptFlags
	}{
		{cfg.MinimalData, txscript.ScriptVerifyMinimalData},
		{cfg.MinimalIf, txscript.ScriptVerifyMinimalIf},
		{cfg.StrictEnc, txscript.ScriptVerifyStrictEncoding},
		{cfg.DERSig, txscript.ScriptVerifyDERSignatures},
		{cfg.LowS, txscript.ScriptVerifyLowS},
		{cfg.NullFail, txscript.ScriptVerifyNullFail},
		{cfg.StrictMultiSig, txscript.ScriptStrictMultiSig},
		{cfg.DiscourageNops, txscript.ScriptDiscourageUpgradableNops},
		{cfg.CLTV, txscript.ScriptVerifyCheckLockTimeVerify},
		{cfg.CSV, txscript.ScriptVerifyCheckSequenceVerify},
		{cfg.CleanStack, txscript.ScriptVerifyCleanStack},
		{cfg.SigPushOnly, txscript.ScriptVerifySigPushOnly},
	} {
		if opt.set {
			sf |= opt.flag
		}
	}
	return sf
}

// supportedSubsystems returns a sorted slice of the supported subsystems for
// logging purposes.
func supportedSubsystems() []string {
	return log.SupportedSubsystems()
}

// parseAndSetDebugLevels attempts to parse the specified debug level and set
// the levels accordingly.  An appropriate error is returned if anything is
// invalid.
func parseAndSetDebugLevels(debugLevel string) error {
	// When the specified string doesn't have any delimters, treat it as
	// the log level for all subsystems.
	if !strings.Contains(debugLevel, ",") && !strings.Contains(debugLevel, "=") {
		// Validate debug log level.
		if !log.ValidLogLevel(debugLevel) {
			str := "the specified debug level [%v] is invalid"
			return fmt.Errorf(str, debugLevel)
		}

		// Change the logging level for all subsystems.
		log.SetLogLevels(debugLevel)

		return nil
	}

	// Split the specified string into subsystem/level pairs while detecting
	// issues and update the log levels accordingly.
	for _, logLevelPair := range strings.Split(debugLevel, ",") {
		if !strings.Contains(logLevelPair, "=") {
			str := "the specified debug level contains an invalid " +
				"subsystem/level pair [%v]"
			return fmt.Errorf(str, logLevelPair)
		}

		// Extract the specified subsystem and log level.
		fields := strings.Split(logLevelPair, "=")
		subsysID, logLevel := fields[0], fields[1]

		// Validate subsystem.
		if _, exists := log.SubsystemLoggers[subsysID]; !exists {
			str := "the specified subsystem [%v] is invalid -- " +
				"supported subsystems %v"
			return fmt.Errorf(str, subsysID, supportedSubsystems())
		}

		// Validate log level.
		if !log.ValidLogLevel(logLevel) {
			str := "the specified debug level [%v] is invalid"
			return fmt.Errorf(str, logLevel)
		}

		log.SetLogLevel(subsysID, logLevel)
	}

	return nil
}

// loadConfig initializes and parses the config using the passed command line
// arguments, decodes the hex encoded inputs and validates the combination of
// options.  Help output and parse errors are written to w.
func loadConfig(args []string, w io.Writer) (*config, error) {
	// Default config.
	cfg := config{
		DbType:     defaultDbType,
		TraceDB:    defaultTraceDir,
		DebugLevel: defaultLogLevel,
	}

	// Parse command line options.
	parser := flags.NewParser(&cfg, flags.HelpFlag|flags.PassDoubleDash)
	remainingArgs, err := parser.ParseArgs(args)
	if err != nil {
		var e *flags.Error
		if errors.As(err, &e) && e.Type == flags.ErrHelp {
			fmt.Fprintln(w, err)
			return nil, errHelpShown
		}
		fmt.Fprintln(w, err)
		parser.WriteHelp(w)
		return nil, err
	}
	if len(remainingArgs) > 0 {
		return nil, fmt.Errorf("unexpected arguments %v", remainingArgs)
	}

	// Show the version and exit if the version flag was specified.
	if cfg.ShowVersion {
		return &cfg, nil
	}

	// Special show command to list supported subsystems and exit.
	if cfg.DebugLevel == "show" {
		fmt.Fprintln(w, "Supported subsystems", supportedSubsystems())
		return nil, errHelpShown
	}

	if err := parseAndSetDebugLevels(cfg.DebugLevel); err != nil {
		return nil, fmt.Errorf("loadConfig: %w", err)
	}

	// Validate database type.
	if !validDbType(cfg.DbType) {
		str := "loadConfig: the specified database type [%v] is " +
			"invalid -- supported types %v"
		return nil, fmt.Errorf(str, cfg.DbType, knownDbTypes)
	}

	// Exactly one mode must be selected.
	var numModes int
	for _, set := range []bool{cfg.Script != "", cfg.Tx != "", cfg.ShowTrace != 0} {
		if set {
			numModes++
		}
	}
	switch {
	case numModes == 0:
		return nil, errNoMode
	case numModes > 1:
		return nil, errConflictModes
	}

	if cfg.Script != "" {
		if cfg.script, err = decodeHex("script", cfg.Script); err != nil {
			return nil, err
		}
	}
	for _, item := range cfg.Stack {
		b, err := decodeHex("stack", item)
		if err != nil {
			return nil, err
		}
		cfg.stack = append(cfg.stack, b)
	}

	if cfg.Tx != "" {
		if len(cfg.Stack) > 0 {
			return nil, errors.New("--stack can only be used with --script")
		}
		rawTx, err := decodeHex("tx", cfg.Tx)
		if err != nil {
			return nil, err
		}
		var tx wire.MsgTx
		if err := tx.Deserialize(bytes.NewReader(rawTx)); err != nil {
			return nil, fmt.Errorf("invalid --tx: %w", err)
		}
		cfg.tx = &tx

		if cfg.Input < 0 || cfg.Input >= len(tx.TxIn) {
			str := "--input %d is out of range -- transaction has %d " +
				"inputs"
			return nil, fmt.Errorf(str, cfg.Input, len(tx.TxIn))
		}
		if cfg.PkScript == "" {
			return nil, errors.New("--pkscript is required with --tx")
		}
		if cfg.pkScript, err = decodeHex("pkscript", cfg.PkScript); err != nil {
			return nil, err
		}
		if cfg.amount, err = btcutil.NewAmount(cfg.Amount); err != nil {
			return nil, fmt.Errorf("invalid --amount: %w", err)
		}
	}

	if cfg.Trace && cfg.ShowTrace != 0 {
		return nil, errors.New("--trace can't be used with --showtrace")
	}

	cfg.flags = cfg.scriptFlags()
	return &cfg, nil
}
