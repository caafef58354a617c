// Copyright (c) 2013-2017 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package log

import (
	"path/filepath"
	"testing"

	"github.com/btcsuite/btclog"
	"github.com/stretchr/testify/require"
)

func TestSupportedSubsystems(t *testing.T) {
	require.Equal(t, []string{"SCRP", "SVMC", "TRDB", "VALD"},
		SupportedSubsystems())
}

func TestSetLogLevel(t *testing.T) {
	SetLogLevels("warn")
	for id, logger := range SubsystemLoggers {
		require.Equalf(t, btclog.LevelWarn, logger.Level(), "subsystem %s", id)
	}

	SetLogLevel("TRDB", "trace")
	require.Equal(t, btclog.LevelTrace, trdbLog.Level())
	require.Equal(t, btclog.LevelWarn, scrpLog.Level())

	// Unknown subsystems are ignored and bad levels fall back to info.
	SetLogLevel("NOPE", "trace")
	SetLogLevel("SCRP", "loud")
	require.Equal(t, btclog.LevelInfo, scrpLog.Level())

	require.True(t, ValidLogLevel("debug"))
	require.False(t, ValidLogLevel("loud"))
}

func TestInitLogRotator(t *testing.T) {
	logFile := filepath.Join(t.TempDir(), "logs", "scriptvm.log")
	require.NoError(t, InitLogRotator(logFile))
	defer func() {
		LogRotator.Close()
		LogRotator = nil
	}()

	require.NotNil(t, LogRotator)
	require.DirExists(t, filepath.Dir(logFile))

	n, err := logWriter{}.Write([]byte("rotator test\n"))
	require.NoError(t, err)
	require.Equal(t, 13, n)
}
