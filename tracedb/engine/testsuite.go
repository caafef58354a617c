// Copyright (c) 2013-2017 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package engine

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// TestSuiteEngine runs the behavior every backend must provide against
// engines produced by new.  Each call to new must return a fresh, empty
// database.
func TestSuiteEngine(t *testing.T, new func() Engine) {
	t.Run("TransactionSnapshot", func(t *testing.T) {
		engine := new()
		defer engine.Close()

		tx, err := engine.Transaction()
		require.NoErrorf(t, err, "failed to create transaction")

		key := []byte("s\x00\x00\x00\x01")
		value := []byte("step1")
		err = tx.Put(key, value)
		require.NoErrorf(t, err, "failed to put data into transaction")

		// Uncommitted writes are invisible.
		snapshot, err := engine.Snapshot()
		require.NoErrorf(t, err, "failed to create snapshot")

		has, err := snapshot.Has(key)
		require.NoErrorf(t, err, "failed to check if key exists in snapshot")
		require.Falsef(t, has, "expected key to not exist in snapshot")

		gotValue, err := snapshot.Get(key)
		require.Errorf(t, err, "expected to get error when getting value from snapshot")
		require.Nil(t, gotValue, "expected to get nil value from snapshot")
		snapshot.Release()

		err = tx.Commit()
		require.NoErrorf(t, err, "failed to commit transaction")

		snapshot, err = engine.Snapshot()
		require.NoErrorf(t, err, "failed to create snapshot")

		has, err = snapshot.Has(key)
		require.NoErrorf(t, err, "failed to check if key exists in snapshot")
		require.Truef(t, has, "expected key to exist in snapshot")

		gotValue, err = snapshot.Get(key)
		require.NoErrorf(t, err, "failed to get value from snapshot")
		require.Equalf(t, value, gotValue, "snapshot value mismatch")
		snapshot.Release()
	})

	t.Run("TransactionDelete", func(t *testing.T) {
		engine := new()
		defer engine.Close()

		tx, err := engine.Transaction()
		require.NoError(t, err)
		require.NoError(t, tx.Put([]byte("a"), []byte("1")))
		require.NoError(t, tx.Put([]byte("b"), []byte("2")))
		require.NoError(t, tx.Commit())

		tx, err = engine.Transaction()
		require.NoError(t, err)
		require.NoError(t, tx.Delete([]byte("a")))
		require.NoError(t, tx.Commit())

		snapshot, err := engine.Snapshot()
		require.NoError(t, err)
		defer snapshot.Release()

		has, err := snapshot.Has([]byte("a"))
		require.NoError(t, err)
		require.False(t, has, "deleted key still present")

		has, err = snapshot.Has([]byte("b"))
		require.NoError(t, err)
		require.True(t, has, "untouched key missing")
	})

	t.Run("TransactionIterator", func(t *testing.T) {
		engine := new()
		defer engine.Close()

		// Keys shaped like the trace store: one run record per run and
		// step records ordered by run then step.
		stored := map[string]string{
			"r\x01":     "run1",
			"r\x02":     "run2",
			"s\x01\x00": "a",
			"s\x01\x01": "b",
			"s\x01\x02": "c",
			"s\x02\x00": "d",
		}
		tx, err := engine.Transaction()
		require.NoError(t, err)
		for k, v := range stored {
			require.NoError(t, tx.Put([]byte(k), []byte(v)))
		}
		require.NoError(t, tx.Commit())

		tests := []struct {
			name string
			rng  *Range
			want []string
		}{{
			name: "before all keys",
			rng:  &Range{Start: []byte("a"), Limit: []byte("b")},
		}, {
			name: "limit is exclusive",
			rng:  &Range{Start: []byte("r"), Limit: []byte("r\x02")},
			want: []string{"r\x01"},
		}, {
			name: "start is inclusive",
			rng:  &Range{Start: []byte("s\x01\x01"), Limit: []byte("s\x02")},
			want: []string{"s\x01\x01", "s\x01\x02"},
		}, {
			name: "start between keys",
			rng:  &Range{Start: []byte("s\x01\x00\xff"), Limit: []byte("t")},
			want: []string{"s\x01\x01", "s\x01\x02", "s\x02\x00"},
		}, {
			name: "empty range",
			rng:  &Range{Start: []byte("s"), Limit: []byte("s")},
		}, {
			name: "run prefix",
			rng:  BytesPrefix([]byte("s\x01")),
			want: []string{"s\x01\x00", "s\x01\x01", "s\x01\x02"},
		}, {
			name: "unbounded",
			rng:  &Range{},
			want: []string{"r\x01", "r\x02", "s\x01\x00", "s\x01\x01",
				"s\x01\x02", "s\x02\x00"},
		}}

		snapshot, err := engine.Snapshot()
		require.NoError(t, err)
		defer snapshot.Release()

		for _, test := range tests {
			iter := snapshot.NewIterator(test.rng)
			var got []string
			for iter.Next() {
				key := string(iter.Key())
				require.Equalf(t, stored[key], string(iter.Value()),
					"%s: value for key %q", test.name, key)
				got = append(got, key)
			}
			require.NoErrorf(t, iter.Error(), test.name)
			iter.Release()

			require.Equalf(t, test.want, got, test.name)
		}
	})

	t.Run("IteratorLast", func(t *testing.T) {
		engine := new()
		defer engine.Close()

		tx, err := engine.Transaction()
		require.NoError(t, err)
		for _, k := range []string{"r\x01", "r\x02", "r\x07", "s\x09"} {
			require.NoError(t, tx.Put([]byte(k), []byte(k)))
		}
		require.NoError(t, tx.Commit())

		snapshot, err := engine.Snapshot()
		require.NoError(t, err)
		defer snapshot.Release()

		iter := snapshot.NewIterator(BytesPrefix([]byte("r")))
		require.True(t, iter.Last(), "expected a last pair")
		require.Equal(t, []byte("r\x07"), iter.Key())
		iter.Release()

		iter = snapshot.NewIterator(BytesPrefix([]byte("x")))
		require.False(t, iter.Last(), "expected an empty range")
		iter.Release()
	})

	t.Run("DbClose", func(t *testing.T) {
		engine := new()

		transaction, err := engine.Transaction()
		require.NoErrorf(t, err, "failed to create transaction")

		transaction.Discard()
		transaction.Discard() // multiple calls to discard should be safe
		err = transaction.Commit()
		require.Errorf(t, err, "expected to get error when committing discarded transaction")

		snapshot, err := engine.Snapshot()
		require.NoErrorf(t, err, "failed to create snapshot")

		iterator := snapshot.NewIterator(&Range{})
		require.NoErrorf(t, iterator.Error(), "failed to create iterator")
		iterator.Release()
		iterator.Release() // multiple calls to release should be safe

		snapshot.Release()
		snapshot.Release() // multiple calls to release should be safe
		_, err = snapshot.Get([]byte("key"))
		require.Errorf(t, err, "expected to get error when getting value from released snapshot")

		err = engine.Close()
		require.NoErrorf(t, err, "failed to close engine")

		err = engine.Close()
		require.Errorf(t, err, "expected to get error when closing closed engine")

		_, err = engine.Transaction()
		require.Errorf(t, err, "expected to get error when creating transaction from closed engine")

		_, err = engine.Snapshot()
		require.Errorf(t, err, "expected to get error when creating snapshot from closed engine")
	})
}
