/*
   Copyright 2021 Erigon contributors

   Licensed under the Apache License, Version 2.0 (the "License");
   you may not use this file except in compliance with the License.
   You may obtain a copy of the License at

       http://www.apache.org/licenses/LICENSE-2.0

   Unless required by applicable law or agreed to in writing, software
   distributed under the License is distributed on an "AS IS" BASIS,
   WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
   See the License for the specific language governing permissions and
   limitations under the License.
*/

package txpool

import (
	"encoding/hex"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/erigontech/blobtx/core/types"
	"github.com/erigontech/blobtx/rlp"
)

var hashParseTests = []struct {
	payloadStr  string
	hashStr     string
	expectedErr bool
}{
	{payloadStr: "a0595e27a835cd79729ff1eeacec3120eeb6ed1464a04ec727aaca734ead961328", hashStr: "595e27a835cd79729ff1eeacec3120eeb6ed1464a04ec727aaca734ead961328", expectedErr: false},
	{payloadStr: "9f595e27a835cd79729ff1eeacec3120eeb6ed1464a04ec727aaca734ead9613", expectedErr: true},
	{payloadStr: "e1a0595e27a835cd79729ff1eeacec3120eeb6ed1464a04ec727aaca734ead961328", expectedErr: true},
	{payloadStr: "a0595e27a835cd79729ff1eeacec3120eeb6ed1464a04ec727aaca734ead9613", expectedErr: true},
}

func TestParseHash(t *testing.T) {
	for i, tt := range hashParseTests {
		t.Run(fmt.Sprintf("%d", i), func(t *testing.T) {
			payload, err := hex.DecodeString(tt.payloadStr)
			require.NoError(t, err)
			hashBuf, parseEnd, err := ParseHash(payload, 0, nil)
			if tt.expectedErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, len(payload), parseEnd)
			assert.Equal(t, tt.hashStr, hex.EncodeToString(hashBuf))
		})
	}
}

var hashEncodeTests = []struct {
	payloadStr string
	hashesStr  string
	hashCount  int
}{
	{payloadStr: "e1a0595e27a835cd79729ff1eeacec3120eeb6ed1464a04ec727aaca734ead961328",
		hashesStr: "595e27a835cd79729ff1eeacec3120eeb6ed1464a04ec727aaca734ead961328", hashCount: 1},
	{payloadStr: "c0", hashesStr: "", hashCount: 0},
}

func TestEncodeHash(t *testing.T) {
	for i, tt := range hashEncodeTests {
		t.Run(fmt.Sprintf("%d", i), func(t *testing.T) {
			payload, err := hex.DecodeString(tt.payloadStr)
			require.NoError(t, err)
			hashes, err := hex.DecodeString(tt.hashesStr)
			require.NoError(t, err)
			encodeBuf := EncodeHashes(hashes, nil)
			assert.Equal(t, payload, encodeBuf)

			count, dataPos, err := ParseHashesCount(encodeBuf, 0)
			require.NoError(t, err)
			assert.Equal(t, tt.hashCount, count)
			assert.Equal(t, len(encodeBuf)-len(hashes)/32*33, dataPos)
		})
	}
}

func TestParseHashesCountErrors(t *testing.T) {
	// not a list
	_, _, err := ParseHashesCount([]byte{0x80}, 0)
	require.ErrorIs(t, err, rlp.ErrParse)
	// a list of a single 3-byte item
	_, _, err = ParseHashesCount([]byte{0xc3, 0x82, 0x01, 0x02}, 0)
	require.ErrorIs(t, err, rlp.ErrParse)
	// truncated
	_, _, err = ParseHashesCount([]byte{0xe1, 0xa0, 0x59}, 0)
	require.ErrorIs(t, err, rlp.ErrParse)
}

var gpt66EncodeTests = []struct {
	payloadStr string
	hashesStr  string
	hashCount  int
	requestId  uint64
}{
	{payloadStr: "e68306f854e1a0595e27a835cd79729ff1eeacec3120eeb6ed1464a04ec727aaca734ead961328",
		hashesStr: "595e27a835cd79729ff1eeacec3120eeb6ed1464a04ec727aaca734ead961328", hashCount: 1, requestId: 456788},
}

// TestEncodeGPT66 tests the encoding of GetPoolTransactions66 packet
func TestEncodeGPT66(t *testing.T) {
	for i, tt := range gpt66EncodeTests {
		t.Run(fmt.Sprintf("%d", i), func(t *testing.T) {
			payload, err := hex.DecodeString(tt.payloadStr)
			require.NoError(t, err)
			hashes, err := hex.DecodeString(tt.hashesStr)
			require.NoError(t, err)
			encodeBuf := EncodeGetPooledTransactions66(hashes, tt.requestId, nil)
			assert.Equal(t, payload, encodeBuf)

			requestID, parsed, pos, err := ParseGetPooledTransactions66(encodeBuf, 0, nil)
			require.NoError(t, err)
			assert.Equal(t, tt.requestId, requestID)
			assert.Equal(t, hashes, parsed)
			assert.Equal(t, len(encodeBuf), pos)
		})
	}
}

func TestPooledTransactions66(t *testing.T) {
	setup := testSetup(t)
	rnd := newTestRand(1)

	txs := []types.PooledTransaction{
		testLegacyTx(t, rnd),
		testDynamicFeeTx(t, rnd),
		testBlobTxWrapper(t, rnd, setup, 1),
		testBlobTxWrapper(t, rnd, setup, 2),
	}
	encoded, err := EncodePooledTransactions66(txs, 17, nil)
	require.NoError(t, err)

	requestID, decoded, pos, err := ParsePooledTransactions66(encoded, 0)
	require.NoError(t, err)
	assert.Equal(t, uint64(17), requestID)
	assert.Equal(t, len(encoded), pos)
	require.Len(t, decoded, len(txs))
	for i := range txs {
		assert.Equal(t, txs[i].Hash(), decoded[i].Hash(), i)
		assert.Equal(t, txs[i].Type(), decoded[i].Type(), i)
	}
	wrapper, ok := decoded[3].(*types.BlobTxWrapper)
	require.True(t, ok)
	assert.Equal(t, txs[3].(*types.BlobTxWrapper).Sidecar, wrapper.Sidecar)

	t.Run("empty", func(t *testing.T) {
		encoded, err := EncodePooledTransactions66(nil, 0, nil)
		require.NoError(t, err)
		assert.Equal(t, []byte{0xc2, 0x80, 0xc0}, encoded)
		requestID, decoded, _, err := ParsePooledTransactions66(encoded, 0)
		require.NoError(t, err)
		assert.Zero(t, requestID)
		assert.Empty(t, decoded)
	})

	t.Run("truncated", func(t *testing.T) {
		_, _, _, err := ParsePooledTransactions66(encoded[:len(encoded)-1], 0)
		require.Error(t, err)
	})

	t.Run("corrupt element", func(t *testing.T) {
		bad, err := EncodePooledTransactions66(txs[:2], 5, nil)
		require.NoError(t, err)
		// the typed element is a byte string; make its type byte unknown
		idx := len(bad) - txs[1].EncodingSize()
		bad[idx] = 0x7f
		_, _, _, err = ParsePooledTransactions66(bad, 0)
		require.ErrorIs(t, err, types.ErrUnknownTxType)
	})
}
