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
	"bytes"
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	libcommon "github.com/erigontech/blobtx/common"
	"github.com/erigontech/blobtx/core/types"
	"github.com/erigontech/blobtx/params"
	"github.com/erigontech/blobtx/rlp"
)

// ParseHash extracts the next hash from the RLP encoding (payload) from a given position.
// It copies the hash into hashbuf, growing it when the capacity is too small.
// The first returned value is the buffer holding the hash.
// The second returned value is the new position in the RLP payload after the extraction
// of the hash.
func ParseHash(payload []byte, pos int, hashbuf []byte) ([]byte, int, error) {
	hashbuf = libcommon.EnsureEnoughSize(hashbuf, common.HashLength)
	pos, err := rlp.ParseHash(payload, pos, hashbuf)
	if err != nil {
		return nil, 0, err
	}
	return hashbuf, pos, nil
}

// ParseHashesCount looks at the RLP length prefix for list of 32-byte hashes
// and returns number of hashes in the list to expect
func ParseHashesCount(payload []byte, pos int) (count int, dataPos int, err error) {
	dataPos, dataLen, err := rlp.List(payload, pos)
	if err != nil {
		return 0, 0, fmt.Errorf("%s: hashes len: %w", rlp.ParseHashErrorPrefix, err)
	}
	if dataLen%33 != 0 {
		return 0, 0, fmt.Errorf("%w: %s: hashes len must be multiple of 33", rlp.ErrParse, rlp.ParseHashErrorPrefix)
	}
	return dataLen / 33, dataPos, nil
}

// EncodeHashes produces RLP encoding of given concatenated hashes, as RLP list.
// It reuses encodeBuf when it has enough capacity.
func EncodeHashes(hashes []byte, encodeBuf []byte) []byte {
	hashesLen := rlp.HashesLen(len(hashes) / common.HashLength)
	encodeBuf = libcommon.EnsureEnoughSize(encodeBuf, rlp.ListPrefixLen(hashesLen)+hashesLen)
	rlp.EncodeHashes(hashes, encodeBuf)
	return encodeBuf
}

// EncodeGetPooledTransactions66 produces encoding of GetPooledTransactions66 packet
func EncodeGetPooledTransactions66(hashes []byte, requestID uint64, encodeBuf []byte) []byte {
	pos := 0
	hashesLen := rlp.HashesLen(len(hashes) / common.HashLength)
	dataLen := rlp.ListPrefixLen(hashesLen) + hashesLen + rlp.U64Len(requestID)
	encodeBuf = libcommon.EnsureEnoughSize(encodeBuf, rlp.ListPrefixLen(dataLen)+dataLen)
	// Length prefix for the entire structure
	pos += rlp.EncodeListPrefix(dataLen, encodeBuf[pos:])
	pos += rlp.EncodeU64(requestID, encodeBuf[pos:])
	rlp.EncodeHashes(hashes, encodeBuf[pos:])
	return encodeBuf
}

func ParseGetPooledTransactions66(payload []byte, pos int, hashbuf []byte) (requestID uint64, hashes []byte, newPos int, err error) {
	pos, _, err = rlp.List(payload, pos)
	if err != nil {
		return 0, hashes, 0, err
	}
	pos, requestID, err = rlp.U64(payload, pos)
	if err != nil {
		return 0, hashes, 0, err
	}
	var hashesCount int
	hashesCount, pos, err = ParseHashesCount(payload, pos)
	if err != nil {
		return 0, hashes, 0, err
	}
	hashes = libcommon.EnsureEnoughSize(hashbuf, common.HashLength*hashesCount)
	for i := 0; i < hashesCount; i++ {
		pos, err = rlp.ParseHash(payload, pos, hashes[i*common.HashLength:])
		if err != nil {
			return 0, hashes, 0, err
		}
	}
	return requestID, hashes, pos, nil
}

// == Pooled transactions ==

// pooledElementLen is the size of a transaction as a list element: legacy transactions are
// inlined, typed ones are wrapped in a byte string.
func pooledElementLen(txn types.PooledTransaction) int {
	size := txn.EncodingSize()
	if txn.Type() == params.LegacyTxType {
		return size
	}
	return rlp.StringPrefixLen(size) + size
}

// EncodePooledTransactions66 produces encoding of PooledTransactions66 packet. Blob transactions
// are sent with their sidecars.
func EncodePooledTransactions66(txs []types.PooledTransaction, requestID uint64, encodeBuf []byte) ([]byte, error) {
	txsLen := 0
	for _, txn := range txs {
		txsLen += pooledElementLen(txn)
	}
	dataLen := rlp.U64Len(requestID) + rlp.ListPrefixLen(txsLen) + txsLen
	total := rlp.ListPrefixLen(dataLen) + dataLen

	buf := bytes.NewBuffer(encodeBuf[:0])
	buf.Grow(total)
	var b [33]byte
	// Length prefix for the entire structure
	if err := rlp.EncodeStructSizePrefix(dataLen, buf, b[:]); err != nil {
		return nil, err
	}
	if err := rlp.EncodeInt(requestID, buf, b[:]); err != nil {
		return nil, err
	}
	if err := rlp.EncodeStructSizePrefix(txsLen, buf, b[:]); err != nil {
		return nil, err
	}
	for i, txn := range txs {
		if err := txn.EncodeRLP(buf); err != nil {
			return nil, fmt.Errorf("encode pooled txn %d: %w", i, err)
		}
	}
	if buf.Len() != total {
		return nil, fmt.Errorf("pooled transactions packet: wrote %d bytes, expected %d", buf.Len(), total)
	}
	return buf.Bytes(), nil
}

// ParsePooledTransactions66 parses a PooledTransactions66 packet. Every element is decoded with
// types.DecodePooledTransaction; the first malformed element fails the whole packet.
func ParsePooledTransactions66(payload []byte, pos int) (requestID uint64, txs []types.PooledTransaction, newPos int, err error) {
	p, dataLen, err := rlp.List(payload, pos)
	if err != nil {
		return 0, nil, 0, err
	}
	end := p + dataLen
	if end > len(payload) {
		return 0, nil, 0, fmt.Errorf("%w: pooled transactions: unexpected end of payload", rlp.ErrParse)
	}
	p, requestID, err = rlp.U64(payload, p)
	if err != nil {
		return requestID, nil, 0, err
	}
	p, txsLen, err := rlp.List(payload, p)
	if err != nil {
		return requestID, nil, 0, err
	}
	if p+txsLen != end {
		return requestID, nil, 0, fmt.Errorf("%w: pooled transactions: list length mismatch", rlp.ErrParse)
	}
	for p < end {
		dataPos, elemLen, _, err := rlp.Prefix(payload, p)
		if err != nil {
			return requestID, nil, 0, err
		}
		next := dataPos + elemLen
		if next > end {
			return requestID, nil, 0, fmt.Errorf("%w: pooled transaction %d overruns the packet", rlp.ErrParse, len(txs))
		}
		txn, err := types.DecodePooledTransaction(payload[p:next])
		if err != nil {
			return requestID, nil, 0, fmt.Errorf("pooled transaction %d: %w", len(txs), err)
		}
		txs = append(txs, txn)
		p = next
	}
	return requestID, txs, end, nil
}
