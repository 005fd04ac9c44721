// Copyright 2024 The Erigon Authors
// This file is part of Erigon.
//
// Erigon is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// Erigon is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with Erigon. If not, see <http://www.gnu.org/licenses/>.

package types

import (
	"bytes"
	"math/rand"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	fuzz "github.com/google/gofuzz"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"

	"github.com/erigontech/blobtx/params"
	"github.com/erigontech/blobtx/rlp"
)

const RUNS = 100

type TRand struct {
	rnd *rand.Rand
	fz  *fuzz.Fuzzer
}

func NewTRand() *TRand {
	seed := time.Now().UnixNano()
	src := rand.NewSource(seed)
	return &TRand{rnd: rand.New(src), fz: fuzz.NewWithSeed(seed).NilChance(0)}
}

func (tr *TRand) RandIntInRange(min, max int) int {
	return (tr.rnd.Intn(max-min) + min)
}

func (tr *TRand) RandUint64() uint64 {
	return tr.rnd.Uint64()
}

// RandUint128 returns a value of at most 128 bits, with small values over-represented
// to exercise the single byte encodings.
func (tr *TRand) RandUint128() uint256.Int {
	var v uint256.Int
	switch tr.rnd.Intn(4) {
	case 0:
		v.SetUint64(uint64(tr.rnd.Intn(200)))
	default:
		v[0], v[1] = tr.rnd.Uint64(), tr.rnd.Uint64()
	}
	return v
}

func (tr *TRand) RandUint256() uint256.Int {
	var v uint256.Int
	tr.fz.Fuzz(&v)
	return v
}

func (tr *TRand) RandBytes(size int) []byte {
	arr := make([]byte, size)
	tr.rnd.Read(arr)
	return arr
}

func (tr *TRand) RandAddress() common.Address {
	var a common.Address
	tr.fz.Fuzz(&a)
	return a
}

func (tr *TRand) RandTo() *common.Address {
	if tr.rnd.Intn(5) == 0 {
		return nil
	}
	to := tr.RandAddress()
	return &to
}

func (tr *TRand) RandHash() common.Hash {
	var h common.Hash
	tr.fz.Fuzz(&h)
	return h
}

func (tr *TRand) RandHashes(n int) []common.Hash {
	if n == 0 {
		return nil
	}
	hashes := make([]common.Hash, n)
	for i := 0; i < n; i++ {
		hashes[i] = tr.RandHash()
	}
	return hashes
}

func (tr *TRand) RandAccessTuple() AccessTuple {
	n := tr.RandIntInRange(0, 5)
	sk := make([]common.Hash, n)
	for i := 0; i < n; i++ {
		sk[i] = tr.RandHash()
	}
	return AccessTuple{
		Address:     tr.RandAddress(),
		StorageKeys: sk,
	}
}

func (tr *TRand) RandAccessList(size int) AccessList {
	if size == 0 {
		return nil
	}
	al := make([]AccessTuple, size)
	for i := 0; i < size; i++ {
		al[i] = tr.RandAccessTuple()
	}
	return al
}

func (tr *TRand) RandData() []byte {
	// cross the 55 byte boundary of the short string form
	return tr.RandBytes(tr.RandIntInRange(0, 200))
}

func (tr *TRand) RandSignature() Signature {
	return Signature{
		OddYParity: tr.rnd.Intn(2) == 1,
		R:          tr.RandUint256(),
		S:          tr.RandUint256(),
	}
}

func (tr *TRand) RandDynamicFeeTx() DynamicFeeTx {
	return DynamicFeeTx{
		ChainID:    tr.RandUint64(),
		Nonce:      tr.RandUint64(),
		TipCap:     tr.RandUint128(),
		FeeCap:     tr.RandUint128(),
		Gas:        tr.RandUint64(),
		To:         tr.RandTo(),
		Value:      tr.RandUint128(),
		Data:       tr.RandData(),
		AccessList: tr.RandAccessList(tr.RandIntInRange(0, 4)),
	}
}

func (tr *TRand) RandBlobTx(numBlobs int) *BlobTx {
	return &BlobTx{
		DynamicFeeTx:        tr.RandDynamicFeeTx(),
		MaxFeePerBlobGas:    tr.RandUint128(),
		BlobVersionedHashes: tr.RandHashes(numBlobs),
	}
}

func (tr *TRand) RandTxData() TxData {
	switch txType := byte(tr.rnd.Intn(4)); txType {
	case params.LegacyTxType:
		tx := &LegacyTx{
			Nonce:    tr.RandUint64(),
			GasPrice: tr.RandUint256(),
			Gas:      tr.RandUint64(),
			To:       tr.RandTo(),
			Value:    tr.RandUint256(),
			Data:     tr.RandData(),
		}
		if tr.rnd.Intn(2) == 0 {
			id := uint64(tr.rnd.Uint32())
			tx.ChainID = &id
		}
		return tx
	case params.AccessListTxType:
		return &AccessListTx{
			ChainID:    tr.RandUint64(),
			Nonce:      tr.RandUint64(),
			GasPrice:   tr.RandUint256(),
			Gas:        tr.RandUint64(),
			To:         tr.RandTo(),
			Value:      tr.RandUint256(),
			Data:       tr.RandData(),
			AccessList: tr.RandAccessList(tr.RandIntInRange(0, 4)),
		}
	case params.DynamicFeeTxType:
		tx := tr.RandDynamicFeeTx()
		return &tx
	default:
		return tr.RandBlobTx(tr.RandIntInRange(0, 7))
	}
}

func (tr *TRand) RandSignedTransaction(tx TxData) *SignedTransaction {
	stx, err := NewSignedTransaction(tx, tr.RandSignature())
	if err != nil {
		panic(err)
	}
	return stx
}

// RandSidecar returns a sidecar with random, not necessarily valid, contents.
func (tr *TRand) RandSidecar(numBlobs int) BlobTxSidecar {
	var sc BlobTxSidecar
	for i := 0; i < numBlobs; i++ {
		var blob Blob
		tr.rnd.Read(blob[:])
		sc.Blobs = append(sc.Blobs, blob)
		var c KZGCommitment
		tr.rnd.Read(c[:])
		sc.Commitments = append(sc.Commitments, c)
		var p KZGProof
		tr.rnd.Read(p[:])
		sc.Proofs = append(sc.Proofs, p)
	}
	return sc
}

func (tr *TRand) RandBlobTxWrapper(numBlobs int) *BlobTxWrapper {
	return NewBlobTxWrapper(tr.RandSignedTransaction(tr.RandBlobTx(numBlobs)), tr.RandSidecar(numBlobs))
}

func encodeSigned(t *testing.T, stx *SignedTransaction) []byte {
	t.Helper()
	enc, err := stx.Bytes()
	require.NoError(t, err)
	return enc
}

func checkSignedTransactions(t *testing.T, a, b *SignedTransaction) {
	t.Helper()
	require.Equal(t, a.Type(), b.Type())
	require.Equal(t, a.Payload(), b.Payload())
	require.Equal(t, a.Signature(), b.Signature())
	require.Equal(t, a.Hash(), b.Hash())
}

func TestSignedTransactionEncodeDecode(t *testing.T) {
	tr := NewTRand()
	for i := 0; i < RUNS; i++ {
		stx := tr.RandSignedTransaction(tr.RandTxData())
		enc := encodeSigned(t, stx)
		require.Equal(t, stx.EncodingSize(), len(enc))
		require.Equal(t, crypto.Keccak256Hash(enc), stx.Hash())

		decoded, err := DecodeSignedTransaction(enc)
		require.NoError(t, err)
		checkSignedTransactions(t, stx, decoded)

		var wrapped bytes.Buffer
		require.NoError(t, stx.EncodeRLP(&wrapped))
		if stx.Type() != params.BlobTxType {
			pooled, err := DecodePooledTransaction(wrapped.Bytes())
			require.NoError(t, err)
			checkSignedTransactions(t, stx, pooled.(*SignedTransaction))
		}
	}
}

func TestBlobTxWrapperEncodeDecode(t *testing.T) {
	tr := NewTRand()
	for _, numBlobs := range []int{0, 1, 2, 6} {
		txw := tr.RandBlobTxWrapper(numBlobs)
		for _, withHeader := range []bool{false, true} {
			var buf bytes.Buffer
			require.NoError(t, txw.EncodeWithType(&buf, withHeader))
			require.Equal(t, txw.PayloadLenWithType(withHeader), buf.Len(), "blobs=%d header=%v", numBlobs, withHeader)

			pooled, err := DecodePooledTransaction(buf.Bytes())
			require.NoError(t, err)
			decoded, ok := pooled.(*BlobTxWrapper)
			require.True(t, ok)
			checkSignedTransactions(t, txw.Tx, decoded.Tx)
			require.Equal(t, txw.Sidecar, decoded.Sidecar)
			require.Equal(t, txw.Hash(), decoded.Hash())
		}
		require.Equal(t, txw.PayloadLenWithType(false), txw.EncodingSize())
	}
}

func TestBlobTxFieldsRoundTrip(t *testing.T) {
	tr := NewTRand()
	for i := 0; i < RUNS; i++ {
		tx := tr.RandBlobTx(tr.RandIntInRange(0, 7))
		var buf bytes.Buffer
		var b [33]byte
		require.NoError(t, rlp.EncodeStructSizePrefix(tx.fieldsLength(), &buf, b[:]))
		require.NoError(t, tx.encodeFields(&buf, b[:]))
		require.Equal(t, rlp.ListPrefixLen(tx.fieldsLength())+tx.fieldsLength(), buf.Len())

		s := newStream(buf.Bytes())
		_, err := s.List()
		require.NoError(t, err)
		decoded, err := DecodeBlobTxFields(s)
		require.NoError(t, err)
		require.NoError(t, s.ListEnd())
		require.Equal(t, tx, decoded)
	}
}

func TestSidecarFieldsRoundTrip(t *testing.T) {
	tr := NewTRand()
	for _, numBlobs := range []int{0, 1, 3} {
		sc := tr.RandSidecar(numBlobs)
		// lengths are not tied together at this layer
		sc.Proofs = sc.Proofs[:numBlobs/2]
		if len(sc.Proofs) == 0 {
			sc.Proofs = nil
		}

		var buf bytes.Buffer
		var b [33]byte
		require.NoError(t, sc.EncodeFields(&buf, b[:]))
		require.Equal(t, sc.FieldsLength(), buf.Len())

		var decoded BlobTxSidecar
		s := newStream(buf.Bytes())
		require.NoError(t, decoded.DecodeFields(s))
		require.Equal(t, sc, decoded)
		require.Equal(t, numBlobs*params.BlobSize+numBlobs*params.KZGCommitmentSize+len(sc.Proofs)*params.KZGProofSize, sc.Size())
	}
}
