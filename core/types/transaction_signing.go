// Copyright 2016 The go-ethereum Authors
// This file is part of the go-ethereum library.
//
// The go-ethereum library is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// The go-ethereum library is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with the go-ethereum library. If not, see <http://www.gnu.org/licenses/>.

package types

import (
	"crypto/ecdsa"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	libcommon "github.com/erigontech/blobtx/common"
	"github.com/erigontech/blobtx/rlp"
)

// Signer signs and recovers transactions of one chain. Typed transactions must carry the
// signer's chain id; legacy transactions are EIP-155 protected when their ChainID is set and
// use homestead rules otherwise.
type Signer struct {
	chainID uint64
}

func LatestSigner(chainID uint64) Signer {
	return Signer{chainID: chainID}
}

func (s Signer) ChainID() uint64 { return s.chainID }

func (s Signer) checkChainID(tx TxData) error {
	if legacy, ok := tx.(*LegacyTx); ok {
		if legacy.ChainID != nil && *legacy.ChainID != s.chainID {
			return fmt.Errorf("%w: have %d want %d", ErrInvalidChainId, *legacy.ChainID, s.chainID)
		}
		return nil
	}
	if tx.GetChainID() != s.chainID {
		return fmt.Errorf("%w: have %d want %d", ErrInvalidChainId, tx.GetChainID(), s.chainID)
	}
	return nil
}

// SigningHash returns the hash to be signed by the sender.
// It does not uniquely identify the transaction.
func (s Signer) SigningHash(tx TxData) (common.Hash, error) {
	if err := s.checkChainID(tx); err != nil {
		return common.Hash{}, err
	}
	h := libcommon.NewHasher()
	defer libcommon.ReturnHasherToPool(h)
	var b [33]byte

	payloadSize := tx.fieldsLength()
	legacy, isLegacy := tx.(*LegacyTx)
	if isLegacy {
		if legacy.ChainID != nil {
			// EIP-155: chainID, 0, 0
			payloadSize += rlp.U64Len(*legacy.ChainID) + 2
		}
	} else {
		b[0] = tx.Type()
		if _, err := h.Sha.Write(b[:1]); err != nil {
			return common.Hash{}, err
		}
	}
	if err := rlp.EncodeStructSizePrefix(payloadSize, h.Sha, b[:]); err != nil {
		return common.Hash{}, err
	}
	if err := tx.encodeFields(h.Sha, b[:]); err != nil {
		return common.Hash{}, err
	}
	if isLegacy && legacy.ChainID != nil {
		if err := rlp.EncodeInt(*legacy.ChainID, h.Sha, b[:]); err != nil {
			return common.Hash{}, err
		}
		b[0], b[1] = 0x80, 0x80
		if _, err := h.Sha.Write(b[:2]); err != nil {
			return common.Hash{}, err
		}
	}
	return h.Sum()
}

// SignTx signs a copy of tx with the given private key.
func (s Signer) SignTx(tx TxData, prv *ecdsa.PrivateKey) (*SignedTransaction, error) {
	sighash, err := s.SigningHash(tx)
	if err != nil {
		return nil, err
	}
	sig, err := crypto.Sign(sighash[:], prv)
	if err != nil {
		return nil, err
	}
	// [R || S || V] with V being 0 or 1
	var signature Signature
	signature.R.SetBytes(sig[:32])
	signature.S.SetBytes(sig[32:64])
	signature.OddYParity = sig[64] == 1
	return NewSignedTransaction(tx.copy(), signature)
}

// Sender returns the address derived from the signature using secp256k1
// elliptic curve and an error if it failed deriving or upon an incorrect
// signature.
func (s Signer) Sender(stx *SignedTransaction) (common.Address, error) {
	sighash, err := s.SigningHash(stx.Payload())
	if err != nil {
		return common.Address{}, err
	}
	return recoverPlain(sighash, stx.Signature())
}

func recoverPlain(sighash common.Hash, signature Signature) (common.Address, error) {
	var v byte
	if signature.OddYParity {
		v = 1
	}
	if !crypto.ValidateSignatureValues(v, signature.R.ToBig(), signature.S.ToBig(), true) {
		return common.Address{}, ErrInvalidSig
	}
	// encode the signature in uncompressed format
	sig := make([]byte, crypto.SignatureLength)
	signature.R.WriteToSlice(sig[:32])
	signature.S.WriteToSlice(sig[32:64])
	sig[64] = v
	// recover the public key from the signature
	pub, err := crypto.Ecrecover(sighash[:], sig)
	if err != nil {
		return common.Address{}, err
	}
	if len(pub) == 0 || pub[0] != 4 {
		return common.Address{}, errors.New("invalid public key")
	}
	var addr common.Address
	copy(addr[:], crypto.Keccak256(pub[1:])[12:])
	return addr, nil
}
