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
	"errors"
	"fmt"
	"io"
	"unsafe"

	"github.com/ethereum/go-ethereum/common"
	gethrlp "github.com/ethereum/go-ethereum/rlp"

	"github.com/erigontech/blobtx/rlp"
)

// AccessTuple is the element type of an access list.
type AccessTuple struct {
	Address     common.Address `json:"address"`
	StorageKeys []common.Hash  `json:"storageKeys"`
}

// AccessList is an EIP-2930 access list.
type AccessList []AccessTuple

// StorageKeys returns the total number of storage keys in the access list.
func (al AccessList) StorageKeys() int {
	sum := 0
	for _, tuple := range al {
		sum += len(tuple.StorageKeys)
	}
	return sum
}

// Size approximates the memory held by the access list.
func (al AccessList) Size() int {
	size := cap(al) * int(unsafe.Sizeof(AccessTuple{}))
	for _, tuple := range al {
		size += cap(tuple.StorageKeys) * common.HashLength
	}
	return size
}

func (al AccessList) copy() AccessList {
	if al == nil {
		return nil
	}
	cpy := make(AccessList, len(al))
	for i, tuple := range al {
		cpy[i].Address = tuple.Address
		cpy[i].StorageKeys = append([]common.Hash{}, tuple.StorageKeys...)
	}
	return cpy
}

func accessTupleSize(tuple AccessTuple) (tupleLen, storageLen int) {
	// Each storage key takes 33 bytes
	storageLen = rlp.HashesLen(len(tuple.StorageKeys))
	tupleLen = 21 + rlp.ListPrefixLen(storageLen) + storageLen
	return tupleLen, storageLen
}

// accessListSize is the payload length of the access list, without its own list prefix.
func accessListSize(al AccessList) int {
	var accessListLen int
	for _, tuple := range al {
		tupleLen, _ := accessTupleSize(tuple)
		accessListLen += rlp.ListPrefixLen(tupleLen) + tupleLen
	}
	return accessListLen
}

// encodeAccessList writes the list prefix followed by every tuple.
func encodeAccessList(al AccessList, w io.Writer, b []byte) error {
	if err := rlp.EncodeStructSizePrefix(accessListSize(al), w, b); err != nil {
		return err
	}
	for i := 0; i < len(al); i++ {
		tupleLen, _ := accessTupleSize(al[i])
		if err := rlp.EncodeStructSizePrefix(tupleLen, w, b); err != nil {
			return err
		}
		if err := rlp.EncodeOptionalAddress(&al[i].Address, w, b); err != nil {
			return err
		}
		if err := rlp.EncodeHashList(al[i].StorageKeys, w, b); err != nil {
			return err
		}
	}
	return nil
}

func decodeAccessList(al *AccessList, s *gethrlp.Stream) error {
	_, err := s.List()
	if err != nil {
		return fmt.Errorf("open accessList: %w", err)
	}
	i := 0
	for _, err = s.List(); err == nil; _, err = s.List() {
		// decode tuple
		*al = append(*al, AccessTuple{StorageKeys: []common.Hash{}})
		tuple := &(*al)[len(*al)-1]
		if err = s.ReadBytes(tuple.Address[:]); err != nil {
			return fmt.Errorf("read Address: %w", err)
		}
		if _, err = s.List(); err != nil {
			return fmt.Errorf("open StorageKeys: %w", err)
		}
		for {
			var key common.Hash
			if err = s.ReadBytes(key[:]); err != nil {
				break
			}
			tuple.StorageKeys = append(tuple.StorageKeys, key)
		}
		if !errors.Is(err, gethrlp.EOL) {
			return fmt.Errorf("read StorageKey: %w", err)
		}
		// end of StorageKeys list
		if err = s.ListEnd(); err != nil {
			return fmt.Errorf("close StorageKeys: %w", err)
		}
		// end of tuple
		if err = s.ListEnd(); err != nil {
			return fmt.Errorf("close AccessTuple: %w", err)
		}
		i++
	}
	if !errors.Is(err, gethrlp.EOL) {
		return fmt.Errorf("open accessTuple: %d %w", i, err)
	}
	if err = s.ListEnd(); err != nil {
		return fmt.Errorf("close accessList: %w", err)
	}
	return nil
}
