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

package rlp

import (
	"errors"
	"fmt"
)

var (
	ErrBase   = errors.New("rlp")
	ErrParse  = fmt.Errorf("%w parse", ErrBase)
	ErrDecode = fmt.Errorf("%w decode", ErrBase)
)

const ParseHashErrorPrefix = "parse hash payload"

// beInt parses Big Endian representation of an integer from given payload at given position
func beInt(payload []byte, pos, length int) (int, error) {
	var r int
	if pos+length > len(payload) {
		return 0, fmt.Errorf("%w: unexpected end of payload", ErrParse)
	}
	if length > 0 && payload[pos] == 0 {
		return 0, fmt.Errorf("%w: integer encoding for RLP must not have leading zeros: %x", ErrParse, payload[pos:pos+length])
	}
	if length > 8 {
		return 0, fmt.Errorf("%w: length prefix of %d bytes is too large", ErrParse, length)
	}
	for _, b := range payload[pos : pos+length] {
		r = (r << 8) | int(b)
	}
	return r, nil
}

// Prefix parses RLP Prefix from given payload at given position. It returns the offset and length of the RLP element
// as well as the indication of whether it is a list of string
func Prefix(payload []byte, pos int) (dataPos int, dataLen int, isList bool, err error) {
	if pos < 0 {
		return 0, 0, false, fmt.Errorf("%w: negative position not allowed", ErrParse)
	}
	if pos >= len(payload) {
		return 0, 0, false, fmt.Errorf("%w: unexpected end of payload", ErrParse)
	}
	switch first := payload[pos]; {
	case first < 128:
		dataPos = pos
		dataLen = 1
		isList = false
	case first < 184:
		// Otherwise, if a string is 0-55 bytes long,
		// the RLP encoding consists of a single byte with value 0x80 plus the
		// length of the string followed by the string. The range of the first
		// byte is thus [0x80, 0xB7].
		dataPos = pos + 1
		dataLen = int(first) - 128
		isList = false
		if dataLen == 1 && dataPos < len(payload) && payload[dataPos] < 128 {
			err = fmt.Errorf("%w: non-canonical size information", ErrParse)
		}
	case first < 192:
		// If a string is more than 55 bytes long, the
		// RLP encoding consists of a single byte with value 0xB7 plus the length
		// of the length of the string in binary form, followed by the length of
		// the string, followed by the string. For example, a length-1024 string
		// would be encoded as 0xB90400 followed by the string. The range of
		// the first byte is thus [0xB8, 0xBF].
		beLen := int(first) - 183
		dataPos = pos + 1 + beLen
		dataLen, err = beInt(payload, pos+1, beLen)
		isList = false
		if err == nil && dataLen < 56 {
			err = fmt.Errorf("%w: non-canonical size information", ErrParse)
		}
	case first < 248:
		// If the total payload of a list
		// (i.e. the combined length of all its items) is 0-55 bytes long, the
		// RLP encoding consists of a single byte with value 0xC0 plus the length
		// of the list followed by the concatenation of the RLP encodings of the
		// items. The range of the first byte is thus [0xC0, 0xF7].
		dataPos = pos + 1
		dataLen = int(first) - 192
		isList = true
	default:
		// If the total payload of a list is more than 55 bytes long,
		// the RLP encoding consists of a single byte with value 0xF7
		// plus the length of the length of the payload in binary
		// form, followed by the length of the payload, followed by
		// the concatenation of the RLP encodings of the items. The
		// range of the first byte is thus [0xF8, 0xFF].
		beLen := int(first) - 247
		dataPos = pos + 1 + beLen
		dataLen, err = beInt(payload, pos+1, beLen)
		isList = true
		if err == nil && dataLen < 56 {
			err = fmt.Errorf("%w: non-canonical size information", ErrParse)
		}
	}
	if err == nil {
		if dataPos+dataLen > len(payload) {
			err = fmt.Errorf("%w: unexpected end of payload", ErrParse)
		} else if dataPos+dataLen < 0 {
			err = fmt.Errorf("%w: found too big len", ErrParse)
		}
	}
	return
}

// List parses a list prefix at pos and returns the position of its first item and the list payload length.
func List(payload []byte, pos int) (dataPos, dataLen int, err error) {
	dataPos, dataLen, isList, err := Prefix(payload, pos)
	if err != nil {
		return 0, 0, err
	}
	if !isList {
		return 0, 0, fmt.Errorf("%w: must be a list", ErrParse)
	}
	return
}

// String parses a byte string prefix at pos and returns the position and length of its content.
func String(payload []byte, pos int) (dataPos, dataLen int, err error) {
	dataPos, dataLen, isList, err := Prefix(payload, pos)
	if err != nil {
		return 0, 0, err
	}
	if isList {
		return 0, 0, fmt.Errorf("%w: must be a string, instead of a list", ErrParse)
	}
	return
}

// U64 parses uint64 number from given payload at given position
func U64(payload []byte, pos int) (int, uint64, error) {
	dataPos, dataLen, isList, err := Prefix(payload, pos)
	if err != nil {
		return 0, 0, err
	}
	if isList {
		return 0, 0, fmt.Errorf("%w: uint64 must be a string, not isList", ErrParse)
	}
	if dataLen > 8 {
		return 0, 0, fmt.Errorf("%w: uint64 must not be more than 8 bytes long, got %d", ErrParse, dataLen)
	}
	if dataLen > 0 && payload[dataPos] == 0 {
		return 0, 0, fmt.Errorf("%w: integer encoding for RLP must not have leading zeros: %x", ErrParse, payload[dataPos:dataPos+dataLen])
	}
	var r uint64
	for _, b := range payload[dataPos : dataPos+dataLen] {
		r = (r << 8) | uint64(b)
	}
	return dataPos + dataLen, r, nil
}

// ParseHash extracts the next hash from the RLP encoding (payload) from a given position.
// It copies the hash into hashbuf, which must be at least 32 bytes long.
func ParseHash(payload []byte, pos int, hashbuf []byte) (int, error) {
	dataPos, dataLen, err := String(payload, pos)
	if err != nil {
		return 0, fmt.Errorf("%s: hash len: %w", ParseHashErrorPrefix, err)
	}
	if dataLen != 32 {
		return 0, fmt.Errorf("%w: %s: hash must be 32 bytes long", ErrParse, ParseHashErrorPrefix)
	}
	copy(hashbuf, payload[dataPos:dataPos+dataLen])
	return dataPos + dataLen, nil
}
