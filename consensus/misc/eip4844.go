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

package misc

import (
	"errors"
	"fmt"

	"github.com/holiman/uint256"

	"github.com/erigontech/blobtx/params"
)

var ErrTooManyBlobs = errors.New("too many blobs")

// CalcExcessBlobGas implements calc_excess_blob_gas from EIP-4844. Nil values are treated as zero,
// which is what a pre-Cancun parent header carries.
func CalcExcessBlobGas(parentExcessBlobGas, parentBlobGasUsed *uint64) uint64 {
	var excessBlobGas, blobGasUsed uint64
	if parentExcessBlobGas != nil {
		excessBlobGas = *parentExcessBlobGas
	}
	if parentBlobGasUsed != nil {
		blobGasUsed = *parentBlobGasUsed
	}

	if excessBlobGas+blobGasUsed < params.TargetBlobGasPerBlock {
		return 0
	}
	return excessBlobGas + blobGasUsed - params.TargetBlobGasPerBlock
}

// FakeExponential approximates factor * e ** (num / denom) using a taylor expansion
// as described in the EIP-4844 spec.
func FakeExponential(factor, denom *uint256.Int, excessBlobGas uint64) (*uint256.Int, error) {
	numerator := uint256.NewInt(excessBlobGas)
	output := uint256.NewInt(0)
	numeratorAccum := new(uint256.Int)
	_, overflow := numeratorAccum.MulOverflow(factor, denom)
	if overflow {
		return nil, fmt.Errorf("FakeExponential: overflow in MulOverflow(factor=%v, denom=%v)", factor, denom)
	}
	divisor := new(uint256.Int)
	for i := 1; numeratorAccum.Sign() > 0; i++ {
		_, overflow = output.AddOverflow(output, numeratorAccum)
		if overflow {
			return nil, fmt.Errorf("FakeExponential: overflow in AddOverflow(output=%v, numeratorAccum=%v)", output, numeratorAccum)
		}
		_, overflow = divisor.MulOverflow(denom, uint256.NewInt(uint64(i)))
		if overflow {
			return nil, fmt.Errorf("FakeExponential: overflow in MulOverflow(denom=%v, i=%v)", denom, i)
		}
		_, overflow = numeratorAccum.MulDivOverflow(numeratorAccum, numerator, divisor)
		if overflow {
			return nil, fmt.Errorf("FakeExponential: overflow in MulDivOverflow(numeratorAccum=%v, numerator=%v, divisor=%v)", numeratorAccum, numerator, divisor)
		}
	}
	return output.Div(output, denom), nil
}

func GetBlobGasPrice(excessBlobGas uint64) (*uint256.Int, error) {
	return FakeExponential(uint256.NewInt(params.MinBlobGasPrice), uint256.NewInt(params.BlobGasPriceUpdateFraction), excessBlobGas)
}

func GetBlobGasUsed(numBlobs int) uint64 {
	return uint64(numBlobs) * params.BlobGasPerBlob
}

// GetBlobFee is the blob gas fee charged for numBlobs at the given excess blob gas.
func GetBlobFee(excessBlobGas uint64, numBlobs int) (*uint256.Int, error) {
	price, err := GetBlobGasPrice(excessBlobGas)
	if err != nil {
		return nil, err
	}
	return price.Mul(price, uint256.NewInt(GetBlobGasUsed(numBlobs))), nil
}

// VerifyBlobCount checks that numBlobs fits in a single block.
func VerifyBlobCount(numBlobs int) error {
	if uint64(numBlobs) > params.MaxBlobsPerBlock {
		return fmt.Errorf("%w: have %d, max %d", ErrTooManyBlobs, numBlobs, params.MaxBlobsPerBlock)
	}
	return nil
}
