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

package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/c2h5oh/datasize"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	jsoniter "github.com/json-iterator/go"
	"github.com/ledgerwatch/log/v3"
	"github.com/urfave/cli/v2"

	libcommon "github.com/erigontech/blobtx/common"
	"github.com/erigontech/blobtx/consensus/misc"
	"github.com/erigontech/blobtx/core/types"
	"github.com/erigontech/blobtx/txpool"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// maxLineSize fits a hex encoded envelope with the largest allowed sidecar.
const maxLineSize = 4 * int(datasize.MB)

type txSummary struct {
	Hash            common.Hash           `json:"hash"`
	Type            hexutil.Uint64        `json:"type"`
	Nonce           uint64                `json:"nonce"`
	Gas             uint64                `json:"gas"`
	Blobs           int                   `json:"blobs"`
	BlobGas         uint64                `json:"blobGas"`
	BlobFee         *hexutil.Big          `json:"blobFee,omitempty"`
	EncodedLength   int                   `json:"encodedLength"`
	CanonicalLength int                   `json:"canonicalLength"`
	MemSize         libcommon.StorageSize `json:"memSize"`
	Result          string                `json:"result,omitempty"`
}

func signedPart(txn types.PooledTransaction) *types.SignedTransaction {
	switch t := txn.(type) {
	case *types.BlobTxWrapper:
		return t.Tx
	case *types.SignedTransaction:
		return t
	default:
		panic(fmt.Sprintf("unexpected pooled transaction %T", txn))
	}
}

func summarize(txn types.PooledTransaction, excessBlobGas *uint64) (txSummary, error) {
	stx := signedPart(txn)
	payload := stx.Payload()
	s := txSummary{
		Hash:            txn.Hash(),
		Type:            hexutil.Uint64(txn.Type()),
		Nonce:           payload.GetNonce(),
		Gas:             payload.GetGas(),
		EncodedLength:   txn.EncodingSize(),
		CanonicalLength: stx.EncodingSize(),
	}
	if txw, ok := txn.(*types.BlobTxWrapper); ok {
		s.MemSize = libcommon.StorageSize(txw.Size())
	}
	if blobTx, ok := payload.(*types.BlobTx); ok {
		s.Blobs = len(blobTx.BlobVersionedHashes)
		s.BlobGas = blobTx.BlobGas()
	}
	if excessBlobGas != nil {
		fee, err := misc.GetBlobFee(*excessBlobGas, s.Blobs)
		if err != nil {
			return s, err
		}
		s.BlobFee = (*hexutil.Big)(fee.ToBig())
	}
	return s, nil
}

func openInput(ctx *cli.Context) (io.ReadCloser, error) {
	path := ctx.String(InputFlag.Name)
	if path == "" || path == "-" {
		return io.NopCloser(os.Stdin), nil
	}
	return os.Open(path)
}

// readTransactions decodes one hex encoded pooled transaction per line, or one
// PooledTransactions66 packet per line when packets is set. Blank lines and lines starting
// with '#' are skipped. It also returns the number of decoded bytes.
func readTransactions(r io.Reader, packets bool, logger log.Logger) ([]types.PooledTransaction, datasize.ByteSize, error) {
	var (
		txns  []types.PooledTransaction
		total datasize.ByteSize
	)
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), maxLineSize)
	for lineNum := 1; scanner.Scan(); lineNum++ {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if !strings.HasPrefix(line, "0x") && !strings.HasPrefix(line, "0X") {
			line = "0x" + line
		}
		data, err := hexutil.Decode(line)
		if err != nil {
			return nil, 0, fmt.Errorf("line %d: %w", lineNum, err)
		}
		if packets {
			requestID, packetTxns, pos, err := txpool.ParsePooledTransactions66(data, 0)
			if err != nil {
				return nil, 0, fmt.Errorf("line %d: %w", lineNum, err)
			}
			if pos != len(data) {
				return nil, 0, fmt.Errorf("line %d: %w: %d bytes after packet", lineNum, types.ErrTrailingBytes, len(data)-pos)
			}
			logger.Debug("Parsed PooledTransactions66 packet", "line", lineNum, "requestID", requestID, "txns", len(packetTxns))
			txns = append(txns, packetTxns...)
		} else {
			txn, err := types.DecodePooledTransaction(data)
			if err != nil {
				return nil, 0, fmt.Errorf("line %d: %w", lineNum, err)
			}
			txns = append(txns, txn)
		}
		total += datasize.ByteSize(len(data))
	}
	if err := scanner.Err(); err != nil {
		return nil, 0, err
	}
	return txns, total, nil
}

func excessBlobGas(ctx *cli.Context) *uint64 {
	if !ctx.IsSet(ExcessBlobGasFlag.Name) {
		return nil
	}
	v := ctx.Uint64(ExcessBlobGasFlag.Name)
	return &v
}

func loadTransactions(ctx *cli.Context, logger log.Logger) ([]types.PooledTransaction, error) {
	in, err := openInput(ctx)
	if err != nil {
		return nil, err
	}
	defer in.Close()
	txns, total, err := readTransactions(in, ctx.Bool(PacketFlag.Name), logger)
	if err != nil {
		return nil, err
	}
	logger.Info("Decoded pooled transactions", "count", len(txns), "size", total.HumanReadable())
	return txns, nil
}

func writeSummaries(w io.Writer, txns []types.PooledTransaction, reasons []txpool.DiscardReason, excess *uint64) error {
	enc := json.NewEncoder(w)
	for i, txn := range txns {
		s, err := summarize(txn, excess)
		if err != nil {
			return fmt.Errorf("txn %x: %w", txn.Hash(), err)
		}
		if reasons != nil {
			s.Result = reasons[i].String()
		}
		if err := enc.Encode(s); err != nil {
			return err
		}
	}
	return nil
}

func decodeTransactions(ctx *cli.Context) error {
	logger := log.Root()
	txns, err := loadTransactions(ctx, logger)
	if err != nil {
		return err
	}
	return writeSummaries(ctx.App.Writer, txns, nil, excessBlobGas(ctx))
}

func validateTransactions(ctx *cli.Context) error {
	logger := log.Root()
	cfg, err := validatorConfig(ctx)
	if err != nil {
		return err
	}
	txns, err := loadTransactions(ctx, logger)
	if err != nil {
		return err
	}
	setup, err := trustedSetup(ctx, logger)
	if err != nil {
		return err
	}
	validator, err := txpool.NewBlobValidator(cfg, setup, logger)
	if err != nil {
		return err
	}

	start := time.Now()
	reasons, err := validator.ValidateBatch(ctx.Context, txns)
	if err != nil {
		return err
	}
	var rejected int
	for _, r := range reasons {
		if r != txpool.Success {
			rejected++
		}
	}
	logger.Info("Validated pooled transactions", "count", len(txns), "rejected", rejected, "workers", cfg.ValidationWorkers, "took", time.Since(start))

	if err := writeSummaries(ctx.App.Writer, txns, reasons, excessBlobGas(ctx)); err != nil {
		return err
	}
	if rejected > 0 {
		return cli.Exit(fmt.Sprintf("%d of %d transactions rejected", rejected, len(txns)), 2)
	}
	return nil
}

// packTransactions prints a GetPooledTransactions66 request for the hashes of the input
// transactions, followed by the PooledTransactions66 response carrying them.
func packTransactions(ctx *cli.Context) error {
	logger := log.Root()
	txns, err := loadTransactions(ctx, logger)
	if err != nil {
		return err
	}
	requestID := ctx.Uint64(RequestIDFlag.Name)
	hashes := make([]byte, 0, len(txns)*common.HashLength)
	for _, txn := range txns {
		h := txn.Hash()
		hashes = append(hashes, h[:]...)
	}
	request := txpool.EncodeGetPooledTransactions66(hashes, requestID, nil)
	response, err := txpool.EncodePooledTransactions66(txns, requestID, nil)
	if err != nil {
		return err
	}
	w := ctx.App.Writer
	fmt.Fprintln(w, hexutil.Encode(request))
	fmt.Fprintln(w, hexutil.Encode(response))
	return nil
}
