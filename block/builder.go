package block

import (
	"bytes"
	"context"
	"encoding/hex"
	"time"

	"github.com/centrifuge/go-substrate-rpc-client/v4/scale"
	"golang.org/x/crypto/blake2b"

	"github.com/carbobit/apex-sdk/chain"
	"github.com/carbobit/apex-sdk/errs"
	"github.com/carbobit/apex-sdk/models"
)

const (
	timestampPallet = "Timestamp"
	timestampCall   = "set"

	successPallet = "System"
	successEvent  = "ExtrinsicSuccess"
)

// buildRecord turns a block handle into the summary record. Extrinsic hashes
// are blake2b-256 over the raw extrinsic bytes, in on-chain order.
func (r *Resolver) buildRecord(ctx context.Context, b *chain.Block, headNumber uint64) (models.BlockRecord, error) {
	extrinsics, err := r.chain.Extrinsics(ctx, b)
	if err != nil {
		return models.BlockRecord{}, errs.Connection(err, "failed to get extrinsics for block %d", b.Number)
	}

	transactions := make([]string, 0, len(extrinsics))
	for _, ext := range extrinsics {
		digest := blake2b.Sum256(ext.Bytes)
		transactions = append(transactions, "0x"+hex.EncodeToString(digest[:]))
	}

	rec := models.BlockRecord{
		Number:         b.Number,
		Hash:           b.Hash.Hex(),
		ParentHash:     b.ParentHash.Hex(),
		Timestamp:      r.blockTimestamp(b.Number, extrinsics),
		Transactions:   transactions,
		ExtrinsicCount: uint32(len(extrinsics)),
		IsFinalized:    isFinalized(b.Number, headNumber, r.finalityDepth),
	}
	if b.StateRoot != nil {
		v := b.StateRoot.Hex()
		rec.StateRoot = &v
	}
	if b.ExtrinsicsRoot != nil {
		v := b.ExtrinsicsRoot.Hex()
		rec.ExtrinsicsRoot = &v
	}

	// Event count is advisory: omitted entirely when enumeration fails,
	// never partially reported.
	if events, err := r.chain.Events(ctx, b); err == nil {
		n := uint32(len(events))
		rec.EventCount = &n
	} else {
		r.log.Debug("skipping event count", "number", b.Number, "error", err)
	}

	return rec, nil
}

// isFinalized is the depth heuristic: a block more than finalityDepth behind
// head is assumed final. Best effort only; not a consensus proof.
func isFinalized(number, headNumber, finalityDepth uint64) bool {
	return headNumber > number && headNumber-number > finalityDepth
}

// blockTimestamp decodes the Timestamp.set inherent (compact u64 milliseconds)
// from the block's extrinsics. When the inherent is absent or undecodable it
// falls back to wall-clock time, which attributes the block to query time
// rather than production time; the degradation is logged.
func (r *Resolver) blockTimestamp(number uint64, extrinsics []chain.Extrinsic) uint64 {
	for _, ext := range extrinsics {
		if ext.Pallet != timestampPallet || ext.Call != timestampCall {
			continue
		}
		decoder := scale.NewDecoder(bytes.NewReader(ext.Args))
		msec, err := decoder.DecodeUintCompact()
		if err != nil {
			r.log.Warn("failed to decode timestamp inherent", "number", number, "error", err)
			break
		}
		return msec.Uint64() / 1e3
	}

	r.log.Warn("no usable timestamp inherent, falling back to wall-clock time", "number", number)
	return uint64(time.Now().Unix())
}

// extractDetails builds the full extrinsic and event lists. Any enumeration
// failure fails the whole call: partial detail records are never returned.
func (r *Resolver) extractDetails(ctx context.Context, b *chain.Block) ([]models.ExtrinsicRecord, []models.EventRecord, error) {
	extrinsics, err := r.chain.Extrinsics(ctx, b)
	if err != nil {
		return nil, nil, errs.Connection(err, "failed to get extrinsics for block %d", b.Number)
	}
	events, err := r.chain.Events(ctx, b)
	if err != nil {
		return nil, nil, errs.Connection(err, "failed to get events for block %d", b.Number)
	}

	eventRecords := make([]models.EventRecord, 0, len(events))
	byExtrinsic := make(map[uint32][]chain.Event)
	for _, ev := range events {
		rec := models.EventRecord{
			Index:  ev.Index,
			Pallet: ev.Pallet,
			Event:  ev.Variant,
		}
		if ev.ExtrinsicIndex != nil {
			idx := *ev.ExtrinsicIndex
			rec.ExtrinsicIndex = &idx
			byExtrinsic[idx] = append(byExtrinsic[idx], ev)
		}
		eventRecords = append(eventRecords, rec)
	}

	extrinsicRecords := make([]models.ExtrinsicRecord, 0, len(extrinsics))
	for _, ext := range extrinsics {
		digest := blake2b.Sum256(ext.Bytes)
		rec := models.ExtrinsicRecord{
			Index:   ext.Index,
			Hash:    "0x" + hex.EncodeToString(digest[:]),
			Signed:  ext.Signed,
			Pallet:  ext.Pallet,
			Call:    ext.Call,
			Success: extrinsicSucceeded(byExtrinsic[ext.Index]),
		}
		if ext.Signed && len(ext.Signer) > 0 {
			signer := "0x" + hex.EncodeToString(ext.Signer)
			rec.Signer = &signer
		}
		extrinsicRecords = append(extrinsicRecords, rec)
	}

	return extrinsicRecords, eventRecords, nil
}

// extrinsicSucceeded scans the extrinsic's events for System.ExtrinsicSuccess.
// Absence of that event means failure: never assume success.
func extrinsicSucceeded(events []chain.Event) bool {
	for _, ev := range events {
		if ev.Pallet == successPallet && ev.Variant == successEvent {
			return true
		}
	}
	return false
}
