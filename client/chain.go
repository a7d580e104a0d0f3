package client

import (
	"context"
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/centrifuge/go-substrate-rpc-client/v4/types"

	"github.com/carbobit/apex-sdk/chain"
)

var _ chain.Chain = (*Client)(nil)

// Head returns the most recent block observed by the node.
func (c *Client) Head(ctx context.Context) (*chain.Block, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := c.checkRuntimeVersion(); err != nil {
		return nil, err
	}
	hash, err := c.API.RPC.Chain.GetBlockHashLatest()
	if err != nil {
		return nil, fmt.Errorf("get latest block hash error: %v", err)
	}
	return c.BlockAt(ctx, hash)
}

// BlockAt fetches the block with the given hash. The signed block payload is
// kept on the handle so extrinsic enumeration needs no refetch.
func (c *Client) BlockAt(ctx context.Context, hash types.Hash) (*chain.Block, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := c.checkRuntimeVersion(); err != nil {
		return nil, err
	}
	signed, err := c.API.RPC.Chain.GetBlock(hash)
	if err != nil {
		return nil, fmt.Errorf("get block error: %v", err)
	}
	// An unknown hash makes the node answer null, which decodes into a zero
	// block rather than an error. Report it as absent, not as block 0.
	if isEmptyBlock(signed) {
		return nil, nil
	}

	header := signed.Block.Header
	stateRoot := header.StateRoot
	extrinsicsRoot := header.ExtrinsicsRoot
	return &chain.Block{
		Number:         uint64(header.Number),
		Hash:           hash,
		ParentHash:     header.ParentHash,
		StateRoot:      &stateRoot,
		ExtrinsicsRoot: &extrinsicsRoot,
		Raw:            signed,
	}, nil
}

// Extrinsics returns the block's extrinsics with their raw scale encoding,
// call arguments, signer, and pallet/call names resolved from metadata.
func (c *Client) Extrinsics(ctx context.Context, b *chain.Block) ([]chain.Extrinsic, error) {
	signed, err := c.signedBlock(ctx, b)
	if err != nil {
		return nil, err
	}

	extrinsics := make([]chain.Extrinsic, 0, len(signed.Block.Extrinsics))
	for i, ext := range signed.Block.Extrinsics {
		raw, err := types.Encode(ext)
		if err != nil {
			return nil, fmt.Errorf("failed to encode extrinsic %d: %v", i, err)
		}

		pallet, call := c.callName(ext.Method.CallIndex)
		rec := chain.Extrinsic{
			Index:  uint32(i),
			Bytes:  raw,
			Args:   ext.Method.Args,
			Signed: ext.IsSigned(),
			Pallet: pallet,
			Call:   call,
		}
		if rec.Signed {
			rec.Signer = signerBytes(ext.Signature.Signer)
		}
		extrinsics = append(extrinsics, rec)
	}
	return extrinsics, nil
}

// Events reads the System.Events storage at the block and flattens the typed
// event records into generic pallet/variant pairs with their extrinsic phase.
func (c *Client) Events(ctx context.Context, b *chain.Block) ([]chain.Event, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := c.checkRuntimeVersion(); err != nil {
		return nil, err
	}

	eventKey, err := types.CreateStorageKey(c.Meta, "System", "Events")
	if err != nil {
		return nil, fmt.Errorf("unable to create storage key:%v", err)
	}

	raw, err := c.API.RPC.State.GetStorageRaw(eventKey, b.Hash)
	if err != nil {
		return nil, fmt.Errorf("unable to query storage: %v", err)
	}

	var records types.EventRecords
	err = (*types.EventRecordsRaw)(raw).DecodeEventRecords(c.Meta, &records)
	if err != nil {
		return nil, fmt.Errorf("unable to decode event records: %v", err)
	}

	return flattenEvents(&records), nil
}

// isEmptyBlock reports whether the signed block is the zero value produced by
// decoding a null response. The genesis block also has number 0 and a zero
// parent hash, but carries a real state root.
func isEmptyBlock(signed *types.SignedBlock) bool {
	if signed == nil {
		return true
	}
	header := signed.Block.Header
	return header.Number == 0 &&
		header.ParentHash == (types.Hash{}) &&
		header.StateRoot == (types.Hash{}) &&
		len(signed.Block.Extrinsics) == 0
}

func (c *Client) signedBlock(ctx context.Context, b *chain.Block) (*types.SignedBlock, error) {
	if signed, ok := b.Raw.(*types.SignedBlock); ok {
		return signed, nil
	}
	fetched, err := c.BlockAt(ctx, b.Hash)
	if err != nil {
		return nil, err
	}
	return fetched.Raw.(*types.SignedBlock), nil
}

// callName resolves a call index to pallet and call names via v14 metadata.
// Unresolvable indices come back as Unknown rather than failing the fetch.
func (c *Client) callName(ci types.CallIndex) (string, string) {
	const unknown = "Unknown"
	if c.Meta == nil || c.Meta.Version != 14 {
		return unknown, unknown
	}
	for _, pallet := range c.Meta.AsMetadataV14.Pallets {
		if uint8(pallet.Index) != ci.SectionIndex || !pallet.HasCalls {
			continue
		}
		typ, ok := c.Meta.AsMetadataV14.EfficientLookup[pallet.Calls.Type.Int64()]
		if !ok || !typ.Def.IsVariant {
			return string(pallet.Name), unknown
		}
		for _, variant := range typ.Def.Variant.Variants {
			if uint8(variant.Index) == ci.MethodIndex {
				return string(pallet.Name), string(variant.Name)
			}
		}
		return string(pallet.Name), unknown
	}
	return unknown, unknown
}

func signerBytes(addr types.MultiAddress) []byte {
	if addr.IsID {
		id := addr.AsID
		return id[:]
	}
	encoded, err := types.Encode(addr)
	if err != nil {
		return nil
	}
	return encoded
}

// flattenEvents walks the typed EventRecords struct. Every field is a slice
// named Pallet_Event whose elements carry a Phase; that is all the generic
// record needs. Typed decoding does not preserve the on-chain order across
// pallets, so events are ordered by extrinsic association before indexing.
func flattenEvents(records *types.EventRecords) []chain.Event {
	v := reflect.ValueOf(*records)
	t := v.Type()

	var events []chain.Event
	for i := 0; i < t.NumField(); i++ {
		name := t.Field(i).Name
		parts := strings.SplitN(name, "_", 2)
		if len(parts) != 2 {
			continue
		}
		field := v.Field(i)
		if field.Kind() != reflect.Slice {
			continue
		}
		for j := 0; j < field.Len(); j++ {
			events = append(events, chain.Event{
				ExtrinsicIndex: eventPhase(field.Index(j)),
				Pallet:         parts[0],
				Variant:        parts[1],
			})
		}
	}

	sort.SliceStable(events, func(i, j int) bool {
		a, b := events[i].ExtrinsicIndex, events[j].ExtrinsicIndex
		switch {
		case a == nil:
			return b != nil
		case b == nil:
			return false
		default:
			return *a < *b
		}
	})
	for i := range events {
		events[i].Index = uint32(i)
	}
	return events
}

func eventPhase(event reflect.Value) *uint32 {
	field := event.FieldByName("Phase")
	if !field.IsValid() {
		return nil
	}
	phase, ok := field.Interface().(types.Phase)
	if !ok || !phase.IsApplyExtrinsic {
		return nil
	}
	idx := phase.AsApplyExtrinsic
	return &idx
}
