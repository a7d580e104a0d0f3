// Package chain defines the capability the block resolver consumes to reach a
// Substrate node. Implementations handle the wire protocol; the resolver only
// sees block handles and the lazily fetched extrinsic/event records.
package chain

import (
	"context"

	"github.com/centrifuge/go-substrate-rpc-client/v4/types"
)

// Chain is the node-facing capability. Extrinsics and Events are separate
// calls so summary queries never pay for detail they do not use.
type Chain interface {
	// Head returns the most recently observed block.
	Head(ctx context.Context) (*Block, error)

	// BlockAt returns the block with the given hash.
	BlockAt(ctx context.Context, hash types.Hash) (*Block, error)

	// Extrinsics returns the block's extrinsics in on-chain order.
	Extrinsics(ctx context.Context, b *Block) ([]Extrinsic, error)

	// Events returns all events recorded for the block, in order, each
	// associated to its emitting extrinsic where the chain reports one.
	Events(ctx context.Context, b *Block) ([]Event, error)
}

// Block is a fetched block header handle. Raw holds the owning client's wire
// payload so later Extrinsics calls need no refetch; resolvers must treat it
// as opaque.
type Block struct {
	Number         uint64
	Hash           types.Hash
	ParentHash     types.Hash
	StateRoot      *types.Hash
	ExtrinsicsRoot *types.Hash

	Raw interface{}
}

// Extrinsic is one entry of a block's body. Bytes is the full scale encoding
// (the input to the content hash); Args is the encoded call arguments only.
type Extrinsic struct {
	Index  uint32
	Bytes  []byte
	Args   []byte
	Signed bool
	Signer []byte // nil when unsigned
	Pallet string
	Call   string
}

// Event is one runtime event. ExtrinsicIndex is nil for block-level events
// (initialization/finalization phases).
type Event struct {
	Index          uint32
	ExtrinsicIndex *uint32
	Pallet         string
	Variant        string
}
