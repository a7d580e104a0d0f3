// Package block resolves block records by number or hash against a chain
// capability, with a bounded backward traversal for number lookups and a
// dual-keyed cache in front of the network.
package block

import (
	"context"
	"encoding/hex"
	"log/slog"

	"github.com/centrifuge/go-substrate-rpc-client/v4/types"

	"github.com/carbobit/apex-sdk/cache"
	"github.com/carbobit/apex-sdk/chain"
	"github.com/carbobit/apex-sdk/errs"
	"github.com/carbobit/apex-sdk/models"
)

const (
	// DefaultMaxTraverseDepth bounds how far behind head a number lookup will
	// walk parent hashes before directing the caller to the hash-based path.
	DefaultMaxTraverseDepth uint64 = 100

	// DefaultFinalityDepth is the depth behind head past which a block is
	// treated as finalized. This is a heuristic, not a consensus guarantee;
	// it never consults a finality subsystem.
	DefaultFinalityDepth uint64 = 100
)

// Resolver answers block queries. It holds a shared reference to one cache
// for its lifetime and issues traversal hops strictly sequentially.
type Resolver struct {
	chain chain.Chain
	cache *cache.Cache
	log   *slog.Logger

	maxTraverseDepth uint64
	finalityDepth    uint64
}

type Option func(*Resolver)

func WithMaxTraverseDepth(depth uint64) Option {
	return func(r *Resolver) { r.maxTraverseDepth = depth }
}

func WithFinalityDepth(depth uint64) Option {
	return func(r *Resolver) { r.finalityDepth = depth }
}

func WithLogger(log *slog.Logger) Option {
	return func(r *Resolver) { r.log = log }
}

func NewResolver(ch chain.Chain, bc *cache.Cache, opts ...Option) *Resolver {
	r := &Resolver{
		chain:            ch,
		cache:            bc,
		log:              slog.Default(),
		maxTraverseDepth: DefaultMaxTraverseDepth,
		finalityDepth:    DefaultFinalityDepth,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// GetBlockByNumber returns the summary record for the given block number.
//
// The lookup anchors at the current head and walks parent hashes backwards,
// at most maxTraverseDepth hops. Deeper history is refused with a too-far
// error: use GetBlockByHash with a known hash instead.
func (r *Resolver) GetBlockByNumber(ctx context.Context, number uint64) (*models.BlockRecord, error) {
	if rec, ok := r.cache.GetBlockByNumber(number); ok {
		r.log.Debug("block cache hit", "number", number)
		return &rec, nil
	}

	b, headNumber, err := r.resolveByNumber(ctx, number)
	if err != nil {
		return nil, err
	}

	rec, err := r.buildRecord(ctx, b, headNumber)
	if err != nil {
		return nil, err
	}
	r.cache.PutBlock(rec)
	return &rec, nil
}

// GetBlockByHash returns the summary record for the block with the given hex
// hash (64 hex characters, 0x prefix optional). This path is O(1) in network
// round trips and is the recommended lookup for anything older than the
// traversal bound.
func (r *Resolver) GetBlockByHash(ctx context.Context, hashHex string) (*models.BlockRecord, error) {
	h, err := ParseHash(hashHex)
	if err != nil {
		return nil, err
	}

	if rec, ok := r.cache.GetBlockByHash(h.Hex()); ok {
		r.log.Debug("block cache hit", "hash", h.Hex())
		return &rec, nil
	}

	r.log.Debug("fetching block by hash", "hash", h.Hex())

	// Head is still needed here: the finality heuristic is a depth below it.
	head, err := r.chain.Head(ctx)
	if err != nil {
		return nil, errs.Connection(err, "failed to get latest block")
	}

	b, err := r.chain.BlockAt(ctx, h)
	if err != nil {
		return nil, errs.Connection(err, "failed to get block %s", h.Hex())
	}
	if b == nil {
		return nil, errs.NotFound(nil, "no block with hash %s", h.Hex())
	}

	rec, err := r.buildRecord(ctx, b, head.Number)
	if err != nil {
		return nil, err
	}
	r.cache.PutBlock(rec)
	return &rec, nil
}

// GetDetailedBlock resolves a block exactly like GetBlockByNumber, then
// additionally extracts the full extrinsic and event lists. The detailed
// record is built per call and never cached; the summary portion is still
// written through to the cache.
func (r *Resolver) GetDetailedBlock(ctx context.Context, number uint64) (*models.DetailedBlockRecord, error) {
	b, headNumber, err := r.resolveByNumber(ctx, number)
	if err != nil {
		return nil, err
	}

	rec, err := r.buildRecord(ctx, b, headNumber)
	if err != nil {
		return nil, err
	}

	extrinsics, events, err := r.extractDetails(ctx, b)
	if err != nil {
		return nil, err
	}

	r.cache.PutBlock(rec)
	return &models.DetailedBlockRecord{
		Block:      rec,
		Extrinsics: extrinsics,
		Events:     events,
	}, nil
}

// resolveByNumber finds the block handle for the given number and reports the
// head number it anchored at. Hops are sequential: each depends on the parent
// hash of the previous one.
func (r *Resolver) resolveByNumber(ctx context.Context, number uint64) (*chain.Block, uint64, error) {
	r.log.Debug("fetching block by number", "number", number)

	head, err := r.chain.Head(ctx)
	if err != nil {
		return nil, 0, errs.Connection(err, "failed to get latest block")
	}

	if number > head.Number {
		return nil, 0, errs.NotFound(nil, "block %d not found (latest: %d)", number, head.Number)
	}
	if number == head.Number {
		return head, head.Number, nil
	}

	depth := head.Number - number
	if depth > r.maxTraverseDepth {
		return nil, 0, errs.TooFar(nil,
			"block %d is %d behind current height %d (budget %d); use the hash-based lookup if the hash is known",
			number, depth, head.Number, r.maxTraverseDepth)
	}

	current := head
	for hop := uint64(0); hop < depth; hop++ {
		if err := ctx.Err(); err != nil {
			return nil, 0, errs.Cancelled(err, "traversal to block %d interrupted at %d", number, current.Number)
		}
		parent, err := r.chain.BlockAt(ctx, current.ParentHash)
		if err != nil {
			return nil, 0, errs.Connection(err, "failed to traverse to block %d", number)
		}
		if parent == nil {
			return nil, 0, errs.Connection(nil, "missing parent %s while traversing to block %d",
				current.ParentHash.Hex(), number)
		}
		if parent.Number == number {
			return parent, head.Number, nil
		}
		current = parent
	}

	// Every hop succeeded yet none matched: the chain reported inconsistent
	// ancestry. Surface it, never hand back the last-seen block.
	return nil, 0, errs.Connection(nil,
		"inconsistent ancestry: walked %d hops from head %d without reaching block %d (stopped at %d)",
		depth, head.Number, number, current.Number)
}

// ParseHash decodes a hex block hash, accepting an optional 0x prefix and
// requiring exactly 32 bytes.
func ParseHash(hashHex string) (types.Hash, error) {
	trimmed := hashHex
	if len(trimmed) >= 2 && (trimmed[:2] == "0x" || trimmed[:2] == "0X") {
		trimmed = trimmed[2:]
	}
	raw, err := hex.DecodeString(trimmed)
	if err != nil {
		return types.Hash{}, errs.InvalidInput(err, "invalid block hash %q", hashHex)
	}
	if len(raw) != 32 {
		return types.Hash{}, errs.InvalidInput(nil, "block hash must be 32 bytes, got %d", len(raw))
	}
	return types.NewHash(raw), nil
}
