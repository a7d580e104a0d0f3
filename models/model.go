package models

import "github.com/shopspring/decimal"

// BlockRecord is the summary view of a block. The optional fields were added
// after the initial release; payloads produced by older versions decode with
// nil/zero/false defaults for them.
type BlockRecord struct {
	Number         uint64   `json:"number"`
	Hash           string   `json:"hash"`
	ParentHash     string   `json:"parent_hash"`
	Timestamp      uint64   `json:"timestamp"`
	Transactions   []string `json:"transactions"`
	StateRoot      *string  `json:"state_root,omitempty"`
	ExtrinsicsRoot *string  `json:"extrinsics_root,omitempty"`
	ExtrinsicCount uint32   `json:"extrinsic_count"`
	EventCount     *uint32  `json:"event_count,omitempty"`
	IsFinalized    bool     `json:"is_finalized"`
}

// Clone returns a deep copy, so cached records are never shared-mutated.
func (r BlockRecord) Clone() BlockRecord {
	c := r
	if r.Transactions != nil {
		c.Transactions = make([]string, len(r.Transactions))
		copy(c.Transactions, r.Transactions)
	}
	if r.StateRoot != nil {
		v := *r.StateRoot
		c.StateRoot = &v
	}
	if r.ExtrinsicsRoot != nil {
		v := *r.ExtrinsicsRoot
		c.ExtrinsicsRoot = &v
	}
	if r.EventCount != nil {
		v := *r.EventCount
		c.EventCount = &v
	}
	return c
}

type ExtrinsicRecord struct {
	Index   uint32  `json:"index"`
	Hash    string  `json:"hash"`
	Signed  bool    `json:"signed"`
	Signer  *string `json:"signer,omitempty"` // present only for signed extrinsics
	Pallet  string  `json:"pallet"`
	Call    string  `json:"call"`
	Success bool    `json:"success"`
}

type EventRecord struct {
	Index          uint32  `json:"index"`
	ExtrinsicIndex *uint32 `json:"extrinsic_index,omitempty"` // absent for block-level events
	Pallet         string  `json:"pallet"`
	Event          string  `json:"event"`
}

// DetailedBlockRecord is built per query and never cached; only the summary
// BlockRecord goes through the cache.
type DetailedBlockRecord struct {
	Block      BlockRecord       `json:"block"`
	Extrinsics []ExtrinsicRecord `json:"extrinsics"`
	Events     []EventRecord     `json:"events"`
}

type AccountBalance struct {
	Free     decimal.Decimal `json:"free"`
	Reserved decimal.Decimal `json:"reserved"`
	Nonce    uint32          `json:"nonce"`
}
