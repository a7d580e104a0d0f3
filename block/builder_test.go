package block

import (
	"context"
	"encoding/hex"
	"errors"
	"testing"

	"github.com/centrifuge/go-substrate-rpc-client/v4/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/blake2b"

	"github.com/carbobit/apex-sdk/chain"
	"github.com/carbobit/apex-sdk/errs"
)

func u32(v uint32) *uint32 { return &v }

func compactMillis(t *testing.T, ms uint64) []byte {
	t.Helper()
	encoded, err := types.Encode(types.NewUCompactFromUInt(ms))
	require.NoError(t, err)
	return encoded
}

func timestampExtrinsic(t *testing.T, ms uint64) chain.Extrinsic {
	return chain.Extrinsic{
		Index:  0,
		Bytes:  []byte{0x04, 0x00},
		Args:   compactMillis(t, ms),
		Pallet: "Timestamp",
		Call:   "set",
	}
}

func TestBuildRecordHashesExtrinsicsInOrder(t *testing.T) {
	f := newFakeChain(1000, 990)
	f.extrinsics[995] = []chain.Extrinsic{
		timestampExtrinsic(t, 1704067200_000),
		{Index: 1, Bytes: []byte{0xde, 0xad}, Pallet: "Balances", Call: "transfer"},
	}
	r := newTestResolver(f)

	rec, err := r.GetBlockByNumber(context.Background(), 995)
	require.NoError(t, err)

	require.Len(t, rec.Transactions, 2)
	assert.Equal(t, uint32(2), rec.ExtrinsicCount)

	first := blake2b.Sum256([]byte{0x04, 0x00})
	second := blake2b.Sum256([]byte{0xde, 0xad})
	assert.Equal(t, "0x"+hex.EncodeToString(first[:]), rec.Transactions[0])
	assert.Equal(t, "0x"+hex.EncodeToString(second[:]), rec.Transactions[1])
}

func TestBuildRecordTimestampFromInherent(t *testing.T) {
	f := newFakeChain(1000, 990)
	f.extrinsics[995] = []chain.Extrinsic{timestampExtrinsic(t, 1704067200_000)}
	r := newTestResolver(f)

	rec, err := r.GetBlockByNumber(context.Background(), 995)
	require.NoError(t, err)
	assert.Equal(t, uint64(1704067200), rec.Timestamp)
}

func TestBuildRecordTimestampFallback(t *testing.T) {
	// No Timestamp.set inherent: the builder degrades to wall-clock time.
	f := newFakeChain(1000, 990)
	r := newTestResolver(f)

	rec, err := r.GetBlockByNumber(context.Background(), 995)
	require.NoError(t, err)
	assert.NotZero(t, rec.Timestamp)
}

func TestBuildRecordEventCountBestEffort(t *testing.T) {
	f := newFakeChain(1000, 990)
	f.events[995] = []chain.Event{
		{Index: 0, ExtrinsicIndex: u32(0), Pallet: "System", Variant: "ExtrinsicSuccess"},
		{Index: 1, Pallet: "System", Variant: "CodeUpdated"},
	}
	r := newTestResolver(f)

	rec, err := r.GetBlockByNumber(context.Background(), 995)
	require.NoError(t, err)
	require.NotNil(t, rec.EventCount)
	assert.Equal(t, uint32(2), *rec.EventCount)
}

func TestBuildRecordEventCountOmittedOnFailure(t *testing.T) {
	f := newFakeChain(1000, 990)
	f.eventsErr = errors.New("storage query failed")
	r := newTestResolver(f)

	rec, err := r.GetBlockByNumber(context.Background(), 995)
	require.NoError(t, err, "a missing event count never fails the summary build")
	assert.Nil(t, rec.EventCount)
}

func TestBuildRecordExtrinsicFailureIsConnection(t *testing.T) {
	f := newFakeChain(1000, 990)
	f.extrErr = errors.New("body fetch failed")
	r := newTestResolver(f)

	_, err := r.GetBlockByNumber(context.Background(), 995)
	require.Error(t, err)
	assert.True(t, errs.IsKind(err, errs.KindConnection))
}

func TestGetDetailedBlock(t *testing.T) {
	signer := []byte{0xab, 0xcd}
	f := newFakeChain(1000, 990)
	f.extrinsics[995] = []chain.Extrinsic{
		timestampExtrinsic(t, 1704067200_000),
		{Index: 1, Bytes: []byte{0xde, 0xad}, Signed: true, Signer: signer, Pallet: "Balances", Call: "transfer"},
		{Index: 2, Bytes: []byte{0xbe, 0xef}, Signed: true, Signer: signer, Pallet: "Balances", Call: "transfer"},
	}
	f.events[995] = []chain.Event{
		{Index: 0, Pallet: "System", Variant: "CodeUpdated"},
		{Index: 1, ExtrinsicIndex: u32(0), Pallet: "System", Variant: "ExtrinsicSuccess"},
		{Index: 2, ExtrinsicIndex: u32(1), Pallet: "Balances", Variant: "Transfer"},
		{Index: 3, ExtrinsicIndex: u32(1), Pallet: "System", Variant: "ExtrinsicSuccess"},
		{Index: 4, ExtrinsicIndex: u32(2), Pallet: "System", Variant: "ExtrinsicFailed"},
	}
	r := newTestResolver(f)

	detailed, err := r.GetDetailedBlock(context.Background(), 995)
	require.NoError(t, err)

	assert.Equal(t, uint64(995), detailed.Block.Number)
	require.Len(t, detailed.Extrinsics, 3)
	require.Len(t, detailed.Events, 5)

	inherent := detailed.Extrinsics[0]
	assert.False(t, inherent.Signed)
	assert.Nil(t, inherent.Signer)
	assert.True(t, inherent.Success)

	transfer := detailed.Extrinsics[1]
	assert.True(t, transfer.Signed)
	require.NotNil(t, transfer.Signer)
	assert.Equal(t, "0x"+hex.EncodeToString(signer), *transfer.Signer)
	assert.True(t, transfer.Success)

	failed := detailed.Extrinsics[2]
	assert.False(t, failed.Success, "no success event means failure")

	blockLevel := detailed.Events[0]
	assert.Nil(t, blockLevel.ExtrinsicIndex)
	require.NotNil(t, detailed.Events[1].ExtrinsicIndex)
	assert.Equal(t, uint32(0), *detailed.Events[1].ExtrinsicIndex)
}

func TestGetDetailedBlockFailsOnEventError(t *testing.T) {
	f := newFakeChain(1000, 990)
	f.extrinsics[995] = []chain.Extrinsic{timestampExtrinsic(t, 1704067200_000)}
	f.eventsErr = errors.New("storage query failed")
	r := newTestResolver(f)

	_, err := r.GetDetailedBlock(context.Background(), 995)
	require.Error(t, err, "detail extraction is all-or-nothing")
	assert.True(t, errs.IsKind(err, errs.KindConnection))
}

func TestGetDetailedBlockSameBoundingRules(t *testing.T) {
	f := newFakeChain(1000, 880)
	r := newTestResolver(f)

	_, err := r.GetDetailedBlock(context.Background(), 899)
	assert.True(t, errs.IsKind(err, errs.KindTooFar))

	_, err = r.GetDetailedBlock(context.Background(), 1001)
	assert.True(t, errs.IsKind(err, errs.KindNotFound))
}

func TestGetDetailedBlockNotServedFromCache(t *testing.T) {
	f := newFakeChain(1000, 990)
	f.extrinsics[995] = []chain.Extrinsic{timestampExtrinsic(t, 1704067200_000)}
	r := newTestResolver(f)

	_, err := r.GetBlockByNumber(context.Background(), 995)
	require.NoError(t, err)
	headCalls := f.headCalls

	_, err = r.GetDetailedBlock(context.Background(), 995)
	require.NoError(t, err)
	assert.Greater(t, f.headCalls, headCalls, "detail queries always enumerate live data")
}
