package client

import (
	"fmt"

	"github.com/centrifuge/go-substrate-rpc-client/v4/signature"
	"github.com/centrifuge/go-substrate-rpc-client/v4/types"
)

// Transfer signs and submits a Balances.transfer_keep_alive extrinsic and
// returns its hash. The receiver is the hex account id of the destination.
func (c *Client) Transfer(senderSecret, receiverAccountID string, value, tip uint64) (txHash types.Hash, err error) {
	from, err := signature.KeyringPairFromSecret(senderSecret, c.NetworkID)
	if err != nil {
		return txHash, fmt.Errorf("can't get sender key pair %v", err)
	}

	to, err := types.NewMultiAddressFromHexAccountID(receiverAccountID)
	if err != nil {
		return txHash, fmt.Errorf("can't get reciever multi address %v", err)
	}

	amount := types.NewUCompactFromUInt(value)
	c.Meta, err = c.API.RPC.State.GetMetadataLatest()
	if err != nil {
		return txHash, fmt.Errorf("can't get latest metadata %v", err)
	}

	so, err := c.GetSignatureOptions(from, tip)
	if err != nil {
		return txHash, fmt.Errorf("can't get signature options %v", err)
	}

	ca, err := types.NewCall(c.Meta, "Balances.transfer_keep_alive", to, amount)
	if err != nil {
		return txHash, fmt.Errorf("can't get Balances.transfer_keep_alive call from metadata %v", err)
	}

	ext := types.NewExtrinsic(ca)

	err = ext.Sign(from, so)
	if err != nil {
		return txHash, fmt.Errorf("can't sign extrinsic %v", err)
	}

	txHash, err = c.API.RPC.Author.SubmitExtrinsic(ext)
	if err != nil {
		return txHash, fmt.Errorf("can't SubmitExtrinsic %v", err)
	}
	return
}

func (c *Client) GetSignatureOptions(signer signature.KeyringPair, tip uint64) (so types.SignatureOptions, err error) {
	gHash, err := c.GetGenesisHash()
	if err != nil {
		return so, err
	}
	ai, err := c.GetAccountInfo(signer.PublicKey)
	if err != nil {
		return so, err
	}
	err = c.checkRuntimeVersion()
	if err != nil {
		return so, err
	}
	rv := c.RuntimeVersion
	so = types.SignatureOptions{
		BlockHash:          *gHash,
		Era:                types.ExtrinsicEra{IsMortalEra: false, IsImmortalEra: true},
		GenesisHash:        *gHash,
		Nonce:              types.NewUCompactFromUInt(uint64(ai.Nonce)),
		SpecVersion:        rv.SpecVersion,
		Tip:                types.NewUCompactFromUInt(tip),
		TransactionVersion: rv.TransactionVersion,
	}
	return
}
